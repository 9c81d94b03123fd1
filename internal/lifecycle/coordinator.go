package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docanalyzer/internal/documents"
	"docanalyzer/internal/extract"
	"docanalyzer/internal/llm"
	"docanalyzer/internal/shared/metrics"
	"docanalyzer/internal/shared/storage/object"
	"docanalyzer/internal/shared/telemetry"
)

// Stored error codes for failed documents.
const (
	CodeUnsupportedMimeType = "UNSUPPORTED_MIME_TYPE"
	CodeExtractionFailed    = "EXTRACTION_FAILED"
	CodeExtractionTimeout   = "EXTRACTION_TIMEOUT"
	CodeAnalysisFailed      = "ANALYSIS_FAILED"
	CodeStorageError        = "STORAGE_ERROR"
	CodeInternalError       = "INTERNAL_ERROR"
)

const maxErrorMessageRunes = 500

// ErrStorage marks failures to materialize a stored file.
var ErrStorage = errors.New("storage unavailable")

// Extractor turns a local file into text.
type Extractor interface {
	Extract(ctx context.Context, filePath, mimeType string) (string, error)
}

// Coordinator drives a document through extraction and analysis and records
// every status transition.
type Coordinator struct {
	Repo      documents.Repo
	Store     object.ObjectStore
	Extractor Extractor
	LLM       llm.Client
	Now       func() time.Time
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

// Process extracts (when the document has a stored file) and analyzes the
// document. The extracted text is persisted before analysis starts. On failure
// the document is marked failed with its analysis cleared and the error is
// returned.
func (c *Coordinator) Process(ctx context.Context, id string) (documents.Document, error) {
	doc, err := c.Repo.GetByID(ctx, id)
	if err != nil {
		return documents.Document{}, err
	}

	start := time.Now()
	metrics.IncProcessStarted()

	prev := doc.Status
	doc.Status = documents.StatusProcessing
	doc.ErrorCode = ""
	doc.ErrorMessage = ""
	doc.UpdatedAt = c.now()
	if err := c.Repo.Update(ctx, doc); err != nil {
		metrics.IncProcessFailed()
		return documents.Document{}, fmt.Errorf("persist processing: %w", err)
	}
	logTransition(ctx, doc, prev, nil)

	if doc.HasStoredFile() {
		text, err := c.extract(ctx, doc)
		if err != nil {
			return c.fail(ctx, doc, err, start)
		}
		now := c.now()
		doc.ExtractedText = text
		doc.ExtractedAt = &now
		doc.UpdatedAt = now
		if err := c.Repo.Update(ctx, doc); err != nil {
			return c.fail(ctx, doc, fmt.Errorf("persist extracted text: %w", err), start)
		}
	}

	analysis, err := c.LLM.Analyze(ctx, doc.ExtractedText)
	if err != nil {
		if !errors.Is(err, llm.ErrAnalysisFailed) {
			err = fmt.Errorf("%w: %w", llm.ErrAnalysisFailed, err)
		}
		return c.fail(ctx, doc, err, start)
	}

	now := c.now()
	doc.Analysis = &analysis
	doc.Status = documents.StatusAnalyzed
	doc.ProcessedAt = &now
	doc.UpdatedAt = now
	if err := c.Repo.Update(ctx, doc); err != nil {
		return c.fail(ctx, doc, fmt.Errorf("persist analysis: %w", err), start)
	}

	metrics.IncProcessCompleted()
	metrics.ObserveProcessDurationMs(float64(time.Since(start).Milliseconds()))
	logTransition(ctx, doc, documents.StatusProcessing, nil)
	return doc, nil
}

// Act rewrites the document text following instruction. The document is not
// modified and may be in any status.
func (c *Coordinator) Act(ctx context.Context, id, instruction string) (string, error) {
	doc, err := c.Repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	result, err := c.LLM.Rewrite(ctx, doc.ExtractedText, instruction)
	if err != nil {
		if !errors.Is(err, llm.ErrRewriteFailed) {
			err = fmt.Errorf("%w: %w", llm.ErrRewriteFailed, err)
		}
		telemetry.Warn("document.action.failed", map[string]any{
			"document_id": doc.ID,
			"request_id":  telemetry.RequestID(ctx),
			"err":         err,
		})
		return "", err
	}
	telemetry.Info("document.action.ok", map[string]any{
		"document_id":  doc.ID,
		"request_id":   telemetry.RequestID(ctx),
		"result_chars": len([]rune(result)),
	})
	return result, nil
}

func (c *Coordinator) extract(ctx context.Context, doc documents.Document) (string, error) {
	if c.Store == nil || c.Extractor == nil {
		return "", fmt.Errorf("%w: extraction not configured", ErrStorage)
	}
	path, cleanup, err := c.Store.LocalPath(ctx, doc.StorageKey)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrStorage, doc.StorageKey, err)
	}
	defer cleanup()

	text, err := c.Extractor.Extract(ctx, path, doc.MimeType)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, extract.ErrExtractionTimeout) {
			err = fmt.Errorf("%w: %w", extract.ErrExtractionTimeout, err)
		}
		return "", err
	}
	return text, nil
}

// fail records the failure with a context that outlives cancellation of ctx so
// the failed status is always written.
func (c *Coordinator) fail(ctx context.Context, doc documents.Document, cause error, start time.Time) (documents.Document, error) {
	prev := doc.Status
	doc.Status = documents.StatusFailed
	doc.Analysis = nil
	doc.ProcessedAt = nil
	doc.ErrorCode = ErrorCode(cause)
	doc.ErrorMessage = ErrorMessage(cause)
	doc.UpdatedAt = c.now()

	if err := c.Repo.Update(context.WithoutCancel(ctx), doc); err != nil {
		telemetry.Error("document.persist_failure.failed", map[string]any{
			"document_id": doc.ID,
			"err":         err,
		})
	}

	metrics.IncProcessFailed()
	metrics.ObserveProcessDurationMs(float64(time.Since(start).Milliseconds()))
	logTransition(ctx, doc, prev, cause)
	return doc, cause
}

// ErrorCode maps a processing error to the code stored on the document.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, extract.ErrUnsupportedMimeType):
		return CodeUnsupportedMimeType
	case errors.Is(err, extract.ErrExtractionTimeout):
		return CodeExtractionTimeout
	case errors.Is(err, extract.ErrExtractionFailed):
		return CodeExtractionFailed
	case errors.Is(err, llm.ErrAnalysisFailed):
		return CodeAnalysisFailed
	case errors.Is(err, ErrStorage):
		return CodeStorageError
	default:
		return CodeInternalError
	}
}

// ErrorMessage renders err as a single printable line capped at
// maxErrorMessageRunes.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToValidUTF8(err.Error(), "")
	msg = strings.Join(strings.Fields(msg), " ")
	if r := []rune(msg); len(r) > maxErrorMessageRunes {
		msg = string(r[:maxErrorMessageRunes])
	}
	return msg
}

func logTransition(ctx context.Context, doc documents.Document, from documents.Status, cause error) {
	fields := map[string]any{
		"document_id": doc.ID,
		"from":        string(from),
		"to":          string(doc.Status),
		"source_kind": string(doc.SourceKind),
	}
	if id := telemetry.RequestID(ctx); id != "" {
		fields["request_id"] = id
	}
	if cause != nil {
		fields["error_code"] = doc.ErrorCode
		fields["err"] = cause
		telemetry.Warn("document.status", fields)
		return
	}
	telemetry.Info("document.status", fields)
}
