package documents

import (
	"time"

	"docanalyzer/internal/extract"
	"docanalyzer/internal/llm"
)

// SourceKind is how the document entered the system.
type SourceKind string

const (
	SourcePDF       SourceKind = "pdf"
	SourceImage     SourceKind = "image"
	SourcePlainText SourceKind = "plaintext"
)

// Status is the processing state of a document.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusAnalyzed   Status = "analyzed"
	StatusFailed     Status = "failed"
)

// Document is one submitted file or pasted text and its analysis.
// A document without StorageKey carries its text from creation.
type Document struct {
	ID              string
	OwnerID         string
	FileName        string
	OriginalName    string
	MimeType        string
	SourceKind      SourceKind
	SizeBytes       int64
	StorageProvider string
	StorageKey      string
	ExtractedText   string
	ExtractedAt     *time.Time
	Analysis        *llm.AnalysisResult
	Status          Status
	ErrorCode       string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProcessedAt     *time.Time
}

// HasStoredFile reports whether the text must be extracted from object storage.
func (d Document) HasStoredFile() bool {
	return d.StorageKey != ""
}

// VisibleTo reports whether userID may read the document. Documents created
// without an identity are visible to anyone holding the id.
func (d Document) VisibleTo(userID string) bool {
	return d.OwnerID == "" || d.OwnerID == userID
}

// SourceKindFor maps a MIME type to a SourceKind.
func SourceKindFor(mimeType string) (SourceKind, bool) {
	mime := extract.NormalizeMimeType(mimeType)
	switch {
	case mime == extract.MimePDF:
		return SourcePDF, true
	case mime == extract.MimePlainText:
		return SourcePlainText, true
	case extract.IsSupported(mime):
		return SourceImage, true
	default:
		return "", false
	}
}

func cloneDocument(d Document) Document {
	out := d
	if d.ExtractedAt != nil {
		t := *d.ExtractedAt
		out.ExtractedAt = &t
	}
	if d.ProcessedAt != nil {
		t := *d.ProcessedAt
		out.ProcessedAt = &t
	}
	if d.Analysis != nil {
		a := *d.Analysis
		a.KeyPoints = append([]string(nil), d.Analysis.KeyPoints...)
		a.RequiredActions = append([]string(nil), d.Analysis.RequiredActions...)
		a.Warnings = append([]string(nil), d.Analysis.Warnings...)
		out.Analysis = &a
	}
	return out
}
