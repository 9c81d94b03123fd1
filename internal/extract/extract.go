package extract

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docanalyzer/internal/shared/metrics"
)

const (
	MimePDF       = "application/pdf"
	MimePlainText = "text/plain"

	// MinTextLayerChars is the rune count below which a PDF text layer is
	// considered absent and the OCR fallback runs.
	MinTextLayerChars = 100
	// MaxOCRPages caps how many rasterized pages are sent to OCR.
	MaxOCRPages = 5

	// EmptySentinel replaces a final text that is empty after trimming.
	EmptySentinel = "Aucun texte extrait. Document vide ou corrompu."

	placeholderFormat = "⚠️ PDF SCANNÉ - Erreur de conversion\n\nErreur: %s\n\nSolution: Convertissez le PDF en images JPG/PNG et téléversez-les."
)

// Strategy labels reported to metrics and the progress hook.
const (
	StrategyPDFText        = "pdf-text"
	StrategyPDFOCR         = "pdf-ocr"
	StrategyPDFPlaceholder = "pdf-placeholder"
	StrategyImageOCR       = "image-ocr"
	StrategyPlainText      = "plaintext"
)

type TextLayerReader interface {
	ReadTextLayer(ctx context.Context, pdfPath string) TextLayerResult
}

type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outputDir string) ([]string, error)
}

type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Options tunes an Orchestrator. Zero timeouts disable the per-step deadline.
type Options struct {
	RasterizeTimeout time.Duration
	OCRTimeout       time.Duration
	Progress         ProgressFunc
}

// Orchestrator picks an extraction strategy by MIME type and produces the
// final text for a stored file.
type Orchestrator struct {
	textLayer  TextLayerReader
	rasterizer Rasterizer
	recognizer Recognizer
	opts       Options
}

func NewOrchestrator(textLayer TextLayerReader, rasterizer Rasterizer, recognizer Recognizer, opts Options) *Orchestrator {
	if textLayer == nil {
		textLayer = PDFTextReader{}
	}
	if opts.Progress == nil {
		opts.Progress = LogProgress
	}
	return &Orchestrator{textLayer: textLayer, rasterizer: rasterizer, recognizer: recognizer, opts: opts}
}

// Extract returns the text of the file at filePath. The result is never empty:
// a blank outcome is replaced by EmptySentinel.
func (o *Orchestrator) Extract(ctx context.Context, filePath, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	mt := NormalizeMimeType(mimeType)
	o.emit(Event{Stage: StageStarted, Path: filePath, MimeType: mt})

	var (
		text     string
		strategy string
		err      error
	)
	switch {
	case mt == MimePDF:
		text, strategy, err = o.extractPDF(ctx, filePath)
	case strings.HasPrefix(mt, "image/"):
		strategy = StrategyImageOCR
		text, err = o.recognize(ctx, filePath)
		if err == nil {
			metrics.AddOCRPages(1)
		}
	case mt == MimePlainText:
		strategy = StrategyPlainText
		text, err = readPlainText(filePath)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMimeType, mt)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		text = EmptySentinel
	}
	metrics.IncExtraction(strategy)
	o.emit(Event{Stage: StageCompleted, Path: filePath, MimeType: mt, Strategy: strategy, Chars: len([]rune(text))})
	return text, nil
}

func (o *Orchestrator) extractPDF(ctx context.Context, path string) (string, string, error) {
	layer := o.textLayer.ReadTextLayer(ctx, path)
	ev := Event{Stage: StageTextLayer, Path: path, MimeType: MimePDF, Chars: layer.Chars(), Detail: string(layer.Outcome)}
	if layer.Cause != nil {
		ev.Detail += ": " + layer.Cause.Error()
	}
	o.emit(ev)
	if layer.Sufficient() {
		return layer.Text, StrategyPDFText, nil
	}

	o.emit(Event{Stage: StageFallback, Path: path, MimeType: MimePDF, Strategy: StrategyPDFOCR, Chars: layer.Chars()})
	text, err := o.ocrPDF(ctx, path)
	if err != nil {
		if errors.Is(err, ErrExtractionTimeout) || ctx.Err() != nil {
			return "", "", err
		}
		o.emit(Event{Stage: StageFallbackFailed, Path: path, MimeType: MimePDF, Strategy: StrategyPDFPlaceholder, Detail: err.Error()})
		return fmt.Sprintf(placeholderFormat, err.Error()), StrategyPDFPlaceholder, nil
	}
	return text, StrategyPDFOCR, nil
}

// ocrPDF rasterizes next to the source file and OCRs at most MaxOCRPages pages.
// Every produced image is removed before returning, including skipped pages.
func (o *Orchestrator) ocrPDF(ctx context.Context, path string) (string, error) {
	if o.rasterizer == nil || o.recognizer == nil {
		return "", fmt.Errorf("%w: ocr fallback not configured", ErrRasterizationFailed)
	}

	rctx, cancel := withTimeout(ctx, o.opts.RasterizeTimeout)
	images, err := o.rasterizer.Rasterize(rctx, path, filepath.Dir(path))
	timedOut := errors.Is(rctx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		if timedOut {
			return "", fmt.Errorf("%w: rasterize %s: %w", ErrExtractionTimeout, filepath.Base(path), err)
		}
		return "", err
	}
	defer removeFiles(images)

	n := len(images)
	if n > MaxOCRPages {
		n = MaxOCRPages
	}
	o.emit(Event{Stage: StageRasterized, Path: path, MimeType: MimePDF, Pages: n, Detail: fmt.Sprintf("%d images", len(images))})

	blocks := make([]string, 0, n)
	for i := 0; i < n; i++ {
		text, err := o.recognize(ctx, images[i])
		_ = os.Remove(images[i])
		if err != nil {
			return "", err
		}
		metrics.AddOCRPages(1)
		o.emit(Event{Stage: StagePage, Path: path, MimeType: MimePDF, Page: i + 1, Pages: n, Chars: len([]rune(text))})
		if text != "" {
			blocks = append(blocks, fmt.Sprintf("\n=== PAGE %d ===\n%s", i+1, text))
		}
	}
	return strings.Join(blocks, "\n\n"), nil
}

func (o *Orchestrator) recognize(ctx context.Context, imagePath string) (string, error) {
	if o.recognizer == nil {
		return "", fmt.Errorf("%w: %w: recognizer not configured", ErrExtractionFailed, ErrRecognitionFailed)
	}
	rctx, cancel := withTimeout(ctx, o.opts.OCRTimeout)
	defer cancel()

	text, err := o.recognizer.Recognize(rctx, imagePath)
	if err != nil {
		if errors.Is(rctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: ocr %s: %w", ErrExtractionTimeout, filepath.Base(imagePath), err)
		}
		return "", fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	return text, nil
}

func (o *Orchestrator) emit(ev Event) {
	if o.opts.Progress != nil {
		o.opts.Progress(ev)
	}
}

func readPlainText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrReadFailed, filepath.Base(path), err)
	}
	text := strings.ToValidUTF8(string(raw), "\uFFFD")
	text = strings.TrimPrefix(text, "\uFEFF")
	return strings.TrimSpace(text), nil
}

// NormalizeMimeType lowercases a MIME type and drops parameters such as charset.
func NormalizeMimeType(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}

var extensionTypes = map[string]string{
	".pdf":  MimePDF,
	".txt":  MimePlainText,
	".text": MimePlainText,
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".bmp":  "image/bmp",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// MimeTypeForFile infers a MIME type from the file extension. The result is
// empty when the extension is unknown.
func MimeTypeForFile(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if mt, ok := extensionTypes[ext]; ok {
		return mt
	}
	return NormalizeMimeType(mime.TypeByExtension(ext))
}

// IsSupported reports whether Extract has a strategy for mimeType.
func IsSupported(mimeType string) bool {
	mt := NormalizeMimeType(mimeType)
	return mt == MimePDF || mt == MimePlainText || strings.HasPrefix(mt, "image/")
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func removeFiles(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
