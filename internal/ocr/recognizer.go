package ocr

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// RecognizerConfig configures the OCR engine invocation.
type RecognizerConfig struct {
	Binary    string // tesseract binary name or absolute path
	Languages string // tesseract language spec, e.g. "fra+eng"
}

// Recognizer turns a raster image into plain text.
type Recognizer struct {
	cfg    RecognizerConfig
	runner Runner
}

func NewRecognizer(cfg RecognizerConfig, runner Runner) *Recognizer {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Languages == "" {
		cfg.Languages = "fra+eng"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Recognizer{cfg: cfg, runner: runner}
}

// Recognize runs OCR over one image and returns the trimmed text. An empty
// string is a valid result for an image with no legible text.
func (r *Recognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	// tesseract <img> stdout -l <langs>
	out, errb, err := r.runner.Run(ctx, r.cfg.Binary, imagePath, "stdout", "-l", r.cfg.Languages)
	if err != nil {
		if hint := stderrHint(errb); hint != "" {
			return "", fmt.Errorf("%w: %s: %s: %w", ErrRecognitionFailed, filepath.Base(imagePath), hint, err)
		}
		return "", fmt.Errorf("%w: %s: %w", ErrRecognitionFailed, filepath.Base(imagePath), err)
	}
	return strings.TrimSpace(string(out)), nil
}
