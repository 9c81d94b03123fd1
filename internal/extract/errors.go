package extract

import (
	"errors"
	"fmt"

	"docanalyzer/internal/ocr"
)

var (
	// ErrUnsupportedMimeType is returned before any extraction work is attempted.
	ErrUnsupportedMimeType = errors.New("unsupported mime type")
	// ErrExtractionFailed is the umbrella for fatal extraction errors.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrReadFailed means a plain-text source could not be read.
	ErrReadFailed = fmt.Errorf("%w: read failed", ErrExtractionFailed)
	// ErrExtractionTimeout means rasterization or OCR hit its deadline.
	ErrExtractionTimeout = fmt.Errorf("%w: timed out", ErrExtractionFailed)

	ErrRasterizationFailed = ocr.ErrRasterizationFailed
	ErrRecognitionFailed   = ocr.ErrRecognitionFailed
)
