package ocr

import "errors"

var (
	// ErrRasterizationFailed means the PDF converter failed or produced no page images.
	ErrRasterizationFailed = errors.New("rasterization failed")
	// ErrRecognitionFailed means the OCR engine could not process an image.
	ErrRecognitionFailed = errors.New("text recognition failed")
	// ErrNoImages is returned when the converter exits cleanly but writes nothing.
	ErrNoImages = errors.New("no page images generated")
)
