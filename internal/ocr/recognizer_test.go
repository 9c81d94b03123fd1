package ocr

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRecognizeTrimsOutput(t *testing.T) {
	runner := &fakeRunner{stdout: "\n  Bonjour le monde \n\f"}
	r := NewRecognizer(RecognizerConfig{Binary: "tesseract", Languages: "fra+eng"}, runner)

	got, err := r.Recognize(context.Background(), "/tmp/page-1.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Bonjour le monde" {
		t.Fatalf("unexpected text: %q", got)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(runner.calls))
	}
	args := strings.Join(runner.calls[0].args, " ")
	if args != "/tmp/page-1.png stdout -l fra+eng" {
		t.Fatalf("unexpected args: %q", args)
	}
}

func TestRecognizeEmptyIsNotAnError(t *testing.T) {
	r := NewRecognizer(RecognizerConfig{}, &fakeRunner{stdout: "   \n"})
	got, err := r.Recognize(context.Background(), "blank.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestRecognizeEngineFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exit status 1"), stderr: "Error opening data file fra.traineddata\nmore"}
	r := NewRecognizer(RecognizerConfig{}, runner)

	_, err := r.Recognize(context.Background(), "/data/scan.png")
	if !errors.Is(err, ErrRecognitionFailed) {
		t.Fatalf("expected ErrRecognitionFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "fra.traineddata") {
		t.Fatalf("expected stderr hint in error, got %v", err)
	}
}
