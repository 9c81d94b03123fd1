package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// TextLayerOutcome classifies an attempt to read a PDF's embedded text.
type TextLayerOutcome string

const (
	TextLayerOK         TextLayerOutcome = "ok"
	TextLayerEmpty      TextLayerOutcome = "empty"
	TextLayerUnreadable TextLayerOutcome = "unreadable"
)

// TextLayerResult is the outcome of reading a PDF text layer. Unreadable is not
// an error for callers: it carries its cause and is treated like no text.
type TextLayerResult struct {
	Text    string
	Pages   int
	Outcome TextLayerOutcome
	Cause   error
}

// Chars counts runes of the trimmed text.
func (r TextLayerResult) Chars() int {
	return utf8.RuneCountInString(r.Text)
}

// Sufficient reports whether the text layer can be used without OCR.
func (r TextLayerResult) Sufficient() bool {
	return r.Outcome == TextLayerOK && r.Chars() >= MinTextLayerChars
}

// PDFTextReader reads embedded text with github.com/ledongthuc/pdf.
type PDFTextReader struct{}

func (PDFTextReader) ReadTextLayer(ctx context.Context, pdfPath string) (res TextLayerResult) {
	if err := ctx.Err(); err != nil {
		return TextLayerResult{Outcome: TextLayerUnreadable, Cause: err}
	}
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			res = TextLayerResult{Outcome: TextLayerUnreadable, Cause: fmt.Errorf("pdf parser panic: %v", r)}
		}
	}()

	f, reader, err := pdf.Open(pdfPath)
	if err != nil {
		return TextLayerResult{Outcome: TextLayerUnreadable, Cause: err}
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return TextLayerResult{Pages: reader.NumPage(), Outcome: TextLayerUnreadable, Cause: err}
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return TextLayerResult{Pages: reader.NumPage(), Outcome: TextLayerUnreadable, Cause: err}
	}

	text := strings.TrimSpace(buf.String())
	outcome := TextLayerOK
	if text == "" {
		outcome = TextLayerEmpty
	}
	return TextLayerResult{Text: text, Pages: reader.NumPage(), Outcome: outcome}
}
