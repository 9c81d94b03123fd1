package main

import (
	"bytes"
	"strings"
	"testing"

	"docanalyzer/internal/extract"
)

func TestDetectMime(t *testing.T) {
	cases := []struct {
		flag    string
		path    string
		want    string
		wantErr bool
	}{
		{"", "scan.PDF", "application/pdf", false},
		{"", "note.txt", "text/plain", false},
		{"", "photo.png", "image/png", false},
		{"text/plain; charset=utf-8", "whatever.bin", "text/plain", false},
		{"application/zip", "a.zip", "", true},
		{"", "archive.zip", "", true},
	}
	for _, tc := range cases {
		got, err := detectMime(tc.flag, tc.path)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q %q: expected error", tc.flag, tc.path)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%q %q: expected %q, got %q (%v)", tc.flag, tc.path, tc.want, got, err)
		}
	}
}

func TestStderrProgress(t *testing.T) {
	var buf bytes.Buffer
	progress := stderrProgress(&buf)
	progress(extract.Event{Stage: extract.StagePage, Strategy: extract.StrategyPDFOCR, Page: 2, Pages: 5, Chars: 120})

	line := buf.String()
	for _, want := range []string{"[page_recognized]", "strategy=pdf-ocr", "page=2/5", "chars=120"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}
