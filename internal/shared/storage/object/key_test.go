package object

import (
	"io"
	"strings"
	"testing"

	"docanalyzer/internal/shared/util"
)

func TestNewKey(t *testing.T) {
	key, err := NewKey("guest:abc", "Relevé bancaire.pdf")
	if err != nil {
		t.Fatalf("new key: %v", err)
	}
	owner, name, ok := strings.Cut(key, "/")
	if !ok || owner != util.OwnerKey("guest:abc") {
		t.Fatalf("unexpected namespace in %q", key)
	}
	if !strings.HasSuffix(name, "_Relevé bancaire.pdf") || len(name) <= len("_Relevé bancaire.pdf")+30 {
		t.Fatalf("unexpected object name %q", name)
	}
	if other, _ := NewKey("guest:abc", "Relevé bancaire.pdf"); other == key {
		t.Fatalf("expected unique keys")
	}
	if _, err := NewKey("guest:abc", "   "); err == nil {
		t.Fatalf("expected error for blank file name")
	}
}

func TestValidKey(t *testing.T) {
	cases := map[string]bool{
		"owner/abc_scan.pdf": true,
		"":                   false,
		"/abs/key":           false,
		"owner/../x":         false,
		"owner//x":           false,
		`owner\x`:            false,
	}
	for key, want := range cases {
		if got := ValidKey(key); got != want {
			t.Fatalf("ValidKey(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestSniffKeepsFullStream(t *testing.T) {
	input := "%PDF-1.7\n" + strings.Repeat("x", 2000)
	mimeType, r, err := Sniff(strings.NewReader(input))
	if err != nil {
		t.Fatalf("sniff: %v", err)
	}
	if mimeType != "application/pdf" {
		t.Fatalf("unexpected mime %q", mimeType)
	}
	body, _ := io.ReadAll(r)
	if string(body) != input {
		t.Fatalf("sniffed reader lost bytes: got %d want %d", len(body), len(input))
	}
}
