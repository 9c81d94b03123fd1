package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRasterizeReturnsPagesInOrder(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "scan.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatalf("write pdf: %v", err)
	}

	runner := &fakeRunner{pages: 12}
	r := NewRasterizer(RasterizerConfig{ConverterPath: "/opt/poppler/pdftocairo", DPI: 300}, runner)

	pages, err := r.Rasterize(context.Background(), pdfPath, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 12 {
		t.Fatalf("expected 12 pages, got %d", len(pages))
	}
	for i, p := range pages {
		if filepath.Dir(p) != dir {
			t.Fatalf("page %d written outside source dir: %s", i, p)
		}
		if !strings.HasPrefix(filepath.Base(p), "temp_") {
			t.Fatalf("unexpected page name: %s", p)
		}
	}
	if !strings.HasSuffix(pages[1], "-02.png") || !strings.HasSuffix(pages[11], "-12.png") {
		t.Fatalf("pages out of order: %v", pages)
	}

	c := runner.calls[0]
	if c.name != "/opt/poppler/pdftocairo" {
		t.Fatalf("unexpected converter: %s", c.name)
	}
	if strings.Join(c.args[:3], " ") != "-png -r 300" {
		t.Fatalf("unexpected args: %v", c.args)
	}
}

func TestRasterizeUniquePrefixPerCall(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "a.pdf")
	r := NewRasterizer(RasterizerConfig{}, &fakeRunner{pages: 1})

	first, err := r.Rasterize(context.Background(), pdfPath, dir)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := r.Rasterize(context.Background(), pdfPath, dir)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if len(first) != 1 || len(second) != 1 || first[0] == second[0] {
		t.Fatalf("expected distinct images, got %v and %v", first, second)
	}
}

func TestRasterizeUniquePrefixWithFrozenClock(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{pages: 1}
	r := NewRasterizer(RasterizerConfig{}, runner)
	frozen := time.Unix(1700000000, 0)
	r.now = func() time.Time { return frozen }

	for i := 0; i < 2; i++ {
		if _, err := r.Rasterize(context.Background(), filepath.Join(dir, "a.pdf"), dir); err != nil {
			t.Fatalf("rasterize %d: %v", i, err)
		}
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected 2 converter calls, got %d", len(runner.calls))
	}
	first := filepath.Base(runner.calls[0].args[len(runner.calls[0].args)-1])
	second := filepath.Base(runner.calls[1].args[len(runner.calls[1].args)-1])
	if first == second {
		t.Fatalf("expected distinct prefixes at the same instant, got %q twice", first)
	}
	for _, prefix := range []string{first, second} {
		if !strings.HasPrefix(prefix, "temp_1700000000000000000_") {
			t.Fatalf("unexpected prefix %q", prefix)
		}
	}
}

func TestRasterizeNoImages(t *testing.T) {
	dir := t.TempDir()
	r := NewRasterizer(RasterizerConfig{}, &fakeRunner{})

	_, err := r.Rasterize(context.Background(), filepath.Join(dir, "empty.pdf"), "")
	if !errors.Is(err, ErrRasterizationFailed) || !errors.Is(err, ErrNoImages) {
		t.Fatalf("expected rasterization failure with no images, got %v", err)
	}
}

func TestRasterizeConverterFailureRemovesPartialOutput(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{pages: 2, err: errors.New("exit status 1"), stderr: "Syntax Error: Couldn't read xref table"}
	r := NewRasterizer(RasterizerConfig{}, runner)

	_, err := r.Rasterize(context.Background(), filepath.Join(dir, "broken.pdf"), "")
	if !errors.Is(err, ErrRasterizationFailed) {
		t.Fatalf("expected ErrRasterizationFailed, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected partial images removed, found %d files", len(entries))
	}
}

func TestRasterizeSettleDelayHonoursContext(t *testing.T) {
	dir := t.TempDir()
	r := NewRasterizer(RasterizerConfig{SettleDelay: time.Minute}, &fakeRunner{pages: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Rasterize(ctx, filepath.Join(dir, "slow.pdf"), "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
