package main

// Extract text from a local file with the same pipeline the workers use:
//   go run ./cmd/extract -mime application/pdf scan.pdf

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"docanalyzer/internal/extract"
	"docanalyzer/internal/ocr"
	"docanalyzer/internal/shared/config"
)

func main() {
	mimeType := flag.String("mime", "", "MIME type of the file (defaults to the extension's type)")
	quiet := flag.Bool("q", false, "do not print progress to stderr")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-mime type] [-q] <file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	mt, err := detectMime(*mimeType, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var progress extract.ProgressFunc = func(extract.Event) {}
	if !*quiet {
		progress = stderrProgress(os.Stderr)
	}
	orch := newOrchestrator(cfg, progress)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ProcessTimeout)
		defer cancel()
	}

	text, err := orch.Extract(ctx, path, mt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(text)
}

func newOrchestrator(cfg config.Config, progress extract.ProgressFunc) *extract.Orchestrator {
	runner := ocr.ExecRunner{}
	return extract.NewOrchestrator(
		extract.PDFTextReader{},
		ocr.NewRasterizer(ocr.RasterizerConfig{
			ConverterPath: cfg.ConverterPath,
			DPI:           cfg.RasterizeDPI,
			SettleDelay:   cfg.RasterizeSettleDelay,
		}, runner),
		ocr.NewRecognizer(ocr.RecognizerConfig{Binary: cfg.TesseractPath, Languages: cfg.OCRLanguages}, runner),
		extract.Options{
			RasterizeTimeout: cfg.RasterizeTimeout,
			OCRTimeout:       cfg.OCRTimeout,
			Progress:         progress,
		},
	)
}

func detectMime(flagValue, path string) (string, error) {
	if mt := extract.NormalizeMimeType(flagValue); mt != "" {
		if !extract.IsSupported(mt) {
			return "", fmt.Errorf("unsupported MIME type %q", mt)
		}
		return mt, nil
	}
	mt := extract.MimeTypeForFile(path)
	if mt == "" || !extract.IsSupported(mt) {
		return "", fmt.Errorf("cannot infer a supported MIME type for %q; pass -mime", path)
	}
	return mt, nil
}

func stderrProgress(w io.Writer) extract.ProgressFunc {
	return func(ev extract.Event) {
		line := "[" + string(ev.Stage) + "]"
		if ev.Strategy != "" {
			line += " strategy=" + ev.Strategy
		}
		if ev.Pages > 0 {
			line += fmt.Sprintf(" page=%d/%d", ev.Page, ev.Pages)
		}
		if ev.Chars > 0 {
			line += fmt.Sprintf(" chars=%d", ev.Chars)
		}
		if ev.Detail != "" {
			line += " " + ev.Detail
		}
		fmt.Fprintln(w, line)
	}
}
