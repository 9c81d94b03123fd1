package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RasterizerConfig configures PDF to PNG conversion.
type RasterizerConfig struct {
	ConverterPath string        // pdftocairo binary name or absolute path
	DPI           int           // render resolution, default 300
	SettleDelay   time.Duration // wait after the converter exits before listing outputs
}

// Rasterizer renders every page of a PDF to a PNG file.
type Rasterizer struct {
	cfg    RasterizerConfig
	runner Runner
	now    func() time.Time
}

func NewRasterizer(cfg RasterizerConfig, runner Runner) *Rasterizer {
	if cfg.ConverterPath == "" {
		cfg.ConverterPath = "pdftocairo"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Rasterizer{cfg: cfg, runner: runner, now: time.Now}
}

// Rasterize writes one PNG per page into outputDir (the PDF's directory when empty)
// under a prefix unique to this call, and returns the image paths in page order.
// The caller owns the returned files.
func (r *Rasterizer) Rasterize(ctx context.Context, pdfPath, outputDir string) ([]string, error) {
	if outputDir == "" {
		outputDir = filepath.Dir(pdfPath)
	}
	prefix := r.uniquePrefix()
	base := filepath.Join(outputDir, prefix)

	// pdftocairo -png -r 300 <in.pdf> <dir/temp_x>
	_, errb, err := r.runner.Run(ctx, r.cfg.ConverterPath, "-png", "-r", strconv.Itoa(r.cfg.DPI), pdfPath, base)
	if err != nil {
		removeAll(listPages(outputDir, prefix))
		if hint := stderrHint(errb); hint != "" {
			return nil, fmt.Errorf("%w: %s: %w", ErrRasterizationFailed, hint, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrRasterizationFailed, err)
	}

	if r.cfg.SettleDelay > 0 {
		t := time.NewTimer(r.cfg.SettleDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			removeAll(listPages(outputDir, prefix))
			return nil, fmt.Errorf("%w: %w", ErrRasterizationFailed, ctx.Err())
		case <-t.C:
		}
	}

	pages := listPages(outputDir, prefix)
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrRasterizationFailed, ErrNoImages)
	}
	return pages, nil
}

func (r *Rasterizer) uniquePrefix() string {
	return fmt.Sprintf("temp_%d_%s", r.now().UnixNano(), uuid.NewString())
}

type pageFile struct {
	path string
	num  int
}

// listPages finds <prefix>-<n>.png files in dir, ordered by page number.
// pdftocairo zero-pads the page suffix, so numeric order is used instead of
// trusting lexical order.
func listPages(dir, prefix string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []pageFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(strings.ToLower(name), ".png") {
			continue
		}
		suffix := strings.TrimSuffix(strings.TrimPrefix(name, prefix+"-"), filepath.Ext(name))
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		files = append(files, pageFile{path: filepath.Join(dir, name), num: n})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].num < files[j].num })

	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.path)
	}
	return out
}

func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
