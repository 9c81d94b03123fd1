package metrics

import (
	"strings"
	"testing"
)

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	var cumulative uint64
	for i := range snap.buckets {
		cumulative += snap.counts[i]
	}
	if cumulative != 2 {
		t.Fatalf("expected 2 observations within bounds, got %d", cumulative)
	}
	if snap.count != 3 {
		t.Fatalf("expected count 3, got %d", snap.count)
	}
}

func TestRenderIncludesStrategies(t *testing.T) {
	IncExtraction("pdf-ocr")
	IncExtraction("pdf-ocr")
	IncExtraction("plaintext")
	AddOCRPages(5)

	out := Render()
	if !strings.Contains(out, `extract_total{strategy="pdf-ocr"}`) {
		t.Fatalf("missing strategy counter:\n%s", out)
	}
	if !strings.Contains(out, "# TYPE process_duration_ms histogram") {
		t.Fatalf("missing histogram:\n%s", out)
	}
	if !strings.Contains(out, "ocr_pages_total") {
		t.Fatalf("missing ocr pages counter:\n%s", out)
	}
}
