package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	processStartedTotal   atomic.Uint64
	processCompletedTotal atomic.Uint64
	processFailedTotal    atomic.Uint64
	ocrPagesTotal         atomic.Uint64
	workerJobsTotal       atomic.Uint64
	workerJobsFailedTotal atomic.Uint64

	processDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})

	strategyMu     sync.Mutex
	strategyCounts = map[string]uint64{}
)

// IncProcessStarted increments the started counter.
func IncProcessStarted() {
	processStartedTotal.Add(1)
}

// IncProcessCompleted increments the completed counter.
func IncProcessCompleted() {
	processCompletedTotal.Add(1)
}

// IncProcessFailed increments the failed counter.
func IncProcessFailed() {
	processFailedTotal.Add(1)
}

// ObserveProcessDurationMs records a processing duration in milliseconds.
func ObserveProcessDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	processDuration.Observe(value)
}

// IncExtraction counts a finished extraction by strategy (pdf-text, pdf-ocr, ...).
func IncExtraction(strategy string) {
	strategyMu.Lock()
	strategyCounts[strategy]++
	strategyMu.Unlock()
}

// AddOCRPages counts pages sent through OCR.
func AddOCRPages(n int) {
	if n > 0 {
		ocrPagesTotal.Add(uint64(n))
	}
}

// IncWorkerJob counts a queue message handled by a worker; failed marks it as not acknowledged.
func IncWorkerJob(failed bool) {
	workerJobsTotal.Add(1)
	if failed {
		workerJobsFailedTotal.Add(1)
	}
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "process_started_total", "Total document processing runs started", processStartedTotal.Load())
	writeCounter(&buf, "process_completed_total", "Total document processing runs completed", processCompletedTotal.Load())
	writeCounter(&buf, "process_failed_total", "Total document processing runs failed", processFailedTotal.Load())
	writeHistogram(&buf, "process_duration_ms", "Document processing duration in milliseconds", processDuration.Snapshot())
	writeLabeledCounter(&buf, "extract_total", "Extractions by strategy", "strategy", snapshotStrategies())
	writeCounter(&buf, "ocr_pages_total", "Pages sent through OCR", ocrPagesTotal.Load())
	writeCounter(&buf, "worker_jobs_total", "Queue messages handled", workerJobsTotal.Load())
	writeCounter(&buf, "worker_jobs_failed_total", "Queue messages left for redelivery", workerJobsFailedTotal.Load())
	return buf.String()
}

func snapshotStrategies() map[string]uint64 {
	strategyMu.Lock()
	defer strategyMu.Unlock()
	out := make(map[string]uint64, len(strategyCounts))
	for k, v := range strategyCounts {
		out[k] = v
	}
	return out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
