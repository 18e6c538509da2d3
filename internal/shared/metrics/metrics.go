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
	submissionStartedTotal   atomic.Uint64
	submissionCompletedTotal atomic.Uint64

	failedMu           sync.Mutex
	submissionFailures = map[string]uint64{}

	submissionDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncSubmissionStarted increments the started counter.
func IncSubmissionStarted() {
	submissionStartedTotal.Add(1)
}

// IncSubmissionCompleted increments the completed counter.
func IncSubmissionCompleted() {
	submissionCompletedTotal.Add(1)
}

// IncSubmissionFailed increments the failure counter for the given reason.
func IncSubmissionFailed(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	failedMu.Lock()
	submissionFailures[reason]++
	failedMu.Unlock()
}

// ObserveSubmissionDurationMs records a submission duration in milliseconds.
func ObserveSubmissionDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	submissionDuration.Observe(value)
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
	writeCounter(&buf, "resume_submissions_started_total", "Total resume submissions started", submissionStartedTotal.Load())
	writeCounter(&buf, "resume_submissions_completed_total", "Total resume submissions completed", submissionCompletedTotal.Load())
	writeLabeledCounter(&buf, "resume_submissions_failed_total", "Total resume submissions failed by reason", "reason", failureSnapshot())
	writeHistogram(&buf, "resume_submission_duration_ms", "Submission duration in milliseconds", submissionDuration.Snapshot())
	return buf.String()
}

func failureSnapshot() map[string]uint64 {
	failedMu.Lock()
	defer failedMu.Unlock()
	out := make(map[string]uint64, len(submissionFailures))
	for k, v := range submissionFailures {
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

// Observe places the value in the first bucket whose bound covers it.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
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

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
