package metrics

import (
	"strings"
	"testing"
)

func TestHistogramCumulativeBuckets(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 {
		t.Fatalf("expected count 3, got %d", snap.count)
	}
	if snap.counts[0] != 1 || snap.counts[1] != 1 {
		t.Fatalf("unexpected bucket counts %v", snap.counts)
	}
}

func TestRenderIncludesFailureReasons(t *testing.T) {
	IncSubmissionStarted()
	IncSubmissionFailed("conversion_failed")
	IncSubmissionFailed("")

	out := Render()
	for _, want := range []string{
		"resume_submissions_started_total",
		`resume_submissions_failed_total{reason="conversion_failed"}`,
		`resume_submissions_failed_total{reason="unknown"}`,
		`resume_submission_duration_ms_bucket{le="+Inf"}`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
