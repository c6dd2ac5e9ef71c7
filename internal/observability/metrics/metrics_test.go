package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func TestRecordLLMRequest(t *testing.T) {
	m := newTestMetrics()

	m.RecordLLMRequest("gemini", "facts", nil, 1.5)
	m.RecordLLMRequest("gemini", "facts", errors.New("boom"), 0.2)

	if got := testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("gemini", "facts")); got != 2 {
		t.Errorf("expected 2 requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.LLMErrors.WithLabelValues("gemini", "facts")); got != 1 {
		t.Errorf("expected 1 error, got %v", got)
	}
}

func TestRecordUpload(t *testing.T) {
	m := newTestMetrics()

	m.RecordUpload("accepted", 1024)
	m.RecordUpload("missing_audio", 0)

	if got := testutil.ToFloat64(m.UploadsTotal.WithLabelValues("accepted")); got != 1 {
		t.Errorf("expected 1 accepted upload, got %v", got)
	}
	if got := testutil.ToFloat64(m.UploadsTotal.WithLabelValues("missing_audio")); got != 1 {
		t.Errorf("expected 1 missing_audio upload, got %v", got)
	}
}

func TestRecordTranscription_EmptyFailureIsNone(t *testing.T) {
	m := newTestMetrics()

	m.RecordTranscription("")
	m.RecordTranscription("provider")

	if got := testutil.ToFloat64(m.TranscriptionsTotal.WithLabelValues("none")); got != 1 {
		t.Errorf("expected 1 successful transcription, got %v", got)
	}
	if got := testutil.ToFloat64(m.TranscriptionsTotal.WithLabelValues("provider")); got != 1 {
		t.Errorf("expected 1 provider failure, got %v", got)
	}
}

func TestRecordReport(t *testing.T) {
	m := newTestMetrics()

	m.RecordReport("partial", 3)
	m.RecordReport("complete", 2)

	if got := testutil.ToFloat64(m.FactsExtracted); got != 5 {
		t.Errorf("expected 5 facts, got %v", got)
	}
	if got := testutil.ToFloat64(m.ReportsTotal.WithLabelValues("partial")); got != 1 {
		t.Errorf("expected 1 partial report, got %v", got)
	}
}

func TestSessionGauge(t *testing.T) {
	m := newTestMetrics()

	m.SetSessionsActive(4)
	m.SetSessionsActive(2)
	m.RecordSessionsEvicted(2)

	if got := testutil.ToFloat64(m.SessionsActive); got != 2 {
		t.Errorf("expected 2 active sessions, got %v", got)
	}
	if got := testutil.ToFloat64(m.SessionsEvicted); got != 2 {
		t.Errorf("expected 2 evicted sessions, got %v", got)
	}
}
