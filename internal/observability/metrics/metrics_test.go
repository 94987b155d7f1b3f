package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/domain"
)

func TestObserveRetrievalCountsOutcomes(t *testing.T) {
	m := New("api")

	m.ObserveRetrieval(domain.CandidateStats{Dense: 10, Sparse: 10, Merged: 14, Returned: 5, DenseFallback: true}, 20*time.Millisecond, nil)
	m.ObserveRetrieval(domain.CandidateStats{}, time.Millisecond, errors.New("embed failed"))

	if got := testutil.ToFloat64(m.retrievalTotal.WithLabelValues("success")); got != 1 {
		t.Fatalf("expected 1 successful retrieval, got %v", got)
	}
	if got := testutil.ToFloat64(m.retrievalTotal.WithLabelValues("error")); got != 1 {
		t.Fatalf("expected 1 failed retrieval, got %v", got)
	}
	if got := testutil.ToFloat64(m.denseFallbackTotal); got != 1 {
		t.Fatalf("expected 1 dense fallback, got %v", got)
	}
}

func TestObserveIngestionOutcomes(t *testing.T) {
	m := New("worker")

	m.ObserveIngestion(domain.IndexReport{Count: 42}, time.Second, nil)
	m.ObserveIngestion(domain.IndexReport{Skipped: true, Count: 42}, time.Millisecond, nil)
	m.ObserveIngestion(domain.IndexReport{}, time.Millisecond, errors.New("upsert failed"))

	for _, outcome := range []string{"indexed", "skipped", "error"} {
		if got := testutil.ToFloat64(m.ingestionTotal.WithLabelValues(outcome)); got != 1 {
			t.Fatalf("expected 1 %s run, got %v", outcome, got)
		}
	}
	if got := testutil.ToFloat64(m.ingestionPassages); got != 42 {
		t.Fatalf("expected indexed passages gauge 42, got %v", got)
	}
}

func TestObserveBreakerTransition(t *testing.T) {
	m := New("api")
	m.ObserveBreakerTransition("ollama.embed", "closed", "open")

	if got := testutil.ToFloat64(m.breakerTransitions.WithLabelValues("ollama.embed", "open")); got != 1 {
		t.Fatalf("expected one transition, got %v", got)
	}
}

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	m := New("api")
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/retrieve", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := m.Middleware(mux)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/retrieve", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if got := testutil.ToFloat64(m.requestTotal.WithLabelValues(http.MethodPost, "/v1/retrieve", "418")); got != 1 {
		t.Fatalf("expected one recorded request, got %v", got)
	}
}

func TestHandlerExposesWorkerMetrics(t *testing.T) {
	m := New("worker")
	w := NewWorkerMetrics(m)
	w.StartRequest()
	w.FinishRequest(time.Second, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `civilrag_worker_ingest_requests_total{service="worker",status="success"} 1`) {
		t.Fatalf("worker counter missing from exposition:\n%s", body)
	}
}
