package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRequestMiddleware_counts_errors(t *testing.T) {
	m := New()
	ok := RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	notFound := RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	notFound.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := testutil.ToFloat64(m.requestsTotal); got != 2 {
		t.Errorf("expected 2 requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.errorsTotal); got != 1 {
		t.Errorf("expected 1 error, got %v", got)
	}
}

func TestRequestMiddleware_labels_route_pattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(RequestMiddleware(m))
	r.Get("/sessions/{session_id}", func(w http.ResponseWriter, r *http.Request) {})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/"+id, nil))
	}

	if n := testutil.CollectAndCount(m.requestDuration); n != 1 {
		t.Errorf("expected one route series, got %d", n)
	}
	if got := testutil.ToFloat64(m.requestsTotal); got != 3 {
		t.Errorf("expected 3 requests, got %v", got)
	}
}

func TestRecordingCounters(t *testing.T) {
	m := New()
	m.IncFramesRendered()
	m.IncFramesRendered()
	m.AddCapture(75, 3)
	m.ObserveRecording(1024)
	m.IncRecordingsFailed()
	m.IncDownloads()

	if got := testutil.ToFloat64(m.framesRendered); got != 2 {
		t.Errorf("frames rendered = %v", got)
	}
	if got := testutil.ToFloat64(m.framesCaptured); got != 75 {
		t.Errorf("frames captured = %v", got)
	}
	if got := testutil.ToFloat64(m.framesDropped); got != 3 {
		t.Errorf("frames dropped = %v", got)
	}
	if got := testutil.ToFloat64(m.recordingsCompleted); got != 1 {
		t.Errorf("recordings completed = %v", got)
	}
	if got := testutil.ToFloat64(m.downloadsTotal); got != 1 {
		t.Errorf("downloads = %v", got)
	}
}

func TestHandler_refreshes_gauges(t *testing.T) {
	m := New()
	called := false
	h := m.Handler(func() {
		called = true
		m.SetLiveSessions(3)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !called {
		t.Fatal("updateGauges was not called")
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "noise_live_sessions 3") {
		t.Errorf("expected gauge in output, got:\n%s", body)
	}
}
