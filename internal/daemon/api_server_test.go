package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clipfit/internal/history"
	"clipfit/internal/ladder"
	"clipfit/internal/metrics"
	"clipfit/internal/services"
	"clipfit/internal/worker"
)

func newRouteTestServer(token string) *apiServer {
	return &apiServer{token: token, daemon: &Daemon{metrics: metrics.New()}}
}

func TestAPIServerRejectsBadQueries(t *testing.T) {
	handler := newRouteTestServer("").routes()

	tests := []struct {
		name string
		path string
		want int
	}{
		{"non-numeric limit", "/api/runs?limit=abc", http.StatusBadRequest},
		{"zero limit", "/api/runs?limit=0", http.StatusBadRequest},
		{"negative after", "/api/runs/abc/events?after=-1", http.StatusBadRequest},
		{"bad wait", "/api/runs/abc/events?wait=soon", http.StatusBadRequest},
		{"unknown route", "/api/queue", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != tt.want {
				t.Fatalf("GET %s = %d, want %d", tt.path, w.Code, tt.want)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["error"] == "" {
				t.Fatalf("expected JSON error body, got %q", w.Body.String())
			}
		})
	}
}

func TestAPIServerMethodNotAllowed(t *testing.T) {
	handler := newRouteTestServer("").routes()
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/status", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /api/status = %d, want 405", w.Code)
	}
}

func TestAPIServerMetricsRequireToken(t *testing.T) {
	handler := newRouteTestServer("secret").routes()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated /metrics = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("authenticated /metrics = %d, want 200", w.Code)
	}
}

func TestWriteStoreErrorStatusCodes(t *testing.T) {
	srv := newRouteTestServer("")
	tests := []struct {
		err  error
		want int
	}{
		{history.ErrDisabled, http.StatusServiceUnavailable},
		{services.Wrap(services.ErrNotFound, "history", "find", "run not found", nil), http.StatusNotFound},
		{fmt.Errorf("lookup: %w", services.ErrValidation), http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		srv.writeStoreError(w, tt.err)
		if w.Code != tt.want {
			t.Fatalf("writeStoreError(%v) = %d, want %d", tt.err, w.Code, tt.want)
		}
		if !strings.Contains(w.Header().Get("Content-Type"), "application/json") {
			t.Fatalf("expected JSON content type, got %q", w.Header().Get("Content-Type"))
		}
	}
}

func TestStatusPayload(t *testing.T) {
	payload := StatusPayload(Status{
		Running:  true,
		PID:      99,
		RunStats: map[history.Status]int{history.StatusComplete: 3},
		Worker:   worker.Status{Active: true, Stage: ladder.StageEncoding, Percent: 40},
	})
	if !payload.Running || payload.PID != 99 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.RunStats[string(history.StatusComplete)] != 3 {
		t.Fatalf("unexpected run stats %+v", payload.RunStats)
	}
	if payload.Worker.Stage != string(ladder.StageEncoding) || payload.Worker.StageLabel != ladder.StageEncoding.Label() {
		t.Fatalf("unexpected worker %+v", payload.Worker)
	}
	idle := StatusPayload(Status{})
	if idle.Worker.Stage != string(ladder.StageIdle) {
		t.Fatalf("expected idle worker stage, got %q", idle.Worker.Stage)
	}
}
