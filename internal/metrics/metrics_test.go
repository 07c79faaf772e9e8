package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clipfit/internal/ladder"
	"clipfit/internal/services"
	"clipfit/internal/worker"
)

// sample returns the counter, gauge, or histogram-count value of the metric
// named name whose labels include every pair in labels.
func sample(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			matched := 0
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want == pair.GetValue() {
					matched++
				}
			}
			if matched != len(labels) {
				continue
			}
			switch {
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				return float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestRecorderTracksRunLifecycle(t *testing.T) {
	m := New()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	m.RunStarted(ctx, worker.RunInfo{ID: "ok", Started: start})
	m.RunStarted(ctx, worker.RunInfo{ID: "bad", Started: start})
	if got := sample(t, m, "clipfit_runs_active", nil); got != 2 {
		t.Fatalf("runs_active = %v, want 2", got)
	}

	m.AttemptFinished(ctx, "ok", ladder.Attempt{Index: 1, Elapsed: 2 * time.Second, Decision: ladder.DecisionReduceBitrate})
	m.AttemptFinished(ctx, "ok", ladder.Attempt{Index: 2, Elapsed: time.Second, Decision: ladder.DecisionAccepted})
	m.RunFinished(ctx, "ok", worker.Outcome{
		Status:   ladder.StageComplete,
		Result:   &ladder.Result{OriginalSize: 100, OutputSize: 40, Attempts: 2},
		Finished: start.Add(time.Minute),
	})
	m.RunFinished(ctx, "bad", worker.Outcome{
		Status:   ladder.StageError,
		Error:    &worker.ErrorMessage{FailureKind: services.KindConvergence},
		Finished: start.Add(time.Minute),
	})

	checks := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"clipfit_runs_started_total", nil, 2},
		{"clipfit_runs_active", nil, 0},
		{"clipfit_runs_finished_total", map[string]string{"status": "complete", "kind": "none"}, 1},
		{"clipfit_runs_finished_total", map[string]string{"status": "error", "kind": "convergence"}, 1},
		{"clipfit_attempts_total", map[string]string{"decision": "accepted"}, 1},
		{"clipfit_attempts_total", map[string]string{"decision": "reduce_bitrate"}, 1},
		{"clipfit_attempt_duration_seconds", nil, 2},
		{"clipfit_run_duration_seconds", nil, 2},
		{"clipfit_attempts_per_run", nil, 1},
		{"clipfit_output_bytes_total", nil, 40},
	}
	for _, c := range checks {
		if got := sample(t, m, c.name, c.labels); got != c.want {
			t.Errorf("%s%v = %v, want %v", c.name, c.labels, got, c.want)
		}
	}
}

func TestRunFinishedWithoutStartDoesNotUnderflow(t *testing.T) {
	m := New()
	m.RunFinished(context.Background(), "ghost", worker.Outcome{Status: ladder.StageCancelled})
	if got := sample(t, m, "clipfit_runs_active", nil); got != 0 {
		t.Fatalf("runs_active = %v, want 0", got)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	m := New()
	api := m.InstrumentHandler("/api/status", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	api.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if got := sample(t, m, "clipfit_http_requests_total", map[string]string{"route": "/api/status", "status": "418"}); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "clipfit_runs_started_total") {
		t.Fatalf("exposition missing clipfit metrics:\n%s", body)
	}
}
