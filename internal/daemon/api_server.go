package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"clipfit/internal/api"
	"clipfit/internal/config"
	"clipfit/internal/history"
	"clipfit/internal/logging"
	"clipfit/internal/services"
)

const (
	defaultRunLimit = 50
	maxEventWait    = 20 * time.Second
)

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Daemon.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		token:  cfg.Daemon.APIToken,
		logger: logger,
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	router.Use(authMiddleware(s.token))

	m := s.daemon.metrics
	router.Handle("/api/status", m.InstrumentHandler("status", http.HandlerFunc(s.handleStatus))).Methods(http.MethodGet)
	router.Handle("/api/runs", m.InstrumentHandler("runs", http.HandlerFunc(s.handleRuns))).Methods(http.MethodGet)
	router.Handle("/api/runs/{id}", m.InstrumentHandler("run", http.HandlerFunc(s.handleRun))).Methods(http.MethodGet)
	router.Handle("/api/runs/{id}/events", m.InstrumentHandler("run_events", http.HandlerFunc(s.handleEvents))).Methods(http.MethodGet)
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	return router
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, StatusPayload(s.daemon.Status(r.Context())))
}

func (s *apiServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if value := strings.TrimSpace(r.URL.Query().Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	runs, err := s.daemon.Runs(r.Context(), limit)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.RunListResponse{Runs: api.FromRuns(runs)})
}

func (s *apiServer) handleRun(w http.ResponseWriter, r *http.Request) {
	run, attempts, err := s.daemon.Run(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.RunResponse{Run: api.FromRun(*run), Attempts: api.FromAttempts(attempts)})
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var after int64
	if value := strings.TrimSpace(query.Get("after")); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid after")
			return
		}
		after = parsed
	}
	var wait time.Duration
	if value := strings.TrimSpace(query.Get("wait")); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid wait")
			return
		}
		wait = min(parsed, maxEventWait)
	}

	batch, err := s.daemon.Events(r.Context(), mux.Vars(r)["id"], after, wait)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.EventsResponse{
		Events: batch.Envelopes,
		Next:   batch.Next,
		Done:   batch.Done,
		Missed: batch.Missed,
	})
}

// StatusPayload converts a daemon status into its API form.
func StatusPayload(status Status) api.DaemonStatus {
	return api.DaemonStatus{
		Running:       status.Running,
		PID:           status.PID,
		HistoryDBPath: status.HistoryPath,
		LockFilePath:  status.LockFilePath,
		StagingBytes:  status.StagingBytes,
		RunStats:      api.RunStats(status.RunStats),
		Worker:        api.FromWorkerStatus(status.Worker),
		Dependencies:  api.FromDependencies(status.Dependencies),
	}
}

func (s *apiServer) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, history.ErrDisabled):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
