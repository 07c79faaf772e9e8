package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"clipfit/internal/bitrate"
	"clipfit/internal/config"
	"clipfit/internal/deps"
	"clipfit/internal/history"
	"clipfit/internal/ladder"
	"clipfit/internal/logging"
	"clipfit/internal/metrics"
	"clipfit/internal/notifications"
	"clipfit/internal/preflight"
	"clipfit/internal/services"
	"clipfit/internal/staging"
	"clipfit/internal/worker"
)

// recentRuns is how many runs keep their event logs in memory.
const recentRuns = 8

// Daemon coordinates the background compression services and enforces
// single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *history.Store
	host      *worker.Host
	metrics   *metrics.Metrics
	notifier  notifications.Service
	notified  *notifications.Recorder
	events    *eventLog
	api       *apiServer
	checkDeps func(context.Context, *config.Config) []deps.Status
	hostOpts  []worker.Option

	lockPath string
	lock     *flock.Flock

	depsMu       sync.Mutex
	dependencies []deps.Status

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	LockFilePath string
	HistoryPath  string
	Worker       worker.Status
	RunStats     map[history.Status]int
	StagingBytes int64
	Dependencies []deps.Status
}

// SubmitRequest describes a file to compress. Settings falls back to the
// configured defaults; a zero target size inherits the configured target.
type SubmitRequest struct {
	Path       string
	Filename   string
	OutputPath string
	Settings   *bitrate.Settings
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithNotifier replaces the ntfy service built from config.
func WithNotifier(svc notifications.Service) Option {
	return func(d *Daemon) {
		if svc != nil {
			d.notifier = svc
		}
	}
}

// WithDependencyCheck replaces the external tool checks run at startup.
func WithDependencyCheck(fn func(context.Context, *config.Config) []deps.Status) Option {
	return func(d *Daemon) {
		if fn != nil {
			d.checkDeps = fn
		}
	}
}

// WithHostOptions appends worker options after those derived from config.
func WithHostOptions(opts ...worker.Option) Option {
	return func(d *Daemon) { d.hostOpts = append(d.hostOpts, opts...) }
}

// New constructs a daemon with initialized dependencies. store may be nil
// when run history is disabled.
func New(cfg *config.Config, store *history.Store, logger *slog.Logger, encoder ladder.Encoder, opts ...Option) (*Daemon, error) {
	if cfg == nil || logger == nil || encoder == nil {
		return nil, errors.New("daemon requires config, logger, and encoder")
	}

	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		metrics:   metrics.New(),
		notifier:  notifications.NewService(cfg),
		events:    newEventLog(cfg.Daemon.EventBuffer, recentRuns),
		checkDeps: preflight.CheckSystemDeps,
		lockPath:  cfg.Daemon.LockPath,
		lock:      flock.New(cfg.Daemon.LockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.notified = notifications.NewRecorder(d.notifier, logger,
		cfg.Notifications.OnSuccess, cfg.Notifications.OnFailure, cfg.NotifyTimeout())

	options := append(worker.ConfigOptions(cfg),
		worker.WithLogger(logger),
		worker.WithRecorder(d.metrics),
		worker.WithRecorder(d.notified),
	)
	if store != nil {
		options = append(options, worker.WithRecorder(history.NewRecorder(store, logger, cfg.History.KeepRuns)))
	}
	options = append(options, d.hostOpts...)
	d.host = worker.NewHost(encoder, cfg.Paths.StagingDir, options...)
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and launches background services.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipfit daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if d.store != nil {
		if n, err := d.store.MarkInterrupted(d.ctx); err != nil {
			d.logger.Warn("failed to mark interrupted runs",
				logging.Error(err),
				logging.String(logging.FieldEventType, "history_recovery_failed"),
				logging.String(logging.FieldErrorHint, "check history database permissions"),
				logging.String(logging.FieldImpact, "stale runs stay listed as running"),
			)
		} else if n > 0 {
			d.logger.Info("marked interrupted runs", logging.Int64("count", n))
		}
	}
	d.refreshDependencies(d.ctx)
	for _, result := range preflight.Failed(preflight.RunAll(d.ctx, d.cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run clipfit doctor for details"),
			logging.String(logging.FieldImpact, "runs may fail until the environment is fixed"),
		)
	}

	if err := d.api.start(d.ctx); err != nil {
		d.cancel()
		_ = d.lock.Unlock()
		d.ctx, d.cancel = nil, nil
		return fmt.Errorf("start api: %w", err)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.runJanitor(d.ctx)
	}()

	d.running.Store(true)
	d.logger.Info("clipfit daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop cancels any active run, stops background services, and releases the
// daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.host.Close()
	d.api.stop()
	d.wg.Wait()
	d.notified.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("clipfit daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Submit starts compressing req. Any active run is cancelled first.
func (d *Daemon) Submit(req SubmitRequest) (string, error) {
	if !d.running.Load() {
		return "", errors.New("daemon not running")
	}
	trimmed := strings.TrimSpace(req.Path)
	if trimmed == "" {
		return "", services.Wrap(services.ErrValidation, "daemon", "submit", "source path is required", nil)
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", services.Wrap(services.ErrInput, "daemon", "submit", "Could not read video file", err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrInput, "daemon", "submit", fmt.Sprintf("source path %q is a directory", absPath), nil)
	}

	settings, err := d.settingsFor(req.Settings)
	if err != nil {
		return "", err
	}
	cmd := worker.StartCommand{
		Path:       absPath,
		Filename:   strings.TrimSpace(req.Filename),
		OutputPath: strings.TrimSpace(req.OutputPath),
		Settings:   settings,
	}
	reply, err := d.host.Dispatch(d.ctx, cmd)
	if err != nil {
		return "", err
	}
	id, ch := reply.RunID, reply.Messages
	d.events.open(id)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for msg := range ch {
			d.events.append(id, msg)
		}
		d.events.finish(id)
	}()

	d.logger.Info("run submitted",
		logging.String(logging.FieldRunID, id),
		logging.String("source", absPath),
		logging.String("target", bitrate.FormatBytes(settings.TargetSizeBytes)),
	)
	return id, nil
}

func (d *Daemon) settingsFor(override *bitrate.Settings) (bitrate.Settings, error) {
	defaults, err := d.cfg.Settings()
	if err != nil {
		return bitrate.Settings{}, services.Wrap(services.ErrConfiguration, "daemon", "submit", "invalid configured target size", err)
	}
	if override == nil {
		return defaults, nil
	}
	settings := *override
	if settings.TargetSizeBytes == 0 {
		settings.TargetSizeBytes = defaults.TargetSizeBytes
	}
	return settings.WithDefaults(), nil
}

// Cancel stops the active run. It reports whether a run was active.
func (d *Daemon) Cancel() bool {
	reply, err := d.host.Dispatch(d.ctx, worker.CancelCommand{})
	if err != nil {
		d.logger.Warn("run cancel failed", logging.Error(err))
		return false
	}
	cancelled := reply.Cancelled
	if cancelled {
		d.logger.Info("run cancel requested", logging.String(logging.FieldRunID, d.host.Status().RunID))
	}
	return cancelled
}

// Events returns the envelopes of run id after sequence number after,
// waiting up to wait for new ones.
func (d *Daemon) Events(ctx context.Context, id string, after int64, wait time.Duration) (EventBatch, error) {
	return d.events.since(ctx, id, after, wait)
}

// Runs lists recent runs, newest first.
func (d *Daemon) Runs(ctx context.Context, limit int) ([]history.Run, error) {
	if d.store == nil {
		return nil, history.ErrDisabled
	}
	return d.store.List(ctx, limit)
}

// Run returns the run whose ID starts with prefix, and its attempts.
func (d *Daemon) Run(ctx context.Context, prefix string) (*history.Run, []history.AttemptRecord, error) {
	if d.store == nil {
		return nil, nil, history.ErrDisabled
	}
	run, err := d.store.FindByPrefix(ctx, prefix)
	if err != nil {
		return nil, nil, err
	}
	attempts, err := d.store.Attempts(ctx, run.ID)
	if err != nil {
		return nil, nil, err
	}
	return run, attempts, nil
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Metrics returns the daemon's metrics registry wrapper.
func (d *Daemon) Metrics() *metrics.Metrics {
	return d.metrics
}

// APIAddress returns the HTTP API listen address, or "" when disabled.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		Worker:       d.host.Status(),
		Dependencies: d.dependencySnapshot(),
	}
	if d.store != nil {
		status.HistoryPath = d.store.Path()
		stats, err := d.store.Stats(ctx)
		if err != nil {
			d.logger.Warn("run stats unavailable", logging.Error(err))
		}
		status.RunStats = stats
	}
	if dirs, err := staging.ListDirectories(d.cfg.Paths.StagingDir); err == nil {
		status.StagingBytes = staging.TotalSize(dirs)
	}
	return status
}

func (d *Daemon) refreshDependencies(ctx context.Context) {
	statuses := d.checkDeps(ctx, d.cfg)
	for _, missing := range deps.Missing(statuses) {
		logging.WarnWithContext(d.logger, "dependency unavailable", "dependency_missing",
			logging.String("dependency", missing.Name),
			logging.String("command", missing.Command),
			logging.String("detail", missing.Detail),
			logging.String(logging.FieldErrorHint, "install ffmpeg with libx264 or set ffmpeg.ffmpeg_binary"),
			logging.String(logging.FieldImpact, "submitted runs will fail"),
		)
	}
	d.depsMu.Lock()
	d.dependencies = statuses
	d.depsMu.Unlock()
}

func (d *Daemon) dependencySnapshot() []deps.Status {
	d.depsMu.Lock()
	defer d.depsMu.Unlock()
	return append([]deps.Status(nil), d.dependencies...)
}
