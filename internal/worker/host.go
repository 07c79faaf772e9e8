package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipfit/internal/bitrate"
	"clipfit/internal/encoding"
	"clipfit/internal/fileutil"
	"clipfit/internal/ladder"
	"clipfit/internal/logging"
	"clipfit/internal/media"
	"clipfit/internal/media/audio"
	"clipfit/internal/media/ffprobe"
	"clipfit/internal/services"
	"clipfit/internal/staging"
	"clipfit/internal/textutil"
)

const minBuffer = 512

// Status is a snapshot of the active or most recent run.
type Status struct {
	RunID    string       `json:"run_id"`
	Filename string       `json:"filename"`
	Active   bool         `json:"active"`
	Stage    ladder.Stage `json:"stage"`
	Percent  float64      `json:"percent"`
	Attempt  int          `json:"attempt"`
	Message  string       `json:"message,omitempty"`
	Started  time.Time    `json:"started"`
}

// Host runs one compression at a time.
type Host struct {
	encoder      ladder.Encoder
	stagingDir   string
	outputDir    string
	outputSuffix string
	ffprobe      string
	limits       bitrate.Limits
	warnSize     int64
	warnDuration int
	runLogDir    string
	buffer       int
	recorders    []Recorder
	logger       *slog.Logger
	probe        func(ctx context.Context, binary, path string) (ffprobe.Result, error)

	startMu sync.Mutex

	mu      sync.Mutex
	active  *activeRun
	status  Status
	workDir string
}

type activeRun struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithFFprobe sets the ffprobe binary used for metadata extraction.
func WithFFprobe(binary string) Option {
	return func(h *Host) { h.ffprobe = binary }
}

// WithProbe replaces ffprobe inspection. Used by tests.
func WithProbe(fn func(ctx context.Context, binary, path string) (ffprobe.Result, error)) Option {
	return func(h *Host) {
		if fn != nil {
			h.probe = fn
		}
	}
}

// WithLimits bounds accepted target sizes.
func WithLimits(limits bitrate.Limits) Option {
	return func(h *Host) { h.limits = limits }
}

// WithWarnings sets the input size and duration above which metadata warnings are emitted.
func WithWarnings(maxSize int64, maxDurationSeconds int) Option {
	return func(h *Host) {
		h.warnSize = maxSize
		h.warnDuration = maxDurationSeconds
	}
}

// WithOutput moves accepted outputs into dir as "<stem><suffix>.mp4" when a
// start command names no output path.
func WithOutput(dir, suffix string) Option {
	return func(h *Host) {
		h.outputDir = dir
		h.outputSuffix = suffix
	}
}

// WithRunLogDir writes a debug log file per run into dir.
func WithRunLogDir(dir string) Option {
	return func(h *Host) { h.runLogDir = dir }
}

// WithBuffer sets the per-run message channel capacity.
func WithBuffer(n int) Option {
	return func(h *Host) { h.buffer = n }
}

// WithRecorder adds a run lifecycle observer.
func WithRecorder(r Recorder) Option {
	return func(h *Host) {
		if r != nil {
			h.recorders = append(h.recorders, r)
		}
	}
}

// NewHost returns a Host that encodes through encoder and stages inputs
// under stagingDir.
func NewHost(encoder ladder.Encoder, stagingDir string, opts ...Option) *Host {
	h := &Host{
		encoder:      encoder,
		stagingDir:   stagingDir,
		outputSuffix: "_compressed",
		limits:       bitrate.DefaultLimits,
		buffer:       minBuffer,
		logger:       logging.NewNop(),
		probe:        ffprobe.Inspect,
		status:       Status{Stage: ladder.StageIdle},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.buffer = max(h.buffer, minBuffer)
	h.logger = logging.NewComponentLogger(h.logger, "worker")
	return h
}

// Reply is the Host's answer to a Command. Start fills RunID and Messages;
// Cancel fills Cancelled.
type Reply struct {
	RunID     string
	Messages  <-chan Message
	Cancelled bool
}

// Dispatch handles cmd.
func (h *Host) Dispatch(ctx context.Context, cmd Command) (Reply, error) {
	switch c := cmd.(type) {
	case StartCommand:
		id, ch, err := h.Start(ctx, c)
		return Reply{RunID: id, Messages: ch}, err
	case CancelCommand:
		return Reply{Cancelled: h.Cancel()}, nil
	default:
		return Reply{}, fmt.Errorf("unsupported command %T", cmd)
	}
}

// Start cancels any active run, waits for it to end, and starts cmd. The
// caller must drain the returned channel until it is closed.
func (h *Host) Start(ctx context.Context, cmd StartCommand) (string, <-chan Message, error) {
	if len(cmd.RawBytes) == 0 && strings.TrimSpace(cmd.Path) == "" {
		return "", nil, services.Wrap(services.ErrValidation, "worker", "start", "start command has no input", nil)
	}

	h.startMu.Lock()
	defer h.startMu.Unlock()
	h.cancelAndWait()

	id := uuid.NewString()
	runCtx, cancel := context.WithCancel(services.WithRunID(ctx, id))
	run := &activeRun{id: id, cancel: cancel, done: make(chan struct{})}
	ch := make(chan Message, h.buffer)

	h.mu.Lock()
	h.active = run
	h.status = Status{RunID: id, Filename: displayName(cmd), Active: true, Stage: ladder.StageIdle, Started: time.Now()}
	h.mu.Unlock()

	go h.execute(runCtx, run, cmd, ch)
	return id, ch, nil
}

// Cancel stops the active run. It reports whether a run was active.
func (h *Host) Cancel() bool {
	h.mu.Lock()
	run := h.active
	h.mu.Unlock()
	if run == nil {
		return false
	}
	run.cancel()
	return true
}

// Wait blocks until the active run, if any, has finished.
func (h *Host) Wait() {
	h.mu.Lock()
	run := h.active
	h.mu.Unlock()
	if run != nil {
		<-run.done
	}
}

// Close cancels the active run and waits for it.
func (h *Host) Close() {
	h.startMu.Lock()
	defer h.startMu.Unlock()
	h.cancelAndWait()
}

// Status returns a snapshot of the active or most recent run.
func (h *Host) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// InUseDirs returns the base names of staging directories owned by the
// active run, for use as the keep set of staging.CleanStale.
func (h *Host) InUseDirs() map[string]struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.workDir == "" {
		return nil
	}
	return map[string]struct{}{filepath.Base(h.workDir): {}}
}

func (h *Host) setWorkDir(dir string) {
	h.mu.Lock()
	h.workDir = dir
	h.mu.Unlock()
}

func (h *Host) cancelAndWait() {
	h.mu.Lock()
	run := h.active
	h.mu.Unlock()
	if run == nil {
		return
	}
	run.cancel()
	<-run.done
}

func (h *Host) execute(ctx context.Context, run *activeRun, cmd StartCommand, ch chan<- Message) {
	defer close(run.done)
	defer run.cancel()

	logger, closer, err := logging.OpenRunLog(h.logger, h.runLogDir, run.id)
	if err != nil {
		h.logger.Warn("run log unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "run_log_unavailable"),
			logging.String(logging.FieldErrorHint, "check log_dir permissions"),
			logging.String(logging.FieldImpact, "run details only appear in the main log"),
		)
		logger, closer = h.logger, nil
	}
	if closer != nil {
		defer closer.Close()
	}
	logger = logging.WithContext(ctx, logger)

	em := &emitter{host: h, ch: ch}
	outcome := h.process(ctx, run, cmd, em, logger)
	outcome.Finished = time.Now()

	switch outcome.Status {
	case ladder.StageComplete:
		em.send(CompleteMessage{Result: *outcome.Result})
	case ladder.StageCancelled:
		em.send(ProgressMessage{Stage: ladder.StageCancelled, MaxAttempts: bitrate.MaxAttempts,
			Attempt: em.last.Attempt, Message: "Compression cancelled"})
	default:
		em.send(*outcome.Error)
	}
	for _, r := range h.recorders {
		r.RunFinished(context.WithoutCancel(ctx), run.id, outcome)
	}

	h.mu.Lock()
	h.status.Active = false
	h.status.Stage = outcome.Status
	if h.active == run {
		h.active = nil
	}
	h.mu.Unlock()
	close(ch)
}

func (h *Host) process(ctx context.Context, run *activeRun, cmd StartCommand, em *emitter, logger *slog.Logger) Outcome {
	filename := displayName(cmd)
	settings := cmd.Settings.WithDefaults()
	info := RunInfo{ID: run.id, Filename: filename, InputSize: inputSize(cmd), Settings: settings, Started: time.Now()}
	for _, r := range h.recorders {
		r.RunStarted(ctx, info)
	}
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("filename", filename),
		logging.Int64("input_bytes", info.InputSize),
		logging.Int64("target_bytes", settings.TargetSizeBytes),
	)

	em.progress(ladder.Progress{Stage: ladder.StageReading, Percent: ladder.ReadingPercent, Attempt: 1, Message: "Reading video file..."})

	if err := os.MkdirAll(h.stagingDir, 0o755); err != nil {
		return h.failed(logger, services.Wrap(services.ErrConfiguration, "reading", "staging dir", "Failed to create staging directory", err), nil)
	}
	workDir, err := os.MkdirTemp(h.stagingDir, staging.RunDirPrefix+run.id[:8]+"-")
	if err != nil {
		return h.failed(logger, services.Wrap(services.ErrConfiguration, "reading", "staging dir", "Failed to create run directory", err), nil)
	}
	h.setWorkDir(workDir)
	keepWorkDir := false
	defer func() {
		h.setWorkDir("")
		if !keepWorkDir {
			_ = os.RemoveAll(workDir)
		}
	}()

	inputPath, err := stageInput(workDir, filename, &cmd)
	if err != nil {
		return h.failed(logger, err, nil)
	}
	if ctx.Err() != nil {
		return Outcome{Status: ladder.StageCancelled}
	}

	probed, err := h.probe(ctx, h.ffprobe, inputPath)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{Status: ladder.StageCancelled}
		}
		return h.failed(logger, services.Wrap(services.ErrInput, "reading", "probe", "Could not read video file", err), nil)
	}
	meta, err := media.FromProbe(probed, filename, info.InputSize)
	if err != nil {
		return h.failed(logger, err, nil)
	}
	warnings := meta.Warnings(h.warnSize, h.warnDuration)
	for _, warning := range warnings {
		logging.WarnWithContext(logger, "input warning", "input_warning",
			logging.String("warning", warning),
			logging.String(logging.FieldErrorHint, "consider trimming the video or raising the target size"),
			logging.String(logging.FieldImpact, "compression may be slow or lower quality"),
		)
	}
	em.send(MetadataMessage{Metadata: meta, Warnings: warnings})

	em.progress(ladder.Progress{Stage: ladder.StageAnalyzing, Percent: ladder.AnalyzingPercent, Attempt: 1, Message: "Analyzing video..."})
	if err := settings.Validate(h.limits); err != nil {
		return h.failed(logger, err, &meta)
	}
	plan := audio.Select(probed.AudioStreams(), settings.MuteAudio)
	logger.Debug("audio plan",
		logging.String("audio", plan.Label()),
		logging.String("reason", plan.Reason),
	)

	machine := ladder.New(h.encoder,
		ladder.WithLogger(logger),
		ladder.WithReporter(em.progress),
		ladder.WithObserver(ladder.ObserverFunc(func(ctx context.Context, attempt ladder.Attempt) {
			for _, r := range h.recorders {
				r.AttemptFinished(ctx, run.id, attempt)
			}
		})),
	)
	result, err := machine.Run(ctx, ladder.Input{Path: inputPath, WorkDir: workDir, Audio: plan}, meta, settings)
	if err != nil {
		if errors.Is(err, ladder.ErrCancelled) || ctx.Err() != nil {
			logger.Info("run cancelled", logging.String(logging.FieldEventType, "run_cancelled"))
			return Outcome{Status: ladder.StageCancelled, Metadata: &meta}
		}
		return h.failed(logger, err, &meta)
	}

	destination := h.destination(cmd, filename)
	if destination == "" {
		keepWorkDir = true
	} else {
		final, err := encoding.FinalizeOutput(result.OutputPath, destination)
		if err != nil {
			return h.failed(logger, err, &meta)
		}
		result.OutputPath = final
	}
	logger.Info("run complete",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("output_file", result.OutputPath),
		logging.Int64("output_bytes", result.OutputSize),
		logging.Int("attempts", result.Attempts),
	)
	return Outcome{Status: ladder.StageComplete, Metadata: &meta, Result: &result}
}

func (h *Host) failed(logger *slog.Logger, err error, meta *media.VideoMetadata) Outcome {
	msg := errorMessage(err)
	logging.ErrorWithContext(logger, "run failed", "run_failed",
		logging.Error(err),
		logging.String("failure_kind", string(msg.FailureKind)),
		logging.String(logging.FieldErrorHint, msg.Suggestion),
	)
	return Outcome{Status: ladder.StageError, Metadata: meta, Error: &msg}
}

func (h *Host) destination(cmd StartCommand, filename string) string {
	if out := strings.TrimSpace(cmd.OutputPath); out != "" {
		return out
	}
	if strings.TrimSpace(h.outputDir) == "" {
		return ""
	}
	return encoding.DeriveOutputPath(filename, h.outputDir, h.outputSuffix)
}

func (h *Host) observe(p ProgressMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status.Stage = p.Stage
	h.status.Percent = p.Percent
	h.status.Attempt = p.Attempt
	h.status.Message = p.Message
}

// errorMessage converts a run error into its terminal message.
func errorMessage(err error) ErrorMessage {
	var failure *ladder.Failure
	if errors.As(err, &failure) {
		msg := ErrorMessage{
			Message:     failure.Message,
			Suggestion:  failure.Suggestion,
			FailureKind: services.KindConvergence,
			BestSize:    failure.BestSize,
		}
		if msg.Suggestion == "" {
			msg.Suggestion = SuggestionFor(msg.Message)
		}
		return msg
	}
	message := err.Error()
	kind := services.Classify(err)
	return ErrorMessage{Message: message, Suggestion: suggestionForKind(kind, message), FailureKind: kind}
}

// stageInput returns the path ffmpeg should read. Raw bytes are written into
// workDir and released from cmd.
func stageInput(workDir, filename string, cmd *StartCommand) (string, error) {
	if len(cmd.RawBytes) == 0 {
		path := strings.TrimSpace(cmd.Path)
		info, err := os.Stat(path)
		if err != nil {
			return "", services.Wrap(services.ErrInput, "reading", "stat input", "Could not read video file", err)
		}
		if info.IsDir() {
			return "", services.Wrap(services.ErrInput, "reading", "stat input", fmt.Sprintf("%s is a directory", path), nil)
		}
		return path, nil
	}
	name := textutil.SanitizeFileName(filename, "input.mp4")
	path := filepath.Join(workDir, "source-"+name)
	data := cmd.RawBytes
	cmd.RawBytes = nil
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "reading", "stage input", "Failed to stage input bytes", err)
	}
	return path, nil
}

func displayName(cmd StartCommand) string {
	if name := strings.TrimSpace(cmd.Filename); name != "" {
		return name
	}
	if path := strings.TrimSpace(cmd.Path); path != "" {
		return filepath.Base(path)
	}
	return "video.mp4"
}

func inputSize(cmd StartCommand) int64 {
	if len(cmd.RawBytes) > 0 {
		return int64(len(cmd.RawBytes))
	}
	info, err := os.Stat(strings.TrimSpace(cmd.Path))
	if err != nil {
		return 0
	}
	return info.Size()
}

// emitter forwards messages for one run. Progress is coalesced so each
// attempt produces at most one message per distinct progress text.
type emitter struct {
	host *Host
	ch   chan<- Message
	last ProgressMessage
	sent bool
}

func (e *emitter) send(msg Message) {
	e.ch <- msg
}

func (e *emitter) progress(p ladder.Progress) {
	msg := progressFrom(p)
	msg.MaxAttempts = bitrate.MaxAttempts
	if e.sent && msg.Stage == e.last.Stage && msg.Attempt == e.last.Attempt && msg.Message == e.last.Message {
		return
	}
	if e.sent && msg.Stage == e.last.Stage && msg.Attempt == e.last.Attempt && msg.Percent < e.last.Percent {
		return
	}
	e.last = msg
	e.sent = true
	e.host.observe(msg)
	e.send(msg)
}
