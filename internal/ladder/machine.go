package ladder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"clipfit/internal/bitrate"
	"clipfit/internal/encoding"
	"clipfit/internal/logging"
	"clipfit/internal/media"
	"clipfit/internal/media/audio"
	"clipfit/internal/services"
)

// Encoder runs one encode pass. encoding.Driver satisfies it.
type Encoder interface {
	Encode(ctx context.Context, job encoding.Job, params bitrate.Params, progress func(float64)) (encoding.Output, error)
}

// Observer is told about every finished attempt, in order.
type Observer interface {
	AttemptFinished(ctx context.Context, attempt Attempt)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, attempt Attempt)

// AttemptFinished implements Observer.
func (f ObserverFunc) AttemptFinished(ctx context.Context, attempt Attempt) { f(ctx, attempt) }

// Input locates the staged source and the scratch directory for attempt files.
type Input struct {
	Path    string
	WorkDir string
	Audio   audio.Plan
}

// Machine runs the attempt loop.
type Machine struct {
	encoder  Encoder
	logger   *slog.Logger
	report   func(Progress)
	observer Observer
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the machine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithReporter receives progress updates for every attempt.
func WithReporter(report func(Progress)) Option {
	return func(m *Machine) { m.report = report }
}

// WithObserver receives each finished attempt.
func WithObserver(observer Observer) Option {
	return func(m *Machine) { m.observer = observer }
}

// New returns a Machine that encodes through encoder.
func New(encoder Encoder, opts ...Option) *Machine {
	m := &Machine{encoder: encoder, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "ladder")
	return m
}

// run is the mutable state of a single Run call.
type run struct {
	machine  *Machine
	input    Input
	meta     media.VideoMetadata
	settings bitrate.Settings
	logger   *slog.Logger
	started  time.Time
	history  []Attempt
	best     int64
}

// Run compresses the staged input until it fits settings.TargetSizeBytes.
func (m *Machine) Run(ctx context.Context, input Input, meta media.VideoMetadata, settings bitrate.Settings) (Result, error) {
	settings = settings.WithDefaults()
	if settings.TargetSizeBytes <= 0 {
		return Result{}, services.Wrap(services.ErrValidation, "analyzing", "settings", "target size is required", nil)
	}
	if meta.Width <= 0 || meta.Height <= 0 || meta.Duration <= 0 {
		return Result{}, services.Wrap(services.ErrInput, "analyzing", "metadata",
			fmt.Sprintf("unusable video metadata (%dx%d, %.2fs)", meta.Width, meta.Height, meta.Duration), nil)
	}

	r := &run{
		machine:  m,
		input:    input,
		meta:     meta,
		settings: settings,
		logger:   logging.WithContext(ctx, m.logger),
		started:  time.Now(),
	}
	return r.loop(ctx)
}

func (r *run) loop(ctx context.Context) (Result, error) {
	target := r.settings.TargetSizeBytes
	params := bitrate.InitialParams(r.meta, r.settings)
	r.logger.Info("compression started",
		logging.String(logging.FieldEventType, "compression_start"),
		logging.Int64("target_bytes", target),
		logging.Int64("video_bitrate", params.VideoBitrate),
		logging.Int64("audio_bitrate", params.AudioBitrate),
		logging.String("resolution", fmt.Sprintf("%dx%d", params.Width, params.Height)),
		logging.Float64("fps", params.FPS),
	)

	var previous string
	for index := 1; index <= bitrate.MaxAttempts; index++ {
		if ctx.Err() != nil {
			discard(previous)
			return Result{}, ErrCancelled
		}

		attemptCtx := services.WithAttempt(services.WithStage(ctx, string(StageForAttempt(index))), index)
		out, elapsed, err := r.attempt(attemptCtx, index, params)
		if err != nil {
			discard(previous)
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return Result{}, ErrCancelled
			}
			return Result{}, err
		}
		if out.Path != previous {
			discard(previous)
		}
		previous = out.Path
		if ctx.Err() != nil {
			discard(previous)
			return Result{}, ErrCancelled
		}

		if r.best == 0 || out.Size < r.best {
			r.best = out.Size
		}
		attempt := Attempt{
			Index:      index,
			Params:     params,
			OutputSize: out.Size,
			Elapsed:    elapsed,
			Profile:    out.Profile.String(),
		}

		if out.Size <= target {
			attempt.Decision = DecisionAccepted
			r.record(attemptCtx, attempt, "output fits target")
			return r.success(out, params), nil
		}

		retryBitrate := bitrate.RetryBitrate(params.VideoBitrate, out.Size, target)
		next, decision, reason := r.nextParams(params, retryBitrate)
		if decision == DecisionUnachievable {
			attempt.Decision = decision
			r.record(attemptCtx, attempt, reason)
			discard(previous)
			return Result{}, unachievable(params.Height, out.Size, r.best, r.settings, r.meta.HasAudio, r.snapshot())
		}

		if index == bitrate.MaxAttempts {
			overage := float64(out.Size-target) / float64(target)
			if overage <= bitrate.AcceptTolerance {
				attempt.Decision = DecisionTolerated
				r.record(attemptCtx, attempt, fmt.Sprintf("%.1f%% over target at attempt cap", overage*100))
				return r.success(out, params), nil
			}
			attempt.Decision = DecisionExhausted
			r.record(attemptCtx, attempt, fmt.Sprintf("%.1f%% over target at attempt cap", overage*100))
			discard(previous)
			return Result{}, notConverged(r.best, r.settings, r.meta.HasAudio, r.snapshot())
		}

		attempt.Decision = decision
		r.record(attemptCtx, attempt, reason)
		params = next
	}
	// MaxAttempts >= 1 so the loop always returns.
	return Result{}, services.Wrap(services.ErrConvergence, "retrying", "ladder", "attempt loop ended without an outcome", nil)
}

// nextParams picks the next rung after an overshoot. Resolution is always
// tried before frame rate.
func (r *run) nextParams(current bitrate.Params, retryBitrate int64) (bitrate.Params, Decision, string) {
	if !bitrate.IsBitrateTooLowForResolution(retryBitrate, current.Height) {
		return current.WithVideoBitrate(retryBitrate), DecisionReduceBitrate,
			fmt.Sprintf("bitrate %s acceptable at %dp", bitrate.FormatBitrate(retryBitrate), current.Height)
	}
	if r.settings.AllowDownscale {
		if step, ok := bitrate.NextResolutionStep(current.Height); ok {
			width, height := bitrate.ScaledDimensions(r.meta.Width, r.meta.Height, step)
			fresh := bitrate.InitialParams(r.meta.WithDimensions(width, height), r.settings)
			next := current.WithDimensions(width, height).WithVideoBitrate(fresh.VideoBitrate)
			return next, DecisionDownscale,
				fmt.Sprintf("bitrate %s too low for %dp", bitrate.FormatBitrate(retryBitrate), current.Height)
		}
	}
	if r.settings.AllowFPSReduction {
		if fps, ok := bitrate.NextFPSStep(current.FPS); ok {
			return current.WithFPS(fps).WithVideoBitrate(retryBitrate), DecisionReduceFPS,
				fmt.Sprintf("bitrate %s too low for %dp, resolution ladder unavailable", bitrate.FormatBitrate(retryBitrate), current.Height)
		}
	}
	return current, DecisionUnachievable,
		fmt.Sprintf("bitrate %s too low for %dp and no escalation left", bitrate.FormatBitrate(retryBitrate), current.Height)
}

func (r *run) attempt(ctx context.Context, index int, params bitrate.Params) (encoding.Output, time.Duration, error) {
	stage := StageForAttempt(index)
	message := "Encoding video..."
	if index > 1 {
		message = fmt.Sprintf("Retrying with lower bitrate (attempt %d/%d)...", index, bitrate.MaxAttempts)
	}
	r.emit(Progress{Stage: stage, Percent: AttemptStartPercent, Attempt: index, CurrentBitrate: params.VideoBitrate, Message: message})

	logger := logging.WithContext(ctx, r.machine.logger)
	logger.Info("attempt started",
		logging.String(logging.FieldEventType, "attempt_start"),
		logging.Int64("video_bitrate", params.VideoBitrate),
		logging.String("resolution", fmt.Sprintf("%dx%d", params.Width, params.Height)),
		logging.Float64("fps", params.FPS),
	)

	job := encoding.Job{
		InputPath:  r.input.Path,
		OutputPath: encoding.AttemptPath(r.input.WorkDir, index),
		Meta:       r.meta,
		Audio:      r.input.Audio,
	}
	started := time.Now()
	out, err := r.machine.encoder.Encode(ctx, job, params, func(p float64) {
		r.emit(Progress{
			Stage:          stage,
			Percent:        AttemptStartPercent + p*AttemptSpanPercent/100,
			Attempt:        index,
			CurrentBitrate: params.VideoBitrate,
			Message:        fmt.Sprintf("Encoding: %d%%", int(math.Round(p))),
		})
	})
	if err != nil {
		discard(job.OutputPath)
		return encoding.Output{}, 0, err
	}
	if out.Path == "" {
		out.Path = job.OutputPath
	}
	return out, time.Since(started), nil
}

func (r *run) record(ctx context.Context, attempt Attempt, reason string) {
	r.history = append(r.history, attempt)
	logger := logging.WithContext(ctx, r.machine.logger)
	attrs := append(logging.DecisionAttrs("ladder_step", string(attempt.Decision), reason),
		logging.Int64("output_bytes", attempt.OutputSize),
		logging.Int64("target_bytes", r.settings.TargetSizeBytes),
		logging.Int64("video_bitrate", attempt.Params.VideoBitrate),
		logging.Duration("attempt_duration", attempt.Elapsed),
	)
	logger.Info("attempt finished", logging.Args(attrs...)...)
	if r.machine.observer != nil {
		r.machine.observer.AttemptFinished(ctx, attempt)
	}
}

func (r *run) success(out encoding.Output, params bitrate.Params) Result {
	r.emit(Progress{Stage: StageFinalizing, Percent: FinalizingPercent, Attempt: len(r.history),
		CurrentBitrate: params.VideoBitrate, Message: "Finalizing MP4..."})
	result := Result{
		Success:      true,
		OutputPath:   out.Path,
		OutputSize:   out.Size,
		OriginalSize: r.meta.FileSize,
		Duration:     r.meta.Duration,
		EncodingTime: time.Since(r.started),
		Attempts:     len(r.history),
		FinalBitrate: params.VideoBitrate,
		Final:        params,
		History:      r.snapshot(),
	}
	r.logger.Info("compression finished",
		logging.String(logging.FieldEventType, "compression_complete"),
		logging.Int64("output_bytes", result.OutputSize),
		logging.Int64("original_bytes", result.OriginalSize),
		logging.Int("attempts", result.Attempts),
		logging.Duration("encoding_time", result.EncodingTime),
	)
	return result
}

func (r *run) emit(p Progress) {
	if r.machine.report == nil {
		return
	}
	p.MaxAttempts = bitrate.MaxAttempts
	r.machine.report(p)
}

func (r *run) snapshot() []Attempt {
	return append([]Attempt(nil), r.history...)
}

func discard(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}
