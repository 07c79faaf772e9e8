package encoding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"clipfit/internal/bitrate"
	"clipfit/internal/frames"
	"clipfit/internal/logging"
	"clipfit/internal/services"
)

// Output describes a finished attempt.
type Output struct {
	Path          string
	Size          int64
	Profile       Profile
	FramesRead    int64
	FramesEncoded int64
	FramesSkipped int64
	Elapsed       time.Duration
}

// Driver runs encode attempts on a Codec.
type Driver struct {
	codec     Codec
	logger    *slog.Logger
	profiles  []Profile
	validator OutputValidator
}

// DriverOption customizes a Driver.
type DriverOption func(*Driver)

// WithProfiles overrides the encoder profile preference list.
func WithProfiles(profiles []Profile) DriverOption {
	return func(d *Driver) {
		if len(profiles) > 0 {
			d.profiles = append([]Profile(nil), profiles...)
		}
	}
}

// WithValidator checks each finished output before it is reported.
func WithValidator(v OutputValidator) DriverOption {
	return func(d *Driver) { d.validator = v }
}

// NewDriver returns a Driver for codec.
func NewDriver(codec Codec, logger *slog.Logger, opts ...DriverOption) *Driver {
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Driver{
		codec:    codec,
		logger:   logging.NewComponentLogger(logger, "encoder"),
		profiles: Profiles,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Encode runs one attempt of job at params. progress receives monotonic
// percentages in [0, 100].
func (d *Driver) Encode(ctx context.Context, job Job, params bitrate.Params, progress func(float64)) (Output, error) {
	started := time.Now()
	logger := logging.WithContext(ctx, d.logger)

	if err := d.checkDecoder(ctx, job); err != nil {
		return Output{}, err
	}
	profile, err := d.selectProfile(ctx, params)
	if err != nil {
		return Output{}, err
	}
	logger.Debug("encoder profile selected", logging.String("profile", profile.String()))

	reader, err := d.codec.OpenDecoder(ctx, job)
	if err != nil {
		if ctx.Err() != nil {
			return Output{}, ctx.Err()
		}
		return Output{}, services.Wrap(services.ErrExternalTool, "encoding", "open decoder", "failed to start decoder", err)
	}
	defer reader.Close()

	audioPlan := job.Audio
	if params.MuteAudio {
		audioPlan.Passthrough = false
		audioPlan.StreamIndex = -1
	}
	if !audioPlan.Passthrough && job.Meta.HasAudio && !params.MuteAudio {
		logger.Debug("audio dropped", logging.String("audio_codec", job.Meta.AudioCodec), logging.String("reason", audioPlan.Reason))
	}

	writer, err := d.codec.OpenEncoder(ctx, EncoderConfig{
		OutputPath:       job.OutputPath,
		Width:            params.Width,
		Height:           params.Height,
		FPS:              params.FPS,
		VideoBitrate:     params.VideoBitrate,
		Profile:          profile,
		KeyframeInterval: params.KeyframeInterval(),
		InputPath:        job.InputPath,
		Audio:            audioPlan,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Output{}, ctx.Err()
		}
		return Output{}, services.Wrap(services.ErrExternalTool, "encoding", "open encoder", "failed to start encoder", err)
	}

	out := Output{Path: job.OutputPath, Profile: profile}
	loop := &frameLoop{
		writer:    writer,
		logger:    logger,
		params:    params,
		decimate:  newDecimator(job.Meta.FPS, params.FPS),
		scalePool: frames.NewPool(params.Width, params.Height),
		interval:  int64(params.KeyframeInterval()),
		progress:  newProgressTracker(job.Meta.FrameCount, progress),
	}

	for {
		if ctx.Err() != nil {
			writer.Abort()
			return Output{}, ctx.Err()
		}
		frame, err := reader.ReadFrame(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				writer.Abort()
				return Output{}, ctx.Err()
			}
			if errors.Is(err, frames.ErrBadFrame) {
				loop.skip(err)
				continue
			}
			writer.Abort()
			return Output{}, services.Wrap(services.ErrExternalTool, "encoding", "decode", "decoder failed", err)
		}
		if err := loop.process(ctx, frame); err != nil {
			writer.Abort()
			if ctx.Err() != nil {
				return Output{}, ctx.Err()
			}
			return Output{}, services.Wrap(services.ErrExternalTool, "encoding", "encode", "encoder failed", err)
		}
	}

	if err := reader.Close(); err != nil {
		writer.Abort()
		return Output{}, services.Wrap(services.ErrExternalTool, "encoding", "decode", "decoder failed", err)
	}
	if loop.encoded == 0 {
		writer.Abort()
		return Output{}, services.Wrap(services.ErrInput, "encoding", "decode", "no frames could be decoded", nil)
	}

	size, err := writer.Close(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Output{}, ctx.Err()
		}
		return Output{}, services.Wrap(services.ErrExternalTool, "encoding", "finalize", "failed to finalize MP4", err)
	}
	loop.progress.finish()

	out.Size = size
	out.FramesRead = loop.read
	out.FramesEncoded = loop.encoded
	out.FramesSkipped = loop.skipped
	out.Elapsed = time.Since(started)

	if d.validator != nil {
		if err := d.validator.Validate(ctx, out.Path, job, params); err != nil {
			return Output{}, err
		}
	}

	logger.Debug("attempt encoded",
		logging.Int64("output_bytes", out.Size),
		logging.Int64("frames_encoded", out.FramesEncoded),
		logging.Int64("frames_skipped", out.FramesSkipped),
		logging.Duration("elapsed", out.Elapsed),
	)
	return out, nil
}

func (d *Driver) checkDecoder(ctx context.Context, job Job) error {
	ok, err := d.codec.SupportsDecoder(ctx, job.Meta.VideoCodec)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExternalTool, "encoding", "decoder probe", "could not query decoders", err)
	}
	if !ok {
		return services.Wrap(services.ErrCapability, "encoding", "decoder",
			fmt.Sprintf("Input video codec not supported: %s", job.Meta.VideoCodec), ErrUnsupportedInput)
	}
	return nil
}

func (d *Driver) selectProfile(ctx context.Context, params bitrate.Params) (Profile, error) {
	for _, profile := range d.profiles {
		ok, err := d.codec.SupportsEncoder(ctx, profile, params.Width, params.Height, params.FPS)
		if err != nil {
			if ctx.Err() != nil {
				return Profile{}, ctx.Err()
			}
			d.logger.Debug("encoder probe failed", logging.String("profile", profile.String()), logging.Error(err))
			continue
		}
		if ok {
			return profile, nil
		}
	}
	return Profile{}, services.Wrap(services.ErrCapability, "encoding", "encoder", "", ErrUnsupportedOutput)
}

// frameLoop holds per-attempt counters for the decode/encode loop.
type frameLoop struct {
	writer    FrameWriter
	logger    *slog.Logger
	params    bitrate.Params
	decimate  decimator
	scalePool *frames.Pool
	interval  int64
	progress  *progressTracker

	read    int64
	encoded int64
	skipped int64
}

// process encodes or drops one decoded frame. The frame and any scaled copy
// are released before it returns.
func (l *frameLoop) process(ctx context.Context, frame *frames.Frame) error {
	defer frame.Release()
	l.read++
	defer l.progress.update(l.read)

	if !l.decimate.keep(frame.Index) {
		return nil
	}

	out := frame
	if frames.NeedsScaling(frame, l.params.Width, l.params.Height) {
		scaled, err := frames.Scale(frame, l.scalePool)
		if err != nil {
			l.skip(err)
			return nil
		}
		defer scaled.Release()
		out = scaled
	}

	keyframe := l.encoded%l.interval == 0
	if err := l.writer.WriteFrame(ctx, out, keyframe); err != nil {
		if errors.Is(err, frames.ErrBadFrame) {
			l.skip(err)
			return nil
		}
		return err
	}
	l.encoded++
	return nil
}

func (l *frameLoop) skip(err error) {
	l.skipped++
	l.logger.Warn("frame skipped",
		logging.Int64("frames_read", l.read),
		logging.Error(err),
		logging.String(logging.FieldEventType, "frame_skipped"),
		logging.String(logging.FieldErrorHint, "source may contain corrupt frames"),
		logging.String(logging.FieldImpact, "one frame omitted from output"),
	)
}
