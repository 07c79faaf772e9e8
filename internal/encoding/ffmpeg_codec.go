package encoding

import (
	"context"
	"fmt"

	"clipfit/internal/frames"
	"clipfit/internal/services/ffmpeg"
)

// FFmpegCodec implements Codec with an ffmpeg decode pipe and encode pipe.
type FFmpegCodec struct {
	client *ffmpeg.Client
}

// NewFFmpegCodec wraps client.
func NewFFmpegCodec(client *ffmpeg.Client) *FFmpegCodec {
	return &FFmpegCodec{client: client}
}

func (c *FFmpegCodec) SupportsDecoder(ctx context.Context, codec string) (bool, error) {
	return c.client.SupportsDecoder(ctx, codec)
}

func (c *FFmpegCodec) SupportsEncoder(ctx context.Context, profile Profile, width, height int, fps float64) (bool, error) {
	return c.client.SupportsProfile(ctx, profile, width, height, fps)
}

func (c *FFmpegCodec) OpenDecoder(ctx context.Context, job Job) (FrameReader, error) {
	if job.Meta.Width <= 0 || job.Meta.Height <= 0 {
		return nil, fmt.Errorf("open decoder: invalid source size %dx%d", job.Meta.Width, job.Meta.Height)
	}
	dec, err := c.client.StartDecoder(ctx, job.InputPath)
	if err != nil {
		return nil, err
	}
	pool := frames.NewPool(job.Meta.Width, job.Meta.Height)
	return &pipeReader{dec: dec, raw: frames.NewRawReader(dec, pool)}, nil
}

func (c *FFmpegCodec) OpenEncoder(ctx context.Context, cfg EncoderConfig) (FrameWriter, error) {
	stream := -1
	if cfg.Audio.Passthrough {
		stream = cfg.Audio.StreamIndex
	}
	enc, err := c.client.StartEncoder(ctx, ffmpeg.EncodeOptions{
		Output:           cfg.OutputPath,
		Width:            cfg.Width,
		Height:           cfg.Height,
		FPS:              cfg.FPS,
		VideoBitrate:     cfg.VideoBitrate,
		Profile:          cfg.Profile,
		KeyframeInterval: cfg.KeyframeInterval,
		AudioInput:       cfg.InputPath,
		AudioStream:      stream,
	})
	if err != nil {
		return nil, err
	}
	return &pipeWriter{enc: enc, width: cfg.Width, height: cfg.Height}, nil
}

type pipeReader struct {
	dec *ffmpeg.Decoder
	raw *frames.RawReader
}

func (r *pipeReader) ReadFrame(ctx context.Context) (*frames.Frame, error) {
	return r.raw.ReadFrame(ctx)
}

func (r *pipeReader) Close() error {
	return r.dec.Close()
}

type pipeWriter struct {
	enc           *ffmpeg.Encoder
	width, height int
}

// WriteFrame writes the frame's pixels. Keyframe placement is fixed by the
// encoder's GOP settings, which match the driver's cadence.
func (w *pipeWriter) WriteFrame(_ context.Context, frame *frames.Frame, _ bool) error {
	if frame.Width() != w.width || frame.Height() != w.height {
		return fmt.Errorf("%w: got %dx%d, encoder expects %dx%d", frames.ErrBadFrame, frame.Width(), frame.Height(), w.width, w.height)
	}
	return frames.WriteRaw(w.enc, frame)
}

func (w *pipeWriter) Close(context.Context) (int64, error) {
	return w.enc.Finish()
}

func (w *pipeWriter) Abort() {
	w.enc.Abort()
}
