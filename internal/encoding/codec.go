package encoding

import (
	"context"
	"errors"

	"clipfit/internal/frames"
	"clipfit/internal/media"
	"clipfit/internal/media/audio"
	"clipfit/internal/services/ffmpeg"
)

var (
	// ErrUnsupportedInput means no decoder exists for the source video codec.
	ErrUnsupportedInput = errors.New("input video codec not supported")
	// ErrUnsupportedOutput means no H.264 profile/level was accepted by the encoder.
	ErrUnsupportedOutput = errors.New("no supported H.264 encoder configuration found")
)

// Profile is an H.264 profile/level pair.
type Profile = ffmpeg.Profile

// Profiles lists encoder configurations from most compatible to highest quality.
var Profiles = []Profile{
	{Name: "baseline", Level: "3.1"},
	{Name: "main", Level: "3.1"},
	{Name: "high", Level: "4.0"},
	{Name: "baseline", Level: "3.0"},
	{Name: "main", Level: "3.0"},
	{Name: "high", Level: "3.1"},
}

// Job identifies the input and output of an attempt.
type Job struct {
	InputPath  string
	OutputPath string
	Meta       media.VideoMetadata
	Audio      audio.Plan
}

// EncoderConfig is everything an encoder needs for one attempt.
type EncoderConfig struct {
	OutputPath       string
	Width            int
	Height           int
	FPS              float64
	VideoBitrate     int64
	Profile          Profile
	KeyframeInterval int
	InputPath        string
	Audio            audio.Plan
}

// FrameReader yields decoded frames at the source resolution. ReadFrame
// returns io.EOF after the last frame; errors wrapping frames.ErrBadFrame
// skip a single frame. Close may be called more than once.
type FrameReader interface {
	ReadFrame(ctx context.Context) (*frames.Frame, error)
	Close() error
}

// FrameWriter consumes frames and produces the output file. Close flushes and
// returns the output size. Abort discards everything written so far.
type FrameWriter interface {
	WriteFrame(ctx context.Context, frame *frames.Frame, keyframe bool) error
	Close(ctx context.Context) (int64, error)
	Abort()
}

// Codec is the decode/encode capability an attempt runs on.
type Codec interface {
	SupportsDecoder(ctx context.Context, codec string) (bool, error)
	SupportsEncoder(ctx context.Context, profile Profile, width, height int, fps float64) (bool, error)
	OpenDecoder(ctx context.Context, job Job) (FrameReader, error)
	OpenEncoder(ctx context.Context, cfg EncoderConfig) (FrameWriter, error)
}
