package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"clipfit/internal/media/ffprobe"
	"clipfit/internal/services"
)

// DefaultFPS is assumed when the container reports no usable frame rate.
const DefaultFPS = 30.0

// VideoMetadata captures the properties of an input video that drive
// parameter calculation.
type VideoMetadata struct {
	Filename   string  `json:"filename"`
	FileSize   int64   `json:"file_size"`
	Duration   float64 `json:"duration"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	FrameCount int64   `json:"frame_count,omitempty"`
	VideoCodec string  `json:"video_codec"`
	AudioCodec string  `json:"audio_codec,omitempty"`
	HasAudio   bool    `json:"has_audio"`
	Rotation   int     `json:"rotation,omitempty"`
}

// Probe inspects path with ffprobe and returns its metadata.
func Probe(ctx context.Context, ffprobeBinary, path string) (VideoMetadata, error) {
	result, err := ffprobe.Inspect(ctx, ffprobeBinary, path)
	if err != nil {
		return VideoMetadata{}, services.Wrap(services.ErrInput, "analyzing", "ffprobe", "failed to parse video", err)
	}
	var size int64
	if info, statErr := os.Stat(path); statErr == nil {
		size = info.Size()
	}
	return FromProbe(result, filepath.Base(path), size)
}

// FromProbe converts an ffprobe result into VideoMetadata. fileSize overrides
// the container-reported size when positive.
func FromProbe(result ffprobe.Result, filename string, fileSize int64) (VideoMetadata, error) {
	video, ok := result.VideoStream()
	if !ok {
		return VideoMetadata{}, services.Wrap(services.ErrInput, "analyzing", "metadata", "no video track found", nil)
	}

	duration := result.DurationSeconds()
	if math.IsNaN(duration) || duration <= 0 {
		duration = video.DurationSeconds()
	}
	if duration <= 0 {
		return VideoMetadata{}, services.Wrap(services.ErrInput, "analyzing", "metadata", "video has no duration", nil)
	}
	if video.Width <= 0 || video.Height <= 0 {
		return VideoMetadata{}, services.Wrap(services.ErrInput, "analyzing", "metadata",
			fmt.Sprintf("invalid video dimensions %dx%d", video.Width, video.Height), nil)
	}

	fps := video.FrameRate()
	frames := video.FrameCount()
	if fps <= 0 && frames > 0 {
		fps = float64(frames) / duration
	}
	if fps <= 0 || math.IsInf(fps, 0) {
		fps = DefaultFPS
	}
	fps = math.Round(fps*100) / 100
	if frames <= 0 {
		frames = int64(math.Round(duration * fps))
	}

	if fileSize <= 0 {
		fileSize = result.SizeBytes()
	}
	if strings.TrimSpace(filename) == "" {
		filename = "video.mp4"
	}

	// The decoder autorotates, so frames arrive in display orientation.
	width, height := video.Width, video.Height
	rotation := video.Rotation()
	if rotation == 90 || rotation == 270 {
		width, height = height, width
	}

	meta := VideoMetadata{
		Filename:   filename,
		FileSize:   fileSize,
		Duration:   duration,
		Width:      width,
		Height:     height,
		FPS:        fps,
		FrameCount: frames,
		VideoCodec: codecID(video),
		Rotation:   rotation,
	}
	if audio, ok := result.AudioStream(); ok {
		meta.HasAudio = true
		meta.AudioCodec = codecID(audio)
	}
	return meta, nil
}

// WithDimensions returns a copy of m with the given frame size.
func (m VideoMetadata) WithDimensions(width, height int) VideoMetadata {
	m.Width = width
	m.Height = height
	return m
}

// Resolution renders the frame size as WIDTHxHEIGHT.
func (m VideoMetadata) Resolution() string {
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// HasAACAudio reports whether the audio track can be passed through untouched.
func (m VideoMetadata) HasAACAudio() bool {
	return m.HasAudio && IsAAC(m.AudioCodec)
}

// IsAAC reports whether codec identifies AAC audio, either by ffmpeg codec
// name or by its MP4 sample entry (mp4a.40.2 and friends).
func IsAAC(codec string) bool {
	codec = strings.ToLower(strings.TrimSpace(codec))
	return codec == "aac" || strings.Contains(codec, "mp4a")
}

func codecID(stream ffprobe.Stream) string {
	if name := strings.TrimSpace(stream.CodecName); name != "" {
		return strings.ToLower(name)
	}
	return strings.ToLower(strings.TrimSpace(stream.CodecTag))
}
