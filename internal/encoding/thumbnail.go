package encoding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"clipfit/internal/frames"
	"clipfit/internal/services"
)

// DefaultThumbnailSize bounds the longest side of a poster thumbnail.
const DefaultThumbnailSize = 320

const thumbnailBadFrameLimit = 10

// FrameSource opens a decoder for a job. Codec satisfies it.
type FrameSource interface {
	OpenDecoder(ctx context.Context, job Job) (FrameReader, error)
}

// Thumbnail writes the first decodable frame of job's input to outputPath,
// fitted within maxSide x maxSide. The image format follows the output
// extension (.jpg, .png, ...). It returns the thumbnail dimensions.
func Thumbnail(ctx context.Context, source FrameSource, job Job, outputPath string, maxSide int) (int, int, error) {
	if maxSide <= 0 {
		maxSide = DefaultThumbnailSize
	}
	if _, err := imaging.FormatFromFilename(outputPath); err != nil {
		return 0, 0, services.Wrap(services.ErrValidation, "thumbnail", "format", "Unsupported thumbnail format", err)
	}

	reader, err := source.OpenDecoder(ctx, job)
	if err != nil {
		return 0, 0, services.Wrap(services.ErrExternalTool, "thumbnail", "decode", "Failed to start decoder", err)
	}
	defer reader.Close()

	var frame *frames.Frame
	for bad := 0; frame == nil; {
		frame, err = reader.ReadFrame(ctx)
		switch {
		case err == nil:
		case errors.Is(err, frames.ErrBadFrame) && bad < thumbnailBadFrameLimit:
			bad++
		case errors.Is(err, io.EOF):
			return 0, 0, services.Wrap(services.ErrInput, "thumbnail", "decode", "Video has no decodable frames", nil)
		default:
			return 0, 0, services.Wrap(services.ErrInput, "thumbnail", "decode", "Failed to decode first frame", err)
		}
	}
	defer frame.Release()

	fitted := imaging.Fit(frame.Image, maxSide, maxSide, imaging.Lanczos)
	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, 0, fmt.Errorf("create thumbnail directory: %w", err)
		}
	}
	if err := imaging.Save(fitted, outputPath, imaging.JPEGQuality(85)); err != nil {
		return 0, 0, fmt.Errorf("save thumbnail: %w", err)
	}
	bounds := fitted.Bounds()
	return bounds.Dx(), bounds.Dy(), nil
}
