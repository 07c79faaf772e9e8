package frames

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// RawReader slices a stream of packed RGBA frames into pooled Frames.
type RawReader struct {
	r     io.Reader
	pool  *Pool
	index int64
}

// NewRawReader reads frames sized for pool from r.
func NewRawReader(r io.Reader, pool *Pool) *RawReader {
	return &RawReader{r: r, pool: pool}
}

// ReadFrame returns the next frame, or io.EOF once the stream ends cleanly.
// A truncated trailing frame is reported as io.EOF as well.
func (rr *RawReader) ReadFrame(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	frame := rr.pool.Get(rr.index)
	_, err := io.ReadFull(rr.r, frame.Image.Pix[:rr.pool.FrameSize()])
	if err != nil {
		frame.Release()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame %d: %w", rr.index, err)
	}
	rr.index++
	return frame, nil
}

// WriteRaw writes the packed RGBA pixels of f to w.
func WriteRaw(w io.Writer, f *Frame) error {
	rect := f.Image.Rect
	stride := f.Image.Stride
	rowBytes := rect.Dx() * 4
	if stride == rowBytes {
		_, err := w.Write(f.Image.Pix[:rowBytes*rect.Dy()])
		return err
	}
	for y := 0; y < rect.Dy(); y++ {
		start := y * stride
		if _, err := w.Write(f.Image.Pix[start : start+rowBytes]); err != nil {
			return err
		}
	}
	return nil
}
