package frames

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"golang.org/x/image/draw"
)

// ErrBadFrame marks a per-frame failure that should skip the frame rather
// than abort the encode.
var ErrBadFrame = errors.New("bad frame")

// Frame is a decoded picture plus its position in the source stream.
type Frame struct {
	Image *image.RGBA
	Index int64

	pool     *Pool
	released atomic.Bool
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.Image.Rect.Dx() }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.Image.Rect.Dy() }

// Release returns the frame buffer to its pool. Calling it more than once is a no-op.
func (f *Frame) Release() {
	if f == nil || !f.released.CompareAndSwap(false, true) {
		return
	}
	if f.pool != nil {
		f.pool.put(f.Image)
	}
}

// Pool recycles RGBA buffers of a single size.
type Pool struct {
	width, height int
	buffers       sync.Pool
	outstanding   atomic.Int64
}

// NewPool returns a pool for width x height frames.
func NewPool(width, height int) *Pool {
	p := &Pool{width: width, height: height}
	p.buffers.New = func() any {
		return image.NewRGBA(image.Rect(0, 0, width, height))
	}
	return p
}

// Get returns a frame with the given source index. Pixel contents are undefined.
func (p *Pool) Get(index int64) *Frame {
	img := p.buffers.Get().(*image.RGBA)
	p.outstanding.Add(1)
	return &Frame{Image: img, Index: index, pool: p}
}

// Outstanding reports the number of frames acquired and not yet released.
func (p *Pool) Outstanding() int64 {
	return p.outstanding.Load()
}

// FrameSize returns the byte size of one raw RGBA frame.
func (p *Pool) FrameSize() int {
	return p.width * p.height * 4
}

func (p *Pool) put(img *image.RGBA) {
	p.outstanding.Add(-1)
	if img.Rect.Dx() == p.width && img.Rect.Dy() == p.height {
		p.buffers.Put(img)
	}
}

// Scale resamples src into a frame from dst using nearest-neighbour
// interpolation. The returned frame carries src's index and must be released
// by the caller.
func Scale(src *Frame, dst *Pool) (*Frame, error) {
	if src == nil || src.Image == nil {
		return nil, fmt.Errorf("%w: nil source", ErrBadFrame)
	}
	if src.Width() == 0 || src.Height() == 0 {
		return nil, fmt.Errorf("%w: empty source %dx%d", ErrBadFrame, src.Width(), src.Height())
	}
	out := dst.Get(src.Index)
	draw.NearestNeighbor.Scale(out.Image, out.Image.Rect, src.Image, src.Image.Rect, draw.Src, nil)
	return out, nil
}

// NeedsScaling reports whether f differs from the requested output size.
func NeedsScaling(f *Frame, width, height int) bool {
	return f.Width() != width || f.Height() != height
}
