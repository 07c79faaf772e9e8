package encoding

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"clipfit/internal/services"
)

func TestThumbnailFitsFirstFrame(t *testing.T) {
	codec := newFakeCodec(3)
	codec.badRead = map[int64]bool{0: true}
	job := testJob(640, 360, 30, 3)
	out := filepath.Join(t.TempDir(), "thumbs", "poster.jpg")

	width, height, err := Thumbnail(context.Background(), codec, job, out, 160)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if width != 160 || height != 90 {
		t.Fatalf("thumbnail size = %dx%d, want 160x90", width, height)
	}
	img, err := imaging.Open(out)
	if err != nil {
		t.Fatalf("open thumbnail: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 160 || b.Dy() != 90 {
		t.Fatalf("saved thumbnail is %dx%d", b.Dx(), b.Dy())
	}
	if codec.pool.Outstanding() != 0 {
		t.Fatalf("expected all frames released, %d outstanding", codec.pool.Outstanding())
	}
}

func TestThumbnailPNGKeepsSmallFrames(t *testing.T) {
	codec := newFakeCodec(1)
	job := testJob(64, 36, 30, 1)
	out := filepath.Join(t.TempDir(), "poster.png")

	width, height, err := Thumbnail(context.Background(), codec, job, out, 0)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if width != 64 || height != 36 {
		t.Fatalf("small frame should not be upscaled, got %dx%d", width, height)
	}
	if _, err := imaging.Open(out); err != nil {
		t.Fatalf("open thumbnail: %v", err)
	}
}

func TestThumbnailErrors(t *testing.T) {
	dir := t.TempDir()
	job := testJob(64, 36, 30, 0)

	if _, _, err := Thumbnail(context.Background(), newFakeCodec(0), job, filepath.Join(dir, "poster.jpg"), 0); !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected input error for empty video, got %v", err)
	}
	if _, _, err := Thumbnail(context.Background(), newFakeCodec(1), job, filepath.Join(dir, "poster.txt"), 0); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown format, got %v", err)
	}
}
