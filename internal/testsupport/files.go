package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// mp4Header is an ISO BMFF ftyp box so placeholder inputs start like an MP4.
var mp4Header = []byte{
	0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p',
	'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00,
	'i', 's', 'o', 'm', 'a', 'v', 'c', '1',
}

// WriteFile creates a placeholder video of exactly size bytes (at least one).
// Everything after the ftyp header is sparse zero padding, so large sizes are
// cheap.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	size = max(size, 1)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	header := mp4Header[:min(int64(len(mp4Header)), size)]
	if err := os.WriteFile(path, header, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := os.Truncate(path, size); err != nil {
		t.Fatalf("size %s: %v", path, err)
	}
}
