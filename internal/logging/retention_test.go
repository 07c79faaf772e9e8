package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPruneOldFiles(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-72 * time.Hour)

	write := func(name string, mod time.Time) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
		return path
	}
	stale := write("run-old.log", old)
	current := write("run-current.log", old)
	fresh := write("run-new.log", time.Now())
	other := write("notes.txt", old)

	removed := PruneOldFiles(NewNop(), dir, "run-*.log", 24*time.Hour, current)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("expected stale log to be removed")
	}
	for _, path := range []string{current, fresh, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
}

func TestPruneOldFilesDisabled(t *testing.T) {
	if got := PruneOldFiles(nil, t.TempDir(), "*", 0); got != 0 {
		t.Fatalf("expected pruning disabled, got %d", got)
	}
}
