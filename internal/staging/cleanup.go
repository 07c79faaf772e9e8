package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipfit/internal/logging"
)

// RunDirPrefix names the per-run working directories created by the worker.
// The worker appends the first eight characters of the run ID and a random
// suffix: run-<id8>-<rand>.
const RunDirPrefix = "run-"

// DirInfo describes one run working directory.
type DirInfo struct {
	Name    string
	Path    string
	RunID   string
	ModTime time.Time
	Size    int64
}

// CleanResult is the outcome of one sweep. Reclaimed counts the bytes held by
// removed directories.
type CleanResult struct {
	Removed   []string
	Reclaimed int64
	Errors    []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// RunIDPrefix extracts the run ID prefix from a working directory name.
func RunIDPrefix(name string) string {
	rest, ok := strings.CutPrefix(name, RunDirPrefix)
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "-")
	return id
}

// ListDirectories returns the run directories under stagingDir. A missing
// staging directory yields nil.
func ListDirectories(stagingDir string) ([]DirInfo, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(stagingDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), RunDirPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(stagingDir, entry.Name())
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    path,
			RunID:   RunIDPrefix(entry.Name()),
			ModTime: info.ModTime(),
			Size:    dirSize(path),
		})
	}
	return dirs, nil
}

// CleanStale removes run directories last modified before now-maxAge.
// Directories whose base name is in keep belong to the active run and are
// skipped. Anything not created by a run is left alone.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, keep map[string]struct{}, logger *slog.Logger) CleanResult {
	var result CleanResult
	if maxAge <= 0 {
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	dirs, err := ListDirectories(stagingDir)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, dir := range dirs {
		if ctx.Err() != nil {
			break
		}
		if _, active := keep[dir.Name]; active || !dir.ModTime.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir.Path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale run directory", "staging_cleanup_failed",
				logging.String("path", dir.Path),
				logging.String(logging.FieldRunID, dir.RunID),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
				logging.Error(err),
			)
			continue
		}
		result.Removed = append(result.Removed, dir.Path)
		result.Reclaimed += dir.Size
		logger.Info("removed stale run directory",
			logging.String("path", dir.Path),
			logging.String(logging.FieldRunID, dir.RunID),
			logging.Duration("age", time.Since(dir.ModTime)),
			logging.Int64("reclaimed_bytes", dir.Size),
			logging.String(logging.FieldEventType, "staging_cleanup"),
		)
	}
	return result
}

// TotalSize sums the sizes of dirs.
func TotalSize(dirs []DirInfo) int64 {
	var total int64
	for _, d := range dirs {
		total += d.Size
	}
	return total
}

func dirSize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, infoErr := d.Info(); infoErr == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}
