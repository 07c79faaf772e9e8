package logs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrRunLogNotFound means no per-run log matches the requested ID.
var ErrRunLogNotFound = errors.New("run log not found")

// RunLogPath resolves the per-run log in dir whose run ID starts with prefix.
// An ambiguous prefix is an error.
func RunLogPath(dir, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if dir == "" || prefix == "" {
		return "", ErrRunLogNotFound
	}
	if strings.ContainsAny(prefix, `/\`) {
		return "", fmt.Errorf("invalid run id %q", prefix)
	}
	exact := filepath.Join(dir, prefix+".log")
	if info, err := os.Stat(exact); err == nil && !info.IsDir() {
		return exact, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"*.log"))
	if err != nil {
		return "", fmt.Errorf("search run logs: %w", err)
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunLogNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("run id prefix %q matches %d logs", prefix, len(matches))
	}
}
