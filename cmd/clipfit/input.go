package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clipfit/internal/config"
	"clipfit/internal/encoding"
)

// resolveInput expands and absolutizes a video path and checks it is a file.
func resolveInput(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", errors.New("input path is required")
	}
	path, err := config.ExpandPath(arg)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("inspect input %q: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("input %q is a directory", path)
	}
	return path, nil
}

// resolveOutput expands an optional output path. A directory (existing, or
// written with a trailing slash) receives the derived output filename.
func resolveOutput(arg, input, suffix string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", nil
	}
	trailing := strings.HasSuffix(arg, string(filepath.Separator))
	path, err := config.ExpandPath(arg)
	if err != nil {
		return "", err
	}
	if info, statErr := os.Stat(path); trailing || (statErr == nil && info.IsDir()) {
		return encoding.DeriveOutputPath(input, path, suffix), nil
	}
	return path, nil
}
