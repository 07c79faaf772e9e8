package encoding

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clipfit/internal/fileutil"
	"clipfit/internal/services"
)

// AttemptPath returns the scratch path for attempt n of a run.
func AttemptPath(workDir string, attempt int) string {
	return filepath.Join(workDir, fmt.Sprintf("attempt-%d.mp4", attempt))
}

// DeriveOutputPath places "<stem><suffix>.mp4" in outputDir, or next to the
// input when outputDir is empty.
func DeriveOutputPath(inputPath, outputDir, suffix string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." {
		stem = "video"
	}
	dir := strings.TrimSpace(outputDir)
	if dir == "" {
		dir = filepath.Dir(inputPath)
	}
	return filepath.Join(dir, stem+suffix+".mp4")
}

// FinalizeOutput moves the accepted attempt to its destination.
func FinalizeOutput(attemptPath, destination string) (string, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" || destination == attemptPath {
		return attemptPath, nil
	}
	if dir := filepath.Dir(destination); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", services.Wrap(services.ErrConfiguration, "finalizing", "create output dir", "Failed to create output directory", err)
		}
	}
	if err := fileutil.MoveFile(attemptPath, destination); err != nil {
		return "", services.Wrap(services.ErrTransient, "finalizing", "move output", "Failed to move encoded output into destination", err)
	}
	return destination, nil
}
