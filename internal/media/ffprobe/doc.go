// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no clipfit-specific dependencies and could be extracted
// as a standalone library.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties, including frame rate
//     and frame count helpers
//   - Format: container-level metadata (duration, size, bitrate)
//
// Primary entry points:
//   - Inspect: executes ffprobe and returns parsed Result
//   - Parse: decodes an already captured ffprobe payload
package ffprobe
