// Package services defines shared utilities consumed by the compression
// pipeline and its external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, attempt indexes, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper, and Classify which maps
//     failures onto the kinds reported to callers (input, capability,
//     convergence).
//
// Subpackage ffmpeg wraps the ffmpeg binary as the decode/encode capability.
package services
