// Package logging assembles structured slog loggers and formatting helpers used
// across clipfit.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with run IDs, attempt indexes, and stages. The package also provides a
// no-op logger for tests, a fan-out handler for per-run log files, and a
// progress sampler that throttles per-frame progress into bucketed log lines.
package logging
