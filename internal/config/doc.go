// Package config loads, normalizes, and validates clipfit configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CLIPFIT_FFMPEG and CLIPFIT_FFPROBE. Human sizes ("10MiB", "25MB") are parsed
// with go-humanize; decimal units are powers of 1000 and binary units powers
// of 1024.
package config
