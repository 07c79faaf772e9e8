// Package history persists compression runs and their attempts in SQLite.
//
// The store records one row per run (settings, probed metadata, outcome) and
// one row per encode attempt (parameters, output size, ladder decision). It
// backs `clipfit history`, the daemon's /api/runs endpoints, and, through
// Recorder, plugs into worker.Host as a run lifecycle observer.
//
// The database uses WAL mode with a busy timeout, and writes retry briefly on
// SQLITE_BUSY so the CLI can read while the daemon writes.
package history
