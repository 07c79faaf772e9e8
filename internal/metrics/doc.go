// Package metrics exposes Prometheus collectors for compression runs.
//
// Metrics implements worker.Recorder so it can be attached to a worker.Host
// alongside the history store. The daemon serves Handler on /metrics and
// wraps API routes with InstrumentHandler.
package metrics
