// Command clipfit compresses videos to fit under a byte budget.
//
// Compression runs in-process with `clipfit compress`, or through a
// long-running daemon started with `clipfit daemon start` and fed with
// `clipfit submit`. Supporting commands inspect inputs (`probe`), review
// recorded runs (`history`), manage configuration (`config`), and check the
// host environment (`doctor`).
package main
