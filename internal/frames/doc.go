// Package frames holds decoded video frames between the decoder and encoder
// processes.
//
// Frames are pooled RGBA buffers. Whoever acquires a Frame must Release it
// exactly once, normally with defer, on every path through the loop that
// acquired it. Release is idempotent so an early release followed by the
// deferred one is harmless.
package frames
