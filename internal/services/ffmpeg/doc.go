// Package ffmpeg drives ffmpeg as a decode pipe and an encode/mux pipe.
//
// The decoder emits packed RGBA frames on stdout at the source resolution.
// The encoder reads packed RGBA frames on stdin and writes an H.264 MP4,
// optionally copying one AAC track from the original input. Both processes
// run in their own process group so cancellation can kill any helpers ffmpeg
// spawned.
//
// Capability probes (decoder list, encoder profile/level support) are cached
// per Client.
package ffmpeg
