// Package media describes the input video a compression run operates on.
//
// VideoMetadata is produced once per input (normally from ffprobe output) and
// is never mutated afterwards. Probe runs ffprobe and converts the result;
// FromProbe performs the conversion for an already captured payload so tests
// and the daemon can reuse a cached probe.
package media
