// Package bitrate converts a target output size and input metadata into
// encode parameters, and adjusts those parameters after an attempt overshoots.
//
// Every function here is pure. Params is a value type: callers derive a new
// Params for each attempt rather than patching the previous one, which keeps
// attempt history inspectable.
//
// Key entry points:
//   - InitialParams: first-attempt parameters for a target size
//   - RetryBitrate: proportional correction after an overshoot
//   - IsBitrateTooLowForResolution: trigger for resolution/fps escalation
//   - NextResolutionStep / NextFPSStep: the fixed escalation ladders
//   - ScaledDimensions: aspect-preserving, even-sized downscale
package bitrate
