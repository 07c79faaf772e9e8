// Package audio decides how the source audio is carried into the compressed
// output.
//
// Output audio is never re-encoded. An AAC track is copied bit-for-bit into
// the MP4; anything else is dropped and the output is silent. When several
// AAC tracks exist the default-flagged one wins, then English, then the one
// with the most channels.
//
// Primary entry point:
//   - Select: returns the Plan for a set of ffprobe streams
package audio
