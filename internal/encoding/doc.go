// Package encoding runs a single encode attempt: decode the source frame by
// frame, decimate and rescale as the attempt's Params require, and feed the
// result to an H.264/MP4 encoder.
//
// The codec itself sits behind the Codec interface. FFmpegCodec implements it
// with an ffmpeg process pair; tests substitute in-memory fakes.
//
// Driver.Encode honours context cancellation at every frame boundary. When
// cancelled, the encoder is aborted, any partial output is removed, and
// ctx.Err() is returned.
package encoding
