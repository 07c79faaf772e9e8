// Package ladder drives the attempt loop that walks a compression run down
// the bitrate, resolution, and frame-rate ladders until the encoded output
// fits the target size.
//
// Machine.Run owns the sequence of bitrate.Params values and the attempt
// history. Each attempt is delegated to an Encoder (normally
// encoding.Driver); the machine only inspects the produced size and decides
// whether to accept, retry at a lower bitrate, downscale, reduce the frame
// rate, or give up. Resolution is always tried before frame rate.
//
// Terminal outcomes:
//   - a successful Result (size within target, or within AcceptTolerance at
//     the attempt cap)
//   - a *Failure classified as unachievable or convergence
//   - ErrCancelled when the context is cancelled; no result is produced
//   - any other error from the encoder (input or capability problems)
package ladder
