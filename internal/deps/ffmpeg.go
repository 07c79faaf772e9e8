package deps

import (
	"context"
	"fmt"
)

// EncoderLister is satisfied by *ffmpeg.Client.
type EncoderLister interface {
	HasEncoder(ctx context.Context) (bool, error)
	EncoderName() string
}

// CheckEncoder reports whether ffmpeg provides the configured H.264 encoder.
func CheckEncoder(ctx context.Context, client EncoderLister) Status {
	name := client.EncoderName()
	result := Status{
		Name:        "H.264 encoder",
		Command:     name,
		Description: "Encoder used for every attempt",
	}
	ok, err := client.HasEncoder(ctx)
	switch {
	case err != nil:
		result.Detail = err.Error()
	case !ok:
		result.Detail = fmt.Sprintf("ffmpeg does not list encoder %q", name)
	default:
		result.Available = true
	}
	return result
}
