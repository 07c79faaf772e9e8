package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clipfit/internal/ipc"
	"clipfit/internal/worker"
)

// EventSource is the part of the IPC client Follow needs.
type EventSource interface {
	Events(runID string, after int64, wait time.Duration) (*ipc.EventsResponse, error)
}

// FollowWait is how long each poll is held open by the daemon.
const FollowWait = 10 * time.Second

// Follow polls runID's event log and passes each envelope to handle until the
// run is done or ctx is cancelled. It returns the terminal envelope, if one
// was seen. Missed counts envelopes dropped from the daemon's buffer before
// they could be read.
func Follow(ctx context.Context, source EventSource, runID string, handle func(worker.Envelope)) (*worker.Envelope, int64, error) {
	var (
		after    int64
		missed   int64
		terminal *worker.Envelope
	)
	for {
		if err := ctx.Err(); err != nil {
			return terminal, missed, err
		}
		resp, err := source.Events(runID, after, FollowWait)
		if err != nil {
			return terminal, missed, fmt.Errorf("poll events for %s: %w", runID, err)
		}
		if resp == nil {
			return terminal, missed, errors.New("empty events response")
		}
		missed += resp.Missed
		for _, env := range resp.Events {
			if handle != nil {
				handle(env)
			}
			if env.Kind == worker.KindComplete || env.Kind == worker.KindError {
				captured := env
				terminal = &captured
			}
		}
		if resp.Next > after {
			after = resp.Next
		}
		if resp.Done {
			return terminal, missed, nil
		}
	}
}
