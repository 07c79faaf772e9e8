package daemon

import (
	"context"
	"slices"
	"sync"
	"time"

	"clipfit/internal/services"
	"clipfit/internal/worker"
)

// EventBatch is a slice of a run's event log.
type EventBatch struct {
	Envelopes []worker.Envelope
	// Next is the sequence number to pass as after on the following call.
	Next int64
	// Done is set once the run's terminal message is in the log and every
	// envelope after the requested sequence has been returned.
	Done bool
	// Missed counts envelopes evicted before the caller read them.
	Missed int64
}

type runLog struct {
	envelopes []worker.Envelope
	next      int64
	done      bool
	notify    chan struct{}
}

// eventLog keeps the most recent envelopes of the most recent runs.
type eventLog struct {
	mu       sync.Mutex
	limit    int
	keepRuns int
	runs     map[string]*runLog
	order    []string
}

func newEventLog(limit, keepRuns int) *eventLog {
	return &eventLog{
		limit:    max(limit, 1),
		keepRuns: max(keepRuns, 1),
		runs:     make(map[string]*runLog),
	}
}

func (l *eventLog) open(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs[id] = &runLog{next: 1, notify: make(chan struct{})}
	l.order = append(l.order, id)
	for len(l.order) > l.keepRuns {
		oldest := l.order[0]
		l.order = l.order[1:]
		if run := l.runs[oldest]; run != nil {
			close(run.notify)
		}
		delete(l.runs, oldest)
	}
}

func (l *eventLog) append(id string, msg worker.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	run := l.runs[id]
	if run == nil {
		return
	}
	run.envelopes = append(run.envelopes, worker.Wrap(id, run.next, msg))
	run.next++
	if over := len(run.envelopes) - l.limit; over > 0 {
		run.envelopes = slices.Delete(run.envelopes, 0, over)
	}
	run.wake()
}

func (l *eventLog) finish(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if run := l.runs[id]; run != nil {
		run.done = true
		run.wake()
	}
}

func (r *runLog) wake() {
	close(r.notify)
	r.notify = make(chan struct{})
}

// since returns envelopes after seq. With wait > 0 it blocks until at least
// one envelope is available, the run ends, or wait elapses.
func (l *eventLog) since(ctx context.Context, id string, after int64, wait time.Duration) (EventBatch, error) {
	var timeout <-chan time.Time
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}
	for {
		l.mu.Lock()
		run, ok := l.runs[id]
		if !ok {
			l.mu.Unlock()
			return EventBatch{}, services.Wrap(services.ErrNotFound, "daemon", "events", "no events for run "+id, nil)
		}
		batch := run.collect(after)
		notify := run.notify
		l.mu.Unlock()

		if len(batch.Envelopes) > 0 || batch.Done || wait <= 0 {
			return batch, nil
		}
		select {
		case <-notify:
		case <-timeout:
			return batch, nil
		case <-ctx.Done():
			return batch, ctx.Err()
		}
	}
}

func (r *runLog) collect(after int64) EventBatch {
	batch := EventBatch{Next: max(after, 0), Done: r.done}
	if len(r.envelopes) > 0 {
		if first := r.envelopes[0].Seq; first > after+1 {
			batch.Missed = first - after - 1
		}
	}
	for _, env := range r.envelopes {
		if env.Seq <= after {
			continue
		}
		batch.Envelopes = append(batch.Envelopes, env)
		batch.Next = env.Seq
	}
	return batch
}
