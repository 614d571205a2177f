// Package timeout implements the one-shot, iteration-tagged self-message
// scheduler described in the songlist protocol: a handler schedules a
// message to be delivered to its own mailbox after a delay, and tags
// it with the commit iteration under which it was scheduled so a
// stale delivery can be recognized and dropped. There is no
// cancellation API — iteration tagging replaces it.
package timeout

import (
	"context"
	"time"
)

// Msg is any self-addressed timeout message. SourceIter must equal the
// room's commitIter at delivery time for the handler to act on it.
type Msg interface {
	SourceIter() int
}

// Scheduler delivers Msg values to out after d, unless ctx is done
// first. Each call runs its own timer goroutine; callers are expected
// to fire-and-forget, matching "setTimeout(msg)" in the spec.
type Scheduler struct {
	out chan<- Msg
}

func NewScheduler(out chan<- Msg) *Scheduler {
	return &Scheduler{out: out}
}

// Schedule delivers msg to the scheduler's output channel after d,
// unless ctx is cancelled first (used only for shutdown, never to
// implement semantic cancellation of a round — the protocol has none).
func (s *Scheduler) Schedule(ctx context.Context, d time.Duration, msg Msg) {
	go func() {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			select {
			case s.out <- msg:
			case <-ctx.Done():
			}
		case <-ctx.Done():
		}
	}()
}

// Current reports whether msg was scheduled under the room's present
// commitIter; stale timeouts must be silently dropped by the caller.
func Current(msg Msg, commitIter int) bool {
	return msg.SourceIter() == commitIter
}
