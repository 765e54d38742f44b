package txfeed

import (
	"sync/atomic"
	"time"
)

// tailObservation records that the last fetch starting at Checkpoint saw the
// tail of the log (returned fewer than maxPageSize transactions), and when
// that observation was made.
type tailObservation struct {
	checkpoint Checkpoint
	observedAt time.Time
}

// tailPollThrottle holds a single tailObservation atomically. It is advisory,
// not a correctness mechanism: racy overwrites are acceptable, the only
// requirement is atomic whole-record replacement.
type tailPollThrottle struct {
	slot         atomic.Value // holds *tailObservation, never nil once stored
	pollInterval time.Duration
}

func newTailPollThrottle(pollInterval time.Duration) *tailPollThrottle {
	return &tailPollThrottle{pollInterval: pollInterval}
}

func (t *tailPollThrottle) observe() *tailObservation {
	v := t.slot.Load()
	if v == nil {
		return nil
	}
	return v.(*tailObservation)
}

func (t *tailPollThrottle) record(checkpoint Checkpoint, observedAt time.Time) {
	t.slot.Store(&tailObservation{checkpoint: checkpoint, observedAt: observedAt})
}

// delayFor returns how long a caller about to fetch from cursor must wait
// before issuing the fetch: zero unless cursor equals the recorded tail
// checkpoint, in which case it is the remaining time until
// observedAt+pollInterval, floored at zero.
func (t *tailPollThrottle) delayFor(cursor Checkpoint, now time.Time) time.Duration {
	obs := t.observe()
	if obs == nil || obs.checkpoint != cursor {
		return 0
	}
	remaining := obs.observedAt.Add(t.pollInterval).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
