package txfeed

import (
	"errors"
	"fmt"
)

// ErrAdapterDisposed is returned by any operation entered after Dispose has
// run to completion. Subscribe returns it synchronously; worker loops treat
// it as normal termination rather than a failure.
var ErrAdapterDisposed = errors.New("txfeed: adapter disposed")

// BackingStoreFetchFailure wraps an error raised by a BackingStore during
// GetFrom. It is never returned to a caller of getNextPage — it is swallowed
// inside tryLoadNextPage and logged, causing the slow-path loop to retry
// after the poll-interval throttle. It exists as a type so that swallowed
// failures can still be logged with their underlying cause intact.
type BackingStoreFetchFailure struct {
	Checkpoint Checkpoint
	Err        error
}

func (e *BackingStoreFetchFailure) Error() string {
	return fmt.Sprintf("txfeed: backing store fetch from %q failed: %v", e.Checkpoint, e.Err)
}

func (e *BackingStoreFetchFailure) Unwrap() error {
	return e.Err
}

// SubscriptionObserverFailure wraps an error originating from an Observer
// callback. It is terminal for the subscription that produced it.
type SubscriptionObserverFailure struct {
	Err error
}

func (e *SubscriptionObserverFailure) Error() string {
	return fmt.Sprintf("txfeed: observer callback failed: %v", e.Err)
}

func (e *SubscriptionObserverFailure) Unwrap() error {
	return e.Err
}
