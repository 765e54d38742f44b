package txfeed

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Subscription exposes the adapter as a push stream. A long-running worker
// repeatedly asks the page assembler for the next page past its cursor and
// pushes it to the Observer; cancellation and error surfacing are handled
// here because both are coupled to the loader's lifecycle.
type Subscription struct {
	adapter  *Adapter
	observer Observer
	cursor   Checkpoint

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
	failed    bool
}

func newSubscription(adapter *Adapter, observer Observer, cursor Checkpoint) *Subscription {
	ctx, cancel := context.WithCancel(adapter.ctx)
	s := &Subscription{
		adapter:  adapter,
		observer: observer,
		cursor:   cursor,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Subscription) run() {
	defer close(s.done)

	for {
		page, err := s.adapter.assembler.getNextPage(s.ctx, s.cursor)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ErrAdapterDisposed) {
				return
			}
			s.failed = true
			s.deliverError(err)
			return
		}

		select {
		case <-s.ctx.Done():
			return
		default:
		}

		if len(page.Transactions) > 0 {
			if !s.deliverNext(page.Transactions) {
				return
			}
			s.cursor = page.LastCheckpoint()
		}
	}
}

// deliverNext calls the observer's OnNext, recovering from a panic inside
// the callback and treating it as a terminal SubscriptionObserverFailure,
// per the contract that any failure from the observer is fatal for this
// subscription alone.
func (s *Subscription) deliverNext(transactions []Transaction) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.failed = true
			s.deliverError(&SubscriptionObserverFailure{Err: panicToError(r)})
			ok = false
		}
	}()
	s.observer.OnNext(transactions)
	return true
}

func (s *Subscription) deliverError(err error) {
	defer func() { recover() }()
	s.observer.OnError(err)
}

// Close disposes the subscription: idempotent, synchronous up to awaiting
// the worker, and removes the subscription from the adapter's set.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		s.adapter.removeSubscription(s)
		if !s.failed {
			func() {
				defer func() { recover() }()
				s.observer.OnCompleted()
			}()
		}
		s.adapter.log.WithField("cursor", s.cursor).Info("txfeed: subscription closed")
	})
}

func panicToError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return errPanic{v: r}
}

type errPanic struct{ v interface{} }

func (e errPanic) Error() string {
	return fmt.Sprintf("panic: %v", e.v)
}
