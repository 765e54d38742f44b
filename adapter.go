package txfeed

import (
	"context"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Adapter turns a BackingStore into a push-based, paged, cache-coalesced
// transaction stream. It holds the set of live subscriptions and coordinates
// orderly shutdown: cancel subscriptions, await the in-flight loader, then
// release the backing store.
type Adapter struct {
	store     BackingStore
	assembler *pageAssembler
	metrics   *metrics
	log       *log.Entry

	ctx    context.Context
	cancel context.CancelFunc

	subsMu sync.Mutex
	subs   map[*Subscription]struct{}

	disposed    int32
	disposeOnce sync.Once
}

// New constructs an Adapter over the given BackingStore. See WithCacheSize,
// WithPollInterval, WithMaxPageSize, WithLogger, and WithRegisterer for
// recognized options.
func New(store BackingStore, opts ...Option) *Adapter {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := newMetrics(cfg.registerer)

	a := &Adapter{
		store:   store,
		metrics: m,
		log:     cfg.logger,
		ctx:     ctx,
		cancel:  cancel,
		subs:    make(map[*Subscription]struct{}),
	}
	a.assembler = newPageAssembler(store, cfg, m, ctx, a.isDisposed)
	return a
}

func (a *Adapter) isDisposed() bool {
	return atomic.LoadInt32(&a.disposed) != 0
}

// Subscribe registers a new Subscription that delivers transactions from
// checkpoint forward to observer. It fails synchronously with
// ErrAdapterDisposed if the adapter has already been disposed.
func (a *Adapter) Subscribe(checkpoint Checkpoint, observer Observer) (*Subscription, error) {
	if a.isDisposed() {
		return nil, ErrAdapterDisposed
	}

	a.subsMu.Lock()
	if a.isDisposed() {
		a.subsMu.Unlock()
		return nil, ErrAdapterDisposed
	}
	sub := newSubscription(a, observer, checkpoint)
	a.subs[sub] = struct{}{}
	a.subsMu.Unlock()

	a.metrics.subscriptionsActive.Inc()
	a.log.WithField("cursor", checkpoint).Info("txfeed: subscription created")
	return sub, nil
}

func (a *Adapter) removeSubscription(sub *Subscription) {
	a.subsMu.Lock()
	_, existed := a.subs[sub]
	delete(a.subs, sub)
	a.subsMu.Unlock()
	if existed {
		a.metrics.subscriptionsActive.Dec()
	}
}

// Dispose is idempotent and terminal: it flips the disposed flag, cancels
// the adapter-scoped context, closes every live subscription, waits for any
// still in-flight single-flight fetch to resolve, then releases the backing
// store. Subscribe calls made after Dispose returns fail with
// ErrAdapterDisposed.
func (a *Adapter) Dispose() error {
	var closeErr error
	a.disposeOnce.Do(func() {
		atomic.StoreInt32(&a.disposed, 1)
		a.cancel()

		a.subsMu.Lock()
		live := make([]*Subscription, 0, len(a.subs))
		for sub := range a.subs {
			live = append(live, sub)
		}
		a.subsMu.Unlock()

		for _, sub := range live {
			sub.Close()
		}

		// A preload or a slow-path fetch may still be running its
		// single-flight round; Do blocks until it returns, so a final
		// call here waits out any such round before we release the store.
		a.assembler.group.Do(singleflightKey, func() (interface{}, error) {
			return Page{}, nil
		})

		closeErr = a.store.Close()
		a.log.Info("txfeed: adapter disposed")
	})
	return closeErr
}
