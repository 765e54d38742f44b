package txfeed

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// singleflightKey is the one constant key every fetch is coalesced under.
// Keying by cursor would let concurrent fetches for different cursors run
// in parallel, defeating the at-most-one-fetch invariant; the simpler
// invariant (one load total, regardless of which cursor started it) is what
// provides back-pressure on the backing store.
const singleflightKey = "fetch"

// pageAssembler combines cache-hit extraction with single-flight loader
// invocation. It is shared by every subscription on an adapter.
type pageAssembler struct {
	store       BackingStore
	cache       *checkpointCache
	throttle    *tailPollThrottle
	group       singleflight.Group
	maxPageSize int
	metrics     *metrics
	log         *log.Entry

	// ctx is the adapter-scoped context. Backing-store fetches run under
	// this context, never under an individual subscriber's context: a
	// cancelled subscriber must not cancel a fetch other subscribers are
	// depending on. It is cancelled only by the adapter's Dispose.
	ctx context.Context

	disposed func() bool
}

func newPageAssembler(store BackingStore, cfg config, m *metrics, ctx context.Context, disposed func() bool) *pageAssembler {
	return &pageAssembler{
		store:       store,
		cache:       newCheckpointCache(cfg.cacheSize),
		throttle:    newTailPollThrottle(cfg.pollInterval),
		maxPageSize: cfg.maxPageSize,
		metrics:     m,
		log:         cfg.logger,
		ctx:         ctx,
		disposed:    disposed,
	}
}

// getNextPage is the public entry point used by a subscription worker.
func (a *pageAssembler) getNextPage(ctx context.Context, cursor Checkpoint) (Page, error) {
	if a.disposed() {
		return Page{}, ErrAdapterDisposed
	}

	page, sawMiss := a.tryGetNextPageFromCache(cursor)
	if sawMiss && len(page.Transactions) > 0 {
		a.triggerPreload(page.LastCheckpoint())
	}
	if len(page.Transactions) > 0 {
		return page, nil
	}

	result, err := a.loadNextPageSequentially(ctx, cursor)
	if err != nil {
		return Page{}, err
	}
	if len(result.Transactions) == a.maxPageSize {
		a.triggerPreload(result.LastCheckpoint())
	}
	return result, nil
}

// tryGetNextPageFromCache walks the cache chain starting at cursor, stopping
// at maxPageSize transactions or at the first miss. The returned bool
// reports whether the walk stopped because of a miss (as opposed to hitting
// maxPageSize), which is the trigger condition for an asynchronous preload.
func (a *pageAssembler) tryGetNextPageFromCache(cursor Checkpoint) (Page, bool) {
	page := Page{PreviousCheckpoint: cursor}

	key := cursor
	for len(page.Transactions) < a.maxPageSize {
		tx, ok := a.cache.tryGet(key)
		if !ok {
			a.metrics.cacheMissesTotal.Inc()
			return page, true
		}
		a.metrics.cacheHitsTotal.Inc()
		page.Transactions = append(page.Transactions, tx)
		key = tx.Checkpoint
	}
	return page, false
}

// loadNextPageSequentially loops until it produces a non-empty page whose
// PreviousCheckpoint equals cursor, reconciling the fact that a single-flight
// round may have been won on behalf of a different caller's cursor.
func (a *pageAssembler) loadNextPageSequentially(ctx context.Context, cursor Checkpoint) (Page, error) {
	for {
		if a.disposed() {
			return Page{}, nil
		}

		select {
		case <-ctx.Done():
			return Page{}, ctx.Err()
		case <-a.ctx.Done():
			return Page{}, nil
		default:
		}

		delay := a.throttle.delayFor(cursor, time.Now())
		if delay > 0 {
			a.metrics.tailPollDelaySeconds.Observe(delay.Seconds())
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return Page{}, ctx.Err()
			case <-a.ctx.Done():
				return Page{}, nil
			}
		}

		result, err := a.fetchOnce(cursor)
		if err != nil {
			return Page{}, err
		}

		if result.PreviousCheckpoint == cursor && len(result.Transactions) > 0 {
			return result, nil
		}
		// Wrong cursor (another caller's fetch won the round) or an empty
		// result (tail, or a swallowed backing-store failure): loop. The
		// cache is now warmer, or the tail observation now throttles us.
	}
}

// fetchOnce runs the single-flight protocol for one round: install or join
// the shared in-flight fetch, and return whatever it resolves to.
func (a *pageAssembler) fetchOnce(cursor Checkpoint) (Page, error) {
	v, err, _ := a.group.Do(singleflightKey, func() (interface{}, error) {
		return a.tryLoadNextPage(cursor)
	})
	if err != nil {
		return Page{}, err
	}
	return v.(Page), nil
}

// tryLoadNextPage is executed by the single-flight winner for one round. It
// never returns an error from a failed backing-store fetch — those are
// logged and reported as an empty page so the outer loop retries after the
// poll-interval throttle (see errors.go's BackingStoreFetchFailure doc).
func (a *pageAssembler) tryLoadNextPage(cursor Checkpoint) (Page, error) {
	if a.disposed() {
		return Page{}, nil
	}

	// Another coalesced writer may have populated the cache while we were
	// queued to become the winner.
	if page, _ := a.tryGetNextPageFromCache(cursor); len(page.Transactions) > 0 {
		return page, nil
	}

	requestedAt := time.Now()
	commits, err := a.store.GetFrom(a.ctx, cursor, a.maxPageSize)
	a.metrics.backingStoreFetchesTotal.Inc()
	if err != nil {
		fetchErr := &BackingStoreFetchFailure{Checkpoint: cursor, Err: err}
		a.log.WithError(fetchErr).Warn("txfeed: backing store fetch failed, reporting empty page")
		// Throttle the retry from this cursor like an empty tail poll.
		a.throttle.record(cursor, requestedAt)
		return Page{PreviousCheckpoint: cursor}, nil
	}

	transactions := make([]Transaction, len(commits))
	for i, c := range commits {
		transactions[i] = commitToTransaction(c)
	}

	page := Page{PreviousCheckpoint: cursor, Transactions: transactions}

	// Any fetch that sees fewer than maxPageSize results — including zero —
	// is a tail observation and must throttle the next "am I still at the
	// tail?" poll from the same cursor (§4.2, §8.5). An empty fetch has no
	// LastCheckpoint, so it is recorded against cursor itself.
	switch {
	case len(transactions) == 0:
		a.throttle.record(cursor, requestedAt)
	case len(transactions) < a.maxPageSize:
		a.throttle.record(page.LastCheckpoint(), requestedAt)
	}

	a.populateCache(cursor, transactions)

	return page, nil
}

// populateCache inserts a freshly fetched batch in reverse order: tail
// entries before the head entry. A follower racing to walk the chain from
// cursor must never observe the head pointing at a successor whose own
// successor has not yet been installed.
func (a *pageAssembler) populateCache(cursor Checkpoint, transactions []Transaction) {
	if len(transactions) == 0 {
		return
	}
	for i := len(transactions) - 1; i >= 1; i-- {
		a.cache.set(transactions[i-1].Checkpoint, transactions[i])
	}
	a.cache.set(cursor, transactions[0])
}

// triggerPreload fires off an asynchronous fetch starting at checkpoint,
// discarding its result; it exists purely to warm the cache ahead of the
// next caller.
func (a *pageAssembler) triggerPreload(checkpoint Checkpoint) {
	a.metrics.preloadsTriggeredTotal.Inc()
	go func() {
		if a.disposed() {
			return
		}
		if _, err := a.fetchOnce(checkpoint); err != nil {
			a.log.WithFields(log.Fields{"checkpoint": checkpoint, "err": err}).Debug("txfeed: preload fetch did not complete")
		}
	}()
}
