package txfeed

import (
	lru "github.com/hashicorp/golang-lru"
)

// checkpointCache maps a predecessor checkpoint to the single transaction
// that succeeds it in the log. It wraps hashicorp/golang-lru, which is
// internally mutex-protected, so tryGet/set are safe under concurrent access
// without any extra locking here.
//
// golang-lru's v1 constructor rejects a zero size, but the core allows
// cacheSize == 0 to degenerate into a pass-through cache (every tryGet
// misses). inner is nil in that case and every operation is a no-op.
type checkpointCache struct {
	inner *lru.Cache
}

func newCheckpointCache(size int) *checkpointCache {
	if size <= 0 {
		return &checkpointCache{}
	}
	c, err := lru.New(size)
	if err != nil {
		// size > 0 was just checked; lru.New only fails for size <= 0.
		return &checkpointCache{}
	}
	return &checkpointCache{inner: c}
}

func (c *checkpointCache) tryGet(key Checkpoint) (Transaction, bool) {
	if c.inner == nil {
		return Transaction{}, false
	}
	v, ok := c.inner.Get(key)
	if !ok {
		return Transaction{}, false
	}
	return v.(Transaction), true
}

func (c *checkpointCache) set(key Checkpoint, value Transaction) {
	if c.inner == nil {
		return
	}
	c.inner.Add(key, value)
}
