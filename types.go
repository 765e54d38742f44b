// Package txfeed turns a pull-based commit store into a push-based, paged,
// cache-coalesced transaction stream for downstream read-model projectors.
package txfeed

import (
	"context"
	"time"
)

// Checkpoint is an opaque, totally ordered token assigned by the backing
// store to each commit. The core never parses or normalizes it; equality is
// the only operation it relies on.
type Checkpoint string

// EventEnvelope is one event within a Transaction, copied shape-preservingly
// from the backing store's commit.
type EventEnvelope struct {
	Body    []byte
	Headers map[string]string
}

// Transaction is an immutable record extracted from a backing-store commit.
type Transaction struct {
	ID           string
	StreamID     string
	Checkpoint   Checkpoint
	TimestampUTC time.Time
	Events       []EventEnvelope
}

// Page is a bounded batch of transactions delivered to a subscriber in one
// callback. PreviousCheckpoint is the cursor the page answers; if non-empty,
// the first transaction's predecessor is PreviousCheckpoint and transactions
// appear in backing-store order.
type Page struct {
	PreviousCheckpoint Checkpoint
	Transactions       []Transaction
}

// LastCheckpoint returns the checkpoint of the last transaction in the page,
// or "" when the page is empty.
func (p Page) LastCheckpoint() Checkpoint {
	if len(p.Transactions) == 0 {
		return ""
	}
	return p.Transactions[len(p.Transactions)-1].Checkpoint
}

// Commit is one atomic group of events written to one stream at one point in
// the backing store's log, as produced by a BackingStore.
type Commit struct {
	CommitID        string
	StreamID        string
	CheckpointToken Checkpoint
	CommitStamp     time.Time
	Events          []EventEnvelope
}

// BackingStore is the external, ordered, checkpointed commit log this
// adapter pages over. GetFrom returns commits strictly after checkpoint, in
// checkpoint order; the caller applies its own upper bound of limit.
type BackingStore interface {
	GetFrom(ctx context.Context, checkpoint Checkpoint, limit int) ([]Commit, error)
	Close() error
}

// Observer is the push target for pages. Subscription workers serialize
// calls on a given observer; a single worker never calls it concurrently.
type Observer interface {
	OnNext(transactions []Transaction)
	OnError(err error)
	OnCompleted()
}

func commitToTransaction(c Commit) Transaction {
	return Transaction{
		ID:           c.CommitID,
		StreamID:     c.StreamID,
		Checkpoint:   c.CheckpointToken,
		TimestampUTC: c.CommitStamp,
		Events:       c.Events,
	}
}
