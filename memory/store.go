// Package memory provides an in-memory txfeed.BackingStore, useful for
// tests and demonstrations.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shogotsuneto/txfeed"
)

// Store is a single, global, checkpoint-ordered commit log held in memory.
// Checkpoints are monotonically increasing integers encoded as zero-padded
// decimal strings, so lexicographic and numeric ordering agree.
type Store struct {
	mu      sync.RWMutex
	commits []txfeed.Commit
}

// New creates an empty in-memory backing store.
func New() *Store {
	return &Store{}
}

func encodeCheckpoint(seq int) txfeed.Checkpoint {
	return txfeed.Checkpoint(fmt.Sprintf("%020d", seq))
}

// Append commits a new transaction for streamID carrying events, assigning
// it the next checkpoint in sequence. It returns the commit's checkpoint.
func (s *Store) Append(streamID string, events []txfeed.EventEnvelope) (txfeed.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := len(s.commits) + 1
	checkpoint := encodeCheckpoint(seq)
	s.commits = append(s.commits, txfeed.Commit{
		CommitID:        uuid.NewString(),
		StreamID:        streamID,
		CheckpointToken: checkpoint,
		CommitStamp:     time.Now().UTC(),
		Events:          events,
	})
	return checkpoint, nil
}

// GetFrom returns commits strictly after checkpoint in checkpoint order, up
// to limit entries. An empty checkpoint means from the beginning of the log.
func (s *Store) GetFrom(_ context.Context, checkpoint txfeed.Checkpoint, limit int) ([]txfeed.Commit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if checkpoint != "" {
		found := false
		for i, c := range s.commits {
			if c.CheckpointToken == checkpoint {
				start = i + 1
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("memory: unknown checkpoint %q", checkpoint)
		}
	}

	if start >= len(s.commits) {
		return nil, nil
	}

	end := len(s.commits)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	out := make([]txfeed.Commit, end-start)
	copy(out, s.commits[start:end])
	return out, nil
}

// Close releases the store. The in-memory store holds no external
// resources, so this is a no-op.
func (s *Store) Close() error {
	return nil
}
