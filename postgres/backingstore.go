package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shogotsuneto/txfeed"
)

// BackingStore is a txfeed.BackingStore over a single PostgreSQL table.
// Checkpoints are the table's SERIAL row id, zero-padded to a fixed width
// so that two checkpoints compare correctly both as the opaque strings the
// core treats them as and, incidentally, lexicographically.
type BackingStore struct {
	db        *sql.DB
	tableName string
}

// NewBackingStore opens a connection to PostgreSQL and returns a
// txfeed.BackingStore over config.TableName (or "commits" if unset). It does
// not create the table; call InitSchema first if needed.
func NewBackingStore(config Config) (*BackingStore, error) {
	db, tableName, err := open(config)
	if err != nil {
		return nil, err
	}
	return &BackingStore{db: db, tableName: tableName}, nil
}

// Close closes the underlying database connection.
func (s *BackingStore) Close() error {
	return s.db.Close()
}

const checkpointWidth = 20

func encodeCheckpoint(id int64) txfeed.Checkpoint {
	return txfeed.Checkpoint(fmt.Sprintf("%0*d", checkpointWidth, id))
}

func decodeCheckpoint(c txfeed.Checkpoint) (int64, error) {
	if c == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(string(c), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("postgres: malformed checkpoint %q: %w", c, err)
	}
	return id, nil
}

type storedEvent struct {
	Body    []byte            `json:"body"`
	Headers map[string]string `json:"headers"`
}

// GetFrom returns up to limit commits strictly after checkpoint, in
// ascending row-id order.
func (s *BackingStore) GetFrom(ctx context.Context, checkpoint txfeed.Checkpoint, limit int) ([]txfeed.Commit, error) {
	cursorID, err := decodeCheckpoint(checkpoint)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, commit_id, stream_id, commit_stamp, events
		FROM %s
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`, quoteIdentifier(s.tableName))

	rows, err := s.db.QueryContext(ctx, query, cursorID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query commits: %w", err)
	}
	defer rows.Close()

	var commits []txfeed.Commit
	for rows.Next() {
		var id int64
		var commitID, streamID string
		var commitStamp time.Time
		var eventsJSON []byte

		if err := rows.Scan(&id, &commitID, &streamID, &commitStamp, &eventsJSON); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan commit row: %w", err)
		}

		var stored []storedEvent
		if err := json.Unmarshal(eventsJSON, &stored); err != nil {
			return nil, fmt.Errorf("postgres: failed to unmarshal events for commit %s: %w", commitID, err)
		}
		events := make([]txfeed.EventEnvelope, len(stored))
		for i, e := range stored {
			events[i] = txfeed.EventEnvelope{Body: e.Body, Headers: e.Headers}
		}

		commits = append(commits, txfeed.Commit{
			CommitID:        commitID,
			StreamID:        streamID,
			CheckpointToken: encodeCheckpoint(id),
			CommitStamp:     commitStamp,
			Events:          events,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: error iterating commit rows: %w", err)
	}

	return commits, nil
}

// Append inserts one commit for streamID and returns its assigned
// checkpoint. It exists so demos and tests can populate the table without
// hand-written SQL; it is not part of the txfeed.BackingStore contract.
func (s *BackingStore) Append(ctx context.Context, commitID, streamID string, events []txfeed.EventEnvelope) (txfeed.Checkpoint, error) {
	stored := make([]storedEvent, len(events))
	for i, e := range events {
		stored[i] = storedEvent{Body: e.Body, Headers: e.Headers}
	}
	eventsJSON, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("postgres: failed to marshal events: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (commit_id, stream_id, commit_stamp, events)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, quoteIdentifier(s.tableName))

	var id int64
	err = s.db.QueryRowContext(ctx, query, commitID, streamID, time.Now().UTC(), eventsJSON).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("postgres: failed to insert commit: %w", err)
	}
	return encodeCheckpoint(id), nil
}

var _ txfeed.BackingStore = (*BackingStore)(nil)
