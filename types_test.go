package txfeed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPage_LastCheckpoint(t *testing.T) {
	empty := Page{}
	require.Equal(t, Checkpoint(""), empty.LastCheckpoint())

	page := Page{Transactions: []Transaction{
		{Checkpoint: "a"},
		{Checkpoint: "b"},
	}}
	require.Equal(t, Checkpoint("b"), page.LastCheckpoint())
}

func TestCommitToTransaction(t *testing.T) {
	now := time.Now().UTC()
	commit := Commit{
		CommitID:        "c1",
		StreamID:        "stream-a",
		CheckpointToken: "cp1",
		CommitStamp:     now,
		Events: []EventEnvelope{
			{Body: []byte("payload"), Headers: map[string]string{"k": "v"}},
		},
	}

	tx := commitToTransaction(commit)
	require.Equal(t, "c1", tx.ID)
	require.Equal(t, "stream-a", tx.StreamID)
	require.Equal(t, Checkpoint("cp1"), tx.Checkpoint)
	require.Equal(t, now, tx.TimestampUTC)
	require.Equal(t, commit.Events, tx.Events)
}
