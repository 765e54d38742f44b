package postgres

import (
	"testing"

	"github.com/shogotsuneto/txfeed"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple table name", "commits", `"commits"`},
		{"table name with underscores", "custom_commits", `"custom_commits"`},
		{"table name with double quotes", `table"name`, `"table""name"`},
		{"empty string", "", `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, quoteIdentifier(tt.input))
		})
	}
}

func TestConfigTableNameDefault(t *testing.T) {
	require.Equal(t, defaultTableName, Config{}.tableName())
	require.Equal(t, "custom", Config{TableName: "custom"}.tableName())
}

func TestCheckpointCodec(t *testing.T) {
	cp := encodeCheckpoint(42)
	require.Len(t, string(cp), checkpointWidth)

	id, err := decodeCheckpoint(cp)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)

	id, err = decodeCheckpoint("")
	require.NoError(t, err)
	require.Equal(t, int64(0), id)

	_, err = decodeCheckpoint(txfeed.Checkpoint("not-a-number"))
	require.Error(t, err)
}

func TestCheckpointOrdering(t *testing.T) {
	small := encodeCheckpoint(7)
	large := encodeCheckpoint(12345)
	require.Less(t, string(small), string(large))
}
