// Package postgres provides an optional txfeed.BackingStore backed by a
// single PostgreSQL table. It is not part of the paged-loader core — the
// core never imports database/sql or lib/pq, only this package does, the
// same separation the teacher draws between its root package and its own
// postgres/ package.
package postgres

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const defaultTableName = "commits"

// Config configures a BackingStore's connection to PostgreSQL.
type Config struct {
	// ConnectionString is a libpq connection string, e.g.
	// "host=localhost port=5432 user=txfeed dbname=txfeed sslmode=disable".
	ConnectionString string
	// TableName is the table commits are read from and written to. Defaults
	// to "commits" when empty.
	TableName string
}

func (c Config) tableName() string {
	if c.TableName == "" {
		return defaultTableName
	}
	return c.TableName
}

// quoteIdentifier double-quotes a SQL identifier, escaping embedded double
// quotes by doubling them, so table names can be safely interpolated into
// generated SQL without risking injection through the identifier itself.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func open(config Config) (*sql.DB, string, error) {
	db, err := sql.Open("postgres", config.ConnectionString)
	if err != nil {
		return nil, "", fmt.Errorf("postgres: failed to open connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("postgres: failed to ping: %w", err)
	}
	return db, config.tableName(), nil
}

// InitSchema creates the commits table and its ordering index if they don't
// already exist. Callers typically run this once at startup before
// constructing a BackingStore against the same table.
func InitSchema(db *sql.DB, tableName string) error {
	if tableName == "" {
		tableName = defaultTableName
	}
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id SERIAL PRIMARY KEY,
		commit_id TEXT NOT NULL,
		stream_id TEXT NOT NULL,
		commit_stamp TIMESTAMPTZ NOT NULL,
		events JSONB NOT NULL
	);
	`, quoteIdentifier(tableName))

	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("postgres: failed to init schema for %s: %w", tableName, err)
	}
	return nil
}
