package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Schema version tracking (SQLite only):
// 0 - empty database
// 1 - todos table
const currentSchemaVersion = 1

var (
	// ErrNotFound is returned when no row has the requested id.
	ErrNotFound = errors.New("todo not found")

	// ErrUnavailable wraps failures to reach the storage backend.
	ErrUnavailable = errors.New("storage unavailable")
)

// Options configures Open.
type Options struct {
	// Driver is DriverSQLite or DriverPostgres. Empty means DriverSQLite.
	Driver string

	// DSN is a file path (or ":memory:") for SQLite and a connection URL for pgx.
	DSN string

	// MaxOpenConns bounds the pool for pgx. SQLite is always pinned to one.
	MaxOpenConns int
}

// Store provides durable storage for todo rows.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the backend, applies pragmas where relevant and ensures
// the schema exists. Any failure is returned; a Store is only handed out
// once it can serve traffic.
func Open(ctx context.Context, opts Options) (*Store, error) {
	d, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}
	if opts.DSN == "" {
		return nil, fmt.Errorf("open database: empty DSN")
	}

	db, err := sql.Open(d.driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w: %w", ErrUnavailable, err)
	}

	if d.name == DriverSQLite {
		// SQLite only supports one writer at a time, and each ":memory:"
		// connection is its own database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	s := &Store{db: db, dialect: d}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB.
// Use with caution - request handlers should go through a Session.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver reports the dialect name the store was opened with.
func (s *Store) Driver() string {
	return s.dialect.name
}

// EnsureSchema creates the todos table if it doesn't exist.
// This function is idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	if s.dialect.name != DriverSQLite {
		return nil
	}

	// PRAGMA does not accept bound parameters.
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
