// Package store is the storage gateway for the todos service.
//
// It owns the connection pool to the relational backend and hands the API
// layer one Session per request. A Session pins a single pooled connection
// and must be released on every exit path; WithSession does that for the
// caller.
//
// # Backends
//
//   - sqlite3 (github.com/mattn/go-sqlite3): default, file or ":memory:"
//   - pgx (github.com/jackc/pgx/v5/stdlib): PostgreSQL
//
// Queries are written with "?" placeholders and rebound per dialect.
//
// # Schema
//
// EnsureSchema creates the todos table if it is absent. Open calls it before
// returning, so a Store that opened successfully is ready to serve traffic.
// SQLite databases are stamped with PRAGMA user_version.
//
// # SQLite Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - a single pooled connection, so ":memory:" databases are shared
//
// # Mutations
//
// UpdateTodo and DeleteTodo are single conditional statements. A missing row
// is reported as ErrNotFound by the statement itself, never by a prior lookup.
package store
