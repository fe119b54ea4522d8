package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed SQLite store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), Options{Driver: DriverSQLite, DSN: path})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// openAt opens a SQLite store at path without registering cleanup.
func openAt(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{DSN: path})
	if err != nil {
		t.Fatalf("Open(%q) failed: %v", path, err)
	}
	return s
}

// withTestSession runs fn in a session on s and fails the test on error.
func withTestSession(t *testing.T, s *Store, fn func(ctx context.Context, sess *Session)) {
	t.Helper()
	ctx := context.Background()
	err := s.WithSession(ctx, func(sess *Session) error {
		fn(ctx, sess)
		return nil
	})
	if err != nil {
		t.Fatalf("WithSession() failed: %v", err)
	}
}
