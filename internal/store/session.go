package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Session is a request-scoped unit of work bound to one pooled connection.
// It is not safe for concurrent use.
type Session struct {
	conn    *sql.Conn
	dialect dialect
}

// Acquire pins a connection from the pool. The caller must Release it.
// Prefer WithSession, which cannot leak.
func (s *Store) Acquire(ctx context.Context) (*Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w: %w", ErrUnavailable, err)
	}
	return &Session{conn: conn, dialect: s.dialect}, nil
}

// Release returns the connection to the pool. Calling it again is a no-op.
func (sess *Session) Release() error {
	if sess.conn == nil {
		return nil
	}
	err := sess.conn.Close()
	sess.conn = nil
	return err
}

// WithSession runs fn inside a freshly acquired session and releases it on
// every exit path, including a panic in fn. fn's error takes precedence over
// a release error.
func (s *Store) WithSession(ctx context.Context, fn func(*Session) error) (err error) {
	sess, err := s.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := sess.Release(); relErr != nil && err == nil {
			err = fmt.Errorf("release session: %w", relErr)
		}
	}()

	return fn(sess)
}

// active returns the pinned connection, or sql.ErrConnDone once the session
// has been released.
func (sess *Session) active() (*sql.Conn, error) {
	if sess.conn == nil {
		return nil, fmt.Errorf("session released: %w", sql.ErrConnDone)
	}
	return sess.conn, nil
}

// Ping checks that the session's connection is still alive.
func (sess *Session) Ping(ctx context.Context) error {
	conn, err := sess.active()
	if err != nil {
		return err
	}
	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w: %w", ErrUnavailable, err)
	}
	return nil
}
