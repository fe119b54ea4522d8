package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Row is a todos table row as stored.
type Row struct {
	ID       int64
	Text     string
	Complete bool
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(rs rowScanner) (Row, error) {
	var r Row
	if err := rs.Scan(&r.ID, &r.Text, &r.Complete); err != nil {
		return Row{}, err
	}
	return r, nil
}

// InsertTodo stores a new row and returns it with the id the backend assigned.
func (sess *Session) InsertTodo(ctx context.Context, text string, complete bool) (Row, error) {
	conn, err := sess.active()
	if err != nil {
		return Row{}, err
	}
	row, err := scanRow(conn.QueryRowContext(ctx, sess.dialect.rebind(`
		INSERT INTO todos (text, complete)
		VALUES (?, ?)
		RETURNING id, text, complete
	`), text, complete))
	if err != nil {
		return Row{}, fmt.Errorf("insert todo: %w", err)
	}
	return row, nil
}

// ListTodos returns every row in whatever order the backend yields.
// Returns an empty slice (not nil) when the table is empty.
func (sess *Session) ListTodos(ctx context.Context) ([]Row, error) {
	conn, err := sess.active()
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, `SELECT id, text, complete FROM todos`)
	if err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate todos: %w", err)
	}

	return out, nil
}

// GetTodo returns the row with the given id, or ErrNotFound.
func (sess *Session) GetTodo(ctx context.Context, id int64) (Row, error) {
	conn, err := sess.active()
	if err != nil {
		return Row{}, err
	}
	row, err := scanRow(conn.QueryRowContext(ctx, sess.dialect.rebind(`
		SELECT id, text, complete FROM todos WHERE id = ?
	`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, ErrNotFound
	}
	if err != nil {
		return Row{}, fmt.Errorf("get todo %d: %w", id, err)
	}
	return row, nil
}

// UpdateTodo replaces text and complete on an existing row.
// The existence check and the write are one statement; a row deleted
// concurrently yields ErrNotFound rather than a silent no-op.
func (sess *Session) UpdateTodo(ctx context.Context, id int64, text string, complete bool) (Row, error) {
	conn, err := sess.active()
	if err != nil {
		return Row{}, err
	}
	row, err := scanRow(conn.QueryRowContext(ctx, sess.dialect.rebind(`
		UPDATE todos
		SET text = ?, complete = ?
		WHERE id = ?
		RETURNING id, text, complete
	`), text, complete, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, ErrNotFound
	}
	if err != nil {
		return Row{}, fmt.Errorf("update todo %d: %w", id, err)
	}
	return row, nil
}

// DeleteTodo removes the row permanently, or returns ErrNotFound.
func (sess *Session) DeleteTodo(ctx context.Context, id int64) error {
	conn, err := sess.active()
	if err != nil {
		return err
	}
	result, err := conn.ExecContext(ctx, sess.dialect.rebind(`
		DELETE FROM todos WHERE id = ?
	`), id)
	if err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete todo %d: rows affected: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
