// Package todo is the todo resource: transfer types, input validation and
// the service that runs each operation inside one storage session.
package todo

import (
	"errors"
	"fmt"

	"github.com/roach88/todos/internal/store"
)

// Todo is the wire representation of a stored todo.
type Todo struct {
	ID       int64  `json:"id"`
	Text     string `json:"text"`
	Complete bool   `json:"complete"`
}

// Input is the body of create and update requests. Both fields are required.
type Input struct {
	Text     string `json:"text"`
	Complete bool   `json:"complete"`
}

// FromRow maps a storage row onto the transfer type.
func FromRow(r store.Row) Todo {
	return Todo{ID: r.ID, Text: r.Text, Complete: r.Complete}
}

// FromRows maps rows in order. A nil or empty input yields an empty slice.
func FromRows(rows []store.Row) []Todo {
	out := make([]Todo, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromRow(r))
	}
	return out
}

// ErrNotFound is returned when the referenced id does not exist.
// It matches store.ErrNotFound under errors.Is.
var ErrNotFound = fmt.Errorf("todo: %w", store.ErrNotFound)

// ValidationError reports a malformed request before storage is touched.
type ValidationError struct {
	Field   string // JSON pointer of the offending value, empty for the whole body
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
