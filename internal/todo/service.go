package todo

import (
	"context"
	"errors"

	"github.com/roach88/todos/internal/store"
)

// Gateway hands out request-scoped storage sessions. *store.Store satisfies it.
type Gateway interface {
	WithSession(ctx context.Context, fn func(*store.Session) error) error
}

// Service runs the five todo operations. Each call acquires exactly one
// session and performs one statement inside it; nothing is shared between
// calls.
type Service struct {
	gw Gateway
}

// NewService creates a Service backed by gw.
func NewService(gw Gateway) *Service {
	return &Service{gw: gw}
}

// Create stores a new todo and returns it with its assigned id.
func (s *Service) Create(ctx context.Context, in Input) (Todo, error) {
	var out Todo
	err := s.gw.WithSession(ctx, func(sess *store.Session) error {
		row, err := sess.InsertTodo(ctx, in.Text, in.Complete)
		if err != nil {
			return err
		}
		out = FromRow(row)
		return nil
	})
	return out, mapErr(err)
}

// List returns every todo in storage order.
func (s *Service) List(ctx context.Context) ([]Todo, error) {
	var out []Todo
	err := s.gw.WithSession(ctx, func(sess *store.Session) error {
		rows, err := sess.ListTodos(ctx)
		if err != nil {
			return err
		}
		out = FromRows(rows)
		return nil
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

// Get returns the todo with the given id.
func (s *Service) Get(ctx context.Context, id int64) (Todo, error) {
	var out Todo
	err := s.gw.WithSession(ctx, func(sess *store.Session) error {
		row, err := sess.GetTodo(ctx, id)
		if err != nil {
			return err
		}
		out = FromRow(row)
		return nil
	})
	return out, mapErr(err)
}

// Update replaces text and complete on the todo with the given id.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Todo, error) {
	var out Todo
	err := s.gw.WithSession(ctx, func(sess *store.Session) error {
		row, err := sess.UpdateTodo(ctx, id, in.Text, in.Complete)
		if err != nil {
			return err
		}
		out = FromRow(row)
		return nil
	})
	return out, mapErr(err)
}

// Delete removes the todo with the given id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.gw.WithSession(ctx, func(sess *store.Session) error {
		return sess.DeleteTodo(ctx, id)
	})
	return mapErr(err)
}

// Ping checks that a session can be acquired and the backend answers.
func (s *Service) Ping(ctx context.Context) error {
	return s.gw.WithSession(ctx, func(sess *store.Session) error {
		return sess.Ping(ctx)
	})
}

func mapErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
