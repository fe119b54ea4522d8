// Package api exposes the todo resource over HTTP with JSON bodies.
//
// Routes:
//
//	POST   /todos/      create
//	GET    /todos/      list
//	GET    /todos/{id}  read
//	PUT    /todos/{id}  update
//	DELETE /todos/{id}  delete
//	GET    /healthz     storage liveness
//
// The collection routes also answer without the trailing slash. Errors are
// returned as {"detail": "..."}, including unknown paths (404) and wrong
// methods (405).
package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/roach88/todos/internal/todo"
)

// Todos is the resource the handler serves. *todo.Service satisfies it.
type Todos interface {
	Create(ctx context.Context, in todo.Input) (todo.Todo, error)
	List(ctx context.Context) ([]todo.Todo, error)
	Get(ctx context.Context, id int64) (todo.Todo, error)
	Update(ctx context.Context, id int64, in todo.Input) (todo.Todo, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

// Option customizes NewHandler.
type Option func(*handler)

// WithLogger sets the logger for request and error logs.
func WithLogger(l *slog.Logger) Option {
	return func(h *handler) { h.logger = l }
}

// WithRequestIDs overrides the request id generator (tests use a fixed one).
func WithRequestIDs(gen RequestIDGenerator) Option {
	return func(h *handler) { h.ids = gen }
}

type handler struct {
	todos  Todos
	logger *slog.Logger
	ids    RequestIDGenerator
}

// NewHandler builds the full HTTP stack: routes wrapped in route error
// rewriting, CORS, panic recovery, request logging and request id middleware.
func NewHandler(todos Todos, opts ...Option) http.Handler {
	h := &handler{
		todos:  todos,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		ids:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()
	h.routes(mux)

	var stack http.Handler = routeErrors(mux)
	stack = cors(stack)
	stack = recoverPanics(h.logger, stack)
	stack = logRequests(h.logger, stack)
	stack = withRequestID(h.ids, stack)
	return stack
}

func (h *handler) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /todos/{$}", h.create)
	mux.HandleFunc("POST /todos", h.create)
	mux.HandleFunc("GET /todos/{$}", h.list)
	mux.HandleFunc("GET /todos", h.list)
	mux.HandleFunc("GET /todos/{id}", h.get)
	mux.HandleFunc("PUT /todos/{id}", h.update)
	mux.HandleFunc("DELETE /todos/{id}", h.delete)
	mux.HandleFunc("GET /healthz", h.health)
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	created, err := h.todos.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	todos, err := h.todos.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if todos == nil {
		todos = []todo.Todo{}
	}
	writeJSON(w, http.StatusOK, todos)
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	td, err := h.todos.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, td)
}

func (h *handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in, err := readInput(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	updated, err := h.todos.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.todos.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Message{Message: MsgDeleted})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.todos.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed",
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeDetail(w, http.StatusServiceUnavailable, DetailUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
