package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/todos/internal/store"
	"github.com/roach88/todos/internal/todo"
)

func newTestHandler(t *testing.T) (http.Handler, *store.Store) {
	t.Helper()
	st, err := store.Open(context.Background(), store.Options{
		DSN: filepath.Join(t.TempDir(), "todos.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewHandler(todo.NewService(st), WithRequestIDs(NewSequenceGenerator("req"))), st
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func TestHandler_ConcreteScenario(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/todos/", `{"text":"buy milk","complete":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, todo.Todo{ID: 1, Text: "buy milk", Complete: false}, decode[todo.Todo](t, rec))

	rec = do(t, h, http.MethodPut, "/todos/1", `{"text":"buy milk","complete":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, todo.Todo{ID: 1, Text: "buy milk", Complete: true}, decode[todo.Todo](t, rec))

	rec = do(t, h, http.MethodDelete, "/todos/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Message{Message: "Todo deleted successfully"}, decode[Message](t, rec))

	rec = do(t, h, http.MethodGet, "/todos/1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, Detail{Detail: "Todo not found"}, decode[Detail](t, rec))
}

func TestHandler_CreateThenRead(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/todos/", `{"text":"walk dog","complete":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	created := decode[todo.Todo](t, rec)

	rec = do(t, h, http.MethodGet, "/todos/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decode[todo.Todo](t, rec))
}

func TestHandler_CollectionWithoutTrailingSlash(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/todos", `{"text":"no slash","complete":false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/todos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]todo.Todo](t, rec), 1)
}

func TestHandler_ListEmptyIsArray(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/todos/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestHandler_ListContainsAllLiveRows(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, text := range []string{"one", "two", "three"} {
		rec := do(t, h, http.MethodPost, "/todos/", `{"text":"`+text+`","complete":false}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/todos/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ids := map[int64]string{}
	for _, td := range decode[[]todo.Todo](t, rec) {
		ids[td.ID] = td.Text
	}
	assert.Equal(t, map[int64]string{1: "one", 2: "two", 3: "three"}, ids)
}

func TestHandler_NotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		method string
		body   string
	}{
		{http.MethodGet, ""},
		{http.MethodPut, `{"text":"x","complete":true}`},
		{http.MethodDelete, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			rec := do(t, h, tt.method, "/todos/99", tt.body)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, Detail{Detail: DetailNotFound}, decode[Detail](t, rec))
		})
	}
}

func TestHandler_ValidationNeverTouchesStorage(t *testing.T) {
	h, st := newTestHandler(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"create missing complete", http.MethodPost, "/todos/", `{"text":"a"}`},
		{"create missing text", http.MethodPost, "/todos/", `{"complete":true}`},
		{"create mistyped complete", http.MethodPost, "/todos/", `{"text":"a","complete":"yes"}`},
		{"create malformed", http.MethodPost, "/todos/", `{`},
		{"create empty", http.MethodPost, "/todos/", ``},
		{"update mistyped text", http.MethodPut, "/todos/1", `{"text":1,"complete":true}`},
		{"read bad id", http.MethodGet, "/todos/abc", ``},
		{"delete bad id", http.MethodDelete, "/todos/1.5", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.NotEmpty(t, decode[Detail](t, rec).Detail)
		})
	}

	var count int
	require.NoError(t, st.DB().QueryRow("SELECT COUNT(*) FROM todos").Scan(&count))
	assert.Zero(t, count)
}

func TestHandler_BodyTooLarge(t *testing.T) {
	h, _ := newTestHandler(t)

	big := `{"text":"` + strings.Repeat("x", maxBodyBytes) + `","complete":false}`
	rec := do(t, h, http.MethodPost, "/todos/", big)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "request body too large", decode[Detail](t, rec).Detail)
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h, http.MethodPatch, "/todos/1", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Allow"), http.MethodPut)
	assert.Equal(t, "Method Not Allowed", decode[Detail](t, rec).Detail)
}

func TestHandler_UnknownRoute(t *testing.T) {
	for _, path := range []string{"/todos/1/x", "/nope", "/"} {
		t.Run(path, func(t *testing.T) {
			h, _ := newTestHandler(t)
			rec := do(t, h, http.MethodGet, path, "")
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, "Not Found", decode[Detail](t, rec).Detail)
			assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))
		})
	}
}

func TestHandler_ReleasesSessions(t *testing.T) {
	h, st := newTestHandler(t)

	do(t, h, http.MethodPost, "/todos/", `{"text":"a","complete":false}`)
	do(t, h, http.MethodGet, "/todos/", "")
	do(t, h, http.MethodGet, "/todos/5", "")
	do(t, h, http.MethodPut, "/todos/5", `{"text":"a","complete":false}`)
	do(t, h, http.MethodDelete, "/todos/1", "")
	do(t, h, http.MethodGet, "/healthz", "")

	assert.Equal(t, 0, st.DB().Stats().InUse)
}

func TestHandler_Health(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, rec))
}

// stubTodos fails every call with err, or panics when panicky is set.
type stubTodos struct {
	err     error
	panicky bool
}

func (s stubTodos) fail() error {
	if s.panicky {
		panic("stub exploded")
	}
	return s.err
}

func (s stubTodos) Create(context.Context, todo.Input) (todo.Todo, error) {
	return todo.Todo{}, s.fail()
}
func (s stubTodos) List(context.Context) ([]todo.Todo, error) { return nil, s.fail() }
func (s stubTodos) Get(context.Context, int64) (todo.Todo, error) { return todo.Todo{}, s.fail() }
func (s stubTodos) Delete(context.Context, int64) error { return s.fail() }
func (s stubTodos) Ping(context.Context) error { return s.fail() }
func (s stubTodos) Update(context.Context, int64, todo.Input) (todo.Todo, error) {
	return todo.Todo{}, s.fail()
}

func TestHandler_StorageErrorIsOpaque500(t *testing.T) {
	var logs bytes.Buffer
	secret := errors.New("dial tcp 10.0.0.5:5432: connection refused")
	h := NewHandler(stubTodos{err: errors.Join(store.ErrUnavailable, secret)},
		WithLogger(newBufferLogger(&logs)))

	rec := do(t, h, http.MethodGet, "/todos/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, Detail{Detail: DetailInternal}, decode[Detail](t, rec))
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	assert.Contains(t, logs.String(), "connection refused")
}

func TestHandler_HealthUnavailable(t *testing.T) {
	h := NewHandler(stubTodos{err: store.ErrUnavailable})

	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, Detail{Detail: DetailUnavailable}, decode[Detail](t, rec))
}

func TestHandler_PanicRecovered(t *testing.T) {
	h := NewHandler(stubTodos{panicky: true})

	rec := do(t, h, http.MethodGet, "/todos/1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, Detail{Detail: DetailInternal}, decode[Detail](t, rec))
}
