// Package client is a small HTTP client for the todos API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/todos/internal/todo"
)

// HeaderRequestID is the response header carrying the server's request id.
const HeaderRequestID = "X-Request-ID"

// detailTodoNotFound is the 404 detail for a missing todo. Any other 404
// (an unknown route, a proxy in the way) is an APIError.
const detailTodoNotFound = "Todo not found"

// ErrNotFound is returned when the server reports the todo does not exist.
var ErrNotFound = errors.New("todo not found")

// APIError is any other non-2xx answer.
type APIError struct {
	Status    int
	Detail    string
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Detail)
}

// Client talks to one todos server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL (e.g. "http://localhost:8000").
// A nil httpClient gets a default with a 10s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Create posts a new todo.
func (c *Client) Create(ctx context.Context, in todo.Input) (todo.Todo, error) {
	var out todo.Todo
	err := c.do(ctx, http.MethodPost, "/todos/", in, &out)
	return out, err
}

// List fetches every todo.
func (c *Client) List(ctx context.Context) ([]todo.Todo, error) {
	out := []todo.Todo{}
	if err := c.do(ctx, http.MethodGet, "/todos/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one todo.
func (c *Client) Get(ctx context.Context, id int64) (todo.Todo, error) {
	var out todo.Todo
	err := c.do(ctx, http.MethodGet, todoPath(id), nil, &out)
	return out, err
}

// Update replaces text and complete on one todo.
func (c *Client) Update(ctx context.Context, id int64, in todo.Input) (todo.Todo, error) {
	var out todo.Todo
	err := c.do(ctx, http.MethodPut, todoPath(id), in, &out)
	return out, err
}

// Delete removes one todo and returns the server's confirmation message.
func (c *Client) Delete(ctx context.Context, id int64) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodDelete, todoPath(id), nil, &out)
	return out.Message, err
}

func todoPath(id int64) string {
	return "/todos/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var d struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &d) != nil || d.Detail == "" {
			d.Detail = strings.TrimSpace(string(data))
		}
		if resp.StatusCode == http.StatusNotFound && d.Detail == detailTodoNotFound {
			return ErrNotFound
		}
		return &APIError{
			Status:    resp.StatusCode,
			Detail:    d.Detail,
			RequestID: resp.Header.Get(HeaderRequestID),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
