package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/roach88/todos/internal/api"
	"github.com/roach88/todos/internal/store"
	"github.com/roach88/todos/internal/todo"
)

// Harness drives the full HTTP stack in-process.
// Request ids come from a sequence generator seeded with the scenario name,
// so traces are reproducible.
type Harness struct {
	handler http.Handler
	logger  *slog.Logger
	seq     int64
}

// Option customizes Run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger routes the service's request logs to l. By default they are
// discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database, so ids always
// start at 1.
//
// Execution flow:
//  1. Open an in-memory store and build the handler stack
//  2. Execute setup steps (any non-2xx aborts)
//  3. Execute steps, checking expect clauses
//  4. Evaluate assertions against the trace and final table state
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, store.Options{Driver: store.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		handler: api.NewHandler(todo.NewService(st),
			api.WithLogger(cfg.logger),
			api.WithRequestIDs(api.NewSequenceGenerator(scenario.Name)),
		),
		logger: cfg.logger,
	}

	result := NewResult()
	for i, step := range scenario.Setup {
		event, err := h.execute(step.Request)
		if err != nil {
			return nil, fmt.Errorf("setup step %d: %w", i, err)
		}
		result.AddTrace(event)
		if event.Status < 200 || event.Status > 299 {
			return nil, fmt.Errorf("setup step %d: %s %s returned %d",
				i, event.Method, event.Path, event.Status)
		}
	}

	for i, step := range scenario.Steps {
		event, err := h.execute(step.Request)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		result.AddTrace(event)

		if step.Expect == nil {
			continue
		}
		if msg := checkExpect(event, step.Expect); msg != "" {
			result.AddError(fmt.Sprintf("step %d (%s %s): %s", i, event.Method, event.Path, msg))
		}
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// execute sends one request through the handler and records the exchange.
func (h *Harness) execute(req Request) (TraceEvent, error) {
	var (
		body    io.Reader
		reqBody any
	)
	switch {
	case req.Raw != "":
		body = bytes.NewBufferString(req.Raw)
		reqBody = req.Raw
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return TraceEvent{}, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(data)
		if err := json.Unmarshal(data, &reqBody); err != nil {
			return TraceEvent{}, fmt.Errorf("normalize body: %w", err)
		}
	}

	r := httptest.NewRequest(req.Method, req.Path, body)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, r)

	h.seq++
	event := TraceEvent{
		Seq:       h.seq,
		Method:    req.Method,
		Path:      req.Path,
		Status:    rec.Code,
		RequestID: rec.Header().Get(api.HeaderRequestID),
		Request:   reqBody,
	}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &event.Response); err != nil {
			return TraceEvent{}, fmt.Errorf("decode response %q: %w", rec.Body.String(), err)
		}
	}

	h.logger.Debug("harness step",
		"seq", event.Seq,
		"method", event.Method,
		"path", event.Path,
		"status", event.Status,
	)
	return event, nil
}

// checkExpect compares a recorded exchange with an expect clause and
// returns a description of the first mismatch, or "".
func checkExpect(event TraceEvent, expect *Expect) string {
	if event.Status != expect.Status {
		return fmt.Sprintf("expected status %d, got %d (body %v)", expect.Status, event.Status, event.Response)
	}
	if expect.Body == nil {
		return ""
	}
	want, err := normalizeJSON(expect.Body)
	if err != nil {
		return fmt.Sprintf("invalid expect.body: %v", err)
	}
	if !matchSubset(want, event.Response) {
		return fmt.Sprintf("expected body %v, got %v", want, event.Response)
	}
	return ""
}

// normalizeJSON round-trips a YAML-decoded value through encoding/json so
// it compares equal to a decoded response (numbers become float64).
func normalizeJSON(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// matchSubset reports whether actual contains expected: objects match on the
// expected keys only, arrays must have the same length and match element-wise.
func matchSubset(expected, actual any) bool {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range exp {
			av, exists := act[k]
			if !exists || !matchSubset(v, av) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !matchSubset(exp[i], act[i]) {
				return false
			}
		}
		return true
	default:
		return expected == actual
	}
}
