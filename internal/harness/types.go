package harness

// TraceEvent records one HTTP exchange made by the harness.
type TraceEvent struct {
	Seq       int64  `json:"seq"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`

	// Request is the decoded JSON request body, or the raw string when the
	// step sent a raw body. Nil for bodiless requests.
	Request any `json:"request,omitempty"`

	// Response is the decoded JSON response body.
	Response any `json:"response,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expectations and assertions passed.
	Pass bool `json:"pass"`

	// Trace contains every exchange, setup included, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Pass is set to false when AddError is called.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records an error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an exchange to the trace.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
