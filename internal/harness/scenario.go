package harness

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is a conformance scenario: a sequence of HTTP requests against a
// fresh in-memory service, with per-step expectations and final assertions.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file
	// and prefixes request ids.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup steps run before Steps. A setup step that answers with a non-2xx
	// status aborts the scenario.
	Setup []Step `yaml:"setup,omitempty"`

	// Steps is the main flow.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and the final table state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one HTTP exchange.
type Step struct {
	Request Request `yaml:"request"`

	// Expect is optional; nil means any response is accepted.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Request describes the request to send.
type Request struct {
	Method string `yaml:"method"`
	Path   string `yaml:"path"`

	// Body is marshaled to JSON. Mutually exclusive with Raw.
	Body any `yaml:"body,omitempty"`

	// Raw is sent verbatim, for malformed-body scenarios.
	Raw string `yaml:"raw,omitempty"`
}

// Expect is matched against the response.
type Expect struct {
	Status int `yaml:"status"`

	// Body is a subset match: only the listed object keys are compared,
	// arrays must match element-wise.
	Body any `yaml:"body,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Method, Path and Status filter trace entries (trace_contains,
	// trace_count). Zero values match anything.
	Method string `yaml:"method,omitempty"`
	Path   string `yaml:"path,omitempty"`
	Status int    `yaml:"status,omitempty"`

	// Table is the table name (final_state, row_count).
	Table string `yaml:"table,omitempty"`

	// Where filters rows (final_state, row_count). All fields must match.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect holds expected column values (final_state), subset semantics.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of matches (trace_count, row_count).
	Count int `yaml:"count"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertRowCount      = "row_count"
)

var validMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodPatch:   true,
	http.MethodOptions: true,
	http.MethodHead:    true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i := range s.Setup {
		if err := validateStep(&s.Setup[i]); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i := range s.Steps {
		if err := validateStep(&s.Steps[i]); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return nil
}

func validateStep(step *Step) error {
	step.Request.Method = strings.ToUpper(step.Request.Method)
	if !validMethods[step.Request.Method] {
		return fmt.Errorf("unsupported method %q", step.Request.Method)
	}
	if !strings.HasPrefix(step.Request.Path, "/") {
		return fmt.Errorf("path %q must start with /", step.Request.Path)
	}
	if step.Request.Body != nil && step.Request.Raw != "" {
		return fmt.Errorf("body and raw are mutually exclusive")
	}
	if step.Expect != nil && step.Expect.Status == 0 {
		return fmt.Errorf("expect.status is required")
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Method == "" && a.Path == "" && a.Status == 0 {
			return fmt.Errorf("trace_contains requires method, path or status")
		}
	case AssertTraceCount:
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("final_state requires table")
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("final_state requires expect")
		}
	case AssertRowCount:
		if a.Table == "" {
			return fmt.Errorf("row_count requires table")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
