// Package harness provides conformance testing for the todos HTTP API.
//
// The harness loads scenarios, drives the real handler stack against a fresh
// in-memory SQLite store, checks per-step expectations and evaluates
// assertions over the exchange trace and the final table state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	setup:
//	  - request: { method: POST, path: /todos/, body: { text: "a", complete: false } }
//	steps:
//	  - request: { method: GET, path: /todos/1 }
//	    expect:
//	      status: 200
//	      body: { id: 1, text: "a" }
//	  - request: { method: POST, path: /todos/, raw: "{not json" }
//	    expect: { status: 422 }
//	assertions:
//	  - type: trace_contains
//	    method: GET
//	    path: /todos/1
//	    status: 200
//	  - type: final_state
//	    table: todos
//	    where: { id: 1 }
//	    expect: { complete: false }
//
// # Assertion Types
//
//   - trace_contains: some exchange matches method, path and status
//   - trace_count: exactly N exchanges match
//   - final_state: exactly one row matches where and holds the expected values
//   - row_count: exactly N rows match where
//
// # Deterministic Testing
//
// Every scenario gets its own ":memory:" database, so ids start at 1, and
// request ids are "<scenario name>-<n>". Traces are therefore identical
// across runs and can be compared against golden files with RunWithGolden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/crud.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
