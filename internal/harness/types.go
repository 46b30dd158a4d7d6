package harness

import "fmt"

// CaseResult is the outcome of one case.
type CaseResult struct {
	Name string `json:"name"`
	Op   string `json:"op"`

	// Outcome is what actually happened: valid, error or contained.
	Outcome string `json:"outcome"`

	// Value is the diagnostic rendering of the produced value.
	Value string `json:"value,omitempty"`

	// Wire is the hex encoding produced by a roundtrip case.
	Wire string `json:"wire,omitempty"`

	// Error is the error message when Outcome is error.
	Error string `json:"error,omitempty"`

	// StopReason is set when validation containment stopped the call.
	StopReason string `json:"stop_reason,omitempty"`

	// Failures lists expectation mismatches. Empty when the case passed.
	Failures []string `json:"failures,omitempty"`
}

// Pass reports whether every expectation held.
func (r *CaseResult) Pass() bool {
	return len(r.Failures) == 0
}

func (r *CaseResult) fail(format string, args ...any) {
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
}

// Result is the outcome of a scenario.
type Result struct {
	Scenario string       `json:"scenario"`
	Pass     bool         `json:"pass"`
	Cases    []CaseResult `json:"cases"`
}

// NewResult creates a passing result with no cases.
func NewResult(scenario string) *Result {
	return &Result{Scenario: scenario, Pass: true, Cases: []CaseResult{}}
}

// Add appends a case result, failing the scenario if the case failed.
func (r *Result) Add(cr CaseResult) {
	r.Cases = append(r.Cases, cr)
	if !cr.Pass() {
		r.Pass = false
	}
}

// Failures returns every failure message prefixed with its case name.
func (r *Result) Failures() []string {
	var out []string
	for _, c := range r.Cases {
		for _, f := range c.Failures {
			out = append(out, c.Name+": "+f)
		}
	}
	return out
}
