package harness

import "github.com/roach88/guardloop/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion held.
	Pass bool `json:"pass"`

	// RunID is the journal run the trace was read from.
	RunID string `json:"run_id"`

	// Trace contains every journal step in sequence order.
	Trace []ir.Step `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Failures holds the same failures with their journal context.
	Failures []Failure `json:"failures,omitempty"`

	// FinalState is the controller state name after the last cycle.
	FinalState string `json:"final_state"`

	// Outputs are the final output levels keyed by output name.
	Outputs map[string]bool `json:"outputs"`

	// Diagnostics are the messages reported to diagnostics, in order.
	Diagnostics []string `json:"diagnostics"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:        true,
		Trace:       []ir.Step{},
		Errors:      []string{},
		Outputs:     make(map[string]bool),
		Diagnostics: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// ContextSteps is how many journal steps a Failure carries, ending at the
// step the failure is anchored to.
const ContextSteps = 3

// Failure is one assertion that did not hold.
type Failure struct {
	Index    int       `json:"index"` // position in the scenario's assertions
	Type     string    `json:"type"`
	Expected string    `json:"expected,omitempty"`
	Actual   string    `json:"actual,omitempty"`
	Cycle    int64     `json:"cycle"`             // cycle of the anchor step
	Context  []ir.Step `json:"context,omitempty"` // ends at the anchor step

	// Message is the full failure text, as stored in Result.Errors.
	Message string `json:"-"`
}

// AddFailure records f and marks the result as failed.
func (r *Result) AddFailure(f Failure) {
	r.Failures = append(r.Failures, f)
	r.AddError(f.Message)
}
