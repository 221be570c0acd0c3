package harness

import (
	stderrors "errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/guardloop/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string    // Assertion type for categorization
	Expected string    // Human-readable expected outcome
	Actual   string    // Human-readable actual outcome
	Trace    []ir.Step // Full trace for debugging context

	// At is the trace position the failure is anchored to, or -1 for the
	// end of the run.
	At int
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, step := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] cycle %d: %s\n", step.Seq, step.Cycle, step.Summary())
		}
	}

	return buf.String()
}

// Matches reports whether step satisfies every non-empty field of m.
func (m StepMatch) Matches(step ir.Step) bool {
	checks := []struct{ want, got string }{
		{m.Kind, string(step.Kind)},
		{m.Machine, step.Machine},
		{m.From, step.From},
		{m.To, step.To},
		{m.State, step.State},
		{m.Event, step.Event},
		{m.Reason, step.Reason},
		{m.Hook, step.Hook},
		{m.Message, step.Message},
		{m.Output, step.Output},
	}
	for _, c := range checks {
		if c.want != "" && c.want != c.got {
			return false
		}
	}
	if m.On != nil && *m.On != step.On {
		return false
	}
	return true
}

// String renders the non-empty fields of m.
func (m StepMatch) String() string {
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	add("kind", m.Kind)
	add("machine", m.Machine)
	add("from", m.From)
	add("to", m.To)
	add("state", m.State)
	add("event", m.Event)
	add("reason", m.Reason)
	add("hook", m.Hook)
	add("message", m.Message)
	add("output", m.Output)
	if m.On != nil {
		parts = append(parts, fmt.Sprintf("on=%t", *m.On))
	}
	if len(parts) == 0 {
		return "(any step)"
	}
	return strings.Join(parts, " ")
}

// assertTraceContains checks that at least one step matches.
func assertTraceContains(trace []ir.Step, assertion Assertion) error {
	if slices.ContainsFunc(trace, assertion.Step.Matches) {
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("step %s", assertion.Step),
		Actual:   "not found in trace",
		Trace:    trace,
		At:       -1,
	}
}

// assertTraceOrder checks that transitions enter the listed states in
// order. Transitions don't need to be consecutive.
func assertTraceOrder(trace []ir.Step, assertion Assertion) error {
	// Step 1: Find first position of each expected state
	positions := make(map[string]int)

	for i, step := range trace {
		if step.Kind != ir.KindTransition {
			continue
		}
		for _, expected := range assertion.States {
			if step.To == expected && positions[expected] == 0 {
				positions[expected] = i + 1 // 1-indexed for readability
			}
		}
	}

	// Step 2: Verify all states were entered
	for _, state := range assertion.States {
		if positions[state] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all states entered: %v", assertion.States),
				Actual:   fmt.Sprintf("never entered: %s", state),
				Trace:    trace,
				At:       -1,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.States); i++ {
		prev := assertion.States[i-1]
		curr := assertion.States[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("states in order: %v", assertion.States),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
				At:    positions[curr] - 1,
			}
		}
	}

	return nil
}

// assertTraceCount checks that exactly Count steps match.
func assertTraceCount(trace []ir.Step, assertion Assertion) error {
	count := 0
	for _, step := range trace {
		if assertion.Step.Matches(step) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d steps matching %s", assertion.Count, assertion.Step),
			Actual:   fmt.Sprintf("%d steps", count),
			Trace:    trace,
			At:       -1,
		}
	}

	return nil
}

// assertFinalState checks the final controller state and output levels.
// Outputs never driven during the run read as off.
func assertFinalState(result *Result, assertion Assertion) error {
	if assertion.State != "" && assertion.State != result.FinalState {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("state %s", assertion.State),
			Actual:   fmt.Sprintf("state %s", result.FinalState),
			At:       lastIndex(result.Trace, ir.KindTransition, ir.MachineController),
		}
	}

	// Sort keys for deterministic error messages
	names := make([]string, 0, len(assertion.Outputs))
	for name := range assertion.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		want := assertion.Outputs[name]
		if got := result.Outputs[name]; got != want {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("output %s = %t", name, want),
				Actual:   fmt.Sprintf("output %s = %t", name, got),
				At:       lastOutput(result.Trace, name),
			}
		}
	}

	return nil
}

// assertDiagnostic checks that Message was reported.
func assertDiagnostic(result *Result, assertion Assertion) error {
	if slices.Contains(result.Diagnostics, assertion.Message) {
		return nil
	}
	return &AssertionError{
		Type:     AssertDiagnostic,
		Expected: fmt.Sprintf("diagnostic %q", assertion.Message),
		Actual:   fmt.Sprintf("diagnostics %q", result.Diagnostics),
		At:       -1,
	}
}

// CheckAssertions evaluates all assertions against the result and returns
// one Failure per assertion that did not hold, in declaration order.
func CheckAssertions(result *Result, assertions []Assertion) []Failure {
	var failures []Failure

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertDiagnostic:
			err = assertDiagnostic(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			failures = append(failures, newFailure(i, assertion.Type, err, result.Trace))
		}
	}

	return failures
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string
	for _, f := range CheckAssertions(result, assertions) {
		errors = append(errors, f.Message)
	}
	return errors
}

// newFailure anchors err in the trace. The context is the anchor step and
// up to ContextSteps-1 steps before it.
func newFailure(index int, typ string, err error, trace []ir.Step) Failure {
	f := Failure{Index: index, Type: typ, Message: err.Error()}

	var aerr *AssertionError
	if !stderrors.As(err, &aerr) {
		return f
	}
	f.Expected, f.Actual = aerr.Expected, aerr.Actual

	at := aerr.At
	if at < 0 || at >= len(trace) {
		at = len(trace) - 1
	}
	if at < 0 {
		return f
	}
	start := max(0, at-ContextSteps+1)
	f.Context = append([]ir.Step(nil), trace[start:at+1]...)
	f.Cycle = trace[at].Cycle
	return f
}

// lastIndex returns the position of the last step of kind from machine,
// or -1.
func lastIndex(trace []ir.Step, kind ir.StepKind, machine string) int {
	for i := len(trace) - 1; i >= 0; i-- {
		if trace[i].Kind == kind && trace[i].Machine == machine {
			return i
		}
	}
	return -1
}

// lastOutput returns the position of the last change of output, or -1.
func lastOutput(trace []ir.Step, output string) int {
	for i := len(trace) - 1; i >= 0; i-- {
		if trace[i].Kind == ir.KindOutput && trace[i].Output == output {
			return i
		}
	}
	return -1
}
