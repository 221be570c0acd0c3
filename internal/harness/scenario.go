package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/guardloop/internal/config"
)

// Scenario defines a controller conformance scenario.
// The controller is started, stepped Cycles times with the scripted
// readings, and the resulting journal is checked against Assertions.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Cycles is the number of controller steps to run after startup.
	Cycles int `yaml:"cycles"`

	// Readings are the per-cycle sensor values.
	Readings Readings `yaml:"readings"`

	// Inputs are mode changes applied before the step of their cycle.
	Inputs []Input `yaml:"inputs,omitempty"`

	// Thresholds overrides individual controller thresholds. Omitted keys
	// keep their default values.
	Thresholds config.Thresholds `yaml:"thresholds,omitempty"`

	// Assertions validate the journal and the final state.
	// Supported types: trace_contains, trace_order, trace_count,
	// final_state, diagnostic.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run id. If empty, defaults to
	// "test-run-default" so golden files stay stable.
	RunID string `yaml:"run_id,omitempty"`
}

// Readings holds the scripted values for both sensors, in microvolts.
// Cycle n (1-based) reads element n-1; once a list runs out its last
// value is held.
type Readings struct {
	Sensor1 []int32 `yaml:"sensor1"`
	Sensor2 []int32 `yaml:"sensor2"`
}

// Input requests a mode change before the given cycle's step.
type Input struct {
	// Cycle is the 1-based cycle the input applies to.
	Cycle int `yaml:"cycle"`

	// Race selects RUNNING_RACE (true) or RUNNING_NORMAL (false).
	Race bool `yaml:"race"`
}

// StepMatch selects journal steps. Empty fields match anything.
type StepMatch struct {
	Kind    string `yaml:"kind,omitempty"`
	Machine string `yaml:"machine,omitempty"`
	From    string `yaml:"from,omitempty"`
	To      string `yaml:"to,omitempty"`
	State   string `yaml:"state,omitempty"`
	Event   string `yaml:"event,omitempty"`
	Reason  string `yaml:"reason,omitempty"`
	Hook    string `yaml:"hook,omitempty"`
	Message string `yaml:"message,omitempty"`
	Output  string `yaml:"output,omitempty"`
	On      *bool  `yaml:"on,omitempty"`
}

// Assertion validates the journal or the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a step matching Step exists
	// - "trace_order": transitions enter States in this order
	// - "trace_count": exactly Count steps match Step
	// - "final_state": the controller ends in State with Outputs levels
	// - "diagnostic": Message was reported to diagnostics
	Type string `yaml:"type"`

	// Step selects journal steps (trace_contains, trace_count).
	Step StepMatch `yaml:"step,omitempty"`

	// Count is the expected number of matches (trace_count).
	Count int `yaml:"count,omitempty"`

	// States is the expected order of entered states (trace_order).
	States []string `yaml:"states,omitempty"`

	// State is the expected final state name (final_state).
	State string `yaml:"state,omitempty"`

	// Outputs are expected final output levels keyed by output name
	// (final_state). Subset match.
	Outputs map[string]bool `yaml:"outputs,omitempty"`

	// Message is the expected diagnostic text (diagnostic).
	Message string `yaml:"message,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertDiagnostic    = "diagnostic"
)

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

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	scenario := Scenario{Thresholds: config.Default().Thresholds}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
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

	if s.Cycles <= 0 {
		return fmt.Errorf("cycles must be positive")
	}

	if len(s.Readings.Sensor1) == 0 || len(s.Readings.Sensor2) == 0 {
		return fmt.Errorf("readings for sensor1 and sensor2 are required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, in := range s.Inputs {
		if in.Cycle < 1 || in.Cycle > s.Cycles {
			return fmt.Errorf("inputs[%d]: cycle %d outside 1..%d", i, in.Cycle, s.Cycles)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Step == (StepMatch{}) {
			return fmt.Errorf("assertions[%d]: step is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.States) == 0 {
			return fmt.Errorf("assertions[%d]: states list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.State == "" && len(a.Outputs) == 0 {
			return fmt.Errorf("assertions[%d]: state or outputs is required for final_state", index)
		}
	case AssertDiagnostic:
		if a.Message == "" {
			return fmt.Errorf("assertions[%d]: message is required for diagnostic", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
