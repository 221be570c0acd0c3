package ir

import "fmt"

// StepKind categorizes a journal step.
type StepKind string

const (
	KindTransition StepKind = "transition"
	KindDrop       StepKind = "drop"
	KindHookError  StepKind = "hook_error"
	KindDiagnostic StepKind = "diagnostic"
	KindOutput     StepKind = "output"
	KindSystem     StepKind = "system"
)

// ValidStepKinds defines allowed step kinds.
var ValidStepKinds = map[StepKind]bool{
	KindTransition: true,
	KindDrop:       true,
	KindHookError:  true,
	KindDiagnostic: true,
	KindOutput:     true,
	KindSystem:     true,
}

// Machine names the engine instance a step came from.
const (
	MachineController = "controller"
	MachineSystem     = "system"
)

// Step is one observable thing that happened during a run.
//
// Only the fields relevant to Kind are set:
//   - transition: From, To, Event
//   - drop: State, Event, Reason
//   - hook_error: State, Hook, Message
//   - diagnostic: Message
//   - output: Output, On
//   - system: Message
type Step struct {
	ID      string   `json:"id"` // Content-addressed hash
	RunID   string   `json:"run_id"`
	Seq     int64    `json:"seq"` // Logical clock
	Cycle   int64    `json:"cycle"`
	Machine string   `json:"machine,omitempty"`
	Kind    StepKind `json:"kind"`
	From    string   `json:"from,omitempty"`
	To      string   `json:"to,omitempty"`
	State   string   `json:"state,omitempty"`
	Event   string   `json:"event,omitempty"`
	Reason  string   `json:"reason,omitempty"`
	Hook    string   `json:"hook,omitempty"`
	Message string   `json:"message,omitempty"`
	Output  string   `json:"output,omitempty"`
	On      bool     `json:"on,omitempty"`
}

// Fields returns the step as a plain map for canonical encoding.
// Empty optional fields and the ID are omitted.
func (s Step) Fields() map[string]any {
	m := map[string]any{
		"run_id": s.RunID,
		"seq":    s.Seq,
		"cycle":  s.Cycle,
		"kind":   string(s.Kind),
	}
	optional := map[string]string{
		"machine": s.Machine,
		"from":    s.From,
		"to":      s.To,
		"state":   s.State,
		"event":   s.Event,
		"reason":  s.Reason,
		"hook":    s.Hook,
		"message": s.Message,
		"output":  s.Output,
	}
	for k, v := range optional {
		if v != "" {
			m[k] = v
		}
	}
	if s.Kind == KindOutput {
		m["on"] = s.On
	}
	return m
}

// Summary renders the step as one human-readable line.
func (s Step) Summary() string {
	switch s.Kind {
	case KindTransition:
		return fmt.Sprintf("%s: %s -> %s on %s", s.Machine, s.From, s.To, s.Event)
	case KindDrop:
		return fmt.Sprintf("%s: %s dropped in %s (%s)", s.Machine, s.Event, s.State, s.Reason)
	case KindHookError:
		return fmt.Sprintf("%s: %s hook of %s failed: %s", s.Machine, s.Hook, s.State, s.Message)
	case KindOutput:
		level := "off"
		if s.On {
			level = "on"
		}
		return fmt.Sprintf("output %s %s", s.Output, level)
	default:
		return fmt.Sprintf("%s: %s", s.Kind, s.Message)
	}
}

// Run describes one journaled execution.
type Run struct {
	ID            string `json:"id"`
	Source        string `json:"source"` // config path or scenario name
	ConfigHash    string `json:"config_hash"`
	EngineVersion string `json:"engine_version"`
	Outcome       string `json:"outcome,omitempty"`
}
