package engine

import "fmt"

// StateID identifies a state within one engine configuration.
type StateID int32

// EventID identifies an event within one engine configuration.
type EventID int32

// HookFunc is a state lifecycle callback. It receives the state it is
// attached to and the event that caused it to run (the triggering event for
// entry/exit, the zero EventID for on-state).
type HookFunc func(st *State, ev EventID) error

// GuardFunc vetoes an otherwise matching transition by returning false.
type GuardFunc func(st *State, ev EventID) bool

// State is one mode of the controlled system.
//
// A nil hook means "no hook"; it is never called. A hook that does nothing
// must be supplied as a function returning nil.
type State struct {
	ID   StateID
	Name string

	OnEntry HookFunc
	OnState HookFunc
	OnExit  HookFunc

	// Terminal marks a state the owning driver treats as final.
	// The engine still runs its on-state hook.
	Terminal bool
}

// String returns the state name, or its numeric id when unnamed.
func (s *State) String() string {
	if s == nil {
		return "<nil>"
	}
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("state(%d)", s.ID)
}

// Transition is a configured (source, event, destination, guard) rule.
// A nil Guard always accepts.
type Transition struct {
	From  StateID
	To    StateID
	Event EventID
	Guard GuardFunc
}

// HookKind names which lifecycle hook ran.
type HookKind int

const (
	HookEntry HookKind = iota + 1
	HookState
	HookExit
)

func (k HookKind) String() string {
	switch k {
	case HookEntry:
		return "entry"
	case HookState:
		return "state"
	case HookExit:
		return "exit"
	default:
		return fmt.Sprintf("hook(%d)", int(k))
	}
}

// GuardPolicy controls what a rejecting guard does to the pending event.
type GuardPolicy int

const (
	// GuardDrop treats a rejected first match as "no transition": the
	// event is dropped. This is the default.
	GuardDrop GuardPolicy = iota
	// GuardFallThrough evaluates the next matching entry in declaration
	// order until one accepts or the candidates run out.
	GuardFallThrough
)

// DropReason explains why a pending event did not cause a transition.
type DropReason int

const (
	DropNoTransition DropReason = iota + 1
	DropGuardRejected
)

func (r DropReason) String() string {
	switch r {
	case DropNoTransition:
		return "no_transition"
	case DropGuardRejected:
		return "guard_rejected"
	default:
		return fmt.Sprintf("drop(%d)", int(r))
	}
}
