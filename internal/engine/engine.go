package engine

import (
	"errors"
	"fmt"
	"log/slog"
)

// Engine interprets one state table.
//
// Thread-safety model:
//   - All methods must be called from the single control goroutine.
//   - Hooks run synchronously inside RunOneCycle or EnterInitial and may
//     call SendEvent; they must not block.
//
// INVARIANTS:
//   - After Initialize, the current state is a member of the state set.
//   - The pending slot holds at most one event.
//   - RunOneCycle applies at most one transition and never both a
//     transition and an on-state hook.
type Engine struct {
	states      []State      // borrowed from the caller, never written
	transitions []Transition // borrowed from the caller, never written

	byID  map[StateID]int // state id -> position in states
	index transitionIndex // (from, event) -> transition positions

	current int
	slot    eventSlot

	initialized bool
	entered     bool // initial on-entry hook already ran
	running     bool // re-entrancy guard for RunOneCycle/EnterInitial

	guardPolicy GuardPolicy
	logger      *slog.Logger
	observers   []Observer
	eventNames  map[EventID]string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for engine diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver registers observers notified of transitions, drops and hook
// failures. Observers are called in registration order.
func WithObserver(observers ...Observer) Option {
	return func(e *Engine) {
		for _, o := range observers {
			if o != nil {
				e.observers = append(e.observers, o)
			}
		}
	}
}

// WithGuardPolicy selects how a rejecting guard is handled.
//
// Default: GuardDrop.
func WithGuardPolicy(p GuardPolicy) Option {
	return func(e *Engine) {
		e.guardPolicy = p
	}
}

// WithEventNames provides human-readable event names for logs.
func WithEventNames(names map[EventID]string) Option {
	return func(e *Engine) {
		e.eventNames = names
	}
}

// New creates an uninitialized engine. Call Initialize before use.
func New(opts ...Option) *Engine {
	e := &Engine{
		guardPolicy: GuardDrop,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize binds the engine to a state set and transition table and
// makes initial the current state.
//
// The slices are borrowed for the engine's lifetime and must not be
// modified afterwards. No hook runs; see EnterInitial.
//
// Returns ErrInvalidPointer for a nil engine or nil slices, and a
// *ConfigError (wrapping ErrInvalidConfiguration) for empty slices,
// duplicate state ids or references to unknown states.
func (e *Engine) Initialize(states []State, transitions []Transition, initial StateID) error {
	if e == nil {
		return ErrInvalidPointer
	}
	if states == nil {
		return fmt.Errorf("initialize: nil states: %w", ErrInvalidPointer)
	}
	if transitions == nil {
		return fmt.Errorf("initialize: nil transitions: %w", ErrInvalidPointer)
	}
	if len(states) == 0 {
		return &ConfigError{Code: ErrCodeNoStates, Index: -1}
	}
	if len(transitions) == 0 {
		return &ConfigError{Code: ErrCodeNoTransitions, Index: -1}
	}

	byID := make(map[StateID]int, len(states))
	for i := range states {
		id := states[i].ID
		if _, dup := byID[id]; dup {
			return &ConfigError{Code: ErrCodeDuplicateState, Index: i, State: id}
		}
		byID[id] = i
	}

	for i, t := range transitions {
		if _, ok := byID[t.From]; !ok {
			return &ConfigError{Code: ErrCodeUnknownSource, Index: i, State: t.From}
		}
		if _, ok := byID[t.To]; !ok {
			return &ConfigError{Code: ErrCodeUnknownTarget, Index: i, State: t.To}
		}
	}

	start, ok := byID[initial]
	if !ok {
		return &ConfigError{Code: ErrCodeUnknownInitial, Index: -1, State: initial}
	}

	e.states = states
	e.transitions = transitions
	e.byID = byID
	e.index = buildIndex(transitions)
	e.current = start
	e.slot.clear()
	e.entered = false
	e.running = false
	e.initialized = true

	e.logger.Debug("state table initialized",
		"states", len(states),
		"transitions", len(transitions),
		"initial", e.states[start].String(),
	)
	return nil
}

// EnterInitial runs the initial state's on-entry hook.
//
// It is part of the caller's startup sequence: Initialize never runs hooks,
// so a startup state whose entry hook raises a "ready" event needs this call
// before the first RunOneCycle. Calling it again is a no-op.
func (e *Engine) EnterInitial() error {
	if e == nil {
		return ErrInvalidPointer
	}
	if !e.initialized {
		return fmt.Errorf("enter initial: engine not initialized: %w", ErrInvalidPointer)
	}
	if e.entered || e.running {
		return nil
	}
	e.entered = true

	e.running = true
	defer func() { e.running = false }()

	st := &e.states[e.current]
	return e.runHook(st, HookEntry, st.OnEntry, 0)
}

// SendEvent stores ev in the pending slot, overwriting any event that has
// not yet been consumed. It never processes the event; that happens on the
// next RunOneCycle.
func (e *Engine) SendEvent(ev EventID) error {
	if e == nil {
		return ErrInvalidPointer
	}
	if prev, replaced := e.slot.put(ev); replaced && prev != ev {
		e.logger.Debug("pending event overwritten",
			"dropped", e.eventName(prev), "event", e.eventName(ev))
	}
	return nil
}

// RunOneCycle performs one state machine step.
//
// With an event pending, the first matching transition for the current
// state is applied: source exit hook, state switch, destination entry hook.
// An unmatched (or guard-rejected) event is dropped and the state is left
// unchanged; that is not an error. Without a pending event, the current
// state's on-state hook runs.
//
// The pending slot is cleared before any hook runs, so events sent from
// exit or entry hooks are kept for the next cycle.
//
// Returns the hook error (exit and entry errors joined), or nil if no hook
// ran or all hooks succeeded. A call made from inside a hook is ignored.
func (e *Engine) RunOneCycle() error {
	if e == nil {
		return ErrInvalidPointer
	}
	if !e.initialized {
		return fmt.Errorf("run cycle: engine not initialized: %w", ErrInvalidPointer)
	}
	if e.running {
		e.logger.Warn("re-entrant cycle ignored", "state", e.states[e.current].String())
		return nil
	}
	e.running = true
	defer func() { e.running = false }()

	st := &e.states[e.current]
	if ev, ok := e.slot.take(); ok {
		return e.apply(st, ev)
	}
	return e.runHook(st, HookState, st.OnState, 0)
}

// apply resolves ev against the table and performs the transition.
func (e *Engine) apply(st *State, ev EventID) error {
	pos, reason := e.match(st, ev)
	if pos < 0 {
		e.logger.Debug("event dropped",
			"state", st.String(), "event", e.eventName(ev), "reason", reason.String())
		for _, o := range e.observers {
			o.Dropped(st.ID, ev, reason)
		}
		return nil
	}

	t := &e.transitions[pos]
	exitErr := e.runHook(st, HookExit, st.OnExit, ev)

	e.current = e.byID[t.To]
	next := &e.states[e.current]

	e.logger.Debug("transition",
		"from", st.String(), "to", next.String(), "event", e.eventName(ev))
	for _, o := range e.observers {
		o.Transitioned(st.ID, next.ID, ev)
	}

	entryErr := e.runHook(next, HookEntry, next.OnEntry, ev)
	return errors.Join(exitErr, entryErr)
}

// runHook calls fn if present and wraps its error.
func (e *Engine) runHook(st *State, kind HookKind, fn HookFunc, ev EventID) error {
	if fn == nil {
		return nil
	}
	if err := fn(st, ev); err != nil {
		e.logger.Warn("hook failed", "state", st.String(), "hook", kind.String(), "error", err)
		for _, o := range e.observers {
			o.HookFailed(st.ID, kind, err)
		}
		return &HookError{State: st.ID, Hook: kind, Err: err}
	}
	return nil
}

// Current returns the current state id. Zero before Initialize.
func (e *Engine) Current() StateID {
	if e == nil || !e.initialized {
		return 0
	}
	return e.states[e.current].ID
}

// CurrentName returns the current state's display name.
func (e *Engine) CurrentName() string {
	if e == nil || !e.initialized {
		return ""
	}
	return e.states[e.current].String()
}

// Pending reports the event waiting in the slot, if any.
func (e *Engine) Pending() (EventID, bool) {
	if e == nil {
		return 0, false
	}
	return e.slot.peek()
}

// Halted reports whether the current state is terminal.
func (e *Engine) Halted() bool {
	if e == nil || !e.initialized {
		return false
	}
	return e.states[e.current].Terminal
}

// Initialized reports whether Initialize succeeded.
func (e *Engine) Initialized() bool {
	return e != nil && e.initialized
}

// StateName returns the name of state id, falling back to its number.
func (e *Engine) StateName(id StateID) string {
	if e == nil {
		return ""
	}
	return e.stateName(id)
}

// EventName returns the configured name of ev, falling back to its number.
func (e *Engine) EventName(ev EventID) string {
	if e == nil {
		return ""
	}
	return e.eventName(ev)
}

func (e *Engine) stateName(id StateID) string {
	if pos, ok := e.byID[id]; ok {
		return e.states[pos].String()
	}
	return fmt.Sprintf("state(%d)", id)
}

func (e *Engine) eventName(ev EventID) string {
	if name, ok := e.eventNames[ev]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", ev)
}
