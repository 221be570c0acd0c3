// Package engine implements the table-driven state machine at the core of
// guardloop.
//
// The engine interprets a caller-owned configuration: an ordered set of
// states, each with optional entry/state/exit hooks, and a flat table of
// guarded transitions. It keeps exactly two pieces of runtime state: the
// current state and a single pending-event slot.
//
// ARCHITECTURE:
//
// One Step Per Cycle:
// RunOneCycle performs exactly one of two things:
//  1. If an event is pending, look up the first transition for
//     (current state, event) in declaration order, run the source exit hook,
//     switch state, run the destination entry hook.
//  2. Otherwise run the current state's on-state hook.
//
// Hooks may call SendEvent. SendEvent only writes the pending slot, so an
// event raised during a cycle is evaluated on the next cycle, never the
// current one. This bounds the work done per scheduler tick.
//
// Event Slot:
// The slot holds at most one event. A second SendEvent before the next
// cycle overwrites the first (last write wins). An event with no matching
// transition is dropped silently and reported to observers.
//
// CRITICAL PATTERNS:
//
// Single Writer:
// The engine is not safe for concurrent use. It is driven from one control
// loop goroutine; hooks run on that goroutine.
//
// Deterministic Lookup:
// Transitions for the same (state, event) pair are kept in declaration
// order. The first entry decides. Guard rejection drops the event unless
// the engine is built with GuardFallThrough.
package engine
