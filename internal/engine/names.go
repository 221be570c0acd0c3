package engine

import "fmt"

// Names maps state and event ids to display names for observers that
// render or persist what they see.
type Names struct {
	States map[StateID]string
	Events map[EventID]string
}

// NamesOf collects state names from a state list.
func NamesOf(states []State, events map[EventID]string) Names {
	n := Names{States: make(map[StateID]string, len(states)), Events: events}
	for i := range states {
		n.States[states[i].ID] = states[i].String()
	}
	return n
}

// State returns the name of id, falling back to its number.
func (n Names) State(id StateID) string {
	if name, ok := n.States[id]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", id)
}

// Event returns the name of ev, falling back to its number.
func (n Names) Event(ev EventID) string {
	if name, ok := n.Events[ev]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", ev)
}
