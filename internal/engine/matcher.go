package engine

// transitionKey indexes transitions by (source state, event).
type transitionKey struct {
	from  StateID
	event EventID
}

// transitionIndex is built once by Initialize and replaces the linear table
// scan. Each bucket lists transition positions in declaration order.
type transitionIndex map[transitionKey][]int

// buildIndex groups transitions by (From, Event), preserving table order
// within each group.
func buildIndex(transitions []Transition) transitionIndex {
	idx := make(transitionIndex, len(transitions))
	for i, t := range transitions {
		k := transitionKey{from: t.From, event: t.Event}
		idx[k] = append(idx[k], i)
	}
	return idx
}

// candidates returns the positions of all transitions leaving from on ev.
func (idx transitionIndex) candidates(from StateID, ev EventID) []int {
	return idx[transitionKey{from: from, event: ev}]
}

// match selects the transition to take for ev in state st.
//
// The first candidate in declaration order decides. With GuardDrop a
// rejecting guard ends the search; with GuardFallThrough the next candidate
// is tried. Returns the transition position, or -1 with the reason the
// event is dropped.
func (e *Engine) match(st *State, ev EventID) (int, DropReason) {
	positions := e.index.candidates(st.ID, ev)
	if len(positions) == 0 {
		return -1, DropNoTransition
	}
	for _, pos := range positions {
		t := &e.transitions[pos]
		if t.Guard == nil || t.Guard(st, ev) {
			return pos, 0
		}
		e.logger.Debug("guard rejected transition",
			"state", st.String(), "event", e.eventName(ev), "to", e.stateName(t.To))
		if e.guardPolicy == GuardDrop {
			break
		}
	}
	return -1, DropGuardRejected
}
