package engine

// eventSlot is the engine's single pending-event buffer.
//
// Unlike a FIFO, the slot holds at most one event: put overwrites any
// unconsumed event. An empty slot is represented by full == false, so every
// EventID value (including zero) is a valid event.
type eventSlot struct {
	event EventID
	full  bool
}

// put stores ev, replacing any pending event.
// Returns the overwritten event and whether one was replaced.
func (s *eventSlot) put(ev EventID) (EventID, bool) {
	prev, replaced := s.event, s.full
	s.event = ev
	s.full = true
	return prev, replaced
}

// take removes and returns the pending event.
// Returns (0, false) if the slot is empty.
func (s *eventSlot) take() (EventID, bool) {
	if !s.full {
		return 0, false
	}
	ev := s.event
	s.event = 0
	s.full = false
	return ev, true
}

// peek returns the pending event without consuming it.
func (s *eventSlot) peek() (EventID, bool) {
	return s.event, s.full
}

func (s *eventSlot) clear() {
	s.event = 0
	s.full = false
}
