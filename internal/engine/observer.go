package engine

// Observer receives engine notifications on the control goroutine.
//
// Implementations must return quickly: they run inside RunOneCycle and
// delay every scheduler lane behind the current one.
type Observer interface {
	// Transitioned is called after the state switch and before the
	// destination entry hook runs.
	Transitioned(from, to StateID, ev EventID)

	// Dropped is called when a pending event causes no transition.
	Dropped(state StateID, ev EventID, reason DropReason)

	// HookFailed is called when a hook returns a non-nil error.
	HookFailed(state StateID, hook HookKind, err error)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnTransition func(from, to StateID, ev EventID)
	OnDrop       func(state StateID, ev EventID, reason DropReason)
	OnHookFail   func(state StateID, hook HookKind, err error)
}

func (f ObserverFuncs) Transitioned(from, to StateID, ev EventID) {
	if f.OnTransition != nil {
		f.OnTransition(from, to, ev)
	}
}

func (f ObserverFuncs) Dropped(state StateID, ev EventID, reason DropReason) {
	if f.OnDrop != nil {
		f.OnDrop(state, ev, reason)
	}
}

func (f ObserverFuncs) HookFailed(state StateID, hook HookKind, err error) {
	if f.OnHookFail != nil {
		f.OnHookFail(state, hook, err)
	}
}
