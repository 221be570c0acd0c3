package controller

import "github.com/roach88/guardloop/internal/engine"

// State ids.
const (
	StateStartup engine.StateID = iota + 1
	StateRunningNormal
	StateRunningRace
	StateEmergency
	StateFailure
)

// Event ids.
const (
	EventInitReady engine.EventID = iota + 1
	EventSensorFailed
	EventNormalToRace
	EventRaceToNormal
	EventEmergency
)

// EventNames maps event ids to display names.
var EventNames = map[engine.EventID]string{
	EventInitReady:    "INIT_READY",
	EventSensorFailed: "SENSOR_FAILED",
	EventNormalToRace: "NORMAL_TO_RACE",
	EventRaceToNormal: "RACE_TO_NORMAL",
	EventEmergency:    "EMERGENCY",
}

// Transitions is the controller's transition table, in declaration order.
// No row carries a guard.
var Transitions = []engine.Transition{
	{From: StateStartup, To: StateRunningNormal, Event: EventInitReady},
	{From: StateStartup, To: StateFailure, Event: EventSensorFailed},
	{From: StateRunningNormal, To: StateRunningRace, Event: EventNormalToRace},
	{From: StateRunningRace, To: StateRunningNormal, Event: EventRaceToNormal},
	{From: StateRunningNormal, To: StateEmergency, Event: EventEmergency},
	{From: StateRunningRace, To: StateEmergency, Event: EventEmergency},
	{From: StateRunningNormal, To: StateFailure, Event: EventSensorFailed},
	{From: StateRunningRace, To: StateFailure, Event: EventSensorFailed},
}

// states binds the state list to c's hooks.
func (c *Controller) states() []engine.State {
	return []engine.State{
		{ID: StateStartup, Name: "STARTUP", OnEntry: c.onEntryStartup},
		{ID: StateRunningNormal, Name: "RUNNING_NORMAL", OnState: c.onStateRunning, OnExit: c.onExitRunning},
		{ID: StateRunningRace, Name: "RUNNING_RACE", OnState: c.onStateRunning, OnExit: c.onExitRunning},
		{ID: StateEmergency, Name: "EMERGENCY", OnEntry: c.onEntryEmergency, OnState: c.onStateEmergency},
		{ID: StateFailure, Name: "FAILURE", OnEntry: c.onEntryFailure},
	}
}

// Table returns the state list and the transition table for rendering and
// inspection. Hooks in the returned states do nothing; only their presence
// is meaningful.
func Table() ([]engine.State, []engine.Transition) {
	states := (&Controller{}).states()
	for i := range states {
		states[i].OnEntry = inert(states[i].OnEntry)
		states[i].OnState = inert(states[i].OnState)
		states[i].OnExit = inert(states[i].OnExit)
	}
	return states, append([]engine.Transition(nil), Transitions...)
}

func inert(fn engine.HookFunc) engine.HookFunc {
	if fn == nil {
		return nil
	}
	return func(*engine.State, engine.EventID) error { return nil }
}

// Names returns display names for the controller's states and events.
func Names() engine.Names {
	states, _ := Table()
	return engine.NamesOf(states, EventNames)
}
