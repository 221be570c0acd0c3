// Package system drives the process lifecycle: startup, the scheduled
// running loop, and the latching fail-stop.
//
// The lifecycle is itself a state table run by a second engine:
//
//	STARTUP --INIT_OK--> RUNNING --FAULT--> FAILURE --HALT--> HALTED
//	STARTUP --INIT_FAILED--> FAILURE
//
// HALTED is terminal. Once reached, Run returns ErrHalted and outputs stay
// in the safe configuration.
package system

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/guardloop/internal/controller"
	"github.com/roach88/guardloop/internal/engine"
	"github.com/roach88/guardloop/internal/hal"
	"github.com/roach88/guardloop/internal/scheduler"
)

var (
	// ErrHalted is returned by Run once the fail-stop has latched.
	ErrHalted = errors.New("system halted")

	// ErrCycleLimit is returned by Run when the WithMaxCycles limit is reached.
	ErrCycleLimit = errors.New("cycle limit reached")
)

// Lifecycle state ids.
const (
	StateStartup engine.StateID = iota + 1
	StateRunning
	StateFailure
	StateHalted
)

// Lifecycle event ids.
const (
	EventInitOK engine.EventID = iota + 1
	EventInitFailed
	EventFault
	EventHalt
)

// EventNames maps lifecycle event ids to display names.
var EventNames = map[engine.EventID]string{
	EventInitOK:     "INIT_OK",
	EventInitFailed: "INIT_FAILED",
	EventFault:      "FAULT",
	EventHalt:       "HALT",
}

// StateNames maps lifecycle state ids to display names.
var StateNames = map[engine.StateID]string{
	StateStartup: "STARTUP",
	StateRunning: "RUNNING",
	StateFailure: "FAILURE",
	StateHalted:  "HALTED",
}

// Names returns display names for the lifecycle states and events.
func Names() engine.Names {
	return engine.Names{States: StateNames, Events: EventNames}
}

var transitions = []engine.Transition{
	{From: StateStartup, To: StateRunning, Event: EventInitOK},
	{From: StateStartup, To: StateFailure, Event: EventInitFailed},
	{From: StateRunning, To: StateFailure, Event: EventFault},
	{From: StateFailure, To: StateHalted, Event: EventHalt},
}

// Deps are the system's collaborators.
type Deps struct {
	Ticks      scheduler.TickSource
	Controller controller.Deps
}

// System owns the scheduler, the controller and the lifecycle engine.
//
// Thread-safety: not safe for concurrent use. Run and Cycle must be called
// from one goroutine.
type System struct {
	deps Deps
	th   controller.Thresholds

	eng   *engine.Engine
	sched *scheduler.Scheduler
	ctrl  *controller.Controller

	logger    *slog.Logger
	pace      time.Duration
	observers []engine.Observer
	ctrlOpts  []controller.Option
	initErr   error
	stepErr   error
	cycles    uint64
	maxCycles uint64

	race     bool // select RUNNING_RACE once the controller is running
	raceSent bool
}

// Option configures a System.
type Option func(*System)

// WithLogger sets the logger for the system and everything it owns.
func WithLogger(logger *slog.Logger) Option {
	return func(s *System) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver registers observers on the lifecycle engine.
func WithObserver(observers ...engine.Observer) Option {
	return func(s *System) {
		s.observers = append(s.observers, observers...)
	}
}

// WithControllerOptions passes options through to the controller.
func WithControllerOptions(opts ...controller.Option) Option {
	return func(s *System) {
		s.ctrlOpts = append(s.ctrlOpts, opts...)
	}
}

// WithPace makes Run wait for d between cycles. Zero spins.
func WithPace(d time.Duration) Option {
	return func(s *System) {
		s.pace = d
	}
}

// WithMaxCycles makes Run stop with ErrCycleLimit after n cycles.
// Zero means no limit.
func WithMaxCycles(n uint64) Option {
	return func(s *System) {
		s.maxCycles = n
	}
}

// WithRace requests RUNNING_RACE as soon as the controller reaches
// RUNNING_NORMAL.
func WithRace(race bool) Option {
	return func(s *System) {
		s.race = race
	}
}

// New creates a system in STARTUP. Nothing is initialized until the first
// Cycle.
func New(deps Deps, th controller.Thresholds, opts ...Option) (*System, error) {
	if deps.Ticks == nil {
		return nil, fmt.Errorf("system deps missing tick source: %w", engine.ErrInvalidPointer)
	}
	if deps.Controller.Outputs == nil {
		return nil, fmt.Errorf("system deps missing outputs: %w", engine.ErrInvalidPointer)
	}
	s := &System{
		deps:   deps,
		th:     th,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.sched = scheduler.New(deps.Ticks, scheduler.WithLogger(s.logger.With("component", "scheduler")))
	s.eng = engine.New(
		engine.WithLogger(s.logger.With("machine", "system")),
		engine.WithEventNames(EventNames),
		engine.WithObserver(s.observers...),
	)
	if err := s.eng.Initialize(s.states(), transitions, StateStartup); err != nil {
		return nil, fmt.Errorf("system state table: %w", err)
	}
	return s, nil
}

func (s *System) states() []engine.State {
	return []engine.State{
		{ID: StateStartup, Name: StateNames[StateStartup], OnState: s.onStateStartup},
		{ID: StateRunning, Name: StateNames[StateRunning], OnState: s.onStateRunning},
		{ID: StateFailure, Name: StateNames[StateFailure], OnEntry: s.onEntryFailure},
		{ID: StateHalted, Name: StateNames[StateHalted], Terminal: true},
	}
}

// Table returns the lifecycle state table for inspection. Hooks are
// replaced by no-ops; only their presence is meaningful.
func Table() ([]engine.State, []engine.Transition) {
	states := (&System{}).states()
	for i := range states {
		states[i].OnEntry = inert(states[i].OnEntry)
		states[i].OnState = inert(states[i].OnState)
		states[i].OnExit = inert(states[i].OnExit)
	}
	return states, append([]engine.Transition(nil), transitions...)
}

func inert(fn engine.HookFunc) engine.HookFunc {
	if fn == nil {
		return nil
	}
	return func(*engine.State, engine.EventID) error { return nil }
}

// Cycle runs one lifecycle step. In RUNNING, that is one scheduler cycle.
func (s *System) Cycle() error {
	if s == nil {
		return engine.ErrInvalidPointer
	}
	s.cycles++
	return s.eng.RunOneCycle()
}

// Run cycles until the system halts or ctx is done.
//
// Returns ErrHalted after the fail-stop latched, ErrCycleLimit once the
// configured cycle limit is reached, or ctx.Err().
// Hook errors are logged and do not stop the loop.
func (s *System) Run(ctx context.Context) error {
	if s == nil {
		return engine.ErrInvalidPointer
	}

	var tick <-chan time.Time
	if s.pace > 0 {
		t := time.NewTicker(s.pace)
		defer t.Stop()
		tick = t.C
	}

	for {
		if s.Halted() {
			s.logger.Error("fail-stop latched", "cycles", s.cycles, "init_error", s.initErr)
			return ErrHalted
		}
		if s.maxCycles > 0 && s.cycles >= s.maxCycles {
			return ErrCycleLimit
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := s.Cycle(); err != nil {
			s.logger.Warn("cycle failed", "state", s.eng.CurrentName(), "error", err)
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
	}
}

// Halted reports whether the fail-stop latched.
func (s *System) Halted() bool {
	return s != nil && s.eng.Halted()
}

// State returns the lifecycle state id.
func (s *System) State() engine.StateID {
	if s == nil {
		return 0
	}
	return s.eng.Current()
}

// StateName returns the lifecycle state name.
func (s *System) StateName() string {
	if s == nil {
		return ""
	}
	return s.eng.CurrentName()
}

// Controller returns the controller, or nil before startup completed.
func (s *System) Controller() *controller.Controller {
	if s == nil {
		return nil
	}
	return s.ctrl
}

// Scheduler returns the scheduler.
func (s *System) Scheduler() *scheduler.Scheduler {
	if s == nil {
		return nil
	}
	return s.sched
}

// InitErr returns the startup error that sent the system to FAILURE.
func (s *System) InitErr() error {
	if s == nil {
		return nil
	}
	return s.initErr
}

// Cycles returns how many lifecycle cycles have run.
func (s *System) Cycles() uint64 {
	if s == nil {
		return 0
	}
	return s.cycles
}

func (s *System) onStateStartup(*engine.State, engine.EventID) error {
	if err := s.startup(); err != nil {
		s.initErr = err
		s.logger.Error("startup failed", "error", err)
		return s.eng.SendEvent(EventInitFailed)
	}
	s.logger.Info("startup complete")
	return s.eng.SendEvent(EventInitOK)
}

func (s *System) startup() error {
	if err := s.sched.Initialize(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	opts := append([]controller.Option{controller.WithLogger(s.logger)}, s.ctrlOpts...)
	ctrl, err := controller.New(s.deps.Controller, s.th, opts...)
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	if err := ctrl.Initialize(); err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	if err := ctrl.Start(); err != nil {
		return fmt.Errorf("controller start: %w", err)
	}
	s.ctrl = ctrl

	outputs := s.deps.Controller.Outputs
	noop := func() {}
	err = s.sched.AssignAll(scheduler.Tasks{
		Every1ms: func() {
			if err := ctrl.Step(); err != nil {
				s.stepErr = err
			}
		},
		Every10ms:   noop,
		Every100ms:  noop,
		Every250ms:  noop,
		Every1000ms: func() { outputs.Toggle(hal.Heartbeat) },
	})
	if err != nil {
		return fmt.Errorf("assign lanes: %w", err)
	}
	return nil
}

func (s *System) onStateRunning(*engine.State, engine.EventID) error {
	s.stepErr = nil
	s.requestRace()
	if err := s.sched.Cycle(); err != nil {
		return err
	}
	if s.ctrl.Faulted() {
		if err := s.eng.SendEvent(EventFault); err != nil {
			return err
		}
	}
	return s.stepErr
}

// requestRace queues the race mode request once the controller is in
// RUNNING_NORMAL with nothing pending, so it cannot overwrite an event the
// controller raised itself.
func (s *System) requestRace() {
	if !s.race || s.raceSent || s.ctrl.State() != controller.StateRunningNormal {
		return
	}
	if _, pending := s.ctrl.Engine().Pending(); pending {
		return
	}
	if err := s.ctrl.SelectRace(true); err == nil {
		s.raceSent = true
		s.logger.Info("race mode requested")
	}
}

// onEntryFailure forces the safe output configuration and latches.
func (s *System) onEntryFailure(*engine.State, engine.EventID) error {
	out := s.deps.Controller.Outputs
	out.Set(hal.BrakeStatus, false)
	out.Set(hal.DoorStatus, false)
	return s.eng.SendEvent(EventHalt)
}
