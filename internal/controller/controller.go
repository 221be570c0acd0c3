package controller

import (
	"fmt"
	"log/slog"

	"github.com/roach88/guardloop/internal/engine"
	"github.com/roach88/guardloop/internal/hal"
)

// EmergencyMessage is the diagnostic emitted on entering EMERGENCY.
const EmergencyMessage = "Emergency!"

// FailureMessage is the diagnostic emitted on entering FAILURE.
const FailureMessage = "Sensor failure"

// Deps are the collaborators the control policy drives.
type Deps struct {
	Sensor1     hal.Sensor
	Sensor2     hal.Sensor
	Outputs     hal.Outputs
	Diagnostics hal.Diagnostics
}

func (d Deps) validate() error {
	var missing []string
	if d.Sensor1 == nil {
		missing = append(missing, "sensor1")
	}
	if d.Sensor2 == nil {
		missing = append(missing, "sensor2")
	}
	if d.Outputs == nil {
		missing = append(missing, "outputs")
	}
	if d.Diagnostics == nil {
		missing = append(missing, "diagnostics")
	}
	if len(missing) > 0 {
		return fmt.Errorf("controller deps missing %v: %w", missing, engine.ErrInvalidPointer)
	}
	return nil
}

// Controller runs the control policy on its own engine.
//
// Thread-safety: not safe for concurrent use; call from the control
// goroutine only.
type Controller struct {
	deps   Deps
	th     Thresholds
	eng    *engine.Engine
	logger *slog.Logger

	engineOpts []engine.Option
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger for the controller and its engine.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers engine observers (journal, tracing).
func WithObserver(observers ...engine.Observer) Option {
	return func(c *Controller) {
		c.engineOpts = append(c.engineOpts, engine.WithObserver(observers...))
	}
}

// New creates a controller. Call Initialize and Start before stepping.
func New(deps Deps, th Thresholds, opts ...Option) (*Controller, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if err := th.Validate(); err != nil {
		return nil, fmt.Errorf("thresholds: %w", err)
	}
	c := &Controller{
		deps:   deps,
		th:     th,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.eng = engine.New(append([]engine.Option{
		engine.WithLogger(c.logger.With("machine", "controller")),
		engine.WithEventNames(EventNames),
	}, c.engineOpts...)...)
	return c, nil
}

// Initialize loads the state table with STARTUP as the current state.
func (c *Controller) Initialize() error {
	if c == nil {
		return engine.ErrInvalidPointer
	}
	return c.eng.Initialize(c.states(), Transitions, StateStartup)
}

// Start runs the STARTUP entry hook, which queues INIT_READY.
func (c *Controller) Start() error {
	if c == nil {
		return engine.ErrInvalidPointer
	}
	return c.eng.EnterInitial()
}

// Step runs one engine cycle. It is the 1 ms lane task.
func (c *Controller) Step() error {
	if c == nil {
		return engine.ErrInvalidPointer
	}
	return c.eng.RunOneCycle()
}

// SelectRace queues the mode change into or out of RUNNING_RACE. The
// request is dropped by the engine unless the controller is in the
// matching running state when the event is consumed.
func (c *Controller) SelectRace(race bool) error {
	if c == nil {
		return engine.ErrInvalidPointer
	}
	if race {
		return c.eng.SendEvent(EventNormalToRace)
	}
	return c.eng.SendEvent(EventRaceToNormal)
}

// Faulted reports whether the controller latched FAILURE.
func (c *Controller) Faulted() bool {
	return c != nil && c.eng.Current() == StateFailure
}

// State returns the current state id.
func (c *Controller) State() engine.StateID {
	if c == nil {
		return 0
	}
	return c.eng.Current()
}

// StateName returns the current state's name.
func (c *Controller) StateName() string {
	if c == nil {
		return ""
	}
	return c.eng.CurrentName()
}

// Engine exposes the underlying engine for inspection.
func (c *Controller) Engine() *engine.Engine {
	if c == nil {
		return nil
	}
	return c.eng
}

func (c *Controller) onEntryStartup(*engine.State, engine.EventID) error {
	return c.eng.SendEvent(EventInitReady)
}

// onStateRunning samples both sensors and checks plausibility and
// agreement. Both channels are read every step.
func (c *Controller) onStateRunning(st *engine.State, _ engine.EventID) error {
	uv1 := c.deps.Sensor1()
	uv2 := c.deps.Sensor2()

	if !c.th.Plausible(uv1) || !c.th.Plausible(uv2) {
		c.logger.Debug("implausible sensor reading",
			"state", st.String(), "sensor1_uv", uv1, "sensor2_uv", uv2)
		return c.eng.SendEvent(EventSensorFailed)
	}

	d1 := c.th.Distance(uv1)
	d2 := c.th.Distance(uv2)
	if c.th.Disagree(d1, d2) {
		c.logger.Debug("sensor disagreement",
			"state", st.String(), "distance1", d1, "distance2", d2, "tolerance", c.th.Tolerance)
		return c.eng.SendEvent(EventEmergency)
	}

	c.deps.Outputs.Toggle(hal.DoorStatus)
	return nil
}

func (c *Controller) onExitRunning(*engine.State, engine.EventID) error {
	return nil
}

func (c *Controller) onEntryEmergency(*engine.State, engine.EventID) error {
	c.deps.Diagnostics.Log(EmergencyMessage)
	c.deps.Outputs.Set(hal.BrakeStatus, true)
	return nil
}

func (c *Controller) onStateEmergency(*engine.State, engine.EventID) error {
	return nil
}

func (c *Controller) onEntryFailure(*engine.State, engine.EventID) error {
	c.deps.Outputs.Set(hal.MotorStatus, true)
	c.deps.Diagnostics.Log(FailureMessage)
	return nil
}
