package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/guardloop/internal/config"
	"github.com/roach88/guardloop/internal/controller"
	"github.com/roach88/guardloop/internal/hal"
	"github.com/roach88/guardloop/internal/ir"
	"github.com/roach88/guardloop/internal/store"
	"github.com/roach88/guardloop/internal/testutil"
)

// Run outcomes recorded on the journal run.
const (
	OutcomePass = "pass"
	OutcomeFail = "fail"
)

// Harness executes one scenario against a fresh controller.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	journal  *store.Journal
	outputs  *hal.MemoryOutputs
	diags    *hal.RecordingDiagnostics
	ctrl     *controller.Controller
	logger   *slog.Logger
	cycle    int64
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with a
// fixed run id so traces are reproducible.
//
// Execution flow:
// 1. Create fresh in-memory database and journal run
// 2. Build the controller with scripted sensors and recording outputs
// 3. Initialize and start (STARTUP entry queues INIT_READY)
// 4. Step the controller once per cycle, applying inputs first
// 5. Read the journal back and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	runID := testutil.NewFixedRunIDGenerator(scenario.RunID).Generate()

	cfg := config.Default()
	cfg.Thresholds = scenario.Thresholds
	configHash, err := ir.ConfigHash(cfg.HashFields())
	if err != nil {
		return nil, fmt.Errorf("failed to hash thresholds: %w", err)
	}
	if err := st.WriteRun(ctx, ir.Run{
		ID:            runID,
		Source:        scenario.Name,
		ConfigHash:    configHash,
		EngineVersion: ir.EngineVersion,
	}); err != nil {
		return nil, fmt.Errorf("failed to write run: %w", err)
	}

	h := &Harness{
		scenario: scenario,
		store:    st,
		diags:    &hal.RecordingDiagnostics{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	h.journal = store.NewJournal(ctx, st, runID,
		store.WithCycle(func() int64 { return h.cycle }),
		store.WithJournalLogger(h.logger),
	)
	h.outputs = hal.NewMemoryOutputs(h.journal.OutputChanged)

	ctrl, err := controller.New(controller.Deps{
		Sensor1:     h.sensor(scenario.Readings.Sensor1),
		Sensor2:     h.sensor(scenario.Readings.Sensor2),
		Outputs:     h.outputs,
		Diagnostics: hal.MultiDiagnostics{h.diags, h.journal},
	}, cfg.ControllerThresholds(),
		controller.WithLogger(h.logger),
		controller.WithObserver(h.journal.Observer(ir.MachineController, controller.Names())),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}
	h.ctrl = ctrl

	if err := ctrl.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize controller: %w", err)
	}
	if err := ctrl.Start(); err != nil {
		return nil, fmt.Errorf("failed to start controller: %w", err)
	}

	h.executeCycles()

	if err := h.journal.Err(); err != nil {
		return nil, fmt.Errorf("journal write failed: %w", err)
	}

	result, err := h.collect(ctx, runID)
	if err != nil {
		return nil, err
	}

	for _, f := range CheckAssertions(result, scenario.Assertions) {
		result.AddFailure(f)
	}

	outcome := OutcomePass
	if !result.Pass {
		outcome = OutcomeFail
	}
	if err := st.SetOutcome(ctx, runID, outcome); err != nil {
		return nil, fmt.Errorf("failed to record outcome: %w", err)
	}

	return result, nil
}

// executeCycles steps the controller Cycles times.
// Hook failures are journaled as hook_error steps, so step errors are
// only logged here.
func (h *Harness) executeCycles() {
	for c := 1; c <= h.scenario.Cycles; c++ {
		h.cycle = int64(c)

		for _, in := range h.scenario.Inputs {
			if in.Cycle == c {
				// Only fails on a nil controller.
				_ = h.ctrl.SelectRace(in.Race)
			}
		}

		if err := h.ctrl.Step(); err != nil {
			h.logger.Info("cycle returned error", "cycle", c, "error", err)
		}

		h.logger.Info("cycle completed", "cycle", c, "state", h.ctrl.StateName())
	}
}

// sensor returns a reading source indexed by the current cycle.
func (h *Harness) sensor(readings []int32) hal.Sensor {
	return func() int32 {
		i := int(h.cycle) - 1
		if i >= len(readings) {
			i = len(readings) - 1
		}
		if i < 0 {
			i = 0
		}
		return readings[i]
	}
}

// collect reads the journal back and snapshots the final plant state.
func (h *Harness) collect(ctx context.Context, runID string) (*Result, error) {
	steps, err := h.store.ReadSteps(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}

	result := NewResult()
	result.RunID = runID
	result.Trace = append(result.Trace, steps...)
	result.FinalState = h.ctrl.StateName()
	for _, lvl := range h.outputs.Levels() {
		result.Outputs[lvl.ID.String()] = lvl.On
	}
	result.Diagnostics = append(result.Diagnostics, h.diags.Messages()...)
	return result, nil
}
