package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/guardloop/internal/config"
	"github.com/roach88/guardloop/internal/controller"
	"github.com/roach88/guardloop/internal/engine"
	"github.com/roach88/guardloop/internal/hal"
	"github.com/roach88/guardloop/internal/ir"
	"github.com/roach88/guardloop/internal/scheduler"
	"github.com/roach88/guardloop/internal/store"
	"github.com/roach88/guardloop/internal/system"
	"github.com/roach88/guardloop/internal/telemetry"
)

// Run outcomes recorded in the journal.
const (
	OutcomeHalted      = "halted"
	OutcomeCycleLimit  = "cycle_limit"
	OutcomeInterrupted = "interrupted"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database  string
	MaxCycles uint64

	// RunIDGenerator allows overriding run ids (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	RunIDGenerator store.RunIDGenerator

	// Ticks allows overriding the tick source (for testing).
	// If nil, defaults to a wall-clock millisecond counter.
	Ticks scheduler.TickSource
}

// RunSummary is reported when the loop stops.
type RunSummary struct {
	RunID           string          `json:"run_id"`
	Outcome         string          `json:"outcome"`
	Cycles          uint64          `json:"cycles"`
	SystemState     string          `json:"system_state"`
	ControllerState string          `json:"controller_state,omitempty"`
	Outputs         map[string]bool `json:"outputs"`
	Steps           int64           `json:"steps"`
	Database        string          `json:"database,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <config>",
		Short: "Run the control loop against the simulated plant",
		Long: `Run the scheduled control loop with simulated sensors.

The configuration supplies thresholds, the scripted sensor readings and
the loop pace. With a journal database every transition, diagnostic and
output change is recorded under a new run id.

Exit codes:
  0 - Stopped by --max-cycles or interrupt
  1 - Fail-stop latched (sensor failure or startup failure)
  2 - Command error (bad config, database not writable, etc.)

Examples:
  guardloop run ./guardloop.yaml
  guardloop run ./guardloop.yaml --db ./runs.db --max-cycles 5000
  guardloop run ./guardloop.yaml --format json --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSystem(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (overrides journal.path)")
	cmd.Flags().Uint64Var(&opts.MaxCycles, "max-cycles", 0, "stop after this many lifecycle cycles (0 = no limit)")

	return cmd
}

func runSystem(opts *RunOptions, configPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := config.Load(configPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	logger := newLogger(opts.RootOptions, cfg.LogLevel, cmd.ErrOrStderr())

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Journal.Path
	}

	gen := opts.RunIDGenerator
	if gen == nil {
		gen = store.UUIDv7Generator{}
	}
	runID := gen.Generate()

	var (
		sys     *system.System
		st      *store.Store
		journal *store.Journal
	)
	if dbPath != "" {
		logger.Info("opening journal", "path", dbPath)
		st, err = store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		configHash, err := ir.ConfigHash(cfg.HashFields())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to hash config", err)
		}
		if err := st.WriteRun(ctx, ir.Run{
			ID:            runID,
			Source:        configPath,
			ConfigHash:    configHash,
			EngineVersion: ir.EngineVersion,
		}); err != nil {
			return WrapExitError(ExitCommandError, "failed to write run", err)
		}

		// Journal writes must outlive an interrupt.
		journal = store.NewJournal(context.WithoutCancel(ctx), st, runID,
			store.WithCycle(func() int64 { return int64(sys.Cycles()) }),
			store.WithJournalLogger(logger),
		)
	}

	sys, outputs, err := buildSystem(cfg, opts, logger, journal)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build system", err)
	}

	logger.Info("control loop starting", "run_id", runID, "config", configPath, "pace", cfg.PaceDuration())
	formatter.VerboseLog("Run %s started", runID)

	runErr := sys.Run(ctx)

	outcome := OutcomeInterrupted
	switch {
	case errors.Is(runErr, system.ErrHalted):
		outcome = OutcomeHalted
	case errors.Is(runErr, system.ErrCycleLimit):
		outcome = OutcomeCycleLimit
	case runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded):
		return WrapExitError(ExitFailure, "control loop error", runErr)
	}

	summary := RunSummary{
		RunID:       runID,
		Outcome:     outcome,
		Cycles:      sys.Cycles(),
		SystemState: sys.StateName(),
		Outputs:     make(map[string]bool),
		Database:    dbPath,
	}
	if ctrl := sys.Controller(); ctrl != nil {
		summary.ControllerState = ctrl.StateName()
	}
	for _, lvl := range outputs.Levels() {
		summary.Outputs[lvl.ID.String()] = lvl.On
	}

	if journal != nil {
		journal.Note("stopped: " + outcome)
		summary.Steps = journal.Seq()
		if err := st.SetOutcome(context.WithoutCancel(ctx), runID, outcome); err != nil {
			logger.Error("failed to record outcome", "run_id", runID, "error", err)
		}
		if err := journal.Err(); err != nil {
			logger.Warn("journal incomplete", "run_id", runID, "error", err)
		}
	}

	logger.Info("control loop stopped", "run_id", runID, "outcome", outcome, "cycles", summary.Cycles)
	if err := outputRunSummary(formatter, summary); err != nil {
		return err
	}

	if outcome == OutcomeHalted {
		return NewExitError(ExitFailure, fmt.Sprintf("fail-stop latched after %d cycles", summary.Cycles))
	}
	return nil
}

// buildSystem wires the simulated plant, the journal and the observers.
// journal may be nil when no database is configured.
func buildSystem(cfg config.Config, opts *RunOptions, logger *slog.Logger, journal *store.Journal) (*system.System, *hal.MemoryOutputs, error) {
	var (
		onChange    func(hal.OutputChange)
		diagnostics = hal.MultiDiagnostics{hal.LogDiagnostics{Logger: logger}}
		ctrlObs     []engine.Observer
		sysObs      []engine.Observer
	)
	if journal != nil {
		onChange = journal.OutputChanged
		diagnostics = append(diagnostics, journal)
		ctrlObs = append(ctrlObs, journal.Observer(ir.MachineController, controller.Names()))
		sysObs = append(sysObs, journal.Observer(ir.MachineSystem, system.Names()))
	}
	if cfg.Tracing {
		ctrlObs = append(ctrlObs, telemetry.NewObserver(ir.MachineController, controller.Names()))
		sysObs = append(sysObs, telemetry.NewObserver(ir.MachineSystem, system.Names()))
	}

	ticks := opts.Ticks
	if ticks == nil {
		ticks = scheduler.NewSystemTicks()
	}

	outputs := hal.NewMemoryOutputs(onChange)
	sys, err := system.New(system.Deps{
		Ticks: ticks,
		Controller: controller.Deps{
			Sensor1:     hal.NewScriptedSensor(cfg.Simulation.Sensor1...).Sensor(),
			Sensor2:     hal.NewScriptedSensor(cfg.Simulation.Sensor2...).Sensor(),
			Outputs:     outputs,
			Diagnostics: diagnostics,
		},
	}, cfg.ControllerThresholds(),
		system.WithLogger(logger),
		system.WithPace(cfg.PaceDuration()),
		system.WithRace(cfg.Simulation.Race),
		system.WithMaxCycles(opts.MaxCycles),
		system.WithObserver(sysObs...),
		system.WithControllerOptions(controller.WithObserver(ctrlObs...)),
	)
	if err != nil {
		return nil, nil, err
	}
	return sys, outputs, nil
}

// outputRunSummary prints the summary in the configured format.
func outputRunSummary(formatter *OutputFormatter, s RunSummary) error {
	if formatter.IsJSON() {
		return formatter.encode(CLIResponse{Status: "ok", Data: s, RunID: s.RunID})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s stopped: %s\n", s.RunID, s.Outcome)
	fmt.Fprintf(w, "  Cycles:     %d\n", s.Cycles)
	fmt.Fprintf(w, "  System:     %s\n", s.SystemState)
	if s.ControllerState != "" {
		fmt.Fprintf(w, "  Controller: %s\n", s.ControllerState)
	}
	if s.Database != "" {
		fmt.Fprintf(w, "  Journal:    %s (%d steps)\n", s.Database, s.Steps)
	}

	names := make([]string, 0, len(s.Outputs))
	for name := range s.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		level := "off"
		if s.Outputs[name] {
			level = "on"
		}
		fmt.Fprintf(w, "  %-13s %s\n", name+":", level)
	}
	return nil
}
