package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/guardloop/internal/ir"
	"github.com/roach88/guardloop/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Kind     string // optional - filter to one step kind
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run      ir.Run     `json:"run"`
	Timeline []ir.Step  `json:"timeline"`
	Stats    TraceStats `json:"stats"`
}

// TraceStats holds summary statistics for the run.
type TraceStats struct {
	TotalSteps  int               `json:"total_steps"`
	ByKind      map[string]int    `json:"by_kind"`
	FinalStates map[string]string `json:"final_states"` // machine -> last entered state
	LastCycle   int64             `json:"last_cycle"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the journal of a run",
		Long: `Show what happened during a journaled run.

Without --run, lists the runs stored in the database.

The output includes:
- Timeline: every transition, dropped event, hook failure, diagnostic
  and output change in sequence order
- Stats: step counts per kind and the last state of each machine

Examples:
  guardloop trace --db ./runs.db
  guardloop trace --db ./runs.db --run 0190c3c5-...
  guardloop trace --db ./runs.db --run 0190c3c5-... --kind transition
  guardloop trace --db ./runs.db --run 0190c3c5-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace (lists runs when empty)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one step kind")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Kind != "" && !ir.ValidStepKinds[ir.StepKind(opts.Kind)] {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown step kind %q", opts.Kind))
	}

	// Opening a missing path would create an empty journal
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		return listRuns(ctx, st, formatter)
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error(ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	steps, err := st.ReadSteps(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read steps", err)
	}

	result := TraceResult{
		Run:      run,
		Timeline: filterSteps(steps, opts.Kind),
		Stats:    buildStats(steps),
	}

	if formatter.IsJSON() {
		return formatter.encode(CLIResponse{Status: "ok", Data: result, RunID: run.ID})
	}
	return outputTraceText(formatter.Writer, result, opts.Verbose)
}

// listRuns prints every stored run.
func listRuns(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if formatter.IsJSON() {
		return formatter.encode(CLIResponse{Status: "ok", Data: runs})
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		outcome := r.Outcome
		if outcome == "" {
			outcome = "(running)"
		}
		fmt.Fprintf(w, "%s  %-12s %s\n", r.ID, outcome, r.Source)
	}
	return nil
}

// filterSteps keeps steps of kind, or all steps when kind is empty.
func filterSteps(steps []ir.Step, kind string) []ir.Step {
	if kind == "" {
		return steps
	}
	out := []ir.Step{}
	for _, s := range steps {
		if string(s.Kind) == kind {
			out = append(out, s)
		}
	}
	return out
}

// buildStats summarizes the unfiltered steps of a run.
func buildStats(steps []ir.Step) TraceStats {
	stats := TraceStats{
		TotalSteps:  len(steps),
		ByKind:      make(map[string]int),
		FinalStates: make(map[string]string),
	}
	for _, s := range steps {
		stats.ByKind[string(s.Kind)]++
		if s.Kind == ir.KindTransition {
			stats.FinalStates[s.Machine] = s.To
		}
		if s.Cycle > stats.LastCycle {
			stats.LastCycle = s.Cycle
		}
	}
	return stats
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for Run: %s\n", result.Run.ID)
	fmt.Fprintf(w, "Source: %s\n", result.Run.Source)
	fmt.Fprintf(w, "Outcome: %s\n", outcomeStatus(result.Run.Outcome))
	if verbose {
		fmt.Fprintf(w, "Config: %s\n", truncateID(result.Run.ConfigHash))
		fmt.Fprintf(w, "Engine: %s\n", result.Run.EngineVersion)
	}
	fmt.Fprintln(w)

	// Timeline section
	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no steps)")
	} else {
		for _, step := range result.Timeline {
			fmt.Fprintf(w, "  [%d] cycle %d: %s\n", step.Seq, step.Cycle, step.Summary())
			if verbose {
				fmt.Fprintf(w, "       ID: %s\n", truncateID(step.ID))
			}
		}
	}
	fmt.Fprintln(w)

	// Stats section
	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Steps: %d\n", result.Stats.TotalSteps)
	fmt.Fprintf(w, "  Last Cycle:  %d\n", result.Stats.LastCycle)
	for _, kind := range sortedKeys(result.Stats.ByKind) {
		fmt.Fprintf(w, "  %-12s %d\n", kind+":", result.Stats.ByKind[kind])
	}
	for _, machine := range sortedKeys(result.Stats.FinalStates) {
		fmt.Fprintf(w, "  Last %s state: %s\n", machine, result.Stats.FinalStates[machine])
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

// outcomeStatus returns a human-readable run outcome.
func outcomeStatus(outcome string) string {
	if outcome == "" {
		return "Incomplete (no outcome recorded)"
	}
	return outcome
}
