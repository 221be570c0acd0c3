package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/guardloop/internal/harness"
)

// Golden file states reported per scenario.
const (
	GoldenAbsent   = "absent"
	GoldenMatch    = "match"
	GoldenMismatch = "mismatch"
	GoldenUpdated  = "updated"
)

// goldenDirName is the directory under the scenarios dir holding snapshots.
const goldenDirName = "golden"

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // rewrite golden files from this run
	Filter string // glob over scenario file names (without extension)
}

// ScenarioResult is the verdict for one scenario file.
type ScenarioResult struct {
	Name       string            `json:"name"`
	File       string            `json:"file"`
	Pass       bool              `json:"pass"`
	Cycles     int               `json:"cycles,omitempty"`
	FinalState string            `json:"final_state,omitempty"`
	Golden     string            `json:"golden,omitempty"`
	Diff       string            `json:"diff,omitempty"`
	Failures   []harness.Failure `json:"failures,omitempty"`
	Errors     []string          `json:"errors,omitempty"` // load, run and golden I/O errors
}

// TestResult aggregates every scenario of a test command.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run controller conformance scenarios",
		Long: `Run conformance scenarios against the controller.

Each scenario scripts the sensors cycle by cycle and asserts on the
recorded journal and the final state. When <scenarios-dir>/golden/<name>.golden
exists the journal snapshot must match it; a mismatch prints a diff.
With --update the golden files are rewritten, but failing assertions
still fail the scenario.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, bad filter, etc.)

Examples:
  guardloop test ./scenarios
  guardloop test ./scenarios --filter "emergency*"
  guardloop test ./scenarios --update
  guardloop test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden files from this run")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose name matches this glob")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}
	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, "x"); err != nil {
			return WrapExitError(ExitCommandError, "invalid filter pattern", err)
		}
	}

	files, err := scenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, file := range files {
		formatter.VerboseLog("Running %s", file)
		sr := runScenario(file, opts.Update)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
	}

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if result.Failed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeTestFailed,
				Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
			}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		writeTestReport(formatter.Writer, result, opts.Verbose)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// scenarioFiles lists the .yaml/.yml files under dir in lexical order,
// skipping the golden directory.
func scenarioFiles(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && d.Name() == goldenDirName {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			// Pattern validity was checked by the caller.
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenario loads, runs and golden-checks one scenario file. Assertion
// failures fail the scenario whether or not the golden file was updated.
func runScenario(file string, update bool) ScenarioResult {
	sr := ScenarioResult{Name: scenarioStem(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return sr.fail("load: %v", err)
	}
	sr.Name = scenario.Name
	sr.Cycles = scenario.Cycles

	result, err := harness.Run(scenario)
	if err != nil {
		return sr.fail("run: %v", err)
	}
	sr.Pass = result.Pass
	sr.FinalState = result.FinalState
	sr.Failures = result.Failures

	golden := goldenFilePath(file)
	if update {
		if err := harness.WriteGolden(golden, scenario.Name, result); err != nil {
			return sr.fail("golden update: %v", err)
		}
		sr.Golden = GoldenUpdated
		return sr
	}

	diff, err := harness.DiffGolden(golden, scenario.Name, result)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		sr.Golden = GoldenAbsent
	case err != nil:
		return sr.fail("golden: %v", err)
	case diff != "":
		sr.Golden = GoldenMismatch
		sr.Diff = diff
		sr.Pass = false
	default:
		sr.Golden = GoldenMatch
	}
	return sr
}

func (r ScenarioResult) fail(format string, args ...any) ScenarioResult {
	r.Pass = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	return r
}

// goldenFilePath maps dir/name.yaml to dir/golden/name.golden.
func goldenFilePath(file string) string {
	return filepath.Join(filepath.Dir(file), goldenDirName, scenarioStem(file)+".golden")
}

func scenarioStem(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// writeTestReport prints one block per scenario and the summary line.
func writeTestReport(w io.Writer, result TestResult, verbose bool) {
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}

	for _, sr := range result.Scenarios {
		mark := "✓"
		if !sr.Pass {
			mark = "✗"
		}
		switch sr.Golden {
		case GoldenUpdated:
			fmt.Fprintf(w, "%s %s (golden updated)\n", mark, sr.Name)
		case GoldenMatch:
			fmt.Fprintf(w, "%s %s (golden match)\n", mark, sr.Name)
		default:
			fmt.Fprintf(w, "%s %s\n", mark, sr.Name)
		}

		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		for _, f := range sr.Failures {
			writeFailure(w, f, verbose)
		}
		if sr.Golden == GoldenMismatch {
			fmt.Fprintln(w, "  Golden file mismatch (run with --update to regenerate)")
			for _, line := range strings.Split(strings.TrimRight(sr.Diff, "\n"), "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed == 0 {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
}

// writeFailure prints an assertion failure with the journal steps leading
// up to it. Verbose output adds the full assertion message.
func writeFailure(w io.Writer, f harness.Failure, verbose bool) {
	if f.Expected == "" {
		fmt.Fprintf(w, "  assertion %d (%s): %s\n", f.Index, f.Type, f.Message)
		return
	}
	fmt.Fprintf(w, "  assertion %d (%s) at cycle %d: expected %s, got %s\n",
		f.Index, f.Type, f.Cycle, f.Expected, f.Actual)
	for _, step := range f.Context {
		fmt.Fprintf(w, "    [%d] cycle %d: %s\n", step.Seq, step.Cycle, step.Summary())
	}
	if verbose {
		for _, line := range strings.Split(strings.TrimRight(f.Message, "\n"), "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}
