package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sebdah/goldie/v2"

	"github.com/roach88/guardloop/internal/ir"
)

// GoldenDir is where RunWithGolden keeps its fixtures, relative to the
// test's package directory.
const GoldenDir = "testdata/golden"

// Snapshot renders the comparable part of a run as canonical JSON:
// the scenario name, run id, final state and every journal step without
// its content hash.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	return ir.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"run_id":        result.RunID,
		"final_state":   result.FinalState,
		"trace":         result.Trace,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}

// WriteGolden stores the snapshot of result at path, creating its
// directory.
func WriteGolden(path, scenarioName string, result *Result) error {
	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DiffGolden compares the snapshot of result with the golden file at path.
// It returns an empty string on a match, otherwise a unified diff of the
// indented snapshots. A missing file is reported as an error wrapping
// os.ErrNotExist.
func DiffGolden(path, scenarioName string, result *Result) (string, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	got, err := Snapshot(scenarioName, result)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	if bytes.Equal(want, got) {
		return "", nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(indentJSON(want)),
		B:        difflib.SplitLines(indentJSON(got)),
		FromFile: "golden",
		ToFile:   "current",
		Context:  2,
	})
	if err != nil {
		return "", fmt.Errorf("diff: %w", err)
	}
	if diff == "" {
		// Same document, different bytes (e.g. a hand-edited file).
		diff = "golden file is not in canonical form\n"
	}
	return diff, nil
}

// indentJSON spreads a canonical snapshot over lines so diffs point at the
// step that changed. Invalid JSON is returned as is.
func indentJSON(data []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data) + "\n"
	}
	buf.WriteByte('\n')
	return buf.String()
}
