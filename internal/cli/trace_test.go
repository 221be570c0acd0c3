package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardloop/internal/ir"
	"github.com/roach88/guardloop/internal/store"
	"github.com/roach88/guardloop/internal/system"
)

// seedJournal writes one finished run with a short journal.
func seedJournal(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.WriteRun(ctx, ir.Run{
		ID:            "run-trace",
		Source:        "guardloop.yaml",
		ConfigHash:    "cfg-hash",
		EngineVersion: ir.EngineVersion,
	}))

	j := store.NewJournal(ctx, st, "run-trace")
	j.Observer(ir.MachineSystem, system.Names()).Transitioned(system.StateStartup, system.StateRunning, system.EventInitOK)
	j.Log("Emergency condition detected")
	j.Note("stopped: cycle_limit")
	require.NoError(t, j.Err())
	require.NoError(t, st.SetOutcome(ctx, "run-trace", OutcomeCycleLimit))
	return dbPath
}

func TestTraceCommandRequiresDB(t *testing.T) {
	_, _, err := execute(t, "trace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestTraceCommandMissingDatabase(t *testing.T) {
	_, _, err := execute(t, "trace", "--db", filepath.Join(t.TempDir(), "absent.db"))

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestTraceCommandListsRuns(t *testing.T) {
	dbPath := seedJournal(t)

	out, _, err := execute(t, "trace", "--db", dbPath)

	require.NoError(t, err)
	assert.Contains(t, out, "run-trace")
	assert.Contains(t, out, "cycle_limit")
	assert.Contains(t, out, "guardloop.yaml")
}

func TestTraceCommandShowsTimeline(t *testing.T) {
	dbPath := seedJournal(t)

	out, _, err := execute(t, "trace", "--db", dbPath, "--run", "run-trace")

	require.NoError(t, err)
	assert.Contains(t, out, "Trace for Run: run-trace")
	assert.Contains(t, out, "Outcome: cycle_limit")
	assert.Contains(t, out, "=== Timeline ===")
	assert.Contains(t, out, "Emergency condition detected")
	assert.Contains(t, out, "Total Steps: 3")
}

func TestTraceCommandKindFilter(t *testing.T) {
	dbPath := seedJournal(t)

	out, _, err := execute(t, "trace", "--db", dbPath, "--run", "run-trace", "--kind", "diagnostic", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		RunID  string      `json:"run_id"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "run-trace", resp.RunID)
	require.Len(t, resp.Data.Timeline, 1)
	assert.Equal(t, ir.KindDiagnostic, resp.Data.Timeline[0].Kind)
	assert.Equal(t, 3, resp.Data.Stats.TotalSteps, "stats cover the whole run")
	assert.Equal(t, 1, resp.Data.Stats.ByKind["diagnostic"])
}

func TestTraceCommandUnknownKind(t *testing.T) {
	dbPath := seedJournal(t)

	_, _, err := execute(t, "trace", "--db", dbPath, "--run", "run-trace", "--kind", "invocation")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `unknown step kind "invocation"`)
}

func TestTraceCommandRunNotFound(t *testing.T) {
	dbPath := seedJournal(t)

	out, _, err := execute(t, "trace", "--db", dbPath, "--run", "missing")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeRunNotFound)
}

func TestBuildStats(t *testing.T) {
	steps := []ir.Step{
		{Kind: ir.KindTransition, Machine: ir.MachineController, To: "RUNNING_NORMAL", Cycle: 3},
		{Kind: ir.KindOutput, Output: "door_status", On: true, Cycle: 4},
		{Kind: ir.KindTransition, Machine: ir.MachineController, To: "EMERGENCY", Cycle: 6},
		{Kind: ir.KindTransition, Machine: ir.MachineSystem, To: "RUNNING", Cycle: 2},
	}

	stats := buildStats(steps)

	assert.Equal(t, 4, stats.TotalSteps)
	assert.Equal(t, 3, stats.ByKind["transition"])
	assert.Equal(t, "EMERGENCY", stats.FinalStates[ir.MachineController])
	assert.Equal(t, "RUNNING", stats.FinalStates[ir.MachineSystem])
	assert.Equal(t, int64(6), stats.LastCycle)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "01234567...89abcdef", truncateID("0123456789abcdef0123456789abcdef"))
}
