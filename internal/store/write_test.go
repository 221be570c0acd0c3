package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardloop/internal/ir"
)

func TestWriteStep_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	written := []ir.Step{
		{RunID: "run-1", Seq: 1, Cycle: 1, Machine: ir.MachineController, Kind: ir.KindTransition, From: "STARTUP", To: "RUNNING_NORMAL", Event: "INIT_READY"},
		{RunID: "run-1", Seq: 2, Cycle: 2, Kind: ir.KindOutput, Output: "door_status", On: true},
		{RunID: "run-1", Seq: 3, Cycle: 3, Machine: ir.MachineController, Kind: ir.KindDrop, State: "RUNNING_NORMAL", Event: "RACE_TO_NORMAL", Reason: "no_transition"},
		{RunID: "run-1", Seq: 4, Cycle: 4, Kind: ir.KindDiagnostic, Message: "Emergency!"},
	}
	for _, step := range written {
		require.NoError(t, s.WriteStep(ctx, step))
	}

	steps, err := s.ReadSteps(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, steps, len(written))
	for i, step := range steps {
		want := written[i]
		want.ID = ir.MustStepID(want)
		assert.Equal(t, want, step)
	}
}

func TestWriteStep_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	step := ir.Step{RunID: "run-1", Seq: 1, Kind: ir.KindSystem, Message: "halted"}
	require.NoError(t, s.WriteStep(ctx, step))
	require.NoError(t, s.WriteStep(ctx, step), "rewriting the same step is ignored")

	steps, err := s.ReadSteps(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, steps, 1)
}

func TestWriteStep_DuplicateSeqDifferentContent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	require.NoError(t, s.WriteStep(ctx, ir.Step{RunID: "run-1", Seq: 1, Kind: ir.KindSystem, Message: "a"}))
	err := s.WriteStep(ctx, ir.Step{RunID: "run-1", Seq: 1, Kind: ir.KindSystem, Message: "b"})
	assert.Error(t, err)
}

func TestWriteStep_RequiresRun(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteStep(context.Background(), ir.Step{RunID: "missing", Seq: 1, Kind: ir.KindSystem, Message: "x"})
	assert.Error(t, err, "foreign key must reject unknown run")
}

func TestWriteStep_InvalidKind(t *testing.T) {
	s := createTestStore(t)
	createTestRun(t, s, "run-1")

	err := s.WriteStep(context.Background(), ir.Step{RunID: "run-1", Seq: 1, Kind: "bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid kind")
}

func TestSetOutcome(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	require.NoError(t, s.SetOutcome(ctx, "run-1", "halted"))
	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "halted", run.Outcome)

	err = s.SetOutcome(ctx, "missing", "halted")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
