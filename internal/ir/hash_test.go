package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepIDDeterminism(t *testing.T) {
	step := Step{RunID: "run-1", Seq: 1, Kind: KindDiagnostic, Message: "Emergency!"}

	id1, err := StepID(step)
	require.NoError(t, err)
	id2, err := StepID(step)
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "StepID must be deterministic")
	assert.Len(t, id1, 64, "SHA-256 hex is 64 characters")
}

func TestStepIDIgnoresID(t *testing.T) {
	a := Step{RunID: "run-1", Seq: 1, Kind: KindSystem, Message: "halted"}
	b := a
	b.ID = "something-else"

	assert.Equal(t, MustStepID(a), MustStepID(b))
}

func TestStepIDChangesWithInput(t *testing.T) {
	base := Step{RunID: "run-1", Seq: 1, Kind: KindDiagnostic, Message: "Emergency!"}

	otherRun := base
	otherRun.RunID = "run-2"
	otherSeq := base
	otherSeq.Seq = 2
	otherMsg := base
	otherMsg.Message = "Sensor failure"

	id := MustStepID(base)
	assert.NotEqual(t, id, MustStepID(otherRun))
	assert.NotEqual(t, id, MustStepID(otherSeq))
	assert.NotEqual(t, id, MustStepID(otherMsg))
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)
	assert.NotEqual(t, hashWithDomain(DomainStep, data), hashWithDomain(DomainConfig, data))
}

func TestConfigHash(t *testing.T) {
	h1, err := ConfigHash(map[string]any{"tolerance": int32(20), "log_level": "info"})
	require.NoError(t, err)
	h2, err := ConfigHash(map[string]any{"log_level": "info", "tolerance": int32(20)})
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "key order must not matter")

	_, err = ConfigHash(map[string]any{"ratio": 0.5})
	assert.Error(t, err)
}

func TestStepSummary(t *testing.T) {
	assert.Equal(t, "controller: STARTUP -> RUNNING_NORMAL on INIT_READY",
		Step{Kind: KindTransition, Machine: MachineController, From: "STARTUP", To: "RUNNING_NORMAL", Event: "INIT_READY"}.Summary())
	assert.Equal(t, "output door_status on",
		Step{Kind: KindOutput, Output: "door_status", On: true}.Summary())
	assert.Equal(t, "diagnostic: Emergency!",
		Step{Kind: KindDiagnostic, Message: "Emergency!"}.Summary())
}
