package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardloop/internal/config"
	"github.com/roach88/guardloop/internal/ir"
)

func defaultThresholds() config.Thresholds {
	return config.Default().Thresholds
}

func TestRun_NormalToggle(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/normal_toggle.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "test-run-default", result.RunID)
	assert.Equal(t, "RUNNING_NORMAL", result.FinalState)
	require.Len(t, result.Trace, 3)
	assert.Equal(t, ir.KindTransition, result.Trace[0].Kind)
	assert.Equal(t, int64(1), result.Trace[0].Cycle)
	assert.NotEmpty(t, result.Trace[0].ID, "steps read back from the store carry their hash")
}

func TestRun_EmergencyLatches(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/emergency_on_disagreement.yaml")
	require.NoError(t, err)
	scenario.Cycles = 10

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []string{"Emergency!"}, result.Diagnostics)
	assert.Len(t, result.Trace, 5, "EMERGENCY has no outgoing transitions and a silent on-state hook")
}

func TestRun_RaceSensorFailure(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/race_sensor_failure.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "FAILURE", result.FinalState)
	assert.True(t, result.Outputs["motor_status"])
}

func TestRun_DroppedModeChange(t *testing.T) {
	scenario := &Scenario{
		Name:        "race_exit_while_normal",
		Description: "Leaving race mode while in RUNNING_NORMAL is dropped",
		Cycles:      2,
		Readings:    Readings{Sensor1: []int32{1500000}, Sensor2: []int32{1500000}},
		Inputs:      []Input{{Cycle: 2, Race: false}},
		Assertions: []Assertion{
			{Type: AssertTraceContains, Step: StepMatch{Kind: "drop", State: "RUNNING_NORMAL", Event: "RACE_TO_NORMAL", Reason: "no_transition"}},
			{Type: AssertFinalState, State: "RUNNING_NORMAL"},
		},
	}
	scenario.Thresholds = defaultThresholds()

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FailingAssertionReported(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/normal_toggle.yaml")
	require.NoError(t, err)
	scenario.Assertions = []Assertion{{Type: AssertFinalState, State: "EMERGENCY"}}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Expected: state EMERGENCY")
}

func TestRun_InvalidThresholds(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/normal_toggle.yaml")
	require.NoError(t, err)
	scenario.Thresholds.VoltageRange = 0

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create controller")
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/emergency_on_disagreement.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
}
