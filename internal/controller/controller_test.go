package controller

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardloop/internal/engine"
	"github.com/roach88/guardloop/internal/hal"
)

type rig struct {
	s1, s2 *hal.ScriptedSensor
	out    *hal.MemoryOutputs
	diag   *hal.RecordingDiagnostics
	ctrl   *Controller
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		s1:   hal.NewScriptedSensor(),
		s2:   hal.NewScriptedSensor(),
		out:  hal.NewMemoryOutputs(nil),
		diag: &hal.RecordingDiagnostics{},
	}
	ctrl, err := New(Deps{
		Sensor1:     r.s1.Sensor(),
		Sensor2:     r.s2.Sensor(),
		Outputs:     r.out,
		Diagnostics: r.diag,
	}, DefaultThresholds(), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	require.NoError(t, ctrl.Initialize())
	require.NoError(t, ctrl.Start())
	r.ctrl = ctrl
	return r
}

// running brings the rig into RUNNING_NORMAL.
func (r *rig) running(t *testing.T) {
	t.Helper()
	require.NoError(t, r.ctrl.Step())
	require.Equal(t, StateRunningNormal, r.ctrl.State())
}

func (r *rig) feed(uv1, uv2 int32) {
	r.s1.Push(uv1)
	r.s2.Push(uv2)
}

func TestController_StartupReachesRunning(t *testing.T) {
	r := newRig(t)
	assert.Equal(t, StateStartup, r.ctrl.State())

	ev, ok := r.ctrl.Engine().Pending()
	require.True(t, ok)
	assert.Equal(t, EventInitReady, ev)

	r.running(t)
	assert.Equal(t, "RUNNING_NORMAL", r.ctrl.StateName())
}

func TestController_HealthyStepTogglesDoor(t *testing.T) {
	r := newRig(t)
	r.running(t)

	r.feed(1500000, 1500000)
	r.feed(1500000, 1500000)

	require.NoError(t, r.ctrl.Step())
	assert.True(t, r.out.Level(hal.DoorStatus))
	require.NoError(t, r.ctrl.Step())
	assert.False(t, r.out.Level(hal.DoorStatus))
	assert.Equal(t, StateRunningNormal, r.ctrl.State())
	assert.Empty(t, r.diag.Messages())
}

func TestController_DisagreementLatchesEmergency(t *testing.T) {
	r := newRig(t)
	r.running(t)

	r.feed(1500000, 1000000)
	require.NoError(t, r.ctrl.Step())
	assert.Equal(t, StateRunningNormal, r.ctrl.State(), "event applies on the next step")
	assert.False(t, r.out.Level(hal.DoorStatus), "door is not toggled on a faulty step")

	require.NoError(t, r.ctrl.Step())
	assert.Equal(t, StateEmergency, r.ctrl.State())
	assert.Equal(t, []string{EmergencyMessage}, r.diag.Messages())
	assert.True(t, r.out.Level(hal.BrakeStatus))
	assert.False(t, r.ctrl.Faulted())

	r.feed(3000000, 3000000)
	require.NoError(t, r.ctrl.Step())
	require.NoError(t, r.ctrl.Step())
	assert.Equal(t, StateEmergency, r.ctrl.State(), "emergency has no outgoing transition")
}

func TestController_ImplausibleReadingLatchesFailure(t *testing.T) {
	tests := []struct {
		name     string
		uv1, uv2 int32
	}{
		{name: "sensor1 above window", uv1: 3000000, uv2: 1500000},
		{name: "sensor2 below window", uv1: 1500000, uv2: 400000},
		{name: "sensor1 at lower bound", uv1: 500000, uv2: 1500000},
		{name: "sensor2 at upper bound", uv1: 1500000, uv2: 2500000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			r.running(t)

			r.feed(tt.uv1, tt.uv2)
			require.NoError(t, r.ctrl.Step())
			require.NoError(t, r.ctrl.Step())

			assert.Equal(t, StateFailure, r.ctrl.State())
			assert.True(t, r.ctrl.Faulted())
			assert.True(t, r.out.Level(hal.MotorStatus))
			assert.Equal(t, []string{FailureMessage}, r.diag.Messages())
		})
	}
}

func TestController_BothSensorsReadEveryStep(t *testing.T) {
	r := newRig(t)
	r.running(t)

	r.feed(3000000, 1500000)
	r.feed(1500000, 1600000)

	require.NoError(t, r.ctrl.Step())

	assert.Equal(t, int32(1500000), r.s1.Read())
	assert.Equal(t, int32(1600000), r.s2.Read())
}

func TestController_RaceMode(t *testing.T) {
	r := newRig(t)
	r.running(t)

	require.NoError(t, r.ctrl.SelectRace(true))
	require.NoError(t, r.ctrl.Step())
	assert.Equal(t, StateRunningRace, r.ctrl.State())

	require.NoError(t, r.ctrl.SelectRace(true))
	require.NoError(t, r.ctrl.Step())
	assert.Equal(t, StateRunningRace, r.ctrl.State(), "NORMAL_TO_RACE is dropped in race mode")

	require.NoError(t, r.ctrl.SelectRace(false))
	require.NoError(t, r.ctrl.Step())
	assert.Equal(t, StateRunningNormal, r.ctrl.State())
}

func TestController_RaceModeFailure(t *testing.T) {
	r := newRig(t)
	r.running(t)
	require.NoError(t, r.ctrl.SelectRace(true))
	require.NoError(t, r.ctrl.Step())

	r.feed(2600000, 1500000)
	require.NoError(t, r.ctrl.Step())
	require.NoError(t, r.ctrl.Step())

	assert.Equal(t, StateFailure, r.ctrl.State())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Deps{}, DefaultThresholds())
	assert.ErrorIs(t, err, engine.ErrInvalidPointer)

	sensor := hal.NewScriptedSensor().Sensor()
	deps := Deps{Sensor1: sensor, Sensor2: sensor, Outputs: hal.NewMemoryOutputs(nil), Diagnostics: &hal.RecordingDiagnostics{}}
	bad := DefaultThresholds()
	bad.MaxMicroVolts = bad.MinMicroVolts
	_, err = New(deps, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_microvolts")
}

func TestController_NilReceiver(t *testing.T) {
	var c *Controller
	assert.ErrorIs(t, c.Initialize(), engine.ErrInvalidPointer)
	assert.ErrorIs(t, c.Step(), engine.ErrInvalidPointer)
	assert.False(t, c.Faulted())
}

func TestThresholds(t *testing.T) {
	th := DefaultThresholds()
	require.NoError(t, th.Validate())

	assert.False(t, th.Plausible(500000))
	assert.True(t, th.Plausible(500001))
	assert.True(t, th.Plausible(2499999))
	assert.False(t, th.Plausible(2500000))

	assert.Equal(t, int32(0), th.Distance(500001))
	assert.Equal(t, int32(475), th.Distance(1500000))
	assert.Equal(t, int32(949), th.Distance(2499999))

	assert.True(t, th.Disagree(120, 100))
	assert.True(t, th.Disagree(100, 120))
	assert.False(t, th.Disagree(119, 100))
	assert.False(t, th.Disagree(100, 119))
}

func TestThresholds_ValidateCollectsAll(t *testing.T) {
	err := Thresholds{}.Validate()
	require.Error(t, err)
	for _, field := range []string{"min_microvolts", "voltage_range", "range_meters", "tolerance"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestTable(t *testing.T) {
	states, transitions := Table()
	require.Len(t, states, 5)
	require.Len(t, transitions, 8)

	assert.NotNil(t, states[0].OnEntry)
	assert.Nil(t, states[0].OnState)
	assert.NotNil(t, states[1].OnExit, "running exit hook is a no-op, not absent")
	assert.Nil(t, states[4].OnState)

	e := engine.New()
	require.NoError(t, e.Initialize(states, transitions, StateStartup), "table must be self-consistent")
}
