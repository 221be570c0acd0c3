package hal

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScriptedSensor_HoldsLastReading(t *testing.T) {
	s := NewScriptedSensor(1, 2, 3)
	read := s.Sensor()

	assert.Equal(t, int32(1), read())
	assert.Equal(t, int32(2), read())
	assert.Equal(t, int32(3), read())
	assert.Equal(t, int32(3), read())

	s.Push(9)
	assert.Equal(t, int32(9), read())
}

func TestScriptedSensor_Empty(t *testing.T) {
	assert.Equal(t, int32(0), NewScriptedSensor().Read())
}

func TestMemoryOutputs(t *testing.T) {
	var seen []OutputChange
	out := NewMemoryOutputs(func(c OutputChange) { seen = append(seen, c) })

	out.Toggle(DoorStatus)
	out.Toggle(DoorStatus)
	out.Set(BrakeStatus, true)

	assert.False(t, out.Level(DoorStatus))
	assert.True(t, out.Level(BrakeStatus))
	assert.Equal(t, []OutputChange{
		{ID: DoorStatus, On: true},
		{ID: DoorStatus, On: false},
		{ID: BrakeStatus, On: true},
	}, out.History())
	assert.Equal(t, out.History(), seen)
	assert.Equal(t, []OutputChange{
		{ID: DoorStatus, On: false},
		{ID: BrakeStatus, On: true},
	}, out.Levels())
}

func TestDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	rec := &RecordingDiagnostics{}
	var fromFunc []string

	sink := MultiDiagnostics{
		rec,
		LogDiagnostics{Logger: slog.New(slog.NewTextHandler(&buf, nil))},
		DiagnosticsFunc(func(msg string) { fromFunc = append(fromFunc, msg) }),
		nil,
	}
	sink.Log("Emergency!")

	assert.Equal(t, []string{"Emergency!"}, rec.Messages())
	assert.Equal(t, []string{"Emergency!"}, fromFunc)
	assert.Contains(t, buf.String(), "message=Emergency!")
}

func TestOutputID_String(t *testing.T) {
	assert.Equal(t, "door_status", DoorStatus.String())
	assert.Equal(t, "heartbeat", Heartbeat.String())
	assert.Equal(t, "output(99)", OutputID(99).String())
}
