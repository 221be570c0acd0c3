// Package hal defines the collaborator contracts the control policy depends
// on (sensors, outputs, diagnostics) and in-memory implementations used by
// the simulator and the test harness.
package hal

import "fmt"

// Sensor returns one reading in microvolts.
type Sensor func() int32

// OutputID names a logical binary output.
type OutputID int

const (
	DoorStatus OutputID = iota + 1
	BrakeStatus
	MotorStatus
	Heartbeat
)

func (id OutputID) String() string {
	switch id {
	case DoorStatus:
		return "door_status"
	case BrakeStatus:
		return "brake_status"
	case MotorStatus:
		return "motor_status"
	case Heartbeat:
		return "heartbeat"
	default:
		return fmt.Sprintf("output(%d)", int(id))
	}
}

// Outputs drives logical outputs. Calls are fire-and-forget.
type Outputs interface {
	Set(id OutputID, on bool)
	Toggle(id OutputID)
}

// Diagnostics receives human-readable messages. Delivery failures are not
// reported back to the caller.
type Diagnostics interface {
	Log(msg string)
}

// DiagnosticsFunc adapts a plain function to Diagnostics.
type DiagnosticsFunc func(msg string)

// Log implements Diagnostics.
func (f DiagnosticsFunc) Log(msg string) {
	f(msg)
}

// MultiDiagnostics fans a message out to every sink in order.
type MultiDiagnostics []Diagnostics

// Log implements Diagnostics.
func (m MultiDiagnostics) Log(msg string) {
	for _, d := range m {
		if d != nil {
			d.Log(msg)
		}
	}
}
