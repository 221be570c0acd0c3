package hal

import (
	"log/slog"
	"sort"
	"sync"
)

// ScriptedSensor replays a fixed reading sequence. After the script runs
// out the last reading is held.
type ScriptedSensor struct {
	mu       sync.Mutex
	readings []int32
	next     int
}

// NewScriptedSensor creates a sensor replaying readings. An empty script
// reads zero.
func NewScriptedSensor(readings ...int32) *ScriptedSensor {
	return &ScriptedSensor{readings: readings}
}

// Read returns the next reading.
func (s *ScriptedSensor) Read() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.readings) == 0 {
		return 0
	}
	if s.next >= len(s.readings) {
		return s.readings[len(s.readings)-1]
	}
	r := s.readings[s.next]
	s.next++
	return r
}

// Sensor returns s as a Sensor function.
func (s *ScriptedSensor) Sensor() Sensor {
	return s.Read
}

// Push appends readings to the script.
func (s *ScriptedSensor) Push(readings ...int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, readings...)
}

// OutputChange records one Set or Toggle call and the resulting level.
type OutputChange struct {
	ID OutputID
	On bool
}

// MemoryOutputs keeps output levels in memory and records every change.
type MemoryOutputs struct {
	mu      sync.Mutex
	levels  map[OutputID]bool
	history []OutputChange
	onSet   func(OutputChange)
}

// NewMemoryOutputs creates outputs that are all off. onChange, if non-nil,
// is called after every change.
func NewMemoryOutputs(onChange func(OutputChange)) *MemoryOutputs {
	return &MemoryOutputs{levels: make(map[OutputID]bool), onSet: onChange}
}

// Set implements Outputs.
func (m *MemoryOutputs) Set(id OutputID, on bool) {
	m.record(id, on)
}

// Toggle implements Outputs.
func (m *MemoryOutputs) Toggle(id OutputID) {
	m.mu.Lock()
	on := !m.levels[id]
	m.mu.Unlock()
	m.record(id, on)
}

func (m *MemoryOutputs) record(id OutputID, on bool) {
	m.mu.Lock()
	m.levels[id] = on
	change := OutputChange{ID: id, On: on}
	m.history = append(m.history, change)
	cb := m.onSet
	m.mu.Unlock()
	if cb != nil {
		cb(change)
	}
}

// Level returns the current level of id.
func (m *MemoryOutputs) Level(id OutputID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels[id]
}

// Levels returns a snapshot of all outputs that were ever driven, sorted
// by id.
func (m *MemoryOutputs) Levels() []OutputChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OutputChange, 0, len(m.levels))
	for id, on := range m.levels {
		out = append(out, OutputChange{ID: id, On: on})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// History returns every change in call order.
func (m *MemoryOutputs) History() []OutputChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]OutputChange(nil), m.history...)
}

// LogDiagnostics writes diagnostics to a structured logger at warn level.
type LogDiagnostics struct {
	Logger *slog.Logger
}

// Log implements Diagnostics.
func (d LogDiagnostics) Log(msg string) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("diagnostic", "message", msg)
}

// RecordingDiagnostics keeps every message in memory.
type RecordingDiagnostics struct {
	mu       sync.Mutex
	messages []string
}

// Log implements Diagnostics.
func (r *RecordingDiagnostics) Log(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

// Messages returns the recorded messages in order.
func (r *RecordingDiagnostics) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}
