package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/guardloop/internal/engine"
	"github.com/roach88/guardloop/internal/hal"
	"github.com/roach88/guardloop/internal/ir"
)

// StepWriter persists journal steps. *Store implements it.
type StepWriter interface {
	WriteStep(ctx context.Context, step ir.Step) error
}

// Journal turns engine notifications, diagnostics and output changes into
// numbered steps of one run.
//
// Thread-safety: not safe for concurrent use. All notifications arrive on
// the control goroutine.
type Journal struct {
	ctx    context.Context
	w      StepWriter
	runID  string
	seq    int64
	cycle  func() int64
	logger *slog.Logger
	err    error
}

// JournalOption configures a Journal.
type JournalOption func(*Journal)

// WithCycle sets the function that reports the current cycle number for
// each step. Without it, every step records cycle 0.
func WithCycle(fn func() int64) JournalOption {
	return func(j *Journal) {
		j.cycle = fn
	}
}

// WithJournalLogger sets the logger used to report write failures.
func WithJournalLogger(logger *slog.Logger) JournalOption {
	return func(j *Journal) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// NewJournal creates a journal appending to runID through w.
func NewJournal(ctx context.Context, w StepWriter, runID string, opts ...JournalOption) *Journal {
	j := &Journal{
		ctx:    ctx,
		w:      w,
		runID:  runID,
		cycle:  func() int64 { return 0 },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// RunID returns the run this journal appends to.
func (j *Journal) RunID() string {
	return j.runID
}

// Seq returns the sequence number of the last step written.
func (j *Journal) Seq() int64 {
	return j.seq
}

// Err returns every write error seen so far, joined.
func (j *Journal) Err() error {
	return j.err
}

// Observer returns an engine observer recording under machine, rendering
// ids through names.
func (j *Journal) Observer(machine string, names engine.Names) engine.Observer {
	return &machineObserver{j: j, machine: machine, names: names}
}

// Log implements hal.Diagnostics.
func (j *Journal) Log(msg string) {
	j.append(ir.Step{Kind: ir.KindDiagnostic, Message: msg})
}

// OutputChanged records an output change. It matches the callback of
// hal.NewMemoryOutputs.
func (j *Journal) OutputChanged(c hal.OutputChange) {
	j.append(ir.Step{Kind: ir.KindOutput, Output: c.ID.String(), On: c.On})
}

// Note records a lifecycle message (startup failure, halt, stop).
func (j *Journal) Note(msg string) {
	j.append(ir.Step{Kind: ir.KindSystem, Message: msg})
}

func (j *Journal) append(step ir.Step) {
	j.seq++
	step.RunID = j.runID
	step.Seq = j.seq
	step.Cycle = j.cycle()
	if err := j.w.WriteStep(j.ctx, step); err != nil {
		j.logger.Error("journal write failed", "run_id", j.runID, "seq", step.Seq, "error", err)
		j.err = errors.Join(j.err, err)
	}
}

type machineObserver struct {
	j       *Journal
	machine string
	names   engine.Names
}

func (o *machineObserver) Transitioned(from, to engine.StateID, ev engine.EventID) {
	o.j.append(ir.Step{
		Kind:    ir.KindTransition,
		Machine: o.machine,
		From:    o.names.State(from),
		To:      o.names.State(to),
		Event:   o.names.Event(ev),
	})
}

func (o *machineObserver) Dropped(state engine.StateID, ev engine.EventID, reason engine.DropReason) {
	o.j.append(ir.Step{
		Kind:    ir.KindDrop,
		Machine: o.machine,
		State:   o.names.State(state),
		Event:   o.names.Event(ev),
		Reason:  reason.String(),
	})
}

func (o *machineObserver) HookFailed(state engine.StateID, hook engine.HookKind, err error) {
	o.j.append(ir.Step{
		Kind:    ir.KindHookError,
		Machine: o.machine,
		State:   o.names.State(state),
		Hook:    hook.String(),
		Message: err.Error(),
	})
}

// MemoryWriter keeps steps in memory. Used when no database is configured.
type MemoryWriter struct {
	Steps []ir.Step
}

// WriteStep implements StepWriter.
func (m *MemoryWriter) WriteStep(_ context.Context, step ir.Step) error {
	m.Steps = append(m.Steps, step)
	return nil
}

var (
	_ engine.Observer = (*machineObserver)(nil)
	_ hal.Diagnostics = (*Journal)(nil)
	_ StepWriter      = (*Store)(nil)
	_ StepWriter      = (*MemoryWriter)(nil)
)
