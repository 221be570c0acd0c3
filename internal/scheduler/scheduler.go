package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrInvalidPointer reports a nil scheduler, tick source or task.
	ErrInvalidPointer = errors.New("invalid pointer")

	// ErrLaneAssigned reports an attempt to rebind a lane.
	ErrLaneAssigned = errors.New("lane already assigned")

	// ErrUnknownLane reports a lane outside Lane1ms..Lane1000ms.
	ErrUnknownLane = errors.New("unknown lane")
)

// Task is a lane callback. It must return quickly and must not block.
type Task func()

// Tasks binds one task per lane for AssignAll.
type Tasks struct {
	Every1ms    Task
	Every10ms   Task
	Every100ms  Task
	Every250ms  Task
	Every1000ms Task
}

func (t Tasks) byLane() [numLanes]Task {
	return [numLanes]Task{t.Every1ms, t.Every10ms, t.Every100ms, t.Every250ms, t.Every1000ms}
}

type lane struct {
	task  Task
	last  Tick
	fired uint64
}

// Scheduler is a five-lane cooperative scheduler.
//
// Thread-safety: not safe for concurrent use. All methods are called from
// the control goroutine.
type Scheduler struct {
	src    TickSource
	lanes  [numLanes]lane
	logger *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a scheduler reading ticks from src.
// The scheduler starts in the initialized state.
func New(src TickSource, opts ...Option) *Scheduler {
	s := &Scheduler{
		src:    src,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize zeroes every lane timestamp and clears every task binding.
func (s *Scheduler) Initialize() error {
	if s == nil {
		return ErrInvalidPointer
	}
	s.lanes = [numLanes]lane{}
	return nil
}

// Assign binds task to lane l. A lane can be bound once per Initialize.
func (s *Scheduler) Assign(l Lane, task Task) error {
	if s == nil || task == nil {
		return ErrInvalidPointer
	}
	if !l.valid() {
		return fmt.Errorf("assign %s: %w", l, ErrUnknownLane)
	}
	if s.lanes[l].task != nil {
		return fmt.Errorf("assign %s: %w", l, ErrLaneAssigned)
	}
	s.lanes[l].task = task
	return nil
}

// AssignAll binds all five lanes. Every task must be non-nil; on error no
// lane is bound.
func (s *Scheduler) AssignAll(tasks Tasks) error {
	if s == nil {
		return ErrInvalidPointer
	}
	all := tasks.byLane()
	for i, task := range all {
		if task == nil {
			return fmt.Errorf("assign %s: %w", Lane(i), ErrInvalidPointer)
		}
		if s.lanes[i].task != nil {
			return fmt.Errorf("assign %s: %w", Lane(i), ErrLaneAssigned)
		}
	}
	for i, task := range all {
		s.lanes[i].task = task
	}
	return nil
}

// Cycle visits each lane once, shortest period first, firing those that
// are due. Each lane reads the tick source itself.
//
// A due lane records the tick it read; its task runs only if that tick is
// non-zero and the lane has a task bound.
func (s *Scheduler) Cycle() error {
	if s == nil || s.src == nil {
		return ErrInvalidPointer
	}
	for i := range s.lanes {
		ln := &s.lanes[i]
		now := s.src.Now()
		if Elapsed(ln.last, now) < lanePeriods[i] {
			continue
		}
		ln.last = now
		if now == 0 {
			s.logger.Debug("lane due at tick zero, task skipped", "lane", Lane(i).String())
			continue
		}
		if ln.task != nil {
			ln.fired++
			ln.task()
		}
	}
	return nil
}

// LastFired returns the tick stored when lane l last became due.
func (s *Scheduler) LastFired(l Lane) Tick {
	if s == nil || !l.valid() {
		return 0
	}
	return s.lanes[l].last
}

// Fired returns how many times lane l's task has been called.
func (s *Scheduler) Fired(l Lane) uint64 {
	if s == nil || !l.valid() {
		return 0
	}
	return s.lanes[l].fired
}
