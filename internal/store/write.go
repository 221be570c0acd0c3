package store

import (
	"context"
	"fmt"

	"github.com/roach88/guardloop/internal/ir"
)

// WriteRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) WriteRun(ctx context.Context, run ir.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, source, config_hash, engine_version, outcome)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Source, run.ConfigHash, run.EngineVersion, run.Outcome)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// SetOutcome records how a run ended ("halted", "stopped", "completed").
func (s *Store) SetOutcome(ctx context.Context, runID, outcome string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET outcome = ? WHERE id = ?`, outcome, runID)
	if err != nil {
		return fmt.Errorf("set outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set outcome: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("set outcome: %w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// WriteStep inserts a step record.
//
// An empty step ID is computed with ir.StepID. Uses
// ON CONFLICT(id) DO NOTHING so rewriting the same step is silently
// ignored; other constraint violations (unknown run, duplicate seq with a
// different id) still return errors.
func (s *Store) WriteStep(ctx context.Context, step ir.Step) error {
	if !ir.ValidStepKinds[step.Kind] {
		return fmt.Errorf("write step: invalid kind %q", step.Kind)
	}
	if step.ID == "" {
		id, err := ir.StepID(step)
		if err != nil {
			return fmt.Errorf("write step: %w", err)
		}
		step.ID = id
	}

	level := 0
	if step.On {
		level = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO steps
		(id, run_id, seq, cycle, machine, kind, from_state, to_state, state, event, reason, hook, message, output, level)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		step.ID,
		step.RunID,
		step.Seq,
		step.Cycle,
		step.Machine,
		string(step.Kind),
		step.From,
		step.To,
		step.State,
		step.Event,
		step.Reason,
		step.Hook,
		step.Message,
		step.Output,
		level,
	)
	if err != nil {
		return fmt.Errorf("write step: %w", err)
	}
	return nil
}
