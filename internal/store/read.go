package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/guardloop/internal/ir"
)

// ErrRunNotFound is returned when a run id has no record.
var ErrRunNotFound = errors.New("run not found")

// ReadRun returns the run record for id.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.Run, error) {
	var run ir.Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, config_hash, engine_version, outcome
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.Source, &run.ConfigHash, &run.EngineVersion, &run.Outcome)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return ir.Run{}, fmt.Errorf("read run: %w", err)
	}
	return run, nil
}

// ListRuns returns all runs ordered by id. UUIDv7 run ids sort by
// creation time.
func (s *Store) ListRuns(ctx context.Context) ([]ir.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, config_hash, engine_version, outcome
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.Run{}
	for rows.Next() {
		var run ir.Run
		if err := rows.Scan(&run.ID, &run.Source, &run.ConfigHash, &run.EngineVersion, &run.Outcome); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadSteps returns all steps of a run in logical order.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the run has no steps.
func (s *Store) ReadSteps(ctx context.Context, runID string) ([]ir.Step, error) {
	return s.querySteps(ctx, `
		SELECT id, run_id, seq, cycle, machine, kind, from_state, to_state, state, event, reason, hook, message, output, level
		FROM steps
		WHERE run_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID)
}

// ReadStepsByKind returns the steps of one kind in logical order.
func (s *Store) ReadStepsByKind(ctx context.Context, runID string, kind ir.StepKind) ([]ir.Step, error) {
	return s.querySteps(ctx, `
		SELECT id, run_id, seq, cycle, machine, kind, from_state, to_state, state, event, reason, hook, message, output, level
		FROM steps
		WHERE run_id = ? AND kind = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID, string(kind))
}

func (s *Store) querySteps(ctx context.Context, query string, args ...any) ([]ir.Step, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []ir.Step{}
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

func scanStep(rows *sql.Rows) (ir.Step, error) {
	var (
		step  ir.Step
		kind  string
		level int
	)
	err := rows.Scan(
		&step.ID,
		&step.RunID,
		&step.Seq,
		&step.Cycle,
		&step.Machine,
		&kind,
		&step.From,
		&step.To,
		&step.State,
		&step.Event,
		&step.Reason,
		&step.Hook,
		&step.Message,
		&step.Output,
		&level,
	)
	if err != nil {
		return ir.Step{}, fmt.Errorf("scan step: %w", err)
	}
	step.Kind = ir.StepKind(kind)
	step.On = level != 0
	return step, nil
}
