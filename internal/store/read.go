package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when a run token has no recorded run.
var ErrRunNotFound = errors.New("run not found")

// StepRecord is one recorded snapshot row.
type StepRecord struct {
	RunToken  string `json:"run_token"`
	Step      int64  `json:"step"`
	Statement string `json:"statement"`
	State     string `json:"state"`
	Snapshot  string `json:"snapshot"`
	Digest    string `json:"digest"`
}

// ReadRun fetches the run row for a token.
func (s *Store) ReadRun(ctx context.Context, runToken string) (RunRecord, error) {
	var rec RunRecord
	var capJSON string

	err := s.db.QueryRowContext(ctx, `
		SELECT run_token, scenario, scenario_json, strategy,
		       num_processes, num_resources, capacity,
		       started_at, final_state, run_digest
		FROM runs WHERE run_token = ?
	`, runToken).Scan(
		&rec.RunToken,
		&rec.Scenario,
		&rec.ScenarioJSON,
		&rec.Strategy,
		&rec.NumProcesses,
		&rec.NumResources,
		&capJSON,
		&rec.StartedAt,
		&rec.FinalState,
		&rec.RunDigest,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("read run %s: %w", runToken, ErrRunNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("read run %s: %w", runToken, err)
	}

	if err := json.Unmarshal([]byte(capJSON), &rec.Capacity); err != nil {
		return RunRecord{}, fmt.Errorf("read run %s: decode capacity: %w", runToken, err)
	}

	return rec, nil
}

// ReadSteps returns a run's snapshots ordered by step.
func (s *Store) ReadSteps(ctx context.Context, runToken string) ([]StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_token, step, statement, state, snapshot, digest
		FROM snapshots WHERE run_token = ?
		ORDER BY step ASC
	`, runToken)
	if err != nil {
		return nil, fmt.Errorf("read steps for %s: %w", runToken, err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var rec StepRecord
		if err := rows.Scan(&rec.RunToken, &rec.Step, &rec.Statement, &rec.State, &rec.Snapshot, &rec.Digest); err != nil {
			return nil, fmt.Errorf("read steps for %s: scan: %w", runToken, err)
		}
		steps = append(steps, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read steps for %s: %w", runToken, err)
	}

	return steps, nil
}

// ListRuns returns all recorded runs, newest first. UUIDv7 run tokens
// sort by creation time, so token order is chronological.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_token, scenario, scenario_json, strategy,
		       num_processes, num_resources, capacity,
		       started_at, final_state, run_digest
		FROM runs ORDER BY run_token DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rec RunRecord
		var capJSON string
		if err := rows.Scan(
			&rec.RunToken,
			&rec.Scenario,
			&rec.ScenarioJSON,
			&rec.Strategy,
			&rec.NumProcesses,
			&rec.NumResources,
			&capJSON,
			&rec.StartedAt,
			&rec.FinalState,
			&rec.RunDigest,
		); err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(capJSON), &rec.Capacity); err != nil {
			return nil, fmt.Errorf("list runs: decode capacity: %w", err)
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	return runs, nil
}
