package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/ragsim/internal/engine"
	"github.com/roach88/ragsim/internal/trace"
)

// RunRecord is the per-run row of the trace store.
type RunRecord struct {
	RunToken     string `json:"run_token"`
	Scenario     string `json:"scenario"`
	ScenarioJSON string `json:"-"`
	Strategy     string `json:"strategy"`
	NumProcesses int    `json:"num_processes"`
	NumResources int    `json:"num_resources"`
	Capacity     []int  `json:"capacity"`
	StartedAt    string `json:"started_at"`
	FinalState   string `json:"final_state"`
	RunDigest    string `json:"run_digest"`
}

// BeginRun inserts the run row before any snapshots are recorded.
// Uses ON CONFLICT DO NOTHING: re-recording an existing run token is
// silently ignored, which keeps recording idempotent.
func (s *Store) BeginRun(ctx context.Context, rec RunRecord) error {
	capJSON, err := json.Marshal(rec.Capacity)
	if err != nil {
		return fmt.Errorf("begin run: marshal capacity: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(run_token, scenario, scenario_json, strategy, num_processes, num_resources, capacity)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_token) DO NOTHING
	`,
		rec.RunToken,
		rec.Scenario,
		rec.ScenarioJSON,
		rec.Strategy,
		rec.NumProcesses,
		rec.NumResources,
		string(capJSON),
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}

	return nil
}

// WriteSnapshot records one step's snapshot as canonical JSON plus its
// content-addressed digest. Duplicate (run, step) writes are silently
// ignored for idempotency. Returns the step digest.
func (s *Store) WriteSnapshot(ctx context.Context, snap engine.Snapshot) (string, error) {
	body, err := trace.SnapshotBytes(snap)
	if err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	digest, err := trace.SnapshotDigest(snap)
	if err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots
		(run_token, step, statement, state, snapshot, digest)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_token, step) DO NOTHING
	`,
		snap.RunToken,
		snap.Step,
		snap.Statement,
		string(snap.State),
		string(body),
		digest,
	)
	if err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return digest, nil
}

// FinishRun stamps the run row with its final state and chained digest.
func (s *Store) FinishRun(ctx context.Context, runToken, finalState, runDigest string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET final_state = ?, run_digest = ? WHERE run_token = ?
	`, finalState, runDigest, runToken)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}
