package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/ragsim/internal/engine"
	"github.com/roach88/ragsim/internal/scenario"
	"github.com/roach88/ragsim/internal/store"
	"github.com/roach88/ragsim/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunToken string
}

// ReplayResult is the replay command's output payload.
type ReplayResult struct {
	RunToken      string `json:"run_token"`
	Scenario      string `json:"scenario"`
	Steps         int    `json:"steps"`
	Deterministic bool   `json:"deterministic"`
	MismatchStep  int64  `json:"mismatch_step,omitempty"`
}

func (r ReplayResult) String() string {
	if r.Deterministic {
		return fmt.Sprintf("replay of %s: %d steps, trajectories identical", r.RunToken, r.Steps)
	}
	return fmt.Sprintf("replay of %s: MISMATCH at step %d", r.RunToken, r.MismatchStep)
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run a recorded run and verify determinism",
		Long: `Re-run a recorded run's scenario from its initial configuration and
verify that the replay produces a bit-identical snapshot trajectory.

Every step's canonical snapshot digest is compared against the recorded
one, and the chained run digest against the run row. Any divergence
means hidden nondeterminism and exits with code 1.

Examples:
  ragsim replay --db ./ragsim.db --run 01919f2e-5a7b-7c3d-...
  ragsim replay --db ./ragsim.db --run 01919f2e-5a7b-7c3d-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunToken, "run", "", "run token to replay (required)")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	rec, err := st.ReadRun(ctx, opts.RunToken)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	recorded, err := st.ReadSteps(ctx, opts.RunToken)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read recorded steps", err)
	}

	var sc scenario.Scenario
	if err := json.Unmarshal([]byte(rec.ScenarioJSON), &sc); err != nil {
		return WrapExitError(ExitCommandError, "failed to decode recorded scenario", err)
	}
	cfg, err := sc.Config()
	if err != nil {
		return WrapExitError(ExitCommandError, "recorded scenario is invalid", err)
	}

	// Replay under the original token. The token is excluded from
	// digests, but keeping it makes logs line up with the recording.
	driver, err := engine.NewDriver(cfg,
		engine.WithRunTokenGenerator(engine.NewFixedGenerator(opts.RunToken)))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build driver", err)
	}

	result := ReplayResult{
		RunToken:      opts.RunToken,
		Scenario:      rec.Scenario,
		Steps:         len(recorded),
		Deterministic: true,
	}
	runDigest := ""

	for i := 0; ; i++ {
		snap, ok, err := driver.Step()
		if err != nil {
			return WrapExitError(ExitFailure, "replay failed", err)
		}
		if !ok {
			if i < len(recorded) {
				result.Deterministic = false
				result.MismatchStep = recorded[i].Step
				slog.Error("replay ended early", "expected_steps", len(recorded), "got", i)
			}
			break
		}
		if i >= len(recorded) {
			result.Deterministic = false
			result.MismatchStep = snap.Step
			slog.Error("replay produced extra steps", "recorded_steps", len(recorded))
			break
		}

		digest, err := trace.SnapshotDigest(snap)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to digest replayed snapshot", err)
		}
		if digest != recorded[i].Digest {
			result.Deterministic = false
			result.MismatchStep = snap.Step
			slog.Error("snapshot digest mismatch", "step", snap.Step,
				"recorded", recorded[i].Digest, "replayed", digest)
			break
		}
		runDigest = trace.ChainDigest(runDigest, digest)
	}

	if result.Deterministic && rec.RunDigest != "" && runDigest != rec.RunDigest {
		result.Deterministic = false
		slog.Error("run digest mismatch", "recorded", rec.RunDigest, "replayed", runDigest)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if err := formatter.Success(result); err != nil {
		return err
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, "replay diverged from recorded trajectory")
	}
	return nil
}
