package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ragsim/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunToken string
}

// TraceStep is one timeline entry of a recorded run.
type TraceStep struct {
	Step      int64  `json:"step"`
	Statement string `json:"statement"`
	State     string `json:"state"`
	Digest    string `json:"digest"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunToken   string      `json:"run_token"`
	Scenario   string      `json:"scenario"`
	Strategy   string      `json:"strategy"`
	FinalState string      `json:"final_state"`
	RunDigest  string      `json:"run_digest"`
	Timeline   []TraceStep `json:"timeline"`
}

func (r TraceResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s (scenario %s, strategy %s)\n", r.RunToken, r.Scenario, r.Strategy)
	for _, step := range r.Timeline {
		fmt.Fprintf(&b, "  %4d  %-24s %-22s %s\n", step.Step, step.Statement, step.State, shortDigest(step.Digest))
	}
	fmt.Fprintf(&b, "final state: %s", r.FinalState)
	return b.String()
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the recorded timeline of a run",
		Long: `Print the recorded snapshot timeline of a run: one line per processed
statement with the driver state and the snapshot digest.

Examples:
  ragsim trace --db ./ragsim.db --run 01919f2e-5a7b-7c3d-...
  ragsim trace --db ./ragsim.db --run 01919f2e-5a7b-7c3d-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraceCmd(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunToken, "run", "", "run token to print (required)")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

func runTraceCmd(opts *TraceOptions, cmd *cobra.Command) error {
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
	steps, err := st.ReadSteps(ctx, opts.RunToken)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read recorded steps", err)
	}

	result := TraceResult{
		RunToken:   rec.RunToken,
		Scenario:   rec.Scenario,
		Strategy:   rec.Strategy,
		FinalState: rec.FinalState,
		RunDigest:  rec.RunDigest,
	}
	for _, s := range steps {
		result.Timeline = append(result.Timeline, TraceStep{
			Step:      s.Step,
			Statement: s.Statement,
			State:     s.State,
			Digest:    s.Digest,
		})
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(result)
}
