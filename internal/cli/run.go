package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/ragsim/internal/engine"
	"github.com/roach88/ragsim/internal/render"
	"github.com/roach88/ragsim/internal/scenario"
	"github.com/roach88/ragsim/internal/store"
	"github.com/roach88/ragsim/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Builtin  string
	Strategy string
	Database string

	// TokenGenerator allows overriding the run token generator (for
	// testing). If nil, defaults to UUIDv7Generator.
	TokenGenerator engine.RunTokenGenerator
}

// RunResult is the run command's output payload.
type RunResult struct {
	RunToken   string `json:"run_token"`
	Scenario   string `json:"scenario"`
	Strategy   string `json:"strategy"`
	Steps      int64  `json:"steps"`
	FinalState string `json:"final_state"`
	Deadlocked []int  `json:"deadlocked"`
	RunDigest  string `json:"run_digest,omitempty"`
}

func (r RunResult) String() string {
	return fmt.Sprintf("run %s: %s after %d steps", r.RunToken, r.FinalState, r.Steps)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [scenario-file]",
		Short: "Run a scenario to completion",
		Long: `Run a scenario's statement script through the engine, detecting
deadlock after every statement.

The scenario comes from a YAML or CUE file, or from the built-in corpus
via --builtin. Each processed statement prints a state report; pass
--db to additionally record the snapshot trace for later inspection
and replay verification.

Examples:
  ragsim run --builtin single-deadlock
  ragsim run ./scenarios/lecture-week4.yaml --strategy safety
  ragsim run --builtin multi-nodeadlock --db ./ragsim.db`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runScenario(opts, path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Builtin, "builtin", "", "built-in scenario name (see `ragsim scenarios`)")
	cmd.Flags().StringVar(&opts.Strategy, "strategy", "", "override detection strategy (graph|safety)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the snapshot trace to this SQLite database")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	sc, err := loadScenarioArg(path, opts.Builtin)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	if opts.Strategy != "" {
		sc.Strategy = opts.Strategy
	}

	cfg, err := sc.Config()
	if err != nil {
		return WrapExitError(ExitFailure, "invalid scenario", err)
	}

	driverOpts := []engine.DriverOption{}
	if opts.TokenGenerator != nil {
		driverOpts = append(driverOpts, engine.WithRunTokenGenerator(opts.TokenGenerator))
	}

	// Per-step state reports go to stdout in text mode. JSON mode keeps
	// stdout machine-readable: one final response object only.
	if opts.Format == "text" {
		driverOpts = append(driverOpts, engine.WithObserver(func(snap engine.Snapshot) {
			fmt.Fprintln(cmd.OutOrStdout(), render.StepReport(snap))
		}))
	}

	// Optional trace recording.
	var st *store.Store
	runDigest := ""
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		recordCtx := cmd.Context()
		if recordCtx == nil {
			recordCtx = context.Background()
		}
		driverOpts = append(driverOpts, engine.WithObserver(func(snap engine.Snapshot) {
			digest, writeErr := st.WriteSnapshot(recordCtx, snap)
			if writeErr != nil {
				slog.Error("failed to record snapshot", "step", snap.Step, "error", writeErr)
				return
			}
			runDigest = trace.ChainDigest(runDigest, digest)
		}))
	}

	driver, err := engine.NewDriver(cfg, driverOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build driver", err)
	}

	if st != nil {
		scJSON, marshalErr := json.Marshal(sc)
		if marshalErr != nil {
			return WrapExitError(ExitCommandError, "failed to encode scenario", marshalErr)
		}
		rec := store.RunRecord{
			RunToken:     driver.RunToken(),
			Scenario:     sc.Name,
			ScenarioJSON: string(scJSON),
			Strategy:     string(cfg.Strategy),
			NumProcesses: cfg.NumProcesses,
			NumResources: cfg.NumResources,
			Capacity:     cfg.Capacity,
		}
		if rec.Strategy == "" {
			rec.Strategy = string(engine.StrategyGraph)
		}
		beginCtx := cmd.Context()
		if beginCtx == nil {
			beginCtx = context.Background()
		}
		if err := st.BeginRun(beginCtx, rec); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
	}

	// Interruptible, though runs are normally instantaneous.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting run", "run", driver.RunToken(), "scenario", sc.Name,
		"strategy", cfg.Strategy, "statements", len(cfg.Statements))

	final, err := driver.Run(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "run failed", err)
	}

	if st != nil {
		finishCtx := cmd.Context()
		if finishCtx == nil {
			finishCtx = context.Background()
		}
		if err := st.FinishRun(finishCtx, driver.RunToken(), string(final.State), runDigest); err != nil {
			return WrapExitError(ExitCommandError, "failed to finalize run record", err)
		}
	}

	result := RunResult{
		RunToken:   driver.RunToken(),
		Scenario:   sc.Name,
		Strategy:   string(final.Strategy),
		Steps:      final.Step,
		FinalState: string(final.State),
		Deadlocked: final.Deadlocked,
		RunDigest:  runDigest,
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "text" {
		fmt.Fprintln(cmd.OutOrStdout(), render.Summary(final))
	}
	return formatter.Success(result)
}

// loadScenarioArg resolves the mutually exclusive scenario sources.
func loadScenarioArg(path, builtin string) (*scenario.Scenario, error) {
	switch {
	case path != "" && builtin != "":
		return nil, fmt.Errorf("pass a scenario file or --builtin, not both")
	case path != "":
		return scenario.Load(path)
	case builtin != "":
		return scenario.Builtin(builtin)
	default:
		return nil, fmt.Errorf("a scenario file or --builtin is required")
	}
}
