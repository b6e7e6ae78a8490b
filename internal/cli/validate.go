package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ragsim/internal/scenario"
)

// ValidateResult is the validate command's output payload.
type ValidateResult struct {
	Scenario  string `json:"scenario"`
	Processes int    `json:"processes"`
	Resources int    `json:"resources"`
	Strategy  string `json:"strategy"`
	Steps     int    `json:"steps"`
}

func (r ValidateResult) String() string {
	return fmt.Sprintf("scenario %q is valid: %d processes, %d resources, %d statements",
		r.Scenario, r.Processes, r.Resources, r.Steps)
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file>",
		Short: "Validate a scenario file without running it",
		Long: `Validate a scenario file's structure and dimensional consistency.

YAML files are decoded strictly (unknown fields are rejected); CUE files
are additionally checked against the scenario schema.

Examples:
  ragsim validate ./scenarios/lecture-week4.yaml
  ragsim validate ./scenarios/banker.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Load(args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "scenario validation failed", err)
			}

			strategy := sc.Strategy
			if strategy == "" {
				strategy = "graph"
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(ValidateResult{
				Scenario:  sc.Name,
				Processes: sc.Processes,
				Resources: sc.Resources,
				Strategy:  strategy,
				Steps:     len(sc.Statements),
			})
		},
	}

	return cmd
}
