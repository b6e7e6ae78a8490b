package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ragsim/internal/scenario"
)

// ScenarioInfo describes one built-in scenario.
type ScenarioInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Processes   int    `json:"processes"`
	Resources   int    `json:"resources"`
	Capacity    []int  `json:"capacity"`
	Steps       int    `json:"steps"`
}

// ScenarioList is the scenarios command's output payload.
type ScenarioList struct {
	Scenarios []ScenarioInfo `json:"scenarios"`
}

func (l ScenarioList) String() string {
	var b strings.Builder
	for _, info := range l.Scenarios {
		fmt.Fprintf(&b, "%-20s %s (%d processes, %d resources, %d statements)\n",
			info.Name, info.Description, info.Processes, info.Resources, info.Steps)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewScenariosCommand creates the scenarios command.
func NewScenariosCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List the built-in scenarios",
		Long: `List the built-in scenario corpus.

Each entry can be run directly with "ragsim run --builtin <name>".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var list ScenarioList
			for _, name := range scenario.BuiltinNames() {
				sc, err := scenario.Builtin(name)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to load built-in scenario", err)
				}
				list.Scenarios = append(list.Scenarios, ScenarioInfo{
					Name:        sc.Name,
					Description: sc.Description,
					Processes:   sc.Processes,
					Resources:   sc.Resources,
					Capacity:    sc.Capacity,
					Steps:       len(sc.Statements),
				})
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(list)
		},
	}

	return cmd
}
