// Package scenario loads and validates simulation scenarios.
//
// A scenario fixes the matrix dimensions, the per-resource capacities,
// the detection strategy, and the ordered statement script. Scenarios
// come from YAML files (strict decoding), CUE files (schema-checked), or
// the built-in corpus.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ragsim/internal/engine"
	"github.com/roach88/ragsim/internal/statement"
)

// Scenario defines one simulation run.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description" json:"description"`

	// Processes and Resources fix the matrix dimensions.
	Processes int `yaml:"processes" json:"processes"`
	Resources int `yaml:"resources" json:"resources"`

	// Capacity holds the instance count per resource type, length
	// Resources. All-ones is the single-instance special case.
	Capacity []int `yaml:"capacity" json:"capacity"`

	// Strategy selects the deadlock detector: "graph" (default) or
	// "safety".
	Strategy string `yaml:"strategy,omitempty" json:"strategy,omitempty"`

	// Aliases optionally adds verb spellings on top of the defaults,
	// mapping each alias to "request", "grant" or "release".
	Aliases map[string]string `yaml:"aliases,omitempty" json:"aliases,omitempty"`

	// MaxNeeds optionally declares maximum needs up front for the
	// safety strategy (Processes rows of Resources entries). When
	// omitted, needs are tracked from live requests.
	MaxNeeds [][]int `yaml:"max_needs,omitempty" json:"max_needs,omitempty"`

	// Statements is the ordered statement script.
	Statements []string `yaml:"statements" json:"statements"`
}

// Load reads a scenario file, dispatching on extension:
// .cue is compiled against the CUE schema, .yaml/.yml is decoded strictly.
func Load(path string) (*Scenario, error) {
	switch ext := filepath.Ext(path); ext {
	case ".cue":
		return LoadCUE(path)
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return nil, fmt.Errorf("unsupported scenario file extension %q (want .cue, .yaml or .yml)", ext)
	}
}

// LoadYAML reads and parses a scenario YAML file. Unknown fields are
// rejected, which catches typos like "statement:" vs "statements:".
func LoadYAML(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &sc, nil
}

// Validate checks that required fields are present and dimensionally
// consistent. Statements are shape-checked later by the interpreter, not
// here: a malformed statement is a per-step condition, not a config error.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Processes <= 0 {
		return fmt.Errorf("processes must be positive, got %d", s.Processes)
	}
	if s.Resources <= 0 {
		return fmt.Errorf("resources must be positive, got %d", s.Resources)
	}
	if len(s.Capacity) != s.Resources {
		return fmt.Errorf("capacity has %d entries, want %d", len(s.Capacity), s.Resources)
	}
	for r, c := range s.Capacity {
		if c < 1 {
			return fmt.Errorf("capacity[%d] must be at least 1, got %d", r, c)
		}
	}

	switch engine.Strategy(s.Strategy) {
	case "", engine.StrategyGraph, engine.StrategySafety:
	default:
		return fmt.Errorf("unknown strategy %q (want %q or %q)",
			s.Strategy, engine.StrategyGraph, engine.StrategySafety)
	}

	for alias, verb := range s.Aliases {
		switch statement.Verb(verb) {
		case statement.VerbRequest, statement.VerbGrant, statement.VerbRelease:
		default:
			return fmt.Errorf("alias %q maps to unknown verb %q", alias, verb)
		}
	}

	if s.MaxNeeds != nil {
		if len(s.MaxNeeds) != s.Processes {
			return fmt.Errorf("max_needs has %d rows, want %d", len(s.MaxNeeds), s.Processes)
		}
		for p, row := range s.MaxNeeds {
			if len(row) != s.Resources {
				return fmt.Errorf("max_needs[%d] has %d entries, want %d", p, len(row), s.Resources)
			}
			for r, n := range row {
				if n < 0 {
					return fmt.Errorf("max_needs[%d][%d] is negative: %d", p, r, n)
				}
			}
		}
	}

	if len(s.Statements) == 0 {
		return fmt.Errorf("statements list is required and must be non-empty")
	}

	return nil
}

// Config builds the engine configuration for this scenario. The alias
// table starts from the defaults and overlays any scenario-specific
// spellings.
func (s *Scenario) Config() (engine.Config, error) {
	if err := s.Validate(); err != nil {
		return engine.Config{}, err
	}

	aliases := statement.DefaultAliases()
	for alias, verb := range s.Aliases {
		aliases[alias] = statement.Verb(verb)
	}

	return engine.Config{
		NumProcesses: s.Processes,
		NumResources: s.Resources,
		Capacity:     s.Capacity,
		Statements:   s.Statements,
		Strategy:     engine.Strategy(s.Strategy),
		Aliases:      aliases,
		MaxNeeds:     s.MaxNeeds,
	}, nil
}
