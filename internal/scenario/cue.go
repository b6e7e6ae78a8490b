package scenario

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// scenarioSchema constrains CUE scenario files. Unifying input against
// the schema rejects unknown fields and wrong value types before any Go
// validation runs.
const scenarioSchema = `
#Scenario: close({
	name:        string & !=""
	description: string & !=""
	processes:   int & >0
	resources:   int & >0
	capacity: [...int & >=1]
	strategy?: "graph" | "safety"
	aliases?: {[string]: "request" | "grant" | "release"}
	max_needs?: [...[...int & >=0]]
	statements: [...string]
})
`

// LoadCUE reads and compiles a scenario CUE file.
// Uses the CUE SDK's Go API directly (not a CLI subprocess): the file is
// compiled, unified against #Scenario, checked for concreteness, and
// decoded into the Scenario struct.
func LoadCUE(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	cctx := cuecontext.New()

	schema := cctx.CompileString(scenarioSchema)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("internal scenario schema is broken: %w", err)
	}

	val := cctx.CompileBytes(data, cue.Filename(path))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE: %s", cueerrors.Details(err, nil))
	}

	unified := val.Unify(schema.LookupPath(cue.ParsePath("#Scenario")))
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return nil, fmt.Errorf("scenario does not satisfy schema: %s", cueerrors.Details(err, nil))
	}

	var sc Scenario
	if err := unified.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &sc, nil
}
