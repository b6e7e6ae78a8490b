// Package statement parses scripted resource-allocation statements.
//
// A statement is three space-separated tokens: a process reference, a verb,
// and a resource reference, e.g. "P0 requests R1". The verb vocabulary is
// configurable via an alias table because the scenario corpus spells the
// grant verb inconsistently ("holds" in some scripts, "granted" in others).
// Parsing has no side effects: the interpreter never consults or mutates
// ledger state.
package statement

import (
	"fmt"
	"strconv"
	"strings"
)

// Verb is the canonical action of a statement.
type Verb string

const (
	// VerbRequest records an ask for one instance of a resource.
	VerbRequest Verb = "request"

	// VerbGrant hands one requested instance to the process.
	VerbGrant Verb = "grant"

	// VerbRelease returns one held instance to the pool.
	VerbRelease Verb = "release"
)

// AliasTable maps surface spellings (lowercase) to canonical verbs.
type AliasTable map[string]Verb

// DefaultAliases returns the alias table covering every spelling observed
// in the scenario corpus, plus the canonical verbs themselves.
func DefaultAliases() AliasTable {
	return AliasTable{
		"request":  VerbRequest,
		"requests": VerbRequest,
		"grant":    VerbGrant,
		"granted":  VerbGrant,
		"holds":    VerbGrant,
		"release":  VerbRelease,
		"releases": VerbRelease,
	}
}

// Statement is a parsed (process, verb, resource) triple.
type Statement struct {
	Process  int    `json:"process"`
	Verb     Verb   `json:"verb"`
	Resource int    `json:"resource"`
	Raw      string `json:"raw"`
}

func (s Statement) String() string {
	return fmt.Sprintf("P%d %s R%d", s.Process, s.Verb, s.Resource)
}

// MalformedStatementError reports a statement that does not match the
// three-token P<idx> <verb> R<idx> shape. Fatal to that statement only;
// the simulation continues at the next step.
type MalformedStatementError struct {
	Raw    string
	Reason string
}

func (e *MalformedStatementError) Error() string {
	return fmt.Sprintf("malformed statement %q: %s", e.Raw, e.Reason)
}

// IndexOutOfRangeError reports a process or resource index outside the
// configured bounds. Fatal to the run: it indicates a scenario/statement
// mismatch, not a recoverable per-statement condition.
type IndexOutOfRangeError struct {
	Raw   string
	Kind  string // "process" or "resource"
	Index int
	Limit int // exclusive upper bound
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("statement %q: %s index %d out of range [0, %d)",
		e.Raw, e.Kind, e.Index, e.Limit)
}

// Interpreter parses statements against fixed process/resource bounds and
// a verb alias table.
type Interpreter struct {
	numProcesses int
	numResources int
	aliases      AliasTable
}

// NewInterpreter creates an Interpreter. A nil alias table falls back to
// DefaultAliases. The alias table is copied to prevent external mutation.
func NewInterpreter(numProcesses, numResources int, aliases AliasTable) *Interpreter {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	copied := make(AliasTable, len(aliases))
	for k, v := range aliases {
		copied[strings.ToLower(k)] = v
	}
	return &Interpreter{
		numProcesses: numProcesses,
		numResources: numResources,
		aliases:      copied,
	}
}

// Parse extracts the (process, verb, resource) triple from raw.
//
// Returns *MalformedStatementError if the shape is wrong or the verb is
// unknown, and *IndexOutOfRangeError if either index is outside the
// configured bounds. The P/R prefixes are matched case-insensitively and
// indices may be multi-digit.
func (i *Interpreter) Parse(raw string) (Statement, error) {
	tokens := strings.Fields(raw)
	if len(tokens) != 3 {
		return Statement{}, &MalformedStatementError{
			Raw:    raw,
			Reason: fmt.Sprintf("expected 3 tokens, got %d", len(tokens)),
		}
	}

	proc, err := parseIndex(tokens[0], 'P')
	if err != nil {
		return Statement{}, &MalformedStatementError{Raw: raw, Reason: err.Error()}
	}

	verb, ok := i.aliases[strings.ToLower(tokens[1])]
	if !ok {
		return Statement{}, &MalformedStatementError{
			Raw:    raw,
			Reason: fmt.Sprintf("unknown verb %q", tokens[1]),
		}
	}

	res, err := parseIndex(tokens[2], 'R')
	if err != nil {
		return Statement{}, &MalformedStatementError{Raw: raw, Reason: err.Error()}
	}

	if proc < 0 || proc >= i.numProcesses {
		return Statement{}, &IndexOutOfRangeError{
			Raw: raw, Kind: "process", Index: proc, Limit: i.numProcesses,
		}
	}
	if res < 0 || res >= i.numResources {
		return Statement{}, &IndexOutOfRangeError{
			Raw: raw, Kind: "resource", Index: res, Limit: i.numResources,
		}
	}

	return Statement{Process: proc, Verb: verb, Resource: res, Raw: raw}, nil
}

// parseIndex strips a single-letter prefix (case-insensitive) and parses
// the remaining decimal digits.
func parseIndex(token string, prefix byte) (int, error) {
	if len(token) < 2 {
		return 0, fmt.Errorf("token %q too short for %c<idx>", token, prefix)
	}
	head := token[0]
	if head != prefix && head != prefix+('a'-'A') {
		return 0, fmt.Errorf("token %q does not start with %c", token, prefix)
	}
	idx, err := strconv.Atoi(token[1:])
	if err != nil {
		return 0, fmt.Errorf("token %q has non-numeric index", token)
	}
	if idx < 0 {
		return 0, fmt.Errorf("token %q has negative index", token)
	}
	return idx, nil
}
