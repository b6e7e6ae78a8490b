package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/ragsim/internal/statement"
)

// State is the driver's state-machine state.
type State string

const (
	// StateRunning means no process is deadlocked and statements remain.
	StateRunning State = "RUNNING"

	// StatePartiallyDeadlocked means the deadlocked-set is non-empty but
	// smaller than the process count.
	StatePartiallyDeadlocked State = "PARTIALLY_DEADLOCKED"

	// StateFullyDeadlocked is terminal: every process is deadlocked and
	// no further statements are processed.
	StateFullyDeadlocked State = "FULLY_DEADLOCKED"

	// StateFinished is terminal: the statement queue is exhausted
	// without a full deadlock.
	StateFinished State = "FINISHED"
)

// Terminal reports whether the state admits no further statements.
func (s State) Terminal() bool {
	return s == StateFullyDeadlocked || s == StateFinished
}

// Config describes one simulation scenario.
type Config struct {
	// NumProcesses and NumResources fix the matrix dimensions.
	NumProcesses int
	NumResources int

	// Capacity holds the immutable instance count per resource type.
	// Single-instance configuration is the special case where every
	// entry is 1.
	Capacity []int

	// Statements is the ordered scripted statement queue.
	Statements []string

	// Strategy selects the deadlock detector. Defaults to StrategyGraph.
	Strategy Strategy

	// Aliases optionally extends or replaces the verb alias table.
	// Nil means statement.DefaultAliases.
	Aliases statement.AliasTable

	// MaxNeeds optionally declares maximum needs up front for the
	// safety strategy. When nil, maximum needs are tracked from live
	// requests at request time.
	MaxNeeds [][]int
}

// Driver iterates the statement queue: each tick runs one statement
// through the interpreter, the ledger, and the active detector, then
// emits a snapshot to every observer.
//
// The driver is strictly single-threaded: one statement is fully
// processed before the next is read, and nothing here blocks. Reaching
// FULLY_DEADLOCKED halts all further processing.
type Driver struct {
	interp   *statement.Interpreter
	ledger   *Ledger
	detector Detector
	clock    *Clock

	statements []string
	next       int

	state      State
	verdict    Verdict
	deadlocked map[int]bool

	runToken  string
	observers []func(Snapshot)
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithRunTokenGenerator overrides the run token source.
// Defaults to UUIDv7Generator; tests pass a FixedGenerator.
func WithRunTokenGenerator(gen RunTokenGenerator) DriverOption {
	return func(d *Driver) {
		d.runToken = gen.Generate()
	}
}

// WithObserver registers a snapshot consumer, invoked once per processed
// statement in registration order. Observers receive deep copies and
// must not feed anything back into the engine.
func WithObserver(fn func(Snapshot)) DriverOption {
	return func(d *Driver) {
		d.observers = append(d.observers, fn)
	}
}

// NewDriver validates cfg and builds a Driver with a zeroed ledger.
func NewDriver(cfg Config, opts ...DriverOption) (*Driver, error) {
	ledger, err := NewLedger(cfg.NumProcesses, cfg.NumResources, cfg.Capacity, cfg.MaxNeeds)
	if err != nil {
		return nil, err
	}

	var detector Detector
	switch cfg.Strategy {
	case StrategyGraph, "":
		detector = NewGraphDetector()
	case StrategySafety:
		detector = NewSafetyDetector()
	default:
		return nil, fmt.Errorf("driver: unknown strategy %q", cfg.Strategy)
	}

	stmts := make([]string, len(cfg.Statements))
	copy(stmts, cfg.Statements)

	d := &Driver{
		interp:     statement.NewInterpreter(cfg.NumProcesses, cfg.NumResources, cfg.Aliases),
		ledger:     ledger,
		detector:   detector,
		clock:      NewClock(),
		statements: stmts,
		state:      StateRunning,
		verdict:    Verdict{Strategy: detector.Strategy()},
		deadlocked: make(map[int]bool),
	}

	for _, opt := range opts {
		opt(d)
	}
	if d.runToken == "" {
		d.runToken = UUIDv7Generator{}.Generate()
	}

	return d, nil
}

// RunToken returns the token stamped on every snapshot of this run.
func (d *Driver) RunToken() string { return d.runToken }

// State returns the current driver state.
func (d *Driver) State() State { return d.state }

// Ledger exposes the ledger for read-only inspection in tests.
func (d *Driver) Ledger() *Ledger { return d.ledger }

// Step processes the next statement.
//
// Returns ok=false without processing anything when the driver is in a
// terminal state. A non-nil error is fatal to the run (out-of-range
// index); every other failure is recovered locally: logged, recorded as
// an event, counted as a processed step.
func (d *Driver) Step() (Snapshot, bool, error) {
	if d.state.Terminal() {
		return d.snapshot("", nil), false, nil
	}
	if d.next >= len(d.statements) {
		d.state = StateFinished
		slog.Info("statement queue exhausted", "run", d.runToken, "state", d.state)
		return d.snapshot("", nil), false, nil
	}

	raw := d.statements[d.next]
	d.next++
	step := d.clock.Next()

	slog.Debug("processing statement", "run", d.runToken, "step", step, "statement", raw)

	events, err := d.applyStatement(raw)
	if err != nil {
		// Out-of-range indices mean the scenario and statement script
		// disagree about dimensions. Nothing sensible can follow.
		slog.Error("fatal statement error", "run", d.runToken, "step", step, "error", err)
		return d.snapshot(raw, events), false, err
	}

	// The deadlocked-set is recomputed from scratch after every
	// statement, never accumulated across unrelated detections.
	d.verdict = d.detector.Detect(d.ledger)
	d.deadlocked = make(map[int]bool, len(d.verdict.Deadlocked))
	for _, p := range d.verdict.Deadlocked {
		d.deadlocked[p] = true
	}

	switch {
	case d.verdict.Fully(d.ledger.numProcesses):
		d.state = StateFullyDeadlocked
		slog.Info("system fully deadlocked", "run", d.runToken, "step", step)
	case d.verdict.Deadlock():
		d.state = StatePartiallyDeadlocked
		slog.Info("deadlock detected", "run", d.runToken, "step", step,
			"deadlocked", d.verdict.Deadlocked, "strategy", d.verdict.Strategy)
	case d.next >= len(d.statements):
		d.state = StateFinished
	default:
		d.state = StateRunning
	}

	snap := d.snapshot(raw, events)
	for _, observe := range d.observers {
		observe(snap)
	}

	return snap, true, nil
}

// applyStatement interprets raw and applies it to the ledger, returning
// the emitted events. Only fatal errors are returned; rule violations
// are logged and folded into the event list.
func (d *Driver) applyStatement(raw string) ([]Event, error) {
	stmt, err := d.interp.Parse(raw)
	if err != nil {
		var malformed *statement.MalformedStatementError
		if errors.As(err, &malformed) {
			slog.Warn("malformed statement", "run", d.runToken, "statement", raw, "error", err)
			return []Event{{
				Kind:     EventRuleError,
				Process:  -1,
				Resource: -1,
				Code:     ErrCodeMalformedStatement,
			}}, nil
		}
		return nil, err
	}

	// Statements by deadlocked processes are skipped entirely but still
	// advance the step counter.
	if d.deadlocked[stmt.Process] {
		slog.Info("process is deadlocked, ignoring statement",
			"run", d.runToken, "process", stmt.Process, "statement", raw)
		return []Event{{
			Kind:     EventStatementIgnored,
			Process:  stmt.Process,
			Resource: stmt.Resource,
		}}, nil
	}

	var events []Event
	var ruleErr *RuleError

	switch stmt.Verb {
	case statement.VerbRequest:
		events = d.ledger.OnRequest(stmt.Process, stmt.Resource)
	case statement.VerbGrant:
		events, ruleErr = d.ledger.OnGrant(stmt.Process, stmt.Resource)
	case statement.VerbRelease:
		events, ruleErr = d.ledger.OnRelease(stmt.Process, stmt.Resource, func(p int) bool {
			return d.deadlocked[p]
		})
	default:
		return nil, fmt.Errorf("driver: unhandled verb %q", stmt.Verb)
	}

	if ruleErr != nil {
		slog.Warn("statement rejected", "run", d.runToken, "statement", raw,
			"code", ruleErr.Code, "error", ruleErr)
		events = append(events, Event{
			Kind:     EventRuleError,
			Process:  ruleErr.Process,
			Resource: ruleErr.Resource,
			Code:     ruleErr.Code,
		})
	}

	return events, nil
}

// Run processes statements until a terminal state, a fatal error, or
// context cancellation. Returns the final snapshot.
func (d *Driver) Run(ctx context.Context) (Snapshot, error) {
	last := d.snapshot("", nil)
	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		default:
		}

		snap, ok, err := d.Step()
		if err != nil {
			return snap, err
		}
		if !ok {
			// Terminal snapshot carries the final state but no statement.
			last.State = snap.State
			return last, nil
		}
		last = snap
	}
}
