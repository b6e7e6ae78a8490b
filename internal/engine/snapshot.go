package engine

// Snapshot is the immutable engine state emitted once per processed
// statement. It is the only thing external consumers (renderer, trace
// store) ever see: all slices are deep copies, so a consumer can hold a
// snapshot indefinitely without observing later mutations.
type Snapshot struct {
	// RunToken identifies the run this snapshot belongs to.
	RunToken string `json:"run_token"`

	// Step is the logical step number, starting at 1. It advances once
	// per processed statement, including errored and ignored ones.
	Step int64 `json:"step"`

	// Statement is the raw statement text processed at this step.
	Statement string `json:"statement"`

	// State is the driver state after this step.
	State State `json:"state"`

	// Strategy identifies the detector that produced Deadlocked.
	Strategy Strategy `json:"strategy"`

	// Alloc, Req, Avail and Capacity mirror the ledger matrices.
	Alloc    [][]int `json:"alloc"`
	Req      [][]int `json:"req"`
	Avail    []int   `json:"avail"`
	Capacity []int   `json:"capacity"`

	// RequestEdges and ClaimEdges are the current graph edge sets in
	// insertion order.
	RequestEdges []Edge `json:"request_edges"`
	ClaimEdges   []Edge `json:"claim_edges"`

	// Deadlocked lists deadlocked process indices in ascending order.
	Deadlocked []int `json:"deadlocked"`

	// SafeSequence is the safety strategy's finish order when the system
	// is fully safe; empty otherwise and under the graph strategy.
	SafeSequence []int `json:"safe_sequence,omitempty"`

	// Events are the domain events emitted while processing this step.
	Events []Event `json:"events"`
}

// snapshot builds a deep-copied Snapshot of the current driver state.
func (d *Driver) snapshot(stmt string, events []Event) Snapshot {
	return Snapshot{
		RunToken:     d.runToken,
		Step:         d.clock.Current(),
		Statement:    stmt,
		State:        d.state,
		Strategy:     d.detector.Strategy(),
		Alloc:        d.ledger.Alloc(),
		Req:          d.ledger.Req(),
		Avail:        d.ledger.Avail(),
		Capacity:     d.ledger.Capacity(),
		RequestEdges: d.ledger.RequestEdges(),
		ClaimEdges:   d.ledger.ClaimEdges(),
		Deadlocked:   cloneVector(d.verdict.Deadlocked),
		SafeSequence: cloneVector(d.verdict.SafeSequence),
		Events:       cloneEvents(events),
	}
}

func cloneEvents(events []Event) []Event {
	out := make([]Event, len(events))
	for i, ev := range events {
		out[i] = ev
		if ev.Edge != nil {
			edge := *ev.Edge
			out[i].Edge = &edge
		}
	}
	return out
}
