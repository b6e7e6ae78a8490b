package engine

import "fmt"

// Edge is a directed edge in the resource-allocation graph. Processes and
// resources share one node index space: process p is node p, resource r is
// node numProcesses + r.
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// requestEdge builds the process→resource edge for a pending ask.
func requestEdge(process, resource, numProcesses int) Edge {
	return Edge{From: process, To: numProcesses + resource}
}

// claimEdge builds the resource→process edge for current possession.
func claimEdge(process, resource, numProcesses int) Edge {
	return Edge{From: numProcesses + resource, To: process}
}

// EventKind categorizes domain events emitted by the ledger and driver.
type EventKind string

const (
	// EventRequestQueued records a new or repeated ask.
	EventRequestQueued EventKind = "request_queued"

	// EventGranted records a successful explicit grant.
	EventGranted EventKind = "granted"

	// EventPendingGranted records a grant made by the pending scheduler
	// after a release freed an instance.
	EventPendingGranted EventKind = "pending_granted"

	// EventReleased records a successful release.
	EventReleased EventKind = "released"

	// EventEdgeAdded records a request or claim edge appearing.
	EventEdgeAdded EventKind = "edge_added"

	// EventEdgeRemoved records a request or claim edge disappearing.
	EventEdgeRemoved EventKind = "edge_removed"

	// EventStatementIgnored records a statement skipped because the
	// acting process is deadlocked.
	EventStatementIgnored EventKind = "statement_ignored"

	// EventRuleError records a non-fatal rule violation.
	EventRuleError EventKind = "rule_error"
)

// Event describes one observable effect of processing a statement. Events
// exist for the renderer and the trace: the engine never reads them back.
type Event struct {
	Kind     EventKind     `json:"kind"`
	Process  int           `json:"process"`
	Resource int           `json:"resource"`
	Edge     *Edge         `json:"edge,omitempty"`
	Code     RuleErrorCode `json:"code,omitempty"`
}

func (e Event) String() string {
	if e.Kind == EventRuleError {
		return fmt.Sprintf("%s P%d R%d %s", e.Kind, e.Process, e.Resource, e.Code)
	}
	return fmt.Sprintf("%s P%d R%d", e.Kind, e.Process, e.Resource)
}
