package engine

import "fmt"

// Ledger owns the resource-allocation state: the Allocation and Request
// matrices, the Available vector, the running Max-needs matrix, and the
// request/claim edge sets used by the graph detector and the renderer.
//
// The ledger is mutated only through OnRequest, OnGrant and OnRelease,
// each applied exactly once per interpreted statement by the driver.
// Every mutation is reported as a domain event so that consumers never
// need to diff matrices.
//
// INVARIANTS (hold after every operation):
//   - Alloc, Req and Avail entries are never negative.
//   - Avail[r] + sum_p Alloc[p][r] == capacity[r] for every resource r.
//   - A request edge (p,r) exists iff Req[p][r] > 0.
//   - A claim edge (r,p) exists iff Alloc[p][r] > 0. The edge is a
//     presence marker, not a per-instance count.
type Ledger struct {
	numProcesses int
	numResources int
	capacity     []int

	alloc [][]int
	req   [][]int
	avail []int

	// maxNeeds feeds the safety detector. When declared up front it is
	// never recomputed; otherwise it tracks max(Max, Alloc+Req) observed
	// at request time.
	maxNeeds    [][]int
	declaredMax bool

	requestEdges []Edge
	claimEdges   []Edge
}

// NewLedger creates a zeroed ledger with Avail = capacity.
//
// maxNeeds is optional: pass nil to track maximum needs from live
// requests, or a numProcesses x numResources matrix to fix the declared
// needs at configuration time.
func NewLedger(numProcesses, numResources int, capacity []int, maxNeeds [][]int) (*Ledger, error) {
	if numProcesses <= 0 {
		return nil, fmt.Errorf("ledger: numProcesses must be positive, got %d", numProcesses)
	}
	if numResources <= 0 {
		return nil, fmt.Errorf("ledger: numResources must be positive, got %d", numResources)
	}
	if len(capacity) != numResources {
		return nil, fmt.Errorf("ledger: capacity has %d entries, want %d", len(capacity), numResources)
	}
	for r, c := range capacity {
		if c < 0 {
			return nil, fmt.Errorf("ledger: capacity[%d] is negative: %d", r, c)
		}
	}

	l := &Ledger{
		numProcesses: numProcesses,
		numResources: numResources,
		capacity:     cloneVector(capacity),
		alloc:        zeroMatrix(numProcesses, numResources),
		req:          zeroMatrix(numProcesses, numResources),
		avail:        cloneVector(capacity),
		maxNeeds:     zeroMatrix(numProcesses, numResources),
	}

	if maxNeeds != nil {
		if len(maxNeeds) != numProcesses {
			return nil, fmt.Errorf("ledger: maxNeeds has %d rows, want %d", len(maxNeeds), numProcesses)
		}
		for p, row := range maxNeeds {
			if len(row) != numResources {
				return nil, fmt.Errorf("ledger: maxNeeds[%d] has %d entries, want %d", p, len(row), numResources)
			}
		}
		l.maxNeeds = cloneMatrix(maxNeeds)
		l.declaredMax = true
	}

	return l, nil
}

// OnRequest records an ask for one instance of resource r by process p.
// There is no availability check at request time. The request edge is
// idempotent: a repeated ask raises the count but never duplicates the
// edge.
func (l *Ledger) OnRequest(p, r int) []Event {
	l.req[p][r]++

	events := []Event{{Kind: EventRequestQueued, Process: p, Resource: r}}

	e := requestEdge(p, r, l.numProcesses)
	if !containsEdge(l.requestEdges, e) {
		l.requestEdges = append(l.requestEdges, e)
		events = append(events, Event{Kind: EventEdgeAdded, Process: p, Resource: r, Edge: &e})
	}

	// Declared needs are recorded as soon as the ask is made, not when
	// it is granted.
	if !l.declaredMax {
		if need := l.alloc[p][r] + l.req[p][r]; need > l.maxNeeds[p][r] {
			l.maxNeeds[p][r] = need
		}
	}

	return events
}

// OnGrant hands one requested instance of r to p.
//
// Preconditions: Req[p][r] > 0 (else NO_SUCH_REQUEST) and Avail[r] > 0
// (else RESOURCE_UNAVAILABLE, the request stays pending). On failure no
// state changes and the returned RuleError is non-fatal.
func (l *Ledger) OnGrant(p, r int) ([]Event, *RuleError) {
	if l.req[p][r] == 0 {
		return nil, NewNoSuchRequestError(p, r)
	}
	if l.avail[r] == 0 {
		return nil, NewResourceUnavailableError(p, r)
	}
	return l.grant(p, r, EventGranted), nil
}

// OnRelease returns one instance of r held by p to the pool, then invokes
// the pending scheduler for r.
//
// Precondition: Alloc[p][r] > 0 (else NOT_HELD, no mutation). The
// deadlocked predicate excludes processes from pending grants; it may be
// nil when no process is deadlocked.
func (l *Ledger) OnRelease(p, r int, deadlocked func(int) bool) ([]Event, *RuleError) {
	if l.alloc[p][r] == 0 {
		return nil, NewNotHeldError(p, r)
	}

	l.alloc[p][r]--
	l.avail[r]++

	events := []Event{{Kind: EventReleased, Process: p, Resource: r}}

	// The claim edge marks possession, so it goes away only once the last
	// held instance is returned.
	if l.alloc[p][r] == 0 {
		e := claimEdge(p, r, l.numProcesses)
		if removeEdge(&l.claimEdges, e) {
			events = append(events, Event{Kind: EventEdgeRemoved, Process: p, Resource: r, Edge: &e})
		}
	}

	events = append(events, l.grantPending(r, deadlocked)...)
	return events, nil
}

// grant performs the shared mutation of an explicit or pending grant.
// Callers have already verified the preconditions.
func (l *Ledger) grant(p, r int, kind EventKind) []Event {
	l.req[p][r]--
	l.alloc[p][r]++
	l.avail[r]--

	events := []Event{{Kind: kind, Process: p, Resource: r}}

	ce := claimEdge(p, r, l.numProcesses)
	if !containsEdge(l.claimEdges, ce) {
		l.claimEdges = append(l.claimEdges, ce)
		events = append(events, Event{Kind: EventEdgeAdded, Process: p, Resource: r, Edge: &ce})
	}

	if l.req[p][r] == 0 {
		re := requestEdge(p, r, l.numProcesses)
		if removeEdge(&l.requestEdges, re) {
			events = append(events, Event{Kind: EventEdgeRemoved, Process: p, Resource: r, Edge: &re})
		}
	}

	return events
}

// NumProcesses returns the configured process count.
func (l *Ledger) NumProcesses() int { return l.numProcesses }

// NumResources returns the configured resource-type count.
func (l *Ledger) NumResources() int { return l.numResources }

// Capacity returns a copy of the per-resource instance counts.
func (l *Ledger) Capacity() []int { return cloneVector(l.capacity) }

// Alloc returns a copy of the Allocation matrix.
func (l *Ledger) Alloc() [][]int { return cloneMatrix(l.alloc) }

// Req returns a copy of the Request matrix.
func (l *Ledger) Req() [][]int { return cloneMatrix(l.req) }

// Avail returns a copy of the Available vector.
func (l *Ledger) Avail() []int { return cloneVector(l.avail) }

// MaxNeeds returns a copy of the Max-needs matrix.
func (l *Ledger) MaxNeeds() [][]int { return cloneMatrix(l.maxNeeds) }

// RequestEdges returns a copy of the request edge set in insertion order.
func (l *Ledger) RequestEdges() []Edge { return cloneEdges(l.requestEdges) }

// ClaimEdges returns a copy of the claim edge set in insertion order.
func (l *Ledger) ClaimEdges() []Edge { return cloneEdges(l.claimEdges) }

// CheckConservation verifies that every resource's instances are fully
// accounted for: Avail[r] + sum_p Alloc[p][r] == capacity[r]. Used by
// tests and the driver's internal consistency checks.
func (l *Ledger) CheckConservation() error {
	for r := 0; r < l.numResources; r++ {
		total := l.avail[r]
		for p := 0; p < l.numProcesses; p++ {
			total += l.alloc[p][r]
		}
		if total != l.capacity[r] {
			return fmt.Errorf("conservation violated for R%d: avail+alloc=%d, capacity=%d",
				r, total, l.capacity[r])
		}
	}
	return nil
}

func zeroMatrix(rows, cols int) [][]int {
	m := make([][]int, rows)
	for i := range m {
		m[i] = make([]int, cols)
	}
	return m
}

func cloneMatrix(m [][]int) [][]int {
	out := make([][]int, len(m))
	for i, row := range m {
		out[i] = make([]int, len(row))
		copy(out[i], row)
	}
	return out
}

func cloneVector(v []int) []int {
	out := make([]int, len(v))
	copy(out, v)
	return out
}

func cloneEdges(edges []Edge) []Edge {
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}

func containsEdge(edges []Edge, e Edge) bool {
	for _, x := range edges {
		if x == e {
			return true
		}
	}
	return false
}

// removeEdge deletes the first occurrence of e, preserving order.
// Reports whether an edge was removed.
func removeEdge(edges *[]Edge, e Edge) bool {
	for i, x := range *edges {
		if x == e {
			*edges = append((*edges)[:i], (*edges)[i+1:]...)
			return true
		}
	}
	return false
}
