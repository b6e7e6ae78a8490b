package engine

import "sort"

// Strategy names the deadlock-detection algorithm that produced a verdict.
type Strategy string

const (
	// StrategyGraph enumerates simple cycles over the request/claim graph.
	StrategyGraph Strategy = "graph"

	// StrategySafety runs the Banker's safe-sequence search.
	StrategySafety Strategy = "safety"
)

// Verdict is the outcome of one detector pass over the ledger.
//
// The two strategies are not required to agree: the graph strategy
// detects actual cyclic waits among committed requests, while the safety
// strategy is a conservative forecast from declared maximum needs. Every
// verdict therefore carries the strategy that produced it.
type Verdict struct {
	// Strategy identifies the algorithm behind this verdict.
	Strategy Strategy `json:"strategy"`

	// Deadlocked lists the process indices judged unable to progress,
	// in ascending order. Recomputed from scratch on every statement.
	Deadlocked []int `json:"deadlocked"`

	// SafeSequence is the order in which every process can finish.
	// Populated by the safety strategy only, and only when the system is
	// fully safe. Informational.
	SafeSequence []int `json:"safe_sequence,omitempty"`
}

// Deadlock reports whether any process is deadlocked.
func (v Verdict) Deadlock() bool {
	return len(v.Deadlocked) > 0
}

// Fully reports whether every configured process is deadlocked.
func (v Verdict) Fully(numProcesses int) bool {
	return len(v.Deadlocked) == numProcesses
}

// Detector judges the ledger's current state for deadlock.
type Detector interface {
	// Detect recomputes the deadlocked-set from the ledger. It never
	// mutates the ledger and never accumulates results across calls.
	Detect(l *Ledger) Verdict

	// Strategy identifies the detection algorithm.
	Strategy() Strategy
}

// GraphDetector detects deadlock by enumerating simple cycles in the
// resource-allocation graph.
//
// The graph has numProcesses + numResources nodes: process nodes first,
// then resource nodes offset by numProcesses. Its edges are exactly the
// ledger's current request and claim edge sets. Any process node on any
// simple cycle is deadlocked.
//
// The graph is rebuilt from the edge sets on every call; there is no
// incremental cycle maintenance. Graphs are small, so correctness wins
// over performance.
type GraphDetector struct{}

// NewGraphDetector creates a graph-cycle detector.
func NewGraphDetector() *GraphDetector {
	return &GraphDetector{}
}

// Strategy returns StrategyGraph.
func (d *GraphDetector) Strategy() Strategy {
	return StrategyGraph
}

// Detect enumerates all simple cycles and collects the process nodes on
// any of them. The deadlocked-set has set semantics and is returned in
// ascending order.
func (d *GraphDetector) Detect(l *Ledger) Verdict {
	n := l.numProcesses + l.numResources
	adj := make([][]int, n)
	for _, e := range l.requestEdges {
		adj[e.From] = append(adj[e.From], e.To)
	}
	for _, e := range l.claimEdges {
		adj[e.From] = append(adj[e.From], e.To)
	}
	// Ascending neighbor order keeps the visitation order, and with it
	// the cycle enumeration order, fully deterministic.
	for _, neighbors := range adj {
		sort.Ints(neighbors)
	}

	inCycle := make(map[int]bool)
	for _, cycle := range simpleCycles(adj) {
		for _, node := range cycle {
			inCycle[node] = true
		}
	}

	var deadlocked []int
	for p := 0; p < l.numProcesses; p++ {
		if inCycle[p] {
			deadlocked = append(deadlocked, p)
		}
	}

	return Verdict{Strategy: StrategyGraph, Deadlocked: deadlocked}
}

// simpleCycles enumerates every simple cycle in the digraph given as an
// adjacency list.
//
// For each start node s in ascending order, a DFS explores only nodes
// >= s and records a cycle whenever it steps back to s. Restricting the
// walk to nodes >= s makes s the minimal node of every cycle it reports,
// so each cycle is found exactly once. This is the enumeration core of
// Johnson's algorithm without the blocking optimization, which the small
// graph sizes here do not need.
func simpleCycles(adj [][]int) [][]int {
	var cycles [][]int
	n := len(adj)
	onPath := make([]bool, n)
	path := make([]int, 0, n)

	var visit func(start, node int)
	visit = func(start, node int) {
		onPath[node] = true
		path = append(path, node)

		for _, next := range adj[node] {
			if next == start {
				cycle := make([]int, len(path))
				copy(cycle, path)
				cycles = append(cycles, cycle)
				continue
			}
			if next < start || onPath[next] {
				continue
			}
			visit(start, next)
		}

		path = path[:len(path)-1]
		onPath[node] = false
	}

	for s := 0; s < n; s++ {
		visit(s, s)
	}

	return cycles
}
