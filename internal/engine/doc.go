// Package engine implements the resource-state engine and deadlock
// detection logic of the simulator.
//
// The engine is built from four cooperating parts:
//
//   - Ledger: owns the Allocation and Request matrices, the Available
//     vector, and the request/claim edge sets. It applies the effect of one
//     interpreted statement at a time and emits domain events describing
//     every mutation.
//   - Pending scheduler: on any release, scans outstanding requests in
//     ascending process order and grants at most one instance.
//   - Detectors: two interchangeable strategies judge the current state.
//     The graph strategy enumerates simple cycles over the bipartite
//     request/claim graph; the safety strategy runs the Banker's
//     safe-sequence search over declared maximum needs.
//   - Driver: pops statements from the scenario queue, routes them through
//     the interpreter, the ledger, and the active detector, and emits one
//     immutable Snapshot per processed statement.
//
// Everything is single-threaded and deterministic: one statement is fully
// processed before the next is read, and replaying the same scenario
// produces a bit-identical snapshot trajectory. There is no wall-clock
// time; the step clock advances exactly once per processed statement,
// including statements that fail or are ignored.
package engine
