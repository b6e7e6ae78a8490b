package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/ragsim/internal/engine"
)

// Domain prefixes for content-addressed digests. The version suffix
// enables future algorithm migration without ambiguity.
const (
	DomainSnapshot = "ragsim/snapshot/v1"
	DomainRun      = "ragsim/run/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SnapshotBytes returns the canonical JSON encoding of a snapshot.
// The run token is deliberately excluded: a replay under a fresh token
// must still produce byte-identical step encodings.
func SnapshotBytes(snap engine.Snapshot) ([]byte, error) {
	b, err := MarshalCanonical(snapshotMap(snap))
	if err != nil {
		return nil, fmt.Errorf("trace: marshal snapshot step %d: %w", snap.Step, err)
	}
	return b, nil
}

// SnapshotDigest computes the content-addressed digest of one snapshot.
// Identical engine states always produce identical digests.
func SnapshotDigest(snap engine.Snapshot) (string, error) {
	b, err := SnapshotBytes(snap)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainSnapshot, b), nil
}

// ChainDigest folds a step digest into the running run digest.
// The chain makes the final digest a commitment to the entire snapshot
// trajectory in order: two runs agree on the run digest iff they agree
// on every step.
func ChainDigest(prev, stepDigest string) string {
	return hashWithDomain(DomainRun, []byte(prev+"\x00"+stepDigest))
}

// snapshotMap lowers a Snapshot to the canonical-JSON input shapes.
func snapshotMap(snap engine.Snapshot) map[string]any {
	events := make([]any, len(snap.Events))
	for i, ev := range snap.Events {
		m := map[string]any{
			"kind":     string(ev.Kind),
			"process":  ev.Process,
			"resource": ev.Resource,
		}
		if ev.Edge != nil {
			m["edge"] = edgeMap(*ev.Edge)
		}
		if ev.Code != "" {
			m["code"] = string(ev.Code)
		}
		events[i] = m
	}

	return map[string]any{
		"step":          snap.Step,
		"statement":     snap.Statement,
		"state":         string(snap.State),
		"strategy":      string(snap.Strategy),
		"alloc":         matrixList(snap.Alloc),
		"req":           matrixList(snap.Req),
		"avail":         vectorList(snap.Avail),
		"capacity":      vectorList(snap.Capacity),
		"request_edges": edgeList(snap.RequestEdges),
		"claim_edges":   edgeList(snap.ClaimEdges),
		"deadlocked":    vectorList(snap.Deadlocked),
		"safe_sequence": vectorList(snap.SafeSequence),
		"events":        events,
	}
}

func edgeMap(e engine.Edge) map[string]any {
	return map[string]any{"from": e.From, "to": e.To}
}

func edgeList(edges []engine.Edge) []any {
	out := make([]any, len(edges))
	for i, e := range edges {
		out[i] = edgeMap(e)
	}
	return out
}

func vectorList(v []int) []any {
	out := make([]any, len(v))
	for i, x := range v {
		out[i] = x
	}
	return out
}

func matrixList(m [][]int) []any {
	out := make([]any, len(m))
	for i, row := range m {
		out[i] = vectorList(row)
	}
	return out
}
