package trace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ragsim/internal/engine"
)

func sampleSnapshot() engine.Snapshot {
	edge := engine.Edge{From: 1, To: 2}
	return engine.Snapshot{
		RunToken:     "0191e000-0000-7000-8000-000000000001",
		Step:         3,
		Statement:    "P0 requests R1",
		State:        engine.StateRunning,
		Strategy:     engine.StrategyGraph,
		Alloc:        [][]int{{1, 0}, {0, 1}},
		Req:          [][]int{{0, 1}, {0, 0}},
		Avail:        []int{0, 0},
		Capacity:     []int{1, 1},
		RequestEdges: []engine.Edge{{From: 0, To: 3}},
		ClaimEdges:   []engine.Edge{{From: 2, To: 0}, {From: 3, To: 1}},
		Deadlocked:   []int{},
		SafeSequence: []int{},
		Events: []engine.Event{
			{Kind: engine.EventRequestQueued, Process: 0, Resource: 1},
			{Kind: engine.EventEdgeAdded, Process: 0, Resource: 1, Edge: &edge},
		},
	}
}

func TestSnapshotBytes_IsCanonicalJSON(t *testing.T) {
	b, err := SnapshotBytes(sampleSnapshot())
	require.NoError(t, err)

	s := string(b)
	assert.True(t, strings.HasPrefix(s, "{"))
	assert.Contains(t, s, `"step":3`)
	assert.Contains(t, s, `"statement":"P0 requests R1"`)
	assert.Contains(t, s, `"state":"RUNNING"`)
	assert.NotContains(t, s, "run_token", "the run token never enters the digest input")
	assert.NotContains(t, s, ": ", "no insignificant whitespace between keys and values")
}

func TestSnapshotDigest_Deterministic(t *testing.T) {
	a, err := SnapshotDigest(sampleSnapshot())
	require.NoError(t, err)
	b, err := SnapshotDigest(sampleSnapshot())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64, "hex-encoded SHA-256")
}

func TestSnapshotDigest_IgnoresRunToken(t *testing.T) {
	a := sampleSnapshot()
	b := sampleSnapshot()
	b.RunToken = "0191e000-0000-7000-8000-00000000ffff"

	da, err := SnapshotDigest(a)
	require.NoError(t, err)
	db, err := SnapshotDigest(b)
	require.NoError(t, err)

	assert.Equal(t, da, db, "a replay under a fresh token matches the original digests")
}

func TestSnapshotDigest_SensitiveToState(t *testing.T) {
	base, err := SnapshotDigest(sampleSnapshot())
	require.NoError(t, err)

	mutations := map[string]func(*engine.Snapshot){
		"step":       func(s *engine.Snapshot) { s.Step = 4 },
		"statement":  func(s *engine.Snapshot) { s.Statement = "P1 requests R0" },
		"state":      func(s *engine.Snapshot) { s.State = engine.StatePartiallyDeadlocked },
		"alloc":      func(s *engine.Snapshot) { s.Alloc[0][0] = 2 },
		"avail":      func(s *engine.Snapshot) { s.Avail[1] = 1 },
		"edges":      func(s *engine.Snapshot) { s.ClaimEdges = s.ClaimEdges[:1] },
		"deadlocked": func(s *engine.Snapshot) { s.Deadlocked = []int{0} },
		"events":     func(s *engine.Snapshot) { s.Events = s.Events[:1] },
	}

	for name, mutate := range mutations {
		snap := sampleSnapshot()
		mutate(&snap)
		d, err := SnapshotDigest(snap)
		require.NoError(t, err)
		assert.NotEqual(t, base, d, "mutation %q must change the digest", name)
	}
}

func TestSnapshotDigest_DomainSeparated(t *testing.T) {
	b, err := SnapshotBytes(sampleSnapshot())
	require.NoError(t, err)

	d, err := SnapshotDigest(sampleSnapshot())
	require.NoError(t, err)

	assert.NotEqual(t, hashWithDomain(DomainRun, b), d,
		"snapshot and run domains never collide on the same bytes")
}

func TestChainDigest(t *testing.T) {
	d1 := ChainDigest("", "aaaa")
	d2 := ChainDigest(d1, "bbbb")
	d2again := ChainDigest(d1, "bbbb")

	assert.Equal(t, d2, d2again)
	assert.NotEqual(t, d1, d2)
	assert.Len(t, d2, 64)

	// Order matters: swapping steps yields a different run digest.
	alt := ChainDigest(ChainDigest("", "bbbb"), "aaaa")
	assert.NotEqual(t, d2, alt)
}

func TestHashWithDomain_SeparatorUnambiguous(t *testing.T) {
	// Moving a byte across the domain/data boundary changes the hash.
	a := hashWithDomain("ab", []byte("c"))
	b := hashWithDomain("a", []byte("bc"))
	assert.NotEqual(t, a, b)
}
