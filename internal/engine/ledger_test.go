package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T, capacity []int) *Ledger {
	t.Helper()
	l, err := NewLedger(3, len(capacity), capacity, nil)
	require.NoError(t, err)
	return l
}

func TestNewLedger_Validation(t *testing.T) {
	_, err := NewLedger(0, 1, []int{1}, nil)
	assert.Error(t, err, "zero processes")

	_, err = NewLedger(1, 0, nil, nil)
	assert.Error(t, err, "zero resources")

	_, err = NewLedger(1, 2, []int{1}, nil)
	assert.Error(t, err, "capacity length mismatch")

	_, err = NewLedger(1, 1, []int{-1}, nil)
	assert.Error(t, err, "negative capacity")

	_, err = NewLedger(2, 1, []int{1}, [][]int{{1}})
	assert.Error(t, err, "maxNeeds row count mismatch")

	_, err = NewLedger(2, 1, []int{1}, [][]int{{1}, {1, 2}})
	assert.Error(t, err, "maxNeeds column count mismatch")
}

func TestNewLedger_InitialState(t *testing.T) {
	l := newTestLedger(t, []int{1, 2, 3})

	assert.Equal(t, [][]int{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}}, l.Alloc())
	assert.Equal(t, [][]int{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}}, l.Req())
	assert.Equal(t, []int{1, 2, 3}, l.Avail())
	assert.Empty(t, l.RequestEdges())
	assert.Empty(t, l.ClaimEdges())
	require.NoError(t, l.CheckConservation())
}

func TestLedger_OnRequest(t *testing.T) {
	l := newTestLedger(t, []int{1, 1})

	events := l.OnRequest(0, 1)

	assert.Equal(t, 1, l.Req()[0][1])
	assert.Equal(t, []Edge{{From: 0, To: 3 + 1}}, l.RequestEdges(), "resource node offset by numProcesses")
	require.Len(t, events, 2)
	assert.Equal(t, EventRequestQueued, events[0].Kind)
	assert.Equal(t, EventEdgeAdded, events[1].Kind)
}

func TestLedger_OnRequest_EdgeIdempotent(t *testing.T) {
	l := newTestLedger(t, []int{2, 2})

	l.OnRequest(0, 0)
	events := l.OnRequest(0, 0)

	assert.Equal(t, 2, l.Req()[0][0], "request count accumulates")
	assert.Len(t, l.RequestEdges(), 1, "request edge is a presence marker")
	require.Len(t, events, 1, "no duplicate edge event")
	assert.Equal(t, EventRequestQueued, events[0].Kind)
}

func TestLedger_OnRequest_TracksMaxNeeds(t *testing.T) {
	l := newTestLedger(t, []int{2, 2})

	l.OnRequest(0, 0)
	assert.Equal(t, 1, l.MaxNeeds()[0][0])

	l.OnRequest(0, 0)
	assert.Equal(t, 2, l.MaxNeeds()[0][0], "max follows alloc+req at request time")

	// A grant does not raise the recorded need.
	_, ruleErr := l.OnGrant(0, 0)
	require.Nil(t, ruleErr)
	assert.Equal(t, 2, l.MaxNeeds()[0][0])
}

func TestLedger_DeclaredMaxNeedsNeverRecomputed(t *testing.T) {
	declared := [][]int{{2, 0}, {0, 1}, {0, 0}}
	l, err := NewLedger(3, 2, []int{2, 2}, declared)
	require.NoError(t, err)

	l.OnRequest(0, 1)
	l.OnRequest(0, 1)
	l.OnRequest(0, 1)

	assert.Equal(t, declared, l.MaxNeeds(), "declared needs are fixed at configuration time")
}

func TestLedger_OnGrant_NoSuchRequest(t *testing.T) {
	l := newTestLedger(t, []int{1, 1})

	events, ruleErr := l.OnGrant(0, 0)

	require.NotNil(t, ruleErr)
	assert.Equal(t, ErrCodeNoSuchRequest, ruleErr.Code)
	assert.False(t, ruleErr.Fatal())
	assert.Empty(t, events)
	assert.Equal(t, 0, l.Alloc()[0][0], "no mutation on failure")
	require.NoError(t, l.CheckConservation())
}

func TestLedger_OnGrant_ResourceUnavailable(t *testing.T) {
	l := newTestLedger(t, []int{1, 1})

	l.OnRequest(0, 0)
	_, ruleErr := l.OnGrant(0, 0)
	require.Nil(t, ruleErr)

	// R0 is exhausted; P1's grant must fail and the request stays.
	l.OnRequest(1, 0)
	events, ruleErr := l.OnGrant(1, 0)

	require.NotNil(t, ruleErr)
	assert.Equal(t, ErrCodeResourceUnavailable, ruleErr.Code)
	assert.Empty(t, events)
	assert.Equal(t, 1, l.Req()[1][0], "request remains pending")
	require.NoError(t, l.CheckConservation())
}

func TestLedger_OnGrant_Success(t *testing.T) {
	l := newTestLedger(t, []int{1, 1})

	l.OnRequest(0, 0)
	events, ruleErr := l.OnGrant(0, 0)
	require.Nil(t, ruleErr)

	assert.Equal(t, 1, l.Alloc()[0][0])
	assert.Equal(t, 0, l.Req()[0][0])
	assert.Equal(t, 0, l.Avail()[0])
	assert.Equal(t, []Edge{{From: 3, To: 0}}, l.ClaimEdges())
	assert.Empty(t, l.RequestEdges(), "request edge removed once count reaches 0")
	require.NoError(t, l.CheckConservation())

	kinds := eventKinds(events)
	assert.Equal(t, []EventKind{EventGranted, EventEdgeAdded, EventEdgeRemoved}, kinds)
}

func TestLedger_OnGrant_PartialRequestKeepsEdge(t *testing.T) {
	l := newTestLedger(t, []int{2, 2})

	l.OnRequest(0, 0)
	l.OnRequest(0, 0)
	_, ruleErr := l.OnGrant(0, 0)
	require.Nil(t, ruleErr)

	assert.Equal(t, 1, l.Req()[0][0])
	assert.Len(t, l.RequestEdges(), 1, "edge stays while requests are outstanding")
	assert.Len(t, l.ClaimEdges(), 1)
}

func TestLedger_OnRelease_NotHeld(t *testing.T) {
	l := newTestLedger(t, []int{1, 1})

	events, ruleErr := l.OnRelease(0, 0, nil)

	require.NotNil(t, ruleErr)
	assert.Equal(t, ErrCodeNotHeld, ruleErr.Code)
	assert.Empty(t, events)
	require.NoError(t, l.CheckConservation())
}

func TestLedger_OnRelease_Success(t *testing.T) {
	l := newTestLedger(t, []int{1, 1})

	l.OnRequest(0, 0)
	_, ruleErr := l.OnGrant(0, 0)
	require.Nil(t, ruleErr)

	events, ruleErr := l.OnRelease(0, 0, nil)
	require.Nil(t, ruleErr)

	assert.Equal(t, 0, l.Alloc()[0][0])
	assert.Equal(t, 1, l.Avail()[0])
	assert.Empty(t, l.ClaimEdges())
	require.NoError(t, l.CheckConservation())

	kinds := eventKinds(events)
	assert.Equal(t, []EventKind{EventReleased, EventEdgeRemoved}, kinds)
}

func TestLedger_OnRelease_ClaimEdgeSurvivesPartialRelease(t *testing.T) {
	l := newTestLedger(t, []int{2, 2})

	l.OnRequest(0, 0)
	l.OnRequest(0, 0)
	_, ruleErr := l.OnGrant(0, 0)
	require.Nil(t, ruleErr)
	_, ruleErr = l.OnGrant(0, 0)
	require.Nil(t, ruleErr)

	_, ruleErr = l.OnRelease(0, 0, nil)
	require.Nil(t, ruleErr)

	assert.Equal(t, 1, l.Alloc()[0][0])
	assert.Len(t, l.ClaimEdges(), 1, "claim edge marks possession, not instance count")

	_, ruleErr = l.OnRelease(0, 0, nil)
	require.Nil(t, ruleErr)
	assert.Empty(t, l.ClaimEdges())
}

func TestLedger_AccessorsReturnCopies(t *testing.T) {
	l := newTestLedger(t, []int{1, 1})
	l.OnRequest(0, 0)

	alloc := l.Alloc()
	alloc[0][0] = 99
	avail := l.Avail()
	avail[0] = 99
	edges := l.RequestEdges()
	edges[0] = Edge{From: 42, To: 42}

	assert.Equal(t, 0, l.Alloc()[0][0])
	assert.Equal(t, 1, l.Avail()[0])
	assert.Equal(t, Edge{From: 0, To: 3}, l.RequestEdges()[0])
}

func eventKinds(events []Event) []EventKind {
	kinds := make([]EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	return kinds
}
