package scenario

import (
	"fmt"
	"sort"
)

// The built-in corpus: the four classroom scenarios, two per ledger
// shape. The single-instance pair uses capacity 1 everywhere; the
// multi-instance pair uses two instances per resource type.
var builtins = map[string]*Scenario{
	"single-deadlock": {
		Name:        "single-deadlock",
		Description: "Three processes, single-instance resources, three-way circular wait",
		Processes:   3,
		Resources:   3,
		Capacity:    []int{1, 1, 1},
		Statements: []string{
			"P0 requests R0",
			"P0 holds R0",
			"P1 requests R1",
			"P1 holds R1",
			"P2 requests R2",
			"P2 holds R2",
			"P0 requests R1",
			"P1 requests R2",
			"P2 requests R0",
		},
	},
	"single-nodeadlock": {
		Name:        "single-nodeadlock",
		Description: "Single-instance resources, releases break every cycle before it closes",
		Processes:   3,
		Resources:   3,
		Capacity:    []int{1, 1, 1},
		Statements: []string{
			"P0 requests R0",
			"P0 holds R0",
			"P1 requests R1",
			"P1 holds R1",
			"P2 requests R2",
			"P2 holds R2",
			"P0 requests R1",
			"P1 releases R1",
			"P0 holds R1",
			"P1 requests R2",
			"P2 releases R2",
			"P1 holds R2",
			"P2 requests R0",
			"P0 releases R0",
			"P2 holds R0",
		},
	},
	"multi-deadlock": {
		Name:        "multi-deadlock",
		Description: "Two instances per resource type, deadlock closes once all instances are pinned",
		Processes:   3,
		Resources:   3,
		Capacity:    []int{2, 2, 2},
		Statements: []string{
			"P0 requests R0",
			"P0 holds R0",
			"P1 requests R0",
			"P1 holds R0",
			"P2 requests R2",
			"P2 holds R2",
			"P0 requests R1",
			"P0 holds R1",
			"P2 requests R1",
			"P2 holds R1",
			"P1 requests R2",
			"P1 holds R2",
			"P0 requests R2",
			"P2 requests R0",
			"P1 requests R1",
		},
	},
	"multi-nodeadlock": {
		Name:        "multi-nodeadlock",
		Description: "Two instances per resource type, every ask is satisfied before the next",
		Processes:   3,
		Resources:   3,
		Capacity:    []int{2, 2, 2},
		Statements: []string{
			"P0 requests R0",
			"P0 holds R0",
			"P1 requests R0",
			"P1 holds R0",
			"P0 requests R1",
			"P0 holds R1",
			"P0 releases R0",
			"P2 requests R0",
			"P2 holds R0",
			"P1 releases R0",
			"P2 requests R2",
			"P2 holds R2",
			"P1 requests R2",
			"P1 holds R2",
			"P1 requests R1",
			"P1 holds R1",
			"P0 requests R0",
			"P0 holds R0",
		},
	},
}

// Builtin returns a copy of the named built-in scenario.
func Builtin(name string) (*Scenario, error) {
	sc, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown built-in scenario %q (have %v)", name, BuiltinNames())
	}

	// Copy so callers can tweak (e.g. switch strategy) without touching
	// the shared table.
	out := *sc
	out.Capacity = append([]int(nil), sc.Capacity...)
	out.Statements = append([]string(nil), sc.Statements...)
	return &out, nil
}

// BuiltinNames lists the built-in scenario names in sorted order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
