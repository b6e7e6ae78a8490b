// Package render turns engine snapshots into human-readable text.
//
// Rendering is a pure consumer: it receives immutable snapshots and
// produces strings, feeding nothing back into the engine. The CLI prints
// these reports once per processed statement.
package render

import (
	"fmt"
	"strings"

	"github.com/roach88/ragsim/internal/engine"
)

// Table formats a matrix with prefixed row and column labels:
//
//	   | R0 R1 R2
//	---+---------
//	P0 |  0  1  0
//
// Column widths adapt to the widest label or value, so multi-digit
// dimensions and counts stay aligned.
func Table(m [][]int, rowPrefix, colPrefix string) string {
	if len(m) == 0 {
		return ""
	}
	cols := len(m[0])

	rowWidth := 0
	for i := range m {
		if w := len(fmt.Sprintf("%s%d", rowPrefix, i)); w > rowWidth {
			rowWidth = w
		}
	}

	colWidths := make([]int, cols)
	for j := 0; j < cols; j++ {
		colWidths[j] = len(fmt.Sprintf("%s%d", colPrefix, j))
		for i := range m {
			if w := len(fmt.Sprintf("%d", m[i][j])); w > colWidths[j] {
				colWidths[j] = w
			}
		}
	}

	var b strings.Builder

	b.WriteString(strings.Repeat(" ", rowWidth))
	b.WriteString(" |")
	for j := 0; j < cols; j++ {
		fmt.Fprintf(&b, " %*s", colWidths[j], fmt.Sprintf("%s%d", colPrefix, j))
	}
	b.WriteByte('\n')

	b.WriteString(strings.Repeat("-", rowWidth+1))
	b.WriteByte('+')
	total := 0
	for _, w := range colWidths {
		total += w + 1
	}
	b.WriteString(strings.Repeat("-", total))
	b.WriteByte('\n')

	for i, row := range m {
		fmt.Fprintf(&b, "%-*s |", rowWidth, fmt.Sprintf("%s%d", rowPrefix, i))
		for j, v := range row {
			fmt.Fprintf(&b, " %*d", colWidths[j], v)
		}
		b.WriteByte('\n')
	}

	return b.String()
}

// Vector formats a labeled vector on two lines:
//
//	R0 R1 R2
//	 1  0  2
func Vector(v []int, prefix string) string {
	widths := make([]int, len(v))
	for j, x := range v {
		widths[j] = len(fmt.Sprintf("%s%d", prefix, j))
		if w := len(fmt.Sprintf("%d", x)); w > widths[j] {
			widths[j] = w
		}
	}

	var b strings.Builder
	for j := range v {
		if j > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%*s", widths[j], fmt.Sprintf("%s%d", prefix, j))
	}
	b.WriteByte('\n')
	for j, x := range v {
		if j > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%*d", widths[j], x)
	}
	b.WriteByte('\n')
	return b.String()
}

// StepReport renders the full per-step state report: statement, driver
// state, both matrices, the available vector, and the deadlock verdict.
func StepReport(snap engine.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Step %d: %s\n", snap.Step, snap.Statement)
	fmt.Fprintf(&b, "State: %s\n", snap.State)
	b.WriteByte('\n')

	b.WriteString("Allocation:\n")
	b.WriteString(Table(snap.Alloc, "P", "R"))
	b.WriteByte('\n')

	b.WriteString("Request:\n")
	b.WriteString(Table(snap.Req, "P", "R"))
	b.WriteByte('\n')

	b.WriteString("Available:\n")
	b.WriteString(Vector(snap.Avail, "R"))
	b.WriteByte('\n')

	fmt.Fprintf(&b, "Deadlocked: %s\n", processList(snap.Deadlocked))
	if len(snap.SafeSequence) > 0 {
		fmt.Fprintf(&b, "Safe sequence: %s\n", sequence(snap.SafeSequence))
	}

	return b.String()
}

// Summary renders the one-line outcome of a finished run.
func Summary(final engine.Snapshot) string {
	switch final.State {
	case engine.StateFullyDeadlocked:
		return fmt.Sprintf("System is fully deadlocked after step %d (%s)", final.Step, processList(final.Deadlocked))
	case engine.StatePartiallyDeadlocked:
		return fmt.Sprintf("Partially deadlocked after step %d: %s", final.Step, processList(final.Deadlocked))
	case engine.StateFinished:
		if len(final.Deadlocked) > 0 {
			return fmt.Sprintf("Statements exhausted after step %d, deadlocked: %s", final.Step, processList(final.Deadlocked))
		}
		return fmt.Sprintf("Statements exhausted after step %d, no deadlock", final.Step)
	default:
		return fmt.Sprintf("Run stopped in state %s after step %d", final.State, final.Step)
	}
}

func processList(procs []int) string {
	if len(procs) == 0 {
		return "none"
	}
	parts := make([]string, len(procs))
	for i, p := range procs {
		parts[i] = fmt.Sprintf("P%d", p)
	}
	return strings.Join(parts, ", ")
}

func sequence(procs []int) string {
	parts := make([]string, len(procs))
	for i, p := range procs {
		parts[i] = fmt.Sprintf("P%d", p)
	}
	return strings.Join(parts, " -> ")
}
