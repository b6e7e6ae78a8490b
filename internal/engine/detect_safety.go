package engine

// SafetyDetector runs the Banker's-algorithm safety check over the
// ledger's declared maximum needs.
//
// Need[p][r] = Max[p][r] - Alloc[p][r]. The standard safe-sequence
// search then simulates completion: starting from work = Avail, it
// repeatedly looks for the first unfinished process whose entire Need
// row fits in work, marks it finished, and returns its allocation to
// work. Processes still unfinished when no candidate remains are deemed
// deadlocked.
//
// This is a conservative forecast, not a wait-cycle proof: it can flag
// processes the graph strategy would not, because it assumes every
// process may still ask for its full declared maximum.
type SafetyDetector struct{}

// NewSafetyDetector creates a Banker's-algorithm detector.
func NewSafetyDetector() *SafetyDetector {
	return &SafetyDetector{}
}

// Strategy returns StrategySafety.
func (d *SafetyDetector) Strategy() Strategy {
	return StrategySafety
}

// Detect runs the safe-sequence search. The scan always restarts from
// process 0 after a success, so the reported safe sequence is the
// lexicographically first one. SafeSequence is populated only when every
// process can finish.
func (d *SafetyDetector) Detect(l *Ledger) Verdict {
	need := make([][]int, l.numProcesses)
	for p := 0; p < l.numProcesses; p++ {
		need[p] = make([]int, l.numResources)
		for r := 0; r < l.numResources; r++ {
			n := l.maxNeeds[p][r] - l.alloc[p][r]
			// Correct Max tracking keeps Need non-negative; clamp so a
			// bad declaration cannot wedge the search.
			if n < 0 {
				n = 0
			}
			need[p][r] = n
		}
	}

	work := cloneVector(l.avail)
	finish := make([]bool, l.numProcesses)
	var sequence []int

	for {
		found := false
		for p := 0; p < l.numProcesses; p++ {
			if finish[p] || !fits(need[p], work) {
				continue
			}
			finish[p] = true
			for r := 0; r < l.numResources; r++ {
				work[r] += l.alloc[p][r]
			}
			sequence = append(sequence, p)
			found = true
			break
		}
		if !found {
			break
		}
	}

	var deadlocked []int
	for p, done := range finish {
		if !done {
			deadlocked = append(deadlocked, p)
		}
	}

	v := Verdict{Strategy: StrategySafety, Deadlocked: deadlocked}
	if len(deadlocked) == 0 {
		v.SafeSequence = sequence
	}
	return v
}

// fits reports whether need <= work elementwise.
func fits(need, work []int) bool {
	for r, n := range need {
		if n > work[r] {
			return false
		}
	}
	return true
}
