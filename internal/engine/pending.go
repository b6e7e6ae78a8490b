package engine

// grantPending scans outstanding requests for resource r after a release
// and grants at most one instance.
//
// Policy: processes are scanned in ascending index order and the first
// non-deadlocked process with a pending request wins. Exactly one grant
// happens per release event even if several instances became available.
// This is FIFO-by-index fairness, not FIFO-by-arrival: arrival order is
// not tracked separately.
func (l *Ledger) grantPending(r int, deadlocked func(int) bool) []Event {
	if l.avail[r] <= 0 {
		return nil
	}

	for p := 0; p < l.numProcesses; p++ {
		if l.req[p][r] == 0 {
			continue
		}
		if deadlocked != nil && deadlocked(p) {
			continue
		}
		return l.grant(p, r, EventPendingGranted)
	}

	return nil
}
