package reloc

// ResolveStats reports what dependency resolution did. Re-resolving an
// already-ordered table yields the zero value: no moves, no cycles.
type ResolveStats struct {
	// Moves counts records relocated within the execution order.
	Moves int
	// Cycles counts cycle-breaking invocations.
	Cycles int
	// Staged counts sources redirected through a safe-memory copy.
	Staged int
}

// resolve reorders the execution order in place so that executing moves in
// that order never overwrites the still-unread source of a later move.
//
// Each pass scans the not-yet-resolved suffix; a record with no dependency
// among the remaining records is rotated to the front of the suffix, which
// keeps the original relative order among records resolved in the same
// pass. A pass that resolves nothing means the suffix contains a cycle;
// one source is staged through safe memory and the scan retries.
// Termination is guaranteed: every staging removes the staged record's
// source-overlap potential, so at least one edge disappears per cycle
// break.
func (p *Planning) resolve(order []int) (ResolveStats, error) {
	var stats ResolveStats
	done := 0
	for done < len(order) {
		progressed := false
		for j := done; j < len(order); j++ {
			if p.hasDependency(order, done, j) {
				continue
			}
			if j != done {
				idx := order[j]
				copy(order[done+1:j+1], order[done:j])
				order[done] = idx
				stats.Moves++
			}
			done++
			progressed = true
		}
		if progressed {
			continue
		}
		stats.Cycles++
		if err := p.breakCycle(order[done:]); err != nil {
			return stats, err
		}
		stats.Staged++
	}
	return stats, nil
}

// hasDependency reports whether the record at position j depends on any
// other record in the unresolved suffix order[done:]: some remaining
// record's source overlaps j's destination, so moving j now would destroy
// bytes that record still needs.
func (p *Planning) hasDependency(order []int, done, j int) bool {
	a := p.recs[order[j]]
	for k := done; k < len(order); k++ {
		if k == j {
			continue
		}
		if srcOverlapsDest(a, p.recs[order[k]]) {
			return true
		}
	}
	return false
}
