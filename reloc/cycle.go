package reloc

import "fmt"

// breakCycle stages one record of a dependency cycle through safe memory.
//
// Every record in the remaining suffix has at least one dependency (that is
// what stalled the resolver), so following the depends-on relation from any
// start must eventually revisit a record. The walk starts from the largest
// record, heuristically the likeliest cycle participant, and marks each
// record it visits; once it arrives at a record already visited twice, the
// twice-visited set is exactly the cycle. The smallest member's source is
// copied into freshly allocated safe memory and the record retargeted to
// the copy, which removes its original source range from everything the
// other records could overlap. The particular start/victim tie-breaks are
// heuristics, not contract; only termination and correctness are.
//
// Out-of-memory here is fatal: there is no further fallback.
func (p *Planning) breakCycle(remaining []int) error {
	for _, idx := range remaining {
		p.recs[idx].visits = 0
	}

	start := remaining[0]
	for _, idx := range remaining[1:] {
		if p.recs[idx].size > p.recs[start].size {
			start = idx
		}
	}

	cur := start
	p.recs[cur].visits = 1
	for step := 0; step <= 2*len(remaining); step++ {
		next, ok := p.nextDependency(remaining, cur)
		if !ok {
			return fmt.Errorf("%w: stalled record has no dependency edge", ErrUnresolvable)
		}
		if p.recs[next].visits >= 2 {
			return p.stageSmallest(remaining)
		}
		p.recs[next].visits++
		cur = next
	}
	return fmt.Errorf("%w: dependency walk did not close", ErrUnresolvable)
}

// nextDependency returns the first remaining record cur depends on.
// The choice is deterministic, which makes the walk a functional graph:
// it always falls into a loop.
func (p *Planning) nextDependency(remaining []int, cur int) (int, bool) {
	a := p.recs[cur]
	for _, idx := range remaining {
		if idx == cur {
			continue
		}
		if srcOverlapsDest(a, p.recs[idx]) {
			return idx, true
		}
	}
	return 0, false
}

// stageSmallest copies the smallest twice-visited record's source into
// safe memory and retargets the record, minimizing the cost of the
// workaround. Zero-fill records have no source range and are never on a
// cycle.
func (p *Planning) stageSmallest(remaining []int) error {
	victim := -1
	for _, idx := range remaining {
		r := p.recs[idx]
		if r.visits < 2 || r.zeroFill {
			continue
		}
		if victim == -1 || r.size < p.recs[victim].size {
			victim = idx
		}
	}
	if victim == -1 {
		return fmt.Errorf("%w: no stageable cycle member", ErrUnresolvable)
	}

	r := p.recs[victim]
	align := r.align
	if align == 0 {
		align = 1
	}
	addr, err := p.alloc.Allocate(r.size, align, PlaceSafe)
	if err != nil {
		return fmt.Errorf("reloc: staging %s record size=%#x: %w", r.cat, r.size, err)
	}
	dst, err := p.mem.Slice(addr, r.size)
	if err != nil {
		return fmt.Errorf("reloc: staging copy destination: %w", err)
	}
	src, err := p.mem.Slice(r.src, r.size)
	if err != nil {
		return fmt.Errorf("reloc: staging copy source: %w", err)
	}
	copy(dst, src)
	planLogf("staged %s src=%#x -> %#x size=%#x", r.cat, r.src, addr, r.size)
	r.src = addr
	return nil
}
