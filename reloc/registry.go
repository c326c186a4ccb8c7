package reloc

import "fmt"

// Register appends one pending move (or zero-fill) to the relocation
// table and returns a stable handle for later destination lookup.
//
// A zero Size is accepted as a no-op and yields NoHandle: producers may
// legitimately compute zero-sized optional payloads. Structural defects
// (invalid category, non-power-of-two alignment, address arithmetic that
// wraps) are rejected immediately with ErrInconsistentTable rather than
// surfacing later during resolution.
func (p *Planning) Register(req Request) (Handle, error) {
	if p.sealed {
		return NoHandle, ErrSealed
	}
	if req.Size == 0 {
		return NoHandle, nil
	}
	if !req.Category.valid() {
		return NoHandle, fmt.Errorf("%w: invalid category %d", ErrInconsistentTable, req.Category)
	}
	if req.Category == CategoryCarrier {
		return NoHandle, fmt.Errorf("%w: carrier records are created by packaging, not registered", ErrInconsistentTable)
	}
	if req.Align > 1 && req.Align&(req.Align-1) != 0 {
		return NoHandle, fmt.Errorf("%w: alignment %#x not a power of two", ErrInconsistentTable, req.Align)
	}
	if !req.ZeroFill && req.Source+req.Size < req.Source {
		return NoHandle, fmt.Errorf("%w: source range [%#x, +%#x) wraps", ErrInconsistentTable, req.Source, req.Size)
	}
	if req.HasDest && req.Dest+req.Size < req.Dest {
		return NoHandle, fmt.Errorf("%w: destination range [%#x, +%#x) wraps", ErrInconsistentTable, req.Dest, req.Size)
	}
	if len(p.recs) >= p.cfg.MaxRecords {
		return NoHandle, fmt.Errorf("%w: %d records", ErrTableFull, p.cfg.MaxRecords)
	}

	r := &record{
		cat:      req.Category,
		size:     req.Size,
		align:    req.Align,
		zeroFill: req.ZeroFill,
	}
	if !req.ZeroFill {
		r.src = req.Source
	}
	if req.HasDest {
		r.dest = req.Dest
		r.fixed = true
	}
	p.recs = append(p.recs, r)
	planLogf("register %s src=%#x size=%#x fixed=%v align=%#x",
		r.cat, r.src, r.size, r.fixed, r.align)
	return Handle(len(p.recs) - 1), nil
}

// Destination returns the assigned run-time address of a registered
// record. Producers use it in a second pass to patch internal pointers
// inside structures being relocated. It is only available on the Planning
// handle; once the plan is finalized the table has been reordered and
// serialized and lookup is gone by construction.
func (p *Planning) Destination(h Handle) (uint64, error) {
	if p.sealed {
		return 0, ErrSealed
	}
	if h < 0 || int(h) >= len(p.recs) {
		return 0, fmt.Errorf("%w: handle %d", ErrNotFound, h)
	}
	r := p.recs[int(h)]
	if !r.assigned {
		return 0, fmt.Errorf("%w: handle %d (%s)", ErrNotAssigned, h, r.cat)
	}
	return r.dest, nil
}

// Len returns the number of registered records.
func (p *Planning) Len() int { return len(p.recs) }
