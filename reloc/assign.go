package reloc

import (
	"fmt"

	"github.com/vmware/esx-boot-sub001/internal/format"
)

// assignAll address-assigns every category that producers register
// directly. Kernel segments go first because their fixed destinations
// anchor the preferred placement of everything else; carrier records do
// not exist yet, the carrier creates and places them itself.
func (p *Planning) assignAll() error {
	if err := p.assignFixed(CategoryKernel); err != nil {
		return err
	}

	preferred := p.cfg.PreferredBase
	if preferred == 0 {
		preferred = p.kernelTop()
	}
	if err := p.assignCategory(CategoryModule, preferred); err != nil {
		return err
	}
	// System info prefers the same neighborhood; if the modules took it,
	// the contiguous fallback places it wherever space exists.
	if err := p.assignCategory(CategorySysInfo, preferred); err != nil {
		return err
	}
	return nil
}

// assignFixed claims the producer-pinned destinations of one category.
// Overlapping fixed destinations are a producer defect and are rejected
// before the allocator is touched, so the failure is atomic.
func (p *Planning) assignFixed(cat Category) error {
	var recs []*record
	for _, r := range p.recs {
		if r.cat != cat || r.assigned {
			continue
		}
		if !r.fixed {
			return fmt.Errorf("%w: %s record without fixed destination", ErrInconsistentTable, cat)
		}
		recs = append(recs, r)
	}

	for i, a := range recs {
		if a.align > 1 && !format.IsAligned(a.dest, a.align) {
			return fmt.Errorf("%w: fixed destination %#x not %#x-aligned",
				ErrInconsistentTable, a.dest, a.align)
		}
		for _, b := range recs[i+1:] {
			if a.dest < b.dest+b.size && b.dest < a.dest+a.size {
				return fmt.Errorf("%w: fixed destinations [%#x, +%#x) and [%#x, +%#x) overlap",
					ErrInconsistentTable, a.dest, a.size, b.dest, b.size)
			}
		}
	}

	for _, r := range recs {
		if err := p.alloc.AllocateFixed(r.dest, r.size); err != nil {
			return fmt.Errorf("reloc: claiming %s segment at %#x: %w", cat, r.dest, err)
		}
		r.assigned = true
		planLogf("assign %s fixed dest=%#x size=%#x", cat, r.dest, r.size)
	}
	return nil
}

// assignCategory places all unassigned records of one category.
//
// The contiguous span is computed conservatively: the group's start
// address is unknown until the allocator answers, so every record is
// assumed to need padding up to the maximum alignment in the set. A
// smaller working alignment could under-count the padding once a real,
// more strictly aligned start is chosen.
//
// Three attempts, in order: the whole span at the preferred address, the
// whole span anywhere at the maximum alignment, and finally one allocator
// call per record. A category either succeeds or fails as a whole for a
// given attempt.
func (p *Planning) assignCategory(cat Category, preferred uint64) error {
	var recs []*record
	maxAlign := uint64(1)
	for _, r := range p.recs {
		if r.cat != cat || r.assigned {
			continue
		}
		if r.fixed {
			return fmt.Errorf("%w: fixed destination on %s record", ErrInconsistentTable, cat)
		}
		recs = append(recs, r)
		if r.align > maxAlign {
			maxAlign = r.align
		}
	}
	if len(recs) == 0 {
		return nil
	}

	var span uint64
	for _, r := range recs {
		span += format.AlignUp(r.size, maxAlign)
	}

	if base, ok := p.allocSpan(span, maxAlign, preferred); ok {
		packRecords(recs, base)
		planLogf("assign %s contiguous base=%#x span=%#x", cat, base, span)
		return nil
	}

	// No contiguous span anywhere: place each record independently. The
	// category still succeeds or fails as a whole: a failure partway
	// through unwinds the records placed so far, so no destination from a
	// failed attempt is ever observable through Destination.
	for i, r := range recs {
		addr, err := p.alloc.Allocate(r.size, r.align, PlaceAnywhere)
		if err != nil {
			for _, placed := range recs[:i] {
				placed.dest = 0
				placed.assigned = false
			}
			return fmt.Errorf("reloc: placing %s record size=%#x: %w", cat, r.size, err)
		}
		r.dest = addr
		r.assigned = true
		planLogf("assign %s scattered dest=%#x size=%#x", cat, addr, r.size)
	}
	return nil
}

// allocSpan obtains one contiguous span for a category, trying the
// preferred fixed address first.
func (p *Planning) allocSpan(span, maxAlign, preferred uint64) (uint64, bool) {
	if preferred != 0 {
		base := format.AlignUp(preferred, maxAlign)
		if err := p.alloc.AllocateFixed(base, span); err == nil {
			return base, true
		}
	}
	base, err := p.alloc.Allocate(span, maxAlign, PlaceAnywhere)
	if err != nil {
		return 0, false
	}
	return base, true
}

// packRecords walks a contiguous span, rounding each record's running
// offset up to its own alignment.
func packRecords(recs []*record, base uint64) {
	addr := base
	for _, r := range recs {
		addr = format.AlignUp(addr, r.align)
		r.dest = addr
		r.assigned = true
		addr += r.size
	}
}

// kernelTop returns the first page boundary above the highest kernel
// segment, the preferred neighborhood for modules and info structures.
// Zero when no kernel segment is registered.
func (p *Planning) kernelTop() uint64 {
	var top uint64
	for _, r := range p.recs {
		if r.cat == CategoryKernel && r.dest+r.size > top {
			top = r.dest + r.size
		}
	}
	return format.PageAlign(top)
}

// verifyAssigned checks the post-assignment structural invariants: every
// record has a destination, no destination wraps, and all destination
// ranges are pairwise disjoint.
func (p *Planning) verifyAssigned() error {
	for i, a := range p.recs {
		if !a.assigned {
			return fmt.Errorf("%w: %s record unassigned after allocation", ErrInconsistentTable, a.cat)
		}
		if a.dest+a.size < a.dest {
			return fmt.Errorf("%w: destination range [%#x, +%#x) wraps", ErrInconsistentTable, a.dest, a.size)
		}
		for _, b := range p.recs[i+1:] {
			if !b.assigned {
				continue
			}
			if a.dest < b.dest+b.size && b.dest < a.dest+a.size {
				return fmt.Errorf("%w: destinations [%#x, +%#x) and [%#x, +%#x) overlap",
					ErrInconsistentTable, a.dest, a.size, b.dest, b.size)
			}
		}
	}
	return nil
}
