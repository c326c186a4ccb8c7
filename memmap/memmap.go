// Package memmap implements the firmware-style memory map the planner
// allocates run-time and safe memory from.
//
// A Map is a sorted, non-overlapping partition of the interesting parts of
// the physical address space, each extent tagged with a Kind. Allocation
// only ever consumes KindAvailable memory; fixed-address claims may also
// consume KindBoot memory, because a kernel segment's mandated load address
// is allowed to land on top of boot-time sources (the relocation engine
// untangles the resulting overlap). Once carved, a range never returns to
// the available pool: the bootloader allocates monotonically and the whole
// map is discarded at hand-off.
package memmap

import (
	"fmt"
	"sort"

	"github.com/vmware/esx-boot-sub001/internal/format"
)

// Placement selects where an allocation may be satisfied from.
type Placement uint8

const (
	// PlaceAnywhere accepts any available address.
	PlaceAnywhere Placement = iota
	// PlaceBelow4G restricts the allocation to the first 4GiB, for
	// structures read by 32-bit entry code.
	PlaceBelow4G
	// PlaceSafe requests safe memory: memory guaranteed to hold neither a
	// boot-time source nor a chosen run-time destination. The resulting
	// range is tagged KindSafe.
	PlaceSafe
)

const below4GLimit = 1 << 32

// Map tracks the classified address space.
type Map struct {
	ranges []Range
}

// New builds a map from the firmware's memory description. Input ranges may
// be KindAvailable or KindSystem, must not overlap, and must not wrap.
// Available memory below LowMemoryBound is reclassified as KindHidden.
func New(regions ...Range) (*Map, error) {
	rs := make([]Range, 0, len(regions))
	for _, r := range regions {
		if r.Size == 0 || r.Start+r.Size < r.Start {
			return nil, fmt.Errorf("%w: [%#x, +%#x)", ErrBadRange, r.Start, r.Size)
		}
		if r.Kind != KindAvailable && r.Kind != KindSystem {
			return nil, fmt.Errorf("%w: kind %s in initial map", ErrBadRange, r.Kind)
		}
		rs = append(rs, r)
	}
	sortRanges(rs)
	for i := 1; i < len(rs); i++ {
		if rs[i].Start < rs[i-1].End() {
			return nil, fmt.Errorf("%w: [%#x, +%#x)", ErrOverlap, rs[i].Start, rs[i].Size)
		}
	}
	m := &Map{ranges: coalesce(rs)}
	m.hideLowMemory()
	return m, nil
}

// Allocate finds the lowest-addressed available range satisfying size and
// alignment under the given placement and carves it out. The result is
// tagged KindSafe for PlaceSafe, KindRuntime otherwise.
func (m *Map) Allocate(size, align uint64, p Placement) (uint64, error) {
	if size == 0 || (align > 1 && !format.IsPow2(align)) {
		return 0, ErrBadRange
	}
	to := KindRuntime
	if p == PlaceSafe {
		to = KindSafe
	}
	for _, r := range m.ranges {
		if r.Kind != KindAvailable {
			continue
		}
		base := format.AlignUp(r.Start, align)
		if base < r.Start || base >= r.End() {
			continue
		}
		if r.End()-base < size {
			continue
		}
		if p == PlaceBelow4G && base+size > below4GLimit {
			continue
		}
		if err := m.carve(base, size, to, func(k Kind) bool { return k == KindAvailable }); err != nil {
			return 0, err
		}
		return base, nil
	}
	return 0, ErrOutOfMemory
}

// AllocateFixed claims exactly [addr, addr+size). The range must be fully
// covered by available or boot memory; claiming boot memory is legal and is
// how a fixed kernel segment comes to overlap a not-yet-moved source.
func (m *Map) AllocateFixed(addr, size uint64) error {
	return m.carve(addr, size, KindRuntime, func(k Kind) bool {
		return k == KindAvailable || k == KindBoot
	})
}

// Blacklist permanently retires [addr, addr+size) from the allocator. The
// range must be mapped; its previous classification is irrelevant.
func (m *Map) Blacklist(addr, size uint64) error {
	return m.carve(addr, size, KindBlacklisted, func(Kind) bool { return true })
}

// MarkBoot classifies [addr, addr+size) as holding boot-time sources so
// subsequent safe and dynamic allocations avoid it. Re-marking boot memory
// is a no-op; marking reserved memory is an error in the caller's scenario.
func (m *Map) MarkBoot(addr, size uint64) error {
	return m.carve(addr, size, KindBoot, func(k Kind) bool {
		return k == KindAvailable || k == KindBoot
	})
}

// Describe returns a copy of the current classification, sorted by address.
func (m *Map) Describe() []Range {
	out := make([]Range, len(m.ranges))
	copy(out, m.ranges)
	return out
}

func (m *Map) hideLowMemory() {
	for i := range m.ranges {
		r := &m.ranges[i]
		if r.Kind == KindAvailable && r.Start < LowMemoryBound {
			// Coverage is partial by design, so carve() is not usable here.
			if r.End() <= LowMemoryBound {
				r.Kind = KindHidden
				continue
			}
			hidden := Range{Start: r.Start, Size: LowMemoryBound - r.Start, Kind: KindHidden}
			r.Size -= hidden.Size
			r.Start = LowMemoryBound
			m.ranges = append(m.ranges, hidden)
		}
	}
	sortRanges(m.ranges)
	m.ranges = coalesce(m.ranges)
}

// carve reclassifies [start, start+size) as kind to. The range must be
// fully covered by ranges whose current kind satisfies allowed; otherwise
// the map is left untouched and ErrOutOfMemory is returned.
func (m *Map) carve(start, size uint64, to Kind, allowed func(Kind) bool) error {
	if size == 0 || start+size < start {
		return ErrBadRange
	}
	end := start + size

	cur := start
	for _, r := range m.ranges {
		if r.End() <= cur {
			continue
		}
		if r.Start > cur {
			break
		}
		if !allowed(r.Kind) {
			return ErrOutOfMemory
		}
		cur = r.End()
		if cur >= end {
			break
		}
	}
	if cur < end {
		return ErrOutOfMemory
	}

	out := make([]Range, 0, len(m.ranges)+2)
	for _, r := range m.ranges {
		if !r.overlaps(start, size) {
			out = append(out, r)
			continue
		}
		if r.Start < start {
			out = append(out, Range{Start: r.Start, Size: start - r.Start, Kind: r.Kind})
		}
		if r.End() > end {
			out = append(out, Range{Start: end, Size: r.End() - end, Kind: r.Kind})
		}
	}
	out = append(out, Range{Start: start, Size: size, Kind: to})
	sortRanges(out)
	m.ranges = coalesce(out)
	return nil
}

func sortRanges(rs []Range) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].Start < rs[j].Start })
}

// coalesce merges adjacent ranges of the same kind. rs must be sorted and
// non-overlapping.
func coalesce(rs []Range) []Range {
	if len(rs) == 0 {
		return rs
	}
	out := rs[:1]
	for _, r := range rs[1:] {
		last := &out[len(out)-1]
		if r.Kind == last.Kind && r.Start == last.End() {
			last.Size += r.Size
			continue
		}
		out = append(out, r)
	}
	return out
}
