package memmap

// Kind classifies a range of the physical address space. The classification
// drives what the allocator may hand out: only KindAvailable memory is ever
// allocatable, and the distinction between KindRuntime and KindSafe records
// what an allocation was carved out for.
type Kind uint8

const (
	// KindAvailable memory is free and allocatable.
	KindAvailable Kind = iota
	// KindSystem memory holds firmware tables and is never touched.
	KindSystem
	// KindHidden memory is low memory reserved out of caution.
	KindHidden
	// KindBoot memory holds boot-time relocation sources.
	KindBoot
	// KindRuntime memory holds chosen run-time destinations.
	KindRuntime
	// KindSafe memory holds safe-memory allocations: the mover, its
	// working data, and staged cycle-breaking copies.
	KindSafe
	// KindBlacklisted memory has been permanently retired.
	KindBlacklisted
)

var kindNames = [...]string{
	KindAvailable:   "available",
	KindSystem:      "system",
	KindHidden:      "hidden",
	KindBoot:        "boot",
	KindRuntime:     "runtime",
	KindSafe:        "safe",
	KindBlacklisted: "blacklisted",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Range is one classified, non-overlapping extent of the address space.
type Range struct {
	Start uint64
	Size  uint64
	Kind  Kind
}

// End returns the exclusive end address of the range.
func (r Range) End() uint64 { return r.Start + r.Size }

// overlaps reports whether r and [start, start+size) share any byte.
func (r Range) overlaps(start, size uint64) bool {
	return r.Start < start+size && start < r.End()
}

// LowMemoryBound is the top of the region hidden from allocation out of
// caution: legacy firmware data structures live below 1MiB on x86 and some
// firmware implementations misreport them as free.
const LowMemoryBound = 1 << 20
