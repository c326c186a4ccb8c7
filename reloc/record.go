package reloc

// Category groups records that are address-assigned together. The grouping
// decides the allocation strategy, not the record's contents.
type Category uint8

const (
	// CategoryKernel covers kernel image segments whose destinations are
	// fixed by the image format and never move relative to each other.
	CategoryKernel Category = 1 + iota
	// CategoryModule covers boot modules, packed contiguously near the
	// kernel when possible but placeable anywhere.
	CategoryModule
	// CategorySysInfo covers boot-protocol info structures, preferably
	// adjacent to the kernel but placeable anywhere.
	CategorySysInfo
	// CategoryCarrier covers the mover's own code and working data, which
	// must end up in safe memory.
	CategoryCarrier
)

var categoryNames = [...]string{
	CategoryKernel:  "kernel",
	CategoryModule:  "module",
	CategorySysInfo: "sysinfo",
	CategoryCarrier: "carrier",
}

func (c Category) String() string {
	if c.valid() {
		return categoryNames[c]
	}
	return "invalid"
}

func (c Category) valid() bool {
	return c >= CategoryKernel && c <= CategoryCarrier
}

// executable reports whether ranges of this category may contain code and
// therefore need cache maintenance after being moved.
func (c Category) executable() bool {
	return c == CategoryKernel || c == CategoryCarrier
}

// Handle is a stable reference to a registered record. It stays valid
// across table reordering because it indexes the record store, not the
// execution order.
type Handle int32

// NoHandle is returned for zero-length registrations, which are accepted
// as no-ops and produce no record.
const NoHandle Handle = -1

// Request describes one object to relocate or one range to zero-fill.
type Request struct {
	Category Category

	// Source is the boot-time address of the object's bytes. Ignored when
	// ZeroFill is set; a zero-fill record has no source range at all.
	Source   uint64
	ZeroFill bool

	// Size is the byte count to move or zero. A zero Size makes the
	// registration a no-op.
	Size uint64

	// Dest, when HasDest is set, pins the destination (kernel segments
	// carry their load address from the image format). Otherwise the
	// assigner chooses.
	Dest    uint64
	HasDest bool

	// Align is the required destination alignment; 0 or 1 means none.
	Align uint64
}

// record is one planned move. Records are created once by a producer and
// then owned by the pipeline; they are never freed individually, the whole
// table dies with the bootloader after hand-off.
type record struct {
	cat      Category
	src      uint64
	size     uint64
	dest     uint64
	align    uint64
	zeroFill bool
	fixed    bool // dest pinned at registration
	assigned bool // dest claimed from the allocator

	// visits is transient state for cycle detection only.
	visits uint8
}

// srcOverlapsDest reports whether b's source range overlaps a's
// destination range, i.e. a depends on b: moving a first would destroy
// bytes b still needs to read. A zero-fill b has no source and can never
// be depended on.
func srcOverlapsDest(a, b *record) bool {
	if b.zeroFill || !a.assigned {
		return false
	}
	return b.src < a.dest+a.size && a.dest < b.src+b.size
}
