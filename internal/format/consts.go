// Package format houses the fixed binary layouts shared between the
// planning phase and the relocated mover: the serialized relocation table
// and the hand-off record. The goal is to keep the encoding focused,
// allocation-free where possible, and independent from the public API so
// higher-level packages can orchestrate the data in a more ergonomic form.
//
// Both structures are read after firmware shutdown by code this module does
// not link against (the relocated mover stub and, for the hand-off record,
// the loaded kernel), so every offset below is ABI and must not change.
package format

const (
	// EntrySize is the size in bytes of one serialized relocation table
	// entry. The table is a flat array of entries terminated by an
	// all-zero entry.
	EntrySize = 40

	// Field offsets within a table entry (little-endian):
	//   0x00  destination address  u64
	//   0x08  source address       u64 (meaningless when FlagZeroFill set)
	//   0x10  length in bytes      u64
	//   0x18  flags                u32
	//   0x1C  reserved             u32 (must be zero)
	EntryDestOffset  = 0x00
	EntrySrcOffset   = 0x08
	EntrySizeOffset  = 0x10
	EntryFlagsOffset = 0x18
	EntryRsvdOffset  = 0x1C

	// FlagZeroFill marks an entry whose destination is zeroed rather than
	// copied into. FlagExecutable marks an entry that may contain code and
	// therefore needs a data-cache clean after the move.
	FlagZeroFill   = 1 << 0
	FlagExecutable = 1 << 1

	// HandoffSize is the size in bytes of the hand-off record.
	HandoffSize = 32

	// Field offsets within the hand-off record (little-endian):
	//   0x00  kernel entry address     u64
	//   0x08  relocated table address  u64
	//   0x10  mover entry address      u64
	//   0x18  boot-protocol magic      u32
	//   0x1C  reserved                 u32 (must be zero)
	HandoffKernelOffset = 0x00
	HandoffTableOffset  = 0x08
	HandoffMoverOffset  = 0x10
	HandoffMagicOffset  = 0x18
	HandoffRsvdOffset   = 0x1C

	// MagicMultiboot is the value a Multiboot-compliant loader hands to the
	// kernel in a register at entry. MagicESXBootInfo is the equivalent for
	// the ESXBootInfo protocol.
	MagicMultiboot   = 0x2BADB002
	MagicESXBootInfo = 0x1BADB005
)

const (
	// PageSize is the allocation granularity assumed for code blocks and
	// safe-memory carving. Alignment masks below derive from it.
	PageSize     = 4096
	PageMask     = PageSize - 1
	Align8Mask   = 7
	Align16Mask  = 15
	MaxAlignment = PageSize
)
