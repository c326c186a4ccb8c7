package reloc

import "github.com/vmware/esx-boot-sub001/memmap"

// Placement is a type alias for the canonical placement type defined in
// memmap, so callers wiring a memmap.Map to the planner don't juggle two
// identical enums.
type Placement = memmap.Placement

const (
	PlaceAnywhere = memmap.PlaceAnywhere
	PlaceBelow4G  = memmap.PlaceBelow4G
	PlaceSafe     = memmap.PlaceSafe
)

// Allocator is the firmware memory facade the planner consumes. All
// allocation happens before firmware shutdown; the mover itself never
// touches it.
type Allocator interface {
	// Allocate returns the address of a fresh range satisfying size,
	// alignment, and placement.
	Allocate(size, align uint64, p Placement) (uint64, error)
	// AllocateFixed claims exactly [addr, addr+size).
	AllocateFixed(addr, size uint64) error
	// Blacklist marks a range permanently unavailable, so memory this
	// engine has committed to is never handed out again.
	Blacklist(addr, size uint64) error
}

// bootMarker is the optional facade extension that lets the planner
// declare boot-time source ranges, which the facade must keep out of safe
// and dynamic allocations. memmap.Map implements it.
type bootMarker interface {
	MarkBoot(addr, size uint64) error
}

// Memory gives the planner and the simulated mover flat access to
// boot-time memory. Slice returns a mutable view of [addr, addr+size);
// implementations fail on unmapped ranges.
type Memory interface {
	Slice(addr, size uint64) ([]byte, error)
}
