package reloc

import "errors"

var (
	// ErrTableFull indicates the registry reached its fixed capacity. The
	// bound exists because the table itself is relocated through the same
	// mechanism and its size must be known before carrier packaging.
	ErrTableFull = errors.New("reloc: relocation table full")

	// ErrInconsistentTable indicates a record failed a structural sanity
	// check. This is a programming defect in a producer, not a recoverable
	// condition.
	ErrInconsistentTable = errors.New("reloc: inconsistent relocation table")

	// ErrUnresolvable indicates the dependency walk could not make
	// progress and cycle breaking could not identify an advancing edge.
	// Unreachable for a well-formed table; fatal if it surfaces.
	ErrUnresolvable = errors.New("reloc: unresolvable move ordering")

	// ErrNotFound indicates a destination lookup with an unknown handle.
	ErrNotFound = errors.New("reloc: record not found")

	// ErrNotAssigned indicates a destination lookup before the record's
	// category has been address-assigned.
	ErrNotAssigned = errors.New("reloc: destination not assigned yet")

	// ErrSealed indicates a registration or lookup after the planning
	// handle has been finalized.
	ErrSealed = errors.New("reloc: planning already finalized")
)
