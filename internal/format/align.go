package format

// Alignment utilities for relocation planning. Destination addresses and
// running offsets inside a contiguous span must be rounded up to each
// record's alignment; code blocks are rounded to page boundaries.

// AlignUp returns n rounded up to the next multiple of align. align must be
// a power of two; align 0 is treated as 1 (no alignment requirement).
//
// Example:
//
//	AlignUp(1, 8)    = 8
//	AlignUp(8, 8)    = 8
//	AlignUp(9, 8)    = 16
//	AlignUp(5, 0)    = 5
func AlignUp(n, align uint64) uint64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

// AlignDown returns n rounded down to the previous multiple of align.
// align must be a power of two; align 0 is treated as 1.
func AlignDown(n, align uint64) uint64 {
	if align <= 1 {
		return n
	}
	return n &^ (align - 1)
}

// IsAligned reports whether n is a multiple of align.
func IsAligned(n, align uint64) bool {
	return AlignDown(n, align) == n
}

// IsPow2 reports whether align is a power of two. Zero is accepted as "no
// alignment requirement" by the helpers above but is not itself a power of
// two.
func IsPow2(align uint64) bool {
	return align != 0 && align&(align-1) == 0
}

// PageAlign returns n rounded up to the next page boundary.
//
// Example:
//
//	PageAlign(1)    = 4096
//	PageAlign(4096) = 4096
//	PageAlign(4097) = 8192
func PageAlign(n uint64) uint64 {
	return (n + PageMask) &^ uint64(PageMask)
}
