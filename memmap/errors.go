package memmap

import "errors"

var (
	// ErrOutOfMemory indicates no range satisfying the request exists.
	ErrOutOfMemory = errors.New("memmap: out of memory")
	// ErrBadRange indicates a zero-sized or address-wrapping range argument.
	ErrBadRange = errors.New("memmap: bad range")
	// ErrOverlap indicates the initial map description contains
	// overlapping ranges.
	ErrOverlap = errors.New("memmap: overlapping ranges")
)
