package format

import "errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrBadEntry indicates a table entry violated a structural invariant
	// (zero length without the terminator form, reserved bits set, or
	// address arithmetic overflow).
	ErrBadEntry = errors.New("format: malformed table entry")
	// ErrNoTerminator indicates a table was not closed by an all-zero entry.
	ErrNoTerminator = errors.New("format: missing table terminator")
)
