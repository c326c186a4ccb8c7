package reloc

import (
	"errors"
	"fmt"

	"github.com/vmware/esx-boot-sub001/internal/format"
)

// TableEntry is the decoded, public form of one serialized table entry,
// used by diagnostics and tooling.
type TableEntry struct {
	Dest       uint64
	Src        uint64
	Size       uint64
	ZeroFill   bool
	Executable bool
}

// DecodeTable decodes a serialized relocation table blob up to and
// excluding the terminator.
func DecodeTable(blob []byte) ([]TableEntry, error) {
	var out []TableEntry
	for off := 0; ; off += format.EntrySize {
		e, err := format.ReadEntry(blob, off)
		if err != nil {
			if errors.Is(err, format.ErrTruncated) {
				return nil, fmt.Errorf("%w: missing terminator", ErrInconsistentTable)
			}
			return nil, fmt.Errorf("%w: %v", ErrInconsistentTable, err)
		}
		if e.IsTerminator() {
			return out, nil
		}
		out = append(out, TableEntry{
			Dest:       e.Dest,
			Src:        e.Src,
			Size:       e.Size,
			ZeroFill:   e.ZeroFill(),
			Executable: e.Executable(),
		})
	}
}

// VerifyTable checks the structural invariants of a serialized relocation
// table: a well-formed zero-entry terminator, no malformed entries, and
// pairwise disjoint destination ranges. Used by tests and the CLI to audit
// a plan before trusting it.
func VerifyTable(blob []byte) error {
	entries, err := DecodeTable(blob)
	if err != nil {
		return err
	}
	for i, a := range entries {
		for _, b := range entries[i+1:] {
			if a.Dest < b.Dest+b.Size && b.Dest < a.Dest+a.Size {
				return fmt.Errorf("%w: destinations [%#x, +%#x) and [%#x, +%#x) overlap",
					ErrInconsistentTable, a.Dest, a.Size, b.Dest, b.Size)
			}
		}
	}
	return nil
}
