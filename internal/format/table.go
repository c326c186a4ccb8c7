package format

// Entry is one serialized relocation table entry in its decoded form.
// The zero Entry is the table terminator.
type Entry struct {
	Dest  uint64
	Src   uint64
	Size  uint64
	Flags uint32
}

// IsTerminator reports whether the entry is the all-zero terminator.
func (e Entry) IsTerminator() bool {
	return e.Dest == 0 && e.Src == 0 && e.Size == 0 && e.Flags == 0
}

// ZeroFill reports whether the entry zero-fills its destination.
func (e Entry) ZeroFill() bool { return e.Flags&FlagZeroFill != 0 }

// Executable reports whether the moved range may contain code.
func (e Entry) Executable() bool { return e.Flags&FlagExecutable != 0 }

// PutEntry encodes e into b at off. b must have EntrySize bytes available
// at off; the caller sizes the table buffer up front.
func PutEntry(b []byte, off int, e Entry) {
	PutU64(b, off+EntryDestOffset, e.Dest)
	PutU64(b, off+EntrySrcOffset, e.Src)
	PutU64(b, off+EntrySizeOffset, e.Size)
	PutU32(b, off+EntryFlagsOffset, e.Flags)
	PutU32(b, off+EntryRsvdOffset, 0)
}

// ReadEntry decodes one entry from b at off. It validates the structural
// invariants every non-terminator entry must satisfy: a non-zero length,
// a clear reserved word, and destination/source end addresses that do not
// wrap. A zero-length entry with any other field set is malformed rather
// than a terminator.
func ReadEntry(b []byte, off int) (Entry, error) {
	if off < 0 || off+EntrySize > len(b) {
		return Entry{}, ErrTruncated
	}
	e := Entry{
		Dest:  ReadU64(b, off+EntryDestOffset),
		Src:   ReadU64(b, off+EntrySrcOffset),
		Size:  ReadU64(b, off+EntrySizeOffset),
		Flags: ReadU32(b, off+EntryFlagsOffset),
	}
	if ReadU32(b, off+EntryRsvdOffset) != 0 {
		return Entry{}, ErrBadEntry
	}
	if e.IsTerminator() {
		return e, nil
	}
	if e.Size == 0 {
		return Entry{}, ErrBadEntry
	}
	if e.Dest+e.Size < e.Dest {
		return Entry{}, ErrBadEntry
	}
	if !e.ZeroFill() && e.Src+e.Size < e.Src {
		return Entry{}, ErrBadEntry
	}
	return e, nil
}

// TableSize returns the serialized size in bytes of a table holding n
// entries plus the terminator.
func TableSize(n int) uint64 {
	return uint64(n+1) * EntrySize
}
