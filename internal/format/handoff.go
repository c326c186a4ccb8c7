package format

// Handoff is the decoded form of the hand-off record. The record is the
// last structure the bootloader writes and the first the kernel reads, so
// its binary layout (see consts.go) is a fixed ABI shared with code this
// module does not control.
type Handoff struct {
	KernelEntry uint64
	TableAddr   uint64
	MoverEntry  uint64
	Magic       uint32
}

// PutHandoff encodes h into b at off. b must have HandoffSize bytes
// available at off.
func PutHandoff(b []byte, off int, h Handoff) {
	PutU64(b, off+HandoffKernelOffset, h.KernelEntry)
	PutU64(b, off+HandoffTableOffset, h.TableAddr)
	PutU64(b, off+HandoffMoverOffset, h.MoverEntry)
	PutU32(b, off+HandoffMagicOffset, h.Magic)
	PutU32(b, off+HandoffRsvdOffset, 0)
}

// ReadHandoff decodes a hand-off record from b at off.
func ReadHandoff(b []byte, off int) (Handoff, error) {
	if off < 0 || off+HandoffSize > len(b) {
		return Handoff{}, ErrTruncated
	}
	return Handoff{
		KernelEntry: ReadU64(b, off+HandoffKernelOffset),
		TableAddr:   ReadU64(b, off+HandoffTableOffset),
		MoverEntry:  ReadU64(b, off+HandoffMoverOffset),
		Magic:       ReadU32(b, off+HandoffMagicOffset),
	}, nil
}
