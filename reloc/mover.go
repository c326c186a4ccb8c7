package reloc

import (
	"fmt"

	"github.com/vmware/esx-boot-sub001/internal/format"
)

// CacheMaintenance abstracts the architecture's cache coherency sequences.
// Moved ranges that may contain code need their data cache cleaned, and
// the instruction cache must be invalidated once before control reaches
// moved code. On real hardware these are CPU instructions, not services;
// simulations substitute a recording or no-op implementation.
type CacheMaintenance interface {
	// FlushDataRange cleans the data cache for [addr, addr+size).
	FlushDataRange(addr, size uint64)
	// SyncInstructionCache invalidates the instruction cache globally.
	SyncInstructionCache()
}

// NopCache is the CacheMaintenance used when coherency is not modeled.
type NopCache struct{}

func (NopCache) FlushDataRange(uint64, uint64) {}
func (NopCache) SyncInstructionCache()         {}

// runTable walks the serialized relocation table at tableAddr and performs
// every move and zero-fill in table order, exactly as the relocated mover
// stub does after firmware shutdown. It must execute entries in the order
// the resolver produced: that order is the only one guaranteed not to
// overwrite a still-unread source. It calls no allocator and no logger;
// its only inputs are the memory itself and the cache primitives.
func runTable(mem Memory, tableAddr uint64, cache CacheMaintenance) error {
	for off := tableAddr; ; off += format.EntrySize {
		raw, err := mem.Slice(off, format.EntrySize)
		if err != nil {
			return fmt.Errorf("%w: table runs past memory: %v", ErrInconsistentTable, err)
		}
		e, err := format.ReadEntry(raw, 0)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInconsistentTable, err)
		}
		if e.IsTerminator() {
			break
		}
		if err := execEntry(mem, e, cache); err != nil {
			return err
		}
	}
	cache.SyncInstructionCache()
	return nil
}

func execEntry(mem Memory, e format.Entry, cache CacheMaintenance) error {
	dst, err := mem.Slice(e.Dest, e.Size)
	if err != nil {
		return fmt.Errorf("%w: destination [%#x, +%#x): %v", ErrInconsistentTable, e.Dest, e.Size, err)
	}
	switch {
	case e.ZeroFill():
		zeroBytes(dst)
	case e.Dest == e.Src:
		// Already in place; cache maintenance below still applies.
	default:
		src, err := mem.Slice(e.Src, e.Size)
		if err != nil {
			return fmt.Errorf("%w: source [%#x, +%#x): %v", ErrInconsistentTable, e.Src, e.Size, err)
		}
		moveBytes(dst, src, e.Dest > e.Src)
	}
	if e.Executable() {
		cache.FlushDataRange(e.Dest, e.Size)
	}
	return nil
}
