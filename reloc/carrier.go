package reloc

import (
	"fmt"

	"github.com/vmware/esx-boot-sub001/internal/format"
)

// carrier is the result of packaging the plan into safe memory.
type carrier struct {
	handoff  format.Handoff
	diagAddr uint64
}

// Offsets inside the carrier data block. The block holds, in order, the
// serialized relocation table, the diagnostic buffer, the mover's working
// stack, and the hand-off record.
const carrierAlign = 16

// packageCarrier places the final ordered table, the diagnostic buffer, a
// small stack, and the hand-off record into one contiguous safe block, and
// the mover stub into a second safe block. Both blobs are staged in
// boot-time memory first; the not-yet-relocated mover then runs once,
// synchronously, over a two-entry bootstrap table that installs them into
// their safe locations. Everything the relocated mover will touch is
// thereby in place before firmware shutdown.
func (p *Planning) packageCarrier(order []int, cache CacheMaintenance) (carrier, error) {
	tableSize := format.TableSize(len(order))
	diagOff := format.AlignUp(tableSize, carrierAlign)
	stackOff := format.AlignUp(diagOff+p.cfg.DiagSize, carrierAlign)
	handoffOff := format.AlignUp(stackOff+p.cfg.StackSize, carrierAlign)
	dataSize := handoffOff + format.HandoffSize

	dataAddr, err := p.alloc.Allocate(dataSize, carrierAlign, PlaceSafe)
	if err != nil {
		return carrier{}, fmt.Errorf("reloc: carrier data block size=%#x: %w", dataSize, err)
	}
	codeSize := format.PageAlign(moverStubSize)
	codeAddr, err := p.alloc.Allocate(codeSize, format.PageSize, PlaceSafe)
	if err != nil {
		return carrier{}, fmt.Errorf("reloc: carrier code block size=%#x: %w", codeSize, err)
	}

	// The firmware must never hand these out again, even to allocations
	// made between now and shutdown.
	if err := p.alloc.Blacklist(dataAddr, dataSize); err != nil {
		return carrier{}, fmt.Errorf("reloc: blacklisting carrier data: %w", err)
	}
	if err := p.alloc.Blacklist(codeAddr, codeSize); err != nil {
		return carrier{}, fmt.Errorf("reloc: blacklisting carrier code: %w", err)
	}

	h := format.Handoff{
		KernelEntry: p.cfg.KernelEntry,
		TableAddr:   dataAddr,
		MoverEntry:  codeAddr,
		Magic:       p.cfg.Protocol,
	}
	handoffAddr := dataAddr + handoffOff
	stackTop := dataAddr + handoffOff // stack grows down from the hand-off record

	// Build the data blob: table entries in resolved order, zeroed diag
	// buffer and stack, hand-off record at the end. The terminator is the
	// zero bytes already there.
	data := make([]byte, dataSize)
	for i, idx := range order {
		r := p.recs[idx]
		var flags uint32
		if r.zeroFill {
			flags |= format.FlagZeroFill
		}
		if r.cat.executable() {
			flags |= format.FlagExecutable
		}
		format.PutEntry(data, i*format.EntrySize, format.Entry{
			Dest:  r.dest,
			Src:   r.src,
			Size:  r.size,
			Flags: flags,
		})
	}
	format.PutHandoff(data, int(handoffOff), h)

	code := buildMoverStub(p.cfg.KernelEntry, handoffAddr, stackTop)

	if err := p.bootstrapInstall(data, dataAddr, code, codeAddr, cache); err != nil {
		return carrier{}, err
	}

	planLogf("carrier data=%#x+%#x code=%#x+%#x table=%d entries",
		dataAddr, dataSize, codeAddr, codeSize, len(order))
	return carrier{handoff: h, diagAddr: dataAddr + diagOff}, nil
}

// bootstrapInstall stages the carrier blobs in boot-time memory and runs
// the not-yet-relocated mover over a bootstrap table carrying exactly the
// two installing moves. This is the bootstrapping step: the same routine
// that will run after shutdown proves out here, while errors still have a
// reporting channel.
func (p *Planning) bootstrapInstall(data []byte, dataAddr uint64, code []byte, codeAddr uint64, cache CacheMaintenance) error {
	bootTableSize := format.TableSize(2)
	stageSize := bootTableSize + format.AlignUp(uint64(len(data)), carrierAlign) + uint64(len(code))
	stage, err := p.alloc.Allocate(stageSize, carrierAlign, PlaceAnywhere)
	if err != nil {
		return fmt.Errorf("reloc: carrier staging size=%#x: %w", stageSize, err)
	}
	dataStage := stage + bootTableSize
	codeStage := stage + bootTableSize + format.AlignUp(uint64(len(data)), carrierAlign)

	blob := make([]byte, stageSize)
	format.PutEntry(blob, 0, format.Entry{
		Dest: dataAddr,
		Src:  dataStage,
		Size: uint64(len(data)),
	})
	format.PutEntry(blob, format.EntrySize, format.Entry{
		Dest:  codeAddr,
		Src:   codeStage,
		Size:  uint64(len(code)),
		Flags: format.FlagExecutable,
	})
	copy(blob[bootTableSize:], data)
	copy(blob[codeStage-stage:], code)

	if err := writeMemory(p.mem, stage, blob); err != nil {
		return err
	}
	if err := runTable(p.mem, stage, cache); err != nil {
		return fmt.Errorf("reloc: bootstrap install: %w", err)
	}
	return nil
}

func writeMemory(mem Memory, addr uint64, b []byte) error {
	dst, err := mem.Slice(addr, uint64(len(b)))
	if err != nil {
		return fmt.Errorf("reloc: staging write [%#x, +%#x): %w", addr, len(b), err)
	}
	copy(dst, b)
	return nil
}
