package reloc

import (
	"fmt"

	"github.com/vmware/esx-boot-sub001/internal/format"
)

// Protocol magics surfaced from the wire format for callers outside this
// module.
const (
	ProtocolMultiboot   uint32 = format.MagicMultiboot
	ProtocolESXBootInfo uint32 = format.MagicESXBootInfo
)

// Handoff is the decoded hand-off record: everything the final jump and
// the kernel need from the bootloader.
type Handoff struct {
	KernelEntry uint64
	TableAddr   uint64
	MoverEntry  uint64
	Magic       uint32
}

// Config tunes a planning pipeline. The zero value of any field falls back
// to DefaultConfig.
type Config struct {
	// MaxRecords bounds the registry. The table is itself relocated, so
	// its maximum size must be known before the carrier is packaged.
	MaxRecords int

	// StackSize is the mover's working stack in the carrier block.
	StackSize uint64

	// DiagSize is the early-boot log buffer reserved in safe memory; the
	// mover reports fatal conditions there, because past firmware
	// shutdown no other channel exists.
	DiagSize uint64

	// Protocol is the boot-protocol magic recorded in the hand-off.
	Protocol uint32

	// KernelEntry is the address control transfers to once all moves are
	// done. Producers set it from the loaded image before Finalize.
	KernelEntry uint64

	// PreferredBase, when non-zero, overrides the computed
	// just-above-the-kernel preferred base for module packing.
	PreferredBase uint64
}

// DefaultConfig is the configuration used for zero Config fields.
var DefaultConfig = Config{
	MaxRecords: 1024,
	StackSize:  8 << 10,
	DiagSize:   256,
	Protocol:   format.MagicESXBootInfo,
}

// Planning is the registration-and-planning phase handle. It owns the
// relocation table exclusively; Finalize consumes it into an Executable.
type Planning struct {
	cfg         Config
	alloc       Allocator
	mem         Memory
	recs        []*record
	assignedAll bool
	sealed      bool
}

// New starts a planning pipeline over the given allocator facade and
// boot-time memory.
func New(cfg Config, alloc Allocator, mem Memory) *Planning {
	if cfg.MaxRecords == 0 {
		cfg.MaxRecords = DefaultConfig.MaxRecords
	}
	if cfg.StackSize == 0 {
		cfg.StackSize = DefaultConfig.StackSize
	}
	if cfg.DiagSize == 0 {
		cfg.DiagSize = DefaultConfig.DiagSize
	}
	if cfg.Protocol == 0 {
		cfg.Protocol = DefaultConfig.Protocol
	}
	return &Planning{cfg: cfg, alloc: alloc, mem: mem}
}

// AssignAddresses runs the allocation phase: every category receives its
// destination addresses. Producers may then run their second pass, patching
// internal pointers via Destination, before calling Finalize. Calling it
// twice is a no-op.
func (p *Planning) AssignAddresses() error {
	if p.sealed {
		return ErrSealed
	}
	if p.assignedAll {
		return nil
	}

	// Let the facade keep sources out of safe and dynamic allocations.
	if bm, ok := p.alloc.(bootMarker); ok {
		for _, r := range p.recs {
			if r.zeroFill {
				continue
			}
			if err := bm.MarkBoot(r.src, r.size); err != nil {
				return fmt.Errorf("reloc: marking boot range [%#x, +%#x): %w", r.src, r.size, err)
			}
		}
	}

	if err := p.assignAll(); err != nil {
		return err
	}
	if err := p.verifyAssigned(); err != nil {
		return err
	}
	p.assignedAll = true
	return nil
}

// Finalize runs the rest of the planning pipeline: dependency resolution
// with cycle breaking, then carrier packaging. It consumes the Planning
// handle; the caller is responsible for shutting firmware services down
// before transferring control to the mover entry in the returned hand-off.
func (p *Planning) Finalize(cache CacheMaintenance) (*Executable, error) {
	if p.sealed {
		return nil, ErrSealed
	}
	if p.cfg.KernelEntry == 0 {
		return nil, fmt.Errorf("%w: kernel entry address not set", ErrInconsistentTable)
	}
	if cache == nil {
		cache = NopCache{}
	}
	if err := p.AssignAddresses(); err != nil {
		return nil, err
	}

	order := make([]int, len(p.recs))
	for i := range order {
		order[i] = i
	}
	stats, err := p.resolve(order)
	if err != nil {
		return nil, err
	}
	planLogf("resolved %d records: %d moved, %d cycles, %d staged",
		len(order), stats.Moves, stats.Cycles, stats.Staged)

	car, err := p.packageCarrier(order, cache)
	if err != nil {
		return nil, err
	}

	p.sealed = true
	return &Executable{
		mem:       p.mem,
		handoff:   car.handoff,
		stats:     stats,
		diagAddr:  car.diagAddr,
		diagSize:  p.cfg.DiagSize,
		tableSize: format.TableSize(len(order)),
	}, nil
}

// Executable is the sealed plan. Registration and destination lookup are
// gone: the table has been reordered and serialized, and the only
// remaining operations are reading the hand-off and (in simulation)
// running the mover.
type Executable struct {
	mem       Memory
	handoff   format.Handoff
	stats     ResolveStats
	diagAddr  uint64
	diagSize  uint64
	tableSize uint64
}

// Handoff returns the hand-off record for the final jump.
func (e *Executable) Handoff() Handoff {
	return Handoff{
		KernelEntry: e.handoff.KernelEntry,
		TableAddr:   e.handoff.TableAddr,
		MoverEntry:  e.handoff.MoverEntry,
		Magic:       e.handoff.Magic,
	}
}

// Stats reports what dependency resolution did.
func (e *Executable) Stats() ResolveStats { return e.stats }

// Table decodes the relocated table from safe memory, in execution order.
func (e *Executable) Table() ([]TableEntry, error) {
	blob, err := e.mem.Slice(e.handoff.TableAddr, e.tableSize)
	if err != nil {
		return nil, err
	}
	return DecodeTable(blob)
}

// Run simulates the jump to the relocated mover: it walks the relocated
// table and performs every move and zero-fill in the resolved order. On
// failure the fatal condition is recorded in the safe-memory diagnostic
// buffer, mirroring what the real mover does when no console exists.
func (e *Executable) Run(cache CacheMaintenance) error {
	if cache == nil {
		cache = NopCache{}
	}
	if err := runTable(e.mem, e.handoff.TableAddr, cache); err != nil {
		e.recordFatal(err)
		return err
	}
	return nil
}

// DiagBytes returns the contents of the early-boot diagnostic buffer.
func (e *Executable) DiagBytes() ([]byte, error) {
	return e.mem.Slice(e.diagAddr, e.diagSize)
}

// recordFatal stores a best-effort fatal marker in the diagnostic buffer.
func (e *Executable) recordFatal(err error) {
	buf, serr := e.mem.Slice(e.diagAddr, e.diagSize)
	if serr != nil || len(buf) < 8 {
		return
	}
	format.PutU64(buf, 0, diagMagicFatal)
	msg := err.Error()
	if len(msg) > len(buf)-8 {
		msg = msg[:len(buf)-8]
	}
	copy(buf[8:], msg)
}

// diagMagicFatal marks a populated diagnostic buffer ("RELOFAIL").
const diagMagicFatal = 0x4C49_4146_4F4C_4552
