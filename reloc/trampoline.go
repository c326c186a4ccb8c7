package reloc

import "github.com/vmware/esx-boot-sub001/internal/format"

// The mover stub is the aarch64 hand-off shim installed in safe memory.
// Once the moves are done it switches to the carrier stack, puts the
// hand-off record address in x0 for the kernel, and branches to the entry
// point. Every load is PC-relative into the literal pool below the code,
// so the stub contains no reference to its own load address: its bytes are
// identical wherever it is copied, which is what lets the carrier install
// it anywhere in safe memory.
//
// Layout:
//
//	stub[0 - 3]   : 0x580000c4 - ldr x4, #0x18 (PC relative: stub[24 - 31])
//	stub[4 - 7]   : 0x580000e0 - ldr x0, #0x1c (PC relative: stub[32 - 39])
//	stub[8 - 11]  : 0xaa1f03e1 - mov x1, xzr
//	stub[12 - 15] : 0x580000e2 - ldr x2, #0x1c (PC relative: stub[40 - 47])
//	stub[16 - 19] : 0x9100005f - mov sp, x2
//	stub[20 - 23] : 0xd61f0080 - br  x4
//	stub[24 - 31] : kernel entry address
//	stub[32 - 39] : hand-off record address
//	stub[40 - 47] : stack top address
const moverStubSize = 48

// buildMoverStub assembles the stub for the given kernel entry, hand-off
// record address, and stack top.
func buildMoverStub(entry, handoffAddr, stackTop uint64) []byte {
	stub := make([]byte, moverStubSize)
	format.PutU32(stub, 0, 0x580000c4)
	format.PutU32(stub, 4, 0x580000e0)
	format.PutU32(stub, 8, 0xaa1f03e1)
	format.PutU32(stub, 12, 0x580000e2)
	format.PutU32(stub, 16, 0x9100005f)
	format.PutU32(stub, 20, 0xd61f0080)
	format.PutU64(stub, 24, entry)
	format.PutU64(stub, 32, handoffAddr)
	format.PutU64(stub, 40, stackTop)
	return stub
}
