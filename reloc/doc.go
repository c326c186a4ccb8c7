// Package reloc plans and executes the final relocation of a loaded kernel
// and its auxiliary objects into their post-firmware layout.
//
// # Overview
//
// Everything the bootloader has staged in firmware-allocated memory (kernel
// segments, modules, boot-protocol info structures) must end up at its
// run-time address after firmware services are gone. The firmware heap
// disappears at hand-off, so every move is planned in advance and carried
// out by a tiny self-contained routine (the mover) running with no
// services. The hard invariant is that no move may overwrite the
// not-yet-read source of a later move.
//
// # Pipeline
//
// The engine runs in two phases enforced by the type system:
//
//   - Planning: producers Register every object; Finalize assigns
//     destination addresses per category, linearizes the table so no move
//     clobbers a later source (staging sources through safe memory to
//     break dependency cycles), and packages the mover, its stack, and the
//     hand-off record into safe memory.
//   - Executable: the sealed plan. It exposes the hand-off record for the
//     final jump and, in simulation, Run walks the relocated table exactly
//     as the mover stub would.
//
// A Planning value is consumed by Finalize; registration and destination
// lookup are compile-time unavailable on the Executable, which is what
// makes the "no lookup after reordering" contract hold.
//
// # Key Types
//
//   - Request / Handle: one registered move or zero-fill and its stable
//     reference, valid across table reordering
//   - Category: allocation grouping (kernel segment, module, system info,
//     safe carrier)
//   - Allocator: the firmware memory facade consumed, never implemented,
//     by this package (memmap.Map is the in-tree implementation)
//   - Memory: flat access to boot-time memory contents
//   - Handoff: the fixed-ABI record read by the kernel after the jump
//
// # Safe Memory
//
// The mover and its working data execute during the moves, so they live in
// memory guaranteed free of every boot-time source and every chosen
// destination. Allocations with PlaceSafe provide that guarantee; the
// carrier packages everything the mover touches into two such blocks.
package reloc
