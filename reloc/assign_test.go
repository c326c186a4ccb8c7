package reloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmware/esx-boot-sub001/internal/format"
	"github.com/vmware/esx-boot-sub001/memmap"
)

func TestAssignAddresses_FixedKernelSegments(t *testing.T) {
	p, _, _ := newTestEnv(t, Config{KernelEntry: testKernelEntry})

	h1, err := p.Register(Request{Category: CategoryKernel, Source: 0x800000, Size: 0x2000, Dest: 0x200000, HasDest: true, Align: 0x1000})
	require.NoError(t, err)
	h2, err := p.Register(Request{Category: CategoryKernel, Source: 0x802000, Size: 0x1000, Dest: 0x203000, HasDest: true, Align: 0x1000})
	require.NoError(t, err)

	require.NoError(t, p.AssignAddresses())

	d1, err := p.Destination(h1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x200000), d1)
	d2, err := p.Destination(h2)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x203000), d2)
}

func TestAssignAddresses_KernelWithoutDest(t *testing.T) {
	p, _, _ := newTestEnv(t, Config{KernelEntry: testKernelEntry})

	_, err := p.Register(Request{Category: CategoryKernel, Source: 0x800000, Size: 0x1000})
	require.NoError(t, err)
	assert.ErrorIs(t, p.AssignAddresses(), ErrInconsistentTable)
}

func TestAssignAddresses_FixedOverlapRejected(t *testing.T) {
	p, _, _ := newTestEnv(t, Config{KernelEntry: testKernelEntry})

	_, err := p.Register(Request{Category: CategoryKernel, Source: 0x800000, Size: 100, Dest: 50, HasDest: true})
	require.NoError(t, err)
	_, err = p.Register(Request{Category: CategoryKernel, Source: 0x800100, Size: 100, Dest: 100, HasDest: true})
	require.NoError(t, err)

	assert.ErrorIs(t, p.AssignAddresses(), ErrInconsistentTable)
}

func TestAssignAddresses_FixedMisaligned(t *testing.T) {
	p, _, _ := newTestEnv(t, Config{KernelEntry: testKernelEntry})

	_, err := p.Register(Request{Category: CategoryKernel, Source: 0x800000, Size: 0x1000, Dest: 0x200010, HasDest: true, Align: 0x1000})
	require.NoError(t, err)
	assert.ErrorIs(t, p.AssignAddresses(), ErrInconsistentTable)
}

func TestAssignAddresses_ModulesPackedAboveKernel(t *testing.T) {
	p, _, _ := newTestEnv(t, Config{KernelEntry: testKernelEntry})

	_, err := p.Register(Request{Category: CategoryKernel, Source: 0x800000, Size: 0x1000, Dest: 0x200000, HasDest: true, Align: 0x1000})
	require.NoError(t, err)
	m1, err := p.Register(Request{Category: CategoryModule, Source: 0x900000, Size: 0x800, Align: 0x100})
	require.NoError(t, err)
	m2, err := p.Register(Request{Category: CategoryModule, Source: 0xA00000, Size: 0x123})
	require.NoError(t, err)

	require.NoError(t, p.AssignAddresses())

	// Packed contiguously starting at the first page above the kernel.
	d1, err := p.Destination(m1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x201000), d1)
	d2, err := p.Destination(m2)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x201800), d2)
}

func TestAssignAddresses_PreferredBaseOverride(t *testing.T) {
	p, _, _ := newTestEnv(t, Config{KernelEntry: testKernelEntry, PreferredBase: 0x1000000})

	m, err := p.Register(Request{Category: CategoryModule, Source: 0x900000, Size: 0x1000})
	require.NoError(t, err)
	require.NoError(t, p.AssignAddresses())

	d, err := p.Destination(m)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1000000), d)
}

func TestAssignAddresses_ContiguousWithinConservativeSpan(t *testing.T) {
	sizes := []uint64{0x700, 0x123, 0x1000, 0x40}
	aligns := []uint64{0x100, 1, 0x1000, 0x10}
	maxAlign := uint64(0x1000)
	var span uint64
	for _, s := range sizes {
		span += format.AlignUp(s, maxAlign)
	}

	// Registration order must not change the fact that the whole group
	// lands inside the conservatively sized span.
	orders := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {2, 0, 3, 1}}
	for _, ord := range orders {
		p, _, _ := newTestEnv(t, Config{KernelEntry: testKernelEntry, PreferredBase: 0x1000000})
		handles := make(map[int]Handle)
		for _, i := range ord {
			h, err := p.Register(Request{Category: CategoryModule, Source: 0x900000 + uint64(i)*0x10000, Size: sizes[i], Align: aligns[i]})
			require.NoError(t, err)
			handles[i] = h
		}
		require.NoError(t, p.AssignAddresses())

		for i, h := range handles {
			d, err := p.Destination(h)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, d, uint64(0x1000000))
			assert.LessOrEqual(t, d+sizes[i], uint64(0x1000000)+span)
			if aligns[i] > 1 {
				assert.Zero(t, d%aligns[i])
			}
		}
	}
}

func TestAssignAddresses_ScatteredFallback(t *testing.T) {
	// Two one-page islands of available memory: no contiguous span fits
	// both records, so each is placed independently.
	mm, err := memmap.New(
		memmap.Range{Start: 0x100000, Size: 0x1000, Kind: memmap.KindAvailable},
		memmap.Range{Start: 0x200000, Size: 0x1000, Kind: memmap.KindAvailable},
	)
	require.NoError(t, err)
	p := New(Config{KernelEntry: testKernelEntry}, mm, nil)

	h1, err := p.Register(Request{Category: CategoryModule, ZeroFill: true, Size: 0x1000})
	require.NoError(t, err)
	h2, err := p.Register(Request{Category: CategoryModule, ZeroFill: true, Size: 0x1000})
	require.NoError(t, err)

	require.NoError(t, p.AssignAddresses())

	d1, err := p.Destination(h1)
	require.NoError(t, err)
	d2, err := p.Destination(h2)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x100000), d1)
	assert.Equal(t, uint64(0x200000), d2)
}

func TestAssignAddresses_CategoryFailsAtomically(t *testing.T) {
	// One island big enough for the first record but not the second: the
	// scattered fallback fails partway through, and the category must fail
	// as a whole with no destination left behind.
	mm, err := memmap.New(memmap.Range{Start: 0x100000, Size: 0x1000, Kind: memmap.KindAvailable})
	require.NoError(t, err)
	p := New(Config{KernelEntry: testKernelEntry}, mm, nil)

	h1, err := p.Register(Request{Category: CategoryModule, ZeroFill: true, Size: 0x800})
	require.NoError(t, err)
	h2, err := p.Register(Request{Category: CategoryModule, ZeroFill: true, Size: 0x2000})
	require.NoError(t, err)

	require.ErrorIs(t, p.AssignAddresses(), memmap.ErrOutOfMemory)

	_, err = p.Destination(h1)
	assert.ErrorIs(t, err, ErrNotAssigned)
	_, err = p.Destination(h2)
	assert.ErrorIs(t, err, ErrNotAssigned)
}

func TestAssignAddresses_OutOfMemory(t *testing.T) {
	mm, err := memmap.New(memmap.Range{Start: 0x100000, Size: 0x1000, Kind: memmap.KindAvailable})
	require.NoError(t, err)
	p := New(Config{KernelEntry: testKernelEntry}, mm, nil)

	_, err = p.Register(Request{Category: CategoryModule, ZeroFill: true, Size: 0x10000})
	require.NoError(t, err)
	assert.ErrorIs(t, p.AssignAddresses(), memmap.ErrOutOfMemory)
}

func TestAssignAddresses_AvoidsOwnSource(t *testing.T) {
	p, _, _ := newTestEnv(t, Config{KernelEntry: testKernelEntry})

	// Source sits at the lowest allocatable address; the chosen destination
	// must not land on top of it.
	src, size := uint64(0x100000), uint64(0x2000)
	h, err := p.Register(Request{Category: CategoryModule, Source: src, Size: size})
	require.NoError(t, err)
	require.NoError(t, p.AssignAddresses())

	d, err := p.Destination(h)
	require.NoError(t, err)
	overlaps := d < src+size && src < d+size
	assert.False(t, overlaps, "destination [%#x, +%#x) overlaps source", d, size)
}

func TestAssignAddresses_Idempotent(t *testing.T) {
	p, _, _ := newTestEnv(t, Config{KernelEntry: testKernelEntry})

	h, err := p.Register(Request{Category: CategoryModule, Source: 0x900000, Size: 0x1000})
	require.NoError(t, err)
	require.NoError(t, p.AssignAddresses())
	d1, err := p.Destination(h)
	require.NoError(t, err)

	require.NoError(t, p.AssignAddresses())
	d2, err := p.Destination(h)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}
