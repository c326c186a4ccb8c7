package reloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmware/esx-boot-sub001/memmap"
)

// registerRotation registers n equal-sized records whose source and
// destination windows rotate by one slot within [base, base+n*size), a
// total dependency cycle. Returns the expected bytes per destination.
func registerRotation(t *testing.T, p *Planning, img interface {
	Slice(addr, size uint64) ([]byte, error)
}, base, size uint64, n int) map[uint64][]byte {
	t.Helper()
	want := make(map[uint64][]byte)
	for i := 0; i < n; i++ {
		src := base + uint64(i)*size
		dest := base + uint64((i+1)%n)*size
		s, err := img.Slice(src, size)
		require.NoError(t, err)
		for j := range s {
			s[j] = byte(0x10*(i+1)) + byte(j)
		}
		saved := make([]byte, size)
		copy(saved, s)
		want[dest] = saved

		_, err = p.Register(Request{Category: CategoryKernel, Source: src, Size: size, Dest: dest, HasDest: true})
		require.NoError(t, err)
	}
	return want
}

func TestFinalize_BreaksRotationCycle(t *testing.T) {
	p, img, _ := newTestEnv(t, Config{KernelEntry: testKernelEntry})
	want := registerRotation(t, p, img, 0x100000, 0x100, 3)

	ex, err := p.Finalize(nil)
	require.NoError(t, err)

	stats := ex.Stats()
	assert.Equal(t, 1, stats.Cycles)
	assert.Equal(t, 1, stats.Staged)

	require.NoError(t, ex.Run(nil))
	for dest, expect := range want {
		got, err := img.Slice(dest, uint64(len(expect)))
		require.NoError(t, err)
		assert.Equal(t, expect, got, "destination %#x", dest)
	}
}

func TestFinalize_StagedSourceMovedToSafeMemory(t *testing.T) {
	p, img, mm := newTestEnv(t, Config{KernelEntry: testKernelEntry})
	base, size := uint64(0x100000), uint64(0x100)
	registerRotation(t, p, img, base, size, 3)

	ex, err := p.Finalize(nil)
	require.NoError(t, err)

	// Exactly one table entry reads from outside the original rotation
	// window: the staged copy.
	entries, err := ex.Table()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	staged := 0
	for _, e := range entries {
		if e.Src < base || e.Src >= base+3*size {
			staged++
		}
	}
	assert.Equal(t, 1, staged)

	// The staging allocation is tagged as safe memory in the map.
	safe := false
	for _, r := range mm.Describe() {
		if r.Kind == memmap.KindSafe {
			safe = true
		}
	}
	assert.True(t, safe)
}

func TestFinalize_LargerCycleTerminates(t *testing.T) {
	p, img, _ := newTestEnv(t, Config{KernelEntry: testKernelEntry})
	want := registerRotation(t, p, img, 0x100000, 0x100, 4)

	ex, err := p.Finalize(nil)
	require.NoError(t, err)

	stats := ex.Stats()
	assert.GreaterOrEqual(t, stats.Staged, 1)
	assert.LessOrEqual(t, stats.Staged, 3)

	require.NoError(t, ex.Run(nil))
	for dest, expect := range want {
		got, err := img.Slice(dest, uint64(len(expect)))
		require.NoError(t, err)
		assert.Equal(t, expect, got, "destination %#x", dest)
	}
}

func TestBreakCycle_StagesSmallestMember(t *testing.T) {
	p, img, _ := newTestEnv(t, Config{KernelEntry: testKernelEntry})

	// Rotation cycle with unequal sizes; the workaround copy must pick the
	// cheapest member.
	layout := []struct {
		src, dest, size uint64
	}{
		{0x100000, 0x101000, 0x1000},
		{0x101000, 0x102000, 0x1000},
		{0x102000, 0x100000, 0x200},
	}
	for i, l := range layout {
		s, err := img.Slice(l.src, l.size)
		require.NoError(t, err)
		for j := range s {
			s[j] = byte(0x20*(i+1)) + byte(j)
		}
		_, err = p.Register(Request{Category: CategoryKernel, Source: l.src, Size: l.size, Dest: l.dest, HasDest: true})
		require.NoError(t, err)
	}

	ex, err := p.Finalize(nil)
	require.NoError(t, err)
	require.Equal(t, 1, ex.Stats().Staged)

	entries, err := ex.Table()
	require.NoError(t, err)
	for _, e := range entries {
		if e.Src >= 0x100000 && e.Src < 0x103000 {
			continue
		}
		assert.Equal(t, uint64(0x200), e.Size, "staged entry should be the smallest cycle member")
	}
}
