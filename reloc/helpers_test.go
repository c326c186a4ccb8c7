package reloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vmware/esx-boot-sub001/internal/memimage"
	"github.com/vmware/esx-boot-sub001/memmap"
)

const (
	testMemSize     = 64 << 20
	testKernelEntry = 0x200000
)

// newTestEnv builds a planner over 64MiB of simulated memory based at 0.
// Everything above the hidden low megabyte starts out available.
func newTestEnv(t *testing.T, cfg Config) (*Planning, *memimage.Image, *memmap.Map) {
	t.Helper()
	img := memimage.New(0, testMemSize)
	mm, err := memmap.New(memmap.Range{Start: 0, Size: testMemSize, Kind: memmap.KindAvailable})
	require.NoError(t, err)
	return New(cfg, mm, img), img, mm
}

func fillPattern(t *testing.T, img *memimage.Image, addr, size uint64, seed byte) []byte {
	t.Helper()
	s, err := img.Slice(addr, size)
	require.NoError(t, err)
	for i := range s {
		s[i] = seed + byte(i)
	}
	out := make([]byte, size)
	copy(out, s)
	return out
}

// rec builds an assigned module record for exercising the resolver directly.
func rec(src, dest, size uint64) *record {
	return &record{cat: CategoryModule, src: src, dest: dest, size: size, assigned: true}
}

func planOf(recs ...*record) *Planning {
	return &Planning{cfg: DefaultConfig, recs: recs}
}

func identityOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// recordingCache captures cache maintenance calls for assertions.
type recordingCache struct {
	flushes [][2]uint64
	syncs   int
}

func (c *recordingCache) FlushDataRange(addr, size uint64) {
	c.flushes = append(c.flushes, [2]uint64{addr, size})
}

func (c *recordingCache) SyncInstructionCache() { c.syncs++ }
