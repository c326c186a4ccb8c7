package reloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_NoDependencies(t *testing.T) {
	p := planOf(
		rec(0x1000, 0x10000, 0x100),
		rec(0x2000, 0x20000, 0x100),
		rec(0x3000, 0x30000, 0x100),
	)
	order := identityOrder(3)

	stats, err := p.resolve(order)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Zero(t, stats.Moves)
	assert.Zero(t, stats.Cycles)
	assert.Zero(t, stats.Staged)
}

func TestResolve_DependencyChain(t *testing.T) {
	// Each record's destination overlaps the next one's source, so the
	// chain must execute back to front.
	p := planOf(
		rec(0x1000, 0x2000, 0x100),
		rec(0x2000, 0x3000, 0x100),
		rec(0x3000, 0x4000, 0x100),
	)
	order := identityOrder(3)

	stats, err := p.resolve(order)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, order)
	assert.Equal(t, 2, stats.Moves)
	assert.Zero(t, stats.Cycles)
}

func TestResolve_Idempotent(t *testing.T) {
	p := planOf(
		rec(0x1000, 0x2000, 0x100),
		rec(0x2000, 0x3000, 0x100),
	)
	order := identityOrder(2)

	_, err := p.resolve(order)
	require.NoError(t, err)
	resolved := append([]int(nil), order...)

	stats, err := p.resolve(order)
	require.NoError(t, err)
	assert.Equal(t, resolved, order)
	assert.Zero(t, stats.Moves)
	assert.Zero(t, stats.Cycles)
}

func TestResolve_StableAmongIndependent(t *testing.T) {
	// One dependent record among independents: only it moves, the rest
	// keep their registration order.
	p := planOf(
		rec(0x1000, 0x5000, 0x100), // depends on record 3
		rec(0x2000, 0x20000, 0x100),
		rec(0x3000, 0x30000, 0x100),
		rec(0x5000, 0x50000, 0x100),
	)
	order := identityOrder(4)

	stats, err := p.resolve(order)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 0}, order)
	assert.Zero(t, stats.Cycles)
	assert.Positive(t, stats.Moves)
}

func TestResolve_ZeroFillBreaksNothing(t *testing.T) {
	// A zero-fill record has no source and can never be depended on, but
	// it can depend on a record whose source its destination overlaps.
	z := &record{cat: CategorySysInfo, dest: 0x2000, size: 0x100, zeroFill: true, assigned: true}
	a := rec(0x2000, 0x5000, 0x100)
	p := planOf(z, a)
	order := identityOrder(2)

	stats, err := p.resolve(order)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, order)
	assert.Zero(t, stats.Cycles)
	assert.Equal(t, 1, stats.Moves)
}

func TestSrcOverlapsDest(t *testing.T) {
	a := rec(0x1000, 0x2000, 0x100)
	b := rec(0x2080, 0x9000, 0x100)
	assert.True(t, srcOverlapsDest(a, b))
	assert.False(t, srcOverlapsDest(b, a))

	// Adjacent ranges do not overlap.
	c := rec(0x2100, 0x9000, 0x100)
	assert.False(t, srcOverlapsDest(a, c))

	unassigned := &record{cat: CategoryModule, src: 0x9000, dest: 0x2000, size: 0x100}
	assert.False(t, srcOverlapsDest(unassigned, b))
}
