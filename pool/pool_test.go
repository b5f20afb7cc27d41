// File: pool/pool_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool_test

import (
	"strings"
	"testing"

	"github.com/momentics/hioload-frame/pool"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeList_LIFOAndLimit(t *testing.T) {
	f := pool.NewFreeList[int](2)

	_, ok := f.Get()
	assert.False(t, ok)

	assert.True(t, f.Put(1))
	assert.True(t, f.Put(2))
	assert.False(t, f.Put(3), "list is full")

	v, ok := f.Get()
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, f.Len())

	s := f.Stats()
	assert.Equal(t, pool.Stats{Acquired: 2, Allocated: 1, Released: 3, Dropped: 1, Free: 1}, s)
	assert.EqualValues(t, -1, s.InUse())
}

func TestFreeList_Unbounded(t *testing.T) {
	f := pool.NewFreeList[string](0)
	for i := 0; i < 100; i++ {
		assert.True(t, f.Put("x"))
	}
	assert.Equal(t, 100, f.Len())
}

// counter is a fake allocation context.
type counter struct {
	key   int
	stats pool.Stats
}

func (c *counter) PoolStats() map[string]pool.Stats {
	return map[string]pool.Stats{"segment": c.stats}
}

func newManager(groups int) (*pool.Manager[*counter], *int) {
	created := 0
	m := pool.NewManager(groups, func(key int) *counter {
		created++
		return &counter{key: key, stats: pool.Stats{Acquired: int64(key + 1), Free: 1}}
	})
	return m, &created
}

func TestManager_GetIsLazyAndStable(t *testing.T) {
	m, created := newManager(4)
	assert.Equal(t, 0, m.Len())

	a := m.Get(1)
	assert.Same(t, a, m.Get(1))
	assert.Equal(t, 1, *created)
	assert.Equal(t, 1, m.Len())
}

func TestManager_PickWrapsIntoGroups(t *testing.T) {
	m, _ := newManager(3)
	assert.Equal(t, 3, m.Groups())
	assert.Equal(t, 1, m.Pick(7).key)
	assert.Equal(t, 0, m.Pick(9).key)

	single, _ := newManager(0)
	assert.Equal(t, 1, single.Groups())
	assert.Equal(t, 0, single.Pick(12345).key)
}

func TestManager_Totals(t *testing.T) {
	m, _ := newManager(4)
	m.Get(0)
	m.Get(2)

	snap := m.Snapshot()
	require.Len(t, snap, 2)
	assert.EqualValues(t, 3, snap[2]["segment"].Acquired)

	tot := m.Totals()["segment"]
	assert.EqualValues(t, 4, tot.Acquired)
	assert.EqualValues(t, 2, tot.Free)
}

func TestCollector_ExportsPerGroup(t *testing.T) {
	m, _ := newManager(2)
	m.Get(0)
	m.Get(1)
	c := pool.NewCollector("test", m)

	// Five series per group and kind.
	assert.Equal(t, 10, testutil.CollectAndCount(c))

	expected := `
# HELP test_pool_free Idle objects held by the free list
# TYPE test_pool_free gauge
test_pool_free{group="0",kind="segment"} 1
test_pool_free{group="1",kind="segment"} 1
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "test_pool_free"))
}
