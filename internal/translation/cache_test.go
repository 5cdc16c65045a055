package translation

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCachePolicies(t *testing.T) {
	c, err := NewCache("", 10)
	require.NoError(t, err)
	assert.IsType(t, &LRUCache{}, c)

	c, err = NewCache(PolicyClear, 10)
	require.NoError(t, err)
	assert.IsType(t, &BulkCache{}, c)

	_, err = NewCache("fifo", 10)
	require.Error(t, err)
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewLRUCache(2)
	require.NoError(t, err)

	c.Set("a", "A")
	c.Set("b", "B")
	_, ok := c.Get("a") // a is now most recent
	require.True(t, ok)
	c.Set("c", "C")

	_, ok = c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", v)
	assert.Equal(t, 2, c.Len())

	c.Clear()
	assert.Zero(t, c.Len())
}

func TestBulkCacheClearsWholesaleAtCapacity(t *testing.T) {
	c := NewBulkCache(3)
	c.Set("a", "A")
	c.Set("b", "B")
	c.Set("c", "C")
	assert.Equal(t, 3, c.Len())

	// Overwriting an existing key never clears.
	c.Set("a", "AA")
	assert.Equal(t, 3, c.Len())
	assert.Zero(t, c.Clears())

	c.Set("d", "D")
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.Clears())
	_, ok := c.Get("a")
	assert.False(t, ok)
	v, ok := c.Get("d")
	assert.True(t, ok)
	assert.Equal(t, "D", v)
}

func TestBulkCacheSetAllClearsOncePerBatch(t *testing.T) {
	c := NewBulkCache(3)
	c.SetAll(map[string]string{"a": "A", "b": "B"})
	assert.Equal(t, 2, c.Len())
	assert.Zero(t, c.Clears())

	c.SetAll(map[string]string{"c": "C", "d": "D"})
	assert.Equal(t, 1, c.Clears())
	assert.Equal(t, 2, c.Len())
	for _, k := range []string{"c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, k)
	}

	// Keys already present do not count towards the overflow.
	c.SetAll(map[string]string{"c": "CC", "d": "DD", "e": "E"})
	assert.Equal(t, 1, c.Clears())
	assert.Equal(t, 3, c.Len())
}

func TestLRUCacheSetAll(t *testing.T) {
	c, err := NewLRUCache(2)
	require.NoError(t, err)
	c.SetAll(map[string]string{"a": "A", "b": "B"})
	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", v)
	assert.Equal(t, 2, c.Len())
}

func TestDefaultCapacityApplied(t *testing.T) {
	c := NewBulkCache(0)
	for i := range DefaultCacheCapacity {
		c.Set(fmt.Sprint(i), "x")
	}
	assert.Equal(t, DefaultCacheCapacity, c.Len())
}

func TestCachesAreConcurrencySafe(t *testing.T) {
	lruCache, err := NewLRUCache(50)
	require.NoError(t, err)
	for _, c := range []Cache{lruCache, NewBulkCache(50)} {
		var wg sync.WaitGroup
		for g := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range 200 {
					k := fmt.Sprintf("%d-%d", g, i%20)
					c.Set(k, k)
					c.Get(k)
				}
			}()
		}
		wg.Wait()
		assert.LessOrEqual(t, c.Len(), 50)
	}
}
