package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/formulac/internal/formula"
)

func node(raw string) formula.Node {
	return &formula.Literal{DataType: formula.TypeNumber, Raw: raw}
}

func TestCache_GetSet(t *testing.T) {
	c := New(10)

	_, ok := c.Get("count()")
	assert.False(t, ok)

	ast := node("1")
	c.Set("count()", ast)

	got, ok := c.Get("count()")
	require.True(t, ok)
	assert.Same(t, ast, got, "cache returns the stored AST, not a copy")
	assert.Equal(t, 1, c.Len())
}

func TestCache_ExactKeyOnly(t *testing.T) {
	c := New(10)
	c.Set("count()", node("1"))

	// Whitespace variants are distinct keys.
	_, ok := c.Get("count ()")
	assert.False(t, ok)
}

func TestCache_EvictsEarliestInserted(t *testing.T) {
	c := New(3)
	c.Set("a", node("1"))
	c.Set("b", node("2"))
	c.Set("c", node("3"))

	// A hit on the oldest entry does not protect it.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("d", node("4"))

	_, ok = c.Get("a")
	assert.False(t, ok, "earliest-inserted entry is evicted")
	for _, key := range []string{"b", "c", "d"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "entry %q survives", key)
	}
	assert.Equal(t, 3, c.Len())
}

func TestCache_SetExistingKeyUpdatesInPlace(t *testing.T) {
	c := New(2)
	c.Set("a", node("1"))
	c.Set("b", node("2"))
	c.Set("a", node("10"))

	// Overwriting does not evict or grow.
	assert.Equal(t, 2, c.Len())
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "10", got.(*formula.Literal).Raw)
}

func TestCache_ZeroCapacityUsesDefault(t *testing.T) {
	c := New(0)
	assert.Equal(t, DefaultCapacity, c.Capacity())
}

func TestCache_Clear(t *testing.T) {
	c := New(10)
	c.Set("a", node("1"))
	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(50)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("formula-%d", j%20)
				c.Set(key, node("1"))
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
