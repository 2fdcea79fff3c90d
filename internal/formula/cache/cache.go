// Package cache provides the bounded memoization layer wrapping the
// formula parser. Keys are exact formula strings (no normalization of
// whitespace or quoting).
package cache

import (
	"container/list"
	"sync"

	"github.com/matthewbaird/formulac/internal/formula"
)

// DefaultCapacity bounds the cache when no capacity is configured.
const DefaultCapacity = 1000

type entry struct {
	key string
	ast formula.Node
}

// Cache memoizes parsed ASTs keyed by the exact formula string. On
// overflow the earliest-inserted entry is evicted, in insertion order
// rather than recency; formulas are short-lived editor state and true LRU
// bookkeeping on every hit is not worth it. Safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List // insertion order, oldest at back
	items    map[string]*list.Element
}

// New creates a cache with the given capacity. A capacity <= 0 falls back
// to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the cached AST for an exact formula string, or (nil, false).
// A hit does not refresh the entry's eviction position.
func (c *Cache) Get(key string) (formula.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	return el.Value.(*entry).ast, true
}

// Set stores an AST, evicting the earliest-inserted entry when full.
func (c *Cache) Set(key string, ast formula.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).ast = ast
		return
	}

	if c.ll.Len() >= c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}

	c.items[key] = c.ll.PushFront(&entry{key: key, ast: ast})
}

// Len returns the number of cached formulas.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Capacity returns the maximum number of entries the cache can hold.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}
