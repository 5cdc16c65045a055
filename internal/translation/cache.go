package translation

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheCapacity bounds the number of remembered translations.
const DefaultCacheCapacity = 1000

// Cache policies
const (
	PolicyLRU   = "lru"
	PolicyClear = "clear"
)

// Cache maps trimmed source text to its translation. Implementations are safe
// for concurrent use and never expose their backing storage.
type Cache interface {
	Get(source string) (string, bool)
	Set(source, translated string)
	// SetAll inserts a whole batch; capacity is checked once for the batch.
	SetAll(entries map[string]string)
	Clear()
	Len() int
}

// NewCache builds a cache for the named policy. An empty policy selects LRU.
func NewCache(policy string, capacity int) (Cache, error) {
	switch policy {
	case "", PolicyLRU:
		return NewLRUCache(capacity)
	case PolicyClear:
		return NewBulkCache(capacity), nil
	default:
		return nil, fmt.Errorf("unknown cache policy %q (want %q or %q)", policy, PolicyLRU, PolicyClear)
	}
}

// LRUCache evicts the least recently used entry once capacity is reached.
type LRUCache struct {
	inner *lru.Cache
}

// NewLRUCache creates an LRU cache holding at most capacity entries.
func NewLRUCache(capacity int) (*LRUCache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	inner, err := lru.New(capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRUCache{inner: inner}, nil
}

func (c *LRUCache) Get(source string) (string, bool) {
	v, ok := c.inner.Get(source)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (c *LRUCache) Set(source, translated string) { c.inner.Add(source, translated) }

func (c *LRUCache) SetAll(entries map[string]string) {
	for k, v := range entries {
		c.inner.Add(k, v)
	}
}

func (c *LRUCache) Clear() { c.inner.Purge() }

func (c *LRUCache) Len() int { return c.inner.Len() }

// BulkCache empties itself completely when an insert would exceed capacity.
// A batch inserted with SetAll is never split by its own clear.
type BulkCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]string
	clears   int
}

// NewBulkCache creates a bulk-clearing cache holding at most capacity entries.
func NewBulkCache(capacity int) *BulkCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &BulkCache{capacity: capacity, entries: make(map[string]string)}
}

func (c *BulkCache) Get(source string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[source]
	return v, ok
}

func (c *BulkCache) Set(source, translated string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[source]; !exists && len(c.entries) >= c.capacity {
		c.entries = make(map[string]string, c.capacity)
		c.clears++
	}
	c.entries[source] = translated
}

func (c *BulkCache) SetAll(entries map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	added := 0
	for k := range entries {
		if _, exists := c.entries[k]; !exists {
			added++
		}
	}
	if added > 0 && len(c.entries)+added > c.capacity {
		c.entries = make(map[string]string, max(c.capacity, len(entries)))
		c.clears++
	}
	for k, v := range entries {
		c.entries[k] = v
	}
}

func (c *BulkCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
}

func (c *BulkCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clears returns how many times capacity forced a wholesale clear.
func (c *BulkCache) Clears() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clears
}
