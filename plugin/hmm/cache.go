package hmm

import (
	"container/list"
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ModelCache is an LRU cache of loaded models keyed by model identity.
// Concurrent misses for the same key share a single load.
type ModelCache struct {
	capacity int
	mu       sync.RWMutex
	group    singleflight.Group

	cache map[string]*entry
	order *list.List // Doubly linked list for LRU ordering

	// gens is bumped by Invalidate; a load only stores its model if the
	// generation it started under is still current.
	gens     map[string]uint64
	inflight map[string]int
}

type entry struct {
	key     string
	model   *Model
	element *list.Element
}

var defaultCache = NewModelCache(4)

// DefaultCache returns the process-wide model cache.
func DefaultCache() *ModelCache {
	return defaultCache
}

// NewModelCache creates a new model cache.
func NewModelCache(capacity int) *ModelCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &ModelCache{
		capacity: capacity,
		cache:    make(map[string]*entry),
		order:    list.New(),
		gens:     make(map[string]uint64),
		inflight: make(map[string]int),
	}
}

// Get retrieves a model from the cache.
func (c *ModelCache) Get(key string) (*Model, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(e.element)
	return e.model, true
}

// Set stores a model in the cache.
func (c *ModelCache) Set(key string, m *Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, m)
}

// set stores m under key. Must be called with lock held.
func (c *ModelCache) set(key string, m *Model) {
	if e, ok := c.cache[key]; ok {
		e.model = m
		c.order.MoveToFront(e.element)
		return
	}

	for len(c.cache) >= c.capacity {
		c.evictOldest()
	}

	e := &entry{key: key, model: m}
	e.element = c.order.PushFront(e)
	c.cache[key] = e
}

// GetOrLoad returns the cached model for key, calling load on a miss.
// The shared load is detached from the caller's cancellation; a canceled
// caller stops waiting but the load finishes for the others.
func (c *ModelCache) GetOrLoad(ctx context.Context, key string, load func(context.Context) (*Model, error)) (*Model, error) {
	if m, ok := c.Get(key); ok {
		return m, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		gen, cached, ok := c.beginLoad(key)
		if ok {
			c.endLoad(key, gen, nil)
			return cached, nil
		}
		m, err := load(loadCtx)
		if err != nil {
			c.endLoad(key, gen, nil)
			return nil, err
		}
		c.endLoad(key, gen, m)
		return m, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Model), nil
	}
}

// beginLoad registers a load for key and returns the generation it runs
// under, plus the cached model if one appeared meanwhile.
func (c *ModelCache) beginLoad(key string) (uint64, *Model, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight[key]++
	if e, ok := c.cache[key]; ok {
		c.order.MoveToFront(e.element)
		return c.gens[key], e.model, true
	}
	return c.gens[key], nil, false
}

// endLoad unregisters a load and stores m unless key was invalidated since
// the load began.
func (c *ModelCache) endLoad(key string, gen uint64, m *Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[key]--; c.inflight[key] <= 0 {
		delete(c.inflight, key)
	}
	if m != nil && c.gens[key] == gen {
		c.set(key, m)
	}
}

// Invalidate removes entries matching the pattern and abandons loads in
// flight for them: later callers start a fresh load, and the abandoned load
// does not store its result.
// Supports * wildcard at the end (e.g., "sqlite:/data/hmm.db:*").
func (c *ModelCache) Invalidate(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !strings.Contains(pattern, "*") {
		c.abandon(pattern)
		if e, ok := c.cache[pattern]; ok {
			c.removeEntry(e)
			return 1
		}
		return 0
	}

	count := 0
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.inflight {
		if strings.HasPrefix(key, prefix) {
			c.abandon(key)
		}
	}
	for key, e := range c.cache {
		if strings.HasPrefix(key, prefix) {
			c.abandon(key)
			c.removeEntry(e)
			count++
		}
	}
	return count
}

// abandon bumps the generation of key and detaches its in-flight load.
// Must be called with lock held.
func (c *ModelCache) abandon(key string) {
	c.gens[key]++
	c.group.Forget(key)
}

// Size returns the number of cached models.
func (c *ModelCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Clear removes all entries from the cache.
func (c *ModelCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.inflight {
		c.abandon(key)
	}
	for key := range c.cache {
		c.abandon(key)
	}
	c.cache = make(map[string]*entry)
	c.order.Init()
}

// evictOldest removes the least recently used entry.
// Must be called with lock held.
func (c *ModelCache) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.removeEntry(oldest.Value.(*entry))
}

// removeEntry removes an entry from the cache.
// Must be called with lock held.
func (c *ModelCache) removeEntry(e *entry) {
	c.order.Remove(e.element)
	delete(c.cache, e.key)
}
