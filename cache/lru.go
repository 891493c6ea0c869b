package cache

import (
	"container/list"
	"sync"

	"github.com/hupe1980/spdata/bundle"
	"github.com/hupe1980/spdata/model"
	"github.com/hupe1980/spdata/resource"
)

// lru is a bounded in-memory front for decoded bundles.
// Capacity is counted in entries; bytes are charged to rc when set.
type lru struct {
	mu        sync.Mutex
	capacity  int
	items     map[string]*list.Element
	evictList *list.List
	rc        *resource.Controller
}

type lruEntry struct {
	name  string
	value *model.Bundle
	size  int64
}

func newLRU(capacity int, rc *resource.Controller) *lru {
	return &lru{
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

func (c *lru) get(name string) (*model.Bundle, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[name]; ok {
		c.evictList.MoveToFront(ent)
		return ent.Value.(*lruEntry).value, true
	}
	return nil, false
}

func (c *lru) add(name string, b *model.Bundle) {
	if c == nil || c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[name]; ok {
		c.removeElement(ent)
	}

	for c.evictList.Len() >= c.capacity {
		c.removeElement(c.evictList.Back())
	}

	size := bundle.Size(b)
	// If the memory budget says no, don't cache.
	if !c.rc.TryAcquireMemory(size) {
		return
	}

	c.items[name] = c.evictList.PushFront(&lruEntry{name: name, value: b, size: size})
}

func (c *lru) remove(name string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[name]; ok {
		c.removeElement(ent)
	}
}

func (c *lru) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	kv := e.Value.(*lruEntry)
	delete(c.items, kv.name)
	c.rc.ReleaseMemory(kv.size)
}

func (c *lru) len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}
