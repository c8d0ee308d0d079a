// Package lru is a small thread-safe least-recently-used cache with optional
// expiry, used to keep compiled statements bounded.
package lru

import (
	"container/list"
	"sync"
	"time"
)

// EvictCallback is called when an entry leaves the cache because of size or age
type EvictCallback[K comparable, V any] func(key K, value V)

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// LRU is safe for concurrent use.
type LRU[K comparable, V any] struct {
	mu      sync.Mutex
	size    int
	ttl     time.Duration
	order   *list.List
	items   map[K]*list.Element
	onEvict EvictCallback[K, V]
	now     func() time.Time
}

// NewLRU returns a cache holding at most size entries. A size of zero or less
// disables the bound, a ttl of zero or less disables expiry.
func NewLRU[K comparable, V any](size int, onEvict EvictCallback[K, V], ttl time.Duration) *LRU[K, V] {
	if size < 0 {
		size = 0
	}
	if ttl < 0 {
		ttl = 0
	}
	return &LRU[K, V]{
		size:    size,
		ttl:     ttl,
		order:   list.New(),
		items:   make(map[K]*list.Element),
		onEvict: onEvict,
		now:     time.Now,
	}
}

// Add adds or refreshes a value. Returns true if an eviction occurred.
func (c *LRU[K, V]) Add(key K, value V) (evicted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry[K, V])
		ent.value = value
		ent.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return false
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
	if c.size > 0 && c.order.Len() > c.size {
		c.removeElement(c.order.Back())
		return true
	}
	return false
}

// Get looks up a key's value, marking it as recently used.
func (c *LRU[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, found := c.items[key]
	if !found {
		return value, false
	}
	ent := elem.Value.(*entry[K, V])
	if c.expired(ent) {
		c.removeElement(elem)
		return value, false
	}
	c.order.MoveToFront(elem)
	return ent.value, true
}

// Peek looks up a key without updating its recency.
func (c *LRU[K, V]) Peek(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, found := c.items[key]; found {
		if ent := elem.Value.(*entry[K, V]); !c.expired(ent) {
			return ent.value, true
		}
	}
	return value, false
}

// Remove removes key, returning whether it was present.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
		return true
	}
	return false
}

// Keys returns live keys from oldest to newest.
func (c *LRU[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.items))
	for elem := c.order.Back(); elem != nil; elem = elem.Prev() {
		if ent := elem.Value.(*entry[K, V]); !c.expired(ent) {
			keys = append(keys, ent.key)
		}
	}
	return keys
}

// Len returns the number of entries, expired ones included until touched.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Purge clears the cache, calling onEvict for every entry.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for elem := c.order.Back(); elem != nil; elem = c.order.Back() {
		c.removeElement(elem)
	}
}

func (c *LRU[K, V]) expired(ent *entry[K, V]) bool {
	return !ent.expiresAt.IsZero() && c.now().After(ent.expiresAt)
}

func (c *LRU[K, V]) removeElement(elem *list.Element) {
	ent := c.order.Remove(elem).(*entry[K, V])
	delete(c.items, ent.key)
	if c.onEvict != nil {
		c.onEvict(ent.key, ent.value)
	}
}
