// Package orderbook implements the order-book store (C2): a bounded,
// single-owner-goroutine cache of per-symbol books, fed by venue
// drivers over a command mailbox and queried by the session router.
package orderbook

import "container/list"

// lru is a fixed-capacity least-recently-used cache keyed by symbol. It
// is not safe for concurrent use; the store's owner goroutine is its
// only caller, which is what lets it stay a plain map+list instead of
// needing its own locking.
type lru struct {
	capacity int
	items    map[string]*list.Element
	order    *list.List
}

type entry struct {
	key   string
	value *book
}

func newLRU(capacity int) *lru {
	if capacity <= 0 {
		capacity = 1000
	}
	return &lru{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

func (c *lru) get(key string) (*book, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

// getOrCreate returns the existing entry for key, or installs a fresh
// one via newFn, evicting the least-recently-used entry if the cache is
// at capacity.
func (c *lru) getOrCreate(key string, newFn func() *book) *book {
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*entry).value
	}
	v := newFn()
	el := c.order.PushFront(&entry{key: key, value: v})
	c.items[key] = el
	if c.order.Len() > c.capacity {
		c.evictOldest()
	}
	return v
}

func (c *lru) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.order.Remove(oldest)
	delete(c.items, oldest.Value.(*entry).key)
}

func (c *lru) len() int {
	return c.order.Len()
}
