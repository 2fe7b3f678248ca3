package search

import (
	"container/list"
	"sync"
)

// Sessions is an LRU of client sessions keyed by session id.
type Sessions struct {
	capacity int
	items    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type sessionEntry struct {
	id      string
	session *Session
}

// NewSessions creates a session cache holding at most capacity sessions.
func NewSessions(capacity int) *Sessions {
	if capacity < 1 {
		capacity = 1
	}
	return &Sessions{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the session for id, creating it if needed. The least recently
// used session is evicted when the cache is full; its in-flight turn keeps running.
func (c *Sessions) Get(id string) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[id]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*sessionEntry).session
	}

	entry := &sessionEntry{id: id, session: &Session{}}
	c.items[id] = c.lru.PushFront(entry)

	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.items, oldest.Value.(*sessionEntry).id)
		}
	}
	return entry.session
}

// Len returns the number of tracked sessions.
func (c *Sessions) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
