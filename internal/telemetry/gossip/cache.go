// Package gossip implements TTL-bounded delta dissemination, pushing
// TelemetryDelta journals between relay peers. cache.go is the
// message-ID deduplication LRU that bounds the replay cache; its job has
// nothing domain-specific in it, so it stays a plain generic-ID cache.
package gossip

import (
	"sync"

	"github.com/google/uuid"
)

// DeduplicationCache is a fixed-capacity LRU of message IDs already
// processed, so a relay never re-forwards a delta it has already seen.
type DeduplicationCache struct {
	capacity int
	cache    map[uuid.UUID]*cacheNode
	head     *cacheNode
	tail     *cacheNode
	mutex    sync.RWMutex
}

type cacheNode struct {
	key  uuid.UUID
	prev *cacheNode
	next *cacheNode
}

// NewDeduplicationCache returns a cache bounded to capacity entries
// (defaulting to 1000 if capacity <= 0).
func NewDeduplicationCache(capacity int) *DeduplicationCache {
	if capacity <= 0 {
		capacity = 1000
	}
	head := &cacheNode{}
	tail := &cacheNode{}
	head.next = tail
	tail.prev = head
	return &DeduplicationCache{
		capacity: capacity,
		cache:    make(map[uuid.UUID]*cacheNode),
		head:     head,
		tail:     tail,
	}
}

// Contains reports whether id has already been seen.
func (dc *DeduplicationCache) Contains(id uuid.UUID) bool {
	dc.mutex.RLock()
	defer dc.mutex.RUnlock()
	_, exists := dc.cache[id]
	return exists
}

// Add records id as seen, evicting the least-recently-used entry if the
// cache is over capacity.
func (dc *DeduplicationCache) Add(id uuid.UUID) {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()

	if node, exists := dc.cache[id]; exists {
		dc.moveToHead(node)
		return
	}

	newNode := &cacheNode{key: id}
	dc.cache[id] = newNode
	dc.addToHead(newNode)

	if len(dc.cache) > dc.capacity {
		tail := dc.removeTail()
		delete(dc.cache, tail.key)
	}
}

// Size returns the current number of cached IDs.
func (dc *DeduplicationCache) Size() int {
	dc.mutex.RLock()
	defer dc.mutex.RUnlock()
	return len(dc.cache)
}

func (dc *DeduplicationCache) addToHead(node *cacheNode) {
	node.prev = dc.head
	node.next = dc.head.next
	dc.head.next.prev = node
	dc.head.next = node
}

func (dc *DeduplicationCache) removeNode(node *cacheNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
}

func (dc *DeduplicationCache) moveToHead(node *cacheNode) {
	dc.removeNode(node)
	dc.addToHead(node)
}

func (dc *DeduplicationCache) removeTail() *cacheNode {
	lastNode := dc.tail.prev
	dc.removeNode(lastNode)
	return lastNode
}
