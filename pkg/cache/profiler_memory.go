package cache

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// =============================================================================
// In-Memory LRU with TTL
// =============================================================================

// memoryNode is a doubly-linked-list node; the list keeps most recently used
// entries near the head so eviction pops from the tail in O(1).
type memoryNode struct {
	key  string
	prev *memoryNode
	next *memoryNode
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is the in-process LookupCache used when no Redis is configured. It
// also fronts the language-model extractor so the three chains sharing one
// message trigger a single API call.
type Memory struct {
	mu       sync.Mutex
	maxItems int
	entries  map[string]*memoryEntry
	nodes    map[string]*memoryNode
	head     *memoryNode // dummy, most recently used side
	tail     *memoryNode // dummy, eviction side
	hits     int64
	misses   int64
}

// NewMemory creates a cache holding at most maxItems entries; zero or
// negative means 4096.
func NewMemory(maxItems int) *Memory {
	if maxItems <= 0 {
		maxItems = 4096
	}
	head := &memoryNode{}
	tail := &memoryNode{}
	head.next = tail
	tail.prev = head
	return &Memory{
		maxItems: maxItems,
		entries:  make(map[string]*memoryEntry),
		nodes:    make(map[string]*memoryNode),
		head:     head,
		tail:     tail,
	}
}

// GetJSON reads a JSON value into dest. Expired entries count as misses and
// are dropped on access.
func (m *Memory) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		if ok {
			m.remove(key)
		}
		m.misses++
		m.mu.Unlock()
		return false, nil
	}
	m.hits++
	m.touch(key)
	value := entry.value
	m.mu.Unlock()

	if err := json.Unmarshal(value, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores value as JSON under key, evicting the least recently used
// entry when full.
func (m *Memory) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxItems {
		m.evict()
	}
	m.entries[key] = &memoryEntry{value: data, expiresAt: time.Now().Add(ttl)}
	m.touch(key)
	return nil
}

// MemoryStats reports usage counters for the run report.
type MemoryStats struct {
	Items   int     `json:"items"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

func (m *Memory) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	rate := 0.0
	if total := m.hits + m.misses; total > 0 {
		rate = float64(m.hits) / float64(total)
	}
	return MemoryStats{Items: len(m.entries), Hits: m.hits, Misses: m.misses, HitRate: rate}
}

// touch moves key to the recently-used side, inserting it if new.
// Callers hold mu.
func (m *Memory) touch(key string) {
	node, ok := m.nodes[key]
	if !ok {
		node = &memoryNode{key: key}
		m.nodes[key] = node
	} else {
		node.prev.next = node.next
		node.next.prev = node.prev
	}
	node.next = m.head.next
	node.prev = m.head
	m.head.next.prev = node
	m.head.next = node
}

// remove drops key from the map and the list. Callers hold mu.
func (m *Memory) remove(key string) {
	delete(m.entries, key)
	if node, ok := m.nodes[key]; ok {
		node.prev.next = node.next
		node.next.prev = node.prev
		delete(m.nodes, key)
	}
}

// evict removes the least recently used entry. Callers hold mu.
func (m *Memory) evict() {
	lru := m.tail.prev
	if lru == m.head {
		return
	}
	m.remove(lru.key)
}
