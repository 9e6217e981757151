package cache

import (
	"container/list"
	"sync"
)

const DEFAULT_CACHE_SIZE = 500

type entry[K comparable, V any] struct {
	key K
	val V
}

type Stats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	HitRate   float64 `json:"hit_rate"`
}

// 带最近使用淘汰的有界缓存，容量在创建时固定
type LRU[K comparable, V any] struct {
	mu      sync.Mutex
	ll      *list.List
	items   map[K]*list.Element
	maxSize int

	hits      uint64
	misses    uint64
	evictions uint64
}

func New[K comparable, V any](maxSize int) *LRU[K, V] {
	if maxSize <= 0 {
		maxSize = DEFAULT_CACHE_SIZE
	}
	return &LRU[K, V]{
		ll:      list.New(),
		items:   make(map[K]*list.Element, maxSize),
		maxSize: maxSize,
	}
}

func (c *LRU[K, V]) Get(key K) (val V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return
	}
	c.hits++
	c.ll.MoveToFront(el)
	val = el.Value.(*entry[K, V]).val
	return
}

func (c *LRU[K, V]) Set(key K, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
	for len(c.items) >= c.maxSize {
		c.evictOldest()
	}
	c.items[key] = c.ll.PushFront(&entry[K, V]{key: key, val: val})
}

// 不影响最近使用次序
func (c *LRU[K, V]) Has(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

func (c *LRU[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
	return ok
}

func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[K]*list.Element, c.maxSize)
}

func (c *LRU[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.items),
		MaxSize:   c.maxSize,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total) * 100
	}
	return s
}

func (c *LRU[K, V]) evictOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry[K, V]).key)
	c.evictions++
}
