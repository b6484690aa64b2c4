package cache

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/RiemaLabs/modular-indexer-ordinals/internal/metrics"
)

type entry struct {
	value  []byte
	exists bool
}

// LRUCache remembers committed values of store keys, including the fact that
// a key is absent.
type LRUCache struct {
	lru *lru.Cache
}

func NewLRUCache(capacity int) (*LRUCache, error) {
	c, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &LRUCache{lru: c}, nil
}

// Get reports the cached value, whether the key exists in the store, and
// whether the cache knew anything about it.
func (c *LRUCache) Get(key []byte) (value []byte, exists bool, ok bool) {
	v, ok := c.lru.Get(string(key))
	if !ok {
		metrics.CacheMisses.Inc()
		return nil, false, false
	}
	metrics.CacheHits.Inc()
	e := v.(entry)
	return e.value, e.exists, true
}

func (c *LRUCache) Insert(key []byte, value []byte) (evicted bool) {
	return c.lru.Add(string(key), entry{value: value, exists: true})
}

// InsertMissing records that key has no value.
func (c *LRUCache) InsertMissing(key []byte) (evicted bool) {
	return c.lru.Add(string(key), entry{})
}

func (c *LRUCache) Remove(key []byte) {
	c.lru.Remove(string(key))
}

func (c *LRUCache) Purge() {
	c.lru.Purge()
}

func (c *LRUCache) Len() int {
	return c.lru.Len()
}
