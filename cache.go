package main

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LookupCache is a bounded LRU from normalized query bytes to the boolean
// membership result for that query. It only ever makes sense in fast mode:
// the backing LineIndex is immutable there, so a cached answer can never go
// stale.
//
// The map/list bookkeeping and its locking both live inside
// hashicorp/golang-lru, which several repos in this dependency pack already
// pull in; there is no reason to hand-roll a second doubly-linked-list LRU
// next to it.
type LookupCache struct {
	inner *lru.Cache[string, bool]
}

// NewLookupCache builds a LookupCache of the given capacity. A capacity of
// 0 disables the cache entirely: callers should check for a nil return and
// skip straight to the DataSource.
func NewLookupCache(capacity int) (*LookupCache, error) {
	if capacity <= 0 {
		return nil, nil
	}
	c, err := lru.New[string, bool](capacity)
	if err != nil {
		return nil, &ConfigError{Reason: "cannot build lookup cache: " + err.Error()}
	}
	return &LookupCache{inner: c}, nil
}

// Get returns the cached result for key and whether it was present,
// promoting key to most-recently-used on a hit.
func (c *LookupCache) Get(key []byte) (bool, bool) {
	if c == nil {
		return false, false
	}
	return c.inner.Get(string(key))
}

// Put inserts or updates the cached result for key, evicting the least
// recently used entry if the cache is at capacity.
func (c *LookupCache) Put(key []byte, value bool) {
	if c == nil {
		return
	}
	c.inner.Add(string(key), value)
}

// Len reports the current number of cached entries, mainly for tests and
// metrics.
func (c *LookupCache) Len() int {
	if c == nil {
		return 0
	}
	return c.inner.Len()
}
