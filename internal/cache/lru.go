// Package cache provides a small LRU cache used by the object store's read
// path. Since the system is single-threaded and synchronous, the cache
// takes no lock of its own.
package cache

import (
	"errors"

	lru "github.com/golang/groupcache/lru"
)

// ErrInvalidMaxEntries is returned by NewLRU when maxEntries is not a
// positive number
var ErrInvalidMaxEntries = errors.New("maxEntries must be greater than 0")

// LRUKey may be any value that is comparable. See http://golang.org/ref/spec#Comparison_operators
type LRUKey = lru.Key

// LRU represents a LRU cache
type LRU struct {
	cache *lru.Cache
}

// NewLRU creates a new LRU Cache holding at most maxEntries items.
func NewLRU(maxEntries int) (*LRU, error) {
	if maxEntries <= 0 {
		return nil, ErrInvalidMaxEntries
	}
	return &LRU{
		cache: lru.New(maxEntries),
	}, nil
}

// Get looks up a key's value from the cache.
func (c *LRU) Get(key LRUKey) (value interface{}, ok bool) {
	return c.cache.Get(key)
}

// Add adds a value to the cache.
func (c *LRU) Add(key LRUKey, value interface{}) {
	c.cache.Add(key, value)
}

// Clear purges all stored items from the cache.
func (c *LRU) Clear() {
	c.cache.Clear()
}

// Len returns the number of items in the cache.
func (c *LRU) Len() int {
	return c.cache.Len()
}
