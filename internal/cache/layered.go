package cache

import (
	"errors"
	"time"
)

// LayeredCache reads through a fast layer into a slow one and promotes
// slow-layer hits.
type LayeredCache struct {
	fast Cache
	slow Cache
}

// NewLayeredCache builds the usual memory-over-disk stack
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return Layer(NewMemoryCache(memoryTTL, 10*time.Minute), NewDiskCache(diskDir, diskTTL))
}

// Layer stacks two arbitrary caches
func Layer(fast, slow Cache) *LayeredCache {
	return &LayeredCache{fast: fast, slow: slow}
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.fast.Get(key); found {
		return val, true
	}
	val, found := c.slow.Get(key)
	if !found {
		return nil, false
	}
	_ = c.fast.Set(key, val, 0)
	return val, true
}

func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.fast.Set(key, value, ttl); err != nil {
		return err
	}
	return c.slow.Set(key, value, ttl)
}

func (c *LayeredCache) Delete(key string) error {
	return errors.Join(c.fast.Delete(key), c.slow.Delete(key))
}

func (c *LayeredCache) Clear() error {
	return errors.Join(c.fast.Clear(), c.slow.Clear())
}
