package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

const sweepInterval = time.Hour

type CacheItem struct {
	Value     string
	ExpiresAt time.Time
}

// Cache is a TTL map of strings. Expired items are dropped on read and
// swept at most once per hour on write.
type Cache struct {
	mu        sync.Mutex
	items     map[string]CacheItem
	lastSweep time.Time
	now       func() time.Time
}

func New() *Cache {
	return &Cache{
		items:     make(map[string]CacheItem),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (c *Cache) Set(key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.items[key] = CacheItem{
		Value:     value,
		ExpiresAt: now.Add(ttl),
	}

	if now.Sub(c.lastSweep) >= sweepInterval {
		c.cleanup(now)
		c.lastSweep = now
	}
}

func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		return "", false
	}

	if c.now().After(item.ExpiresAt) {
		delete(c.items, key)
		return "", false
	}

	return item.Value, true
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// GenerateKey hashes parts into a stable key.
func GenerateKey(parts ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) cleanup(now time.Time) {
	for key, item := range c.items {
		if now.After(item.ExpiresAt) {
			delete(c.items, key)
		}
	}
}
