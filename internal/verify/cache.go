// Package verify holds one-time verification codes bound to destination
// addresses for email-change confirmation.
package verify

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// DefaultTTL is how long a stored code stays valid.
const DefaultTTL = 24 * time.Hour

type entry struct {
	code      string
	expiresAt int64 // unix millis
}

// Cache is a process-wide, time-bounded key→code store. Writes are
// last-writer-wins: a retry for the same address overwrites the previous
// code. Safe for concurrent use across sessions.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	maxSize int
}

// CacheOptions configures the cache.
type CacheOptions struct {
	// TTL is the lifetime of a stored code. Default: DefaultTTL.
	TTL time.Duration

	// MaxSize bounds the number of live entries (0 = unbounded). When
	// exceeded, the entries closest to expiry are evicted first.
	MaxSize int
}

// NewCache creates an empty verification cache.
func NewCache(opts CacheOptions) *Cache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	maxSize := opts.MaxSize
	if maxSize < 0 {
		maxSize = 0
	}
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Set stores code under key, replacing any existing entry and restarting its
// expiry clock.
func (c *Cache) Set(key, code string) {
	c.SetAt(key, code, time.Now())
}

// SetAt stores with an explicit timestamp (for testing).
func (c *Cache) SetAt(key, code string, now time.Time) {
	if key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{code: code, expiresAt: now.Add(c.ttl).UnixMilli()}
	c.prune(now.UnixMilli())
}

// Get returns the live code for key, or "" and false when no unexpired entry
// exists.
func (c *Cache) Get(key string) (string, bool) {
	return c.GetAt(key, time.Now())
}

// GetAt reads with an explicit timestamp (for testing).
func (c *Cache) GetAt(key string, now time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if now.UnixMilli() >= e.expiresAt {
		delete(c.entries, key)
		return "", false
	}
	return e.code, true
}

// Delete removes the entry for key. Called after a successful verification
// so a code cannot be replayed for the rest of its 24 hour window.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Sweep drops every expired entry and returns how many were removed.
func (c *Cache) Sweep() int {
	return c.SweepAt(time.Now())
}

// SweepAt sweeps with an explicit timestamp (for testing).
func (c *Cache) SweepAt(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := now.UnixMilli()
	removed := 0
	for key, e := range c.entries {
		if e.expiresAt <= cutoff {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Size returns the current number of entries, expired or not.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// prune enforces maxSize, evicting the entries closest to expiry first.
// Caller must hold c.mu.
func (c *Cache) prune(nowMillis int64) {
	if c.maxSize <= 0 {
		return
	}
	for key, e := range c.entries {
		if e.expiresAt <= nowMillis {
			delete(c.entries, key)
		}
	}
	for len(c.entries) > c.maxSize {
		var oldestKey string
		oldest := int64(^uint64(0) >> 1)
		for k, e := range c.entries {
			if e.expiresAt < oldest {
				oldest = e.expiresAt
				oldestKey = k
			}
		}
		if oldestKey == "" {
			break
		}
		delete(c.entries, oldestKey)
	}
}

// NewCode returns a uniformly random 6-digit verification code in
// [100000, 999999].
func NewCode() string {
	return fmt.Sprintf("%06d", 100000+rand.IntN(900000))
}
