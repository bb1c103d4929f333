// Package cache provides an injected, TTL-bound memoization collaborator
// keyed by document content hash.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/finlens/statement-analyzer/internal/domain"
)

type entry struct {
	result  *domain.AnalysisResult
	expires time.Time
}

// Cache memoizes analysis results. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Key derives the cache key for a document's content.
func Key(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached result for key, or false when absent or expired.
func (c *Cache) Get(key string) (*domain.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.result, true
}

// Put stores a result under key and opportunistically sweeps expired
// entries.
func (c *Cache) Put(key string, result *domain.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = entry{result: result, expires: now.Add(c.ttl)}
}

// Len reports the number of live entries; used by tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
