package cache

import (
	"log/slog"
	"sync"
	"time"

	"spendwise/internal/core"
)

// SummaryCache holds monthly summaries keyed by owner and month. It satisfies
// the services change listener so writes drop stale entries.
//
// Every invalidation bumps a per-owner generation. A summary computed while
// an invalidation happened is not stored, see SetIfCurrent.
type SummaryCache struct {
	lru *LRUCache[core.SummaryResult]

	mu   sync.Mutex
	gens map[string]uint64
}

func NewSummaryCache(maxSize int, ttl time.Duration) *SummaryCache {
	return &SummaryCache{
		lru:  NewLRUCache[core.SummaryResult](maxSize, ttl),
		gens: make(map[string]uint64),
	}
}

func summaryKey(ownerID, month string) string {
	return ownerID + "|" + month
}

func (c *SummaryCache) Get(ownerID, month string) (core.SummaryResult, bool) {
	return c.lru.Get(summaryKey(ownerID, month))
}

// Generation returns the owner's current generation. Read it before
// computing a summary and hand it to SetIfCurrent.
func (c *SummaryCache) Generation(ownerID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[ownerID]
}

// SetIfCurrent stores s only if no invalidation of the owner happened since
// gen was read. It reports whether the entry was stored.
func (c *SummaryCache) SetIfCurrent(ownerID, month string, gen uint64, s core.SummaryResult) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[ownerID] != gen {
		return false
	}
	c.lru.Set(summaryKey(ownerID, month), s)
	return true
}

// Invalidate drops the given months of the owner, or all of them when months
// is empty.
func (c *SummaryCache) Invalidate(ownerID string, months []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[ownerID]++

	if len(months) == 0 {
		n := c.lru.DeletePrefix(ownerID + "|")
		slog.Debug("Summary cache invalidated", "owner_id", ownerID, "entries", n)
		return
	}
	for _, m := range months {
		c.lru.Delete(summaryKey(ownerID, m))
	}
	slog.Debug("Summary cache invalidated", "owner_id", ownerID, "months", months)
}

func (c *SummaryCache) CleanExpired() int { return c.lru.CleanExpired() }

func (c *SummaryCache) Stats() Stats { return c.lru.Stats() }
