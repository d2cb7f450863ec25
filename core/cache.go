package core

import (
	"sync"
	"time"
)

// summaryCache holds ephemeral prepared quotes keyed by request id. An
// entry is single use and expires after the ttl; preparing a new quote of
// the same kind for the same wallet supersedes the previous one.
type summaryCache struct {
	mtx     sync.Mutex
	ttl     time.Duration
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	value     interface{}
	walletID  string
	kind      string
	createdAt time.Time
}

func newSummaryCache(ttl time.Duration) *summaryCache {
	return &summaryCache{
		ttl:     ttl,
		entries: make(map[string]*cacheEntry),
	}
}

// Put stores value under requestID, evicting any prior entry of the same
// kind for the same wallet.
func (c *summaryCache) Put(requestID, walletID, kind string, value interface{}) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	for id, entry := range c.entries {
		if entry.walletID == walletID && entry.kind == kind {
			delete(c.entries, id)
		}
	}
	c.entries[requestID] = &cacheEntry{
		value:     value,
		walletID:  walletID,
		kind:      kind,
		createdAt: time.Now(),
	}
}

// Take removes and returns the entry for requestID. Expired, consumed or
// superseded entries yield ErrStaleRequest.
func (c *summaryCache) Take(requestID string) (interface{}, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	entry, ok := c.entries[requestID]
	if !ok {
		return nil, ErrStaleRequest
	}
	delete(c.entries, requestID)
	if time.Since(entry.createdAt) > c.ttl {
		return nil, ErrStaleRequest
	}
	return entry.value, nil
}
