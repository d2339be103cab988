package cache

import (
    "sync"
    "time"

    "tickersaver/internal/quote"
)

// DefaultMaxEntries caps the number of cached symbols.
const DefaultMaxEntries = 50

// Entry stores the last successfully fetched quote for one symbol.
// Entries are replaced wholesale on Put, never partially updated.
type Entry struct {
    Quote     quote.Quote
    FetchedAt time.Time

    seq uint64 // insertion order, tie-break for eviction
}

// Fresh reports whether the entry is within the freshness window at now.
func (e Entry) Fresh(now time.Time, window time.Duration) bool {
    return now.Sub(e.FetchedAt) <= window
}

// Cache is a size-bounded quote cache keyed by symbol.
// Staleness is a read-time concern of the caller: entries are never removed
// for being old, only to keep the entry count under the cap.
type Cache struct {
    MaxEntries int // <= 0 means DefaultMaxEntries

    mu      sync.RWMutex
    items   map[string]Entry
    nextSeq uint64
}

func (c *Cache) Get(symbol string) (Entry, bool) {
    c.mu.RLock()
    defer c.mu.RUnlock()
    e, ok := c.items[symbol]
    return e, ok
}

// Put stores a quote with the current time as its fetch timestamp.
func (c *Cache) Put(symbol string, q quote.Quote) {
    c.PutAt(symbol, q, time.Now())
}

// PutAt stores a quote with an explicit fetch timestamp and evicts the
// oldest-by-timestamp entries once the cap is exceeded. Equal timestamps
// fall back to insertion order, oldest inserted first.
func (c *Cache) PutAt(symbol string, q quote.Quote, fetchedAt time.Time) {
    c.mu.Lock()
    defer c.mu.Unlock()
    if c.items == nil { c.items = make(map[string]Entry) }
    c.nextSeq++
    c.items[symbol] = Entry{Quote: q, FetchedAt: fetchedAt, seq: c.nextSeq}

    max := c.MaxEntries
    if max <= 0 { max = DefaultMaxEntries }
    for len(c.items) > max {
        oldestKey := ""
        var oldest Entry
        for k, e := range c.items {
            if oldestKey == "" || e.FetchedAt.Before(oldest.FetchedAt) ||
                (e.FetchedAt.Equal(oldest.FetchedAt) && e.seq < oldest.seq) {
                oldestKey, oldest = k, e
            }
        }
        delete(c.items, oldestKey)
    }
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
    c.mu.RLock()
    defer c.mu.RUnlock()
    return len(c.items)
}
