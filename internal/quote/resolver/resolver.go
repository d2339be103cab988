package resolver

import (
    "context"
    "time"

    "golang.org/x/sync/singleflight"

    "tickersaver/internal/quote"
    "tickersaver/internal/quote/cache"
)

// DefaultFreshnessWindow is how long a cached quote is served without any
// network call.
const DefaultFreshnessWindow = 15 * time.Minute

// Resolver answers quote requests from the cache first, then from the local
// proxy, then from the public chart API. It never fails outward: when every
// source fails the caller gets a Quote-shaped error marker instead of an
// error, so the UI can render "no data" without special-casing.
type Resolver struct {
    Local           quote.Source // optional helper-service source; failures are routine
    Direct          quote.Source // last-resort public source
    Cache           *cache.Cache
    FreshnessWindow time.Duration // <= 0 means DefaultFreshnessWindow

    // Now is a clock override for tests; nil means time.Now.
    Now func() time.Time

    sf singleflight.Group
}

// Resolve returns a quote for symbol. Each source is attempted at most once
// per resolution and the first success is written through to the cache.
// Concurrent resolutions of the same symbol are coalesced so a burst of
// requests within the freshness window still issues at most one network
// round of calls.
func (r *Resolver) Resolve(ctx context.Context, symbol string) *quote.Quote {
    sym := quote.NormalizeSymbol(symbol)
    if sym == "" {
        return quote.ErrorMarker(sym)
    }

    now := r.now()
    window := r.FreshnessWindow
    if window <= 0 { window = DefaultFreshnessWindow }

    if r.Cache != nil {
        if e, ok := r.Cache.Get(sym); ok && e.Fresh(now, window) {
            q := e.Quote
            q.Source = quote.SourceCached
            return &q
        }
    }

    v, _, _ := r.sf.Do(sym, func() (any, error) {
        return r.fetch(ctx, sym), nil
    })
    return v.(*quote.Quote)
}

func (r *Resolver) fetch(ctx context.Context, sym string) *quote.Quote {
    // Another caller may have populated the cache while we waited on the
    // singleflight slot.
    now := r.now()
    window := r.FreshnessWindow
    if window <= 0 { window = DefaultFreshnessWindow }
    if r.Cache != nil {
        if e, ok := r.Cache.Get(sym); ok && e.Fresh(now, window) {
            q := e.Quote
            q.Source = quote.SourceCached
            return &q
        }
    }

    if r.Local != nil {
        // Expected unavailability: the helper service is optional and often
        // not running, so its errors are swallowed, not surfaced.
        if q, err := r.Local.Fetch(ctx, sym); err == nil && q != nil {
            q.Source = quote.SourceLocal
            r.store(sym, *q)
            return q
        }
    }

    if r.Direct != nil {
        if q, err := r.Direct.Fetch(ctx, sym); err == nil && q != nil {
            q.Source = quote.SourceDirect
            r.store(sym, *q)
            return q
        }
    }

    // Total failure. Stale cache entries are intentionally not consulted
    // here; the caller gets the uniform error marker.
    return quote.ErrorMarker(sym)
}

func (r *Resolver) store(sym string, q quote.Quote) {
    if r.Cache == nil { return }
    r.Cache.PutAt(sym, q, r.now())
}

func (r *Resolver) now() time.Time {
    if r.Now != nil { return r.Now() }
    return time.Now()
}
