package quote

import (
    "context"
    "strings"
)

// Performance period labels, in display order.
const (
    Period1D  = "1D"
    Period1M  = "1M"
    PeriodYTD = "YTD"
    Period1Y  = "1Y"
    Period5Y  = "5Y"
)

// Periods returns the period labels in canonical order.
func Periods() []string { return []string{Period1D, Period1M, PeriodYTD, Period1Y, Period5Y} }

// Source tags recording which adapter produced a quote.
const (
    SourceLocal  = "local"
    SourceDirect = "direct"
    SourceCached = "cached"
)

// Quote is the normalized shape returned by all sources.
// Numeric fields are nil (never NaN) when a source cannot supply them;
// the Formatted* strings are always populated, with "N/A" standing in
// for a missing value.
type Quote struct {
    Symbol             string              `json:"symbol"`
    DisplayName        string              `json:"displayName"`
    CurrentPrice       *float64            `json:"currentPrice"`
    FormattedPrice     string              `json:"formattedPrice"`
    Currency           string              `json:"currency"`
    MarketCap          *float64            `json:"marketCap"`
    FormattedMarketCap string              `json:"formattedMarketCap"`
    Performance        map[string]*float64 `json:"performanceByPeriod"`
    Source             string              `json:"sourceTag"`
    Error              bool                `json:"error,omitempty"`
}

// ErrorMarker is the Quote-shaped value returned when every source fails.
// Callers render it as "no data" without special-casing an error path.
func ErrorMarker(symbol string) *Quote {
    return &Quote{Symbol: symbol, DisplayName: symbol, Error: true}
}

type Source interface {
    Name() string
    Fetch(ctx context.Context, symbol string) (*Quote, error)
}

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
