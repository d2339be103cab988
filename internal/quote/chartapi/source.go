package chartapi

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"tickersaver/internal/quote"
)

// rangeSpec pairs a performance period with its chart range and a sampling
// interval coarse enough to keep the payload small.
type rangeSpec struct {
	period    string
	dataRange string
	interval  string
}

var historyRanges = []rangeSpec{
	{quote.Period1M, "1mo", "1d"},
	{quote.PeriodYTD, "ytd", "1d"},
	{quote.Period1Y, "1y", "1wk"},
	{quote.Period5Y, "5y", "1mo"},
}

// Source resolves quotes from the public chart API. It is the last-resort
// source: unlike the local proxy, a failure here must surface, so Fetch
// returns an explicit error when no usable current price can be obtained.
// Market capitalization is not available from the chart API and is always
// reported as nil / "N/A".
type Source struct {
	name   string
	client *ChartAPIClient
}

func New(name string, client *ChartAPIClient) *Source {
	if name == "" {
		name = "ChartAPI"
	}
	return &Source{name: name, client: client}
}

func (s *Source) Name() string { return s.name }

func (s *Source) Fetch(ctx context.Context, symbol string) (*quote.Quote, error) {
	today, err := s.client.GetChart(ctx, symbol, "1d", "5m")
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	price := today.Meta.RegularMarketPrice
	if price == nil {
		return nil, fmt.Errorf("chart %s: no usable current price", symbol)
	}

	perf := map[string]*float64{}
	prev := today.Meta.PreviousClose
	if prev == nil {
		prev = today.Meta.ChartPreviousClose
	}
	perf[quote.Period1D] = dayChange(price, prev)

	// Historical ranges are fetched concurrently. A failed range nulls that
	// one period; it never fails the whole quote.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, spec := range historyRanges {
		spec := spec
		g.Go(func() error {
			chart, err := s.client.GetChart(gctx, symbol, spec.dataRange, spec.interval)
			var change *float64
			if err == nil {
				change = percentChange(chart.Closes)
			}
			mu.Lock()
			perf[spec.period] = change
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // goroutines always return nil

	name := today.Meta.LongName
	if name == "" {
		name = today.Meta.ShortName
	}
	if name == "" {
		name = symbol
	}
	currency := today.Meta.Currency
	if currency == "" {
		currency = "USD"
	}

	return &quote.Quote{
		Symbol:             symbol,
		DisplayName:        name,
		CurrentPrice:       price,
		FormattedPrice:     quote.FormatPrice(price),
		Currency:           currency,
		MarketCap:          nil,
		FormattedMarketCap: quote.NotAvailable,
		Performance:        perf,
		Source:             quote.SourceDirect,
	}, nil
}
