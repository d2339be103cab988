package localproxy

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/url"
    "time"

    "tickersaver/internal/httpx"
    "tickersaver/internal/quote"
)

// Config controls the local-proxy source.
// The proxy is a user-run helper service; it is frequently not running at
// all, so every failure from this source is routine and the resolver
// swallows it without surfacing an error.
type Config struct {
    Name     string
    Endpoint string // e.g., http://localhost:3789
    Timeout  time.Duration
}

type Source struct {
    cfg    Config
    client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Source {
    if cfg.Name == "" { cfg.Name = "LocalProxy" }
    if cfg.Endpoint == "" { cfg.Endpoint = "http://localhost:3789" }
    if cfg.Timeout <= 0 { cfg.Timeout = 2 * time.Second }
    return &Source{cfg: cfg, client: hc}
}

func (s *Source) Name() string { return s.cfg.Name }

func (s *Source) Fetch(ctx context.Context, symbol string) (*quote.Quote, error) {
    ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
    defer cancel()

    u := s.cfg.Endpoint + "/quote/" + url.PathEscape(symbol)
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
    if err != nil { return nil, err }
    req.Header.Set("Accept", "application/json")
    resp, err := s.client.Do(ctx, req)
    if err != nil { return nil, err }
    defer resp.Body.Close()
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        return nil, fmt.Errorf("GET %s -> %d", u, resp.StatusCode)
    }
    var body proxyResponse
    if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
        return nil, fmt.Errorf("decode: %w", err)
    }
    if body.Error {
        return nil, fmt.Errorf("proxy error: %s", body.Message)
    }
    return body.toQuote(symbol), nil
}

// proxyResponse mirrors the helper service's /quote/{symbol} payload.
type proxyResponse struct {
    Error   bool   `json:"error"`
    Message string `json:"message"`

    Symbol             string              `json:"symbol"`
    Name               string              `json:"name"`
    Price              *float64            `json:"price"`
    PriceFormatted     string              `json:"priceFormatted"`
    Currency           string              `json:"currency"`
    MarketCap          *float64            `json:"marketCap"`
    MarketCapFormatted string              `json:"marketCapFormatted"`
    PreviousClose      *float64            `json:"previousClose"`
    Performance        map[string]*float64 `json:"performance"`
}

func (r *proxyResponse) toQuote(symbol string) *quote.Quote {
    q := &quote.Quote{
        Symbol:             symbol,
        DisplayName:        r.Name,
        CurrentPrice:       r.Price,
        FormattedPrice:     r.PriceFormatted,
        Currency:           r.Currency,
        MarketCap:          r.MarketCap,
        FormattedMarketCap: r.MarketCapFormatted,
        Performance:        make(map[string]*float64, 5),
        Source:             quote.SourceLocal,
    }
    if r.Symbol != "" { q.Symbol = quote.NormalizeSymbol(r.Symbol) }
    if q.DisplayName == "" { q.DisplayName = q.Symbol }
    if q.Currency == "" { q.Currency = "USD" }
    if q.FormattedPrice == "" { q.FormattedPrice = quote.FormatPrice(q.CurrentPrice) }
    if q.FormattedMarketCap == "" { q.FormattedMarketCap = quote.FormatCompact(q.MarketCap) }
    for _, p := range quote.Periods() { q.Performance[p] = r.Performance[p] }
    return q
}
