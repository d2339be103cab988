package main

import (
    "context"
    "encoding/json"
    "flag"
    "fmt"
    "log"
    "net/http"
    "os"
    "strings"
    "time"

    "tickersaver/internal/config"
    "tickersaver/internal/httpx"
    "tickersaver/internal/quote"
    "tickersaver/internal/quote/cache"
    "tickersaver/internal/quote/chartapi"
    "tickersaver/internal/quote/localproxy"
    "tickersaver/internal/quote/ratelimit"
    "tickersaver/internal/quote/resolver"
)

func main() {
    var symbolsCSV string
    var proxyEndpoint string
    var chartEndpoint string
    var timeout int
    var configPath string

    flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", "AAPL"), "comma-separated ticker symbols")
    flag.StringVar(&proxyEndpoint, "proxy", getenv("LOCAL_PROXY_ENDPOINT", ""), "local proxy endpoint override")
    flag.StringVar(&chartEndpoint, "chart", getenv("CHART_API_ENDPOINT", ""), "chart API endpoint override")
    flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 15), "request timeout seconds")
    flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
    flag.Parse()

    // Load config (optional) and merge with flags/env
    cfg, err := config.Load(configPath)
    if err != nil { log.Fatalf("config: %v", err) }
    if proxyEndpoint != "" { cfg.LocalProxy.Endpoint = proxyEndpoint }
    if chartEndpoint != "" { cfg.ChartAPI.Endpoint = chartEndpoint }
    if timeout != 0 { cfg.Server.RequestTimeoutSec = timeout }

    httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

    var local quote.Source
    if cfg.LocalProxy.Enabled {
        local = localproxy.New(localproxy.Config{
            Endpoint: cfg.LocalProxy.Endpoint,
            Timeout:  time.Duration(cfg.LocalProxy.TimeoutSec) * time.Second,
        }, httpClient)
    }
    var direct quote.Source
    if cfg.ChartAPI.Enabled {
        chartClient, err := chartapi.NewChartAPIClient(
            chartapi.WithBaseURL(cfg.ChartAPI.Endpoint),
            chartapi.WithHTTPClient(httpClient.HTTP),
            chartapi.WithHeader(http.Header{
                "User-Agent": []string{"tickersaver/1.0"},
            }),
        )
        if err != nil { log.Fatalf("chart client: %v", err) }
        direct = chartapi.New("ChartAPI", chartClient)
        if cfg.ChartAPI.MaxRequestsPerMinute > 0 {
            rate := float64(cfg.ChartAPI.MaxRequestsPerMinute) / 60.0
            burst := cfg.ChartAPI.Burst
            if burst <= 0 { burst = 1 }
            direct = &ratelimit.TokenBucketSource{S: direct, TB: ratelimit.NewTokenBucket(rate, burst)}
        } else if cfg.ChartAPI.MinRequestIntervalSec > 0 {
            interval := time.Duration(cfg.ChartAPI.MinRequestIntervalSec) * time.Second
            direct = &ratelimit.MinInterval{S: direct, Interval: interval}
        }
    }
    if local == nil && direct == nil {
        log.Fatal("no quote sources enabled; check config.json or env overrides")
    }

    symbols := splitCSV(symbolsCSV)
    if len(symbols) == 0 { log.Fatal("no symbols provided") }

    r := &resolver.Resolver{Local: local, Direct: direct, Cache: &cache.Cache{MaxEntries: cfg.QuoteCache.MaxEntries}}

    ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.RequestTimeoutSec)*time.Second)
    defer cancel()

    quotes := make([]*quote.Quote, 0, len(symbols))
    for _, s := range symbols {
        q := r.Resolve(ctx, s)
        if q.Error {
            log.Printf("%s: no data from any source", q.Symbol)
        } else {
            log.Printf("%s: %s %s (%s)", q.Symbol, q.FormattedPrice, q.Currency, q.Source)
        }
        quotes = append(quotes, q)
    }

    out := struct{ Quotes []*quote.Quote `json:"quotes"` }{Quotes: quotes}
    b, _ := json.MarshalIndent(out, "", "  ")
    fmt.Println(string(b))
}

func splitCSV(s string) []string {
    parts := strings.Split(s, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" { out = append(out, p) }
    }
    return out
}

func getenv(key, def string) string { if v := os.Getenv(key); v != "" { return v }; return def }
func getenvInt(key string, def int) int {
    if v := os.Getenv(key); v != "" {
        var x int
        _, _ = fmt.Sscanf(v, "%d", &x)
        if x != 0 { return x }
    }
    return def
}
