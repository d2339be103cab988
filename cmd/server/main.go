package main

import (
    "context"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"
    "compress/gzip"
    "io"
    "strings"
    "sync"

    "tickersaver/internal/config"
    "tickersaver/internal/httpx"
    "tickersaver/internal/quote"
    "tickersaver/internal/quote/cache"
    "tickersaver/internal/quote/chartapi"
    "tickersaver/internal/quote/localproxy"
    "tickersaver/internal/quote/ratelimit"
    "tickersaver/internal/quote/resolver"
    "tickersaver/internal/store"
)

func main() {
    cfgPath := os.Getenv("CONFIG_FILE")
    cfg, err := config.Load(cfgPath)
    if err != nil { log.Fatalf("config: %v", err) }
    port := cfg.Server.Port
    timeoutSec := cfg.Server.RequestTimeoutSec

    httpClient := httpx.New(time.Duration(timeoutSec) * time.Second)

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
        // Prefer token bucket with burst if RPM is set, otherwise use min-interval
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
        log.Println("warning: no quote sources enabled; every resolve will return the error marker")
    }

    st, err := store.Open(cfg.Store.Path)
    if err != nil { log.Fatalf("store: %v", err) }
    defer st.Close()

    a := &api{
        resolver: &resolver.Resolver{
            Local:           local,
            Direct:          direct,
            Cache:           &cache.Cache{MaxEntries: cfg.QuoteCache.MaxEntries},
            FreshnessWindow: time.Duration(cfg.QuoteCache.FreshnessMinutes) * time.Minute,
        },
        store: st,
    }

    srv := &http.Server{
        Addr:              ":" + port,
        Handler:           withJSONHeaders(withGzip(recoverPanic(limitBody(a.routes())))),
        ReadHeaderTimeout: 5 * time.Second,
        ReadTimeout:       15 * time.Second,
        WriteTimeout:      20 * time.Second,
        IdleTimeout:       60 * time.Second,
    }

    go func() {
        log.Printf("server listening on :%s", port)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatalf("server: %v", err)
        }
    }()

    // graceful shutdown
    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()
    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = srv.Shutdown(shutdownCtx)
}

func withJSONHeaders(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "application/json; charset=utf-8")
        // The browser extension is a cross-origin caller.
        w.Header().Set("Access-Control-Allow-Origin", "*")
        w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
        w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
        if r.Method == http.MethodOptions {
            w.WriteHeader(http.StatusNoContent)
            return
        }
        next.ServeHTTP(w, r)
    })
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
    var gzPool = sync.Pool{New: func() any {
        // Prefer best speed to reduce CPU usage since payloads are JSON
        w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
        return w
    }}
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
            next.ServeHTTP(w, r)
            return
        }
        gz := gzPool.Get().(*gzip.Writer)
        gz.Reset(w)
        defer func() {
            _ = gz.Close()
            gz.Reset(io.Discard)
            gzPool.Put(gz)
        }()
        w.Header().Set("Content-Encoding", "gzip")
        w.Header().Add("Vary", "Accept-Encoding")
        gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
        next.ServeHTTP(gw, r)
    })
}

type gzipResponseWriter struct {
    http.ResponseWriter
    Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
    return g.Writer.Write(b)
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
    const maxBody = 1 << 20 // 1MB
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.Method == http.MethodPost && r.Body != nil {
            r.Body = http.MaxBytesReader(w, r.Body, maxBody)
        }
        next.ServeHTTP(w, r)
    })
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        defer func() {
            if rec := recover(); rec != nil {
                http.Error(w, "internal server error", http.StatusInternalServerError)
            }
        }()
        next.ServeHTTP(w, r)
    })
}
