package config

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "strings"
)

type Server struct {
    Port              string `json:"port"`
    RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type LocalProxy struct {
    Enabled    bool   `json:"enabled"`
    Endpoint   string `json:"endpoint"`
    TimeoutSec int    `json:"timeout_sec"`
}

type ChartAPI struct {
    Enabled               bool   `json:"enabled"`
    Endpoint              string `json:"endpoint"`
    MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
    MinRequestIntervalSec int    `json:"min_request_interval_sec"`
    Burst                 int    `json:"burst"`
}

type QuoteCache struct {
    FreshnessMinutes int `json:"freshness_minutes"`
    MaxEntries       int `json:"max_entries"`
}

type Store struct {
    Path string `json:"path"`
}

type Config struct {
    Server     Server     `json:"server"`
    LocalProxy LocalProxy `json:"local_proxy"`
    ChartAPI   ChartAPI   `json:"chart_api"`
    QuoteCache QuoteCache `json:"quote_cache"`
    Store      Store      `json:"store"`
}

func Default() Config {
    return Config{
        Server: Server{Port: "8090", RequestTimeoutSec: 10},
        LocalProxy: LocalProxy{
            Enabled:    true,
            Endpoint:   "http://localhost:3789",
            TimeoutSec: 2,
        },
        ChartAPI: ChartAPI{
            Enabled:              true,
            Endpoint:             "https://query1.finance.yahoo.com",
            MaxRequestsPerMinute: 60,
            Burst:                10,
        },
        QuoteCache: QuoteCache{
            FreshnessMinutes: 15,
            MaxEntries:       50,
        },
        Store: Store{Path: "tickersaver.db"},
    }
}

// Load reads JSON config from path. If path is empty or file does not exist,
// it returns defaults. Environment variables override select fields.
func Load(path string) (Config, error) {
    cfg := Default()
    if path == "" {
        if _, err := os.Stat("config.json"); err == nil {
            path = "config.json"
        }
    }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && !errors.Is(err, os.ErrNotExist) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if err := json.Unmarshal(b, &cfg); err != nil {
                return cfg, fmt.Errorf("parse config: %w", err)
            }
        }
    }
    applyEnv(&cfg)
    return cfg, nil
}

func applyEnv(cfg *Config) {
    if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
    if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Server.RequestTimeoutSec = x }
    }
    if v := os.Getenv("LOCAL_PROXY_ENABLED"); v != "" {
        switch strings.ToLower(v) {
        case "1","true","yes","y": cfg.LocalProxy.Enabled = true
        case "0","false","no","n": cfg.LocalProxy.Enabled = false
        }
    }
    if v := os.Getenv("LOCAL_PROXY_ENDPOINT"); v != "" { cfg.LocalProxy.Endpoint = v }
    if v := os.Getenv("LOCAL_PROXY_TIMEOUT_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.LocalProxy.TimeoutSec = x }
    }
    if v := os.Getenv("CHART_API_ENABLED"); v != "" {
        switch strings.ToLower(v) {
        case "1","true","yes","y": cfg.ChartAPI.Enabled = true
        case "0","false","no","n": cfg.ChartAPI.Enabled = false
        }
    }
    if v := os.Getenv("CHART_API_ENDPOINT"); v != "" { cfg.ChartAPI.Endpoint = v }
    if v := os.Getenv("CHART_API_MAX_RPM"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.ChartAPI.MaxRequestsPerMinute = x }
    }
    if v := os.Getenv("CHART_API_MIN_INTERVAL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.ChartAPI.MinRequestIntervalSec = x }
    }
    if v := os.Getenv("CHART_API_BURST"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.ChartAPI.Burst = x }
    }
    if v := os.Getenv("QUOTE_CACHE_FRESHNESS_MIN"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.QuoteCache.FreshnessMinutes = x }
    }
    if v := os.Getenv("QUOTE_CACHE_MAX_ENTRIES"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.QuoteCache.MaxEntries = x }
    }
    if v := os.Getenv("STORE_PATH"); v != "" { cfg.Store.Path = v }
}
