package main

import (
    "context"
    "encoding/json"
    "errors"
    "net/http/httptest"
    "path/filepath"
    "strings"
    "testing"

    "tickersaver/internal/quote"
    "tickersaver/internal/quote/cache"
    "tickersaver/internal/quote/resolver"
    "tickersaver/internal/report"
    "tickersaver/internal/store"
)

type fakeSource struct {
    name string
    q    *quote.Quote
    err  error
}

func (f fakeSource) Name() string { return f.name }
func (f fakeSource) Fetch(_ context.Context, symbol string) (*quote.Quote, error) {
    if f.err != nil { return nil, f.err }
    q := *f.q
    q.Symbol = symbol
    if q.DisplayName == "" { q.DisplayName = symbol }
    return &q, nil
}

func newTestAPI(t *testing.T, local, direct quote.Source) *api {
    t.Helper()
    st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
    if err != nil { t.Fatalf("store: %v", err) }
    t.Cleanup(func() { st.Close() })
    return &api{
        resolver: &resolver.Resolver{Local: local, Direct: direct, Cache: &cache.Cache{}},
        store:    st,
    }
}

func TestQuoteEndpoint_DirectFallback(t *testing.T) {
    local := fakeSource{name: "local", err: errors.New("connection refused")}
    direct := fakeSource{name: "direct", q: &quote.Quote{
        CurrentPrice:       quote.Float(150.25),
        FormattedPrice:     "150.25",
        Currency:           "USD",
        FormattedMarketCap: "N/A",
    }}
    a := newTestAPI(t, local, direct)

    rr := httptest.NewRecorder()
    a.routes().ServeHTTP(rr, httptest.NewRequest("GET", "/api/quote?symbol=aapl", nil))
    if rr.Code != 200 { t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String()) }
    var q quote.Quote
    if err := json.Unmarshal(rr.Body.Bytes(), &q); err != nil { t.Fatalf("decode: %v", err) }
    if q.Symbol != "AAPL" || q.Source != quote.SourceDirect {
        t.Fatalf("unexpected: %+v", q)
    }
    if q.MarketCap != nil || q.FormattedMarketCap != "N/A" {
        t.Fatalf("direct quote must carry no market cap: %+v", q)
    }
}

func TestQuoteEndpoint_TotalFailureMarker(t *testing.T) {
    a := newTestAPI(t,
        fakeSource{name: "local", err: errors.New("down")},
        fakeSource{name: "direct", err: errors.New("down")})

    rr := httptest.NewRecorder()
    a.routes().ServeHTTP(rr, httptest.NewRequest("GET", "/api/quote?symbol=ZZZZ", nil))
    if rr.Code != 200 { t.Fatalf("marker must still be a 200: %d", rr.Code) }
    var q quote.Quote
    if err := json.Unmarshal(rr.Body.Bytes(), &q); err != nil { t.Fatalf("decode: %v", err) }
    if !q.Error || q.Symbol != "ZZZZ" || q.DisplayName != "ZZZZ" {
        t.Fatalf("unexpected marker: %+v", q)
    }
}

func postRecord(t *testing.T, a *api, body string) *httptest.ResponseRecorder {
    t.Helper()
    rr := httptest.NewRecorder()
    req := httptest.NewRequest("POST", "/api/records", strings.NewReader(body))
    req.Header.Set("Content-Type", "application/json")
    a.routes().ServeHTTP(rr, req)
    return rr
}

func TestRecords_AddListDuplicateDelete(t *testing.T) {
    a := newTestAPI(t, nil, nil)

    rr := postRecord(t, a, `{"id":"1","author":"alice","text":"x","tickers":["AAPL"],"tweetedAt":"2025-05-01T10:00:00Z","savedAt":"2025-05-01T11:00:00Z","url":"https://x.com/alice/status/1"}`)
    var res store.AddResult
    if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil { t.Fatalf("decode: %v", err) }
    if !res.Accepted || res.Duplicate { t.Fatalf("add: %+v", res) }

    rr = postRecord(t, a, `{"id":"1","author":"bob","text":"y","tickers":["GME"],"tweetedAt":"2025-05-02T10:00:00Z","savedAt":"2025-05-02T11:00:00Z","url":"https://x.com/bob/status/1"}`)
    if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil { t.Fatalf("decode: %v", err) }
    if res.Accepted || !res.Duplicate { t.Fatalf("duplicate: %+v", res) }

    rr = httptest.NewRecorder()
    a.routes().ServeHTTP(rr, httptest.NewRequest("GET", "/api/records", nil))
    var records []store.Record
    if err := json.Unmarshal(rr.Body.Bytes(), &records); err != nil { t.Fatalf("decode: %v", err) }
    if len(records) != 1 || records[0].Author != "alice" {
        t.Fatalf("records: %+v", records)
    }

    rr = httptest.NewRecorder()
    a.routes().ServeHTTP(rr, httptest.NewRequest("DELETE", "/api/records/1", nil))
    if rr.Code != 200 { t.Fatalf("delete status: %d", rr.Code) }
    rr = httptest.NewRecorder()
    a.routes().ServeHTTP(rr, httptest.NewRequest("GET", "/api/records", nil))
    json.Unmarshal(rr.Body.Bytes(), &records)
    if len(records) != 0 { t.Fatalf("delete left records: %+v", records) }
}

func TestStatsEndpoint(t *testing.T) {
    a := newTestAPI(t, nil, nil)
    postRecord(t, a, `{"id":"1","author":"alice","tickers":["AAPL"]}`)
    postRecord(t, a, `{"id":"2","author":"bob","tickers":["TSLA","AAPL"]}`)
    postRecord(t, a, `{"id":"3","author":"carol","tickers":["GME"]}`)

    rr := httptest.NewRecorder()
    a.routes().ServeHTTP(rr, httptest.NewRequest("GET", "/api/stats", nil))
    var stats report.Stats
    if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil { t.Fatalf("decode: %v", err) }
    if stats.TotalCount != 3 || stats.DistinctTickerCount != 3 {
        t.Fatalf("counts: %+v", stats)
    }
    if stats.TopTickers[0].Key != "AAPL" || stats.TopTickers[0].Count != 2 {
        t.Fatalf("top tickers: %+v", stats.TopTickers)
    }
}

func TestImportTags_ValidationFailureIsStructured(t *testing.T) {
    a := newTestAPI(t, nil, nil)

    rr := httptest.NewRecorder()
    req := httptest.NewRequest("POST", "/api/import/tags", strings.NewReader(`{"version":1}`))
    a.routes().ServeHTTP(rr, req)
    if rr.Code != 200 { t.Fatalf("validation failure must not be an HTTP error: %d", rr.Code) }
    var res opResult
    if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil { t.Fatalf("decode: %v", err) }
    if res.Success || res.Error == "" {
        t.Fatalf("want structured failure, got %+v", res)
    }
}

func TestImportExportTags_RoundTrip(t *testing.T) {
    a := newTestAPI(t, nil, nil)

    rr := httptest.NewRecorder()
    req := httptest.NewRequest("POST", "/api/import/tags", strings.NewReader(`{"version":1,"authorTags":{"alice":{"tag":"swing","notes":"","count":3}}}`))
    a.routes().ServeHTTP(rr, req)
    var res opResult
    json.Unmarshal(rr.Body.Bytes(), &res)
    if !res.Success { t.Fatalf("import failed: %+v", res) }

    rr = httptest.NewRecorder()
    a.routes().ServeHTTP(rr, httptest.NewRequest("GET", "/api/export/tags", nil))
    var doc report.TagExport
    if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil { t.Fatalf("decode: %v", err) }
    if doc.Version != report.ExportVersion || doc.AuthorTags["alice"].Tag != "swing" {
        t.Fatalf("export: %+v", doc)
    }
}
