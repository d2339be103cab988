package main

import (
    "encoding/json"
    "io"
    "net/http"
    "strings"
    "sync"
    "time"

    "tickersaver/internal/quote"
    "tickersaver/internal/quote/resolver"
    "tickersaver/internal/report"
    "tickersaver/internal/store"
)

type api struct {
    resolver *resolver.Resolver
    store    *store.Store
}

type quotesResponse struct {
    Quotes []*quote.Quote `json:"quotes"`
}

type opResult struct {
    Success bool   `json:"success"`
    Error   string `json:"error,omitempty"`
}

func (a *api) routes() *http.ServeMux {
    mux := http.NewServeMux()
    mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte(`{"status":"ok"}`))
    })
    mux.HandleFunc("/api/quote", a.handleQuote)
    mux.HandleFunc("/api/quotes", a.handleQuotes)
    mux.HandleFunc("/api/records", a.handleRecords)
    mux.HandleFunc("/api/records/", a.handleRecordByID)
    mux.HandleFunc("/api/authors/", a.handleAuthorTag)
    mux.HandleFunc("/api/stats", a.handleStats)
    mux.HandleFunc("/api/export/markdown", a.handleExportMarkdown)
    mux.HandleFunc("/api/export/tags", a.handleExportTags)
    mux.HandleFunc("/api/import/tags", a.handleImportTags)
    return mux
}

// handleQuote resolves one symbol. It always answers 200 with a quote body;
// total source failure shows up as the error-marker quote, not an HTTP error.
func (a *api) handleQuote(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    symbol := r.URL.Query().Get("symbol")
    if strings.TrimSpace(symbol) == "" {
        http.Error(w, "missing symbol query param", http.StatusBadRequest)
        return
    }
    writeJSON(w, a.resolver.Resolve(r.Context(), symbol))
}

func (a *api) handleQuotes(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    raw := r.URL.Query().Get("symbols")
    symbols := splitCSV(raw)
    if len(symbols) == 0 {
        http.Error(w, "missing symbols query param", http.StatusBadRequest)
        return
    }
    if len(symbols) > 50 {
        http.Error(w, "too many symbols (max 50)", http.StatusBadRequest)
        return
    }

    // fan out per symbol; the resolver coalesces duplicates
    out := make([]*quote.Quote, len(symbols))
    var wg sync.WaitGroup
    for i, s := range symbols {
        i, s := i, s
        wg.Add(1)
        go func() {
            defer wg.Done()
            out[i] = a.resolver.Resolve(r.Context(), s)
        }()
    }
    wg.Wait()
    writeJSON(w, quotesResponse{Quotes: out})
}

func (a *api) handleRecords(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodGet:
        var (
            records []store.Record
            err     error
        )
        if author := r.URL.Query().Get("author"); author != "" {
            records, err = a.store.ListRecordsByAuthor(r.Context(), author)
        } else {
            records, err = a.store.ListRecords(r.Context())
        }
        if err != nil {
            http.Error(w, err.Error(), http.StatusInternalServerError)
            return
        }
        writeJSON(w, records)

    case http.MethodPost:
        var rec store.Record
        dec := json.NewDecoder(r.Body)
        dec.DisallowUnknownFields()
        if err := dec.Decode(&rec); err != nil {
            writeJSON(w, opResult{Success: false, Error: "invalid JSON body"})
            return
        }
        if rec.ID == "" {
            writeJSON(w, opResult{Success: false, Error: "record id is required"})
            return
        }
        res, err := a.store.AddRecord(r.Context(), rec)
        if err != nil {
            http.Error(w, err.Error(), http.StatusInternalServerError)
            return
        }
        writeJSON(w, res)

    default:
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
    }
}

func (a *api) handleRecordByID(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodDelete {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    id := strings.TrimPrefix(r.URL.Path, "/api/records/")
    if id == "" {
        http.Error(w, "missing record id", http.StatusBadRequest)
        return
    }
    if err := a.store.DeleteRecord(r.Context(), id); err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    writeJSON(w, opResult{Success: true})
}

// handleAuthorTag sets tag metadata for /api/authors/{handle}.
func (a *api) handleAuthorTag(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    handle := strings.TrimPrefix(r.URL.Path, "/api/authors/")
    if handle == "" {
        http.Error(w, "missing author handle", http.StatusBadRequest)
        return
    }
    var tag store.AuthorTag
    if err := json.NewDecoder(r.Body).Decode(&tag); err != nil {
        writeJSON(w, opResult{Success: false, Error: "invalid JSON body"})
        return
    }
    if err := a.store.SetAuthorTag(r.Context(), handle, tag); err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    writeJSON(w, opResult{Success: true})
}

func (a *api) handleStats(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    records, err := a.store.ListRecords(r.Context())
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    writeJSON(w, report.ComputeStats(records))
}

func (a *api) handleExportMarkdown(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    records, err := a.store.ListRecords(r.Context())
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
    _, _ = w.Write([]byte(report.ToMarkdown(records)))
}

func (a *api) handleExportTags(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    tags, err := a.store.AuthorTags(r.Context())
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    raw, err := report.ExportTags(tags, time.Now())
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    _, _ = w.Write(raw)
}

// handleImportTags re-parses an export document and merges it into the
// stored mapping; ?replace=1 discards the stored mapping first. Validation
// failures come back as a structured result, never as a bare HTTP error.
func (a *api) handleImportTags(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    payload, err := readBody(r)
    if err != nil {
        writeJSON(w, opResult{Success: false, Error: "unreadable body"})
        return
    }
    tags, err := report.ParseTagExport(payload)
    if err != nil {
        writeJSON(w, opResult{Success: false, Error: err.Error()})
        return
    }
    replace := false
    switch strings.ToLower(r.URL.Query().Get("replace")) {
    case "1", "true", "yes", "y":
        replace = true
    }
    if err := a.store.MergeAuthorTags(r.Context(), tags, replace); err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    writeJSON(w, opResult{Success: true})
}

func writeJSON(w http.ResponseWriter, v any) {
    enc := json.NewEncoder(w)
    enc.SetEscapeHTML(false)
    _ = enc.Encode(v)
}

func readBody(r *http.Request) ([]byte, error) {
    defer r.Body.Close()
    return io.ReadAll(r.Body)
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
