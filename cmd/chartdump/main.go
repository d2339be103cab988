package main

import (
    "bufio"
    "context"
    "encoding/json"
    "flag"
    "fmt"
    "io"
    "log"
    "net/http"
    "os"
    "strings"
    "sync"
    "time"

    "tickersaver/internal/config"
)

type httpStatusErr struct {
    code int
    body string
}

func (e *httpStatusErr) Error() string { return fmt.Sprintf("http %d: %s", e.code, e.body) }

// range/interval pairs matching what the quote source requests.
var dumpRanges = [][2]string{
    {"1d", "5m"},
    {"1mo", "1d"},
    {"ytd", "1d"},
    {"1y", "1wk"},
    {"5y", "1mo"},
}

func main() {
    var (
        symbolsArg  string
        symbolsFile string
        outPath     string
        cfgPath     string
        concurrency int
        timeoutSec  int
        maxRetries  int
        rpm         int
    )
    flag.StringVar(&symbolsArg, "symbols", "", "comma-separated ticker symbols")
    flag.StringVar(&symbolsFile, "symbols-file", "", "file with one symbol per line")
    flag.StringVar(&outPath, "out", "chart_dump.json", "output JSON file path")
    flag.StringVar(&cfgPath, "config", "", "path to config.json (optional)")
    flag.IntVar(&concurrency, "concurrency", 4, "number of parallel requests")
    flag.IntVar(&timeoutSec, "timeout", 15, "HTTP timeout seconds")
    flag.IntVar(&maxRetries, "retries", 3, "max retries on 429/5xx")
    flag.IntVar(&rpm, "rpm", 60, "max requests per minute (0 = unlimited)")
    flag.Parse()

    cfg, err := config.Load(cfgPath)
    if err != nil {
        log.Fatalf("config: %v", err)
    }
    endpoint := cfg.ChartAPI.Endpoint
    if endpoint == "" {
        endpoint = "https://query1.finance.yahoo.com"
    }

    symbols, err := readSymbols(symbolsArg, symbolsFile)
    if err != nil {
        log.Fatalf("read symbols: %v", err)
    }
    if len(symbols) == 0 {
        log.Fatal("no symbols given (use -symbols or -symbols-file)")
    }
    log.Printf("symbols: %d", len(symbols))

    hc := &http.Client{Timeout: time.Duration(timeoutSec) * time.Second}

    outFile, err := os.Create(outPath)
    if err != nil {
        log.Fatalf("create out: %v", err)
    }
    defer outFile.Close()
    bw := bufio.NewWriterSize(outFile, 1<<20)
    defer bw.Flush()

    // Start JSON envelope
    _, _ = bw.WriteString("{\"charts\":[")
    first := true
    var writeMu sync.Mutex

    // Request rate limiter by RPM, if provided
    var tokenCh <-chan time.Time
    if rpm > 0 {
        interval := time.Minute / time.Duration(rpm)
        t := time.NewTicker(interval)
        defer t.Stop()
        tokenCh = t.C
    }

    // Worker pool, one job per symbol+range pair
    type job struct {
        symbol   string
        dataRange string
        interval string
    }
    jobs := make(chan job, concurrency*2)
    wg := sync.WaitGroup{}

    doReq := func(ctx context.Context, j job) (json.RawMessage, error) {
        url := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s", endpoint, j.symbol, j.dataRange, j.interval)
        req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
        if err != nil { return nil, err }
        req.Header.Set("Accept", "application/json")
        if tokenCh != nil {
            <-tokenCh // gate by RPM
        }
        resp, err := hc.Do(req)
        if err != nil { return nil, err }
        defer resp.Body.Close()
        if resp.StatusCode < 200 || resp.StatusCode >= 300 {
            b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
            return nil, &httpStatusErr{code: resp.StatusCode, body: string(b)}
        }
        return io.ReadAll(resp.Body)
    }

    fetchRetry := func(ctx context.Context, j job) (json.RawMessage, error) {
        attempt := 0
        for {
            data, err := doReq(ctx, j)
            if err == nil {
                return data, nil
            }
            var hs *httpStatusErr
            if errorsAs(err, &hs) {
                // unknown symbols do not resolve with retries
                if hs.code == 404 {
                    log.Printf("skip %s %s: not found", j.symbol, j.dataRange)
                    return nil, nil
                }
                // 429/5xx -> retry with backoff
                if hs.code == 429 || (hs.code >= 500 && hs.code < 600) {
                    if attempt < maxRetries {
                        back := time.Duration(250*(1<<attempt)) * time.Millisecond
                        time.Sleep(back)
                        attempt++
                        continue
                    }
                }
            }
            return nil, err
        }
    }

    worker := func() {
        defer wg.Done()
        for j := range jobs {
            ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
            data, err := fetchRetry(ctx, j)
            cancel()
            if err != nil {
                log.Printf("%s %s error: %v", j.symbol, j.dataRange, err)
                continue
            }
            if len(data) == 0 {
                continue
            }
            // wrap each payload with its request parameters
            entry, _ := json.Marshal(map[string]any{
                "symbol":   j.symbol,
                "range":    j.dataRange,
                "interval": j.interval,
            })
            writeMu.Lock()
            if !first { _, _ = bw.WriteString(",") } else { first = false }
            _, _ = bw.Write(entry[:len(entry)-1])
            _, _ = bw.WriteString(",\"payload\":")
            _, _ = bw.Write(data)
            _, _ = bw.WriteString("}")
            writeMu.Unlock()
        }
    }

    for i := 0; i < concurrency; i++ {
        wg.Add(1)
        go worker()
    }

    for _, s := range symbols {
        for _, rr := range dumpRanges {
            jobs <- job{symbol: s, dataRange: rr[0], interval: rr[1]}
        }
    }
    close(jobs)
    wg.Wait()

    // Close JSON envelope
    _, _ = bw.WriteString("]}")
    if err := bw.Flush(); err != nil {
        log.Fatalf("flush: %v", err)
    }
    log.Printf("done: wrote %s", outPath)
}

func readSymbols(arg, path string) ([]string, error) {
    var raw []string
    if arg != "" {
        raw = strings.Split(arg, ",")
    } else if path != "" {
        b, err := os.ReadFile(path)
        if err != nil { return nil, err }
        raw = strings.Split(string(b), "\n")
    }
    seen := map[string]bool{}
    out := make([]string, 0, len(raw))
    for _, s := range raw {
        s = strings.ToUpper(strings.TrimSpace(s))
        if s == "" || seen[s] { continue }
        seen[s] = true
        out = append(out, s)
    }
    return out, nil
}

// errorsAs is a small local helper to avoid importing errors in many spots
func errorsAs(err error, target **httpStatusErr) bool {
    if err == nil { return false }
    if v, ok := err.(*httpStatusErr); ok {
        *target = v
        return true
    }
    return false
}
