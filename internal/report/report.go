package report

import (
    "sort"

    "tickersaver/internal/store"
)

// topN is how many tickers/authors the stats carry.
const topN = 5

// recentN is how many recent records the stats carry.
const recentN = 3

// Count is one (key, count) pair of a top list.
type Count struct {
    Key   string `json:"key"`
    Count int    `json:"count"`
}

// Stats are aggregate statistics over the saved-record list.
type Stats struct {
    TotalCount          int            `json:"totalCount"`
    DistinctTickerCount int            `json:"distinctTickerCount"`
    TopTickers          []Count        `json:"topTickers"`
    TopAuthors          []Count        `json:"topAuthors"`
    RecentRecords       []store.Record `json:"recentRecords"`
}

// ComputeStats aggregates a newest-first record list. Ties in the top lists
// break by first appearance in the input, so the output is deterministic for
// a given input order. An empty input yields zero counts and empty lists.
func ComputeStats(records []store.Record) Stats {
    tickerCounts := map[string]int{}
    tickerOrder := []string{}
    authorCounts := map[string]int{}
    authorOrder := []string{}

    for _, r := range records {
        for _, t := range r.Tickers {
            if _, seen := tickerCounts[t]; !seen { tickerOrder = append(tickerOrder, t) }
            tickerCounts[t]++
        }
        if r.Author != "" {
            if _, seen := authorCounts[r.Author]; !seen { authorOrder = append(authorOrder, r.Author) }
            authorCounts[r.Author]++
        }
    }

    recent := records
    if len(recent) > recentN { recent = recent[:recentN] }
    recentCopy := make([]store.Record, len(recent))
    copy(recentCopy, recent)

    return Stats{
        TotalCount:          len(records),
        DistinctTickerCount: len(tickerCounts),
        TopTickers:          topCounts(tickerOrder, tickerCounts),
        TopAuthors:          topCounts(authorOrder, authorCounts),
        RecentRecords:       recentCopy,
    }
}

// topCounts sorts keys by count descending with first-seen order as the
// stable tie-break, and keeps the top five.
func topCounts(order []string, counts map[string]int) []Count {
    out := make([]Count, 0, len(order))
    for _, k := range order {
        out = append(out, Count{Key: k, Count: counts[k]})
    }
    sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
    if len(out) > topN { out = out[:topN] }
    return out
}
