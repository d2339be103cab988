package store

import (
	"strings"
	"time"
)

// Record is one saved tweet. The persisted list is ordered newest-first and
// record IDs are unique across it.
type Record struct {
	ID                string    `json:"id"`
	URL               string    `json:"url"`
	Text              string    `json:"text"`
	Author            string    `json:"author"`
	AuthorDisplayName string    `json:"authorDisplayName"`
	Tickers           []string  `json:"tickers"`
	Images            []string  `json:"images,omitempty"`
	TweetedAt         time.Time `json:"tweetedAt"`
	SavedAt           time.Time `json:"savedAt"`
	Actionable        bool      `json:"actionable"`
	Comment           string    `json:"comment,omitempty"`
}

// AuthorTag is user-supplied metadata about a tweet author, keyed by handle.
type AuthorTag struct {
	Tag   string `json:"tag"`
	Notes string `json:"notes"`
	Count int    `json:"count"`
}

// AddResult reports the outcome of an add: a duplicate ID is rejected
// without mutating the stored list.
type AddResult struct {
	Accepted  bool `json:"accepted"`
	Duplicate bool `json:"duplicate"`
}

// NormalizeTickers upper-cases and de-duplicates a ticker list, preserving
// first-seen order.
func NormalizeTickers(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		u := strings.ToUpper(strings.TrimSpace(t))
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
