package report

import (
    "encoding/json"
    "fmt"
    "strings"
    "time"

    "tickersaver/internal/store"
)

// ExportVersion tags exported tag documents so imports can reject payloads
// from incompatible layouts later on.
const ExportVersion = 1

// TagExport is the round-trippable JSON document for author tags.
type TagExport struct {
    ExportedAt time.Time                  `json:"exportedAt"`
    Version    int                        `json:"version"`
    AuthorTags map[string]store.AuthorTag `json:"authorTags"`
}

// ExportTags serializes the author-tag mapping to its JSON export document.
func ExportTags(tags map[string]store.AuthorTag, now time.Time) ([]byte, error) {
    if tags == nil { tags = map[string]store.AuthorTag{} }
    doc := TagExport{ExportedAt: now.UTC(), Version: ExportVersion, AuthorTags: tags}
    return json.MarshalIndent(doc, "", "  ")
}

// ParseTagExport re-parses an export document. A payload without the
// authorTags field is a validation failure; an empty mapping is fine.
func ParseTagExport(payload []byte) (map[string]store.AuthorTag, error) {
    var probe struct {
        Version    int             `json:"version"`
        AuthorTags json.RawMessage `json:"authorTags"`
    }
    if err := json.Unmarshal(payload, &probe); err != nil {
        return nil, fmt.Errorf("invalid JSON: %w", err)
    }
    if probe.AuthorTags == nil {
        return nil, fmt.Errorf("missing authorTags field")
    }
    tags := map[string]store.AuthorTag{}
    if err := json.Unmarshal(probe.AuthorTags, &tags); err != nil {
        return nil, fmt.Errorf("invalid authorTags mapping: %w", err)
    }
    return tags, nil
}

// ToMarkdown renders the record list as a human-readable digest. It is a
// one-way export: nothing parses this back.
func ToMarkdown(records []store.Record) string {
    var b strings.Builder
    b.WriteString("# Saved Tweets\n\n")
    fmt.Fprintf(&b, "%d saved tweets\n", len(records))

    for _, r := range records {
        b.WriteString("\n---\n\n")
        author := r.Author
        if author == "" { author = "unknown" }
        if r.AuthorDisplayName != "" {
            fmt.Fprintf(&b, "## %s (@%s)\n\n", r.AuthorDisplayName, author)
        } else {
            fmt.Fprintf(&b, "## @%s\n\n", author)
        }
        if !r.TweetedAt.IsZero() {
            fmt.Fprintf(&b, "*%s*\n\n", r.TweetedAt.UTC().Format("2006-01-02 15:04"))
        }
        if len(r.Tickers) > 0 {
            dollars := make([]string, len(r.Tickers))
            for i, t := range r.Tickers { dollars[i] = "$" + t }
            fmt.Fprintf(&b, "Tickers: %s\n\n", strings.Join(dollars, ", "))
        }
        if r.Text != "" {
            for _, line := range strings.Split(r.Text, "\n") {
                fmt.Fprintf(&b, "> %s\n", line)
            }
            b.WriteString("\n")
        }
        for _, img := range r.Images {
            fmt.Fprintf(&b, "![image](%s)\n", img)
        }
        if r.Actionable {
            b.WriteString("**Actionable**\n\n")
        }
        if r.Comment != "" {
            fmt.Fprintf(&b, "Note: %s\n\n", r.Comment)
        }
        if r.URL != "" {
            fmt.Fprintf(&b, "[source](%s)\n", r.URL)
        }
    }
    return b.String()
}
