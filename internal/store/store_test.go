package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tickersaver.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func rec(id, author string, tickers ...string) Record {
	return Record{
		ID:        id,
		URL:       "https://x.com/" + author + "/status/" + id,
		Text:      "some tweet about " + strings.Join(tickers, ", "),
		Author:    author,
		Tickers:   tickers,
		TweetedAt: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		SavedAt:   time.Date(2025, 5, 1, 11, 0, 0, 0, time.UTC),
	}
}

func TestAddRecord_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := t.Context()

	for _, id := range []string{"1", "2", "3"} {
		res, err := s.AddRecord(ctx, rec(id, "alice", "AAPL"))
		if err != nil || !res.Accepted {
			t.Fatalf("add %s: res=%+v err=%v", id, res, err)
		}
	}
	records, err := s.ListRecords(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 || records[0].ID != "3" || records[2].ID != "1" {
		t.Fatalf("want newest-first [3 2 1], got %+v", records)
	}
}

func TestAddRecord_DuplicateRejectedWithoutMutation(t *testing.T) {
	s := openTestStore(t)
	ctx := t.Context()

	if _, err := s.AddRecord(ctx, rec("1", "alice", "AAPL")); err != nil {
		t.Fatalf("add: %v", err)
	}
	dup := rec("1", "mallory", "GME")
	res, err := s.AddRecord(ctx, dup)
	if err != nil {
		t.Fatalf("dup add: %v", err)
	}
	if res.Accepted || !res.Duplicate {
		t.Fatalf("want rejected duplicate, got %+v", res)
	}
	records, _ := s.ListRecords(ctx)
	if len(records) != 1 || records[0].Author != "alice" {
		t.Fatalf("stored list mutated by rejected add: %+v", records)
	}
}

func TestAddRecord_NormalizesTickers(t *testing.T) {
	s := openTestStore(t)
	ctx := t.Context()

	s.AddRecord(ctx, rec("1", "alice", "aapl", " AAPL ", "tsla"))
	records, _ := s.ListRecords(ctx)
	got := records[0].Tickers
	if len(got) != 2 || got[0] != "AAPL" || got[1] != "TSLA" {
		t.Fatalf("want [AAPL TSLA], got %v", got)
	}
}

func TestAddRecord_ByteCapEvictsOldest(t *testing.T) {
	s := openTestStore(t)
	ctx := t.Context()

	// ~5KB of text each: 20 records stay under the cap, a few more cross it.
	big := strings.Repeat("x", 5_000)
	var added int
	for i := 0; i < 25; i++ {
		r := rec(fmt.Sprintf("%d", i), "alice", "AAPL")
		r.Text = big
		res, err := s.AddRecord(ctx, r)
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		if res.Accepted {
			added++
		}
	}
	if added != 25 {
		t.Fatalf("eviction must not reject adds: %d", added)
	}
	records, _ := s.ListRecords(ctx)
	if len(records) >= 25 {
		t.Fatalf("oldest records should have been evicted, got %d", len(records))
	}
	// The newest record always survives, the very first is long gone.
	if records[0].ID != "24" {
		t.Fatalf("newest record missing: %+v", records[0])
	}
	for _, r := range records {
		if r.ID == "0" {
			t.Fatal("oldest record should have been evicted")
		}
	}
}

func TestDeleteRecord(t *testing.T) {
	s := openTestStore(t)
	ctx := t.Context()

	s.AddRecord(ctx, rec("1", "alice", "AAPL"))
	s.AddRecord(ctx, rec("2", "bob", "TSLA"))
	if err := s.DeleteRecord(ctx, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	records, _ := s.ListRecords(ctx)
	if len(records) != 1 || records[0].ID != "2" {
		t.Fatalf("unexpected records: %+v", records)
	}
	// Unknown ID is a no-op.
	if err := s.DeleteRecord(ctx, "nope"); err != nil {
		t.Fatalf("delete unknown: %v", err)
	}
}

func TestListRecordsByAuthor(t *testing.T) {
	s := openTestStore(t)
	ctx := t.Context()

	s.AddRecord(ctx, rec("1", "alice", "AAPL"))
	s.AddRecord(ctx, rec("2", "bob", "TSLA"))
	s.AddRecord(ctx, rec("3", "Alice", "GME"))

	got, err := s.ListRecordsByAuthor(ctx, "alice")
	if err != nil {
		t.Fatalf("list by author: %v", err)
	}
	if len(got) != 2 || got[0].ID != "3" || got[1].ID != "1" {
		t.Fatalf("unexpected: %+v", got)
	}
}

func TestAuthorTags_CountTracksSaves(t *testing.T) {
	s := openTestStore(t)
	ctx := t.Context()

	s.AddRecord(ctx, rec("1", "alice", "AAPL"))
	s.AddRecord(ctx, rec("2", "alice", "TSLA"))
	tags, err := s.AuthorTags(ctx)
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	if tags["alice"].Count != 2 {
		t.Fatalf("want count 2, got %+v", tags["alice"])
	}

	// Setting tag metadata keeps the tracked count.
	if err := s.SetAuthorTag(ctx, "alice", AuthorTag{Tag: "swing", Notes: "good entries"}); err != nil {
		t.Fatalf("set tag: %v", err)
	}
	tags, _ = s.AuthorTags(ctx)
	got := tags["alice"]
	if got.Tag != "swing" || got.Notes != "good entries" || got.Count != 2 {
		t.Fatalf("unexpected tag: %+v", got)
	}
}

func TestMergeAuthorTags(t *testing.T) {
	s := openTestStore(t)
	ctx := t.Context()

	s.SetAuthorTag(ctx, "alice", AuthorTag{Tag: "swing"})
	s.SetAuthorTag(ctx, "bob", AuthorTag{Tag: "news"})

	imported := map[string]AuthorTag{
		"alice": {Tag: "daytrader", Count: 5},
		"carol": {Tag: "macro"},
	}
	if err := s.MergeAuthorTags(ctx, imported, false); err != nil {
		t.Fatalf("merge: %v", err)
	}
	tags, _ := s.AuthorTags(ctx)
	if tags["alice"].Tag != "daytrader" || tags["bob"].Tag != "news" || tags["carol"].Tag != "macro" {
		t.Fatalf("merge result: %+v", tags)
	}

	if err := s.MergeAuthorTags(ctx, imported, true); err != nil {
		t.Fatalf("replace: %v", err)
	}
	tags, _ = s.AuthorTags(ctx)
	if _, ok := tags["bob"]; ok {
		t.Fatalf("replace should drop handles not in the import: %+v", tags)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tickersaver.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.AddRecord(t.Context(), rec("1", "alice", "AAPL"))
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	records, err := s2.ListRecords(t.Context())
	if err != nil || len(records) != 1 {
		t.Fatalf("records lost across reopen: %v %+v", err, records)
	}
}
