package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

const (
	savedTweetsKey = "saved_tweets"
	authorTagsKey  = "author_tags"
)

// MaxListBytes caps the serialized byte size of the record list. It is a
// soft bound: only one eviction is attempted per add.
const MaxListBytes = 90_000

// Store persists saved-tweet records and author tags in a flat key-value
// table in SQLite. Values are whole JSON documents replaced on every write
// (last write wins), mirroring the extension storage this store stands in
// for.
type Store struct {
	db *sql.DB
}

// Open creates or opens the store at dbPath with WAL mode enabled.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) setValue(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, string(value), time.Now().UnixMilli(),
	)
	return err
}

func (s *Store) getValue(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

// ListRecords returns all saved records, newest-first.
func (s *Store) ListRecords(ctx context.Context) ([]Record, error) {
	raw, err := s.getValue(ctx, savedTweetsKey)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	if raw == nil {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

// ListRecordsByAuthor returns the saved records for one author handle,
// newest-first.
func (s *Store) ListRecordsByAuthor(ctx context.Context, handle string) ([]Record, error) {
	records, err := s.ListRecords(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if strings.EqualFold(r.Author, handle) {
			out = append(out, r)
		}
	}
	return out, nil
}

// AddRecord prepends a record to the persisted list. A record whose ID is
// already present is rejected without mutating the list. When the new list
// would exceed MaxListBytes, the single oldest record is dropped first.
func (s *Store) AddRecord(ctx context.Context, rec Record) (AddResult, error) {
	records, err := s.ListRecords(ctx)
	if err != nil {
		return AddResult{}, err
	}
	for _, r := range records {
		if r.ID == rec.ID {
			return AddResult{Accepted: false, Duplicate: true}, nil
		}
	}

	rec.Tickers = NormalizeTickers(rec.Tickers)
	if rec.SavedAt.IsZero() {
		rec.SavedAt = time.Now().UTC()
	}

	next := append([]Record{rec}, records...)
	raw, err := json.Marshal(next)
	if err != nil {
		return AddResult{}, fmt.Errorf("encode records: %w", err)
	}
	if len(raw) > MaxListBytes && len(records) > 0 {
		// Drop the oldest record (last in newest-first order). One attempt
		// only, so the cap stays a heuristic bound.
		next = next[:len(next)-1]
		raw, err = json.Marshal(next)
		if err != nil {
			return AddResult{}, fmt.Errorf("encode records: %w", err)
		}
	}
	if err := s.setValue(ctx, savedTweetsKey, raw); err != nil {
		return AddResult{}, fmt.Errorf("write records: %w", err)
	}

	if err := s.bumpAuthorCount(ctx, rec.Author); err != nil {
		return AddResult{}, err
	}
	return AddResult{Accepted: true}, nil
}

// DeleteRecord removes the record with the given ID. Deleting an unknown ID
// is a no-op.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	records, err := s.ListRecords(ctx)
	if err != nil {
		return err
	}
	next := records[:0]
	for _, r := range records {
		if r.ID != id {
			next = append(next, r)
		}
	}
	if len(next) == len(records) {
		return nil
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return s.setValue(ctx, savedTweetsKey, raw)
}

// AuthorTags returns the author-tag mapping keyed by handle.
func (s *Store) AuthorTags(ctx context.Context) (map[string]AuthorTag, error) {
	raw, err := s.getValue(ctx, authorTagsKey)
	if err != nil {
		return nil, fmt.Errorf("read author tags: %w", err)
	}
	tags := map[string]AuthorTag{}
	if raw == nil {
		return tags, nil
	}
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, fmt.Errorf("decode author tags: %w", err)
	}
	return tags, nil
}

// SetAuthorTag stores tag metadata for one handle, preserving the saved
// count already tracked for it.
func (s *Store) SetAuthorTag(ctx context.Context, handle string, tag AuthorTag) error {
	tags, err := s.AuthorTags(ctx)
	if err != nil {
		return err
	}
	if existing, ok := tags[handle]; ok && tag.Count == 0 {
		tag.Count = existing.Count
	}
	tags[handle] = tag
	return s.writeAuthorTags(ctx, tags)
}

// MergeAuthorTags applies an imported tag mapping. With replace set, the
// stored mapping is discarded first; otherwise imported handles overwrite
// stored ones and the rest are kept.
func (s *Store) MergeAuthorTags(ctx context.Context, imported map[string]AuthorTag, replace bool) error {
	tags := map[string]AuthorTag{}
	if !replace {
		var err error
		tags, err = s.AuthorTags(ctx)
		if err != nil {
			return err
		}
	}
	for handle, tag := range imported {
		tags[handle] = tag
	}
	return s.writeAuthorTags(ctx, tags)
}

func (s *Store) bumpAuthorCount(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}
	tags, err := s.AuthorTags(ctx)
	if err != nil {
		return err
	}
	tag := tags[handle]
	tag.Count++
	tags[handle] = tag
	return s.writeAuthorTags(ctx, tags)
}

func (s *Store) writeAuthorTags(ctx context.Context, tags map[string]AuthorTag) error {
	raw, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode author tags: %w", err)
	}
	if err := s.setValue(ctx, authorTagsKey, raw); err != nil {
		return fmt.Errorf("write author tags: %w", err)
	}
	return nil
}
