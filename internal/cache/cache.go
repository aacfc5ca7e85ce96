// Package cache memoizes raw API responses on disk so reruns of the export
// never refetch pages that were already pulled. Keys are derived from the
// request parameters, one JSON file per key, no eviction — the key space is
// bounded by the number of pages in one user's order history.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrCacheMiss indicates the requested key has no usable entry on disk.
var ErrCacheMiss = errors.New("cache miss")

// Key identifies one cached response. Filename must be deterministic in the
// request parameters.
type Key interface {
	Filename() string
}

// PageKey addresses one order history page fetch.
type PageKey struct {
	Limit  int
	Offset int
}

func (k PageKey) Filename() string {
	return fmt.Sprintf("doordash-orders-limit-%d-offset-%d.json", k.Limit, k.Offset)
}

// ReceiptKey addresses one receipt fetch on the deprecated order_carts path.
type ReceiptKey struct {
	OrderID string
}

func (k ReceiptKey) Filename() string {
	return fmt.Sprintf("doordash-receipt-id-%s.json", k.OrderID)
}

// Store is a file-backed response cache rooted at one directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates the cache directory if needed.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger.With(slog.String("system", "cache"))}, nil
}

// Get returns the stored payload for key. Absent, unreadable, or corrupt
// entries are all reported as ErrCacheMiss so the caller refetches instead
// of failing the run on a bad file.
func (s *Store) Get(key Key) ([]byte, error) {
	path := filepath.Join(s.dir, key.Filename())
	payload, err := os.ReadFile(path)
	if err != nil {
		cacheMisses.Inc()
		return nil, ErrCacheMiss
	}
	if !json.Valid(payload) {
		s.logger.Warn("discarding corrupt cache entry", slog.String("file", key.Filename()))
		cacheMisses.Inc()
		return nil, ErrCacheMiss
	}
	cacheHits.Inc()
	return payload, nil
}

// Put persists payload verbatim under key.
func (s *Store) Put(key Key, payload []byte) error {
	path := filepath.Join(s.dir, key.Filename())
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write cache entry %s: %w", key.Filename(), err)
	}
	return nil
}

// GetOrFetch returns the cached payload for key, or invokes fetch on a miss
// and persists the result. The boolean reports whether the payload came from
// the cache, which callers use to skip rate-limit pauses.
func (s *Store) GetOrFetch(key Key, fetch func() ([]byte, error)) ([]byte, bool, error) {
	if payload, err := s.Get(key); err == nil {
		return payload, true, nil
	}
	payload, err := fetch()
	if err != nil {
		return nil, false, err
	}
	if err := s.Put(key, payload); err != nil {
		// A failed write only costs a refetch next run.
		s.logger.Warn("failed to persist cache entry",
			slog.String("file", key.Filename()),
			slog.String("error", err.Error()))
	}
	return payload, false, nil
}
