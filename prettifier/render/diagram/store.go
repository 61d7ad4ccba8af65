// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: prettifier/render/diagram/store.go
// Summary: SQLite disk cache for rendered diagram images.
//
// Images are keyed by a digest of the fence tag and the diagram source, so
// the same diagram printed again (or in a later session) skips the backend.

package diagram

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultStoreEntries bounds the table; older images are pruned on Put.
const DefaultStoreEntries = 512

const storeSchema = `
CREATE TABLE IF NOT EXISTS diagrams (
    key TEXT PRIMARY KEY,             -- sha256(tag, source)
    tag TEXT NOT NULL,
    png BLOB NOT NULL,
    created INTEGER NOT NULL          -- UnixNano
);

CREATE INDEX IF NOT EXISTS idx_diagrams_created ON diagrams(created);
`

// Store is a persistent image cache. It is safe for concurrent use.
type Store struct {
	db         *sql.DB
	maxEntries int
}

// OpenStore opens (creating if needed) the cache database at path.
func OpenStore(path string, maxEntries int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(2000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if maxEntries <= 0 {
		maxEntries = DefaultStoreEntries
	}
	return &Store{db: db, maxEntries: maxEntries}, nil
}

// StoreKey digests a diagram for lookup.
func StoreKey(tag, source string) string {
	h := sha256.New()
	h.Write([]byte(tag))
	h.Write([]byte{0})
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached image for key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var png []byte
	err := s.db.QueryRowContext(ctx, "SELECT png FROM diagrams WHERE key = ?", key).Scan(&png)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("diagram cache lookup: %w", err)
	}
	return png, true, nil
}

// Put stores an image and prunes the oldest rows beyond the entry limit.
func (s *Store) Put(ctx context.Context, key, tag string, png []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO diagrams (key, tag, png, created) VALUES (?, ?, ?, ?)",
		key, tag, png, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("diagram cache insert: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM diagrams WHERE key NOT IN (
		    SELECT key FROM diagrams ORDER BY created DESC LIMIT ?)`, s.maxEntries)
	if err != nil {
		return fmt.Errorf("diagram cache prune: %w", err)
	}
	return nil
}

// Len returns the number of cached images.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM diagrams").Scan(&n); err != nil {
		return 0, fmt.Errorf("diagram cache count: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
