package geocode

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// cacheKey returns SHA-256 hex of the normalized address for cache lookup.
func cacheKey(address string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(address)), " ")
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

// Cache is a local geocode response cache backed by SQLite. It stores both
// matches and non-matches so repeated misses skip the network too.
type Cache struct {
	db *sql.DB
}

const cacheMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash TEXT PRIMARY KEY,
	latitude     REAL NOT NULL DEFAULT 0,
	longitude    REAL NOT NULL DEFAULT 0,
	source       TEXT NOT NULL DEFAULT '',
	quality      TEXT NOT NULL DEFAULT '',
	matched      INTEGER NOT NULL,
	cached_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// OpenCache opens a cache database at the given path, creating it and its
// schema if needed.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: open cache")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "geocode: exec %s", pragma)
		}
	}
	if _, err := db.Exec(cacheMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "geocode: migrate cache")
	}
	return &Cache{db: db}, nil
}

// Lookup returns the cached result for a key, or nil when absent.
func (c *Cache) Lookup(ctx context.Context, key string) (*Result, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT latitude, longitude, source, quality, matched FROM geocode_cache WHERE address_hash = ?`,
		key,
	)

	var r Result
	err := row.Scan(&r.Latitude, &r.Longitude, &r.Source, &r.Quality, &r.Matched)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "geocode: cache lookup")
	}

	keyPrefix := key
	if len(keyPrefix) > 12 {
		keyPrefix = keyPrefix[:12]
	}
	zap.L().Debug("geocode cache hit", zap.String("key", keyPrefix), zap.Bool("matched", r.Matched))
	return &r, nil
}

// Store upserts a result (match or non-match) for a key.
func (c *Cache) Store(ctx context.Context, key string, result *Result) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (address_hash, latitude, longitude, source, quality, matched, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (address_hash) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			source = excluded.source,
			quality = excluded.quality,
			matched = excluded.matched,
			cached_at = datetime('now')`,
		key, result.Latitude, result.Longitude, result.Source, result.Quality, result.Matched,
	)
	if err != nil {
		return eris.Wrap(err, "geocode: store cache")
	}
	return nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
