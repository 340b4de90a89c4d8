package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/core"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS category_cache (
	cache_key  TEXT PRIMARY KEY,
	category   TEXT NOT NULL,
	confidence REAL NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_category_cache_expires_at ON category_cache(expires_at);
`

// SQLiteCache is a SQLite implementation of the CacheRepository interface.
// Timestamps are stored as unix milliseconds.
type SQLiteCache struct {
	db       *sql.DB
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// sqlite serialises writers anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	c := &SQLiteCache{
		db:     db,
		logger: logger,
		stopCh: make(chan struct{}),
	}
	if cleanupFreq > 0 {
		go runCleanup(c.Cleanup, cleanupFreq, c.stopCh, logger)
	}
	return c, nil
}

// Get retrieves a cached entry
func (c *SQLiteCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	var (
		entry     = core.CacheEntry{Key: key}
		createdAt int64
		expiresAt int64
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT category, confidence, created_at, expires_at
		FROM category_cache
		WHERE cache_key = ?
	`, key).Scan(&entry.Category, &entry.Confidence, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	entry.CreatedAt = time.UnixMilli(createdAt)
	entry.ExpiresAt = time.UnixMilli(expiresAt)
	if !time.Now().Before(entry.ExpiresAt) {
		return nil, ErrExpired
	}
	return &entry, nil
}

// Set stores a cache entry
func (c *SQLiteCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO category_cache (cache_key, category, confidence, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.Key, entry.Category, entry.Confidence, entry.CreatedAt.UnixMilli(), entry.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *SQLiteCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM category_cache WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *SQLiteCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM category_cache WHERE expires_at <= ?`, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

// Stop stops the background cleanup task and closes the database connection
func (c *SQLiteCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close SQLite database", zap.Error(err))
		}
	})
}
