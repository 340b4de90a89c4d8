package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/core"
)

// MySQLCache is a MySQL implementation of the CacheRepository interface
type MySQLCache struct {
	db       *sql.DB
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS category_cache (
			cache_key CHAR(64) PRIMARY KEY,
			category VARCHAR(255) NOT NULL,
			confidence DOUBLE NOT NULL,
			created_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			INDEX idx_expires_at (expires_at)
		) DEFAULT CHARSET=utf8mb4
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	c := &MySQLCache{
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
func (c *MySQLCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
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
func (c *MySQLCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO category_cache (cache_key, category, confidence, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			category = VALUES(category),
			confidence = VALUES(confidence),
			created_at = VALUES(created_at),
			expires_at = VALUES(expires_at)
	`, entry.Key, entry.Category, entry.Confidence, entry.CreatedAt.UnixMilli(), entry.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *MySQLCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM category_cache WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *MySQLCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM category_cache WHERE expires_at <= ?`, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rows))
	}
	return nil
}

// Stop stops the background cleanup task and closes the database connection
func (c *MySQLCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close MySQL database", zap.Error(err))
		}
	})
}
