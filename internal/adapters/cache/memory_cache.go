package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/core"
)

// MemoryCache is an in-memory implementation of the CacheRepository interface
type MemoryCache struct {
	entries     map[string]core.CacheEntry
	mu          sync.RWMutex
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

// NewMemoryCache creates a new in-memory cache. A non-positive cleanupFreq
// disables the background sweep.
func NewMemoryCache(logger *zap.Logger, cleanupFreq time.Duration) *MemoryCache {
	c := &MemoryCache{
		entries:     make(map[string]core.CacheEntry),
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}
	if cleanupFreq > 0 {
		go runCleanup(c.Cleanup, cleanupFreq, c.stopCh, logger)
	}
	return c
}

// Get retrieves a cached entry
func (c *MemoryCache) Get(_ context.Context, key string) (*core.CacheEntry, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if !c.now().Before(entry.ExpiresAt) {
		return nil, ErrExpired
	}
	return &entry, nil
}

// Set stores a cache entry
func (c *MemoryCache) Set(_ context.Context, entry *core.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Key] = *entry
	return nil
}

// Delete removes a cache entry
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Cleanup removes expired entries
func (c *MemoryCache) Cleanup(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expiredCount := 0
	for key, entry := range c.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(c.entries, key)
			expiredCount++
		}
	}

	c.logger.Debug("Cleaned up expired cache entries", zap.Int("expired_count", expiredCount))
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stop stops the background cleanup task
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// runCleanup calls cleanup every freq until stop is closed.
func runCleanup(cleanup func(context.Context) error, freq time.Duration, stop <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := cleanup(context.Background()); err != nil {
				logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-stop:
			return
		}
	}
}
