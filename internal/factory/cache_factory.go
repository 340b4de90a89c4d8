package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/adapters/cache"
	"github.com/mikey/email-classifier/internal/config"
	"github.com/mikey/email-classifier/internal/core"
)

// StoppableCache is a cache repository that owns background resources
type StoppableCache interface {
	core.CacheRepository
	Stop()
}

// CacheFactory creates cache repositories based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCacheRepository creates a cache repository based on the configuration
func (f *CacheFactory) CreateCacheRepository() (StoppableCache, error) {
	cacheType := f.cfg.GetString("cache.type")
	cleanupFreq, err := f.cfg.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return nil, fmt.Errorf("invalid cache cleanup frequency: %w", err)
	}

	switch cacheType {
	case "memory":
		return cache.NewMemoryCache(f.logger, cleanupFreq), nil
	case "sqlite":
		sqlitePath := f.cfg.GetString("cache.sqlite_path")
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return cache.NewSQLiteCache(sqlitePath, f.logger, cleanupFreq)
	case "mysql":
		return cache.NewMySQLCache(f.cfg.GetString("cache.mysql_dsn"), f.logger, cleanupFreq)
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return cache.NewRedisCache(ctx, f.cfg.GetString("cache.redis_url"), f.cfg.GetString("cache.redis_prefix"), f.logger)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheType)
	}
}

// IsCacheEnabled returns whether caching is enabled
func (f *CacheFactory) IsCacheEnabled() bool {
	return f.cfg.GetBool("cache.enabled")
}
