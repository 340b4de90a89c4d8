package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/adapters/extract"
	"github.com/mikey/email-classifier/internal/config"
	"github.com/mikey/email-classifier/internal/core"
	"github.com/mikey/email-classifier/internal/factory"
	"github.com/mikey/email-classifier/internal/logging"
	"github.com/mikey/email-classifier/internal/ml"
	"github.com/mikey/email-classifier/internal/ports"
	"github.com/mikey/email-classifier/internal/utils"
)

// BuildContainer creates the dependency injection container for the server
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideClassifier(container); err != nil {
		return nil, err
	}

	// Register cache repository
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory, logger *zap.Logger) (factory.StoppableCache, error) {
		if !f.IsCacheEnabled() {
			logger.Info("LLM category cache disabled")
			return nil, nil
		}
		return f.CreateCacheRepository()
	}); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideClassifier registers everything between configuration and the
// classification service. It expects *config.Config, *zap.Logger and
// factory.StoppableCache to be provided by the caller.
func provideClassifier(container *dig.Container) error {
	providers := []interface{}{
		utils.NewTextProcessor,
		newModelStore,
		func(tp *utils.TextProcessor, logger *zap.Logger) core.TextExtractor {
			return extract.NewFileExtractor(tp, logger)
		},
		factory.NewLLMFactory,
		func(f *factory.LLMFactory) (core.LLMClient, error) {
			return f.CreateLLMClient()
		},
		func(cfg *config.Config) (core.ServiceConfig, error) {
			return cfg.GetService()
		},
		func(
			store *ml.ModelStore,
			llm core.LLMClient,
			cache factory.StoppableCache,
			extractor core.TextExtractor,
			logger *zap.Logger,
			serviceCfg core.ServiceConfig,
		) *core.ClassifierService {
			var repo core.CacheRepository
			if cache != nil {
				repo = cache
			}
			return core.NewClassifierService(store, llm, repo, extractor, logger, serviceCfg)
		},
	}
	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return err
		}
	}
	return nil
}

// newModelStore loads the persisted pipeline. A missing or broken artifact is
// logged and left for a later reload; requests then report the model as
// unavailable.
func newModelStore(cfg *config.Config, logger *zap.Logger) *ml.ModelStore {
	store := ml.NewModelStore(cfg.GetModel().Path, logger)
	if err := store.Load(); err != nil {
		logger.Warn("Classification model not loaded", zap.String("path", store.Path()), zap.Error(err))
	}
	return store
}
