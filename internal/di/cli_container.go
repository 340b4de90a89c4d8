package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/config"
	"github.com/mikey/email-classifier/internal/factory"
	"github.com/mikey/email-classifier/internal/logging"
)

// CLIOptions holds the global flags of the command line tool
type CLIOptions struct {
	ConfigFile string
	ModelPath  string
	Provider   string
	Verbose    bool
	JSONLog    bool
}

// BuildCLIContainer creates the dependency injection container for the
// command line tool. The LLM category cache is always in memory.
func BuildCLIContainer(opts CLIOptions) (*dig.Container, error) {
	container := dig.New()

	if err := container.Provide(func() CLIOptions { return opts }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(opts CLIOptions) (*zap.Logger, error) {
		return logging.InitConsoleLogger(opts.Verbose, opts.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration, flags override the file
	if err := container.Provide(func(opts CLIOptions, logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.NewWithFile(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Debug("Loaded configuration from file", zap.String("file", used))
		}
		applyOverrides(cfg, opts)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (factory.StoppableCache, error) {
		cfg.Set("cache.type", "memory")
		cfg.Set("cache.cleanup_frequency", "0s")
		return factory.NewCacheFactory(cfg, logger).CreateCacheRepository()
	}); err != nil {
		return nil, err
	}

	if err := provideClassifier(container); err != nil {
		return nil, err
	}

	return container, nil
}

func applyOverrides(cfg *config.Config, opts CLIOptions) {
	if opts.ModelPath != "" {
		cfg.Set("model.path", opts.ModelPath)
	}
	if opts.Provider != "" {
		cfg.Set("llm.provider", opts.Provider)
	}
	cfg.Set("cli.verbose", opts.Verbose)
}
