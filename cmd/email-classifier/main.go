package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/config"
	"github.com/mikey/email-classifier/internal/di"
	"github.com/mikey/email-classifier/internal/factory"
	"github.com/mikey/email-classifier/internal/ml"
	"github.com/mikey/email-classifier/internal/ports"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	emailFilter ports.EmailFilter,
	models *ml.ModelStore,
	llmFactory *factory.LLMFactory,
	cacheRepo factory.StoppableCache,
) error {
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.GetModel().Watch {
		if err := models.Watch(ctx); err != nil {
			logger.Warn("Model hot reload disabled", zap.Error(err))
		}
	}

	if err := emailFilter.Start(); err != nil {
		logger.Error("Failed to start filter", zap.Error(err))
		return err
	}
	logger.Info("Email classifier started",
		zap.String("filter", cfg.GetString("server.filter_type")),
		zap.Bool("model_ready", models.Ready()))

	<-ctx.Done()
	logger.Info("Shutting down...")

	if err := emailFilter.Stop(); err != nil {
		logger.Error("Failed to stop filter", zap.Error(err))
	}
	if err := llmFactory.Close(); err != nil {
		logger.Error("Failed to close LLM client", zap.Error(err))
	}
	if cacheRepo != nil {
		cacheRepo.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}
