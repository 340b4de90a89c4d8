package factory

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/adapters/bedrock"
	"github.com/mikey/email-classifier/internal/adapters/gemini"
	"github.com/mikey/email-classifier/internal/adapters/guard"
	"github.com/mikey/email-classifier/internal/adapters/openai"
	"github.com/mikey/email-classifier/internal/config"
	"github.com/mikey/email-classifier/internal/core"
	"github.com/mikey/email-classifier/internal/utils"
)

// LLMFactory creates LLM clients
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	closers       []io.Closer
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateLLMClient creates the configured provider behind a circuit breaker.
// A provider without credentials, or provider "none", yields a client that
// always reports core.ErrLLMUnavailable.
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	llmConfig, err := f.cfg.GetLLM()
	if err != nil {
		return nil, err
	}

	client, err := f.createProvider(llmConfig.Provider)
	if err != nil {
		return nil, err
	}
	if _, ok := client.(core.UnavailableLLM); ok {
		return client, nil
	}

	f.logger.Info("LLM provider configured", zap.String("provider", llmConfig.Provider))
	return guard.NewBreakerClient(client, guard.Settings{
		Name:        llmConfig.Provider,
		MaxFailures: llmConfig.BreakerMaxFailures,
		OpenTimeout: llmConfig.BreakerOpenTimeout,
	}, f.logger), nil
}

func (f *LLMFactory) createProvider(provider string) (core.LLMClient, error) {
	switch provider {
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
	case "gemini":
		if f.cfg.GetGemini().APIKey == "" {
			f.logger.Warn("No Gemini API key configured, LLM features disabled")
			return core.UnavailableLLM{}, nil
		}
		client, err := gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
		if err != nil {
			return nil, err
		}
		f.closers = append(f.closers, client)
		return client, nil
	case "openai":
		return openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateLLMClient()
	case "none", "":
		f.logger.Warn("No LLM provider configured, LLM features disabled")
		return core.UnavailableLLM{}, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// Close releases provider connections opened by this factory.
func (f *LLMFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
