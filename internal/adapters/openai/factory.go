package openai

import (
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/config"
	"github.com/mikey/email-classifier/internal/core"
	"github.com/mikey/email-classifier/internal/utils"
)

// Factory creates new instances of OpenAIClient
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new factory for OpenAIClient instances
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateLLMClient creates a new OpenAIClient. Without an API key the client
// reports itself unavailable instead of failing every call at the API.
func (f *Factory) CreateLLMClient() (core.LLMClient, error) {
	openaiCfg := f.cfg.GetOpenAI()
	if openaiCfg.APIKey == "" {
		f.logger.Warn("No OpenAI API key configured, LLM features disabled")
		return core.UnavailableLLM{}, nil
	}
	if openaiCfg.ModelName == "" {
		return nil, fmt.Errorf("openai.model_name must be set")
	}

	clientCfg := openai.DefaultConfig(openaiCfg.APIKey)
	if openaiCfg.BaseURL != "" {
		clientCfg.BaseURL = openaiCfg.BaseURL
	}

	return NewOpenAIClient(
		openai.NewClientWithConfig(clientCfg),
		Options{
			ModelName:           openaiCfg.ModelName,
			MaxTokens:           openaiCfg.MaxTokens,
			CategoryTemperature: openaiCfg.CategoryTemperature,
			ReplyTemperature:    openaiCfg.ReplyTemperature,
			MaxBodySize:         openaiCfg.MaxBodySize,
		},
		f.logger,
		f.textProcessor,
	), nil
}
