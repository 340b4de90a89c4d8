package gemini

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/config"
	"github.com/mikey/email-classifier/internal/utils"
)

// Factory creates new instances of GeminiClient
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new factory for GeminiClient instances
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClient creates a new GeminiClient
func (f *Factory) CreateClient() (*GeminiClient, error) {
	geminiCfg := f.cfg.GetGemini()
	if geminiCfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	return NewGeminiClient(
		context.Background(),
		geminiCfg.APIKey,
		Options{
			ModelName:           geminiCfg.ModelName,
			MaxTokens:           geminiCfg.MaxTokens,
			CategoryTemperature: geminiCfg.CategoryTemperature,
			ReplyTemperature:    geminiCfg.ReplyTemperature,
			MaxBodySize:         geminiCfg.MaxBodySize,
		},
		f.logger,
		f.textProcessor,
	)
}
