package bedrock

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/config"
	"github.com/mikey/email-classifier/internal/utils"
)

// Factory creates Bedrock clients
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new Bedrock factory
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClient creates a new Bedrock client using the default AWS
// credential chain.
func (f *Factory) CreateClient() (*BedrockClient, error) {
	bedrockCfg := f.cfg.GetBedrock()

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(bedrockCfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return NewBedrockClient(
		bedrockruntime.NewFromConfig(awsCfg),
		Options{
			ModelID:             bedrockCfg.ModelID,
			MaxTokens:           bedrockCfg.MaxTokens,
			CategoryTemperature: bedrockCfg.CategoryTemperature,
			ReplyTemperature:    bedrockCfg.ReplyTemperature,
			MaxBodySize:         bedrockCfg.MaxBodySize,
		},
		f.logger,
		f.textProcessor,
	), nil
}
