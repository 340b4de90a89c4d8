package openai

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/core"
	"github.com/mikey/email-classifier/internal/utils"
)

// Options configures the OpenAI client.
type Options struct {
	ModelName           string
	MaxTokens           int
	CategoryTemperature float32
	ReplyTemperature    float32
	MaxBodySize         int
}

// OpenAIClient is an implementation of the LLMClient interface using OpenAI
type OpenAIClient struct {
	client        *openai.Client
	opts          Options
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client *openai.Client,
	opts Options,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:        client,
		opts:          opts,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// ClassifyCategory asks the model for a category in the constrained grammar.
func (c *OpenAIClient) ClassifyCategory(ctx context.Context, text string) (*core.CategoryResult, error) {
	body := c.textProcessor.ProcessText(text, c.opts.MaxBodySize)
	content, err := c.complete(ctx, core.CategorySystemPrompt, body, c.opts.CategoryTemperature)
	if err != nil {
		return nil, err
	}
	result := core.ParseCategoryResponse(content)
	c.logger.Debug("OpenAI category response",
		zap.String("raw", content),
		zap.String("category", result.Category),
		zap.Float64("confidence", result.Confidence))
	return &result, nil
}

// GenerateReply drafts a reply to text given the local label.
func (c *OpenAIClient) GenerateReply(ctx context.Context, text, label string) (string, error) {
	body := c.textProcessor.ProcessText(text, c.opts.MaxBodySize)
	content, err := c.complete(ctx, core.ReplySystemPrompt, core.BuildReplyPrompt(body, label), c.opts.ReplyTemperature)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func (c *OpenAIClient) complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.opts.ModelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: system,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: user,
			},
		},
		MaxTokens:   c.opts.MaxTokens,
		Temperature: temperature,
	}
	// A zero temperature is dropped by omitempty and the API default applies.
	if req.Temperature == 0 {
		req.Temperature = math.SmallestNonzeroFloat32
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}
