package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mikey/email-classifier/internal/core"
	"github.com/mikey/email-classifier/internal/utils"
)

// Options configures the Gemini client.
type Options struct {
	ModelName           string
	MaxTokens           int
	CategoryTemperature float32
	ReplyTemperature    float32
	MaxBodySize         int
}

// GeminiClient is an implementation of the LLMClient interface using Google Gemini
type GeminiClient struct {
	client        *genai.Client
	categoryModel *genai.GenerativeModel
	replyModel    *genai.GenerativeModel
	opts          Options
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGeminiClient creates a new Gemini client. Category and reply calls use
// separately tuned models sharing one connection.
func NewGeminiClient(
	ctx context.Context,
	apiKey string,
	opts Options,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
	clientOpts ...option.ClientOption,
) (*GeminiClient, error) {
	clientOpts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, clientOpts...)
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:        client,
		categoryModel: newModel(client, opts.ModelName, opts.MaxTokens, opts.CategoryTemperature, core.CategorySystemPrompt),
		replyModel:    newModel(client, opts.ModelName, opts.MaxTokens, opts.ReplyTemperature, core.ReplySystemPrompt),
		opts:          opts,
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

func newModel(client *genai.Client, name string, maxTokens int, temperature float32, system string) *genai.GenerativeModel {
	model := client.GenerativeModel(name)
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	return model
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// ClassifyCategory asks Gemini for a category in the constrained grammar.
func (c *GeminiClient) ClassifyCategory(ctx context.Context, text string) (*core.CategoryResult, error) {
	body := c.textProcessor.ProcessText(text, c.opts.MaxBodySize)
	resp, err := c.categoryModel.GenerateContent(ctx, genai.Text(body))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	content, err := responseText(resp)
	if err != nil {
		return nil, err
	}
	result := core.ParseCategoryResponse(content)
	c.logger.Debug("Gemini category response",
		zap.String("raw", content),
		zap.String("category", result.Category))
	return &result, nil
}

// GenerateReply drafts a reply to text given the local label.
func (c *GeminiClient) GenerateReply(ctx context.Context, text, label string) (string, error) {
	body := c.textProcessor.ProcessText(text, c.opts.MaxBodySize)
	resp, err := c.replyModel.GenerateContent(ctx, genai.Text(core.BuildReplyPrompt(body, label)))
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	content, err := responseText(resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from Gemini")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text in Gemini response")
	}
	return sb.String(), nil
}
