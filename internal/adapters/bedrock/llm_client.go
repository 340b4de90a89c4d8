package bedrock

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/core"
	"github.com/mikey/email-classifier/internal/utils"
)

// InvokeModelAPI is the part of the Bedrock runtime client used here.
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Options configures the Bedrock client.
type Options struct {
	ModelID             string
	MaxTokens           int
	CategoryTemperature float32
	ReplyTemperature    float32
	MaxBodySize         int
}

// BedrockClient is an implementation of the LLMClient interface using Amazon Bedrock
type BedrockClient struct {
	client        InvokeModelAPI
	opts          Options
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client InvokeModelAPI,
	opts Options,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockClient {
	return &BedrockClient{
		client:        client,
		opts:          opts,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// ClassifyCategory asks the Bedrock model for a category.
func (c *BedrockClient) ClassifyCategory(ctx context.Context, text string) (*core.CategoryResult, error) {
	body := c.textProcessor.ProcessText(text, c.opts.MaxBodySize)
	content, err := c.invoke(ctx, core.CategorySystemPrompt, body, c.opts.CategoryTemperature)
	if err != nil {
		return nil, err
	}
	result := core.ParseCategoryResponse(content)
	return &result, nil
}

// GenerateReply drafts a reply to text given the local label.
func (c *BedrockClient) GenerateReply(ctx context.Context, text, label string) (string, error) {
	body := c.textProcessor.ProcessText(text, c.opts.MaxBodySize)
	content, err := c.invoke(ctx, core.ReplySystemPrompt, core.BuildReplyPrompt(body, label), c.opts.ReplyTemperature)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func (c *BedrockClient) invoke(ctx context.Context, system, user string, temperature float32) (string, error) {
	payload, err := buildPayload(c.opts.ModelID, system, user, c.opts.MaxTokens, temperature)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.opts.ModelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	text, err := parseResponse(c.opts.ModelID, resp.Body)
	if err != nil {
		return "", err
	}
	c.logger.Debug("Bedrock response", zap.String("model", c.opts.ModelID), zap.Int("length", len(text)))
	return text, nil
}

func isAnthropicModel(modelID string) bool {
	return strings.Contains(modelID, "anthropic.")
}

func isAmazonTitanModel(modelID string) bool {
	return strings.Contains(modelID, "amazon.titan")
}

// buildPayload encodes the request body for the model family.
func buildPayload(modelID, system, user string, maxTokens int, temperature float32) ([]byte, error) {
	switch {
	case isAnthropicModel(modelID):
		return json.Marshal(map[string]interface{}{
			"anthropic_version": "bedrock-2023-05-31",
			"system":            system,
			"max_tokens":        maxTokens,
			"temperature":       temperature,
			"messages": []map[string]interface{}{
				{"role": "user", "content": user},
			},
		})
	case isAmazonTitanModel(modelID):
		return json.Marshal(map[string]interface{}{
			"inputText": system + "\n\n" + user,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": maxTokens,
				"temperature":   temperature,
			},
		})
	default:
		return json.Marshal(map[string]interface{}{
			"prompt":      system + "\n\n" + user,
			"max_tokens":  maxTokens,
			"temperature": temperature,
		})
	}
}

// parseResponse extracts the generated text from a model response body.
func parseResponse(modelID string, body []byte) (string, error) {
	switch {
	case isAnthropicModel(modelID):
		var resp struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		var sb strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		if sb.Len() == 0 {
			return "", fmt.Errorf("empty response from Claude model")
		}
		return sb.String(), nil
	case isAmazonTitanModel(modelID):
		var resp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(resp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return resp.Results[0].OutputText, nil
	default:
		var resp struct {
			Output     string `json:"output"`
			Text       string `json:"text"`
			Response   string `json:"response"`
			Generation string `json:"generation"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
		}
		for _, s := range []string{resp.Output, resp.Text, resp.Response, resp.Generation} {
			if s != "" {
				return s, nil
			}
		}
		return string(body), nil
	}
}
