package config

import (
	"fmt"
	"time"

	"github.com/mikey/email-classifier/internal/core"
	"github.com/mikey/email-classifier/internal/ml"
	"github.com/mikey/email-classifier/internal/training"
)

// LLMConfig represents the provider-independent LLM settings
type LLMConfig struct {
	Provider           string
	Timeout            time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region              string
	ModelID             string
	MaxTokens           int
	CategoryTemperature float32
	ReplyTemperature    float32
	MaxBodySize         int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey              string
	ModelName           string
	MaxTokens           int
	CategoryTemperature float32
	ReplyTemperature    float32
	MaxBodySize         int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey              string
	BaseURL             string
	ModelName           string
	MaxTokens           int
	CategoryTemperature float32
	ReplyTemperature    float32
	MaxBodySize         int
}

// ModelConfig locates the persisted classification pipeline.
type ModelConfig struct {
	Path  string
	Watch bool
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() (LLMConfig, error) {
	timeout, err := c.GetDuration("llm.timeout")
	if err != nil {
		return LLMConfig{}, err
	}
	openTimeout, err := c.GetDuration("llm.breaker.open_timeout")
	if err != nil {
		return LLMConfig{}, err
	}
	return LLMConfig{
		Provider:           c.GetString("llm.provider"),
		Timeout:            timeout,
		BreakerMaxFailures: uint32(c.GetInt("llm.breaker.max_failures")),
		BreakerOpenTimeout: openTimeout,
	}, nil
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:              c.GetString("bedrock.region"),
		ModelID:             c.GetString("bedrock.model_id"),
		MaxTokens:           c.GetInt("bedrock.max_tokens"),
		CategoryTemperature: float32(c.GetFloat64("bedrock.category_temperature")),
		ReplyTemperature:    float32(c.GetFloat64("bedrock.reply_temperature")),
		MaxBodySize:         c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:              c.GetString("gemini.api_key"),
		ModelName:           c.GetString("gemini.model_name"),
		MaxTokens:           c.GetInt("gemini.max_tokens"),
		CategoryTemperature: float32(c.GetFloat64("gemini.category_temperature")),
		ReplyTemperature:    float32(c.GetFloat64("gemini.reply_temperature")),
		MaxBodySize:         c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:              c.GetString("openai.api_key"),
		BaseURL:             c.GetString("openai.base_url"),
		ModelName:           c.GetString("openai.model_name"),
		MaxTokens:           c.GetInt("openai.max_tokens"),
		CategoryTemperature: float32(c.GetFloat64("openai.category_temperature")),
		ReplyTemperature:    float32(c.GetFloat64("openai.reply_temperature")),
		MaxBodySize:         c.GetInt("openai.max_body_size"),
	}
}

// GetModel returns where the classification pipeline lives.
func (c *Config) GetModel() ModelConfig {
	return ModelConfig{
		Path:  c.GetString("model.path"),
		Watch: c.GetBool("model.watch"),
	}
}

// GetTraining returns the training hyper-parameters.
func (c *Config) GetTraining() (training.Config, error) {
	cfg := training.Config{
		MaxFeatures: c.GetInt("training.max_features"),
		Fit: ml.FitConfig{
			C:         c.GetFloat64("training.c"),
			MaxIter:   c.GetInt("training.max_iter"),
			Tolerance: c.GetFloat64("training.tolerance"),
		},
	}
	if cfg.Fit.C <= 0 {
		return cfg, fmt.Errorf("training.c must be positive, got %v", cfg.Fit.C)
	}
	if cfg.Fit.MaxIter <= 0 {
		return cfg, fmt.Errorf("training.max_iter must be positive, got %d", cfg.Fit.MaxIter)
	}
	return cfg, nil
}

// GetService returns the classification service settings.
func (c *Config) GetService() (core.ServiceConfig, error) {
	llm, err := c.GetLLM()
	if err != nil {
		return core.ServiceConfig{}, err
	}
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return core.ServiceConfig{}, err
	}
	return core.ServiceConfig{
		LLMTimeout:   llm.Timeout,
		CacheEnabled: c.GetBool("cache.enabled"),
		CacheTTL:     ttl,
	}, nil
}
