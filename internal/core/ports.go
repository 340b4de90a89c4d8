package core

import (
	"context"

	"github.com/mikey/email-classifier/internal/ml"
)

// LLMClient defines the interface for interacting with LLM services
type LLMClient interface {
	// ClassifyCategory asks the model for a free-form category of the text
	ClassifyCategory(ctx context.Context, text string) (*CategoryResult, error)

	// GenerateReply drafts an answer to the text given the local label
	GenerateReply(ctx context.Context, text, label string) (string, error)
}

// LocalClassifier scores text with the locally trained pipeline.
type LocalClassifier interface {
	Classify(text string) (ml.Prediction, error)
}

// TextExtractor turns an uploaded file into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// CacheRepository defines the interface for caching LLM category results
type CacheRepository interface {
	// Get retrieves a cached entry
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// UnavailableLLM stands in when no LLM provider is configured. Every call
// reports ErrLLMUnavailable so the service substitutes its placeholders.
type UnavailableLLM struct{}

func (UnavailableLLM) ClassifyCategory(context.Context, string) (*CategoryResult, error) {
	return nil, ErrLLMUnavailable
}

func (UnavailableLLM) GenerateReply(context.Context, string, string) (string, error) {
	return "", ErrLLMUnavailable
}
