package ports

import (
	"context"

	"github.com/mikey/email-classifier/internal/core"
	"github.com/mikey/email-classifier/internal/ml"
)

// EmailFilter defines the interface for a classification front-end
type EmailFilter interface {
	// ProcessEmail classifies a parsed email
	ProcessEmail(ctx context.Context, email *core.Email) (*core.ClassificationResult, error)

	// Start starts the front-end
	Start() error

	// Stop stops the front-end
	Stop() error
}

// Classifier is the inference entry point used by front-ends.
type Classifier interface {
	Classify(ctx context.Context, req core.ClassificationRequest) (*core.ClassificationResult, error)
	ClassifyEmail(ctx context.Context, email *core.Email) (*core.ClassificationResult, error)
}

// ModelRegistry exposes the loaded pipeline's state to operators.
type ModelRegistry interface {
	Ready() bool
	Load() error
	Info() *ml.ArtifactInfo
}
