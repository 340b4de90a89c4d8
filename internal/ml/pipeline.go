package ml

import (
	"fmt"

	"github.com/mikey/email-classifier/internal/nlp"
)

// Pipeline is a fitted normalizer, vocabulary and classifier used together.
// It is immutable and safe for concurrent use.
type Pipeline struct {
	normalizer *nlp.Normalizer
	vocab      *Vocabulary
	model      *LogisticModel
}

// NewPipeline pairs a vocabulary with a classifier, rejecting mismatched
// dimensions.
func NewPipeline(normalizer *nlp.Normalizer, vocab *Vocabulary, model *LogisticModel) (*Pipeline, error) {
	if normalizer == nil || vocab == nil || model == nil {
		return nil, fmt.Errorf("incomplete pipeline")
	}
	if vocab.Size() != model.Dim() {
		return nil, fmt.Errorf("%w: vocabulary has %d terms, classifier expects %d",
			ErrDimensionMismatch, vocab.Size(), model.Dim())
	}
	return &Pipeline{normalizer: normalizer, vocab: vocab, model: model}, nil
}

// Vocabulary returns the fitted vocabulary.
func (p *Pipeline) Vocabulary() *Vocabulary { return p.vocab }

// Model returns the fitted classifier.
func (p *Pipeline) Model() *LogisticModel { return p.model }

// Vectorize normalizes and vectorizes raw text.
func (p *Pipeline) Vectorize(text string) FeatureVector {
	return p.vocab.Transform(p.normalizer.Normalize(text))
}

// Classify runs the full local classification path on raw text. A text
// without known stems is scored on the intercept alone.
func (p *Pipeline) Classify(text string) (Prediction, error) {
	return p.model.Predict(p.Vectorize(text))
}
