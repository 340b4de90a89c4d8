package training

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/ml"
	"github.com/mikey/email-classifier/internal/nlp"
)

// Config holds training hyper-parameters.
type Config struct {
	MaxFeatures int
	Fit         ml.FitConfig
}

// DefaultConfig mirrors the production training run.
func DefaultConfig() Config {
	return Config{MaxFeatures: 1_000_000, Fit: ml.DefaultFitConfig()}
}

// Report summarises a training run.
type Report struct {
	Documents int
	Features  int
	Classes   []string
	Accuracy  float64
	Stats     ml.FitStats
	Duration  time.Duration
	ModelPath string
}

// Trainer fits the normalizer, vectorizer and classifier chain.
type Trainer struct {
	normalizer *nlp.Normalizer
	cfg        Config
	logger     *zap.Logger
}

// NewTrainer creates a new trainer
func NewTrainer(cfg Config, logger *zap.Logger) *Trainer {
	return &Trainer{normalizer: nlp.NewNormalizer(), cfg: cfg, logger: logger}
}

// Fit trains a pipeline on an already validated dataset.
func (t *Trainer) Fit(ctx context.Context, ds *Dataset) (*ml.Pipeline, *Report, error) {
	start := time.Now()

	corpus := make([][]string, len(ds.Samples))
	for i, s := range ds.Samples {
		corpus[i] = t.normalizer.Normalize(s.Text)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	vocab := ml.FitVocabulary(corpus, t.cfg.MaxFeatures)
	features := make([]ml.FeatureVector, len(corpus))
	for i, doc := range corpus {
		features[i] = vocab.Transform(doc)
	}
	t.logger.Debug("Vectorized training corpus",
		zap.Int("documents", len(corpus)),
		zap.Int("features", vocab.Size()))
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	labels := ds.LabelColumn()
	model, stats, err := ml.FitLogistic(features, labels, t.cfg.Fit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fit classifier: %w", err)
	}
	if !stats.Converged {
		t.logger.Warn("Classifier did not converge",
			zap.Int("iterations", stats.Iterations),
			zap.Int("max_iter", t.cfg.Fit.MaxIter))
	}

	pipeline, err := ml.NewPipeline(t.normalizer, vocab, model)
	if err != nil {
		return nil, nil, err
	}

	correct := 0
	for i, f := range features {
		pred, err := model.Predict(f)
		if err != nil {
			return nil, nil, err
		}
		if pred.Label == labels[i] {
			correct++
		}
	}

	report := &Report{
		Documents: len(ds.Samples),
		Features:  vocab.Size(),
		Classes:   model.Classes,
		Accuracy:  float64(correct) / float64(len(features)),
		Stats:     stats,
		Duration:  time.Since(start),
	}
	return pipeline, report, nil
}

// TrainFile loads and validates the dataset, trains, and saves the artifact.
// Validation failures return before any fitting happens and nothing is
// written unless training succeeds.
func (t *Trainer) TrainFile(ctx context.Context, datasetPath, modelPath string) (*ml.Pipeline, *Report, error) {
	ds, err := LoadDataset(datasetPath)
	if err != nil {
		return nil, nil, err
	}
	t.logger.Info("Loaded training dataset",
		zap.String("path", datasetPath),
		zap.Int("rows", len(ds.Samples)),
		zap.Strings("labels", ds.Labels))

	pipeline, report, err := t.Fit(ctx, ds)
	if err != nil {
		return nil, nil, err
	}

	info := ml.TrainingInfo{Documents: report.Documents, Accuracy: report.Accuracy, Stats: report.Stats}
	if err := ml.SaveArtifact(modelPath, pipeline, info); err != nil {
		return nil, nil, err
	}
	report.ModelPath = modelPath

	t.logger.Info("Model trained and saved",
		zap.String("path", modelPath),
		zap.Int("features", report.Features),
		zap.Float64("accuracy", report.Accuracy),
		zap.Duration("duration", report.Duration))
	return pipeline, report, nil
}
