package ml

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofrs/flock"

	"github.com/mikey/email-classifier/internal/nlp"
)

// ArtifactVersion is the only format version this reader understands.
const ArtifactVersion = 1

// TrainingInfo is stored alongside the parameters for inspection.
type TrainingInfo struct {
	Documents int      `json:"documents"`
	Accuracy  float64  `json:"accuracy"`
	Stats     FitStats `json:"stats"`
}

// ArtifactInfo is the metadata of a persisted pipeline.
type ArtifactInfo struct {
	Version   int          `json:"format_version"`
	CreatedAt time.Time    `json:"created_at"`
	Features  int          `json:"features"`
	Classes   []string     `json:"classes"`
	Training  TrainingInfo `json:"training"`
}

type artifactFile struct {
	Version    int       `json:"format_version"`
	CreatedAt  time.Time `json:"created_at"`
	Vocabulary struct {
		Terms []string  `json:"terms"`
		IDF   []float64 `json:"idf"`
	} `json:"vocabulary"`
	Classifier struct {
		Classes   []string    `json:"classes"`
		Coef      [][]float64 `json:"coef"`
		Intercept []float64   `json:"intercept"`
	} `json:"classifier"`
	Training TrainingInfo `json:"training"`
}

// SaveArtifact writes the pipeline as one JSON document. The file is written
// next to path and renamed into place, so readers see either the old or the
// new artifact. Concurrent writers are serialised with a lock file.
func SaveArtifact(path string, p *Pipeline, info TrainingInfo) error {
	var doc artifactFile
	doc.Version = ArtifactVersion
	doc.CreatedAt = time.Now().UTC()
	doc.Vocabulary.Terms = p.vocab.terms
	doc.Vocabulary.IDF = p.vocab.idf
	doc.Classifier.Classes = p.model.Classes
	doc.Classifier.Coef = p.model.Coef
	doc.Classifier.Intercept = p.model.Intercept
	doc.Training = info

	data, err := json.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to encode model artifact: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock model artifact: %w", err)
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write model artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync model artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close model artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move model artifact into place: %w", err)
	}
	return nil
}

// LoadArtifact reads and validates a persisted pipeline. Nothing is returned
// unless the whole artifact is consistent.
func LoadArtifact(path string) (*Pipeline, *ArtifactInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s not found", ErrModelUnavailable, path)
		}
		return nil, nil, fmt.Errorf("failed to read model artifact: %w", err)
	}

	var doc artifactFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to decode model artifact: %w", err)
	}
	if doc.Version != ArtifactVersion {
		return nil, nil, fmt.Errorf("%w: got %d, want %d", ErrArtifactVersion, doc.Version, ArtifactVersion)
	}

	vocab, err := NewVocabulary(doc.Vocabulary.Terms, doc.Vocabulary.IDF)
	if err != nil {
		return nil, nil, err
	}
	model, err := NewLogisticModel(doc.Classifier.Classes, doc.Classifier.Coef, doc.Classifier.Intercept)
	if err != nil {
		return nil, nil, err
	}
	p, err := NewPipeline(nlp.NewNormalizer(), vocab, model)
	if err != nil {
		return nil, nil, err
	}

	info := &ArtifactInfo{
		Version:   doc.Version,
		CreatedAt: doc.CreatedAt,
		Features:  vocab.Size(),
		Classes:   model.Classes,
		Training:  doc.Training,
	}
	return p, info, nil
}
