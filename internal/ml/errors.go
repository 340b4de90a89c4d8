package ml

import "errors"

var (
	// ErrModelUnavailable is returned when no fitted pipeline is loaded.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrDimensionMismatch means a vocabulary and classifier do not belong together.
	ErrDimensionMismatch = errors.New("vocabulary and classifier dimensions disagree")
	// ErrArtifactVersion is returned for artifacts written by an incompatible format.
	ErrArtifactVersion = errors.New("unsupported model artifact version")
	// ErrNoTrainingData is returned when fitting is attempted on an empty corpus.
	ErrNoTrainingData = errors.New("no training data")
)
