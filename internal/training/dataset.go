// Package training fits and persists the local classification pipeline from a
// labelled CSV dataset.
package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrValidation marks datasets rejected before any training work is done.
var ErrValidation = errors.New("invalid dataset")

const (
	textColumn  = "text"
	labelColumn = "label"
)

// Sample is one labelled email.
type Sample struct {
	Text  string
	Label string
}

// Dataset is a validated set of samples.
type Dataset struct {
	Samples []Sample
	Labels  []string
}

// Texts returns the sample texts in order.
func (d *Dataset) Texts() []string {
	out := make([]string, len(d.Samples))
	for i, s := range d.Samples {
		out[i] = s.Text
	}
	return out
}

// LabelColumn returns the sample labels in order.
func (d *Dataset) LabelColumn() []string {
	out := make([]string, len(d.Samples))
	for i, s := range d.Samples {
		out[i] = s.Label
	}
	return out
}

// LoadDataset opens and validates a CSV dataset file.
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: dataset %s not found", ErrValidation, path)
		}
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	return ReadDataset(f)
}

// ReadDataset parses a CSV with a header row holding at least "text" and
// "label" columns. A leading byte-order mark is accepted. The dataset must be
// non-empty and contain at least two distinct labels.
func ReadDataset(r io.Reader) (*Dataset, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: dataset is empty", ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", ErrValidation, err)
	}

	textIdx, labelIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case textColumn:
			textIdx = i
		case labelColumn:
			labelIdx = i
		}
	}
	var missing []string
	if textIdx < 0 {
		missing = append(missing, textColumn)
	}
	if labelIdx < 0 {
		missing = append(missing, labelColumn)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing column(s) %s", ErrValidation, strings.Join(missing, ", "))
	}

	ds := &Dataset{}
	seen := make(map[string]struct{})
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrValidation, line, err)
		}
		if textIdx >= len(record) || labelIdx >= len(record) {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrValidation, line, len(record))
		}
		label := strings.TrimSpace(record[labelIdx])
		if label == "" {
			return nil, fmt.Errorf("%w: line %d has an empty label", ErrValidation, line)
		}
		ds.Samples = append(ds.Samples, Sample{Text: record[textIdx], Label: label})
		if _, ok := seen[label]; !ok {
			seen[label] = struct{}{}
			ds.Labels = append(ds.Labels, label)
		}
	}

	if len(ds.Samples) == 0 {
		return nil, fmt.Errorf("%w: dataset has no rows", ErrValidation)
	}
	if len(ds.Labels) < 2 {
		return nil, fmt.Errorf("%w: need at least two distinct labels, found %d", ErrValidation, len(ds.Labels))
	}
	return ds, nil
}
