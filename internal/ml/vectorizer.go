package ml

import (
	"fmt"
	"math"
	"sort"
)

// Vocabulary maps stems to feature indices and carries their smoothed IDF
// weights. Terms are kept in alphabetical order so the index of a term is its
// rank. A Vocabulary is immutable once built.
type Vocabulary struct {
	terms []string
	idf   []float64
	index map[string]int
}

// NewVocabulary rebuilds a vocabulary from persisted terms and IDF weights.
func NewVocabulary(terms []string, idf []float64) (*Vocabulary, error) {
	if len(terms) != len(idf) {
		return nil, fmt.Errorf("%w: %d terms, %d idf weights", ErrDimensionMismatch, len(terms), len(idf))
	}
	index := make(map[string]int, len(terms))
	for i, t := range terms {
		if i > 0 && terms[i-1] >= t {
			return nil, fmt.Errorf("vocabulary terms not strictly sorted at %d (%q)", i, t)
		}
		index[t] = i
	}
	return &Vocabulary{
		terms: append([]string(nil), terms...),
		idf:   append([]float64(nil), idf...),
		index: index,
	}, nil
}

// FitVocabulary learns the vocabulary of a tokenized corpus. When maxFeatures
// is positive only the maxFeatures terms with the highest corpus frequency are
// kept; ties are broken alphabetically. IDF is ln((1+N)/(1+df))+1.
func FitVocabulary(corpus [][]string, maxFeatures int) *Vocabulary {
	termFreq := make(map[string]int)
	docFreq := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]struct{}, len(doc))
		for _, tok := range doc {
			termFreq[tok]++
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				docFreq[tok]++
			}
		}
	}

	terms := make([]string, 0, len(termFreq))
	for t := range termFreq {
		terms = append(terms, t)
	}

	if maxFeatures > 0 && len(terms) > maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if termFreq[terms[i]] != termFreq[terms[j]] {
				return termFreq[terms[i]] > termFreq[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(corpus))
	idf := make([]float64, len(terms))
	index := make(map[string]int, len(terms))
	for i, t := range terms {
		idf[i] = math.Log((1+n)/(1+float64(docFreq[t]))) + 1
		index[t] = i
	}

	return &Vocabulary{terms: terms, idf: idf, index: index}
}

// Size is the feature dimension.
func (v *Vocabulary) Size() int { return len(v.terms) }

// Terms returns a copy of the terms in index order.
func (v *Vocabulary) Terms() []string { return append([]string(nil), v.terms...) }

// IDF returns a copy of the IDF weights in index order.
func (v *Vocabulary) IDF() []float64 { return append([]float64(nil), v.idf...) }

// Index returns the feature index of term.
func (v *Vocabulary) Index(term string) (int, bool) {
	i, ok := v.index[term]
	return i, ok
}

// Transform converts a tokenized document into an L2-normalised TF-IDF vector.
// Unknown stems are ignored; a document without known stems gives the zero
// vector.
func (v *Vocabulary) Transform(doc []string) FeatureVector {
	counts := make(map[int]int)
	for _, tok := range doc {
		if i, ok := v.index[tok]; ok {
			counts[i]++
		}
	}

	vec := FeatureVector{
		Dim:     len(v.terms),
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for i := range counts {
		vec.Indices = append(vec.Indices, i)
	}
	sort.Ints(vec.Indices)

	for _, i := range vec.Indices {
		vec.Values = append(vec.Values, float64(counts[i])*v.idf[i])
	}
	if norm := vec.Norm(); norm > 0 {
		for i := range vec.Values {
			vec.Values[i] /= norm
		}
	}
	return vec
}
