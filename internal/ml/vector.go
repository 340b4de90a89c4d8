package ml

import "math"

// FeatureVector is a sparse TF-IDF vector. Indices are strictly increasing
// and every value is non-negative.
type FeatureVector struct {
	Dim     int
	Indices []int
	Values  []float64
}

// IsZero reports whether the vector has no non-zero component.
func (v FeatureVector) IsZero() bool {
	for _, x := range v.Values {
		if x != 0 {
			return false
		}
	}
	return true
}

// Norm returns the Euclidean length of the vector.
func (v FeatureVector) Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Dot computes v·w for a dense weight vector of the same dimension.
func (v FeatureVector) Dot(w []float64) float64 {
	var sum float64
	for i, idx := range v.Indices {
		sum += v.Values[i] * w[idx]
	}
	return sum
}

// Dense expands the vector. Used by tests and diagnostics.
func (v FeatureVector) Dense() []float64 {
	out := make([]float64, v.Dim)
	for i, idx := range v.Indices {
		out[idx] = v.Values[i]
	}
	return out
}
