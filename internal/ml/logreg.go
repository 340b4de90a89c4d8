package ml

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize"
)

// FitConfig controls logistic-regression training.
type FitConfig struct {
	// C is the inverse L2 regularisation strength.
	C float64
	// MaxIter bounds the number of L-BFGS major iterations.
	MaxIter int
	// Tolerance is the gradient infinity-norm at which training stops.
	Tolerance float64
}

// DefaultFitConfig matches the settings the production model is trained with.
func DefaultFitConfig() FitConfig {
	return FitConfig{C: 1.0, MaxIter: 300, Tolerance: 1e-4}
}

// FitStats describes how an optimisation run ended.
type FitStats struct {
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
	Loss       float64 `json:"loss"`
}

// LogisticModel holds fitted logistic-regression parameters. Classes are
// sorted. With two classes Coef has a single row scoring Classes[1] against
// Classes[0]; with more classes there is one row per class and probabilities
// come from a softmax.
type LogisticModel struct {
	Classes   []string
	Coef      [][]float64
	Intercept []float64
}

// Prediction is the local classifier output.
type Prediction struct {
	Label         string
	Confidence    float64
	Probabilities []float64
}

// NewLogisticModel validates persisted parameters.
func NewLogisticModel(classes []string, coef [][]float64, intercept []float64) (*LogisticModel, error) {
	if len(classes) < 2 {
		return nil, fmt.Errorf("logistic model needs at least two classes, got %d", len(classes))
	}
	rows := len(classes)
	if rows == 2 {
		rows = 1
	}
	if len(coef) != rows || len(intercept) != rows {
		return nil, fmt.Errorf("%w: %d classes with %d coefficient rows and %d intercepts",
			ErrDimensionMismatch, len(classes), len(coef), len(intercept))
	}
	for i := 1; i < len(coef); i++ {
		if len(coef[i]) != len(coef[0]) {
			return nil, fmt.Errorf("%w: ragged coefficient matrix", ErrDimensionMismatch)
		}
	}
	return &LogisticModel{Classes: classes, Coef: coef, Intercept: intercept}, nil
}

// Dim is the number of features the model expects.
func (m *LogisticModel) Dim() int { return len(m.Coef[0]) }

// Probabilities returns one probability per class, in Classes order.
func (m *LogisticModel) Probabilities(x FeatureVector) []float64 {
	if len(m.Coef) == 1 {
		p := sigmoid(x.Dot(m.Coef[0]) + m.Intercept[0])
		return []float64{1 - p, p}
	}
	scores := make([]float64, len(m.Coef))
	for k := range m.Coef {
		scores[k] = x.Dot(m.Coef[k]) + m.Intercept[k]
	}
	return softmax(scores)
}

// Predict picks the most probable class. Exact ties go to the class listed
// first.
func (m *LogisticModel) Predict(x FeatureVector) (Prediction, error) {
	if x.Dim != m.Dim() {
		return Prediction{}, fmt.Errorf("%w: vector has %d features, model expects %d", ErrDimensionMismatch, x.Dim, m.Dim())
	}
	probs := m.Probabilities(x)
	best := 0
	for k := 1; k < len(probs); k++ {
		if probs[k] > probs[best] {
			best = k
		}
	}
	return Prediction{Label: m.Classes[best], Confidence: probs[best], Probabilities: probs}, nil
}

// FitLogistic trains an L2-regularised logistic regression with L-BFGS
// starting from all-zero weights, so identical inputs give identical models.
func FitLogistic(features []FeatureVector, labels []string, cfg FitConfig) (*LogisticModel, FitStats, error) {
	if len(features) == 0 {
		return nil, FitStats{}, ErrNoTrainingData
	}
	if len(features) != len(labels) {
		return nil, FitStats{}, fmt.Errorf("%d feature vectors but %d labels", len(features), len(labels))
	}
	dim := features[0].Dim
	for _, f := range features {
		if f.Dim != dim {
			return nil, FitStats{}, fmt.Errorf("%w: mixed feature dimensions", ErrDimensionMismatch)
		}
	}

	classes := uniqueSorted(labels)
	if len(classes) < 2 {
		return nil, FitStats{}, fmt.Errorf("need at least two classes, got %d", len(classes))
	}
	classIdx := make(map[string]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}
	y := make([]int, len(labels))
	for i, l := range labels {
		y[i] = classIdx[l]
	}

	rows := len(classes)
	if rows == 2 {
		rows = 1
	}
	obj := &logisticObjective{x: features, y: y, rows: rows, dim: dim, c: cfg.C}

	settings := &optimize.Settings{
		GradientThreshold: cfg.Tolerance,
		MajorIterations:   cfg.MaxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Iterations: 50,
		},
	}
	problem := optimize.Problem{Func: obj.loss, Grad: obj.grad}
	x0 := make([]float64, rows*(dim+1))

	result, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if result == nil {
		return nil, FitStats{}, fmt.Errorf("optimisation failed: %w", err)
	}
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, FitStats{}, errors.New("optimisation diverged")
		}
	}

	model := &LogisticModel{Classes: classes, Coef: make([][]float64, rows), Intercept: make([]float64, rows)}
	for k := 0; k < rows; k++ {
		off := k * (dim + 1)
		model.Coef[k] = append([]float64(nil), result.X[off:off+dim]...)
		model.Intercept[k] = result.X[off+dim]
	}

	stats := FitStats{
		Iterations: result.Stats.MajorIterations,
		Converged:  err == nil && (result.Status == optimize.GradientThreshold || result.Status == optimize.FunctionConvergence),
		Loss:       result.F,
	}
	return model, stats, nil
}

// logisticObjective is the penalised negative log-likelihood. The parameter
// vector stores each class row as dim weights followed by its intercept.
// Intercepts are not penalised.
type logisticObjective struct {
	x    []FeatureVector
	y    []int
	rows int
	dim  int
	c    float64
}

func (o *logisticObjective) scores(params []float64, v FeatureVector) []float64 {
	out := make([]float64, o.rows)
	for k := 0; k < o.rows; k++ {
		off := k * (o.dim + 1)
		out[k] = v.Dot(params[off:off+o.dim]) + params[off+o.dim]
	}
	return out
}

func (o *logisticObjective) penalty(params []float64) float64 {
	var sum float64
	for k := 0; k < o.rows; k++ {
		off := k * (o.dim + 1)
		for _, w := range params[off : off+o.dim] {
			sum += w * w
		}
	}
	return 0.5 * sum
}

func (o *logisticObjective) loss(params []float64) float64 {
	var nll float64
	for i, v := range o.x {
		z := o.scores(params, v)
		if o.rows == 1 {
			// log(1+exp(-m)) with m the signed margin
			m := z[0]
			if o.y[i] == 0 {
				m = -m
			}
			nll += softplus(-m)
			continue
		}
		nll += logSumExp(z) - z[o.y[i]]
	}
	return o.c*nll + o.penalty(params)
}

func (o *logisticObjective) grad(grad, params []float64) {
	for i := range grad {
		grad[i] = 0
	}
	for i, v := range o.x {
		z := o.scores(params, v)
		var resid []float64
		if o.rows == 1 {
			resid = []float64{sigmoid(z[0]) - float64(o.y[i])}
		} else {
			resid = softmax(z)
			resid[o.y[i]]--
		}
		for k, r := range resid {
			off := k * (o.dim + 1)
			r *= o.c
			for j, idx := range v.Indices {
				grad[off+idx] += r * v.Values[j]
			}
			grad[off+o.dim] += r
		}
	}
	for k := 0; k < o.rows; k++ {
		off := k * (o.dim + 1)
		for j := 0; j < o.dim; j++ {
			grad[off+j] += params[off+j]
		}
	}
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func logSumExp(z []float64) float64 {
	maxZ := z[0]
	for _, v := range z[1:] {
		maxZ = math.Max(maxZ, v)
	}
	var sum float64
	for _, v := range z {
		sum += math.Exp(v - maxZ)
	}
	return maxZ + math.Log(sum)
}

func softmax(z []float64) []float64 {
	lse := logSumExp(z)
	out := make([]float64, len(z))
	for i, v := range z {
		out[i] = math.Exp(v - lse)
	}
	return out
}

func uniqueSorted(labels []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range labels {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}
