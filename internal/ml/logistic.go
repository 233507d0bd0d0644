package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Logistic regression defaults.
const (
	DefaultMaxIter = 1000
	DefaultC       = 1.0
	DefaultTol     = 1e-4
)

// LogisticRegression is a multinomial (softmax) logistic regression with L2
// penalty, fitted by full-batch gradient descent.
type LogisticRegression struct {
	MaxIter int
	C       float64
	Tol     float64

	Classes    []float64
	Features   int
	Coef       []float64 // classes x features, row-major
	Intercept  []float64
	Iterations int
}

// NewLogisticRegression returns a model with default hyperparameters.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{MaxIter: DefaultMaxIter, C: DefaultC, Tol: DefaultTol}
}

// Fit trains the model.
func (m *LogisticRegression) Fit(X mat.Matrix, y []float64) error {
	n, p := X.Dims()
	if n == 0 {
		return errors.New("no training rows")
	}
	if len(y) != n {
		return fmt.Errorf("got %d labels for %d rows", len(y), n)
	}
	classes := UniqueSorted(y)
	if len(classes) < 2 {
		return fmt.Errorf("needs samples of at least 2 classes, but the data contains only one class: %v", classes[0])
	}
	if m.MaxIter <= 0 {
		m.MaxIter = DefaultMaxIter
	}
	if m.C <= 0 {
		m.C = DefaultC
	}
	if m.Tol <= 0 {
		m.Tol = DefaultTol
	}

	k := len(classes)
	index := classIndex(classes)
	x := mat.DenseCopyOf(X)

	target := mat.NewDense(n, k, nil)
	var sqNorm float64
	for i := range n {
		target.Set(i, index[y[i]], 1)
		row := x.RawRowView(i)
		sqNorm += floats.Dot(row, row)
	}

	// Objective: mean cross-entropy + lambda/2 * ||W||^2, equivalent to C * sum loss + ||W||^2 / 2.
	lambda := 1 / (m.C * float64(n))
	lipschitz := 0.5*(sqNorm/float64(n)+1) + lambda
	lr := 1 / lipschitz

	w := mat.NewDense(p, k, nil)
	b := make([]float64, k)
	z := mat.NewDense(n, k, nil)
	gradW := mat.NewDense(p, k, nil)
	penalty := mat.NewDense(p, k, nil)
	gradB := make([]float64, k)

	iter := 0
	for ; iter < m.MaxIter; iter++ {
		z.Mul(x, w)
		for i := range n {
			row := z.RawRowView(i)
			floats.Add(row, b)
			softmax(row)
		}
		z.Sub(z, target)
		z.Scale(1/float64(n), z)

		gradW.Mul(x.T(), z)
		penalty.Scale(lambda, w)
		gradW.Add(gradW, penalty)
		for j := range k {
			gradB[j] = floats.Sum(mat.Col(nil, j, z))
		}

		if maxAbs(gradW.RawMatrix().Data) < m.Tol && maxAbs(gradB) < m.Tol {
			break
		}

		gradW.Scale(-lr, gradW)
		w.Add(w, gradW)
		floats.AddScaled(b, -lr, gradB)
	}

	coef := make([]float64, k*p)
	for j := range k {
		for f := range p {
			coef[j*p+f] = w.At(f, j)
		}
	}
	if !allFinite(coef) || !allFinite(b) {
		return errors.New("optimization diverged: non-finite weights")
	}

	m.Classes = classes
	m.Features = p
	m.Coef = coef
	m.Intercept = b
	m.Iterations = iter
	return nil
}

// Predict returns the most probable class of every row.
func (m *LogisticRegression) Predict(X mat.Matrix) ([]float64, error) {
	probs, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, _ := probs.Dims()
	out := make([]float64, n)
	for i := range n {
		out[i] = m.Classes[floats.MaxIdx(probs.RawRowView(i))]
	}
	return out, nil
}

// PredictProba returns class probabilities (rows x classes, classes ascending).
func (m *LogisticRegression) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if len(m.Classes) == 0 {
		return nil, errors.New("model is not fitted")
	}
	n, p := X.Dims()
	if p != m.Features {
		return nil, &DimensionError{Want: m.Features, Got: p}
	}

	scores := mat.NewDense(n, len(m.Classes), nil)
	scores.Mul(X, m.Coefficients().T())
	for i := range n {
		row := scores.RawRowView(i)
		floats.Add(row, m.Intercept)
		softmax(row)
	}
	return scores, nil
}

// Coefficients returns a copy of the weights as a classes x features matrix.
func (m *LogisticRegression) Coefficients() *mat.Dense {
	return mat.NewDense(len(m.Classes), m.Features, append([]float64(nil), m.Coef...))
}

func softmax(row []float64) {
	peak := floats.Max(row)
	var sum float64
	for i, v := range row {
		e := math.Exp(v - peak)
		row[i] = e
		sum += e
	}
	floats.Scale(1/sum, row)
}

func maxAbs(values []float64) float64 {
	var out float64
	for _, v := range values {
		out = math.Max(out, math.Abs(v))
	}
	return out
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
