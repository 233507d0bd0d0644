package ml

import "gonum.org/v1/gonum/mat"

// Accuracy returns the share of matching labels.
func Accuracy(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	var hits int
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(yTrue))
}

// ConfusionMatrix counts (true, predicted) pairs indexed by labels. Pairs with a
// label outside labels are ignored.
func ConfusionMatrix(yTrue, yPred, labels []float64) [][]int {
	index := classIndex(labels)
	out := make([][]int, len(labels))
	for i := range out {
		out[i] = make([]int, len(labels))
	}
	for i := range yTrue {
		t, okT := index[yTrue[i]]
		p, okP := index[yPred[i]]
		if okT && okP {
			out[t][p]++
		}
	}
	return out
}

// SelectRows copies the given rows of X into a new matrix.
func SelectRows(X mat.Matrix, rows []int) *mat.Dense {
	_, p := X.Dims()
	out := mat.NewDense(len(rows), p, nil)
	for i, r := range rows {
		for j := range p {
			out.Set(i, j, X.At(r, j))
		}
	}
	return out
}

// SelectLabels returns y at the given rows.
func SelectLabels(y []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = y[r]
	}
	return out
}
