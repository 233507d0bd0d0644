package ml

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// featureThreshold is the minimum gap between two values for a split point.
const featureThreshold = 1e-7

// TreeNode is one node of a fitted tree. Leaves have Feature == -1.
type TreeNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Class     int
	Samples   int
}

// DecisionTree is a CART classifier using gini impurity. The order in which
// features are scanned at each node is drawn from Seed, which decides between
// equally good splits.
type DecisionTree struct {
	MaxDepth        int // zero grows until leaves are pure
	MinSamplesSplit int
	Seed            int64

	Classes     []float64
	Features    int
	Nodes       []TreeNode
	Importances []float64
}

// NewDecisionTree returns an unbounded tree seeded with seed.
func NewDecisionTree(seed int64) *DecisionTree {
	return &DecisionTree{MinSamplesSplit: 2, Seed: seed}
}

type treeBuilder struct {
	x          *mat.Dense
	y          []int
	k          int
	rng        *rand.Rand
	tree       *DecisionTree
	importance []float64
}

// Fit grows the tree.
func (t *DecisionTree) Fit(X mat.Matrix, y []float64) error {
	n, p := X.Dims()
	if n == 0 {
		return errors.New("no training rows")
	}
	if len(y) != n {
		return fmt.Errorf("got %d labels for %d rows", len(y), n)
	}
	if t.MinSamplesSplit < 2 {
		t.MinSamplesSplit = 2
	}

	classes := UniqueSorted(y)
	index := classIndex(classes)
	labels := make([]int, n)
	for i, v := range y {
		labels[i] = index[v]
	}

	t.Classes = classes
	t.Features = p
	t.Nodes = t.Nodes[:0]

	b := &treeBuilder{
		x:          mat.DenseCopyOf(X),
		y:          labels,
		k:          len(classes),
		rng:        newRand(t.Seed),
		tree:       t,
		importance: make([]float64, p),
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	b.grow(rows, 0)

	if total := floats.Sum(b.importance); total > 0 {
		floats.Scale(1/total, b.importance)
	}
	t.Importances = b.importance
	return nil
}

func (b *treeBuilder) counts(rows []int) []float64 {
	c := make([]float64, b.k)
	for _, r := range rows {
		c[b.y[r]]++
	}
	return c
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	var sq float64
	for _, c := range counts {
		sq += c * c
	}
	return 1 - sq/(n*n)
}

func (b *treeBuilder) grow(rows []int, depth int) int {
	counts := b.counts(rows)
	n := float64(len(rows))
	impurity := gini(counts, n)

	id := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, TreeNode{
		Feature: -1,
		Class:   floats.MaxIdx(counts),
		Samples: len(rows),
	})

	if impurity == 0 || len(rows) < b.tree.MinSamplesSplit ||
		(b.tree.MaxDepth > 0 && depth >= b.tree.MaxDepth) {
		return id
	}

	feature, threshold, gain, ok := b.bestSplit(rows, counts, impurity)
	if !ok {
		return id
	}

	var left, right []int
	for _, r := range rows {
		if b.x.At(r, feature) <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	b.importance[feature] += gain

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	node := &b.tree.Nodes[id]
	node.Feature = feature
	node.Threshold = threshold
	node.Left = l
	node.Right = r
	return id
}

// bestSplit returns the split with the largest weighted impurity decrease.
// Ties keep the first feature in the permuted scan order.
func (b *treeBuilder) bestSplit(rows []int, counts []float64, impurity float64) (int, float64, float64, bool) {
	n := float64(len(rows))
	bestGain := -1.0
	bestFeature := -1
	var bestThreshold float64

	sorted := make([]int, len(rows))
	left := make([]float64, b.k)
	right := make([]float64, b.k)

	for _, f := range b.rng.Perm(b.tree.Features) {
		copy(sorted, rows)
		slices.SortStableFunc(sorted, func(i, j int) int {
			vi, vj := b.x.At(i, f), b.x.At(j, f)
			switch {
			case vi < vj:
				return -1
			case vi > vj:
				return 1
			default:
				return 0
			}
		})
		if b.x.At(sorted[len(sorted)-1], f) <= b.x.At(sorted[0], f)+featureThreshold {
			continue
		}

		clear(left)
		copy(right, counts)
		for i := 0; i < len(sorted)-1; i++ {
			c := b.y[sorted[i]]
			left[c]++
			right[c]--

			cur, next := b.x.At(sorted[i], f), b.x.At(sorted[i+1], f)
			if next <= cur+featureThreshold {
				continue
			}

			nl := float64(i + 1)
			nr := n - nl
			gain := n*impurity - nl*gini(left, nl) - nr*gini(right, nr)
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = cur/2 + next/2
				if bestThreshold >= next {
					bestThreshold = cur
				}
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, 0, false
	}
	return bestFeature, bestThreshold, bestGain, true
}

// Predict walks the tree for every row.
func (t *DecisionTree) Predict(X mat.Matrix) ([]float64, error) {
	if len(t.Nodes) == 0 {
		return nil, errors.New("model is not fitted")
	}
	n, p := X.Dims()
	if p != t.Features {
		return nil, &DimensionError{Want: t.Features, Got: p}
	}

	out := make([]float64, n)
	for i := range n {
		node := t.Nodes[0]
		for node.Feature >= 0 {
			if X.At(i, node.Feature) <= node.Threshold {
				node = t.Nodes[node.Left]
			} else {
				node = t.Nodes[node.Right]
			}
		}
		out[i] = t.Classes[node.Class]
	}
	return out, nil
}

// FeatureImportances returns a copy of the normalized impurity importances.
func (t *DecisionTree) FeatureImportances() []float64 {
	return append([]float64(nil), t.Importances...)
}

// Depth returns the depth of the fitted tree.
func (t *DecisionTree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(id int) int
	walk = func(id int) int {
		node := t.Nodes[id]
		if node.Feature < 0 {
			return 0
		}
		return 1 + max(walk(node.Left), walk(node.Right))
	}
	return walk(0)
}
