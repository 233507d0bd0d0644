// Package trainer splits a prepared dataset, fits the requested classifier and
// evaluates it on the held-out rows.
package trainer

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/leapstack-labs/leapml/internal/ml"
	"github.com/leapstack-labs/leapml/pkg/core"
)

// MaxImportances is the number of feature importances reported.
const MaxImportances = 15

// Input is a model-ready dataset.
type Input struct {
	X            *mat.Dense
	Y            []float64
	FeatureNames []string
	// Labels fixes the encoded label order of the confusion matrix. Nil means
	// the sorted distinct values of Y.
	Labels []float64
	// Decode renders an encoded label for reporting. Nil reports the float.
	Decode func(float64) any
}

// Result is a fitted model and its evaluation.
type Result struct {
	Model                ml.Classifier
	Accuracy             float64
	ConfusionMatrix      core.ConfusionMatrix
	Importances          []core.FeatureImportance
	ImportancesAvailable bool
	TrainRows            int
	TestRows             int
	TreeDepth            int // fitted depth of a decision tree, zero otherwise
	Elapsed              time.Duration
}

// NewModel returns an unfitted classifier of the given kind.
func NewModel(kind core.ModelKind, seed int64) (ml.Classifier, error) {
	switch kind {
	case core.LogisticRegression:
		return ml.NewLogisticRegression(), nil
	case core.DecisionTree:
		return ml.NewDecisionTree(seed), nil
	default:
		return nil, core.UnsupportedModelErrorf("Unsupported model type: %s", kind)
	}
}

// Train splits in, fits exactly one model of the given kind and evaluates it.
func Train(in Input, split core.SplitConfig, kind core.ModelKind, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	start := time.Now()

	model, err := NewModel(kind, split.Seed)
	if err != nil {
		return nil, err
	}

	stratify := len(ml.UniqueSorted(in.Y)) > 1
	trainRows, testRows, err := ml.TrainTestSplit(in.Y, split.TestFraction, split.Seed, stratify)
	if err != nil {
		return nil, core.WrapTraining(err, "Failed to split dataset")
	}

	xTrain := ml.SelectRows(in.X, trainRows)
	yTrain := ml.SelectLabels(in.Y, trainRows)
	xTest := ml.SelectRows(in.X, testRows)
	yTest := ml.SelectLabels(in.Y, testRows)

	if err := model.Fit(xTrain, yTrain); err != nil {
		return nil, core.WrapTraining(err, "Model training failed")
	}
	pred, err := model.Predict(xTest)
	if err != nil {
		return nil, core.WrapTraining(err, "Model evaluation failed")
	}

	labels := in.Labels
	if labels == nil {
		labels = ml.UniqueSorted(in.Y)
	}
	decode := in.Decode
	if decode == nil {
		decode = func(v float64) any { return v }
	}
	decoded := make([]any, len(labels))
	for i, l := range labels {
		decoded[i] = decode(l)
	}

	importances, available := Importances(model, in.FeatureNames)
	res := &Result{
		Model:    model,
		Accuracy: ml.Accuracy(yTest, pred),
		ConfusionMatrix: core.ConfusionMatrix{
			Labels: decoded,
			Matrix: ml.ConfusionMatrix(yTest, pred, labels),
		},
		Importances:          importances,
		ImportancesAvailable: available,
		TrainRows:            len(trainRows),
		TestRows:             len(testRows),
		Elapsed:              time.Since(start),
	}
	if tree, ok := model.(*ml.DecisionTree); ok {
		res.TreeDepth = tree.Depth()
	}

	logger.Debug("model trained",
		slog.String("model", string(kind)),
		slog.Int("train_rows", res.TrainRows),
		slog.Int("test_rows", res.TestRows),
		slog.Int("tree_depth", res.TreeDepth),
		slog.Float64("accuracy", res.Accuracy),
		slog.Duration("elapsed", res.Elapsed))
	return res, nil
}

// Importances pairs a model's per-feature scores with names, sorted by
// descending importance and truncated to MaxImportances. Linear models score
// features by the mean absolute coefficient across classes; tree models use
// impurity importances. It reports false for models exposing neither.
func Importances(model ml.Classifier, names []string) ([]core.FeatureImportance, bool) {
	var scores []float64
	switch m := model.(type) {
	case ml.ImportanceModel:
		scores = m.FeatureImportances()
	case ml.CoefficientModel:
		coef := m.Coefficients()
		rows, cols := coef.Dims()
		scores = make([]float64, cols)
		for j := range cols {
			var sum float64
			for i := range rows {
				sum += math.Abs(coef.At(i, j))
			}
			scores[j] = sum / float64(rows)
		}
	default:
		return nil, false
	}

	out := make([]core.FeatureImportance, 0, len(names))
	for i, name := range names {
		if i >= len(scores) {
			break
		}
		out = append(out, core.FeatureImportance{Name: name, Importance: scores[i]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	if len(out) > MaxImportances {
		out = out[:MaxImportances]
	}
	return out, true
}
