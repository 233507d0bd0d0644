package core

import (
	"encoding/json"
	"time"
)

// PreprocessKind selects a scaling transform.
type PreprocessKind string

// Preprocess kinds.
const (
	Standardize PreprocessKind = "standardize"
	Normalize   PreprocessKind = "normalize"
)

// ModelKind selects a classifier.
type ModelKind string

// Supported model kinds.
const (
	LogisticRegression ModelKind = "logistic_regression"
	DecisionTree       ModelKind = "decision_tree"
)

// Split defaults applied when a request omits them.
const (
	DefaultTestFraction = 0.2
	DefaultSeed         = 42
)

// PreprocessStep is one scaling step. Empty Columns means every numeric feature
// column at the time the step runs.
type PreprocessStep struct {
	Kind    PreprocessKind `json:"step" validate:"required,oneof=standardize normalize"`
	Columns []string       `json:"columns,omitempty"`
}

// SplitConfig controls the train/test split.
type SplitConfig struct {
	TestFraction float64 `json:"test_size" validate:"gte=0.05,lte=0.95"`
	Seed         int64   `json:"random_state"`
}

// NewSplitConfig validates and returns a split configuration.
func NewSplitConfig(testFraction float64, seed int64) (SplitConfig, error) {
	cfg := SplitConfig{TestFraction: testFraction, Seed: seed}
	if err := validateStruct(cfg); err != nil {
		return SplitConfig{}, err
	}
	return cfg, nil
}

// UnmarshalJSON applies the defaults to fields absent from the document.
func (s *SplitConfig) UnmarshalJSON(data []byte) error {
	type plain SplitConfig
	p := plain(DefaultSplitConfig())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = SplitConfig(p)
	return nil
}

// DefaultSplitConfig returns the split used when a request omits one.
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{TestFraction: DefaultTestFraction, Seed: DefaultSeed}
}

// TrainRequest is the declarative configuration of one training run.
type TrainRequest struct {
	DatasetID       string           `json:"dataset_id" validate:"required"`
	TargetColumn    string           `json:"target_column" validate:"required"`
	FeatureColumns  []string         `json:"feature_columns,omitempty"`
	Preprocess      []PreprocessStep `json:"preprocess,omitempty" validate:"dive"`
	Split           *SplitConfig     `json:"split,omitempty"`
	Model           ModelKind        `json:"model"`
	DropRareClasses bool             `json:"drop_rare_classes"`
}

// Validate checks the request shape and fills split defaults.
// Model kind membership is left to the trainer.
func (r *TrainRequest) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	if r.Split == nil {
		split := DefaultSplitConfig()
		r.Split = &split
		return nil
	}
	split, err := NewSplitConfig(r.Split.TestFraction, r.Split.Seed)
	if err != nil {
		return err
	}
	r.Split = &split
	return nil
}

// ConfusionMatrix is a label-indexed count matrix: Matrix[i][j] counts rows whose
// true label is Labels[i] and predicted label is Labels[j].
type ConfusionMatrix struct {
	Labels []any   `json:"labels"`
	Matrix [][]int `json:"matrix"`
}

// FeatureImportance pairs an expanded feature name with its importance.
type FeatureImportance struct {
	Name       string  `json:"name"`
	Importance float64 `json:"importance"`
}

// Training response statuses.
const (
	StatusSuccess = "success"
)

// TrainResponse reports the outcome of a training run. Pointer and nil-slice
// fields are omitted when training was skipped.
type TrainResponse struct {
	Status             string              `json:"status"`
	Accuracy           *float64            `json:"accuracy"`
	ConfusionMatrix    *ConfusionMatrix    `json:"confusion_matrix"`
	FeatureImportances []FeatureImportance `json:"feature_importances"`
	Message            string              `json:"message,omitempty"`
	Warnings           []string            `json:"warnings"`
	ModelType          ModelKind           `json:"model_type,omitempty"`
	ModelID            string              `json:"model_id,omitempty"`
	ModelDownloadPath  string              `json:"model_download_path,omitempty"`
}

// PredictRequest asks an artifact to score raw records.
type PredictRequest struct {
	ModelID string           `json:"model_id" validate:"required"`
	Records []map[string]any `json:"records"`
}

// Validate checks the request shape.
func (r *PredictRequest) Validate() error {
	return validateStruct(r)
}

// PredictResponse holds predictions in input order.
type PredictResponse struct {
	Predictions []any `json:"predictions"`
}

// DatasetSummary describes a registered dataset.
type DatasetSummary struct {
	DatasetID   string            `json:"dataset_id"`
	Rows        int               `json:"rows"`
	Columns     int               `json:"columns"`
	ColumnNames []string          `json:"column_names"`
	Dtypes      map[string]string `json:"dtypes"`
	Preview     []map[string]any  `json:"preview"`
}

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusSkipped   RunStatus = "skipped"
	RunStatusFailed    RunStatus = "failed"
)

// RunKind distinguishes training from prediction runs.
type RunKind string

// Run kinds.
const (
	RunKindTrain   RunKind = "train"
	RunKindPredict RunKind = "predict"
)

// Run is one recorded training or prediction invocation.
type Run struct {
	ID          string     `json:"id"`
	Kind        RunKind    `json:"kind"`
	DatasetID   string     `json:"dataset_id,omitempty"`
	ModelID     string     `json:"model_id,omitempty"`
	ModelKind   ModelKind  `json:"model_kind,omitempty"`
	Status      RunStatus  `json:"status"`
	ErrorKind   ErrorKind  `json:"error_kind,omitempty"`
	Error       string     `json:"error,omitempty"`
	Accuracy    *float64   `json:"accuracy,omitempty"`
	Rows        int        `json:"rows"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ModelInfo describes one stored model artifact.
type ModelInfo struct {
	ModelID      string    `json:"model_id"`
	ModelType    ModelKind `json:"model_type"`
	TargetColumn string    `json:"target_column"`
	DownloadPath string    `json:"download_path"`
	CreatedAt    time.Time `json:"created_at"`
}
