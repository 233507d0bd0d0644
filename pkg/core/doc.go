// Package core defines the shared language of the leapml system.
//
// This package contains:
//   - Tabular data (Table, Column, Kind)
//   - Pipeline configuration (PreprocessStep, SplitConfig, ModelKind)
//   - Request and response shapes for training and prediction
//   - The error taxonomy (Error, ErrorKind)
//
// The Golden Rule: pkg/core imports ONLY the validator package and stdlib.
// All other packages depend on core, not the reverse.
package core
