// Package artifact keeps fitted model bundles for the lifetime of the process
// and exports them as self-contained byte streams.
package artifact

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapml/internal/features"
	"github.com/leapstack-labs/leapml/internal/ml"
	"github.com/leapstack-labs/leapml/pkg/core"
)

// Artifact is a fitted model bundled with the recipe that prepared its
// training data. Artifacts are never mutated after Save.
type Artifact struct {
	Handle       string
	Model        ml.Classifier
	Recipe       *features.Recipe
	ModelKind    core.ModelKind
	TargetLabels []any
	CreatedAt    time.Time
}

// Store maps handles to artifacts.
type Store struct {
	mu        sync.RWMutex
	artifacts map[string]*Artifact
	logger    *slog.Logger
}

// NewStore creates an empty store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{artifacts: make(map[string]*Artifact), logger: logger}
}

// Save stores a bundle under a fresh handle and returns the handle.
func (s *Store) Save(model ml.Classifier, recipe *features.Recipe, kind core.ModelKind, labels []any) string {
	a := &Artifact{
		Handle:       uuid.New().String(),
		Model:        model,
		Recipe:       recipe,
		ModelKind:    kind,
		TargetLabels: append([]any(nil), labels...),
		CreatedAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	s.artifacts[a.Handle] = a
	s.mu.Unlock()

	s.logger.Debug("artifact saved", slog.String("handle", a.Handle), slog.String("model", string(kind)))
	return a.Handle
}

// Load returns the artifact stored under handle.
func (s *Store) Load(handle string) (*Artifact, error) {
	s.mu.RLock()
	a, ok := s.artifacts[handle]
	s.mu.RUnlock()
	if !ok {
		return nil, core.NotFoundErrorf("Model not found. Please train a pipeline first.")
	}
	return a, nil
}

// ExportBytes serializes the bundle stored under handle. Encoding happens
// outside the store lock.
func (s *Store) ExportBytes(handle string) ([]byte, error) {
	a, err := s.Load(handle)
	if err != nil {
		return nil, err
	}
	return Encode(a)
}

// Len returns the number of stored artifacts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.artifacts)
}

// Handles returns every stored handle, oldest first.
func (s *Store) Handles() []string {
	s.mu.RLock()
	all := make([]*Artifact, 0, len(s.artifacts))
	for _, a := range s.artifacts {
		all = append(all, a)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].Handle < all[j].Handle
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	handles := make([]string, len(all))
	for i, a := range all {
		handles[i] = a.Handle
	}
	return handles
}
