// Package dataset holds uploaded tables and turns raw files into them.
//
// The Registry maps opaque handles to tables for the lifetime of the process.
// The Ingestor parses CSV, Parquet and JSON uploads through an in-memory DuckDB
// connection. The SeedLoader registers files from a directory at startup and
// optionally re-ingests them when they change.
package dataset

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapml/pkg/core"
)

// Info describes a registered dataset without exposing its table.
type Info struct {
	ID      string    `json:"dataset_id"`
	Name    string    `json:"name"`
	Rows    int       `json:"rows"`
	Columns int       `json:"columns"`
	AddedAt time.Time `json:"added_at"`
}

type entry struct {
	table   *core.Table
	name    string
	addedAt time.Time
}

// Registry maps dataset handles to tables.
// Tables are shared with readers and must not be mutated after registration.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Add registers a table under a fresh handle and returns it.
func (r *Registry) Add(name string, table *core.Table) string {
	id := uuid.New().String()
	r.Put(id, name, table)
	return id
}

// Put registers a table under a caller-chosen handle, replacing any previous table.
func (r *Registry) Put(id, name string, table *core.Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = entry{table: table, name: name, addedAt: time.Now().UTC()}
}

// Get returns the table registered under id.
func (r *Registry) Get(id string) (*core.Table, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, core.NotFoundErrorf("Dataset not found. Please upload again.")
	}
	return e.table, nil
}

// Remove drops a handle. It reports whether the handle existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	delete(r.entries, id)
	return ok
}

// List returns every registered dataset ordered by handle.
func (r *Registry) List() []Info {
	r.mu.RLock()
	infos := make([]Info, 0, len(r.entries))
	for id, e := range r.entries {
		infos = append(infos, Info{
			ID:      id,
			Name:    e.name,
			Rows:    e.table.Rows(),
			Columns: len(e.table.Columns),
			AddedAt: e.addedAt,
		})
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Len returns the number of registered datasets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
