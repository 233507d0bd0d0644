package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SeedPrefix prefixes the handle of every seed dataset.
const SeedPrefix = "seed-"

const seedDebounce = 100 * time.Millisecond

// SeedID returns the registry handle for a seed file.
func SeedID(path string) string {
	base := filepath.Base(path)
	return SeedPrefix + strings.TrimSuffix(base, filepath.Ext(base))
}

// SeedLoader registers the files of a directory as datasets.
type SeedLoader struct {
	dir      string
	registry *Registry
	ingestor *Ingestor
	logger   *slog.Logger
}

// NewSeedLoader creates a loader for dir.
func NewSeedLoader(dir string, registry *Registry, ingestor *Ingestor, logger *slog.Logger) *SeedLoader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SeedLoader{dir: dir, registry: registry, ingestor: ingestor, logger: logger}
}

// Load ingests every supported file in the directory. A file that fails to
// parse is logged and skipped. It returns the registered handles.
func (l *SeedLoader) Load(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read seeds directory: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := FormatFromName(e.Name()); !ok {
			continue
		}
		path := filepath.Join(l.dir, e.Name())
		id, err := l.loadOne(ctx, path)
		if err != nil {
			l.logger.Warn("failed to load seed", slog.String("file", path), slog.String("error", err.Error()))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (l *SeedLoader) loadOne(ctx context.Context, path string) (string, error) {
	table, err := l.ingestor.LoadFile(ctx, path)
	if err != nil {
		return "", err
	}
	id := SeedID(path)
	l.registry.Put(id, filepath.Base(path), table)
	l.logger.Info("seed registered", slog.String("id", id), slog.Int("rows", table.Rows()))
	return id, nil
}

// Watch re-ingests seed files when they are written or created and drops the
// handle when they are removed. It blocks until ctx is done.
func (l *SeedLoader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("failed to watch seeds directory: %w", err)
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		pending = make(map[string]*time.Timer)
	)
	// Reloads scheduled by this call finish before Watch returns.
	defer func() {
		mu.Lock()
		for path, t := range pending {
			if t.Stop() {
				wg.Done()
			}
			delete(pending, path)
		}
		mu.Unlock()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if _, supported := FormatFromName(event.Name); !supported {
				continue
			}

			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				if l.registry.Remove(SeedID(event.Name)) {
					l.logger.Info("seed removed", slog.String("id", SeedID(event.Name)))
				}
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			path := event.Name
			mu.Lock()
			if t, ok := pending[path]; ok && t.Stop() {
				wg.Done()
			}
			wg.Add(1)
			var timer *time.Timer
			timer = time.AfterFunc(seedDebounce, func() {
				defer wg.Done()
				mu.Lock()
				if pending[path] == timer {
					delete(pending, path)
				}
				mu.Unlock()

				if ctx.Err() != nil {
					return
				}
				l.logger.Debug("seed changed, re-ingesting", slog.String("file", path))
				if _, err := l.loadOne(ctx, path); err != nil {
					l.logger.Error("failed to reload seed", slog.String("file", path), slog.String("error", err.Error()))
				}
			})
			pending[path] = timer
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}
