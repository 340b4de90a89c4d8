package ml

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// loadedModel is the unit swapped by ModelStore; the pipeline and its metadata
// always change together.
type loadedModel struct {
	pipeline *Pipeline
	info     *ArtifactInfo
}

// ModelStore owns the pipeline used for inference. Readers never lock; a
// reload replaces the whole pipeline in one atomic store.
type ModelStore struct {
	path    string
	current atomic.Pointer[loadedModel]
	logger  *zap.Logger
}

// NewModelStore creates an empty store bound to an artifact path.
func NewModelStore(path string, logger *zap.Logger) *ModelStore {
	return &ModelStore{path: path, logger: logger}
}

// Path is the artifact the store loads from.
func (s *ModelStore) Path() string { return s.path }

// Load reads the artifact and swaps it in. On failure the previously loaded
// pipeline, if any, stays active.
func (s *ModelStore) Load() error {
	p, info, err := LoadArtifact(s.path)
	if err != nil {
		return err
	}
	s.current.Store(&loadedModel{pipeline: p, info: info})
	s.logger.Info("Loaded classification model",
		zap.String("path", s.path),
		zap.Int("features", info.Features),
		zap.Strings("classes", info.Classes))
	return nil
}

// Swap installs an in-memory pipeline, e.g. one just trained.
func (s *ModelStore) Swap(p *Pipeline, info *ArtifactInfo) {
	s.current.Store(&loadedModel{pipeline: p, info: info})
}

// Current returns the active pipeline or ErrModelUnavailable.
func (s *ModelStore) Current() (*Pipeline, error) {
	m := s.current.Load()
	if m == nil {
		return nil, ErrModelUnavailable
	}
	return m.pipeline, nil
}

// Info returns metadata of the active pipeline, nil when none is loaded.
func (s *ModelStore) Info() *ArtifactInfo {
	if m := s.current.Load(); m != nil {
		return m.info
	}
	return nil
}

// Ready reports whether a pipeline is loaded.
func (s *ModelStore) Ready() bool { return s.current.Load() != nil }

// Classify runs the active pipeline on raw text.
func (s *ModelStore) Classify(text string) (Prediction, error) {
	p, err := s.Current()
	if err != nil {
		return Prediction{}, err
	}
	return p.Classify(text)
}

// Watch reloads the artifact whenever it is replaced on disk, until ctx is
// cancelled. The parent directory is watched because artifacts are renamed
// into place.
func (s *ModelStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create model watcher: %w", err)
	}
	target := filepath.Clean(s.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch model directory: %w", err)
	}

	go func() {
		defer watcher.Close()
		// Writers may emit several events per replacement.
		debounce := time.NewTimer(time.Hour)
		debounce.Stop()
		for {
			select {
			case <-ctx.Done():
				debounce.Stop()
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				debounce.Reset(250 * time.Millisecond)
			case <-debounce.C:
				if err := s.Load(); err != nil {
					s.logger.Warn("Model reload failed, keeping previous model", zap.Error(err))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("Model watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
