// Package watcher prunes index entries whose payload files disappear from disk.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Index is the subset of the resource store the watcher drives. Payload
// removals map back to resource URIs and drop the matching index entry.
type Index interface {
	URIForPayloadPath(path string) string
	DropOrphan(uri string) bool
}

// Watcher watches the resource storage root and evicts index entries when
// their payload files are deleted out from under the store.
type Watcher struct {
	root     string
	index    Index
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	logger   *zap.Logger
}

// NewWatcher creates a watcher over the storage root.
func NewWatcher(root string, index Index, logger *zap.Logger) *Watcher {
	return &Watcher{
		root:   root,
		index:  index,
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	w.logger.Debug("watcher starting", zap.String("root", w.root))

	if err := watcher.Add(w.root); err != nil {
		_ = watcher.Close()
		w.watcher = nil
		w.started = false
		w.mu.Unlock()
		return err
	}
	// Payload directories are created lazily by the store; watch the ones
	// that already exist and pick up new ones from create events.
	entries, err := os.ReadDir(w.root)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() {
				_ = watcher.Add(filepath.Join(w.root, e.Name()))
			}
		}
	}
	w.mu.Unlock()
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	switch {
	case ev.Op.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() && filepath.Dir(path) == filepath.Clean(w.root) {
			w.mu.Lock()
			if w.watcher != nil {
				_ = w.watcher.Add(path)
			}
			w.mu.Unlock()
			w.logger.Debug("watcher added payload directory", zap.String("path", path))
		}
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		if !strings.HasSuffix(path, ".json") || filepath.Base(path) == "metadata.json" {
			return
		}
		uri := w.index.URIForPayloadPath(path)
		if uri == "" {
			return
		}
		if w.index.DropOrphan(uri) {
			w.logger.Info("dropped orphaned resource", zap.String("uri", uri), zap.String("path", path))
		}
	}
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
