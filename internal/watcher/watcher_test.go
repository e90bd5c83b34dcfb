package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeIndex struct {
	mu      sync.Mutex
	root    string
	dropped []string
}

func (f *fakeIndex) URIForPayloadPath(path string) string {
	rel, err := filepath.Rel(f.root, path)
	if err != nil {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 {
		return ""
	}
	return "resource://" + parts[0] + "/" + strings.TrimSuffix(parts[1], ".json")
}

func (f *fakeIndex) DropOrphan(uri string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, uri)
	return true
}

func (f *fakeIndex) Dropped() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.dropped...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestWatcher_DropsOrphanOnPayloadRemoval(t *testing.T) {
	root := t.TempDir()
	tables := filepath.Join(root, "tables")
	if err := os.MkdirAll(tables, 0755); err != nil {
		t.Fatal(err)
	}
	payload := filepath.Join(tables, "abc123.json")
	if err := os.WriteFile(payload, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	idx := &fakeIndex{root: root}
	w := NewWatcher(root, idx, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(payload); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(idx.Dropped()) == 1 })
	if got := idx.Dropped()[0]; got != "resource://tables/abc123" {
		t.Errorf("dropped uri: got %s", got)
	}
}

func TestWatcher_PicksUpNewPayloadDirectory(t *testing.T) {
	root := t.TempDir()
	idx := &fakeIndex{root: root}
	w := NewWatcher(root, idx, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// Directory created after the watcher starts, as the store does lazily.
	charts := filepath.Join(root, "charts")
	if err := os.MkdirAll(charts, 0755); err != nil {
		t.Fatal(err)
	}
	payload := filepath.Join(charts, "xyz.json")
	// Give the watcher a moment to register the new directory.
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(payload, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(payload); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(idx.Dropped()) >= 1 })
	if got := idx.Dropped()[0]; got != "resource://charts/xyz" {
		t.Errorf("dropped uri: got %s", got)
	}
}

func TestWatcher_IgnoresSnapshotFile(t *testing.T) {
	root := t.TempDir()
	snapshot := filepath.Join(root, "metadata.json")
	if err := os.WriteFile(snapshot, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	idx := &fakeIndex{root: root}
	w := NewWatcher(root, idx, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(snapshot); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if len(idx.Dropped()) != 0 {
		t.Errorf("snapshot removal should not drop anything, got %v", idx.Dropped())
	}
}

func TestWatcher_StartTwiceAndStop(t *testing.T) {
	root := t.TempDir()
	idx := &fakeIndex{root: root}
	w := NewWatcher(root, idx, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(ctx); err != nil {
		t.Errorf("second Start should be a no-op, got %v", err)
	}
	w.Stop()
	w.Stop()
}
