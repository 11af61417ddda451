package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"asha/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-ingests PDFs that are created, changed or removed in a directory.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	ingester    *Ingester
	dir         string
	pending     map[string]time.Time
	debounceDur time.Duration
	tick        time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity.
type WatcherStats struct {
	Reingested    int
	Removed       int
	Errors        int
	LastEventPath string
	LastEventType string
	LastEventTime time.Time
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string, ingester *Ingester) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		ingester:    ingester,
		dir:         dir,
		pending:     make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond, // PDFs are often written in several chunks
		tick:        100 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		logging.Get(logging.CategoryKnowledge).Warn("Watcher: failed to create %s: %v", w.dir, err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Knowledge("Watcher: watching %s", w.dir)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryKnowledge).Error("Watcher: error closing: %v", err)
	}
	logging.Knowledge("Watcher: stopped")
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryKnowledge).Error("Watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-ticker.C:
			w.processSettled(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !IsPDF(event.Name) {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Remove != 0:
		eventType = "delete"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		return
	}
	logging.KnowledgeDebug("Watcher: %s event for %s", eventType, event.Name)

	w.mu.Lock()
	w.stats.LastEventPath = event.Name
	w.stats.LastEventType = eventType
	w.stats.LastEventTime = time.Now()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processSettled(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		w.sync(ctx, path)
	}
}

// sync brings the store in line with the file's current state on disk.
func (w *Watcher) sync(ctx context.Context, path string) {
	source := filepath.Base(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := w.ingester.Remove(ctx, source); err != nil {
			w.recordError("remove", path, err)
			return
		}
		w.mu.Lock()
		w.stats.Removed++
		w.mu.Unlock()
		return
	}

	n, err := w.ingester.IngestFile(ctx, path)
	if err != nil {
		w.recordError("ingest", path, err)
		return
	}
	logging.Knowledge("Watcher: re-ingested %s (%d chunks)", source, n)
	w.mu.Lock()
	w.stats.Reingested++
	w.mu.Unlock()
}

func (w *Watcher) recordError(op, path string, err error) {
	logging.Get(logging.CategoryKnowledge).Error("Watcher: %s %s failed: %v", op, path, err)
	w.mu.Lock()
	w.stats.Errors++
	w.mu.Unlock()
}
