// Package watcher monitors a model snapshot file and reports debounced
// change events so the bridge can reload and re-send the scene.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nrnviz/blender-bridge/pkg/logging"
)

// ChangeEvent represents a batch of changes to the watched snapshot
type ChangeEvent struct {
	Paths     []string
	Timestamp time.Time
}

// SnapshotWatcher watches a model snapshot file for changes. The parent
// directory is watched rather than the file itself, because editors and
// exporters typically replace the file (write to temp, rename over).
type SnapshotWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	fileName string
	events   chan ChangeEvent
}

// NewSnapshotWatcher creates a watcher for the given snapshot file
func NewSnapshotWatcher(path string) (*SnapshotWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to resolve snapshot path: %w", err)
	}

	return &SnapshotWatcher{
		watcher:  watcher,
		path:     abs,
		fileName: filepath.Base(abs),
		events:   make(chan ChangeEvent, 10),
	}, nil
}

// Start begins watching for snapshot changes. The events channel closes when
// the context is cancelled.
func (sw *SnapshotWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(sw.path)
	if err := sw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logging.Info("watching snapshot", "path", sw.path)

	go sw.processEvents(ctx)
	return nil
}

// processEvents filters raw filesystem events down to the snapshot file and
// batches rapid successive writes into one change event
func (sw *SnapshotWatcher) processEvents(ctx context.Context) {
	var pending []string

	flushTimer := time.NewTimer(0)
	if !flushTimer.Stop() {
		<-flushTimer.C
	}

	flush := func() {
		if len(pending) == 0 {
			return
		}
		sw.events <- ChangeEvent{Paths: pending, Timestamp: time.Now()}
		pending = nil
	}

	for {
		select {
		case <-ctx.Done():
			sw.watcher.Close()
			close(sw.events)
			return

		case event, ok := <-sw.watcher.Events:
			if !ok {
				close(sw.events)
				return
			}

			if filepath.Base(event.Name) != sw.fileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			pending = append(pending, event.Name)
			flushTimer.Reset(100 * time.Millisecond)

		case <-flushTimer.C:
			flush()

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				close(sw.events)
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (sw *SnapshotWatcher) Events() <-chan ChangeEvent {
	return sw.events
}

// Path returns the absolute path of the watched snapshot
func (sw *SnapshotWatcher) Path() string {
	return sw.path
}
