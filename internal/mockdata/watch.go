package mockdata

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/incidentlab/responder/internal/logging"
)

// ChangeCallback is called after the fixture tree changes and the debounce
// period elapses. If the callback returns an error, it is logged but the
// watcher continues watching.
type ChangeCallback func() error

// WatcherConfig holds configuration for the fixture Watcher.
type WatcherConfig struct {
	// Dir is the fixture tree root to watch.
	Dir string

	// DebounceMillis is the debounce period in milliseconds.
	// Multiple change events within this period are coalesced into a
	// single callback. Default: 500ms.
	DebounceMillis int
}

// Watcher watches a fixture tree for changes and triggers callbacks with
// debouncing, so editor save sequences and `gendata` rewrites produce one
// re-run instead of a storm.
type Watcher struct {
	config   WatcherConfig
	callback ChangeCallback
	cancel   context.CancelFunc
	stopped  chan struct{}
	ready    chan struct{} // signals when the fsnotify watcher is fully initialized
	logger   *logging.Logger
	mu       sync.Mutex

	// debounceTimer coalesces multiple change events
	debounceTimer *time.Timer
}

// NewWatcher creates a watcher over the given fixture tree.
// The callback is invoked once on Start and again after each debounced
// change.
func NewWatcher(config WatcherConfig, callback ChangeCallback) (*Watcher, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("Dir cannot be empty")
	}
	if callback == nil {
		return nil, fmt.Errorf("callback cannot be nil")
	}

	if config.DebounceMillis == 0 {
		config.DebounceMillis = 500
	}

	return &Watcher{
		config:   config,
		callback: callback,
		stopped:  make(chan struct{}),
		ready:    make(chan struct{}),
		logger:   logging.GetLogger("mockdata.watcher"),
	}, nil
}

// Start invokes the callback once (fail fast if it errors), then begins
// watching the fixture tree in the background. It returns once the
// watcher is initialized, so changes made after Start are never missed.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.callback(); err != nil {
		return fmt.Errorf("initial callback failed: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	go w.watchLoop(watchCtx)

	select {
	case <-w.ready:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for fixture watcher to initialize")
	}

	return nil
}

// signalReady safely closes the ready channel exactly once
func (w *Watcher) signalReady() {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.ready:
	default:
		close(w.ready)
	}
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.stopped)
	defer w.signalReady() // ensure ready is signaled even on error paths

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Error("Failed to create fixture watcher: %v", err)
		return
	}
	defer watcher.Close()

	if err := w.addTree(watcher); err != nil {
		w.logger.Error("Failed to watch fixture tree %s: %v", w.config.Dir, err)
		return
	}

	w.logger.Info("Watching %s for fixture changes (debounce: %dms)",
		w.config.Dir, w.config.DebounceMillis)

	w.signalReady()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Fixture watcher stopping: context cancelled")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				w.logger.Debug("Fixture watcher events channel closed")
				return
			}

			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create ||
				event.Op&fsnotify.Rename == fsnotify.Rename ||
				event.Op&fsnotify.Remove == fsnotify.Remove {
				// New subdirectories must be added to the watch; atomic
				// replacement of a watched directory drops its watch, so
				// re-walk after rename/remove once the replacement settles.
				if event.Op&fsnotify.Create == fsnotify.Create {
					if err := watcher.Add(event.Name); err == nil {
						w.logger.Debug("Watching new fixture path %s", event.Name)
					}
				}
				if event.Op&fsnotify.Rename == fsnotify.Rename ||
					event.Op&fsnotify.Remove == fsnotify.Remove {
					time.Sleep(50 * time.Millisecond)
					if err := w.addTree(watcher); err != nil {
						w.logger.Warn("Failed to re-add fixture watches after %s: %v", event.Op, err)
					}
				}
				w.handleChange()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				w.logger.Debug("Fixture watcher errors channel closed")
				return
			}
			w.logger.Warn("Fixture watcher error: %v", err)
		}
	}
}

// addTree registers the fixture root and every subdirectory with the
// fsnotify watcher. fsnotify does not recurse on its own.
func (w *Watcher) addTree(watcher *fsnotify.Watcher) error {
	return filepath.WalkDir(w.config.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return watcher.Add(path)
	})
}

// handleChange implements debouncing by resetting a timer on each event.
func (w *Watcher) handleChange() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(
		time.Duration(w.config.DebounceMillis)*time.Millisecond,
		w.fireCallback,
	)
}

// fireCallback runs the change callback. Errors are logged but do not
// stop the watcher.
func (w *Watcher) fireCallback() {
	w.logger.Info("Fixture tree changed, re-running")

	if err := w.callback(); err != nil {
		w.logger.Error("Change callback failed (continuing to watch): %v", err)
		return
	}
}

// Stop gracefully stops the watcher, waiting up to 5 seconds for the
// watch loop to exit.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}

	select {
	case <-w.stopped:
		w.logger.Debug("Fixture watcher stopped")
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for fixture watcher to stop")
	}
}
