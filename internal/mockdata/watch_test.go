package mockdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// writeDemoTree writes the demo fixtures into a temp dir.
func writeDemoTree(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	if err := WriteDemoData(dir); err != nil {
		t.Fatalf("WriteDemoData failed: %v", err)
	}
	return dir
}

// TestWatcherInvokesInitialCallback verifies that Start() runs the
// callback once before watching begins.
func TestWatcherInvokesInitialCallback(t *testing.T) {
	dir := writeDemoTree(t)

	var callCount atomic.Int32
	callback := func() error {
		callCount.Add(1)
		return nil
	}

	watcher, err := NewWatcher(WatcherConfig{Dir: dir, DebounceMillis: 100}, callback)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	if callCount.Load() != 1 {
		t.Fatalf("expected 1 initial callback, got %d", callCount.Load())
	}
}

// TestWatcherDetectsFixtureChange verifies that modifying a fixture file
// triggers the callback after the debounce period.
func TestWatcherDetectsFixtureChange(t *testing.T) {
	dir := writeDemoTree(t)

	var callCount atomic.Int32
	callback := func() error {
		callCount.Add(1)
		return nil
	}

	watcher, err := NewWatcher(WatcherConfig{Dir: dir, DebounceMillis: 100}, callback)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	if callCount.Load() != 1 {
		t.Fatalf("expected 1 initial callback, got %d", callCount.Load())
	}

	// Give the watcher time to fully register the tree
	time.Sleep(50 * time.Millisecond)

	scenario := filepath.Join(dir, "scenarios", DemoIncidentID+"-database-failure.json")
	if err := os.WriteFile(scenario, []byte(`{"incident_id":"inc-db-5001","severity":"SEV-2"}`), 0o644); err != nil {
		t.Fatalf("failed to modify fixture: %v", err)
	}

	// Wait for debounce + processing time
	deadline := time.After(3 * time.Second)
	for callCount.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected 2 callbacks after fixture change, got %d", callCount.Load())
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// TestWatcherDebouncing verifies that rapid writes within the debounce
// period coalesce into a single callback.
func TestWatcherDebouncing(t *testing.T) {
	dir := writeDemoTree(t)

	var callCount atomic.Int32
	callback := func() error {
		callCount.Add(1)
		return nil
	}

	watcher, err := NewWatcher(WatcherConfig{Dir: dir, DebounceMillis: 200}, callback)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	time.Sleep(50 * time.Millisecond)

	topo := filepath.Join(dir, "topology", "production.json")
	for i := 0; i < 5; i++ {
		content := fmt.Sprintf(`{"schema_version":"1.2.0","write":%d}`, i)
		if err := os.WriteFile(topo, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	time.Sleep(400 * time.Millisecond)

	if callCount.Load() != 2 {
		t.Errorf("expected 2 callbacks total (initial + one coalesced), got %d", callCount.Load())
	}
}

// TestWatcherValidation verifies constructor argument checks.
func TestWatcherValidation(t *testing.T) {
	if _, err := NewWatcher(WatcherConfig{}, func() error { return nil }); err == nil {
		t.Error("expected error for empty Dir")
	}

	if _, err := NewWatcher(WatcherConfig{Dir: t.TempDir()}, nil); err == nil {
		t.Error("expected error for nil callback")
	}
}

// TestWatcherInitialCallbackFailure verifies that Start fails fast when
// the first callback errors.
func TestWatcherInitialCallbackFailure(t *testing.T) {
	dir := writeDemoTree(t)

	watcher, err := NewWatcher(WatcherConfig{Dir: dir, DebounceMillis: 100}, func() error {
		return fmt.Errorf("boom")
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	if err := watcher.Start(context.Background()); err == nil {
		t.Fatal("expected Start to fail when initial callback errors")
	}
}

// TestWatcherCallbackErrorKeepsWatching verifies that a failing change
// callback does not kill the watch loop.
func TestWatcherCallbackErrorKeepsWatching(t *testing.T) {
	dir := writeDemoTree(t)

	var callCount atomic.Int32
	callback := func() error {
		n := callCount.Add(1)
		if n == 2 {
			return fmt.Errorf("transient failure")
		}
		return nil
	}

	watcher, err := NewWatcher(WatcherConfig{Dir: dir, DebounceMillis: 100}, callback)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	time.Sleep(50 * time.Millisecond)

	topo := filepath.Join(dir, "topology", "production.json")

	// Second callback fails
	if err := os.WriteFile(topo, []byte(`{"schema_version":"1.2.0","rev":1}`), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	deadline := time.After(3 * time.Second)
	for callCount.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected 2 callbacks, got %d", callCount.Load())
		case <-time.After(20 * time.Millisecond):
		}
	}

	// Third callback still fires
	if err := os.WriteFile(topo, []byte(`{"schema_version":"1.2.0","rev":2}`), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	deadline = time.After(3 * time.Second)
	for callCount.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected 3 callbacks, got %d", callCount.Load())
		case <-time.After(20 * time.Millisecond):
		}
	}
}
