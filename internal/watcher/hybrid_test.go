package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xfinder/xfinder/internal/exclude"
)

func testOptions() Options {
	return Options{
		DebounceWindow:  10 * time.Millisecond,
		EventBufferSize: 100,
	}.WithDefaults()
}

func startWatcher(t *testing.T, w *HybridWatcher, root string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	t.Cleanup(func() { _ = w.Stop() })

	started := make(chan struct{})
	go func() {
		close(started)
		_ = w.Start(ctx, root)
	}()
	<-started
	time.Sleep(150 * time.Millisecond)
}

func TestNewHybridWatcher(t *testing.T) {
	w, err := NewHybridWatcher(DefaultOptions(), exclude.Policy{})
	require.NoError(t, err)
	require.NotNil(t, w)
	defer func() { _ = w.Stop() }()
}

func TestHybridWatcherDetectsCreate(t *testing.T) {
	tempDir := t.TempDir()
	w, err := NewHybridWatcher(testOptions(), exclude.Policy{})
	require.NoError(t, err)
	startWatcher(t, w, tempDir)

	testFile := filepath.Join(tempDir, "test.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("hello"), 0o644))

	select {
	case batch := <-w.Events():
		found := false
		for _, e := range batch {
			if e.Path == testFile && e.Operation == OpCreate {
				found = true
			}
		}
		require.True(t, found, "expected a create event for %s, got %+v", testFile, batch)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for create event")
	}
}

func TestHybridWatcherRespectsExclusionPolicy(t *testing.T) {
	tempDir := t.TempDir()
	policy := exclude.Policy{Extensions: []string{".tmp"}}
	w, err := NewHybridWatcher(testOptions(), policy)
	require.NoError(t, err)
	startWatcher(t, w, tempDir)

	excludedFile := filepath.Join(tempDir, "scratch.tmp")
	require.NoError(t, os.WriteFile(excludedFile, []byte("x"), 0o644))

	allowedFile := filepath.Join(tempDir, "keep.txt")
	require.NoError(t, os.WriteFile(allowedFile, []byte("x"), 0o644))

	select {
	case batch := <-w.Events():
		for _, e := range batch {
			require.NotEqual(t, excludedFile, e.Path, "excluded file should not be reported")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event batch")
	}
}

func TestHybridWatcherDetectsDelete(t *testing.T) {
	tempDir := t.TempDir()
	target := filepath.Join(tempDir, "todelete.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	w, err := NewHybridWatcher(testOptions(), exclude.Policy{})
	require.NoError(t, err)
	startWatcher(t, w, tempDir)

	require.NoError(t, os.Remove(target))

	select {
	case batch := <-w.Events():
		found := false
		for _, e := range batch {
			if e.Path == target && e.Operation == OpDelete {
				found = true
			}
		}
		require.True(t, found, "expected a delete event for %s, got %+v", target, batch)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delete event")
	}
}

func TestHybridWatcherStopIsIdempotent(t *testing.T) {
	w, err := NewHybridWatcher(DefaultOptions(), exclude.Policy{})
	require.NoError(t, err)
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
