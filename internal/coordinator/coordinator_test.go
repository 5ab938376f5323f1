package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xfinder/xfinder/internal/query"
)

func TestOpenCreatesIndexAndStore(t *testing.T) {
	stateDir := t.TempDir()

	c, err := Open(stateDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if c.Index == nil || c.Meta == nil || c.Query == nil {
		t.Fatal("expected Index, Meta and Query to be non-nil after Open")
	}
	if c.Config.Indexing.MinNgramSize != 2 || c.Config.Indexing.MaxNgramSize != 20 {
		t.Fatalf("expected default ngram bounds, got %+v", c.Config.Indexing)
	}
	if _, err := os.Stat(filepath.Join(stateDir, indexSubdir)); err != nil {
		t.Errorf("expected index directory to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(stateDir, dbFileName)); err != nil {
		t.Errorf("expected metadata db to exist: %v", err)
	}
}

func TestRebuildRefusedWhileWatching(t *testing.T) {
	stateDir := t.TempDir()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Open(stateDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.StartWatching(ctx, root); err != nil {
		t.Fatalf("StartWatching: %v", err)
	}

	if err := c.Rebuild(context.Background(), root); err == nil {
		t.Fatal("expected Rebuild to refuse running while the watcher is active")
	}

	if err := c.StopWatching(); err != nil {
		t.Fatalf("StopWatching: %v", err)
	}

	if err := c.Rebuild(context.Background(), root); err != nil {
		t.Fatalf("Rebuild after StopWatching: %v", err)
	}
}

func TestStartWatchingTwiceErrors(t *testing.T) {
	stateDir := t.TempDir()
	root := t.TempDir()

	c, err := Open(stateDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.StartWatching(ctx, root); err != nil {
		t.Fatalf("StartWatching: %v", err)
	}
	if err := c.StartWatching(ctx, root); err == nil {
		t.Fatal("expected second StartWatching call to error")
	}
	if err := c.StopWatching(); err != nil {
		t.Fatalf("StopWatching: %v", err)
	}
}

func TestOpenRefusesSecondProcessOverSameStateDir(t *testing.T) {
	stateDir := t.TempDir()

	c1, err := Open(stateDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c1.Close()

	if _, err := Open(stateDir); err == nil {
		t.Fatal("expected a second Open over the same state directory to fail")
	}
}

func TestStopWatchingWhenNotRunningIsSafe(t *testing.T) {
	stateDir := t.TempDir()

	c, err := Open(stateDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if err := c.StopWatching(); err != nil {
		t.Fatalf("expected no-op StopWatching to succeed, got: %v", err)
	}
}

func TestWatchedCreateIsSearchableAfterApply(t *testing.T) {
	stateDir := t.TempDir()
	root := t.TempDir()

	c, err := Open(stateDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.StartWatching(ctx, root); err != nil {
		t.Fatalf("StartWatching: %v", err)
	}
	defer c.StopWatching()

	path := filepath.Join(root, "needle.txt")
	if err := os.WriteFile(path, []byte("a unique needle string"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		res, err := c.Query.Search(query.Request{Text: "needle", Limit: 10})
		if err == nil && len(res) > 0 {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("expected the watched file to become searchable within the deadline")
}
