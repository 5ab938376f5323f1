package semantic

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xfinder/xfinder/internal/chunk"
	"github.com/xfinder/xfinder/internal/embed"
	"github.com/xfinder/xfinder/internal/store"
	"github.com/xfinder/xfinder/internal/vector"
)

func newTestIndexer(t *testing.T) (*Indexer, *store.Store, string) {
	t.Helper()
	dir := t.TempDir()

	meta, err := store.Open(filepath.Join(dir, "meta.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { meta.Close() })

	embedder := embed.NewStaticEmbedder()
	vec := vector.New(vector.Config{Dimensions: embed.StaticDimensions})
	vectorPath := filepath.Join(dir, "vectors", "index.hnsw")

	ix := New(embedder, vec, meta, vectorPath, chunk.DefaultOptions())
	return ix, meta, dir
}

func TestIndexFileCreatesChunksAndMapping(t *testing.T) {
	ix, meta, dir := newTestIndexer(t)

	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("This is a test document. It has two sentences."), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := ix.IndexFile(context.Background(), FileJob{Path: path, FileID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 chunk for a short document, got %d", n)
	}

	resolved, found, err := meta.GetPathByFileID(1)
	if err != nil {
		t.Fatal(err)
	}
	if !found || resolved != path {
		t.Fatalf("expected file mapping to resolve back to %q, got %q found=%v", path, resolved, found)
	}
}

func TestIndexFileEmptyContentYieldsZero(t *testing.T) {
	ix, _, dir := newTestIndexer(t)

	path := filepath.Join(dir, "empty.png")
	if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := ix.IndexFile(context.Background(), FileJob{Path: path, FileID: 2})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected 0 chunks for unsupported empty content, got %d", n)
	}
}

func TestBuildAndSearchRoundTrip(t *testing.T) {
	ix, _, dir := newTestIndexer(t)

	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("The quick brown fox jumps over the lazy dog."), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ix.IndexFile(context.Background(), FileJob{Path: path, FileID: 7}); err != nil {
		t.Fatal(err)
	}
	if err := ix.BuildIndex(); err != nil {
		t.Fatal(err)
	}

	results, err := ix.Search(context.Background(), "quick brown fox", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one search result")
	}
	if results[0].Path != path {
		t.Fatalf("expected result to resolve to %q, got %q", path, results[0].Path)
	}
}

func TestWorkerFlushesOnBatchSize(t *testing.T) {
	ix, _, dir := newTestIndexer(t)
	w := NewWorker(ix, 2)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	defer cancel()

	for i := 0; i < 2; i++ {
		path := filepath.Join(dir, "f"+string(rune('a'+i))+".txt")
		if err := os.WriteFile(path, []byte("some content to index here."), 0o644); err != nil {
			t.Fatal(err)
		}
		w.EnqueueFile(FileJob{Path: path, FileID: int64(i + 100)})
	}

	deadline := time.After(2 * time.Second)
	for {
		if w.Stats().FilesIndexed >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for batch flush, stats=%+v", w.Stats())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWorkerStopDrainsPending(t *testing.T) {
	ix, _, dir := newTestIndexer(t)
	w := NewWorker(ix, 10)

	ctx := context.Background()
	go w.Run(ctx)

	path := filepath.Join(dir, "only.txt")
	if err := os.WriteFile(path, []byte("a single file to index."), 0o644); err != nil {
		t.Fatal(err)
	}
	w.EnqueueFile(FileJob{Path: path, FileID: 200})
	w.Stop()
	w.Wait()

	if w.Stats().FilesIndexed != 1 {
		t.Fatalf("expected Stop to drain the pending file, got stats=%+v", w.Stats())
	}
}
