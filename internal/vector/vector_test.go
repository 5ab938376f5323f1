package vector

import (
	"path/filepath"
	"testing"
)

func TestAddSearchRoundTrip(t *testing.T) {
	s := New(Config{Dimensions: 4})
	if err := s.Add(1, []float32{1, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(2, []float32{0, 1, 0, 0}); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search([]float32{1, 0, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ChunkID != 1 {
		t.Fatalf("expected chunk 1 as nearest neighbor, got %+v", results)
	}
}

func TestDimensionMismatch(t *testing.T) {
	s := New(Config{Dimensions: 4})
	if err := s.Add(1, []float32{1, 2, 3}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestBuildLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	s := New(Config{Dimensions: 3})
	if err := s.Add(10, []float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := s.Build(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	results, err := loaded.Search([]float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ChunkID != 10 {
		t.Fatalf("expected chunk 10 after reload, got %+v", results)
	}
}

func TestDeleteIsLazy(t *testing.T) {
	s := New(Config{Dimensions: 2})
	if err := s.Add(1, []float32{1, 0}); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(2, []float32{0, 1}); err != nil {
		t.Fatal(err)
	}
	s.Delete(1)
	if s.Count() != 1 {
		t.Fatalf("expected 1 live vector after delete, got %d", s.Count())
	}
}
