package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xfinder/xfinder/internal/exclude"
)

func collect(t *testing.T, s *Scanner, root string) []Result {
	t.Helper()
	var results []Result
	for r := range s.Scan(context.Background(), root, NoFileLimit) {
		results = append(results, r)
	}
	return results
}

func TestScanFindsFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.txt"), []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(exclude.Policy{})
	results := collect(t, s, dir)

	names := map[string]bool{}
	for _, r := range results {
		if r.Error != nil {
			t.Fatalf("unexpected error: %v", r.Error)
		}
		names[r.File.Name] = true
	}
	if !names["a.txt"] || !names["b.txt"] {
		t.Fatalf("expected to find a.txt and b.txt, got %+v", names)
	}
}

func TestScanRespectsExclusionPolicy(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "skip.tmp"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(exclude.Policy{Extensions: []string{".tmp"}})
	results := collect(t, s, dir)

	for _, r := range results {
		if r.File != nil && r.File.Name == "skip.tmp" {
			t.Fatalf("expected skip.tmp to be excluded")
		}
	}
}

func TestScanSkipsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported in this environment: %v", err)
	}

	s := New(exclude.Policy{})
	results := collect(t, s, dir)

	for _, r := range results {
		if r.File != nil && r.File.Name == "link.txt" {
			t.Fatalf("expected symlink to be skipped")
		}
	}
}

func TestScanBoundsDepth(t *testing.T) {
	dir := t.TempDir()
	cur := dir
	for i := 0; i < MaxDepth+3; i++ {
		cur = filepath.Join(cur, "d")
		if err := os.Mkdir(cur, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	deepFile := filepath.Join(cur, "deep.txt")
	if err := os.WriteFile(deepFile, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(exclude.Policy{})
	results := collect(t, s, dir)

	for _, r := range results {
		if r.File != nil && r.File.Name == "deep.txt" {
			t.Fatalf("expected file beyond max depth to not be reached")
		}
	}
}

func TestScanZeroMaxFilesYieldsNothing(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(exclude.Policy{})
	var results []Result
	for r := range s.Scan(context.Background(), dir, 0) {
		results = append(results, r)
	}
	if len(results) != 0 {
		t.Fatalf("expected max_files=0 to yield nothing, got %+v", results)
	}
}

func TestScanStopsAtMaxFiles(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, string(rune('a'+i))+".txt")
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	s := New(exclude.Policy{})
	var results []Result
	for r := range s.Scan(context.Background(), dir, 2) {
		results = append(results, r)
	}
	if len(results) != 2 {
		t.Fatalf("expected max_files=2 to yield exactly 2 results, got %d: %+v", len(results), results)
	}
}

func TestScanMissingRootReportsError(t *testing.T) {
	s := New(exclude.Policy{})
	results := collect(t, s, filepath.Join(t.TempDir(), "does-not-exist"))
	if len(results) != 1 || results[0].Error == nil {
		t.Fatalf("expected a single error result, got %+v", results)
	}
}
