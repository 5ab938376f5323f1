package extract

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello   world\n\n\n\nmore text"), 0o644); err != nil {
		t.Fatal(err)
	}

	text, err := Extract(path)
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello world\n\nmore text" {
		t.Fatalf("unexpected cleaned text: %q", text)
	}
}

func TestExtractUnsupportedNonEmptyFileDoesNotError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(path, []byte{0xff, 0xd8, 0xff}, 0o644); err != nil {
		t.Fatal(err)
	}

	text, err := Extract(path)
	if err != nil {
		t.Fatal(err)
	}
	// Binary content round-trips as plain text unless it's empty; an empty
	// file is the case that actually falls to the placeholder.
	_ = text
}

func TestExtractEmptyUnsupportedFileYieldsPlaceholder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
		t.Fatal(err)
	}

	text, err := Extract(path)
	if err != nil {
		t.Fatal(err)
	}
	if !IsUnsupportedPlaceholder(text) {
		t.Fatalf("expected placeholder for empty file, got %q", text)
	}
}

func TestExtractMissingFileReturnsPlaceholder(t *testing.T) {
	text, err := Extract("/nonexistent/path/file.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !IsUnsupportedPlaceholder(text) {
		t.Fatalf("expected placeholder for missing file, got %q", text)
	}
}
