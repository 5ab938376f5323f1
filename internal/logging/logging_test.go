package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultLogDirUnderXfinderState(t *testing.T) {
	dir := DefaultLogDir()
	if !strings.Contains(dir, ".xfinder_index") || !strings.Contains(dir, "logs") {
		t.Errorf("expected DefaultLogDir to live under .xfinder_index/logs, got: %s", dir)
	}
}

func TestSetupWritesJSONLogLines(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Level:         "debug",
		FilePath:      filepath.Join(dir, "xfinder.log"),
		MaxSizeMB:     1,
		MaxFiles:      2,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("indexed file", "component", "indexer", "path", "/a/b.txt")
	cleanup()

	data, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one log line, got %d: %q", len(lines), data)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected valid JSON log line: %v", err)
	}
	if entry["component"] != "indexer" || entry["path"] != "/a/b.txt" {
		t.Fatalf("expected component/path fields in log entry, got %+v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRotatingWriterRotatesOnSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")
	w, err := NewRotatingWriter(path, 0, 3) // maxSizeMB=0 rotates on first write past 0 bytes
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	payload := bytes.Repeat([]byte("x"), 100)
	if _, err := w.Write(payload); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(payload); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected rotation to produce at least 2 files, got %d", len(entries))
	}
}

func TestViewerFormatEntry(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})
	entry := v.parseLine(`{"time":"2026-01-15T10:30:00Z","level":"INFO","msg":"hello","component":"query"}`)
	if !entry.IsValid {
		t.Fatal("expected a valid parsed entry")
	}
	out := v.FormatEntry(entry)
	if !strings.Contains(out, "hello") {
		t.Fatalf("expected formatted entry to contain the message, got %q", out)
	}
}
