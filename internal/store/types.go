// Package store implements the metadata store (C4): an embedded relational
// store holding file records, watched folders, config KV, search history,
// error log, and the chunk<->vector maps used by semantic mode.
package store

import "time"

// CurrentSchemaVersion is the schema_version this build understands.
// spec.md §6: "the current value is 1".
const CurrentSchemaVersion = 1

// MaxChunksPerFile bounds chunk_index to [0, 1e6) per spec.md §3.
const MaxChunksPerFile = 1_000_000

// FileRecord is the canonical per-file metadata row (spec.md §3).
type FileRecord struct {
	ID        string
	Path      string
	Filename  string
	Extension string
	Size      int64
	Modified  int64
	Created   int64
	Hash      string // empty means null
	IndexedAt int64
}

// WatchedFolder tracks a scan root (spec.md §3).
type WatchedFolder struct {
	Path      string
	LastScan  int64
	FileCount int64
	TotalSize int64
	Enabled   bool
	CreatedAt int64
}

// ConfigKV is a process-wide tunable persisted across runs.
type ConfigKV struct {
	Key       string
	Value     string
	UpdatedAt int64
}

// SearchHistoryEntry is an append-only search log row, 30-day retention.
type SearchHistoryEntry struct {
	ID              int64
	Query           string
	ResultsCount    int
	ExecutionTimeMs int64
	Timestamp       int64
}

// ErrorLogEntry is an append-only error log row, 30-day retention.
type ErrorLogEntry struct {
	ID        int64
	FilePath  string // empty means none
	ErrorType string
	Message   string
	Timestamp int64
}

// SemanticFileMapping maps a semantic file_id to the path it came from.
type SemanticFileMapping struct {
	FileID    int64
	Path      string
	IndexedAt int64
}

// SemanticChunkRecord is one chunk of extracted text, derived chunk_id per
// spec.md §3: chunk_id = file_id * 1e6 + chunk_index.
type SemanticChunkRecord struct {
	ChunkID   int64
	FileID    int64
	ChunkIdx  int
	Text      string
	StartPos  int
	EndPos    int
	IndexedAt int64
}

// ExtensionStat is one row of stats_by_extension().
type ExtensionStat struct {
	Extension string
	Count     int64
	TotalSize int64
}

// DuplicateGroup is a set of ≥2 files sharing a non-null hash.
type DuplicateGroup struct {
	Hash  string
	Files []FileRecord
}

// retentionWindow is the 30-day window applied to search history and the
// error log (spec.md §3, §7).
const retentionWindow = 30 * 24 * time.Hour
