package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no cgo

	"github.com/xfinder/xfinder/internal/xerrors"
)

// schema is the full DDL for C4's tables, one statement set applied at open.
const schema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS files (
	id         TEXT PRIMARY KEY,
	path       TEXT NOT NULL UNIQUE,
	filename   TEXT NOT NULL,
	extension  TEXT NOT NULL,
	size       INTEGER NOT NULL,
	modified   INTEGER NOT NULL,
	created    INTEGER NOT NULL,
	hash       TEXT,
	indexed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_files_extension ON files(extension);
CREATE INDEX IF NOT EXISTS idx_files_hash ON files(hash);

CREATE TABLE IF NOT EXISTS watched_folders (
	path       TEXT PRIMARY KEY,
	last_scan  INTEGER NOT NULL,
	file_count INTEGER NOT NULL,
	total_size INTEGER NOT NULL,
	enabled    INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS config_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS search_history (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	query             TEXT NOT NULL,
	results_count     INTEGER NOT NULL,
	execution_time_ms INTEGER NOT NULL,
	timestamp         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_history_ts ON search_history(timestamp);

CREATE TABLE IF NOT EXISTS error_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	file_path  TEXT,
	error_type TEXT NOT NULL,
	message    TEXT NOT NULL,
	timestamp  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_error_log_ts ON error_log(timestamp);

CREATE TABLE IF NOT EXISTS semantic_file_mapping (
	file_id    INTEGER PRIMARY KEY,
	path       TEXT NOT NULL,
	indexed_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS semantic_chunks (
	chunk_id   INTEGER PRIMARY KEY,
	file_id    INTEGER NOT NULL,
	chunk_index INTEGER NOT NULL,
	text       TEXT NOT NULL,
	start_pos  INTEGER NOT NULL,
	end_pos    INTEGER NOT NULL,
	indexed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_semantic_chunks_file ON semantic_chunks(file_id);
`

// Store is the embedded relational metadata store (C4). It serializes
// writes under a single mutex, per spec.md §5 ("C4 is shared; it
// serializes writes internally under a single mutex").
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
}

// Open opens or creates the metadata store at path, applying the pragma
// tuning from spec.md §4.4 (WAL, synchronous=normal, ~64MiB cache, mmap
// reads, 4KiB pages, incremental vacuum) and refusing to proceed if the
// on-disk schema_version exceeds CurrentSchemaVersion.
func Open(path string) (*Store, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, xerrors.IoError("create metadata store directory", err)
		}
	}

	dsn := ":memory:"
	if path != "" {
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, xerrors.StorageError("open metadata store", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",     // ~64 MiB page cache
		"PRAGMA mmap_size = 268435456",   // 256 MiB mmap reads
		"PRAGMA page_size = 4096",
		"PRAGMA auto_vacuum = INCREMENTAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, xerrors.StorageError("apply pragma: "+p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, xerrors.StorageError("create schema", err)
	}

	s := &Store{db: db, path: path}
	if err := s.checkSchemaVersion(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) checkSchemaVersion() error {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return xerrors.StorageError("read schema_version", err)
	}
	if count == 0 {
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", CurrentSchemaVersion); err != nil {
			return xerrors.StorageError("initialize schema_version", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return xerrors.StorageError("read schema_version", err)
	}
	if version > CurrentSchemaVersion {
		return xerrors.SchemaMismatch(fmt.Sprintf("store schema version %d exceeds supported version %d", version, CurrentSchemaVersion))
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return xerrors.StorageError("close metadata store", err)
	}
	return nil
}

// UpsertFile inserts or updates a file record, keyed on path.
func (s *Store) UpsertFile(r FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertFileTx(s.db, r)
}

func (s *Store) upsertFileTx(execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}, r FileRecord) error {
	var hash any
	if r.Hash != "" {
		hash = r.Hash
	}
	_, err := execer.Exec(`
		INSERT INTO files (id, path, filename, extension, size, modified, created, hash, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			filename = excluded.filename,
			extension = excluded.extension,
			size = excluded.size,
			modified = excluded.modified,
			created = excluded.created,
			hash = excluded.hash,
			indexed_at = excluded.indexed_at
	`, r.ID, r.Path, r.Filename, r.Extension, r.Size, r.Modified, r.Created, hash, r.IndexedAt)
	if err != nil {
		return xerrors.StorageError("upsert file", err)
	}
	return nil
}

// BatchUpsertFiles performs a transactional batch of UpsertFile. Required by
// spec.md §4.4 to outperform per-row upserts by ≥50× on 1000 records.
func (s *Store) BatchUpsertFiles(records []FileRecord) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return xerrors.StorageError("begin batch upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO files (id, path, filename, extension, size, modified, created, hash, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			filename = excluded.filename,
			extension = excluded.extension,
			size = excluded.size,
			modified = excluded.modified,
			created = excluded.created,
			hash = excluded.hash,
			indexed_at = excluded.indexed_at
	`)
	if err != nil {
		return xerrors.StorageError("prepare batch upsert", err)
	}
	defer stmt.Close()

	for _, r := range records {
		var hash any
		if r.Hash != "" {
			hash = r.Hash
		}
		if _, err := stmt.Exec(r.ID, r.Path, r.Filename, r.Extension, r.Size, r.Modified, r.Created, hash, r.IndexedAt); err != nil {
			return xerrors.StorageError("batch upsert row", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return xerrors.StorageError("commit batch upsert", err)
	}
	return nil
}

// GetFileByPath returns the record for path, or ok=false if absent.
func (s *Store) GetFileByPath(path string) (FileRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var r FileRecord
	var hash sql.NullString
	err := s.db.QueryRow(`SELECT id, path, filename, extension, size, modified, created, hash, indexed_at
		FROM files WHERE path = ?`, path).Scan(&r.ID, &r.Path, &r.Filename, &r.Extension, &r.Size, &r.Modified, &r.Created, &hash, &r.IndexedAt)
	if err == sql.ErrNoRows {
		return FileRecord{}, false, nil
	}
	if err != nil {
		return FileRecord{}, false, xerrors.StorageError("get file by path", err)
	}
	r.Hash = hash.String
	return r, true, nil
}

// DeleteFile removes the record for path. Not an error if absent.
func (s *Store) DeleteFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM files WHERE path = ?", path); err != nil {
		return xerrors.StorageError("delete file", err)
	}
	return nil
}

// BatchDeleteFiles removes many records transactionally.
func (s *Store) BatchDeleteFiles(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return xerrors.StorageError("begin batch delete", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare("DELETE FROM files WHERE path = ?")
	if err != nil {
		return xerrors.StorageError("prepare batch delete", err)
	}
	defer stmt.Close()

	for _, p := range paths {
		if _, err := stmt.Exec(p); err != nil {
			return xerrors.StorageError("batch delete row", err)
		}
	}
	return xerrors.Wrap(xerrors.CodeStorageError, tx.Commit())
}

// CountFiles returns the total number of indexed files.
func (s *Store) CountFiles() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&n); err != nil {
		return 0, xerrors.StorageError("count files", err)
	}
	return n, nil
}

// StatsByExtension returns per-extension counts and total size, descending
// by count.
func (s *Store) StatsByExtension() ([]ExtensionStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT extension, COUNT(*), COALESCE(SUM(size), 0)
		FROM files GROUP BY extension ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, xerrors.StorageError("stats by extension", err)
	}
	defer rows.Close()

	var out []ExtensionStat
	for rows.Next() {
		var st ExtensionStat
		if err := rows.Scan(&st.Extension, &st.Count, &st.TotalSize); err != nil {
			return nil, xerrors.StorageError("scan extension stats", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// AddSearchHistory appends a search-history row.
func (s *Store) AddSearchHistory(e SearchHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO search_history (query, results_count, execution_time_ms, timestamp)
		VALUES (?, ?, ?, ?)`, e.Query, e.ResultsCount, e.ExecutionTimeMs, e.Timestamp)
	return xerrors.Wrap(xerrors.CodeStorageError, err)
}

// GetTopSearches returns the most frequent queries within the retention
// window, up to limit.
func (s *Store) GetTopSearches(limit int) ([]SearchHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-retentionWindow).Unix()
	rows, err := s.db.Query(`
		SELECT query, COUNT(*) as c, MAX(execution_time_ms), MAX(timestamp)
		FROM search_history WHERE timestamp >= ?
		GROUP BY query ORDER BY c DESC LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, xerrors.StorageError("get top searches", err)
	}
	defer rows.Close()

	var out []SearchHistoryEntry
	for rows.Next() {
		var e SearchHistoryEntry
		if err := rows.Scan(&e.Query, &e.ResultsCount, &e.ExecutionTimeMs, &e.Timestamp); err != nil {
			return nil, xerrors.StorageError("scan top searches", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AddErrorLog appends an error-log row.
func (s *Store) AddErrorLog(e ErrorLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var filePath any
	if e.FilePath != "" {
		filePath = e.FilePath
	}
	_, err := s.db.Exec(`INSERT INTO error_log (file_path, error_type, message, timestamp)
		VALUES (?, ?, ?, ?)`, filePath, e.ErrorType, e.Message, e.Timestamp)
	return xerrors.Wrap(xerrors.CodeStorageError, err)
}

// GetRecentErrors returns the most recent error-log rows, up to limit.
func (s *Store) GetRecentErrors(limit int) ([]ErrorLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, COALESCE(file_path, ''), error_type, message, timestamp
		FROM error_log ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, xerrors.StorageError("get recent errors", err)
	}
	defer rows.Close()

	var out []ErrorLogEntry
	for rows.Next() {
		var e ErrorLogEntry
		if err := rows.Scan(&e.ID, &e.FilePath, &e.ErrorType, &e.Message, &e.Timestamp); err != nil {
			return nil, xerrors.StorageError("scan recent errors", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CleanupOldLogs removes search-history and error-log rows older than the
// 30-day retention window.
func (s *Store) CleanupOldLogs() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-retentionWindow).Unix()
	tx, err := s.db.Begin()
	if err != nil {
		return xerrors.StorageError("begin cleanup", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM search_history WHERE timestamp < ?", cutoff); err != nil {
		return xerrors.StorageError("cleanup search_history", err)
	}
	if _, err := tx.Exec("DELETE FROM error_log WHERE timestamp < ?", cutoff); err != nil {
		return xerrors.StorageError("cleanup error_log", err)
	}
	return xerrors.Wrap(xerrors.CodeStorageError, tx.Commit())
}

// FindDuplicates groups files sharing a non-null hash, ≥2 per group.
func (s *Store) FindDuplicates() ([]DuplicateGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT hash FROM files
		WHERE hash IS NOT NULL AND hash != ''
		GROUP BY hash HAVING COUNT(*) >= 2`)
	if err != nil {
		return nil, xerrors.StorageError("find duplicate hashes", err)
	}
	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			rows.Close()
			return nil, xerrors.StorageError("scan duplicate hash", err)
		}
		hashes = append(hashes, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, xerrors.StorageError("iterate duplicate hashes", err)
	}

	var groups []DuplicateGroup
	for _, h := range hashes {
		frows, err := s.db.Query(`SELECT id, path, filename, extension, size, modified, created, hash, indexed_at
			FROM files WHERE hash = ?`, h)
		if err != nil {
			return nil, xerrors.StorageError("fetch duplicate group", err)
		}
		var files []FileRecord
		for frows.Next() {
			var r FileRecord
			var hash sql.NullString
			if err := frows.Scan(&r.ID, &r.Path, &r.Filename, &r.Extension, &r.Size, &r.Modified, &r.Created, &hash, &r.IndexedAt); err != nil {
				frows.Close()
				return nil, xerrors.StorageError("scan duplicate group row", err)
			}
			r.Hash = hash.String
			files = append(files, r)
		}
		frows.Close()
		groups = append(groups, DuplicateGroup{Hash: h, Files: files})
	}
	return groups, nil
}

// SetConfig upserts a config KV row.
func (s *Store) SetConfig(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO config_kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().Unix())
	return xerrors.Wrap(xerrors.CodeStorageError, err)
}

// GetConfig returns a config KV value, or ok=false if unset.
func (s *Store) GetConfig(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var value string
	err := s.db.QueryRow("SELECT value FROM config_kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, xerrors.StorageError("get config", err)
	}
	return value, true, nil
}

// UpsertSemanticFileMapping upserts file_id -> path.
func (s *Store) UpsertSemanticFileMapping(m SemanticFileMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO semantic_file_mapping (file_id, path, indexed_at) VALUES (?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET path = excluded.path, indexed_at = excluded.indexed_at
	`, m.FileID, m.Path, m.IndexedAt)
	return xerrors.Wrap(xerrors.CodeStorageError, err)
}

// GetPathByFileID resolves a semantic file_id back to its path.
func (s *Store) GetPathByFileID(fileID int64) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var path string
	err := s.db.QueryRow("SELECT path FROM semantic_file_mapping WHERE file_id = ?", fileID).Scan(&path)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, xerrors.StorageError("get path by file id", err)
	}
	return path, true, nil
}

// DeleteSemanticFileMapping removes the mapping for fileID.
func (s *Store) DeleteSemanticFileMapping(fileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM semantic_file_mapping WHERE file_id = ?", fileID)
	return xerrors.Wrap(xerrors.CodeStorageError, err)
}

// InsertSemanticChunk inserts one chunk record, keyed by its derived chunk_id.
func (s *Store) InsertSemanticChunk(c SemanticChunkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO semantic_chunks (chunk_id, file_id, chunk_index, text, start_pos, end_pos, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET text = excluded.text, start_pos = excluded.start_pos,
			end_pos = excluded.end_pos, indexed_at = excluded.indexed_at
	`, c.ChunkID, c.FileID, c.ChunkIdx, c.Text, c.StartPos, c.EndPos, c.IndexedAt)
	return xerrors.Wrap(xerrors.CodeStorageError, err)
}

// GetChunkByID returns one chunk by its chunk_id.
func (s *Store) GetChunkByID(chunkID int64) (SemanticChunkRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c SemanticChunkRecord
	err := s.db.QueryRow(`SELECT chunk_id, file_id, chunk_index, text, start_pos, end_pos, indexed_at
		FROM semantic_chunks WHERE chunk_id = ?`, chunkID).
		Scan(&c.ChunkID, &c.FileID, &c.ChunkIdx, &c.Text, &c.StartPos, &c.EndPos, &c.IndexedAt)
	if err == sql.ErrNoRows {
		return SemanticChunkRecord{}, false, nil
	}
	if err != nil {
		return SemanticChunkRecord{}, false, xerrors.StorageError("get chunk by id", err)
	}
	return c, true, nil
}

// GetChunksByFileID returns all chunks for a file, ordered by chunk_index.
func (s *Store) GetChunksByFileID(fileID int64) ([]SemanticChunkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT chunk_id, file_id, chunk_index, text, start_pos, end_pos, indexed_at
		FROM semantic_chunks WHERE file_id = ? ORDER BY chunk_index`, fileID)
	if err != nil {
		return nil, xerrors.StorageError("get chunks by file id", err)
	}
	defer rows.Close()

	var out []SemanticChunkRecord
	for rows.Next() {
		var c SemanticChunkRecord
		if err := rows.Scan(&c.ChunkID, &c.FileID, &c.ChunkIdx, &c.Text, &c.StartPos, &c.EndPos, &c.IndexedAt); err != nil {
			return nil, xerrors.StorageError("scan chunk row", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteChunksByFileID removes all chunks belonging to a file.
func (s *Store) DeleteChunksByFileID(fileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM semantic_chunks WHERE file_id = ?", fileID)
	return xerrors.Wrap(xerrors.CodeStorageError, err)
}

// UpsertWatchedFolder upserts a watched-folder row.
func (s *Store) UpsertWatchedFolder(f WatchedFolder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	enabled := 0
	if f.Enabled {
		enabled = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO watched_folders (path, last_scan, file_count, total_size, enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET last_scan = excluded.last_scan, file_count = excluded.file_count,
			total_size = excluded.total_size, enabled = excluded.enabled
	`, f.Path, f.LastScan, f.FileCount, f.TotalSize, enabled, f.CreatedAt)
	return xerrors.Wrap(xerrors.CodeStorageError, err)
}

// ListWatchedFolders returns all watched folders.
func (s *Store) ListWatchedFolders() ([]WatchedFolder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query("SELECT path, last_scan, file_count, total_size, enabled, created_at FROM watched_folders")
	if err != nil {
		return nil, xerrors.StorageError("list watched folders", err)
	}
	defer rows.Close()

	var out []WatchedFolder
	for rows.Next() {
		var f WatchedFolder
		var enabled int
		if err := rows.Scan(&f.Path, &f.LastScan, &f.FileCount, &f.TotalSize, &enabled, &f.CreatedAt); err != nil {
			return nil, xerrors.StorageError("scan watched folder", err)
		}
		f.Enabled = enabled != 0
		out = append(out, f)
	}
	return out, rows.Err()
}
