package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "xfinder.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFileRecordCRUD(t *testing.T) {
	s := newTestStore(t)

	rec := FileRecord{
		ID:        FileID("/docs/report.pdf"),
		Path:      "/docs/report.pdf",
		Filename:  "report.pdf",
		Extension: ".pdf",
		Size:      1024,
		Modified:  100,
		Created:   50,
		Hash:      "deadbeef",
		IndexedAt: 200,
	}
	require.NoError(t, s.UpsertFile(rec))

	got, ok, err := s.GetFileByPath(rec.Path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)

	n, err := s.CountFiles()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rec.Size = 2048
	rec.Hash = ""
	require.NoError(t, s.UpsertFile(rec))
	got, ok, err = s.GetFileByPath(rec.Path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2048), got.Size)
	assert.Equal(t, "", got.Hash)

	require.NoError(t, s.DeleteFile(rec.Path))
	_, ok, err = s.GetFileByPath(rec.Path)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.DeleteFile("/does/not/exist"))
}

func TestBatchUpsertAndDeleteFiles(t *testing.T) {
	s := newTestStore(t)

	records := make([]FileRecord, 0, 5)
	for i := 0; i < 5; i++ {
		path := filepath.Join("/batch", string(rune('a'+i))+".txt")
		records = append(records, FileRecord{
			ID:        FileID(path),
			Path:      path,
			Filename:  filepath.Base(path),
			Extension: ".txt",
			Size:      int64(i),
		})
	}
	require.NoError(t, s.BatchUpsertFiles(records))

	n, err := s.CountFiles()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	paths := make([]string, 0, len(records))
	for _, r := range records {
		paths = append(paths, r.Path)
	}
	require.NoError(t, s.BatchDeleteFiles(paths))

	n, err = s.CountFiles()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	require.NoError(t, s.BatchUpsertFiles(nil))
	require.NoError(t, s.BatchDeleteFiles(nil))
}

func TestStatsByExtension(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.BatchUpsertFiles([]FileRecord{
		{ID: FileID("/a.pdf"), Path: "/a.pdf", Extension: ".pdf", Size: 10},
		{ID: FileID("/b.pdf"), Path: "/b.pdf", Extension: ".pdf", Size: 20},
		{ID: FileID("/c.txt"), Path: "/c.txt", Extension: ".txt", Size: 5},
	}))

	stats, err := s.StatsByExtension()
	require.NoError(t, err)
	require.Len(t, stats, 2)
	byExt := map[string]ExtensionStat{}
	for _, st := range stats {
		byExt[st.Extension] = st
	}
	assert.Equal(t, int64(2), byExt[".pdf"].Count)
	assert.Equal(t, int64(30), byExt[".pdf"].TotalSize)
	assert.Equal(t, int64(1), byExt[".txt"].Count)
}

func TestFindDuplicates(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.BatchUpsertFiles([]FileRecord{
		{ID: FileID("/a.txt"), Path: "/a.txt", Hash: "same"},
		{ID: FileID("/b.txt"), Path: "/b.txt", Hash: "same"},
		{ID: FileID("/c.txt"), Path: "/c.txt", Hash: "different"},
	}))

	groups, err := s.FindDuplicates()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "same", groups[0].Hash)
	assert.Len(t, groups[0].Files, 2)
}

func TestConfigKV(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.GetConfig("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetConfig("min_ngram_size", "2"))
	v, ok, err := s.GetConfig("min_ngram_size")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", v)

	require.NoError(t, s.SetConfig("min_ngram_size", "3"))
	v, ok, err = s.GetConfig("min_ngram_size")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestSearchHistoryAndTopSearches(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AddSearchHistory(SearchHistoryEntry{Query: "invoice", ResultsCount: 3, ExecutionTimeMs: 5, Timestamp: time.Now().Unix()}))
	require.NoError(t, s.AddSearchHistory(SearchHistoryEntry{Query: "invoice", ResultsCount: 2, ExecutionTimeMs: 4, Timestamp: time.Now().Unix()}))
	require.NoError(t, s.AddSearchHistory(SearchHistoryEntry{Query: "contract", ResultsCount: 1, ExecutionTimeMs: 2, Timestamp: time.Now().Unix()}))

	top, err := s.GetTopSearches(10)
	require.NoError(t, err)
	require.NotEmpty(t, top)
	assert.Equal(t, "invoice", top[0].Query)
}

func TestErrorLog(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AddErrorLog(ErrorLogEntry{FilePath: "/bad.pdf", ErrorType: "extract", Message: "corrupt stream", Timestamp: time.Now().Unix()}))
	require.NoError(t, s.AddErrorLog(ErrorLogEntry{ErrorType: "hash", Message: "permission denied", Timestamp: time.Now().Unix()}))

	errs, err := s.GetRecentErrors(10)
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, "hash", errs[0].ErrorType)
	assert.Equal(t, "", errs[0].FilePath)
}

func TestCleanupOldLogs(t *testing.T) {
	s := newTestStore(t)

	old := time.Now().Add(-40 * 24 * time.Hour).Unix()
	recent := time.Now().Unix()
	require.NoError(t, s.AddSearchHistory(SearchHistoryEntry{Query: "stale", Timestamp: old}))
	require.NoError(t, s.AddSearchHistory(SearchHistoryEntry{Query: "fresh", Timestamp: recent}))
	require.NoError(t, s.AddErrorLog(ErrorLogEntry{ErrorType: "stale", Timestamp: old}))
	require.NoError(t, s.AddErrorLog(ErrorLogEntry{ErrorType: "fresh", Timestamp: recent}))

	require.NoError(t, s.CleanupOldLogs())

	searches, err := s.GetTopSearches(10)
	require.NoError(t, err)
	for _, e := range searches {
		assert.NotEqual(t, "stale", e.Query)
	}

	errs, err := s.GetRecentErrors(10)
	require.NoError(t, err)
	for _, e := range errs {
		assert.NotEqual(t, "stale", e.ErrorType)
	}
}

func TestSemanticFileMapping(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.GetPathByFileID(42)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.UpsertSemanticFileMapping(SemanticFileMapping{FileID: 42, Path: "/notes.txt", IndexedAt: 1}))
	path, ok, err := s.GetPathByFileID(42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/notes.txt", path)

	require.NoError(t, s.UpsertSemanticFileMapping(SemanticFileMapping{FileID: 42, Path: "/renamed.txt", IndexedAt: 2}))
	path, ok, err = s.GetPathByFileID(42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/renamed.txt", path)

	require.NoError(t, s.DeleteSemanticFileMapping(42))
	_, ok, err = s.GetPathByFileID(42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSemanticChunksCRUD(t *testing.T) {
	s := newTestStore(t)

	var fileID int64 = 7
	chunkID0, err := EncodeChunkID(fileID, 0)
	require.NoError(t, err)
	chunkID1, err := EncodeChunkID(fileID, 1)
	require.NoError(t, err)

	require.NoError(t, s.InsertSemanticChunk(SemanticChunkRecord{ChunkID: chunkID0, FileID: fileID, ChunkIdx: 0, Text: "first chunk", StartPos: 0, EndPos: 11}))
	require.NoError(t, s.InsertSemanticChunk(SemanticChunkRecord{ChunkID: chunkID1, FileID: fileID, ChunkIdx: 1, Text: "second chunk", StartPos: 12, EndPos: 24}))

	chunk, ok, err := s.GetChunkByID(chunkID0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first chunk", chunk.Text)

	chunks, err := s.GetChunksByFileID(fileID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].ChunkIdx)
	assert.Equal(t, 1, chunks[1].ChunkIdx)

	require.NoError(t, s.DeleteChunksByFileID(fileID))
	chunks, err = s.GetChunksByFileID(fileID)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestWatchedFoldersCRUD(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertWatchedFolder(WatchedFolder{Path: "/docs", LastScan: 1, FileCount: 3, TotalSize: 300, Enabled: true, CreatedAt: 0}))
	require.NoError(t, s.UpsertWatchedFolder(WatchedFolder{Path: "/photos", LastScan: 1, FileCount: 10, TotalSize: 1000, Enabled: false, CreatedAt: 0}))

	folders, err := s.ListWatchedFolders()
	require.NoError(t, err)
	require.Len(t, folders, 2)

	require.NoError(t, s.UpsertWatchedFolder(WatchedFolder{Path: "/docs", LastScan: 2, FileCount: 5, TotalSize: 500, Enabled: true, CreatedAt: 0}))
	folders, err = s.ListWatchedFolders()
	require.NoError(t, err)
	var docs WatchedFolder
	for _, f := range folders {
		if f.Path == "/docs" {
			docs = f
		}
	}
	assert.Equal(t, int64(5), docs.FileCount)
}
