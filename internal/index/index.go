// Package index implements the inverted index (C5): schema, n-gram
// tokenizer, writer/reader lifecycle, and query execution over filenames
// and paths. Backed by github.com/blevesearch/bleve/v2, grounded on the
// teacher's internal/store/bm25.go custom-analyzer pattern and on
// original_source/src/search/tantivy_index.rs for exact semantics.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/xfinder/xfinder/internal/xerrors"
)

const (
	fieldPath     = "path"
	fieldFilename = "filename"

	// writerBufferBytes mirrors the 50 MiB writer buffer from spec.md §4.5
	// and the original Tantivy source (a literal 50_000_000-byte buffer).
	// Bleve does not expose a writer buffer knob directly; this constant
	// instead sizes the batch threshold at which Writer.ShouldFlush tells
	// its caller to commit, keeping a single writer's resident buffer in the same
	// neighborhood.
	writerBufferBytes = 50_000_000
)

// document is the stored shape of one IndexedDocument (spec.md §3).
type document struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

// Options configures Open's n-gram bounds.
type Options struct {
	MinNgram int
	MaxNgram int
}

// DefaultOptions matches spec.md §4.5's typical defaults.
func DefaultOptions() Options {
	return Options{MinNgram: 2, MaxNgram: 20}
}

// Index is the C5 inverted index: one bleve.Index bound to a directory,
// with exactly one live writer at a time (enforced by writing, not mu —
// mu only guards bi/closed for the duration of one Commit or Close call).
type Index struct {
	mu      sync.Mutex
	writing atomic.Bool
	bi      bleve.Index
	dir     string
	options Options
	closed  bool
}

// Open opens or creates the index in dir. On open it reads the existing
// schema if present; otherwise it builds the schema from options. The
// n-gram tokenizer is (re-)registered by name before any search or write,
// since it is not persisted with the index (spec.md §4.5).
func Open(dir string, options Options) (*Index, error) {
	if options.MinNgram <= 0 {
		options = DefaultOptions()
	}
	if err := registerNgramTokenizer(options.MinNgram, options.MaxNgram); err != nil {
		return nil, xerrors.IndexCorrupt("register n-gram tokenizer", err)
	}

	im, err := buildMapping()
	if err != nil {
		return nil, xerrors.IndexCorrupt("build index mapping", err)
	}

	var bi bleve.Index
	if _, statErr := os.Stat(dir); os.IsNotExist(statErr) {
		if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
			return nil, xerrors.IoError("create index parent directory", err)
		}
		bi, err = bleve.New(dir, im)
	} else {
		if validErr := validateIntegrity(dir); validErr != nil {
			return nil, xerrors.IndexCorrupt("index integrity check failed", validErr)
		}
		bi, err = bleve.Open(dir)
		if err != nil && isCorruptionError(err) {
			return nil, xerrors.IndexCorrupt("open index", err)
		}
	}
	if err != nil {
		return nil, xerrors.IndexCorrupt("open or create index", err)
	}

	return &Index{bi: bi, dir: dir, options: options}, nil
}

func buildMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	if err := im.AddCustomAnalyzer(ngramAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": ngramTokenizerName,
		"token_filters": []string{
			lowercase.Name,
		},
	}); err != nil {
		return nil, fmt.Errorf("add ngram analyzer: %w", err)
	}
	im.DefaultAnalyzer = ngramAnalyzerName

	docMapping := bleve.NewDocumentMapping()
	for _, field := range []string{fieldPath, fieldFilename} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = ngramAnalyzerName
		fm.Store = true
		fm.IncludeInAll = false
		docMapping.AddFieldMappingsAt(field, fm)
	}
	im.DefaultMapping = docMapping
	return im, nil
}

// validateIntegrity checks index_meta.json exists, is non-empty, and parses.
func validateIntegrity(dir string) error {
	metaPath := filepath.Join(dir, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing")
	}
	if err != nil {
		return fmt.Errorf("stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json empty")
	}
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("read index_meta.json: %w", err)
	}
	var v map[string]interface{}
	return json.Unmarshal(data, &v)
}

func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "unexpected end of JSON") ||
		strings.Contains(s, "error parsing mapping JSON") ||
		strings.Contains(s, "failed to load segment") ||
		strings.Contains(s, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// DeleteCompletely recursively removes dir. There is no in-place schema
// migration (spec.md §4.5): changing n-gram bounds requires this followed
// by a fresh Open.
func DeleteCompletely(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return xerrors.IoError("delete index directory", err)
	}
	return nil
}

// Writer is the single live writer for an Index (spec.md §4.5: "Only one
// live writer at a time"). Batched operations are buffered and published
// atomically on Commit.
type Writer struct {
	idx      *Index
	batch    *bleve.Batch
	buffered int
}

// NewWriter allocates a writer. Callers must Commit or discard it before
// requesting another; a second concurrent NewWriter is rejected rather
// than blocked, since callers (the coordinator's single-writer invariant)
// are expected never to attempt one.
func (idx *Index) NewWriter() (*Writer, error) {
	if !idx.writing.CompareAndSwap(false, true) {
		return nil, xerrors.New(xerrors.CodeIndexCorrupt, "a writer is already open on this index", nil)
	}

	idx.mu.Lock()
	closed := idx.closed
	idx.mu.Unlock()
	if closed {
		idx.writing.Store(false)
		return nil, xerrors.New(xerrors.CodeIndexCorrupt, "index is closed", nil)
	}
	return &Writer{idx: idx, batch: idx.bi.NewBatch()}, nil
}

// Add indexes (path, filename) as a new IndexedDocument.
func (w *Writer) Add(path, filename string) error {
	doc := document{Path: path, Filename: filename}
	if err := w.batch.Index(path, doc); err != nil {
		return xerrors.IndexCorrupt("add document to batch", err)
	}
	w.buffered += len(path) + len(filename)
	return nil
}

// DeleteByPath emits a delete term against the path field's id (bleve
// documents are keyed by path, so this is a direct batch delete).
func (w *Writer) DeleteByPath(path string) error {
	w.batch.Delete(path)
	return nil
}

// Update is delete + add, per spec.md §4.5.
func (w *Writer) Update(path, filename string) error {
	if err := w.DeleteByPath(path); err != nil {
		return err
	}
	return w.Add(path, filename)
}

// UpdatePath deletes the old path and adds the new one — an atomic
// delete+add within one writer+commit (spec.md §4.5, mirroring the
// original Rust source's update_file_path).
func (w *Writer) UpdatePath(oldPath, newPath, filename string) error {
	if err := w.DeleteByPath(oldPath); err != nil {
		return err
	}
	return w.Add(newPath, filename)
}

// ShouldFlush reports whether the writer's buffered batch has grown large
// enough that callers should Commit and start a fresh writer, keeping
// resident buffer size in the neighborhood of writerBufferBytes.
func (w *Writer) ShouldFlush() bool {
	return w.buffered >= writerBufferBytes
}

// Commit makes all buffered operations durable and visible to new readers.
func (w *Writer) Commit() error {
	w.idx.mu.Lock()
	defer w.idx.mu.Unlock()
	if err := w.idx.bi.Batch(w.batch); err != nil {
		return xerrors.IndexCorrupt("commit writer batch", err)
	}
	w.batch = w.idx.bi.NewBatch()
	w.buffered = 0
	return nil
}

// Close releases the writer slot without committing pending operations.
// Safe to call after Commit; idempotent.
func (w *Writer) Close() {
	w.idx.writing.Store(false)
}

// DeleteAll atomically clears the live set.
func (idx *Index) DeleteAll() error {
	ids, err := idx.AllPaths()
	if err != nil {
		return err
	}
	w, err := idx.NewWriter()
	if err != nil {
		return err
	}
	defer w.Close()
	for _, id := range ids {
		_ = w.DeleteByPath(id)
	}
	return w.Commit()
}

// AllPaths returns every live path in the index.
func (idx *Index) AllPaths() ([]string, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return nil, nil
	}
	count, err := idx.bi.DocCount()
	if err != nil {
		return nil, xerrors.IndexCorrupt("doc count", err)
	}
	if count == 0 {
		return nil, nil
	}
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)
	req.Fields = nil
	result, err := idx.bi.Search(req)
	if err != nil {
		return nil, xerrors.IndexCorrupt("list all paths", err)
	}
	out := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		out = append(out, hit.ID)
	}
	return out, nil
}

// Close closes the underlying bleve index.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return nil
	}
	idx.closed = true
	return xerrors.Wrap(xerrors.CodeIndexCorrupt, idx.bi.Close())
}
