// Package semantic orchestrates the semantic pipeline (C10): extraction,
// chunking, batch-embedding, and vector-index population, plus its
// background queue worker. Grounded on original_source/src/semantic/*.rs's
// orchestrator shape and the teacher's internal/async worker pattern
// (bounded batch accumulation with an idle-timeout flush), adapted from the
// teacher's project-wide indexing queue to this spec's
// IndexFile/IndexBatch/BuildIndex/Stop command set (spec.md §4.10).
package semantic

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xfinder/xfinder/internal/chunk"
	"github.com/xfinder/xfinder/internal/embed"
	"github.com/xfinder/xfinder/internal/extract"
	"github.com/xfinder/xfinder/internal/store"
	"github.com/xfinder/xfinder/internal/vector"
)

// FileJob names one file to be semantically indexed.
type FileJob struct {
	Path   string
	FileID int64
}

// Indexer ties extraction, chunking, embedding, and the vector store
// together for one file at a time, and owns persistence to C4.
type Indexer struct {
	embedder   embed.Embedder
	vec        *vector.Store
	meta       *store.Store
	chunkOpts  chunk.Options
	vectorPath string
}

// New builds a semantic Indexer. vectorPath is where BuildIndex persists the
// vector store.
func New(embedder embed.Embedder, vec *vector.Store, meta *store.Store, vectorPath string, chunkOpts chunk.Options) *Indexer {
	return &Indexer{embedder: embedder, vec: vec, meta: meta, chunkOpts: chunkOpts, vectorPath: vectorPath}
}

// IndexFile extracts, chunks, embeds, and records one file. Returns the
// number of chunks created. An unsupported format or empty cleaned text
// yields 0, not an error (spec.md §4.10).
func (ix *Indexer) IndexFile(ctx context.Context, job FileJob) (int, error) {
	text, err := extract.Extract(job.Path)
	if err != nil {
		return 0, err
	}
	if extract.IsUnsupportedPlaceholder(text) || text == "" {
		return 0, nil
	}

	chunks := chunk.Split(text, ix.chunkOpts)
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}

	if err := ix.meta.UpsertSemanticFileMapping(store.SemanticFileMapping{
		FileID:    job.FileID,
		Path:      job.Path,
		IndexedAt: time.Now().Unix(),
	}); err != nil {
		return 0, err
	}

	created := 0
	for i, c := range chunks {
		chunkID, err := store.EncodeChunkID(job.FileID, c.ChunkIndex)
		if err != nil {
			return created, err
		}
		if err := ix.vec.Add(chunkID, embeddings[i]); err != nil {
			return created, err
		}
		if err := ix.meta.InsertSemanticChunk(store.SemanticChunkRecord{
			ChunkID:   chunkID,
			FileID:    job.FileID,
			ChunkIdx:  c.ChunkIndex,
			Text:      c.Text,
			StartPos:  c.StartPos,
			EndPos:    c.EndPos,
			IndexedAt: time.Now().Unix(),
		}); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// BuildIndex finalizes the vector store, making it queryable.
func (ix *Indexer) BuildIndex() error {
	return ix.vec.Build(ix.vectorPath)
}

// SemanticResult is one ranked search hit, joined back to its source file.
type SemanticResult struct {
	Path     string
	ChunkID  int64
	Text     string
	Score    float32
	Distance float32
}

// Search encodes query and delegates to the vector store, then joins each
// hit's chunk back to its source path via C4.
func (ix *Indexer) Search(ctx context.Context, query string, k int) ([]SemanticResult, error) {
	embedding, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := ix.vec.Search(embedding, k)
	if err != nil {
		return nil, err
	}

	results := make([]SemanticResult, 0, len(hits))
	for _, h := range hits {
		rec, found, err := ix.meta.GetChunkByID(h.ChunkID)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		path, found, err := ix.meta.GetPathByFileID(rec.FileID)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		results = append(results, SemanticResult{
			Path: path, ChunkID: h.ChunkID, Text: rec.Text,
			Score: h.Score, Distance: h.Distance,
		})
	}
	return results, nil
}

// command kinds for the background worker's channel, per spec.md §4.10.
type commandKind int

const (
	cmdIndexFile commandKind = iota
	cmdIndexBatch
	cmdBuildIndex
	cmdStop
)

type command struct {
	kind  commandKind
	job   FileJob
	batch []FileJob
}

// Stats are the background worker's externally-readable counters.
type Stats struct {
	FilesIndexed  int64
	ChunksCreated int64
	Errors        int64
	IsIndexing    int32 // 0 or 1, read via atomic
	CurrentFile   string
}

// idleFlushTimeout forces a flush of the pending batch if the queue goes
// quiet, per spec.md §4.10.
const idleFlushTimeout = 2 * time.Second

// Worker is the semantic background indexer: it reads commands off a
// channel that buffers a single command, accumulates up to batchSize files,
// and flushes either on a full batch or after idleFlushTimeout of silence.
// The channel is not unbounded: a submitting call blocks while the worker
// is busy and one command is already waiting.
type Worker struct {
	indexer   *Indexer
	batchSize int

	cmdCh chan command
	done  chan struct{}

	filesIndexed  atomic.Int64
	chunksCreated atomic.Int64
	errors        atomic.Int64
	isIndexing    atomic.Int32
	mu            sync.RWMutex
	currentFile   string
}

// NewWorker starts no goroutine yet; call Run to start processing.
func NewWorker(indexer *Indexer, batchSize int) *Worker {
	if batchSize <= 0 {
		batchSize = embed.DefaultBatchSize
	}
	return &Worker{
		indexer:   indexer,
		batchSize: batchSize,
		cmdCh:     make(chan command, 1), // one buffered command; further sends wait for the worker
		done:      make(chan struct{}),
	}
}

// EnqueueFile submits a single file for semantic indexing.
func (w *Worker) EnqueueFile(job FileJob) { w.cmdCh <- command{kind: cmdIndexFile, job: job} }

// EnqueueBatch submits a batch of files for semantic indexing.
func (w *Worker) EnqueueBatch(jobs []FileJob) { w.cmdCh <- command{kind: cmdIndexBatch, batch: jobs} }

// RequestBuild flushes the pending batch and triggers a vector-index build.
func (w *Worker) RequestBuild() { w.cmdCh <- command{kind: cmdBuildIndex} }

// Stop drains the pending batch and exits the worker loop.
func (w *Worker) Stop() { w.cmdCh <- command{kind: cmdStop} }

// Wait blocks until the worker loop exits.
func (w *Worker) Wait() { <-w.done }

// Stats returns a snapshot of the worker's counters, safe to call from any
// goroutine.
func (w *Worker) Stats() Stats {
	w.mu.RLock()
	cur := w.currentFile
	w.mu.RUnlock()
	return Stats{
		FilesIndexed:  w.filesIndexed.Load(),
		ChunksCreated: w.chunksCreated.Load(),
		Errors:        w.errors.Load(),
		IsIndexing:    w.isIndexing.Load(),
		CurrentFile:   cur,
	}
}

// Run processes commands until Stop. It should be started with `go w.Run(ctx)`.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	var pending []FileJob
	timer := time.NewTimer(idleFlushTimeout)
	defer timer.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		w.isIndexing.Store(1)
		for _, job := range pending {
			w.mu.Lock()
			w.currentFile = job.Path
			w.mu.Unlock()

			n, err := w.indexer.IndexFile(ctx, job)
			if err != nil {
				w.errors.Add(1)
				continue
			}
			w.filesIndexed.Add(1)
			w.chunksCreated.Add(int64(n))
		}
		w.isIndexing.Store(0)
		pending = pending[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case cmd := <-w.cmdCh:
			switch cmd.kind {
			case cmdIndexFile:
				pending = append(pending, cmd.job)
				if len(pending) >= w.batchSize {
					flush()
				}
			case cmdIndexBatch:
				pending = append(pending, cmd.batch...)
				if len(pending) >= w.batchSize {
					flush()
				}
			case cmdBuildIndex:
				flush()
				if err := w.indexer.BuildIndex(); err != nil {
					w.errors.Add(1)
				}
			case cmdStop:
				flush()
				return
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(idleFlushTimeout)

		case <-timer.C:
			flush()
			timer.Reset(idleFlushTimeout)
		}
	}
}
