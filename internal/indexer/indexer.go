// Package indexer implements the indexer worker (C8): a cancelable,
// pausable background walk that scans, hashes, and indexes a root,
// reporting progress over a channel. Grounded on the teacher's
// internal/async.BackgroundIndexer lifecycle (start/stop/wait, a lock
// file guarding against a second run) and internal/async.IndexProgress's
// snapshot/update pattern, adapted to end with a real Done bool field
// instead of relying on a magic completion string (spec.md §9 REDESIGN
// FLAG).
package indexer

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/xfinder/xfinder/internal/exclude"
	"github.com/xfinder/xfinder/internal/hash"
	"github.com/xfinder/xfinder/internal/index"
	"github.com/xfinder/xfinder/internal/scanner"
	"github.com/xfinder/xfinder/internal/store"
)

// yieldEvery is how many files the indexer processes between cooperative
// pause/cancel checks (spec.md §4.8).
const yieldEvery = 1000

// hashWorkers bounds the fan-out of C3 hashing behind the scan, since
// hashing is the CPU/IO-bound step of a run. Writes to C5/C4 stay on a
// single goroutine below, so the single-writer invariant holds regardless
// of how many files are being hashed concurrently.
const hashWorkers = 4

// metaBatchSize is how many FileRecords accumulate before a flush through
// store.BatchUpsertFiles (spec.md §4.8 step 4; §4.4 requires batched
// writes to be at least 50x faster than per-row upserts).
const metaBatchSize = 5000

// pausePollInterval is how long the indexer sleeps between checks while
// paused (spec.md §4.8: "sleeps roughly 100ms while paused").
const pausePollInterval = 100 * time.Millisecond

// HashMode selects between the fast (first-MiB) and full content hash.
type HashMode int

const (
	HashFast HashMode = iota
	HashFull
)

// Config configures one indexing run.
type Config struct {
	// Roots lists every scan root for this run (spec.md §6's scan_paths).
	// A single-root caller just passes a one-element slice.
	Roots    []string
	Policy   exclude.Policy
	HashMode HashMode
	// MaxFiles bounds the total number of files indexed across all roots;
	// scanner.NoFileLimit means unlimited. It is split evenly across Roots
	// (spec.md §4.8 step 3: per_root = total_budget / max(1, roots.len())).
	MaxFiles int
}

// Progress is a point-in-time snapshot of an indexing run. Done is a real
// boolean, not a sentinel value embedded in another field.
type Progress struct {
	// RunID identifies one Run call, for correlating progress snapshots
	// and log lines across a single indexing pass.
	RunID         string
	FilesScanned  int
	FilesIndexed  int
	FilesSkipped  int
	Errors        int
	ElapsedMillis int64
	Done          bool
	Canceled      bool
	Err           error
}

// Indexer runs one indexing pass with pause/resume/cancel support and a
// progress stream.
type Indexer struct {
	idx  *index.Index
	meta *store.Store

	paused   atomic.Bool
	canceled atomic.Bool
	running  atomic.Bool

	mu       sync.Mutex
	progress Progress
	progCh   chan Progress
	doneCh   chan struct{}
	start    time.Time
}

// New builds an Indexer bound to idx and meta.
func New(idx *index.Index, meta *store.Store) *Indexer {
	return &Indexer{
		idx:    idx,
		meta:   meta,
		progCh: make(chan Progress, 64),
		doneCh: make(chan struct{}),
	}
}

// ProgressStream returns a stream of progress snapshots. The channel is closed
// when the run finishes (successfully, canceled, or with an error).
func (ix *Indexer) ProgressStream() <-chan Progress {
	return ix.progCh
}

// Pause cooperatively pauses the run. Safe to call at any time.
func (ix *Indexer) Pause() { ix.paused.Store(true) }

// Resume resumes a paused run.
func (ix *Indexer) Resume() { ix.paused.Store(false) }

// Cancel requests the run to stop. The run observes this at its next
// yield point and finishes with Progress.Canceled set.
func (ix *Indexer) Cancel() { ix.canceled.Store(true) }

// IsRunning reports whether a run is currently in progress.
func (ix *Indexer) IsRunning() bool { return ix.running.Load() }

// Wait blocks until the current run completes.
func (ix *Indexer) Wait() { <-ix.doneCh }

// Run executes one indexing pass over cfg.Roots. It is not safe to call
// concurrently with another Run on the same Indexer.
func (ix *Indexer) Run(ctx context.Context, cfg Config) {
	idx := ix.idx
	meta := ix.meta
	ix.running.Store(true)
	ix.canceled.Store(false)
	ix.paused.Store(false)
	ix.start = time.Now()

	ix.mu.Lock()
	ix.progress = Progress{RunID: uuid.NewString()}
	ix.mu.Unlock()

	defer func() {
		ix.running.Store(false)
		close(ix.progCh)
		close(ix.doneCh)
	}()

	roots := cfg.Roots
	if len(roots) == 0 {
		ix.finish(Progress{Done: true})
		return
	}
	perRoot := cfg.MaxFiles
	if perRoot >= 0 {
		perRoot /= len(roots)
	}

	w, err := idx.NewWriter()
	if err != nil {
		ix.finish(Progress{Err: err, Done: true})
		return
	}
	defer w.Close()

	pending := make([]store.FileRecord, 0, metaBatchSize)
	flushPending := func() {
		if len(pending) == 0 {
			return
		}
		if err := meta.BatchUpsertFiles(pending); err != nil {
			ix.mu.Lock()
			ix.progress.Errors += len(pending)
			ix.mu.Unlock()
		}
		pending = pending[:0]
	}

	var processed int
	for _, root := range roots {
		s := scanner.New(cfg.Policy)
		results := s.Scan(ctx, root, perRoot)
		hashed := ix.fanOutHashing(ctx, results, cfg.HashMode)

		for h := range hashed {
			if h.scanErr != nil {
				ix.mu.Lock()
				ix.progress.Errors++
				ix.mu.Unlock()
				continue
			}

			processed++
			if processed%yieldEvery == 0 {
				if ix.canceled.Load() {
					flushPending()
					_ = w.Commit()
					ix.finish(Progress{Canceled: true, Done: true})
					return
				}
				for ix.paused.Load() {
					time.Sleep(pausePollInterval)
					if ix.canceled.Load() {
						flushPending()
						_ = w.Commit()
						ix.finish(Progress{Canceled: true, Done: true})
						return
					}
				}
				if w.ShouldFlush() {
					flushPending()
					if err := w.Commit(); err != nil {
						ix.finish(Progress{Err: err, Done: true})
						return
					}
				}
				ix.emitProgress()
			}

			f := h.file
			if err := w.Add(f.Path, f.Name); err != nil {
				ix.mu.Lock()
				ix.progress.Errors++
				ix.mu.Unlock()
				continue
			}

			pending = append(pending, store.FileRecord{
				ID:        store.FileID(f.Path),
				Path:      f.Path,
				Filename:  f.Name,
				Extension: filepath.Ext(f.Name),
				Size:      f.Size,
				Modified:  f.ModTime / int64(time.Second),
				Hash:      h.hash,
				IndexedAt: time.Now().Unix(),
			})
			_ = h.hashErr // a failed hash leaves Hash empty; not fatal to indexing
			if len(pending) >= metaBatchSize {
				flushPending()
			}

			ix.mu.Lock()
			ix.progress.FilesScanned++
			ix.progress.FilesIndexed++
			ix.mu.Unlock()
		}
	}

	flushPending()
	if err := w.Commit(); err != nil {
		ix.finish(Progress{Err: err, Done: true})
		return
	}
	ix.finish(Progress{Done: true})
}

// hashedResult pairs one scanned file with its content hash, computed by
// one of fanOutHashing's worker goroutines.
type hashedResult struct {
	file    *scanner.FileInfo
	hash    string
	hashErr error
	scanErr error
}

// hashFileWorker returns one of fanOutHashing's worker functions: it hashes
// each scanned file it receives and passes scan errors through unchanged.
func (ix *Indexer) hashFileWorker(results <-chan scanner.Result, out chan<- hashedResult, mode HashMode) func() error {
	return func() error {
		for r := range results {
			if r.Error != nil {
				out <- hashedResult{scanErr: r.Error}
				continue
			}
			h, err := ix.hashFile(r.File.Path, mode)
			out <- hashedResult{file: r.File, hash: h, hashErr: err}
		}
		return nil
	}
}

// fanOutHashing runs hashWorkers goroutines over results, each computing
// C3's content hash for the files it receives, and returns a single
// channel of hashedResult in no particular order. The caller still
// performs all C4/C5 writes on its own goroutine, so C5 keeps its single
// writer regardless of how many files are hashed in parallel.
func (ix *Indexer) fanOutHashing(ctx context.Context, results <-chan scanner.Result, mode HashMode) <-chan hashedResult {
	out := make(chan hashedResult, 64)
	g, _ := errgroup.WithContext(ctx)
	for i := 0; i < hashWorkers; i++ {
		g.Go(ix.hashFileWorker(results, out, mode))
	}
	go func() {
		_ = g.Wait()
		close(out)
	}()
	return out
}

func (ix *Indexer) hashFile(path string, mode HashMode) (string, error) {
	if mode == HashFull {
		return hash.Full(path)
	}
	return hash.Fast(path)
}

func (ix *Indexer) emitProgress() {
	ix.mu.Lock()
	p := ix.progress
	ix.mu.Unlock()
	p.ElapsedMillis = time.Since(ix.start).Milliseconds()
	select {
	case ix.progCh <- p:
	default:
	}
}

func (ix *Indexer) finish(final Progress) {
	ix.mu.Lock()
	final.RunID = ix.progress.RunID
	final.FilesScanned = ix.progress.FilesScanned
	final.FilesIndexed = ix.progress.FilesIndexed
	final.FilesSkipped = ix.progress.FilesSkipped
	final.Errors = ix.progress.Errors
	ix.mu.Unlock()
	final.ElapsedMillis = time.Since(ix.start).Milliseconds()
	select {
	case ix.progCh <- final:
	default:
	}
}

