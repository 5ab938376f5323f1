// Package coordinator implements the single top-level owner spec.md §9
// recommends: one struct holding the index handle, the metadata store
// handle, the watcher, the indexer controls, and the config, created once
// at startup and torn down once at shutdown. It is also the structural
// enforcement point for "two concurrent writers to C5 must be impossible":
// the watcher is stopped before a rebuild acquires the indexer, and a
// rebuild's writer and the event applier's writer never run at once.
// Open also takes an advisory file lock over the state directory so a
// second xfinder process can't become a second writer by accident.
package coordinator

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/xfinder/xfinder/internal/apply"
	"github.com/xfinder/xfinder/internal/config"
	"github.com/xfinder/xfinder/internal/exclude"
	"github.com/xfinder/xfinder/internal/index"
	"github.com/xfinder/xfinder/internal/indexer"
	"github.com/xfinder/xfinder/internal/query"
	"github.com/xfinder/xfinder/internal/scanner"
	"github.com/xfinder/xfinder/internal/store"
	"github.com/xfinder/xfinder/internal/watcher"
)

// indexSubdir and dbFileName name C5's and C4's storage under the state
// directory, per spec.md §6's persisted state layout.
const (
	indexSubdir  = "index"
	dbFileName   = "xfinder.db"
	lockFileName = "xfinder.lock"
)

// Coordinator owns every long-lived handle in the process.
type Coordinator struct {
	StateDir string
	Config   *config.Config

	Index *index.Index
	Meta  *store.Store

	Query *query.Service

	mu      sync.Mutex
	w       watcher.Watcher
	applier *apply.Applier
	ix      *indexer.Indexer
	lock    *flock.Flock

	cancelWatch context.CancelFunc
}

// policy converts the config's exclusion lists into an exclude.Policy.
func policy(cfg *config.Config) exclude.Policy {
	return exclude.Policy{
		Extensions: cfg.Exclusions.Extensions,
		Patterns:   cfg.Exclusions.Patterns,
		Dirs:       cfg.Exclusions.Dirs,
	}
}

// Open loads config from stateDir, opens the index and metadata store, and
// returns a ready Coordinator. It does not start the watcher; call
// StartWatching explicitly.
func Open(stateDir string) (*Coordinator, error) {
	lock := flock.New(filepath.Join(stateDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire state directory lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("state directory %s is already in use by another xfinder process", stateDir)
	}

	cfg, err := config.Load(stateDir)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("load config: %w", err)
	}

	idxOpts := index.DefaultOptions()
	idxOpts.MinNgram = cfg.Indexing.MinNgramSize
	idxOpts.MaxNgram = cfg.Indexing.MaxNgramSize

	idx, err := index.Open(filepath.Join(stateDir, indexSubdir), idxOpts)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open index: %w", err)
	}

	meta, err := store.Open(filepath.Join(stateDir, dbFileName))
	if err != nil {
		idx.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	c := &Coordinator{
		StateDir: stateDir,
		Config:   cfg,
		Index:    idx,
		Meta:     meta,
		lock:     lock,
		Query:    query.New(idx, meta),
		applier:  apply.New(idx, meta, policy(cfg)),
	}
	c.ix = indexer.New(idx, meta)
	return c, nil
}

// StartWatching starts the filesystem watcher over root and wires its
// event batches into the applier. The caller must call StopWatching (or
// Close) before starting a full rebuild, since C5's directory is
// single-writer (spec.md §5).
func (c *Coordinator) StartWatching(ctx context.Context, root string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.w != nil {
		return fmt.Errorf("watcher already running")
	}

	opts := watcher.DefaultOptions().WithDefaults()
	w, err := watcher.NewHybridWatcher(opts, policy(c.Config))
	if err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	if err := w.Start(watchCtx, root); err != nil {
		cancel()
		return err
	}
	c.w = w
	c.cancelWatch = cancel

	go c.pumpEvents(w)
	return nil
}

func (c *Coordinator) pumpEvents(w watcher.Watcher) {
	for batch := range w.Events() {
		c.mu.Lock()
		applier := c.applier
		c.mu.Unlock()
		if applier == nil {
			continue
		}
		_, _ = applier.Apply(batch)
	}
}

// StopWatching stops the watcher, if running. Safe to call when not
// running.
func (c *Coordinator) StopWatching() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w == nil {
		return nil
	}
	err := c.w.Stop()
	if c.cancelWatch != nil {
		c.cancelWatch()
	}
	c.w = nil
	c.cancelWatch = nil
	return err
}

// Indexer returns the shared indexer worker. The caller must StopWatching
// before running a full rebuild through it, to keep C5 single-writer.
func (c *Coordinator) Indexer() *indexer.Indexer {
	return c.ix
}

// Rebuild runs a full indexing pass over roots. When roots is empty, it
// falls back to the configured scan_paths (spec.md §6), dividing
// Indexing.MaxFilesToIndex evenly across them per spec.md §4.8 step 3. It
// refuses to run while the watcher is active.
func (c *Coordinator) Rebuild(ctx context.Context, roots ...string) error {
	c.mu.Lock()
	if c.w != nil {
		c.mu.Unlock()
		return fmt.Errorf("cannot rebuild while the watcher is running: call StopWatching first")
	}
	c.mu.Unlock()

	if len(roots) == 0 {
		roots = c.Config.ScanPaths
	}

	maxFiles := scanner.NoFileLimit
	if !c.Config.Indexing.NoFileLimit {
		maxFiles = c.Config.Indexing.MaxFilesToIndex
	}

	hashMode := indexer.HashFast
	c.ix.Run(ctx, indexer.Config{
		Roots:    roots,
		Policy:   policy(c.Config),
		HashMode: hashMode,
		MaxFiles: maxFiles,
	})
	return nil
}

// Close tears down every owned handle. Safe to call once.
func (c *Coordinator) Close() error {
	_ = c.StopWatching()
	var firstErr error
	if err := c.Meta.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.Index.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if c.lock != nil {
		if err := c.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
