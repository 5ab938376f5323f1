package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/xfinder/xfinder/internal/exclude"
)

// renamePairWindow is how long a bare fsnotify Rename (only the old path is
// known) waits for a matching Create before it is reported as a Remove
// instead of a Rename. fsnotify on Linux/macOS delivers Rename and Create
// as two separate events for the same logical move; pairing them here is
// this watcher's equivalent of the two-path Renamed event the original
// notify-crate source receives directly on some backends.
const renamePairWindow = 150 * time.Millisecond

// HybridWatcher implements Watcher using fsnotify as the primary mechanism
// with polling as a fallback when fsnotify fails to initialize.
type HybridWatcher struct {
	fsWatcher   *fsnotify.Watcher
	pollWatcher *PollingWatcher
	useFsnotify bool
	debouncer   *Debouncer
	policy      exclude.Policy
	events      chan []FileEvent
	errors      chan error
	stopCh      chan struct{}
	rootPath    string
	opts        Options
	mu          sync.RWMutex
	stopped     bool

	pendingRename   string
	pendingRenameAt time.Time
	renameMu        sync.Mutex

	droppedBatches atomic.Uint64
}

var _ Watcher = (*HybridWatcher)(nil)

// NewHybridWatcher creates a hybrid watcher, falling back to polling if
// fsnotify cannot be initialized.
func NewHybridWatcher(opts Options, policy exclude.Policy) (*HybridWatcher, error) {
	opts = opts.WithDefaults()

	h := &HybridWatcher{
		debouncer: NewDebouncer(opts.DebounceWindow),
		policy:    policy,
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		opts:      opts,
	}

	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		h.fsWatcher = fsw
		h.useFsnotify = true
	} else {
		h.useFsnotify = false
		h.pollWatcher = NewPollingWatcher(opts.PollInterval)
	}

	return h, nil
}

// Start begins watching path.
func (h *HybridWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	h.rootPath = absPath

	go h.forwardDebouncedEvents(ctx)

	if h.useFsnotify {
		return h.startFsnotify(ctx)
	}
	return h.startPolling(ctx)
}

func (h *HybridWatcher) startFsnotify(ctx context.Context) error {
	if err := h.addRecursive(h.rootPath); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.stopCh:
			return nil
		case event, ok := <-h.fsWatcher.Events:
			if !ok {
				return nil
			}
			h.handleFsnotifyEvent(event)
		case err, ok := <-h.fsWatcher.Errors:
			if !ok {
				return nil
			}
			h.emitError(err)
		}
	}
}

func (h *HybridWatcher) startPolling(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stopCh:
				return
			case event, ok := <-h.pollWatcher.Events():
				if !ok {
					return
				}
				if h.shouldIgnore(event.Path, event.IsDir) {
					continue
				}
				h.debouncer.Add(event)
			case err, ok := <-h.pollWatcher.Errors():
				if !ok {
					return
				}
				h.emitError(err)
			}
		}
	}()

	return h.pollWatcher.Start(ctx, h.rootPath)
}

func (h *HybridWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	isDir := false
	if info, err := os.Lstat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	if h.shouldIgnore(event.Name, isDir) {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		if isDir {
			_ = h.fsWatcher.Add(event.Name)
		}
		if from, ok := h.takePendingRename(); ok {
			h.debouncer.Add(FileEvent{
				Path:      event.Name,
				OldPath:   from,
				Operation: OpRename,
				IsDir:     isDir,
				Timestamp: time.Now(),
			})
			return
		}
		h.debouncer.Add(FileEvent{Path: event.Name, Operation: OpCreate, IsDir: isDir, Timestamp: time.Now()})

	case event.Op&fsnotify.Write != 0:
		h.debouncer.Add(FileEvent{Path: event.Name, Operation: OpModify, IsDir: isDir, Timestamp: time.Now()})

	case event.Op&fsnotify.Remove != 0:
		h.debouncer.Add(FileEvent{Path: event.Name, Operation: OpDelete, IsDir: isDir, Timestamp: time.Now()})

	case event.Op&fsnotify.Rename != 0:
		h.setPendingRename(event.Name)
		time.AfterFunc(renamePairWindow, func() {
			if from, ok := h.takePendingRenameIfMatches(event.Name); ok {
				h.debouncer.Add(FileEvent{Path: from, Operation: OpDelete, IsDir: isDir, Timestamp: time.Now()})
			}
		})

	case event.Op&fsnotify.Chmod != 0:
		// No corresponding operation in spec.md §4.6.
	}
}

func (h *HybridWatcher) setPendingRename(path string) {
	h.renameMu.Lock()
	defer h.renameMu.Unlock()
	h.pendingRename = path
	h.pendingRenameAt = time.Now()
}

// takePendingRename consumes the pending rename path if one is waiting,
// regardless of which path it was for (single in-flight rename assumed,
// matching the debounce window's short lifetime).
func (h *HybridWatcher) takePendingRename() (string, bool) {
	h.renameMu.Lock()
	defer h.renameMu.Unlock()
	if h.pendingRename == "" {
		return "", false
	}
	from := h.pendingRename
	h.pendingRename = ""
	return from, true
}

func (h *HybridWatcher) takePendingRenameIfMatches(path string) (string, bool) {
	h.renameMu.Lock()
	defer h.renameMu.Unlock()
	if h.pendingRename != path {
		return "", false
	}
	from := h.pendingRename
	h.pendingRename = ""
	return from, true
}

func (h *HybridWatcher) forwardDebouncedEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case events, ok := <-h.debouncer.Output():
			if !ok {
				return
			}
			if len(events) == 0 {
				continue
			}
			h.emitEvents(events)
		}
	}
}

func (h *HybridWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && h.shouldIgnoreDir(path) {
			return filepath.SkipDir
		}
		return h.fsWatcher.Add(path)
	})
}

func (h *HybridWatcher) shouldIgnoreDir(path string) bool {
	return !exclude.Included(path, filepath.Base(path), h.policy)
}

func (h *HybridWatcher) shouldIgnore(path string, isDir bool) bool {
	if path == h.rootPath {
		return false
	}
	return !exclude.Included(path, filepath.Base(path), h.policy)
}

func (h *HybridWatcher) emitEvents(events []FileEvent) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case h.events <- events:
	default:
		// Bounded queue is full: drop the oldest queued batch to make room,
		// per spec.md §4.6, rather than dropping the newest.
		select {
		case dropped := <-h.events:
			count := h.droppedBatches.Add(1)
			slog.Warn("event queue full, dropped oldest batch",
				slog.Int("dropped_batch_size", len(dropped)),
				slog.Uint64("total_dropped_batches", count),
			)
		default:
		}
		select {
		case h.events <- events:
		default:
		}
	}
}

// DroppedBatches returns the number of event batches dropped due to
// overflow of the bounded event queue.
func (h *HybridWatcher) DroppedBatches() uint64 {
	return h.droppedBatches.Load()
}

func (h *HybridWatcher) emitError(err error) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()
	if stopped {
		return
	}
	select {
	case h.errors <- err:
	default:
	}
}

// Stop stops the watcher and releases resources.
func (h *HybridWatcher) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return nil
	}
	h.stopped = true
	close(h.stopCh)

	h.debouncer.Stop()

	if h.useFsnotify && h.fsWatcher != nil {
		_ = h.fsWatcher.Close()
	}
	if h.pollWatcher != nil {
		_ = h.pollWatcher.Stop()
	}

	close(h.events)
	close(h.errors)
	return nil
}

// Events returns the channel of batched file events.
func (h *HybridWatcher) Events() <-chan []FileEvent {
	return h.events
}

// Errors returns the channel of non-fatal errors.
func (h *HybridWatcher) Errors() <-chan error {
	return h.errors
}

// WatcherType reports which backend is in use ("fsnotify" or "polling").
func (h *HybridWatcher) WatcherType() string {
	if h.useFsnotify {
		return "fsnotify"
	}
	return "polling"
}

// RootPath returns the path being watched.
func (h *HybridWatcher) RootPath() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rootPath
}
