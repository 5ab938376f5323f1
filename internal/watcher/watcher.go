// Package watcher implements the filesystem watcher (C6): a hybrid
// fsnotify-backed watcher with a polling fallback, debounced and emitted
// as the four event kinds spec.md §4.6 and
// original_source/src/search/file_watcher.rs's FileEvent enum define.
package watcher

import (
	"context"
	"time"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file was removed.
	OpDelete
	// OpRename indicates a file was renamed or moved.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent represents a file system event.
type FileEvent struct {
	// Path is the absolute path to the file. For renames, this is the
	// destination path.
	Path string

	// OldPath is the previous path for rename events, empty otherwise.
	OldPath string

	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Watcher defines the interface for file system watching.
type Watcher interface {
	// Start begins watching path recursively. Runs until Stop is called
	// or ctx is canceled.
	Start(ctx context.Context, path string) error

	// Stop stops the watcher and releases resources. Safe to call more
	// than once.
	Stop() error

	// Events returns a channel of debounced, batched file events. Closed
	// when the watcher stops.
	Events() <-chan []FileEvent

	// Errors returns a channel of non-fatal watcher errors. Closed when
	// the watcher stops.
	Errors() <-chan error
}

// Options configures watcher behavior.
type Options struct {
	// DebounceWindow is the coalescing window before emitting a batch.
	DebounceWindow time.Duration

	// PollInterval is the interval used by the polling fallback.
	PollInterval time.Duration

	// EventBufferSize bounds the emitted-event channel (spec.md §4.6: 1000
	// by default; overflow drops the oldest queued batch and logs it).
	EventBufferSize int
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  200 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 1000,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}
