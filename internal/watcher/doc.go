// Package watcher provides real-time filesystem watching with debouncing
// and exclusion-policy-aware filtering (C6).
//
// The package implements a hybrid watching strategy:
//   - Primary: fsnotify for efficient event-based watching
//   - Fallback: polling for environments where fsnotify fails (network
//     mounts, some container filesystems)
//
// Events are debounced to coalesce rapid changes, and filtered against the
// exclusion policy (internal/exclude) before being emitted.
//
// Usage:
//
//	opts := watcher.DefaultOptions()
//	w, err := watcher.NewHybridWatcher(opts, policy)
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	// Start blocks until Stop is called or ctx is canceled.
//	go func() {
//	    if err := w.Start(ctx, "/path/to/watch"); err != nil {
//	        log.Printf("watcher stopped: %v", err)
//	    }
//	}()
//
//	for batch := range w.Events() {
//	    for _, event := range batch {
//	        switch event.Operation {
//	        case watcher.OpCreate:
//	            // Handle file creation
//	        case watcher.OpModify:
//	            // Handle file modification
//	        case watcher.OpDelete:
//	            // Handle file removal
//	        case watcher.OpRename:
//	            // event.OldPath -> event.Path
//	        }
//	    }
//	}
package watcher
