// Package apply implements the event applier (C7): it turns a batch of
// watcher.FileEvent values into writes against the inverted index and the
// metadata store. Grounded on original_source/src/search/file_watcher.rs's
// apply_events_to_index, generalized from a single-process match over four
// event kinds into a batched applier over one index.Writer per Apply call.
package apply

import (
	"os"
	"path/filepath"
	"time"

	"github.com/xfinder/xfinder/internal/exclude"
	"github.com/xfinder/xfinder/internal/hash"
	"github.com/xfinder/xfinder/internal/index"
	"github.com/xfinder/xfinder/internal/store"
	"github.com/xfinder/xfinder/internal/watcher"
)

// Applier wires a watcher's event batches into the index and metadata
// store under a shared exclusion policy.
type Applier struct {
	idx    *index.Index
	meta   *store.Store
	policy exclude.Policy
}

// New builds an Applier.
func New(idx *index.Index, meta *store.Store, policy exclude.Policy) *Applier {
	return &Applier{idx: idx, meta: meta, policy: policy}
}

// Stats summarizes one Apply call.
type Stats struct {
	Applied int
	Skipped int
	Errors  int
}

// Apply processes one batch of events within a single index writer and
// commit, per spec.md §4.7.
func (a *Applier) Apply(events []watcher.FileEvent) (Stats, error) {
	var stats Stats
	if len(events) == 0 {
		return stats, nil
	}

	w, err := a.idx.NewWriter()
	if err != nil {
		return stats, err
	}
	defer w.Close()

	for _, ev := range events {
		skipped, err := a.applyOne(w, ev)
		if err != nil {
			stats.Errors++
			continue
		}
		if skipped {
			stats.Skipped++
			continue
		}
		stats.Applied++
	}

	if err := w.Commit(); err != nil {
		return stats, err
	}
	return stats, nil
}

// applyOne applies one event and reports whether it was a no-op skip
// (e.g. an unchanged Modified event) rather than a real write.
func (a *Applier) applyOne(w *index.Writer, ev watcher.FileEvent) (bool, error) {
	switch ev.Operation {
	case watcher.OpCreate:
		return false, a.applyCreate(w, ev.Path)

	case watcher.OpModify:
		return a.applyModify(w, ev.Path)

	case watcher.OpDelete:
		// Always delete, even if the path would now be excluded: it may
		// have been indexed before the policy changed.
		if err := w.DeleteByPath(ev.Path); err != nil {
			return false, err
		}
		return false, a.meta.DeleteFile(ev.Path)

	case watcher.OpRename:
		return false, a.applyRename(w, ev.OldPath, ev.Path)
	}
	return false, nil
}

func (a *Applier) applyCreate(w *index.Writer, path string) error {
	filename := filepath.Base(path)
	if !exclude.Included(path, filename, a.policy) {
		return nil
	}
	if err := w.Add(path, filename); err != nil {
		return err
	}
	return a.upsertMetadata(path, filename)
}

// applyModify computes hash_fast(path) and compares it against the
// file's stored hash; if unchanged, the index and store are left alone
// and the event is reported as skipped (spec.md §4.7).
func (a *Applier) applyModify(w *index.Writer, path string) (bool, error) {
	filename := filepath.Base(path)
	if !exclude.Included(path, filename, a.policy) {
		// Now excluded: remove from both the index and the store.
		if err := w.DeleteByPath(path); err != nil {
			return false, err
		}
		return false, a.meta.DeleteFile(path)
	}

	newHash, hashErr := hash.Fast(path)
	if hashErr == nil {
		if existing, ok, err := a.meta.GetFileByPath(path); err == nil && ok && existing.Hash == newHash {
			return true, nil
		}
	}

	if err := w.Update(path, filename); err != nil {
		return false, err
	}
	return false, a.upsertMetadataWithHash(path, filename, newHash)
}

func (a *Applier) applyRename(w *index.Writer, from, to string) error {
	filename := filepath.Base(to)
	if !exclude.Included(to, filename, a.policy) {
		// Renamed into exclusion: drop the old entry entirely.
		if err := w.DeleteByPath(from); err != nil {
			return err
		}
		return a.meta.DeleteFile(from)
	}
	if err := w.UpdatePath(from, to, filename); err != nil {
		return err
	}
	if err := a.meta.DeleteFile(from); err != nil {
		return err
	}
	return a.upsertMetadata(to, filename)
}

func (a *Applier) upsertMetadata(path, filename string) error {
	fastHash, _ := hash.Fast(path)
	return a.upsertMetadataWithHash(path, filename, fastHash)
}

func (a *Applier) upsertMetadataWithHash(path, filename, fastHash string) error {
	info, err := os.Stat(path)
	if err != nil {
		// The file may have already disappeared between the event firing
		// and the applier running; that is not a hard failure here, the
		// next watcher cycle will reconcile it.
		return nil
	}

	rec := store.FileRecord{
		ID:        store.FileID(path),
		Path:      path,
		Filename:  filename,
		Extension: filepath.Ext(filename),
		Size:      info.Size(),
		Modified:  info.ModTime().Unix(),
		Hash:      fastHash,
		IndexedAt: time.Now().Unix(),
	}
	return a.meta.UpsertFile(rec)
}
