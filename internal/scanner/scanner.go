// Package scanner implements the file scanner (C2): a bounded,
// depth-limited directory walk that streams discovered files over a
// channel, honoring the exclusion policy (C1) and skipping symlinks.
// Grounded on the teacher's internal/scanner channel-streaming Scan
// pattern, generalized from project source discovery to whole-filesystem
// enumeration for desktop search.
package scanner

import (
	"context"
	"os"
	"path/filepath"

	"github.com/xfinder/xfinder/internal/exclude"
	"github.com/xfinder/xfinder/internal/xerrors"
)

// MaxDepth bounds recursion under each root, per spec.md §4.2 (protects
// against pathological filesystem structures and symlink cycles missed by
// the symlink skip below).
const MaxDepth = 5

// Result is one discovered file or a non-fatal walk error, streamed over
// Scan's channel.
type Result struct {
	File  *FileInfo
	Error error
}

// FileInfo is the minimal shape scanner reports; callers hash and persist
// it into a full FileRecord (spec.md §3).
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime int64
}

// Scanner walks one or more roots applying an exclusion Policy.
type Scanner struct {
	policy exclude.Policy
}

// New builds a Scanner bound to policy.
func New(policy exclude.Policy) *Scanner {
	return &Scanner{policy: policy}
}

// NoFileLimit tells Scan not to cap the number of files it yields.
const NoFileLimit = -1

// Scan streams included files under root, starting a background goroutine
// that closes the returned channel when the walk finishes, ctx is
// canceled, or maxFiles files have been yielded. maxFiles == 0 yields
// nothing at all (spec.md §4.2's scan(root, max_files, ...) boundary);
// maxFiles < 0 (NoFileLimit) yields every included file.
func (s *Scanner) Scan(ctx context.Context, root string, maxFiles int) <-chan Result {
	out := make(chan Result, 64)
	go func() {
		defer close(out)
		if maxFiles == 0 {
			return
		}
		absRoot, err := filepath.Abs(root)
		if err != nil {
			out <- Result{Error: xerrors.PathNotFound(root, err)}
			return
		}
		yielded := 0
		s.walk(ctx, absRoot, 0, maxFiles, &yielded, out)
	}()
	return out
}

func (s *Scanner) walk(ctx context.Context, dir string, depth, maxFiles int, yielded *int, out chan<- Result) {
	if depth > MaxDepth {
		return
	}
	select {
	case <-ctx.Done():
		return
	default:
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		select {
		case out <- Result{Error: xerrors.IoError("read directory "+dir, err)}:
		case <-ctx.Done():
		}
		return
	}

	for _, entry := range entries {
		if maxFiles >= 0 && *yielded >= maxFiles {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		fullPath := filepath.Join(dir, entry.Name())

		if entry.Type()&os.ModeSymlink != 0 {
			// Never follow symlinks: avoids cycles and double-counting
			// (spec.md §4.2).
			continue
		}

		if !exclude.Included(fullPath, entry.Name(), s.policy) {
			continue
		}

		if entry.IsDir() {
			s.walk(ctx, fullPath, depth+1, maxFiles, yielded, out)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			select {
			case out <- Result{Error: xerrors.IoError("stat "+fullPath, err)}:
			case <-ctx.Done():
				return
			}
			continue
		}
		if info.Mode()&os.ModeSymlink != 0 {
			continue
		}

		fi := &FileInfo{
			Path:    fullPath,
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime().UnixNano(),
		}
		select {
		case out <- Result{File: fi}:
			*yielded++
		case <-ctx.Done():
			return
		}
	}
}
