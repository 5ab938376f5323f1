// Package exclude implements the exclusion filter (C1): a pure function
// deciding whether a path should be included in scanning, indexing, and
// watch-event handling.
package exclude

import (
	"path/filepath"
	"runtime"
	"strings"
)

// Policy is the three-list exclusion policy from spec.md §4.1.
type Policy struct {
	// Extensions are leading-dot, lowercase-compared suffixes, e.g. ".log".
	Extensions []string
	// Patterns are substrings matched against the full path and the filename.
	Patterns []string
	// Dirs are directory-prefix strings matched against the absolute path
	// and against any interior path segment.
	Dirs []string
}

// caseInsensitiveCompare is true on platforms where directory/pattern
// comparison should ignore case (spec.md §4.1: "case-insensitive on
// Windows").
var caseInsensitiveCompare = runtime.GOOS == "windows"

// Included reports whether path (with leaf filename) passes the policy.
// It is a pure function: no I/O, no global state beyond GOOS detection.
func Included(path, filename string, policy Policy) bool {
	return !excluded(path, filename, policy)
}

func excluded(path, filename string, policy Policy) bool {
	normPath := filepath.ToSlash(filepath.Clean(path))
	cmpPath := normPath
	cmpFilename := filename
	if caseInsensitiveCompare {
		cmpPath = strings.ToLower(cmpPath)
		cmpFilename = strings.ToLower(cmpFilename)
	}

	// (i) directory-prefix match against the absolute path or any interior segment.
	segments := strings.Split(normPath, "/")
	for _, dir := range policy.Dirs {
		cmpDir := dir
		if caseInsensitiveCompare {
			cmpDir = strings.ToLower(cmpDir)
		}
		cmpDir = strings.TrimSuffix(filepath.ToSlash(cmpDir), "/")
		if cmpDir == "" {
			continue
		}
		if strings.HasPrefix(cmpPath, cmpDir) {
			return true
		}
		for _, seg := range segments {
			s := seg
			if caseInsensitiveCompare {
				s = strings.ToLower(s)
			}
			if s == cmpDir || s == filepath.Base(cmpDir) {
				return true
			}
		}
	}

	// (ii) extension match, case-insensitive, leading dot.
	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" {
		for _, e := range policy.Extensions {
			if strings.ToLower(e) == ext {
				return true
			}
		}
	}

	// (iii) substring pattern match against full path or filename.
	for _, pattern := range policy.Patterns {
		p := pattern
		if caseInsensitiveCompare {
			p = strings.ToLower(p)
		}
		if p == "" {
			continue
		}
		if strings.Contains(cmpPath, p) || strings.Contains(cmpFilename, p) {
			return true
		}
	}

	return false
}
