package exclude

import "testing"

func TestIncludedNoPolicy(t *testing.T) {
	if !Included("/home/u/readme.md", "readme.md", Policy{}) {
		t.Fatal("expected inclusion with empty policy")
	}
}

func TestExcludedByExtension(t *testing.T) {
	p := Policy{Extensions: []string{".LOG"}}
	if Included("/var/log/app.log", "app.log", p) {
		t.Fatal("expected exclusion by extension (case-insensitive)")
	}
}

func TestExcludedByPattern(t *testing.T) {
	p := Policy{Patterns: []string{"node_modules"}}
	if Included("/proj/node_modules/pkg/index.js", "index.js", p) {
		t.Fatal("expected exclusion by pattern match on path")
	}
}

func TestExcludedByPatternOnFilename(t *testing.T) {
	p := Policy{Patterns: []string{"~backup"}}
	if Included("/proj/file~backup.txt", "file~backup.txt", p) {
		t.Fatal("expected exclusion by pattern match on filename")
	}
}

func TestExcludedByDirInteriorSegment(t *testing.T) {
	p := Policy{Dirs: []string{".git"}}
	if Included("/proj/.git/HEAD", "HEAD", p) {
		t.Fatal("expected exclusion by interior directory segment")
	}
}

func TestExcludedByDirPrefix(t *testing.T) {
	p := Policy{Dirs: []string{"/proj/build"}}
	if Included("/proj/build/out.o", "out.o", p) {
		t.Fatal("expected exclusion by absolute directory prefix")
	}
}

func TestIncludedWhenNoMatch(t *testing.T) {
	p := Policy{
		Extensions: []string{".tmp"},
		Patterns:   []string{"cache"},
		Dirs:       []string{"node_modules"},
	}
	if !Included("/proj/src/main.go", "main.go", p) {
		t.Fatal("expected inclusion when nothing matches")
	}
}
