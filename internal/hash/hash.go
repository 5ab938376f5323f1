// Package hash implements the content hasher (C3): full and fast-prefix
// content fingerprints used for change detection and duplicate grouping.
package hash

import (
	"encoding/hex"
	"io"
	"os"

	"lukechampine.com/blake3"

	"github.com/xfinder/xfinder/internal/xerrors"
)

// chunkSize bounds each read to ≤1 MiB, per spec.md §4.3.
const chunkSize = 1 << 20

// FastPrefixBytes is the maximum number of leading bytes hashed by Fast.
const FastPrefixBytes = 1 << 20

// Full streams the entire file in ≤1 MiB chunks and returns its BLAKE3
// digest rendered as 64 lowercase hex characters.
func Full(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", xerrors.HashUnavailable(path, err)
	}
	defer f.Close()

	h := blake3.New(32, nil)
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", xerrors.HashUnavailable(path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Fast hashes only the first ≤1 MiB of the file. Used by change detection
// (spec.md §4.7): collisions under truncation are an accepted cost of speed.
func Fast(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", xerrors.HashUnavailable(path, err)
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.CopyN(h, f, FastPrefixBytes); err != nil && err != io.EOF {
		return "", xerrors.HashUnavailable(path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
