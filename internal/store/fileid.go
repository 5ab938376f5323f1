package store

import (
	"crypto/sha256"
	"encoding/hex"
)

// FileID derives a stable identifier for a path. The files table's primary
// key is this ID rather than the path itself. The ID is the hex of the first
// 16 bytes of the SHA-256 of the exact path string, so the same path always
// gets the same ID and paths that differ only in case get different IDs.
func FileID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:16])
}
