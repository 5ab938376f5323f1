package store

import "github.com/xfinder/xfinder/internal/xerrors"

// ErrTooManyChunks is returned by EncodeChunkID when chunkIndex would
// overflow the per-file budget. spec.md §9 flags the present-source
// behavior (silent overflow) as a defect; this implementation refuses
// instead, per the REDESIGN FLAG.
var ErrTooManyChunks = xerrors.New(xerrors.CodeStorageError, "file has reached the maximum of 1,000,000 chunks", nil)

// EncodeChunkID derives chunk_id = fileID*1e6 + chunkIndex. It fails rather
// than silently overflowing when chunkIndex is out of range.
func EncodeChunkID(fileID int64, chunkIndex int) (int64, error) {
	if chunkIndex < 0 || chunkIndex >= MaxChunksPerFile {
		return 0, ErrTooManyChunks
	}
	return fileID*MaxChunksPerFile + int64(chunkIndex), nil
}

// DecodeChunkID is the inverse of EncodeChunkID.
func DecodeChunkID(chunkID int64) (fileID int64, chunkIndex int) {
	fileID = chunkID / MaxChunksPerFile
	chunkIndex = int(chunkID % MaxChunksPerFile)
	return
}
