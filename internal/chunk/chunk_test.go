package chunk

import (
	"strings"
	"testing"
)

func TestSplitEmptyInputYieldsZeroChunks(t *testing.T) {
	chunks := Split("", DefaultOptions())
	if len(chunks) != 0 {
		t.Fatalf("expected 0 chunks, got %d", len(chunks))
	}
	chunks = Split("   \n\t  ", DefaultOptions())
	if len(chunks) != 0 {
		t.Fatalf("expected 0 chunks for whitespace-only input, got %d", len(chunks))
	}
}

func TestSplitShortTextYieldsOneChunk(t *testing.T) {
	chunks := Split("A short sentence. Another one.", DefaultOptions())
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].ChunkIndex != 0 {
		t.Fatalf("expected chunk_index 0, got %d", chunks[0].ChunkIndex)
	}
}

func TestSplitLongTextYieldsMultipleChunksWithOverlap(t *testing.T) {
	sentence := "This is a sentence of moderate length for testing purposes. "
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString(sentence)
	}

	chunks := Split(b.String(), Options{MaxTokens: 20, OverlapTokens: 5})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Fatalf("expected dense chunk indices, chunk %d has index %d", i, c.ChunkIndex)
		}
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartPos < chunks[i-1].StartPos {
			t.Fatalf("expected monotonically non-decreasing start positions: chunk %d starts at %d, chunk %d at %d",
				i-1, chunks[i-1].StartPos, i, chunks[i].StartPos)
		}
	}
}

func TestSplitPositionsAreWithinBounds(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third one ends it!"
	chunks := Split(text, DefaultOptions())
	for _, c := range chunks {
		if c.StartPos < 0 || c.EndPos > len(text) || c.StartPos > c.EndPos {
			t.Fatalf("chunk positions out of bounds: %+v (len=%d)", c, len(text))
		}
	}
}
