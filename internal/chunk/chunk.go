// Package chunk implements the semantic pipeline's text chunker (C10): a
// sentence-heuristic splitter with token-budgeted overlap, grounded on the
// teacher's internal/chunk package's chunk-emission shape (Chunk struct with
// text/index/start/end fields) but replacing its tree-sitter/AST chunking
// with the spec's character-approximated sentence accumulation, since this
// system chunks prose and document text, not source code (spec.md §4.10).
package chunk

import (
	"strings"
)

// charsPerToken approximates tokens as 4 characters, per spec.md §4.10.
const charsPerToken = 4

// Chunk is one emitted slice of a document's extracted text, the unit of
// embedding.
type Chunk struct {
	Text       string
	ChunkIndex int
	StartPos   int
	EndPos     int
}

// Options configures the chunker's size and overlap in tokens.
type Options struct {
	MaxTokens     int
	OverlapTokens int
}

// DefaultOptions returns sane defaults: roughly one paragraph per chunk with
// a one-sentence overlap.
func DefaultOptions() Options {
	return Options{MaxTokens: 256, OverlapTokens: 32}
}

// sentence is one heuristically-split sentence with its byte offsets into
// the original text.
type sentence struct {
	text  string
	start int
	end   int
}

// Split breaks text into sentences on '.', '?', '!' followed by whitespace
// or end-of-string, then greedily accumulates sentences into chunks bounded
// by MaxTokens*charsPerToken characters, seeding each next chunk with the
// last OverlapTokens*charsPerToken characters of the previous one.
func Split(text string, opts Options) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	maxChars := opts.MaxTokens * charsPerToken
	overlapChars := opts.OverlapTokens * charsPerToken
	if maxChars <= 0 {
		maxChars = DefaultOptions().MaxTokens * charsPerToken
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	var cur strings.Builder
	curStart := sentences[0].start
	curEnd := sentences[0].start

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Text:       cur.String(),
			ChunkIndex: len(chunks),
			StartPos:   curStart,
			EndPos:     curEnd,
		})
	}

	for _, s := range sentences {
		if cur.Len() > 0 && cur.Len()+len(s.text) > maxChars {
			flush()

			overlap := lastNChars(cur.String(), overlapChars)
			cur.Reset()
			cur.WriteString(overlap)
			curStart = curEnd - len(overlap)
			if curStart < 0 {
				curStart = 0
			}
		}
		if cur.Len() == 0 {
			curStart = s.start
		}
		cur.WriteString(s.text)
		curEnd = s.end
	}
	flush()

	return chunks
}

// splitSentences performs a heuristic split on '.', '?', '!' followed by
// whitespace or end-of-string.
func splitSentences(text string) []sentence {
	var out []sentence
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '.' || c == '?' || c == '!' {
			end := i + 1
			atBoundary := end == len(text) || isSpace(text[end])
			if atBoundary {
				// Absorb any trailing whitespace into this sentence's span
				// so the next sentence starts clean.
				j := end
				for j < len(text) && isSpace(text[j]) {
					j++
				}
				if strings.TrimSpace(text[start:end]) != "" {
					out = append(out, sentence{text: text[start:j], start: start, end: j})
				}
				start = j
				i = j - 1
			}
		}
	}
	if start < len(text) && strings.TrimSpace(text[start:]) != "" {
		out = append(out, sentence{text: text[start:], start: start, end: len(text)})
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// lastNChars returns the trailing n characters of s (byte-safe, not
// rune-exact, matching the character-approximate token model).
func lastNChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
