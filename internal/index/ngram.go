package index

import (
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
)

// ngramTokenizerName is the name the tokenizer is registered under. Indexes
// do not persist tokenizer code to disk (spec.md §4.5): it must be
// re-registered under this same name on every open.
const ngramTokenizerName = "xfinder_ngram"

// ngramAnalyzerName is the default analyzer built from the tokenizer plus
// lowercasing.
const ngramAnalyzerName = "xfinder_ngram_analyzer"

// ngramTokenizer emits every lowercased contiguous substring of length
// [Min, Max] over the raw input — a non-positional sliding window, per
// spec.md §4.5. This supports substring matching on any fragment of a
// filename, the dominant query shape.
type ngramTokenizer struct {
	Min int
	Max int
}

var _ analysis.Tokenizer = (*ngramTokenizer)(nil)

func (t *ngramTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := strings.ToLower(string(input))
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return analysis.TokenStream{}
	}

	minN, maxN := t.Min, t.Max
	if minN < 1 {
		minN = 1
	}
	if maxN < minN {
		maxN = minN
	}

	var stream analysis.TokenStream
	pos := 1
	for length := minN; length <= maxN && length <= n; length++ {
		for start := 0; start+length <= n; start++ {
			gram := string(runes[start : start+length])
			stream = append(stream, &analysis.Token{
				Term:     []byte(gram),
				Start:    start,
				End:      start + length,
				Position: pos,
				Type:     analysis.Ngram,
			})
			pos++
		}
	}
	return stream
}

// registerNgramTokenizer (re-)registers the n-gram tokenizer in the
// package-global bleve registry under a fixed name, bound to the given
// bounds; the analyzer that uses it is added to the index mapping
// separately. Called on every Open, matching the original Tantivy
// source's NgramTokenizer::new(min, max, false) + LowerCaser registration
// pattern (tokenizers there are likewise rebuilt on every process start).
func registerNgramTokenizer(minN, maxN int) error {
	_ = registry.RegisterTokenizer(ngramTokenizerName, func(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
		return &ngramTokenizer{Min: minN, Max: maxN}, nil
	})
	return nil
}
