package index

import (
	"strings"

	"github.com/blevesearch/bleve/v2"

	"github.com/xfinder/xfinder/internal/xerrors"
)

// DefaultFuzzyDistance is used when FuzzyDistance is left unset (negative).
const DefaultFuzzyDistance = 2

// SearchOptions mirrors spec.md §4.5's query knobs.
type SearchOptions struct {
	ExactMatch       bool
	CaseSensitive    bool
	SearchInFilename bool
	SearchInPath     bool
	FuzzySearch      bool
	// FuzzyDistance is the edit distance for a fuzzy search, one of
	// {0, 1, 2} (spec.md §4.5). A negative value means "unset" and falls
	// back to DefaultFuzzyDistance; 0 is a valid explicit distance and
	// must not be confused with unset.
	FuzzyDistance int
}

// Hit is one deduplicated-by-path search result.
type Hit struct {
	Path     string
	Filename string
	Score    float64
}

// Search runs query against the index and returns hits deduplicated by
// path, first-seen-wins, per spec.md §4.5 (the original Tantivy source
// dedupes results the same way because a path can match through more than
// one field).
func (idx *Index) Search(query string, limit int, opts SearchOptions) ([]Hit, error) {
	idx.mu.Lock()
	closed := idx.closed
	idx.mu.Unlock()
	if closed {
		return nil, xerrors.New(xerrors.CodeIndexCorrupt, "index is closed", nil)
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	fields := searchFields(opts)

	q := buildQuery(query, fields, opts)

	req := bleve.NewSearchRequest(q)
	if limit <= 0 {
		limit = 100
	}
	// Over-fetch to absorb duplicate-path collapsing across fields.
	req.Size = limit * 4
	req.Fields = []string{fieldPath, fieldFilename}

	result, err := idx.bi.Search(req)
	if err != nil {
		return nil, xerrors.IndexCorrupt("execute search", err)
	}

	seen := make(map[string]bool, len(result.Hits))
	hits := make([]Hit, 0, limit)
	for _, docMatch := range result.Hits {
		path, _ := docMatch.Fields[fieldPath].(string)
		if path == "" {
			path = docMatch.ID
		}
		if seen[path] {
			continue
		}
		seen[path] = true

		filename, _ := docMatch.Fields[fieldFilename].(string)
		hits = append(hits, Hit{Path: path, Filename: filename, Score: docMatch.Score})
		if len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

// searchFields resolves which stored fields participate, defaulting to
// both filename and path when neither flag is set (spec.md §4.5).
func searchFields(opts SearchOptions) []string {
	if !opts.SearchInFilename && !opts.SearchInPath {
		return []string{fieldFilename, fieldPath}
	}
	var fields []string
	if opts.SearchInFilename {
		fields = append(fields, fieldFilename)
	}
	if opts.SearchInPath {
		fields = append(fields, fieldPath)
	}
	return fields
}

func buildQuery(query string, fields []string, opts SearchOptions) bleve.Query {
	term := query
	if !opts.CaseSensitive {
		term = strings.ToLower(term)
	}

	switch {
	case opts.FuzzySearch:
		disjuncts := make([]bleve.Query, 0, len(fields))
		for _, f := range fields {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetField(f)
			fuzziness := opts.FuzzyDistance
			if fuzziness < 0 {
				fuzziness = DefaultFuzzyDistance
			}
			fq.SetFuzziness(fuzziness)
			disjuncts = append(disjuncts, fq)
		}
		return bleve.NewDisjunctionQuery(disjuncts...)

	case opts.ExactMatch:
		// A term query against the n-gram-tokenized field only matches when
		// the query itself is a generated n-gram of some stored document —
		// i.e. when len(term) falls within the index's configured bounds.
		// This mirrors the original Tantivy source's exact_match path,
		// which is a direct TermQuery against the same tokenized field.
		disjuncts := make([]bleve.Query, 0, len(fields))
		for _, f := range fields {
			tq := bleve.NewTermQuery(term)
			tq.SetField(f)
			disjuncts = append(disjuncts, tq)
		}
		return bleve.NewDisjunctionQuery(disjuncts...)

	default:
		disjuncts := make([]bleve.Query, 0, len(fields))
		for _, f := range fields {
			mq := bleve.NewMatchQuery(term)
			mq.SetField(f)
			mq.Analyzer = ngramAnalyzerName
			disjuncts = append(disjuncts, mq)
		}
		return bleve.NewDisjunctionQuery(disjuncts...)
	}
}
