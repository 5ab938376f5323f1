// Package query implements the query service (C9): it turns a Request
// into index.SearchOptions, runs the search, then applies post-filters
// (extension, size, modified-time window) and sorting that the inverted
// index itself does not express, before returning ranked SearchResults
// (spec.md §3, §4.9).
package query

import (
	"fmt"
	"sort"
	"time"

	"github.com/xfinder/xfinder/internal/index"
	"github.com/xfinder/xfinder/internal/store"
)

// RawBufferSize is the size of the raw, unfiltered hit buffer a Session
// fetches from the index once per distinct query (spec.md §4.9 step 4).
// Filtering, sorting, and "load more" pagination all run against this
// buffer in memory instead of re-querying C5 (step 7).
const RawBufferSize = 10_000

// SortBy selects the result ordering.
type SortBy string

const (
	SortByRelevance SortBy = "relevance"
	SortByName      SortBy = "name"
	SortBySize      SortBy = "size"
	SortByModified  SortBy = "modified"
)

// Request is one query against the search service.
type Request struct {
	Text             string
	Limit            int
	ExactMatch       bool
	CaseSensitive    bool
	SearchInFilename bool
	SearchInPath     bool
	FuzzySearch      bool
	// FuzzyDistance is passed straight through to index.SearchOptions: a
	// negative value means unset (index.DefaultFuzzyDistance applies), 0
	// is a valid explicit distance in its own right.
	FuzzyDistance int

	// Post-filters, applied after the index search.
	Extensions   []string // e.g. [".pdf", ".docx"]; empty means no filter
	MinSize      int64
	MaxSize      int64 // 0 means unbounded
	ModifiedFrom int64 // unix seconds, 0 means unbounded
	ModifiedTo   int64 // unix seconds, 0 means unbounded

	SortBy SortBy
}

// SearchResult is one ranked hit enriched with metadata-store fields
// (spec.md §3).
type SearchResult struct {
	Path      string
	Filename  string
	Extension string
	Size      int64
	Modified  int64
	Score     float64
}

// Service answers Requests against an Index and a metadata Store.
type Service struct {
	idx  *index.Index
	meta *store.Store
}

// New builds a query Service.
func New(idx *index.Index, meta *store.Store) *Service {
	return &Service{idx: idx, meta: meta}
}

// Search executes req against a fresh, one-shot Session. Callers that
// expect to adjust filters, sort order, or the display limit across
// several calls for the same text should build a Session themselves
// instead, so the raw index query only runs once.
func (s *Service) Search(req Request) ([]SearchResult, error) {
	return s.NewSession().Search(req)
}

// NewSession starts a query session with an empty raw buffer.
func (s *Service) NewSession() *Session {
	return &Session{svc: s}
}

// Session caches one query's raw index hits (up to RawBufferSize) so that
// repeated calls to Search with the same effective query only re-run
// idx.Search when the text or match-mode options actually change; an
// ever-growing req.Limit ("load more") or a changed filter/sort just
// re-slices the cached buffer (spec.md §4.9 steps 4 and 7).
type Session struct {
	svc *Service

	rawKey string
	raw    []index.Hit
}

// rawKey identifies the inputs that change what the index itself
// returns. Everything else on Request (filters, sort, limit) is a
// post-processing step applied in memory against the cached buffer.
func rawKey(req Request) string {
	return fmt.Sprintf("%s\x00%v\x00%v\x00%v\x00%v\x00%v\x00%d",
		req.Text, req.ExactMatch, req.CaseSensitive,
		req.SearchInFilename, req.SearchInPath, req.FuzzySearch, req.FuzzyDistance)
}

// Search serves req from the session's cached raw buffer, fetching a
// fresh one only when req's text or match-mode options differ from what
// is cached.
func (sess *Session) Search(req Request) ([]SearchResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}

	key := rawKey(req)
	if key != sess.rawKey || sess.raw == nil {
		opts := index.SearchOptions{
			ExactMatch:       req.ExactMatch,
			CaseSensitive:    req.CaseSensitive,
			SearchInFilename: req.SearchInFilename,
			SearchInPath:     req.SearchInPath,
			FuzzySearch:      req.FuzzySearch,
			FuzzyDistance:    req.FuzzyDistance,
		}
		hits, err := sess.svc.idx.Search(req.Text, RawBufferSize, opts)
		if err != nil {
			return nil, err
		}
		sess.raw = hits
		sess.rawKey = key
	}

	results := make([]SearchResult, 0, limit)
	for _, h := range sess.raw {
		rec, found, err := sess.svc.meta.GetFileByPath(h.Path)
		if err != nil {
			return nil, err
		}
		if !found {
			// Indexed but not yet (or no longer) in the metadata store;
			// skip rather than fail the whole query.
			continue
		}
		if !passesFilters(rec, req) {
			continue
		}
		results = append(results, SearchResult{
			Path:      rec.Path,
			Filename:  rec.Filename,
			Extension: rec.Extension,
			Size:      rec.Size,
			Modified:  rec.Modified,
			Score:     h.Score,
		})
		if len(results) >= limit {
			break
		}
	}

	sortResults(results, req.SortBy)
	return results, nil
}

func passesFilters(rec store.FileRecord, req Request) bool {
	if len(req.Extensions) > 0 {
		matched := false
		for _, ext := range req.Extensions {
			if rec.Extension == ext {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if req.MinSize > 0 && rec.Size < req.MinSize {
		return false
	}
	if req.MaxSize > 0 && rec.Size > req.MaxSize {
		return false
	}
	if req.ModifiedFrom > 0 && rec.Modified < req.ModifiedFrom {
		return false
	}
	if req.ModifiedTo > 0 && rec.Modified > req.ModifiedTo {
		return false
	}
	return true
}

func sortResults(results []SearchResult, sortBy SortBy) {
	switch sortBy {
	case SortByName:
		sort.SliceStable(results, func(i, j int) bool { return results[i].Filename < results[j].Filename })
	case SortBySize:
		sort.SliceStable(results, func(i, j int) bool { return results[i].Size > results[j].Size })
	case SortByModified:
		sort.SliceStable(results, func(i, j int) bool { return results[i].Modified > results[j].Modified })
	default:
		sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	}
}

// RecordHistory logs a completed query into the search history table,
// truncated to the 30-day retention window on read (spec.md §4.9).
func (s *Service) RecordHistory(queryText string, resultCount int, elapsed time.Duration) error {
	return s.meta.AddSearchHistory(store.SearchHistoryEntry{
		Query:           queryText,
		ResultsCount:    resultCount,
		ExecutionTimeMs: elapsed.Milliseconds(),
		Timestamp:       time.Now().Unix(),
	})
}
