// Package vector implements the vector index half of the semantic pipeline
// (C10): a build/search two-phase approximate nearest-neighbor store keyed
// by chunk_id, backed by github.com/coder/hnsw (pure Go, no cgo).
package vector

import (
	"bufio"
	"encoding/gob"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/xfinder/xfinder/internal/xerrors"
)

// Config configures a Store's dimensionality and distance metric.
type Config struct {
	Dimensions int
	Metric     string // "cos" (default) or "l2"
	M          int
	EfSearch   int
}

// Result is one ranked hit: ascending by Distance per spec.md §4.10.
type Result struct {
	ChunkID  int64
	Distance float32
	Score    float32
}

// metadata is gob-persisted alongside the graph export.
type metadata struct {
	IDMap   map[int64]uint64
	NextKey uint64
	Config  Config
}

// Store is the two-phase (build then search) vector index described in
// spec.md §4.10. It is single-writer during build; the core does not
// support incremental add-after-build without a full rebuild (spec.md §5).
type Store struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	config  Config
	idMap   map[int64]uint64
	keyMap  map[uint64]int64
	nextKey uint64
	built   bool
	closed  bool
}

// New creates an empty builder-mode store (spec.md: "init_builder()").
func New(cfg Config) *Store {
	if cfg.Metric == "" {
		cfg.Metric = "cos"
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	switch cfg.Metric {
	case "l2":
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &Store{
		graph:  graph,
		config: cfg,
		idMap:  make(map[int64]uint64),
		keyMap: make(map[uint64]int64),
	}
}

// Add inserts or replaces the vector for chunkID. Dimension mismatch is a
// hard error per spec.md §4.10.
func (s *Store) Add(chunkID int64, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return xerrors.New(xerrors.CodeStorageError, "vector store is closed", nil)
	}
	if len(embedding) != s.config.Dimensions {
		return xerrors.VectorDimMismatch(s.config.Dimensions, len(embedding))
	}

	// Lazy-delete-then-reinsert: coder/hnsw has a known issue deleting the
	// last remaining node in the graph, so replacement never calls Delete.
	if existingKey, exists := s.idMap[chunkID]; exists {
		delete(s.keyMap, existingKey)
		delete(s.idMap, chunkID)
	}

	key := s.nextKey
	s.nextKey++

	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	if s.config.Metric == "cos" {
		normalizeInPlace(vec)
	}

	s.graph.Add(hnsw.MakeNode(key, vec))
	s.idMap[chunkID] = key
	s.keyMap[key] = chunkID
	s.built = false
	return nil
}

// Build finalizes and persists the index to path and marks the store built.
// Search does not check that mark: it runs against the current in-memory
// graph whether or not Build has run since the most recent Add.
func (s *Store) Build(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return xerrors.New(xerrors.CodeStorageError, "vector store is closed", nil)
	}
	if err := s.saveLocked(path); err != nil {
		return err
	}
	s.built = true
	return nil
}

// Search returns the k nearest neighbors of query, ascending by distance.
func (s *Store) Search(query []float32, k int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, xerrors.New(xerrors.CodeStorageError, "vector store is closed", nil)
	}
	if len(query) != s.config.Dimensions {
		return nil, xerrors.VectorDimMismatch(s.config.Dimensions, len(query))
	}
	if s.graph.Len() == 0 {
		return nil, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	if s.config.Metric == "cos" {
		normalizeInPlace(q)
	}

	nodes := s.graph.Search(q, k)
	results := make([]Result, 0, len(nodes))
	for _, node := range nodes {
		chunkID, ok := s.keyMap[node.Key]
		if !ok {
			continue // orphaned (lazily deleted) node
		}
		d := s.graph.Distance(q, node.Value)
		results = append(results, Result{
			ChunkID:  chunkID,
			Distance: d,
			Score:    distanceToScore(d, s.config.Metric),
		})
	}
	return results, nil
}

// Delete lazily removes chunkID from the live set. The underlying graph
// node is orphaned, not removed, to sidestep coder/hnsw's last-node-delete
// bug; compaction is a full rebuild.
func (s *Store) Delete(chunkID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.idMap[chunkID]; ok {
		delete(s.keyMap, key)
		delete(s.idMap, chunkID)
	}
}

// Count returns the number of live (non-orphaned) vectors.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.idMap)
}

// Load opens a previously-built store from path (search mode).
func Load(path string) (*Store, error) {
	s := &Store{idMap: make(map[int64]uint64), keyMap: make(map[uint64]int64)}

	metaPath := path + ".meta"
	mf, err := os.Open(metaPath)
	if err != nil {
		return nil, xerrors.IoError("open vector store metadata", err)
	}
	defer mf.Close()

	var meta metadata
	if err := gob.NewDecoder(mf).Decode(&meta); err != nil {
		return nil, xerrors.IndexCorrupt("decode vector store metadata", err)
	}
	s.idMap = meta.IDMap
	s.nextKey = meta.NextKey
	s.config = meta.Config
	s.keyMap = make(map[uint64]int64, len(s.idMap))
	for id, key := range s.idMap {
		s.keyMap[key] = id
	}

	graph := hnsw.NewGraph[uint64]()
	switch s.config.Metric {
	case "l2":
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = s.config.M
	graph.EfSearch = s.config.EfSearch

	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.IoError("open vector store", err)
	}
	defer f.Close()

	if err := graph.Import(bufio.NewReader(f)); err != nil {
		return nil, xerrors.IndexCorrupt("import vector graph", err)
	}
	s.graph = graph
	s.built = true
	return s, nil
}

func (s *Store) saveLocked(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return xerrors.IoError("create vector store directory", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return xerrors.IoError("create vector store temp file", err)
	}
	if err := s.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return xerrors.IoError("export vector graph", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return xerrors.IoError("close vector store temp file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return xerrors.IoError("rename vector store file", err)
	}

	metaPath := path + ".meta"
	metaTmp := metaPath + ".tmp"
	mf, err := os.Create(metaTmp)
	if err != nil {
		return xerrors.IoError("create vector store metadata temp file", err)
	}
	meta := metadata{IDMap: s.idMap, NextKey: s.nextKey, Config: s.config}
	if err := gob.NewEncoder(mf).Encode(meta); err != nil {
		mf.Close()
		os.Remove(metaTmp)
		return xerrors.IoError("encode vector store metadata", err)
	}
	if err := mf.Close(); err != nil {
		os.Remove(metaTmp)
		return xerrors.IoError("close vector store metadata temp file", err)
	}
	return os.Rename(metaTmp, metaPath)
}

// Close releases in-memory resources. It does not persist; call Build first.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.graph = nil
	return nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

func distanceToScore(distance float32, metric string) float32 {
	switch metric {
	case "l2":
		return 1.0 / (1.0 + distance)
	default:
		return 1.0 - distance/2.0
	}
}

