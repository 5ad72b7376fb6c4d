package store

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// vectorIndex is the in-memory ANN accelerator for one project's chunk
// table. It never owns the chunk data itself (the SQLite table does); it
// only maps a chunk ID to a position in the HNSW graph so Search can return
// an ID order without a full table scan.
type vectorIndex struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config Config

	idMap   map[string]uint64 // chunk ID -> internal key
	keyMap  map[uint64]string // internal key -> chunk ID
	nextKey uint64
}

// vectorIndexMetadata is the gob-persisted side-table of ID mappings a
// vectorIndex needs to reconstruct itself alongside the exported HNSW graph.
type vectorIndexMetadata struct {
	IDMap   map[string]uint64
	NextKey uint64
	Config  Config
}

func newVectorIndex(cfg Config) *vectorIndex {
	cfg = cfg.withDefaults()

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

	return &vectorIndex{
		graph:  graph,
		config: cfg,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
}

// upsert adds or replaces a chunk's vector. Replacing an existing ID orphans
// its old graph node rather than deleting it: coder/hnsw corrupts its graph
// when the last remaining node is deleted, so this index leans on the same
// lazy-deletion discipline the search result filter (via keyMap lookup)
// already has to apply for genuine deletes.
func (v *vectorIndex) upsert(id string, vector []float32) error {
	if len(vector) != v.config.Dimensions {
		return fmt.Errorf("dimension mismatch: expected %d, got %d", v.config.Dimensions, len(vector))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if existingKey, exists := v.idMap[id]; exists {
		delete(v.keyMap, existingKey)
		delete(v.idMap, id)
	}

	key := v.nextKey
	v.nextKey++

	vec := make([]float32, len(vector))
	copy(vec, vector)
	if v.config.Metric == "cos" {
		normalizeInPlace(vec)
	}

	v.graph.Add(hnsw.MakeNode(key, vec))
	v.idMap[id] = key
	v.keyMap[key] = id
	return nil
}

func (v *vectorIndex) delete(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if key, exists := v.idMap[id]; exists {
		delete(v.keyMap, key)
		delete(v.idMap, id)
	}
}

type scoredID struct {
	ID       string
	Distance float32
	Score    float32
}

// search returns the k nearest chunk IDs to query, ordered nearest first.
func (v *vectorIndex) search(query []float32, k int) ([]scoredID, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if len(query) != v.config.Dimensions {
		return nil, fmt.Errorf("dimension mismatch: expected %d, got %d", v.config.Dimensions, len(query))
	}
	if v.graph.Len() == 0 {
		return nil, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	if v.config.Metric == "cos" {
		normalizeInPlace(q)
	}

	nodes := v.graph.Search(q, k)
	results := make([]scoredID, 0, len(nodes))
	for _, node := range nodes {
		id, ok := v.keyMap[node.Key]
		if !ok {
			continue // orphaned by a prior upsert/delete
		}
		dist := v.graph.Distance(q, node.Value)
		results = append(results, scoredID{ID: id, Distance: dist, Score: distanceToScore(dist, v.config.Metric)})
	}
	return results, nil
}

func (v *vectorIndex) count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.idMap)
}

// save persists the graph and ID mappings as "<path>" and "<path>.meta",
// each written to a temp file and renamed into place.
func (v *vectorIndex) save(path string) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := v.graph.Export(file); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename index file: %w", err)
	}

	return v.saveMetadata(path + ".meta")
}

func (v *vectorIndex) saveMetadata(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}

	meta := vectorIndexMetadata{IDMap: v.idMap, NextKey: v.nextKey, Config: v.config}
	if err := gob.NewEncoder(file).Encode(meta); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close metadata file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// loadVectorIndex reconstructs a vectorIndex previously written by save. It
// returns (nil, nil) if no persisted index exists at path yet.
func loadVectorIndex(path string) (*vectorIndex, error) {
	metaFile, err := os.Open(path + ".meta")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open metadata file: %w", err)
	}
	defer metaFile.Close()

	var meta vectorIndexMetadata
	if err := gob.NewDecoder(metaFile).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	v := newVectorIndex(meta.Config)
	v.idMap = meta.IDMap
	v.nextKey = meta.NextKey
	v.keyMap = make(map[uint64]string, len(meta.IDMap))
	for id, key := range v.idMap {
		v.keyMap[key] = id
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()

	if err := v.graph.Import(bufio.NewReader(file)); err != nil {
		return nil, fmt.Errorf("import graph: %w", err)
	}
	return v, nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// distanceToScore converts a distance into a 0-1 similarity score.
func distanceToScore(distance float32, metric string) float32 {
	if metric == "l2" {
		return 1.0 / (1.0 + distance)
	}
	return 1.0 - distance/2.0
}
