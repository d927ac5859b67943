// Package store provides the storage collaborators of the query engine: the
// relational database handle, schema introspection, the document chunk store
// and the vector index.
package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// NoMatch is the sentinel slot returned by a vector index when fewer than
// topK vectors exist. Callers skip it instead of resolving it.
const NoMatch int64 = -1

// VectorIndex is the nearest-neighbor search service consumed by the document
// search path. Vectors are identified by their embedding slot: the position
// they were assigned on insertion, starting at zero.
type VectorIndex interface {
	// Add appends vectors to the index and returns the slot of the first one;
	// subsequent vectors occupy consecutive slots.
	Add(ctx context.Context, vectors [][]float32) (int64, error)

	// Search returns the slots and distances of the topK nearest vectors.
	// Both slices always have length topK; missing entries carry NoMatch.
	Search(ctx context.Context, vector []float32, topK int) ([]int64, []float32, error)

	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int64, error)
}

// MemoryIndex is an in-process flat L2 index. It is the default when no
// external vector database is configured, and the substitution point in tests.
type MemoryIndex struct {
	mu      sync.RWMutex
	vectors [][]float32
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Add appends vectors and returns the slot of the first one.
func (m *MemoryIndex) Add(_ context.Context, vectors [][]float32) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	first := int64(len(m.vectors))
	for _, v := range vectors {
		if len(m.vectors) > 0 && len(v) != len(m.vectors[0]) {
			return 0, fmt.Errorf("vector dimension mismatch: got %d, want %d", len(v), len(m.vectors[0]))
		}
		m.vectors = append(m.vectors, v)
	}
	return first, nil
}

// Search performs an exhaustive L2 scan over the stored vectors.
func (m *MemoryIndex) Search(_ context.Context, vector []float32, topK int) ([]int64, []float32, error) {
	if topK <= 0 {
		return nil, nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type hit struct {
		slot int64
		dist float32
	}
	hits := make([]hit, 0, len(m.vectors))
	for i, v := range m.vectors {
		if len(v) != len(vector) {
			return nil, nil, fmt.Errorf("query dimension mismatch: got %d, want %d", len(vector), len(v))
		}
		var sum float64
		for j := range v {
			d := float64(v[j]) - float64(vector[j])
			sum += d * d
		}
		hits = append(hits, hit{slot: int64(i), dist: float32(sum)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].slot < hits[j].slot
	})

	slots := make([]int64, topK)
	dists := make([]float32, topK)
	for i := 0; i < topK; i++ {
		if i < len(hits) {
			slots[i] = hits[i].slot
			dists[i] = hits[i].dist
		} else {
			slots[i] = NoMatch
			dists[i] = float32(math.Inf(1))
		}
	}
	return slots, dists, nil
}

// Count returns the number of stored vectors.
func (m *MemoryIndex) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.vectors)), nil
}

var _ VectorIndex = (*MemoryIndex)(nil)
