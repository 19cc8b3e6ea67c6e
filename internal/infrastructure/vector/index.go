// Package vector is an in-process nearest-neighbour index over product embeddings.
package vector

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/pricelens/backend/internal/domain"
)

// CosineSimilarity computes the cosine similarity between two vectors.
// It returns 0 when the lengths differ or either vector has zero magnitude.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// Index holds one embedding per product id. It is safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	ids     []string
	vectors map[string][]float64
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{vectors: make(map[string][]float64)}
}

// Add stores vector for id, replacing an earlier one.
func (x *Index) Add(id string, vector []float64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, exists := x.vectors[id]; !exists {
		x.ids = append(x.ids, id)
	}
	x.vectors[id] = append([]float64(nil), vector...)
}

// Len returns the number of indexed products.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.ids)
}

type match struct {
	id         string
	similarity float64
}

// Nearest returns up to k product ids ordered by descending cosine similarity to vector.
func (x *Index) Nearest(ctx context.Context, vector []float64, k int) ([]string, error) {
	if k <= 0 {
		return []string{}, nil
	}

	x.mu.RLock()
	matches := make([]match, 0, len(x.ids))
	for i, id := range x.ids {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				x.mu.RUnlock()
				return nil, err
			}
		}
		matches = append(matches, match{id: id, similarity: CosineSimilarity(vector, x.vectors[id])})
	}
	x.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].similarity > matches[j].similarity
	})
	if k > len(matches) {
		k = len(matches)
	}

	ids := make([]string, 0, k)
	for _, m := range matches[:k] {
		ids = append(ids, m.id)
	}
	return ids, nil
}

var _ domain.VectorIndex = (*Index)(nil)
