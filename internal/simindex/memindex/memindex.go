// Package memindex provides an in-memory implementation of
// simindex.Index. Suitable for dev/testing.
package memindex

import (
	"context"
	"fmt"
	"sync"

	"github.com/linnemanlabs/sift/internal/intake"
	"github.com/linnemanlabs/sift/internal/simindex"
)

type entry struct {
	meta   simindex.Metadata
	vector []float32
}

// Index holds embedded items in memory.
type Index struct {
	embedder      simindex.Embedder
	minSimilarity float64

	mu      sync.RWMutex
	entries map[string]*entry
}

// New initializes an empty in-memory index. minSimilarity <= 0 selects
// the default cutoff.
func New(embedder simindex.Embedder, minSimilarity float64) *Index {
	if minSimilarity <= 0 {
		minSimilarity = simindex.DefaultMinSimilarity
	}
	return &Index{
		embedder:      embedder,
		minSimilarity: minSimilarity,
		entries:       make(map[string]*entry),
	}
}

// Upsert embeds text and replaces the stored entry for id.
func (x *Index) Upsert(ctx context.Context, id, text string, meta simindex.Metadata) error {
	vec, err := x.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries[id] = &entry{meta: meta, vector: vec}
	return nil
}

// SetClassification updates the stored category/priority for id, keeping
// the embedding. Missing ids are a no-op: the correction path is
// best-effort and the next upsert self-heals.
func (x *Index) SetClassification(_ context.Context, id string, cat intake.Category, pri intake.Priority) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if e, ok := x.entries[id]; ok {
		e.meta.Category = cat
		e.meta.Priority = pri
	}
	return nil
}

// Query embeds the query text and ranks all stored entries against it.
func (x *Index) Query(ctx context.Context, q simindex.Query) ([]intake.SimilarItem, error) {
	x.mu.RLock()
	empty := len(x.entries) == 0
	x.mu.RUnlock()
	if empty {
		return []intake.SimilarItem{}, nil
	}

	vec, err := x.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	x.mu.RLock()
	candidates := make([]simindex.Candidate, 0, len(x.entries))
	for id, e := range x.entries {
		if q.Zone != "" && e.meta.Zone != q.Zone {
			continue
		}
		if q.RequireTriaged && e.meta.Category == "" {
			continue
		}
		candidates = append(candidates, simindex.Candidate{
			ID:       id,
			Subject:  e.meta.Subject,
			Category: e.meta.Category,
			Priority: e.meta.Priority,
			Vector:   e.vector,
		})
	}
	x.mu.RUnlock()

	return simindex.Rank(vec, candidates, q.ExcludeID, q.TopK, x.minSimilarity), nil
}

// Delete removes the entry for id.
func (x *Index) Delete(_ context.Context, id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.entries, id)
	return nil
}

// Count reports the number of stored entries.
func (x *Index) Count(_ context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries), nil
}
