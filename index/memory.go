package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mantravadi/granthalaya/corpus"
)

type entry struct {
	id          string
	chunk       corpus.Chunk
	vec         []float32
	placeholder bool
}

// Memory is a brute-force cosine-similarity index. Similarity is cosine for
// both insertion and search. Appends serialize on the lock; searches run
// concurrently with each other.
type Memory struct {
	embedder Embedder

	mu      sync.RWMutex
	entries []entry
}

func NewMemory(embedder Embedder) *Memory {
	return &Memory{embedder: embedder}
}

// Initialize seeds the index with one placeholder entry so it is never
// structurally degenerate before real chunks arrive. The placeholder is
// invisible to Search. Idempotent.
func (m *Memory) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) > 0 {
		return nil
	}

	m.entries = append(m.entries, entry{
		id:          uuid.NewString(),
		placeholder: true,
	})
	return nil
}

func (m *Memory) AddDocuments(ctx context.Context, chunks []corpus.Chunk) (int, error) {
	if err := m.Initialize(ctx); err != nil {
		return 0, err
	}

	added := 0
	for _, ch := range chunks {
		vecs, err := m.embedder.Embed(ctx, []string{ch.Text})
		if err != nil {
			return added, &EmbeddingError{Inserted: added, Err: err}
		}
		if len(vecs) != 1 {
			return added, &EmbeddingError{Inserted: added, Err: fmt.Errorf("provider returned %d vectors for one text", len(vecs))}
		}

		m.mu.Lock()
		m.entries = append(m.entries, entry{
			id:    uuid.NewString(),
			chunk: ch,
			vec:   vecs[0],
		})
		m.mu.Unlock()
		added++
	}

	return added, nil
}

func (m *Memory) Search(ctx context.Context, query string, k int) ([]corpus.SearchResult, error) {
	if k <= 0 || m.Count() == 0 {
		return nil, nil
	}

	vecs, err := m.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}
	if len(vecs) != 1 {
		return nil, &EmbeddingError{Err: fmt.Errorf("provider returned %d vectors for one text", len(vecs))}
	}
	qv := vecs[0]

	m.mu.RLock()
	results := make([]corpus.SearchResult, 0, len(m.entries))
	for _, e := range m.entries {
		if e.placeholder {
			continue
		}
		results = append(results, corpus.SearchResult{
			Chunk: e.chunk,
			Score: cosine(qv, e.vec),
		})
	}
	m.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

func (m *Memory) RemoveRecord(ctx context.Context, recordID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	removed := 0
	for _, e := range m.entries {
		if !e.placeholder && e.chunk.Meta.RecordID == recordID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept

	return removed, nil
}

// Count reports the number of real (non-placeholder) entries.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, e := range m.entries {
		if !e.placeholder {
			n++
		}
	}
	return n
}

func cosine(a, b []float32) float32 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
