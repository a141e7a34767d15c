package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// chromemCollection is the single collection all memory vectors live in.
const chromemCollection = "memories"

// ChromemIndex is an embedded in-memory index backed by chromem-go, a
// pure Go vector database with cosine similarity as its default distance.
// It is rebuilt from the durable store at startup, so losing it on restart
// costs nothing.
type ChromemIndex struct {
	mu  sync.RWMutex
	db  *chromem.DB
	col *chromem.Collection
}

// NewChromemIndex creates an empty in-memory index.
func NewChromemIndex() (*ChromemIndex, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection(chromemCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: failed to create collection: %w", err)
	}
	return &ChromemIndex{db: db, col: col}, nil
}

// Insert adds or replaces the vector for id.
func (x *ChromemIndex) Insert(ctx context.Context, id string, vec []float64) error {
	if id == "" || len(vec) == 0 {
		return fmt.Errorf("chromem: id and vector are required")
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	// AddDocument upserts by ID.
	doc := chromem.Document{
		ID:        id,
		Content:   id, // chromem requires non-empty content; the store holds the real payload
		Embedding: toFloat32(vec),
	}
	if err := x.col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("chromem: failed to add document: %w", err)
	}
	return nil
}

// Search returns up to k matches ordered by similarity descending.
func (x *ChromemIndex) Search(ctx context.Context, vec []float64, k int) ([]Match, error) {
	if len(vec) == 0 || k < 1 {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	n := x.col.Count()
	if n == 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}

	results, err := x.col.QueryEmbedding(ctx, toFloat32(vec), k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: query failed: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{ID: r.ID, Similarity: float64(r.Similarity)})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches, nil
}

// Remove deletes the vector for id. Unknown ids are a no-op.
func (x *ChromemIndex) Remove(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.col.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("chromem: failed to delete document: %w", err)
	}
	return nil
}

// Len returns the number of vectors currently indexed.
func (x *ChromemIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.col.Count()
}

// toFloat32 narrows a float64 vector for chromem, which stores float32.
func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}
