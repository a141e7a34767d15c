// Package vector provides the pluggable similarity index used by the
// memory store. The core's contract only requires cosine-distance
// semantics; implementations back this with an embedded in-memory index
// (chromem-go) or a Postgres table with the pgvector extension.
package vector

import (
	"context"
	"errors"
	"math"
)

// ErrDimensionMismatch indicates a vector whose length differs from the
// vectors already in the index.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Match is one similarity search hit. Similarity is cosine similarity in
// [-1, 1]; higher is closer.
type Match struct {
	ID         string
	Similarity float64
}

// Index is the pluggable vector similarity index.
type Index interface {
	// Insert adds or replaces the vector for id.
	Insert(ctx context.Context, id string, vec []float64) error

	// Search returns up to k matches ordered by similarity descending.
	// An empty index returns an empty slice, not an error.
	Search(ctx context.Context, vec []float64, k int) ([]Match, error)

	// Remove deletes the vector for id. Removing an unknown id is a no-op.
	Remove(ctx context.Context, id string) error
}

// CosineSimilarity returns the cosine similarity of a and b, or 0 when
// either vector has zero magnitude or the lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
