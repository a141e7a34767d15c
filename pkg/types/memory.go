// Package types defines the record types persisted by the Continuo core:
// memories, tasks, decisions, learning patterns, automations and
// session-scoped context snapshots.
package types

import "time"

// MemoryType classifies what kind of knowledge a memory holds.
type MemoryType string

const (
	MemoryTypeContext  MemoryType = "context"
	MemoryTypeDecision MemoryType = "decision"
	MemoryTypeLearning MemoryType = "learning"
	MemoryTypeEvent    MemoryType = "event"
)

// Memory is a durable unit of stored knowledge. The content document is
// free-form; the embedding enables semantic retrieval and may be nil when
// embedding generation failed (the record is then retrievable by exact or
// tag match only, and Metadata carries "embedding_pending": true).
type Memory struct {
	ID         string     `json:"id"`
	MemoryType MemoryType `json:"memory_type"`
	Category   string     `json:"category"`
	Title      string     `json:"title"`

	// Content is an arbitrary nested key/value document.
	Content map[string]interface{} `json:"content"`

	// Embedding is a fixed-length vector; nil when generation failed.
	Embedding []float64 `json:"embedding,omitempty"`

	// ImportanceScore is caller-supplied and kept in [0,1].
	ImportanceScore float64 `json:"importance_score"`

	Tags     []string               `json:"tags,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastAccessed *time.Time `json:"last_accessed,omitempty"`

	// AccessedCount increases on every retrieval; it never decreases.
	AccessedCount int `json:"accessed_count"`

	// ExpiresAt makes the record eligible for the decay sweep regardless
	// of importance once the deadline passes.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// EmbeddingPending reports whether the memory was stored without an
// embedding because the gateway was unavailable at write time.
func (m *Memory) EmbeddingPending() bool {
	if m.Metadata == nil {
		return false
	}
	pending, ok := m.Metadata["embedding_pending"].(bool)
	return ok && pending
}
