// Package engine implements the Continuo core services: semantic memory
// with weighted retrieval and decay, the task engine with derived
// priority and dependency blocking, the write-once decision log, the
// learning pattern extractor, the automation trigger engine, and the
// session context layer. The Core type at the bottom of the package owns
// the services and the periodic workers.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/continuo/continuo/internal/config"
	"github.com/continuo/continuo/internal/embedding"
	"github.com/continuo/continuo/internal/storage"
	"github.com/continuo/continuo/internal/vector"
	"github.com/continuo/continuo/pkg/types"
)

// retrieveOverfetch is how many times k the vector index is asked for, so
// post-filtering and re-ranking still have enough candidates to fill k.
const retrieveOverfetch = 4

// RankedMemory is a retrieval hit with its scoring breakdown.
type RankedMemory struct {
	*types.Memory

	// Similarity is the cosine similarity against the query vector.
	Similarity float64 `json:"similarity"`

	// FinalScore is the weighted combination of similarity, importance
	// and recency that retrieval ranks by.
	FinalScore float64 `json:"final_score"`
}

// MemoryService owns memory writes, semantic retrieval and the decay
// sweep. The durable store is the source of truth; the vector index is a
// derived structure rebuilt from the store at startup.
type MemoryService struct {
	store   storage.MemoryStore
	index   vector.Index
	gateway embedding.Gateway
	cfg     config.ScoringConfig
	locks   *AdvisoryLocks
	now     func() time.Time
}

// NewMemoryService creates a memory service.
func NewMemoryService(store storage.MemoryStore, index vector.Index, gateway embedding.Gateway, cfg config.ScoringConfig, locks *AdvisoryLocks) *MemoryService {
	return &MemoryService{
		store:   store,
		index:   index,
		gateway: gateway,
		cfg:     cfg,
		locks:   locks,
		now:     time.Now,
	}
}

// Write persists a new memory and returns its ID. If no embedding is
// supplied, one is generated synchronously with a bounded timeout; when
// the gateway is unavailable the record is persisted without an embedding
// and marked embedding_pending instead of failing. Durability of the raw
// content takes priority over searchability. A store-level write failure
// is fatal and surfaced to the caller.
func (s *MemoryService) Write(ctx context.Context, m *types.Memory) (string, error) {
	if m == nil {
		return "", fmt.Errorf("%w: memory is required", storage.ErrInvalidInput)
	}
	if !validMemoryType(m.MemoryType) {
		return "", fmt.Errorf("%w: unknown memory_type %q", storage.ErrInvalidInput, m.MemoryType)
	}
	if m.Category == "" || m.Title == "" || len(m.Content) == 0 {
		return "", fmt.Errorf("%w: category, title and content are required", storage.ErrInvalidInput)
	}
	if !inUnitRange(m.ImportanceScore) {
		return "", fmt.Errorf("%w: importance_score %v", ErrInvalidRange, m.ImportanceScore)
	}

	now := s.now()
	m.ID = uuid.NewString()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.AccessedCount = 0
	m.LastAccessed = nil

	if m.Embedding == nil {
		vec, err := s.gateway.Embed(ctx, embedText(m))
		if err != nil {
			// Degraded write: the record stays retrievable by filter
			// match only until the embedding is backfilled.
			log.Printf("memory: embedding unavailable for %s, storing pending: %v", m.ID, err)
			if m.Metadata == nil {
				m.Metadata = make(map[string]interface{})
			}
			m.Metadata["embedding_pending"] = true
		} else {
			m.Embedding = vec
		}
	}

	if err := s.store.InsertMemory(ctx, m); err != nil {
		return "", fmt.Errorf("failed to insert memory: %w", err)
	}

	if m.Embedding != nil {
		if err := s.index.Insert(ctx, m.ID, m.Embedding); err != nil {
			// The index is rebuilt from the store at startup, so a failed
			// insert costs searchability until then, not durability.
			log.Printf("memory: failed to index %s: %v", m.ID, err)
		}
	}
	return m.ID, nil
}

// Retrieve runs semantic search for the query and returns up to k records
// ranked by final score. If no query vector is supplied one is generated
// from the query text; when the gateway is unavailable retrieval degrades
// to a filtered listing with no semantic ranking. Every returned record
// has accessed_count incremented and last_accessed updated: retrieval is
// itself evidence of relevance and feeds future decay decisions.
func (s *MemoryService) Retrieve(ctx context.Context, query string, queryVec []float64, k int, f storage.MemoryFilter) ([]*RankedMemory, error) {
	if k < 1 {
		k = 10
	}
	f.Normalize()

	if queryVec == nil {
		if query == "" {
			return nil, fmt.Errorf("%w: query text or vector is required", storage.ErrInvalidInput)
		}
		vec, err := s.gateway.Embed(ctx, query)
		if err != nil {
			if errors.Is(err, embedding.ErrUnavailable) {
				log.Printf("memory: retrieval degraded to filter match: %v", err)
				return s.retrieveDegraded(ctx, k, f)
			}
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
		queryVec = vec
	}

	matches, err := s.index.Search(ctx, queryVec, k*retrieveOverfetch)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]string, len(matches))
	simByID := make(map[string]float64, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
		simByID[m.ID] = m.Similarity
	}
	records, err := s.store.GetMemories(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate matches: %w", err)
	}

	now := s.now()
	ranked := make([]*RankedMemory, 0, len(records))
	for _, rec := range records {
		if !f.Matches(rec) {
			continue
		}
		sim := simByID[rec.ID]
		ranked = append(ranked, &RankedMemory{
			Memory:     rec,
			Similarity: sim,
			FinalScore: s.finalScore(sim, rec, now),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FinalScore != ranked[j].FinalScore {
			return ranked[i].FinalScore > ranked[j].FinalScore
		}
		return ranked[i].AccessedCount > ranked[j].AccessedCount
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	if err := s.touch(ctx, ranked, now); err != nil {
		return nil, err
	}
	return ranked, nil
}

// retrieveDegraded serves retrieval while the embedding gateway is down:
// a plain filtered listing, newest first, no similarity component.
func (s *MemoryService) retrieveDegraded(ctx context.Context, k int, f storage.MemoryFilter) ([]*RankedMemory, error) {
	f.Limit = k
	records, err := s.store.ListMemories(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	now := s.now()
	ranked := make([]*RankedMemory, 0, len(records))
	for _, rec := range records {
		ranked = append(ranked, &RankedMemory{
			Memory:     rec,
			FinalScore: s.finalScore(0, rec, now),
		})
	}
	if err := s.touch(ctx, ranked, now); err != nil {
		return nil, err
	}
	return ranked, nil
}

func (s *MemoryService) touch(ctx context.Context, hits []*RankedMemory, at time.Time) error {
	if len(hits) == 0 {
		return nil
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	if err := s.store.TouchMemories(ctx, ids, at); err != nil {
		return fmt.Errorf("failed to touch memories: %w", err)
	}
	for _, h := range hits {
		h.AccessedCount++
		t := at
		h.LastAccessed = &t
	}
	return nil
}

// finalScore combines similarity, importance and recency with the
// configured weights. Recency decays exponentially with age in days.
func (s *MemoryService) finalScore(similarity float64, m *types.Memory, now time.Time) float64 {
	ageDays := now.Sub(m.CreatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	recency := math.Exp(-ageDays / s.cfg.RecencyScaleDays)
	return similarity*s.cfg.SimilarityWeight +
		m.ImportanceScore*s.cfg.RankImportanceWeight +
		recency*s.cfg.RecencyWeight
}

// Sweep deletes every memory that has expired or is both unimportant and
// stale, and prunes the deleted IDs from the vector index. It runs under
// the decay-sweep advisory lock so overlapping invocations are no-ops,
// not duplicate work, and it is idempotent: a second immediate run
// deletes nothing and does not error.
func (s *MemoryService) Sweep(ctx context.Context, now time.Time) (int, error) {
	if !s.locks.TryAcquire(lockDecaySweep) {
		log.Printf("memory: decay sweep already running, skipping")
		return 0, nil
	}
	defer s.locks.Release(lockDecaySweep)

	deleted, err := s.store.SweepMemories(ctx, storage.SweepCriteria{
		Now:            now,
		DecayThreshold: s.cfg.DecayThreshold,
		DecayWindow:    s.cfg.DecayWindow,
	})
	if err != nil {
		return 0, fmt.Errorf("decay sweep failed: %w", err)
	}
	for _, id := range deleted {
		if err := s.index.Remove(ctx, id); err != nil {
			log.Printf("memory: failed to prune %s from index: %v", id, err)
		}
	}
	if len(deleted) > 0 {
		log.Printf("memory: decay sweep deleted %d records", len(deleted))
	}
	return len(deleted), nil
}

// Reembed retries embedding generation for a memory stored during a
// gateway outage, backfilling the vector and clearing the pending marker.
func (s *MemoryService) Reembed(ctx context.Context, id string) error {
	m, err := s.store.GetMemory(ctx, id)
	if err != nil {
		return err
	}
	if m.Embedding != nil {
		return nil
	}
	vec, err := s.gateway.Embed(ctx, embedText(m))
	if err != nil {
		return fmt.Errorf("failed to embed memory %s: %w", id, err)
	}
	if err := s.store.UpdateEmbedding(ctx, id, vec); err != nil {
		return fmt.Errorf("failed to store embedding for %s: %w", id, err)
	}
	if err := s.index.Insert(ctx, id, vec); err != nil {
		log.Printf("memory: failed to index %s: %v", id, err)
	}
	return nil
}

// Delete removes a memory explicitly, outside the decay sweep.
func (s *MemoryService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteMemory(ctx, id); err != nil {
		return err
	}
	if err := s.index.Remove(ctx, id); err != nil {
		log.Printf("memory: failed to prune %s from index: %v", id, err)
	}
	return nil
}

// RebuildIndex loads every stored embedding into the vector index. Called
// once at startup; the index holds no state the store cannot regenerate.
func (s *MemoryService) RebuildIndex(ctx context.Context) error {
	embedded, err := s.store.ListEmbedded(ctx)
	if err != nil {
		return fmt.Errorf("failed to list embeddings: %w", err)
	}
	for id, vec := range embedded {
		if err := s.index.Insert(ctx, id, vec); err != nil {
			return fmt.Errorf("failed to index %s: %w", id, err)
		}
	}
	if len(embedded) > 0 {
		log.Printf("memory: rebuilt vector index with %d embeddings", len(embedded))
	}
	return nil
}

// embedText builds the text sent to the embedding gateway: the title plus
// the JSON-flattened content document.
func embedText(m *types.Memory) string {
	text := m.Title
	if body, err := json.Marshal(m.Content); err == nil {
		text += "\n" + string(body)
	}
	return text
}

func validMemoryType(t types.MemoryType) bool {
	switch t {
	case types.MemoryTypeContext, types.MemoryTypeDecision, types.MemoryTypeLearning, types.MemoryTypeEvent:
		return true
	}
	return false
}

// inUnitRange reports whether v lies in [0,1].
func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}
