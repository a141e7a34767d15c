package engine

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/continuo/continuo/internal/config"
	"github.com/continuo/continuo/internal/embedding"
	"github.com/continuo/continuo/internal/storage/sqlite"
	"github.com/continuo/continuo/internal/vector"
)

func testStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testScoring() config.ScoringConfig {
	return config.ScoringConfig{
		UrgencyWeight:        0.6,
		ImportanceWeight:     0.4,
		SimilarityWeight:     0.7,
		RankImportanceWeight: 0.2,
		RecencyWeight:        0.1,
		RecencyScaleDays:     30,
		DecayThreshold:       0.3,
		DecayWindow:          30 * 24 * time.Hour,
	}
}

// stubIndex is a vector.Index with caller-controlled similarities, so
// ranking tests can isolate the re-rank from real vector math.
type stubIndex struct {
	mu           sync.Mutex
	vectors      map[string][]float64
	similarities map[string]float64
}

func newStubIndex() *stubIndex {
	return &stubIndex{
		vectors:      make(map[string][]float64),
		similarities: make(map[string]float64),
	}
}

func (s *stubIndex) setSimilarity(id string, sim float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.similarities[id] = sim
}

func (s *stubIndex) Insert(_ context.Context, id string, vec []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[id] = vec
	if _, ok := s.similarities[id]; !ok {
		s.similarities[id] = 1
	}
	return nil
}

func (s *stubIndex) Search(_ context.Context, _ []float64, k int) ([]vector.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matches := make([]vector.Match, 0, len(s.vectors))
	for id := range s.vectors {
		matches = append(matches, vector.Match{ID: id, Similarity: s.similarities[id]})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *stubIndex) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vectors, id)
	delete(s.similarities, id)
	return nil
}

func (s *stubIndex) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.vectors[id]
	return ok
}

// stubGateway returns a fixed vector, or ErrUnavailable when down.
type stubGateway struct {
	vec  []float64
	down bool
}

func (g *stubGateway) Embed(context.Context, string) ([]float64, error) {
	if g.down {
		return nil, embedding.ErrUnavailable
	}
	return g.vec, nil
}
