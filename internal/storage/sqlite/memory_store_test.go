package sqlite

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/continuo/continuo/internal/storage"
	"github.com/continuo/continuo/pkg/types"
)

func TestMemoryStore_InsertAndGet(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	m := newTestMemory("mem-1")
	m.Embedding = []float64{0.1, -0.2, 0.3}
	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	m.ExpiresAt = &exp

	if err := store.InsertMemory(ctx, m); err != nil {
		t.Fatalf("InsertMemory failed: %v", err)
	}

	got, err := store.GetMemory(ctx, "mem-1")
	if err != nil {
		t.Fatalf("GetMemory failed: %v", err)
	}
	if got.Title != m.Title || got.Category != m.Category {
		t.Errorf("Roundtrip mismatch: got %q/%q", got.Title, got.Category)
	}
	if got.Content["note"] != "content for mem-1" {
		t.Errorf("Content mismatch: %v", got.Content)
	}
	if len(got.Embedding) != 3 {
		t.Fatalf("Embedding length = %d, want 3", len(got.Embedding))
	}
	for i, v := range got.Embedding {
		if math.Abs(v-m.Embedding[i]) > 1e-12 {
			t.Errorf("Embedding[%d] = %v, want %v", i, v, m.Embedding[i])
		}
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, exp)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := testStore(t)

	_, err := store.GetMemory(context.Background(), "nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetMemory error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_TouchMemories(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.InsertMemory(ctx, newTestMemory("mem-1")); err != nil {
		t.Fatalf("InsertMemory failed: %v", err)
	}

	at := time.Now().UTC().Truncate(time.Second)
	if err := store.TouchMemories(ctx, []string{"mem-1"}, at); err != nil {
		t.Fatalf("TouchMemories failed: %v", err)
	}
	if err := store.TouchMemories(ctx, []string{"mem-1"}, at.Add(time.Minute)); err != nil {
		t.Fatalf("TouchMemories failed: %v", err)
	}

	got, err := store.GetMemory(ctx, "mem-1")
	if err != nil {
		t.Fatalf("GetMemory failed: %v", err)
	}
	if got.AccessedCount != 2 {
		t.Errorf("AccessedCount = %d, want 2", got.AccessedCount)
	}
	if got.LastAccessed == nil || !got.LastAccessed.Equal(at.Add(time.Minute)) {
		t.Errorf("LastAccessed = %v, want %v", got.LastAccessed, at.Add(time.Minute))
	}
}

func TestMemoryStore_UpdateEmbeddingClearsPending(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	m := newTestMemory("mem-1")
	m.Metadata = map[string]interface{}{"embedding_pending": true}
	if err := store.InsertMemory(ctx, m); err != nil {
		t.Fatalf("InsertMemory failed: %v", err)
	}

	if err := store.UpdateEmbedding(ctx, "mem-1", []float64{1, 2, 3}); err != nil {
		t.Fatalf("UpdateEmbedding failed: %v", err)
	}

	got, err := store.GetMemory(ctx, "mem-1")
	if err != nil {
		t.Fatalf("GetMemory failed: %v", err)
	}
	if got.EmbeddingPending() {
		t.Error("embedding_pending should be cleared after backfill")
	}
	if len(got.Embedding) != 3 {
		t.Errorf("Embedding length = %d, want 3", len(got.Embedding))
	}

	embedded, err := store.ListEmbedded(ctx)
	if err != nil {
		t.Fatalf("ListEmbedded failed: %v", err)
	}
	if _, ok := embedded["mem-1"]; !ok {
		t.Error("ListEmbedded should include the backfilled memory")
	}
}

func TestMemoryStore_SweepEligibility(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	now := time.Now()

	// Expired, regardless of importance.
	expired := newTestMemory("expired")
	expired.ImportanceScore = 0.9
	past := now.Add(-time.Hour)
	expired.ExpiresAt = &past
	// Low importance and stale.
	stale := newTestMemory("stale")
	stale.ImportanceScore = 0.1
	stale.CreatedAt = now.Add(-40 * 24 * time.Hour)
	stale.UpdatedAt = stale.CreatedAt
	// High importance, stale: retained.
	important := newTestMemory("important")
	important.ImportanceScore = 0.9
	important.CreatedAt = now.Add(-40 * 24 * time.Hour)
	important.UpdatedAt = important.CreatedAt
	// Low importance, recently accessed: retained.
	recent := newTestMemory("recent")
	recent.ImportanceScore = 0.1
	recent.CreatedAt = now.Add(-40 * 24 * time.Hour)
	recent.UpdatedAt = recent.CreatedAt
	la := now.Add(-time.Hour)
	recent.LastAccessed = &la

	for _, m := range []*types.Memory{expired, stale, important, recent} {
		if err := store.InsertMemory(ctx, m); err != nil {
			t.Fatalf("InsertMemory(%s) failed: %v", m.ID, err)
		}
	}

	criteria := storage.SweepCriteria{
		Now:            now,
		DecayThreshold: 0.3,
		DecayWindow:    30 * 24 * time.Hour,
	}
	deleted, err := store.SweepMemories(ctx, criteria)
	if err != nil {
		t.Fatalf("SweepMemories failed: %v", err)
	}
	if len(deleted) != 2 {
		t.Fatalf("Sweep deleted %d records (%v), want 2", len(deleted), deleted)
	}
	gone := map[string]bool{deleted[0]: true, deleted[1]: true}
	if !gone["expired"] || !gone["stale"] {
		t.Errorf("Sweep deleted %v, want expired and stale", deleted)
	}

	for _, id := range []string{"important", "recent"} {
		if _, err := store.GetMemory(ctx, id); err != nil {
			t.Errorf("GetMemory(%s) after sweep failed: %v", id, err)
		}
	}

	// Idempotent: an immediate second sweep deletes nothing.
	again, err := store.SweepMemories(ctx, criteria)
	if err != nil {
		t.Fatalf("Second SweepMemories failed: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("Second sweep deleted %v, want none", again)
	}
}

func TestMemoryStore_ListMemoriesFilter(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	a := newTestMemory("a")
	a.Category = "infra"
	a.Tags = []string{"deploy", "ci"}
	b := newTestMemory("b")
	b.Category = "infra"
	b.Tags = []string{"ci"}
	c := newTestMemory("c")
	c.Category = "product"
	for _, m := range []*types.Memory{a, b, c} {
		if err := store.InsertMemory(ctx, m); err != nil {
			t.Fatalf("InsertMemory failed: %v", err)
		}
	}

	got, err := store.ListMemories(ctx, storage.MemoryFilter{Category: "infra", Tags: []string{"deploy"}})
	if err != nil {
		t.Fatalf("ListMemories failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("ListMemories = %v, want [a]", got)
	}
}
