package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/continuo/continuo/internal/config"
	"github.com/continuo/continuo/internal/storage"
	"github.com/continuo/continuo/pkg/types"
)

func testCore(t *testing.T) *Core {
	t.Helper()
	cfg := &config.Config{
		Scoring: testScoring(),
		Workers: config.WorkersConfig{
			SweepInterval:   time.Hour,
			TickInterval:    time.Minute,
			ExtractInterval: 10 * time.Minute,
		},
		Hooks: config.HooksConfig{Timeout: time.Second},
	}
	store := testStore(t)
	return NewCore(cfg, store, newStubIndex(), &stubGateway{vec: []float64{0.5, 0.5}}, &stubHook{})
}

func TestCore_TaskSchedulingScenario(t *testing.T) {
	core := testCore(t)
	ctx := context.Background()

	// A clearly outranks B.
	idA, err := core.Tasks.Create(ctx, &types.Task{Title: "A", Urgency: 0.8, Importance: 0.6})
	require.NoError(t, err)
	idB, err := core.Tasks.Create(ctx, &types.Task{Title: "B", Urgency: 0.2, Importance: 0.2})
	require.NoError(t, err)

	queue, err := core.Tasks.NextEligible(ctx, storage.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, idA, queue[0].ID)
	assert.Equal(t, idB, queue[1].ID)

	// C depends on the now-completed A and may start.
	require.NoError(t, core.Tasks.Transition(ctx, idA, types.TaskCompleted))
	idC, err := core.Tasks.Create(ctx, &types.Task{Title: "C", Dependencies: []string{idA}})
	require.NoError(t, err)
	require.NoError(t, core.Tasks.Transition(ctx, idC, types.TaskInProgress))

	// D depends on the still-pending B and is blocked.
	idD, err := core.Tasks.Create(ctx, &types.Task{Title: "D", Dependencies: []string{idB}})
	require.NoError(t, err)
	assert.ErrorIs(t, core.Tasks.Transition(ctx, idD, types.TaskInProgress), ErrBlockedByDependency)
}

func TestCore_MemoryLifecycleScenario(t *testing.T) {
	core := testCore(t)
	ctx := context.Background()
	now := time.Now()
	backdated := now.Add(-40 * 24 * time.Hour)

	// Two stale memories, distinguished only by importance.
	insert := func(id string, importance float64) {
		t.Helper()
		m := &types.Memory{
			ID:              id,
			MemoryType:      types.MemoryTypeContext,
			Category:        "history",
			Title:           id,
			Content:         map[string]interface{}{"note": id},
			ImportanceScore: importance,
			CreatedAt:       backdated,
			UpdatedAt:       backdated,
		}
		la := backdated
		m.LastAccessed = &la
		require.NoError(t, core.store.InsertMemory(ctx, m))
	}
	insert("forgettable", 0.1)
	insert("keeper", 0.9)

	deleted, err := core.Memories.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = core.store.GetMemory(ctx, "forgettable")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = core.store.GetMemory(ctx, "keeper")
	assert.NoError(t, err)
}

func TestCore_DecisionToPatternFlow(t *testing.T) {
	core := testCore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id, err := core.Decisions.Record(ctx, testDecision())
		require.NoError(t, err)
		require.NoError(t, core.Decisions.Evaluate(ctx, id, types.OutcomeSuccess, ""))
	}

	n, err := core.ExtractPatterns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	patterns, err := core.store.ListPatterns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, 3, patterns[0].Occurrences)
	assert.Greater(t, patterns[0].Confidence, initialConfidence)
}

func TestCore_StartAndShutdown(t *testing.T) {
	core := testCore(t)
	ctx := context.Background()

	// Seed an embedded memory so Start has an index to rebuild.
	_, err := core.Memories.Write(ctx, &types.Memory{
		MemoryType:      types.MemoryTypeContext,
		Category:        "boot",
		Title:           "survives restart",
		Content:         map[string]interface{}{"k": "v"},
		ImportanceScore: 0.5,
	})
	require.NoError(t, err)

	require.NoError(t, core.Start(ctx))
	require.NoError(t, core.Shutdown())
}

func TestCore_ContextSessionBridge(t *testing.T) {
	core := testCore(t)
	ctx := context.Background()

	data := map[string]interface{}{"open_file": "main.go", "cursor": float64(42)}
	require.NoError(t, core.Contexts.Put(ctx, "sess-1", "editor", data, 0.3, time.Hour))

	got, err := core.Contexts.Get(ctx, "sess-1", "editor")
	require.NoError(t, err)
	assert.Equal(t, "main.go", got.ContextData["open_file"])

	// Last write wins.
	data["open_file"] = "engine.go"
	require.NoError(t, core.Contexts.Put(ctx, "sess-1", "editor", data, 0.3, time.Hour))
	got, err = core.Contexts.Get(ctx, "sess-1", "editor")
	require.NoError(t, err)
	assert.Equal(t, "engine.go", got.ContextData["open_file"])

	// Other (session, type) pairs are independent.
	_, err = core.Contexts.Get(ctx, "sess-2", "editor")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
