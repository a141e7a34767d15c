package sqlite

import (
	"testing"
	"time"

	"github.com/continuo/continuo/pkg/types"
)

// testStore opens an in-memory database for one test.
func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestMemory(id string) *types.Memory {
	return &types.Memory{
		ID:              id,
		MemoryType:      types.MemoryTypeContext,
		Category:        "testing",
		Title:           "Test memory " + id,
		Content:         map[string]interface{}{"note": "content for " + id},
		ImportanceScore: 0.5,
		Tags:            []string{"test"},
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func newTestTask(id, title string) *types.Task {
	return &types.Task{
		ID:        id,
		Title:     title,
		Status:    types.TaskPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func newTestDecision(id string) *types.Decision {
	return &types.Decision{
		ID:       id,
		Context:  "deploy pipeline",
		Category: "infra",
		Question: "which rollout strategy",
		Options: []types.DecisionOption{
			{Option: "blue-green", Rationale: "safe"},
			{Option: "rolling", Rationale: "cheap"},
		},
		ChosenOption:    "blue-green",
		ConfidenceScore: 0.7,
		Outcome:         types.OutcomeUnknown,
		CreatedAt:       time.Now(),
	}
}
