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

func TestTaskStore_InsertAndGet(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	task := newTestTask("task-1", "Ship release")
	task.Dependencies = []string{"task-0"}
	task.Tags = []string{"release"}
	if err := store.InsertTask(ctx, task); err != nil {
		t.Fatalf("InsertTask failed: %v", err)
	}

	got, err := store.GetTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Title != "Ship release" || got.Status != types.TaskPending {
		t.Errorf("Roundtrip mismatch: %+v", got)
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0] != "task-0" {
		t.Errorf("Dependencies = %v, want [task-0]", got.Dependencies)
	}
}

func TestTaskStore_SetTaskScoresAtomic(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.InsertTask(ctx, newTestTask("task-1", "Tune scores")); err != nil {
		t.Fatalf("InsertTask failed: %v", err)
	}

	if err := store.SetTaskScores(ctx, "task-1", 0.8, 0.6, 0.72, time.Now()); err != nil {
		t.Fatalf("SetTaskScores failed: %v", err)
	}

	got, err := store.GetTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	// All three land together; a reader never sees new scores with a
	// stale priority.
	if got.Urgency != 0.8 || got.Importance != 0.6 {
		t.Errorf("Scores = %v/%v, want 0.8/0.6", got.Urgency, got.Importance)
	}
	if math.Abs(got.Priority-0.72) > 1e-9 {
		t.Errorf("Priority = %v, want 0.72", got.Priority)
	}
}

func TestTaskStore_ListTasksByStatusOrdering(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	now := time.Now()

	due := now.Add(24 * time.Hour)
	dueLater := now.Add(48 * time.Hour)

	high := newTestTask("high", "High priority")
	high.Priority = 0.9
	midEarlyDue := newTestTask("mid-early", "Mid priority, early due")
	midEarlyDue.Priority = 0.5
	midEarlyDue.DueDate = &due
	midEarlyDue.CreatedAt = now.Add(time.Minute)
	midLateDue := newTestTask("mid-late", "Mid priority, later due")
	midLateDue.Priority = 0.5
	midLateDue.DueDate = &dueLater
	midNoDue := newTestTask("mid-nodue", "Mid priority, no due date")
	midNoDue.Priority = 0.5
	done := newTestTask("done", "Completed")
	done.Status = types.TaskCompleted

	for _, task := range []*types.Task{high, midEarlyDue, midLateDue, midNoDue, done} {
		if err := store.InsertTask(ctx, task); err != nil {
			t.Fatalf("InsertTask(%s) failed: %v", task.ID, err)
		}
	}

	got, err := store.ListTasksByStatus(ctx, types.TaskPending, storage.TaskFilter{})
	if err != nil {
		t.Fatalf("ListTasksByStatus failed: %v", err)
	}
	want := []string{"high", "mid-early", "mid-late", "mid-nodue"}
	if len(got) != len(want) {
		t.Fatalf("Got %d tasks, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("Position %d = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestTaskStore_SetTaskStatusCompletedAt(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.InsertTask(ctx, newTestTask("task-1", "Finish")); err != nil {
		t.Fatalf("InsertTask failed: %v", err)
	}

	done := time.Now().UTC().Truncate(time.Second)
	if err := store.SetTaskStatus(ctx, "task-1", types.TaskCompleted, &done, done); err != nil {
		t.Fatalf("SetTaskStatus failed: %v", err)
	}
	got, err := store.GetTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(done) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, done)
	}

	// Reopen clears completed_at.
	if err := store.SetTaskStatus(ctx, "task-1", types.TaskPending, nil, time.Now()); err != nil {
		t.Fatalf("SetTaskStatus reopen failed: %v", err)
	}
	got, err = store.GetTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.CompletedAt != nil {
		t.Errorf("CompletedAt = %v after reopen, want nil", got.CompletedAt)
	}
}

func TestTaskStore_ListChildTasks(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	parent := newTestTask("parent", "Parent")
	childA := newTestTask("child-a", "Child A")
	childA.ParentTaskID = "parent"
	childB := newTestTask("child-b", "Child B")
	childB.ParentTaskID = "parent"
	for _, task := range []*types.Task{parent, childA, childB} {
		if err := store.InsertTask(ctx, task); err != nil {
			t.Fatalf("InsertTask failed: %v", err)
		}
	}

	children, err := store.ListChildTasks(ctx, "parent")
	if err != nil {
		t.Fatalf("ListChildTasks failed: %v", err)
	}
	if len(children) != 2 {
		t.Errorf("Got %d children, want 2", len(children))
	}
}

func TestTaskStore_DeleteProjectOrphansTasks(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	project := &types.Project{ID: "proj-1", Name: "Migration", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := store.InsertProject(ctx, project); err != nil {
		t.Fatalf("InsertProject failed: %v", err)
	}
	task := newTestTask("task-1", "Migrate data")
	task.ProjectID = "proj-1"
	if err := store.InsertTask(ctx, task); err != nil {
		t.Fatalf("InsertTask failed: %v", err)
	}

	if err := store.DeleteProject(ctx, "proj-1"); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	if _, err := store.GetProject(ctx, "proj-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetProject error = %v, want ErrNotFound", err)
	}

	// The task survives, orphaned.
	got, err := store.GetTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("GetTask after project delete failed: %v", err)
	}
	if got.ProjectID != "" {
		t.Errorf("ProjectID = %q after project delete, want empty", got.ProjectID)
	}
}
