package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/continuo/continuo/internal/config"
	"github.com/continuo/continuo/internal/storage"
	"github.com/continuo/continuo/pkg/types"
)

// TaskService owns task and project lifecycle: creation, the derived
// priority, the status state machine with dependency blocking, the ranked
// queue, and cascading deletion.
type TaskService struct {
	store storage.TaskStore
	cfg   config.ScoringConfig
	now   func() time.Time
}

// NewTaskService creates a task service.
func NewTaskService(store storage.TaskStore, cfg config.ScoringConfig) *TaskService {
	return &TaskService{store: store, cfg: cfg, now: time.Now}
}

// priority derives the scheduling priority from its two inputs. Callers
// never set priority directly; it is recomputed on every score write.
func (s *TaskService) priority(urgency, importance float64) float64 {
	return urgency*s.cfg.UrgencyWeight + importance*s.cfg.ImportanceWeight
}

// Create persists a new task and returns its ID. Status defaults to
// pending; urgency and importance must lie in [0,1] and seed the derived
// priority.
func (s *TaskService) Create(ctx context.Context, t *types.Task) (string, error) {
	if t == nil || t.Title == "" {
		return "", fmt.Errorf("%w: title is required", storage.ErrInvalidInput)
	}
	if t.Status == "" {
		t.Status = types.TaskPending
	}
	if !types.ValidTaskStatus(t.Status) {
		return "", fmt.Errorf("%w: unknown status %q", storage.ErrInvalidInput, t.Status)
	}
	if !inUnitRange(t.Urgency) || !inUnitRange(t.Importance) {
		return "", fmt.Errorf("%w: urgency %v, importance %v", ErrInvalidRange, t.Urgency, t.Importance)
	}

	now := s.now()
	t.ID = uuid.NewString()
	t.Priority = s.priority(t.Urgency, t.Importance)
	t.CompletedAt = nil
	t.CreatedAt = now
	t.UpdatedAt = now

	if err := s.store.InsertTask(ctx, t); err != nil {
		return "", fmt.Errorf("failed to insert task: %w", err)
	}
	return t.ID, nil
}

// Get retrieves a task by ID.
func (s *TaskService) Get(ctx context.Context, id string) (*types.Task, error) {
	return s.store.GetTask(ctx, id)
}

// SetScores updates urgency and importance, recomputing priority in the
// same store transaction so no reader ever observes new scores alongside
// a stale priority. Out-of-range values fail with ErrInvalidRange.
func (s *TaskService) SetScores(ctx context.Context, id string, urgency, importance float64) error {
	if !inUnitRange(urgency) || !inUnitRange(importance) {
		return fmt.Errorf("%w: urgency %v, importance %v", ErrInvalidRange, urgency, importance)
	}
	return s.store.SetTaskScores(ctx, id, urgency, importance, s.priority(urgency, importance), s.now())
}

// Transition moves a task through the status state machine:
//
//	pending -> in_progress -> completed
//	pending|in_progress -> blocked -> pending
//	completed -> pending|in_progress (reopen)
//
// Entering in_progress or completed fails with ErrBlockedByDependency
// while any dependency is not completed. Entering completed sets
// completed_at; reopening clears it and is logged distinctly, since a
// reopen signals the priority model was wrong.
func (s *TaskService) Transition(ctx context.Context, id string, newStatus types.TaskStatus) error {
	if !types.ValidTaskStatus(newStatus) {
		return fmt.Errorf("%w: unknown status %q", storage.ErrInvalidInput, newStatus)
	}
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if t.Status == newStatus {
		return nil
	}
	if !transitionAllowed(t.Status, newStatus) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, newStatus)
	}

	if newStatus == types.TaskInProgress || newStatus == types.TaskCompleted {
		satisfied, err := s.dependenciesSatisfied(ctx, t)
		if err != nil {
			return err
		}
		if !satisfied {
			return fmt.Errorf("%w: task %s", ErrBlockedByDependency, id)
		}
	}

	now := s.now()
	var completedAt *time.Time
	switch {
	case newStatus == types.TaskCompleted:
		completedAt = &now
	case t.Status == types.TaskCompleted:
		// Reopen: completed_at is cleared. This is a learning signal, not
		// a routine transition.
		log.Printf("task: reopening completed task %s (%s -> %s)", id, t.Status, newStatus)
	default:
		completedAt = t.CompletedAt
	}

	if err := s.store.SetTaskStatus(ctx, id, newStatus, completedAt, now); err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	return nil
}

// transitionAllowed encodes the status state machine for from != to.
func transitionAllowed(from, to types.TaskStatus) bool {
	switch from {
	case types.TaskPending:
		return to == types.TaskInProgress || to == types.TaskCompleted || to == types.TaskBlocked
	case types.TaskInProgress:
		return to == types.TaskCompleted || to == types.TaskBlocked || to == types.TaskPending
	case types.TaskBlocked:
		return to == types.TaskPending
	case types.TaskCompleted:
		return to == types.TaskPending || to == types.TaskInProgress
	}
	return false
}

// dependenciesSatisfied reports whether every dependency of t is
// completed. A dependency that no longer exists counts as unsatisfied.
func (s *TaskService) dependenciesSatisfied(ctx context.Context, t *types.Task) (bool, error) {
	if len(t.Dependencies) == 0 {
		return true, nil
	}
	deps, err := s.store.GetTasks(ctx, t.Dependencies)
	if err != nil {
		return false, fmt.Errorf("failed to load dependencies: %w", err)
	}
	completed := make(map[string]bool, len(deps))
	for _, d := range deps {
		completed[d.ID] = d.Status == types.TaskCompleted
	}
	for _, id := range t.Dependencies {
		if !completed[id] {
			return false, nil
		}
	}
	return true, nil
}

// NextEligible returns pending tasks whose dependencies are all
// completed, ordered by priority descending, then due date ascending
// (no due date last), then creation time. The ordering is derived purely
// from persisted fields; there is no hidden in-memory ranking state.
func (s *TaskService) NextEligible(ctx context.Context, f storage.TaskFilter) ([]*types.Task, error) {
	f.Normalize()
	pending, err := s.store.ListTasksByStatus(ctx, types.TaskPending, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending tasks: %w", err)
	}

	// One batch lookup for every dependency across the page.
	var depIDs []string
	seen := make(map[string]bool)
	for _, t := range pending {
		for _, id := range t.Dependencies {
			if !seen[id] {
				seen[id] = true
				depIDs = append(depIDs, id)
			}
		}
	}
	completed := make(map[string]bool, len(depIDs))
	if len(depIDs) > 0 {
		deps, err := s.store.GetTasks(ctx, depIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load dependencies: %w", err)
		}
		for _, d := range deps {
			completed[d.ID] = d.Status == types.TaskCompleted
		}
	}

	eligible := pending[:0]
	for _, t := range pending {
		ok := true
		for _, id := range t.Dependencies {
			if !completed[id] {
				ok = false
				break
			}
		}
		if ok {
			eligible = append(eligible, t)
		}
	}
	return eligible, nil
}

// Delete removes a task and its entire subtree. The cascade is an
// explicit iterative walk over the parent-pointer index, children-first,
// so the behavior is identical across storage backends.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if _, err := s.store.GetTask(ctx, id); err != nil {
		return err
	}

	// Breadth-first collection, then delete in reverse order.
	order := []string{id}
	for i := 0; i < len(order); i++ {
		children, err := s.store.ListChildTasks(ctx, order[i])
		if err != nil {
			return fmt.Errorf("failed to list children of %s: %w", order[i], err)
		}
		for _, child := range children {
			order = append(order, child.ID)
		}
	}
	for i := len(order) - 1; i >= 0; i-- {
		if err := s.store.DeleteTask(ctx, order[i]); err != nil {
			return fmt.Errorf("failed to delete task %s: %w", order[i], err)
		}
	}
	if len(order) > 1 {
		log.Printf("task: cascading delete removed %d tasks under %s", len(order), id)
	}
	return nil
}

// CreateProject persists a new project and returns its ID.
func (s *TaskService) CreateProject(ctx context.Context, p *types.Project) (string, error) {
	if p == nil || p.Name == "" {
		return "", fmt.Errorf("%w: name is required", storage.ErrInvalidInput)
	}
	now := s.now()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.store.InsertProject(ctx, p); err != nil {
		return "", fmt.Errorf("failed to insert project: %w", err)
	}
	return p.ID, nil
}

// GetProject retrieves a project by ID.
func (s *TaskService) GetProject(ctx context.Context, id string) (*types.Project, error) {
	return s.store.GetProject(ctx, id)
}

// DeleteProject removes a project. Its tasks are orphaned, not deleted:
// task history outlives the grouping.
func (s *TaskService) DeleteProject(ctx context.Context, id string) error {
	return s.store.DeleteProject(ctx, id)
}
