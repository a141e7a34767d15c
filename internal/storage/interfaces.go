package storage

import (
	"context"
	"time"

	"github.com/continuo/continuo/pkg/types"
)

// MemoryStore persists memory records. Vector similarity search is not part
// of this interface; the engine consults a vector index and hydrates results
// through GetMany.
type MemoryStore interface {
	// InsertMemory durably writes a new memory. A write failure here is
	// fatal to the enclosing operation and must be surfaced to the caller.
	InsertMemory(ctx context.Context, m *types.Memory) error

	// GetMemory retrieves a memory by ID. Returns ErrNotFound if missing.
	GetMemory(ctx context.Context, id string) (*types.Memory, error)

	// GetMemories retrieves multiple memories by ID, skipping missing IDs.
	GetMemories(ctx context.Context, ids []string) ([]*types.Memory, error)

	// ListMemories lists memories matching the filter, newest first.
	ListMemories(ctx context.Context, f MemoryFilter) ([]*types.Memory, error)

	// ListEmbedded returns the IDs and embeddings of all memories with a
	// non-null embedding, for rebuilding the vector index at startup.
	ListEmbedded(ctx context.Context) (map[string][]float64, error)

	// UpdateEmbedding backfills the embedding for a degraded write and
	// clears the embedding_pending marker.
	UpdateEmbedding(ctx context.Context, id string, embedding []float64) error

	// TouchMemories increments accessed_count and sets last_accessed for
	// the given IDs. Retrieval is itself evidence of relevance.
	TouchMemories(ctx context.Context, ids []string, at time.Time) error

	// DeleteMemory removes a memory by ID. Returns ErrNotFound if missing.
	DeleteMemory(ctx context.Context, id string) error

	// SweepMemories deletes every record eligible under the criteria and
	// returns the deleted IDs so the vector index can be pruned. Zero
	// matches is not an error.
	SweepMemories(ctx context.Context, c SweepCriteria) ([]string, error)

	// CountMemoriesByType returns per-type record counts for snapshots.
	CountMemoriesByType(ctx context.Context) (map[types.MemoryType]int, error)
}

// TaskStore persists tasks and projects.
type TaskStore interface {
	InsertTask(ctx context.Context, t *types.Task) error

	// GetTask retrieves a task by ID. Returns ErrNotFound if missing.
	GetTask(ctx context.Context, id string) (*types.Task, error)

	// GetTasks retrieves multiple tasks by ID, skipping missing IDs.
	GetTasks(ctx context.Context, ids []string) ([]*types.Task, error)

	// SetTaskScores writes urgency, importance and the derived priority in
	// a single transaction so no reader observes a stale priority.
	SetTaskScores(ctx context.Context, id string, urgency, importance, priority float64, at time.Time) error

	// SetTaskStatus updates the status and, for transitions into or out of
	// completed, the completed_at timestamp (nil clears it).
	SetTaskStatus(ctx context.Context, id string, status types.TaskStatus, completedAt *time.Time, at time.Time) error

	// ListTasksByStatus lists tasks with the given status ordered by
	// priority descending, then due_date ascending (nulls last), then
	// created_at ascending. The ordering is derived purely from persisted
	// fields.
	ListTasksByStatus(ctx context.Context, status types.TaskStatus, f TaskFilter) ([]*types.Task, error)

	// ListChildTasks returns the direct children of a task.
	ListChildTasks(ctx context.Context, parentID string) ([]*types.Task, error)

	// DeleteTask removes a single task row. Subtree deletion is driven by
	// the engine walking ListChildTasks.
	DeleteTask(ctx context.Context, id string) error

	// CountTasksByStatus returns per-status counts for snapshots.
	CountTasksByStatus(ctx context.Context) (map[types.TaskStatus]int, error)

	InsertProject(ctx context.Context, p *types.Project) error
	GetProject(ctx context.Context, id string) (*types.Project, error)

	// DeleteProject removes the project and orphans its tasks (their
	// project_id is cleared, the tasks themselves survive).
	DeleteProject(ctx context.Context, id string) error
}

// DecisionStore persists the append-mostly decision log. No delete is
// exposed; the log is an audit trail.
type DecisionStore interface {
	InsertDecision(ctx context.Context, d *types.Decision) error
	GetDecision(ctx context.Context, id string) (*types.Decision, error)

	// SetDecisionOutcome performs a compare-and-set: the outcome is written
	// only while the current value is still unknown. It reports whether
	// the swap happened, so concurrent evaluations race safely with exactly
	// one winner.
	SetDecisionOutcome(ctx context.Context, id string, outcome types.DecisionOutcome, details string, evaluatedAt time.Time) (bool, error)

	// ListEvaluatedSince returns decisions whose outcome was evaluated
	// strictly after the watermark, oldest first.
	ListEvaluatedSince(ctx context.Context, since time.Time, limit int) ([]*types.Decision, error)

	// CountDecisionsByOutcome returns per-outcome counts for snapshots.
	CountDecisionsByOutcome(ctx context.Context) (map[types.DecisionOutcome]int, error)
}

// PatternStore persists learning patterns keyed by their pattern key.
type PatternStore interface {
	GetPatternByKey(ctx context.Context, key string) (*types.LearningPattern, error)
	UpsertPattern(ctx context.Context, p *types.LearningPattern) error
	ListPatterns(ctx context.Context, limit int) ([]*types.LearningPattern, error)
}

// AutomationStore persists automation rules and their fire bookkeeping.
type AutomationStore interface {
	// UpsertAutomation creates or replaces the automation named a.Name and
	// returns its ID. Counters survive an upsert of an existing rule.
	UpsertAutomation(ctx context.Context, a *types.Automation) (string, error)

	GetAutomation(ctx context.Context, id string) (*types.Automation, error)
	ListEnabledAutomations(ctx context.Context) ([]*types.Automation, error)

	// RecordFire atomically increments trigger_count plus exactly one of
	// success_count/failure_count and advances last_triggered, preserving
	// trigger_count == success_count + failure_count.
	RecordFire(ctx context.Context, id string, success bool, firedAt time.Time) error
}

// ContextStore persists session-scoped context snapshots.
type ContextStore interface {
	// PutSnapshot upserts the row for (session_id, context_type); last
	// write wins, no versioning.
	PutSnapshot(ctx context.Context, s *types.ContextSnapshot) error

	// GetSnapshot returns the snapshot, or ErrNotFound when absent or
	// already expired relative to now.
	GetSnapshot(ctx context.Context, sessionID, contextType string, now time.Time) (*types.ContextSnapshot, error)

	// PruneSnapshots deletes rows with expires_at < now and returns the
	// count. TTL alone governs; there is no decay scoring here.
	PruneSnapshots(ctx context.Context, now time.Time) (int, error)
}

// SettingsStore persists small key/value operational state, such as the
// pattern extractor's watermark.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Store composes every interface a full backend provides.
type Store interface {
	MemoryStore
	TaskStore
	DecisionStore
	PatternStore
	AutomationStore
	ContextStore
	SettingsStore

	// Close releases any resources held by the store.
	Close() error
}
