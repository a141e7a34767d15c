package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/continuo/continuo/internal/storage"
	"github.com/continuo/continuo/pkg/types"
)

const taskColumns = `
	id, project_id, parent_task_id, title, description, status,
	urgency, importance, priority, dependencies,
	due_date, completed_at, assigned_to, created_by, tags, metadata,
	created_at, updated_at`

// InsertTask durably writes a new task.
func (s *Store) InsertTask(ctx context.Context, t *types.Task) error {
	if t == nil {
		return storage.ErrInvalidInput
	}
	if t.ID == "" {
		return fmt.Errorf("%w: task ID is required", storage.ErrInvalidInput)
	}
	if t.Title == "" {
		return fmt.Errorf("%w: task title is required", storage.ErrInvalidInput)
	}
	if t.Status == "" {
		t.Status = types.TaskPending
	}

	depsJSON, err := marshalJSON(t.Dependencies)
	if err != nil {
		return err
	}
	tagsJSON, err := marshalJSON(t.Tags)
	if err != nil {
		return err
	}
	metadataJSON, err := marshalJSON(t.Metadata)
	if err != nil {
		return err
	}

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, nullString(t.ProjectID), nullString(t.ParentTaskID), t.Title,
		t.Description, string(t.Status), t.Urgency, t.Importance, t.Priority,
		depsJSON, nullTime(t.DueDate), nullTime(t.CompletedAt), t.AssignedTo,
		t.CreatedBy, tagsJSON, metadataJSON, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: failed to insert task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (*types.Task, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: task ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get task: %w", err)
	}
	return t, nil
}

// GetTasks retrieves multiple tasks by ID. Missing IDs are skipped.
func (s *Store) GetTasks(ctx context.Context, ids []string) ([]*types.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetTaskScores writes urgency, importance and the derived priority in a
// single statement so no reader can observe new inputs with a stale
// priority.
func (s *Store) SetTaskScores(ctx context.Context, id string, urgency, importance, priority float64, at time.Time) error {
	if id == "" {
		return fmt.Errorf("%w: task ID is required", storage.ErrInvalidInput)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET urgency = ?, importance = ?, priority = ?, updated_at = ?
		WHERE id = ?`, urgency, importance, priority, at, id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to set task scores: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetTaskStatus updates the status and completed_at timestamp.
func (s *Store) SetTaskStatus(ctx context.Context, id string, status types.TaskStatus, completedAt *time.Time, at time.Time) error {
	if id == "" {
		return fmt.Errorf("%w: task ID is required", storage.ErrInvalidInput)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`, string(status), nullTime(completedAt), at, id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to set task status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListTasksByStatus lists tasks with the given status, ordered by priority
// descending, due_date ascending with NULLs last, then created_at
// ascending. The ordering is fully derived from persisted fields.
func (s *Store) ListTasksByStatus(ctx context.Context, status types.TaskStatus, f storage.TaskFilter) ([]*types.Task, error) {
	f.Normalize()

	conds := []string{"status = ?"}
	args := []interface{}{string(status)}
	if f.ProjectID != "" {
		conds = append(conds, "project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.AssignedTo != "" {
		conds = append(conds, "assigned_to = ?")
		args = append(args, f.AssignedTo)
	}
	args = append(args, f.Limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE `+strings.Join(conds, " AND ")+`
		ORDER BY priority DESC, due_date IS NULL, due_date ASC, created_at ASC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListChildTasks returns the direct children of a task.
func (s *Store) ListChildTasks(ctx context.Context, parentID string) ([]*types.Task, error) {
	if parentID == "" {
		return nil, fmt.Errorf("%w: parent task ID is required", storage.ErrInvalidInput)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE parent_task_id = ?`, parentID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list child tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTask removes a single task row.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: task ID is required", storage.ErrInvalidInput)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CountTasksByStatus returns per-status task counts.
func (s *Store) CountTasksByStatus(ctx context.Context) (map[types.TaskStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to count tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[types.TaskStatus]int)
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan task count: %w", err)
		}
		out[types.TaskStatus(st)] = n
	}
	return out, rows.Err()
}

// InsertProject durably writes a new project.
func (s *Store) InsertProject(ctx context.Context, p *types.Project) error {
	if p == nil {
		return storage.ErrInvalidInput
	}
	if p.ID == "" {
		return fmt.Errorf("%w: project ID is required", storage.ErrInvalidInput)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: project name is required", storage.ErrInvalidInput)
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, status, priority,
			start_date, end_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Status, p.Priority,
		nullTime(p.StartDate), nullTime(p.EndDate), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: failed to insert project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(ctx context.Context, id string) (*types.Project, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: project ID is required", storage.ErrInvalidInput)
	}

	var (
		p                  types.Project
		startDate, endDate sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, status, priority, start_date, end_date,
			created_at, updated_at
		FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.Priority,
			&startDate, &endDate, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get project: %w", err)
	}
	p.StartDate = timePtr(startDate)
	p.EndDate = timePtr(endDate)
	return &p, nil
}

// DeleteProject removes the project and orphans its tasks: the tasks keep
// their history but lose the grouping.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: project ID is required", storage.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin project delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE tasks SET project_id = NULL WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: failed to orphan project tasks: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return tx.Commit()
}

// nullString converts an optional string to its database representation.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanTask reads one task row in taskColumns order.
func scanTask(row rowScanner) (*types.Task, error) {
	var (
		t                        types.Task
		projectID, parentTaskID  sql.NullString
		status                   string
		depsJSON, tagsJSON       []byte
		metaJSON                 []byte
		dueDate, completedAt     sql.NullTime
	)

	err := row.Scan(&t.ID, &projectID, &parentTaskID, &t.Title, &t.Description,
		&status, &t.Urgency, &t.Importance, &t.Priority, &depsJSON,
		&dueDate, &completedAt, &t.AssignedTo, &t.CreatedBy, &tagsJSON,
		&metaJSON, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.ProjectID = projectID.String
	t.ParentTaskID = parentTaskID.String
	t.Status = types.TaskStatus(status)
	t.DueDate = timePtr(dueDate)
	t.CompletedAt = timePtr(completedAt)

	if err := unmarshalJSON(depsJSON, &t.Dependencies); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(tagsJSON, &t.Tags); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(metaJSON, &t.Metadata); err != nil {
		return nil, err
	}
	return &t, nil
}
