package types

import "time"

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskBlocked    TaskStatus = "blocked"
)

// ValidTaskStatus reports whether s is one of the four known statuses.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskBlocked:
		return true
	}
	return false
}

// Task is a unit of work. Priority is derived from urgency and importance
// and is never set directly by callers; the store recomputes it in the
// same transaction as any urgency/importance write.
type Task struct {
	ID           string `json:"id"`
	ProjectID    string `json:"project_id,omitempty"`
	ParentTaskID string `json:"parent_task_id,omitempty"`

	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`

	// Urgency and Importance are independent inputs in [0,1].
	Urgency    float64 `json:"urgency"`
	Importance float64 `json:"importance"`

	// Priority is derived: urgencyWeight*Urgency + importanceWeight*Importance.
	Priority float64 `json:"priority"`

	// Dependencies lists task IDs that must be completed before this task
	// may leave the blocked/pending states for in_progress or completed.
	Dependencies []string `json:"dependencies,omitempty"`

	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	AssignedTo string                 `json:"assigned_to,omitempty"`
	CreatedBy  string                 `json:"created_by,omitempty"`
	Tags       []string               `json:"tags,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project groups tasks. Deleting a project orphans its tasks rather than
// cascading: task history outlives the grouping.
type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	Priority    float64    `json:"priority"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
