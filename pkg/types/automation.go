package types

import "time"

// TriggerType selects how an automation decides it is due.
type TriggerType string

const (
	TriggerTime      TriggerType = "time"
	TriggerEvent     TriggerType = "event"
	TriggerCondition TriggerType = "condition"
)

// ValidTriggerType reports whether t is a known trigger type.
func ValidTriggerType(t TriggerType) bool {
	switch t {
	case TriggerTime, TriggerEvent, TriggerCondition:
		return true
	}
	return false
}

// ActionType selects what an automation does when it fires.
type ActionType string

const (
	ActionCreateTask  ActionType = "create_task"
	ActionWriteMemory ActionType = "write_memory"
	ActionInvokeHook  ActionType = "invoke_hook"
)

// ValidActionType reports whether a is a known action type.
func ValidActionType(a ActionType) bool {
	switch a {
	case ActionCreateTask, ActionWriteMemory, ActionInvokeHook:
		return true
	}
	return false
}

// Automation is a standing rule: a trigger evaluated on each engine tick
// plus an action executed when the trigger matches. The counters satisfy
// TriggerCount == SuccessCount + FailureCount after every evaluation.
type Automation struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	TriggerType   TriggerType            `json:"trigger_type"`
	TriggerConfig map[string]interface{} `json:"trigger_config"`

	ActionType   ActionType             `json:"action_type"`
	ActionConfig map[string]interface{} `json:"action_config"`

	Enabled bool `json:"enabled"`

	TriggerCount  int        `json:"trigger_count"`
	SuccessCount  int        `json:"success_count"`
	FailureCount  int        `json:"failure_count"`
	LastTriggered *time.Time `json:"last_triggered,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
