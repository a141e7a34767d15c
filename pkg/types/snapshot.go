package types

import "time"

// ContextSnapshot is a session-scoped key/value overlay used to bridge
// successive caller sessions without growing the long-term memory store.
// One row exists per (session_id, context_type) pair; writes overwrite.
// Pruning is governed by ExpiresAt alone, with no decay scoring.
type ContextSnapshot struct {
	SessionID   string                 `json:"session_id"`
	ContextType string                 `json:"context_type"`
	ContextData map[string]interface{} `json:"context_data"`
	Importance  float64                `json:"importance"`
	ExpiresAt   time.Time              `json:"expires_at"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}
