package types

import "time"

// LearningPattern is a confidence-weighted generalization extracted from
// accumulated decisions. Occurrences only ever grows; confidence saturates
// toward 1 under reinforcement but may be halved by a contradiction.
type LearningPattern struct {
	ID          string `json:"id"`
	PatternType string `json:"pattern_type"`

	// PatternKey identifies the pattern for reinforcement lookups. It is
	// derived from the decision's context category and the shape of the
	// chosen option.
	PatternKey string `json:"pattern_key"`

	PatternData map[string]interface{} `json:"pattern_data,omitempty"`

	// Confidence is kept in [0,1].
	Confidence float64 `json:"confidence"`

	// Occurrences counts reinforcement events; it is never decremented.
	Occurrences int `json:"occurrences"`

	LastObserved time.Time `json:"last_observed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
