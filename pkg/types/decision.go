package types

import "time"

// DecisionOutcome is the evaluated result of a decision. A decision starts
// at OutcomeUnknown and moves exactly once to a terminal value.
type DecisionOutcome string

const (
	OutcomeUnknown DecisionOutcome = "unknown"
	OutcomeSuccess DecisionOutcome = "success"
	OutcomeFailure DecisionOutcome = "failure"
	OutcomePartial DecisionOutcome = "partial"
)

// TerminalOutcome reports whether o is a valid terminal outcome value.
func TerminalOutcome(o DecisionOutcome) bool {
	switch o {
	case OutcomeSuccess, OutcomeFailure, OutcomePartial:
		return true
	}
	return false
}

// DecisionOption is one candidate choice considered for a decision,
// together with the rationale for or against it.
type DecisionOption struct {
	Option    string `json:"option"`
	Rationale string `json:"rationale,omitempty"`
}

// Decision records why a choice was made and, later, how it turned out.
// Once the outcome is set the record is immutable; the pattern extractor
// relies on evaluated decisions never changing.
type Decision struct {
	ID       string `json:"id"`
	Context  string `json:"context"`
	Category string `json:"category,omitempty"`
	Question string `json:"question"`

	Options      []DecisionOption `json:"options"`
	ChosenOption string           `json:"chosen_option"`
	Reasoning    string           `json:"reasoning,omitempty"`

	// ConfidenceScore is the caller's confidence in the choice, in [0,1].
	ConfidenceScore float64 `json:"confidence_score"`

	Outcome        DecisionOutcome `json:"outcome"`
	OutcomeDetails string          `json:"outcome_details,omitempty"`

	// EvaluatedAt is nil until the outcome is first set, then immutable.
	EvaluatedAt *time.Time `json:"evaluated_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
