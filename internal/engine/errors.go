package engine

import "errors"

// Typed domain errors callers branch on with errors.Is. These are
// contract violations returned synchronously, distinct from external
// timeouts (absorbed at the component boundary) and durability errors
// (propagated unmodified).
var (
	// ErrInvalidRange indicates a score outside [0,1].
	ErrInvalidRange = errors.New("score out of range [0,1]")

	// ErrBlockedByDependency indicates a task transition attempted while
	// one or more dependencies are not completed.
	ErrBlockedByDependency = errors.New("task blocked by incomplete dependency")

	// ErrAlreadyEvaluated indicates a decision whose outcome has already
	// been set; evaluation is write-once.
	ErrAlreadyEvaluated = errors.New("decision already evaluated")

	// ErrInvalidTransition indicates a status change the task state
	// machine does not permit.
	ErrInvalidTransition = errors.New("invalid task status transition")
)
