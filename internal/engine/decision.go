package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/continuo/continuo/internal/storage"
	"github.com/continuo/continuo/pkg/types"
)

// DecisionService owns the append-mostly decision log. Records are
// written with an unknown outcome and evaluated exactly once; the pattern
// extractor depends on evaluated decisions never changing.
type DecisionService struct {
	store storage.DecisionStore
	now   func() time.Time
}

// NewDecisionService creates a decision service.
func NewDecisionService(store storage.DecisionStore) *DecisionService {
	return &DecisionService{store: store, now: time.Now}
}

// Record persists a new decision and returns its ID. The outcome always
// starts unknown regardless of what the caller supplies.
func (s *DecisionService) Record(ctx context.Context, d *types.Decision) (string, error) {
	if d == nil {
		return "", fmt.Errorf("%w: decision is required", storage.ErrInvalidInput)
	}
	if d.Context == "" || d.Question == "" || d.ChosenOption == "" {
		return "", fmt.Errorf("%w: context, question and chosen_option are required", storage.ErrInvalidInput)
	}
	if len(d.Options) == 0 {
		return "", fmt.Errorf("%w: at least one option is required", storage.ErrInvalidInput)
	}
	if !inUnitRange(d.ConfidenceScore) {
		return "", fmt.Errorf("%w: confidence_score %v", ErrInvalidRange, d.ConfidenceScore)
	}

	d.ID = uuid.NewString()
	d.Outcome = types.OutcomeUnknown
	d.OutcomeDetails = ""
	d.EvaluatedAt = nil
	d.CreatedAt = s.now()

	if err := s.store.InsertDecision(ctx, d); err != nil {
		return "", fmt.Errorf("failed to insert decision: %w", err)
	}
	return d.ID, nil
}

// Get retrieves a decision by ID.
func (s *DecisionService) Get(ctx context.Context, id string) (*types.Decision, error) {
	return s.store.GetDecision(ctx, id)
}

// Evaluate sets the decision's outcome, write-once. The store performs a
// compare-and-set against the unknown outcome, so concurrent evaluations
// race safely with exactly one winner; every loser observes
// ErrAlreadyEvaluated regardless of whether its outcome matched the
// winner's.
func (s *DecisionService) Evaluate(ctx context.Context, id string, outcome types.DecisionOutcome, details string) error {
	if !types.TerminalOutcome(outcome) {
		return fmt.Errorf("%w: outcome %q is not terminal", storage.ErrInvalidInput, outcome)
	}
	swapped, err := s.store.SetDecisionOutcome(ctx, id, outcome, details, s.now())
	if err != nil {
		return fmt.Errorf("failed to set outcome: %w", err)
	}
	if !swapped {
		// Distinguish a missing decision from an already-evaluated one.
		if _, err := s.store.GetDecision(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: decision %s", ErrAlreadyEvaluated, id)
	}
	return nil
}
