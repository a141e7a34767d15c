package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/continuo/continuo/internal/storage"
	"github.com/continuo/continuo/pkg/types"
)

const decisionColumns = `
	id, context, category, question, options, chosen_option, reasoning,
	confidence_score, outcome, outcome_details, evaluated_at, created_at`

// InsertDecision appends a decision to the log with outcome unknown unless
// a terminal outcome was supplied up front.
func (s *Store) InsertDecision(ctx context.Context, d *types.Decision) error {
	if d == nil {
		return storage.ErrInvalidInput
	}
	if d.ID == "" {
		return fmt.Errorf("%w: decision ID is required", storage.ErrInvalidInput)
	}
	if d.Context == "" || d.Question == "" || d.ChosenOption == "" {
		return fmt.Errorf("%w: context, question and chosen_option are required", storage.ErrInvalidInput)
	}
	if len(d.Options) == 0 {
		return fmt.Errorf("%w: at least one option is required", storage.ErrInvalidInput)
	}
	if d.Outcome == "" {
		d.Outcome = types.OutcomeUnknown
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	optionsJSON, err := marshalJSON(d.Options)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decisions (`+decisionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Context, d.Category, d.Question, optionsJSON, d.ChosenOption,
		d.Reasoning, d.ConfidenceScore, string(d.Outcome), d.OutcomeDetails,
		nullTime(d.EvaluatedAt), d.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: failed to insert decision: %w", err)
	}
	return nil
}

// GetDecision retrieves a decision by ID.
func (s *Store) GetDecision(ctx context.Context, id string) (*types.Decision, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: decision ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+decisionColumns+` FROM decisions WHERE id = ?`, id)
	d, err := scanDecision(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get decision: %w", err)
	}
	return d, nil
}

// SetDecisionOutcome writes the outcome only while the stored value is
// still unknown. The WHERE clause is the compare-and-set: concurrent
// evaluation attempts race safely, with exactly one observing swapped=true.
func (s *Store) SetDecisionOutcome(ctx context.Context, id string, outcome types.DecisionOutcome, details string, evaluatedAt time.Time) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("%w: decision ID is required", storage.ErrInvalidInput)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE decisions
		SET outcome = ?, outcome_details = ?, evaluated_at = ?
		WHERE id = ? AND outcome = ?`,
		string(outcome), details, evaluatedAt, id, string(types.OutcomeUnknown))
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to set decision outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to check outcome swap: %w", err)
	}
	return n == 1, nil
}

// ListEvaluatedSince returns decisions evaluated strictly after the
// watermark, oldest first, for the pattern extractor.
func (s *Store) ListEvaluatedSince(ctx context.Context, since time.Time, limit int) ([]*types.Decision, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+decisionColumns+` FROM decisions
		WHERE evaluated_at IS NOT NULL AND evaluated_at > ?
		ORDER BY evaluated_at ASC
		LIMIT ?`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list evaluated decisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan decision: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountDecisionsByOutcome returns per-outcome decision counts.
func (s *Store) CountDecisionsByOutcome(ctx context.Context) (map[types.DecisionOutcome]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM decisions GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to count decisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[types.DecisionOutcome]int)
	for rows.Next() {
		var o string
		var n int
		if err := rows.Scan(&o, &n); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan decision count: %w", err)
		}
		out[types.DecisionOutcome(o)] = n
	}
	return out, rows.Err()
}

// scanDecision reads one decision row in decisionColumns order.
func scanDecision(row rowScanner) (*types.Decision, error) {
	var (
		d           types.Decision
		outcome     string
		optionsJSON []byte
		evaluatedAt sql.NullTime
	)

	err := row.Scan(&d.ID, &d.Context, &d.Category, &d.Question, &optionsJSON,
		&d.ChosenOption, &d.Reasoning, &d.ConfidenceScore, &outcome,
		&d.OutcomeDetails, &evaluatedAt, &d.CreatedAt)
	if err != nil {
		return nil, err
	}

	d.Outcome = types.DecisionOutcome(outcome)
	d.EvaluatedAt = timePtr(evaluatedAt)
	if err := unmarshalJSON(optionsJSON, &d.Options); err != nil {
		return nil, err
	}
	return &d, nil
}
