package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/continuo/continuo/internal/storage"
	"github.com/continuo/continuo/pkg/types"
)

const automationColumns = `
	id, name, trigger_type, trigger_config, action_type, action_config,
	enabled, trigger_count, success_count, failure_count, last_triggered,
	created_at, updated_at`

// UpsertAutomation creates or replaces the automation named a.Name and
// returns its ID. Fire counters of an existing rule are preserved so an
// upsert never resets bookkeeping.
func (s *Store) UpsertAutomation(ctx context.Context, a *types.Automation) (string, error) {
	if a == nil {
		return "", storage.ErrInvalidInput
	}
	if a.ID == "" {
		return "", fmt.Errorf("%w: automation ID is required", storage.ErrInvalidInput)
	}
	if a.Name == "" {
		return "", fmt.Errorf("%w: automation name is required", storage.ErrInvalidInput)
	}

	triggerJSON, err := marshalJSON(a.TriggerConfig)
	if err != nil {
		return "", err
	}
	actionJSON, err := marshalJSON(a.ActionConfig)
	if err != nil {
		return "", err
	}

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO automations (`+automationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			trigger_type   = excluded.trigger_type,
			trigger_config = excluded.trigger_config,
			action_type    = excluded.action_type,
			action_config  = excluded.action_config,
			enabled        = excluded.enabled,
			updated_at     = excluded.updated_at`,
		a.ID, a.Name, string(a.TriggerType), triggerJSON, string(a.ActionType),
		actionJSON, a.Enabled, a.TriggerCount, a.SuccessCount, a.FailureCount,
		nullTime(a.LastTriggered), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("sqlite: failed to upsert automation: %w", err)
	}

	// The upsert may have kept the original row's ID; read it back by name.
	var id string
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM automations WHERE name = ?`, a.Name).Scan(&id); err != nil {
		return "", fmt.Errorf("sqlite: failed to read back automation ID: %w", err)
	}
	return id, nil
}

// GetAutomation retrieves an automation by ID.
func (s *Store) GetAutomation(ctx context.Context, id string) (*types.Automation, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: automation ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+automationColumns+` FROM automations WHERE id = ?`, id)
	a, err := scanAutomation(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get automation: %w", err)
	}
	return a, nil
}

// ListEnabledAutomations returns all automations eligible for evaluation.
func (s *Store) ListEnabledAutomations(ctx context.Context) ([]*types.Automation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+automationColumns+` FROM automations WHERE enabled = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list automations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Automation
	for rows.Next() {
		a, err := scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan automation: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// RecordFire atomically increments trigger_count plus exactly one of
// success_count/failure_count and advances last_triggered. A hook failure
// never prevents last_triggered from advancing.
func (s *Store) RecordFire(ctx context.Context, id string, success bool, firedAt time.Time) error {
	if id == "" {
		return fmt.Errorf("%w: automation ID is required", storage.ErrInvalidInput)
	}

	successDelta, failureDelta := 0, 1
	if success {
		successDelta, failureDelta = 1, 0
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE automations
		SET trigger_count  = trigger_count + 1,
		    success_count  = success_count + ?,
		    failure_count  = failure_count + ?,
		    last_triggered = ?,
		    updated_at     = ?
		WHERE id = ?`, successDelta, failureDelta, firedAt, firedAt, id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to record automation fire: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanAutomation reads one automation row in automationColumns order.
func scanAutomation(row rowScanner) (*types.Automation, error) {
	var (
		a                        types.Automation
		triggerType, actionType  string
		triggerJSON, actionJSON  []byte
		lastTriggered            sql.NullTime
	)

	err := row.Scan(&a.ID, &a.Name, &triggerType, &triggerJSON, &actionType,
		&actionJSON, &a.Enabled, &a.TriggerCount, &a.SuccessCount,
		&a.FailureCount, &lastTriggered, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	a.TriggerType = types.TriggerType(triggerType)
	a.ActionType = types.ActionType(actionType)
	a.LastTriggered = timePtr(lastTriggered)
	if err := unmarshalJSON(triggerJSON, &a.TriggerConfig); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(actionJSON, &a.ActionConfig); err != nil {
		return nil, err
	}
	return &a, nil
}
