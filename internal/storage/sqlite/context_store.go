package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/continuo/continuo/internal/storage"
	"github.com/continuo/continuo/pkg/types"
)

// PutSnapshot upserts the row for (session_id, context_type). Last write
// wins; there is no versioning.
func (s *Store) PutSnapshot(ctx context.Context, snap *types.ContextSnapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}
	if snap.SessionID == "" || snap.ContextType == "" {
		return fmt.Errorf("%w: session_id and context_type are required", storage.ErrInvalidInput)
	}
	if snap.ExpiresAt.IsZero() {
		return fmt.Errorf("%w: expires_at is required", storage.ErrInvalidInput)
	}

	dataJSON, err := marshalJSON(snap.ContextData)
	if err != nil {
		return err
	}

	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = snap.CreatedAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO context_snapshots
			(session_id, context_type, context_data, importance, expires_at,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, context_type) DO UPDATE SET
			context_data = excluded.context_data,
			importance   = excluded.importance,
			expires_at   = excluded.expires_at,
			updated_at   = excluded.updated_at`,
		snap.SessionID, snap.ContextType, dataJSON, snap.Importance,
		snap.ExpiresAt, snap.CreatedAt, snap.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: failed to put context snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the snapshot for (session_id, context_type), or
// ErrNotFound when the row is absent or its TTL has passed.
func (s *Store) GetSnapshot(ctx context.Context, sessionID, contextType string, now time.Time) (*types.ContextSnapshot, error) {
	if sessionID == "" || contextType == "" {
		return nil, fmt.Errorf("%w: session_id and context_type are required", storage.ErrInvalidInput)
	}

	var (
		snap     types.ContextSnapshot
		dataJSON []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, context_type, context_data, importance, expires_at,
			created_at, updated_at
		FROM context_snapshots
		WHERE session_id = ? AND context_type = ? AND expires_at >= ?`,
		sessionID, contextType, now).
		Scan(&snap.SessionID, &snap.ContextType, &dataJSON, &snap.Importance,
			&snap.ExpiresAt, &snap.CreatedAt, &snap.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get context snapshot: %w", err)
	}

	if err := unmarshalJSON(dataJSON, &snap.ContextData); err != nil {
		return nil, err
	}
	return &snap, nil
}

// PruneSnapshots deletes rows whose TTL has passed and returns the count.
func (s *Store) PruneSnapshots(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM context_snapshots WHERE expires_at < ?`, now)
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to prune context snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to count pruned snapshots: %w", err)
	}
	return int(n), nil
}
