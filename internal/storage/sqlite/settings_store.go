package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/continuo/continuo/internal/storage"
)

// GetSetting retrieves a single setting value by key. Returns ErrNotFound
// when the key does not exist.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: setting key is required", storage.ErrInvalidInput)
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: failed to get setting: %w", err)
	}
	return value, nil
}

// SetSetting writes a key/value pair with upsert semantics.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: setting key is required", storage.ErrInvalidInput)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`, key, value)
	if err != nil {
		return fmt.Errorf("sqlite: failed to set setting: %w", err)
	}
	return nil
}
