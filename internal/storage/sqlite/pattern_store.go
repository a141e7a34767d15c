package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/continuo/continuo/internal/storage"
	"github.com/continuo/continuo/pkg/types"
)

const patternColumns = `
	id, pattern_type, pattern_key, pattern_data, confidence, occurrences,
	last_observed, created_at, updated_at`

// GetPatternByKey retrieves a learning pattern by its pattern key.
func (s *Store) GetPatternByKey(ctx context.Context, key string) (*types.LearningPattern, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: pattern key is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+patternColumns+` FROM patterns WHERE pattern_key = ?`, key)
	p, err := scanPattern(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get pattern: %w", err)
	}
	return p, nil
}

// UpsertPattern creates or replaces the pattern keyed by p.PatternKey.
func (s *Store) UpsertPattern(ctx context.Context, p *types.LearningPattern) error {
	if p == nil {
		return storage.ErrInvalidInput
	}
	if p.ID == "" {
		return fmt.Errorf("%w: pattern ID is required", storage.ErrInvalidInput)
	}
	if p.PatternKey == "" {
		return fmt.Errorf("%w: pattern key is required", storage.ErrInvalidInput)
	}

	dataJSON, err := marshalJSON(p.PatternData)
	if err != nil {
		return err
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO patterns (`+patternColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pattern_key) DO UPDATE SET
			pattern_type  = excluded.pattern_type,
			pattern_data  = excluded.pattern_data,
			confidence    = excluded.confidence,
			occurrences   = excluded.occurrences,
			last_observed = excluded.last_observed,
			updated_at    = excluded.updated_at`,
		p.ID, p.PatternType, p.PatternKey, dataJSON, p.Confidence,
		p.Occurrences, p.LastObserved, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: failed to upsert pattern: %w", err)
	}
	return nil
}

// ListPatterns lists patterns ordered by confidence descending.
func (s *Store) ListPatterns(ctx context.Context, limit int) ([]*types.LearningPattern, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+patternColumns+` FROM patterns
		ORDER BY confidence DESC, occurrences DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.LearningPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan pattern: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// scanPattern reads one pattern row in patternColumns order.
func scanPattern(row rowScanner) (*types.LearningPattern, error) {
	var (
		p        types.LearningPattern
		dataJSON []byte
	)

	err := row.Scan(&p.ID, &p.PatternType, &p.PatternKey, &dataJSON,
		&p.Confidence, &p.Occurrences, &p.LastObserved, &p.CreatedAt,
		&p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSON(dataJSON, &p.PatternData); err != nil {
		return nil, err
	}
	return &p, nil
}
