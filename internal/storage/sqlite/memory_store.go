package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/continuo/continuo/internal/storage"
	"github.com/continuo/continuo/pkg/types"
)

const memoryColumns = `
	id, memory_type, category, title, content, embedding,
	importance_score, tags, metadata,
	created_at, updated_at, last_accessed, accessed_count, expires_at`

// InsertMemory durably writes a new memory record.
func (s *Store) InsertMemory(ctx context.Context, m *types.Memory) error {
	if m == nil {
		return storage.ErrInvalidInput
	}
	if m.ID == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}
	if m.Title == "" {
		return fmt.Errorf("%w: memory title is required", storage.ErrInvalidInput)
	}
	if m.MemoryType == "" {
		return fmt.Errorf("%w: memory type is required", storage.ErrInvalidInput)
	}

	contentJSON, err := marshalJSON(m.Content)
	if err != nil {
		return err
	}
	tagsJSON, err := marshalJSON(m.Tags)
	if err != nil {
		return err
	}
	metadataJSON, err := marshalJSON(m.Metadata)
	if err != nil {
		return err
	}

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memories (`+memoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, string(m.MemoryType), m.Category, m.Title, contentJSON,
		serializeEmbedding(m.Embedding), m.ImportanceScore, tagsJSON,
		metadataJSON, m.CreatedAt, m.UpdatedAt, nullTime(m.LastAccessed),
		m.AccessedCount, nullTime(m.ExpiresAt))
	if err != nil {
		return fmt.Errorf("sqlite: failed to insert memory: %w", err)
	}
	return nil
}

// GetMemory retrieves a memory by ID.
func (s *Store) GetMemory(ctx context.Context, id string) (*types.Memory, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get memory: %w", err)
	}
	return m, nil
}

// GetMemories retrieves multiple memories by ID. Missing IDs are skipped;
// the result order follows the input order.
func (s *Store) GetMemories(ctx context.Context, ids []string) ([]*types.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get memories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[string]*types.Memory, len(ids))
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan memory: %w", err)
		}
		byID[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: memory iteration failed: %w", err)
	}

	out := make([]*types.Memory, 0, len(byID))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// ListMemories lists memories matching the filter, newest first.
func (s *Store) ListMemories(ctx context.Context, f storage.MemoryFilter) ([]*types.Memory, error) {
	f.Normalize()

	var conds []string
	var args []interface{}
	if f.MemoryType != "" {
		conds = append(conds, "memory_type = ?")
		args = append(args, string(f.MemoryType))
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}

	query := `SELECT ` + memoryColumns + ` FROM memories`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, f.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list memories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan memory: %w", err)
		}
		// Tag filtering happens here; tags live in a JSON column.
		if f.Matches(m) {
			out = append(out, m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: memory iteration failed: %w", err)
	}
	return out, nil
}

// ListEmbedded returns the embeddings of all memories with a non-null
// embedding, keyed by memory ID. Used to rebuild the vector index.
func (s *Store) ListEmbedded(ctx context.Context) (map[string][]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, embedding FROM memories WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string][]float64)
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan embedding: %w", err)
		}
		vec, err := deserializeEmbedding(blob)
		if err != nil {
			return nil, err
		}
		if len(vec) > 0 {
			out[id] = vec
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: embedding iteration failed: %w", err)
	}
	return out, nil
}

// UpdateEmbedding backfills the embedding for a memory written while the
// gateway was unavailable and clears the embedding_pending marker.
func (s *Store) UpdateEmbedding(ctx context.Context, id string, embedding []float64) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("%w: embedding cannot be empty", storage.ErrInvalidInput)
	}

	m, err := s.GetMemory(ctx, id)
	if err != nil {
		return err
	}
	if m.Metadata != nil {
		delete(m.Metadata, "embedding_pending")
	}
	metadataJSON, err := marshalJSON(m.Metadata)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE memories SET embedding = ?, metadata = ?, updated_at = ?
		WHERE id = ?`,
		serializeEmbedding(embedding), metadataJSON, time.Now(), id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to update embedding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// TouchMemories increments accessed_count and sets last_accessed for the
// given IDs in a single statement.
func (s *Store) TouchMemories(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, at)
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE memories
		SET accessed_count = accessed_count + 1, last_accessed = ?
		WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("sqlite: failed to touch memories: %w", err)
	}
	return nil
}

// DeleteMemory removes a memory by ID.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete memory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SweepMemories deletes every record that is expired OR both unimportant
// and stale, and returns the deleted IDs. The two arms are a logical OR:
// an expired record is deleted regardless of importance, and a low-value
// stale record is deleted regardless of expiry. Records never accessed
// fall back to created_at for staleness.
func (s *Store) SweepMemories(ctx context.Context, c storage.SweepCriteria) ([]string, error) {
	cutoff := c.Now.Add(-c.DecayWindow)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to begin sweep: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const eligible = `
		(expires_at IS NOT NULL AND expires_at < ?)
		OR (importance_score < ? AND COALESCE(last_accessed, created_at) < ?)`

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM memories WHERE `+eligible, c.Now, c.DecayThreshold, cutoff)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to select sweep candidates: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("sqlite: failed to scan sweep candidate: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("sqlite: sweep iteration failed: %w", err)
	}
	_ = rows.Close()

	if len(ids) == 0 {
		return nil, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM memories WHERE `+eligible, c.Now, c.DecayThreshold, cutoff); err != nil {
		return nil, fmt.Errorf("sqlite: failed to delete swept memories: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to commit sweep: %w", err)
	}
	return ids, nil
}

// CountMemoriesByType returns per-type record counts.
func (s *Store) CountMemoriesByType(ctx context.Context) (map[types.MemoryType]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT memory_type, COUNT(*) FROM memories GROUP BY memory_type`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to count memories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[types.MemoryType]int)
	for rows.Next() {
		var mt string
		var n int
		if err := rows.Scan(&mt, &n); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan memory count: %w", err)
		}
		out[types.MemoryType(mt)] = n
	}
	return out, rows.Err()
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanMemory reads one memory row in memoryColumns order.
func scanMemory(row rowScanner) (*types.Memory, error) {
	var (
		m                                 types.Memory
		memoryType                        string
		contentJSON, tagsJSON, metaJSON   []byte
		embeddingBlob                     []byte
		lastAccessed, expiresAt           sql.NullTime
	)

	err := row.Scan(&m.ID, &memoryType, &m.Category, &m.Title, &contentJSON,
		&embeddingBlob, &m.ImportanceScore, &tagsJSON, &metaJSON,
		&m.CreatedAt, &m.UpdatedAt, &lastAccessed, &m.AccessedCount, &expiresAt)
	if err != nil {
		return nil, err
	}

	m.MemoryType = types.MemoryType(memoryType)
	m.LastAccessed = timePtr(lastAccessed)
	m.ExpiresAt = timePtr(expiresAt)

	if m.Embedding, err = deserializeEmbedding(embeddingBlob); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(contentJSON, &m.Content); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(tagsJSON, &m.Tags); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(metaJSON, &m.Metadata); err != nil {
		return nil, err
	}
	return &m, nil
}
