package vector

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
	pgvector "github.com/pgvector/pgvector-go"
)

// PgvectorIndex backs the similarity index with a Postgres table and the
// pgvector extension, for deployments that already run Postgres and want
// an indexed ANN search instead of the in-memory scan. The <=> operator
// is cosine distance, so similarity = 1 - distance.
type PgvectorIndex struct {
	db  *sql.DB
	dim int
}

// NewPgvectorIndex connects to Postgres, enables the pgvector extension
// and creates the vectors table for the given dimension.
func NewPgvectorIndex(dsn string, dim int) (*PgvectorIndex, error) {
	if dim < 1 {
		return nil, fmt.Errorf("pgvector: dimension must be positive")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgvector: failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pgvector: failed to ping database: %w", err)
	}

	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pgvector: extension not available: %w", err)
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS memory_vectors (
			id        TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL
		)`, dim)
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("pgvector: failed to create vectors table: %w", err)
	}

	// ivfflat needs rows before it builds useful lists; IF NOT EXISTS keeps
	// repeated startups idempotent.
	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_memory_vectors_cosine
		ON memory_vectors USING ivfflat (embedding vector_cosine_ops)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("pgvector: failed to create ANN index: %w", err)
	}

	return &PgvectorIndex{db: db, dim: dim}, nil
}

// Insert adds or replaces the vector for id.
func (x *PgvectorIndex) Insert(ctx context.Context, id string, vec []float64) error {
	if id == "" || len(vec) == 0 {
		return fmt.Errorf("pgvector: id and vector are required")
	}
	if len(vec) != x.dim {
		return fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(vec), x.dim)
	}

	_, err := x.db.ExecContext(ctx, `
		INSERT INTO memory_vectors (id, embedding)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET embedding = excluded.embedding`,
		id, pgvector.NewVector(toFloat32(vec)))
	if err != nil {
		return fmt.Errorf("pgvector: failed to insert vector: %w", err)
	}
	return nil
}

// Search returns up to k matches ordered by similarity descending.
func (x *PgvectorIndex) Search(ctx context.Context, vec []float64, k int) ([]Match, error) {
	if len(vec) == 0 || k < 1 {
		return nil, nil
	}
	if len(vec) != x.dim {
		return nil, fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(vec), x.dim)
	}

	rows, err := x.db.QueryContext(ctx, `
		SELECT id, embedding <=> $1 AS distance
		FROM memory_vectors
		ORDER BY distance
		LIMIT $2`, pgvector.NewVector(toFloat32(vec)), k)
	if err != nil {
		return nil, fmt.Errorf("pgvector: search failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []Match
	for rows.Next() {
		var id string
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, fmt.Errorf("pgvector: failed to scan match: %w", err)
		}
		matches = append(matches, Match{ID: id, Similarity: 1 - distance})
	}
	return matches, rows.Err()
}

// Remove deletes the vector for id. Unknown ids are a no-op.
func (x *PgvectorIndex) Remove(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if _, err := x.db.ExecContext(ctx,
		`DELETE FROM memory_vectors WHERE id = $1`, id); err != nil {
		return fmt.Errorf("pgvector: failed to delete vector: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (x *PgvectorIndex) Close() error {
	return x.db.Close()
}
