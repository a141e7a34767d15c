// Package sqlite implements the storage interfaces on SQLite. It is the
// default backend: a single-file durable store with WAL mode for read
// concurrency and a single writer connection to avoid SQLITE_BUSY errors.
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/continuo/continuo/internal/storage"
)

// Ensure *Store satisfies the full composite interface at compile time.
var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at the given DSN, configures
// WAL mode and applies the embedded schema. Pass ":memory:" for tests.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes; WAL mode lets readers proceed without blocking it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable WAL mode: %w", err)
	}

	// Wait instead of failing when the connection is held by another goroutine.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying database handle, used for direct operations
// such as settings persistence in tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// marshalJSON serialises v to JSON for a nullable TEXT column. nil maps
// and empty slices are stored as NULL.
func marshalJSON(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case map[string]interface{}:
		if len(t) == 0 {
			return nil, nil
		}
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	case nil:
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to marshal JSON column: %w", err)
	}
	return data, nil
}

// unmarshalJSON deserialises a nullable JSON TEXT column into out. A NULL
// or empty column leaves out untouched.
func unmarshalJSON(data []byte, out interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("sqlite: failed to unmarshal JSON column: %w", err)
	}
	return nil
}

// nullTime converts an optional timestamp to its database representation.
func nullTime(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return *t
}

// timePtr converts a scanned sql.NullTime back to an optional timestamp.
func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// serializeEmbedding packs a float64 vector into a little-endian BLOB.
// A nil or empty vector is stored as NULL.
func serializeEmbedding(vec []float64) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, len(vec)*8)
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// deserializeEmbedding unpacks a little-endian BLOB into a float64 vector.
func deserializeEmbedding(buf []byte) ([]float64, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("sqlite: embedding blob length %d is not a multiple of 8", len(buf))
	}
	vec := make([]float64, len(buf)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return vec, nil
}
