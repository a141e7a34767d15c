// Package config provides configuration for the Continuo core. Settings
// are read from environment variables with the CONTINUO_ prefix, with
// sensible defaults for every option.
//
// The scoring weights (task priority, retrieval ranking, decay) are
// deliberately configuration rather than literals: the defaults carry no
// special justification, only the constraint that each weight set sums
// to 1.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all settings for the Continuo core.
type Config struct {
	Storage   StorageConfig
	Embedding EmbeddingConfig
	Scoring   ScoringConfig
	Workers   WorkersConfig
	Hooks     HooksConfig
}

// StorageConfig selects and configures the durable backend.
type StorageConfig struct {
	// Path is the SQLite database path (default: ./data/continuo.db).
	Path string

	// VectorBackend selects the similarity index: "chromem" (embedded,
	// default) or "pgvector" (Postgres with the pgvector extension).
	VectorBackend string

	// PostgresDSN is the connection string for the pgvector backend.
	PostgresDSN string

	// VectorDim is the embedding dimension (default: 768, matching
	// nomic-embed-text). Only the pgvector backend needs it up front.
	VectorDim int
}

// EmbeddingConfig configures the external embedding gateway.
type EmbeddingConfig struct {
	URL               string        // gateway base URL (default: http://localhost:11434)
	Model             string        // embedding model name (default: nomic-embed-text)
	Timeout           time.Duration // per-request bound (default: 5s)
	RequestsPerSecond float64       // gateway rate limit (default: 10)
}

// ScoringConfig holds the tunable weights and thresholds.
type ScoringConfig struct {
	// Task priority = UrgencyWeight*urgency + ImportanceWeight*importance.
	UrgencyWeight    float64
	ImportanceWeight float64

	// Retrieval final score = SimilarityWeight*similarity +
	// RankImportanceWeight*importance + RecencyWeight*recency, where
	// recency = exp(-ageDays/RecencyScaleDays).
	SimilarityWeight     float64
	RankImportanceWeight float64
	RecencyWeight        float64
	RecencyScaleDays     float64

	// DecayThreshold and DecayWindow govern the sweep's staleness arm:
	// importance below the threshold AND unaccessed for the window.
	DecayThreshold float64
	DecayWindow    time.Duration
}

// WorkersConfig sets the cadence of the periodic workers. Pattern
// extraction deliberately runs on a slower cadence than the trigger tick.
type WorkersConfig struct {
	SweepInterval   time.Duration // decay sweep (default: 1h)
	TickInterval    time.Duration // automation trigger tick (default: 1m)
	ExtractInterval time.Duration // pattern extraction (default: 10m)
}

// HooksConfig bounds external hook invocations.
type HooksConfig struct {
	Timeout time.Duration // per-hook bound (default: 10s)
}

// Load reads configuration from the environment with defaults applied.
func Load() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:          getEnv("CONTINUO_DB_PATH", "./data/continuo.db"),
			VectorBackend: getEnv("CONTINUO_VECTOR_BACKEND", "chromem"),
			PostgresDSN:   getEnv("CONTINUO_POSTGRES_DSN", ""),
			VectorDim:     getEnvInt("CONTINUO_VECTOR_DIM", 768),
		},
		Embedding: EmbeddingConfig{
			URL:               getEnv("CONTINUO_EMBEDDING_URL", "http://localhost:11434"),
			Model:             getEnv("CONTINUO_EMBEDDING_MODEL", "nomic-embed-text"),
			Timeout:           getEnvDuration("CONTINUO_EMBEDDING_TIMEOUT", 5*time.Second),
			RequestsPerSecond: getEnvFloat("CONTINUO_EMBEDDING_RPS", 10),
		},
		Scoring: ScoringConfig{
			UrgencyWeight:        getEnvFloat("CONTINUO_PRIORITY_URGENCY_WEIGHT", 0.6),
			ImportanceWeight:     getEnvFloat("CONTINUO_PRIORITY_IMPORTANCE_WEIGHT", 0.4),
			SimilarityWeight:     getEnvFloat("CONTINUO_RANK_SIMILARITY_WEIGHT", 0.7),
			RankImportanceWeight: getEnvFloat("CONTINUO_RANK_IMPORTANCE_WEIGHT", 0.2),
			RecencyWeight:        getEnvFloat("CONTINUO_RANK_RECENCY_WEIGHT", 0.1),
			RecencyScaleDays:     getEnvFloat("CONTINUO_RANK_RECENCY_SCALE_DAYS", 30),
			DecayThreshold:       getEnvFloat("CONTINUO_DECAY_THRESHOLD", 0.3),
			DecayWindow:          getEnvDuration("CONTINUO_DECAY_WINDOW", 30*24*time.Hour),
		},
		Workers: WorkersConfig{
			SweepInterval:   getEnvDuration("CONTINUO_SWEEP_INTERVAL", time.Hour),
			TickInterval:    getEnvDuration("CONTINUO_TICK_INTERVAL", time.Minute),
			ExtractInterval: getEnvDuration("CONTINUO_EXTRACT_INTERVAL", 10*time.Minute),
		},
		Hooks: HooksConfig{
			Timeout: getEnvDuration("CONTINUO_HOOK_TIMEOUT", 10*time.Second),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a
// default. An unparseable value falls back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a
// default. An unparseable value falls back to the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (Go duration
// syntax, e.g. "5s", "1h") or returns a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
