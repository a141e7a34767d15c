package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "./data/continuo.db", cfg.Storage.Path)
	assert.Equal(t, "chromem", cfg.Storage.VectorBackend)
	assert.Equal(t, 768, cfg.Storage.VectorDim)

	assert.Equal(t, "http://localhost:11434", cfg.Embedding.URL)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, 5*time.Second, cfg.Embedding.Timeout)

	// Each weight set sums to 1.
	assert.InDelta(t, 1.0, cfg.Scoring.UrgencyWeight+cfg.Scoring.ImportanceWeight, 1e-9)
	assert.InDelta(t, 1.0,
		cfg.Scoring.SimilarityWeight+cfg.Scoring.RankImportanceWeight+cfg.Scoring.RecencyWeight, 1e-9)

	assert.Equal(t, 0.3, cfg.Scoring.DecayThreshold)
	assert.Equal(t, 30*24*time.Hour, cfg.Scoring.DecayWindow)

	// Pattern extraction runs on a slower cadence than the trigger tick.
	assert.Greater(t, cfg.Workers.ExtractInterval, cfg.Workers.TickInterval)
	assert.Equal(t, 10*time.Second, cfg.Hooks.Timeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONTINUO_DB_PATH", "/tmp/test.db")
	t.Setenv("CONTINUO_VECTOR_BACKEND", "pgvector")
	t.Setenv("CONTINUO_VECTOR_DIM", "1024")
	t.Setenv("CONTINUO_DECAY_THRESHOLD", "0.5")
	t.Setenv("CONTINUO_SWEEP_INTERVAL", "30m")

	cfg := Load()
	assert.Equal(t, "/tmp/test.db", cfg.Storage.Path)
	assert.Equal(t, "pgvector", cfg.Storage.VectorBackend)
	assert.Equal(t, 1024, cfg.Storage.VectorDim)
	assert.Equal(t, 0.5, cfg.Scoring.DecayThreshold)
	assert.Equal(t, 30*time.Minute, cfg.Workers.SweepInterval)
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("CONTINUO_VECTOR_DIM", "not a number")
	t.Setenv("CONTINUO_SWEEP_INTERVAL", "soon")
	t.Setenv("CONTINUO_DECAY_THRESHOLD", "low")

	cfg := Load()
	assert.Equal(t, 768, cfg.Storage.VectorDim)
	assert.Equal(t, time.Hour, cfg.Workers.SweepInterval)
	assert.Equal(t, 0.3, cfg.Scoring.DecayThreshold)
}
