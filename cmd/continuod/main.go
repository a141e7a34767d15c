// cmd/continuod is the Continuo core daemon. It wires the SQLite store,
// the vector index, and the embedding gateway into the engine Core and
// runs the periodic workers until it receives SIGINT or SIGTERM.
//
// Startup sequence:
//  1. Load configuration from environment variables.
//  2. Open the SQLite database and apply the schema.
//  3. Build the vector index (embedded chromem by default, pgvector when
//     configured) and the embedding gateway client.
//  4. Create the Core, rebuild the index from stored embeddings, and
//     start the decay sweep, automation tick and pattern extraction
//     workers.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/continuo/continuo/internal/config"
	"github.com/continuo/continuo/internal/embedding"
	"github.com/continuo/continuo/internal/engine"
	"github.com/continuo/continuo/internal/storage/sqlite"
	"github.com/continuo/continuo/internal/vector"
)

func main() {
	log.SetPrefix("continuod: ")
	log.SetFlags(log.LstdFlags)

	cfg := config.Load()

	if dir := filepath.Dir(cfg.Storage.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			log.Fatalf("failed to create data directory %q: %v", dir, err)
		}
	}

	store, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	index, err := buildIndex(cfg)
	if err != nil {
		log.Fatalf("failed to build vector index: %v", err)
	}

	gateway := embedding.NewOllamaClient(embedding.OllamaConfig{
		BaseURL:           cfg.Embedding.URL,
		Model:             cfg.Embedding.Model,
		Timeout:           cfg.Embedding.Timeout,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
	})

	core := engine.NewCore(cfg, store, index, gateway, engine.NewHTTPHookExecutor(nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := core.Start(ctx); err != nil {
		log.Fatalf("failed to start engine: %v", err)
	}

	<-ctx.Done()
	log.Printf("shutting down")
	if err := core.Shutdown(); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// buildIndex selects the vector backend from configuration.
func buildIndex(cfg *config.Config) (vector.Index, error) {
	switch cfg.Storage.VectorBackend {
	case "pgvector":
		return vector.NewPgvectorIndex(cfg.Storage.PostgresDSN, cfg.Storage.VectorDim)
	default:
		return vector.NewChromemIndex()
	}
}
