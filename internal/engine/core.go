package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/continuo/continuo/internal/config"
	"github.com/continuo/continuo/internal/embedding"
	"github.com/continuo/continuo/internal/storage"
	"github.com/continuo/continuo/internal/vector"
)

// Core owns the services and the periodic workers: the decay sweep, the
// automation tick, and the pattern extraction loop on its slower cadence.
// Synchronous operations (write, retrieve, transition) go straight to the
// services; the workers run until Shutdown.
type Core struct {
	cfg   *config.Config
	store storage.Store

	Memories    *MemoryService
	Tasks       *TaskService
	Decisions   *DecisionService
	Automations *AutomationEngine
	Contexts    *ContextService

	extractor *PatternExtractor

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCore wires the services together over one store, vector index,
// embedding gateway and hook executor.
func NewCore(cfg *config.Config, store storage.Store, index vector.Index, gateway embedding.Gateway, hooks HookExecutor) *Core {
	locks := NewAdvisoryLocks()
	memories := NewMemoryService(store, index, gateway, cfg.Scoring, locks)
	tasks := NewTaskService(store, cfg.Scoring)
	return &Core{
		cfg:         cfg,
		store:       store,
		Memories:    memories,
		Tasks:       tasks,
		Decisions:   NewDecisionService(store),
		Automations: NewAutomationEngine(store, memories, tasks, hooks, cfg.Hooks.Timeout),
		Contexts:    NewContextService(store),
		extractor:   NewPatternExtractor(store, store, store),
	}
}

// Start rebuilds the vector index from the store and launches the
// periodic workers. It returns once the workers are running.
func (c *Core) Start(ctx context.Context) error {
	if err := c.Memories.RebuildIndex(ctx); err != nil {
		return fmt.Errorf("failed to rebuild vector index: %w", err)
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(3)
	go c.sweepLoop(ctx)
	go c.tickLoop(ctx)
	go c.extractLoop(ctx)

	log.Printf("engine: started (sweep %s, tick %s, extract %s)",
		c.cfg.Workers.SweepInterval, c.cfg.Workers.TickInterval, c.cfg.Workers.ExtractInterval)
	return nil
}

// Shutdown stops the workers, waits for in-flight hook invocations to
// finish their bookkeeping, and closes the store.
func (c *Core) Shutdown() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.Automations.Drain()
	log.Printf("engine: stopped")
	return c.store.Close()
}

// sweepLoop runs the memory decay sweep and snapshot pruning.
func (c *Core) sweepLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.Workers.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := c.Memories.Sweep(ctx, now); err != nil {
				log.Printf("engine: decay sweep failed: %v", err)
			}
			if n, err := c.Contexts.Prune(ctx, now); err != nil {
				log.Printf("engine: snapshot prune failed: %v", err)
			} else if n > 0 {
				log.Printf("engine: pruned %d expired snapshots", n)
			}
		}
	}
}

// tickLoop drives the automation trigger engine. Events arrive through
// explicit Tick calls from the caller layer; the periodic tick passes
// none.
func (c *Core) tickLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.Workers.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := c.Automations.Tick(ctx, now, nil); err != nil {
				log.Printf("engine: automation tick failed: %v", err)
			}
		}
	}
}

// extractLoop runs the pattern extractor on its slower cadence.
func (c *Core) extractLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.Workers.ExtractInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.extractor.Run(ctx); err != nil {
				log.Printf("engine: pattern extraction failed: %v", err)
			}
		}
	}
}

// ExtractPatterns runs one pattern-extraction pass immediately, outside
// the periodic cadence. Used by callers that want patterns refreshed
// right after evaluating a batch of decisions.
func (c *Core) ExtractPatterns(ctx context.Context) (int, error) {
	return c.extractor.Run(ctx)
}
