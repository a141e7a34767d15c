package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/continuo/continuo/internal/storage"
	"github.com/continuo/continuo/pkg/types"
)

// cronParser accepts standard five-field schedules plus descriptors like
// @daily and @hourly.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Event is an external notification passed into a tick. Event triggers
// only fire in response to these; they are never polled.
type Event struct {
	Name    string                 `json:"name"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Snapshot is the consistent view of core state taken once at the start
// of a tick. Every automation evaluated in that tick sees the same
// snapshot, so a condition flapping mid-tick cannot fire twice and
// cross-automation races within a tick are impossible.
type Snapshot struct {
	TakenAt        time.Time
	MemoryCounts   map[types.MemoryType]int
	TaskCounts     map[types.TaskStatus]int
	DecisionCounts map[types.DecisionOutcome]int
}

// Metric resolves a dotted metric name ("tasks.pending",
// "memories.total", "decisions.failure") against the snapshot.
func (s *Snapshot) Metric(name string) (float64, bool) {
	group, key, ok := strings.Cut(name, ".")
	if !ok {
		return 0, false
	}
	switch group {
	case "memories":
		if key == "total" {
			total := 0
			for _, n := range s.MemoryCounts {
				total += n
			}
			return float64(total), true
		}
		if !validMemoryType(types.MemoryType(key)) {
			return 0, false
		}
		return float64(s.MemoryCounts[types.MemoryType(key)]), true
	case "tasks":
		if key == "total" {
			total := 0
			for _, n := range s.TaskCounts {
				total += n
			}
			return float64(total), true
		}
		if !types.ValidTaskStatus(types.TaskStatus(key)) {
			return 0, false
		}
		return float64(s.TaskCounts[types.TaskStatus(key)]), true
	case "decisions":
		if key == "total" {
			total := 0
			for _, n := range s.DecisionCounts {
				total += n
			}
			return float64(total), true
		}
		outcome := types.DecisionOutcome(key)
		if outcome != types.OutcomeUnknown && !types.TerminalOutcome(outcome) {
			return 0, false
		}
		return float64(s.DecisionCounts[outcome]), true
	}
	return 0, false
}

// HookExecutor invokes an external hook described by the automation's
// action config. Implementations must honor ctx cancellation; the engine
// bounds every invocation with a timeout.
type HookExecutor interface {
	Invoke(ctx context.Context, config map[string]interface{}) error
}

// FireResult reports one automation fired by a tick. For hook actions the
// invocation is dispatched asynchronously; Pending is true and Success is
// unknown until the hook's own bookkeeping lands.
type FireResult struct {
	AutomationID string           `json:"automation_id"`
	Name         string           `json:"name"`
	ActionType   types.ActionType `json:"action_type"`
	Success      bool             `json:"success"`
	Pending      bool             `json:"pending,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// AutomationEngine evaluates standing rules on a fixed cadence. Each tick
// takes one consistent snapshot, evaluates every enabled automation
// against it, and executes matching actions. Bookkeeping keeps
// trigger_count == success_count + failure_count, and last_triggered
// always advances on a fire, hook failure included.
type AutomationEngine struct {
	store       storage.Store
	memories    *MemoryService
	tasks       *TaskService
	hooks       HookExecutor
	hookTimeout time.Duration

	// inflight guards automations whose hook is still running, so a rule
	// cannot re-fire between dispatch and the completion bookkeeping.
	mu       sync.Mutex
	inflight map[string]bool
	hookWG   sync.WaitGroup
}

// NewAutomationEngine creates an automation engine.
func NewAutomationEngine(store storage.Store, memories *MemoryService, tasks *TaskService, hooks HookExecutor, hookTimeout time.Duration) *AutomationEngine {
	if hookTimeout <= 0 {
		hookTimeout = 10 * time.Second
	}
	return &AutomationEngine{
		store:       store,
		memories:    memories,
		tasks:       tasks,
		hooks:       hooks,
		hookTimeout: hookTimeout,
		inflight:    make(map[string]bool),
	}
}

// Upsert creates or replaces the automation named a.Name and returns its
// ID. Trigger and action configs are validated up front so a bad schedule
// or unknown metric fails here rather than silently at tick time.
func (e *AutomationEngine) Upsert(ctx context.Context, a *types.Automation) (string, error) {
	if a == nil || a.Name == "" {
		return "", fmt.Errorf("%w: name is required", storage.ErrInvalidInput)
	}
	if !types.ValidTriggerType(a.TriggerType) {
		return "", fmt.Errorf("%w: unknown trigger_type %q", storage.ErrInvalidInput, a.TriggerType)
	}
	if !types.ValidActionType(a.ActionType) {
		return "", fmt.Errorf("%w: unknown action_type %q", storage.ErrInvalidInput, a.ActionType)
	}
	switch a.TriggerType {
	case types.TriggerTime:
		schedule, _ := a.TriggerConfig["schedule"].(string)
		if schedule == "" {
			return "", fmt.Errorf("%w: time trigger requires a schedule", storage.ErrInvalidInput)
		}
		if _, err := cronParser.Parse(schedule); err != nil {
			return "", fmt.Errorf("%w: bad schedule %q: %v", storage.ErrInvalidInput, schedule, err)
		}
	case types.TriggerCondition:
		if _, err := parseCondition(a.TriggerConfig); err != nil {
			return "", err
		}
	case types.TriggerEvent:
		if name, _ := a.TriggerConfig["event"].(string); name == "" {
			return "", fmt.Errorf("%w: event trigger requires an event name", storage.ErrInvalidInput)
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return e.store.UpsertAutomation(ctx, a)
}

// Tick evaluates every enabled automation against a single snapshot taken
// at the start of the call and executes matching actions. Hook actions
// are dispatched in their own goroutines with a bounded timeout; the tick
// returns once all invocations are dispatched, not completed, so one slow
// hook cannot stall the tick for other automations.
func (e *AutomationEngine) Tick(ctx context.Context, now time.Time, events []Event) ([]FireResult, error) {
	snap, err := e.takeSnapshot(ctx, now)
	if err != nil {
		return nil, err
	}
	autos, err := e.store.ListEnabledAutomations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list automations: %w", err)
	}

	var fired []FireResult
	for _, a := range autos {
		if e.isInflight(a.ID) {
			continue
		}
		due, err := e.due(a, snap, now, events)
		if err != nil {
			log.Printf("automation: skipping %s: %v", a.Name, err)
			continue
		}
		if !due {
			continue
		}
		fired = append(fired, e.execute(ctx, a, now))
	}
	return fired, nil
}

// takeSnapshot queries the per-type counts once; the returned snapshot is
// immutable for the rest of the tick.
func (e *AutomationEngine) takeSnapshot(ctx context.Context, now time.Time) (*Snapshot, error) {
	memories, err := e.store.CountMemoriesByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count memories: %w", err)
	}
	tasks, err := e.store.CountTasksByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	decisions, err := e.store.CountDecisionsByOutcome(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count decisions: %w", err)
	}
	return &Snapshot{
		TakenAt:        now,
		MemoryCounts:   memories,
		TaskCounts:     tasks,
		DecisionCounts: decisions,
	}, nil
}

// due decides whether the automation's trigger matches this tick.
func (e *AutomationEngine) due(a *types.Automation, snap *Snapshot, now time.Time, events []Event) (bool, error) {
	switch a.TriggerType {
	case types.TriggerTime:
		schedule, _ := a.TriggerConfig["schedule"].(string)
		sched, err := cronParser.Parse(schedule)
		if err != nil {
			return false, fmt.Errorf("bad schedule %q: %w", schedule, err)
		}
		// The baseline is the last fire; the rule is due once the next
		// scheduled instant after it has passed. Ticking faster than the
		// schedule never double-fires within a window.
		baseline := a.CreatedAt
		if a.LastTriggered != nil {
			baseline = *a.LastTriggered
		}
		return !sched.Next(baseline).After(now), nil
	case types.TriggerCondition:
		cond, err := parseCondition(a.TriggerConfig)
		if err != nil {
			return false, err
		}
		value, ok := snap.Metric(cond.Metric)
		if !ok {
			return false, fmt.Errorf("unknown metric %q", cond.Metric)
		}
		return cond.holds(value), nil
	case types.TriggerEvent:
		want, _ := a.TriggerConfig["event"].(string)
		for _, ev := range events {
			if ev.Name == want {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("unknown trigger_type %q", a.TriggerType)
}

// execute runs the automation's action and records the fire. Synchronous
// actions (create_task, write_memory) record immediately; hooks record
// from their completion goroutine so the counters reflect the hook's own
// result.
func (e *AutomationEngine) execute(ctx context.Context, a *types.Automation, now time.Time) FireResult {
	result := FireResult{AutomationID: a.ID, Name: a.Name, ActionType: a.ActionType}

	switch a.ActionType {
	case types.ActionInvokeHook:
		e.setInflight(a.ID, true)
		result.Pending = true
		e.hookWG.Add(1)
		go func() {
			defer e.hookWG.Done()
			defer e.setInflight(a.ID, false)
			// The hook outlives the tick's context; only the bounded
			// timeout governs it.
			hctx, cancel := context.WithTimeout(context.Background(), e.hookTimeout)
			defer cancel()
			err := e.hooks.Invoke(hctx, a.ActionConfig)
			if err != nil {
				log.Printf("automation: hook for %s failed: %v", a.Name, err)
			}
			e.recordFire(a, err == nil, now)
		}()
		return result

	case types.ActionCreateTask:
		err := e.actionCreateTask(ctx, a.ActionConfig)
		result.Success = err == nil
		if err != nil {
			result.Error = err.Error()
			log.Printf("automation: create_task for %s failed: %v", a.Name, err)
		}
		e.recordFire(a, err == nil, now)
		return result

	case types.ActionWriteMemory:
		err := e.actionWriteMemory(ctx, a.ActionConfig)
		result.Success = err == nil
		if err != nil {
			result.Error = err.Error()
			log.Printf("automation: write_memory for %s failed: %v", a.Name, err)
		}
		e.recordFire(a, err == nil, now)
		return result
	}

	result.Error = fmt.Sprintf("unknown action_type %q", a.ActionType)
	e.recordFire(a, false, now)
	return result
}

func (e *AutomationEngine) recordFire(a *types.Automation, success bool, firedAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.store.RecordFire(ctx, a.ID, success, firedAt); err != nil {
		log.Printf("automation: failed to record fire for %s: %v", a.Name, err)
	}
}

func (e *AutomationEngine) actionCreateTask(ctx context.Context, cfg map[string]interface{}) error {
	title, _ := cfg["title"].(string)
	description, _ := cfg["description"].(string)
	t := &types.Task{
		Title:       title,
		Description: description,
		Urgency:     floatConfig(cfg, "urgency"),
		Importance:  floatConfig(cfg, "importance"),
		CreatedBy:   "automation",
	}
	_, err := e.tasks.Create(ctx, t)
	return err
}

func (e *AutomationEngine) actionWriteMemory(ctx context.Context, cfg map[string]interface{}) error {
	title, _ := cfg["title"].(string)
	category, _ := cfg["category"].(string)
	memType, _ := cfg["memory_type"].(string)
	if memType == "" {
		memType = string(types.MemoryTypeEvent)
	}
	content, _ := cfg["content"].(map[string]interface{})
	m := &types.Memory{
		MemoryType:      types.MemoryType(memType),
		Category:        category,
		Title:           title,
		Content:         content,
		ImportanceScore: floatConfig(cfg, "importance"),
	}
	_, err := e.memories.Write(ctx, m)
	return err
}

// Drain blocks until every dispatched hook invocation has completed its
// bookkeeping. Used at shutdown and in tests.
func (e *AutomationEngine) Drain() {
	e.hookWG.Wait()
}

func (e *AutomationEngine) isInflight(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inflight[id]
}

func (e *AutomationEngine) setInflight(id string, v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v {
		e.inflight[id] = true
	} else {
		delete(e.inflight, id)
	}
}

// condition is a parsed predicate over one snapshot metric.
type condition struct {
	Metric string
	Op     string
	Value  float64
}

func (c condition) holds(value float64) bool {
	switch c.Op {
	case ">":
		return value > c.Value
	case ">=":
		return value >= c.Value
	case "<":
		return value < c.Value
	case "<=":
		return value <= c.Value
	case "==":
		return value == c.Value
	}
	return false
}

func parseCondition(cfg map[string]interface{}) (condition, error) {
	metric, _ := cfg["metric"].(string)
	op, _ := cfg["op"].(string)
	if metric == "" || op == "" {
		return condition{}, fmt.Errorf("%w: condition trigger requires metric and op", storage.ErrInvalidInput)
	}
	switch op {
	case ">", ">=", "<", "<=", "==":
	default:
		return condition{}, fmt.Errorf("%w: unknown operator %q", storage.ErrInvalidInput, op)
	}
	return condition{Metric: metric, Op: op, Value: floatConfig(cfg, "value")}, nil
}

// floatConfig reads a numeric config value that may arrive as float64 or
// int depending on how the document was decoded.
func floatConfig(cfg map[string]interface{}, key string) float64 {
	switch v := cfg[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
