package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/continuo/continuo/internal/storage"
	"github.com/continuo/continuo/pkg/types"
)

// extractorWatermarkKey is the settings key holding the evaluated_at
// high-water mark of the last processed decision.
const extractorWatermarkKey = "pattern_extractor:watermark"

// extractorBatchSize bounds how many decisions one extraction run scans.
const extractorBatchSize = 200

// PatternExtractor derives learning patterns from newly evaluated
// decisions. It only reads the decision log, keyed by a persisted
// watermark, so each evaluated decision is applied to its pattern exactly
// once across restarts.
type PatternExtractor struct {
	decisions storage.DecisionStore
	patterns  storage.PatternStore
	settings  storage.SettingsStore
	now       func() time.Time
}

// NewPatternExtractor creates a pattern extractor.
func NewPatternExtractor(decisions storage.DecisionStore, patterns storage.PatternStore, settings storage.SettingsStore) *PatternExtractor {
	return &PatternExtractor{
		decisions: decisions,
		patterns:  patterns,
		settings:  settings,
		now:       time.Now,
	}
}

// Run processes decisions evaluated since the watermark and returns how
// many were applied. For each decision it reinforces the matching
// pattern, applies a contradiction reset, or creates a new pattern with a
// neutral prior.
func (e *PatternExtractor) Run(ctx context.Context) (int, error) {
	since, err := e.watermark(ctx)
	if err != nil {
		return 0, err
	}

	batch, err := e.decisions.ListEvaluatedSince(ctx, since, extractorBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list evaluated decisions: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	processed := 0
	high := since
	for _, d := range batch {
		if err := e.apply(ctx, d); err != nil {
			// Stop at the first failure so the watermark never skips a
			// decision; the next run retries from here.
			if werr := e.setWatermark(ctx, high); werr != nil {
				log.Printf("patterns: failed to persist watermark: %v", werr)
			}
			return processed, err
		}
		processed++
		if d.EvaluatedAt.After(high) {
			high = *d.EvaluatedAt
		}
	}
	if err := e.setWatermark(ctx, high); err != nil {
		return processed, fmt.Errorf("failed to persist watermark: %w", err)
	}
	log.Printf("patterns: applied %d evaluated decisions", processed)
	return processed, nil
}

// apply folds one evaluated decision into its pattern.
func (e *PatternExtractor) apply(ctx context.Context, d *types.Decision) error {
	key := PatternKey(d)
	now := e.now()

	p, err := e.patterns.GetPatternByKey(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		p = &types.LearningPattern{
			ID:          uuid.NewString(),
			PatternType: "decision_outcome",
			PatternKey:  key,
			PatternData: map[string]interface{}{
				"category":      d.Category,
				"chosen_option": d.ChosenOption,
			},
			Confidence:   initialConfidence,
			Occurrences:  1,
			LastObserved: *d.EvaluatedAt,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return e.patterns.UpsertPattern(ctx, p)
	}
	if err != nil {
		return fmt.Errorf("failed to load pattern %s: %w", key, err)
	}

	confidence, contradiction := UpdateConfidence(p.Confidence, d.Outcome)
	p.Confidence = confidence
	if !contradiction {
		p.Occurrences++
	}
	p.LastObserved = *d.EvaluatedAt
	p.UpdatedAt = now
	if contradiction {
		log.Printf("patterns: contradiction reset on %s, confidence now %.3f", key, confidence)
	}
	return e.patterns.UpsertPattern(ctx, p)
}

func (e *PatternExtractor) watermark(ctx context.Context) (time.Time, error) {
	raw, err := e.settings.GetSetting(ctx, extractorWatermarkKey)
	if errors.Is(err, storage.ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read watermark: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt watermark %q: %w", raw, err)
	}
	return t, nil
}

func (e *PatternExtractor) setWatermark(ctx context.Context, t time.Time) error {
	return e.settings.SetSetting(ctx, extractorWatermarkKey, t.Format(time.RFC3339Nano))
}
