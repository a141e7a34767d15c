package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/continuo/continuo/pkg/types"
)

func TestPatternExtractor_CreatesAndReinforces(t *testing.T) {
	store := testStore(t)
	decisions := NewDecisionService(store)
	extractor := NewPatternExtractor(store, store, store)
	ctx := context.Background()

	record := func(outcome types.DecisionOutcome) {
		t.Helper()
		id, err := decisions.Record(ctx, testDecision())
		require.NoError(t, err)
		require.NoError(t, decisions.Evaluate(ctx, id, outcome, ""))
	}

	// First evaluated decision creates the pattern with a neutral prior.
	record(types.OutcomeSuccess)
	n, err := extractor.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	key := PatternKey(&types.Decision{Category: "infra", ChosenOption: "ship now"})
	p, err := store.GetPatternByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, initialConfidence, p.Confidence)
	assert.Equal(t, 1, p.Occurrences)

	// Two more successes reinforce it.
	record(types.OutcomeSuccess)
	record(types.OutcomeSuccess)
	n, err = extractor.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p, err = store.GetPatternByKey(ctx, key)
	require.NoError(t, err)
	assert.InDelta(t, 0.595, p.Confidence, 1e-9)
	assert.Equal(t, 3, p.Occurrences)
}

func TestPatternExtractor_WatermarkPreventsReprocessing(t *testing.T) {
	store := testStore(t)
	decisions := NewDecisionService(store)
	extractor := NewPatternExtractor(store, store, store)
	ctx := context.Background()

	id, err := decisions.Record(ctx, testDecision())
	require.NoError(t, err)
	require.NoError(t, decisions.Evaluate(ctx, id, types.OutcomeSuccess, ""))

	n, err := extractor.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Nothing new: the watermark keeps the same decision from being
	// applied twice.
	n, err = extractor.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	key := PatternKey(&types.Decision{Category: "infra", ChosenOption: "ship now"})
	p, err := store.GetPatternByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Occurrences)
}

func TestPatternExtractor_ContradictionReset(t *testing.T) {
	store := testStore(t)
	decisions := NewDecisionService(store)
	extractor := NewPatternExtractor(store, store, store)
	ctx := context.Background()

	record := func(outcome types.DecisionOutcome) {
		t.Helper()
		id, err := decisions.Record(ctx, testDecision())
		require.NoError(t, err)
		require.NoError(t, decisions.Evaluate(ctx, id, outcome, ""))
	}

	// Build confidence above the contradiction threshold.
	for i := 0; i < 4; i++ {
		record(types.OutcomeSuccess)
	}
	_, err := extractor.Run(ctx)
	require.NoError(t, err)

	key := PatternKey(&types.Decision{Category: "infra", ChosenOption: "ship now"})
	p, err := store.GetPatternByKey(ctx, key)
	require.NoError(t, err)
	require.Greater(t, p.Confidence, contradictionThreshold)
	confBefore := p.Confidence
	occBefore := p.Occurrences

	// One failure halves confidence without counting an occurrence.
	record(types.OutcomeFailure)
	_, err = extractor.Run(ctx)
	require.NoError(t, err)

	p, err = store.GetPatternByKey(ctx, key)
	require.NoError(t, err)
	assert.InDelta(t, confBefore/2, p.Confidence, 1e-9)
	assert.Equal(t, occBefore, p.Occurrences)
}
