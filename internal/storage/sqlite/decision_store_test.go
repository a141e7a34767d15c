package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/continuo/continuo/pkg/types"
)

func TestDecisionStore_InsertAndGet(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	d := newTestDecision("dec-1")
	if err := store.InsertDecision(ctx, d); err != nil {
		t.Fatalf("InsertDecision failed: %v", err)
	}

	got, err := store.GetDecision(ctx, "dec-1")
	if err != nil {
		t.Fatalf("GetDecision failed: %v", err)
	}
	if got.Outcome != types.OutcomeUnknown {
		t.Errorf("Outcome = %q, want unknown", got.Outcome)
	}
	if got.EvaluatedAt != nil {
		t.Errorf("EvaluatedAt = %v, want nil", got.EvaluatedAt)
	}
	if len(got.Options) != 2 || got.Options[0].Option != "blue-green" {
		t.Errorf("Options = %v", got.Options)
	}
}

func TestDecisionStore_OutcomeCompareAndSet(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.InsertDecision(ctx, newTestDecision("dec-1")); err != nil {
		t.Fatalf("InsertDecision failed: %v", err)
	}

	now := time.Now()
	swapped, err := store.SetDecisionOutcome(ctx, "dec-1", types.OutcomeSuccess, "worked", now)
	if err != nil {
		t.Fatalf("SetDecisionOutcome failed: %v", err)
	}
	if !swapped {
		t.Fatal("First evaluation should swap")
	}

	// A second evaluation loses the CAS, even with the same outcome.
	swapped, err = store.SetDecisionOutcome(ctx, "dec-1", types.OutcomeSuccess, "again", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("SetDecisionOutcome failed: %v", err)
	}
	if swapped {
		t.Error("Second evaluation must not swap")
	}

	got, err := store.GetDecision(ctx, "dec-1")
	if err != nil {
		t.Fatalf("GetDecision failed: %v", err)
	}
	if got.Outcome != types.OutcomeSuccess || got.OutcomeDetails != "worked" {
		t.Errorf("Outcome = %q/%q, want success/worked", got.Outcome, got.OutcomeDetails)
	}

	// A missing decision also fails to swap rather than erroring.
	swapped, err = store.SetDecisionOutcome(ctx, "nope", types.OutcomeFailure, "", now)
	if err != nil {
		t.Fatalf("SetDecisionOutcome failed: %v", err)
	}
	if swapped {
		t.Error("Missing decision must not swap")
	}
}

func TestDecisionStore_ListEvaluatedSince(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"dec-1", "dec-2", "dec-3"} {
		if err := store.InsertDecision(ctx, newTestDecision(id)); err != nil {
			t.Fatalf("InsertDecision failed: %v", err)
		}
		if _, err := store.SetDecisionOutcome(ctx, id, types.OutcomeSuccess, "", base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("SetDecisionOutcome failed: %v", err)
		}
	}

	// Strictly after the first evaluation.
	got, err := store.ListEvaluatedSince(ctx, base, 10)
	if err != nil {
		t.Fatalf("ListEvaluatedSince failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Got %d decisions, want 2", len(got))
	}
	if got[0].ID != "dec-2" || got[1].ID != "dec-3" {
		t.Errorf("Order = [%s %s], want [dec-2 dec-3]", got[0].ID, got[1].ID)
	}
}
