package vector

import (
	"context"
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"scaled", []float64{1, 1}, []float64{5, 5}, 1},
		{"length mismatch", []float64{1, 2}, []float64{1, 2, 3}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 2}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tc := range cases {
		got := CosineSimilarity(tc.a, tc.b)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s: CosineSimilarity = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestChromemIndex_InsertSearchRemove(t *testing.T) {
	idx, err := NewChromemIndex()
	if err != nil {
		t.Fatalf("NewChromemIndex failed: %v", err)
	}
	ctx := context.Background()

	vectors := map[string][]float64{
		"north": {0, 1, 0},
		"east":  {1, 0, 0},
		"both":  {1, 1, 0},
	}
	for id, vec := range vectors {
		if err := idx.Insert(ctx, id, vec); err != nil {
			t.Fatalf("Insert(%s) failed: %v", id, err)
		}
	}

	matches, err := idx.Search(ctx, []float64{0, 1, 0}, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Got %d matches, want 2", len(matches))
	}
	if matches[0].ID != "north" {
		t.Errorf("Best match = %s, want north", matches[0].ID)
	}
	if matches[0].Similarity < matches[1].Similarity {
		t.Error("Matches must be ordered by similarity descending")
	}

	if err := idx.Remove(ctx, "north"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	matches, err = idx.Search(ctx, []float64{0, 1, 0}, 3)
	if err != nil {
		t.Fatalf("Search after remove failed: %v", err)
	}
	for _, m := range matches {
		if m.ID == "north" {
			t.Error("Removed vector still returned by search")
		}
	}
}

func TestChromemIndex_SearchEmpty(t *testing.T) {
	idx, err := NewChromemIndex()
	if err != nil {
		t.Fatalf("NewChromemIndex failed: %v", err)
	}

	matches, err := idx.Search(context.Background(), []float64{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search on empty index failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("Empty index returned %d matches, want 0", len(matches))
	}
}

func TestChromemIndex_KLargerThanCount(t *testing.T) {
	idx, err := NewChromemIndex()
	if err != nil {
		t.Fatalf("NewChromemIndex failed: %v", err)
	}
	ctx := context.Background()

	if err := idx.Insert(ctx, "only", []float64{1, 0}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	matches, err := idx.Search(ctx, []float64{1, 0}, 50)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("Got %d matches, want 1", len(matches))
	}
}
