package vector

import (
	"math"
	"testing"
)

func TestEuclidean(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"unit", []float32{0, 0}, []float32{3, 4}, 5},
		{"ragged", []float32{1}, []float32{1, 2}, 2},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Euclidean(tt.a, tt.b); math.Abs(float64(got)-tt.want) > 1e-6 {
				t.Errorf("Euclidean = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestNearest_OrderAndLimit(t *testing.T) {
	candidates := []Entry{
		{ID: "far", Vector: []float32{10, 10}},
		{ID: "exact", Vector: []float32{1, 1}},
		{ID: "near", Vector: []float32{1, 2}},
		{ID: "tie", Vector: []float32{1, 2}},
	}

	got := Nearest([]float32{1, 1}, candidates, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(got))
	}
	want := []string{"exact", "near", "tie"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("rank %d: got %s, want %s", i, got[i].ID, id)
		}
	}
	if got[0].Distance != 0 {
		t.Errorf("exact match should have distance 0, got %f", got[0].Distance)
	}
}

func TestNearest_Empty(t *testing.T) {
	if got := Nearest([]float32{1}, nil, 1); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
	if got := Nearest([]float32{1}, []Entry{{ID: "a"}}, 0); len(got) != 0 {
		t.Errorf("k=0 should return nothing, got %v", got)
	}
}
