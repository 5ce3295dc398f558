package vector

import (
	"math"
	"slices"
)

// Euclidean returns the L2 distance between a and b. Vectors of different
// length are compared over their common prefix with the remainder counted
// against zero.
func Euclidean(a, b []float32) float32 {
	n := max(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		var x, y float64
		if i < len(a) {
			x = float64(a[i])
		}
		if i < len(b) {
			y = float64(b[i])
		}
		d := x - y
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}

// Nearest ranks candidates by distance to query and returns the k closest.
// Ties keep candidate order.
func Nearest(query []float32, candidates []Entry, k int) []Match {
	if k <= 0 || len(candidates) == 0 {
		return []Match{}
	}

	matches := make([]Match, len(candidates))
	for i, c := range candidates {
		matches[i] = Match{
			ID:       c.ID,
			Content:  c.Content,
			Distance: Euclidean(query, c.Vector),
			Metadata: c.Metadata,
		}
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
