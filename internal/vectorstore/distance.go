package vectorstore

import (
	"fmt"
	"math"
	"sort"

	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
)

type scored struct {
	id       string
	content  string
	position int
	distance *float64
}

// cosineDistance returns 1 - cos(a, b), clamped at zero. It reports
// false when the vectors cannot be compared.
func cosineDistance(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	d := 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	if d < 0 {
		d = 0
	}
	return d, true
}

// rank orders candidates nearest first, ties broken by insertion
// position, and keeps at most n of them. Candidates without a distance
// sort last.
func rank(items []scored, n int) []Neighbor {
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := items[i].distance, items[j].distance
		switch {
		case di == nil && dj == nil:
			return items[i].position < items[j].position
		case di == nil:
			return false
		case dj == nil:
			return true
		case *di != *dj:
			return *di < *dj
		}
		return items[i].position < items[j].position
	})
	if n >= 0 && len(items) > n {
		items = items[:n]
	}
	out := make([]Neighbor, 0, len(items))
	for _, item := range items {
		out = append(out, Neighbor{ID: item.id, Content: item.content, Distance: item.distance})
	}
	return out
}

// score returns the distance between query and a stored vector. A chunk
// stored without a vector, or a zero vector, has no distance. Vectors of
// different lengths come from different embedding spaces and fail.
func score(query, vector []float32) (*float64, error) {
	if len(query) > 0 && len(vector) > 0 && len(query) != len(vector) {
		return nil, fmt.Errorf("%w: query %d, stored %d", appErr.ErrDimensionMismatch, len(query), len(vector))
	}
	d, ok := cosineDistance(query, vector)
	if !ok {
		return nil, nil
	}
	return &d, nil
}
