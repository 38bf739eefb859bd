package poi

import (
	"fmt"
	"math"
	"slices"

	"github.com/paulmach/orb"
)

const (
	DefaultGridRows = 5
	DefaultGridCols = 5
	DefaultGridTopK = 10
)

// GridCell is one histogram bin selected by GridDensity.
type GridCell struct {
	Row    int
	Col    int
	Count  int
	Center orb.Point
}

// Histogram counts points per cell of a rows×cols partition of bounds,
// row-major. Points on or beyond an edge fall into the nearest edge cell.
func Histogram(points []orb.Point, bounds orb.Bound, rows, cols int) ([]int, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("%w: grid must be at least 1x1, got %dx%d", ErrInvalidParams, rows, cols)
	}
	if err := validateBounds(bounds); err != nil {
		return nil, err
	}

	cellW := (bounds.Max[0] - bounds.Min[0]) / float64(cols)
	cellH := (bounds.Max[1] - bounds.Min[1]) / float64(rows)
	counts := make([]int, rows*cols)
	for _, p := range points {
		c := binIndex(p[0]-bounds.Min[0], cellW, cols)
		r := binIndex(p[1]-bounds.Min[1], cellH, rows)
		counts[r*cols+c]++
	}
	return counts, nil
}

func binIndex(offset, size float64, n int) int {
	i := int(math.Floor(offset / size))
	return min(max(i, 0), n-1)
}

// GridDensity returns the centres of the topK busiest cells ordered by
// descending count, ties going to the lowest row-major index. Empty cells
// are never returned, so fewer than topK cells come back when the points
// occupy fewer cells.
func GridDensity(points []orb.Point, bounds orb.Bound, rows, cols, topK int) ([]GridCell, error) {
	if topK < 1 {
		return nil, fmt.Errorf("%w: top_k must be >= 1, got %d", ErrInvalidParams, topK)
	}
	counts, err := Histogram(points, bounds, rows, cols)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(counts))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return counts[b] - counts[a]
	})

	cellW := (bounds.Max[0] - bounds.Min[0]) / float64(cols)
	cellH := (bounds.Max[1] - bounds.Min[1]) / float64(rows)
	out := make([]GridCell, 0, min(topK, len(order)))
	for _, idx := range order {
		if len(out) == topK || counts[idx] == 0 {
			break
		}
		r, c := idx/cols, idx%cols
		out = append(out, GridCell{
			Row:   r,
			Col:   c,
			Count: counts[idx],
			Center: orb.Point{
				bounds.Min[0] + (float64(c)+0.5)*cellW,
				bounds.Min[1] + (float64(r)+0.5)*cellH,
			},
		})
	}
	return out, nil
}

// Centers returns the centre of each cell, in order.
func Centers(cells []GridCell) []orb.Point {
	out := make([]orb.Point, len(cells))
	for i, c := range cells {
		out[i] = c.Center
	}
	return out
}
