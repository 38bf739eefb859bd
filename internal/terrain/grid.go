package terrain

import "fmt"

// Grid is an immutable row-major category raster.
type Grid struct {
	Width  int
	Height int
	cells  []Category // cells[y*Width+x]
}

// NewGrid wraps a category buffer. The slice is copied.
func NewGrid(width, height int, cells []Category) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrMalformedRaster, width, height)
	}
	if len(cells) != width*height {
		return nil, fmt.Errorf("%w: %d cells for %dx%d grid", ErrMalformedRaster, len(cells), width, height)
	}
	c := make([]Category, len(cells))
	copy(c, cells)
	return &Grid{Width: width, Height: height, cells: c}, nil
}

// Uniform returns a grid with every cell set to cat.
func Uniform(width, height int, cat Category) (*Grid, error) {
	cells := make([]Category, width*height)
	for i := range cells {
		cells[i] = cat
	}
	return NewGrid(width, height, cells)
}

// Clamp maps an arbitrary integer coordinate onto the nearest valid cell.
func (g *Grid) Clamp(x, y int) (int, int) {
	return clampInt(x, 0, g.Width-1), clampInt(y, 0, g.Height-1)
}

// At returns the category at (x, y), clamped to the grid.
func (g *Grid) At(x, y int) Category {
	x, y = g.Clamp(x, y)
	return g.cells[y*g.Width+x]
}

// WindowCounts is a per-category histogram over a sensing window.
type WindowCounts struct {
	Counts [NumCategories]int
	Total  int
}

// Of returns the count for one category.
func (w WindowCounts) Of(c Category) int {
	if int(c) >= NumCategories {
		return 0
	}
	return w.Counts[c]
}

// Window counts categories inside the (2r+1)x(2r+1) square centred on
// (cx, cy), clipped to the grid. The centre is clamped first. A window that
// clips to nothing yields zero counts.
func (g *Grid) Window(cx, cy, r int) WindowCounts {
	var wc WindowCounts
	if r < 0 {
		return wc
	}
	cx, cy = g.Clamp(cx, cy)
	x0, x1 := max(0, cx-r), min(g.Width, cx+r+1)
	y0, y1 := max(0, cy-r), min(g.Height, cy+r+1)
	for y := y0; y < y1; y++ {
		row := g.cells[y*g.Width : (y+1)*g.Width]
		for x := x0; x < x1; x++ {
			if c := row[x]; int(c) < NumCategories {
				wc.Counts[c]++
			}
			wc.Total++
		}
	}
	return wc
}

// Counts returns the category histogram of the whole grid.
func (g *Grid) Counts() WindowCounts {
	var wc WindowCounts
	for _, c := range g.cells {
		if int(c) < NumCategories {
			wc.Counts[c]++
		}
		wc.Total++
	}
	return wc
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
