// Package elevation wraps an elevation raster and its precomputed gradient.
package elevation

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrMalformedRaster is returned for empty or mis-sized elevation input.
var ErrMalformedRaster = errors.New("elevation: malformed raster")

// Gradient is the elevation change per cell along each axis.
type Gradient struct {
	DX, DY float64
}

// Field is an immutable elevation raster. Values and gradients are stored
// row-major: index y*Width+x.
type Field struct {
	Width  int
	Height int
	values []float64
	grad   []Gradient
}

// New copies values and computes the gradient by central differences,
// falling back to one-sided differences on the border. An axis of length
// one has zero gradient along it.
func New(width, height int, values []float64) (*Field, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrMalformedRaster, width, height)
	}
	if len(values) != width*height {
		return nil, fmt.Errorf("%w: %d values for %dx%d raster", ErrMalformedRaster, len(values), width, height)
	}

	f := &Field{
		Width:  width,
		Height: height,
		values: make([]float64, len(values)),
		grad:   make([]Gradient, len(values)),
	}
	copy(f.values, values)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			f.grad[y*width+x] = Gradient{
				DX: diff(f.values, x, width, func(i int) int { return y*width + i }),
				DY: diff(f.values, y, height, func(i int) int { return i*width + x }),
			}
		}
	}
	return f, nil
}

// Flat returns a constant-elevation field, used when no elevation source is
// available.
func Flat(width, height int, value float64) (*Field, error) {
	values := make([]float64, width*height)
	for i := range values {
		values[i] = value
	}
	return New(width, height, values)
}

// diff differentiates along one axis at position i of an axis of length n,
// using idx to map axis positions to buffer offsets.
func diff(v []float64, i, n int, idx func(int) int) float64 {
	switch {
	case n < 2:
		return 0
	case i == 0:
		return v[idx(1)] - v[idx(0)]
	case i == n-1:
		return v[idx(n-1)] - v[idx(n-2)]
	default:
		return (v[idx(i+1)] - v[idx(i-1)]) / 2
	}
}

func (f *Field) index(x, y int) int {
	x = min(max(x, 0), f.Width-1)
	y = min(max(y, 0), f.Height-1)
	return y*f.Width + x
}

// At returns the elevation at (x, y), clamped to the raster.
func (f *Field) At(x, y int) float64 {
	return f.values[f.index(x, y)]
}

// GradientAt returns the gradient at (x, y), clamped to the raster.
func (f *Field) GradientAt(x, y int) Gradient {
	return f.grad[f.index(x, y)]
}

// Range returns the minimum and maximum elevation.
func (f *Field) Range() (lo, hi float64) {
	return floats.Min(f.values), floats.Max(f.values)
}
