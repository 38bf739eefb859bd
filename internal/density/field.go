package density

import "math"

// Field is a row-major grid of normalised densities. Row r samples
// y = NodeY(r), column c samples x = NodeX(c).
type Field struct {
	Rows      int
	Cols      int
	Width     float64
	Height    float64
	Values    []float64
	Bandwidth float64 // Scott factor used for the kernel
	Uniform   bool    // true when the degenerate fallback was used
}

func newField(rows, cols int, width, height float64) *Field {
	return &Field{
		Rows:   rows,
		Cols:   cols,
		Width:  width,
		Height: height,
		Values: make([]float64, rows*cols),
	}
}

func (f *Field) fillUniform() {
	for i := range f.Values {
		f.Values[i] = 1
	}
	f.Uniform = true
}

// NodeX returns the x coordinate sampled by column c.
func (f *Field) NodeX(c int) float64 {
	return f.Width * float64(c) / float64(f.Cols-1)
}

// NodeY returns the y coordinate sampled by row r.
func (f *Field) NodeY(r int) float64 {
	return f.Height * float64(r) / float64(f.Rows-1)
}

// At returns the value at (row, col). Indices are clamped.
func (f *Field) At(r, c int) float64 {
	r = min(max(r, 0), f.Rows-1)
	c = min(max(c, 0), f.Cols-1)
	return f.Values[r*f.Cols+c]
}

// ValueAt returns the value of the node nearest to map point (x, y).
func (f *Field) ValueAt(x, y float64) float64 {
	c := int(math.Round(x / f.Width * float64(f.Cols-1)))
	r := int(math.Round(y / f.Height * float64(f.Rows-1)))
	return f.At(r, c)
}

// Peak returns the first node (row-major) holding the maximum value.
func (f *Field) Peak() (row, col int, value float64) {
	value = math.Inf(-1)
	for i, v := range f.Values {
		if v > value {
			row, col, value = i/f.Cols, i%f.Cols, v
		}
	}
	return row, col, value
}
