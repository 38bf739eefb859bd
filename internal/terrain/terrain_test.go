package terrain

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_DefaultPaletteColours(t *testing.T) {
	pal := DefaultPalette()
	r := NewRaster(len(pal), 1)
	for i, e := range pal {
		r.Set(i, 0, e.Color)
	}

	g, err := Classify(r, pal)
	require.NoError(t, err)

	for i, e := range pal {
		assert.Equal(t, e.Category, g.At(i, 0), "pixel %d", i)
	}
}

func TestClassify_NearestColour(t *testing.T) {
	tests := []struct {
		name string
		px   RGB
		want Category
	}{
		{"light green", RGB{150, 230, 150}, SparseForest},
		{"dark green", RGB{10, 90, 10}, DenseForest},
		{"blue", RGB{20, 110, 220}, Water},
		{"grey", RGB{60, 60, 60}, Road},
		{"black is nearest road", RGB{0, 0, 0}, Road},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRaster(1, 1)
			r.Set(0, 0, tt.px)
			g, err := Classify(r, DefaultPalette())
			require.NoError(t, err)
			assert.Equal(t, tt.want, g.At(0, 0))
		})
	}
}

func TestClassify_TieGoesToFirstEntry(t *testing.T) {
	pal := Palette{
		{Category: Water, Color: RGB{10, 10, 10}},
		{Category: Road, Color: RGB{10, 10, 10}},
	}
	r := NewRaster(2, 2)
	g, err := Classify(r, pal)
	require.NoError(t, err)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			assert.Equal(t, Water, g.At(x, y))
		}
	}
}

func TestClassify_LargeRasterMatchesSerial(t *testing.T) {
	// Enough rows to be split into several bands.
	const w, h = 37, 101
	r := NewRaster(w, h)
	pal := DefaultPalette()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r.Set(x, y, pal[(x*7+y*3)%len(pal)].Color)
		}
	}
	g, err := Classify(r, pal)
	require.NoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if got, want := g.At(x, y), pal[(x*7+y*3)%len(pal)].Category; got != want {
				t.Fatalf("cell (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestClassify_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		r    *Raster
		p    Palette
		want error
	}{
		{"nil raster", nil, DefaultPalette(), ErrMalformedRaster},
		{"zero size", &Raster{Width: 0, Height: 3, Channels: 3}, DefaultPalette(), ErrMalformedRaster},
		{"four channels", &Raster{Width: 1, Height: 1, Channels: 4, Pix: make([]uint8, 4)}, DefaultPalette(), ErrMalformedRaster},
		{"short buffer", &Raster{Width: 2, Height: 2, Channels: 3, Pix: make([]uint8, 5)}, DefaultPalette(), ErrMalformedRaster},
		{"empty palette", NewRaster(1, 1), nil, ErrEmptyPalette},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.r, tt.p)
			if !errors.Is(err, tt.want) {
				t.Errorf("Classify() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGrid_AtClamps(t *testing.T) {
	g, err := NewGrid(2, 2, []Category{SparseForest, Water, Road, DenseForest})
	require.NoError(t, err)

	assert.Equal(t, SparseForest, g.At(-5, -5))
	assert.Equal(t, Water, g.At(10, -1))
	assert.Equal(t, Road, g.At(-1, 10))
	assert.Equal(t, DenseForest, g.At(99, 99))
}

func TestGrid_WindowClipsAtEdges(t *testing.T) {
	g, err := Uniform(10, 10, Water)
	require.NoError(t, err)

	// Interior: full 7x7 window.
	wc := g.Window(5, 5, 3)
	assert.Equal(t, 49, wc.Total)
	assert.Equal(t, 49, wc.Of(Water))

	// Corner: clipped to 4x4.
	wc = g.Window(0, 0, 3)
	assert.Equal(t, 16, wc.Total)

	// Out-of-range centre is clamped before clipping.
	wc = g.Window(-40, 100, 3)
	assert.Equal(t, 16, wc.Total)

	// Negative radius is a degenerate window.
	wc = g.Window(5, 5, -1)
	assert.Equal(t, 0, wc.Total)
}

func TestGrid_Counts(t *testing.T) {
	g, err := NewGrid(3, 1, []Category{Road, Road, Water})
	require.NoError(t, err)
	wc := g.Counts()
	assert.Equal(t, 2, wc.Of(Road))
	assert.Equal(t, 1, wc.Of(Water))
	assert.Equal(t, 3, wc.Total)
}

func TestNewGrid_Errors(t *testing.T) {
	_, err := NewGrid(0, 1, nil)
	assert.ErrorIs(t, err, ErrMalformedRaster)
	_, err = NewGrid(2, 2, make([]Category, 3))
	assert.ErrorIs(t, err, ErrMalformedRaster)
}

func TestFromImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 0, G: 102, B: 204, A: 255})
	img.Set(1, 0, color.RGBA{R: 51, G: 51, B: 51, A: 255})

	r := FromImage(img)
	require.NoError(t, r.Validate())

	g, err := Classify(r, DefaultPalette())
	require.NoError(t, err)
	assert.Equal(t, Water, g.At(0, 0))
	assert.Equal(t, Road, g.At(1, 0))
}

func TestCategory_String(t *testing.T) {
	assert.Equal(t, "water", Water.String())
	assert.Equal(t, "category(9)", Category(9).String())
}
