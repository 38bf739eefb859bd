package terrain

import (
	"errors"
	"fmt"
	"image"
)

// Category classifies a single raster cell.
type Category byte

const (
	SparseForest Category = 0
	DenseForest  Category = 1
	Water        Category = 2
	Road         Category = 3

	// NumCategories is the number of known categories.
	NumCategories = 4
)

var (
	// ErrMalformedRaster is returned for rasters that are empty, not 3-channel,
	// or whose buffer does not match the declared dimensions.
	ErrMalformedRaster = errors.New("terrain: malformed raster")
	// ErrEmptyPalette is returned when classification is asked for with no colours.
	ErrEmptyPalette = errors.New("terrain: empty palette")
)

func (c Category) String() string {
	switch c {
	case SparseForest:
		return "sparse_forest"
	case DenseForest:
		return "dense_forest"
	case Water:
		return "water"
	case Road:
		return "road"
	default:
		return fmt.Sprintf("category(%d)", byte(c))
	}
}

// RGB is an 8-bit colour triple.
type RGB [3]uint8

// PaletteEntry binds a category to its reference colour.
type PaletteEntry struct {
	Category Category
	Color    RGB
}

// Palette is an ordered list of reference colours. Order matters: on equal
// distance the entry declared first wins.
type Palette []PaletteEntry

// DefaultPalette returns the segmentation colours used by the map renderer.
func DefaultPalette() Palette {
	return Palette{
		{Category: SparseForest, Color: RGB{144, 238, 144}},
		{Category: DenseForest, Color: RGB{0, 100, 0}},
		{Category: Water, Color: RGB{0, 102, 204}},
		{Category: Road, Color: RGB{51, 51, 51}},
	}
}

// Raster is an interleaved, row-major colour buffer.
// Pixel (x, y) channel c lives at Pix[(y*Width+x)*Channels+c].
type Raster struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// NewRaster allocates a zeroed 3-channel raster.
func NewRaster(width, height int) *Raster {
	return &Raster{
		Width:    width,
		Height:   height,
		Channels: 3,
		Pix:      make([]uint8, width*height*3),
	}
}

// Set writes the colour of pixel (x, y). Out of range writes are ignored.
func (r *Raster) Set(x, y int, c RGB) {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return
	}
	i := (y*r.Width + x) * r.Channels
	r.Pix[i], r.Pix[i+1], r.Pix[i+2] = c[0], c[1], c[2]
}

// Validate checks dimensions, channel count and buffer length.
func (r *Raster) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil raster", ErrMalformedRaster)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrMalformedRaster, r.Width, r.Height)
	}
	if r.Channels != 3 {
		return fmt.Errorf("%w: expected 3 channels, got %d", ErrMalformedRaster, r.Channels)
	}
	if want := r.Width * r.Height * 3; len(r.Pix) != want {
		return fmt.Errorf("%w: buffer has %d bytes, want %d", ErrMalformedRaster, len(r.Pix), want)
	}
	return nil
}

// FromImage copies a decoded image into an RGB raster, dropping alpha.
func FromImage(img image.Image) *Raster {
	b := img.Bounds()
	r := NewRaster(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			r.Set(x-b.Min.X, y-b.Min.Y, RGB{uint8(cr >> 8), uint8(cg >> 8), uint8(cb >> 8)})
		}
	}
	return r
}
