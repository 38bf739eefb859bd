// Package geo maps raster pixel coordinates onto a longitude/latitude
// bounding box. Pixel x grows east and pixel y grows south, so row 0 is the
// northern edge.
package geo

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

var ErrInvalidBBox = errors.New("geo: invalid bounding box")

// Georef relates a width×height pixel raster to a lon/lat bounding box.
type Georef struct {
	Width  float64
	Height float64
	BBox   orb.Bound // Min = (west, south), Max = (east, north)
}

// New validates and builds a Georef.
func New(width, height float64, west, south, east, north float64) (Georef, error) {
	if width <= 0 || height <= 0 {
		return Georef{}, fmt.Errorf("%w: raster must be non-empty, got %gx%g", ErrInvalidBBox, width, height)
	}
	if !(west < east) || !(south < north) {
		return Georef{}, fmt.Errorf("%w: west=%g south=%g east=%g north=%g", ErrInvalidBBox, west, south, east, north)
	}
	if south < -90 || north > 90 || west < -180 || east > 180 {
		return Georef{}, fmt.Errorf("%w: out of range", ErrInvalidBBox)
	}
	return Georef{
		Width:  width,
		Height: height,
		BBox:   orb.Bound{Min: orb.Point{west, south}, Max: orb.Point{east, north}},
	}, nil
}

// ToLonLat converts a pixel position to (lon, lat).
func (g Georef) ToLonLat(p orb.Point) orb.Point {
	west, south := g.BBox.Min[0], g.BBox.Min[1]
	east, north := g.BBox.Max[0], g.BBox.Max[1]
	return orb.Point{
		west + p[0]/g.Width*(east-west),
		north - p[1]/g.Height*(north-south),
	}
}

// ToPixel converts (lon, lat) back to a pixel position.
func (g Georef) ToPixel(ll orb.Point) orb.Point {
	west, south := g.BBox.Min[0], g.BBox.Min[1]
	east, north := g.BBox.Max[0], g.BBox.Max[1]
	return orb.Point{
		(ll[0] - west) / (east - west) * g.Width,
		(north - ll[1]) / (north - south) * g.Height,
	}
}

// LineString converts a pixel path to lon/lat.
func (g Georef) LineString(path []orb.Point) orb.LineString {
	ls := make(orb.LineString, len(path))
	for i, p := range path {
		ls[i] = g.ToLonLat(p)
	}
	return ls
}
