package terrain

import (
	"runtime"
	"sync"
)

// minRowsPerBand keeps goroutine overhead below the per-row work on small rasters.
const minRowsPerBand = 16

type normColor [3]float64

// Classify assigns every raster cell the palette category whose colour is
// nearest in normalised [0,1] RGB space (squared Euclidean distance). On a
// tie the earlier palette entry wins. Row bands are classified concurrently;
// cells are independent so the result does not depend on scheduling.
func Classify(r *Raster, p Palette) (*Grid, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if len(p) == 0 {
		return nil, ErrEmptyPalette
	}

	ref := make([]normColor, len(p))
	for i, e := range p {
		ref[i] = normalize(e.Color[0], e.Color[1], e.Color[2])
	}

	cells := make([]Category, r.Width*r.Height)

	workers := runtime.GOMAXPROCS(0)
	bandRows := max(minRowsPerBand, (r.Height+workers-1)/workers)

	var wg sync.WaitGroup
	for y0 := 0; y0 < r.Height; y0 += bandRows {
		y1 := min(r.Height, y0+bandRows)
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			for y := y0; y < y1; y++ {
				for x := 0; x < r.Width; x++ {
					i := y*r.Width + x
					px := r.Pix[i*3 : i*3+3]
					cells[i] = p[nearest(normalize(px[0], px[1], px[2]), ref)].Category
				}
			}
		}(y0, y1)
	}
	wg.Wait()

	return &Grid{Width: r.Width, Height: r.Height, cells: cells}, nil
}

// nearest returns the index of the closest reference colour; strict less-than
// keeps the lowest index on ties.
func nearest(c normColor, ref []normColor) int {
	best := 0
	bestDist := sqDist(c, ref[0])
	for i := 1; i < len(ref); i++ {
		if d := sqDist(c, ref[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func normalize(r, g, b uint8) normColor {
	return normColor{float64(r) / 255, float64(g) / 255, float64(b) / 255}
}

func sqDist(a, b normColor) float64 {
	dr, dg, db := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return dr*dr + dg*dg + db*db
}
