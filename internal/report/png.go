package report

import (
	"fmt"
	"image/color"
	"io"

	"github.com/paulmach/orb"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/sarplan/internal/density"
)

// plotWidth is the rendered width; height follows the map aspect ratio.
const plotWidth = 8 * vg.Inch

// densityGrid adapts a density.Field to plotter.GridXYZ. Rows are reversed
// so plot y increases northwards.
type densityGrid struct {
	f *density.Field
}

func (g densityGrid) Dims() (c, r int) { return g.f.Cols, g.f.Rows }

func (g densityGrid) Z(c, r int) float64 { return g.f.At(g.f.Rows-1-r, c) }

func (g densityGrid) X(c int) float64 { return g.f.NodeX(c) }

func (g densityGrid) Y(r int) float64 { return g.f.Height - g.f.NodeY(g.f.Rows-1-r) }

// Plot builds the gonum plot for the scene.
func (s *Scene) Plot() (*plot.Plot, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = s.Title
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px, north up)"

	if s.Density != nil {
		hm := plotter.NewHeatMap(densityGrid{s.Density}, palette.Heat(12, 1))
		// Field values are normalised; pinning the range keeps a uniform
		// field drawable.
		hm.Min, hm.Max = 0, 1
		p.Add(hm)
	}

	if err := s.addTrails(p); err != nil {
		return nil, err
	}

	if len(s.Agents) == 0 && len(s.Positions) > 0 {
		sc, err := newScatter(s.flipped(s.Positions), positionColor, draw.CircleGlyph{}, 1.5)
		if err != nil {
			return nil, fmt.Errorf("positions: %w", err)
		}
		p.Add(sc)
		p.Legend.Add("positions", sc)
	}

	colors := generateColors(len(ageBands))
	for band, pts := range s.agentsByBand() {
		if len(pts) == 0 {
			continue
		}
		sc, err := newScatter(pts, colors[band], draw.CircleGlyph{}, 1.5)
		if err != nil {
			return nil, fmt.Errorf("agents: %w", err)
		}
		p.Add(sc)
		p.Legend.Add(ageBands[band], sc)
	}

	if len(s.Path) > 0 {
		xys := s.plotXYs(s.Path)
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("path: %w", err)
		}
		line.Color = pathColor
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add("flight path", line)

		launch, err := newScatter([]orb.Point{{s.Path[0][0], s.flipY(s.Path[0][1])}}, pathColor, draw.SquareGlyph{}, 5)
		if err != nil {
			return nil, fmt.Errorf("launch: %w", err)
		}
		p.Add(launch)
		p.Legend.Add("launch", launch)
	}

	if len(s.POIs) > 0 {
		sc, err := newScatter(s.flipped(s.POIs), poiColor, draw.TriangleGlyph{}, 4)
		if err != nil {
			return nil, fmt.Errorf("pois: %w", err)
		}
		p.Add(sc)
		p.Legend.Add("POIs", sc)
	}

	if len(s.Hotspots) > 0 {
		sc, err := newScatter(s.flipped(s.Hotspots), hotspotColor, draw.CrossGlyph{}, 5)
		if err != nil {
			return nil, fmt.Errorf("hotspots: %w", err)
		}
		p.Add(sc)
		p.Legend.Add("hotspots", sc)
	}

	// Clamp to the map after Add widened the ranges.
	p.X.Min, p.X.Max = 0, s.Width
	p.Y.Min, p.Y.Max = 0, s.Height

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// addTrails draws one thin line per trail, each in its own hue.
func (s *Scene) addTrails(p *plot.Plot) error {
	colors := generateColors(len(s.Trails))
	legend := false
	for i, trail := range s.Trails {
		for _, seg := range s.trailSegments(trail) {
			line, err := plotter.NewLine(s.plotXYs(seg))
			if err != nil {
				return fmt.Errorf("trail %d: %w", i, err)
			}
			line.Color = colors[i]
			line.Width = vg.Points(0.5)
			p.Add(line)
			if !legend {
				p.Legend.Add("trails", line)
				legend = true
			}
		}
	}
	return nil
}

// WritePNG renders the scene as a PNG to w.
func WritePNG(w io.Writer, s *Scene) error {
	p, err := s.Plot()
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, s.plotHeight(), "png")
	if err != nil {
		return fmt.Errorf("create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// SavePNG renders the scene to a PNG file.
func SavePNG(path string, s *Scene) error {
	p, err := s.Plot()
	if err != nil {
		return err
	}
	if err := p.Save(plotWidth, s.plotHeight(), path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

// plotHeight keeps the map aspect ratio, bounded to avoid extreme images.
func (s *Scene) plotHeight() vg.Length {
	ratio := min(max(s.Height/s.Width, 0.25), 4)
	return vg.Length(float64(plotWidth) * ratio)
}

func (s *Scene) plotXYs(pts []orb.Point) plotter.XYs {
	xys := make(plotter.XYs, len(pts))
	for i, p := range pts {
		xys[i] = plotter.XY{X: p[0], Y: s.flipY(p[1])}
	}
	return xys
}

func (s *Scene) flipped(pts []orb.Point) []orb.Point {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[i] = orb.Point{p[0], s.flipY(p[1])}
	}
	return out
}

func newScatter(pts []orb.Point, c color.Color, shape draw.GlyphDrawer, radius float64) (*plotter.Scatter, error) {
	xys := make(plotter.XYs, len(pts))
	for i, p := range pts {
		xys[i] = plotter.XY{X: p[0], Y: p[1]}
	}
	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Color = c
	sc.GlyphStyle.Shape = shape
	sc.GlyphStyle.Radius = vg.Points(radius)
	return sc, nil
}
