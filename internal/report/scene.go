// Package report renders a planned mission for humans: a PNG with the
// density heatmap underneath movement trails, agents, hotspots, POIs and the
// flight path, and an interactive HTML scatter of the same layers.
//
// Both renderings flip the y axis so north (pixel row 0) is at the top.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/paulmach/orb"

	"github.com/banshee-data/sarplan/internal/density"
	"github.com/banshee-data/sarplan/internal/route"
	"github.com/banshee-data/sarplan/internal/sim"
)

var ErrEmptyScene = errors.New("report: scene has no extent")

// Scene is everything drawn for one mission. Any layer may be empty.
// Positions are drawn only when there are no Agents.
type Scene struct {
	Title     string
	Width     float64
	Height    float64
	Density   *density.Field
	Trails    [][]orb.Point // map coordinates, oldest first
	Agents    []sim.AgentState
	Positions []orb.Point
	Hotspots  []orb.Point
	POIs      []orb.Point
	Path      route.Path
}

func (s *Scene) validate() error {
	if !(s.Width > 0) || !(s.Height > 0) {
		return fmt.Errorf("%w: %gx%g", ErrEmptyScene, s.Width, s.Height)
	}
	return nil
}

// flipY maps a pixel y (down) onto a plot y (up).
func (s *Scene) flipY(y float64) float64 {
	return s.Height - y
}

// ageBands names the three age bands packed into sim colour buckets.
var ageBands = [...]string{"agents (young)", "agents (adult)", "agents (old)"}

// agentsByBand splits agents into plot coordinates per age band.
func (s *Scene) agentsByBand() [len(ageBands)][]orb.Point {
	var out [len(ageBands)][]orb.Point
	for _, a := range s.Agents {
		band := min(int(a.ColorBucket)/3, len(ageBands)-1)
		out[band] = append(out[band], orb.Point{a.X, s.flipY(a.Y)})
	}
	return out
}

// trailSegments splits a trail wherever it jumps more than half the map,
// which is an agent wrapping across an edge. Segments of one point are
// dropped.
func (s *Scene) trailSegments(trail []orb.Point) [][]orb.Point {
	var out [][]orb.Point
	begin := 0
	for i := 1; i <= len(trail); i++ {
		if i < len(trail) {
			dx, dy := trail[i][0]-trail[i-1][0], trail[i][1]-trail[i-1][1]
			if math.Abs(dx) <= s.Width/2 && math.Abs(dy) <= s.Height/2 {
				continue
			}
		}
		if i-begin > 1 {
			out = append(out, trail[begin:i])
		}
		begin = i
	}
	return out
}

var (
	positionColor = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	pathColor     = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	poiColor      = color.RGBA{R: 0, G: 90, B: 200, A: 255}
	hotspotColor  = color.RGBA{R: 220, G: 0, B: 120, A: 255}
)

// generateColors creates a palette of n distinct colours spread around the
// hue wheel.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

// hexColor formats c as #rrggbb for the HTML chart.
func hexColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
