package sim

import (
	"math"
	"math/rand/v2"

	"github.com/paulmach/orb"
)

// Agents is the structure-of-arrays population store. Index i across every
// slice describes agent i. Age, Speed and ColorBucket are fixed at creation;
// X, Y and Heading change every tick.
type Agents struct {
	X           []float64
	Y           []float64
	Heading     []float64
	Speed       []float64
	Age         []float64
	ColorBucket []uint8
}

func newAgents(n int) Agents {
	return Agents{
		X:           make([]float64, n),
		Y:           make([]float64, n),
		Heading:     make([]float64, n),
		Speed:       make([]float64, n),
		Age:         make([]float64, n),
		ColorBucket: make([]uint8, n),
	}
}

// Len returns the population size.
func (a *Agents) Len() int { return len(a.X) }

// AgentState is the flat per-agent record handed to callers.
type AgentState struct {
	ID          int     `json:"id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Heading     float64 `json:"heading"`
	Speed       float64 `json:"speed"`
	Age         float64 `json:"age"`
	ColorBucket uint8   `json:"color_bucket"`
}

// State returns a copy of agent i.
func (a *Agents) State(i int) AgentState {
	return AgentState{
		ID:          i,
		X:           a.X[i],
		Y:           a.Y[i],
		Heading:     a.Heading[i],
		Speed:       a.Speed[i],
		Age:         a.Age[i],
		ColorBucket: a.ColorBucket[i],
	}
}

// spawn initialises agent i inside a disk around the grid centre. The
// radius is drawn uniformly, so agents start packed toward the centre.
// Draw order: position angle, radius, heading, base speed, age, colour shade.
func (a *Agents) spawn(i int, width, height float64, cfg Config, rng *rand.Rand) {
	cx, cy := width/2, height/2
	radius := math.Min(width, height) / 4

	theta := rng.Float64() * 2 * math.Pi
	r := radius * rng.Float64()
	a.X[i], a.Y[i] = wrap(cx+r*math.Cos(theta), width), wrap(cy+r*math.Sin(theta), height)

	a.Heading[i] = rng.Float64() * 2 * math.Pi
	base := uniform(rng, cfg.SpeedMin, cfg.SpeedMax)
	age := uniform(rng, cfg.AgeMin, cfg.AgeMax)
	a.Age[i] = age
	a.Speed[i] = base * cfg.AgeSpeedFactor * (maxAge - age)
	a.ColorBucket[i] = colorBucket(age, rng.IntN(3))
}

// colorBucket packs an age band (young, adult, old) and one of three shades
// into 0..8. It has no effect on movement.
func colorBucket(age float64, shade int) uint8 {
	band := 2
	switch {
	case age < 0.4:
		band = 0
	case age < 0.7:
		band = 1
	}
	return uint8(band*3 + shade)
}

// wrap folds v into [0, extent).
func wrap(v, extent float64) float64 {
	if v >= 0 && v < extent {
		return v
	}
	v = math.Mod(v, extent)
	if v < 0 {
		v += extent
	}
	// A tiny negative remainder can round up to extent.
	if v >= extent {
		v = 0
	}
	return v
}

func wrapAngle(a float64) float64 {
	return wrap(a, 2*math.Pi)
}

func (a *Agents) positions() []orb.Point {
	pts := make([]orb.Point, a.Len())
	for i := range pts {
		pts[i] = orb.Point{a.X[i], a.Y[i]}
	}
	return pts
}
