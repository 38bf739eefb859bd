package sim

import (
	"math"

	"github.com/banshee-data/sarplan/internal/elevation"
	"github.com/banshee-data/sarplan/internal/terrain"
)

// Steering constants. All angles are radians.
const (
	waterEdgeFraction = 0.8  // water_count must stay below this share of the window
	waterTurnProb     = 0.6  // chance of a lateral turn at a water edge
	waterTurnMax      = 0.5  // lateral turn drawn from [-max, max]
	roadBias          = 0.3  // heading reinforcement on roads
	downhillGain      = 0.3  // proportional gain toward the downhill heading
	gradientThreshold = 0.1  // per-axis gradient needed to steer downhill
	jitterMax         = 0.03 // undirected jitter drawn from [-max, max]

	minElevationPref = 0.1
	maxElevationPref = 0.9
)

// Branch names the rule that produced the directed part of a heading change.
type Branch uint8

const (
	BranchNone Branch = iota
	BranchWaterEdge
	BranchRoad
	BranchElevation
)

func (b Branch) String() string {
	switch b {
	case BranchWaterEdge:
		return "water_edge"
	case BranchRoad:
		return "road"
	case BranchElevation:
		return "elevation"
	default:
		return "none"
	}
}

// randSource is the subset of *rand.Rand used by the policy.
type randSource interface {
	Float64() float64
}

func uniform(r randSource, lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

// angleAdjustFactor damps steering for older agents.
func angleAdjustFactor(age float64) float64 {
	return 1 - 0.3*age
}

// elevationPreference is the per-agent probability of reading the gradient.
func elevationPreference(base, age float64) float64 {
	p := base * (1 + 0.2*(age-0.5))
	return math.Min(math.Max(p, minElevationPref), maxElevationPref)
}

// normalizeAngle maps an angle difference into [-pi, pi].
func normalizeAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// steering is the outcome of one policy evaluation.
type steering struct {
	Branch Branch
	Delta  float64 // directed adjustment plus jitter
}

// steer evaluates the per-tick policy for one agent. Rules are checked in
// priority order and at most one contributes a directed adjustment; the
// jitter term is always added.
//
// A window holding some water (below 80% of it) always takes the water-edge
// rule, even when the 0.6 draw fails, so agents near water never steer
// downhill or along roads on that tick.
func steer(wc terrain.WindowCounts, grad elevation.Gradient, heading, age, basePref float64, rng randSource) steering {
	adjust := angleAdjustFactor(age)
	water := wc.Of(terrain.Water)
	road := wc.Of(terrain.Road)
	total := wc.Total

	var s steering
	switch {
	case water > 0 && float64(water) < waterEdgeFraction*float64(total):
		s.Branch = BranchWaterEdge
		if rng.Float64() < waterTurnProb {
			s.Delta = uniform(rng, -waterTurnMax, waterTurnMax) * adjust
		}
	case road > water:
		s.Branch = BranchRoad
		s.Delta = roadBias * adjust
	default:
		if rng.Float64() < elevationPreference(basePref, age) {
			if math.Abs(grad.DX) > gradientThreshold || math.Abs(grad.DY) > gradientThreshold {
				s.Branch = BranchElevation
				downhill := math.Atan2(-grad.DY, -grad.DX)
				s.Delta = downhillGain * adjust * normalizeAngle(downhill-heading)
			}
		}
	}

	s.Delta += uniform(rng, -jitterMax, jitterMax) * (1 - 0.5*age)
	return s
}
