package poi

import (
	"math"
	"math/rand/v2"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/banshee-data/sarplan/internal/monitoring"
)

// Distributed returns exactly params.TargetCount points derived from
// centroids:
//
//   - no centroids: uniform samples inside Bounds inset by Margin;
//   - at most TargetCount centroids: all of them, plus points synthesised
//     around randomly chosen centroids under the relaxation schedule;
//   - more than TargetCount: farthest-point selection seeded with the
//     centroid nearest the map centre.
//
// rng supplies every random draw, so a fixed seed gives a fixed result.
func Distributed(centroids []orb.Point, params Params, rng *rand.Rand) ([]orb.Point, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.TargetCount == 0 {
		return []orb.Point{}, nil
	}

	switch {
	case len(centroids) == 0:
		return uniformInterior(params, rng), nil
	case len(centroids) <= params.TargetCount:
		return fillAround(centroids, params, rng), nil
	default:
		return farthestPoint(centroids, params), nil
	}
}

func uniformInterior(params Params, rng *rand.Rand) []orb.Point {
	b := params.Bounds
	margin := params.Margin
	if 2*margin >= b.Max[0]-b.Min[0] || 2*margin >= b.Max[1]-b.Min[1] {
		monitoring.Logf("poi: margin %g leaves no interior in %v, using full bounds", margin, b)
		margin = 0
	}

	out := make([]orb.Point, params.TargetCount)
	for i := range out {
		out[i] = orb.Point{
			uniform(rng, b.Min[0]+margin, b.Max[0]-margin),
			uniform(rng, b.Min[1]+margin, b.Max[1]-margin),
		}
	}
	monitoring.Logf("poi: no hotspots, placed %d random points", len(out))
	return out
}

func fillAround(centroids []orb.Point, params Params, rng *rand.Rand) []orb.Point {
	selected := make([]orb.Point, 0, params.TargetCount)
	selected = append(selected, centroids...)

	relaxed, forced := 0, 0
	for len(selected) < params.TargetCount {
		var candidate orb.Point
		placed := false
		for attempt := 0; attempt < params.MaxAttempts; attempt++ {
			base := centroids[rng.IntN(len(centroids))]
			candidate = clampTo(params.Bounds, orb.Point{
				base[0] + uniform(rng, -params.MaxOffset, params.MaxOffset),
				base[1] + uniform(rng, -params.MaxOffset, params.MaxOffset),
			})
			need := params.effectiveDistance(attempt)
			if minDistance(candidate, selected) >= need {
				if need < params.MinDistance {
					relaxed++
				}
				placed = true
				break
			}
		}
		if !placed {
			forced++
		}
		selected = append(selected, candidate)
	}

	if relaxed > 0 || forced > 0 {
		monitoring.Logf("poi: synthesised %d points (%d with relaxed spacing, %d unconstrained)",
			params.TargetCount-len(centroids), relaxed, forced)
	}
	return selected
}

// farthestPoint is a greedy k-center approximation. Ties go to the lowest
// candidate index.
func farthestPoint(centroids []orb.Point, params Params) []orb.Point {
	centre := params.Bounds.Center()
	seed, best := 0, math.Inf(1)
	for i, c := range centroids {
		if d := planar.Distance(c, centre); d < best {
			seed, best = i, d
		}
	}

	used := make([]bool, len(centroids))
	used[seed] = true
	selected := make([]orb.Point, 0, params.TargetCount)
	selected = append(selected, centroids[seed])

	// nearest[i] is the distance from candidate i to the selected set.
	nearest := make([]float64, len(centroids))
	for i, c := range centroids {
		nearest[i] = planar.Distance(c, centroids[seed])
	}

	crowded := 0
	for len(selected) < params.TargetCount {
		pick, far := -1, -1.0
		for i := range centroids {
			if !used[i] && nearest[i] > far {
				pick, far = i, nearest[i]
			}
		}
		if pick < 0 {
			break
		}
		if far < params.MinDistance {
			crowded++
		}
		used[pick] = true
		selected = append(selected, centroids[pick])
		for i, c := range centroids {
			if !used[i] {
				nearest[i] = math.Min(nearest[i], planar.Distance(c, centroids[pick]))
			}
		}
	}

	if crowded > 0 {
		monitoring.Logf("poi: %d of %d selected hotspots are closer than %g to another",
			crowded, len(selected), params.MinDistance)
	}
	return selected
}

func minDistance(p orb.Point, set []orb.Point) float64 {
	d := math.Inf(1)
	for _, q := range set {
		d = math.Min(d, planar.Distance(p, q))
	}
	return d
}

func clampTo(b orb.Bound, p orb.Point) orb.Point {
	return orb.Point{
		min(max(p[0], b.Min[0]), b.Max[0]),
		min(max(p[1], b.Min[1]), b.Max[1]),
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
