// Package poi reduces hotspots or raw positions to a fixed number of
// well-separated points of interest for a drone to visit.
//
// Two selectors are provided. Distributed works from cluster centroids and
// uses randomness plus a bounded relaxation schedule to keep points apart.
// GridDensity is fully deterministic: it histograms positions into a
// rows×cols grid and returns the centres of the busiest cells. Empty cells
// are never selected, so GridDensity can return fewer than top-k points.
package poi

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const (
	DefaultTargetCount = 6
	DefaultMinDistance = 100.0
	DefaultMargin      = 100.0
	DefaultMaxOffset   = 200.0
	DefaultMaxAttempts = 1000
	DefaultRelaxAfter  = 0.5
)

var ErrInvalidParams = errors.New("poi: invalid parameters")

// Params configures Distributed.
//
// Relaxation schedule: each synthesised point gets at most MaxAttempts
// candidates. The first RelaxAfter·MaxAttempts candidates must be at least
// MinDistance from every selected point; after that the required distance
// falls linearly to zero at MaxAttempts. If every attempt fails, the last
// candidate is placed unconstrained.
type Params struct {
	TargetCount int
	MinDistance float64
	Bounds      orb.Bound
	Margin      float64 // inset used when there are no centroids
	MaxOffset   float64 // per-axis offset bound for synthesised points
	MaxAttempts int
	RelaxAfter  float64 // fraction of MaxAttempts at full MinDistance
}

// DefaultParams returns Params for a map covering bounds.
func DefaultParams(bounds orb.Bound) Params {
	return Params{
		TargetCount: DefaultTargetCount,
		MinDistance: DefaultMinDistance,
		Bounds:      bounds,
		Margin:      DefaultMargin,
		MaxOffset:   DefaultMaxOffset,
		MaxAttempts: DefaultMaxAttempts,
		RelaxAfter:  DefaultRelaxAfter,
	}
}

// MapBounds returns the bound of a width×height map anchored at the origin.
func MapBounds(width, height float64) orb.Bound {
	return orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{width, height}}
}

// Validate reports whether p is usable.
func (p Params) Validate() error {
	switch {
	case p.TargetCount < 0:
		return fmt.Errorf("%w: target_count must be >= 0, got %d", ErrInvalidParams, p.TargetCount)
	case p.MinDistance < 0 || math.IsNaN(p.MinDistance):
		return fmt.Errorf("%w: min_distance must be >= 0, got %g", ErrInvalidParams, p.MinDistance)
	case p.Margin < 0 || p.MaxOffset < 0:
		return fmt.Errorf("%w: margin and max_offset must be >= 0", ErrInvalidParams)
	case p.MaxAttempts < 1:
		return fmt.Errorf("%w: max_attempts must be >= 1, got %d", ErrInvalidParams, p.MaxAttempts)
	case p.RelaxAfter < 0 || p.RelaxAfter > 1:
		return fmt.Errorf("%w: relax_after must be in [0,1], got %g", ErrInvalidParams, p.RelaxAfter)
	}
	return validateBounds(p.Bounds)
}

func validateBounds(b orb.Bound) error {
	if !(b.Max[0] > b.Min[0]) || !(b.Max[1] > b.Min[1]) {
		return fmt.Errorf("%w: empty bounds %v", ErrInvalidParams, b)
	}
	return nil
}

// effectiveDistance returns the separation required on a given attempt.
func (p Params) effectiveDistance(attempt int) float64 {
	start := int(p.RelaxAfter * float64(p.MaxAttempts))
	if attempt < start {
		return p.MinDistance
	}
	span := p.MaxAttempts - start
	if span <= 0 {
		return 0
	}
	return p.MinDistance * (1 - float64(attempt-start)/float64(span))
}
