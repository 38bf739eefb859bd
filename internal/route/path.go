// Package route orders waypoints into a flight path starting from a launch
// point. Neither mode is optimal; greedy routing is a nearest-neighbour
// heuristic and in-order routing trusts the caller's ordering.
package route

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Mode selects how waypoints are ordered.
type Mode string

const (
	ModeGreedy  Mode = "greedy"
	ModeInOrder Mode = "in_order"
)

// ParseMode converts a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeGreedy, ModeInOrder:
		return Mode(s), nil
	}
	return "", fmt.Errorf("route: unknown mode %q", s)
}

// Path is an ordered flight path. Element 0 is the start point.
type Path []orb.Point

// Plan routes waypoints from start using mode.
func Plan(mode Mode, start orb.Point, waypoints []orb.Point) (Path, error) {
	switch mode {
	case ModeGreedy:
		return Greedy(start, waypoints), nil
	case ModeInOrder:
		return InOrder(start, waypoints), nil
	}
	return nil, fmt.Errorf("route: unknown mode %q", mode)
}

// Greedy repeatedly appends the unvisited waypoint nearest the current end
// of the path. Ties go to the lowest waypoint index.
func Greedy(start orb.Point, waypoints []orb.Point) Path {
	path := make(Path, 0, len(waypoints)+1)
	path = append(path, start)

	visited := make([]bool, len(waypoints))
	current := start
	for range waypoints {
		next, best := -1, math.Inf(1)
		for i, w := range waypoints {
			if visited[i] {
				continue
			}
			// next < 0 keeps NaN coordinates from leaving nothing selected.
			if d := planar.DistanceSquared(current, w); d < best || next < 0 {
				next, best = i, d
			}
		}
		visited[next] = true
		current = waypoints[next]
		path = append(path, current)
	}
	return path
}

// InOrder appends waypoints in the order given.
func InOrder(start orb.Point, waypoints []orb.Point) Path {
	path := make(Path, 0, len(waypoints)+1)
	path = append(path, start)
	return append(path, waypoints...)
}

// Length returns the total Euclidean length of the path.
func (p Path) Length() float64 {
	return planar.Length(p.LineString())
}

// LineString returns the path as an orb.LineString.
func (p Path) LineString() orb.LineString {
	return orb.LineString(p)
}

// Waypoints returns the path without its start point.
func (p Path) Waypoints() []orb.Point {
	if len(p) < 2 {
		return nil
	}
	return p[1:]
}
