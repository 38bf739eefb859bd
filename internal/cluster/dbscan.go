// Package cluster groups agent end positions into hotspots with DBSCAN.
package cluster

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/paulmach/orb"
)

const (
	DefaultEps        = 50.0
	DefaultMinSamples = 5
)

const (
	labelUnvisited = 0
	labelNoise     = -1
)

var ErrInvalidParams = errors.New("cluster: invalid parameters")

// Params configures DBSCAN. MinSamples counts the query point itself.
type Params struct {
	Eps        float64 // neighbourhood radius in map units
	MinSamples int     // minimum neighbours for a core point
}

// DefaultParams returns the production DBSCAN parameters.
func DefaultParams() Params {
	return Params{Eps: DefaultEps, MinSamples: DefaultMinSamples}
}

// Validate reports whether p can drive DBSCAN.
func (p Params) Validate() error {
	if !(p.Eps > 0) {
		return fmt.Errorf("%w: eps must be positive, got %g", ErrInvalidParams, p.Eps)
	}
	if p.MinSamples < 1 {
		return fmt.Errorf("%w: min_samples must be >= 1, got %d", ErrInvalidParams, p.MinSamples)
	}
	return nil
}

// Cluster is a group of density-connected points.
type Cluster struct {
	ID       int
	Members  []orb.Point
	Centroid orb.Point
	Size     int
	Bound    orb.Bound
}

// DBSCAN clusters points and drops noise. Points are first put in canonical
// (x, y) order, so border points shared by two clusters are always assigned
// the same way and the partition depends only on the point set. Members
// keep that canonical order; cluster IDs are 1-based in discovery order.
func DBSCAN(points []orb.Point, params Params) ([]Cluster, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, nil
	}

	sorted := slices.Clone(points)
	slices.SortFunc(sorted, comparePoints)

	n := len(sorted)
	labels := make([]int, n) // 0=unvisited, -1=noise, >0=cluster ID
	clusterID := 0

	index := NewSpatialIndex(params.Eps)
	index.Build(sorted)

	for i := 0; i < n; i++ {
		if labels[i] != labelUnvisited {
			continue
		}
		neighbors := index.RegionQuery(sorted, i, params.Eps)
		if len(neighbors) < params.MinSamples {
			labels[i] = labelNoise
			continue
		}
		clusterID++
		expandCluster(sorted, index, labels, i, neighbors, clusterID, params)
	}

	return buildClusters(sorted, labels, clusterID), nil
}

// expandCluster grows a cluster outward from a core point using a queue.
func expandCluster(points []orb.Point, si *SpatialIndex, labels []int,
	seed int, queue []int, clusterID int, params Params) {

	labels[seed] = clusterID
	for j := 0; j < len(queue); j++ {
		idx := queue[j]
		if labels[idx] == labelNoise {
			labels[idx] = clusterID // noise becomes a border point
		}
		if labels[idx] != labelUnvisited {
			continue
		}
		labels[idx] = clusterID
		next := si.RegionQuery(points, idx, params.Eps)
		if len(next) >= params.MinSamples {
			queue = append(queue, next...)
		}
	}
}

func buildClusters(points []orb.Point, labels []int, maxID int) []Cluster {
	members := make([][]orb.Point, maxID+1)
	for i, label := range labels {
		if label > 0 {
			members[label] = append(members[label], points[i])
		}
	}

	clusters := make([]Cluster, 0, maxID)
	for id := 1; id <= maxID; id++ {
		if len(members[id]) == 0 {
			continue
		}
		clusters = append(clusters, newCluster(id, members[id]))
	}
	return clusters
}

func newCluster(id int, members []orb.Point) Cluster {
	var sx, sy float64
	for _, p := range members {
		sx += p[0]
		sy += p[1]
	}
	n := float64(len(members))
	return Cluster{
		ID:       id,
		Members:  members,
		Centroid: orb.Point{sx / n, sy / n},
		Size:     len(members),
		Bound:    orb.MultiPoint(members).Bound(),
	}
}

func comparePoints(a, b orb.Point) int {
	if c := cmp.Compare(a[0], b[0]); c != 0 {
		return c
	}
	return cmp.Compare(a[1], b[1])
}

// Centroids returns the centroid of each cluster, in order.
func Centroids(clusters []Cluster) []orb.Point {
	out := make([]orb.Point, len(clusters))
	for i, c := range clusters {
		out[i] = c.Centroid
	}
	return out
}
