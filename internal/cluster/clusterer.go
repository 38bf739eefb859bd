package cluster

import (
	"slices"

	"github.com/paulmach/orb"

	"github.com/banshee-data/sarplan/internal/monitoring"
)

// Clusterer abstracts the hotspot clustering implementation so the mission
// pipeline can swap algorithms or use a stub in tests.
type Clusterer interface {
	// Cluster groups points. Clusters are sorted by centroid (X, then Y).
	Cluster(points []orb.Point) ([]Cluster, error)

	// GetParams returns the current clustering parameters.
	GetParams() Params

	// SetParams updates the clustering parameters.
	SetParams(params Params)
}

// DBSCANClusterer implements Clusterer using DBSCAN.
type DBSCANClusterer struct {
	params Params
}

// NewDBSCANClusterer creates a clusterer with the given parameters.
func NewDBSCANClusterer(eps float64, minSamples int) *DBSCANClusterer {
	return &DBSCANClusterer{params: Params{Eps: eps, MinSamples: minSamples}}
}

// NewDefaultDBSCANClusterer creates a clusterer with DefaultParams.
func NewDefaultDBSCANClusterer() *DBSCANClusterer {
	p := DefaultParams()
	return NewDBSCANClusterer(p.Eps, p.MinSamples)
}

// Cluster runs DBSCAN and sorts the result by centroid. IDs are reassigned
// 1..n in that order.
func (c *DBSCANClusterer) Cluster(points []orb.Point) ([]Cluster, error) {
	clusters, err := DBSCAN(points, c.params)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(clusters, func(a, b Cluster) int {
		return comparePoints(a.Centroid, b.Centroid)
	})
	clustered := 0
	for i := range clusters {
		clusters[i].ID = i + 1
		clustered += clusters[i].Size
	}
	monitoring.Logf("cluster: %d hotspots from %d points (%d noise, eps=%g min_samples=%d)",
		len(clusters), len(points), len(points)-clustered, c.params.Eps, c.params.MinSamples)
	return clusters, nil
}

// GetParams returns the current clustering parameters.
func (c *DBSCANClusterer) GetParams() Params {
	return c.params
}

// SetParams updates the clustering parameters.
func (c *DBSCANClusterer) SetParams(params Params) {
	c.params = params
}

var _ Clusterer = (*DBSCANClusterer)(nil)
