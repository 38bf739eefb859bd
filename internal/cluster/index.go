package cluster

import (
	"math"

	"github.com/paulmach/orb"
)

// estimatedPointsPerCell is used for initial spatial index capacity.
const estimatedPointsPerCell = 4

// SpatialIndex provides neighbour queries over a regular grid.
// Cell size should match the DBSCAN eps parameter so a 3x3 block of cells
// covers every point within eps.
type SpatialIndex struct {
	CellSize float64
	Grid     map[int64][]int // cell ID → point indices
}

// NewSpatialIndex creates a spatial index with the given cell size.
func NewSpatialIndex(cellSize float64) *SpatialIndex {
	return &SpatialIndex{
		CellSize: cellSize,
		Grid:     make(map[int64][]int),
	}
}

// Build populates the index from points.
func (si *SpatialIndex) Build(points []orb.Point) {
	si.Grid = make(map[int64][]int, len(points)/estimatedPointsPerCell+1)
	for i, p := range points {
		id := cellID(si.cellCoords(p))
		si.Grid[id] = append(si.Grid[id], i)
	}
}

func (si *SpatialIndex) cellCoords(p orb.Point) (int64, int64) {
	return int64(math.Floor(p[0] / si.CellSize)), int64(math.Floor(p[1] / si.CellSize))
}

// cellID pairs two signed cell coordinates into one key: zigzag encoding
// maps them to non-negative integers, then Szudzik's pairing function
// combines them.
func cellID(cx, cy int64) int64 {
	a, b := zigzag(cx), zigzag(cy)
	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

func zigzag(v int64) int64 {
	if v >= 0 {
		return 2 * v
	}
	return -2*v - 1
}

// RegionQuery returns indices of all points within eps of points[idx],
// including idx itself.
func (si *SpatialIndex) RegionQuery(points []orb.Point, idx int, eps float64) []int {
	p := points[idx]
	eps2 := eps * eps
	cx, cy := si.cellCoords(p)

	var neighbors []int
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, j := range si.Grid[cellID(cx+dx, cy+dy)] {
				ddx := points[j][0] - p[0]
				ddy := points[j][1] - p[1]
				if ddx*ddx+ddy*ddy <= eps2 {
					neighbors = append(neighbors, j)
				}
			}
		}
	}
	return neighbors
}
