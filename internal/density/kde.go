// Package density turns a discrete set of agent positions into a normalised
// probability grid using a Gaussian kernel density estimate.
//
// Bandwidth follows Scott's rule for d = 2 dimensions: the kernel covariance
// is the unbiased sample covariance scaled by factor², where
// factor = n^(-1/(d+4)) = n^(-1/6).
package density

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/sarplan/internal/monitoring"
)

const dims = 2

// maxCovarianceCond rejects kernel covariances too ill-conditioned to invert
// reliably (e.g. all points on a line).
const maxCovarianceCond = 1e12

var (
	ErrTooFewPoints      = errors.New("density: at least two positions are required")
	ErrInvalidResolution = errors.New("density: resolution must be at least 2")
	ErrInvalidExtent     = errors.New("density: map extent must be positive")
)

// ScottFactor returns the Scott's rule bandwidth factor for n samples in
// d dimensions.
func ScottFactor(n, d int) float64 {
	return math.Pow(float64(n), -1/float64(d+4))
}

// Estimate evaluates a KDE of points at a resolution×resolution lattice of
// nodes spanning [0,width]×[0,height] (both ends included) and normalises the
// result to [0,1]. A degenerate input (singular covariance, or a flat
// result) yields a uniform field of ones.
func Estimate(points []orb.Point, width, height float64, resolution int) (*Field, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, len(points))
	}
	if resolution < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidResolution, resolution)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %gx%g", ErrInvalidExtent, width, height)
	}

	f := newField(resolution, resolution, width, height)
	f.Bandwidth = ScottFactor(len(points), dims)

	data := mat.NewDense(len(points), dims, nil)
	for i, p := range points {
		data.Set(i, 0, p[0])
		data.Set(i, 1, p[1])
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)
	cov.ScaleSym(f.Bandwidth*f.Bandwidth, &cov)

	var chol mat.Cholesky
	if ok := chol.Factorize(&cov); !ok || chol.Cond() > maxCovarianceCond {
		monitoring.Logf("density: singular kernel covariance for %d points, using uniform field", len(points))
		f.fillUniform()
		return f, nil
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		monitoring.Logf("density: covariance inverse failed (%v), using uniform field", err)
		f.fillUniform()
		return f, nil
	}
	a, b, c := inv.At(0, 0), inv.At(0, 1), inv.At(1, 1)
	norm := 1 / (2 * math.Pi * math.Sqrt(chol.Det()) * float64(len(points)))

	for r := 0; r < f.Rows; r++ {
		y := f.NodeY(r)
		for col := 0; col < f.Cols; col++ {
			x := f.NodeX(col)
			var sum float64
			for _, p := range points {
				dx, dy := x-p[0], y-p[1]
				sum += math.Exp(-0.5 * (a*dx*dx + 2*b*dx*dy + c*dy*dy))
			}
			f.Values[r*f.Cols+col] = sum * norm
		}
	}

	f.normalize()
	return f, nil
}

// normalize rescales Values to [0,1] via (v-min)/(max-min). Dividing each
// value keeps the maximum at exactly 1.
func (f *Field) normalize() {
	lo, hi := floats.Min(f.Values), floats.Max(f.Values)
	span := hi - lo
	if !(span > 0) || math.IsInf(span, 0) {
		monitoring.Logf("density: flat estimate (min=%g max=%g), using uniform field", lo, hi)
		f.fillUniform()
		return
	}
	for i, v := range f.Values {
		f.Values[i] = (v - lo) / span
	}
}
