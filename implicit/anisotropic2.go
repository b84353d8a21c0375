package implicit

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/notargets/gofluid/grid"
	"github.com/notargets/gofluid/particle"
	"github.com/notargets/gofluid/searcher"
	"github.com/notargets/gofluid/utils"
)

const (
	DefaultCutOffDensity           = 0.5
	DefaultPositionSmoothingFactor = 0.5
	DefaultMinNumNeighbors         = 25

	// singular values are kept within this ratio of the largest one
	maxAnisotropy = 4.
)

// AnisotropicPointsToImplicit2 reconstructs the surface with one elliptic
// kernel per point, stretched along the local point distribution. Points
// with fewer than MinNumNeighbors neighbors get a round kernel.
type AnisotropicPointsToImplicit2 struct {
	KernelRadius            float64
	CutOffDensity           float64
	PositionSmoothingFactor float64
	MinNumNeighbors         int
	IsOutputSDF             bool
}

func NewAnisotropicPointsToImplicit2(kernelRadius float64) *AnisotropicPointsToImplicit2 {
	return &AnisotropicPointsToImplicit2{
		KernelRadius:            kernelRadius,
		CutOffDensity:           DefaultCutOffDensity,
		PositionSmoothingFactor: DefaultPositionSmoothingFactor,
		MinNumNeighbors:         DefaultMinNumNeighbors,
		IsOutputSDF:             true,
	}
}

// polyKernel is the normalized radial profile (1-d^2)^3 on the unit disc.
func polyKernel(distance float64) float64 {
	d2 := distance * distance
	if d2 >= 1 {
		return 0
	}
	x := 1 - d2
	return x * x * x
}

func neighborWeight(distance, r float64) float64 {
	if distance < r {
		q := distance / r
		return 1 - q*q*q
	}
	return 0
}

// kernel2 is the linear map G of one point and its determinant.
type kernel2 struct {
	g   [2][2]float64
	det float64
}

func isotropic2(invH float64) kernel2 {
	return kernel2{g: [2][2]float64{{invH, 0}, {0, invH}}, det: invH * invH}
}

func (k kernel2) weight(r r2.Vec) float64 {
	gr := r2.Vec{
		X: k.g[0][0]*r.X + k.g[0][1]*r.Y,
		Y: k.g[1][0]*r.X + k.g[1][1]*r.Y,
	}
	return 4 / math.Pi * k.det * polyKernel(r2.Norm(gr))
}

// anisotropicKernel2 turns a covariance matrix into the area preserving
// transform invH * s * V Σ⁻¹ Uᵀ, with the singular values clamped to
// 1/maxAnisotropy of the largest.
func anisotropicKernel2(cov *mat.SymDense, invH float64) (k kernel2, ok bool) {
	var svd mat.SVD
	if !svd.Factorize(cov, mat.SVDFull) {
		return
	}
	var (
		sigma = svd.Values(nil)
		u, v  mat.Dense
		maxSV = math.Max(math.Abs(sigma[0]), math.Abs(sigma[1]))
	)
	if maxSV == 0 {
		return
	}
	svd.UTo(&u)
	svd.VTo(&v)
	for i := range sigma {
		sigma[i] = math.Max(math.Abs(sigma[i]), maxSV/maxAnisotropy)
	}
	var (
		scale    = invH * math.Sqrt(sigma[0]*sigma[1])
		invSigma = mat.NewDiagDense(2, []float64{1 / sigma[0], 1 / sigma[1]})
		g        mat.Dense
	)
	g.Product(&v, invSigma, u.T())
	g.Scale(scale, &g)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			k.g[i][j] = g.At(i, j)
		}
	}
	k.det = mat.Det(&g)
	return k, true
}

func (c *AnisotropicPointsToImplicit2) Convert(points []r2.Vec, output *grid.ScalarGrid2) (err error) {
	if !usable2(output) {
		return
	}
	var (
		h            = c.KernelRadius
		invH         = 1 / h
		r            = 2 * h
		meanSearcher = searcher.NewKdTree2()
		kernels      = make([]kernel2, len(points))
		xMeans       = make([]r2.Vec, len(points))
	)
	meanSearcher.Build(points, r)
	slog.Debug("points to implicit: built neighbor searcher", "points", len(points))

	utils.ParallelFor(0, len(points), func(i int) {
		var (
			x            = points[i]
			xMean        r2.Vec
			wSum         float64
			numNeighbors int
		)
		meanSearcher.ForEachNearbyPoint(x, r, func(_ int, xj r2.Vec) {
			wj := neighborWeight(r2.Norm(r2.Sub(x, xj)), r)
			wSum += wj
			xMean = r2.Add(xMean, r2.Scale(wj, xj))
			numNeighbors++
		})
		if wSum > 0 {
			xMean = r2.Scale(1/wSum, xMean)
		} else {
			xMean = x
		}
		xMeans[i] = r2.Add(x, r2.Scale(c.PositionSmoothingFactor, r2.Sub(xMean, x)))
		kernels[i] = isotropic2(invH)
		if numNeighbors < c.MinNumNeighbors {
			return
		}
		// start from h^2 so that collinear points still give a full rank matrix
		var (
			cov  = [3]float64{h * h, 0, h * h}
			wCov float64
		)
		meanSearcher.ForEachNearbyPoint(x, r, func(_ int, xj r2.Vec) {
			var (
				wj = neighborWeight(r2.Norm(r2.Sub(xMean, xj)), r)
				d  = r2.Sub(xj, xMean)
			)
			wCov += wj
			cov[0] += wj * d.X * d.X
			cov[1] += wj * d.X * d.Y
			cov[2] += wj * d.Y * d.Y
		})
		if wCov <= 0 {
			return
		}
		sym := mat.NewSymDense(2, []float64{cov[0] / wCov, cov[1] / wCov, cov[1] / wCov, cov[2] / wCov})
		if k, ok := anisotropicKernel2(sym, invH); ok {
			kernels[i] = k
		}
	})
	slog.Debug("points to implicit: computed kernels and means")

	sph := particle.NewSPHSystemData2(0)
	if err = sph.AddParticles(points, nil, nil); err != nil {
		return
	}
	sph.SetNeighborSearcher(meanSearcher)
	sph.SetKernelRadius(h)
	sph.UpdateDensities()
	var (
		d             = sph.Densities()
		m             = sph.Mass()
		meanSearcher2 = searcher.NewKdTree2()
		temp          = output.Clone()
	)
	meanSearcher2.Build(xMeans, r)
	temp.FillFunc(func(x r2.Vec) float64 {
		var sum float64
		meanSearcher2.ForEachNearbyPoint(x, r, func(i int, xi r2.Vec) {
			if d[i] > 0 {
				sum += m / d[i] * kernels[i].weight(r2.Sub(xi, x))
			}
		})
		return c.CutOffDensity - sum
	})
	slog.Debug("points to implicit: computed field")
	return finish2(temp, output, c.IsOutputSDF)
}
