package implicit

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/grid"
	"github.com/notargets/gofluid/particle"
	"github.com/notargets/gofluid/searcher"
	"github.com/notargets/gofluid/utils"
)

type AnisotropicPointsToImplicit3 struct {
	KernelRadius            float64
	CutOffDensity           float64
	PositionSmoothingFactor float64
	MinNumNeighbors         int
	IsOutputSDF             bool
}

func NewAnisotropicPointsToImplicit3(kernelRadius float64) *AnisotropicPointsToImplicit3 {
	return &AnisotropicPointsToImplicit3{
		KernelRadius:            kernelRadius,
		CutOffDensity:           DefaultCutOffDensity,
		PositionSmoothingFactor: DefaultPositionSmoothingFactor,
		MinNumNeighbors:         DefaultMinNumNeighbors,
		IsOutputSDF:             true,
	}
}

type kernel3 struct {
	g   *mat.Dense
	det float64
}

func isotropic3(invH float64) kernel3 {
	return kernel3{g: mat.NewDense(3, 3, []float64{invH, 0, 0, 0, invH, 0, 0, 0, invH}), det: invH * invH * invH}
}

func (k kernel3) weight(r r3.Vec) float64 {
	var (
		g  = k.g.RawMatrix().Data
		gr = r3.Vec{
			X: g[0]*r.X + g[1]*r.Y + g[2]*r.Z,
			Y: g[3]*r.X + g[4]*r.Y + g[5]*r.Z,
			Z: g[6]*r.X + g[7]*r.Y + g[8]*r.Z,
		}
	)
	return 315 / (64 * math.Pi) * k.det * polyKernel(r3.Norm(gr))
}

// anisotropicKernel3 is anisotropicKernel2 with volume preservation.
func anisotropicKernel3(cov *mat.SymDense, invH float64) (k kernel3, ok bool) {
	var svd mat.SVD
	if !svd.Factorize(cov, mat.SVDFull) {
		return
	}
	var (
		sigma = svd.Values(nil)
		u, v  mat.Dense
		maxSV float64
	)
	for _, s := range sigma {
		maxSV = math.Max(maxSV, math.Abs(s))
	}
	if maxSV == 0 {
		return
	}
	svd.UTo(&u)
	svd.VTo(&v)
	for i := range sigma {
		sigma[i] = math.Max(math.Abs(sigma[i]), maxSV/maxAnisotropy)
	}
	var (
		scale    = invH * math.Cbrt(sigma[0]*sigma[1]*sigma[2])
		invSigma = mat.NewDiagDense(3, []float64{1 / sigma[0], 1 / sigma[1], 1 / sigma[2]})
		g        = mat.NewDense(3, 3, nil)
	)
	g.Product(&v, invSigma, u.T())
	g.Scale(scale, g)
	return kernel3{g: g, det: mat.Det(g)}, true
}

func (c *AnisotropicPointsToImplicit3) Convert(points []r3.Vec, output *grid.ScalarGrid3) (err error) {
	if !usable3(output) {
		return
	}
	var (
		h            = c.KernelRadius
		invH         = 1 / h
		r            = 2 * h
		meanSearcher = searcher.NewKdTree3()
		kernels      = make([]kernel3, len(points))
		xMeans       = make([]r3.Vec, len(points))
	)
	meanSearcher.Build(points, r)

	utils.ParallelFor(0, len(points), func(i int) {
		var (
			x            = points[i]
			xMean        r3.Vec
			wSum         float64
			numNeighbors int
		)
		meanSearcher.ForEachNearbyPoint(x, r, func(_ int, xj r3.Vec) {
			wj := neighborWeight(r3.Norm(r3.Sub(x, xj)), r)
			wSum += wj
			xMean = r3.Add(xMean, r3.Scale(wj, xj))
			numNeighbors++
		})
		if wSum > 0 {
			xMean = r3.Scale(1/wSum, xMean)
		} else {
			xMean = x
		}
		xMeans[i] = r3.Add(x, r3.Scale(c.PositionSmoothingFactor, r3.Sub(xMean, x)))
		kernels[i] = isotropic3(invH)
		if numNeighbors < c.MinNumNeighbors {
			return
		}
		var (
			cov  = mat.NewSymDense(3, []float64{h * h, 0, 0, 0, h * h, 0, 0, 0, h * h})
			wCov float64
		)
		meanSearcher.ForEachNearbyPoint(x, r, func(_ int, xj r3.Vec) {
			var (
				wj = neighborWeight(r3.Norm(r3.Sub(xMean, xj)), r)
				d  = r3.Sub(xj, xMean)
			)
			wCov += wj
			cov.SymRankOne(cov, wj, mat.NewVecDense(3, []float64{d.X, d.Y, d.Z}))
		})
		if wCov <= 0 {
			return
		}
		cov.ScaleSym(1/wCov, cov)
		if k, ok := anisotropicKernel3(cov, invH); ok {
			kernels[i] = k
		}
	})
	slog.Debug("points to implicit: computed kernels and means", "points", len(points))

	sph := particle.NewSPHSystemData3(0)
	if err = sph.AddParticles(points, nil, nil); err != nil {
		return
	}
	sph.SetNeighborSearcher(meanSearcher)
	sph.SetKernelRadius(h)
	sph.UpdateDensities()
	var (
		d             = sph.Densities()
		m             = sph.Mass()
		meanSearcher2 = searcher.NewKdTree3()
		temp          = output.Clone()
	)
	meanSearcher2.Build(xMeans, r)
	temp.FillFunc(func(x r3.Vec) float64 {
		var sum float64
		meanSearcher2.ForEachNearbyPoint(x, r, func(i int, xi r3.Vec) {
			if d[i] > 0 {
				sum += m / d[i] * kernels[i].weight(r3.Sub(xi, x))
			}
		})
		return c.CutOffDensity - sum
	})
	return finish3(temp, output, c.IsOutputSDF)
}
