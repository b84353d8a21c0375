package fdm

import (
	"log/slog"
	"math"

	"github.com/notargets/gofluid/array"
)

// MGParameters configures a multigrid V-cycle. Level 0 is the finest grid and
// every coarser level halves the resolution. Relaxation is Gauss-Seidel with
// SORFactor. MaxNumberOfCycles V-cycles are run at most, stopping as soon as
// the finest residual norm reaches MaxTolerance.
type MGParameters struct {
	MaxNumberOfLevels       int
	NumberOfRestrictionIter int
	NumberOfCorrectionIter  int
	NumberOfCoarsestIter    int
	NumberOfFinalIter       int
	MaxTolerance            float64
	SORFactor               float64
	UseRedBlackOrdering     bool
	MaxNumberOfCycles       int
}

func DefaultMGParameters(maxNumberOfLevels int) MGParameters {
	return MGParameters{
		MaxNumberOfLevels:       maxNumberOfLevels,
		NumberOfRestrictionIter: 5,
		NumberOfCorrectionIter:  5,
		NumberOfCoarsestIter:    20,
		NumberOfFinalIter:       20,
		MaxTolerance:            1e-9,
		SORFactor:               1.5,
		MaxNumberOfCycles:       1,
	}
}

type MGLinearSystem2 struct {
	A    []*Matrix2
	X, B []*Vector2
}

func (s *MGLinearSystem2) NumberOfLevels() int { return len(s.A) }

func (s *MGLinearSystem2) Clear() { s.A, s.X, s.B = nil, nil, nil }

// ResizeWithCoarsest allocates numberOfLevels levels, the coarsest of which
// has the given resolution.
func (s *MGLinearSystem2) ResizeWithCoarsest(coarsest array.Size2, numberOfLevels int) {
	resizeLevels2(coarsest, numberOfLevels, &s.A, MatrixRow2{})
	resizeLevels2(coarsest, numberOfLevels, &s.X, 0)
	resizeLevels2(coarsest, numberOfLevels, &s.B, 0)
}

// ResizeWithFinest halves the finest resolution while it stays even, up to
// maxNumberOfLevels levels.
func (s *MGLinearSystem2) ResizeWithFinest(finest array.Size2, maxNumberOfLevels int) {
	var (
		res = finest
		n   = 1
	)
	for ; n < maxNumberOfLevels; n++ {
		if res.X%2 != 0 || res.Y%2 != 0 {
			break
		}
		res.X /= 2
		res.Y /= 2
	}
	s.ResizeWithCoarsest(res, n)
}

func resizeLevels2[T any](coarsest array.Size2, numberOfLevels int, levels *[]*array.Array2[T], fill T) {
	numberOfLevels = max(numberOfLevels, 1)
	out := make([]*array.Array2[T], numberOfLevels)
	res := coarsest
	for level := numberOfLevels - 1; level >= 0; level-- {
		if level < len(*levels) && (*levels)[level] != nil {
			out[level] = (*levels)[level]
			out[level].Resize(res.X, res.Y, fill)
		} else {
			out[level] = array.NewArray2[T](res.X, res.Y, fill)
		}
		res.X *= 2
		res.Y *= 2
	}
	*levels = out
}

type MGLinearSystem3 struct {
	A    []*Matrix3
	X, B []*Vector3
}

func (s *MGLinearSystem3) NumberOfLevels() int { return len(s.A) }

func (s *MGLinearSystem3) Clear() { s.A, s.X, s.B = nil, nil, nil }

func (s *MGLinearSystem3) ResizeWithCoarsest(coarsest array.Size3, numberOfLevels int) {
	resizeLevels3(coarsest, numberOfLevels, &s.A, MatrixRow3{})
	resizeLevels3(coarsest, numberOfLevels, &s.X, 0)
	resizeLevels3(coarsest, numberOfLevels, &s.B, 0)
}

func (s *MGLinearSystem3) ResizeWithFinest(finest array.Size3, maxNumberOfLevels int) {
	var (
		res = finest
		n   = 1
	)
	for ; n < maxNumberOfLevels; n++ {
		if res.X%2 != 0 || res.Y%2 != 0 || res.Z%2 != 0 {
			break
		}
		res.X /= 2
		res.Y /= 2
		res.Z /= 2
	}
	s.ResizeWithCoarsest(res, n)
}

func resizeLevels3[T any](coarsest array.Size3, numberOfLevels int, levels *[]*array.Array3[T], fill T) {
	numberOfLevels = max(numberOfLevels, 1)
	out := make([]*array.Array3[T], numberOfLevels)
	res := coarsest
	for level := numberOfLevels - 1; level >= 0; level-- {
		if level < len(*levels) && (*levels)[level] != nil {
			out[level] = (*levels)[level]
			out[level].Resize(res.X, res.Y, res.Z, fill)
		} else {
			out[level] = array.NewArray3[T](res.X, res.Y, res.Z, fill)
		}
		res.X *= 2
		res.Y *= 2
		res.Z *= 2
	}
	*levels = out
}

// restrictKernel is the full weighting stencil from four fine cells onto the
// coarse cell covering the middle two.
var restrictKernel = [4]float64{0.125, 0.375, 0.375, 0.125}

func restrictIndices(i, n int) [4]int {
	idx := [4]int{2*i - 1, 2 * i, 2*i + 1, 2*i + 2}
	if i == 0 {
		idx[0] = 2 * i
	}
	if i+1 >= n {
		idx[3] = 2*i + 1
	}
	return idx
}

// correctStencil gives the two coarse cells, and their weights, that a fine
// cell interpolates from.
func correctStencil(i, n int) (idx [2]int, w [2]float64) {
	c := i / 2
	if i%2 == 0 {
		idx = [2]int{c - 1, c}
		if i <= 1 {
			idx[0] = c
		}
		w = [2]float64{0.25, 0.75}
	} else {
		idx = [2]int{c, c + 1}
		if i+1 >= n {
			idx[1] = c
		}
		w = [2]float64{0.75, 0.25}
	}
	return
}

// Restrict2 averages a fine vector onto a grid of half its resolution.
func Restrict2(finer, coarser *Vector2) {
	n := coarser.Size()
	checkSize(finer.Size(), array.Size2{X: 2 * n.X, Y: 2 * n.Y})
	array.ParallelForEachIndex2(n, func(i, j int) {
		var (
			iIdx = restrictIndices(i, n.X)
			jIdx = restrictIndices(j, n.Y)
			sum  float64
		)
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				sum += restrictKernel[x] * restrictKernel[y] * finer.At(iIdx[x], jIdx[y])
			}
		}
		coarser.Set(i, j, sum)
	})
}

// Correct2 adds the interpolated coarse correction to the fine vector.
func Correct2(coarser, finer *Vector2) {
	n := finer.Size()
	checkSize(n, array.Size2{X: 2 * coarser.Width(), Y: 2 * coarser.Height()})
	array.ParallelForEachIndex2(n, func(i, j int) {
		var (
			iIdx, iW = correctStencil(i, n.X)
			jIdx, jW = correctStencil(j, n.Y)
			sum      float64
		)
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				sum += iW[x] * jW[y] * coarser.At(iIdx[x], jIdx[y])
			}
		}
		finer.Set(i, j, finer.At(i, j)+sum)
	})
}

func Restrict3(finer, coarser *Vector3) {
	n := coarser.Size()
	checkSize(finer.Size(), array.Size3{X: 2 * n.X, Y: 2 * n.Y, Z: 2 * n.Z})
	array.ParallelForEachIndex3(n, func(i, j, k int) {
		var (
			iIdx = restrictIndices(i, n.X)
			jIdx = restrictIndices(j, n.Y)
			kIdx = restrictIndices(k, n.Z)
			sum  float64
		)
		for z := 0; z < 4; z++ {
			for y := 0; y < 4; y++ {
				for x := 0; x < 4; x++ {
					w := restrictKernel[x] * restrictKernel[y] * restrictKernel[z]
					sum += w * finer.At(iIdx[x], jIdx[y], kIdx[z])
				}
			}
		}
		coarser.Set(i, j, k, sum)
	})
}

func Correct3(coarser, finer *Vector3) {
	n := finer.Size()
	checkSize(n, array.Size3{X: 2 * coarser.Width(), Y: 2 * coarser.Height(), Z: 2 * coarser.Depth()})
	array.ParallelForEachIndex3(n, func(i, j, k int) {
		var (
			iIdx, iW = correctStencil(i, n.X)
			jIdx, jW = correctStencil(j, n.Y)
			kIdx, kW = correctStencil(k, n.Z)
			sum      float64
		)
		for z := 0; z < 2; z++ {
			for y := 0; y < 2; y++ {
				for x := 0; x < 2; x++ {
					sum += iW[x] * jW[y] * kW[z] * coarser.At(iIdx[x], jIdx[y], kIdx[z])
				}
			}
		}
		finer.Set(i, j, k, finer.At(i, j, k)+sum)
	})
}

// mgOps binds the level operations of one dimension.
type mgOps[V, M any] struct {
	blas     blasOps[V, M]
	relax    func(a M, b V, iterations int, x V)
	restrict func(finer, coarser V)
	correct  func(coarser, finer V)
}

// vCycle relaxes on level, recurses on the restricted residual, corrects
// and relaxes again. It returns the residual norm on level.
func vCycle[V, M any](ops mgOps[V, M], p MGParameters, a []M, x, b, buffer []V, level int) float64 {
	ops.relax(a[level], b[level], p.NumberOfRestrictionIter, x[level])
	if level < len(a)-1 {
		ops.blas.Residual(a[level], x[level], b[level], buffer[level])
		ops.restrict(buffer[level], b[level+1])
		ops.blas.Set(0, x[level+1])
		vCycle(ops, p, a, x, b, buffer, level+1)
		ops.correct(x[level+1], x[level])
		iterations := p.NumberOfCorrectionIter
		if level == 0 {
			iterations = p.NumberOfFinalIter
		}
		ops.relax(a[level], b[level], iterations, x[level])
	} else {
		ops.relax(a[level], b[level], p.NumberOfCoarsestIter, x[level])
	}
	ops.blas.Residual(a[level], x[level], b[level], buffer[level])
	return ops.blas.L2Norm(buffer[level])
}

// MG2 solves a level hierarchy with V-cycles. Solve on a plain system runs
// the cycle on that single level, which reduces to SOR sweeps; the compressed
// form is not supported.
type MG2 struct {
	iterationStats
	params MGParameters
}

func NewMG2(params MGParameters) *MG2 {
	return &MG2{
		iterationStats: newIterationStats(max(params.MaxNumberOfCycles, 1), params.MaxTolerance),
		params:         params,
	}
}

func (s *MG2) Params() MGParameters { return s.params }

func (s *MG2) ops() mgOps[*Vector2, *Matrix2] {
	return mgOps[*Vector2, *Matrix2]{
		blas: BLAS2{},
		relax: func(a *Matrix2, b *Vector2, iterations int, x *Vector2) {
			for iter := 0; iter < iterations; iter++ {
				if s.params.UseRedBlackOrdering {
					RelaxRedBlack2(a, b, s.params.SORFactor, x)
				} else {
					Relax2(a, b, s.params.SORFactor, x)
				}
			}
		},
		restrict: Restrict2,
		correct:  Correct2,
	}
}

func (s *MG2) SolveMG(system *MGLinearSystem2) bool {
	buffer := make([]*Vector2, len(system.X))
	for i, x := range system.X {
		buffer[i] = x.Clone()
	}
	ops := s.ops()
	s.lastResidual = math.MaxFloat64
	for s.lastNumberOfIterations = 0; s.lastNumberOfIterations < s.maxNumberOfIterations; {
		s.lastResidual = vCycle(ops, s.params, system.A, system.X, system.B, buffer, 0)
		s.lastNumberOfIterations++
		if s.converged() {
			break
		}
	}
	s.logResult("MG")
	return s.converged()
}

func (s *MG2) Solve(system *LinearSystem2) bool {
	return s.SolveMG(&MGLinearSystem2{
		A: []*Matrix2{system.A},
		X: []*Vector2{system.X},
		B: []*Vector2{system.B},
	})
}

func (s *MG2) SolveCompressed(*CompressedLinearSystem) bool {
	slog.Warn("multigrid does not solve compressed systems")
	s.lastNumberOfIterations, s.lastResidual = 0, math.MaxFloat64
	return false
}

type MG3 struct {
	iterationStats
	params MGParameters
}

func NewMG3(params MGParameters) *MG3 {
	return &MG3{
		iterationStats: newIterationStats(max(params.MaxNumberOfCycles, 1), params.MaxTolerance),
		params:         params,
	}
}

func (s *MG3) Params() MGParameters { return s.params }

func (s *MG3) ops() mgOps[*Vector3, *Matrix3] {
	return mgOps[*Vector3, *Matrix3]{
		blas: BLAS3{},
		relax: func(a *Matrix3, b *Vector3, iterations int, x *Vector3) {
			for iter := 0; iter < iterations; iter++ {
				if s.params.UseRedBlackOrdering {
					RelaxRedBlack3(a, b, s.params.SORFactor, x)
				} else {
					Relax3(a, b, s.params.SORFactor, x)
				}
			}
		},
		restrict: Restrict3,
		correct:  Correct3,
	}
}

func (s *MG3) SolveMG(system *MGLinearSystem3) bool {
	buffer := make([]*Vector3, len(system.X))
	for i, x := range system.X {
		buffer[i] = x.Clone()
	}
	ops := s.ops()
	s.lastResidual = math.MaxFloat64
	for s.lastNumberOfIterations = 0; s.lastNumberOfIterations < s.maxNumberOfIterations; {
		s.lastResidual = vCycle(ops, s.params, system.A, system.X, system.B, buffer, 0)
		s.lastNumberOfIterations++
		if s.converged() {
			break
		}
	}
	s.logResult("MG")
	return s.converged()
}

func (s *MG3) Solve(system *LinearSystem3) bool {
	return s.SolveMG(&MGLinearSystem3{
		A: []*Matrix3{system.A},
		X: []*Vector3{system.X},
		B: []*Vector3{system.B},
	})
}

func (s *MG3) SolveCompressed(*CompressedLinearSystem) bool {
	slog.Warn("multigrid does not solve compressed systems")
	s.lastNumberOfIterations, s.lastResidual = 0, math.MaxFloat64
	return false
}

var (
	_ Solver2 = (*MG2)(nil)
	_ Solver3 = (*MG3)(nil)
)
