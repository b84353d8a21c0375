package fdm

import (
	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/utils"
)

// iterate runs relax up to the iteration cap, checking the residual every
// residualCheckInterval sweeps, and records the final residual norm.
func iterate[V, M any](ops blasOps[V, M], a M, x, b V, s *iterationStats,
	residualCheckInterval int, relax func()) bool {
	var (
		residual = ops.newVector(b)
		interval = max(residualCheckInterval, 1)
	)
	s.lastNumberOfIterations = s.maxNumberOfIterations
	for iter := 0; iter < s.maxNumberOfIterations; iter++ {
		relax()
		if iter != 0 && iter%interval == 0 {
			ops.Residual(a, x, b, residual)
			if ops.L2Norm(residual) <= s.tolerance {
				s.lastNumberOfIterations = iter + 1
				break
			}
		}
	}
	ops.Residual(a, x, b, residual)
	s.lastResidual = ops.L2Norm(residual)
	return s.converged()
}

// Jacobi2 is the plain Jacobi iteration. Every sweep reads only the previous
// iterate, so the cells are updated in parallel.
type Jacobi2 struct {
	iterationStats
	residualCheckInterval int
}

func NewJacobi2(maxNumberOfIterations, residualCheckInterval int, tolerance float64) *Jacobi2 {
	return &Jacobi2{
		iterationStats:        newIterationStats(maxNumberOfIterations, tolerance),
		residualCheckInterval: residualCheckInterval,
	}
}

func (s *Jacobi2) Solve(system *LinearSystem2) bool {
	xTemp := array.NewArray2[float64](system.X.Width(), system.X.Height())
	return iterate[*Vector2, *Matrix2](BLAS2{}, system.A, system.X, system.B, &s.iterationStats,
		s.residualCheckInterval, func() {
			RelaxJacobi2(system.A, system.B, system.X, xTemp)
			system.X.Swap(xTemp)
		})
}

func (s *Jacobi2) SolveCompressed(system *CompressedLinearSystem) bool {
	return solveJacobiCompressed(system, &s.iterationStats, s.residualCheckInterval)
}

// RelaxJacobi2 writes one Jacobi sweep of x into xTemp.
func RelaxJacobi2(a *Matrix2, b, x, xTemp *Vector2) {
	size := a.Size()
	array.ParallelForEachIndex2(size, func(i, j int) {
		xTemp.Set(i, j, (b.At(i, j)-offDiagonal2(a, x, size, i, j))/a.At(i, j).Center)
	})
}

type Jacobi3 struct {
	iterationStats
	residualCheckInterval int
}

func NewJacobi3(maxNumberOfIterations, residualCheckInterval int, tolerance float64) *Jacobi3 {
	return &Jacobi3{
		iterationStats:        newIterationStats(maxNumberOfIterations, tolerance),
		residualCheckInterval: residualCheckInterval,
	}
}

func (s *Jacobi3) Solve(system *LinearSystem3) bool {
	xTemp := array.NewArray3[float64](system.X.Width(), system.X.Height(), system.X.Depth())
	return iterate[*Vector3, *Matrix3](BLAS3{}, system.A, system.X, system.B, &s.iterationStats,
		s.residualCheckInterval, func() {
			RelaxJacobi3(system.A, system.B, system.X, xTemp)
			system.X.Swap(xTemp)
		})
}

func (s *Jacobi3) SolveCompressed(system *CompressedLinearSystem) bool {
	return solveJacobiCompressed(system, &s.iterationStats, s.residualCheckInterval)
}

func RelaxJacobi3(a *Matrix3, b, x, xTemp *Vector3) {
	size := a.Size()
	array.ParallelForEachIndex3(size, func(i, j, k int) {
		xTemp.Set(i, j, k, (b.At(i, j, k)-offDiagonal3(a, x, size, i, j, k))/a.At(i, j, k).Center)
	})
}

func solveJacobiCompressed(system *CompressedLinearSystem, s *iterationStats, residualCheckInterval int) bool {
	xTemp := make([]float64, len(system.X))
	return iterate[[]float64, utils.CSR](CompressedBLAS{}, system.A, system.X, system.B, s,
		residualCheckInterval, func() {
			RelaxJacobiCompressed(system.A, system.B, system.X, xTemp)
			copy(system.X, xTemp)
		})
}

func RelaxJacobiCompressed(a utils.CSR, b, x, xTemp []float64) {
	var (
		ci  = a.ColumnIndices()
		nnz = a.Values()
	)
	utils.ParallelRangeFor(0, len(b), func(begin, end int) {
		for i := begin; i < end; i++ {
			var (
				rb, re = a.RowRange(i)
				r      float64
				diag   = 1.
			)
			for jj := rb; jj < re; jj++ {
				if j := ci[jj]; j == i {
					diag = nnz[jj]
				} else {
					r += nnz[jj] * x[j]
				}
			}
			xTemp[i] = (b[i] - r) / diag
		}
	})
}

var (
	_ Solver2 = (*Jacobi2)(nil)
	_ Solver3 = (*Jacobi3)(nil)
)
