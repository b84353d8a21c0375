package fdm

import (
	"math"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/utils"
)

// ICCG2 is conjugate gradient preconditioned with the zero fill incomplete
// Cholesky factor M = (D^-1 + L) D (D^-1 + L^T), where L is the strictly
// lower part of A and D is built by a forward recurrence over the cells.
// Success means the final residual norm reached the tolerance.
type ICCG2 struct {
	iterationStats
}

func NewICCG2(maxNumberOfIterations int, tolerance float64) *ICCG2 {
	return &ICCG2{iterationStats: newIterationStats(maxNumberOfIterations, tolerance)}
}

func (s *ICCG2) Solve(system *LinearSystem2) bool {
	var (
		ops     blasOps[*Vector2, *Matrix2] = BLAS2{}
		precond                             = &iccgPreconditioner2{}
	)
	system.X.Fill(0)
	precond.build(system.A)
	s.lastNumberOfIterations, s.lastResidual = pcg(ops, system.A, system.B,
		s.maxNumberOfIterations, s.tolerance, preconditioner[*Vector2, *Matrix2](precond), system.X)
	s.logResult("ICCG")
	return s.converged()
}

func (s *ICCG2) SolveCompressed(system *CompressedLinearSystem) bool {
	solveICCGCompressed(system, &s.iterationStats)
	return s.converged()
}

// inverseOrZero is 1/denom, or 0 for a cell that cannot be inverted.
func inverseOrZero(denom float64) float64 {
	if math.Abs(denom) > 0 {
		return 1 / denom
	}
	return 0
}

type iccgPreconditioner2 struct {
	a    *Matrix2
	d, y *Vector2
}

func (p *iccgPreconditioner2) build(a *Matrix2) {
	size := a.Size()
	p.a = a
	p.d = array.NewArray2[float64](size.X, size.Y)
	p.y = array.NewArray2[float64](size.X, size.Y)
	array.ForEachIndex2(size, func(i, j int) {
		denom := a.At(i, j).Center
		if i > 0 {
			r := a.At(i-1, j).Right
			denom -= r * r * p.d.At(i-1, j)
		}
		if j > 0 {
			u := a.At(i, j-1).Up
			denom -= u * u * p.d.At(i, j-1)
		}
		p.d.Set(i, j, inverseOrZero(denom))
	})
}

func (p *iccgPreconditioner2) solve(b, x *Vector2) {
	var (
		a    = p.a
		size = a.Size()
	)
	array.ForEachIndex2(size, func(i, j int) {
		sum := b.At(i, j)
		if i > 0 {
			sum -= a.At(i-1, j).Right * p.y.At(i-1, j)
		}
		if j > 0 {
			sum -= a.At(i, j-1).Up * p.y.At(i, j-1)
		}
		p.y.Set(i, j, sum*p.d.At(i, j))
	})
	for j := size.Y - 1; j >= 0; j-- {
		for i := size.X - 1; i >= 0; i-- {
			var sum float64
			if i+1 < size.X {
				sum += a.At(i, j).Right * x.At(i+1, j)
			}
			if j+1 < size.Y {
				sum += a.At(i, j).Up * x.At(i, j+1)
			}
			x.Set(i, j, p.y.At(i, j)-p.d.At(i, j)*sum)
		}
	}
}

type ICCG3 struct {
	iterationStats
}

func NewICCG3(maxNumberOfIterations int, tolerance float64) *ICCG3 {
	return &ICCG3{iterationStats: newIterationStats(maxNumberOfIterations, tolerance)}
}

func (s *ICCG3) Solve(system *LinearSystem3) bool {
	var (
		ops     blasOps[*Vector3, *Matrix3] = BLAS3{}
		precond                             = &iccgPreconditioner3{}
	)
	system.X.Fill(0)
	precond.build(system.A)
	s.lastNumberOfIterations, s.lastResidual = pcg(ops, system.A, system.B,
		s.maxNumberOfIterations, s.tolerance, preconditioner[*Vector3, *Matrix3](precond), system.X)
	s.logResult("ICCG")
	return s.converged()
}

func (s *ICCG3) SolveCompressed(system *CompressedLinearSystem) bool {
	solveICCGCompressed(system, &s.iterationStats)
	return s.converged()
}

type iccgPreconditioner3 struct {
	a    *Matrix3
	d, y *Vector3
}

func (p *iccgPreconditioner3) build(a *Matrix3) {
	size := a.Size()
	p.a = a
	p.d = array.NewArray3[float64](size.X, size.Y, size.Z)
	p.y = array.NewArray3[float64](size.X, size.Y, size.Z)
	array.ForEachIndex3(size, func(i, j, k int) {
		denom := a.At(i, j, k).Center
		if i > 0 {
			r := a.At(i-1, j, k).Right
			denom -= r * r * p.d.At(i-1, j, k)
		}
		if j > 0 {
			u := a.At(i, j-1, k).Up
			denom -= u * u * p.d.At(i, j-1, k)
		}
		if k > 0 {
			f := a.At(i, j, k-1).Front
			denom -= f * f * p.d.At(i, j, k-1)
		}
		p.d.Set(i, j, k, inverseOrZero(denom))
	})
}

func (p *iccgPreconditioner3) solve(b, x *Vector3) {
	var (
		a    = p.a
		size = a.Size()
	)
	array.ForEachIndex3(size, func(i, j, k int) {
		sum := b.At(i, j, k)
		if i > 0 {
			sum -= a.At(i-1, j, k).Right * p.y.At(i-1, j, k)
		}
		if j > 0 {
			sum -= a.At(i, j-1, k).Up * p.y.At(i, j-1, k)
		}
		if k > 0 {
			sum -= a.At(i, j, k-1).Front * p.y.At(i, j, k-1)
		}
		p.y.Set(i, j, k, sum*p.d.At(i, j, k))
	})
	for k := size.Z - 1; k >= 0; k-- {
		for j := size.Y - 1; j >= 0; j-- {
			for i := size.X - 1; i >= 0; i-- {
				var sum float64
				if i+1 < size.X {
					sum += a.At(i, j, k).Right * x.At(i+1, j, k)
				}
				if j+1 < size.Y {
					sum += a.At(i, j, k).Up * x.At(i, j+1, k)
				}
				if k+1 < size.Z {
					sum += a.At(i, j, k).Front * x.At(i, j, k+1)
				}
				x.Set(i, j, k, p.y.At(i, j, k)-p.d.At(i, j, k)*sum)
			}
		}
	}
}

func solveICCGCompressed(system *CompressedLinearSystem, s *iterationStats) {
	var (
		ops     blasOps[[]float64, utils.CSR] = CompressedBLAS{}
		precond                               = &iccgPreconditionerCompressed{}
	)
	ops.Set(0, system.X)
	precond.build(system.A)
	s.lastNumberOfIterations, s.lastResidual = pcg(ops, system.A, system.B,
		s.maxNumberOfIterations, s.tolerance, preconditioner[[]float64, utils.CSR](precond), system.X)
	s.logResult("ICCG")
}

// iccgPreconditionerCompressed is the same factorization with L taken from
// the entries left of the diagonal in each CSR row.
type iccgPreconditionerCompressed struct {
	a    utils.CSR
	d, y []float64
}

func (p *iccgPreconditionerCompressed) build(a utils.CSR) {
	var (
		n, _ = a.Dims()
		ci   = a.ColumnIndices()
		nnz  = a.Values()
	)
	p.a = a
	p.d = make([]float64, n)
	p.y = make([]float64, n)
	for i := 0; i < n; i++ {
		var (
			rb, re = a.RowRange(i)
			denom  float64
		)
		for jj := rb; jj < re; jj++ {
			switch j := ci[jj]; {
			case j == i:
				denom += nnz[jj]
			case j < i:
				denom -= nnz[jj] * nnz[jj] * p.d[j]
			}
		}
		p.d[i] = inverseOrZero(denom)
	}
}

func (p *iccgPreconditionerCompressed) solve(b, x []float64) {
	var (
		ci  = p.a.ColumnIndices()
		nnz = p.a.Values()
	)
	for i := range b {
		var (
			rb, re = p.a.RowRange(i)
			sum    = b[i]
		)
		for jj := rb; jj < re; jj++ {
			if j := ci[jj]; j < i {
				sum -= nnz[jj] * p.y[j]
			}
		}
		p.y[i] = sum * p.d[i]
	}
	for i := len(b) - 1; i >= 0; i-- {
		var (
			rb, re = p.a.RowRange(i)
			sum    float64
		)
		for jj := rb; jj < re; jj++ {
			if j := ci[jj]; j > i {
				sum += nnz[jj] * x[j]
			}
		}
		x[i] = p.y[i] - p.d[i]*sum
	}
}

var (
	_ Solver2 = (*ICCG2)(nil)
	_ Solver3 = (*ICCG3)(nil)
)
