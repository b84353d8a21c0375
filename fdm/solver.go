package fdm

import (
	"math"
)

// Solver2 solves the stencil or the compressed form of a 2D system. Solve
// never fails with an error: it reports whether the final residual norm
// reached the tolerance and leaves the best iterate in x either way.
type Solver2 interface {
	Solve(system *LinearSystem2) bool
	SolveCompressed(system *CompressedLinearSystem) bool
	Stats
}

type Solver3 interface {
	Solve(system *LinearSystem3) bool
	SolveCompressed(system *CompressedLinearSystem) bool
	Stats
}

type Stats interface {
	MaxNumberOfIterations() int
	LastNumberOfIterations() int
	Tolerance() float64
	LastResidual() float64
}

// iterationStats carries the bookkeeping shared by every iterative solver.
type iterationStats struct {
	maxNumberOfIterations  int
	lastNumberOfIterations int
	tolerance              float64
	lastResidual           float64
}

func newIterationStats(maxNumberOfIterations int, tolerance float64) iterationStats {
	return iterationStats{
		maxNumberOfIterations: maxNumberOfIterations,
		tolerance:             tolerance,
		lastResidual:          math.MaxFloat64,
	}
}

func (s *iterationStats) MaxNumberOfIterations() int  { return s.maxNumberOfIterations }
func (s *iterationStats) LastNumberOfIterations() int { return s.lastNumberOfIterations }
func (s *iterationStats) Tolerance() float64          { return s.tolerance }
func (s *iterationStats) LastResidual() float64       { return s.lastResidual }

func (s *iterationStats) converged() bool { return s.lastResidual <= s.tolerance }

// blasOps is the common surface of BLAS2, BLAS3 and CompressedBLAS.
type blasOps[V, M any] interface {
	Set(s float64, result V)
	SetFrom(v, result V)
	Dot(a, b V) float64
	AXPY(a float64, x, y, result V)
	MVM(m M, v, result V)
	Residual(a M, x, b, result V)
	L2Norm(v V) float64
	newVector(like V) V
}

type preconditioner[V, M any] interface {
	build(a M)
	solve(b, x V)
}

// identityPreconditioner turns pcg into plain conjugate gradient.
type identityPreconditioner[V, M any] struct {
	ops blasOps[V, M]
}

func (identityPreconditioner[V, M]) build(M) {}

func (p identityPreconditioner[V, M]) solve(b, x V) { p.ops.SetFrom(b, x) }

// pcg is preconditioned conjugate gradient starting from the incoming x. The
// recursive residual is replaced by the true residual every 50 iterations and
// whenever r.M^-1r grows. It returns the iteration count and the true
// residual norm of the final x.
func pcg[V, M any](ops blasOps[V, M], a M, b V, maxNumberOfIterations int, tolerance float64,
	m preconditioner[V, M], x V) (iter int, residual float64) {
	var (
		r        = ops.newVector(b)
		d        = ops.newVector(b)
		q        = ops.newVector(b)
		s        = ops.newVector(b)
		trigger  bool
		sigmaNew float64
	)
	ops.Residual(a, x, b, r)
	m.solve(r, d)
	sigmaNew = ops.Dot(r, d)
	for iter < maxNumberOfIterations && ops.L2Norm(r) > tolerance {
		ops.MVM(a, d, q)
		dq := ops.Dot(d, q)
		if dq == 0 || sigmaNew == 0 {
			break
		}
		alpha := sigmaNew / dq
		ops.AXPY(alpha, d, x, x)
		if trigger || (iter%50 == 0 && iter > 0) {
			ops.Residual(a, x, b, r)
			trigger = false
		} else {
			ops.AXPY(-alpha, q, r, r)
		}
		m.solve(r, s)
		sigmaOld := sigmaNew
		sigmaNew = ops.Dot(r, s)
		if sigmaNew > sigmaOld {
			trigger = true
		}
		ops.AXPY(sigmaNew/sigmaOld, d, s, d)
		iter++
	}
	ops.Residual(a, x, b, r)
	residual = ops.L2Norm(r)
	return
}
