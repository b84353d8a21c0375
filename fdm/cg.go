package fdm

import (
	"log/slog"

	"github.com/notargets/gofluid/utils"
)

// CG2 is unpreconditioned conjugate gradient, for symmetric positive
// definite systems. Both solves start from x = 0.
type CG2 struct {
	iterationStats
}

func NewCG2(maxNumberOfIterations int, tolerance float64) *CG2 {
	return &CG2{iterationStats: newIterationStats(maxNumberOfIterations, tolerance)}
}

func (s *CG2) Solve(system *LinearSystem2) bool {
	var ops blasOps[*Vector2, *Matrix2] = BLAS2{}
	system.X.Fill(0)
	s.lastNumberOfIterations, s.lastResidual = pcg(ops, system.A, system.B,
		s.maxNumberOfIterations, s.tolerance, identityPreconditioner[*Vector2, *Matrix2]{ops}, system.X)
	s.logResult("CG")
	return s.converged()
}

func (s *CG2) SolveCompressed(system *CompressedLinearSystem) bool {
	solveCGCompressed(system, &s.iterationStats)
	return s.converged()
}

type CG3 struct {
	iterationStats
}

func NewCG3(maxNumberOfIterations int, tolerance float64) *CG3 {
	return &CG3{iterationStats: newIterationStats(maxNumberOfIterations, tolerance)}
}

func (s *CG3) Solve(system *LinearSystem3) bool {
	var ops blasOps[*Vector3, *Matrix3] = BLAS3{}
	system.X.Fill(0)
	s.lastNumberOfIterations, s.lastResidual = pcg(ops, system.A, system.B,
		s.maxNumberOfIterations, s.tolerance, identityPreconditioner[*Vector3, *Matrix3]{ops}, system.X)
	s.logResult("CG")
	return s.converged()
}

func (s *CG3) SolveCompressed(system *CompressedLinearSystem) bool {
	solveCGCompressed(system, &s.iterationStats)
	return s.converged()
}

func solveCGCompressed(system *CompressedLinearSystem, s *iterationStats) {
	var ops blasOps[[]float64, utils.CSR] = CompressedBLAS{}
	ops.Set(0, system.X)
	s.lastNumberOfIterations, s.lastResidual = pcg(ops, system.A, system.B,
		s.maxNumberOfIterations, s.tolerance, identityPreconditioner[[]float64, utils.CSR]{ops}, system.X)
	s.logResult("CG")
}

func (s *iterationStats) logResult(name string) {
	slog.Debug("linear solve", "solver", name, "iterations", s.lastNumberOfIterations,
		"residual", s.lastResidual, "converged", s.converged())
}

var (
	_ Solver2 = (*CG2)(nil)
	_ Solver3 = (*CG3)(nil)
)
