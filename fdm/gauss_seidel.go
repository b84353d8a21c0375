package fdm

import (
	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/utils"
)

// GaussSeidel2 relaxes in place with successive over-relaxation factor
// SORFactor. Lexicographic ordering is serial; red-black ordering updates
// each color in parallel since cells of one color never touch each other.
// The compressed form is always lexicographic.
type GaussSeidel2 struct {
	iterationStats
	residualCheckInterval int
	sorFactor             float64
	useRedBlackOrdering   bool
}

func NewGaussSeidel2(maxNumberOfIterations, residualCheckInterval int, tolerance, sorFactor float64,
	useRedBlackOrdering bool) *GaussSeidel2 {
	return &GaussSeidel2{
		iterationStats:        newIterationStats(maxNumberOfIterations, tolerance),
		residualCheckInterval: residualCheckInterval,
		sorFactor:             sorFactor,
		useRedBlackOrdering:   useRedBlackOrdering,
	}
}

func (s *GaussSeidel2) SORFactor() float64        { return s.sorFactor }
func (s *GaussSeidel2) UseRedBlackOrdering() bool { return s.useRedBlackOrdering }

func (s *GaussSeidel2) Solve(system *LinearSystem2) bool {
	return iterate[*Vector2, *Matrix2](BLAS2{}, system.A, system.X, system.B, &s.iterationStats,
		s.residualCheckInterval, func() {
			if s.useRedBlackOrdering {
				RelaxRedBlack2(system.A, system.B, s.sorFactor, system.X)
			} else {
				Relax2(system.A, system.B, s.sorFactor, system.X)
			}
		})
}

func (s *GaussSeidel2) SolveCompressed(system *CompressedLinearSystem) bool {
	return solveGaussSeidelCompressed(system, &s.iterationStats, s.residualCheckInterval, s.sorFactor)
}

func relaxCell2(a *Matrix2, b *Vector2, sorFactor float64, x *Vector2, size array.Size2, i, j int) {
	r := offDiagonal2(a, x, size, i, j)
	x.Set(i, j, (1-sorFactor)*x.At(i, j)+sorFactor*(b.At(i, j)-r)/a.At(i, j).Center)
}

// Relax2 is one lexicographic Gauss-Seidel sweep.
func Relax2(a *Matrix2, b *Vector2, sorFactor float64, x *Vector2) {
	size := a.Size()
	array.ForEachIndex2(size, func(i, j int) {
		relaxCell2(a, b, sorFactor, x, size, i, j)
	})
}

// RelaxRedBlack2 sweeps the cells with even i+j first, then the odd ones.
func RelaxRedBlack2(a *Matrix2, b *Vector2, sorFactor float64, x *Vector2) {
	size := a.Size()
	for color := 0; color < 2; color++ {
		utils.ParallelRangeFor(0, size.Y, func(jb, je int) {
			for j := jb; j < je; j++ {
				for i := (j + color) % 2; i < size.X; i += 2 {
					relaxCell2(a, b, sorFactor, x, size, i, j)
				}
			}
		})
	}
}

type GaussSeidel3 struct {
	iterationStats
	residualCheckInterval int
	sorFactor             float64
	useRedBlackOrdering   bool
}

func NewGaussSeidel3(maxNumberOfIterations, residualCheckInterval int, tolerance, sorFactor float64,
	useRedBlackOrdering bool) *GaussSeidel3 {
	return &GaussSeidel3{
		iterationStats:        newIterationStats(maxNumberOfIterations, tolerance),
		residualCheckInterval: residualCheckInterval,
		sorFactor:             sorFactor,
		useRedBlackOrdering:   useRedBlackOrdering,
	}
}

func (s *GaussSeidel3) SORFactor() float64        { return s.sorFactor }
func (s *GaussSeidel3) UseRedBlackOrdering() bool { return s.useRedBlackOrdering }

func (s *GaussSeidel3) Solve(system *LinearSystem3) bool {
	return iterate[*Vector3, *Matrix3](BLAS3{}, system.A, system.X, system.B, &s.iterationStats,
		s.residualCheckInterval, func() {
			if s.useRedBlackOrdering {
				RelaxRedBlack3(system.A, system.B, s.sorFactor, system.X)
			} else {
				Relax3(system.A, system.B, s.sorFactor, system.X)
			}
		})
}

func (s *GaussSeidel3) SolveCompressed(system *CompressedLinearSystem) bool {
	return solveGaussSeidelCompressed(system, &s.iterationStats, s.residualCheckInterval, s.sorFactor)
}

func relaxCell3(a *Matrix3, b *Vector3, sorFactor float64, x *Vector3, size array.Size3, i, j, k int) {
	r := offDiagonal3(a, x, size, i, j, k)
	x.Set(i, j, k, (1-sorFactor)*x.At(i, j, k)+sorFactor*(b.At(i, j, k)-r)/a.At(i, j, k).Center)
}

func Relax3(a *Matrix3, b *Vector3, sorFactor float64, x *Vector3) {
	size := a.Size()
	array.ForEachIndex3(size, func(i, j, k int) {
		relaxCell3(a, b, sorFactor, x, size, i, j, k)
	})
}

func RelaxRedBlack3(a *Matrix3, b *Vector3, sorFactor float64, x *Vector3) {
	size := a.Size()
	for color := 0; color < 2; color++ {
		utils.ParallelRangeFor(0, size.Y*size.Z, func(rb, re int) {
			for row := rb; row < re; row++ {
				j, k := row%size.Y, row/size.Y
				for i := (j + k + color) % 2; i < size.X; i += 2 {
					relaxCell3(a, b, sorFactor, x, size, i, j, k)
				}
			}
		})
	}
}

func solveGaussSeidelCompressed(system *CompressedLinearSystem, s *iterationStats,
	residualCheckInterval int, sorFactor float64) bool {
	return iterate[[]float64, utils.CSR](CompressedBLAS{}, system.A, system.X, system.B, s,
		residualCheckInterval, func() {
			RelaxCompressed(system.A, system.B, sorFactor, system.X)
		})
}

// RelaxCompressed is one Gauss-Seidel sweep in row order. A row without a
// diagonal entry is treated as having a unit diagonal.
func RelaxCompressed(a utils.CSR, b []float64, sorFactor float64, x []float64) {
	var (
		ci  = a.ColumnIndices()
		nnz = a.Values()
	)
	for i := range b {
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
		x[i] = (1-sorFactor)*x[i] + sorFactor*(b[i]-r)/diag
	}
}

var (
	_ Solver2 = (*GaussSeidel2)(nil)
	_ Solver3 = (*GaussSeidel3)(nil)
)
