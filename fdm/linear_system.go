package fdm

import (
	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/utils"
)

// MatrixRow2 is one row of a symmetric five point stencil matrix. Right and
// Up couple the cell to its +x and +y neighbors; the -x and -y couplings are
// read from the neighbor's row.
type MatrixRow2 struct {
	Center, Right, Up float64
}

// MatrixRow3 adds Front, the +z coupling.
type MatrixRow3 struct {
	Center, Right, Up, Front float64
}

type (
	Vector2 = array.Array2[float64]
	Matrix2 = array.Array2[MatrixRow2]
	Vector3 = array.Array3[float64]
	Matrix3 = array.Array3[MatrixRow3]
)

// LinearSystem2 is A x = b on a 2D cell grid; all three share one size.
type LinearSystem2 struct {
	A    *Matrix2
	X, B *Vector2
}

func NewLinearSystem2(size array.Size2) (s *LinearSystem2) {
	s = &LinearSystem2{
		A: array.NewArray2[MatrixRow2](size.X, size.Y),
		X: array.NewArray2[float64](size.X, size.Y),
		B: array.NewArray2[float64](size.X, size.Y),
	}
	return
}

func (s *LinearSystem2) Size() array.Size2 { return s.A.Size() }

func (s *LinearSystem2) Resize(size array.Size2) {
	s.A.Resize(size.X, size.Y, MatrixRow2{})
	s.X.Resize(size.X, size.Y, 0)
	s.B.Resize(size.X, size.Y, 0)
}

func (s *LinearSystem2) Clear() { s.Resize(array.Size2{}) }

type LinearSystem3 struct {
	A    *Matrix3
	X, B *Vector3
}

func NewLinearSystem3(size array.Size3) (s *LinearSystem3) {
	s = &LinearSystem3{
		A: array.NewArray3[MatrixRow3](size.X, size.Y, size.Z),
		X: array.NewArray3[float64](size.X, size.Y, size.Z),
		B: array.NewArray3[float64](size.X, size.Y, size.Z),
	}
	return
}

func (s *LinearSystem3) Size() array.Size3 { return s.A.Size() }

func (s *LinearSystem3) Resize(size array.Size3) {
	s.A.Resize(size.X, size.Y, size.Z, MatrixRow3{})
	s.X.Resize(size.X, size.Y, size.Z, 0)
	s.B.Resize(size.X, size.Y, size.Z, 0)
}

func (s *LinearSystem3) Clear() { s.Resize(array.Size3{}) }

// CompressedLinearSystem stores only the rows of the unknowns that are
// solved for, as a CSR matrix and dense vectors.
type CompressedLinearSystem struct {
	A    utils.CSR
	X, B []float64
}

// NewCompressedLinearSystem compresses an assembled matrix; x starts at zero.
func NewCompressedLinearSystem(a utils.DOK, b []float64) (s *CompressedLinearSystem) {
	s = &CompressedLinearSystem{
		A: a.ToCSR(),
		X: make([]float64, len(b)),
		B: b,
	}
	return
}

func (s *CompressedLinearSystem) Len() int { return len(s.B) }

func (s *CompressedLinearSystem) Clear() {
	s.A = utils.CSR{}
	s.X, s.B = nil, nil
}

// Compress2 converts every cell of a stencil system to a compressed row,
// with row index equal to the flat cell index.
func Compress2(system *LinearSystem2) *CompressedLinearSystem {
	s, _ := CompressMasked2(system, nil)
	return s
}

// CompressMasked2 keeps only the rows of the cells include accepts, numbered
// in cell order; index maps a cell to its row, or -1. A nil include keeps
// every cell.
func CompressMasked2(system *LinearSystem2, include func(i, j int) bool) (s *CompressedLinearSystem,
	index *array.Array2[int]) {
	var (
		size = system.Size()
		n    int
	)
	index = array.NewArray2[int](size.X, size.Y, -1)
	index.ForEachIndex(func(i, j int) {
		if include == nil || include(i, j) {
			index.Set(i, j, n)
			n++
		}
	})
	var (
		a = utils.NewDOK(n, n)
		b = make([]float64, n)
		x = make([]float64, n)
	)
	index.ForEachIndex(func(i, j int) {
		row := index.At(i, j)
		if row < 0 {
			return
		}
		m := system.A.At(i, j)
		a.Set(row, row, m.Center)
		if i+1 < size.X && m.Right != 0 {
			if col := index.At(i+1, j); col >= 0 {
				a.Set(row, col, m.Right)
				a.Set(col, row, m.Right)
			}
		}
		if j+1 < size.Y && m.Up != 0 {
			if col := index.At(i, j+1); col >= 0 {
				a.Set(row, col, m.Up)
				a.Set(col, row, m.Up)
			}
		}
		b[row] = system.B.At(i, j)
		x[row] = system.X.At(i, j)
	})
	s = NewCompressedLinearSystem(a, b)
	copy(s.X, x)
	return
}

// DecompressMasked2 scatters a compressed solution back onto the cells of
// index; cells without a row are zeroed.
func DecompressMasked2(s *CompressedLinearSystem, index *array.Array2[int], x *Vector2) {
	x.ParallelForEachIndex(func(i, j int) {
		if row := index.At(i, j); row >= 0 {
			x.Set(i, j, s.X[row])
		} else {
			x.Set(i, j, 0)
		}
	})
}

func Compress3(system *LinearSystem3) *CompressedLinearSystem {
	s, _ := CompressMasked3(system, nil)
	return s
}

func CompressMasked3(system *LinearSystem3, include func(i, j, k int) bool) (s *CompressedLinearSystem,
	index *array.Array3[int]) {
	var (
		size = system.Size()
		n    int
	)
	index = array.NewArray3[int](size.X, size.Y, size.Z, -1)
	index.ForEachIndex(func(i, j, k int) {
		if include == nil || include(i, j, k) {
			index.Set(i, j, k, n)
			n++
		}
	})
	var (
		a = utils.NewDOK(n, n)
		b = make([]float64, n)
		x = make([]float64, n)
	)
	index.ForEachIndex(func(i, j, k int) {
		row := index.At(i, j, k)
		if row < 0 {
			return
		}
		m := system.A.At(i, j, k)
		a.Set(row, row, m.Center)
		if i+1 < size.X && m.Right != 0 {
			if col := index.At(i+1, j, k); col >= 0 {
				a.Set(row, col, m.Right)
				a.Set(col, row, m.Right)
			}
		}
		if j+1 < size.Y && m.Up != 0 {
			if col := index.At(i, j+1, k); col >= 0 {
				a.Set(row, col, m.Up)
				a.Set(col, row, m.Up)
			}
		}
		if k+1 < size.Z && m.Front != 0 {
			if col := index.At(i, j, k+1); col >= 0 {
				a.Set(row, col, m.Front)
				a.Set(col, row, m.Front)
			}
		}
		b[row] = system.B.At(i, j, k)
		x[row] = system.X.At(i, j, k)
	})
	s = NewCompressedLinearSystem(a, b)
	copy(s.X, x)
	return
}

func DecompressMasked3(s *CompressedLinearSystem, index *array.Array3[int], x *Vector3) {
	x.ParallelForEachIndex(func(i, j, k int) {
		if row := index.At(i, j, k); row >= 0 {
			x.Set(i, j, k, s.X[row])
		} else {
			x.Set(i, j, k, 0)
		}
	})
}
