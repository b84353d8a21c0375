package fdm

import (
	"fmt"
	"math"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/utils"
)

// BLAS2, BLAS3 and CompressedBLAS are the vector kernels the iterative
// solvers are written against. AXPY computes result = a*x + y, and result may
// alias x or y. Dot and the norms sum serially so that a solve is
// reproducible.
type (
	BLAS2          struct{}
	BLAS3          struct{}
	CompressedBLAS struct{}
)

func checkSize[S comparable](a, b S) {
	if a != b {
		panic(fmt.Errorf("size mismatch %v != %v", a, b))
	}
}

func dot(a, b []float64) (result float64) {
	for i := range a {
		result += a[i] * b[i]
	}
	return
}

func axpy(a float64, x, y, result []float64) {
	utils.ParallelRangeFor(0, len(result), func(b, e int) {
		for i := b; i < e; i++ {
			result[i] = a*x[i] + y[i]
		}
	})
}

func lInfNorm(v []float64) (result float64) {
	for _, val := range v {
		result = max(result, math.Abs(val))
	}
	return
}

func (BLAS2) Set(s float64, result *Vector2)       { result.Fill(s) }
func (BLAS2) SetFrom(v, result *Vector2)           { result.CopyFrom(v) }
func (BLAS2) SetMatrix(s float64, result *Matrix2) { result.Fill(MatrixRow2{s, s, s}) }

func (BLAS2) Dot(a, b *Vector2) float64 {
	checkSize(a.Size(), b.Size())
	return dot(a.Data(), b.Data())
}

func (BLAS2) AXPY(a float64, x, y, result *Vector2) {
	checkSize(x.Size(), y.Size())
	checkSize(x.Size(), result.Size())
	axpy(a, x.Data(), y.Data(), result.Data())
}

func (BLAS2) MVM(m *Matrix2, v, result *Vector2) {
	size := m.Size()
	checkSize(size, v.Size())
	checkSize(size, result.Size())
	array.ParallelForEachIndex2(size, func(i, j int) {
		result.Set(i, j, m.At(i, j).Center*v.At(i, j)+offDiagonal2(m, v, size, i, j))
	})
}

func (BLAS2) Residual(a *Matrix2, x, b, result *Vector2) {
	size := a.Size()
	checkSize(size, x.Size())
	checkSize(size, b.Size())
	checkSize(size, result.Size())
	array.ParallelForEachIndex2(size, func(i, j int) {
		result.Set(i, j, b.At(i, j)-a.At(i, j).Center*x.At(i, j)-offDiagonal2(a, x, size, i, j))
	})
}

func (o BLAS2) L2Norm(v *Vector2) float64 { return math.Sqrt(o.Dot(v, v)) }
func (BLAS2) LInfNorm(v *Vector2) float64  { return lInfNorm(v.Data()) }

func (BLAS2) newVector(like *Vector2) *Vector2 {
	return array.NewArray2[float64](like.Width(), like.Height())
}

// offDiagonal2 is the sum of the neighbor couplings of row (i,j) times x.
func offDiagonal2(m *Matrix2, x *Vector2, size array.Size2, i, j int) (r float64) {
	if i > 0 {
		r += m.At(i-1, j).Right * x.At(i-1, j)
	}
	if i+1 < size.X {
		r += m.At(i, j).Right * x.At(i+1, j)
	}
	if j > 0 {
		r += m.At(i, j-1).Up * x.At(i, j-1)
	}
	if j+1 < size.Y {
		r += m.At(i, j).Up * x.At(i, j+1)
	}
	return
}

func (BLAS3) Set(s float64, result *Vector3)       { result.Fill(s) }
func (BLAS3) SetFrom(v, result *Vector3)           { result.CopyFrom(v) }
func (BLAS3) SetMatrix(s float64, result *Matrix3) { result.Fill(MatrixRow3{s, s, s, s}) }

func (BLAS3) Dot(a, b *Vector3) float64 {
	checkSize(a.Size(), b.Size())
	return dot(a.Data(), b.Data())
}

func (BLAS3) AXPY(a float64, x, y, result *Vector3) {
	checkSize(x.Size(), y.Size())
	checkSize(x.Size(), result.Size())
	axpy(a, x.Data(), y.Data(), result.Data())
}

func (BLAS3) MVM(m *Matrix3, v, result *Vector3) {
	size := m.Size()
	checkSize(size, v.Size())
	checkSize(size, result.Size())
	array.ParallelForEachIndex3(size, func(i, j, k int) {
		result.Set(i, j, k, m.At(i, j, k).Center*v.At(i, j, k)+offDiagonal3(m, v, size, i, j, k))
	})
}

func (BLAS3) Residual(a *Matrix3, x, b, result *Vector3) {
	size := a.Size()
	checkSize(size, x.Size())
	checkSize(size, b.Size())
	checkSize(size, result.Size())
	array.ParallelForEachIndex3(size, func(i, j, k int) {
		result.Set(i, j, k, b.At(i, j, k)-a.At(i, j, k).Center*x.At(i, j, k)-offDiagonal3(a, x, size, i, j, k))
	})
}

func (o BLAS3) L2Norm(v *Vector3) float64 { return math.Sqrt(o.Dot(v, v)) }
func (BLAS3) LInfNorm(v *Vector3) float64  { return lInfNorm(v.Data()) }

func (BLAS3) newVector(like *Vector3) *Vector3 {
	return array.NewArray3[float64](like.Width(), like.Height(), like.Depth())
}

func offDiagonal3(m *Matrix3, x *Vector3, size array.Size3, i, j, k int) (r float64) {
	if i > 0 {
		r += m.At(i-1, j, k).Right * x.At(i-1, j, k)
	}
	if i+1 < size.X {
		r += m.At(i, j, k).Right * x.At(i+1, j, k)
	}
	if j > 0 {
		r += m.At(i, j-1, k).Up * x.At(i, j-1, k)
	}
	if j+1 < size.Y {
		r += m.At(i, j, k).Up * x.At(i, j+1, k)
	}
	if k > 0 {
		r += m.At(i, j, k-1).Front * x.At(i, j, k-1)
	}
	if k+1 < size.Z {
		r += m.At(i, j, k).Front * x.At(i, j, k+1)
	}
	return
}

func (CompressedBLAS) Set(s float64, result []float64) {
	for i := range result {
		result[i] = s
	}
}

func (CompressedBLAS) SetFrom(v, result []float64) {
	checkSize(len(v), len(result))
	copy(result, v)
}

func (CompressedBLAS) Dot(a, b []float64) float64 {
	checkSize(len(a), len(b))
	return dot(a, b)
}

func (CompressedBLAS) AXPY(a float64, x, y, result []float64) {
	checkSize(len(x), len(y))
	checkSize(len(x), len(result))
	axpy(a, x, y, result)
}

func (CompressedBLAS) MVM(m utils.CSR, v, result []float64) { m.MulVec(v, result) }

func (CompressedBLAS) Residual(a utils.CSR, x, b, result []float64) {
	checkSize(len(b), len(result))
	a.MulVec(x, result)
	utils.ParallelRangeFor(0, len(result), func(bb, e int) {
		for i := bb; i < e; i++ {
			result[i] = b[i] - result[i]
		}
	})
}

func (o CompressedBLAS) L2Norm(v []float64) float64 { return math.Sqrt(dot(v, v)) }
func (CompressedBLAS) LInfNorm(v []float64) float64  { return lInfNorm(v) }

func (CompressedBLAS) newVector(like []float64) []float64 { return make([]float64, len(like)) }
