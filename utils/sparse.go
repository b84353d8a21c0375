package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
)

// DOK is a dictionary of keys matrix, the form a sparse system is assembled
// in before it is compressed with ToCSR.
type DOK struct {
	M        *sparse.DOK
	readOnly bool
	name     string
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		M:    sparse.NewDOK(nr, nc),
		name: "unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }

func (m *DOK) SetReadOnly(name ...string) {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
}

func (m DOK) Set(i, j int, val float64) {
	m.checkWritable()
	m.M.Set(i, j, val)
}

func (m DOK) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

func (m DOK) ToCSR() CSR {
	return CSR{
		M:    m.M.ToCSR(),
		name: m.name,
	}
}

// CSR is the compressed sparse row form. Rows are swept through the raw
// row pointer, column index and value slices of the underlying matrix.
type CSR struct {
	M    *sparse.CSR
	name string
}

func (m CSR) Dims() (r, c int)    { return m.M.Dims() }
func (m CSR) At(i, j int) float64 { return m.M.At(i, j) }
func (m CSR) NNZ() int            { return m.M.NNZ() }

// RowRange returns the half open range of row i within ColumnIndices and
// Values.
func (m CSR) RowRange(i int) (begin, end int) {
	rp := m.M.RawMatrix().Indptr
	return rp[i], rp[i+1]
}

func (m CSR) ColumnIndices() []int { return m.M.RawMatrix().Ind }
func (m CSR) Values() []float64    { return m.M.RawMatrix().Data }

// Diagonal returns A(i,i), or zero when the row stores no diagonal entry.
func (m CSR) Diagonal(i int) (diag float64) {
	var (
		b, e = m.RowRange(i)
		ci   = m.ColumnIndices()
		nnz  = m.Values()
	)
	for jj := b; jj < e; jj++ {
		if ci[jj] == i {
			diag = nnz[jj]
		}
	}
	return
}

// MulVec computes result = A*x, rows in parallel.
func (m CSR) MulVec(x, result []float64) {
	var (
		nr, nc = m.Dims()
		raw    = m.M.RawMatrix()
	)
	if len(x) != nc || len(result) != nr {
		panic(fmt.Errorf("dimension mismatch in MulVec: matrix %dx%d, x %d, result %d",
			nr, nc, len(x), len(result)))
	}
	ParallelRangeFor(0, nr, func(b, e int) {
		for i := b; i < e; i++ {
			var sum float64
			for jj := raw.Indptr[i]; jj < raw.Indptr[i+1]; jj++ {
				sum += raw.Data[jj] * x[raw.Ind[jj]]
			}
			result[i] = sum
		}
	})
}
