package array

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestArray2(t *testing.T) {
	{ // Test storage order and bounds
		a := NewArray2[float64](3, 2, 1.5)
		assert.Equal(t, Size2{3, 2}, a.Size())
		assert.Equal(t, 6, a.Len())
		a.Set(2, 1, 7)
		assert.Equal(t, 7., a.Data()[2+3*1])
		assert.Equal(t, 1.5, a.At(0, 0))
		assert.Panics(t, func() { a.At(3, 0) })
		assert.Panics(t, func() { a.At(0, -1) })
		assert.Panics(t, func() { a.Set(0, 2, 1) })
	}
	{ // Test Resize preserves the overlap
		a := NewArray2[int](3, 3)
		a.ForEachIndex(func(i, j int) { a.Set(i, j, 10*i+j) })
		a.Resize(2, 4, -1)
		assert.Equal(t, Size2{2, 4}, a.Size())
		for j := 0; j < 3; j++ {
			for i := 0; i < 2; i++ {
				assert.Equal(t, 10*i+j, a.At(i, j))
			}
		}
		assert.Equal(t, -1, a.At(0, 3))
		assert.Equal(t, -1, a.At(1, 3))
	}
	{ // Test Clone, CopyFrom and Swap
		a := NewArray2[float64](2, 2, 3)
		b := a.Clone()
		b.Set(0, 0, 9)
		assert.Equal(t, 3., a.At(0, 0))
		c := NewArray2[float64](1, 1)
		c.CopyFrom(b)
		assert.Equal(t, b.Data(), c.Data())
		a.Swap(c)
		assert.Equal(t, 9., a.At(0, 0))
		assert.Equal(t, 3., c.At(0, 0))
	}
}

func TestArray3(t *testing.T) {
	a := NewArray3[float64](2, 3, 4)
	a.Set(1, 2, 3, 5)
	assert.Equal(t, 5., a.Data()[1+2*(2+3*3)])
	assert.Panics(t, func() { a.At(0, 0, 4) })
	a.Resize(3, 3, 3, 2)
	assert.Equal(t, 0., a.At(1, 2, 2))
	assert.Equal(t, 2., a.At(2, 0, 0))
	a.Resize(1, 1, 1, 0)
	assert.Equal(t, 1, a.Len())
}

func TestArray1(t *testing.T) {
	a := NewArray1From([]float64{1, 2, 3})
	a.Resize(5, 9)
	assert.Equal(t, []float64{1, 2, 3, 9, 9}, a.Data())
	a.Resize(2, 0)
	assert.Equal(t, []float64{1, 2}, a.Data())
	a.Append(4)
	assert.Equal(t, 3, a.Len())
	assert.Panics(t, func() { a.At(3) })
}

func TestForEachIndex(t *testing.T) {
	{ // Serial order has i fastest
		var visited [][2]int
		ForEachIndex2(Size2{2, 2}, func(i, j int) {
			visited = append(visited, [2]int{i, j})
		})
		assert.Equal(t, [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}}, visited)
	}
	{ // Parallel traversal covers every index exactly once
		var (
			size  = Size3{7, 5, 3}
			count = NewArray3[int](size.X, size.Y, size.Z)
			mu    sync.Mutex
		)
		ParallelForEachIndex3(size, func(i, j, k int) {
			mu.Lock()
			count.Set(i, j, k, count.At(i, j, k)+1)
			mu.Unlock()
		})
		for _, c := range count.Data() {
			require.Equal(t, 1, c)
		}
	}
}

func TestExtrapolateToRegion2(t *testing.T) {
	var (
		input  = NewArray2[float64](4, 1)
		valid  = NewArray2[bool](4, 1)
		output = NewArray2[float64](4, 1)
	)
	input.Set(0, 0, 2)
	valid.Set(0, 0, true)
	input.Set(3, 0, 100) // stale value, not valid
	{ // One pass only reaches the first neighbour
		ExtrapolateToRegion2(Float64Ops, input, valid, 1, output)
		assert.Equal(t, []float64{2, 2, 0, 100}, output.Data())
	}
	{ // Enough passes fill the whole row
		ExtrapolateToRegion2(Float64Ops, input, valid, 3, output)
		assert.Equal(t, []float64{2, 2, 2, 2}, output.Data())
	}
	{ // Vector values average component-wise
		vin := NewArray2[r2.Vec](3, 1)
		vvalid := NewArray2[bool](3, 1)
		vout := NewArray2[r2.Vec](3, 1)
		vin.Set(0, 0, r2.Vec{X: 1, Y: 2})
		vin.Set(2, 0, r2.Vec{X: 3, Y: 4})
		vvalid.Set(0, 0, true)
		vvalid.Set(2, 0, true)
		ExtrapolateToRegion2(Vec2Ops, vin, vvalid, 1, vout)
		assert.InDelta(t, 2., vout.At(1, 0).X, 1e-12)
		assert.InDelta(t, 3., vout.At(1, 0).Y, 1e-12)
	}
}
