package utils

import (
	"bytes"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/stretchr/testify/assert"
)

func TestPartitionMap(t *testing.T) {
	{ // Test PartitionMap
		getHisto := func(K, Np int) (histo map[int]int) {
			pm := NewPartitionMap(Np, K)
			histo = make(map[int]int)
			for np := 0; np < pm.ParallelDegree; np++ {
				maxK := pm.GetBucketDimension(np)
				histo[maxK]++
			}
			return
		}
		getTotal := func(histo map[int]int) (total int) {
			for key, count := range histo {
				total += key * count
			}
			return
		}
		assert.Equal(t, map[int]int{0: 30, 1: 2}, getHisto(2, 32))
		assert.Equal(t, map[int]int{1: 32}, getHisto(32, 32))
		assert.Equal(t, map[int]int{8: 32}, getHisto(256, 32))
		assert.Equal(t, map[int]int{8: 1, 9: 31}, getHisto(287, 32))
		assert.Equal(t, 287, getTotal(getHisto(287, 32)))
		for n := 64; n < 10000; n++ {
			var (
				keys   [2]float64
				keyNum int
			)
			histo := getHisto(n, 32)
			for key := range histo {
				keys[keyNum] = float64(key)
				keyNum++
			}
			if keyNum == 2 {
				assert.Equal(t, 1., math.Abs(keys[0]-keys[1])) // Maximum imbalance of 1
			}
			assert.Equal(t, n, getTotal(histo))
		}
	}
	{ // Test inverted bucket probe - find bucket that contains index (efficiently)
		for maxIndex := 10; maxIndex < 1000; maxIndex++ {
			pm := NewPartitionMap(5, maxIndex)
			for k := 0; k < maxIndex; k++ {
				tryCount, bn, min, max := pm.getBucketWithTryCount(k)
				mmin, mmax := pm.GetBucketRange(bn)
				assert.True(t, k >= min && k < max && min == mmin && max == mmax && tryCount <= 1)
			}
		}
	}
}

func TestParallelFor(t *testing.T) {
	defer SetMaxNumberOfThreads(MaxNumberOfThreads())
	for _, threads := range []int{1, 3, 16} {
		SetMaxNumberOfThreads(threads)
		var (
			n     = 1001
			hits  = make([]int32, n)
			total atomic.Int64
		)
		ParallelFor(5, n, func(i int) {
			atomic.AddInt32(&hits[i], 1)
			total.Add(int64(i))
		})
		for i, h := range hits {
			if i < 5 {
				assert.Equal(t, int32(0), h)
			} else {
				assert.Equal(t, int32(1), h)
			}
		}
		assert.Equal(t, int64((n-1)*n/2-10), total.Load())
	}
	{ // Test an empty range and the serial policy
		ParallelFor(3, 3, func(int) { t.Fatal("called on an empty range") })
		var order []int
		ForPolicy(Serial, 0, 4, func(i int) { order = append(order, i) })
		assert.Equal(t, []int{0, 1, 2, 3}, order)
		assert.Equal(t, "serial", Serial.String())
		assert.Equal(t, "parallel", Parallel.String())
	}
	SetMaxNumberOfThreads(-2)
	assert.Equal(t, 1, MaxNumberOfThreads())
}

func TestSparse(t *testing.T) {
	a := NewDOK(3, 3)
	a.Set(0, 0, 4)
	a.Set(0, 1, -1)
	a.Set(1, 1, 4)
	a.Set(2, 1, -1)
	csr := a.ToCSR()
	assert.Equal(t, 4, csr.NNZ())
	assert.Equal(t, 4., csr.Diagonal(1))
	assert.Equal(t, 0., csr.Diagonal(2))
	result := make([]float64, 3)
	csr.MulVec([]float64{1, 2, 3}, result)
	assert.Equal(t, []float64{2, 8, -2}, result)
	assert.Panics(t, func() { csr.MulVec([]float64{1}, result) })

	a.SetReadOnly("a")
	assert.Panics(t, func() { a.Set(0, 0, 1) })
}

func TestBinary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSlice(&buf, []r2.Vec{{X: 1, Y: 2}, {X: math.Pi}}))
	require.NoError(t, WriteInts(&buf, []int{-1, 7}))
	vs, err := ReadSlice[r2.Vec](&buf)
	require.NoError(t, err)
	assert.Equal(t, []r2.Vec{{X: 1, Y: 2}, {X: math.Pi}}, vs)
	is, err := ReadInts(&buf)
	require.NoError(t, err)
	assert.Equal(t, []int{-1, 7}, is)

	{ // Test a corrupt length
		require.NoError(t, WriteValue(&buf, int64(-4)))
		_, err = ReadSlice[float64](&buf)
		assert.ErrorIs(t, err, ErrCorrupt)
	}
	{ // Test a short buffer
		require.NoError(t, WriteValue(&buf, int64(3)))
		require.NoError(t, WriteValue(&buf, 1.0))
		_, err = ReadSlice[float64](&buf)
		assert.ErrorIs(t, err, ErrCorrupt)
	}
}

func TestIsNan(t *testing.T) {
	assert.False(t, IsNan([]r2.Vec{{X: 1}}))
	assert.True(t, IsNan([]r2.Vec{{X: 1}, {Y: math.NaN()}}))
	assert.True(t, IsNan(math.NaN()))
	assert.False(t, IsNan("not a number"))
	alloc, sys := MemUsage()
	assert.LessOrEqual(t, alloc, sys)
}
