package array

import (
	"github.com/notargets/gofluid/utils"
)

// ForEachIndex2 visits every (i, j) in [0,X)x[0,Y) in storage order, i fastest.
func ForEachIndex2(size Size2, fn func(i, j int)) {
	for j := 0; j < size.Y; j++ {
		for i := 0; i < size.X; i++ {
			fn(i, j)
		}
	}
}

// ParallelForEachIndex2 covers the same index set as ForEachIndex2 with no
// ordering guarantee between elements.
func ParallelForEachIndex2(size Size2, fn func(i, j int)) {
	if size.X == 0 {
		return
	}
	utils.ParallelRangeFor(0, size.Len(), func(b, e int) {
		for idx := b; idx < e; idx++ {
			fn(idx%size.X, idx/size.X)
		}
	})
}

func ForEachIndex3(size Size3, fn func(i, j, k int)) {
	for k := 0; k < size.Z; k++ {
		for j := 0; j < size.Y; j++ {
			for i := 0; i < size.X; i++ {
				fn(i, j, k)
			}
		}
	}
}

func ParallelForEachIndex3(size Size3, fn func(i, j, k int)) {
	if size.X == 0 || size.Y == 0 {
		return
	}
	slab := size.X * size.Y
	utils.ParallelRangeFor(0, size.Len(), func(b, e int) {
		for idx := b; idx < e; idx++ {
			k := idx / slab
			r := idx - k*slab
			fn(r%size.X, r/size.X, k)
		}
	})
}

// ForEachIndexPolicy2 selects between the serial and parallel traversal.
func ForEachIndexPolicy2(policy utils.ExecutionPolicy, size Size2, fn func(i, j int)) {
	if policy == utils.Serial {
		ForEachIndex2(size, fn)
		return
	}
	ParallelForEachIndex2(size, fn)
}

func ForEachIndexPolicy3(policy utils.ExecutionPolicy, size Size3, fn func(i, j, k int)) {
	if policy == utils.Serial {
		ForEachIndex3(size, fn)
		return
	}
	ParallelForEachIndex3(size, fn)
}
