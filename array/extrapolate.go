package array

import (
	"fmt"
)

// ExtrapolateToRegion2 copies input into output and then, numberOfIterations
// times, replaces every invalid element that has at least one valid face
// neighbour by the average of those neighbours and marks it valid.
func ExtrapolateToRegion2[T any](ops Ops[T], input *Array2[T], valid *Array2[bool],
	numberOfIterations int, output *Array2[T]) {
	var (
		size = input.Size()
	)
	if size != valid.Size() || size != output.Size() {
		panic(fmt.Errorf("extrapolation arrays differ in size: %v %v %v",
			size, valid.Size(), output.Size()))
	}
	var (
		valid0 = NewArray2[bool](size.X, size.Y)
		valid1 = NewArray2[bool](size.X, size.Y)
		in     = input.Data()
		out    = output.Data()
		v0     = valid0.Data()
		vIn    = valid.Data()
	)
	ParallelForEachIndex2(size, func(i, j int) {
		idx := i + size.X*j
		v0[idx] = vIn[idx]
		out[idx] = in[idx]
	})
	for iter := 0; iter < numberOfIterations; iter++ {
		v0, v1 := valid0.Data(), valid1.Data()
		ForEachIndex2(size, func(i, j int) {
			idx := i + size.X*j
			if v0[idx] {
				v1[idx] = true
				return
			}
			var (
				sum   T
				count int
			)
			add := func(n int) {
				if count == 0 {
					sum = out[n]
				} else {
					sum = ops.Add(sum, out[n])
				}
				count++
			}
			if i+1 < size.X && v0[idx+1] {
				add(idx + 1)
			}
			if i > 0 && v0[idx-1] {
				add(idx - 1)
			}
			if j+1 < size.Y && v0[idx+size.X] {
				add(idx + size.X)
			}
			if j > 0 && v0[idx-size.X] {
				add(idx - size.X)
			}
			if count > 0 {
				out[idx] = ops.Scale(1/float64(count), sum)
				v1[idx] = true
			}
		})
		valid0.Swap(valid1)
	}
}

func ExtrapolateToRegion3[T any](ops Ops[T], input *Array3[T], valid *Array3[bool],
	numberOfIterations int, output *Array3[T]) {
	var (
		size = input.Size()
	)
	if size != valid.Size() || size != output.Size() {
		panic(fmt.Errorf("extrapolation arrays differ in size: %v %v %v",
			size, valid.Size(), output.Size()))
	}
	var (
		valid0 = NewArray3[bool](size.X, size.Y, size.Z)
		valid1 = NewArray3[bool](size.X, size.Y, size.Z)
		in     = input.Data()
		out    = output.Data()
		v0     = valid0.Data()
		vIn    = valid.Data()
		slab   = size.X * size.Y
	)
	ParallelForEachIndex3(size, func(i, j, k int) {
		idx := i + size.X*(j+size.Y*k)
		v0[idx] = vIn[idx]
		out[idx] = in[idx]
	})
	for iter := 0; iter < numberOfIterations; iter++ {
		v0, v1 := valid0.Data(), valid1.Data()
		ForEachIndex3(size, func(i, j, k int) {
			idx := i + size.X*(j+size.Y*k)
			if v0[idx] {
				v1[idx] = true
				return
			}
			var (
				sum   T
				count int
			)
			add := func(n int) {
				if count == 0 {
					sum = out[n]
				} else {
					sum = ops.Add(sum, out[n])
				}
				count++
			}
			if i+1 < size.X && v0[idx+1] {
				add(idx + 1)
			}
			if i > 0 && v0[idx-1] {
				add(idx - 1)
			}
			if j+1 < size.Y && v0[idx+size.X] {
				add(idx + size.X)
			}
			if j > 0 && v0[idx-size.X] {
				add(idx - size.X)
			}
			if k+1 < size.Z && v0[idx+slab] {
				add(idx + slab)
			}
			if k > 0 && v0[idx-slab] {
				add(idx - slab)
			}
			if count > 0 {
				out[idx] = ops.Scale(1/float64(count), sum)
				v1[idx] = true
			}
		})
		valid0.Swap(valid1)
	}
}
