package fdm

import (
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
)

// Central differences at data point (i,j). Gradients clamp a missing
// neighbor to the point itself; Laplacians drop the difference across a
// missing neighbor.

func Gradient2(data *array.Array2[float64], gridSpacing r2.Vec, i, j int) r2.Vec {
	var (
		ds    = data.Size()
		left  = data.At(max(i-1, 0), j)
		right = data.At(min(i+1, ds.X-1), j)
		down  = data.At(i, max(j-1, 0))
		up    = data.At(i, min(j+1, ds.Y-1))
	)
	return r2.Vec{X: 0.5 * (right - left) / gridSpacing.X, Y: 0.5 * (up - down) / gridSpacing.Y}
}

// VectorGradient2 returns the gradients of the X and Y components.
func VectorGradient2(data *array.Array2[r2.Vec], gridSpacing r2.Vec, i, j int) (g [2]r2.Vec) {
	var (
		ds    = data.Size()
		left  = data.At(max(i-1, 0), j)
		right = data.At(min(i+1, ds.X-1), j)
		down  = data.At(i, max(j-1, 0))
		up    = data.At(i, min(j+1, ds.Y-1))
	)
	g[0] = r2.Vec{X: 0.5 * (right.X - left.X) / gridSpacing.X, Y: 0.5 * (up.X - down.X) / gridSpacing.Y}
	g[1] = r2.Vec{X: 0.5 * (right.Y - left.Y) / gridSpacing.X, Y: 0.5 * (up.Y - down.Y) / gridSpacing.Y}
	return
}

func Laplacian2(data *array.Array2[float64], gridSpacing r2.Vec, i, j int) float64 {
	return laplacian2(array.Float64Ops, data, gridSpacing, i, j, nil)
}

func VectorLaplacian2(data *array.Array2[r2.Vec], gridSpacing r2.Vec, i, j int) r2.Vec {
	return laplacian2(array.Vec2Ops, data, gridSpacing, i, j, nil)
}

// MaskedLaplacian2 drops the difference across every neighbor for which
// include is false, so no flux crosses into excluded points.
func MaskedLaplacian2[T any](ops array.Ops[T], data *array.Array2[T], gridSpacing r2.Vec, i, j int,
	include func(i, j int) bool) T {
	return laplacian2(ops, data, gridSpacing, i, j, include)
}

func laplacian2[T any](ops array.Ops[T], data *array.Array2[T], gridSpacing r2.Vec, i, j int,
	include func(i, j int) bool) T {
	var (
		ds                        = data.Size()
		center                    = data.At(i, j)
		dLeft, dRight, dDown, dUp T
	)
	if include == nil {
		include = func(int, int) bool { return true }
	}
	if i > 0 && include(i-1, j) {
		dLeft = ops.Sub(center, data.At(i-1, j))
	}
	if i+1 < ds.X && include(i+1, j) {
		dRight = ops.Sub(data.At(i+1, j), center)
	}
	if j > 0 && include(i, j-1) {
		dDown = ops.Sub(center, data.At(i, j-1))
	}
	if j+1 < ds.Y && include(i, j+1) {
		dUp = ops.Sub(data.At(i, j+1), center)
	}
	return ops.Add(
		ops.Scale(1/(gridSpacing.X*gridSpacing.X), ops.Sub(dRight, dLeft)),
		ops.Scale(1/(gridSpacing.Y*gridSpacing.Y), ops.Sub(dUp, dDown)))
}

func Gradient3(data *array.Array3[float64], gridSpacing r3.Vec, i, j, k int) r3.Vec {
	var (
		ds    = data.Size()
		left  = data.At(max(i-1, 0), j, k)
		right = data.At(min(i+1, ds.X-1), j, k)
		down  = data.At(i, max(j-1, 0), k)
		up    = data.At(i, min(j+1, ds.Y-1), k)
		back  = data.At(i, j, max(k-1, 0))
		front = data.At(i, j, min(k+1, ds.Z-1))
	)
	return r3.Vec{
		X: 0.5 * (right - left) / gridSpacing.X,
		Y: 0.5 * (up - down) / gridSpacing.Y,
		Z: 0.5 * (front - back) / gridSpacing.Z,
	}
}

func VectorGradient3(data *array.Array3[r3.Vec], gridSpacing r3.Vec, i, j, k int) (g [3]r3.Vec) {
	var (
		ds    = data.Size()
		left  = data.At(max(i-1, 0), j, k)
		right = data.At(min(i+1, ds.X-1), j, k)
		down  = data.At(i, max(j-1, 0), k)
		up    = data.At(i, min(j+1, ds.Y-1), k)
		back  = data.At(i, j, max(k-1, 0))
		front = data.At(i, j, min(k+1, ds.Z-1))
		h     = r3.Vec{X: 0.5 / gridSpacing.X, Y: 0.5 / gridSpacing.Y, Z: 0.5 / gridSpacing.Z}
	)
	g[0] = r3.Vec{X: (right.X - left.X) * h.X, Y: (up.X - down.X) * h.Y, Z: (front.X - back.X) * h.Z}
	g[1] = r3.Vec{X: (right.Y - left.Y) * h.X, Y: (up.Y - down.Y) * h.Y, Z: (front.Y - back.Y) * h.Z}
	g[2] = r3.Vec{X: (right.Z - left.Z) * h.X, Y: (up.Z - down.Z) * h.Y, Z: (front.Z - back.Z) * h.Z}
	return
}

func Laplacian3(data *array.Array3[float64], gridSpacing r3.Vec, i, j, k int) float64 {
	return laplacian3(array.Float64Ops, data, gridSpacing, i, j, k, nil)
}

func VectorLaplacian3(data *array.Array3[r3.Vec], gridSpacing r3.Vec, i, j, k int) r3.Vec {
	return laplacian3(array.Vec3Ops, data, gridSpacing, i, j, k, nil)
}

func MaskedLaplacian3[T any](ops array.Ops[T], data *array.Array3[T], gridSpacing r3.Vec, i, j, k int,
	include func(i, j, k int) bool) T {
	return laplacian3(ops, data, gridSpacing, i, j, k, include)
}

func laplacian3[T any](ops array.Ops[T], data *array.Array3[T], gridSpacing r3.Vec, i, j, k int,
	include func(i, j, k int) bool) T {
	var (
		ds     = data.Size()
		center = data.At(i, j, k)
		sum    T
	)
	if include == nil {
		include = func(int, int, int) bool { return true }
	}
	// second difference along one axis, given the neighbor presence
	axis := func(lo, hi bool, lower, upper func() T, h float64) T {
		var dLo, dHi T
		if lo {
			dLo = ops.Sub(center, lower())
		}
		if hi {
			dHi = ops.Sub(upper(), center)
		}
		return ops.Scale(1/(h*h), ops.Sub(dHi, dLo))
	}
	sum = axis(i > 0 && include(i-1, j, k), i+1 < ds.X && include(i+1, j, k),
		func() T { return data.At(i-1, j, k) }, func() T { return data.At(i+1, j, k) }, gridSpacing.X)
	sum = ops.Add(sum, axis(j > 0 && include(i, j-1, k), j+1 < ds.Y && include(i, j+1, k),
		func() T { return data.At(i, j-1, k) }, func() T { return data.At(i, j+1, k) }, gridSpacing.Y))
	sum = ops.Add(sum, axis(k > 0 && include(i, j, k-1), k+1 < ds.Z && include(i, j, k+1),
		func() T { return data.At(i, j, k-1) }, func() T { return data.At(i, j, k+1) }, gridSpacing.Z))
	return sum
}
