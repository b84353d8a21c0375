package array

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// Sampler2 maps a continuous position onto an interpolated array value.
type Sampler2[T any] interface {
	Sample(x r2.Vec) T
}

type samplerFrame2 struct {
	gridSpacing    r2.Vec
	invGridSpacing r2.Vec
	origin         r2.Vec
}

func newSamplerFrame2(gridSpacing, origin r2.Vec) samplerFrame2 {
	return samplerFrame2{
		gridSpacing:    gridSpacing,
		invGridSpacing: r2.Vec{X: 1 / gridSpacing.X, Y: 1 / gridSpacing.Y},
		origin:         origin,
	}
}

func (sf samplerFrame2) normalize(x r2.Vec) r2.Vec {
	d := r2.Sub(x, sf.origin)
	return r2.Vec{X: d.X * sf.invGridSpacing.X, Y: d.Y * sf.invGridSpacing.Y}
}

type NearestSampler2[T any] struct {
	samplerFrame2
	accessor *Array2[T]
}

func NewNearestSampler2[T any](accessor *Array2[T], gridSpacing, origin r2.Vec) *NearestSampler2[T] {
	return &NearestSampler2[T]{
		samplerFrame2: newSamplerFrame2(gridSpacing, origin),
		accessor:      accessor,
	}
}

func (s *NearestSampler2[T]) Sample(x r2.Vec) (val T) {
	size := s.accessor.Size()
	if size.X == 0 || size.Y == 0 {
		return
	}
	var (
		n     = s.normalize(x)
		i, fx = GetBarycentric(n.X, 0, size.X-1)
		j, fy = GetBarycentric(n.Y, 0, size.Y-1)
	)
	i = min(int(float64(i)+fx+0.5), size.X-1)
	j = min(int(float64(j)+fy+0.5), size.Y-1)
	return s.accessor.At(i, j)
}

type LinearSampler2[T any] struct {
	samplerFrame2
	accessor *Array2[T]
	ops      Ops[T]
}

func NewLinearSampler2[T any](accessor *Array2[T], gridSpacing, origin r2.Vec, ops Ops[T]) *LinearSampler2[T] {
	return &LinearSampler2[T]{
		samplerFrame2: newSamplerFrame2(gridSpacing, origin),
		accessor:      accessor,
		ops:           ops,
	}
}

func (s *LinearSampler2[T]) cell(x r2.Vec) (i, j, ip1, jp1 int, fx, fy float64) {
	var (
		size = s.accessor.Size()
		n    = s.normalize(x)
	)
	i, fx = GetBarycentric(n.X, 0, size.X-1)
	j, fy = GetBarycentric(n.Y, 0, size.Y-1)
	ip1 = min(i+1, size.X-1)
	jp1 = min(j+1, size.Y-1)
	return
}

func (s *LinearSampler2[T]) Sample(x r2.Vec) (val T) {
	size := s.accessor.Size()
	if size.X == 0 || size.Y == 0 {
		return
	}
	var (
		i, j, ip1, jp1, fx, fy = s.cell(x)
		a                      = s.accessor
	)
	return BiLerp(s.ops,
		a.At(i, j), a.At(ip1, j),
		a.At(i, jp1), a.At(ip1, jp1),
		fx, fy)
}

// GetCoordinatesAndWeights returns the four corners of the cell enclosing x
// and their bilinear weights. The weights are non-negative and sum to one.
func (s *LinearSampler2[T]) GetCoordinatesAndWeights(x r2.Vec) (indices [4][2]int, weights [4]float64) {
	i, j, ip1, jp1, fx, fy := s.cell(x)
	indices = [4][2]int{{i, j}, {ip1, j}, {i, jp1}, {ip1, jp1}}
	weights = [4]float64{
		(1 - fx) * (1 - fy),
		fx * (1 - fy),
		(1 - fx) * fy,
		fx * fy,
	}
	return
}

// GetCoordinatesAndGradientWeights returns the same corners as
// GetCoordinatesAndWeights together with the gradient of each corner's
// weight with respect to x.
func (s *LinearSampler2[T]) GetCoordinatesAndGradientWeights(x r2.Vec) (indices [4][2]int, weights [4]r2.Vec) {
	var (
		i, j, ip1, jp1, fx, fy = s.cell(x)
		inv                    = s.invGridSpacing
		wx                     = [2]float64{1 - fx, fx}
		wy                     = [2]float64{1 - fy, fy}
		dwx                    = [2]float64{-inv.X, inv.X}
		dwy                    = [2]float64{-inv.Y, inv.Y}
	)
	indices = [4][2]int{{i, j}, {ip1, j}, {i, jp1}, {ip1, jp1}}
	for c := 0; c < 4; c++ {
		a, b := c&1, c>>1
		weights[c] = r2.Vec{X: dwx[a] * wy[b], Y: wx[a] * dwy[b]}
	}
	return
}

type CubicSampler2[T any] struct {
	samplerFrame2
	accessor *Array2[T]
	ops      Ops[T]
}

func NewCubicSampler2[T any](accessor *Array2[T], gridSpacing, origin r2.Vec, ops Ops[T]) *CubicSampler2[T] {
	return &CubicSampler2[T]{
		samplerFrame2: newSamplerFrame2(gridSpacing, origin),
		accessor:      accessor,
		ops:           ops,
	}
}

func cubicStencil(i, n int) [4]int {
	return [4]int{max(i-1, 0), i, min(i+1, n-1), min(i+2, n-1)}
}

func (s *CubicSampler2[T]) Sample(x r2.Vec) (val T) {
	size := s.accessor.Size()
	if size.X == 0 || size.Y == 0 {
		return
	}
	var (
		n      = s.normalize(x)
		i, fx  = GetBarycentric(n.X, 0, size.X-1)
		j, fy  = GetBarycentric(n.Y, 0, size.Y-1)
		is     = cubicStencil(i, size.X)
		js     = cubicStencil(j, size.Y)
		values [4]T
		a      = s.accessor
	)
	for kk := 0; kk < 4; kk++ {
		values[kk] = s.ops.CatmullRom(
			a.At(is[0], js[kk]), a.At(is[1], js[kk]),
			a.At(is[2], js[kk]), a.At(is[3], js[kk]), fx)
	}
	return s.ops.CatmullRom(values[0], values[1], values[2], values[3], fy)
}
