package array

import (
	"gonum.org/v1/gonum/spatial/r3"
)

type Sampler3[T any] interface {
	Sample(x r3.Vec) T
}

type samplerFrame3 struct {
	gridSpacing    r3.Vec
	invGridSpacing r3.Vec
	origin         r3.Vec
}

func newSamplerFrame3(gridSpacing, origin r3.Vec) samplerFrame3 {
	return samplerFrame3{
		gridSpacing: gridSpacing,
		invGridSpacing: r3.Vec{
			X: 1 / gridSpacing.X,
			Y: 1 / gridSpacing.Y,
			Z: 1 / gridSpacing.Z,
		},
		origin: origin,
	}
}

func (sf samplerFrame3) normalize(x r3.Vec) r3.Vec {
	d := r3.Sub(x, sf.origin)
	return r3.Vec{
		X: d.X * sf.invGridSpacing.X,
		Y: d.Y * sf.invGridSpacing.Y,
		Z: d.Z * sf.invGridSpacing.Z,
	}
}

func emptySize3(size Size3) bool {
	return size.X == 0 || size.Y == 0 || size.Z == 0
}

type NearestSampler3[T any] struct {
	samplerFrame3
	accessor *Array3[T]
}

func NewNearestSampler3[T any](accessor *Array3[T], gridSpacing, origin r3.Vec) *NearestSampler3[T] {
	return &NearestSampler3[T]{
		samplerFrame3: newSamplerFrame3(gridSpacing, origin),
		accessor:      accessor,
	}
}

func (s *NearestSampler3[T]) Sample(x r3.Vec) (val T) {
	size := s.accessor.Size()
	if emptySize3(size) {
		return
	}
	var (
		n     = s.normalize(x)
		i, fx = GetBarycentric(n.X, 0, size.X-1)
		j, fy = GetBarycentric(n.Y, 0, size.Y-1)
		k, fz = GetBarycentric(n.Z, 0, size.Z-1)
	)
	i = min(int(float64(i)+fx+0.5), size.X-1)
	j = min(int(float64(j)+fy+0.5), size.Y-1)
	k = min(int(float64(k)+fz+0.5), size.Z-1)
	return s.accessor.At(i, j, k)
}

type LinearSampler3[T any] struct {
	samplerFrame3
	accessor *Array3[T]
	ops      Ops[T]
}

func NewLinearSampler3[T any](accessor *Array3[T], gridSpacing, origin r3.Vec, ops Ops[T]) *LinearSampler3[T] {
	return &LinearSampler3[T]{
		samplerFrame3: newSamplerFrame3(gridSpacing, origin),
		accessor:      accessor,
		ops:           ops,
	}
}

type cell3 struct {
	i, j, k       int
	ip1, jp1, kp1 int
	fx, fy, fz    float64
}

func (s *LinearSampler3[T]) cell(x r3.Vec) (c cell3) {
	var (
		size = s.accessor.Size()
		n    = s.normalize(x)
	)
	c.i, c.fx = GetBarycentric(n.X, 0, size.X-1)
	c.j, c.fy = GetBarycentric(n.Y, 0, size.Y-1)
	c.k, c.fz = GetBarycentric(n.Z, 0, size.Z-1)
	c.ip1 = min(c.i+1, size.X-1)
	c.jp1 = min(c.j+1, size.Y-1)
	c.kp1 = min(c.k+1, size.Z-1)
	return
}

func (c cell3) corners() [8][3]int {
	return [8][3]int{
		{c.i, c.j, c.k}, {c.ip1, c.j, c.k},
		{c.i, c.jp1, c.k}, {c.ip1, c.jp1, c.k},
		{c.i, c.j, c.kp1}, {c.ip1, c.j, c.kp1},
		{c.i, c.jp1, c.kp1}, {c.ip1, c.jp1, c.kp1},
	}
}

func (s *LinearSampler3[T]) Sample(x r3.Vec) (val T) {
	if emptySize3(s.accessor.Size()) {
		return
	}
	var (
		c = s.cell(x)
		a = s.accessor
	)
	return TriLerp(s.ops,
		a.At(c.i, c.j, c.k), a.At(c.ip1, c.j, c.k),
		a.At(c.i, c.jp1, c.k), a.At(c.ip1, c.jp1, c.k),
		a.At(c.i, c.j, c.kp1), a.At(c.ip1, c.j, c.kp1),
		a.At(c.i, c.jp1, c.kp1), a.At(c.ip1, c.jp1, c.kp1),
		c.fx, c.fy, c.fz)
}

// GetCoordinatesAndWeights returns the eight corners of the enclosing cell
// with trilinear weights. Corner n has offsets (n&1, (n>>1)&1, n>>2).
func (s *LinearSampler3[T]) GetCoordinatesAndWeights(x r3.Vec) (indices [8][3]int, weights [8]float64) {
	var (
		c  = s.cell(x)
		wx = [2]float64{1 - c.fx, c.fx}
		wy = [2]float64{1 - c.fy, c.fy}
		wz = [2]float64{1 - c.fz, c.fz}
	)
	indices = c.corners()
	for n := 0; n < 8; n++ {
		weights[n] = wx[n&1] * wy[(n>>1)&1] * wz[n>>2]
	}
	return
}

func (s *LinearSampler3[T]) GetCoordinatesAndGradientWeights(x r3.Vec) (indices [8][3]int, weights [8]r3.Vec) {
	var (
		c   = s.cell(x)
		inv = s.invGridSpacing
		wx  = [2]float64{1 - c.fx, c.fx}
		wy  = [2]float64{1 - c.fy, c.fy}
		wz  = [2]float64{1 - c.fz, c.fz}
		dwx = [2]float64{-inv.X, inv.X}
		dwy = [2]float64{-inv.Y, inv.Y}
		dwz = [2]float64{-inv.Z, inv.Z}
	)
	indices = c.corners()
	for n := 0; n < 8; n++ {
		a, b, d := n&1, (n>>1)&1, n>>2
		weights[n] = r3.Vec{
			X: dwx[a] * wy[b] * wz[d],
			Y: wx[a] * dwy[b] * wz[d],
			Z: wx[a] * wy[b] * dwz[d],
		}
	}
	return
}

type CubicSampler3[T any] struct {
	samplerFrame3
	accessor *Array3[T]
	ops      Ops[T]
}

func NewCubicSampler3[T any](accessor *Array3[T], gridSpacing, origin r3.Vec, ops Ops[T]) *CubicSampler3[T] {
	return &CubicSampler3[T]{
		samplerFrame3: newSamplerFrame3(gridSpacing, origin),
		accessor:      accessor,
		ops:           ops,
	}
}

func (s *CubicSampler3[T]) Sample(x r3.Vec) (val T) {
	size := s.accessor.Size()
	if emptySize3(size) {
		return
	}
	var (
		n     = s.normalize(x)
		i, fx = GetBarycentric(n.X, 0, size.X-1)
		j, fy = GetBarycentric(n.Y, 0, size.Y-1)
		k, fz = GetBarycentric(n.Z, 0, size.Z-1)
		is    = cubicStencil(i, size.X)
		js    = cubicStencil(j, size.Y)
		ks    = cubicStencil(k, size.Z)
		kv    [4]T
		a     = s.accessor
	)
	for kk := 0; kk < 4; kk++ {
		var jv [4]T
		for jj := 0; jj < 4; jj++ {
			jv[jj] = s.ops.CatmullRom(
				a.At(is[0], js[jj], ks[kk]), a.At(is[1], js[jj], ks[kk]),
				a.At(is[2], js[jj], ks[kk]), a.At(is[3], js[jj], ks[kk]), fx)
		}
		kv[kk] = s.ops.CatmullRom(jv[0], jv[1], jv[2], jv[3], fy)
	}
	return s.ops.CatmullRom(kv[0], kv[1], kv[2], kv[3], fz)
}
