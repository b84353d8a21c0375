package grid

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/field"
)

type VectorGrid3 interface {
	field.VectorField3
	Resolution() array.Size3
	GridSpacing() r3.Vec
	Origin() r3.Vec
}

var (
	_ VectorGrid3 = (*FaceCenteredGrid3)(nil)
	_ VectorGrid3 = (*CollocatedVectorGrid3)(nil)
)

// FaceCenteredGrid3 stores U, V and W on the x, y and z faces.
type FaceCenteredGrid3 struct {
	Grid3
	data     [3]*array.Array3[float64]
	origins  [3]r3.Vec
	samplers [3]*array.LinearSampler3[float64]
}

func NewFaceCenteredGrid3(resolution array.Size3, gridSpacing, origin, initVal r3.Vec) (g *FaceCenteredGrid3) {
	g = &FaceCenteredGrid3{}
	for a := range g.data {
		g.data[a] = array.NewArray3[float64](0, 0, 0)
	}
	g.Resize(resolution, gridSpacing, origin, initVal)
	return
}

func faceSizes3(res array.Size3) (sizes [3]array.Size3) {
	if res.X == 0 || res.Y == 0 || res.Z == 0 {
		return
	}
	sizes[0] = array.Size3{X: res.X + 1, Y: res.Y, Z: res.Z}
	sizes[1] = array.Size3{X: res.X, Y: res.Y + 1, Z: res.Z}
	sizes[2] = array.Size3{X: res.X, Y: res.Y, Z: res.Z + 1}
	return
}

func (g *FaceCenteredGrid3) Resize(resolution array.Size3, gridSpacing, origin, initVal r3.Vec) {
	g.setSizeParameters(resolution, gridSpacing, origin)
	var (
		sizes = faceSizes3(resolution)
		init  = [3]float64{initVal.X, initVal.Y, initVal.Z}
	)
	for a, s := range sizes {
		g.data[a].Resize(s.X, s.Y, s.Z, init[a])
	}
	g.resetSampler()
}

func (g *FaceCenteredGrid3) resetSampler() {
	h := g.gridSpacing
	g.origins[0] = r3.Add(g.origin, r3.Vec{Y: 0.5 * h.Y, Z: 0.5 * h.Z})
	g.origins[1] = r3.Add(g.origin, r3.Vec{X: 0.5 * h.X, Z: 0.5 * h.Z})
	g.origins[2] = r3.Add(g.origin, r3.Vec{X: 0.5 * h.X, Y: 0.5 * h.Y})
	for a := range g.samplers {
		g.samplers[a] = array.NewLinearSampler3(g.data[a], h, g.origins[a], array.Float64Ops)
	}
}

func (g *FaceCenteredGrid3) U() *array.Array3[float64] { return g.data[0] }
func (g *FaceCenteredGrid3) V() *array.Array3[float64] { return g.data[1] }
func (g *FaceCenteredGrid3) W() *array.Array3[float64] { return g.data[2] }
func (g *FaceCenteredGrid3) USize() array.Size3        { return g.data[0].Size() }
func (g *FaceCenteredGrid3) VSize() array.Size3        { return g.data[1].Size() }
func (g *FaceCenteredGrid3) WSize() array.Size3        { return g.data[2].Size() }
func (g *FaceCenteredGrid3) UOrigin() r3.Vec           { return g.origins[0] }
func (g *FaceCenteredGrid3) VOrigin() r3.Vec           { return g.origins[1] }
func (g *FaceCenteredGrid3) WOrigin() r3.Vec           { return g.origins[2] }

// Component returns the face array, its origin and its sampler for axis 0
// (U), 1 (V) or 2 (W).
func (g *FaceCenteredGrid3) Component(axis int) (*array.Array3[float64], r3.Vec, *array.LinearSampler3[float64]) {
	return g.data[axis], g.origins[axis], g.samplers[axis]
}

func (g *FaceCenteredGrid3) position(axis int) func(i, j, k int) r3.Vec {
	o, h := g.origins[axis], g.gridSpacing
	return func(i, j, k int) r3.Vec {
		return r3.Vec{X: o.X + h.X*float64(i), Y: o.Y + h.Y*float64(j), Z: o.Z + h.Z*float64(k)}
	}
}

func (g *FaceCenteredGrid3) UPosition() func(i, j, k int) r3.Vec { return g.position(0) }
func (g *FaceCenteredGrid3) VPosition() func(i, j, k int) r3.Vec { return g.position(1) }
func (g *FaceCenteredGrid3) WPosition() func(i, j, k int) r3.Vec { return g.position(2) }

func (g *FaceCenteredGrid3) Fill(value r3.Vec) {
	g.data[0].Fill(value.X)
	g.data[1].Fill(value.Y)
	g.data[2].Fill(value.Z)
}

func (g *FaceCenteredGrid3) FillFunc(fn func(x r3.Vec) r3.Vec) {
	for a := 0; a < 3; a++ {
		var (
			d   = g.data[a]
			pos = g.position(a)
		)
		d.ParallelForEachIndex(func(i, j, k int) {
			v := fn(pos(i, j, k))
			d.Set(i, j, k, [3]float64{v.X, v.Y, v.Z}[a])
		})
	}
}

func (g *FaceCenteredGrid3) ValueAtCellCenter(i, j, k int) r3.Vec {
	u, v, w := g.data[0], g.data[1], g.data[2]
	return r3.Vec{
		X: 0.5 * (u.At(i, j, k) + u.At(i+1, j, k)),
		Y: 0.5 * (v.At(i, j, k) + v.At(i, j+1, k)),
		Z: 0.5 * (w.At(i, j, k) + w.At(i, j, k+1)),
	}
}

func (g *FaceCenteredGrid3) DivergenceAtCellCenter(i, j, k int) float64 {
	var (
		u, v, w = g.data[0], g.data[1], g.data[2]
		h       = g.gridSpacing
	)
	return (u.At(i+1, j, k)-u.At(i, j, k))/h.X +
		(v.At(i, j+1, k)-v.At(i, j, k))/h.Y +
		(w.At(i, j, k+1)-w.At(i, j, k))/h.Z
}

func (g *FaceCenteredGrid3) CurlAtCellCenter(i, j, k int) r3.Vec {
	res := g.resolution
	return curl3([6]r3.Vec{
		g.ValueAtCellCenter(clampIndex(i-1, res.X), j, k),
		g.ValueAtCellCenter(clampIndex(i+1, res.X), j, k),
		g.ValueAtCellCenter(i, clampIndex(j-1, res.Y), k),
		g.ValueAtCellCenter(i, clampIndex(j+1, res.Y), k),
		g.ValueAtCellCenter(i, j, clampIndex(k-1, res.Z)),
		g.ValueAtCellCenter(i, j, clampIndex(k+1, res.Z)),
	}, g.gridSpacing)
}

func (g *FaceCenteredGrid3) Sample(x r3.Vec) r3.Vec {
	return r3.Vec{
		X: g.samplers[0].Sample(x),
		Y: g.samplers[1].Sample(x),
		Z: g.samplers[2].Sample(x),
	}
}

// cellCenterWeights returns the eight cell centers around x with their
// trilinear weights.
func (g *FaceCenteredGrid3) cellCenterWeights(x r3.Vec) (idx [8][3]int, w [8]float64, ok bool) {
	res := g.resolution
	if res.X == 0 || res.Y == 0 || res.Z == 0 {
		return
	}
	var (
		h     = g.gridSpacing
		n     = r3.Sub(x, r3.Add(g.origin, r3.Scale(0.5, h)))
		i, fx = array.GetBarycentric(n.X/h.X, 0, res.X-1)
		j, fy = array.GetBarycentric(n.Y/h.Y, 0, res.Y-1)
		k, fz = array.GetBarycentric(n.Z/h.Z, 0, res.Z-1)
		is    = [2]int{i, min(i+1, res.X-1)}
		js    = [2]int{j, min(j+1, res.Y-1)}
		ks    = [2]int{k, min(k+1, res.Z-1)}
		wx    = [2]float64{1 - fx, fx}
		wy    = [2]float64{1 - fy, fy}
		wz    = [2]float64{1 - fz, fz}
	)
	for c := 0; c < 8; c++ {
		a, b, d := c&1, (c>>1)&1, c>>2
		idx[c] = [3]int{is[a], js[b], ks[d]}
		w[c] = wx[a] * wy[b] * wz[d]
	}
	return idx, w, true
}

func (g *FaceCenteredGrid3) Divergence(x r3.Vec) (div float64) {
	idx, w, ok := g.cellCenterWeights(x)
	if !ok {
		return
	}
	for c := range idx {
		div += w[c] * g.DivergenceAtCellCenter(idx[c][0], idx[c][1], idx[c][2])
	}
	return
}

func (g *FaceCenteredGrid3) Curl(x r3.Vec) (curl r3.Vec) {
	idx, w, ok := g.cellCenterWeights(x)
	if !ok {
		return
	}
	for c := range idx {
		curl = r3.Add(curl, r3.Scale(w[c], g.CurlAtCellCenter(idx[c][0], idx[c][1], idx[c][2])))
	}
	return
}

func (g *FaceCenteredGrid3) Clone() *FaceCenteredGrid3 {
	out := &FaceCenteredGrid3{Grid3: g.Grid3}
	for a := range g.data {
		out.data[a] = g.data[a].Clone()
	}
	out.resetSampler()
	return out
}

func (g *FaceCenteredGrid3) CopyFrom(o *FaceCenteredGrid3) {
	g.Grid3 = o.Grid3
	for a := range g.data {
		g.data[a].CopyFrom(o.data[a])
	}
	g.resetSampler()
}

func (g *FaceCenteredGrid3) Swap(o *FaceCenteredGrid3) {
	g.swapGrid(&o.Grid3)
	for a := range g.data {
		g.data[a].Swap(o.data[a])
	}
	g.resetSampler()
	o.resetSampler()
}

func (g *FaceCenteredGrid3) Serialize(w io.Writer) (err error) {
	if err = binaryWrite(w, g.header(tagFace3, CellCentered)); err != nil {
		return fmt.Errorf("serializing face centered grid: %w", err)
	}
	for a := range g.data {
		if err = writeArray3(w, g.data[a]); err != nil {
			return fmt.Errorf("serializing face centered grid: %w", err)
		}
	}
	return
}

func (g *FaceCenteredGrid3) Deserialize(r io.Reader) (err error) {
	var h header3
	if h, err = readHeader3(r, tagFace3); err != nil {
		return fmt.Errorf("deserializing face centered grid: %w", err)
	}
	res := h.size()
	g.setSizeParameters(res, h.GridSpacing, h.Origin)
	for a, s := range faceSizes3(res) {
		if err = readArray3(r, g.data[a], s); err != nil {
			return fmt.Errorf("deserializing face centered grid: %w", err)
		}
	}
	g.resetSampler()
	return
}
