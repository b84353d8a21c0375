package grid

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/field"
)

// VectorGrid2 is satisfied by both vector grid flavours. Transfer and
// pressure code that needs staggered storage asserts *FaceCenteredGrid2 and
// reports ErrGridType otherwise.
type VectorGrid2 interface {
	field.VectorField2
	Resolution() array.Size2
	GridSpacing() r2.Vec
	Origin() r2.Vec
}

var (
	_ VectorGrid2 = (*FaceCenteredGrid2)(nil)
	_ VectorGrid2 = (*CollocatedVectorGrid2)(nil)
)

// FaceCenteredGrid2 stores U on the x faces and V on the y faces, so
// USize = (Nx+1, Ny) and VSize = (Nx, Ny+1).
type FaceCenteredGrid2 struct {
	Grid2
	u, v               *array.Array2[float64]
	uOrigin, vOrigin   r2.Vec
	uSampler, vSampler *array.LinearSampler2[float64]
}

func NewFaceCenteredGrid2(resolution array.Size2, gridSpacing, origin, initVal r2.Vec) (g *FaceCenteredGrid2) {
	g = &FaceCenteredGrid2{
		u: array.NewArray2[float64](0, 0),
		v: array.NewArray2[float64](0, 0),
	}
	g.Resize(resolution, gridSpacing, origin, initVal)
	return
}

func (g *FaceCenteredGrid2) Resize(resolution array.Size2, gridSpacing, origin, initVal r2.Vec) {
	g.setSizeParameters(resolution, gridSpacing, origin)
	if resolution.X > 0 && resolution.Y > 0 {
		g.u.Resize(resolution.X+1, resolution.Y, initVal.X)
		g.v.Resize(resolution.X, resolution.Y+1, initVal.Y)
	} else {
		g.u.Resize(0, 0, 0)
		g.v.Resize(0, 0, 0)
	}
	g.resetSampler()
}

func (g *FaceCenteredGrid2) resetSampler() {
	h := g.gridSpacing
	g.uOrigin = r2.Add(g.origin, r2.Vec{Y: 0.5 * h.Y})
	g.vOrigin = r2.Add(g.origin, r2.Vec{X: 0.5 * h.X})
	g.uSampler = array.NewLinearSampler2(g.u, h, g.uOrigin, array.Float64Ops)
	g.vSampler = array.NewLinearSampler2(g.v, h, g.vOrigin, array.Float64Ops)
}

func (g *FaceCenteredGrid2) U() *array.Array2[float64] { return g.u }
func (g *FaceCenteredGrid2) V() *array.Array2[float64] { return g.v }
func (g *FaceCenteredGrid2) USize() array.Size2        { return g.u.Size() }
func (g *FaceCenteredGrid2) VSize() array.Size2        { return g.v.Size() }
func (g *FaceCenteredGrid2) UOrigin() r2.Vec           { return g.uOrigin }
func (g *FaceCenteredGrid2) VOrigin() r2.Vec           { return g.vOrigin }

func (g *FaceCenteredGrid2) USampler() *array.LinearSampler2[float64] { return g.uSampler }
func (g *FaceCenteredGrid2) VSampler() *array.LinearSampler2[float64] { return g.vSampler }

// Component returns the face array, its origin and its sampler for axis 0 (U)
// or 1 (V).
func (g *FaceCenteredGrid2) Component(axis int) (*array.Array2[float64], r2.Vec, *array.LinearSampler2[float64]) {
	if axis == 0 {
		return g.u, g.uOrigin, g.uSampler
	}
	return g.v, g.vOrigin, g.vSampler
}

func (g *FaceCenteredGrid2) UPosition() func(i, j int) r2.Vec {
	o, h := g.uOrigin, g.gridSpacing
	return func(i, j int) r2.Vec { return r2.Vec{X: o.X + h.X*float64(i), Y: o.Y + h.Y*float64(j)} }
}

func (g *FaceCenteredGrid2) VPosition() func(i, j int) r2.Vec {
	o, h := g.vOrigin, g.gridSpacing
	return func(i, j int) r2.Vec { return r2.Vec{X: o.X + h.X*float64(i), Y: o.Y + h.Y*float64(j)} }
}

func (g *FaceCenteredGrid2) ForEachUIndex(fn func(i, j int)) { g.u.ForEachIndex(fn) }
func (g *FaceCenteredGrid2) ForEachVIndex(fn func(i, j int)) { g.v.ForEachIndex(fn) }

func (g *FaceCenteredGrid2) ParallelForEachUIndex(fn func(i, j int)) { g.u.ParallelForEachIndex(fn) }
func (g *FaceCenteredGrid2) ParallelForEachVIndex(fn func(i, j int)) { g.v.ParallelForEachIndex(fn) }

func (g *FaceCenteredGrid2) Fill(value r2.Vec) {
	g.u.Fill(value.X)
	g.v.Fill(value.Y)
}

func (g *FaceCenteredGrid2) FillFunc(fn func(x r2.Vec) r2.Vec) {
	uPos, vPos := g.UPosition(), g.VPosition()
	g.u.ParallelForEachIndex(func(i, j int) { g.u.Set(i, j, fn(uPos(i, j)).X) })
	g.v.ParallelForEachIndex(func(i, j int) { g.v.Set(i, j, fn(vPos(i, j)).Y) })
}

func (g *FaceCenteredGrid2) ValueAtCellCenter(i, j int) r2.Vec {
	return r2.Vec{
		X: 0.5 * (g.u.At(i, j) + g.u.At(i+1, j)),
		Y: 0.5 * (g.v.At(i, j) + g.v.At(i, j+1)),
	}
}

func (g *FaceCenteredGrid2) DivergenceAtCellCenter(i, j int) float64 {
	h := g.gridSpacing
	return (g.u.At(i+1, j)-g.u.At(i, j))/h.X + (g.v.At(i, j+1)-g.v.At(i, j))/h.Y
}

func (g *FaceCenteredGrid2) CurlAtCellCenter(i, j int) float64 {
	var (
		res   = g.resolution
		h     = g.gridSpacing
		left  = g.ValueAtCellCenter(clampIndex(i-1, res.X), j)
		right = g.ValueAtCellCenter(clampIndex(i+1, res.X), j)
		down  = g.ValueAtCellCenter(i, clampIndex(j-1, res.Y))
		up    = g.ValueAtCellCenter(i, clampIndex(j+1, res.Y))
	)
	return 0.5*(right.Y-left.Y)/h.X - 0.5*(up.X-down.X)/h.Y
}

// Sample interpolates each component on its own staggered lattice, which
// keeps the result continuous across faces.
func (g *FaceCenteredGrid2) Sample(x r2.Vec) r2.Vec {
	return r2.Vec{X: g.uSampler.Sample(x), Y: g.vSampler.Sample(x)}
}

// cellCenterInterp bilinearly blends a cell centered quantity at x.
func (g *FaceCenteredGrid2) cellCenterInterp(x r2.Vec, fn func(i, j int) float64) float64 {
	res := g.resolution
	if res.X == 0 || res.Y == 0 {
		return 0
	}
	var (
		h     = g.gridSpacing
		n     = r2.Sub(x, r2.Add(g.origin, r2.Scale(0.5, h)))
		i, fx = array.GetBarycentric(n.X/h.X, 0, res.X-1)
		j, fy = array.GetBarycentric(n.Y/h.Y, 0, res.Y-1)
		ip1   = min(i+1, res.X-1)
		jp1   = min(j+1, res.Y-1)
	)
	return array.BiLerp(array.Float64Ops, fn(i, j), fn(ip1, j), fn(i, jp1), fn(ip1, jp1), fx, fy)
}

func (g *FaceCenteredGrid2) Divergence(x r2.Vec) float64 {
	return g.cellCenterInterp(x, g.DivergenceAtCellCenter)
}

func (g *FaceCenteredGrid2) Curl(x r2.Vec) float64 {
	return g.cellCenterInterp(x, g.CurlAtCellCenter)
}

func (g *FaceCenteredGrid2) Clone() *FaceCenteredGrid2 {
	out := &FaceCenteredGrid2{Grid2: g.Grid2, u: g.u.Clone(), v: g.v.Clone()}
	out.resetSampler()
	return out
}

func (g *FaceCenteredGrid2) CopyFrom(o *FaceCenteredGrid2) {
	g.Grid2 = o.Grid2
	g.u.CopyFrom(o.u)
	g.v.CopyFrom(o.v)
	g.resetSampler()
}

func (g *FaceCenteredGrid2) Swap(o *FaceCenteredGrid2) {
	g.swapGrid(&o.Grid2)
	g.u.Swap(o.u)
	g.v.Swap(o.v)
	g.resetSampler()
	o.resetSampler()
}

func (g *FaceCenteredGrid2) Serialize(w io.Writer) (err error) {
	if err = binaryWrite(w, g.header(tagFace2, CellCentered)); err == nil {
		if err = writeArray2(w, g.u); err == nil {
			err = writeArray2(w, g.v)
		}
	}
	if err != nil {
		return fmt.Errorf("serializing face centered grid: %w", err)
	}
	return
}

func (g *FaceCenteredGrid2) Deserialize(r io.Reader) (err error) {
	var h header2
	if h, err = readHeader2(r, tagFace2); err != nil {
		return fmt.Errorf("deserializing face centered grid: %w", err)
	}
	var (
		res          = h.size()
		uSize, vSize array.Size2
	)
	if res.X > 0 && res.Y > 0 {
		uSize = array.Size2{X: res.X + 1, Y: res.Y}
		vSize = array.Size2{X: res.X, Y: res.Y + 1}
	}
	g.setSizeParameters(res, h.GridSpacing, h.Origin)
	if err = readArray2(r, g.u, uSize); err == nil {
		err = readArray2(r, g.v, vSize)
	}
	if err != nil {
		return fmt.Errorf("deserializing face centered grid: %w", err)
	}
	g.resetSampler()
	return
}
