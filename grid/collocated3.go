package grid

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
)

type collocated3[T any] struct {
	Grid3
	dataOrigin DataOrigin
	data       *array.Array3[T]
	ops        array.Ops[T]
	sampler    *array.LinearSampler3[T]
}

func newCollocated3[T any](dataOrigin DataOrigin, ops array.Ops[T], resolution array.Size3,
	gridSpacing, origin r3.Vec, initVal T) (c collocated3[T]) {
	c = collocated3[T]{
		dataOrigin: dataOrigin,
		data:       array.NewArray3[T](0, 0, 0),
		ops:        ops,
	}
	c.Resize(resolution, gridSpacing, origin, initVal)
	return
}

func (c *collocated3[T]) DataOrigin() DataOrigin { return c.dataOrigin }

func (c *collocated3[T]) DataSize() array.Size3 {
	if c.dataOrigin == VertexCentered {
		if c.resolution.X == 0 || c.resolution.Y == 0 || c.resolution.Z == 0 {
			return array.Size3{}
		}
		return array.Size3{X: c.resolution.X + 1, Y: c.resolution.Y + 1, Z: c.resolution.Z + 1}
	}
	return c.resolution
}

func (c *collocated3[T]) DataOriginPosition() r3.Vec {
	if c.dataOrigin == VertexCentered {
		return c.origin
	}
	return r3.Add(c.origin, r3.Scale(0.5, c.gridSpacing))
}

func (c *collocated3[T]) DataPosition() func(i, j, k int) r3.Vec {
	o, h := c.DataOriginPosition(), c.gridSpacing
	return func(i, j, k int) r3.Vec {
		return r3.Vec{X: o.X + h.X*float64(i), Y: o.Y + h.Y*float64(j), Z: o.Z + h.Z*float64(k)}
	}
}

func (c *collocated3[T]) Data() *array.Array3[T] { return c.data }
func (c *collocated3[T]) At(i, j, k int) T       { return c.data.At(i, j, k) }
func (c *collocated3[T]) Set(i, j, k int, v T)   { c.data.Set(i, j, k, v) }

func (c *collocated3[T]) LinearSampler() *array.LinearSampler3[T] { return c.sampler }

func (c *collocated3[T]) Sample(x r3.Vec) T { return c.sampler.Sample(x) }

func (c *collocated3[T]) Fill(v T) { c.data.Fill(v) }

func (c *collocated3[T]) FillFunc(fn func(x r3.Vec) T) {
	pos := c.DataPosition()
	c.data.ParallelForEachIndex(func(i, j, k int) {
		c.data.Set(i, j, k, fn(pos(i, j, k)))
	})
}

func (c *collocated3[T]) ForEachDataPointIndex(fn func(i, j, k int)) {
	c.data.ForEachIndex(fn)
}

func (c *collocated3[T]) ParallelForEachDataPointIndex(fn func(i, j, k int)) {
	c.data.ParallelForEachIndex(fn)
}

func (c *collocated3[T]) Resize(resolution array.Size3, gridSpacing, origin r3.Vec, initVal T) {
	c.setSizeParameters(resolution, gridSpacing, origin)
	size := c.DataSize()
	c.data.Resize(size.X, size.Y, size.Z, initVal)
	c.resetSampler()
}

func (c *collocated3[T]) resetSampler() {
	c.sampler = array.NewLinearSampler3(c.data, c.gridSpacing, c.DataOriginPosition(), c.ops)
}

func (c *collocated3[T]) clone() collocated3[T] {
	out := *c
	out.data = c.data.Clone()
	out.resetSampler()
	return out
}

func (c *collocated3[T]) copyFrom(o *collocated3[T]) {
	c.Grid3 = o.Grid3
	c.dataOrigin = o.dataOrigin
	c.data.CopyFrom(o.data)
	c.resetSampler()
}

func (c *collocated3[T]) swap(o *collocated3[T]) {
	c.swapGrid(&o.Grid3)
	c.dataOrigin, o.dataOrigin = o.dataOrigin, c.dataOrigin
	c.data.Swap(o.data)
	c.resetSampler()
	o.resetSampler()
}

func (c *collocated3[T]) serialize(w io.Writer, tag [4]byte) (err error) {
	if err = binaryWrite(w, c.header(tag, c.dataOrigin)); err != nil {
		return
	}
	return writeArray3(w, c.data)
}

func (c *collocated3[T]) deserialize(r io.Reader, tag [4]byte) (err error) {
	var h header3
	if h, err = readHeader3(r, tag); err != nil {
		return
	}
	c.dataOrigin = DataOrigin(h.DataOrigin)
	c.setSizeParameters(h.size(), h.GridSpacing, h.Origin)
	if err = readArray3(r, c.data, c.DataSize()); err != nil {
		return
	}
	c.resetSampler()
	return
}

type ScalarGrid3 struct {
	collocated3[float64]
}

func NewScalarGrid3(dataOrigin DataOrigin, resolution array.Size3, gridSpacing, origin r3.Vec,
	initVal float64) *ScalarGrid3 {
	return &ScalarGrid3{newCollocated3(dataOrigin, array.Float64Ops, resolution, gridSpacing, origin, initVal)}
}

func NewCellCenteredScalarGrid3(resolution array.Size3, gridSpacing, origin r3.Vec) *ScalarGrid3 {
	return NewScalarGrid3(CellCentered, resolution, gridSpacing, origin, 0)
}

func (g *ScalarGrid3) Clone() *ScalarGrid3 { return &ScalarGrid3{g.clone()} }

func (g *ScalarGrid3) CopyFrom(o *ScalarGrid3) { g.copyFrom(&o.collocated3) }

func (g *ScalarGrid3) Swap(o *ScalarGrid3) { g.swap(&o.collocated3) }

func (g *ScalarGrid3) GradientAtDataPoint(i, j, k int) r3.Vec {
	var (
		d    = g.data
		size = d.Size()
		h    = g.gridSpacing
	)
	return r3.Vec{
		X: 0.5 * (d.At(clampIndex(i+1, size.X), j, k) - d.At(clampIndex(i-1, size.X), j, k)) / h.X,
		Y: 0.5 * (d.At(i, clampIndex(j+1, size.Y), k) - d.At(i, clampIndex(j-1, size.Y), k)) / h.Y,
		Z: 0.5 * (d.At(i, j, clampIndex(k+1, size.Z)) - d.At(i, j, clampIndex(k-1, size.Z))) / h.Z,
	}
}

func (g *ScalarGrid3) LaplacianAtDataPoint(i, j, k int) float64 {
	var (
		d                      = g.data
		size                   = d.Size()
		h                      = g.gridSpacing
		center                 = d.At(i, j, k)
		dl, dr, db, dt, dk, df float64
	)
	if i > 0 {
		dl = center - d.At(i-1, j, k)
	}
	if i+1 < size.X {
		dr = d.At(i+1, j, k) - center
	}
	if j > 0 {
		db = center - d.At(i, j-1, k)
	}
	if j+1 < size.Y {
		dt = d.At(i, j+1, k) - center
	}
	if k > 0 {
		dk = center - d.At(i, j, k-1)
	}
	if k+1 < size.Z {
		df = d.At(i, j, k+1) - center
	}
	return (dr-dl)/(h.X*h.X) + (dt-db)/(h.Y*h.Y) + (df-dk)/(h.Z*h.Z)
}

func (g *ScalarGrid3) Gradient(x r3.Vec) (grad r3.Vec) {
	if g.data.Len() == 0 {
		return
	}
	indices, weights := g.sampler.GetCoordinatesAndWeights(x)
	for c, idx := range indices {
		grad = r3.Add(grad, r3.Scale(weights[c], g.GradientAtDataPoint(idx[0], idx[1], idx[2])))
	}
	return
}

func (g *ScalarGrid3) Laplacian(x r3.Vec) (lap float64) {
	if g.data.Len() == 0 {
		return
	}
	indices, weights := g.sampler.GetCoordinatesAndWeights(x)
	for c, idx := range indices {
		lap += weights[c] * g.LaplacianAtDataPoint(idx[0], idx[1], idx[2])
	}
	return
}

func (g *ScalarGrid3) Serialize(w io.Writer) error {
	if err := g.serialize(w, tagScalar3); err != nil {
		return fmt.Errorf("serializing scalar grid: %w", err)
	}
	return nil
}

func (g *ScalarGrid3) Deserialize(r io.Reader) error {
	if err := g.deserialize(r, tagScalar3); err != nil {
		return fmt.Errorf("deserializing scalar grid: %w", err)
	}
	return nil
}

type CollocatedVectorGrid3 struct {
	collocated3[r3.Vec]
}

func NewCollocatedVectorGrid3(dataOrigin DataOrigin, resolution array.Size3, gridSpacing, origin r3.Vec,
	initVal r3.Vec) *CollocatedVectorGrid3 {
	return &CollocatedVectorGrid3{newCollocated3(dataOrigin, array.Vec3Ops, resolution, gridSpacing, origin, initVal)}
}

func (g *CollocatedVectorGrid3) Clone() *CollocatedVectorGrid3 {
	return &CollocatedVectorGrid3{g.clone()}
}

func (g *CollocatedVectorGrid3) CopyFrom(o *CollocatedVectorGrid3) { g.copyFrom(&o.collocated3) }

func (g *CollocatedVectorGrid3) Swap(o *CollocatedVectorGrid3) { g.swap(&o.collocated3) }

// neighbors returns the left, right, down, up, back and front samples with
// indices clamped to the data range.
func (g *CollocatedVectorGrid3) neighbors(i, j, k int) (n [6]r3.Vec) {
	var (
		d    = g.data
		size = d.Size()
	)
	n[0] = d.At(clampIndex(i-1, size.X), j, k)
	n[1] = d.At(clampIndex(i+1, size.X), j, k)
	n[2] = d.At(i, clampIndex(j-1, size.Y), k)
	n[3] = d.At(i, clampIndex(j+1, size.Y), k)
	n[4] = d.At(i, j, clampIndex(k-1, size.Z))
	n[5] = d.At(i, j, clampIndex(k+1, size.Z))
	return
}

func (g *CollocatedVectorGrid3) DivergenceAtDataPoint(i, j, k int) float64 {
	n := g.neighbors(i, j, k)
	h := g.gridSpacing
	return 0.5*(n[1].X-n[0].X)/h.X + 0.5*(n[3].Y-n[2].Y)/h.Y + 0.5*(n[5].Z-n[4].Z)/h.Z
}

func (g *CollocatedVectorGrid3) CurlAtDataPoint(i, j, k int) r3.Vec {
	return curl3(g.neighbors(i, j, k), g.gridSpacing)
}

// curl3 takes the six clamped neighbours in left, right, down, up, back,
// front order.
func curl3(n [6]r3.Vec, h r3.Vec) r3.Vec {
	left, right, down, up, back, front := n[0], n[1], n[2], n[3], n[4], n[5]
	return r3.Vec{
		X: 0.5*(up.Z-down.Z)/h.Y - 0.5*(front.Y-back.Y)/h.Z,
		Y: 0.5*(front.X-back.X)/h.Z - 0.5*(right.Z-left.Z)/h.X,
		Z: 0.5*(right.Y-left.Y)/h.X - 0.5*(up.X-down.X)/h.Y,
	}
}

func (g *CollocatedVectorGrid3) Divergence(x r3.Vec) (div float64) {
	if g.data.Len() == 0 {
		return
	}
	indices, weights := g.sampler.GetCoordinatesAndWeights(x)
	for c, idx := range indices {
		div += weights[c] * g.DivergenceAtDataPoint(idx[0], idx[1], idx[2])
	}
	return
}

func (g *CollocatedVectorGrid3) Curl(x r3.Vec) (curl r3.Vec) {
	if g.data.Len() == 0 {
		return
	}
	indices, weights := g.sampler.GetCoordinatesAndWeights(x)
	for c, idx := range indices {
		curl = r3.Add(curl, r3.Scale(weights[c], g.CurlAtDataPoint(idx[0], idx[1], idx[2])))
	}
	return
}

func (g *CollocatedVectorGrid3) Serialize(w io.Writer) error {
	if err := g.serialize(w, tagCollocated3); err != nil {
		return fmt.Errorf("serializing collocated vector grid: %w", err)
	}
	return nil
}

func (g *CollocatedVectorGrid3) Deserialize(r io.Reader) error {
	if err := g.deserialize(r, tagCollocated3); err != nil {
		return fmt.Errorf("deserializing collocated vector grid: %w", err)
	}
	return nil
}
