package grid

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/notargets/gofluid/array"
)

// collocated2 stores one array at cell centers or at vertices.
type collocated2[T any] struct {
	Grid2
	dataOrigin DataOrigin
	data       *array.Array2[T]
	ops        array.Ops[T]
	sampler    *array.LinearSampler2[T]
}

func newCollocated2[T any](dataOrigin DataOrigin, ops array.Ops[T], resolution array.Size2,
	gridSpacing, origin r2.Vec, initVal T) (c collocated2[T]) {
	c = collocated2[T]{
		dataOrigin: dataOrigin,
		data:       array.NewArray2[T](0, 0),
		ops:        ops,
	}
	c.Resize(resolution, gridSpacing, origin, initVal)
	return
}

func (c *collocated2[T]) DataOrigin() DataOrigin { return c.dataOrigin }

func (c *collocated2[T]) DataSize() array.Size2 {
	if c.dataOrigin == VertexCentered {
		if c.resolution.X == 0 || c.resolution.Y == 0 {
			return array.Size2{}
		}
		return array.Size2{X: c.resolution.X + 1, Y: c.resolution.Y + 1}
	}
	return c.resolution
}

// DataOriginPosition is the physical position of data point (0,0).
func (c *collocated2[T]) DataOriginPosition() r2.Vec {
	if c.dataOrigin == VertexCentered {
		return c.origin
	}
	return r2.Add(c.origin, r2.Scale(0.5, c.gridSpacing))
}

func (c *collocated2[T]) DataPosition() func(i, j int) r2.Vec {
	o, h := c.DataOriginPosition(), c.gridSpacing
	return func(i, j int) r2.Vec {
		return r2.Vec{X: o.X + h.X*float64(i), Y: o.Y + h.Y*float64(j)}
	}
}

func (c *collocated2[T]) Data() *array.Array2[T] { return c.data }
func (c *collocated2[T]) At(i, j int) T          { return c.data.At(i, j) }
func (c *collocated2[T]) Set(i, j int, v T)      { c.data.Set(i, j, v) }

func (c *collocated2[T]) LinearSampler() *array.LinearSampler2[T] { return c.sampler }

func (c *collocated2[T]) Sample(x r2.Vec) T { return c.sampler.Sample(x) }

func (c *collocated2[T]) Fill(v T) { c.data.Fill(v) }

func (c *collocated2[T]) FillFunc(fn func(x r2.Vec) T) {
	pos := c.DataPosition()
	c.data.ParallelForEachIndex(func(i, j int) {
		c.data.Set(i, j, fn(pos(i, j)))
	})
}

func (c *collocated2[T]) ForEachDataPointIndex(fn func(i, j int)) {
	c.data.ForEachIndex(fn)
}

func (c *collocated2[T]) ParallelForEachDataPointIndex(fn func(i, j int)) {
	c.data.ParallelForEachIndex(fn)
}

func (c *collocated2[T]) Resize(resolution array.Size2, gridSpacing, origin r2.Vec, initVal T) {
	c.setSizeParameters(resolution, gridSpacing, origin)
	size := c.DataSize()
	c.data.Resize(size.X, size.Y, initVal)
	c.resetSampler()
}

func (c *collocated2[T]) resetSampler() {
	c.sampler = array.NewLinearSampler2(c.data, c.gridSpacing, c.DataOriginPosition(), c.ops)
}

func (c *collocated2[T]) clone() collocated2[T] {
	out := *c
	out.data = c.data.Clone()
	out.resetSampler()
	return out
}

func (c *collocated2[T]) copyFrom(o *collocated2[T]) {
	c.Grid2 = o.Grid2
	c.dataOrigin = o.dataOrigin
	c.data.CopyFrom(o.data)
	c.resetSampler()
}

func (c *collocated2[T]) swap(o *collocated2[T]) {
	c.swapGrid(&o.Grid2)
	c.dataOrigin, o.dataOrigin = o.dataOrigin, c.dataOrigin
	c.data.Swap(o.data)
	c.resetSampler()
	o.resetSampler()
}

func (c *collocated2[T]) serialize(w io.Writer, tag [4]byte) (err error) {
	if err = binaryWrite(w, c.header(tag, c.dataOrigin)); err != nil {
		return
	}
	return writeArray2(w, c.data)
}

func (c *collocated2[T]) deserialize(r io.Reader, tag [4]byte) (err error) {
	var h header2
	if h, err = readHeader2(r, tag); err != nil {
		return
	}
	c.dataOrigin = DataOrigin(h.DataOrigin)
	c.setSizeParameters(h.size(), h.GridSpacing, h.Origin)
	if err = readArray2(r, c.data, c.DataSize()); err != nil {
		return
	}
	c.resetSampler()
	return
}

// ScalarGrid2 is a cell or vertex centered scalar field.
type ScalarGrid2 struct {
	collocated2[float64]
}

func NewScalarGrid2(dataOrigin DataOrigin, resolution array.Size2, gridSpacing, origin r2.Vec,
	initVal float64) *ScalarGrid2 {
	return &ScalarGrid2{newCollocated2(dataOrigin, array.Float64Ops, resolution, gridSpacing, origin, initVal)}
}

// NewCellCenteredScalarGrid2 is the common case used for markers, SDFs and pressure.
func NewCellCenteredScalarGrid2(resolution array.Size2, gridSpacing, origin r2.Vec) *ScalarGrid2 {
	return NewScalarGrid2(CellCentered, resolution, gridSpacing, origin, 0)
}

func (g *ScalarGrid2) Clone() *ScalarGrid2 { return &ScalarGrid2{g.clone()} }

func (g *ScalarGrid2) CopyFrom(o *ScalarGrid2) { g.copyFrom(&o.collocated2) }

func (g *ScalarGrid2) Swap(o *ScalarGrid2) { g.swap(&o.collocated2) }

func (g *ScalarGrid2) GradientAtDataPoint(i, j int) r2.Vec {
	var (
		d    = g.data
		size = d.Size()
		h    = g.gridSpacing
		l    = d.At(clampIndex(i-1, size.X), j)
		r    = d.At(clampIndex(i+1, size.X), j)
		b    = d.At(i, clampIndex(j-1, size.Y))
		t    = d.At(i, clampIndex(j+1, size.Y))
	)
	return r2.Vec{X: 0.5 * (r - l) / h.X, Y: 0.5 * (t - b) / h.Y}
}

func (g *ScalarGrid2) LaplacianAtDataPoint(i, j int) float64 {
	var (
		d              = g.data
		size           = d.Size()
		h              = g.gridSpacing
		center         = d.At(i, j)
		dl, dr, db, dt float64
	)
	if i > 0 {
		dl = center - d.At(i-1, j)
	}
	if i+1 < size.X {
		dr = d.At(i+1, j) - center
	}
	if j > 0 {
		db = center - d.At(i, j-1)
	}
	if j+1 < size.Y {
		dt = d.At(i, j+1) - center
	}
	return (dr-dl)/(h.X*h.X) + (dt-db)/(h.Y*h.Y)
}

func (g *ScalarGrid2) Gradient(x r2.Vec) (grad r2.Vec) {
	if g.data.Len() == 0 {
		return
	}
	indices, weights := g.sampler.GetCoordinatesAndWeights(x)
	for c := range indices {
		grad = r2.Add(grad, r2.Scale(weights[c], g.GradientAtDataPoint(indices[c][0], indices[c][1])))
	}
	return
}

func (g *ScalarGrid2) Laplacian(x r2.Vec) (lap float64) {
	if g.data.Len() == 0 {
		return
	}
	indices, weights := g.sampler.GetCoordinatesAndWeights(x)
	for c := range indices {
		lap += weights[c] * g.LaplacianAtDataPoint(indices[c][0], indices[c][1])
	}
	return
}

func (g *ScalarGrid2) Serialize(w io.Writer) error {
	if err := g.serialize(w, tagScalar2); err != nil {
		return fmt.Errorf("serializing scalar grid: %w", err)
	}
	return nil
}

func (g *ScalarGrid2) Deserialize(r io.Reader) error {
	if err := g.deserialize(r, tagScalar2); err != nil {
		return fmt.Errorf("deserializing scalar grid: %w", err)
	}
	return nil
}

// CollocatedVectorGrid2 stores all vector components at the same points.
type CollocatedVectorGrid2 struct {
	collocated2[r2.Vec]
}

func NewCollocatedVectorGrid2(dataOrigin DataOrigin, resolution array.Size2, gridSpacing, origin r2.Vec,
	initVal r2.Vec) *CollocatedVectorGrid2 {
	return &CollocatedVectorGrid2{newCollocated2(dataOrigin, array.Vec2Ops, resolution, gridSpacing, origin, initVal)}
}

func (g *CollocatedVectorGrid2) Clone() *CollocatedVectorGrid2 {
	return &CollocatedVectorGrid2{g.clone()}
}

func (g *CollocatedVectorGrid2) CopyFrom(o *CollocatedVectorGrid2) { g.copyFrom(&o.collocated2) }

func (g *CollocatedVectorGrid2) Swap(o *CollocatedVectorGrid2) { g.swap(&o.collocated2) }

func (g *CollocatedVectorGrid2) neighbors(i, j int) (l, r, b, t r2.Vec) {
	var (
		d    = g.data
		size = d.Size()
	)
	l = d.At(clampIndex(i-1, size.X), j)
	r = d.At(clampIndex(i+1, size.X), j)
	b = d.At(i, clampIndex(j-1, size.Y))
	t = d.At(i, clampIndex(j+1, size.Y))
	return
}

func (g *CollocatedVectorGrid2) DivergenceAtDataPoint(i, j int) float64 {
	l, r, b, t := g.neighbors(i, j)
	h := g.gridSpacing
	return 0.5*(r.X-l.X)/h.X + 0.5*(t.Y-b.Y)/h.Y
}

func (g *CollocatedVectorGrid2) CurlAtDataPoint(i, j int) float64 {
	l, r, b, t := g.neighbors(i, j)
	h := g.gridSpacing
	return 0.5*(r.Y-l.Y)/h.X - 0.5*(t.X-b.X)/h.Y
}

func (g *CollocatedVectorGrid2) Divergence(x r2.Vec) (div float64) {
	if g.data.Len() == 0 {
		return
	}
	indices, weights := g.sampler.GetCoordinatesAndWeights(x)
	for c := range indices {
		div += weights[c] * g.DivergenceAtDataPoint(indices[c][0], indices[c][1])
	}
	return
}

func (g *CollocatedVectorGrid2) Curl(x r2.Vec) (curl float64) {
	if g.data.Len() == 0 {
		return
	}
	indices, weights := g.sampler.GetCoordinatesAndWeights(x)
	for c := range indices {
		curl += weights[c] * g.CurlAtDataPoint(indices[c][0], indices[c][1])
	}
	return
}

func (g *CollocatedVectorGrid2) Serialize(w io.Writer) error {
	if err := g.serialize(w, tagCollocated2); err != nil {
		return fmt.Errorf("serializing collocated vector grid: %w", err)
	}
	return nil
}

func (g *CollocatedVectorGrid2) Deserialize(r io.Reader) error {
	if err := g.deserialize(r, tagCollocated2); err != nil {
		return fmt.Errorf("deserializing collocated vector grid: %w", err)
	}
	return nil
}
