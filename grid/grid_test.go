package grid

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
)

func TestGridFrame(t *testing.T) {
	g := NewGrid2(array.Size2{X: 4, Y: 2}, r2.Vec{X: 0.5, Y: 0.25}, r2.Vec{X: -1, Y: 1})
	bb := g.BoundingBox()
	assert.Equal(t, r2.Vec{X: -1, Y: 1}, bb.Lower)
	assert.Equal(t, r2.Vec{X: 1, Y: 1.5}, bb.Upper)
	assert.Equal(t, r2.Vec{X: -0.75, Y: 1.125}, g.CellCenterPosition()(0, 0))
	o := NewGrid2(array.Size2{X: 4, Y: 2}, r2.Vec{X: 0.5, Y: 0.25}, r2.Vec{X: -1, Y: 1})
	assert.True(t, g.HasSameShape(&o))
	o = NewGrid2(array.Size2{X: 4, Y: 3}, r2.Vec{X: 0.5, Y: 0.25}, r2.Vec{X: -1, Y: 1})
	assert.False(t, g.HasSameShape(&o))
}

func TestScalarGrid2(t *testing.T) {
	var (
		res     = array.Size2{X: 8, Y: 8}
		h       = r2.Vec{X: 0.5, Y: 0.5}
		linear  = func(x r2.Vec) float64 { return 3*x.X - 2*x.Y }
		cell    = NewScalarGrid2(CellCentered, res, h, r2.Vec{}, 0)
		vertex  = NewScalarGrid2(VertexCentered, res, h, r2.Vec{}, 1)
		samplAt = r2.Vec{X: 2.1, Y: 1.7}
	)
	assert.Equal(t, res, cell.DataSize())
	assert.Equal(t, array.Size2{X: 9, Y: 9}, vertex.DataSize())
	assert.Equal(t, r2.Vec{X: 0.25, Y: 0.25}, cell.DataPosition()(0, 0))
	assert.Equal(t, r2.Vec{X: 0.5, Y: 0}, vertex.DataPosition()(1, 0))
	assert.Equal(t, 1., vertex.At(8, 8))

	for _, g := range []*ScalarGrid2{cell, vertex} {
		g.FillFunc(linear)
		assert.InDelta(t, linear(samplAt), g.Sample(samplAt), 1e-12)
		grad := g.Gradient(samplAt)
		assert.InDelta(t, 3., grad.X, 1e-12)
		assert.InDelta(t, -2., grad.Y, 1e-12)
		assert.InDelta(t, 0., g.Laplacian(samplAt), 1e-9)
	}
	{ // Boundary stencils clamp instead of reading outside
		cell.Fill(0)
		cell.Set(0, 0, 1)
		assert.InDelta(t, -2/(h.X*h.X)-2/(h.Y*h.Y)+1/(h.X*h.X)+1/(h.Y*h.Y),
			cell.LaplacianAtDataPoint(0, 0), 1e-12)
		assert.InDelta(t, -0.5*1/h.X, cell.GradientAtDataPoint(0, 0).X, 1e-12)
	}
	{ // Clone is deep, Swap exchanges frames and data
		c := cell.Clone()
		c.Set(1, 1, 42)
		assert.Equal(t, 0., cell.At(1, 1))
		assert.Equal(t, 42., c.At(1, 1))
		cell.Swap(vertex)
		assert.Equal(t, VertexCentered, cell.DataOrigin())
		assert.Equal(t, array.Size2{X: 9, Y: 9}, cell.DataSize())
		assert.Equal(t, 1., vertex.At(0, 0))
	}
}

func TestCollocatedVectorGrid(t *testing.T) {
	g := NewCollocatedVectorGrid2(CellCentered, array.Size2{X: 6, Y: 6}, r2.Vec{X: 1, Y: 1}, r2.Vec{}, r2.Vec{})
	g.FillFunc(func(x r2.Vec) r2.Vec { return r2.Vec{X: -x.Y, Y: x.X} })
	assert.InDelta(t, 0., g.DivergenceAtDataPoint(2, 3), 1e-12)
	assert.InDelta(t, 2., g.CurlAtDataPoint(2, 3), 1e-12)
	assert.InDelta(t, 2., g.Curl(r2.Vec{X: 3, Y: 3}), 1e-12)

	g3 := NewCollocatedVectorGrid3(VertexCentered, array.Size3{X: 4, Y: 4, Z: 4}, r3.Vec{X: 1, Y: 1, Z: 1},
		r3.Vec{}, r3.Vec{})
	g3.FillFunc(func(x r3.Vec) r3.Vec { return r3.Vec{X: x.X, Y: x.Y, Z: x.Z} })
	assert.InDelta(t, 3., g3.DivergenceAtDataPoint(2, 2, 2), 1e-12)
	assert.Equal(t, r3.Vec{}, g3.CurlAtDataPoint(2, 2, 2))
}

func TestFaceCenteredGrid2(t *testing.T) {
	var (
		res = array.Size2{X: 8, Y: 8}
		g   = NewFaceCenteredGrid2(res, r2.Vec{X: 0.5, Y: 0.5}, r2.Vec{}, r2.Vec{})
		fn  = func(x r2.Vec) r2.Vec { return r2.Vec{X: x.X, Y: 2 * x.Y} }
	)
	assert.Equal(t, array.Size2{X: 9, Y: 8}, g.USize())
	assert.Equal(t, array.Size2{X: 8, Y: 9}, g.VSize())
	assert.Equal(t, r2.Vec{Y: 0.25}, g.UOrigin())
	assert.Equal(t, r2.Vec{X: 0.25}, g.VOrigin())

	g.FillFunc(fn)
	p := r2.Vec{X: 1.3, Y: 2.2}
	s := g.Sample(p)
	assert.InDelta(t, 1.3, s.X, 1e-12)
	assert.InDelta(t, 4.4, s.Y, 1e-12)
	assert.InDelta(t, 3., g.DivergenceAtCellCenter(3, 4), 1e-12)
	assert.InDelta(t, 3., g.Divergence(p), 1e-12)
	cc := g.ValueAtCellCenter(0, 0)
	assert.InDelta(t, 0.25, cc.X, 1e-12)
	assert.InDelta(t, 0.5, cc.Y, 1e-12)

	{ // Uniform fields are reproduced everywhere, including near walls
		g.Fill(r2.Vec{X: 2, Y: -1})
		for _, q := range []r2.Vec{{}, {X: 4, Y: 4}, {X: 0.1, Y: 3.9}} {
			v := g.Sample(q)
			assert.InDelta(t, 2., v.X, 1e-12)
			assert.InDelta(t, -1., v.Y, 1e-12)
		}
	}
}

func TestFaceCenteredGrid3(t *testing.T) {
	g := NewFaceCenteredGrid3(array.Size3{X: 4, Y: 5, Z: 6}, r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{}, r3.Vec{})
	assert.Equal(t, array.Size3{X: 5, Y: 5, Z: 6}, g.USize())
	assert.Equal(t, array.Size3{X: 4, Y: 6, Z: 6}, g.VSize())
	assert.Equal(t, array.Size3{X: 4, Y: 5, Z: 7}, g.WSize())
	g.FillFunc(func(x r3.Vec) r3.Vec { return r3.Vec{X: x.X, Y: x.Y, Z: -2 * x.Z} })
	assert.InDelta(t, 0., g.DivergenceAtCellCenter(1, 2, 3), 1e-12)
	v := g.Sample(r3.Vec{X: 2.2, Y: 2.5, Z: 3.1})
	assert.InDelta(t, 2.2, v.X, 1e-12)
	assert.InDelta(t, 2.5, v.Y, 1e-12)
	assert.InDelta(t, -6.2, v.Z, 1e-12)
}

func TestSerializeRoundTrip(t *testing.T) {
	{ // Scalar grid
		g := NewScalarGrid2(VertexCentered, array.Size2{X: 3, Y: 2}, r2.Vec{X: 0.1, Y: 0.3}, r2.Vec{X: -2, Y: 5}, 0)
		g.FillFunc(func(x r2.Vec) float64 { return x.X*x.Y + 1.0/3.0 })
		var buf bytes.Buffer
		require.NoError(t, g.Serialize(&buf))
		out := NewCellCenteredScalarGrid2(array.Size2{}, r2.Vec{X: 1, Y: 1}, r2.Vec{})
		require.NoError(t, out.Deserialize(&buf))
		assert.Equal(t, g.Resolution(), out.Resolution())
		assert.Equal(t, g.GridSpacing(), out.GridSpacing())
		assert.Equal(t, g.Origin(), out.Origin())
		assert.Equal(t, VertexCentered, out.DataOrigin())
		assert.Equal(t, g.Data().Data(), out.Data().Data())
	}
	{ // Face centered grid, 3D
		g := NewFaceCenteredGrid3(array.Size3{X: 2, Y: 3, Z: 4}, r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, r3.Vec{Z: 1}, r3.Vec{})
		g.FillFunc(func(x r3.Vec) r3.Vec { return r3.Vec{X: x.Y, Y: x.Z, Z: x.X} })
		var buf bytes.Buffer
		require.NoError(t, g.Serialize(&buf))
		out := NewFaceCenteredGrid3(array.Size3{}, r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{}, r3.Vec{})
		require.NoError(t, out.Deserialize(&buf))
		assert.True(t, g.HasSameShape(&out.Grid3))
		assert.Equal(t, g.U().Data(), out.U().Data())
		assert.Equal(t, g.V().Data(), out.V().Data())
		assert.Equal(t, g.W().Data(), out.W().Data())
	}
	{ // Grid system with layers
		s := NewGridSystemData2(array.Size2{X: 4, Y: 4}, r2.Vec{X: 0.25, Y: 0.25}, r2.Vec{})
		s.Velocity().Fill(r2.Vec{X: 1, Y: 2})
		s.AddAdvectableScalarData(CellCentered, 7)
		s.AddVectorData(VertexCentered, r2.Vec{X: 3})
		var buf bytes.Buffer
		require.NoError(t, s.Serialize(&buf))
		out := NewGridSystemData2(array.Size2{}, r2.Vec{X: 1, Y: 1}, r2.Vec{})
		require.NoError(t, out.Deserialize(&buf))
		assert.Equal(t, s.Resolution(), out.Resolution())
		assert.Equal(t, 1, out.NumberOfAdvectableScalarData())
		assert.Equal(t, 1, out.NumberOfVectorData())
		assert.Equal(t, 0, out.NumberOfScalarData())
		assert.Equal(t, 7., out.AdvectableScalarDataAt(0).At(3, 3))
		assert.Equal(t, s.Velocity().V().Data(), out.Velocity().V().Data())
	}
	{ // Kind and truncation errors
		g := NewScalarGrid2(CellCentered, array.Size2{X: 2, Y: 2}, r2.Vec{X: 1, Y: 1}, r2.Vec{}, 0)
		var buf bytes.Buffer
		require.NoError(t, g.Serialize(&buf))
		raw := buf.Bytes()
		f := NewFaceCenteredGrid2(array.Size2{}, r2.Vec{X: 1, Y: 1}, r2.Vec{}, r2.Vec{})
		err := f.Deserialize(bytes.NewReader(raw))
		assert.True(t, errors.Is(err, ErrGridType))
		err = g.Deserialize(bytes.NewReader(raw[:len(raw)-3]))
		assert.True(t, errors.Is(err, ErrCorrupt))
	}
}
