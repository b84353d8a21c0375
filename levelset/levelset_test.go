package levelset

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/field"
	"github.com/notargets/gofluid/grid"
)

func TestLevelSetUtils(t *testing.T) {
	assert.True(t, IsInsideSDF(-1e-9))
	assert.False(t, IsInsideSDF(0))

	assert.Equal(t, 1., SmearedHeavisideSDF(2))
	assert.Equal(t, 0., SmearedHeavisideSDF(-2))
	assert.InDelta(t, 0.5, SmearedHeavisideSDF(0), 1e-15)
	assert.InDelta(t, 2./3, SmearedDeltaSDF(0), 1e-15)
	assert.Equal(t, 0., SmearedDeltaSDF(1.6))
	assert.InDelta(t, 0., SmearedDeltaSDF(1.5), 1e-15)

	assert.Equal(t, 1., FractionInsideSDF(-1, -2))
	assert.Equal(t, 0., FractionInsideSDF(1, 2))
	assert.InDelta(t, 0.25, FractionInsideSDF(-1, 3), 1e-15)
	assert.InDelta(t, 0.75, FractionInsideSDF(1, -3), 1e-15)

	assert.InDelta(t, 0.25, DistanceToZeroLevelSet(1, -3), 1e-15)
	assert.Equal(t, 0.5, DistanceToZeroLevelSet(0, 0))
}

func TestFractionInside(t *testing.T) {
	var (
		// the plane x = a through the unit square, inside on the left
		plane = func(a float64) (bl, br, tl, tr float64) { return -a, 1 - a, -a, 1 - a }
	)
	assert.Equal(t, 1., FractionInside(-1, -1, -1, -1))
	assert.Equal(t, 0., FractionInside(1, 1, 1, 1))
	for _, a := range []float64{0.1, 0.5, 0.8} {
		bl, br, tl, tr := plane(a)
		assert.InDelta(t, a, FractionInside(bl, br, tl, tr), 1e-12)
	}
	{ // Test one corner inside cuts a triangle
		// phi = x + y - 0.5: the triangle below the diagonal has area 1/8
		assert.InDelta(t, 0.125, FractionInside(-0.5, 0.5, 0.5, 1.5), 1e-12)
		// the complement with three corners inside
		assert.InDelta(t, 0.875, FractionInside(0.5, -0.5, -0.5, -1.5), 1e-12)
	}
	{ // Test diagonal corners
		in := FractionInside(-1, 0.5, 0.5, -1)
		assert.Greater(t, in, 0.5)
		assert.Less(t, in, 1.)
		out := FractionInside(-0.5, 1, 1, -0.5)
		assert.Greater(t, out, 0.)
		assert.Less(t, out, 0.5)
	}
}

func TestReinitialize2(t *testing.T) {
	var (
		res    = array.Size2{X: 10, Y: 6}
		h      = r2.Vec{X: 0.1, Y: 0.1}
		input  = grid.NewCellCenteredScalarGrid2(res, h, r2.Vec{})
		output = grid.NewCellCenteredScalarGrid2(res, h, r2.Vec{})
		solver FMMSolver2
	)
	input.FillFunc(func(x r2.Vec) float64 { return 3 * (x.X - 0.52) })
	require.NoError(t, solver.Reinitialize(input, 10, output))
	pos := output.DataPosition()
	output.ForEachDataPointIndex(func(i, j int) {
		assert.InDelta(t, pos(i, j).X-0.52, output.At(i, j), 1e-9, "cell %d %d", i, j)
	})

	other := grid.NewCellCenteredScalarGrid2(array.Size2{X: 4, Y: 6}, h, r2.Vec{})
	assert.True(t, errors.Is(solver.Reinitialize(input, 10, other), grid.ErrShapeMismatch))
}

func TestReinitializeCircle(t *testing.T) {
	var (
		res    = array.Size2{X: 32, Y: 32}
		h      = r2.Vec{X: 1. / 32, Y: 1. / 32}
		center = r2.Vec{X: 0.5, Y: 0.5}
		input  = grid.NewScalarGrid2(grid.VertexCentered, res, h, r2.Vec{}, 0)
		output = grid.NewScalarGrid2(grid.VertexCentered, res, h, r2.Vec{}, 0)
	)
	input.FillFunc(func(x r2.Vec) float64 {
		d := r2.Norm(r2.Sub(x, center)) - 0.25
		return d * math.Abs(d+1) // same zero set, distorted magnitude
	})
	require.NoError(t, FMMSolver2{}.Reinitialize(input, 1, output))
	pos := output.DataPosition()
	output.ForEachDataPointIndex(func(i, j int) {
		exact := r2.Norm(r2.Sub(pos(i, j), center)) - 0.25
		if math.Abs(exact) > 0.5*h.X {
			assert.Equal(t, exact < 0, output.At(i, j) < 0)
		}
		// first order marching is within a couple of cells of the true distance
		assert.InDelta(t, exact, output.At(i, j), 2*h.X)
	})
}

func TestReinitializeZeroOnLattice(t *testing.T) {
	var (
		res    = array.Size2{X: 8, Y: 8}
		h      = r2.Vec{X: 1, Y: 1}
		origin = r2.Vec{X: -4, Y: -4}
		input  = grid.NewScalarGrid2(grid.VertexCentered, res, h, origin, 0)
		output = grid.NewScalarGrid2(grid.VertexCentered, res, h, origin, 0)
		exact  = func(x r2.Vec) float64 { return math.Hypot(x.X, x.Y) - 2 }
	)
	input.FillFunc(exact)
	// (±2, 0) and (0, ±2) sit exactly on the zero level set
	require.Equal(t, 0., input.At(6, 4))
	require.NoError(t, FMMSolver2{}.Reinitialize(input, 10, output))
	pos := output.DataPosition()
	output.ForEachDataPointIndex(func(i, j int) {
		var (
			want = exact(pos(i, j))
			got  = output.At(i, j)
		)
		require.False(t, math.IsInf(got, 0) || math.IsNaN(got), "cell %d %d", i, j)
		if math.Abs(want) > 0.5*h.X {
			assert.Equal(t, want < 0, got < 0, "cell %d %d", i, j)
		}
		assert.InDelta(t, want, got, 2*h.X, "cell %d %d", i, j)
	})
	for _, ij := range [][2]int{{6, 4}, {2, 4}, {4, 6}, {4, 2}} {
		assert.Equal(t, 0., output.At(ij[0], ij[1]))
	}
	assert.InDelta(t, -1., output.At(5, 4), 0.25)
}

func TestReinitialize3(t *testing.T) {
	var (
		res    = array.Size3{X: 6, Y: 5, Z: 8}
		h      = r3.Vec{X: 0.2, Y: 0.2, Z: 0.2}
		input  = grid.NewCellCenteredScalarGrid3(res, h, r3.Vec{})
		output = grid.NewCellCenteredScalarGrid3(res, h, r3.Vec{})
	)
	input.FillFunc(func(x r3.Vec) float64 { return 0.5 * (x.Z - 0.75) })
	require.NoError(t, FMMSolver3{}.Reinitialize(input, 5, output))
	pos := output.DataPosition()
	output.ForEachDataPointIndex(func(i, j, k int) {
		assert.InDelta(t, pos(i, j, k).Z-0.75, output.At(i, j, k), 1e-9)
	})
}

func TestExtrapolate(t *testing.T) {
	var (
		res    = array.Size2{X: 10, Y: 4}
		h      = r2.Vec{X: 0.1, Y: 0.1}
		input  = grid.NewCellCenteredScalarGrid2(res, h, r2.Vec{})
		output = grid.NewCellCenteredScalarGrid2(res, h, r2.Vec{})
		sdf    = field.NewCustomScalarField2(func(x r2.Vec) float64 { return x.X - 0.52 })
	)
	input.FillFunc(func(x r2.Vec) float64 {
		if x.X < 0.52 {
			return 2
		}
		return 100
	})
	require.NoError(t, FMMSolver2{}.Extrapolate(input, sdf, 0.15, output))
	for j := 0; j < res.Y; j++ {
		for i := 0; i < 7; i++ { // x up to 0.65 lies within 0.15 of the interface
			assert.InDelta(t, 2., output.At(i, j), 1e-12)
		}
		for i := 7; i < res.X; i++ {
			assert.Equal(t, 100., output.At(i, j))
		}
	}
	{ // Test the face centered form in place
		vel := grid.NewFaceCenteredGrid2(res, h, r2.Vec{}, r2.Vec{X: 7, Y: -1})
		vel.ForEachUIndex(func(i, j int) {
			if vel.UPosition()(i, j).X > 0.52 {
				vel.U().Set(i, j, 0)
			}
		})
		require.NoError(t, FMMSolver2{}.ExtrapolateFaceCentered(vel, sdf, 10, vel))
		for _, v := range vel.U().Data() {
			assert.InDelta(t, 7., v, 1e-12)
		}
		for _, v := range vel.V().Data() {
			assert.InDelta(t, -1., v, 1e-12)
		}
	}
	{ // Test the collocated form
		in := grid.NewCollocatedVectorGrid2(grid.CellCentered, res, h, r2.Vec{}, r2.Vec{X: 1, Y: 2})
		in.Set(9, 0, r2.Vec{X: 50, Y: 50})
		out := grid.NewCollocatedVectorGrid2(grid.CellCentered, res, h, r2.Vec{}, r2.Vec{})
		require.NoError(t, FMMSolver2{}.ExtrapolateCollocated(in, sdf, 10, out))
		assert.InDelta(t, 1., out.At(9, 0).X, 1e-12)
		assert.InDelta(t, 2., out.At(9, 0).Y, 1e-12)
	}
	{ // Test 3D face centered extrapolation fills the outside from the inside
		res3 := array.Size3{X: 4, Y: 4, Z: 4}
		vel := grid.NewFaceCenteredGrid3(res3, r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{}, r3.Vec{X: 1, Y: 2, Z: 3})
		out := grid.NewFaceCenteredGrid3(res3, r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{}, r3.Vec{})
		sdf3 := field.NewCustomScalarField3(func(x r3.Vec) float64 { return x.Y - 1.2 })
		vel.W().Set(2, 3, 2, 99)
		require.NoError(t, FMMSolver3{}.ExtrapolateFaceCentered(vel, sdf3, 10, out))
		assert.InDelta(t, 3., out.W().At(2, 3, 2), 1e-12)
		assert.InDelta(t, 1., out.U().At(4, 3, 3), 1e-12)
	}
}
