package advection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/field"
	"github.com/notargets/gofluid/grid"
)

var (
	open2 = field.NewCustomScalarField2(field.NoBoundary2)
	open3 = field.NewCustomScalarField3(field.NoBoundary3)
)

func TestZeroVelocityIsIdentity(t *testing.T) {
	var (
		res  = array.Size2{X: 8, Y: 6}
		h    = r2.Vec{X: 0.1, Y: 0.1}
		fn   = func(x r2.Vec) float64 { return math.Sin(3*x.X) + x.Y*x.Y }
		zero = field.ConstantVectorField2{}
	)
	for _, solver := range []Solver2{NewSemiLagrangian2(), NewCubicSemiLagrangian2()} {
		in := grid.NewCellCenteredScalarGrid2(res, h, r2.Vec{})
		in.FillFunc(fn)
		out := grid.NewCellCenteredScalarGrid2(res, h, r2.Vec{})
		solver.Advect(in, zero, 0.5, out, open2)
		in.ForEachDataPointIndex(func(i, j int) {
			assert.Equal(t, in.At(i, j), out.At(i, j))
		})

		face := grid.NewFaceCenteredGrid2(res, h, r2.Vec{}, r2.Vec{})
		face.FillFunc(func(x r2.Vec) r2.Vec { return r2.Vec{X: x.Y, Y: -x.X} })
		want := face.Clone()
		solver.AdvectFaceCentered(face, zero, 0.5, face, open2)
		face.ForEachUIndex(func(i, j int) { assert.Equal(t, want.U().At(i, j), face.U().At(i, j)) })
		face.ForEachVIndex(func(i, j int) { assert.Equal(t, want.V().At(i, j), face.V().At(i, j)) })
	}
	{ // Test 3D
		var (
			res3 = array.Size3{X: 4, Y: 5, Z: 3}
			h3   = r3.Vec{X: 0.2, Y: 0.2, Z: 0.2}
			in   = grid.NewCellCenteredScalarGrid3(res3, h3, r3.Vec{})
			out  = grid.NewCellCenteredScalarGrid3(res3, h3, r3.Vec{})
		)
		in.FillFunc(func(x r3.Vec) float64 { return x.X + 2*x.Y - x.Z })
		NewCubicSemiLagrangian3().Advect(in, field.ConstantVectorField3{}, 1, out, open3)
		in.ForEachDataPointIndex(func(i, j, k int) {
			assert.Equal(t, in.At(i, j, k), out.At(i, j, k))
		})
	}
}

func TestUniformFlowTranslatesLinearField(t *testing.T) {
	var (
		res  = array.Size2{X: 10, Y: 10}
		h    = r2.Vec{X: 0.1, Y: 0.1}
		in   = grid.NewCellCenteredScalarGrid2(res, h, r2.Vec{})
		out  = grid.NewCellCenteredScalarGrid2(res, h, r2.Vec{})
		flow = field.ConstantVectorField2{Value: r2.Vec{X: 1}}
		pos  = in.DataPosition()
	)
	in.FillFunc(func(x r2.Vec) float64 { return x.X })
	NewSemiLagrangian2().Advect(in, flow, 0.1, out, open2)
	for j := 0; j < res.Y; j++ {
		for i := 2; i < res.X; i++ {
			assert.InDelta(t, pos(i, j).X-0.1, out.At(i, j), 1e-12)
		}
	}
	{ // Test collocated vector data moves the same way
		vin := grid.NewCollocatedVectorGrid2(grid.CellCentered, res, h, r2.Vec{}, r2.Vec{})
		vin.FillFunc(func(x r2.Vec) r2.Vec { return r2.Vec{X: x.X, Y: 1} })
		NewSemiLagrangian2().AdvectCollocated(vin, flow, 0.1, vin, open2)
		assert.InDelta(t, pos(5, 5).X-0.1, vin.At(5, 5).X, 1e-12)
		assert.InDelta(t, 1., vin.At(5, 5).Y, 1e-12)
	}
}

func TestBackTraceStopsAtBoundary(t *testing.T) {
	var (
		wall = field.NewCustomScalarField2(func(x r2.Vec) float64 { return x.X - 0.5 })
		flow = field.ConstantVectorField2{Value: r2.Vec{X: 1}}
	)
	pt := BackTrace2(flow, 0.5, 1, r2.Vec{X: 0.8, Y: 0.3}, wall)
	assert.InDelta(t, 0.5, pt.X, 1e-12)
	assert.InDelta(t, 0.3, pt.Y, 1e-12)

	// no crossing: the full distance is traveled
	pt = BackTrace2(flow, 0.2, 0.05, r2.Vec{X: 0.9}, wall)
	assert.InDelta(t, 0.7, pt.X, 1e-12)

	pt3 := BackTrace3(field.ConstantVectorField3{Value: r3.Vec{Z: -2}}, 0.25, 0.1, r3.Vec{Z: 1}, open3)
	assert.InDelta(t, 1.5, pt3.Z, 1e-12)
}

func TestPointsInsideBoundaryAreKept(t *testing.T) {
	var (
		res   = array.Size2{X: 4, Y: 4}
		h     = r2.Vec{X: 1, Y: 1}
		in    = grid.NewCellCenteredScalarGrid2(res, h, r2.Vec{})
		out   = grid.NewCellCenteredScalarGrid2(res, h, r2.Vec{})
		solid = field.ConstantScalarField2(-1)
	)
	in.Fill(3)
	out.Fill(7)
	NewSemiLagrangian2().Advect(in, field.ConstantVectorField2{Value: r2.Vec{X: 1}}, 1, out, solid)
	out.ForEachDataPointIndex(func(i, j int) { assert.Equal(t, 7., out.At(i, j)) })
}
