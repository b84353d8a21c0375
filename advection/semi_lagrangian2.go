// Package advection moves grid data along a flow field by tracing every
// data point backwards in time and sampling the input there.
package advection

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/field"
	"github.com/notargets/gofluid/grid"
)

var epsilon = math.Nextafter(1, 2) - 1

// Solver2 advects grid data by flow over dt. Data points whose input
// position lies inside boundarySDF are left untouched in output. output may
// alias input.
type Solver2 interface {
	Advect(input *grid.ScalarGrid2, flow field.VectorField2, dt float64, output *grid.ScalarGrid2,
		boundarySDF field.ScalarField2)
	AdvectCollocated(input *grid.CollocatedVectorGrid2, flow field.VectorField2, dt float64,
		output *grid.CollocatedVectorGrid2, boundarySDF field.ScalarField2)
	AdvectFaceCentered(input *grid.FaceCenteredGrid2, flow field.VectorField2, dt float64,
		output *grid.FaceCenteredGrid2, boundarySDF field.ScalarField2)
}

// SamplerFactory2 chooses how the input is interpolated at back traced
// points.
type SamplerFactory2 struct {
	Scalar func(input *grid.ScalarGrid2) func(r2.Vec) float64
	Vector func(input *grid.CollocatedVectorGrid2) func(r2.Vec) r2.Vec
	Face   func(input *grid.FaceCenteredGrid2) func(r2.Vec) r2.Vec
}

// LinearSamplers2 uses the grids' own bilinear samplers.
var LinearSamplers2 = SamplerFactory2{
	Scalar: func(input *grid.ScalarGrid2) func(r2.Vec) float64 { return input.Sample },
	Vector: func(input *grid.CollocatedVectorGrid2) func(r2.Vec) r2.Vec { return input.Sample },
	Face:   func(input *grid.FaceCenteredGrid2) func(r2.Vec) r2.Vec { return input.Sample },
}

// CubicSamplers2 uses monotonic Catmull-Rom interpolation.
var CubicSamplers2 = SamplerFactory2{
	Scalar: func(input *grid.ScalarGrid2) func(r2.Vec) float64 {
		return array.NewCubicSampler2(input.Data(), input.GridSpacing(), input.DataOriginPosition(),
			array.Float64Ops).Sample
	},
	Vector: func(input *grid.CollocatedVectorGrid2) func(r2.Vec) r2.Vec {
		return array.NewCubicSampler2(input.Data(), input.GridSpacing(), input.DataOriginPosition(),
			array.Vec2Ops).Sample
	},
	Face: func(input *grid.FaceCenteredGrid2) func(r2.Vec) r2.Vec {
		var (
			h = input.GridSpacing()
			u = array.NewCubicSampler2(input.U(), h, input.UOrigin(), array.Float64Ops)
			v = array.NewCubicSampler2(input.V(), h, input.VOrigin(), array.Float64Ops)
		)
		return func(x r2.Vec) r2.Vec { return r2.Vec{X: u.Sample(x), Y: v.Sample(x)} }
	},
}

type SemiLagrangian2 struct {
	Samplers SamplerFactory2
}

func NewSemiLagrangian2() *SemiLagrangian2 {
	return &SemiLagrangian2{Samplers: LinearSamplers2}
}

// CubicSemiLagrangian2 is SemiLagrangian2 with the monotonic cubic samplers.
type CubicSemiLagrangian2 struct {
	SemiLagrangian2
}

func NewCubicSemiLagrangian2() *CubicSemiLagrangian2 {
	return &CubicSemiLagrangian2{SemiLagrangian2{Samplers: CubicSamplers2}}
}

func minSpacing2(h r2.Vec) float64 { return math.Min(h.X, h.Y) }

func (s *SemiLagrangian2) Advect(input *grid.ScalarGrid2, flow field.VectorField2, dt float64,
	output *grid.ScalarGrid2, boundarySDF field.ScalarField2) {
	if input == output {
		input = input.Clone()
	}
	var (
		sample    = s.Samplers.Scalar(input)
		h         = minSpacing2(output.GridSpacing())
		inputPos  = input.DataPosition()
		outputPos = output.DataPosition()
	)
	output.ParallelForEachDataPointIndex(func(i, j int) {
		if boundarySDF.Sample(inputPos(i, j)) > 0 {
			output.Set(i, j, sample(BackTrace2(flow, dt, h, outputPos(i, j), boundarySDF)))
		}
	})
}

func (s *SemiLagrangian2) AdvectCollocated(input *grid.CollocatedVectorGrid2, flow field.VectorField2, dt float64,
	output *grid.CollocatedVectorGrid2, boundarySDF field.ScalarField2) {
	if input == output {
		input = input.Clone()
	}
	var (
		sample    = s.Samplers.Vector(input)
		h         = minSpacing2(output.GridSpacing())
		inputPos  = input.DataPosition()
		outputPos = output.DataPosition()
	)
	output.ParallelForEachDataPointIndex(func(i, j int) {
		if boundarySDF.Sample(inputPos(i, j)) > 0 {
			output.Set(i, j, sample(BackTrace2(flow, dt, h, outputPos(i, j), boundarySDF)))
		}
	})
}

func (s *SemiLagrangian2) AdvectFaceCentered(input *grid.FaceCenteredGrid2, flow field.VectorField2, dt float64,
	output *grid.FaceCenteredGrid2, boundarySDF field.ScalarField2) {
	if input == output {
		input = input.Clone()
	}
	var (
		sample = s.Samplers.Face(input)
		h      = minSpacing2(output.GridSpacing())
		u, v   = output.U(), output.V()
	)
	uIn, uOut := input.UPosition(), output.UPosition()
	u.ParallelForEachIndex(func(i, j int) {
		if boundarySDF.Sample(uIn(i, j)) > 0 {
			u.Set(i, j, sample(BackTrace2(flow, dt, h, uOut(i, j), boundarySDF)).X)
		}
	})
	vIn, vOut := input.VPosition(), output.VPosition()
	v.ParallelForEachIndex(func(i, j int) {
		if boundarySDF.Sample(vIn(i, j)) > 0 {
			v.Set(i, j, sample(BackTrace2(flow, dt, h, vOut(i, j), boundarySDF)).Y)
		}
	})
}

// BackTrace2 follows flow backwards from start for dt with the mid point
// rule, splitting dt so no sub step moves farther than h. The trace stops
// where it crosses the zero level of boundarySDF.
func BackTrace2(flow field.VectorField2, dt, h float64, start r2.Vec, boundarySDF field.ScalarField2) r2.Vec {
	var (
		remaining = dt
		pt0, pt1  = start, start
	)
	for remaining > epsilon {
		var (
			vel0     = flow.Sample(pt0)
			subSteps = math.Max(math.Ceil(r2.Norm(vel0)*remaining/h), 1)
			step     = remaining / subSteps
			mid      = r2.Sub(pt0, r2.Scale(0.5*step, vel0))
		)
		pt1 = r2.Sub(pt0, r2.Scale(step, flow.Sample(mid)))
		phi0, phi1 := boundarySDF.Sample(pt0), boundarySDF.Sample(pt1)
		if phi0*phi1 < 0 {
			w := math.Abs(phi1) / (math.Abs(phi0) + math.Abs(phi1))
			return r2.Add(r2.Scale(w, pt0), r2.Scale(1-w, pt1))
		}
		remaining -= step
		pt0 = pt1
	}
	return pt1
}

var (
	_ Solver2 = &SemiLagrangian2{}
	_ Solver2 = &CubicSemiLagrangian2{}
)
