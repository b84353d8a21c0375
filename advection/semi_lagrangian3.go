package advection

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/field"
	"github.com/notargets/gofluid/grid"
)

type Solver3 interface {
	Advect(input *grid.ScalarGrid3, flow field.VectorField3, dt float64, output *grid.ScalarGrid3,
		boundarySDF field.ScalarField3)
	AdvectCollocated(input *grid.CollocatedVectorGrid3, flow field.VectorField3, dt float64,
		output *grid.CollocatedVectorGrid3, boundarySDF field.ScalarField3)
	AdvectFaceCentered(input *grid.FaceCenteredGrid3, flow field.VectorField3, dt float64,
		output *grid.FaceCenteredGrid3, boundarySDF field.ScalarField3)
}

type SamplerFactory3 struct {
	Scalar func(input *grid.ScalarGrid3) func(r3.Vec) float64
	Vector func(input *grid.CollocatedVectorGrid3) func(r3.Vec) r3.Vec
	Face   func(input *grid.FaceCenteredGrid3) func(r3.Vec) r3.Vec
}

var LinearSamplers3 = SamplerFactory3{
	Scalar: func(input *grid.ScalarGrid3) func(r3.Vec) float64 { return input.Sample },
	Vector: func(input *grid.CollocatedVectorGrid3) func(r3.Vec) r3.Vec { return input.Sample },
	Face:   func(input *grid.FaceCenteredGrid3) func(r3.Vec) r3.Vec { return input.Sample },
}

var CubicSamplers3 = SamplerFactory3{
	Scalar: func(input *grid.ScalarGrid3) func(r3.Vec) float64 {
		return array.NewCubicSampler3(input.Data(), input.GridSpacing(), input.DataOriginPosition(),
			array.Float64Ops).Sample
	},
	Vector: func(input *grid.CollocatedVectorGrid3) func(r3.Vec) r3.Vec {
		return array.NewCubicSampler3(input.Data(), input.GridSpacing(), input.DataOriginPosition(),
			array.Vec3Ops).Sample
	},
	Face: func(input *grid.FaceCenteredGrid3) func(r3.Vec) r3.Vec {
		var (
			h = input.GridSpacing()
			u = array.NewCubicSampler3(input.U(), h, input.UOrigin(), array.Float64Ops)
			v = array.NewCubicSampler3(input.V(), h, input.VOrigin(), array.Float64Ops)
			w = array.NewCubicSampler3(input.W(), h, input.WOrigin(), array.Float64Ops)
		)
		return func(x r3.Vec) r3.Vec { return r3.Vec{X: u.Sample(x), Y: v.Sample(x), Z: w.Sample(x)} }
	},
}

type SemiLagrangian3 struct {
	Samplers SamplerFactory3
}

func NewSemiLagrangian3() *SemiLagrangian3 {
	return &SemiLagrangian3{Samplers: LinearSamplers3}
}

type CubicSemiLagrangian3 struct {
	SemiLagrangian3
}

func NewCubicSemiLagrangian3() *CubicSemiLagrangian3 {
	return &CubicSemiLagrangian3{SemiLagrangian3{Samplers: CubicSamplers3}}
}

func minSpacing3(h r3.Vec) float64 { return math.Min(h.X, math.Min(h.Y, h.Z)) }

func (s *SemiLagrangian3) Advect(input *grid.ScalarGrid3, flow field.VectorField3, dt float64,
	output *grid.ScalarGrid3, boundarySDF field.ScalarField3) {
	if input == output {
		input = input.Clone()
	}
	var (
		sample    = s.Samplers.Scalar(input)
		h         = minSpacing3(output.GridSpacing())
		inputPos  = input.DataPosition()
		outputPos = output.DataPosition()
	)
	output.ParallelForEachDataPointIndex(func(i, j, k int) {
		if boundarySDF.Sample(inputPos(i, j, k)) > 0 {
			output.Set(i, j, k, sample(BackTrace3(flow, dt, h, outputPos(i, j, k), boundarySDF)))
		}
	})
}

func (s *SemiLagrangian3) AdvectCollocated(input *grid.CollocatedVectorGrid3, flow field.VectorField3, dt float64,
	output *grid.CollocatedVectorGrid3, boundarySDF field.ScalarField3) {
	if input == output {
		input = input.Clone()
	}
	var (
		sample    = s.Samplers.Vector(input)
		h         = minSpacing3(output.GridSpacing())
		inputPos  = input.DataPosition()
		outputPos = output.DataPosition()
	)
	output.ParallelForEachDataPointIndex(func(i, j, k int) {
		if boundarySDF.Sample(inputPos(i, j, k)) > 0 {
			output.Set(i, j, k, sample(BackTrace3(flow, dt, h, outputPos(i, j, k), boundarySDF)))
		}
	})
}

func (s *SemiLagrangian3) AdvectFaceCentered(input *grid.FaceCenteredGrid3, flow field.VectorField3, dt float64,
	output *grid.FaceCenteredGrid3, boundarySDF field.ScalarField3) {
	if input == output {
		input = input.Clone()
	}
	var (
		sample = s.Samplers.Face(input)
		h      = minSpacing3(output.GridSpacing())
		in     = [3]func(i, j, k int) r3.Vec{input.UPosition(), input.VPosition(), input.WPosition()}
		out    = [3]func(i, j, k int) r3.Vec{output.UPosition(), output.VPosition(), output.WPosition()}
	)
	for axis := 0; axis < 3; axis++ {
		var (
			data, _, _ = output.Component(axis)
			inPos      = in[axis]
			outPos     = out[axis]
		)
		data.ParallelForEachIndex(func(i, j, k int) {
			if boundarySDF.Sample(inPos(i, j, k)) <= 0 {
				return
			}
			v := sample(BackTrace3(flow, dt, h, outPos(i, j, k), boundarySDF))
			switch axis {
			case 0:
				data.Set(i, j, k, v.X)
			case 1:
				data.Set(i, j, k, v.Y)
			default:
				data.Set(i, j, k, v.Z)
			}
		})
	}
}

func BackTrace3(flow field.VectorField3, dt, h float64, start r3.Vec, boundarySDF field.ScalarField3) r3.Vec {
	var (
		remaining = dt
		pt0, pt1  = start, start
	)
	for remaining > epsilon {
		var (
			vel0     = flow.Sample(pt0)
			subSteps = math.Max(math.Ceil(r3.Norm(vel0)*remaining/h), 1)
			step     = remaining / subSteps
			mid      = r3.Sub(pt0, r3.Scale(0.5*step, vel0))
		)
		pt1 = r3.Sub(pt0, r3.Scale(step, flow.Sample(mid)))
		phi0, phi1 := boundarySDF.Sample(pt0), boundarySDF.Sample(pt1)
		if phi0*phi1 < 0 {
			w := math.Abs(phi1) / (math.Abs(phi0) + math.Abs(phi1))
			return r3.Add(r3.Scale(w, pt0), r3.Scale(1-w, pt1))
		}
		remaining -= step
		pt0 = pt1
	}
	return pt1
}

var (
	_ Solver3 = &SemiLagrangian3{}
	_ Solver3 = &CubicSemiLagrangian3{}
)
