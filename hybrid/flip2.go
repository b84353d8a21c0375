package hybrid

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/gridsolver"
)

// FLIP2 carries the grid velocity change back to the particles instead of
// the grid velocity itself, blended toward PIC by PICBlendingFactor.
type FLIP2 struct {
	*PIC2
	picBlendingFactor float64
	uDelta, vDelta    *array.Array2[float64]
}

func NewFLIP2(resolution array.Size2, gridSpacing, origin r2.Vec) (s *FLIP2) {
	s = &FLIP2{
		PIC2:   NewPIC2(resolution, gridSpacing, origin),
		uDelta: array.NewArray2[float64](0, 0),
		vDelta: array.NewArray2[float64](0, 0),
	}
	s.transfer = s
	return
}

func (s *FLIP2) PICBlendingFactor() float64 { return s.picBlendingFactor }

// SetPICBlendingFactor clamps f to [0, 1]. Zero is pure FLIP, one is PIC.
func (s *FLIP2) SetPICBlendingFactor(f float64) { s.picBlendingFactor = clamp(f, 0, 1) }

// TransferFromParticlesToGrids scatters like PIC2 and remembers the result.
func (s *FLIP2) TransferFromParticlesToGrids() (err error) {
	if err = s.PIC2.TransferFromParticlesToGrids(); err != nil {
		return
	}
	vel := s.Velocity()
	s.uDelta = vel.U().Clone()
	s.vDelta = vel.V().Clone()
	return
}

func (s *FLIP2) TransferFromGridsToParticles() (err error) {
	var (
		flow      = s.Velocity()
		h         = flow.GridSpacing()
		positions = s.particles.Positions()
		vel       = s.particles.Velocities()
		u, v      = flow.U(), flow.V()
	)
	if s.uDelta.Size() != u.Size() || s.vDelta.Size() != v.Size() {
		return s.PIC2.TransferFromGridsToParticles()
	}
	u.ParallelForEachIndex(func(i, j int) { s.uDelta.Set(i, j, u.At(i, j)-s.uDelta.At(i, j)) })
	v.ParallelForEachIndex(func(i, j int) { s.vDelta.Set(i, j, v.At(i, j)-s.vDelta.At(i, j)) })
	var (
		uSampler = array.NewLinearSampler2(s.uDelta, h, flow.UOrigin(), array.Float64Ops)
		vSampler = array.NewLinearSampler2(s.vDelta, h, flow.VOrigin(), array.Float64Ops)
		alpha    = s.picBlendingFactor
	)
	parallelFor(len(positions), func(n int) {
		var (
			x       = positions[n]
			flipVel = r2.Add(vel[n], r2.Vec{X: uSampler.Sample(x), Y: vSampler.Sample(x)})
			picVel  = flow.Sample(x)
		)
		if alpha > 0 {
			flipVel = r2.Add(r2.Scale(1-alpha, flipVel), r2.Scale(alpha, picVel))
		}
		vel[n] = flipVel
	})
	return
}

var (
	_ gridsolver.Hooks2 = &FLIP2{}
	_ Transfer2         = &FLIP2{}
)
