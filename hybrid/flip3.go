package hybrid

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/gridsolver"
)

type FLIP3 struct {
	*PIC3
	picBlendingFactor float64
	delta             [3]*array.Array3[float64]
}

func NewFLIP3(resolution array.Size3, gridSpacing, origin r3.Vec) (s *FLIP3) {
	s = &FLIP3{PIC3: NewPIC3(resolution, gridSpacing, origin)}
	for axis := range s.delta {
		s.delta[axis] = array.NewArray3[float64](0, 0, 0)
	}
	s.transfer = s
	return
}

func (s *FLIP3) PICBlendingFactor() float64 { return s.picBlendingFactor }

func (s *FLIP3) SetPICBlendingFactor(f float64) { s.picBlendingFactor = clamp(f, 0, 1) }

func (s *FLIP3) TransferFromParticlesToGrids() (err error) {
	if err = s.PIC3.TransferFromParticlesToGrids(); err != nil {
		return
	}
	for axis := range s.delta {
		data, _, _ := s.Velocity().Component(axis)
		s.delta[axis] = data.Clone()
	}
	return
}

func (s *FLIP3) TransferFromGridsToParticles() (err error) {
	var (
		flow      = s.Velocity()
		h         = flow.GridSpacing()
		positions = s.particles.Positions()
		vel       = s.particles.Velocities()
		samplers  [3]*array.LinearSampler3[float64]
	)
	for axis := range s.delta {
		data, origin, _ := flow.Component(axis)
		if s.delta[axis].Size() != data.Size() {
			return s.PIC3.TransferFromGridsToParticles()
		}
		delta := s.delta[axis]
		data.ParallelForEachIndex(func(i, j, k int) { delta.Set(i, j, k, data.At(i, j, k)-delta.At(i, j, k)) })
		samplers[axis] = array.NewLinearSampler3(delta, h, origin, array.Float64Ops)
	}
	alpha := s.picBlendingFactor
	parallelFor(len(positions), func(n int) {
		var (
			x       = positions[n]
			flipVel = r3.Add(vel[n], r3.Vec{X: samplers[0].Sample(x), Y: samplers[1].Sample(x), Z: samplers[2].Sample(x)})
		)
		if alpha > 0 {
			flipVel = r3.Add(r3.Scale(1-alpha, flipVel), r3.Scale(alpha, flow.Sample(x)))
		}
		vel[n] = flipVel
	})
	return
}

var (
	_ gridsolver.Hooks3 = &FLIP3{}
	_ Transfer3         = &FLIP3{}
)
