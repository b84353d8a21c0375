package hybrid

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/gridsolver"
)

type APIC3 struct {
	*PIC3
	c [3][]r3.Vec
}

func NewAPIC3(resolution array.Size3, gridSpacing, origin r3.Vec) (s *APIC3) {
	s = &APIC3{PIC3: NewPIC3(resolution, gridSpacing, origin)}
	s.transfer = s
	return
}

func (s *APIC3) AffineVectors() (cX, cY, cZ []r3.Vec) { return s.c[0], s.c[1], s.c[2] }

func (s *APIC3) resizeAffine() {
	n := s.particles.NumberOfParticles()
	for axis := range s.c {
		s.c[axis] = resized(s.c[axis], n)
	}
}

func (s *APIC3) TransferFromParticlesToGrids() error {
	s.resizeAffine()
	return ScatterToFaces3(s.particles.Positions(), s.particles.Velocities(), &s.c, s.Velocity(), s.markers)
}

func (s *APIC3) TransferFromGridsToParticles() error {
	s.resizeAffine()
	return GatherFromFaces3(s.Velocity(), s.particles.Positions(), s.particles.Velocities(), &s.c)
}

var (
	_ gridsolver.Hooks3 = &APIC3{}
	_ Transfer3         = &APIC3{}
)
