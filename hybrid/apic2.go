package hybrid

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/gridsolver"
)

// APIC2 keeps, per particle and velocity component, the local gradient of
// that component. The scatter adds the affine part back at each face.
type APIC2 struct {
	*PIC2
	cX, cY []r2.Vec
}

func NewAPIC2(resolution array.Size2, gridSpacing, origin r2.Vec) (s *APIC2) {
	s = &APIC2{PIC2: NewPIC2(resolution, gridSpacing, origin)}
	s.transfer = s
	return
}

// AffineVectors returns the per particle gradients of u and v from the last
// gather.
func (s *APIC2) AffineVectors() (cX, cY []r2.Vec) { return s.cX, s.cY }

func (s *APIC2) resizeAffine() {
	n := s.particles.NumberOfParticles()
	s.cX = resized(s.cX, n)
	s.cY = resized(s.cY, n)
}

func (s *APIC2) TransferFromParticlesToGrids() error {
	s.resizeAffine()
	affine := [2][]r2.Vec{s.cX, s.cY}
	return ScatterToFaces2(s.particles.Positions(), s.particles.Velocities(), &affine,
		s.Velocity(), [2]*array.Array2[bool]{s.uMarkers, s.vMarkers})
}

func (s *APIC2) TransferFromGridsToParticles() error {
	s.resizeAffine()
	affine := [2][]r2.Vec{s.cX, s.cY}
	return GatherFromFaces2(s.Velocity(), s.particles.Positions(), s.particles.Velocities(), &affine)
}

// resized returns a slice of length n keeping the leading values; new
// entries are zero.
func resized[T any](s []T, n int) []T {
	if len(s) >= n {
		return s[:n]
	}
	return append(s, make([]T, n-len(s))...)
}

var (
	_ gridsolver.Hooks2 = &APIC2{}
	_ Transfer2         = &APIC2{}
)
