package hybrid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/field"
	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/grid"
	"github.com/notargets/gofluid/gridsolver"
	"github.com/notargets/gofluid/particle"
)

type Transfer3 interface {
	TransferFromParticlesToGrids() error
	TransferFromGridsToParticles() error
}

// PIC3 is the 3D PIC2.
type PIC3 struct {
	*gridsolver.FluidSolver3
	particles         *particle.SystemData3
	emitter           particle.Emitter3
	signedDistanceIdx int
	markers           [3]*array.Array3[bool]
	transfer          Transfer3
}

func NewPIC3(resolution array.Size3, gridSpacing, origin r3.Vec) (s *PIC3) {
	s = &PIC3{
		FluidSolver3: gridsolver.NewFluidSolver3(resolution, gridSpacing, origin),
		particles:    particle.NewSystemData3(0),
	}
	for axis := range s.markers {
		s.markers[axis] = array.NewArray3[bool](0, 0, 0)
	}
	s.signedDistanceIdx = s.GridSystemData().AddScalarData(grid.CellCentered, math.MaxFloat64)
	s.transfer = s
	s.SetHooks(s)
	return
}

func (s *PIC3) ParticleSystemData() *particle.SystemData3 { return s.particles }

func (s *PIC3) ParticleEmitter() particle.Emitter3 { return s.emitter }

func (s *PIC3) SetParticleEmitter(e particle.Emitter3) { s.emitter = e }

func (s *PIC3) SignedDistanceField() *grid.ScalarGrid3 {
	return s.GridSystemData().ScalarDataAt(s.signedDistanceIdx)
}

func (s *PIC3) FluidSDF() field.ScalarField3 { return s.SignedDistanceField() }

func (s *PIC3) OnInitialize() error {
	s.updateEmitter(0)
	return nil
}

func (s *PIC3) updateEmitter(dt float64) {
	if s.emitter != nil {
		s.emitter.Update(s.particles, s.CurrentTimeInSeconds(), dt)
	}
}

func (s *PIC3) OnBeginAdvanceTimeStep(dt float64) (err error) {
	s.updateEmitter(dt)
	if err = s.transfer.TransferFromParticlesToGrids(); err != nil {
		return fmt.Errorf("particles to grid: %w", err)
	}
	s.BuildSignedDistanceField()
	s.ExtrapolateVelocityToAir()
	s.ApplyBoundaryCondition()
	return
}

func (s *PIC3) ComputeAdvection(dt float64) (err error) {
	s.ExtrapolateVelocityToAir()
	s.ApplyBoundaryCondition()
	if err = s.transfer.TransferFromGridsToParticles(); err != nil {
		return fmt.Errorf("grid to particles: %w", err)
	}
	s.MoveParticles(dt)
	return
}

func (s *PIC3) TransferFromParticlesToGrids() error {
	return ScatterToFaces3(s.particles.Positions(), s.particles.Velocities(), nil, s.Velocity(), s.markers)
}

func (s *PIC3) TransferFromGridsToParticles() error {
	return GatherFromFaces3(s.Velocity(), s.particles.Positions(), s.particles.Velocities(), nil)
}

func (s *PIC3) MoveParticles(dt float64) {
	var (
		flow     = s.Velocity()
		bbox     = flow.BoundingBox()
		flags    = s.ClosedDomainBoundaryFlag()
		collider = s.Collider()
		subSteps = max(int(s.MaxCFL()), 1)
		subDt    = dt / float64(subSteps)
		pos      = s.particles.Positions()
		vel      = s.particles.Velocities()
		walls    = [3][2]gridsolver.Direction{
			{gridsolver.DirectionLeft, gridsolver.DirectionRight},
			{gridsolver.DirectionDown, gridsolver.DirectionUp},
			{gridsolver.DirectionBack, gridsolver.DirectionFront},
		}
	)
	parallelFor(len(pos), func(n int) {
		pt := pos[n]
		for t := 0; t < subSteps; t++ {
			mid := r3.Add(pt, r3.Scale(0.5*subDt, flow.Sample(pt)))
			pt = r3.Add(pt, r3.Scale(subDt, flow.Sample(mid)))
		}
		v := vel[n]
		for axis := 0; axis < 3; axis++ {
			var (
				x  = geometry.Component3(pt, axis)
				lo = geometry.Component3(bbox.Lower, axis)
				hi = geometry.Component3(bbox.Upper, axis)
			)
			if flags&walls[axis][0] != 0 && x <= lo {
				pt, v = geometry.WithComponent3(pt, axis, lo), geometry.WithComponent3(v, axis, 0)
			}
			if flags&walls[axis][1] != 0 && x >= hi {
				pt, v = geometry.WithComponent3(pt, axis, hi), geometry.WithComponent3(v, axis, 0)
			}
		}
		if collider != nil {
			collider.ResolveCollision(0, 0, &pt, &v)
		}
		pos[n], vel[n] = pt, v
	})
}

func (s *PIC3) ExtrapolateVelocityToAir() {
	var (
		vel   = s.Velocity()
		depth = int(math.Ceil(s.MaxCFL()))
	)
	for axis := 0; axis < 3; axis++ {
		data, _, _ := vel.Component(axis)
		if s.markers[axis].Size() != data.Size() {
			continue
		}
		array.ExtrapolateToRegion3(array.Float64Ops, data, s.markers[axis], depth, data)
	}
}

func (s *PIC3) BuildSignedDistanceField() {
	var (
		sdf    = s.SignedDistanceField()
		pos    = sdf.DataPosition()
		h      = sdf.GridSpacing()
		radius = sdfRadius(math.Max(h.X, math.Max(h.Y, h.Z)), 3)
		band   = 2 * radius
	)
	s.particles.BuildNeighborSearcher(band)
	ns := s.particles.NeighborSearcher()
	sdf.ParallelForEachDataPointIndex(func(i, j, k int) {
		var (
			x       = pos(i, j, k)
			minDist = band
		)
		ns.ForEachNearbyPoint(x, band, func(_ int, p r3.Vec) {
			minDist = math.Min(minDist, r3.Norm(r3.Sub(x, p)))
		})
		sdf.Set(i, j, k, minDist-radius)
	})
	s.ExtrapolateScalarIntoCollider(sdf)
}

var (
	_ gridsolver.Hooks3 = &PIC3{}
	_ Transfer3         = &PIC3{}
)
