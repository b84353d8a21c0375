package hybrid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/field"
	"github.com/notargets/gofluid/grid"
	"github.com/notargets/gofluid/gridsolver"
	"github.com/notargets/gofluid/particle"
)

// Transfer2 moves velocity between the particles and the staggered grid.
// FLIP2 and APIC2 replace the PIC2 versions.
type Transfer2 interface {
	TransferFromParticlesToGrids() error
	TransferFromGridsToParticles() error
}

// PIC2 is a particle-in-cell solver: the particles own the velocity and the
// fluid region, the grid is rebuilt from them every sub step.
type PIC2 struct {
	*gridsolver.FluidSolver2
	particles          *particle.SystemData2
	emitter            particle.Emitter2
	signedDistanceIdx  int
	uMarkers, vMarkers *array.Array2[bool]
	transfer           Transfer2
}

func NewPIC2(resolution array.Size2, gridSpacing, origin r2.Vec) (s *PIC2) {
	s = &PIC2{
		FluidSolver2: gridsolver.NewFluidSolver2(resolution, gridSpacing, origin),
		particles:    particle.NewSystemData2(0),
		uMarkers:     array.NewArray2[bool](0, 0),
		vMarkers:     array.NewArray2[bool](0, 0),
	}
	s.signedDistanceIdx = s.GridSystemData().AddScalarData(grid.CellCentered, math.MaxFloat64)
	s.transfer = s
	s.SetHooks(s)
	return
}

func (s *PIC2) ParticleSystemData() *particle.SystemData2 { return s.particles }

func (s *PIC2) ParticleEmitter() particle.Emitter2 { return s.emitter }

// SetParticleEmitter installs an emitter that is called once at start up and
// at the beginning of every sub step.
func (s *PIC2) SetParticleEmitter(e particle.Emitter2) { s.emitter = e }

// SignedDistanceField is the fluid surface rebuilt from the particles.
func (s *PIC2) SignedDistanceField() *grid.ScalarGrid2 {
	return s.GridSystemData().ScalarDataAt(s.signedDistanceIdx)
}

func (s *PIC2) FluidSDF() field.ScalarField2 { return s.SignedDistanceField() }

func (s *PIC2) OnInitialize() error {
	s.updateEmitter(0)
	return nil
}

func (s *PIC2) updateEmitter(dt float64) {
	if s.emitter != nil {
		s.emitter.Update(s.particles, s.CurrentTimeInSeconds(), dt)
	}
}

func (s *PIC2) OnBeginAdvanceTimeStep(dt float64) (err error) {
	s.updateEmitter(dt)
	if err = s.transfer.TransferFromParticlesToGrids(); err != nil {
		return fmt.Errorf("particles to grid: %w", err)
	}
	s.BuildSignedDistanceField()
	s.ExtrapolateVelocityToAir()
	s.ApplyBoundaryCondition()
	return
}

func (s *PIC2) ComputeAdvection(dt float64) (err error) {
	s.ExtrapolateVelocityToAir()
	s.ApplyBoundaryCondition()
	if err = s.transfer.TransferFromGridsToParticles(); err != nil {
		return fmt.Errorf("grid to particles: %w", err)
	}
	s.MoveParticles(dt)
	return
}

func (s *PIC2) TransferFromParticlesToGrids() error {
	return ScatterToFaces2(s.particles.Positions(), s.particles.Velocities(), nil,
		s.Velocity(), [2]*array.Array2[bool]{s.uMarkers, s.vMarkers})
}

func (s *PIC2) TransferFromGridsToParticles() error {
	return GatherFromFaces2(s.Velocity(), s.particles.Positions(), s.particles.Velocities(), nil)
}

// MoveParticles integrates the particle positions through the grid velocity
// with the mid-point rule, then keeps them inside the closed walls and out of
// the collider.
func (s *PIC2) MoveParticles(dt float64) {
	var (
		flow     = s.Velocity()
		bbox     = flow.BoundingBox()
		flags    = s.ClosedDomainBoundaryFlag()
		collider = s.Collider()
		subSteps = max(int(s.MaxCFL()), 1)
		subDt    = dt / float64(subSteps)
		pos      = s.particles.Positions()
		vel      = s.particles.Velocities()
	)
	parallelFor(len(pos), func(n int) {
		pt := pos[n]
		for t := 0; t < subSteps; t++ {
			mid := r2.Add(pt, r2.Scale(0.5*subDt, flow.Sample(pt)))
			pt = r2.Add(pt, r2.Scale(subDt, flow.Sample(mid)))
		}
		v := vel[n]
		if flags&gridsolver.DirectionLeft != 0 && pt.X <= bbox.Lower.X {
			pt.X, v.X = bbox.Lower.X, 0
		}
		if flags&gridsolver.DirectionRight != 0 && pt.X >= bbox.Upper.X {
			pt.X, v.X = bbox.Upper.X, 0
		}
		if flags&gridsolver.DirectionDown != 0 && pt.Y <= bbox.Lower.Y {
			pt.Y, v.Y = bbox.Lower.Y, 0
		}
		if flags&gridsolver.DirectionUp != 0 && pt.Y >= bbox.Upper.Y {
			pt.Y, v.Y = bbox.Upper.Y, 0
		}
		if collider != nil {
			collider.ResolveCollision(0, 0, &pt, &v)
		}
		pos[n], vel[n] = pt, v
	})
}

// ExtrapolateVelocityToAir pushes the velocity of faces touched by particles
// into the untouched ones.
func (s *PIC2) ExtrapolateVelocityToAir() {
	var (
		vel     = s.Velocity()
		depth   = int(math.Ceil(s.MaxCFL()))
		markers = [2]*array.Array2[bool]{s.uMarkers, s.vMarkers}
	)
	for axis := 0; axis < 2; axis++ {
		data, _, _ := vel.Component(axis)
		if markers[axis].Size() != data.Size() {
			continue
		}
		array.ExtrapolateToRegion2(array.Float64Ops, data, markers[axis], depth, data)
	}
}

// BuildSignedDistanceField draws a disc around every particle and takes the
// union, limited to a narrow band, then fills the collider interior.
func (s *PIC2) BuildSignedDistanceField() {
	var (
		sdf    = s.SignedDistanceField()
		pos    = sdf.DataPosition()
		h      = sdf.GridSpacing()
		radius = sdfRadius(math.Max(h.X, h.Y), 2)
		band   = 2 * radius
	)
	s.particles.BuildNeighborSearcher(band)
	ns := s.particles.NeighborSearcher()
	sdf.ParallelForEachDataPointIndex(func(i, j int) {
		var (
			x       = pos(i, j)
			minDist = band
		)
		ns.ForEachNearbyPoint(x, band, func(_ int, p r2.Vec) {
			minDist = math.Min(minDist, r2.Norm(r2.Sub(x, p)))
		})
		sdf.Set(i, j, minDist-radius)
	})
	s.ExtrapolateScalarIntoCollider(sdf)
}

var (
	_ gridsolver.Hooks2 = &PIC2{}
	_ Transfer2         = &PIC2{}
)
