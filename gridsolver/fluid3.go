package gridsolver

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/advection"
	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/field"
	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/grid"
	"github.com/notargets/gofluid/levelset"
)

type Hooks3 interface {
	OnInitialize() error
	OnBeginAdvanceTimeStep(dt float64) error
	OnEndAdvanceTimeStep(dt float64) error
	ComputeAdvection(dt float64) error
	FluidSDF() field.ScalarField3
}

type FluidSolver3 struct {
	animation
	grids         *grid.GridSystemData3
	gravity       r3.Vec
	viscosity     float64
	maxCFL        float64
	useCompressed bool
	closedDomain  Direction
	advection     advection.Solver3
	diffusion     DiffusionSolver3
	pressure      PressureSolver3
	bc            BoundaryConditionSolver3
	collider      *geometry.Collider3
	hooks         Hooks3
}

func NewFluidSolver3(resolution array.Size3, gridSpacing, origin r3.Vec) (s *FluidSolver3) {
	s = &FluidSolver3{
		animation:    newAnimation(),
		grids:        grid.NewGridSystemData3(resolution, gridSpacing, origin),
		gravity:      r3.Vec{Y: -9.8},
		maxCFL:       5,
		closedDomain: DirectionAll,
		advection:    advection.NewCubicSemiLagrangian3(),
		diffusion:    NewBackwardEulerDiffusion3(Dirichlet),
	}
	s.hooks = s
	s.SetPressureSolver(NewFractionalSinglePhasePressure3())
	return
}

func (s *FluidSolver3) GridSystemData() *grid.GridSystemData3 { return s.grids }

func (s *FluidSolver3) Velocity() *grid.FaceCenteredGrid3 { return s.grids.Velocity() }

// ResizeGrid resizes the velocity and every data layer.
func (s *FluidSolver3) ResizeGrid(resolution array.Size3, gridSpacing, origin r3.Vec) {
	s.grids.Resize(resolution, gridSpacing, origin)
}

func (s *FluidSolver3) Gravity() r3.Vec     { return s.gravity }
func (s *FluidSolver3) SetGravity(g r3.Vec) { s.gravity = g }

func (s *FluidSolver3) ViscosityCoefficient() float64 { return s.viscosity }

// SetViscosityCoefficient clamps negative values to zero.
func (s *FluidSolver3) SetViscosityCoefficient(v float64) { s.viscosity = math.Max(v, 0) }

func (s *FluidSolver3) MaxCFL() float64 { return s.maxCFL }

func (s *FluidSolver3) SetMaxCFL(cfl float64) { s.maxCFL = math.Max(cfl, epsilon) }

func (s *FluidSolver3) UseCompressedLinearSystem() bool { return s.useCompressed }

func (s *FluidSolver3) SetUseCompressedLinearSystem(onoff bool) { s.useCompressed = onoff }

func (s *FluidSolver3) ClosedDomainBoundaryFlag() Direction { return s.closedDomain }

func (s *FluidSolver3) SetClosedDomainBoundaryFlag(flag Direction) {
	s.closedDomain = flag
	if s.bc != nil {
		s.bc.SetClosedDomainBoundaryFlag(flag)
	}
}

func (s *FluidSolver3) AdvectionSolver() advection.Solver3                { return s.advection }
func (s *FluidSolver3) SetAdvectionSolver(a advection.Solver3)            { s.advection = a }
func (s *FluidSolver3) DiffusionSolver() DiffusionSolver3                 { return s.diffusion }
func (s *FluidSolver3) SetDiffusionSolver(d DiffusionSolver3)             { s.diffusion = d }
func (s *FluidSolver3) PressureSolver() PressureSolver3                   { return s.pressure }
func (s *FluidSolver3) BoundaryConditionSolver() BoundaryConditionSolver3 { return s.bc }

// SetPressureSolver also installs the boundary condition solver the
// pressure solver works with.
func (s *FluidSolver3) SetPressureSolver(p PressureSolver3) {
	s.pressure = p
	if p != nil {
		s.bc = p.SuggestedBoundaryConditionSolver()
		s.bc.SetClosedDomainBoundaryFlag(s.closedDomain)
	}
}

func (s *FluidSolver3) Collider() *geometry.Collider3 { return s.collider }

func (s *FluidSolver3) SetCollider(c *geometry.Collider3) { s.collider = c }

// SetHooks replaces the begin, end and advection steps and the fluid SDF.
func (s *FluidSolver3) SetHooks(h Hooks3) { s.hooks = h }

// ColliderSDF is positive outside the collider everywhere when there is
// none.
func (s *FluidSolver3) ColliderSDF() field.ScalarField3 {
	if s.bc == nil {
		return field.NewCustomScalarField3(field.NoBoundary3)
	}
	return s.bc.ColliderSDF()
}

func (s *FluidSolver3) ColliderVelocityField() field.VectorField3 {
	if s.bc == nil {
		return field.ConstantVectorField3{}
	}
	return s.bc.ColliderVelocityField()
}

func (s *FluidSolver3) CFL(dt float64) float64 {
	var (
		vel    = s.grids.Velocity()
		maxVel float64
		h      = s.grids.GridSpacing()
	)
	s.grids.ForEachCellIndex(func(i, j, k int) {
		v := r3.Add(vel.ValueAtCellCenter(i, j, k), r3.Scale(dt, s.gravity))
		maxVel = math.Max(maxVel, math.Max(math.Abs(v.X), math.Max(math.Abs(v.Y), math.Abs(v.Z))))
	})
	return maxVel * dt / math.Min(h.X, math.Min(h.Y, h.Z))
}

func (s *FluidSolver3) NumberOfSubTimeSteps(dt float64) int {
	return max(int(math.Ceil(s.CFL(dt)/s.maxCFL)), 1)
}

// Advance moves the simulation forward to frame.
func (s *FluidSolver3) Advance(frame Frame) error {
	return s.update(frame, s.initialize, s.NumberOfSubTimeSteps, s.OnAdvanceTimeStep)
}

func (s *FluidSolver3) initialize() error {
	s.updateCollider(0)
	return s.hooks.OnInitialize()
}

func (s *FluidSolver3) updateCollider(dt float64) {
	if s.collider != nil {
		s.collider.Update(s.currentTime, dt)
	}
}

func (s *FluidSolver3) extrapolationDepth() int { return int(math.Ceil(s.maxCFL)) }

// ApplyBoundaryCondition constrains the velocity to the collider and the
// closed walls.
func (s *FluidSolver3) ApplyBoundaryCondition() {
	if s.bc != nil {
		s.bc.ConstrainVelocity(s.grids.Velocity(), s.extrapolationDepth())
	}
}

// OnAdvanceTimeStep runs one sub step of length dt.
func (s *FluidSolver3) OnAdvanceTimeStep(dt float64) (err error) {
	if s.grids.Resolution().Len() == 0 {
		slog.Warn("empty grid, skipping time step")
		return
	}
	steps := []struct {
		name string
		fn   func(float64) error
	}{
		{"begin", s.beginAdvanceTimeStep},
		{"external forces", s.ComputeExternalForces},
		{"viscosity", s.ComputeViscosity},
		{"pressure", s.ComputePressure},
		{"advection", s.hooks.ComputeAdvection},
		{"end", s.hooks.OnEndAdvanceTimeStep},
	}
	for _, step := range steps {
		start := time.Now()
		if err = step.fn(dt); err != nil {
			return fmt.Errorf("%s step: %w", step.name, err)
		}
		slog.Debug("fluid step", "step", step.name, "dt", dt, "elapsed", time.Since(start))
	}
	return
}

func (s *FluidSolver3) beginAdvanceTimeStep(dt float64) error {
	s.updateCollider(dt)
	if s.bc != nil {
		vel := s.grids.Velocity()
		s.bc.UpdateCollider(s.collider, vel.Resolution(), vel.GridSpacing(), vel.Origin())
	}
	s.ApplyBoundaryCondition()
	return s.hooks.OnBeginAdvanceTimeStep(dt)
}

func (s *FluidSolver3) OnInitialize() error { return nil }

func (s *FluidSolver3) OnBeginAdvanceTimeStep(float64) error { return nil }

func (s *FluidSolver3) OnEndAdvanceTimeStep(float64) error { return nil }

// ComputeExternalForces adds gravity.
func (s *FluidSolver3) ComputeExternalForces(dt float64) error {
	if r3.Norm2(s.gravity) <= epsilon {
		return nil
	}
	vel := s.grids.Velocity()
	for axis := 0; axis < 3; axis++ {
		g := geometry.Component3(s.gravity, axis)
		if math.Abs(g) <= epsilon {
			continue
		}
		data, _, _ := vel.Component(axis)
		data.ParallelForEachIndex(func(i, j, k int) { data.Set(i, j, k, data.At(i, j, k)+dt*g) })
	}
	s.ApplyBoundaryCondition()
	return nil
}

func (s *FluidSolver3) ComputeViscosity(dt float64) error {
	if s.diffusion == nil || s.viscosity <= epsilon {
		return nil
	}
	vel := s.grids.Velocity()
	if err := s.diffusion.SolveFaceCentered(vel.Clone(), s.viscosity, dt, vel,
		s.ColliderSDF(), s.hooks.FluidSDF()); err != nil {
		return err
	}
	s.ApplyBoundaryCondition()
	return nil
}

func (s *FluidSolver3) ComputePressure(dt float64) error {
	if s.pressure == nil {
		return nil
	}
	vel := s.grids.Velocity()
	if err := s.pressure.Solve(vel.Clone(), dt, vel, s.ColliderSDF(), s.ColliderVelocityField(),
		s.hooks.FluidSDF(), s.useCompressed); err != nil {
		return err
	}
	s.ApplyBoundaryCondition()
	return nil
}

func (s *FluidSolver3) ComputeAdvection(dt float64) error {
	if s.advection == nil {
		return nil
	}
	var (
		vel      = s.grids.Velocity()
		boundary = s.ColliderSDF()
	)
	for i := 0; i < s.grids.NumberOfAdvectableScalarData(); i++ {
		g := s.grids.AdvectableScalarDataAt(i)
		s.advection.Advect(g.Clone(), vel, dt, g, boundary)
		s.ExtrapolateScalarIntoCollider(g)
	}
	for i := 0; i < s.grids.NumberOfAdvectableVectorData(); i++ {
		g := s.grids.AdvectableVectorDataAt(i)
		s.advection.AdvectCollocated(g.Clone(), vel, dt, g, boundary)
		s.ExtrapolateVectorIntoCollider(g)
	}
	vel0 := vel.Clone()
	s.advection.AdvectFaceCentered(vel0, vel0, dt, vel, boundary)
	s.ApplyBoundaryCondition()
	return nil
}

// FluidSDF is negative everywhere: the whole domain is fluid.
func (s *FluidSolver3) FluidSDF() field.ScalarField3 {
	return field.NewCustomScalarField3(field.AllFluid3)
}

func (s *FluidSolver3) colliderValid(size array.Size3, pos func(i, j, k int) r3.Vec) (valid *array.Array3[bool]) {
	var (
		sdf = s.ColliderSDF()
	)
	valid = array.NewArray3[bool](size.X, size.Y, size.Z)
	valid.ParallelForEachIndex(func(i, j, k int) {
		valid.Set(i, j, k, !levelset.IsInsideSDF(sdf.Sample(pos(i, j, k))))
	})
	return
}

// ExtrapolateScalarIntoCollider overwrites the samples inside the collider
// with values pushed in from outside.
func (s *FluidSolver3) ExtrapolateScalarIntoCollider(g *grid.ScalarGrid3) {
	valid := s.colliderValid(g.DataSize(), g.DataPosition())
	array.ExtrapolateToRegion3(array.Float64Ops, g.Data(), valid, s.extrapolationDepth(), g.Data())
}

func (s *FluidSolver3) ExtrapolateVectorIntoCollider(g *grid.CollocatedVectorGrid3) {
	valid := s.colliderValid(g.DataSize(), g.DataPosition())
	array.ExtrapolateToRegion3(array.Vec3Ops, g.Data(), valid, s.extrapolationDepth(), g.Data())
}

func (s *FluidSolver3) ExtrapolateFaceIntoCollider(g *grid.FaceCenteredGrid3) {
	positions := [3]func(i, j, k int) r3.Vec{g.UPosition(), g.VPosition(), g.WPosition()}
	for axis := 0; axis < 3; axis++ {
		data, _, _ := g.Component(axis)
		valid := s.colliderValid(data.Size(), positions[axis])
		array.ExtrapolateToRegion3(array.Float64Ops, data, valid, s.extrapolationDepth(), data)
	}
}

var _ Hooks3 = &FluidSolver3{}
