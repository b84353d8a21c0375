package gridsolver

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/notargets/gofluid/advection"
	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/field"
	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/grid"
	"github.com/notargets/gofluid/levelset"
)

// Hooks2 are the steps of FluidSolver2.OnAdvanceTimeStep a particle solver
// replaces. FluidSolver2 is its own default.
type Hooks2 interface {
	OnInitialize() error
	OnBeginAdvanceTimeStep(dt float64) error
	OnEndAdvanceTimeStep(dt float64) error
	ComputeAdvection(dt float64) error
	FluidSDF() field.ScalarField2
}

// FluidSolver2 advances a face centered velocity and its advectable layers
// through external forces, viscosity, pressure projection and advection.
type FluidSolver2 struct {
	animation
	grids         *grid.GridSystemData2
	gravity       r2.Vec
	viscosity     float64
	maxCFL        float64
	useCompressed bool
	closedDomain  Direction
	advection     advection.Solver2
	diffusion     DiffusionSolver2
	pressure      PressureSolver2
	bc            BoundaryConditionSolver2
	collider      *geometry.Collider2
	hooks         Hooks2
}

func NewFluidSolver2(resolution array.Size2, gridSpacing, origin r2.Vec) (s *FluidSolver2) {
	s = &FluidSolver2{
		animation:    newAnimation(),
		grids:        grid.NewGridSystemData2(resolution, gridSpacing, origin),
		gravity:      r2.Vec{Y: -9.8},
		maxCFL:       5,
		closedDomain: DirectionAll,
		advection:    advection.NewCubicSemiLagrangian2(),
		diffusion:    NewBackwardEulerDiffusion2(Dirichlet),
	}
	s.hooks = s
	s.SetPressureSolver(NewFractionalSinglePhasePressure2())
	return
}

func (s *FluidSolver2) GridSystemData() *grid.GridSystemData2 { return s.grids }

func (s *FluidSolver2) Velocity() *grid.FaceCenteredGrid2 { return s.grids.Velocity() }

// ResizeGrid resizes the velocity and every data layer.
func (s *FluidSolver2) ResizeGrid(resolution array.Size2, gridSpacing, origin r2.Vec) {
	s.grids.Resize(resolution, gridSpacing, origin)
}

func (s *FluidSolver2) Gravity() r2.Vec     { return s.gravity }
func (s *FluidSolver2) SetGravity(g r2.Vec) { s.gravity = g }

func (s *FluidSolver2) ViscosityCoefficient() float64 { return s.viscosity }

// SetViscosityCoefficient clamps negative values to zero.
func (s *FluidSolver2) SetViscosityCoefficient(v float64) { s.viscosity = math.Max(v, 0) }

func (s *FluidSolver2) MaxCFL() float64 { return s.maxCFL }

func (s *FluidSolver2) SetMaxCFL(cfl float64) { s.maxCFL = math.Max(cfl, epsilon) }

func (s *FluidSolver2) UseCompressedLinearSystem() bool { return s.useCompressed }

func (s *FluidSolver2) SetUseCompressedLinearSystem(onoff bool) { s.useCompressed = onoff }

func (s *FluidSolver2) ClosedDomainBoundaryFlag() Direction { return s.closedDomain }

func (s *FluidSolver2) SetClosedDomainBoundaryFlag(flag Direction) {
	s.closedDomain = flag
	if s.bc != nil {
		s.bc.SetClosedDomainBoundaryFlag(flag)
	}
}

func (s *FluidSolver2) AdvectionSolver() advection.Solver2                 { return s.advection }
func (s *FluidSolver2) SetAdvectionSolver(a advection.Solver2)             { s.advection = a }
func (s *FluidSolver2) DiffusionSolver() DiffusionSolver2                  { return s.diffusion }
func (s *FluidSolver2) SetDiffusionSolver(d DiffusionSolver2)              { s.diffusion = d }
func (s *FluidSolver2) PressureSolver() PressureSolver2                    { return s.pressure }
func (s *FluidSolver2) BoundaryConditionSolver() BoundaryConditionSolver2 { return s.bc }

// SetPressureSolver also installs the boundary condition solver the
// pressure solver works with.
func (s *FluidSolver2) SetPressureSolver(p PressureSolver2) {
	s.pressure = p
	if p != nil {
		s.bc = p.SuggestedBoundaryConditionSolver()
		s.bc.SetClosedDomainBoundaryFlag(s.closedDomain)
	}
}

func (s *FluidSolver2) Collider() *geometry.Collider2 { return s.collider }

func (s *FluidSolver2) SetCollider(c *geometry.Collider2) { s.collider = c }

// SetHooks replaces the begin, end and advection steps and the fluid SDF.
func (s *FluidSolver2) SetHooks(h Hooks2) { s.hooks = h }

// ColliderSDF is positive outside the collider everywhere when there is
// none.
func (s *FluidSolver2) ColliderSDF() field.ScalarField2 {
	if s.bc == nil {
		return field.NewCustomScalarField2(field.NoBoundary2)
	}
	return s.bc.ColliderSDF()
}

func (s *FluidSolver2) ColliderVelocityField() field.VectorField2 {
	if s.bc == nil {
		return field.ConstantVectorField2{}
	}
	return s.bc.ColliderVelocityField()
}

// CFL is the largest distance in cells a fluid element may move in dt,
// including the gravity increment.
func (s *FluidSolver2) CFL(dt float64) float64 {
	var (
		vel    = s.grids.Velocity()
		maxVel float64
		h      = s.grids.GridSpacing()
	)
	s.grids.ForEachCellIndex(func(i, j int) {
		v := r2.Add(vel.ValueAtCellCenter(i, j), r2.Scale(dt, s.gravity))
		maxVel = math.Max(maxVel, math.Max(math.Abs(v.X), math.Abs(v.Y)))
	})
	return maxVel * dt / minSpacing2(h)
}

func minSpacing2(h r2.Vec) float64 { return math.Min(h.X, h.Y) }

func (s *FluidSolver2) NumberOfSubTimeSteps(dt float64) int {
	return max(int(math.Ceil(s.CFL(dt)/s.maxCFL)), 1)
}

// Advance moves the simulation forward to frame.
func (s *FluidSolver2) Advance(frame Frame) error {
	return s.update(frame, s.initialize, s.NumberOfSubTimeSteps, s.OnAdvanceTimeStep)
}

func (s *FluidSolver2) initialize() error {
	s.updateCollider(0)
	return s.hooks.OnInitialize()
}

func (s *FluidSolver2) updateCollider(dt float64) {
	if s.collider != nil {
		s.collider.Update(s.currentTime, dt)
	}
}

func (s *FluidSolver2) extrapolationDepth() int { return int(math.Ceil(s.maxCFL)) }

// ApplyBoundaryCondition constrains the velocity to the collider and the
// closed walls.
func (s *FluidSolver2) ApplyBoundaryCondition() {
	if s.bc != nil {
		s.bc.ConstrainVelocity(s.grids.Velocity(), s.extrapolationDepth())
	}
}

// OnAdvanceTimeStep runs one sub step of length dt.
func (s *FluidSolver2) OnAdvanceTimeStep(dt float64) (err error) {
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

func (s *FluidSolver2) beginAdvanceTimeStep(dt float64) error {
	s.updateCollider(dt)
	if s.bc != nil {
		vel := s.grids.Velocity()
		s.bc.UpdateCollider(s.collider, vel.Resolution(), vel.GridSpacing(), vel.Origin())
	}
	s.ApplyBoundaryCondition()
	return s.hooks.OnBeginAdvanceTimeStep(dt)
}

func (s *FluidSolver2) OnInitialize() error { return nil }

func (s *FluidSolver2) OnBeginAdvanceTimeStep(float64) error { return nil }

func (s *FluidSolver2) OnEndAdvanceTimeStep(float64) error { return nil }

// ComputeExternalForces adds gravity.
func (s *FluidSolver2) ComputeExternalForces(dt float64) error {
	if r2.Norm2(s.gravity) <= epsilon {
		return nil
	}
	vel := s.grids.Velocity()
	if math.Abs(s.gravity.X) > epsilon {
		u := vel.U()
		vel.ParallelForEachUIndex(func(i, j int) { u.Set(i, j, u.At(i, j)+dt*s.gravity.X) })
	}
	if math.Abs(s.gravity.Y) > epsilon {
		v := vel.V()
		vel.ParallelForEachVIndex(func(i, j int) { v.Set(i, j, v.At(i, j)+dt*s.gravity.Y) })
	}
	s.ApplyBoundaryCondition()
	return nil
}

func (s *FluidSolver2) ComputeViscosity(dt float64) error {
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

func (s *FluidSolver2) ComputePressure(dt float64) error {
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

// ComputeAdvection advects every advectable layer and then the velocity
// itself, all through the velocity at the start of the step.
func (s *FluidSolver2) ComputeAdvection(dt float64) error {
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
func (s *FluidSolver2) FluidSDF() field.ScalarField2 {
	return field.NewCustomScalarField2(field.AllFluid2)
}

func (s *FluidSolver2) colliderValid(size array.Size2, pos func(i, j int) r2.Vec) (valid *array.Array2[bool]) {
	var (
		sdf = s.ColliderSDF()
	)
	valid = array.NewArray2[bool](size.X, size.Y)
	valid.ParallelForEachIndex(func(i, j int) {
		valid.Set(i, j, !levelset.IsInsideSDF(sdf.Sample(pos(i, j))))
	})
	return
}

// ExtrapolateScalarIntoCollider overwrites the samples inside the collider
// with values pushed in from outside.
func (s *FluidSolver2) ExtrapolateScalarIntoCollider(g *grid.ScalarGrid2) {
	valid := s.colliderValid(g.DataSize(), g.DataPosition())
	array.ExtrapolateToRegion2(array.Float64Ops, g.Data(), valid, s.extrapolationDepth(), g.Data())
}

func (s *FluidSolver2) ExtrapolateVectorIntoCollider(g *grid.CollocatedVectorGrid2) {
	valid := s.colliderValid(g.DataSize(), g.DataPosition())
	array.ExtrapolateToRegion2(array.Vec2Ops, g.Data(), valid, s.extrapolationDepth(), g.Data())
}

func (s *FluidSolver2) ExtrapolateFaceIntoCollider(g *grid.FaceCenteredGrid2) {
	positions := [2]func(i, j int) r2.Vec{g.UPosition(), g.VPosition()}
	for axis := 0; axis < 2; axis++ {
		data, _, _ := g.Component(axis)
		valid := s.colliderValid(data.Size(), positions[axis])
		array.ExtrapolateToRegion2(array.Float64Ops, data, valid, s.extrapolationDepth(), data)
	}
}

var _ Hooks2 = &FluidSolver2{}
