package gridsolver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/fdm"
	"github.com/notargets/gofluid/field"
	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/grid"
)

func TestMarkers(t *testing.T) {
	assert.Equal(t, Boundary, Classify(-1, -1))
	assert.Equal(t, Boundary, Classify(-1, 1))
	assert.Equal(t, Fluid, Classify(1, -1))
	assert.Equal(t, Air, Classify(1, 1))
	{ // Test a wall on the left and fluid in the lower half
		var (
			size    = array.Size2{X: 4, Y: 4}
			pos     = func(i, j int) r2.Vec { return r2.Vec{X: float64(i) + 0.5, Y: float64(j) + 0.5} }
			wall    = field.NewCustomScalarField2(func(x r2.Vec) float64 { return x.X - 1 })
			water   = field.NewCustomScalarField2(func(x r2.Vec) float64 { return x.Y - 2 })
			markers = BuildMarkers2(size, pos, wall, water)
		)
		assert.Equal(t, Boundary, markers.At(0, 0))
		assert.Equal(t, Boundary, markers.At(0, 3))
		assert.Equal(t, Fluid, markers.At(2, 1))
		assert.Equal(t, Air, markers.At(2, 3))
		assert.Equal(t, "Air", markers.At(2, 3).String())
	}
}

func TestDiffusionKeepsUniformField(t *testing.T) {
	var (
		res = array.Size2{X: 6, Y: 5}
		h   = r2.Vec{X: 0.2, Y: 0.2}
	)
	for _, solver := range []DiffusionSolver2{
		ForwardEulerDiffusion2{},
		NewBackwardEulerDiffusion2(Dirichlet),
		NewBackwardEulerDiffusion2(Neumann),
	} {
		src := grid.NewCellCenteredScalarGrid2(res, h, r2.Vec{})
		src.Fill(2.5)
		dst := grid.NewCellCenteredScalarGrid2(res, h, r2.Vec{})
		require.NoError(t, solver.Solve(src, 0.01, 0.1, dst, nil, nil))
		dst.ForEachDataPointIndex(func(i, j int) {
			assert.InDelta(t, 2.5, dst.At(i, j), 1e-9)
		})
	}
	{ // Test mismatched grids are rejected
		src := grid.NewCellCenteredScalarGrid2(res, h, r2.Vec{})
		dst := grid.NewCellCenteredScalarGrid2(array.Size2{X: 3, Y: 3}, h, r2.Vec{})
		assert.ErrorIs(t, ForwardEulerDiffusion2{}.Solve(src, 1, 1, dst, nil, nil), grid.ErrShapeMismatch)
	}
}

func TestBackwardEulerSpreadsSpike(t *testing.T) {
	var (
		res = array.Size2{X: 7, Y: 7}
		h   = r2.Vec{X: 1, Y: 1}
		src = grid.NewCellCenteredScalarGrid2(res, h, r2.Vec{})
		dst = grid.NewCellCenteredScalarGrid2(res, h, r2.Vec{})
	)
	src.Set(3, 3, 1)
	for _, compressed := range []bool{false, true} {
		solver := NewBackwardEulerDiffusion2(Neumann)
		solver.UseCompressed = compressed
		require.NoError(t, solver.Solve(src, 1, 1, dst, nil, nil))
		var sum float64
		dst.ForEachDataPointIndex(func(i, j int) { sum += dst.At(i, j) })
		assert.InDelta(t, 1, sum, 1e-8)
		assert.Less(t, dst.At(3, 3), 1.)
		assert.Greater(t, dst.At(2, 3), 0.)
		assert.InDelta(t, dst.At(2, 3), dst.At(4, 3), 1e-9)
		assert.InDelta(t, dst.At(3, 2), dst.At(3, 4), 1e-9)
	}
}

// fallingColumn2 is a closed box moving down at unit speed; the fluid fills
// y < 0.7.
func fallingColumn2(res array.Size2) (vel *grid.FaceCenteredGrid2, fluid field.ScalarField2) {
	h := r2.Vec{X: 1 / float64(res.X), Y: 1 / float64(res.Y)}
	vel = grid.NewFaceCenteredGrid2(res, h, r2.Vec{}, r2.Vec{Y: -1})
	v := vel.V()
	for i := 0; i < res.X; i++ {
		v.Set(i, 0, 0)
		v.Set(i, res.Y, 0)
	}
	fluid = field.NewCustomScalarField2(func(x r2.Vec) float64 { return x.Y - 0.7 })
	return
}

func TestPressureProjectionStopsFallingColumn(t *testing.T) {
	var (
		res = array.Size2{X: 8, Y: 8}
	)
	mg := func() fdm.Solver2 {
		params := fdm.DefaultMGParameters(3)
		params.MaxNumberOfCycles = 200
		params.MaxTolerance = 1e-12
		return fdm.NewMG2(params)
	}
	cases := []struct {
		name       string
		solver     func() PressureSolver2
		compressed bool
	}{
		{"single phase", func() PressureSolver2 { return NewSinglePhasePressure2() }, false},
		{"single phase compressed", func() PressureSolver2 { return NewSinglePhasePressure2() }, true},
		{"single phase multigrid", func() PressureSolver2 {
			s := NewSinglePhasePressure2()
			s.SetLinearSystemSolver(mg())
			return s
		}, false},
		{"fractional", func() PressureSolver2 { return NewFractionalSinglePhasePressure2() }, false},
		{"fractional compressed", func() PressureSolver2 { return NewFractionalSinglePhasePressure2() }, true},
		{"fractional multigrid", func() PressureSolver2 {
			s := NewFractionalSinglePhasePressure2()
			s.SetLinearSystemSolver(mg())
			return s
		}, false},
	}
	for _, tc := range cases {
		vel, fluid := fallingColumn2(res)
		out := grid.NewFaceCenteredGrid2(res, vel.GridSpacing(), r2.Vec{}, r2.Vec{})
		require.NoError(t, tc.solver().Solve(vel, 1./60, out, nil, nil, fluid, tc.compressed), tc.name)
		// faces below and on the free surface come to rest
		for j := 1; j <= 6; j++ {
			for i := 0; i < res.X; i++ {
				assert.InDelta(t, 0, out.V().At(i, j), 1e-4, "%s v(%d,%d)", tc.name, i, j)
			}
		}
		out.ForEachUIndex(func(i, j int) { assert.InDelta(t, 0, out.U().At(i, j), 1e-4, tc.name) })
		// air faces are left alone
		assert.Equal(t, -1., out.V().At(3, 7), tc.name)
	}
	{ // Test the solver without a linear solver copies input
		vel, fluid := fallingColumn2(res)
		out := grid.NewFaceCenteredGrid2(res, vel.GridSpacing(), r2.Vec{}, r2.Vec{})
		s := NewSinglePhasePressure2()
		s.SetLinearSystemSolver(nil)
		require.NoError(t, s.Solve(vel, 1, out, nil, nil, fluid, false))
		assert.Equal(t, -1., out.V().At(2, 3))
	}
}

func TestFractionalWeights(t *testing.T) {
	var (
		res   = array.Size2{X: 4, Y: 4}
		vel   = grid.NewFaceCenteredGrid2(res, r2.Vec{X: 1, Y: 1}, r2.Vec{}, r2.Vec{})
		wall  = field.NewCustomScalarField2(func(x r2.Vec) float64 { return x.X - 1.25 })
		s     = NewFractionalSinglePhasePressure2()
		fluid = field.NewCustomScalarField2(field.AllFluid2)
	)
	s.BuildWeights(vel, []array.Size2{res}, wall, fluid)
	uW, vW := s.Weights()
	// weights are the open fraction along the face normal
	assert.InDelta(t, 0, uW.At(0, 1), 1e-12)
	assert.InDelta(t, 0.25, uW.At(1, 1), 1e-12)
	assert.InDelta(t, 1, uW.At(2, 1), 1e-12)
	assert.InDelta(t, 0, vW.At(0, 2), 1e-12)
	assert.InDelta(t, 1, vW.At(1, 2), 1e-12)
}

func TestPressureProjection3(t *testing.T) {
	var (
		res   = array.Size3{X: 4, Y: 8, Z: 4}
		h     = r3.Vec{X: 0.25, Y: 0.125, Z: 0.25}
		fluid = field.NewCustomScalarField3(func(x r3.Vec) float64 { return x.Y - 0.7 })
	)
	for _, solver := range []PressureSolver3{NewSinglePhasePressure3(), NewFractionalSinglePhasePressure3()} {
		for _, compressed := range []bool{false, true} {
			vel := grid.NewFaceCenteredGrid3(res, h, r3.Vec{}, r3.Vec{Y: -1})
			v := vel.V()
			for k := 0; k < res.Z; k++ {
				for i := 0; i < res.X; i++ {
					v.Set(i, 0, k, 0)
					v.Set(i, res.Y, k, 0)
				}
			}
			out := grid.NewFaceCenteredGrid3(res, h, r3.Vec{}, r3.Vec{})
			require.NoError(t, solver.Solve(vel, 1./60, out, nil, nil, fluid, compressed))
			for k := 0; k < res.Z; k++ {
				for j := 1; j <= 6; j++ {
					for i := 0; i < res.X; i++ {
						assert.InDelta(t, 0, out.V().At(i, j, k), 1e-4)
					}
				}
			}
			assert.Equal(t, -1., out.V().At(1, 7, 1))
		}
	}
}

func TestClosedDomain(t *testing.T) {
	var (
		res = array.Size2{X: 4, Y: 3}
		h   = r2.Vec{X: 1, Y: 1}
	)
	for _, bc := range []BoundaryConditionSolver2{
		NewFractionalBoundaryConditionSolver2(), NewBlockedBoundaryConditionSolver2(),
	} {
		vel := grid.NewFaceCenteredGrid2(res, h, r2.Vec{}, r2.Vec{X: 1, Y: 2})
		bc.SetClosedDomainBoundaryFlag(DirectionLeft | DirectionUp)
		bc.UpdateCollider(nil, res, h, r2.Vec{})
		bc.ConstrainVelocity(vel, 2)
		for j := 0; j < res.Y; j++ {
			assert.Equal(t, 0., vel.U().At(0, j))
			assert.Equal(t, 1., vel.U().At(res.X, j))
		}
		for i := 0; i < res.X; i++ {
			assert.Equal(t, 2., vel.V().At(i, 0))
			assert.Equal(t, 0., vel.V().At(i, res.Y))
		}
		assert.Equal(t, DirectionLeft|DirectionUp, bc.ClosedDomainBoundaryFlag())
	}
}

func TestAnimationSubSteps(t *testing.T) {
	var (
		a            = newAnimation()
		inits, steps int
		dt           = 0.1
	)
	initialize := func() error { inits++; return nil }
	// at most 0.04 per sub step, recomputed for the time left in the frame
	subSteps := func(remaining float64) int { return int(math.Ceil(remaining / 0.04)) }
	step := func(float64) error { steps++; return nil }
	require.NoError(t, a.update(NewFrame(2, dt), initialize, subSteps, step))
	assert.Equal(t, 1, inits)
	assert.Equal(t, 9, steps)
	assert.Equal(t, 2, a.CurrentFrame().Index)
	assert.InDelta(t, 3*dt, a.CurrentTimeInSeconds(), 1e-12)
	// frames already reached are ignored
	require.NoError(t, a.update(NewFrame(1, dt), initialize, subSteps, step))
	assert.Equal(t, 9, steps)

	f := NewFrame(0, 0.5)
	f.Advance()
	f.AdvanceBy(2)
	assert.Equal(t, 3, f.Index)
	assert.InDelta(t, 1.5, f.TimeInSeconds(), 1e-12)
}

func TestFluidSolverGravityStep(t *testing.T) {
	var (
		res = array.Size2{X: 8, Y: 8}
		dt  = 1. / 60
		s   = NewFluidSolver2(res, r2.Vec{X: 0.125, Y: 0.125}, r2.Vec{})
	)
	s.SetPressureSolver(nil)
	assert.Equal(t, 1, s.NumberOfSubTimeSteps(dt))
	require.NoError(t, s.Advance(NewFrame(0, dt)))
	vel := s.Velocity()
	for j := 1; j < 6; j++ {
		for i := 0; i < res.X; i++ {
			assert.InDelta(t, -9.8*dt, vel.V().At(i, j), 1e-9)
		}
	}
	for i := 0; i < res.X; i++ {
		assert.Equal(t, 0., vel.V().At(i, 0))
		assert.Equal(t, 0., vel.V().At(i, res.Y))
	}
	vel.ForEachUIndex(func(i, j int) { assert.InDelta(t, 0, vel.U().At(i, j), 1e-12) })
	assert.InDelta(t, dt, s.CurrentTimeInSeconds(), 1e-12)
	// cell centers average two faces of -9.8*dt plus another gravity increment
	assert.InDelta(t, 2*9.8*dt*dt/0.125, s.CFL(dt), 1e-9)

	s.SetMaxCFL(-1)
	assert.Greater(t, s.MaxCFL(), 0.)
	s.SetViscosityCoefficient(-3)
	assert.Equal(t, 0., s.ViscosityCoefficient())
}

type recordingHooks2 struct {
	*FluidSolver2
	calls []string
}

func (h *recordingHooks2) OnBeginAdvanceTimeStep(float64) error {
	h.calls = append(h.calls, "begin")
	return nil
}

func (h *recordingHooks2) OnEndAdvanceTimeStep(float64) error {
	h.calls = append(h.calls, "end")
	return nil
}

func (h *recordingHooks2) FluidSDF() field.ScalarField2 {
	return field.NewCustomScalarField2(func(x r2.Vec) float64 { return x.Y - 0.7 })
}

func TestFluidSolverHooksAndPressure(t *testing.T) {
	var (
		res   = array.Size2{X: 8, Y: 8}
		dt    = 1. / 60
		s     = NewFluidSolver2(res, r2.Vec{X: 0.125, Y: 0.125}, r2.Vec{})
		hooks = &recordingHooks2{FluidSolver2: s}
	)
	s.SetHooks(hooks)
	s.SetAdvectionSolver(nil)
	require.NoError(t, s.Advance(NewFrame(0, dt)))
	assert.Equal(t, []string{"begin", "end"}, hooks.calls)
	// the water column below the surface stays at rest under gravity
	for j := 1; j <= 5; j++ {
		for i := 0; i < res.X; i++ {
			assert.InDelta(t, 0, s.Velocity().V().At(i, j), 1e-4)
		}
	}
	assert.False(t, math.IsNaN(s.CFL(dt)))
}

func TestFluidSolver3GravityStep(t *testing.T) {
	var (
		res = array.Size3{X: 4, Y: 6, Z: 4}
		dt  = 1. / 60
		s   = NewFluidSolver3(res, r3.Vec{X: 0.25, Y: 0.25, Z: 0.25}, r3.Vec{})
	)
	s.SetPressureSolver(nil)
	s.SetGravity(r3.Vec{Z: -2})
	require.NoError(t, s.Advance(NewFrame(0, dt)))
	w := s.Velocity().W()
	for k := 1; k < 3; k++ {
		assert.InDelta(t, -2*dt, w.At(1, 2, k), 1e-9)
	}
	assert.Equal(t, 0., w.At(1, 2, 0))
	assert.Equal(t, 0., w.At(1, 2, res.Z))
}

func TestFluidSolver3ExtrapolatesIntoCollider(t *testing.T) {
	var (
		res      = array.Size3{X: 8, Y: 8, Z: 8}
		h        = r3.Vec{X: 0.25, Y: 0.25, Z: 0.25}
		s        = NewFluidSolver3(res, h, r3.Vec{})
		center   = r3.Vec{X: 1, Y: 1, Z: 1}
		collider = geometry.NewCollider3(geometry.Sphere3{Center: center, Radius: 0.3})
		inside   = func(x r3.Vec) bool { return r3.Norm(r3.Sub(x, center)) < 0.3 }
	)
	require.NotNil(t, s.BoundaryConditionSolver())
	s.BoundaryConditionSolver().UpdateCollider(collider, res, h, r3.Vec{})
	{ // Test scalar samples inside the sphere take the surrounding value
		g := grid.NewCellCenteredScalarGrid3(res, h, r3.Vec{})
		g.Data().Fill(1)
		pos := g.DataPosition()
		var count int
		g.Data().ForEachIndex(func(i, j, k int) {
			if inside(pos(i, j, k)) {
				g.Set(i, j, k, 100)
				count++
			}
		})
		require.Equal(t, 8, count)
		s.ExtrapolateScalarIntoCollider(g)
		g.Data().ForEachIndex(func(i, j, k int) {
			assert.InDelta(t, 1., g.At(i, j, k), 1e-12, "cell %d %d %d", i, j, k)
		})
	}
	{ // Test face velocities inside the sphere are rebuilt from outside
		vel := grid.NewFaceCenteredGrid3(res, h, r3.Vec{}, r3.Vec{X: 1, Y: 2, Z: 3})
		pos := vel.UPosition()
		var count int
		vel.U().ForEachIndex(func(i, j, k int) {
			if inside(pos(i, j, k)) {
				vel.U().Set(i, j, k, -7)
				count++
			}
		})
		require.Equal(t, 4, count)
		s.ExtrapolateFaceIntoCollider(vel)
		vel.U().ForEachIndex(func(i, j, k int) {
			assert.InDelta(t, 1., vel.U().At(i, j, k), 1e-12)
		})
		assert.Equal(t, 2., vel.V().At(4, 4, 4))
	}
}
