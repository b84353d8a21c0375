package hybrid

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/grid"
	"github.com/notargets/gofluid/gridsolver"
	"github.com/notargets/gofluid/particle"
)

var (
	res2 = array.Size2{X: 8, Y: 8}
	h2   = r2.Vec{X: 0.125, Y: 0.125}
)

func randomPositions2(rng *rand.Rand, n int, lo, hi float64) (pos []r2.Vec) {
	pos = make([]r2.Vec, n)
	for i := range pos {
		pos[i] = r2.Vec{X: lo + (hi-lo)*rng.Float64(), Y: lo + (hi-lo)*rng.Float64()}
	}
	return
}

func newMarkers2() [2]*array.Array2[bool] {
	return [2]*array.Array2[bool]{array.NewArray2[bool](0, 0), array.NewArray2[bool](0, 0)}
}

func TestUniformVelocityRoundTrip(t *testing.T) {
	var (
		rng     = rand.New(rand.NewSource(7))
		uniform = r2.Vec{X: 0.3, Y: -0.2}
		pos     = randomPositions2(rng, 200, 0.1, 0.9)
	)
	{ // Test PIC
		var (
			flow = grid.NewFaceCenteredGrid2(res2, h2, r2.Vec{}, r2.Vec{})
			vel  = make([]r2.Vec, len(pos))
		)
		for i := range vel {
			vel[i] = uniform
		}
		require.NoError(t, ScatterToFaces2(pos, vel, nil, flow, newMarkers2()))
		for i := range vel {
			vel[i] = r2.Vec{}
		}
		require.NoError(t, GatherFromFaces2(flow, pos, vel, nil))
		for _, v := range vel {
			assert.InDelta(t, uniform.X, v.X, 1e-6)
			assert.InDelta(t, uniform.Y, v.Y, 1e-6)
		}
	}
	{ // Test APIC keeps a zero gradient for a uniform field
		var (
			flow   = grid.NewFaceCenteredGrid2(res2, h2, r2.Vec{}, r2.Vec{})
			vel    = make([]r2.Vec, len(pos))
			affine = [2][]r2.Vec{make([]r2.Vec, len(pos)), make([]r2.Vec, len(pos))}
		)
		for i := range vel {
			vel[i] = uniform
		}
		require.NoError(t, ScatterToFaces2(pos, vel, &affine, flow, newMarkers2()))
		require.NoError(t, GatherFromFaces2(flow, pos, vel, &affine))
		for i, v := range vel {
			assert.InDelta(t, uniform.X, v.X, 1e-6)
			assert.InDelta(t, uniform.Y, v.Y, 1e-6)
			assert.InDelta(t, 0, r2.Norm(affine[0][i]), 1e-9)
			assert.InDelta(t, 0, r2.Norm(affine[1][i]), 1e-9)
		}
	}
}

func TestScatterMarksTouchedFaces(t *testing.T) {
	var (
		flow    = grid.NewFaceCenteredGrid2(res2, h2, r2.Vec{}, r2.Vec{X: 5, Y: 5})
		markers = newMarkers2()
		pos     = []r2.Vec{{X: 0.2, Y: 0.2}}
		vel     = []r2.Vec{{X: 1, Y: 2}}
	)
	require.NoError(t, ScatterToFaces2(pos, vel, nil, flow, markers))
	assert.Equal(t, flow.USize(), markers[0].Size())
	assert.Equal(t, flow.VSize(), markers[1].Size())
	// (0.2, 0.2) is inside cell (1, 1)
	assert.True(t, markers[0].At(1, 1))
	assert.True(t, markers[0].At(2, 1))
	assert.InDelta(t, 1., flow.U().At(1, 1), 1e-12)
	assert.InDelta(t, 2., flow.V().At(1, 1), 1e-12)
	// untouched faces are cleared
	assert.False(t, markers[0].At(6, 6))
	assert.Equal(t, 0., flow.U().At(6, 6))
	assert.Equal(t, 0., flow.V().At(6, 6))
}

func TestAPICGatherRecoversLinearGradient(t *testing.T) {
	var (
		flow   = grid.NewFaceCenteredGrid2(res2, h2, r2.Vec{}, r2.Vec{})
		pos    = []r2.Vec{{X: 0.4, Y: 0.45}, {X: 0.61, Y: 0.33}, {X: 0.3, Y: 0.7}}
		vel    = make([]r2.Vec, len(pos))
		affine = [2][]r2.Vec{make([]r2.Vec, len(pos)), make([]r2.Vec, len(pos))}
	)
	flow.FillFunc(func(x r2.Vec) r2.Vec { return r2.Vec{X: 2*x.X + 3*x.Y, Y: -x.Y} })
	require.NoError(t, GatherFromFaces2(flow, pos, vel, &affine))
	for i, x := range pos {
		assert.InDelta(t, 2*x.X+3*x.Y, vel[i].X, 1e-9)
		assert.InDelta(t, -x.Y, vel[i].Y, 1e-9)
		assert.InDelta(t, 2., affine[0][i].X, 1e-9)
		assert.InDelta(t, 3., affine[0][i].Y, 1e-9)
		assert.InDelta(t, 0., affine[1][i].X, 1e-9)
		assert.InDelta(t, -1., affine[1][i].Y, 1e-9)
	}
	{ // Test the affine term reproduces the linear field on the faces
		var (
			out     = grid.NewFaceCenteredGrid2(res2, h2, r2.Vec{}, r2.Vec{})
			markers = newMarkers2()
			uPos    = out.UPosition()
		)
		require.NoError(t, ScatterToFaces2(pos, vel, &affine, out, markers))
		out.ForEachUIndex(func(i, j int) {
			if markers[0].At(i, j) {
				x := uPos(i, j)
				assert.InDelta(t, 2*x.X+3*x.Y, out.U().At(i, j), 1e-9)
			}
		})
	}
}

func TestTransferErrors(t *testing.T) {
	var (
		pos = []r2.Vec{{X: 0.5, Y: 0.5}}
		vel = []r2.Vec{{}}
	)
	collocated := grid.NewCollocatedVectorGrid2(grid.CellCentered, res2, h2, r2.Vec{}, r2.Vec{})
	err := ScatterToFaces2(pos, vel, nil, collocated, newMarkers2())
	assert.True(t, errors.Is(err, ErrGridType))
	err = GatherFromFaces2(collocated, pos, vel, nil)
	assert.True(t, errors.Is(err, ErrGridType))

	flow := grid.NewFaceCenteredGrid2(res2, h2, r2.Vec{}, r2.Vec{})
	err = ScatterToFaces2(pos, nil, nil, flow, newMarkers2())
	assert.True(t, errors.Is(err, ErrLengthMismatch))
	affine := [2][]r2.Vec{nil, nil}
	err = GatherFromFaces2(flow, pos, vel, &affine)
	assert.True(t, errors.Is(err, ErrLengthMismatch))

	err3 := ScatterToFaces3([]r3.Vec{{}}, []r3.Vec{{}}, nil,
		grid.NewCollocatedVectorGrid3(grid.CellCentered, array.Size3{X: 2, Y: 2, Z: 2},
			r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{}, r3.Vec{}),
		[3]*array.Array3[bool]{})
	assert.True(t, errors.Is(err3, ErrGridType))
}

func TestFLIPCarriesGridChange(t *testing.T) {
	var (
		s   = NewFLIP2(res2, h2, r2.Vec{})
		rng = rand.New(rand.NewSource(3))
		pos = randomPositions2(rng, 50, 0.1, 0.9)
		vel = make([]r2.Vec, len(pos))
	)
	for i := range vel {
		vel[i] = r2.Vec{X: rng.Float64(), Y: rng.Float64()}
	}
	require.NoError(t, s.ParticleSystemData().AddParticles(pos, vel, nil))
	require.NoError(t, s.TransferFromParticlesToGrids())
	v := s.Velocity().V()
	v.ForEachIndex(func(i, j int) { v.Set(i, j, v.At(i, j)-1) })
	require.NoError(t, s.TransferFromGridsToParticles())
	for i, got := range s.ParticleSystemData().Velocities() {
		assert.InDelta(t, vel[i].X, got.X, 1e-12)
		assert.InDelta(t, vel[i].Y-1, got.Y, 1e-12)
	}

	{ // Test a blending factor of one is plain PIC
		s.SetPICBlendingFactor(2)
		assert.Equal(t, 1., s.PICBlendingFactor())
		require.NoError(t, s.TransferFromParticlesToGrids())
		require.NoError(t, s.TransferFromGridsToParticles())
		flow := s.Velocity()
		for i, got := range s.ParticleSystemData().Velocities() {
			want := flow.Sample(s.ParticleSystemData().Positions()[i])
			assert.InDelta(t, want.X, got.X, 1e-12)
			assert.InDelta(t, want.Y, got.Y, 1e-12)
		}
	}
}

func TestSignedDistanceFromParticles(t *testing.T) {
	s := NewPIC2(res2, h2, r2.Vec{})
	s.ParticleSystemData().AddParticle(r2.Vec{X: 0.5625, Y: 0.5625}, r2.Vec{}, r2.Vec{})
	s.BuildSignedDistanceField()
	var (
		sdf    = s.SignedDistanceField()
		radius = 1.2 * 0.125 / math.Sqrt2
	)
	// the particle sits on the center of cell (4, 4)
	assert.InDelta(t, -radius, sdf.At(4, 4), 1e-12)
	assert.InDelta(t, 0.125-radius, sdf.At(5, 4), 1e-12)
	assert.InDelta(t, radius, sdf.At(0, 0), 1e-12)
	assert.Less(t, s.FluidSDF().Sample(r2.Vec{X: 0.5625, Y: 0.5625}), 0.)
}

func TestMoveParticles(t *testing.T) {
	s := NewPIC2(res2, h2, r2.Vec{})
	s.Velocity().Fill(r2.Vec{X: 1})
	ps := s.ParticleSystemData()
	require.NoError(t, ps.AddParticles(
		[]r2.Vec{{X: 0.5, Y: 0.5}, {X: 0.95, Y: 0.5}},
		[]r2.Vec{{X: 1}, {X: 1}}, nil))
	s.MoveParticles(0.1)
	assert.InDelta(t, 0.6, ps.Positions()[0].X, 1e-12)
	assert.InDelta(t, 0.5, ps.Positions()[0].Y, 1e-12)
	assert.InDelta(t, 1., ps.Velocities()[0].X, 1e-12)
	// stopped by the right wall
	assert.Equal(t, 1., ps.Positions()[1].X)
	assert.Equal(t, 0., ps.Velocities()[1].X)

	{ // Test an open side lets particles out
		s.SetClosedDomainBoundaryFlag(gridsolver.DirectionAll &^ gridsolver.DirectionRight)
		s.MoveParticles(0.1)
		assert.InDelta(t, 1.1, ps.Positions()[1].X, 1e-12)
	}
}

func newDamBreak2(s interface {
	ParticleSystemData() *particle.SystemData2
	SetParticleEmitter(particle.Emitter2)
}) *particle.VolumeEmitter2 {
	var (
		block   = geometry.Box2{Bound: geometry.NewBoundingBox2(r2.Vec{}, r2.Vec{X: 0.5, Y: 0.5})}
		domain  = geometry.NewBoundingBox2(r2.Vec{}, r2.Vec{X: 1, Y: 1})
		emitter = particle.NewVolumeEmitter2(block, domain, 0.5*h2.X, 11)
	)
	s.SetParticleEmitter(emitter)
	return emitter
}

func TestHybridSolversAdvanceFrames(t *testing.T) {
	type solver interface {
		ParticleSystemData() *particle.SystemData2
		SetParticleEmitter(particle.Emitter2)
		SignedDistanceField() *grid.ScalarGrid2
		Advance(gridsolver.Frame) error
	}
	var (
		flip = NewFLIP2(res2, h2, r2.Vec{})
		apic = NewAPIC2(res2, h2, r2.Vec{})
	)
	flip.SetPICBlendingFactor(0.05)
	for name, s := range map[string]solver{"pic": NewPIC2(res2, h2, r2.Vec{}), "flip": flip, "apic": apic} {
		emitter := newDamBreak2(s)
		frame := gridsolver.NewFrame(0, 1./60)
		for ; frame.Index < 3; frame.Advance() {
			require.NoError(t, s.Advance(frame), name)
		}
		ps := s.ParticleSystemData()
		assert.Equal(t, emitter.NumberOfEmittedParticles(), ps.NumberOfParticles(), name)
		assert.Greater(t, ps.NumberOfParticles(), 0, name)
		for i, x := range ps.Positions() {
			v := ps.Velocities()[i]
			require.False(t, math.IsNaN(x.X+x.Y+v.X+v.Y), name)
			assert.True(t, x.X >= 0 && x.X <= 1 && x.Y >= 0 && x.Y <= 1, name)
		}
		sdf := s.SignedDistanceField()
		assert.Less(t, sdf.Sample(r2.Vec{X: 0.25, Y: 0.1}), 0., name)
		assert.Greater(t, sdf.Sample(r2.Vec{X: 0.8, Y: 0.9}), 0., name)
	}
	{ // Test the APIC affine vectors follow the particle count
		cX, cY := apic.AffineVectors()
		assert.Len(t, cX, apic.ParticleSystemData().NumberOfParticles())
		assert.Len(t, cY, apic.ParticleSystemData().NumberOfParticles())
	}
}

func TestUniformVelocityRoundTrip3(t *testing.T) {
	var (
		res     = array.Size3{X: 4, Y: 5, Z: 3}
		h       = r3.Vec{X: 0.25, Y: 0.2, Z: 0.3}
		flow    = grid.NewFaceCenteredGrid3(res, h, r3.Vec{}, r3.Vec{})
		rng     = rand.New(rand.NewSource(5))
		uniform = r3.Vec{X: -0.4, Y: 0.1, Z: 0.7}
		n       = 60
		pos     = make([]r3.Vec, n)
		vel     = make([]r3.Vec, n)
		affine  = [3][]r3.Vec{make([]r3.Vec, n), make([]r3.Vec, n), make([]r3.Vec, n)}
		markers [3]*array.Array3[bool]
	)
	for axis := range markers {
		markers[axis] = array.NewArray3[bool](0, 0, 0)
	}
	for i := range pos {
		pos[i] = r3.Vec{X: 0.15 + 0.7*rng.Float64(), Y: 0.15 + 0.7*rng.Float64(), Z: 0.2 + 0.5*rng.Float64()}
		vel[i] = uniform
	}
	require.NoError(t, ScatterToFaces3(pos, vel, &affine, flow, markers))
	require.NoError(t, GatherFromFaces3(flow, pos, vel, &affine))
	for i, v := range vel {
		assert.InDelta(t, uniform.X, v.X, 1e-6)
		assert.InDelta(t, uniform.Y, v.Y, 1e-6)
		assert.InDelta(t, uniform.Z, v.Z, 1e-6)
		assert.InDelta(t, 0, r3.Norm(affine[2][i]), 1e-9)
	}
}

func TestHybridSolvers3AdvanceFrame(t *testing.T) {
	var (
		res = array.Size3{X: 4, Y: 4, Z: 4}
		h   = r3.Vec{X: 0.25, Y: 0.25, Z: 0.25}
	)
	flip := NewFLIP3(res, h, r3.Vec{})
	for name, s := range map[string]interface {
		ParticleSystemData() *particle.SystemData3
		Advance(gridsolver.Frame) error
	}{"pic": NewPIC3(res, h, r3.Vec{}), "flip": flip, "apic": NewAPIC3(res, h, r3.Vec{})} {
		ps := s.ParticleSystemData()
		for i := 0; i < 4; i++ {
			for k := 0; k < 4; k++ {
				ps.AddParticle(r3.Vec{X: 0.125 + 0.25*float64(i), Y: 0.125, Z: 0.125 + 0.25*float64(k)},
					r3.Vec{}, r3.Vec{})
			}
		}
		require.NoError(t, s.Advance(gridsolver.NewFrame(0, 1./60)), name)
		for _, x := range ps.Positions() {
			require.False(t, math.IsNaN(x.X+x.Y+x.Z), name)
			assert.True(t, x.Y >= 0 && x.Y <= 1, name)
		}
	}
}
