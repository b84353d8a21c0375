package particle

import (
	"bytes"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/searcher"
)

func TestKernels(t *testing.T) {
	var (
		h   = 0.5
		eps = 1e-6
	)
	type kernel interface {
		Value(float64) float64
		FirstDerivative(float64) float64
		SecondDerivative(float64) float64
	}
	for _, k := range []kernel{NewStdKernel2(h), NewStdKernel3(h), NewSpikyKernel2(h), NewSpikyKernel3(h)} {
		assert.Equal(t, 0., k.Value(h))
		assert.Equal(t, 0., k.Value(2*h))
		assert.Equal(t, 0., k.FirstDerivative(h))
		assert.Equal(t, 0., k.SecondDerivative(1.5*h))
		for _, d := range []float64{0.2 * h, 0.5 * h, 0.8 * h} {
			fd := (k.Value(d+eps) - k.Value(d-eps)) / (2 * eps)
			assert.InDelta(t, fd, k.FirstDerivative(d), 1e-5*math.Max(1, math.Abs(fd)))
			fd2 := (k.FirstDerivative(d+eps) - k.FirstDerivative(d-eps)) / (2 * eps)
			assert.InDelta(t, fd2, k.SecondDerivative(d), 1e-4*math.Max(1, math.Abs(fd2)))
		}
	}
	assert.InDelta(t, 4/(math.Pi*h*h), NewStdKernel2(h).Value(0), 1e-12)
	assert.InDelta(t, 315/(64*math.Pi*h*h*h), NewStdKernel3(h).Value(0), 1e-12)
	{ // Gradient points away from the centre
		g := NewSpikyKernel2(h).GradientAt(r2.Vec{X: 0.1})
		assert.Greater(t, g.X, 0.)
		assert.Equal(t, 0., g.Y)
		assert.Equal(t, r3.Vec{}, NewSpikyKernel3(h).GradientAt(r3.Vec{}))
	}
}

func TestPointGenerators(t *testing.T) {
	pts := GeneratePoints2(TrianglePointGenerator{},
		geometry.NewBoundingBox2(r2.Vec{}, r2.Vec{X: 1, Y: 1}), 0.5)
	assert.Len(t, pts, 8)
	assert.Equal(t, r2.Vec{X: 0.25, Y: math.Sqrt(3) / 4}, pts[3])
	bcc := GeneratePoints3(BccLatticePointGenerator{},
		geometry.NewBoundingBox3(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}), 1)
	assert.Len(t, bcc, 9)
	assert.Equal(t, r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, bcc[4])
	{ // Early stop
		var n int
		TrianglePointGenerator{}.ForEachPoint(geometry.NewBoundingBox2(r2.Vec{}, r2.Vec{X: 1, Y: 1}), 0.1,
			func(r2.Vec) bool {
				n++
				return n < 5
			})
		assert.Equal(t, 5, n)
	}
}

func sameLists(t *testing.T, want, got [][]int) {
	require.Equal(t, len(want), len(got))
	for i := range want {
		a, b := slices.Clone(want[i]), slices.Clone(got[i])
		slices.Sort(a)
		slices.Sort(b)
		assert.Equal(t, len(a), len(b), "list %d", i)
		if len(a) > 0 {
			assert.Equal(t, a, b, "list %d", i)
		}
	}
}

func TestSystemData2(t *testing.T) {
	s := NewSystemData2(0)
	assert.Equal(t, DefaultRadius, s.Radius())
	assert.Equal(t, DefaultMass, s.Mass())
	require.NoError(t, s.AddParticles([]r2.Vec{{X: 0, Y: 0}, {X: 0.5, Y: 0}, {X: 3, Y: 3}}, nil, nil))
	s.AddParticle(r2.Vec{X: 0, Y: 0.75}, r2.Vec{X: 1}, r2.Vec{Y: -9.8})
	assert.Equal(t, 4, s.NumberOfParticles())
	assert.Equal(t, r2.Vec{}, s.Velocities()[0])
	assert.Equal(t, r2.Vec{X: 1}, s.Velocities()[3])
	assert.Equal(t, r2.Vec{Y: -9.8}, s.Forces()[3])
	{ // Length mismatch
		err := s.AddParticles([]r2.Vec{{}, {}}, []r2.Vec{{}}, nil)
		assert.True(t, errors.Is(err, ErrLengthMismatch))
		assert.Equal(t, 4, s.NumberOfParticles())
	}
	{ // Layers follow the particle count
		idx := s.AddScalarData(7)
		assert.Equal(t, []float64{7, 7, 7, 7}, s.ScalarDataAt(idx))
		s.AddParticle(r2.Vec{X: 9}, r2.Vec{}, r2.Vec{})
		assert.Equal(t, []float64{7, 7, 7, 7, 0}, s.ScalarDataAt(idx))
		s.Resize(4)
		assert.Len(t, s.Positions(), 4)
		assert.Equal(t, r2.Vec{X: 0, Y: 0.75}, s.Positions()[3])
	}
	{ // Neighbor lists exclude the particle itself
		s.BuildNeighborSearcher(0.8)
		s.BuildNeighborLists(0.8)
		sameLists(t, [][]int{{1, 3}, {0}, nil, {0}}, s.NeighborLists())
	}
	{ // Any searcher variant can be plugged in
		s.SetNeighborSearcherBuilder(func() searcher.PointNeighborSearcher2 { return searcher.NewKdTree2() })
		s.BuildNeighborSearcher(0.8)
		assert.Equal(t, searcher.KdTreeTypeName2, s.NeighborSearcher().TypeName())
		s.BuildNeighborLists(0.8)
		sameLists(t, [][]int{{1, 3}, {0}, nil, {0}}, s.NeighborLists())
	}
	{ // Clone is deep
		c := s.Clone()
		c.Positions()[0] = r2.Vec{X: 100}
		assert.Equal(t, r2.Vec{}, s.Positions()[0])
	}
}

func TestSystemSerialize(t *testing.T) {
	s := NewSystemData2(0)
	s.SetRadius(0.25)
	require.NoError(t, s.AddParticles(
		[]r2.Vec{{X: 0.1, Y: 1.0 / 3}, {X: 0.2, Y: math.Pi}, {X: -1, Y: 2}},
		[]r2.Vec{{X: 1}, {Y: 2}, {X: -3, Y: 1e-300}}, nil))
	idx := s.AddScalarData(math.E)
	s.BuildNeighborSearcher(5)
	s.BuildNeighborLists(5)

	var buf bytes.Buffer
	require.NoError(t, s.Serialize(&buf))
	data := buf.Bytes()
	out := NewSystemData2(0)
	require.NoError(t, out.Deserialize(bytes.NewReader(data)))
	assert.Equal(t, s.NumberOfParticles(), out.NumberOfParticles())
	assert.Equal(t, s.Radius(), out.Radius())
	assert.Equal(t, s.Mass(), out.Mass())
	assert.Equal(t, s.Positions(), out.Positions())
	assert.Equal(t, s.Velocities(), out.Velocities())
	assert.Equal(t, s.ScalarDataAt(idx), out.ScalarDataAt(idx))
	sameLists(t, s.NeighborLists(), out.NeighborLists())
	assert.Equal(t, s.NeighborSearcher().TypeName(), out.NeighborSearcher().TypeName())
	assert.ElementsMatch(t, []int{0, 2}, searcher.NearbyPoints2(out.NeighborSearcher(), r2.Vec{}, 3))
	{ // Truncated
		err := out.Deserialize(bytes.NewReader(data[:len(data)/2]))
		assert.True(t, errors.Is(err, ErrCorrupt))
	}
	{ // A plain system is not an SPH system
		err := NewSPHSystemData2(0).Deserialize(bytes.NewReader(data))
		assert.True(t, errors.Is(err, ErrSystemType))
	}
	{ // 3D
		s3 := NewSystemData3(2)
		s3.Positions()[1] = r3.Vec{X: 1, Y: 2, Z: 3}
		buf.Reset()
		require.NoError(t, s3.Serialize(&buf))
		out3 := NewSystemData3(0)
		require.NoError(t, out3.Deserialize(&buf))
		assert.Equal(t, s3.Positions(), out3.Positions())
	}
}

// nearest returns the index of the point closest to x.
func nearest(points []r2.Vec, x r2.Vec) (best int) {
	for i, p := range points {
		if r2.Norm(r2.Sub(p, x)) < r2.Norm(r2.Sub(points[best], x)) {
			best = i
		}
	}
	return
}

func TestSPHSystemData2(t *testing.T) {
	s := NewSPHSystemData2(0)
	assert.Equal(t, 1000., s.TargetDensity())
	assert.Equal(t, 0.1, s.TargetSpacing())
	assert.InDelta(t, 0.18, s.KernelRadius(), 1e-15)
	assert.Equal(t, 0.1, s.Radius())
	assert.Greater(t, s.Mass(), 0.)
	{ // Kernel radius and spacing stay in sync
		s.SetKernelRadius(0.36)
		assert.InDelta(t, 0.2, s.TargetSpacing(), 1e-15)
		s.SetRelativeKernelRadius(2)
		assert.InDelta(t, 0.4, s.KernelRadius(), 1e-15)
		s.SetRelativeKernelRadius(DefaultRelativeKernelRadius)
		s.SetTargetSpacing(DefaultTargetSpacing)
		assert.InDelta(t, 0.18, s.KernelRadius(), 1e-15)
	}
	{ // Mass scales the target density
		m := s.Mass()
		s.SetMass(2 * m)
		assert.InDelta(t, 2000, s.TargetDensity(), 1e-9)
		s.SetTargetDensity(1000)
		assert.InDelta(t, m, s.Mass(), 1e-12)
	}
	{ // A packed lattice reaches the target density in its interior
		pts := GeneratePoints2(TrianglePointGenerator{},
			geometry.NewBoundingBox2(r2.Vec{}, r2.Vec{X: 2, Y: 2}), s.TargetSpacing())
		require.NoError(t, s.AddParticles(pts, nil, nil))
		s.BuildNeighborSearcher()
		s.UpdateDensities()
		s.BuildNeighborLists()
		c := nearest(s.Positions(), r2.Vec{X: 1, Y: 1})
		assert.InDelta(t, 1000, s.Densities()[c], 1e-6)

		ones := make([]float64, s.NumberOfParticles())
		for i := range ones {
			ones[i] = 1
		}
		assert.InDelta(t, 1, s.Interpolate(s.Positions()[c], ones), 1e-9)
		g := s.GradientAt(c, ones)
		assert.InDelta(t, 0, g.X, 1e-9)
		assert.InDelta(t, 0, g.Y, 1e-9)
		assert.Equal(t, 0., s.LaplacianAt(c, ones))
	}
	{ // Serialize keeps the SPH parameters
		var buf bytes.Buffer
		require.NoError(t, s.Serialize(&buf))
		out := NewSPHSystemData2(0)
		require.NoError(t, out.Deserialize(&buf))
		assert.Equal(t, s.KernelRadius(), out.KernelRadius())
		assert.Equal(t, s.Mass(), out.Mass())
		assert.Equal(t, s.Densities(), out.Densities())
	}
}

func TestSPHSystemData3(t *testing.T) {
	s := NewSPHSystemData3(0)
	pts := GeneratePoints3(BccLatticePointGenerator{},
		geometry.NewBoundingBox3(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}), s.TargetSpacing())
	require.NoError(t, s.AddParticles(pts, nil, nil))
	s.BuildNeighborSearcher()
	s.UpdateDensities()
	var (
		c  int
		dc = math.Inf(1)
	)
	for i, p := range s.Positions() {
		if d := r3.Norm(r3.Sub(p, r3.Vec{X: 0.5, Y: 0.5, Z: 0.5})); d < dc {
			c, dc = i, d
		}
	}
	assert.InDelta(t, 1000, s.Densities()[c], 1e-6)
}

func TestEmitters(t *testing.T) {
	var (
		sphere = geometry.Sphere2{Radius: 1}
		region = geometry.NewBoundingBox2(r2.Vec{X: -2, Y: -2}, r2.Vec{X: 2, Y: 2})
	)
	{ // One shot volume emitter
		p := NewSystemData2(0)
		e := NewVolumeEmitter2(sphere, region, 0.2, 1)
		e.LinearVelocity = r2.Vec{X: 1}
		e.Update(p, 0, 0.1)
		n := p.NumberOfParticles()
		assert.Greater(t, n, 50)
		for i, x := range p.Positions() {
			assert.LessOrEqual(t, sphere.SignedDistance(x), 1e-12)
			assert.Equal(t, r2.Vec{X: 1}, p.Velocities()[i])
		}
		e.Update(p, 0.1, 0.1)
		assert.Equal(t, n, p.NumberOfParticles())
		assert.Equal(t, n, e.NumberOfEmittedParticles())

		{ // A continuous emitter does not refill occupied space
			c := NewSystemData2(0)
			ce := NewVolumeEmitter2(sphere, region, 0.2, 1)
			ce.IsOneShot = false
			ce.Update(c, 0, 0.1)
			assert.Equal(t, n, c.NumberOfParticles())
			ce.Update(c, 0.1, 0.1)
			assert.Equal(t, n, c.NumberOfParticles())
		}
	}
	{ // Particle cap and jitter
		p := NewSystemData2(0)
		e := NewVolumeEmitter2(sphere, region, 0.2, 3)
		e.MaxNumberOfParticles = 10
		e.Jitter = 1
		e.Update(p, 0, 0.1)
		assert.Equal(t, 10, p.NumberOfParticles())
	}
	{ // Point emitter rate
		p := NewSystemData2(0)
		e := NewPointEmitter2(r2.Vec{X: 1}, r2.Vec{Y: 2}, 3, 0, 1)
		e.MaxNumberOfNewParticlesPerSecond = 4
		e.Update(p, 0, 0.5)
		assert.Equal(t, 2, p.NumberOfParticles())
		e.Update(p, 0.5, 0.5)
		assert.Equal(t, 4, p.NumberOfParticles())
		assert.Equal(t, r2.Vec{X: 1}, p.Positions()[3])
		assert.InDelta(t, 0, p.Velocities()[3].X, 1e-15)
		assert.InDelta(t, 3, p.Velocities()[3].Y, 1e-15)
	}
	{ // 3D
		p := NewSystemData3(0)
		ball := geometry.Sphere3{Radius: 0.5}
		e := NewVolumeEmitter3(ball, geometry.NewBoundingBox3(r3.Vec{X: -1, Y: -1, Z: -1}, r3.Vec{X: 1, Y: 1, Z: 1}), 0.1, 1)
		e.Update(p, 0, 0.1)
		assert.Greater(t, p.NumberOfParticles(), 100)
		for _, x := range p.Positions() {
			assert.LessOrEqual(t, ball.SignedDistance(x), 1e-12)
		}
		q := NewSystemData3(0)
		pe := NewPointEmitter3(r3.Vec{}, r3.Vec{Z: 1}, 2, 30, 1)
		pe.MaxNumberOfNewParticlesPerSecond = 100
		pe.Update(q, 0, 0.5)
		assert.Equal(t, 50, q.NumberOfParticles())
		for _, v := range q.Velocities() {
			assert.InDelta(t, 2, r3.Norm(v), 1e-12)
			assert.GreaterOrEqual(t, v.Z/2, math.Cos(15*math.Pi/180)-1e-12)
		}
	}
}
