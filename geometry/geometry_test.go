package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestSurfaces2(t *testing.T) {
	{ // Sphere
		s := Sphere2{Center: r2.Vec{X: 1, Y: 1}, Radius: 0.5}
		assert.InDelta(t, 0.5, s.SignedDistance(r2.Vec{X: 2, Y: 1}), 1e-12)
		assert.InDelta(t, -0.5, s.SignedDistance(r2.Vec{X: 1, Y: 1}), 1e-12)
		assert.Equal(t, r2.Vec{X: 1.5, Y: 1}, s.ClosestPoint(r2.Vec{X: 3, Y: 1}))
		hit := s.ClosestIntersection(Ray2{Origin: r2.Vec{X: -1, Y: 1}, Direction: r2.Vec{X: 1}})
		assert.True(t, hit.IsIntersecting)
		assert.InDelta(t, 1.5, hit.Distance, 1e-12)
		assert.Equal(t, r2.Vec{X: -1}, hit.Normal)
	}
	{ // Box, solid and as a container
		b := Box2{Bound: NewBoundingBox2(r2.Vec{}, r2.Vec{X: 2, Y: 1})}
		assert.InDelta(t, -0.25, b.SignedDistance(r2.Vec{X: 1, Y: 0.25}), 1e-12)
		assert.InDelta(t, 1., b.SignedDistance(r2.Vec{X: 3, Y: 0.5}), 1e-12)
		assert.Equal(t, r2.Vec{Y: -1}, b.ClosestNormal(r2.Vec{X: 1, Y: 0.25}))
		c := Flipped2{b}
		assert.InDelta(t, 0.25, c.SignedDistance(r2.Vec{X: 1, Y: 0.25}), 1e-12)
		assert.Equal(t, r2.Vec{Y: 1}, c.ClosestNormal(r2.Vec{X: 1, Y: 0.25}))
		assert.True(t, b.Intersects(Ray2{Origin: r2.Vec{X: -1, Y: 0.5}, Direction: r2.Vec{X: 1}}))
		assert.False(t, b.Intersects(Ray2{Origin: r2.Vec{X: -1, Y: 2}, Direction: r2.Vec{X: 1}}))
	}
	{ // Union of shapes
		set := &SurfaceSet2{Surfaces: []Surface2{
			Sphere2{Center: r2.Vec{}, Radius: 1},
			Plane2{Normal: r2.Vec{Y: 1}, Point: r2.Vec{Y: -3}},
		}}
		assert.InDelta(t, -1., set.SignedDistance(r2.Vec{}), 1e-12)
		assert.InDelta(t, -1., set.SignedDistance(r2.Vec{X: 10, Y: -4}), 1e-12)
		assert.Equal(t, r2.Vec{Y: 1}, set.ClosestNormal(r2.Vec{X: 10, Y: -2.5}))
	}
}

func TestCollider2(t *testing.T) {
	var (
		floor = NewCollider2(Plane2{Normal: r2.Vec{Y: 1}, Point: r2.Vec{}})
		pos   = r2.Vec{X: 0.3, Y: -0.1}
		vel   = r2.Vec{X: 1, Y: -2}
	)
	floor.ResolveCollision(0.05, 0, &pos, &vel)
	assert.InDelta(t, 0.05, pos.Y, 1e-12)
	assert.InDelta(t, 0.3, pos.X, 1e-12)
	assert.InDelta(t, 0., vel.Y, 1e-12)
	assert.InDelta(t, 1., vel.X, 1e-12)

	{ // Friction removes tangential motion
		floor.FrictionCoefficient = 1
		pos, vel = r2.Vec{Y: -0.1}, r2.Vec{X: 0.5, Y: -2}
		floor.ResolveCollision(0, 0, &pos, &vel)
		assert.InDelta(t, 0., vel.X, 1e-12)
	}
	{ // Separated particles are left alone
		pos, vel = r2.Vec{Y: 1}, r2.Vec{Y: -1}
		floor.ResolveCollision(0.1, 0, &pos, &vel)
		assert.Equal(t, r2.Vec{Y: 1}, pos)
		assert.Equal(t, r2.Vec{Y: -1}, vel)
	}
}

type ball struct {
	r float64
}

func (b ball) Evaluate(p r3.Vec) float64 { return r3.Norm(p) - b.r }
func (b ball) Bounds() r3.Box {
	return r3.Box{Min: r3.Vec{X: -b.r, Y: -b.r, Z: -b.r}, Max: r3.Vec{X: b.r, Y: b.r, Z: b.r}}
}

func TestSDF3Surface(t *testing.T) {
	s := NewSDF3Surface(ball{r: 1})
	assert.InDelta(t, 1., s.SignedDistance(r3.Vec{X: 2}), 1e-12)
	n := s.ClosestNormal(r3.Vec{Y: 3})
	assert.InDelta(t, 1., n.Y, 1e-6)
	cp := s.ClosestPoint(r3.Vec{Z: -2})
	assert.InDelta(t, -1., cp.Z, 1e-6)
	hit := s.ClosestIntersection(Ray3{Origin: r3.Vec{X: -5}, Direction: r3.Vec{X: 2}})
	assert.True(t, hit.IsIntersecting)
	assert.InDelta(t, 2., hit.Distance, 1e-3)

	c := NewCollider3(Sphere3{Radius: 1})
	pos, vel := r3.Vec{X: 0.5}, r3.Vec{X: -1}
	c.ResolveCollision(0.1, 0.5, &pos, &vel)
	assert.InDelta(t, 1.1, pos.X, 1e-12)
	assert.InDelta(t, 0.5, vel.X, 1e-12)
	assert.False(t, math.IsNaN(c.VelocityAt(r3.Vec{}).X))
}
