package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Collider2 is a surface that particles and grid velocities are pushed out of.
// LinearVelocity and AngularVelocity describe rigid motion about the surface's
// bounding-box centre; both default to zero for a static collider.
type Collider2 struct {
	Surface             Surface2
	FrictionCoefficient float64
	LinearVelocity      r2.Vec
	AngularVelocity     float64
	OnUpdate            func(c *Collider2, currentTime, dt float64)
}

func NewCollider2(s Surface2) *Collider2 {
	return &Collider2{Surface: s}
}

func (c *Collider2) Update(currentTime, dt float64) {
	if c.Surface == nil {
		return
	}
	c.Surface.UpdateQueryEngine()
	if c.OnUpdate != nil {
		c.OnUpdate(c, currentTime, dt)
	}
}

func (c *Collider2) VelocityAt(p r2.Vec) r2.Vec {
	r := r2.Sub(p, c.Surface.BoundingBox().MidPoint())
	if math.IsInf(r.X, 0) || math.IsInf(r.Y, 0) || math.IsNaN(r.X) || math.IsNaN(r.Y) {
		return c.LinearVelocity
	}
	return r2.Add(c.LinearVelocity, r2.Vec{X: -c.AngularVelocity * r.Y, Y: c.AngularVelocity * r.X})
}

// ResolveCollision moves a particle of the given radius that penetrates the
// surface back onto it and reflects the normal part of its velocity relative
// to the collider, scaled by the restitution coefficient. Friction shrinks
// the tangential part.
func (c *Collider2) ResolveCollision(radius, restitution float64, position, velocity *r2.Vec) {
	if c.Surface == nil {
		return
	}
	var (
		sd     = c.Surface.SignedDistance(*position)
		inside = sd < 0
	)
	if !inside && math.Abs(sd) >= radius {
		return
	}
	var (
		normal       = c.Surface.ClosestNormal(*position)
		target       = r2.Add(c.Surface.ClosestPoint(*position), r2.Scale(radius, normal))
		colliderVel  = c.VelocityAt(*position)
		relativeVel  = r2.Sub(*velocity, colliderVel)
		nDotRelative = r2.Dot(normal, relativeVel)
		relativeVelN = r2.Scale(nDotRelative, normal)
		relativeVelT = r2.Sub(relativeVel, relativeVelN)
	)
	if nDotRelative < 0 {
		deltaRelativeVelN := r2.Scale(-restitution-1, relativeVelN)
		relativeVelN = r2.Scale(-restitution, relativeVelN)
		if lt := r2.Norm(relativeVelT); lt > 0 {
			frictionScale := math.Max(1-c.FrictionCoefficient*r2.Norm(deltaRelativeVelN)/lt, 0)
			relativeVelT = r2.Scale(frictionScale, relativeVelT)
		}
		*velocity = r2.Add(r2.Add(relativeVelN, relativeVelT), colliderVel)
	}
	*position = target
}

type Collider3 struct {
	Surface             Surface3
	FrictionCoefficient float64
	LinearVelocity      r3.Vec
	AngularVelocity     r3.Vec
	OnUpdate            func(c *Collider3, currentTime, dt float64)
}

func NewCollider3(s Surface3) *Collider3 {
	return &Collider3{Surface: s}
}

func (c *Collider3) Update(currentTime, dt float64) {
	if c.Surface == nil {
		return
	}
	c.Surface.UpdateQueryEngine()
	if c.OnUpdate != nil {
		c.OnUpdate(c, currentTime, dt)
	}
}

func (c *Collider3) VelocityAt(p r3.Vec) r3.Vec {
	r := r3.Sub(p, c.Surface.BoundingBox().MidPoint())
	if math.IsInf(r.X, 0) || math.IsInf(r.Y, 0) || math.IsInf(r.Z, 0) ||
		math.IsNaN(r.X) || math.IsNaN(r.Y) || math.IsNaN(r.Z) {
		return c.LinearVelocity
	}
	return r3.Add(c.LinearVelocity, r3.Cross(c.AngularVelocity, r))
}

func (c *Collider3) ResolveCollision(radius, restitution float64, position, velocity *r3.Vec) {
	if c.Surface == nil {
		return
	}
	var (
		sd     = c.Surface.SignedDistance(*position)
		inside = sd < 0
	)
	if !inside && math.Abs(sd) >= radius {
		return
	}
	var (
		normal       = c.Surface.ClosestNormal(*position)
		target       = r3.Add(c.Surface.ClosestPoint(*position), r3.Scale(radius, normal))
		colliderVel  = c.VelocityAt(*position)
		relativeVel  = r3.Sub(*velocity, colliderVel)
		nDotRelative = r3.Dot(normal, relativeVel)
		relativeVelN = r3.Scale(nDotRelative, normal)
		relativeVelT = r3.Sub(relativeVel, relativeVelN)
	)
	if nDotRelative < 0 {
		deltaRelativeVelN := r3.Scale(-restitution-1, relativeVelN)
		relativeVelN = r3.Scale(-restitution, relativeVelN)
		if lt := r3.Norm(relativeVelT); lt > 0 {
			frictionScale := math.Max(1-c.FrictionCoefficient*r3.Norm(deltaRelativeVelN)/lt, 0)
			relativeVelT = r3.Scale(frictionScale, relativeVelT)
		}
		*velocity = r3.Add(r3.Add(relativeVelN, relativeVelT), colliderVel)
	}
	*position = target
}

// ProjectAndApplyFriction2 removes the normal component of vel and shrinks
// the tangential remainder by frictionCoefficient times the inflow speed.
func ProjectAndApplyFriction2(vel, normal r2.Vec, frictionCoefficient float64) (velt r2.Vec) {
	velt = r2.Sub(vel, r2.Scale(r2.Dot(vel, normal), normal))
	if lt := r2.Norm(velt); lt > 0 {
		veln := math.Max(-r2.Dot(vel, normal), 0)
		velt = r2.Scale(math.Max(1-frictionCoefficient*veln/lt, 0), velt)
	}
	return
}

func ProjectAndApplyFriction3(vel, normal r3.Vec, frictionCoefficient float64) (velt r3.Vec) {
	velt = r3.Sub(vel, r3.Scale(r3.Dot(vel, normal), normal))
	if lt := r3.Norm(velt); lt > 0 {
		veln := math.Max(-r3.Dot(vel, normal), 0)
		velt = r3.Scale(math.Max(1-frictionCoefficient*veln/lt, 0), velt)
	}
	return
}
