package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// SDF3 matches the evaluator interface of github.com/soypat/sdf, so models
// built with that package can be used directly as colliders.
type SDF3 interface {
	Evaluate(p r3.Vec) float64
	Bounds() r3.Box
}

type SDF2 interface {
	Evaluate(p r2.Vec) float64
	Bounds() r2.Box
}

const sdfMaxMarchSteps = 256

// SDF3Surface answers surface queries from a signed distance evaluator.
// Normals come from central differences with step Epsilon.
type SDF3Surface struct {
	SDF     SDF3
	Epsilon float64
}

func NewSDF3Surface(s SDF3) *SDF3Surface {
	b := s.Bounds()
	size := r3.Sub(b.Max, b.Min)
	return &SDF3Surface{
		SDF:     s,
		Epsilon: 1e-4 * math.Max(size.X, math.Max(size.Y, size.Z)),
	}
}

func (s *SDF3Surface) SignedDistance(p r3.Vec) float64 { return s.SDF.Evaluate(p) }

func (s *SDF3Surface) gradient(p r3.Vec) r3.Vec {
	var (
		h  = s.Epsilon
		dx = r3.Vec{X: h}
		dy = r3.Vec{Y: h}
		dz = r3.Vec{Z: h}
		f  = s.SDF.Evaluate
	)
	return r3.Vec{
		X: f(r3.Add(p, dx)) - f(r3.Sub(p, dx)),
		Y: f(r3.Add(p, dy)) - f(r3.Sub(p, dy)),
		Z: f(r3.Add(p, dz)) - f(r3.Sub(p, dz)),
	}
}

func (s *SDF3Surface) ClosestNormal(p r3.Vec) r3.Vec { return Normalize3(s.gradient(p)) }

func (s *SDF3Surface) ClosestPoint(p r3.Vec) r3.Vec {
	return r3.Sub(p, r3.Scale(s.SDF.Evaluate(p), s.ClosestNormal(p)))
}

// ClosestIntersection sphere-traces the ray through the evaluator's bounds.
func (s *SDF3Surface) ClosestIntersection(ray Ray3) (res SurfaceRayIntersection3) {
	var (
		bb         = s.BoundingBox()
		tMax       = r3.Norm(bb.Size()) + r3.Norm(r3.Sub(ray.Origin, bb.MidPoint()))
		t          float64
		sign0      = math.Copysign(1, s.SDF.Evaluate(ray.Origin))
		tolerance  = s.Epsilon
		dirNorm    = r3.Norm(ray.Direction)
		normalized = ray
	)
	if dirNorm == 0 {
		return
	}
	normalized.Direction = r3.Scale(1/dirNorm, ray.Direction)
	for step := 0; step < sdfMaxMarchSteps && t <= tMax; step++ {
		p := normalized.PointAt(t)
		d := sign0 * s.SDF.Evaluate(p)
		if d < tolerance {
			res.IsIntersecting = true
			res.Distance = t / dirNorm
			res.Point = p
			res.Normal = s.ClosestNormal(p)
			return
		}
		t += d
	}
	return
}

func (s *SDF3Surface) Intersects(ray Ray3) bool { return s.ClosestIntersection(ray).IsIntersecting }

func (s *SDF3Surface) BoundingBox() BoundingBox3 {
	b := s.SDF.Bounds()
	return BoundingBox3{Lower: b.Min, Upper: b.Max}
}

func (s *SDF3Surface) UpdateQueryEngine() {}

type SDF2Surface struct {
	SDF     SDF2
	Epsilon float64
}

func NewSDF2Surface(s SDF2) *SDF2Surface {
	b := s.Bounds()
	size := r2.Sub(b.Max, b.Min)
	return &SDF2Surface{SDF: s, Epsilon: 1e-4 * math.Max(size.X, size.Y)}
}

func (s *SDF2Surface) SignedDistance(p r2.Vec) float64 { return s.SDF.Evaluate(p) }

func (s *SDF2Surface) ClosestNormal(p r2.Vec) r2.Vec {
	var (
		h  = s.Epsilon
		dx = r2.Vec{X: h}
		dy = r2.Vec{Y: h}
		f  = s.SDF.Evaluate
	)
	return Normalize2(r2.Vec{
		X: f(r2.Add(p, dx)) - f(r2.Sub(p, dx)),
		Y: f(r2.Add(p, dy)) - f(r2.Sub(p, dy)),
	})
}

func (s *SDF2Surface) ClosestPoint(p r2.Vec) r2.Vec {
	return r2.Sub(p, r2.Scale(s.SDF.Evaluate(p), s.ClosestNormal(p)))
}

func (s *SDF2Surface) ClosestIntersection(ray Ray2) (res SurfaceRayIntersection2) {
	var (
		bb      = s.BoundingBox()
		tMax    = r2.Norm(bb.Size()) + r2.Norm(r2.Sub(ray.Origin, bb.MidPoint()))
		t       float64
		sign0   = math.Copysign(1, s.SDF.Evaluate(ray.Origin))
		dirNorm = r2.Norm(ray.Direction)
		unit    = ray
	)
	if dirNorm == 0 {
		return
	}
	unit.Direction = r2.Scale(1/dirNorm, ray.Direction)
	for step := 0; step < sdfMaxMarchSteps && t <= tMax; step++ {
		p := unit.PointAt(t)
		d := sign0 * s.SDF.Evaluate(p)
		if d < s.Epsilon {
			res.IsIntersecting = true
			res.Distance = t / dirNorm
			res.Point = p
			res.Normal = s.ClosestNormal(p)
			return
		}
		t += d
	}
	return
}

func (s *SDF2Surface) Intersects(ray Ray2) bool { return s.ClosestIntersection(ray).IsIntersecting }

func (s *SDF2Surface) BoundingBox() BoundingBox2 {
	b := s.SDF.Bounds()
	return BoundingBox2{Lower: b.Min, Upper: b.Max}
}

func (s *SDF2Surface) UpdateQueryEngine() {}
