package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

type Ray2 struct {
	Origin, Direction r2.Vec
}

func (r Ray2) PointAt(t float64) r2.Vec {
	return r2.Add(r.Origin, r2.Scale(t, r.Direction))
}

type Ray3 struct {
	Origin, Direction r3.Vec
}

func (r Ray3) PointAt(t float64) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(t, r.Direction))
}

type SurfaceRayIntersection2 struct {
	IsIntersecting bool
	Distance       float64
	Point          r2.Vec
	Normal         r2.Vec
}

type SurfaceRayIntersection3 struct {
	IsIntersecting bool
	Distance       float64
	Point          r3.Vec
	Normal         r3.Vec
}

// Surface2 is the query-only view of a boundary shape. Implementations that
// cache acceleration structures rebuild them in UpdateQueryEngine, which the
// owner must call after mutating the shape and before the next query.
type Surface2 interface {
	SignedDistance(p r2.Vec) float64
	ClosestPoint(p r2.Vec) r2.Vec
	ClosestNormal(p r2.Vec) r2.Vec
	Intersects(ray Ray2) bool
	ClosestIntersection(ray Ray2) SurfaceRayIntersection2
	BoundingBox() BoundingBox2
	UpdateQueryEngine()
}

type Surface3 interface {
	SignedDistance(p r3.Vec) float64
	ClosestPoint(p r3.Vec) r3.Vec
	ClosestNormal(p r3.Vec) r3.Vec
	Intersects(ray Ray3) bool
	ClosestIntersection(ray Ray3) SurfaceRayIntersection3
	BoundingBox() BoundingBox3
	UpdateQueryEngine()
}

func IsInside2(s Surface2, p r2.Vec) bool { return s.SignedDistance(p) < 0 }
func IsInside3(s Surface3, p r3.Vec) bool { return s.SignedDistance(p) < 0 }

// Normalize2 returns the unit vector along v, or the zero vector when v has
// zero length.
func Normalize2(v r2.Vec) r2.Vec {
	l := r2.Norm(v)
	if l == 0 {
		return r2.Vec{}
	}
	return r2.Scale(1/l, v)
}

func Normalize3(v r3.Vec) r3.Vec {
	l := r3.Norm(v)
	if l == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/l, v)
}

// Component2 returns v.X for axis 0 and v.Y otherwise.
func Component2(v r2.Vec, axis int) float64 {
	if axis == 0 {
		return v.X
	}
	return v.Y
}

func WithComponent2(v r2.Vec, axis int, c float64) r2.Vec {
	if axis == 0 {
		v.X = c
	} else {
		v.Y = c
	}
	return v
}

func Component3(v r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

func WithComponent3(v r3.Vec, axis int, c float64) r3.Vec {
	switch axis {
	case 0:
		v.X = c
	case 1:
		v.Y = c
	default:
		v.Z = c
	}
	return v
}

// Flipped2 turns a surface inside out, e.g. a box that contains the fluid.
type Flipped2 struct {
	Surface2
}

func (f Flipped2) SignedDistance(p r2.Vec) float64 { return -f.Surface2.SignedDistance(p) }
func (f Flipped2) ClosestNormal(p r2.Vec) r2.Vec {
	return r2.Scale(-1, f.Surface2.ClosestNormal(p))
}
func (f Flipped2) ClosestIntersection(ray Ray2) (res SurfaceRayIntersection2) {
	res = f.Surface2.ClosestIntersection(ray)
	res.Normal = r2.Scale(-1, res.Normal)
	return
}

type Flipped3 struct {
	Surface3
}

func (f Flipped3) SignedDistance(p r3.Vec) float64 { return -f.Surface3.SignedDistance(p) }
func (f Flipped3) ClosestNormal(p r3.Vec) r3.Vec {
	return r3.Scale(-1, f.Surface3.ClosestNormal(p))
}
func (f Flipped3) ClosestIntersection(ray Ray3) (res SurfaceRayIntersection3) {
	res = f.Surface3.ClosestIntersection(ray)
	res.Normal = r3.Scale(-1, res.Normal)
	return
}

// SurfaceSet2 is the union of several surfaces.
type SurfaceSet2 struct {
	Surfaces []Surface2
}

func (s *SurfaceSet2) SignedDistance(p r2.Vec) float64 {
	d := math.MaxFloat64
	for _, sf := range s.Surfaces {
		d = math.Min(d, sf.SignedDistance(p))
	}
	return d
}

func (s *SurfaceSet2) closest(p r2.Vec) (best Surface2) {
	d := math.MaxFloat64
	for _, sf := range s.Surfaces {
		if dd := math.Abs(sf.SignedDistance(p)); dd < d {
			d, best = dd, sf
		}
	}
	return
}

func (s *SurfaceSet2) ClosestPoint(p r2.Vec) r2.Vec {
	if sf := s.closest(p); sf != nil {
		return sf.ClosestPoint(p)
	}
	return r2.Vec{X: math.MaxFloat64, Y: math.MaxFloat64}
}

func (s *SurfaceSet2) ClosestNormal(p r2.Vec) r2.Vec {
	if sf := s.closest(p); sf != nil {
		return sf.ClosestNormal(p)
	}
	return r2.Vec{X: 1}
}

func (s *SurfaceSet2) Intersects(ray Ray2) bool {
	for _, sf := range s.Surfaces {
		if sf.Intersects(ray) {
			return true
		}
	}
	return false
}

func (s *SurfaceSet2) ClosestIntersection(ray Ray2) (res SurfaceRayIntersection2) {
	res.Distance = math.MaxFloat64
	for _, sf := range s.Surfaces {
		if r := sf.ClosestIntersection(ray); r.IsIntersecting && r.Distance < res.Distance {
			res = r
		}
	}
	return
}

func (s *SurfaceSet2) BoundingBox() BoundingBox2 {
	b := EmptyBoundingBox2()
	for _, sf := range s.Surfaces {
		b = b.Union(sf.BoundingBox())
	}
	return b
}

func (s *SurfaceSet2) UpdateQueryEngine() {
	for _, sf := range s.Surfaces {
		sf.UpdateQueryEngine()
	}
}

type SurfaceSet3 struct {
	Surfaces []Surface3
}

func (s *SurfaceSet3) SignedDistance(p r3.Vec) float64 {
	d := math.MaxFloat64
	for _, sf := range s.Surfaces {
		d = math.Min(d, sf.SignedDistance(p))
	}
	return d
}

func (s *SurfaceSet3) closest(p r3.Vec) (best Surface3) {
	d := math.MaxFloat64
	for _, sf := range s.Surfaces {
		if dd := math.Abs(sf.SignedDistance(p)); dd < d {
			d, best = dd, sf
		}
	}
	return
}

func (s *SurfaceSet3) ClosestPoint(p r3.Vec) r3.Vec {
	if sf := s.closest(p); sf != nil {
		return sf.ClosestPoint(p)
	}
	return r3.Vec{X: math.MaxFloat64, Y: math.MaxFloat64, Z: math.MaxFloat64}
}

func (s *SurfaceSet3) ClosestNormal(p r3.Vec) r3.Vec {
	if sf := s.closest(p); sf != nil {
		return sf.ClosestNormal(p)
	}
	return r3.Vec{X: 1}
}

func (s *SurfaceSet3) Intersects(ray Ray3) bool {
	for _, sf := range s.Surfaces {
		if sf.Intersects(ray) {
			return true
		}
	}
	return false
}

func (s *SurfaceSet3) ClosestIntersection(ray Ray3) (res SurfaceRayIntersection3) {
	res.Distance = math.MaxFloat64
	for _, sf := range s.Surfaces {
		if r := sf.ClosestIntersection(ray); r.IsIntersecting && r.Distance < res.Distance {
			res = r
		}
	}
	return
}

func (s *SurfaceSet3) BoundingBox() BoundingBox3 {
	b := EmptyBoundingBox3()
	for _, sf := range s.Surfaces {
		b = b.Union(sf.BoundingBox())
	}
	return b
}

func (s *SurfaceSet3) UpdateQueryEngine() {
	for _, sf := range s.Surfaces {
		sf.UpdateQueryEngine()
	}
}
