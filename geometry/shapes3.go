package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

type Sphere3 struct {
	Center r3.Vec
	Radius float64
}

func (s Sphere3) SignedDistance(p r3.Vec) float64 {
	return r3.Norm(r3.Sub(p, s.Center)) - s.Radius
}

func (s Sphere3) ClosestNormal(p r3.Vec) r3.Vec {
	d := r3.Sub(p, s.Center)
	if r3.Norm(d) == 0 {
		return r3.Vec{X: 1}
	}
	return Normalize3(d)
}

func (s Sphere3) ClosestPoint(p r3.Vec) r3.Vec {
	return r3.Add(s.Center, r3.Scale(s.Radius, s.ClosestNormal(p)))
}

func (s Sphere3) ClosestIntersection(ray Ray3) (res SurfaceRayIntersection3) {
	var (
		r = r3.Sub(ray.Origin, s.Center)
		b = r3.Dot(ray.Direction, r)
		c = r3.Norm2(r) - s.Radius*s.Radius
		d = b*b - c
	)
	if d <= 0 {
		return
	}
	d = math.Sqrt(d)
	tMin := -b - d
	if tMin < 0 {
		tMin = -b + d
	}
	if tMin < 0 {
		return
	}
	res.IsIntersecting = true
	res.Distance = tMin
	res.Point = ray.PointAt(tMin)
	res.Normal = Normalize3(r3.Sub(res.Point, s.Center))
	return
}

func (s Sphere3) Intersects(ray Ray3) bool { return s.ClosestIntersection(ray).IsIntersecting }

func (s Sphere3) BoundingBox() BoundingBox3 {
	r := r3.Vec{X: s.Radius, Y: s.Radius, Z: s.Radius}
	return BoundingBox3{Lower: r3.Sub(s.Center, r), Upper: r3.Add(s.Center, r)}
}

func (s Sphere3) UpdateQueryEngine() {}

type Plane3 struct {
	Normal r3.Vec
	Point  r3.Vec
}

func (p Plane3) SignedDistance(x r3.Vec) float64 {
	return r3.Dot(r3.Sub(x, p.Point), p.Normal)
}

func (p Plane3) ClosestPoint(x r3.Vec) r3.Vec {
	return r3.Sub(x, r3.Scale(p.SignedDistance(x), p.Normal))
}

func (p Plane3) ClosestNormal(r3.Vec) r3.Vec { return p.Normal }

func (p Plane3) ClosestIntersection(ray Ray3) (res SurfaceRayIntersection3) {
	dDotN := r3.Dot(ray.Direction, p.Normal)
	if math.Abs(dDotN) == 0 {
		return
	}
	t := r3.Dot(p.Normal, r3.Sub(p.Point, ray.Origin)) / dDotN
	if t < 0 {
		return
	}
	res.IsIntersecting = true
	res.Distance = t
	res.Point = ray.PointAt(t)
	res.Normal = p.Normal
	return
}

func (p Plane3) Intersects(ray Ray3) bool { return p.ClosestIntersection(ray).IsIntersecting }

func (p Plane3) BoundingBox() BoundingBox3 {
	const inf = math.MaxFloat64
	return BoundingBox3{
		Lower: r3.Vec{X: -inf, Y: -inf, Z: -inf},
		Upper: r3.Vec{X: inf, Y: inf, Z: inf},
	}
}

func (p Plane3) UpdateQueryEngine() {}

type Box3 struct {
	Bound BoundingBox3
}

func (b Box3) planes() [6]Plane3 {
	l, u := b.Bound.Lower, b.Bound.Upper
	return [6]Plane3{
		{Normal: r3.Vec{X: -1}, Point: l},
		{Normal: r3.Vec{X: 1}, Point: u},
		{Normal: r3.Vec{Y: -1}, Point: l},
		{Normal: r3.Vec{Y: 1}, Point: u},
		{Normal: r3.Vec{Z: -1}, Point: l},
		{Normal: r3.Vec{Z: 1}, Point: u},
	}
}

func (b Box3) SignedDistance(p r3.Vec) float64 {
	if b.Bound.Contains(p) {
		d := math.MaxFloat64
		for _, pl := range b.planes() {
			d = math.Min(d, -pl.SignedDistance(p))
		}
		return -d
	}
	return r3.Norm(r3.Sub(p, b.Bound.Clamp(p)))
}

func (b Box3) closestPlane(p r3.Vec) (best Plane3) {
	d := math.MaxFloat64
	for _, pl := range b.planes() {
		if dd := math.Abs(pl.SignedDistance(p)); dd < d {
			d, best = dd, pl
		}
	}
	return
}

func (b Box3) ClosestPoint(p r3.Vec) r3.Vec {
	if b.Bound.Contains(p) {
		return b.closestPlane(p).ClosestPoint(p)
	}
	return b.Bound.Clamp(p)
}

func (b Box3) ClosestNormal(p r3.Vec) r3.Vec {
	if b.Bound.Contains(p) {
		return b.closestPlane(p).Normal
	}
	var (
		toP    = r3.Sub(p, b.Bound.Clamp(p))
		best   r3.Vec
		maxCos = -math.MaxFloat64
	)
	for _, pl := range b.planes() {
		if c := r3.Dot(pl.Normal, toP); c > maxCos {
			maxCos, best = c, pl.Normal
		}
	}
	return best
}

func (b Box3) ClosestIntersection(ray Ray3) (res SurfaceRayIntersection3) {
	var (
		tMin, tMax = -math.MaxFloat64, math.MaxFloat64
		o          = [3]float64{ray.Origin.X, ray.Origin.Y, ray.Origin.Z}
		d          = [3]float64{ray.Direction.X, ray.Direction.Y, ray.Direction.Z}
		lo         = [3]float64{b.Bound.Lower.X, b.Bound.Lower.Y, b.Bound.Lower.Z}
		hi         = [3]float64{b.Bound.Upper.X, b.Bound.Upper.Y, b.Bound.Upper.Z}
	)
	for a := 0; a < 3; a++ {
		if d[a] == 0 {
			if o[a] < lo[a] || o[a] > hi[a] {
				return
			}
			continue
		}
		t0, t1 := (lo[a]-o[a])/d[a], (hi[a]-o[a])/d[a]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tMin, tMax = math.Max(tMin, t0), math.Min(tMax, t1)
	}
	if tMin > tMax || tMax < 0 {
		return
	}
	t := tMin
	if t < 0 {
		t = tMax
	}
	res.IsIntersecting = true
	res.Distance = t
	res.Point = ray.PointAt(t)
	res.Normal = b.closestPlane(res.Point).Normal
	return
}

func (b Box3) Intersects(ray Ray3) bool { return b.ClosestIntersection(ray).IsIntersecting }
func (b Box3) BoundingBox() BoundingBox3 { return b.Bound }
func (b Box3) UpdateQueryEngine()        {}
