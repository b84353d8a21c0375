package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

type Sphere2 struct {
	Center r2.Vec
	Radius float64
}

func (s Sphere2) SignedDistance(p r2.Vec) float64 {
	return r2.Norm(r2.Sub(p, s.Center)) - s.Radius
}

func (s Sphere2) ClosestNormal(p r2.Vec) r2.Vec {
	d := r2.Sub(p, s.Center)
	if r2.Norm(d) == 0 {
		return r2.Vec{X: 1}
	}
	return Normalize2(d)
}

func (s Sphere2) ClosestPoint(p r2.Vec) r2.Vec {
	return r2.Add(s.Center, r2.Scale(s.Radius, s.ClosestNormal(p)))
}

func (s Sphere2) ClosestIntersection(ray Ray2) (res SurfaceRayIntersection2) {
	var (
		r = r2.Sub(ray.Origin, s.Center)
		b = r2.Dot(ray.Direction, r)
		c = r2.Norm2(r) - s.Radius*s.Radius
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
	res.Normal = Normalize2(r2.Sub(res.Point, s.Center))
	return
}

func (s Sphere2) Intersects(ray Ray2) bool { return s.ClosestIntersection(ray).IsIntersecting }

func (s Sphere2) BoundingBox() BoundingBox2 {
	r := r2.Vec{X: s.Radius, Y: s.Radius}
	return BoundingBox2{Lower: r2.Sub(s.Center, r), Upper: r2.Add(s.Center, r)}
}

func (s Sphere2) UpdateQueryEngine() {}

// Plane2 is the infinite line through Point with unit Normal.
type Plane2 struct {
	Normal r2.Vec
	Point  r2.Vec
}

func (p Plane2) SignedDistance(x r2.Vec) float64 {
	return r2.Dot(r2.Sub(x, p.Point), p.Normal)
}

func (p Plane2) ClosestPoint(x r2.Vec) r2.Vec {
	return r2.Sub(x, r2.Scale(p.SignedDistance(x), p.Normal))
}

func (p Plane2) ClosestNormal(r2.Vec) r2.Vec { return p.Normal }

func (p Plane2) ClosestIntersection(ray Ray2) (res SurfaceRayIntersection2) {
	dDotN := r2.Dot(ray.Direction, p.Normal)
	if math.Abs(dDotN) == 0 {
		return
	}
	t := r2.Dot(p.Normal, r2.Sub(p.Point, ray.Origin)) / dDotN
	if t < 0 {
		return
	}
	res.IsIntersecting = true
	res.Distance = t
	res.Point = ray.PointAt(t)
	res.Normal = p.Normal
	return
}

func (p Plane2) Intersects(ray Ray2) bool { return p.ClosestIntersection(ray).IsIntersecting }

func (p Plane2) BoundingBox() BoundingBox2 {
	const inf = math.MaxFloat64
	switch {
	case math.Abs(r2.Dot(p.Normal, r2.Vec{X: 1})-1) < 1e-12:
		return BoundingBox2{Lower: r2.Vec{X: p.Point.X, Y: -inf}, Upper: r2.Vec{X: p.Point.X, Y: inf}}
	case math.Abs(r2.Dot(p.Normal, r2.Vec{Y: 1})-1) < 1e-12:
		return BoundingBox2{Lower: r2.Vec{X: -inf, Y: p.Point.Y}, Upper: r2.Vec{X: inf, Y: p.Point.Y}}
	}
	return BoundingBox2{Lower: r2.Vec{X: -inf, Y: -inf}, Upper: r2.Vec{X: inf, Y: inf}}
}

func (p Plane2) UpdateQueryEngine() {}

// Box2 is a solid axis aligned box. Wrap it in Flipped2 to get a container.
type Box2 struct {
	Bound BoundingBox2
}

func (b Box2) planes() [4]Plane2 {
	l, u := b.Bound.Lower, b.Bound.Upper
	return [4]Plane2{
		{Normal: r2.Vec{X: -1}, Point: l},
		{Normal: r2.Vec{X: 1}, Point: u},
		{Normal: r2.Vec{Y: -1}, Point: l},
		{Normal: r2.Vec{Y: 1}, Point: u},
	}
}

func (b Box2) SignedDistance(p r2.Vec) float64 {
	if b.Bound.Contains(p) {
		d := math.MaxFloat64
		for _, pl := range b.planes() {
			d = math.Min(d, -pl.SignedDistance(p))
		}
		return -d
	}
	return r2.Norm(r2.Sub(p, b.Bound.Clamp(p)))
}

func (b Box2) closestPlane(p r2.Vec) (best Plane2) {
	d := math.MaxFloat64
	for _, pl := range b.planes() {
		if dd := math.Abs(pl.SignedDistance(p)); dd < d {
			d, best = dd, pl
		}
	}
	return
}

func (b Box2) ClosestPoint(p r2.Vec) r2.Vec {
	if b.Bound.Contains(p) {
		return b.closestPlane(p).ClosestPoint(p)
	}
	return b.Bound.Clamp(p)
}

func (b Box2) ClosestNormal(p r2.Vec) r2.Vec {
	if b.Bound.Contains(p) {
		return b.closestPlane(p).Normal
	}
	var (
		cp     = b.Bound.Clamp(p)
		toP    = r2.Sub(p, cp)
		best   r2.Vec
		maxCos = -math.MaxFloat64
	)
	for _, pl := range b.planes() {
		if c := r2.Dot(pl.Normal, toP); c > maxCos {
			maxCos, best = c, pl.Normal
		}
	}
	return best
}

func (b Box2) ClosestIntersection(ray Ray2) (res SurfaceRayIntersection2) {
	tMin, tMax, ok := slab2(b.Bound, ray)
	if !ok {
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

func slab2(bb BoundingBox2, ray Ray2) (tMin, tMax float64, ok bool) {
	tMin, tMax = -math.MaxFloat64, math.MaxFloat64
	o := [2]float64{ray.Origin.X, ray.Origin.Y}
	d := [2]float64{ray.Direction.X, ray.Direction.Y}
	lo := [2]float64{bb.Lower.X, bb.Lower.Y}
	hi := [2]float64{bb.Upper.X, bb.Upper.Y}
	for a := 0; a < 2; a++ {
		if d[a] == 0 {
			if o[a] < lo[a] || o[a] > hi[a] {
				return 0, 0, false
			}
			continue
		}
		t0, t1 := (lo[a]-o[a])/d[a], (hi[a]-o[a])/d[a]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tMin, tMax = math.Max(tMin, t0), math.Min(tMax, t1)
	}
	ok = tMin <= tMax && tMax >= 0
	return
}

func (b Box2) Intersects(ray Ray2) bool { return b.ClosestIntersection(ray).IsIntersecting }
func (b Box2) BoundingBox() BoundingBox2 { return b.Bound }
func (b Box2) UpdateQueryEngine()        {}
