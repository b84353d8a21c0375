package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

type BoundingBox2 struct {
	Lower, Upper r2.Vec
}

// NewBoundingBox2 orders the corners so that Lower <= Upper per axis.
func NewBoundingBox2(a, b r2.Vec) BoundingBox2 {
	return BoundingBox2{
		Lower: r2.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Upper: r2.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

// EmptyBoundingBox2 is the identity for Merge.
func EmptyBoundingBox2() BoundingBox2 {
	return BoundingBox2{
		Lower: r2.Vec{X: math.MaxFloat64, Y: math.MaxFloat64},
		Upper: r2.Vec{X: -math.MaxFloat64, Y: -math.MaxFloat64},
	}
}

func (b BoundingBox2) Width() float64  { return b.Upper.X - b.Lower.X }
func (b BoundingBox2) Height() float64 { return b.Upper.Y - b.Lower.Y }
func (b BoundingBox2) Size() r2.Vec    { return r2.Sub(b.Upper, b.Lower) }
func (b BoundingBox2) MidPoint() r2.Vec {
	return r2.Scale(0.5, r2.Add(b.Lower, b.Upper))
}
func (b BoundingBox2) Box() r2.Box { return r2.Box{Min: b.Lower, Max: b.Upper} }

func (b BoundingBox2) IsEmpty() bool {
	return b.Lower.X >= b.Upper.X || b.Lower.Y >= b.Upper.Y
}

func (b BoundingBox2) Contains(p r2.Vec) bool {
	return p.X >= b.Lower.X && p.X <= b.Upper.X &&
		p.Y >= b.Lower.Y && p.Y <= b.Upper.Y
}

func (b BoundingBox2) Overlaps(o BoundingBox2) bool {
	return !(b.Upper.X < o.Lower.X || b.Lower.X > o.Upper.X ||
		b.Upper.Y < o.Lower.Y || b.Lower.Y > o.Upper.Y)
}

func (b BoundingBox2) Clamp(p r2.Vec) r2.Vec {
	return r2.Vec{
		X: math.Max(b.Lower.X, math.Min(p.X, b.Upper.X)),
		Y: math.Max(b.Lower.Y, math.Min(p.Y, b.Upper.Y)),
	}
}

func (b BoundingBox2) Expand(delta float64) BoundingBox2 {
	d := r2.Vec{X: delta, Y: delta}
	return BoundingBox2{Lower: r2.Sub(b.Lower, d), Upper: r2.Add(b.Upper, d)}
}

func (b BoundingBox2) Merge(p r2.Vec) BoundingBox2 {
	return BoundingBox2{
		Lower: r2.Vec{X: math.Min(b.Lower.X, p.X), Y: math.Min(b.Lower.Y, p.Y)},
		Upper: r2.Vec{X: math.Max(b.Upper.X, p.X), Y: math.Max(b.Upper.Y, p.Y)},
	}
}

func (b BoundingBox2) Union(o BoundingBox2) BoundingBox2 {
	return b.Merge(o.Lower).Merge(o.Upper)
}

type BoundingBox3 struct {
	Lower, Upper r3.Vec
}

func NewBoundingBox3(a, b r3.Vec) BoundingBox3 {
	return BoundingBox3{
		Lower: r3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)},
		Upper: r3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)},
	}
}

func EmptyBoundingBox3() BoundingBox3 {
	return BoundingBox3{
		Lower: r3.Vec{X: math.MaxFloat64, Y: math.MaxFloat64, Z: math.MaxFloat64},
		Upper: r3.Vec{X: -math.MaxFloat64, Y: -math.MaxFloat64, Z: -math.MaxFloat64},
	}
}

func (b BoundingBox3) Width() float64  { return b.Upper.X - b.Lower.X }
func (b BoundingBox3) Height() float64 { return b.Upper.Y - b.Lower.Y }
func (b BoundingBox3) Depth() float64  { return b.Upper.Z - b.Lower.Z }
func (b BoundingBox3) Size() r3.Vec    { return r3.Sub(b.Upper, b.Lower) }
func (b BoundingBox3) MidPoint() r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Lower, b.Upper))
}
func (b BoundingBox3) Box() r3.Box { return r3.Box{Min: b.Lower, Max: b.Upper} }

func (b BoundingBox3) IsEmpty() bool {
	return b.Lower.X >= b.Upper.X || b.Lower.Y >= b.Upper.Y || b.Lower.Z >= b.Upper.Z
}

func (b BoundingBox3) Contains(p r3.Vec) bool {
	return p.X >= b.Lower.X && p.X <= b.Upper.X &&
		p.Y >= b.Lower.Y && p.Y <= b.Upper.Y &&
		p.Z >= b.Lower.Z && p.Z <= b.Upper.Z
}

func (b BoundingBox3) Overlaps(o BoundingBox3) bool {
	return !(b.Upper.X < o.Lower.X || b.Lower.X > o.Upper.X ||
		b.Upper.Y < o.Lower.Y || b.Lower.Y > o.Upper.Y ||
		b.Upper.Z < o.Lower.Z || b.Lower.Z > o.Upper.Z)
}

func (b BoundingBox3) Clamp(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: math.Max(b.Lower.X, math.Min(p.X, b.Upper.X)),
		Y: math.Max(b.Lower.Y, math.Min(p.Y, b.Upper.Y)),
		Z: math.Max(b.Lower.Z, math.Min(p.Z, b.Upper.Z)),
	}
}

func (b BoundingBox3) Expand(delta float64) BoundingBox3 {
	d := r3.Vec{X: delta, Y: delta, Z: delta}
	return BoundingBox3{Lower: r3.Sub(b.Lower, d), Upper: r3.Add(b.Upper, d)}
}

func (b BoundingBox3) Merge(p r3.Vec) BoundingBox3 {
	return BoundingBox3{
		Lower: r3.Vec{X: math.Min(b.Lower.X, p.X), Y: math.Min(b.Lower.Y, p.Y), Z: math.Min(b.Lower.Z, p.Z)},
		Upper: r3.Vec{X: math.Max(b.Upper.X, p.X), Y: math.Max(b.Upper.Y, p.Y), Z: math.Max(b.Upper.Z, p.Z)},
	}
}

func (b BoundingBox3) Union(o BoundingBox3) BoundingBox3 {
	return b.Merge(o.Lower).Merge(o.Upper)
}
