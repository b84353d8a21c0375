package array

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Ops is the arithmetic a sampler or an extrapolation needs from an element
// type. Float64Ops, Vec2Ops and Vec3Ops cover the element types used by grids.
type Ops[T any] struct {
	Add        func(a, b T) T
	Sub        func(a, b T) T
	Scale      func(s float64, a T) T
	CatmullRom func(f0, f1, f2, f3 T, t float64) T
}

var Float64Ops = Ops[float64]{
	Add:        func(a, b float64) float64 { return a + b },
	Sub:        func(a, b float64) float64 { return a - b },
	Scale:      func(s float64, a float64) float64 { return s * a },
	CatmullRom: MonotonicCatmullRom,
}

var Vec2Ops = Ops[r2.Vec]{
	Add:   r2.Add,
	Sub:   r2.Sub,
	Scale: r2.Scale,
	CatmullRom: func(f0, f1, f2, f3 r2.Vec, t float64) r2.Vec {
		return r2.Vec{
			X: MonotonicCatmullRom(f0.X, f1.X, f2.X, f3.X, t),
			Y: MonotonicCatmullRom(f0.Y, f1.Y, f2.Y, f3.Y, t),
		}
	},
}

var Vec3Ops = Ops[r3.Vec]{
	Add:   r3.Add,
	Sub:   r3.Sub,
	Scale: r3.Scale,
	CatmullRom: func(f0, f1, f2, f3 r3.Vec, t float64) r3.Vec {
		return r3.Vec{
			X: MonotonicCatmullRom(f0.X, f1.X, f2.X, f3.X, t),
			Y: MonotonicCatmullRom(f0.Y, f1.Y, f2.Y, f3.Y, t),
			Z: MonotonicCatmullRom(f0.Z, f1.Z, f2.Z, f3.Z, t),
		}
	},
}

func Lerp[T any](ops Ops[T], a, b T, t float64) T {
	return ops.Add(ops.Scale(1-t, a), ops.Scale(t, b))
}

func BiLerp[T any](ops Ops[T], f00, f10, f01, f11 T, tx, ty float64) T {
	return Lerp(ops, Lerp(ops, f00, f10, tx), Lerp(ops, f01, f11, tx), ty)
}

func TriLerp[T any](ops Ops[T], f000, f100, f010, f110, f001, f101, f011, f111 T,
	tx, ty, tz float64) T {
	return Lerp(ops,
		BiLerp(ops, f000, f100, f010, f110, tx, ty),
		BiLerp(ops, f001, f101, f011, f111, tx, ty),
		tz)
}

// barycentricSnap is how close, in index units, x must be to a node to be
// read as that node.
const barycentricSnap = 1e-9

// GetBarycentric splits x into a cell index in [iLow, iHigh-1] and a fraction
// in [0,1]. Coordinates outside the range clamp to the end cells, and
// coordinates within barycentricSnap of a node land on it exactly.
func GetBarycentric(x float64, iLow, iHigh int) (i int, f float64) {
	if r := math.Round(x); math.Abs(x-r) < barycentricSnap {
		x = r
	}
	s := math.Floor(x)
	i = int(s)
	switch {
	case iLow == iHigh:
		i, f = iLow, 0
	case i < iLow:
		i, f = iLow, 0
	case i > iHigh-1:
		i, f = iHigh-1, 1
	default:
		f = x - s
	}
	return
}

// MonotonicCatmullRom is the Catmull-Rom spline through f1 and f2 with tangents
// limited so that the curve never overshoots the data.
func MonotonicCatmullRom(f0, f1, f2, f3, t float64) float64 {
	var (
		d1     = (f2 - f0) / 2
		d2     = (f3 - f1) / 2
		delta1 = f2 - f1
	)
	if math.Abs(delta1) < math.SmallestNonzeroFloat64 {
		d1, d2 = 0, 0
	}
	if sign(delta1) != sign(d1) {
		d1 = 0
	}
	if sign(delta1) != sign(d2) {
		d2 = 0
	}
	var (
		a3 = d1 + d2 - 2*delta1
		a2 = 3*delta1 - 2*d1 - d2
		a1 = d1
		a0 = f1
	)
	switch t {
	case 0:
		return f1
	case 1:
		return f2
	}
	return a3*t*t*t + a2*t*t + a1*t + a0
}

func sign(x float64) float64 {
	if x >= 0 {
		return 1
	}
	return -1
}

func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(x, hi))
}

func ClampInt(x, lo, hi int) int {
	return max(lo, min(x, hi))
}
