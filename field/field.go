// Package field holds the scalar and vector field collaborators the solvers
// sample: constant fields, closure backed fields and surface distance fields.
package field

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/geometry"
)

type ScalarField2 interface {
	Sample(x r2.Vec) float64
	Gradient(x r2.Vec) r2.Vec
	Laplacian(x r2.Vec) float64
}

type VectorField2 interface {
	Sample(x r2.Vec) r2.Vec
	Divergence(x r2.Vec) float64
	Curl(x r2.Vec) float64
}

type ScalarField3 interface {
	Sample(x r3.Vec) float64
	Gradient(x r3.Vec) r3.Vec
	Laplacian(x r3.Vec) float64
}

type VectorField3 interface {
	Sample(x r3.Vec) r3.Vec
	Divergence(x r3.Vec) float64
	Curl(x r3.Vec) r3.Vec
}

type ConstantScalarField2 float64

func (c ConstantScalarField2) Sample(r2.Vec) float64    { return float64(c) }
func (c ConstantScalarField2) Gradient(r2.Vec) r2.Vec   { return r2.Vec{} }
func (c ConstantScalarField2) Laplacian(r2.Vec) float64 { return 0 }

type ConstantScalarField3 float64

func (c ConstantScalarField3) Sample(r3.Vec) float64    { return float64(c) }
func (c ConstantScalarField3) Gradient(r3.Vec) r3.Vec   { return r3.Vec{} }
func (c ConstantScalarField3) Laplacian(r3.Vec) float64 { return 0 }

type ConstantVectorField2 struct {
	Value r2.Vec
}

func (c ConstantVectorField2) Sample(r2.Vec) r2.Vec      { return c.Value }
func (c ConstantVectorField2) Divergence(r2.Vec) float64 { return 0 }
func (c ConstantVectorField2) Curl(r2.Vec) float64       { return 0 }

type ConstantVectorField3 struct {
	Value r3.Vec
}

func (c ConstantVectorField3) Sample(r3.Vec) r3.Vec      { return c.Value }
func (c ConstantVectorField3) Divergence(r3.Vec) float64 { return 0 }
func (c ConstantVectorField3) Curl(r3.Vec) r3.Vec        { return r3.Vec{} }

const defaultDerivativeResolution = 1e-3

// CustomScalarField2 wraps a closure. Derivatives use central differences of
// width Resolution unless GradientFunc / LaplacianFunc are supplied.
type CustomScalarField2 struct {
	Func          func(r2.Vec) float64
	GradientFunc  func(r2.Vec) r2.Vec
	LaplacianFunc func(r2.Vec) float64
	Resolution    float64
}

func NewCustomScalarField2(fn func(r2.Vec) float64) *CustomScalarField2 {
	return &CustomScalarField2{Func: fn, Resolution: defaultDerivativeResolution}
}

func (c *CustomScalarField2) Sample(x r2.Vec) float64 { return c.Func(x) }

func (c *CustomScalarField2) Gradient(x r2.Vec) r2.Vec {
	if c.GradientFunc != nil {
		return c.GradientFunc(x)
	}
	h := c.Resolution
	return r2.Vec{
		X: (c.Func(r2.Add(x, r2.Vec{X: 0.5 * h})) - c.Func(r2.Sub(x, r2.Vec{X: 0.5 * h}))) / h,
		Y: (c.Func(r2.Add(x, r2.Vec{Y: 0.5 * h})) - c.Func(r2.Sub(x, r2.Vec{Y: 0.5 * h}))) / h,
	}
}

func (c *CustomScalarField2) Laplacian(x r2.Vec) float64 {
	if c.LaplacianFunc != nil {
		return c.LaplacianFunc(x)
	}
	var (
		h      = c.Resolution
		center = c.Func(x)
		dx     = r2.Vec{X: h}
		dy     = r2.Vec{Y: h}
	)
	return (c.Func(r2.Add(x, dx)) + c.Func(r2.Sub(x, dx)) +
		c.Func(r2.Add(x, dy)) + c.Func(r2.Sub(x, dy)) - 4*center) / (h * h)
}

type CustomScalarField3 struct {
	Func          func(r3.Vec) float64
	GradientFunc  func(r3.Vec) r3.Vec
	LaplacianFunc func(r3.Vec) float64
	Resolution    float64
}

func NewCustomScalarField3(fn func(r3.Vec) float64) *CustomScalarField3 {
	return &CustomScalarField3{Func: fn, Resolution: defaultDerivativeResolution}
}

func (c *CustomScalarField3) Sample(x r3.Vec) float64 { return c.Func(x) }

func (c *CustomScalarField3) Gradient(x r3.Vec) r3.Vec {
	if c.GradientFunc != nil {
		return c.GradientFunc(x)
	}
	var (
		h  = c.Resolution
		dx = r3.Vec{X: 0.5 * h}
		dy = r3.Vec{Y: 0.5 * h}
		dz = r3.Vec{Z: 0.5 * h}
	)
	return r3.Vec{
		X: (c.Func(r3.Add(x, dx)) - c.Func(r3.Sub(x, dx))) / h,
		Y: (c.Func(r3.Add(x, dy)) - c.Func(r3.Sub(x, dy))) / h,
		Z: (c.Func(r3.Add(x, dz)) - c.Func(r3.Sub(x, dz))) / h,
	}
}

func (c *CustomScalarField3) Laplacian(x r3.Vec) float64 {
	if c.LaplacianFunc != nil {
		return c.LaplacianFunc(x)
	}
	var (
		h   = c.Resolution
		sum = -6 * c.Func(x)
	)
	for _, d := range []r3.Vec{{X: h}, {Y: h}, {Z: h}} {
		sum += c.Func(r3.Add(x, d)) + c.Func(r3.Sub(x, d))
	}
	return sum / (h * h)
}

type CustomVectorField2 struct {
	Func       func(r2.Vec) r2.Vec
	Resolution float64
}

func NewCustomVectorField2(fn func(r2.Vec) r2.Vec) *CustomVectorField2 {
	return &CustomVectorField2{Func: fn, Resolution: defaultDerivativeResolution}
}

func (c *CustomVectorField2) Sample(x r2.Vec) r2.Vec { return c.Func(x) }

func (c *CustomVectorField2) Divergence(x r2.Vec) float64 {
	var (
		h      = c.Resolution
		left   = c.Func(r2.Sub(x, r2.Vec{X: 0.5 * h})).X
		right  = c.Func(r2.Add(x, r2.Vec{X: 0.5 * h})).X
		bottom = c.Func(r2.Sub(x, r2.Vec{Y: 0.5 * h})).Y
		top    = c.Func(r2.Add(x, r2.Vec{Y: 0.5 * h})).Y
	)
	return (right-left)/h + (top-bottom)/h
}

func (c *CustomVectorField2) Curl(x r2.Vec) float64 {
	var (
		h      = c.Resolution
		left   = c.Func(r2.Sub(x, r2.Vec{X: 0.5 * h})).Y
		right  = c.Func(r2.Add(x, r2.Vec{X: 0.5 * h})).Y
		bottom = c.Func(r2.Sub(x, r2.Vec{Y: 0.5 * h})).X
		top    = c.Func(r2.Add(x, r2.Vec{Y: 0.5 * h})).X
	)
	return (right-left)/h - (top-bottom)/h
}

type CustomVectorField3 struct {
	Func       func(r3.Vec) r3.Vec
	Resolution float64
}

func NewCustomVectorField3(fn func(r3.Vec) r3.Vec) *CustomVectorField3 {
	return &CustomVectorField3{Func: fn, Resolution: defaultDerivativeResolution}
}

func (c *CustomVectorField3) Sample(x r3.Vec) r3.Vec { return c.Func(x) }

func (c *CustomVectorField3) Divergence(x r3.Vec) float64 {
	var (
		h  = c.Resolution
		dx = r3.Vec{X: 0.5 * h}
		dy = r3.Vec{Y: 0.5 * h}
		dz = r3.Vec{Z: 0.5 * h}
	)
	return (c.Func(r3.Add(x, dx)).X-c.Func(r3.Sub(x, dx)).X)/h +
		(c.Func(r3.Add(x, dy)).Y-c.Func(r3.Sub(x, dy)).Y)/h +
		(c.Func(r3.Add(x, dz)).Z-c.Func(r3.Sub(x, dz)).Z)/h
}

func (c *CustomVectorField3) Curl(x r3.Vec) r3.Vec {
	var (
		h      = c.Resolution
		dx     = r3.Vec{X: 0.5 * h}
		dy     = r3.Vec{Y: 0.5 * h}
		dz     = r3.Vec{Z: 0.5 * h}
		left   = c.Func(r3.Sub(x, dx))
		right  = c.Func(r3.Add(x, dx))
		bottom = c.Func(r3.Sub(x, dy))
		top    = c.Func(r3.Add(x, dy))
		back   = c.Func(r3.Sub(x, dz))
		front  = c.Func(r3.Add(x, dz))
	)
	return r3.Vec{
		X: (top.Z-bottom.Z)/h - (front.Y-back.Y)/h,
		Y: (front.X-back.X)/h - (right.Z-left.Z)/h,
		Z: (right.Y-left.Y)/h - (top.X-bottom.X)/h,
	}
}

// SurfaceToScalarField2 samples a surface's signed distance.
type SurfaceToScalarField2 struct {
	Surface geometry.Surface2
}

func (s SurfaceToScalarField2) Sample(x r2.Vec) float64 { return s.Surface.SignedDistance(x) }
func (s SurfaceToScalarField2) Gradient(x r2.Vec) r2.Vec {
	return NewCustomScalarField2(s.Sample).Gradient(x)
}
func (s SurfaceToScalarField2) Laplacian(x r2.Vec) float64 {
	return NewCustomScalarField2(s.Sample).Laplacian(x)
}

type SurfaceToScalarField3 struct {
	Surface geometry.Surface3
}

func (s SurfaceToScalarField3) Sample(x r3.Vec) float64 { return s.Surface.SignedDistance(x) }
func (s SurfaceToScalarField3) Gradient(x r3.Vec) r3.Vec {
	return NewCustomScalarField3(s.Sample).Gradient(x)
}
func (s SurfaceToScalarField3) Laplacian(x r3.Vec) float64 {
	return NewCustomScalarField3(s.Sample).Laplacian(x)
}

// NoBoundary is the signed distance used when no collider is present.
func NoBoundary2(r2.Vec) float64 { return math.MaxFloat64 }
func NoBoundary3(r3.Vec) float64 { return math.MaxFloat64 }

// AllFluid treats the whole domain as fluid.
func AllFluid2(r2.Vec) float64 { return -math.MaxFloat64 }
func AllFluid3(r3.Vec) float64 { return -math.MaxFloat64 }
