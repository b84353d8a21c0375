package array

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestGetBarycentric(t *testing.T) {
	tests := []struct {
		x     float64
		i     int
		f     float64
		label string
	}{
		{1.25, 1, 0.25, "interior"},
		{-0.5, 0, 0, "below range"},
		{3.5, 2, 1, "above range"},
		{3.0, 2, 1, "upper end"},
		{0.0, 0, 0, "lower end"},
		{2 - 1e-13, 2, 0, "rounding below a node"},
		{1 + 1e-13, 1, 0, "rounding above a node"},
	}
	for _, tt := range tests {
		i, f := GetBarycentric(tt.x, 0, 3)
		assert.Equal(t, tt.i, i, tt.label)
		assert.InDelta(t, tt.f, f, 1e-15, tt.label)
	}
	assert.Equal(t, 3., MonotonicCatmullRom(1, 3, 7, 8, 0))
	assert.Equal(t, 7., MonotonicCatmullRom(1, 3, 7, 8, 1))
	i, f := GetBarycentric(0.7, 0, 0)
	assert.Equal(t, 0, i)
	assert.Equal(t, 0., f)
}

func TestLinearSampler2(t *testing.T) {
	var (
		a       = NewArray2[float64](4, 3)
		spacing = r2.Vec{X: 0.5, Y: 0.25}
		origin  = r2.Vec{X: -1, Y: 2}
	)
	// A linear function is reproduced exactly.
	lin := func(p r2.Vec) float64 { return 3*p.X - 2*p.Y + 1 }
	a.ForEachIndex(func(i, j int) {
		a.Set(i, j, lin(r2.Vec{X: origin.X + float64(i)*spacing.X, Y: origin.Y + float64(j)*spacing.Y}))
	})
	s := NewLinearSampler2(a, spacing, origin, Float64Ops)
	for _, p := range []r2.Vec{{X: -0.8, Y: 2.1}, {X: 0.3, Y: 2.4}, {X: -1, Y: 2}} {
		assert.InDelta(t, lin(p), s.Sample(p), 1e-12)
	}
	{ // Weights are non-negative and sum to one, inside and outside the domain
		for _, p := range []r2.Vec{{X: -0.8, Y: 2.1}, {X: -5, Y: 9}, {X: 0.5, Y: 2.5}, {X: 0.1, Y: -3}} {
			idx, w := s.GetCoordinatesAndWeights(p)
			sum := 0.
			for n := range w {
				assert.GreaterOrEqual(t, w[n], 0.)
				assert.True(t, idx[n][0] >= 0 && idx[n][0] < 4)
				assert.True(t, idx[n][1] >= 0 && idx[n][1] < 3)
				sum += w[n]
			}
			assert.InDelta(t, 1., sum, 1e-9)
		}
	}
	{ // Gradient weights reproduce the gradient of a linear function
		idx, gw := s.GetCoordinatesAndGradientWeights(r2.Vec{X: -0.3, Y: 2.3})
		var g r2.Vec
		for n := range gw {
			g = r2.Add(g, r2.Scale(a.At(idx[n][0], idx[n][1]), gw[n]))
		}
		assert.InDelta(t, 3., g.X, 1e-9)
		assert.InDelta(t, -2., g.Y, 1e-9)
	}
}

func TestLinearSampler3(t *testing.T) {
	var (
		a       = NewArray3[float64](3, 4, 5)
		spacing = r3.Vec{X: 1, Y: 0.5, Z: 2}
		origin  = r3.Vec{}
	)
	lin := func(p r3.Vec) float64 { return p.X + 2*p.Y - p.Z }
	a.ForEachIndex(func(i, j, k int) {
		a.Set(i, j, k, lin(r3.Vec{X: float64(i) * spacing.X, Y: float64(j) * spacing.Y, Z: float64(k) * spacing.Z}))
	})
	s := NewLinearSampler3(a, spacing, origin, Float64Ops)
	p := r3.Vec{X: 1.3, Y: 0.7, Z: 3.1}
	assert.InDelta(t, lin(p), s.Sample(p), 1e-12)
	idx, w := s.GetCoordinatesAndWeights(r3.Vec{X: 10, Y: -1, Z: 4.5})
	sum := 0.
	for n := range w {
		assert.GreaterOrEqual(t, w[n], 0.)
		assert.Less(t, idx[n][0], 3)
		sum += w[n]
	}
	assert.InDelta(t, 1., sum, 1e-9)
	idx, gw := s.GetCoordinatesAndGradientWeights(p)
	var g r3.Vec
	for n := range gw {
		g = r3.Add(g, r3.Scale(a.At(idx[n][0], idx[n][1], idx[n][2]), gw[n]))
	}
	assert.InDelta(t, 1., g.X, 1e-9)
	assert.InDelta(t, 2., g.Y, 1e-9)
	assert.InDelta(t, -1., g.Z, 1e-9)
}

func TestNearestAndCubicSamplers(t *testing.T) {
	a := NewArray2[float64](4, 4)
	a.ForEachIndex(func(i, j int) { a.Set(i, j, float64(i+4*j)) })
	n := NewNearestSampler2(a, r2.Vec{X: 1, Y: 1}, r2.Vec{})
	assert.Equal(t, a.At(1, 2), n.Sample(r2.Vec{X: 1.4, Y: 1.6}))
	assert.Equal(t, a.At(3, 3), n.Sample(r2.Vec{X: 9, Y: 9}))

	c := NewCubicSampler2(a, r2.Vec{X: 1, Y: 1}, r2.Vec{}, Float64Ops)
	// Data points are interpolated exactly and the ramp is monotone.
	assert.InDelta(t, a.At(2, 1), c.Sample(r2.Vec{X: 2, Y: 1}), 1e-12)
	assert.InDelta(t, 5.5, c.Sample(r2.Vec{X: 1.5, Y: 1}), 1e-12)

	assert.InDelta(t, 1.5, MonotonicCatmullRom(0, 1, 2, 3, 0.5), 1e-12)
	// A step does not overshoot.
	v := MonotonicCatmullRom(0, 0, 1, 1, 0.25)
	assert.True(t, v >= 0 && v <= 1)
	assert.InDelta(t, 0., MonotonicCatmullRom(2, 2, 2, 2, 0.3)-2, 1e-15)
	assert.False(t, math.IsNaN(MonotonicCatmullRom(0, 1, 1, 0, 0.5)))

	c3 := NewCubicSampler3(NewArray3[r3.Vec](2, 2, 2, r3.Vec{X: 1, Y: 2, Z: 3}),
		r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{}, Vec3Ops)
	assert.InDelta(t, 2., c3.Sample(r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}).Y, 1e-12)
}
