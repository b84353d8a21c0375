package implicit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/grid"
)

func newOutput2() *grid.ScalarGrid2 {
	return grid.NewCellCenteredScalarGrid2(array.Size2{X: 20, Y: 20}, r2.Vec{X: 0.05, Y: 0.05}, r2.Vec{})
}

func squareOfPoints(lo, hi, spacing float64) (pts []r2.Vec) {
	for y := lo; y <= hi+1e-9; y += spacing {
		for x := lo; x <= hi+1e-9; x += spacing {
			pts = append(pts, r2.Vec{X: x, Y: y})
		}
	}
	return
}

func TestSphericalPointsToImplicit(t *testing.T) {
	var (
		out    = newOutput2()
		center = r2.Vec{X: 0.525, Y: 0.525}
	)
	require.NoError(t, NewSphericalPointsToImplicit2(0.1, false).Convert([]r2.Vec{center}, out))
	// cell (10, 10) is centered on the point
	assert.InDelta(t, -0.1, out.At(10, 10), 1e-12)
	assert.InDelta(t, 0.05-0.1, out.At(11, 10), 1e-12)
	assert.InDelta(t, 0.1, out.At(0, 0), 1e-12)

	{ // Test redistancing keeps the sign
		sdf := newOutput2()
		require.NoError(t, NewSphericalPointsToImplicit2(0.1, true).Convert([]r2.Vec{center}, sdf))
		assert.Less(t, sdf.At(10, 10), 0.)
		assert.Greater(t, sdf.At(0, 0), 0.)
		assert.Greater(t, sdf.At(0, 0), sdf.At(5, 5))
	}
	{ // Test 3D
		out3 := grid.NewCellCenteredScalarGrid3(array.Size3{X: 8, Y: 8, Z: 8}, r3.Vec{X: 0.125, Y: 0.125, Z: 0.125}, r3.Vec{})
		require.NoError(t, NewSphericalPointsToImplicit3(0.2, false).Convert(
			[]r3.Vec{{X: 0.5625, Y: 0.5625, Z: 0.5625}}, out3))
		assert.InDelta(t, -0.2, out3.At(4, 4, 4), 1e-12)
		assert.InDelta(t, 0.2, out3.At(0, 0, 0), 1e-12)
	}
}

func TestAnisotropicKernelPreservesArea(t *testing.T) {
	const invH = 10.
	{ // Test an elongated covariance
		k, ok := anisotropicKernel2(mat.NewSymDense(2, []float64{4, 0, 0, 1}), invH)
		require.True(t, ok)
		assert.InDelta(t, invH*invH, k.det, 1e-9)
		assert.InDelta(t, 0.5*invH, math.Abs(k.g[0][0]), 1e-9)
		assert.InDelta(t, 2*invH, math.Abs(k.g[1][1]), 1e-9)
		assert.InDelta(t, 0, k.g[0][1], 1e-9)
	}
	{ // Test the anisotropy is clamped to four
		k, ok := anisotropicKernel2(mat.NewSymDense(2, []float64{16, 0, 0, 1}), invH)
		require.True(t, ok)
		assert.InDelta(t, 0.5*invH, math.Abs(k.g[0][0]), 1e-9)
		assert.InDelta(t, 2*invH, math.Abs(k.g[1][1]), 1e-9)
	}
	{ // Test 3D keeps the volume
		k, ok := anisotropicKernel3(mat.NewSymDense(3, []float64{4, 0, 0, 0, 2, 0, 0, 0, 1}), invH)
		require.True(t, ok)
		assert.InDelta(t, invH*invH*invH, math.Abs(k.det), 1e-6)
	}
	_, ok := anisotropicKernel2(mat.NewSymDense(2, []float64{0, 0, 0, 0}), invH)
	assert.False(t, ok)
}

func TestAnisotropicPointsToImplicit(t *testing.T) {
	var (
		pts       = squareOfPoints(0.3, 0.7, 0.025)
		converter = NewAnisotropicPointsToImplicit2(0.05)
	)
	converter.IsOutputSDF = false
	out := newOutput2()
	require.NoError(t, converter.Convert(pts, out))
	assert.Less(t, out.Sample(r2.Vec{X: 0.5, Y: 0.5}), 0.)
	// far from every point only the cut off is left
	assert.InDelta(t, DefaultCutOffDensity, out.At(0, 0), 1e-12)
	assert.InDelta(t, DefaultCutOffDensity, out.At(19, 19), 1e-12)

	{ // Test the redistanced field
		converter.IsOutputSDF = true
		sdf := newOutput2()
		require.NoError(t, converter.Convert(pts, sdf))
		assert.Less(t, sdf.Sample(r2.Vec{X: 0.5, Y: 0.5}), 0.)
		assert.Greater(t, sdf.At(0, 0), 0.)
		// roughly the distance to the block
		assert.InDelta(t, math.Hypot(0.3-0.025, 0.3-0.025), sdf.At(0, 0), 0.15)
	}
	{ // Test an empty grid is left alone
		empty := grid.NewCellCenteredScalarGrid2(array.Size2{}, r2.Vec{X: 1, Y: 1}, r2.Vec{})
		assert.NoError(t, converter.Convert(pts, empty))
	}
}

func TestAnisotropicPointsToImplicit3(t *testing.T) {
	var pts []r3.Vec
	for z := 0.3; z <= 0.7+1e-9; z += 0.05 {
		for y := 0.3; y <= 0.7+1e-9; y += 0.05 {
			for x := 0.3; x <= 0.7+1e-9; x += 0.05 {
				pts = append(pts, r3.Vec{X: x, Y: y, Z: z})
			}
		}
	}
	var (
		out       = grid.NewCellCenteredScalarGrid3(array.Size3{X: 10, Y: 10, Z: 10}, r3.Vec{X: 0.1, Y: 0.1, Z: 0.1}, r3.Vec{})
		converter = NewAnisotropicPointsToImplicit3(0.1)
	)
	converter.IsOutputSDF = false
	require.NoError(t, converter.Convert(pts, out))
	assert.Less(t, out.At(5, 5, 5), 0.)
	assert.InDelta(t, DefaultCutOffDensity, out.At(0, 0, 0), 1e-12)
}
