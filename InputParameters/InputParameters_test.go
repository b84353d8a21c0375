package InputParameters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestDefaults(t *testing.T) {
	ip := NewInputParameters()
	require.NoError(t, ip.Validate())
	assert.Equal(t, 2, ip.Dimension)
	assert.Equal(t, "flip", ip.Solver)
	assert.Equal(t, 60, ip.NumberOfFrames())
	assert.InDelta(t, 1./64, ip.GridSpacing(), 1e-15)
	assert.InDelta(t, 0.5/64, ip.EmitterSpacing(), 1e-15)
	assert.Equal(t, r2.Vec{Y: -9.8}, Vec2(ip.Gravity))
	assert.Equal(t, "box", ip.Emitter.Shape.Shape)
	assert.True(t, ip.Output.CSV)
}

func TestParseOverridesDefaults(t *testing.T) {
	input := []byte(`
Title: "Sphere drop"
Dimension: 3
Resolution: [16, 32, 16]
Solver: apic
FinalTime: 0.5
FPS: 30
Emitter:
  Shape: sphere
  Radius: 0.2
Output:
  CSV: false
`)
	path := filepath.Join(t.TempDir(), "input.yaml")
	require.NoError(t, os.WriteFile(path, input, 0644))
	ip, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Sphere drop", ip.Title)
	assert.Equal(t, 3, ip.Dimension)
	assert.Equal(t, 32, ip.Size3().Y)
	assert.Equal(t, "apic", ip.Solver)
	assert.Equal(t, 15, ip.NumberOfFrames())
	assert.Equal(t, "sphere", ip.Emitter.Shape.Shape)
	assert.Equal(t, 0.2, ip.Emitter.Radius)
	// untouched nested fields keep their defaults
	assert.Equal(t, []float64{0.5, 0.5, 0.5}, ip.Emitter.Center)
	assert.False(t, ip.Output.CSV)
	assert.Equal(t, "output", ip.Output.Directory)
	assert.Equal(t, "iccg", ip.LinearSolver)

	{ // Test a missing file
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(ip *InputParameters)
	}{
		{"dimension", func(ip *InputParameters) { ip.Dimension = 4 }},
		{"short resolution", func(ip *InputParameters) { ip.Resolution = []int{8} }},
		{"zero resolution", func(ip *InputParameters) { ip.Resolution = []int{8, 0} }},
		{"solver", func(ip *InputParameters) { ip.Solver = "sph" }},
		{"blending", func(ip *InputParameters) { ip.PICBlendingFactor = 1.5 }},
		{"cfl", func(ip *InputParameters) { ip.MaxCFL = 0 }},
		{"fps", func(ip *InputParameters) { ip.FPS = -1 }},
		{"viscosity", func(ip *InputParameters) { ip.Viscosity = -1 }},
		{"pressure", func(ip *InputParameters) { ip.PressureSolver = "exact" }},
		{"linear", func(ip *InputParameters) { ip.LinearSolver = "lu" }},
		{"tolerance", func(ip *InputParameters) { ip.Tolerance = 0 }},
		{"iterations", func(ip *InputParameters) { ip.MaxIterations = 0 }},
		{"compressed mg", func(ip *InputParameters) { ip.LinearSolver, ip.UseCompressed = "mg", true }},
		{"emitter shape", func(ip *InputParameters) { ip.Emitter.Shape.Shape = "cone" }},
		{"collider sphere", func(ip *InputParameters) { ip.Collider = Shape{Shape: "sphere", Center: []float64{0.5, 0.5}} }},
		{"jitter", func(ip *InputParameters) { ip.Emitter.Jitter = 2 }},
		{"compression", func(ip *InputParameters) { ip.Output.CompressionLevel = 0 }},
		{"policy", func(ip *InputParameters) { ip.Parallel.Policy = "gpu" }},
	}
	for _, c := range cases {
		ip := NewInputParameters()
		c.modify(ip)
		assert.ErrorIs(t, ip.Validate(), ErrInvalidParameter, c.name)
	}
}
