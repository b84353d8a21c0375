package checkpoint

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/grid"
	"github.com/notargets/gofluid/particle"
	"github.com/notargets/gofluid/utils"
)

func serialized(t *testing.T, obj Serializable) []byte {
	var buf bytes.Buffer
	require.NoError(t, obj.Serialize(&buf))
	return buf.Bytes()
}

func TestCompressedFrame(t *testing.T) {
	payload := bytes.Repeat([]byte("gofluid "), 1000)
	var buf bytes.Buffer
	require.NoError(t, WriteCompressed(&buf, DefaultCompressionLevel, payload))
	assert.Less(t, buf.Len(), len(payload))
	{ // Test two frames in one stream
		require.NoError(t, WriteCompressed(&buf, 1, []byte{1, 2, 3}))
		out, err := ReadCompressed(&buf)
		require.NoError(t, err)
		assert.Equal(t, payload, out)
		out, err = ReadCompressed(&buf)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, out)
	}
	{ // Test a negative length
		var bad bytes.Buffer
		require.NoError(t, utils.WriteValue(&bad, int64(-1)))
		_, err := ReadCompressed(&bad)
		assert.ErrorIs(t, err, utils.ErrCorrupt)
	}
	{ // Test a truncated frame
		var short bytes.Buffer
		require.NoError(t, WriteCompressed(&short, 1, payload))
		_, err := ReadCompressed(bytes.NewReader(short.Bytes()[:short.Len()-4]))
		assert.ErrorIs(t, err, utils.ErrCorrupt)
	}
}

func TestGridRoundTrip(t *testing.T) {
	var (
		dir = t.TempDir()
		g   = grid.NewGridSystemData2(array.Size2{X: 8, Y: 6}, r2.Vec{X: 0.25, Y: 0.5}, r2.Vec{X: -1, Y: 2})
		idx = g.AddScalarData(grid.CellCentered, 0)
	)
	g.ScalarDataAt(idx).FillFunc(func(x r2.Vec) float64 { return math.Sin(x.X) * math.Cos(x.Y) })
	g.Velocity().U().Fill(1.5)
	path := filepath.Join(dir, "frames", FileName("grid", 3))
	assert.Equal(t, "grid_000003.zst", filepath.Base(path))
	require.NoError(t, SaveGrid(path, DefaultCompressionLevel, g))

	loaded := grid.NewGridSystemData2(array.Size2{}, r2.Vec{X: 1, Y: 1}, r2.Vec{})
	require.NoError(t, LoadGrid(path, loaded))
	assert.Equal(t, serialized(t, g), serialized(t, loaded))
	assert.Equal(t, g.ScalarDataAt(idx).At(5, 4), loaded.ScalarDataAt(idx).At(5, 4))

	{ // Test loading into the wrong type
		err := LoadGrid(path, grid.NewCellCenteredScalarGrid2(array.Size2{}, r2.Vec{X: 1, Y: 1}, r2.Vec{}))
		assert.ErrorIs(t, err, grid.ErrGridType)
	}
	{ // Test a missing file
		err := LoadGrid(filepath.Join(dir, "nope.zst"), loaded)
		assert.ErrorIs(t, err, os.ErrNotExist)
	}
	{ // Test 3D
		g3 := grid.NewGridSystemData3(array.Size3{X: 4, Y: 3, Z: 2}, r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{})
		p3 := filepath.Join(dir, FileName("grid3", 0))
		require.NoError(t, SaveGrid(p3, 1, g3))
		l3 := grid.NewGridSystemData3(array.Size3{}, r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{})
		require.NoError(t, LoadGrid(p3, l3))
		assert.Equal(t, serialized(t, g3), serialized(t, l3))
	}
}

func TestParticlesRoundTrip(t *testing.T) {
	var (
		dir = t.TempDir()
		ps  = particle.NewSystemData2(0)
	)
	require.NoError(t, ps.AddParticles(
		[]r2.Vec{{X: 0.1, Y: 0.2}, {X: 0.3, Y: 0.4}, {X: 1.0 / 3, Y: math.Pi}},
		[]r2.Vec{{X: 1}, {Y: -2}, {X: 1e-17, Y: 3}}, nil))
	path := filepath.Join(dir, FileName("particles", 7))
	require.NoError(t, SaveParticles(path, DefaultCompressionLevel, ps))

	loaded := particle.NewSystemData2(0)
	require.NoError(t, LoadParticles(path, loaded))
	assert.Equal(t, ps.Positions(), loaded.Positions())
	assert.Equal(t, ps.Velocities(), loaded.Velocities())
	assert.Equal(t, serialized(t, ps), serialized(t, loaded))

	{ // Test 3D
		ps3 := particle.NewSystemData3(0)
		require.NoError(t, ps3.AddParticles([]r3.Vec{{X: 1, Y: 2, Z: 3}}, nil, nil))
		p3 := filepath.Join(dir, FileName("particles3", 0))
		require.NoError(t, SaveParticles(p3, 1, ps3))
		l3 := particle.NewSystemData3(0)
		require.NoError(t, LoadParticles(p3, l3))
		assert.Equal(t, ps3.Positions(), l3.Positions())
	}
}

func TestDiagnosticsWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "diagnostics.csv")
	d, err := NewDiagnosticsWriter(path)
	require.NoError(t, err)
	for frame := 0; frame < 3; frame++ {
		require.NoError(t, d.Write(Diagnostics{Frame: frame, Time: float64(frame) / 60, Particles: 10 * frame}))
	}
	require.NoError(t, d.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(raw), []byte("\n"))
	require.Len(t, lines, 4)
	assert.True(t, bytes.HasPrefix(lines[0], []byte("frame,time,particles,max_speed")))

	rows, err := ReadDiagnostics(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 2, rows[2].Frame)
	assert.Equal(t, 20, rows[2].Particles)

	{ // Test a disabled writer
		d, err := NewDiagnosticsWriter("")
		require.NoError(t, err)
		assert.Nil(t, d)
		assert.NoError(t, d.Write(Diagnostics{}))
		assert.NoError(t, d.Close())
	}
}

func TestParticleStats(t *testing.T) {
	maxSpeed, ke := ParticleStats2([]r2.Vec{{X: 3, Y: 4}, {X: 1}}, 2)
	assert.Equal(t, 5., maxSpeed)
	assert.Equal(t, 26., ke)
	maxSpeed, ke = ParticleStats3([]r3.Vec{{Z: -2}}, 1)
	assert.Equal(t, 2., maxSpeed)
	assert.Equal(t, 2., ke)
}
