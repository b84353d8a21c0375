package searcher

import (
	"bytes"
	"errors"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
)

func sorted(idx []int) []int {
	slices.Sort(idx)
	return idx
}

func searchers2() []PointNeighborSearcher2 {
	return []PointNeighborSearcher2{
		NewHashGrid2(array.Size2{X: 4, Y: 4}, 1),
		NewSimpleList2(),
		NewKdTree2(),
	}
}

func searchers3() []PointNeighborSearcher3 {
	return []PointNeighborSearcher3{
		NewHashGrid3(array.Size3{X: 4, Y: 4, Z: 4}, 1),
		NewSimpleList3(),
		NewKdTree3(),
	}
}

func TestNearbyPoints(t *testing.T) {
	points := []r2.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 2, Y: 2}, {X: 5, Y: 5}}
	for _, s := range searchers2() {
		s.Build(points, 1.5)
		assert.Equal(t, []int{0, 1, 2}, sorted(NearbyPoints2(s, r2.Vec{}, 1.5)), s.TypeName())
		assert.True(t, s.HasNearbyPoint(r2.Vec{X: 4.5, Y: 4.5}, 1), s.TypeName())
		assert.False(t, s.HasNearbyPoint(r2.Vec{X: 3.5, Y: 3.5}, 1), s.TypeName())
		{ // Non positive radius finds nothing
			assert.Empty(t, NearbyPoints2(s, r2.Vec{}, 0), s.TypeName())
			assert.False(t, s.HasNearbyPoint(r2.Vec{}, -1), s.TypeName())
		}
		{ // The boundary is inclusive
			assert.Equal(t, []int{0, 1}, sorted(NearbyPoints2(s, r2.Vec{X: 0.5}, 0.5)), s.TypeName())
		}
		{ // Empty set
			s.Build(nil, 1.5)
			assert.Empty(t, NearbyPoints2(s, r2.Vec{}, 1.5), s.TypeName())
			assert.False(t, s.HasNearbyPoint(r2.Vec{}, 1.5), s.TypeName())
		}
	}
}

func TestAgainstBruteForce(t *testing.T) {
	var (
		rng    = rand.New(rand.NewSource(7))
		radius = 0.2
		p2     = make([]r2.Vec, 400)
		p3     = make([]r3.Vec, 400)
	)
	for i := range p2 {
		p2[i] = r2.Vec{X: rng.Float64()*4 - 2, Y: rng.Float64()*4 - 2}
		p3[i] = r3.Vec{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1, Z: rng.Float64()*2 - 1}
	}
	{ // 2D
		ref := NewSimpleList2()
		ref.Build(p2, radius)
		for _, s := range searchers2() {
			s.Build(p2, radius)
			for q := 0; q < 50; q++ {
				o := r2.Vec{X: rng.Float64()*4 - 2, Y: rng.Float64()*4 - 2}
				assert.Equal(t, sorted(NearbyPoints2(ref, o, radius)), sorted(NearbyPoints2(s, o, radius)), s.TypeName())
				assert.Equal(t, ref.HasNearbyPoint(o, radius/4), s.HasNearbyPoint(o, radius/4), s.TypeName())
			}
		}
	}
	{ // 3D
		ref := NewSimpleList3()
		ref.Build(p3, radius)
		for _, s := range searchers3() {
			s.Build(p3, radius)
			for q := 0; q < 50; q++ {
				o := r3.Vec{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1, Z: rng.Float64()*2 - 1}
				assert.Equal(t, sorted(NearbyPoints3(ref, o, radius)), sorted(NearbyPoints3(s, o, radius)), s.TypeName())
				assert.Equal(t, ref.HasNearbyPoint(o, radius/2), s.HasNearbyPoint(o, radius/2), s.TypeName())
			}
		}
	}
}

func TestHashGrid(t *testing.T) {
	h := NewHashGrid2(array.Size2{X: 4, Y: 4}, 1)
	{ // Negative coordinates wrap onto the table
		assert.Equal(t, h.HashKeyFromPosition(r2.Vec{X: 3.5, Y: 3.5}), h.HashKeyFromPosition(r2.Vec{X: -0.5, Y: -0.5}))
		assert.Equal(t, 0, h.HashKeyFromPosition(r2.Vec{X: 0.5, Y: 0.5}))
		assert.Equal(t, 5, h.HashKeyFromPosition(r2.Vec{X: 1.5, Y: 1.5}))
	}
	{ // Add appends with the next index
		h.Add(r2.Vec{X: 0.1, Y: 0.1})
		h.Add(r2.Vec{X: 0.2, Y: 0.2})
		assert.Len(t, h.Points(), 2)
		assert.Equal(t, []int{0, 1}, sorted(NearbyPoints2(h, r2.Vec{}, 0.5)))
	}
	{ // Clone is independent
		c := h.Clone()
		h.Add(r2.Vec{X: 0.3, Y: 0.3})
		assert.Len(t, NearbyPoints2(c, r2.Vec{}, 0.9), 2)
		assert.Len(t, NearbyPoints2(h, r2.Vec{}, 0.9), 3)
	}
	{ // Build adopts the search radius as spacing
		h.Build([]r2.Vec{{X: 1, Y: 1}}, 2.5)
		assert.Equal(t, 2.5, h.GridSpacing())
		h.Build([]r2.Vec{{X: 1, Y: 1}}, 0)
		assert.Equal(t, 2.5, h.GridSpacing())
	}
	{ // Test zero spacing everywhere falls back to the default
		var (
			points = []r2.Vec{{X: 0.2, Y: 0.2}, {X: 0.7, Y: 0.1}, {X: 3.4, Y: 2.6}}
			z2     = NewHashGrid2(array.Size2{X: 8, Y: 8}, 0)
			z3     = NewHashGrid3(array.Size3{X: 4, Y: 4, Z: 4}, -1)
		)
		z2.Build(points, 0)
		assert.Equal(t, DefaultHashGridSpacing, z2.GridSpacing())
		assert.Equal(t, 1, z2.HashKeyFromPosition(r2.Vec{X: 1.5, Y: 0.5}))
		assert.Equal(t, []int{0, 1}, sorted(NearbyPoints2(z2, r2.Vec{}, 0.9)))

		z3.Build([]r3.Vec{{X: 0.5, Y: 0.5, Z: 0.5}, {X: 2.5, Y: 0.5, Z: 0.5}}, 0)
		assert.Equal(t, DefaultHashGridSpacing, z3.GridSpacing())
		assert.Equal(t, []int{0}, sorted(NearbyPoints3(z3, r3.Vec{}, 1)))
	}
}

func TestSerialize(t *testing.T) {
	var (
		p2 = []r2.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 2, Y: 2}}
		p3 = []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 2, Y: 2, Z: 2}}
	)
	for _, s := range searchers2() {
		s.Build(p2, 1.5)
		var buf bytes.Buffer
		require.NoError(t, s.Serialize(&buf))
		data := buf.Bytes()
		l, err := Load2(bytes.NewReader(data))
		require.NoError(t, err, s.TypeName())
		assert.Equal(t, s.TypeName(), l.TypeName())
		assert.Equal(t, []int{0, 1, 2}, sorted(NearbyPoints2(l, r2.Vec{}, 1.5)), s.TypeName())
		{ // Deserialize into the same type
			same := s.Clone()
			same.Build(nil, 1)
			require.NoError(t, same.Deserialize(bytes.NewReader(data)))
			assert.Equal(t, []int{0, 1, 2}, sorted(NearbyPoints2(same, r2.Vec{}, 1.5)))
		}
		{ // Truncated input
			_, err = Load2(bytes.NewReader(data[:len(data)-3]))
			assert.True(t, errors.Is(err, ErrCorrupt), s.TypeName())
		}
	}
	for _, s := range searchers3() {
		s.Build(p3, 1.5)
		var buf bytes.Buffer
		require.NoError(t, s.Serialize(&buf))
		l, err := Load3(&buf)
		require.NoError(t, err, s.TypeName())
		assert.Equal(t, []int{0, 1, 2}, sorted(NearbyPoints3(l, r3.Vec{}, 1.5)), s.TypeName())
	}
	{ // Wrong type name
		var buf bytes.Buffer
		l := NewSimpleList2()
		l.Build(p2, 1)
		require.NoError(t, l.Serialize(&buf))
		err := NewKdTree2().Deserialize(&buf)
		assert.True(t, errors.Is(err, ErrUnknownType))
		_, err = Load3(bytes.NewReader([]byte{3, 0, 0, 0, 0, 0, 0, 0, 'a', 'b', 'c'}))
		assert.True(t, errors.Is(err, ErrUnknownType))
	}
}
