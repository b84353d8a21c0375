// Package searcher answers fixed radius neighbour queries over point sets.
//
// A searcher holds a copy of the points given to Build. Queries issued after
// the caller moved its points without rebuilding see the old positions.
// Build and Add must not run concurrently with queries on the same searcher;
// use Clone to hand an independent copy to another goroutine.
package searcher

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/utils"
)

var (
	ErrCorrupt     = utils.ErrCorrupt
	ErrUnknownType = errors.New("unknown searcher type")
)

type PointNeighborSearcher2 interface {
	TypeName() string
	Build(points []r2.Vec, maxSearchRadius float64)
	// ForEachNearbyPoint calls fn for every point within radius of origin,
	// inclusive, in no particular order.
	ForEachNearbyPoint(origin r2.Vec, radius float64, fn func(i int, p r2.Vec))
	HasNearbyPoint(origin r2.Vec, radius float64) bool
	Clone() PointNeighborSearcher2
	Serialize(w io.Writer) error
	Deserialize(r io.Reader) error
}

type PointNeighborSearcher3 interface {
	TypeName() string
	Build(points []r3.Vec, maxSearchRadius float64)
	ForEachNearbyPoint(origin r3.Vec, radius float64, fn func(i int, p r3.Vec))
	HasNearbyPoint(origin r3.Vec, radius float64) bool
	Clone() PointNeighborSearcher3
	Serialize(w io.Writer) error
	Deserialize(r io.Reader) error
}

// Builder2 and Builder3 create empty searchers for particle systems.
type (
	Builder2 func() PointNeighborSearcher2
	Builder3 func() PointNeighborSearcher3
)

func NearbyPoints2(s PointNeighborSearcher2, origin r2.Vec, radius float64) (indices []int) {
	s.ForEachNearbyPoint(origin, radius, func(i int, _ r2.Vec) {
		indices = append(indices, i)
	})
	return
}

func NearbyPoints3(s PointNeighborSearcher3, origin r3.Vec, radius float64) (indices []int) {
	s.ForEachNearbyPoint(origin, radius, func(i int, _ r3.Vec) {
		indices = append(indices, i)
	})
	return
}

// Serialized searchers are prefixed with their TypeName so Load can restore
// the right variant.
func writeTypeName(w io.Writer, name string) error {
	return utils.WriteSlice(w, []byte(name))
}

func readTypeName(r io.Reader) (name string, err error) {
	var b []byte
	if b, err = utils.ReadSlice[byte](r); err != nil {
		return
	}
	return string(b), nil
}

func expectTypeName(r io.Reader, want string) (err error) {
	var name string
	if name, err = readTypeName(r); err != nil {
		return
	}
	if name != want {
		return fmt.Errorf("found %q, want %q: %w", name, want, ErrUnknownType)
	}
	return
}

type bodyDeserializer interface {
	deserializeBody(r io.Reader) error
}

// Load2 restores a searcher written by Serialize without knowing its type.
func Load2(r io.Reader) (s PointNeighborSearcher2, err error) {
	var name string
	if name, err = readTypeName(r); err != nil {
		return
	}
	switch name {
	case HashGridTypeName2:
		s = NewHashGrid2(DefaultHashGridResolution2, 1)
	case SimpleListTypeName2:
		s = NewSimpleList2()
	case KdTreeTypeName2:
		s = NewKdTree2()
	default:
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownType)
	}
	err = s.(bodyDeserializer).deserializeBody(r)
	return
}

func Load3(r io.Reader) (s PointNeighborSearcher3, err error) {
	var name string
	if name, err = readTypeName(r); err != nil {
		return
	}
	switch name {
	case HashGridTypeName3:
		s = NewHashGrid3(DefaultHashGridResolution3, 1)
	case SimpleListTypeName3:
		s = NewSimpleList3()
	case KdTreeTypeName3:
		s = NewKdTree3()
	default:
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownType)
	}
	err = s.(bodyDeserializer).deserializeBody(r)
	return
}

func DefaultBuilder2() PointNeighborSearcher2 { return NewHashGrid2(DefaultHashGridResolution2, 1) }
func DefaultBuilder3() PointNeighborSearcher3 { return NewHashGrid3(DefaultHashGridResolution3, 1) }
