package searcher

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/utils"
)

const (
	SimpleListTypeName2 = "PointSimpleListSearcher2"
	SimpleListTypeName3 = "PointSimpleListSearcher3"
)

// SimpleList2 checks every point on each query. It is the brute force
// reference the other searchers are tested against.
type SimpleList2 struct {
	points []r2.Vec
}

func NewSimpleList2() *SimpleList2 { return &SimpleList2{} }

func (s *SimpleList2) TypeName() string { return SimpleListTypeName2 }

func (s *SimpleList2) Build(points []r2.Vec, _ float64) {
	s.points = append(s.points[:0], points...)
}

func (s *SimpleList2) ForEachNearbyPoint(origin r2.Vec, radius float64, fn func(i int, p r2.Vec)) {
	if radius <= 0 {
		return
	}
	rr := radius * radius
	for i, p := range s.points {
		if r2.Norm2(r2.Sub(p, origin)) <= rr {
			fn(i, p)
		}
	}
}

func (s *SimpleList2) HasNearbyPoint(origin r2.Vec, radius float64) bool {
	if radius <= 0 {
		return false
	}
	rr := radius * radius
	for _, p := range s.points {
		if r2.Norm2(r2.Sub(p, origin)) <= rr {
			return true
		}
	}
	return false
}

func (s *SimpleList2) Clone() PointNeighborSearcher2 {
	return &SimpleList2{points: append([]r2.Vec(nil), s.points...)}
}

func (s *SimpleList2) Serialize(w io.Writer) (err error) {
	if err = writeTypeName(w, s.TypeName()); err == nil {
		err = utils.WriteSlice(w, s.points)
	}
	if err != nil {
		return fmt.Errorf("serializing simple list: %w", err)
	}
	return
}

func (s *SimpleList2) Deserialize(r io.Reader) (err error) {
	if err = expectTypeName(r, s.TypeName()); err != nil {
		return fmt.Errorf("deserializing simple list: %w", err)
	}
	return s.deserializeBody(r)
}

func (s *SimpleList2) deserializeBody(r io.Reader) (err error) {
	if s.points, err = utils.ReadSlice[r2.Vec](r); err != nil {
		return fmt.Errorf("deserializing simple list: %w", err)
	}
	return
}

type SimpleList3 struct {
	points []r3.Vec
}

func NewSimpleList3() *SimpleList3 { return &SimpleList3{} }

func (s *SimpleList3) TypeName() string { return SimpleListTypeName3 }

func (s *SimpleList3) Build(points []r3.Vec, _ float64) {
	s.points = append(s.points[:0], points...)
}

func (s *SimpleList3) ForEachNearbyPoint(origin r3.Vec, radius float64, fn func(i int, p r3.Vec)) {
	if radius <= 0 {
		return
	}
	rr := radius * radius
	for i, p := range s.points {
		if r3.Norm2(r3.Sub(p, origin)) <= rr {
			fn(i, p)
		}
	}
}

func (s *SimpleList3) HasNearbyPoint(origin r3.Vec, radius float64) bool {
	if radius <= 0 {
		return false
	}
	rr := radius * radius
	for _, p := range s.points {
		if r3.Norm2(r3.Sub(p, origin)) <= rr {
			return true
		}
	}
	return false
}

func (s *SimpleList3) Clone() PointNeighborSearcher3 {
	return &SimpleList3{points: append([]r3.Vec(nil), s.points...)}
}

func (s *SimpleList3) Serialize(w io.Writer) (err error) {
	if err = writeTypeName(w, s.TypeName()); err == nil {
		err = utils.WriteSlice(w, s.points)
	}
	if err != nil {
		return fmt.Errorf("serializing simple list: %w", err)
	}
	return
}

func (s *SimpleList3) Deserialize(r io.Reader) (err error) {
	if err = expectTypeName(r, s.TypeName()); err != nil {
		return fmt.Errorf("deserializing simple list: %w", err)
	}
	return s.deserializeBody(r)
}

func (s *SimpleList3) deserializeBody(r io.Reader) (err error) {
	if s.points, err = utils.ReadSlice[r3.Vec](r); err != nil {
		return fmt.Errorf("deserializing simple list: %w", err)
	}
	return
}
