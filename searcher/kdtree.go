package searcher

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/utils"
)

const (
	KdTreeTypeName2 = "PointKdTreeSearcher2"
	KdTreeTypeName3 = "PointKdTreeSearcher3"
)

// kdPoint2 is a point tagged with its index in the built set. Distance is
// squared, as kdtree expects.
type kdPoint2 struct {
	r2.Vec
	index int
}

func (p kdPoint2) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(kdPoint2)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	}
	panic(fmt.Errorf("illegal dimension %d", d))
}

func (p kdPoint2) Dims() int { return 2 }

func (p kdPoint2) Distance(c kdtree.Comparable) float64 {
	return r2.Norm2(r2.Sub(p.Vec, c.(kdPoint2).Vec))
}

type kdPoints2 []kdPoint2

func (p kdPoints2) Index(i int) kdtree.Comparable         { return p[i] }
func (p kdPoints2) Len() int                              { return len(p) }
func (p kdPoints2) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p kdPoints2) Pivot(d kdtree.Dim) int {
	return kdPlane2{Dim: d, points: p}.Pivot()
}

type kdPlane2 struct {
	kdtree.Dim
	points kdPoints2
}

func (p kdPlane2) Less(i, j int) bool {
	return p.points[i].Compare(p.points[j], p.Dim) < 0
}
func (p kdPlane2) Len() int      { return len(p.points) }
func (p kdPlane2) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p kdPlane2) Slice(start, end int) kdtree.SortSlicer {
	return kdPlane2{Dim: p.Dim, points: p.points[start:end]}
}
func (p kdPlane2) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

// KdTree2 answers queries from a gonum k-d tree. It does not support
// incremental insertion; call Build again after points move.
type KdTree2 struct {
	points []r2.Vec
	tree   *kdtree.Tree
}

func NewKdTree2() *KdTree2 { return &KdTree2{} }

func (k *KdTree2) TypeName() string { return KdTreeTypeName2 }

func (k *KdTree2) Build(points []r2.Vec, _ float64) {
	k.points = append([]r2.Vec(nil), points...)
	k.tree = nil
	if len(points) == 0 {
		return
	}
	pts := make(kdPoints2, len(points))
	for i, p := range points {
		pts[i] = kdPoint2{Vec: p, index: i}
	}
	k.tree = kdtree.New(pts, false)
}

func (k *KdTree2) ForEachNearbyPoint(origin r2.Vec, radius float64, fn func(i int, p r2.Vec)) {
	if radius <= 0 || k.tree == nil {
		return
	}
	rr := radius * radius
	// The keeper bound is padded so ties on a splitting plane are not pruned.
	keeper := kdtree.NewDistKeeper(rr * (1 + 1e-9))
	k.tree.NearestSet(keeper, kdPoint2{Vec: origin})
	for _, c := range keeper.Heap {
		if c.Comparable == nil || c.Dist > rr {
			continue
		}
		p := c.Comparable.(kdPoint2)
		fn(p.index, p.Vec)
	}
}

func (k *KdTree2) HasNearbyPoint(origin r2.Vec, radius float64) bool {
	if radius <= 0 || k.tree == nil {
		return false
	}
	c, d := k.tree.Nearest(kdPoint2{Vec: origin})
	return c != nil && d <= radius*radius
}

func (k *KdTree2) Clone() PointNeighborSearcher2 {
	out := NewKdTree2()
	out.Build(k.points, 0)
	return out
}

func (k *KdTree2) Serialize(w io.Writer) (err error) {
	if err = writeTypeName(w, k.TypeName()); err == nil {
		err = utils.WriteSlice(w, k.points)
	}
	if err != nil {
		return fmt.Errorf("serializing kd-tree: %w", err)
	}
	return
}

func (k *KdTree2) Deserialize(r io.Reader) (err error) {
	if err = expectTypeName(r, k.TypeName()); err != nil {
		return fmt.Errorf("deserializing kd-tree: %w", err)
	}
	return k.deserializeBody(r)
}

// The tree is rebuilt from the stored points.
func (k *KdTree2) deserializeBody(r io.Reader) (err error) {
	var points []r2.Vec
	if points, err = utils.ReadSlice[r2.Vec](r); err != nil {
		return fmt.Errorf("deserializing kd-tree: %w", err)
	}
	k.Build(points, 0)
	return
}

type kdPoint3 struct {
	r3.Vec
	index int
}

func (p kdPoint3) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(kdPoint3)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	}
	panic(fmt.Errorf("illegal dimension %d", d))
}

func (p kdPoint3) Dims() int { return 3 }

func (p kdPoint3) Distance(c kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(p.Vec, c.(kdPoint3).Vec))
}

type kdPoints3 []kdPoint3

func (p kdPoints3) Index(i int) kdtree.Comparable         { return p[i] }
func (p kdPoints3) Len() int                              { return len(p) }
func (p kdPoints3) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p kdPoints3) Pivot(d kdtree.Dim) int {
	return kdPlane3{Dim: d, points: p}.Pivot()
}

type kdPlane3 struct {
	kdtree.Dim
	points kdPoints3
}

func (p kdPlane3) Less(i, j int) bool {
	return p.points[i].Compare(p.points[j], p.Dim) < 0
}
func (p kdPlane3) Len() int      { return len(p.points) }
func (p kdPlane3) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p kdPlane3) Slice(start, end int) kdtree.SortSlicer {
	return kdPlane3{Dim: p.Dim, points: p.points[start:end]}
}
func (p kdPlane3) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

type KdTree3 struct {
	points []r3.Vec
	tree   *kdtree.Tree
}

func NewKdTree3() *KdTree3 { return &KdTree3{} }

func (k *KdTree3) TypeName() string { return KdTreeTypeName3 }

func (k *KdTree3) Build(points []r3.Vec, _ float64) {
	k.points = append([]r3.Vec(nil), points...)
	k.tree = nil
	if len(points) == 0 {
		return
	}
	pts := make(kdPoints3, len(points))
	for i, p := range points {
		pts[i] = kdPoint3{Vec: p, index: i}
	}
	k.tree = kdtree.New(pts, false)
}

func (k *KdTree3) ForEachNearbyPoint(origin r3.Vec, radius float64, fn func(i int, p r3.Vec)) {
	if radius <= 0 || k.tree == nil {
		return
	}
	rr := radius * radius
	// The keeper bound is padded so ties on a splitting plane are not pruned.
	keeper := kdtree.NewDistKeeper(rr * (1 + 1e-9))
	k.tree.NearestSet(keeper, kdPoint3{Vec: origin})
	for _, c := range keeper.Heap {
		if c.Comparable == nil || c.Dist > rr {
			continue
		}
		p := c.Comparable.(kdPoint3)
		fn(p.index, p.Vec)
	}
}

func (k *KdTree3) HasNearbyPoint(origin r3.Vec, radius float64) bool {
	if radius <= 0 || k.tree == nil {
		return false
	}
	c, d := k.tree.Nearest(kdPoint3{Vec: origin})
	return c != nil && d <= radius*radius
}

func (k *KdTree3) Clone() PointNeighborSearcher3 {
	out := NewKdTree3()
	out.Build(k.points, 0)
	return out
}

func (k *KdTree3) Serialize(w io.Writer) (err error) {
	if err = writeTypeName(w, k.TypeName()); err == nil {
		err = utils.WriteSlice(w, k.points)
	}
	if err != nil {
		return fmt.Errorf("serializing kd-tree: %w", err)
	}
	return
}

func (k *KdTree3) Deserialize(r io.Reader) (err error) {
	if err = expectTypeName(r, k.TypeName()); err != nil {
		return fmt.Errorf("deserializing kd-tree: %w", err)
	}
	return k.deserializeBody(r)
}

func (k *KdTree3) deserializeBody(r io.Reader) (err error) {
	var points []r3.Vec
	if points, err = utils.ReadSlice[r3.Vec](r); err != nil {
		return fmt.Errorf("deserializing kd-tree: %w", err)
	}
	k.Build(points, 0)
	return
}
