package searcher

import (
	"fmt"
	"io"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/utils"
)

const (
	HashGridTypeName2 = "PointHashGridSearcher2"
	HashGridTypeName3 = "PointHashGridSearcher3"
)

var (
	DefaultHashGridResolution2 = array.Size2{X: 64, Y: 64}
	DefaultHashGridResolution3 = array.Size3{X: 64, Y: 64, Z: 64}
)

// DefaultHashGridSpacing is used when neither the constructor nor Build
// supplies a positive spacing.
const DefaultHashGridSpacing = 1.

func bucketSpacing(current, maxSearchRadius float64) float64 {
	switch {
	case maxSearchRadius > 0:
		return maxSearchRadius
	case current > 0:
		return current
	}
	return DefaultHashGridSpacing
}

// HashGrid2 buckets points by floor(p / gridSpacing), wrapped onto a fixed
// table of resolution.X * resolution.Y buckets. A query scans the 3x3 block
// of buckets around the origin, so it is complete for any radius up to the
// gridSpacing in effect; Build sets gridSpacing to maxSearchRadius, keeping
// the current spacing or DefaultHashGridSpacing when that is not positive.
type HashGrid2 struct {
	resolution  array.Size2
	gridSpacing float64
	points      []r2.Vec
	buckets     [][]int
}

func NewHashGrid2(resolution array.Size2, gridSpacing float64) *HashGrid2 {
	return &HashGrid2{
		resolution:  array.Size2{X: max(resolution.X, 1), Y: max(resolution.Y, 1)},
		gridSpacing: gridSpacing,
	}
}

func (h *HashGrid2) TypeName() string        { return HashGridTypeName2 }
func (h *HashGrid2) Resolution() array.Size2 { return h.resolution }
func (h *HashGrid2) GridSpacing() float64    { return h.gridSpacing }
func (h *HashGrid2) Points() []r2.Vec        { return h.points }
func (h *HashGrid2) Buckets() [][]int        { return h.buckets }

func (h *HashGrid2) bucketIndex(p r2.Vec) [2]int {
	return [2]int{
		int(math.Floor(p.X / h.gridSpacing)),
		int(math.Floor(p.Y / h.gridSpacing)),
	}
}

func wrap(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

func (h *HashGrid2) hashKey(idx [2]int) int {
	return wrap(idx[1], h.resolution.Y)*h.resolution.X + wrap(idx[0], h.resolution.X)
}

func (h *HashGrid2) HashKeyFromPosition(p r2.Vec) int { return h.hashKey(h.bucketIndex(p)) }

func (h *HashGrid2) Build(points []r2.Vec, maxSearchRadius float64) {
	h.gridSpacing = bucketSpacing(h.gridSpacing, maxSearchRadius)
	h.points = append([]r2.Vec(nil), points...)
	h.buckets = make([][]int, h.resolution.Len())
	for i, p := range h.points {
		k := h.HashKeyFromPosition(p)
		h.buckets[k] = append(h.buckets[k], i)
	}
}

// Add inserts one point without rebuilding. The new point gets the next
// index.
func (h *HashGrid2) Add(p r2.Vec) {
	if len(h.buckets) == 0 {
		h.Build([]r2.Vec{p}, h.gridSpacing)
		return
	}
	k := h.HashKeyFromPosition(p)
	h.buckets[k] = append(h.buckets[k], len(h.points))
	h.points = append(h.points, p)
}

func (h *HashGrid2) nearbyKeys(origin r2.Vec) (keys []int) {
	c := h.bucketIndex(origin)
	keys = make([]int, 0, 9)
	for dj := -1; dj <= 1; dj++ {
		for di := -1; di <= 1; di++ {
			k := h.hashKey([2]int{c[0] + di, c[1] + dj})
			if !slices.Contains(keys, k) {
				keys = append(keys, k)
			}
		}
	}
	return
}

func (h *HashGrid2) ForEachNearbyPoint(origin r2.Vec, radius float64, fn func(i int, p r2.Vec)) {
	if radius <= 0 || len(h.buckets) == 0 {
		return
	}
	rr := radius * radius
	for _, k := range h.nearbyKeys(origin) {
		for _, i := range h.buckets[k] {
			if r2.Norm2(r2.Sub(h.points[i], origin)) <= rr {
				fn(i, h.points[i])
			}
		}
	}
}

func (h *HashGrid2) HasNearbyPoint(origin r2.Vec, radius float64) bool {
	if radius <= 0 || len(h.buckets) == 0 {
		return false
	}
	rr := radius * radius
	for _, k := range h.nearbyKeys(origin) {
		for _, i := range h.buckets[k] {
			if r2.Norm2(r2.Sub(h.points[i], origin)) <= rr {
				return true
			}
		}
	}
	return false
}

func (h *HashGrid2) Clone() PointNeighborSearcher2 {
	out := &HashGrid2{
		resolution:  h.resolution,
		gridSpacing: h.gridSpacing,
		points:      append([]r2.Vec(nil), h.points...),
	}
	if h.buckets != nil {
		out.buckets = make([][]int, len(h.buckets))
		for k, b := range h.buckets {
			out.buckets[k] = append([]int(nil), b...)
		}
	}
	return out
}

type hashGridHeader2 struct {
	Resolution  [2]int64
	GridSpacing float64
}

func (h *HashGrid2) Serialize(w io.Writer) (err error) {
	if err = writeTypeName(w, h.TypeName()); err == nil {
		if err = utils.WriteValue(w, hashGridHeader2{
			Resolution:  [2]int64{int64(h.resolution.X), int64(h.resolution.Y)},
			GridSpacing: h.gridSpacing,
		}); err == nil {
			err = utils.WriteSlice(w, h.points)
		}
	}
	if err != nil {
		return fmt.Errorf("serializing hash grid: %w", err)
	}
	return
}

func (h *HashGrid2) Deserialize(r io.Reader) (err error) {
	if err = expectTypeName(r, h.TypeName()); err != nil {
		return fmt.Errorf("deserializing hash grid: %w", err)
	}
	return h.deserializeBody(r)
}

// Buckets are a pure function of the points and the frame, so they are
// rebuilt instead of stored.
func (h *HashGrid2) deserializeBody(r io.Reader) (err error) {
	var (
		hdr    hashGridHeader2
		points []r2.Vec
	)
	if err = utils.ReadValue(r, &hdr); err == nil {
		points, err = utils.ReadSlice[r2.Vec](r)
	}
	if err == nil && (hdr.Resolution[0] < 1 || hdr.Resolution[1] < 1 || !(hdr.GridSpacing > 0)) {
		err = fmt.Errorf("hash grid frame %v %v: %w", hdr.Resolution, hdr.GridSpacing, ErrCorrupt)
	}
	if err != nil {
		return fmt.Errorf("deserializing hash grid: %w", err)
	}
	h.resolution = array.Size2{X: int(hdr.Resolution[0]), Y: int(hdr.Resolution[1])}
	h.Build(points, hdr.GridSpacing)
	return
}

type HashGrid3 struct {
	resolution  array.Size3
	gridSpacing float64
	points      []r3.Vec
	buckets     [][]int
}

func NewHashGrid3(resolution array.Size3, gridSpacing float64) *HashGrid3 {
	return &HashGrid3{
		resolution:  array.Size3{X: max(resolution.X, 1), Y: max(resolution.Y, 1), Z: max(resolution.Z, 1)},
		gridSpacing: gridSpacing,
	}
}

func (h *HashGrid3) TypeName() string        { return HashGridTypeName3 }
func (h *HashGrid3) Resolution() array.Size3 { return h.resolution }
func (h *HashGrid3) GridSpacing() float64    { return h.gridSpacing }
func (h *HashGrid3) Points() []r3.Vec        { return h.points }
func (h *HashGrid3) Buckets() [][]int        { return h.buckets }

func (h *HashGrid3) bucketIndex(p r3.Vec) [3]int {
	return [3]int{
		int(math.Floor(p.X / h.gridSpacing)),
		int(math.Floor(p.Y / h.gridSpacing)),
		int(math.Floor(p.Z / h.gridSpacing)),
	}
}

func (h *HashGrid3) hashKey(idx [3]int) int {
	res := h.resolution
	return (wrap(idx[2], res.Z)*res.Y+wrap(idx[1], res.Y))*res.X + wrap(idx[0], res.X)
}

func (h *HashGrid3) HashKeyFromPosition(p r3.Vec) int { return h.hashKey(h.bucketIndex(p)) }

func (h *HashGrid3) Build(points []r3.Vec, maxSearchRadius float64) {
	h.gridSpacing = bucketSpacing(h.gridSpacing, maxSearchRadius)
	h.points = append([]r3.Vec(nil), points...)
	h.buckets = make([][]int, h.resolution.Len())
	for i, p := range h.points {
		k := h.HashKeyFromPosition(p)
		h.buckets[k] = append(h.buckets[k], i)
	}
}

func (h *HashGrid3) Add(p r3.Vec) {
	if len(h.buckets) == 0 {
		h.Build([]r3.Vec{p}, h.gridSpacing)
		return
	}
	k := h.HashKeyFromPosition(p)
	h.buckets[k] = append(h.buckets[k], len(h.points))
	h.points = append(h.points, p)
}

func (h *HashGrid3) nearbyKeys(origin r3.Vec) (keys []int) {
	c := h.bucketIndex(origin)
	keys = make([]int, 0, 27)
	for dk := -1; dk <= 1; dk++ {
		for dj := -1; dj <= 1; dj++ {
			for di := -1; di <= 1; di++ {
				k := h.hashKey([3]int{c[0] + di, c[1] + dj, c[2] + dk})
				if !slices.Contains(keys, k) {
					keys = append(keys, k)
				}
			}
		}
	}
	return
}

func (h *HashGrid3) ForEachNearbyPoint(origin r3.Vec, radius float64, fn func(i int, p r3.Vec)) {
	if radius <= 0 || len(h.buckets) == 0 {
		return
	}
	rr := radius * radius
	for _, k := range h.nearbyKeys(origin) {
		for _, i := range h.buckets[k] {
			if r3.Norm2(r3.Sub(h.points[i], origin)) <= rr {
				fn(i, h.points[i])
			}
		}
	}
}

func (h *HashGrid3) HasNearbyPoint(origin r3.Vec, radius float64) bool {
	if radius <= 0 || len(h.buckets) == 0 {
		return false
	}
	rr := radius * radius
	for _, k := range h.nearbyKeys(origin) {
		for _, i := range h.buckets[k] {
			if r3.Norm2(r3.Sub(h.points[i], origin)) <= rr {
				return true
			}
		}
	}
	return false
}

func (h *HashGrid3) Clone() PointNeighborSearcher3 {
	out := &HashGrid3{
		resolution:  h.resolution,
		gridSpacing: h.gridSpacing,
		points:      append([]r3.Vec(nil), h.points...),
	}
	if h.buckets != nil {
		out.buckets = make([][]int, len(h.buckets))
		for k, b := range h.buckets {
			out.buckets[k] = append([]int(nil), b...)
		}
	}
	return out
}

type hashGridHeader3 struct {
	Resolution  [3]int64
	GridSpacing float64
}

func (h *HashGrid3) Serialize(w io.Writer) (err error) {
	if err = writeTypeName(w, h.TypeName()); err == nil {
		if err = utils.WriteValue(w, hashGridHeader3{
			Resolution:  [3]int64{int64(h.resolution.X), int64(h.resolution.Y), int64(h.resolution.Z)},
			GridSpacing: h.gridSpacing,
		}); err == nil {
			err = utils.WriteSlice(w, h.points)
		}
	}
	if err != nil {
		return fmt.Errorf("serializing hash grid: %w", err)
	}
	return
}

func (h *HashGrid3) Deserialize(r io.Reader) (err error) {
	if err = expectTypeName(r, h.TypeName()); err != nil {
		return fmt.Errorf("deserializing hash grid: %w", err)
	}
	return h.deserializeBody(r)
}

func (h *HashGrid3) deserializeBody(r io.Reader) (err error) {
	var (
		hdr    hashGridHeader3
		points []r3.Vec
	)
	if err = utils.ReadValue(r, &hdr); err == nil {
		points, err = utils.ReadSlice[r3.Vec](r)
	}
	if err == nil && (hdr.Resolution[0] < 1 || hdr.Resolution[1] < 1 || hdr.Resolution[2] < 1 ||
		!(hdr.GridSpacing > 0)) {
		err = fmt.Errorf("hash grid frame %v %v: %w", hdr.Resolution, hdr.GridSpacing, ErrCorrupt)
	}
	if err != nil {
		return fmt.Errorf("deserializing hash grid: %w", err)
	}
	h.resolution = array.Size3{X: int(hdr.Resolution[0]), Y: int(hdr.Resolution[1]), Z: int(hdr.Resolution[2])}
	h.Build(points, hdr.GridSpacing)
	return
}
