package particle

import (
	"fmt"
	"io"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/utils"
)

// layers holds the per particle attribute arrays shared by the 2D and 3D
// systems. Every array has length numberOfParticles.
type layers[V any] struct {
	radius, mass      float64
	numberOfParticles int
	scalarDataList    []*array.Array1[float64]
	vectorDataList    []*array.Array1[V]
	neighborLists     [][]int
}

func (l *layers[V]) NumberOfParticles() int { return l.numberOfParticles }
func (l *layers[V]) Radius() float64        { return l.radius }
func (l *layers[V]) Mass() float64          { return l.mass }

func (l *layers[V]) SetRadius(r float64) { l.radius = max(r, 0) }
func (l *layers[V]) SetMass(m float64)   { l.mass = max(m, 0) }

// Resize changes the particle count of every layer and drops the neighbor
// lists, which no longer match.
func (l *layers[V]) Resize(n int) {
	var zero V
	l.numberOfParticles = n
	l.neighborLists = nil
	for _, a := range l.scalarDataList {
		a.Resize(n, 0)
	}
	for _, a := range l.vectorDataList {
		a.Resize(n, zero)
	}
}

func (l *layers[V]) AddScalarData(initVal float64) (idx int) {
	idx = len(l.scalarDataList)
	l.scalarDataList = append(l.scalarDataList, array.NewArray1(l.numberOfParticles, initVal))
	return
}

func (l *layers[V]) AddVectorData(initVal V) (idx int) {
	idx = len(l.vectorDataList)
	l.vectorDataList = append(l.vectorDataList, array.NewArray1(l.numberOfParticles, initVal))
	return
}

// ScalarDataAt and VectorDataAt return the live backing slices. They are
// reallocated by Resize and AddParticles.
func (l *layers[V]) ScalarDataAt(idx int) []float64 { return l.scalarDataList[idx].Data() }
func (l *layers[V]) VectorDataAt(idx int) []V       { return l.vectorDataList[idx].Data() }

func (l *layers[V]) NumberOfScalarData() int { return len(l.scalarDataList) }
func (l *layers[V]) NumberOfVectorData() int { return len(l.vectorDataList) }

// NeighborLists returns the lists from the last BuildNeighborLists call.
// They are stale once positions move.
func (l *layers[V]) NeighborLists() [][]int { return l.neighborLists }

// appendLayer copies values into the tail of dst starting at offset. A nil
// values slice leaves the tail at its zero value.
func appendLayer[T any](dst []T, offset int, values []T) {
	if len(values) == 0 {
		return
	}
	utils.ParallelFor(0, len(values), func(i int) {
		dst[offset+i] = values[i]
	})
}

func (l *layers[V]) clone() (out layers[V]) {
	out = layers[V]{
		radius:            l.radius,
		mass:              l.mass,
		numberOfParticles: l.numberOfParticles,
	}
	for _, a := range l.scalarDataList {
		out.scalarDataList = append(out.scalarDataList, a.Clone())
	}
	for _, a := range l.vectorDataList {
		out.vectorDataList = append(out.vectorDataList, a.Clone())
	}
	for _, nl := range l.neighborLists {
		out.neighborLists = append(out.neighborLists, append([]int(nil), nl...))
	}
	return
}

type layersHeader struct {
	Radius                float64
	Mass                  float64
	NumberOfParticles     int64
	NumberOfScalar        int64
	NumberOfVector        int64
	NumberOfNeighborLists int64
}

const maxLayers = 1 << 16

func (l *layers[V]) serialize(w io.Writer) (err error) {
	hdr := layersHeader{
		Radius:                l.radius,
		Mass:                  l.mass,
		NumberOfParticles:     int64(l.numberOfParticles),
		NumberOfScalar:        int64(len(l.scalarDataList)),
		NumberOfVector:        int64(len(l.vectorDataList)),
		NumberOfNeighborLists: int64(len(l.neighborLists)),
	}
	if err = utils.WriteValue(w, hdr); err != nil {
		return
	}
	for _, a := range l.scalarDataList {
		if err = utils.WriteSlice(w, a.Data()); err != nil {
			return
		}
	}
	for _, a := range l.vectorDataList {
		if err = utils.WriteSlice(w, a.Data()); err != nil {
			return
		}
	}
	for _, nl := range l.neighborLists {
		if err = utils.WriteInts(w, nl); err != nil {
			return
		}
	}
	return
}

func (l *layers[V]) deserialize(r io.Reader) (err error) {
	var hdr layersHeader
	if err = utils.ReadValue(r, &hdr); err != nil {
		return
	}
	n := hdr.NumberOfParticles
	if n < 0 || hdr.NumberOfScalar < 0 || hdr.NumberOfScalar > maxLayers ||
		hdr.NumberOfVector < 0 || hdr.NumberOfVector > maxLayers ||
		(hdr.NumberOfNeighborLists != 0 && hdr.NumberOfNeighborLists != n) {
		return fmt.Errorf("particle header %+v: %w", hdr, ErrCorrupt)
	}
	out := layers[V]{radius: hdr.Radius, mass: hdr.Mass, numberOfParticles: int(n)}
	for i := int64(0); i < hdr.NumberOfScalar; i++ {
		var data []float64
		if data, err = utils.ReadSlice[float64](r); err != nil {
			return
		}
		if int64(len(data)) != n {
			return fmt.Errorf("scalar layer %d has %d values, want %d: %w", i, len(data), n, ErrCorrupt)
		}
		out.scalarDataList = append(out.scalarDataList, array.NewArray1From(data))
	}
	for i := int64(0); i < hdr.NumberOfVector; i++ {
		var data []V
		if data, err = utils.ReadSlice[V](r); err != nil {
			return
		}
		if int64(len(data)) != n {
			return fmt.Errorf("vector layer %d has %d values, want %d: %w", i, len(data), n, ErrCorrupt)
		}
		out.vectorDataList = append(out.vectorDataList, array.NewArray1From(data))
	}
	for i := int64(0); i < hdr.NumberOfNeighborLists; i++ {
		var nl []int
		if nl, err = utils.ReadInts(r); err != nil {
			return
		}
		out.neighborLists = append(out.neighborLists, nl)
	}
	*l = out
	return
}
