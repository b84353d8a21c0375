package grid

import (
	"encoding/binary"
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
)

// GridSystemData2 owns the face centered velocity of a simulation together
// with named scalar and vector layers. Advectable layers are carried along
// the flow by the fluid solver; the others are left alone.
type GridSystemData2 struct {
	Grid2
	velocity             *FaceCenteredGrid2
	scalarData           []*ScalarGrid2
	vectorData           []*CollocatedVectorGrid2
	advectableScalarData []*ScalarGrid2
	advectableVectorData []*CollocatedVectorGrid2
}

func NewGridSystemData2(resolution array.Size2, gridSpacing, origin r2.Vec) (g *GridSystemData2) {
	g = &GridSystemData2{
		Grid2:    NewGrid2(resolution, gridSpacing, origin),
		velocity: NewFaceCenteredGrid2(resolution, gridSpacing, origin, r2.Vec{}),
	}
	return
}

func (g *GridSystemData2) Velocity() *FaceCenteredGrid2 { return g.velocity }

// Resize resizes every layer, preserving overlapping values.
func (g *GridSystemData2) Resize(resolution array.Size2, gridSpacing, origin r2.Vec) {
	g.setSizeParameters(resolution, gridSpacing, origin)
	g.velocity.Resize(resolution, gridSpacing, origin, r2.Vec{})
	for _, s := range append(append([]*ScalarGrid2{}, g.scalarData...), g.advectableScalarData...) {
		s.Resize(resolution, gridSpacing, origin, 0)
	}
	for _, v := range append(append([]*CollocatedVectorGrid2{}, g.vectorData...), g.advectableVectorData...) {
		v.Resize(resolution, gridSpacing, origin, r2.Vec{})
	}
}

func (g *GridSystemData2) AddScalarData(dataOrigin DataOrigin, initVal float64) (idx int) {
	idx = len(g.scalarData)
	g.scalarData = append(g.scalarData, NewScalarGrid2(dataOrigin, g.resolution, g.gridSpacing, g.origin, initVal))
	return
}

func (g *GridSystemData2) AddVectorData(dataOrigin DataOrigin, initVal r2.Vec) (idx int) {
	idx = len(g.vectorData)
	g.vectorData = append(g.vectorData,
		NewCollocatedVectorGrid2(dataOrigin, g.resolution, g.gridSpacing, g.origin, initVal))
	return
}

func (g *GridSystemData2) AddAdvectableScalarData(dataOrigin DataOrigin, initVal float64) (idx int) {
	idx = len(g.advectableScalarData)
	g.advectableScalarData = append(g.advectableScalarData,
		NewScalarGrid2(dataOrigin, g.resolution, g.gridSpacing, g.origin, initVal))
	return
}

func (g *GridSystemData2) AddAdvectableVectorData(dataOrigin DataOrigin, initVal r2.Vec) (idx int) {
	idx = len(g.advectableVectorData)
	g.advectableVectorData = append(g.advectableVectorData,
		NewCollocatedVectorGrid2(dataOrigin, g.resolution, g.gridSpacing, g.origin, initVal))
	return
}

func (g *GridSystemData2) ScalarDataAt(i int) *ScalarGrid2                     { return g.scalarData[i] }
func (g *GridSystemData2) VectorDataAt(i int) *CollocatedVectorGrid2           { return g.vectorData[i] }
func (g *GridSystemData2) AdvectableScalarDataAt(i int) *ScalarGrid2           { return g.advectableScalarData[i] }
func (g *GridSystemData2) AdvectableVectorDataAt(i int) *CollocatedVectorGrid2 { return g.advectableVectorData[i] }
func (g *GridSystemData2) NumberOfScalarData() int                             { return len(g.scalarData) }
func (g *GridSystemData2) NumberOfVectorData() int                             { return len(g.vectorData) }
func (g *GridSystemData2) NumberOfAdvectableScalarData() int                   { return len(g.advectableScalarData) }
func (g *GridSystemData2) NumberOfAdvectableVectorData() int                   { return len(g.advectableVectorData) }

type layerCounts struct {
	Scalar, Vector, AdvectableScalar, AdvectableVector int64
}

func (g *GridSystemData2) Serialize(w io.Writer) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("serializing grid system: %w", err)
		}
	}()
	if err = binaryWrite(w, g.header(tagSystem2, CellCentered)); err != nil {
		return
	}
	counts := layerCounts{
		int64(len(g.scalarData)), int64(len(g.vectorData)),
		int64(len(g.advectableScalarData)), int64(len(g.advectableVectorData)),
	}
	if err = binaryWrite(w, counts); err != nil {
		return
	}
	if err = g.velocity.Serialize(w); err != nil {
		return
	}
	for _, s := range g.scalarData {
		if err = s.Serialize(w); err != nil {
			return
		}
	}
	for _, v := range g.vectorData {
		if err = v.Serialize(w); err != nil {
			return
		}
	}
	for _, s := range g.advectableScalarData {
		if err = s.Serialize(w); err != nil {
			return
		}
	}
	for _, v := range g.advectableVectorData {
		if err = v.Serialize(w); err != nil {
			return
		}
	}
	return
}

func readCounts(r io.Reader) (c layerCounts, err error) {
	if err = binary.Read(r, byteOrder, &c); err != nil {
		err = fmt.Errorf("reading layer counts: %w: %w", ErrCorrupt, err)
		return
	}
	for _, n := range []int64{c.Scalar, c.Vector, c.AdvectableScalar, c.AdvectableVector} {
		if n < 0 || n > 1<<16 {
			err = fmt.Errorf("layer count %d: %w", n, ErrCorrupt)
			return
		}
	}
	return
}

func readScalarGrids2(r io.Reader, n int64) (out []*ScalarGrid2, err error) {
	for i := int64(0); i < n; i++ {
		s := NewCellCenteredScalarGrid2(array.Size2{}, r2.Vec{X: 1, Y: 1}, r2.Vec{})
		if err = s.Deserialize(r); err != nil {
			return
		}
		out = append(out, s)
	}
	return
}

func readVectorGrids2(r io.Reader, n int64) (out []*CollocatedVectorGrid2, err error) {
	for i := int64(0); i < n; i++ {
		v := NewCollocatedVectorGrid2(CellCentered, array.Size2{}, r2.Vec{X: 1, Y: 1}, r2.Vec{}, r2.Vec{})
		if err = v.Deserialize(r); err != nil {
			return
		}
		out = append(out, v)
	}
	return
}

func (g *GridSystemData2) Deserialize(r io.Reader) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("deserializing grid system: %w", err)
		}
	}()
	var (
		h header2
		c layerCounts
	)
	if h, err = readHeader2(r, tagSystem2); err != nil {
		return
	}
	if c, err = readCounts(r); err != nil {
		return
	}
	if err = g.velocity.Deserialize(r); err != nil {
		return
	}
	if g.scalarData, err = readScalarGrids2(r, c.Scalar); err != nil {
		return
	}
	if g.vectorData, err = readVectorGrids2(r, c.Vector); err != nil {
		return
	}
	if g.advectableScalarData, err = readScalarGrids2(r, c.AdvectableScalar); err != nil {
		return
	}
	if g.advectableVectorData, err = readVectorGrids2(r, c.AdvectableVector); err != nil {
		return
	}
	g.setSizeParameters(h.size(), h.GridSpacing, h.Origin)
	return
}

type GridSystemData3 struct {
	Grid3
	velocity             *FaceCenteredGrid3
	scalarData           []*ScalarGrid3
	vectorData           []*CollocatedVectorGrid3
	advectableScalarData []*ScalarGrid3
	advectableVectorData []*CollocatedVectorGrid3
}

func NewGridSystemData3(resolution array.Size3, gridSpacing, origin r3.Vec) *GridSystemData3 {
	return &GridSystemData3{
		Grid3:    NewGrid3(resolution, gridSpacing, origin),
		velocity: NewFaceCenteredGrid3(resolution, gridSpacing, origin, r3.Vec{}),
	}
}

func (g *GridSystemData3) Velocity() *FaceCenteredGrid3 { return g.velocity }

func (g *GridSystemData3) Resize(resolution array.Size3, gridSpacing, origin r3.Vec) {
	g.setSizeParameters(resolution, gridSpacing, origin)
	g.velocity.Resize(resolution, gridSpacing, origin, r3.Vec{})
	for _, s := range append(append([]*ScalarGrid3{}, g.scalarData...), g.advectableScalarData...) {
		s.Resize(resolution, gridSpacing, origin, 0)
	}
	for _, v := range append(append([]*CollocatedVectorGrid3{}, g.vectorData...), g.advectableVectorData...) {
		v.Resize(resolution, gridSpacing, origin, r3.Vec{})
	}
}

func (g *GridSystemData3) AddScalarData(dataOrigin DataOrigin, initVal float64) (idx int) {
	idx = len(g.scalarData)
	g.scalarData = append(g.scalarData, NewScalarGrid3(dataOrigin, g.resolution, g.gridSpacing, g.origin, initVal))
	return
}

func (g *GridSystemData3) AddVectorData(dataOrigin DataOrigin, initVal r3.Vec) (idx int) {
	idx = len(g.vectorData)
	g.vectorData = append(g.vectorData,
		NewCollocatedVectorGrid3(dataOrigin, g.resolution, g.gridSpacing, g.origin, initVal))
	return
}

func (g *GridSystemData3) AddAdvectableScalarData(dataOrigin DataOrigin, initVal float64) (idx int) {
	idx = len(g.advectableScalarData)
	g.advectableScalarData = append(g.advectableScalarData,
		NewScalarGrid3(dataOrigin, g.resolution, g.gridSpacing, g.origin, initVal))
	return
}

func (g *GridSystemData3) AddAdvectableVectorData(dataOrigin DataOrigin, initVal r3.Vec) (idx int) {
	idx = len(g.advectableVectorData)
	g.advectableVectorData = append(g.advectableVectorData,
		NewCollocatedVectorGrid3(dataOrigin, g.resolution, g.gridSpacing, g.origin, initVal))
	return
}

func (g *GridSystemData3) ScalarDataAt(i int) *ScalarGrid3                     { return g.scalarData[i] }
func (g *GridSystemData3) VectorDataAt(i int) *CollocatedVectorGrid3           { return g.vectorData[i] }
func (g *GridSystemData3) AdvectableScalarDataAt(i int) *ScalarGrid3           { return g.advectableScalarData[i] }
func (g *GridSystemData3) AdvectableVectorDataAt(i int) *CollocatedVectorGrid3 { return g.advectableVectorData[i] }
func (g *GridSystemData3) NumberOfScalarData() int                             { return len(g.scalarData) }
func (g *GridSystemData3) NumberOfVectorData() int                             { return len(g.vectorData) }
func (g *GridSystemData3) NumberOfAdvectableScalarData() int                   { return len(g.advectableScalarData) }
func (g *GridSystemData3) NumberOfAdvectableVectorData() int                   { return len(g.advectableVectorData) }

func (g *GridSystemData3) Serialize(w io.Writer) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("serializing grid system: %w", err)
		}
	}()
	if err = binaryWrite(w, g.header(tagSystem3, CellCentered)); err != nil {
		return
	}
	counts := layerCounts{
		int64(len(g.scalarData)), int64(len(g.vectorData)),
		int64(len(g.advectableScalarData)), int64(len(g.advectableVectorData)),
	}
	if err = binaryWrite(w, counts); err != nil {
		return
	}
	if err = g.velocity.Serialize(w); err != nil {
		return
	}
	for _, s := range g.scalarData {
		if err = s.Serialize(w); err != nil {
			return
		}
	}
	for _, v := range g.vectorData {
		if err = v.Serialize(w); err != nil {
			return
		}
	}
	for _, s := range g.advectableScalarData {
		if err = s.Serialize(w); err != nil {
			return
		}
	}
	for _, v := range g.advectableVectorData {
		if err = v.Serialize(w); err != nil {
			return
		}
	}
	return
}

func readScalarGrids3(r io.Reader, n int64) (out []*ScalarGrid3, err error) {
	for i := int64(0); i < n; i++ {
		s := NewCellCenteredScalarGrid3(array.Size3{}, r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{})
		if err = s.Deserialize(r); err != nil {
			return
		}
		out = append(out, s)
	}
	return
}

func readVectorGrids3(r io.Reader, n int64) (out []*CollocatedVectorGrid3, err error) {
	for i := int64(0); i < n; i++ {
		v := NewCollocatedVectorGrid3(CellCentered, array.Size3{}, r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{}, r3.Vec{})
		if err = v.Deserialize(r); err != nil {
			return
		}
		out = append(out, v)
	}
	return
}

func (g *GridSystemData3) Deserialize(r io.Reader) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("deserializing grid system: %w", err)
		}
	}()
	var (
		h header3
		c layerCounts
	)
	if h, err = readHeader3(r, tagSystem3); err != nil {
		return
	}
	if c, err = readCounts(r); err != nil {
		return
	}
	if err = g.velocity.Deserialize(r); err != nil {
		return
	}
	if g.scalarData, err = readScalarGrids3(r, c.Scalar); err != nil {
		return
	}
	if g.vectorData, err = readVectorGrids3(r, c.Vector); err != nil {
		return
	}
	if g.advectableScalarData, err = readScalarGrids3(r, c.AdvectableScalar); err != nil {
		return
	}
	if g.advectableVectorData, err = readVectorGrids3(r, c.AdvectableVector); err != nil {
		return
	}
	g.setSizeParameters(h.size(), h.GridSpacing, h.Origin)
	return
}
