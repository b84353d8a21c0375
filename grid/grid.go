// Package grid associates arrays with a physical frame (resolution, spacing and
// origin) and provides the differential operators the solvers need.
package grid

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/geometry"
)

// DataOrigin selects where a collocated grid stores its samples.
type DataOrigin uint8

const (
	CellCentered DataOrigin = iota
	VertexCentered
)

func (d DataOrigin) String() string {
	switch d {
	case CellCentered:
		return "CellCentered"
	case VertexCentered:
		return "VertexCentered"
	}
	return "Unknown"
}

const shapeTolerance = 1e-12

// Grid2 is the frame shared by every 2D grid. The bounding box is derived
// from resolution, spacing and origin and never stored.
type Grid2 struct {
	resolution  array.Size2
	gridSpacing r2.Vec
	origin      r2.Vec
}

func NewGrid2(resolution array.Size2, gridSpacing, origin r2.Vec) Grid2 {
	return Grid2{resolution: resolution, gridSpacing: gridSpacing, origin: origin}
}

func (g *Grid2) Resolution() array.Size2 { return g.resolution }
func (g *Grid2) GridSpacing() r2.Vec     { return g.gridSpacing }
func (g *Grid2) Origin() r2.Vec          { return g.origin }

func (g *Grid2) BoundingBox() geometry.BoundingBox2 {
	return geometry.BoundingBox2{
		Lower: g.origin,
		Upper: r2.Vec{
			X: g.origin.X + g.gridSpacing.X*float64(g.resolution.X),
			Y: g.origin.Y + g.gridSpacing.Y*float64(g.resolution.Y),
		},
	}
}

func (g *Grid2) CellCenterPosition() func(i, j int) r2.Vec {
	h, o := g.gridSpacing, g.origin
	return func(i, j int) r2.Vec {
		return r2.Vec{X: o.X + h.X*(float64(i)+0.5), Y: o.Y + h.Y*(float64(j)+0.5)}
	}
}

func (g *Grid2) ForEachCellIndex(fn func(i, j int)) {
	array.ForEachIndex2(g.resolution, fn)
}

func (g *Grid2) ParallelForEachCellIndex(fn func(i, j int)) {
	array.ParallelForEachIndex2(g.resolution, fn)
}

func (g *Grid2) HasSameShape(o *Grid2) bool {
	return g.resolution == o.resolution &&
		similar(g.gridSpacing.X, o.gridSpacing.X) && similar(g.gridSpacing.Y, o.gridSpacing.Y) &&
		similar(g.origin.X, o.origin.X) && similar(g.origin.Y, o.origin.Y)
}

func (g *Grid2) setSizeParameters(resolution array.Size2, gridSpacing, origin r2.Vec) {
	g.resolution, g.gridSpacing, g.origin = resolution, gridSpacing, origin
}

func (g *Grid2) swapGrid(o *Grid2) { *g, *o = *o, *g }

type Grid3 struct {
	resolution  array.Size3
	gridSpacing r3.Vec
	origin      r3.Vec
}

func NewGrid3(resolution array.Size3, gridSpacing, origin r3.Vec) Grid3 {
	return Grid3{resolution: resolution, gridSpacing: gridSpacing, origin: origin}
}

func (g *Grid3) Resolution() array.Size3 { return g.resolution }
func (g *Grid3) GridSpacing() r3.Vec     { return g.gridSpacing }
func (g *Grid3) Origin() r3.Vec          { return g.origin }

func (g *Grid3) BoundingBox() geometry.BoundingBox3 {
	return geometry.BoundingBox3{
		Lower: g.origin,
		Upper: r3.Vec{
			X: g.origin.X + g.gridSpacing.X*float64(g.resolution.X),
			Y: g.origin.Y + g.gridSpacing.Y*float64(g.resolution.Y),
			Z: g.origin.Z + g.gridSpacing.Z*float64(g.resolution.Z),
		},
	}
}

func (g *Grid3) CellCenterPosition() func(i, j, k int) r3.Vec {
	h, o := g.gridSpacing, g.origin
	return func(i, j, k int) r3.Vec {
		return r3.Vec{
			X: o.X + h.X*(float64(i)+0.5),
			Y: o.Y + h.Y*(float64(j)+0.5),
			Z: o.Z + h.Z*(float64(k)+0.5),
		}
	}
}

func (g *Grid3) ForEachCellIndex(fn func(i, j, k int)) {
	array.ForEachIndex3(g.resolution, fn)
}

func (g *Grid3) ParallelForEachCellIndex(fn func(i, j, k int)) {
	array.ParallelForEachIndex3(g.resolution, fn)
}

func (g *Grid3) HasSameShape(o *Grid3) bool {
	return g.resolution == o.resolution &&
		similar(g.gridSpacing.X, o.gridSpacing.X) && similar(g.gridSpacing.Y, o.gridSpacing.Y) &&
		similar(g.gridSpacing.Z, o.gridSpacing.Z) &&
		similar(g.origin.X, o.origin.X) && similar(g.origin.Y, o.origin.Y) &&
		similar(g.origin.Z, o.origin.Z)
}

func (g *Grid3) setSizeParameters(resolution array.Size3, gridSpacing, origin r3.Vec) {
	g.resolution, g.gridSpacing, g.origin = resolution, gridSpacing, origin
}

func (g *Grid3) swapGrid(o *Grid3) { *g, *o = *o, *g }

func similar(a, b float64) bool { return math.Abs(a-b) <= shapeTolerance }

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
