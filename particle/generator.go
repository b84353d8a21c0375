package particle

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/geometry"
)

// PointGenerator2 visits lattice points inside a box until fn returns false.
type PointGenerator2 interface {
	ForEachPoint(bb geometry.BoundingBox2, spacing float64, fn func(p r2.Vec) bool)
}

type PointGenerator3 interface {
	ForEachPoint(bb geometry.BoundingBox3, spacing float64, fn func(p r3.Vec) bool)
}

// TrianglePointGenerator fills a box with an equilateral triangle lattice.
// Every other row is shifted by half the spacing.
type TrianglePointGenerator struct{}

func (TrianglePointGenerator) ForEachPoint(bb geometry.BoundingBox2, spacing float64, fn func(p r2.Vec) bool) {
	if !(spacing > 0) {
		return
	}
	var (
		halfSpacing = spacing / 2
		ySpacing    = spacing * math.Sqrt(3) / 2
		w, h        = bb.Width(), bb.Height()
		hasOffset   bool
	)
	for j := 0; float64(j)*ySpacing <= h; j++ {
		y := float64(j)*ySpacing + bb.Lower.Y
		offset := 0.
		if hasOffset {
			offset = halfSpacing
		}
		for i := 0; float64(i)*spacing+offset <= w; i++ {
			x := float64(i)*spacing + offset + bb.Lower.X
			if !fn(r2.Vec{X: x, Y: y}) {
				return
			}
		}
		hasOffset = !hasOffset
	}
}

// BccLatticePointGenerator fills a box with a body-centred cubic lattice:
// layers half a spacing apart, odd layers shifted by half a spacing in x and y.
type BccLatticePointGenerator struct{}

func (BccLatticePointGenerator) ForEachPoint(bb geometry.BoundingBox3, spacing float64, fn func(p r3.Vec) bool) {
	if !(spacing > 0) {
		return
	}
	var (
		halfSpacing = spacing / 2
		w, h, d     = bb.Width(), bb.Height(), bb.Depth()
		hasOffset   bool
	)
	for k := 0; float64(k)*halfSpacing <= d; k++ {
		z := float64(k)*halfSpacing + bb.Lower.Z
		offset := 0.
		if hasOffset {
			offset = halfSpacing
		}
		for j := 0; float64(j)*spacing+offset <= h; j++ {
			y := float64(j)*spacing + offset + bb.Lower.Y
			for i := 0; float64(i)*spacing+offset <= w; i++ {
				x := float64(i)*spacing + offset + bb.Lower.X
				if !fn(r3.Vec{X: x, Y: y, Z: z}) {
					return
				}
			}
		}
		hasOffset = !hasOffset
	}
}

func GeneratePoints2(g PointGenerator2, bb geometry.BoundingBox2, spacing float64) (points []r2.Vec) {
	g.ForEachPoint(bb, spacing, func(p r2.Vec) bool {
		points = append(points, p)
		return true
	})
	return
}

func GeneratePoints3(g PointGenerator3, bb geometry.BoundingBox3, spacing float64) (points []r3.Vec) {
	g.ForEachPoint(bb, spacing, func(p r3.Vec) bool {
		points = append(points, p)
		return true
	})
	return
}
