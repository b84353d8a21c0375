// Package gridsolver advances face centered velocity and collocated grid
// data through diffusion and pressure projection, constrains velocity at
// colliders, and drives the per frame grid fluid step.
package gridsolver

import (
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/field"
	"github.com/notargets/gofluid/levelset"
	"github.com/notargets/gofluid/utils"
)

// Marker classifies one sample of a grid for the diffusion and pressure
// solvers. Markers are rebuilt on every solve.
type Marker uint8

const (
	Fluid Marker = iota
	Air
	Boundary
)

func (m Marker) String() string {
	switch m {
	case Fluid:
		return "Fluid"
	case Air:
		return "Air"
	case Boundary:
		return "Boundary"
	}
	return "Unknown"
}

// Classify gives Boundary precedence over Fluid when both level sets are
// inside.
func Classify(boundaryPhi, fluidPhi float64) Marker {
	switch {
	case levelset.IsInsideSDF(boundaryPhi):
		return Boundary
	case levelset.IsInsideSDF(fluidPhi):
		return Fluid
	}
	return Air
}

func BuildMarkers2(size array.Size2, pos func(i, j int) r2.Vec, boundarySDF, fluidSDF field.ScalarField2) (
	markers *array.Array2[Marker]) {
	markers = array.NewArray2[Marker](size.X, size.Y)
	markers.ParallelForEachIndex(func(i, j int) {
		pt := pos(i, j)
		markers.Set(i, j, Classify(boundarySDF.Sample(pt), fluidSDF.Sample(pt)))
	})
	return
}

func BuildMarkers3(size array.Size3, pos func(i, j, k int) r3.Vec, boundarySDF, fluidSDF field.ScalarField3) (
	markers *array.Array3[Marker]) {
	markers = array.NewArray3[Marker](size.X, size.Y, size.Z)
	markers.ParallelForEachIndex(func(i, j, k int) {
		pt := pos(i, j, k)
		markers.Set(i, j, k, Classify(boundarySDF.Sample(pt), fluidSDF.Sample(pt)))
	})
	return
}

// argMax3 returns the index of the largest count; ties go to the later of
// the first two and to the first over the third.
func argMax3(x, y, z int) Marker {
	if x < y {
		if y < z {
			return 2
		}
		return 1
	}
	if x < z {
		return 2
	}
	return 0
}

// coarseFootprint lists the four finer indices a coarse index i covers,
// clamped at both ends of a coarse axis of length n.
func coarseFootprint(i, n int) (idx [4]int) {
	idx[0] = 2 * i
	if i > 0 {
		idx[0] = 2*i - 1
	}
	idx[1], idx[2] = 2*i, 2*i+1
	idx[3] = 2*i + 1
	if i+1 < n {
		idx[3] = 2*i + 2
	}
	return
}

// coarsenMarkers2 sets every coarse marker to the most common marker in the
// 4x4 block of finer markers around it.
func coarsenMarkers2(finer, coarser *array.Array2[Marker]) {
	n := coarser.Size()
	utils.ParallelRangeFor(0, n.Y, func(jb, je int) {
		for j := jb; j < je; j++ {
			jj := coarseFootprint(j, n.Y)
			for i := 0; i < n.X; i++ {
				var (
					ii  = coarseFootprint(i, n.X)
					cnt [3]int
				)
				for _, y := range jj {
					for _, x := range ii {
						cnt[finer.At(x, y)]++
					}
				}
				coarser.Set(i, j, argMax3(cnt[Fluid], cnt[Air], cnt[Boundary]))
			}
		}
	})
}

func coarsenMarkers3(finer, coarser *array.Array3[Marker]) {
	n := coarser.Size()
	utils.ParallelRangeFor(0, n.Z, func(kb, ke int) {
		for k := kb; k < ke; k++ {
			kk := coarseFootprint(k, n.Z)
			for j := 0; j < n.Y; j++ {
				jj := coarseFootprint(j, n.Y)
				for i := 0; i < n.X; i++ {
					var (
						ii  = coarseFootprint(i, n.X)
						cnt [3]int
					)
					for _, z := range kk {
						for _, y := range jj {
							for _, x := range ii {
								cnt[finer.At(x, y, z)]++
							}
						}
					}
					coarser.Set(i, j, k, argMax3(cnt[Fluid], cnt[Air], cnt[Boundary]))
				}
			}
		}
	})
}
