package hybrid

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/grid"
)

// ScatterToFaces2 zeroes every face of dst and replaces it with the weighted
// average of the particle velocity component normal to that face. affine, if
// not nil, holds one vector per particle and axis; the scatter then adds
// affine[axis][n]·(face - particle) to each particle's contribution and
// clamps particle positions half a cell inside the domain across the face
// direction. markers[axis] is resized to the face array and set where at
// least one particle contributed.
func ScatterToFaces2(positions, velocities []r2.Vec, affine *[2][]r2.Vec,
	dst grid.VectorGrid2, markers [2]*array.Array2[bool]) (err error) {
	flow, ok := dst.(*grid.FaceCenteredGrid2)
	if !ok {
		return fmt.Errorf("scatter to %T: %w", dst, ErrGridType)
	}
	if len(positions) != len(velocities) {
		return fmt.Errorf("%d velocities for %d positions: %w", len(velocities), len(positions), ErrLengthMismatch)
	}
	if affine != nil && (len(affine[0]) != len(positions) || len(affine[1]) != len(positions)) {
		return fmt.Errorf("affine vectors for %d positions: %w", len(positions), ErrLengthMismatch)
	}
	var (
		bbox      = flow.BoundingBox()
		h         = flow.GridSpacing()
		positionF = [2]func(i, j int) r2.Vec{flow.UPosition(), flow.VPosition()}
	)
	for axis := 0; axis < 2; axis++ {
		data, _, sampler := flow.Component(axis)
		var (
			size    = data.Size()
			weights = array.NewArray2[float64](size.X, size.Y)
			facePos = positionF[axis]
			marker  = markers[axis]
		)
		data.Fill(0)
		marker.Resize(size.X, size.Y, false)
		marker.Fill(false)
		// accumulation into shared faces stays serial
		for n, x := range positions {
			var (
				c   = geometry.Component2(velocities[n], axis)
				pos = x
			)
			if affine != nil {
				pos = clampAcross2(x, axis, bbox, h)
			}
			indices, w := sampler.GetCoordinatesAndWeights(pos)
			for k := range indices {
				i, j := indices[k][0], indices[k][1]
				val := c
				if affine != nil {
					val += r2.Dot(affine[axis][n], r2.Sub(facePos(i, j), pos))
				}
				data.Set(i, j, data.At(i, j)+w[k]*val)
				weights.Set(i, j, weights.At(i, j)+w[k])
			}
		}
		data.ParallelForEachIndex(func(i, j int) {
			if w := weights.At(i, j); w > 0 {
				data.Set(i, j, data.At(i, j)/w)
				marker.Set(i, j, true)
			}
		})
	}
	return
}

// GatherFromFaces2 sets every particle velocity to the grid velocity at its
// position. With affine not nil it also rebuilds the affine vectors from the
// gradient weights of each face component.
func GatherFromFaces2(src grid.VectorGrid2, positions, velocities []r2.Vec, affine *[2][]r2.Vec) (err error) {
	flow, ok := src.(*grid.FaceCenteredGrid2)
	if !ok {
		return fmt.Errorf("gather from %T: %w", src, ErrGridType)
	}
	if len(positions) != len(velocities) {
		return fmt.Errorf("%d velocities for %d positions: %w", len(velocities), len(positions), ErrLengthMismatch)
	}
	if affine != nil && (len(affine[0]) != len(positions) || len(affine[1]) != len(positions)) {
		return fmt.Errorf("affine vectors for %d positions: %w", len(positions), ErrLengthMismatch)
	}
	var (
		bbox = flow.BoundingBox()
		h    = flow.GridSpacing()
	)
	parallelFor(len(positions), func(n int) {
		velocities[n] = flow.Sample(positions[n])
		if affine == nil {
			return
		}
		for axis := 0; axis < 2; axis++ {
			var (
				data, _, sampler = flow.Component(axis)
				pos              = clampAcross2(positions[n], axis, bbox, h)
				indices, gw      = sampler.GetCoordinatesAndGradientWeights(pos)
				c                r2.Vec
			)
			for k := range indices {
				c = r2.Add(c, r2.Scale(data.At(indices[k][0], indices[k][1]), gw[k]))
			}
			affine[axis][n] = c
		}
	})
	return
}

// clampAcross2 keeps x half a cell inside the domain along every axis but
// the face direction.
func clampAcross2(x r2.Vec, axis int, bbox geometry.BoundingBox2, h r2.Vec) r2.Vec {
	for b := 0; b < 2; b++ {
		if b == axis {
			continue
		}
		var (
			half = 0.5 * geometry.Component2(h, b)
			lo   = geometry.Component2(bbox.Lower, b) + half
			hi   = geometry.Component2(bbox.Upper, b) - half
		)
		x = geometry.WithComponent2(x, b, clamp(geometry.Component2(x, b), lo, hi))
	}
	return x
}
