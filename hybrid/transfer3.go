package hybrid

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/grid"
)

// ScatterToFaces3 is the 3D ScatterToFaces2.
func ScatterToFaces3(positions, velocities []r3.Vec, affine *[3][]r3.Vec,
	dst grid.VectorGrid3, markers [3]*array.Array3[bool]) (err error) {
	flow, ok := dst.(*grid.FaceCenteredGrid3)
	if !ok {
		return fmt.Errorf("scatter to %T: %w", dst, ErrGridType)
	}
	if err = checkLengths3(positions, velocities, affine); err != nil {
		return
	}
	var (
		bbox      = flow.BoundingBox()
		h         = flow.GridSpacing()
		positionF = [3]func(i, j, k int) r3.Vec{flow.UPosition(), flow.VPosition(), flow.WPosition()}
	)
	for axis := 0; axis < 3; axis++ {
		data, _, sampler := flow.Component(axis)
		var (
			size    = data.Size()
			weights = array.NewArray3[float64](size.X, size.Y, size.Z)
			facePos = positionF[axis]
			marker  = markers[axis]
		)
		data.Fill(0)
		marker.Resize(size.X, size.Y, size.Z, false)
		marker.Fill(false)
		for n, x := range positions {
			var (
				c   = geometry.Component3(velocities[n], axis)
				pos = x
			)
			if affine != nil {
				pos = clampAcross3(x, axis, bbox, h)
			}
			indices, w := sampler.GetCoordinatesAndWeights(pos)
			for m := range indices {
				i, j, k := indices[m][0], indices[m][1], indices[m][2]
				val := c
				if affine != nil {
					val += r3.Dot(affine[axis][n], r3.Sub(facePos(i, j, k), pos))
				}
				data.Set(i, j, k, data.At(i, j, k)+w[m]*val)
				weights.Set(i, j, k, weights.At(i, j, k)+w[m])
			}
		}
		data.ParallelForEachIndex(func(i, j, k int) {
			if w := weights.At(i, j, k); w > 0 {
				data.Set(i, j, k, data.At(i, j, k)/w)
				marker.Set(i, j, k, true)
			}
		})
	}
	return
}

func GatherFromFaces3(src grid.VectorGrid3, positions, velocities []r3.Vec, affine *[3][]r3.Vec) (err error) {
	flow, ok := src.(*grid.FaceCenteredGrid3)
	if !ok {
		return fmt.Errorf("gather from %T: %w", src, ErrGridType)
	}
	if err = checkLengths3(positions, velocities, affine); err != nil {
		return
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
		for axis := 0; axis < 3; axis++ {
			var (
				data, _, sampler = flow.Component(axis)
				pos              = clampAcross3(positions[n], axis, bbox, h)
				indices, gw      = sampler.GetCoordinatesAndGradientWeights(pos)
				c                r3.Vec
			)
			for m := range indices {
				c = r3.Add(c, r3.Scale(data.At(indices[m][0], indices[m][1], indices[m][2]), gw[m]))
			}
			affine[axis][n] = c
		}
	})
	return
}

func checkLengths3(positions, velocities []r3.Vec, affine *[3][]r3.Vec) error {
	if len(positions) != len(velocities) {
		return fmt.Errorf("%d velocities for %d positions: %w", len(velocities), len(positions), ErrLengthMismatch)
	}
	if affine == nil {
		return nil
	}
	for axis := range affine {
		if len(affine[axis]) != len(positions) {
			return fmt.Errorf("%d affine vectors on axis %d for %d positions: %w",
				len(affine[axis]), axis, len(positions), ErrLengthMismatch)
		}
	}
	return nil
}

func clampAcross3(x r3.Vec, axis int, bbox geometry.BoundingBox3, h r3.Vec) r3.Vec {
	for b := 0; b < 3; b++ {
		if b == axis {
			continue
		}
		var (
			half = 0.5 * geometry.Component3(h, b)
			lo   = geometry.Component3(bbox.Lower, b) + half
			hi   = geometry.Component3(bbox.Upper, b) - half
		)
		x = geometry.WithComponent3(x, b, clamp(geometry.Component3(x, b), lo, hi))
	}
	return x
}
