package levelset

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/field"
	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/grid"
)

// Solver2 redistances level sets and extends grid data away from the zero
// level set of a field.
type Solver2 interface {
	Reinitialize(input *grid.ScalarGrid2, maxDistance float64, output *grid.ScalarGrid2) error
	Extrapolate(input *grid.ScalarGrid2, sdf field.ScalarField2, maxDistance float64, output *grid.ScalarGrid2) error
	ExtrapolateCollocated(input *grid.CollocatedVectorGrid2, sdf field.ScalarField2, maxDistance float64,
		output *grid.CollocatedVectorGrid2) error
	ExtrapolateFaceCentered(input *grid.FaceCenteredGrid2, sdf field.ScalarField2, maxDistance float64,
		output *grid.FaceCenteredGrid2) error
}

type Solver3 interface {
	Reinitialize(input *grid.ScalarGrid3, maxDistance float64, output *grid.ScalarGrid3) error
	Extrapolate(input *grid.ScalarGrid3, sdf field.ScalarField3, maxDistance float64, output *grid.ScalarGrid3) error
	ExtrapolateCollocated(input *grid.CollocatedVectorGrid3, sdf field.ScalarField3, maxDistance float64,
		output *grid.CollocatedVectorGrid3) error
	ExtrapolateFaceCentered(input *grid.FaceCenteredGrid3, sdf field.ScalarField3, maxDistance float64,
		output *grid.FaceCenteredGrid3) error
}

// FMMSolver2 is the first order fast marching method.
type FMMSolver2 struct{}

func lattice2(size array.Size2, gridSpacing r2.Vec) lattice {
	return lattice{
		size:    [3]int{size.X, size.Y, 1},
		spacing: [3]float64{gridSpacing.X, gridSpacing.Y, 1},
		dims:    2,
	}
}

func sameShape2(a, b *grid.Grid2, da, db grid.DataOrigin) error {
	if !a.HasSameShape(b) || da != db {
		return fmt.Errorf("level set: %w", grid.ErrShapeMismatch)
	}
	return nil
}

func sampleAt2(sdf field.ScalarField2, size array.Size2, pos func(i, j int) r2.Vec) *array.Array2[float64] {
	out := array.NewArray2[float64](size.X, size.Y)
	out.ParallelForEachIndex(func(i, j int) { out.Set(i, j, sdf.Sample(pos(i, j))) })
	return out
}

func (FMMSolver2) Reinitialize(input *grid.ScalarGrid2, maxDistance float64, output *grid.ScalarGrid2) error {
	if err := sameShape2(&input.Grid2, &output.Grid2, input.DataOrigin(), output.DataOrigin()); err != nil {
		return err
	}
	lattice2(input.DataSize(), input.GridSpacing()).
		reinitialize(input.Data().Data(), maxDistance, output.Data().Data())
	return nil
}

func (FMMSolver2) Extrapolate(input *grid.ScalarGrid2, sdf field.ScalarField2, maxDistance float64,
	output *grid.ScalarGrid2) error {
	if err := sameShape2(&input.Grid2, &output.Grid2, input.DataOrigin(), output.DataOrigin()); err != nil {
		return err
	}
	phi := sampleAt2(sdf, input.DataSize(), input.DataPosition())
	ExtrapolateArray2(input.Data(), phi, input.GridSpacing(), maxDistance, output.Data())
	return nil
}

func (FMMSolver2) ExtrapolateCollocated(input *grid.CollocatedVectorGrid2, sdf field.ScalarField2, maxDistance float64,
	output *grid.CollocatedVectorGrid2) error {
	if err := sameShape2(&input.Grid2, &output.Grid2, input.DataOrigin(), output.DataOrigin()); err != nil {
		return err
	}
	var (
		size = input.DataSize()
		phi  = sampleAt2(sdf, size, input.DataPosition())
		in   = array.NewArray2[float64](size.X, size.Y)
		out  = array.NewArray2[float64](size.X, size.Y)
	)
	for axis := 0; axis < 2; axis++ {
		in.ParallelForEachIndex(func(i, j int) { in.Set(i, j, geometry.Component2(input.At(i, j), axis)) })
		ExtrapolateArray2(in, phi, input.GridSpacing(), maxDistance, out)
		output.ParallelForEachDataPointIndex(func(i, j int) {
			output.Set(i, j, geometry.WithComponent2(output.At(i, j), axis, out.At(i, j)))
		})
	}
	return nil
}

func (FMMSolver2) ExtrapolateFaceCentered(input *grid.FaceCenteredGrid2, sdf field.ScalarField2, maxDistance float64,
	output *grid.FaceCenteredGrid2) error {
	if err := sameShape2(&input.Grid2, &output.Grid2, 0, 0); err != nil {
		return err
	}
	positions := [2]func(i, j int) r2.Vec{input.UPosition(), input.VPosition()}
	for axis := 0; axis < 2; axis++ {
		in, _, _ := input.Component(axis)
		out, _, _ := output.Component(axis)
		phi := sampleAt2(sdf, in.Size(), positions[axis])
		ExtrapolateArray2(in, phi, input.GridSpacing(), maxDistance, out)
	}
	return nil
}

// ExtrapolateArray2 extends input from the samples where sdf < 0 to those
// with sdf up to maxDistance. All three arrays share one size.
func ExtrapolateArray2(input, sdf *array.Array2[float64], gridSpacing r2.Vec, maxDistance float64,
	output *array.Array2[float64]) {
	if input.Size() != sdf.Size() || input.Size() != output.Size() {
		panic(fmt.Errorf("extrapolation arrays differ in size: %v %v %v", input.Size(), sdf.Size(), output.Size()))
	}
	lattice2(input.Size(), gridSpacing).extrapolate(input.Data(), sdf.Data(), maxDistance, output.Data())
}

type FMMSolver3 struct{}

func lattice3(size array.Size3, gridSpacing r3.Vec) lattice {
	return lattice{
		size:    [3]int{size.X, size.Y, size.Z},
		spacing: [3]float64{gridSpacing.X, gridSpacing.Y, gridSpacing.Z},
		dims:    3,
	}
}

func sameShape3(a, b *grid.Grid3, da, db grid.DataOrigin) error {
	if !a.HasSameShape(b) || da != db {
		return fmt.Errorf("level set: %w", grid.ErrShapeMismatch)
	}
	return nil
}

func sampleAt3(sdf field.ScalarField3, size array.Size3, pos func(i, j, k int) r3.Vec) *array.Array3[float64] {
	out := array.NewArray3[float64](size.X, size.Y, size.Z)
	out.ParallelForEachIndex(func(i, j, k int) { out.Set(i, j, k, sdf.Sample(pos(i, j, k))) })
	return out
}

func (FMMSolver3) Reinitialize(input *grid.ScalarGrid3, maxDistance float64, output *grid.ScalarGrid3) error {
	if err := sameShape3(&input.Grid3, &output.Grid3, input.DataOrigin(), output.DataOrigin()); err != nil {
		return err
	}
	lattice3(input.DataSize(), input.GridSpacing()).
		reinitialize(input.Data().Data(), maxDistance, output.Data().Data())
	return nil
}

func (FMMSolver3) Extrapolate(input *grid.ScalarGrid3, sdf field.ScalarField3, maxDistance float64,
	output *grid.ScalarGrid3) error {
	if err := sameShape3(&input.Grid3, &output.Grid3, input.DataOrigin(), output.DataOrigin()); err != nil {
		return err
	}
	phi := sampleAt3(sdf, input.DataSize(), input.DataPosition())
	ExtrapolateArray3(input.Data(), phi, input.GridSpacing(), maxDistance, output.Data())
	return nil
}

func (FMMSolver3) ExtrapolateCollocated(input *grid.CollocatedVectorGrid3, sdf field.ScalarField3, maxDistance float64,
	output *grid.CollocatedVectorGrid3) error {
	if err := sameShape3(&input.Grid3, &output.Grid3, input.DataOrigin(), output.DataOrigin()); err != nil {
		return err
	}
	var (
		size = input.DataSize()
		phi  = sampleAt3(sdf, size, input.DataPosition())
		in   = array.NewArray3[float64](size.X, size.Y, size.Z)
		out  = array.NewArray3[float64](size.X, size.Y, size.Z)
	)
	for axis := 0; axis < 3; axis++ {
		in.ParallelForEachIndex(func(i, j, k int) { in.Set(i, j, k, geometry.Component3(input.At(i, j, k), axis)) })
		ExtrapolateArray3(in, phi, input.GridSpacing(), maxDistance, out)
		output.ParallelForEachDataPointIndex(func(i, j, k int) {
			output.Set(i, j, k, geometry.WithComponent3(output.At(i, j, k), axis, out.At(i, j, k)))
		})
	}
	return nil
}

func (FMMSolver3) ExtrapolateFaceCentered(input *grid.FaceCenteredGrid3, sdf field.ScalarField3, maxDistance float64,
	output *grid.FaceCenteredGrid3) error {
	if err := sameShape3(&input.Grid3, &output.Grid3, 0, 0); err != nil {
		return err
	}
	positions := [3]func(i, j, k int) r3.Vec{input.UPosition(), input.VPosition(), input.WPosition()}
	for axis := 0; axis < 3; axis++ {
		in, _, _ := input.Component(axis)
		out, _, _ := output.Component(axis)
		phi := sampleAt3(sdf, in.Size(), positions[axis])
		ExtrapolateArray3(in, phi, input.GridSpacing(), maxDistance, out)
	}
	return nil
}

func ExtrapolateArray3(input, sdf *array.Array3[float64], gridSpacing r3.Vec, maxDistance float64,
	output *array.Array3[float64]) {
	if input.Size() != sdf.Size() || input.Size() != output.Size() {
		panic(fmt.Errorf("extrapolation arrays differ in size: %v %v %v", input.Size(), sdf.Size(), output.Size()))
	}
	lattice3(input.Size(), gridSpacing).extrapolate(input.Data(), sdf.Data(), maxDistance, output.Data())
}

var (
	_ Solver2 = FMMSolver2{}
	_ Solver3 = FMMSolver3{}
)
