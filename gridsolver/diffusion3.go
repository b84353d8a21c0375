package gridsolver

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/fdm"
	"github.com/notargets/gofluid/field"
	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/grid"
)

type DiffusionSolver3 interface {
	Solve(source *grid.ScalarGrid3, diffusionCoefficient, timeIntervalInSeconds float64,
		dest *grid.ScalarGrid3, boundarySDF, fluidSDF field.ScalarField3) error
	SolveCollocated(source *grid.CollocatedVectorGrid3, diffusionCoefficient, timeIntervalInSeconds float64,
		dest *grid.CollocatedVectorGrid3, boundarySDF, fluidSDF field.ScalarField3) error
	SolveFaceCentered(source *grid.FaceCenteredGrid3, diffusionCoefficient, timeIntervalInSeconds float64,
		dest *grid.FaceCenteredGrid3, boundarySDF, fluidSDF field.ScalarField3) error
}

type ForwardEulerDiffusion3 struct{}

func forwardEuler3[T any](ops array.Ops[T], src *array.Array3[T], markers *array.Array3[Marker],
	gridSpacing r3.Vec, cdt float64, dst *array.Array3[T]) {
	if src == dst {
		src = src.Clone()
	}
	include := func(i, j, k int) bool { return markers.At(i, j, k) == Fluid }
	dst.ParallelForEachIndex(func(i, j, k int) {
		if markers.At(i, j, k) != Fluid {
			dst.Set(i, j, k, src.At(i, j, k))
			return
		}
		lap := fdm.MaskedLaplacian3(ops, src, gridSpacing, i, j, k, include)
		dst.Set(i, j, k, ops.Add(src.At(i, j, k), ops.Scale(cdt, lap)))
	})
}

func (ForwardEulerDiffusion3) Solve(source *grid.ScalarGrid3, diffusionCoefficient, timeIntervalInSeconds float64,
	dest *grid.ScalarGrid3, boundarySDF, fluidSDF field.ScalarField3) error {
	if err := sameCollocated3(&source.Grid3, &dest.Grid3, source.DataOrigin(), dest.DataOrigin()); err != nil {
		return err
	}
	boundarySDF, fluidSDF = defaultSDFs3(boundarySDF, fluidSDF)
	markers := BuildMarkers3(source.DataSize(), source.DataPosition(), boundarySDF, fluidSDF)
	forwardEuler3(array.Float64Ops, source.Data(), markers, source.GridSpacing(),
		diffusionCoefficient*timeIntervalInSeconds, dest.Data())
	return nil
}

func (ForwardEulerDiffusion3) SolveCollocated(source *grid.CollocatedVectorGrid3, diffusionCoefficient,
	timeIntervalInSeconds float64, dest *grid.CollocatedVectorGrid3, boundarySDF, fluidSDF field.ScalarField3) error {
	if err := sameCollocated3(&source.Grid3, &dest.Grid3, source.DataOrigin(), dest.DataOrigin()); err != nil {
		return err
	}
	boundarySDF, fluidSDF = defaultSDFs3(boundarySDF, fluidSDF)
	markers := BuildMarkers3(source.DataSize(), source.DataPosition(), boundarySDF, fluidSDF)
	forwardEuler3(array.Vec3Ops, source.Data(), markers, source.GridSpacing(),
		diffusionCoefficient*timeIntervalInSeconds, dest.Data())
	return nil
}

func (ForwardEulerDiffusion3) SolveFaceCentered(source *grid.FaceCenteredGrid3, diffusionCoefficient,
	timeIntervalInSeconds float64, dest *grid.FaceCenteredGrid3, boundarySDF, fluidSDF field.ScalarField3) error {
	if err := sameCollocated3(&source.Grid3, &dest.Grid3, 0, 0); err != nil {
		return err
	}
	boundarySDF, fluidSDF = defaultSDFs3(boundarySDF, fluidSDF)
	positions := [3]func(i, j, k int) r3.Vec{source.UPosition(), source.VPosition(), source.WPosition()}
	for axis := 0; axis < 3; axis++ {
		src, _, _ := source.Component(axis)
		dst, _, _ := dest.Component(axis)
		markers := BuildMarkers3(src.Size(), positions[axis], boundarySDF, fluidSDF)
		forwardEuler3(array.Float64Ops, src, markers, source.GridSpacing(),
			diffusionCoefficient*timeIntervalInSeconds, dst)
	}
	return nil
}

type BackwardEulerDiffusion3 struct {
	BoundaryType  BoundaryType
	UseCompressed bool
	solver        fdm.Solver3
	system        *fdm.LinearSystem3
}

func NewBackwardEulerDiffusion3(boundaryType BoundaryType) *BackwardEulerDiffusion3 {
	return &BackwardEulerDiffusion3{
		BoundaryType: boundaryType,
		solver:       fdm.NewICCG3(100, DefaultDiffusionTolerance),
		system:       fdm.NewLinearSystem3(array.Size3{}),
	}
}

func (s *BackwardEulerDiffusion3) LinearSystemSolver() fdm.Solver3 { return s.solver }

func (s *BackwardEulerDiffusion3) SetLinearSystemSolver(solver fdm.Solver3) { s.solver = solver }

func (s *BackwardEulerDiffusion3) buildMatrix(markers *array.Array3[Marker], c r3.Vec) {
	var (
		size = markers.Size()
		a    = s.system.A
	)
	coupled := func(m Marker) bool {
		return m == Fluid || (s.BoundaryType == Dirichlet && m != Air)
	}
	a.ParallelForEachIndex(func(i, j, k int) {
		row := fdm.MatrixRow3{Center: 1}
		if markers.At(i, j, k) == Fluid {
			if i+1 < size.X {
				if m := markers.At(i+1, j, k); coupled(m) {
					row.Center += c.X
					if m == Fluid {
						row.Right -= c.X
					}
				}
			}
			if i > 0 && coupled(markers.At(i-1, j, k)) {
				row.Center += c.X
			}
			if j+1 < size.Y {
				if m := markers.At(i, j+1, k); coupled(m) {
					row.Center += c.Y
					if m == Fluid {
						row.Up -= c.Y
					}
				}
			}
			if j > 0 && coupled(markers.At(i, j-1, k)) {
				row.Center += c.Y
			}
			if k+1 < size.Z {
				if m := markers.At(i, j, k+1); coupled(m) {
					row.Center += c.Z
					if m == Fluid {
						row.Front -= c.Z
					}
				}
			}
			if k > 0 && coupled(markers.At(i, j, k-1)) {
				row.Center += c.Z
			}
		}
		a.Set(i, j, k, row)
	})
}

func (s *BackwardEulerDiffusion3) buildVectors(markers *array.Array3[Marker], c r3.Vec, f *array.Array3[float64]) {
	var (
		size = markers.Size()
		b    = s.system.B
	)
	s.system.X.CopyFrom(f)
	b.ParallelForEachIndex(func(i, j, k int) {
		v := f.At(i, j, k)
		if s.BoundaryType == Dirichlet && markers.At(i, j, k) == Fluid {
			if i+1 < size.X && markers.At(i+1, j, k) == Boundary {
				v += c.X * f.At(i+1, j, k)
			}
			if i > 0 && markers.At(i-1, j, k) == Boundary {
				v += c.X * f.At(i-1, j, k)
			}
			if j+1 < size.Y && markers.At(i, j+1, k) == Boundary {
				v += c.Y * f.At(i, j+1, k)
			}
			if j > 0 && markers.At(i, j-1, k) == Boundary {
				v += c.Y * f.At(i, j-1, k)
			}
			if k+1 < size.Z && markers.At(i, j, k+1) == Boundary {
				v += c.Z * f.At(i, j, k+1)
			}
			if k > 0 && markers.At(i, j, k-1) == Boundary {
				v += c.Z * f.At(i, j, k-1)
			}
		}
		b.Set(i, j, k, v)
	})
}

func (s *BackwardEulerDiffusion3) solveArray(f *array.Array3[float64], markers *array.Array3[Marker],
	gridSpacing r3.Vec, cdt float64, out *array.Array3[float64]) {
	var (
		size = f.Size()
		c    = r3.Vec{
			X: cdt / (gridSpacing.X * gridSpacing.X),
			Y: cdt / (gridSpacing.Y * gridSpacing.Y),
			Z: cdt / (gridSpacing.Z * gridSpacing.Z),
		}
	)
	s.system.Resize(size)
	s.buildMatrix(markers, c)
	s.buildVectors(markers, c, f)
	if s.solver == nil {
		out.CopyFrom(f)
		return
	}
	if s.UseCompressed {
		compressed := fdm.Compress3(s.system)
		s.solver.SolveCompressed(compressed)
		copy(out.Data(), compressed.X)
	} else {
		s.solver.Solve(s.system)
		out.CopyFrom(s.system.X)
	}
	logSolve("backward Euler diffusion", s.solver)
}

func (s *BackwardEulerDiffusion3) Solve(source *grid.ScalarGrid3, diffusionCoefficient, timeIntervalInSeconds float64,
	dest *grid.ScalarGrid3, boundarySDF, fluidSDF field.ScalarField3) error {
	if err := sameCollocated3(&source.Grid3, &dest.Grid3, source.DataOrigin(), dest.DataOrigin()); err != nil {
		return err
	}
	boundarySDF, fluidSDF = defaultSDFs3(boundarySDF, fluidSDF)
	markers := BuildMarkers3(source.DataSize(), source.DataPosition(), boundarySDF, fluidSDF)
	s.solveArray(source.Data(), markers, source.GridSpacing(), diffusionCoefficient*timeIntervalInSeconds, dest.Data())
	return nil
}

func (s *BackwardEulerDiffusion3) SolveCollocated(source *grid.CollocatedVectorGrid3, diffusionCoefficient,
	timeIntervalInSeconds float64, dest *grid.CollocatedVectorGrid3, boundarySDF, fluidSDF field.ScalarField3) error {
	if err := sameCollocated3(&source.Grid3, &dest.Grid3, source.DataOrigin(), dest.DataOrigin()); err != nil {
		return err
	}
	boundarySDF, fluidSDF = defaultSDFs3(boundarySDF, fluidSDF)
	var (
		size    = source.DataSize()
		markers = BuildMarkers3(size, source.DataPosition(), boundarySDF, fluidSDF)
		f       = array.NewArray3[float64](size.X, size.Y, size.Z)
		out     = array.NewArray3[float64](size.X, size.Y, size.Z)
		src     = source.Data().Clone()
	)
	for axis := 0; axis < 3; axis++ {
		f.ParallelForEachIndex(func(i, j, k int) { f.Set(i, j, k, geometry.Component3(src.At(i, j, k), axis)) })
		s.solveArray(f, markers, source.GridSpacing(), diffusionCoefficient*timeIntervalInSeconds, out)
		dest.ParallelForEachDataPointIndex(func(i, j, k int) {
			dest.Set(i, j, k, geometry.WithComponent3(dest.At(i, j, k), axis, out.At(i, j, k)))
		})
	}
	return nil
}

func (s *BackwardEulerDiffusion3) SolveFaceCentered(source *grid.FaceCenteredGrid3, diffusionCoefficient,
	timeIntervalInSeconds float64, dest *grid.FaceCenteredGrid3, boundarySDF, fluidSDF field.ScalarField3) error {
	if err := sameCollocated3(&source.Grid3, &dest.Grid3, 0, 0); err != nil {
		return err
	}
	boundarySDF, fluidSDF = defaultSDFs3(boundarySDF, fluidSDF)
	positions := [3]func(i, j, k int) r3.Vec{source.UPosition(), source.VPosition(), source.WPosition()}
	for axis := 0; axis < 3; axis++ {
		src, _, _ := source.Component(axis)
		dst, _, _ := dest.Component(axis)
		markers := BuildMarkers3(src.Size(), positions[axis], boundarySDF, fluidSDF)
		s.solveArray(src.Clone(), markers, source.GridSpacing(), diffusionCoefficient*timeIntervalInSeconds, dst)
	}
	return nil
}

var (
	_ DiffusionSolver3 = ForwardEulerDiffusion3{}
	_ DiffusionSolver3 = &BackwardEulerDiffusion3{}
)
