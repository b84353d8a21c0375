package gridsolver

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/fdm"
	"github.com/notargets/gofluid/field"
	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/grid"
)

// DiffusionSolver2 advances source by one diffusion step of length
// timeIntervalInSeconds into dest. Only Fluid samples change; boundarySDF
// and fluidSDF may be nil for no boundary and fluid everywhere.
type DiffusionSolver2 interface {
	Solve(source *grid.ScalarGrid2, diffusionCoefficient, timeIntervalInSeconds float64,
		dest *grid.ScalarGrid2, boundarySDF, fluidSDF field.ScalarField2) error
	SolveCollocated(source *grid.CollocatedVectorGrid2, diffusionCoefficient, timeIntervalInSeconds float64,
		dest *grid.CollocatedVectorGrid2, boundarySDF, fluidSDF field.ScalarField2) error
	SolveFaceCentered(source *grid.FaceCenteredGrid2, diffusionCoefficient, timeIntervalInSeconds float64,
		dest *grid.FaceCenteredGrid2, boundarySDF, fluidSDF field.ScalarField2) error
}

// ForwardEulerDiffusion2 is the explicit update
// dest = source + coefficient*dt*Laplacian(source) on Fluid samples, where
// the Laplacian ignores non-Fluid neighbors. It is stable only for
// coefficient*dt/h^2 below 1/4.
type ForwardEulerDiffusion2 struct{}

func forwardEuler2[T any](ops array.Ops[T], src *array.Array2[T], markers *array.Array2[Marker],
	gridSpacing r2.Vec, cdt float64, dst *array.Array2[T]) {
	if src == dst {
		src = src.Clone()
	}
	include := func(i, j int) bool { return markers.At(i, j) == Fluid }
	dst.ParallelForEachIndex(func(i, j int) {
		if markers.At(i, j) != Fluid {
			dst.Set(i, j, src.At(i, j))
			return
		}
		lap := fdm.MaskedLaplacian2(ops, src, gridSpacing, i, j, include)
		dst.Set(i, j, ops.Add(src.At(i, j), ops.Scale(cdt, lap)))
	})
}

func (ForwardEulerDiffusion2) Solve(source *grid.ScalarGrid2, diffusionCoefficient, timeIntervalInSeconds float64,
	dest *grid.ScalarGrid2, boundarySDF, fluidSDF field.ScalarField2) error {
	if err := sameCollocated2(&source.Grid2, &dest.Grid2, source.DataOrigin(), dest.DataOrigin()); err != nil {
		return err
	}
	boundarySDF, fluidSDF = defaultSDFs2(boundarySDF, fluidSDF)
	markers := BuildMarkers2(source.DataSize(), source.DataPosition(), boundarySDF, fluidSDF)
	forwardEuler2(array.Float64Ops, source.Data(), markers, source.GridSpacing(),
		diffusionCoefficient*timeIntervalInSeconds, dest.Data())
	return nil
}

func (ForwardEulerDiffusion2) SolveCollocated(source *grid.CollocatedVectorGrid2, diffusionCoefficient,
	timeIntervalInSeconds float64, dest *grid.CollocatedVectorGrid2, boundarySDF, fluidSDF field.ScalarField2) error {
	if err := sameCollocated2(&source.Grid2, &dest.Grid2, source.DataOrigin(), dest.DataOrigin()); err != nil {
		return err
	}
	boundarySDF, fluidSDF = defaultSDFs2(boundarySDF, fluidSDF)
	markers := BuildMarkers2(source.DataSize(), source.DataPosition(), boundarySDF, fluidSDF)
	forwardEuler2(array.Vec2Ops, source.Data(), markers, source.GridSpacing(),
		diffusionCoefficient*timeIntervalInSeconds, dest.Data())
	return nil
}

func (ForwardEulerDiffusion2) SolveFaceCentered(source *grid.FaceCenteredGrid2, diffusionCoefficient,
	timeIntervalInSeconds float64, dest *grid.FaceCenteredGrid2, boundarySDF, fluidSDF field.ScalarField2) error {
	if err := sameCollocated2(&source.Grid2, &dest.Grid2, 0, 0); err != nil {
		return err
	}
	boundarySDF, fluidSDF = defaultSDFs2(boundarySDF, fluidSDF)
	positions := [2]func(i, j int) r2.Vec{source.UPosition(), source.VPosition()}
	for axis := 0; axis < 2; axis++ {
		src, _, _ := source.Component(axis)
		dst, _, _ := dest.Component(axis)
		markers := BuildMarkers2(src.Size(), positions[axis], boundarySDF, fluidSDF)
		forwardEuler2(array.Float64Ops, src, markers, source.GridSpacing(),
			diffusionCoefficient*timeIntervalInSeconds, dst)
	}
	return nil
}

// BoundaryType selects how BackwardEulerDiffusion treats Boundary
// neighbors: Dirichlet holds them at their current value, Neumann lets no
// flux through them.
type BoundaryType uint8

const (
	Dirichlet BoundaryType = iota
	Neumann
)

func (b BoundaryType) String() string {
	if b == Neumann {
		return "Neumann"
	}
	return "Dirichlet"
}

// DefaultDiffusionTolerance is the tolerance of the default ICCG solver.
var DefaultDiffusionTolerance = math.Nextafter(1, 2) - 1

// BackwardEulerDiffusion2 is the implicit update
// (I - coefficient*dt*Laplacian) dest = source, unconditionally stable. Air
// neighbors are free under both boundary types.
type BackwardEulerDiffusion2 struct {
	BoundaryType BoundaryType
	// UseCompressed solves the system in its compressed sparse form.
	UseCompressed bool
	solver        fdm.Solver2
	system        *fdm.LinearSystem2
}

func NewBackwardEulerDiffusion2(boundaryType BoundaryType) *BackwardEulerDiffusion2 {
	return &BackwardEulerDiffusion2{
		BoundaryType: boundaryType,
		solver:       fdm.NewICCG2(100, DefaultDiffusionTolerance),
		system:       fdm.NewLinearSystem2(array.Size2{}),
	}
}

func (s *BackwardEulerDiffusion2) LinearSystemSolver() fdm.Solver2 { return s.solver }

func (s *BackwardEulerDiffusion2) SetLinearSystemSolver(solver fdm.Solver2) { s.solver = solver }

// buildMatrix fills A for coefficients c = coefficient*dt/h^2 per axis.
func (s *BackwardEulerDiffusion2) buildMatrix(markers *array.Array2[Marker], c r2.Vec) {
	var (
		size = markers.Size()
		a    = s.system.A
	)
	// a neighbor couples to the center unless it is Air, or a Boundary under
	// Neumann conditions
	coupled := func(m Marker) bool {
		return m == Fluid || (s.BoundaryType == Dirichlet && m != Air)
	}
	a.ParallelForEachIndex(func(i, j int) {
		row := fdm.MatrixRow2{Center: 1}
		if markers.At(i, j) == Fluid {
			if i+1 < size.X {
				if m := markers.At(i+1, j); coupled(m) {
					row.Center += c.X
					if m == Fluid {
						row.Right -= c.X
					}
				}
			}
			if i > 0 && coupled(markers.At(i-1, j)) {
				row.Center += c.X
			}
			if j+1 < size.Y {
				if m := markers.At(i, j+1); coupled(m) {
					row.Center += c.Y
					if m == Fluid {
						row.Up -= c.Y
					}
				}
			}
			if j > 0 && coupled(markers.At(i, j-1)) {
				row.Center += c.Y
			}
		}
		a.Set(i, j, row)
	})
}

// buildVectors sets x = b = f and, under Dirichlet conditions, moves the
// fixed Boundary neighbors of every Fluid sample to the right hand side.
func (s *BackwardEulerDiffusion2) buildVectors(markers *array.Array2[Marker], c r2.Vec, f *array.Array2[float64]) {
	var (
		size = markers.Size()
		b    = s.system.B
	)
	s.system.X.CopyFrom(f)
	b.ParallelForEachIndex(func(i, j int) {
		v := f.At(i, j)
		if s.BoundaryType == Dirichlet && markers.At(i, j) == Fluid {
			if i+1 < size.X && markers.At(i+1, j) == Boundary {
				v += c.X * f.At(i+1, j)
			}
			if i > 0 && markers.At(i-1, j) == Boundary {
				v += c.X * f.At(i-1, j)
			}
			if j+1 < size.Y && markers.At(i, j+1) == Boundary {
				v += c.Y * f.At(i, j+1)
			}
			if j > 0 && markers.At(i, j-1) == Boundary {
				v += c.Y * f.At(i, j-1)
			}
		}
		b.Set(i, j, v)
	})
}

// solveArray diffuses one float64 component f into out.
func (s *BackwardEulerDiffusion2) solveArray(f *array.Array2[float64], markers *array.Array2[Marker],
	gridSpacing r2.Vec, cdt float64, out *array.Array2[float64]) {
	var (
		size = f.Size()
		c    = r2.Vec{X: cdt / (gridSpacing.X * gridSpacing.X), Y: cdt / (gridSpacing.Y * gridSpacing.Y)}
	)
	s.system.Resize(size)
	s.buildMatrix(markers, c)
	s.buildVectors(markers, c, f)
	if s.solver == nil {
		out.CopyFrom(f)
		return
	}
	if s.UseCompressed {
		compressed := fdm.Compress2(s.system)
		s.solver.SolveCompressed(compressed)
		copy(out.Data(), compressed.X)
	} else {
		s.solver.Solve(s.system)
		out.CopyFrom(s.system.X)
	}
	logSolve("backward Euler diffusion", s.solver)
}

func (s *BackwardEulerDiffusion2) Solve(source *grid.ScalarGrid2, diffusionCoefficient, timeIntervalInSeconds float64,
	dest *grid.ScalarGrid2, boundarySDF, fluidSDF field.ScalarField2) error {
	if err := sameCollocated2(&source.Grid2, &dest.Grid2, source.DataOrigin(), dest.DataOrigin()); err != nil {
		return err
	}
	boundarySDF, fluidSDF = defaultSDFs2(boundarySDF, fluidSDF)
	markers := BuildMarkers2(source.DataSize(), source.DataPosition(), boundarySDF, fluidSDF)
	s.solveArray(source.Data(), markers, source.GridSpacing(), diffusionCoefficient*timeIntervalInSeconds, dest.Data())
	return nil
}

func (s *BackwardEulerDiffusion2) SolveCollocated(source *grid.CollocatedVectorGrid2, diffusionCoefficient,
	timeIntervalInSeconds float64, dest *grid.CollocatedVectorGrid2, boundarySDF, fluidSDF field.ScalarField2) error {
	if err := sameCollocated2(&source.Grid2, &dest.Grid2, source.DataOrigin(), dest.DataOrigin()); err != nil {
		return err
	}
	boundarySDF, fluidSDF = defaultSDFs2(boundarySDF, fluidSDF)
	var (
		size    = source.DataSize()
		markers = BuildMarkers2(size, source.DataPosition(), boundarySDF, fluidSDF)
		f       = array.NewArray2[float64](size.X, size.Y)
		out     = array.NewArray2[float64](size.X, size.Y)
		src     = source.Data().Clone()
	)
	for axis := 0; axis < 2; axis++ {
		f.ParallelForEachIndex(func(i, j int) { f.Set(i, j, geometry.Component2(src.At(i, j), axis)) })
		s.solveArray(f, markers, source.GridSpacing(), diffusionCoefficient*timeIntervalInSeconds, out)
		dest.ParallelForEachDataPointIndex(func(i, j int) {
			dest.Set(i, j, geometry.WithComponent2(dest.At(i, j), axis, out.At(i, j)))
		})
	}
	return nil
}

func (s *BackwardEulerDiffusion2) SolveFaceCentered(source *grid.FaceCenteredGrid2, diffusionCoefficient,
	timeIntervalInSeconds float64, dest *grid.FaceCenteredGrid2, boundarySDF, fluidSDF field.ScalarField2) error {
	if err := sameCollocated2(&source.Grid2, &dest.Grid2, 0, 0); err != nil {
		return err
	}
	boundarySDF, fluidSDF = defaultSDFs2(boundarySDF, fluidSDF)
	positions := [2]func(i, j int) r2.Vec{source.UPosition(), source.VPosition()}
	for axis := 0; axis < 2; axis++ {
		src, _, _ := source.Component(axis)
		dst, _, _ := dest.Component(axis)
		markers := BuildMarkers2(src.Size(), positions[axis], boundarySDF, fluidSDF)
		s.solveArray(src.Clone(), markers, source.GridSpacing(), diffusionCoefficient*timeIntervalInSeconds, dst)
	}
	return nil
}

var (
	_ DiffusionSolver2 = ForwardEulerDiffusion2{}
	_ DiffusionSolver2 = &BackwardEulerDiffusion2{}
)
