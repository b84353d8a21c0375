package gridsolver

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/fdm"
	"github.com/notargets/gofluid/field"
	"github.com/notargets/gofluid/grid"
	"github.com/notargets/gofluid/levelset"
)

const (
	DefaultPressureTolerance = 1e-6
	// MinFaceWeight is the smallest open fraction a partially open face or a
	// ghost fluid interface is allowed to carry.
	MinFaceWeight = 0.01
)

var epsilon = math.Nextafter(1, 2) - 1

// PressureSolver2 projects a face centered velocity onto its divergence free
// part. boundaryVelocity may be nil for static boundaries.
type PressureSolver2 interface {
	Solve(input *grid.FaceCenteredGrid2, timeIntervalInSeconds float64, output *grid.FaceCenteredGrid2,
		boundarySDF field.ScalarField2, boundaryVelocity field.VectorField2, fluidSDF field.ScalarField2,
		useCompressed bool) error
	// SuggestedBoundaryConditionSolver is the collider treatment that matches
	// how the solver discretizes boundaries.
	SuggestedBoundaryConditionSolver() BoundaryConditionSolver2
}

// pressureSystem2 owns the storage shared by the pressure solvers: a single
// stencil system, or a level hierarchy when the solver is multigrid.
type pressureSystem2 struct {
	solver   fdm.Solver2
	mg       *fdm.MG2
	system   *fdm.LinearSystem2
	mgSystem fdm.MGLinearSystem2
}

func newPressureSystem2() pressureSystem2 {
	return pressureSystem2{
		solver: fdm.NewICCG2(100, DefaultPressureTolerance),
		system: fdm.NewLinearSystem2(array.Size2{}),
	}
}

func (p *pressureSystem2) LinearSystemSolver() fdm.Solver2 { return p.solver }

func (p *pressureSystem2) SetLinearSystemSolver(solver fdm.Solver2) {
	p.solver = solver
	p.mg, _ = solver.(*fdm.MG2)
	p.system.Clear()
	p.mgSystem.Clear()
}

// Pressure is the solution of the last solve on the finest level.
func (p *pressureSystem2) Pressure() *fdm.Vector2 {
	if p.mg != nil && p.mgSystem.NumberOfLevels() > 0 {
		return p.mgSystem.X[0]
	}
	return p.system.X
}

// levelSizes sizes the storage for a solve and returns the resolution of
// every level, finest first.
func (p *pressureSystem2) levelSizes(finest array.Size2) (sizes []array.Size2) {
	if p.mg == nil {
		p.system.Resize(finest)
		return []array.Size2{finest}
	}
	p.mgSystem.ResizeWithFinest(finest, p.mg.Params().MaxNumberOfLevels)
	for _, a := range p.mgSystem.A {
		sizes = append(sizes, a.Size())
	}
	return
}

func (p *pressureSystem2) level(l int) *fdm.LinearSystem2 {
	if p.mg == nil {
		return p.system
	}
	return &fdm.LinearSystem2{A: p.mgSystem.A[l], X: p.mgSystem.X[l], B: p.mgSystem.B[l]}
}

// solveSystem keeps only the rows include accepts when compressing; the
// multigrid path always solves the stencil hierarchy.
func (p *pressureSystem2) solveSystem(useCompressed bool, include func(i, j int) bool) {
	switch {
	case p.mg != nil:
		p.mg.SolveMG(&p.mgSystem)
	case useCompressed:
		compressed, index := fdm.CompressMasked2(p.system, include)
		p.solver.SolveCompressed(compressed)
		fdm.DecompressMasked2(compressed, index, p.system.X)
	default:
		p.solver.Solve(p.system)
	}
	logSolve("pressure", p.solver)
}

// coarserFaceGrids resamples input onto every level below the finest.
func coarserFaceGrids2(input *grid.FaceCenteredGrid2, sizes []array.Size2) (levels []*grid.FaceCenteredGrid2) {
	levels = append(levels, input)
	for l := 1; l < len(sizes); l++ {
		var (
			finer   = levels[l-1]
			coarser = grid.NewFaceCenteredGrid2(sizes[l], r2.Scale(2, finer.GridSpacing()), finer.Origin(), r2.Vec{})
		)
		coarser.FillFunc(finer.Sample)
		levels = append(levels, coarser)
	}
	return
}

func preparePressureOutput2(input, output *grid.FaceCenteredGrid2) error {
	if err := sameCollocated2(&input.Grid2, &output.Grid2, 0, 0); err != nil {
		return err
	}
	if output != input {
		output.CopyFrom(input)
	}
	return nil
}

// SinglePhasePressure2 classifies every cell as fluid, air or boundary and
// solves the pressure Poisson equation on the fluid cells, with zero
// pressure in air and no flux through boundary cells.
type SinglePhasePressure2 struct {
	pressureSystem2
	markers []*array.Array2[Marker]
}

func NewSinglePhasePressure2() *SinglePhasePressure2 {
	return &SinglePhasePressure2{pressureSystem2: newPressureSystem2()}
}

// Markers of the finest level from the last solve.
func (s *SinglePhasePressure2) Markers() *array.Array2[Marker] {
	if len(s.markers) == 0 {
		return nil
	}
	return s.markers[0]
}

func (s *SinglePhasePressure2) SuggestedBoundaryConditionSolver() BoundaryConditionSolver2 {
	return NewBlockedBoundaryConditionSolver2()
}

func (s *SinglePhasePressure2) Solve(input *grid.FaceCenteredGrid2, timeIntervalInSeconds float64,
	output *grid.FaceCenteredGrid2, boundarySDF field.ScalarField2, boundaryVelocity field.VectorField2,
	fluidSDF field.ScalarField2, useCompressed bool) (err error) {
	if err = preparePressureOutput2(input, output); err != nil {
		return
	}
	if s.solver == nil {
		return
	}
	boundarySDF, fluidSDF = defaultSDFs2(boundarySDF, fluidSDF)
	sizes := s.levelSizes(input.Resolution())
	s.buildMarkers(input, sizes, boundarySDF, fluidSDF)
	for l, g := range coarserFaceGrids2(input, sizes) {
		s.buildLevel(s.level(l), s.markers[l], g)
	}
	s.solveSystem(useCompressed, func(i, j int) bool { return s.markers[0].At(i, j) == Fluid })
	s.applyPressureGradient(input, output)
	return
}

func (s *SinglePhasePressure2) buildMarkers(input *grid.FaceCenteredGrid2, sizes []array.Size2,
	boundarySDF, fluidSDF field.ScalarField2) {
	s.markers = s.markers[:0]
	s.markers = append(s.markers, BuildMarkers2(sizes[0], input.CellCenterPosition(), boundarySDF, fluidSDF))
	for l := 1; l < len(sizes); l++ {
		coarser := array.NewArray2[Marker](sizes[l].X, sizes[l].Y)
		coarsenMarkers2(s.markers[l-1], coarser)
		s.markers = append(s.markers, coarser)
	}
}

func (s *SinglePhasePressure2) buildLevel(system *fdm.LinearSystem2, markers *array.Array2[Marker],
	input *grid.FaceCenteredGrid2) {
	var (
		size    = input.Resolution()
		h       = input.GridSpacing()
		invHSqr = r2.Vec{X: 1 / (h.X * h.X), Y: 1 / (h.Y * h.Y)}
	)
	system.A.ParallelForEachIndex(func(i, j int) {
		var (
			row fdm.MatrixRow2
			b   float64
		)
		if markers.At(i, j) != Fluid {
			system.A.Set(i, j, fdm.MatrixRow2{Center: 1})
			system.B.Set(i, j, 0)
			return
		}
		b = input.DivergenceAtCellCenter(i, j)
		if i+1 < size.X {
			if m := markers.At(i+1, j); m != Boundary {
				row.Center += invHSqr.X
				if m == Fluid {
					row.Right -= invHSqr.X
				}
			}
		}
		if i > 0 && markers.At(i-1, j) != Boundary {
			row.Center += invHSqr.X
		}
		if j+1 < size.Y {
			if m := markers.At(i, j+1); m != Boundary {
				row.Center += invHSqr.Y
				if m == Fluid {
					row.Up -= invHSqr.Y
				}
			}
		}
		if j > 0 && markers.At(i, j-1) != Boundary {
			row.Center += invHSqr.Y
		}
		system.A.Set(i, j, row)
		system.B.Set(i, j, b)
	})
}

func (s *SinglePhasePressure2) applyPressureGradient(input, output *grid.FaceCenteredGrid2) {
	var (
		size    = input.Resolution()
		h       = input.GridSpacing()
		x       = s.Pressure()
		markers = s.markers[0]
		u, v    = output.U(), output.V()
		u0, v0  = input.U(), input.V()
	)
	markers.ParallelForEachIndex(func(i, j int) {
		if markers.At(i, j) != Fluid {
			return
		}
		if i+1 < size.X && markers.At(i+1, j) != Boundary {
			u.Set(i+1, j, u0.At(i+1, j)+(x.At(i+1, j)-x.At(i, j))/h.X)
		}
		if j+1 < size.Y && markers.At(i, j+1) != Boundary {
			v.Set(i, j+1, v0.At(i, j+1)+(x.At(i, j+1)-x.At(i, j))/h.Y)
		}
	})
}

// FractionalSinglePhasePressure2 weights every face by the fraction of it
// that is open to the fluid and places the free surface at its sub cell
// position with the ghost fluid method.
type FractionalSinglePhasePressure2 struct {
	pressureSystem2
	fluidSDF []*array.Array2[float64]
	uWeights []*array.Array2[float64]
	vWeights []*array.Array2[float64]
}

func NewFractionalSinglePhasePressure2() *FractionalSinglePhasePressure2 {
	return &FractionalSinglePhasePressure2{pressureSystem2: newPressureSystem2()}
}

func (s *FractionalSinglePhasePressure2) SuggestedBoundaryConditionSolver() BoundaryConditionSolver2 {
	return NewFractionalBoundaryConditionSolver2()
}

// Weights of the finest level from the last solve.
func (s *FractionalSinglePhasePressure2) Weights() (uWeights, vWeights *array.Array2[float64]) {
	if len(s.uWeights) == 0 {
		return nil, nil
	}
	return s.uWeights[0], s.vWeights[0]
}

func (s *FractionalSinglePhasePressure2) Solve(input *grid.FaceCenteredGrid2, timeIntervalInSeconds float64,
	output *grid.FaceCenteredGrid2, boundarySDF field.ScalarField2, boundaryVelocity field.VectorField2,
	fluidSDF field.ScalarField2, useCompressed bool) (err error) {
	if err = preparePressureOutput2(input, output); err != nil {
		return
	}
	if s.solver == nil {
		return
	}
	boundarySDF, fluidSDF = defaultSDFs2(boundarySDF, fluidSDF)
	if boundaryVelocity == nil {
		boundaryVelocity = field.ConstantVectorField2{}
	}
	sizes := s.levelSizes(input.Resolution())
	s.BuildWeights(input, sizes, boundarySDF, fluidSDF)
	for l, g := range coarserFaceGrids2(input, sizes) {
		s.buildLevel(s.level(l), s.fluidSDF[l], s.uWeights[l], s.vWeights[l], boundaryVelocity, g)
	}
	s.solveSystem(useCompressed, func(i, j int) bool { return levelset.IsInsideSDF(s.fluidSDF[0].At(i, j)) })
	s.ApplyPressureGradient(input, output)
	return
}

// BuildWeights samples the fluid level set at cell centers and the open
// fraction of every face on the finest level, then restricts both onto the
// coarser levels.
func (s *FractionalSinglePhasePressure2) BuildWeights(input *grid.FaceCenteredGrid2, sizes []array.Size2,
	boundarySDF, fluidSDF field.ScalarField2) {
	var (
		size       = sizes[0]
		h          = input.GridSpacing()
		cellCenter = input.CellCenterPosition()
		uPos, vPos = input.UPosition(), input.VPosition()
		us, vs     = input.USize(), input.VSize()
		phi        = array.NewArray2[float64](size.X, size.Y)
		uW         = array.NewArray2[float64](us.X, us.Y)
		vW         = array.NewArray2[float64](vs.X, vs.Y)
	)
	phi.ParallelForEachIndex(func(i, j int) { phi.Set(i, j, fluidSDF.Sample(cellCenter(i, j))) })
	faceWeight := func(p0, p1 r2.Vec) float64 {
		w := array.Clamp(1-levelset.FractionInsideSDF(boundarySDF.Sample(p0), boundarySDF.Sample(p1)), 0, 1)
		if w > 0 && w < MinFaceWeight {
			w = MinFaceWeight
		}
		return w
	}
	uW.ParallelForEachIndex(func(i, j int) {
		pt := uPos(i, j)
		uW.Set(i, j, faceWeight(r2.Vec{X: pt.X - 0.5*h.X, Y: pt.Y}, r2.Vec{X: pt.X + 0.5*h.X, Y: pt.Y}))
	})
	vW.ParallelForEachIndex(func(i, j int) {
		pt := vPos(i, j)
		vW.Set(i, j, faceWeight(r2.Vec{X: pt.X, Y: pt.Y - 0.5*h.Y}, r2.Vec{X: pt.X, Y: pt.Y + 0.5*h.Y}))
	})
	s.fluidSDF = append(s.fluidSDF[:0], phi)
	s.uWeights = append(s.uWeights[:0], uW)
	s.vWeights = append(s.vWeights[:0], vW)
	for l := 1; l < len(sizes); l++ {
		n := sizes[l]
		s.fluidSDF = append(s.fluidSDF, restrictLevel2(s.fluidSDF[l-1], array.Size2{X: n.X, Y: n.Y}))
		s.uWeights = append(s.uWeights, restrictLevel2(s.uWeights[l-1], array.Size2{X: n.X + 1, Y: n.Y}))
		s.vWeights = append(s.vWeights, restrictLevel2(s.vWeights[l-1], array.Size2{X: n.X, Y: n.Y + 1}))
	}
}

// restrictKernel maps coarse index i to finer indices and weights. Axes that
// are exactly twice as long use the {1,3,3,1}/8 filter; staggered axes, one
// sample longer, take the coincident finer sample.
func restrictKernel(i, finerN, coarserN int) (idx [4]int, w [4]float64) {
	if finerN != 2*coarserN {
		return [4]int{min(2*i, finerN-1)}, [4]float64{1}
	}
	return coarseFootprint(i, coarserN), [4]float64{0.125, 0.375, 0.375, 0.125}
}

func restrictLevel2(finer *array.Array2[float64], size array.Size2) (coarser *array.Array2[float64]) {
	fs := finer.Size()
	coarser = array.NewArray2[float64](size.X, size.Y)
	coarser.ParallelForEachIndex(func(i, j int) {
		var (
			ii, wi = restrictKernel(i, fs.X, size.X)
			jj, wj = restrictKernel(j, fs.Y, size.Y)
			sum    float64
		)
		for y := 0; y < 4; y++ {
			if wj[y] == 0 {
				continue
			}
			for x := 0; x < 4; x++ {
				if wi[x] != 0 {
					sum += wi[x] * wj[y] * finer.At(ii[x], jj[y])
				}
			}
		}
		coarser.Set(i, j, sum)
	})
	return
}

// ghostWeight is the clamped fluid fraction of the segment between two cell
// centers.
func ghostWeight(phi0, phi1 float64) float64 {
	return max(levelset.FractionInsideSDF(phi0, phi1), MinFaceWeight)
}

func (s *FractionalSinglePhasePressure2) buildLevel(system *fdm.LinearSystem2, fluidSDF, uW, vW *array.Array2[float64],
	boundaryVelocity field.VectorField2, input *grid.FaceCenteredGrid2) {
	var (
		size       = input.Resolution()
		h          = input.GridSpacing()
		invH       = r2.Vec{X: 1 / h.X, Y: 1 / h.Y}
		invHSqr    = r2.Vec{X: invH.X * invH.X, Y: invH.Y * invH.Y}
		u, v       = input.U(), input.V()
		uPos, vPos = input.UPosition(), input.VPosition()
	)
	system.A.ParallelForEachIndex(func(i, j int) {
		var (
			row       fdm.MatrixRow2
			b         float64
			centerPhi = fluidSDF.At(i, j)
		)
		if !levelset.IsInsideSDF(centerPhi) {
			system.A.Set(i, j, fdm.MatrixRow2{Center: 1})
			system.B.Set(i, j, 0)
			return
		}
		if i+1 < size.X {
			term := uW.At(i+1, j) * invHSqr.X
			if phi := fluidSDF.At(i+1, j); levelset.IsInsideSDF(phi) {
				row.Center += term
				row.Right -= term
			} else {
				row.Center += term / ghostWeight(centerPhi, phi)
			}
			b += uW.At(i+1, j) * u.At(i+1, j) * invH.X
		} else {
			b += u.At(i+1, j) * invH.X
		}
		if i > 0 {
			term := uW.At(i, j) * invHSqr.X
			if phi := fluidSDF.At(i-1, j); levelset.IsInsideSDF(phi) {
				row.Center += term
			} else {
				row.Center += term / ghostWeight(centerPhi, phi)
			}
			b -= uW.At(i, j) * u.At(i, j) * invH.X
		} else {
			b -= u.At(i, j) * invH.X
		}
		if j+1 < size.Y {
			term := vW.At(i, j+1) * invHSqr.Y
			if phi := fluidSDF.At(i, j+1); levelset.IsInsideSDF(phi) {
				row.Center += term
				row.Up -= term
			} else {
				row.Center += term / ghostWeight(centerPhi, phi)
			}
			b += vW.At(i, j+1) * v.At(i, j+1) * invH.Y
		} else {
			b += v.At(i, j+1) * invH.Y
		}
		if j > 0 {
			term := vW.At(i, j) * invHSqr.Y
			if phi := fluidSDF.At(i, j-1); levelset.IsInsideSDF(phi) {
				row.Center += term
			} else {
				row.Center += term / ghostWeight(centerPhi, phi)
			}
			b -= vW.At(i, j) * v.At(i, j) * invH.Y
		} else {
			b -= v.At(i, j) * invH.Y
		}
		// flux through the solid part of each face
		b += (1-uW.At(i+1, j))*boundaryVelocity.Sample(uPos(i+1, j)).X*invH.X -
			(1-uW.At(i, j))*boundaryVelocity.Sample(uPos(i, j)).X*invH.X
		b += (1-vW.At(i, j+1))*boundaryVelocity.Sample(vPos(i, j+1)).Y*invH.Y -
			(1-vW.At(i, j))*boundaryVelocity.Sample(vPos(i, j)).Y*invH.Y
		if row.Center < epsilon {
			row.Center, b = 1, 0
		}
		system.A.Set(i, j, row)
		system.B.Set(i, j, b)
	})
}

// ApplyPressureGradient subtracts the gradient of the last solved pressure
// from input, writing every face that is open and touches fluid.
func (s *FractionalSinglePhasePressure2) ApplyPressureGradient(input, output *grid.FaceCenteredGrid2) {
	var (
		size   = input.Resolution()
		h      = input.GridSpacing()
		x      = s.Pressure()
		phi    = s.fluidSDF[0]
		uW, vW = s.uWeights[0], s.vWeights[0]
		u, v   = output.U(), output.V()
		u0, v0 = input.U(), input.V()
	)
	phi.ParallelForEachIndex(func(i, j int) {
		centerPhi := phi.At(i, j)
		if i+1 < size.X && uW.At(i+1, j) > 0 {
			if rightPhi := phi.At(i+1, j); levelset.IsInsideSDF(centerPhi) || levelset.IsInsideSDF(rightPhi) {
				theta := ghostWeight(centerPhi, rightPhi)
				u.Set(i+1, j, u0.At(i+1, j)+(x.At(i+1, j)-x.At(i, j))/(h.X*theta))
			}
		}
		if j+1 < size.Y && vW.At(i, j+1) > 0 {
			if upPhi := phi.At(i, j+1); levelset.IsInsideSDF(centerPhi) || levelset.IsInsideSDF(upPhi) {
				theta := ghostWeight(centerPhi, upPhi)
				v.Set(i, j+1, v0.At(i, j+1)+(x.At(i, j+1)-x.At(i, j))/(h.Y*theta))
			}
		}
	})
}

var (
	_ PressureSolver2 = &SinglePhasePressure2{}
	_ PressureSolver2 = &FractionalSinglePhasePressure2{}
)
