package gridsolver

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/fdm"
	"github.com/notargets/gofluid/field"
	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/grid"
	"github.com/notargets/gofluid/levelset"
)

type PressureSolver3 interface {
	Solve(input *grid.FaceCenteredGrid3, timeIntervalInSeconds float64, output *grid.FaceCenteredGrid3,
		boundarySDF field.ScalarField3, boundaryVelocity field.VectorField3, fluidSDF field.ScalarField3,
		useCompressed bool) error
	SuggestedBoundaryConditionSolver() BoundaryConditionSolver3
}

type pressureSystem3 struct {
	solver   fdm.Solver3
	mg       *fdm.MG3
	system   *fdm.LinearSystem3
	mgSystem fdm.MGLinearSystem3
}

func newPressureSystem3() pressureSystem3 {
	return pressureSystem3{
		solver: fdm.NewICCG3(100, DefaultPressureTolerance),
		system: fdm.NewLinearSystem3(array.Size3{}),
	}
}

func (p *pressureSystem3) LinearSystemSolver() fdm.Solver3 { return p.solver }

func (p *pressureSystem3) SetLinearSystemSolver(solver fdm.Solver3) {
	p.solver = solver
	p.mg, _ = solver.(*fdm.MG3)
	p.system.Clear()
	p.mgSystem.Clear()
}

func (p *pressureSystem3) Pressure() *fdm.Vector3 {
	if p.mg != nil && p.mgSystem.NumberOfLevels() > 0 {
		return p.mgSystem.X[0]
	}
	return p.system.X
}

func (p *pressureSystem3) levelSizes(finest array.Size3) (sizes []array.Size3) {
	if p.mg == nil {
		p.system.Resize(finest)
		return []array.Size3{finest}
	}
	p.mgSystem.ResizeWithFinest(finest, p.mg.Params().MaxNumberOfLevels)
	for _, a := range p.mgSystem.A {
		sizes = append(sizes, a.Size())
	}
	return
}

func (p *pressureSystem3) level(l int) *fdm.LinearSystem3 {
	if p.mg == nil {
		return p.system
	}
	return &fdm.LinearSystem3{A: p.mgSystem.A[l], X: p.mgSystem.X[l], B: p.mgSystem.B[l]}
}

func (p *pressureSystem3) solveSystem(useCompressed bool, include func(i, j, k int) bool) {
	switch {
	case p.mg != nil:
		p.mg.SolveMG(&p.mgSystem)
	case useCompressed:
		compressed, index := fdm.CompressMasked3(p.system, include)
		p.solver.SolveCompressed(compressed)
		fdm.DecompressMasked3(compressed, index, p.system.X)
	default:
		p.solver.Solve(p.system)
	}
	logSolve("pressure", p.solver)
}

func coarserFaceGrids3(input *grid.FaceCenteredGrid3, sizes []array.Size3) (levels []*grid.FaceCenteredGrid3) {
	levels = append(levels, input)
	for l := 1; l < len(sizes); l++ {
		var (
			finer   = levels[l-1]
			coarser = grid.NewFaceCenteredGrid3(sizes[l], r3.Scale(2, finer.GridSpacing()), finer.Origin(), r3.Vec{})
		)
		coarser.FillFunc(finer.Sample)
		levels = append(levels, coarser)
	}
	return
}

func preparePressureOutput3(input, output *grid.FaceCenteredGrid3) error {
	if err := sameCollocated3(&input.Grid3, &output.Grid3, 0, 0); err != nil {
		return err
	}
	if output != input {
		output.CopyFrom(input)
	}
	return nil
}

type SinglePhasePressure3 struct {
	pressureSystem3
	markers []*array.Array3[Marker]
}

func NewSinglePhasePressure3() *SinglePhasePressure3 {
	return &SinglePhasePressure3{pressureSystem3: newPressureSystem3()}
}

func (s *SinglePhasePressure3) Markers() *array.Array3[Marker] {
	if len(s.markers) == 0 {
		return nil
	}
	return s.markers[0]
}

func (s *SinglePhasePressure3) SuggestedBoundaryConditionSolver() BoundaryConditionSolver3 {
	return NewBlockedBoundaryConditionSolver3()
}

func (s *SinglePhasePressure3) Solve(input *grid.FaceCenteredGrid3, timeIntervalInSeconds float64,
	output *grid.FaceCenteredGrid3, boundarySDF field.ScalarField3, boundaryVelocity field.VectorField3,
	fluidSDF field.ScalarField3, useCompressed bool) (err error) {
	if err = preparePressureOutput3(input, output); err != nil {
		return
	}
	if s.solver == nil {
		return
	}
	boundarySDF, fluidSDF = defaultSDFs3(boundarySDF, fluidSDF)
	sizes := s.levelSizes(input.Resolution())
	s.markers = append(s.markers[:0], BuildMarkers3(sizes[0], input.CellCenterPosition(), boundarySDF, fluidSDF))
	for l := 1; l < len(sizes); l++ {
		coarser := array.NewArray3[Marker](sizes[l].X, sizes[l].Y, sizes[l].Z)
		coarsenMarkers3(s.markers[l-1], coarser)
		s.markers = append(s.markers, coarser)
	}
	for l, g := range coarserFaceGrids3(input, sizes) {
		s.buildLevel(s.level(l), s.markers[l], g)
	}
	s.solveSystem(useCompressed, func(i, j, k int) bool { return s.markers[0].At(i, j, k) == Fluid })
	s.applyPressureGradient(input, output)
	return
}

func (s *SinglePhasePressure3) buildLevel(system *fdm.LinearSystem3, markers *array.Array3[Marker],
	input *grid.FaceCenteredGrid3) {
	var (
		size    = input.Resolution()
		h       = input.GridSpacing()
		invHSqr = r3.Vec{X: 1 / (h.X * h.X), Y: 1 / (h.Y * h.Y), Z: 1 / (h.Z * h.Z)}
	)
	system.A.ParallelForEachIndex(func(i, j, k int) {
		var row fdm.MatrixRow3
		if markers.At(i, j, k) != Fluid {
			system.A.Set(i, j, k, fdm.MatrixRow3{Center: 1})
			system.B.Set(i, j, k, 0)
			return
		}
		if i+1 < size.X {
			if m := markers.At(i+1, j, k); m != Boundary {
				row.Center += invHSqr.X
				if m == Fluid {
					row.Right -= invHSqr.X
				}
			}
		}
		if i > 0 && markers.At(i-1, j, k) != Boundary {
			row.Center += invHSqr.X
		}
		if j+1 < size.Y {
			if m := markers.At(i, j+1, k); m != Boundary {
				row.Center += invHSqr.Y
				if m == Fluid {
					row.Up -= invHSqr.Y
				}
			}
		}
		if j > 0 && markers.At(i, j-1, k) != Boundary {
			row.Center += invHSqr.Y
		}
		if k+1 < size.Z {
			if m := markers.At(i, j, k+1); m != Boundary {
				row.Center += invHSqr.Z
				if m == Fluid {
					row.Front -= invHSqr.Z
				}
			}
		}
		if k > 0 && markers.At(i, j, k-1) != Boundary {
			row.Center += invHSqr.Z
		}
		system.A.Set(i, j, k, row)
		system.B.Set(i, j, k, input.DivergenceAtCellCenter(i, j, k))
	})
}

func (s *SinglePhasePressure3) applyPressureGradient(input, output *grid.FaceCenteredGrid3) {
	var (
		size       = input.Resolution()
		h          = input.GridSpacing()
		x          = s.Pressure()
		markers    = s.markers[0]
		u, v, w    = output.U(), output.V(), output.W()
		u0, v0, w0 = input.U(), input.V(), input.W()
	)
	markers.ParallelForEachIndex(func(i, j, k int) {
		if markers.At(i, j, k) != Fluid {
			return
		}
		if i+1 < size.X && markers.At(i+1, j, k) != Boundary {
			u.Set(i+1, j, k, u0.At(i+1, j, k)+(x.At(i+1, j, k)-x.At(i, j, k))/h.X)
		}
		if j+1 < size.Y && markers.At(i, j+1, k) != Boundary {
			v.Set(i, j+1, k, v0.At(i, j+1, k)+(x.At(i, j+1, k)-x.At(i, j, k))/h.Y)
		}
		if k+1 < size.Z && markers.At(i, j, k+1) != Boundary {
			w.Set(i, j, k+1, w0.At(i, j, k+1)+(x.At(i, j, k+1)-x.At(i, j, k))/h.Z)
		}
	})
}

type FractionalSinglePhasePressure3 struct {
	pressureSystem3
	fluidSDF []*array.Array3[float64]
	weights  [3][]*array.Array3[float64]
}

func NewFractionalSinglePhasePressure3() *FractionalSinglePhasePressure3 {
	return &FractionalSinglePhasePressure3{pressureSystem3: newPressureSystem3()}
}

func (s *FractionalSinglePhasePressure3) SuggestedBoundaryConditionSolver() BoundaryConditionSolver3 {
	return NewFractionalBoundaryConditionSolver3()
}

func (s *FractionalSinglePhasePressure3) Weights() (uWeights, vWeights, wWeights *array.Array3[float64]) {
	if len(s.weights[0]) == 0 {
		return nil, nil, nil
	}
	return s.weights[0][0], s.weights[1][0], s.weights[2][0]
}

func (s *FractionalSinglePhasePressure3) Solve(input *grid.FaceCenteredGrid3, timeIntervalInSeconds float64,
	output *grid.FaceCenteredGrid3, boundarySDF field.ScalarField3, boundaryVelocity field.VectorField3,
	fluidSDF field.ScalarField3, useCompressed bool) (err error) {
	if err = preparePressureOutput3(input, output); err != nil {
		return
	}
	if s.solver == nil {
		return
	}
	boundarySDF, fluidSDF = defaultSDFs3(boundarySDF, fluidSDF)
	if boundaryVelocity == nil {
		boundaryVelocity = field.ConstantVectorField3{}
	}
	sizes := s.levelSizes(input.Resolution())
	s.BuildWeights(input, sizes, boundarySDF, fluidSDF)
	for l, g := range coarserFaceGrids3(input, sizes) {
		s.buildLevel(s.level(l), l, boundaryVelocity, g)
	}
	s.solveSystem(useCompressed, func(i, j, k int) bool { return levelset.IsInsideSDF(s.fluidSDF[0].At(i, j, k)) })
	s.ApplyPressureGradient(input, output)
	return
}

// BuildWeights takes the open fraction of each face from the four corners of
// the face.
func (s *FractionalSinglePhasePressure3) BuildWeights(input *grid.FaceCenteredGrid3, sizes []array.Size3,
	boundarySDF, fluidSDF field.ScalarField3) {
	var (
		size       = sizes[0]
		h          = input.GridSpacing()
		cellCenter = input.CellCenterPosition()
		phi        = array.NewArray3[float64](size.X, size.Y, size.Z)
		positions  = [3]func(i, j, k int) r3.Vec{input.UPosition(), input.VPosition(), input.WPosition()}
		hx, hy, hz = 0.5 * h.X, 0.5 * h.Y, 0.5 * h.Z
		// corner offsets of the u, v and w faces
		corners = [3][4]r3.Vec{
			{{Y: -hy, Z: -hz}, {Y: hy, Z: -hz}, {Y: -hy, Z: hz}, {Y: hy, Z: hz}},
			{{X: -hx, Z: -hz}, {X: -hx, Z: hz}, {X: hx, Z: -hz}, {X: hx, Z: hz}},
			{{X: -hx, Y: -hy}, {X: -hx, Y: hy}, {X: hx, Y: -hy}, {X: hx, Y: hy}},
		}
	)
	phi.ParallelForEachIndex(func(i, j, k int) { phi.Set(i, j, k, fluidSDF.Sample(cellCenter(i, j, k))) })
	s.fluidSDF = append(s.fluidSDF[:0], phi)
	for axis := 0; axis < 3; axis++ {
		var (
			data, _, _ = input.Component(axis)
			fs         = data.Size()
			pos        = positions[axis]
			c          = corners[axis]
			weight     = array.NewArray3[float64](fs.X, fs.Y, fs.Z)
		)
		weight.ParallelForEachIndex(func(i, j, k int) {
			pt := pos(i, j, k)
			frac := levelset.FractionInside(boundarySDF.Sample(r3.Add(pt, c[0])), boundarySDF.Sample(r3.Add(pt, c[1])),
				boundarySDF.Sample(r3.Add(pt, c[2])), boundarySDF.Sample(r3.Add(pt, c[3])))
			w := array.Clamp(1-frac, 0, 1)
			if w > 0 && w < MinFaceWeight {
				w = MinFaceWeight
			}
			weight.Set(i, j, k, w)
		})
		s.weights[axis] = append(s.weights[axis][:0], weight)
	}
	for l := 1; l < len(sizes); l++ {
		n := sizes[l]
		s.fluidSDF = append(s.fluidSDF, restrictLevel3(s.fluidSDF[l-1], n))
		s.weights[0] = append(s.weights[0], restrictLevel3(s.weights[0][l-1], array.Size3{X: n.X + 1, Y: n.Y, Z: n.Z}))
		s.weights[1] = append(s.weights[1], restrictLevel3(s.weights[1][l-1], array.Size3{X: n.X, Y: n.Y + 1, Z: n.Z}))
		s.weights[2] = append(s.weights[2], restrictLevel3(s.weights[2][l-1], array.Size3{X: n.X, Y: n.Y, Z: n.Z + 1}))
	}
}

func restrictLevel3(finer *array.Array3[float64], size array.Size3) (coarser *array.Array3[float64]) {
	fs := finer.Size()
	coarser = array.NewArray3[float64](size.X, size.Y, size.Z)
	coarser.ParallelForEachIndex(func(i, j, k int) {
		var (
			ii, wi = restrictKernel(i, fs.X, size.X)
			jj, wj = restrictKernel(j, fs.Y, size.Y)
			kk, wk = restrictKernel(k, fs.Z, size.Z)
			sum    float64
		)
		for z := 0; z < 4; z++ {
			if wk[z] == 0 {
				continue
			}
			for y := 0; y < 4; y++ {
				if wj[y] == 0 {
					continue
				}
				for x := 0; x < 4; x++ {
					if wi[x] != 0 {
						sum += wi[x] * wj[y] * wk[z] * finer.At(ii[x], jj[y], kk[z])
					}
				}
			}
		}
		coarser.Set(i, j, k, sum)
	})
	return
}

func (s *FractionalSinglePhasePressure3) buildLevel(system *fdm.LinearSystem3, level int,
	boundaryVelocity field.VectorField3, input *grid.FaceCenteredGrid3) {
	var (
		size      = input.Resolution()
		h         = input.GridSpacing()
		invH      = [3]float64{1 / h.X, 1 / h.Y, 1 / h.Z}
		fluidSDF  = s.fluidSDF[level]
		weights   = [3]*array.Array3[float64]{s.weights[0][level], s.weights[1][level], s.weights[2][level]}
		faces     = [3]*array.Array3[float64]{input.U(), input.V(), input.W()}
		positions = [3]func(i, j, k int) r3.Vec{input.UPosition(), input.VPosition(), input.WPosition()}
		extent    = [3]int{size.X, size.Y, size.Z}
	)
	system.A.ParallelForEachIndex(func(i, j, k int) {
		var (
			row       fdm.MatrixRow3
			b         float64
			centerPhi = fluidSDF.At(i, j, k)
			idx       = [3]int{i, j, k}
		)
		if !levelset.IsInsideSDF(centerPhi) {
			system.A.Set(i, j, k, fdm.MatrixRow3{Center: 1})
			system.B.Set(i, j, k, 0)
			return
		}
		offDiagonal := [3]*float64{&row.Right, &row.Up, &row.Front}
		for axis := 0; axis < 3; axis++ {
			var (
				w, f    = weights[axis], faces[axis]
				hi, lo  = idx, idx
				invHSqr = invH[axis] * invH[axis]
			)
			hi[axis]++
			lo[axis]--
			if hi[axis] < extent[axis] {
				term := w.At(hi[0], hi[1], hi[2]) * invHSqr
				if phi := fluidSDF.At(hi[0], hi[1], hi[2]); levelset.IsInsideSDF(phi) {
					row.Center += term
					*offDiagonal[axis] -= term
				} else {
					row.Center += term / ghostWeight(centerPhi, phi)
				}
				b += w.At(hi[0], hi[1], hi[2]) * f.At(hi[0], hi[1], hi[2]) * invH[axis]
			} else {
				b += f.At(hi[0], hi[1], hi[2]) * invH[axis]
			}
			if lo[axis] >= 0 {
				term := w.At(i, j, k) * invHSqr
				if phi := fluidSDF.At(lo[0], lo[1], lo[2]); levelset.IsInsideSDF(phi) {
					row.Center += term
				} else {
					row.Center += term / ghostWeight(centerPhi, phi)
				}
				b -= w.At(i, j, k) * f.At(i, j, k) * invH[axis]
			} else {
				b -= f.At(i, j, k) * invH[axis]
			}
			// flux through the solid part of the two faces
			var (
				pos    = positions[axis]
				bvHi   = geometry.Component3(boundaryVelocity.Sample(pos(hi[0], hi[1], hi[2])), axis)
				bvLo   = geometry.Component3(boundaryVelocity.Sample(pos(i, j, k)), axis)
				openHi = w.At(hi[0], hi[1], hi[2])
				openLo = w.At(i, j, k)
			)
			b += (1-openHi)*bvHi*invH[axis] - (1-openLo)*bvLo*invH[axis]
		}
		if row.Center < epsilon {
			row.Center, b = 1, 0
		}
		system.A.Set(i, j, k, row)
		system.B.Set(i, j, k, b)
	})
}

func (s *FractionalSinglePhasePressure3) ApplyPressureGradient(input, output *grid.FaceCenteredGrid3) {
	var (
		size   = input.Resolution()
		h      = input.GridSpacing()
		step   = [3]float64{h.X, h.Y, h.Z}
		extent = [3]int{size.X, size.Y, size.Z}
		x      = s.Pressure()
		phi    = s.fluidSDF[0]
		out    = [3]*array.Array3[float64]{output.U(), output.V(), output.W()}
		in     = [3]*array.Array3[float64]{input.U(), input.V(), input.W()}
	)
	phi.ParallelForEachIndex(func(i, j, k int) {
		centerPhi := phi.At(i, j, k)
		for axis := 0; axis < 3; axis++ {
			hi := [3]int{i, j, k}
			hi[axis]++
			if hi[axis] >= extent[axis] || s.weights[axis][0].At(hi[0], hi[1], hi[2]) <= 0 {
				continue
			}
			nextPhi := phi.At(hi[0], hi[1], hi[2])
			if !levelset.IsInsideSDF(centerPhi) && !levelset.IsInsideSDF(nextPhi) {
				continue
			}
			theta := ghostWeight(centerPhi, nextPhi)
			out[axis].Set(hi[0], hi[1], hi[2], in[axis].At(hi[0], hi[1], hi[2])+
				(x.At(hi[0], hi[1], hi[2])-x.At(i, j, k))/(step[axis]*theta))
		}
	})
}

var (
	_ PressureSolver3 = &SinglePhasePressure3{}
	_ PressureSolver3 = &FractionalSinglePhasePressure3{}
)
