package fdm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
)

// poisson2 builds the Dirichlet five point Laplacian with the given diagonal
// shift, and a right hand side whose exact solution is returned.
func poisson2(size array.Size2, h, shift float64) (system *LinearSystem2, exact *Vector2) {
	system = NewLinearSystem2(size)
	exact = array.NewArray2[float64](size.X, size.Y)
	invH2 := 1 / (h * h)
	array.ForEachIndex2(size, func(i, j int) {
		row := MatrixRow2{Center: 4*invH2 + shift}
		if i+1 < size.X {
			row.Right = -invH2
		}
		if j+1 < size.Y {
			row.Up = -invH2
		}
		system.A.Set(i, j, row)
		exact.Set(i, j, math.Sin(0.3*float64(i))+math.Cos(0.2*float64(j)))
	})
	BLAS2{}.MVM(system.A, exact, system.B)
	return
}

func poisson3(size array.Size3, shift float64) (system *LinearSystem3, exact *Vector3) {
	system = NewLinearSystem3(size)
	exact = array.NewArray3[float64](size.X, size.Y, size.Z)
	array.ForEachIndex3(size, func(i, j, k int) {
		row := MatrixRow3{Center: 6 + shift}
		if i+1 < size.X {
			row.Right = -1
		}
		if j+1 < size.Y {
			row.Up = -1
		}
		if k+1 < size.Z {
			row.Front = -1
		}
		system.A.Set(i, j, k, row)
		exact.Set(i, j, k, float64(i)-0.5*float64(j)+0.25*float64(k*k))
	})
	BLAS3{}.MVM(system.A, exact, system.B)
	return
}

func maxError2(a, b *Vector2) (e float64) {
	for i, v := range a.Data() {
		e = math.Max(e, math.Abs(v-b.Data()[i]))
	}
	return
}

func maxError3(a, b *Vector3) (e float64) {
	for i, v := range a.Data() {
		e = math.Max(e, math.Abs(v-b.Data()[i]))
	}
	return
}

func maxErrorSlice(a, b []float64) (e float64) {
	for i, v := range a {
		e = math.Max(e, math.Abs(v-b[i]))
	}
	return
}

func TestBLAS(t *testing.T) {
	var (
		ops  = BLAS2{}
		size = array.Size2{X: 3, Y: 2}
		a    = array.NewArray2[float64](size.X, size.Y, 2)
		b    = array.NewArray2[float64](size.X, size.Y, -1)
		r    = array.NewArray2[float64](size.X, size.Y)
	)
	assert.Equal(t, -12., ops.Dot(a, b))
	ops.AXPY(3, a, b, r)
	assert.Equal(t, 5., r.At(2, 1))
	assert.InDelta(t, math.Sqrt(24), ops.L2Norm(a), 1e-14)
	b.Set(1, 1, -7)
	assert.Equal(t, 7., ops.LInfNorm(b))
	assert.Panics(t, func() { ops.Dot(a, array.NewArray2[float64](2, 2)) })
	{ // Test MVM against the compressed form of the same matrix
		system, exact := poisson2(array.Size2{X: 5, Y: 4}, 1, 0.5)
		compressed := Compress2(system)
		assert.Equal(t, 20, compressed.Len())
		result := make([]float64, compressed.Len())
		CompressedBLAS{}.MVM(compressed.A, exact.Data(), result)
		assert.InDeltaSlice(t, system.B.Data(), result, 1e-12)
		CompressedBLAS{}.Residual(compressed.A, exact.Data(), compressed.B, result)
		assert.InDelta(t, 0., CompressedBLAS{}.LInfNorm(result), 1e-12)
	}
	{ // Test the 3D residual vanishes at the exact solution
		system, exact := poisson3(array.Size3{X: 3, Y: 4, Z: 2}, 0)
		r := array.NewArray3[float64](3, 4, 2)
		BLAS3{}.Residual(system.A, exact, system.B, r)
		assert.InDelta(t, 0., BLAS3{}.LInfNorm(r), 1e-12)
		compressed := Compress3(system)
		result := make([]float64, compressed.Len())
		CompressedBLAS{}.MVM(compressed.A, exact.Data(), result)
		assert.InDeltaSlice(t, system.B.Data(), result, 1e-12)
	}
}

func TestICCGPoisson1D(t *testing.T) {
	var (
		n      = 50
		h      = 0.1
		system = NewLinearSystem2(array.Size2{X: n, Y: 1})
		exact  = array.NewArray2[float64](n, 1)
	)
	for i := 0; i < n; i++ {
		row := MatrixRow2{Center: 2}
		if i < n-1 {
			row.Right = -1
		}
		system.A.Set(i, 0, row)
		exact.Set(i, 0, math.Sin(float64(i)*h))
	}
	BLAS2{}.MVM(system.A, exact, system.B)
	solver := NewICCG2(200, 1e-8)
	require.True(t, solver.Solve(system))
	assert.Less(t, maxError2(system.X, exact), 1e-6)
	assert.LessOrEqual(t, solver.LastResidual(), 1e-8)
	assert.LessOrEqual(t, solver.LastNumberOfIterations(), 200)

	compressed := Compress2(system)
	require.True(t, solver.SolveCompressed(compressed))
	assert.Less(t, maxErrorSlice(compressed.X, exact.Data()), 1e-6)
}

func TestKrylovSolvers(t *testing.T) {
	for _, solver := range []Solver2{NewCG2(500, 1e-9), NewICCG2(500, 1e-9)} {
		system, exact := poisson2(array.Size2{X: 16, Y: 12}, 1, 0.1)
		system.X.Fill(5)
		require.True(t, solver.Solve(system))
		assert.Less(t, maxError2(system.X, exact), 1e-8)
		assert.Positive(t, solver.LastNumberOfIterations())

		compressed := Compress2(system)
		require.True(t, solver.SolveCompressed(compressed))
		assert.Less(t, maxErrorSlice(compressed.X, exact.Data()), 1e-8)
	}
	for _, solver := range []Solver3{NewCG3(500, 1e-9), NewICCG3(500, 1e-9)} {
		system, exact := poisson3(array.Size3{X: 6, Y: 5, Z: 4}, 0.1)
		require.True(t, solver.Solve(system))
		assert.Less(t, maxError3(system.X, exact), 1e-8)

		compressed := Compress3(system)
		require.True(t, solver.SolveCompressed(compressed))
		assert.Less(t, maxErrorSlice(compressed.X, exact.Data()), 1e-8)
	}
	{ // Test a starved iteration cap reports failure with the residual
		system, _ := poisson2(array.Size2{X: 16, Y: 16}, 1, 0)
		solver := NewCG2(2, 1e-12)
		assert.False(t, solver.Solve(system))
		assert.Equal(t, 2, solver.LastNumberOfIterations())
		assert.Greater(t, solver.LastResidual(), 1e-12)
	}
}

func TestRelaxationSolvers(t *testing.T) {
	solvers := []Solver2{
		NewJacobi2(500, 1, 1e-10),
		NewGaussSeidel2(500, 5, 1e-10, 1, false),
		NewGaussSeidel2(500, 5, 1e-10, 1.2, true),
	}
	for _, solver := range solvers {
		// center 5 against four unit couplings is strictly diagonally dominant
		system, exact := poisson2(array.Size2{X: 8, Y: 8}, 1, 1)
		require.True(t, solver.Solve(system))
		assert.Less(t, maxError2(system.X, exact), 1e-9)
		assert.LessOrEqual(t, solver.LastResidual(), 1e-10)
		assert.Less(t, solver.LastNumberOfIterations(), 500)

		compressed := Compress2(system)
		require.True(t, solver.SolveCompressed(compressed))
		assert.Less(t, maxErrorSlice(compressed.X, exact.Data()), 1e-9)
	}
	solvers3 := []Solver3{
		NewJacobi3(500, 1, 1e-10),
		NewGaussSeidel3(500, 5, 1e-10, 1, false),
		NewGaussSeidel3(500, 5, 1e-10, 1.2, true),
	}
	for _, solver := range solvers3 {
		system, exact := poisson3(array.Size3{X: 5, Y: 4, Z: 6}, 1)
		require.True(t, solver.Solve(system))
		assert.Less(t, maxError3(system.X, exact), 1e-9)
	}
	{ // Test red-black ordering reaches the lexicographic fixed point
		a, _ := poisson2(array.Size2{X: 7, Y: 5}, 1, 1)
		b, _ := poisson2(array.Size2{X: 7, Y: 5}, 1, 1)
		for iter := 0; iter < 200; iter++ {
			Relax2(a.A, a.B, 1, a.X)
			RelaxRedBlack2(b.A, b.B, 1, b.X)
		}
		assert.Less(t, maxError2(a.X, b.X), 1e-10)
	}
}

func TestRestrictCorrect(t *testing.T) {
	{ // Test a constant restricts to the same constant
		finer := array.NewArray2[float64](8, 6, 3)
		coarser := array.NewArray2[float64](4, 3)
		Restrict2(finer, coarser)
		for _, v := range coarser.Data() {
			assert.InDelta(t, 3., v, 1e-14)
		}
		assert.Panics(t, func() { Restrict2(finer, array.NewArray2[float64](3, 3)) })
	}
	{ // Test a constant correction is added everywhere
		coarser := array.NewArray2[float64](4, 3, 2)
		finer := array.NewArray2[float64](8, 6, 1)
		Correct2(coarser, finer)
		for _, v := range finer.Data() {
			assert.InDelta(t, 3., v, 1e-14)
		}
	}
	{
		finer := array.NewArray3[float64](4, 4, 8, -1)
		coarser := array.NewArray3[float64](2, 2, 4)
		Restrict3(finer, coarser)
		for _, v := range coarser.Data() {
			assert.InDelta(t, -1., v, 1e-14)
		}
		Correct3(coarser, finer)
		for _, v := range finer.Data() {
			assert.InDelta(t, -2., v, 1e-14)
		}
	}
}

func TestMG(t *testing.T) {
	var (
		finest = array.Size2{X: 16, Y: 16}
		system = &MGLinearSystem2{}
		params = DefaultMGParameters(3)
	)
	system.ResizeWithFinest(finest, params.MaxNumberOfLevels)
	require.Equal(t, 3, system.NumberOfLevels())
	assert.Equal(t, finest, system.X[0].Size())
	assert.Equal(t, array.Size2{X: 4, Y: 4}, system.A[2].Size())
	h := 1. / 16
	for level := range system.A {
		s, _ := poisson2(system.A[level].Size(), h, 0)
		system.A[level].CopyFrom(s.A)
		h *= 2
	}
	fine, exact := poisson2(finest, 1./16, 0)
	system.B[0].CopyFrom(fine.B)

	params.MaxTolerance = 1e-6
	params.MaxNumberOfCycles = 50
	solver := NewMG2(params)
	require.True(t, solver.SolveMG(system))
	assert.Less(t, maxError2(system.X[0], exact), 1e-5)
	assert.LessOrEqual(t, solver.LastNumberOfIterations(), 50)

	// a single level is plain SOR
	single, exact := poisson2(array.Size2{X: 6, Y: 6}, 1, 1)
	params.UseRedBlackOrdering = true
	require.True(t, NewMG2(params).Solve(single))
	assert.Less(t, maxError2(single.X, exact), 1e-6)
	assert.False(t, solver.SolveCompressed(Compress2(single)))

	system.Clear()
	assert.Equal(t, 0, system.NumberOfLevels())
}

func TestMG3(t *testing.T) {
	var (
		system = &MGLinearSystem3{}
		params = DefaultMGParameters(2)
	)
	system.ResizeWithFinest(array.Size3{X: 8, Y: 8, Z: 6}, 4)
	require.Equal(t, 2, system.NumberOfLevels())
	assert.Equal(t, array.Size3{X: 4, Y: 4, Z: 3}, system.X[1].Size())
	scale := 1.
	for level := range system.A {
		s, _ := poisson3(system.A[level].Size(), 0)
		array.ForEachIndex3(s.A.Size(), func(i, j, k int) {
			row := s.A.At(i, j, k)
			system.A[level].Set(i, j, k, MatrixRow3{
				Center: row.Center * scale, Right: row.Right * scale, Up: row.Up * scale, Front: row.Front * scale})
		})
		scale /= 4
	}
	fine, exact := poisson3(array.Size3{X: 8, Y: 8, Z: 6}, 0)
	system.B[0].CopyFrom(fine.B)
	params.MaxTolerance = 1e-7
	params.MaxNumberOfCycles = 50
	require.True(t, NewMG3(params).SolveMG(system))
	assert.Less(t, maxError3(system.X[0], exact), 1e-6)
}

func TestDifferences(t *testing.T) {
	var (
		h      = r2.Vec{X: 0.5, Y: 0.25}
		scalar = array.NewArray2[float64](6, 5)
		vector = array.NewArray2[r2.Vec](6, 5)
	)
	scalar.ForEachIndex(func(i, j int) {
		x, y := float64(i)*h.X, float64(j)*h.Y
		scalar.Set(i, j, 2*x+3*y)
		vector.Set(i, j, r2.Vec{X: x * x, Y: -y})
	})
	assert.InDelta(t, 2., Gradient2(scalar, h, 2, 2).X, 1e-12)
	assert.InDelta(t, 3., Gradient2(scalar, h, 2, 2).Y, 1e-12)
	// one sided at the edge is half the slope
	assert.InDelta(t, 1., Gradient2(scalar, h, 0, 2).X, 1e-12)
	assert.InDelta(t, 0., Laplacian2(scalar, h, 3, 2), 1e-10)

	g := VectorGradient2(vector, h, 2, 2)
	assert.InDelta(t, 2., g[0].X, 1e-12) // d(x^2)/dx at x=1
	assert.InDelta(t, -1., g[1].Y, 1e-12)
	lap := VectorLaplacian2(vector, h, 2, 2)
	assert.InDelta(t, 2., lap.X, 1e-10)
	assert.InDelta(t, 0., lap.Y, 1e-10)

	var (
		h3     = r3.Vec{X: 1, Y: 0.5, Z: 2}
		field3 = array.NewArray3[float64](5, 5, 5)
		vec3   = array.NewArray3[r3.Vec](5, 5, 5)
	)
	field3.ForEachIndex(func(i, j, k int) {
		x, y, z := float64(i)*h3.X, float64(j)*h3.Y, float64(k)*h3.Z
		field3.Set(i, j, k, x-y+0.5*z*z)
		vec3.Set(i, j, k, r3.Vec{X: y, Y: z, Z: x})
	})
	grad := Gradient3(field3, h3, 2, 2, 2)
	assert.InDelta(t, 1., grad.X, 1e-12)
	assert.InDelta(t, -1., grad.Y, 1e-12)
	assert.InDelta(t, 4., grad.Z, 1e-12)
	assert.InDelta(t, 1., Laplacian3(field3, h3, 2, 2, 2), 1e-10)
	vg := VectorGradient3(vec3, h3, 1, 1, 1)
	assert.InDelta(t, 1., vg[0].Y, 1e-12)
	assert.InDelta(t, 1., vg[1].Z, 1e-12)
	assert.InDelta(t, 1., vg[2].X, 1e-12)
	assert.Equal(t, r3.Vec{}, VectorLaplacian3(vec3, h3, 2, 2, 2))
}
