package gridsolver

import (
	"fmt"
	"log/slog"

	"github.com/notargets/gofluid/fdm"
	"github.com/notargets/gofluid/field"
	"github.com/notargets/gofluid/grid"
)

func sameCollocated2(a, b *grid.Grid2, da, db grid.DataOrigin) error {
	if !a.HasSameShape(b) || da != db {
		return fmt.Errorf("grid solver: %w", grid.ErrShapeMismatch)
	}
	return nil
}

func sameCollocated3(a, b *grid.Grid3, da, db grid.DataOrigin) error {
	if !a.HasSameShape(b) || da != db {
		return fmt.Errorf("grid solver: %w", grid.ErrShapeMismatch)
	}
	return nil
}

// defaultSDFs2 substitutes no boundary and fluid everywhere for nil fields.
func defaultSDFs2(boundarySDF, fluidSDF field.ScalarField2) (field.ScalarField2, field.ScalarField2) {
	if boundarySDF == nil {
		boundarySDF = field.NewCustomScalarField2(field.NoBoundary2)
	}
	if fluidSDF == nil {
		fluidSDF = field.NewCustomScalarField2(field.AllFluid2)
	}
	return boundarySDF, fluidSDF
}

func defaultSDFs3(boundarySDF, fluidSDF field.ScalarField3) (field.ScalarField3, field.ScalarField3) {
	if boundarySDF == nil {
		boundarySDF = field.NewCustomScalarField3(field.NoBoundary3)
	}
	if fluidSDF == nil {
		fluidSDF = field.NewCustomScalarField3(field.AllFluid3)
	}
	return boundarySDF, fluidSDF
}

// logSolve records a linear solve; a miss on the tolerance is not an error.
func logSolve(what string, stats fdm.Stats) {
	slog.Debug("linear solve",
		"solver", what,
		"iterations", stats.LastNumberOfIterations(),
		"residual", stats.LastResidual(),
		"converged", stats.LastResidual() <= stats.Tolerance())
}
