//go:build cgo && netlib

package utils

/*
#cgo CFLAGS: -march=native -mavx -mavx2
#cgo LDFLAGS: -lopenblas -llapacke -lgfortran -lm -lpthread
#include <cblas.h>
#include <lapacke.h>
*/
import "C"

import (
	"log/slog"

	"gonum.org/v1/gonum/blas/blas64"
	netblas "gonum.org/v1/netlib/blas/netlib"
)

// Building with -tags netlib routes gonum's dense linear algebra, including
// the covariance SVDs of the anisotropic surface reconstruction, through
// OpenBLAS.
func init() {
	blas64.Use(netblas.Implementation{})
	slog.Debug("using netlib to accelerate BLAS")
}
