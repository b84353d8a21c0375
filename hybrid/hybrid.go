// Package hybrid carries fluid particles through a staggered grid solver:
// each sub step scatters particle velocities onto the grid, lets the grid
// solver apply forces and pressure, and gathers the result back before the
// particles move.
package hybrid

import (
	"math"

	"github.com/notargets/gofluid/grid"
	"github.com/notargets/gofluid/particle"
	"github.com/notargets/gofluid/utils"
)

var (
	ErrGridType       = grid.ErrGridType
	ErrLengthMismatch = particle.ErrLengthMismatch
)

// Kind names a transfer scheme.
type Kind string

const (
	KindPIC  Kind = "pic"
	KindFLIP Kind = "flip"
	KindAPIC Kind = "apic"
)

func parallelFor(n int, fn func(i int)) {
	utils.ParallelFor(0, n, fn)
}

func clamp(x, lo, hi float64) float64 { return math.Max(lo, math.Min(x, hi)) }

// sdfRadius is the radius of the disc drawn around each particle when the
// fluid surface is rebuilt from the particles.
func sdfRadius(maxH, dimension float64) float64 { return 1.2 * maxH / math.Sqrt(dimension) }
