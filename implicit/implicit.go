// Package implicit turns point clouds into level set grids: negative inside
// the fluid the points sample, positive outside.
package implicit

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/grid"
	"github.com/notargets/gofluid/levelset"
	"github.com/notargets/gofluid/particle"
)

type PointsToImplicit2 interface {
	Convert(points []r2.Vec, output *grid.ScalarGrid2) error
}

type PointsToImplicit3 interface {
	Convert(points []r3.Vec, output *grid.ScalarGrid3) error
}

// usable2 reports whether output has cells to write; an empty grid is
// logged and skipped.
func usable2(output *grid.ScalarGrid2) bool {
	if output == nil || output.Resolution().Len() == 0 || output.BoundingBox().IsEmpty() {
		slog.Warn("points to implicit: empty output grid")
		return false
	}
	return true
}

func usable3(output *grid.ScalarGrid3) bool {
	if output == nil || output.Resolution().Len() == 0 || output.BoundingBox().IsEmpty() {
		slog.Warn("points to implicit: empty output grid")
		return false
	}
	return true
}

// finish2 redistances temp into output, or hands temp over unchanged.
func finish2(temp, output *grid.ScalarGrid2, isOutputSDF bool) error {
	if isOutputSDF {
		return levelset.FMMSolver2{}.Reinitialize(temp, math.MaxFloat64, output)
	}
	output.Swap(temp)
	return nil
}

func finish3(temp, output *grid.ScalarGrid3, isOutputSDF bool) error {
	if isOutputSDF {
		return levelset.FMMSolver3{}.Reinitialize(temp, math.MaxFloat64, output)
	}
	output.Swap(temp)
	return nil
}

// SphericalPointsToImplicit2 draws a disc of Radius around every point.
type SphericalPointsToImplicit2 struct {
	Radius      float64
	IsOutputSDF bool
}

func NewSphericalPointsToImplicit2(radius float64, isOutputSDF bool) *SphericalPointsToImplicit2 {
	return &SphericalPointsToImplicit2{Radius: radius, IsOutputSDF: isOutputSDF}
}

func (c *SphericalPointsToImplicit2) Convert(points []r2.Vec, output *grid.ScalarGrid2) (err error) {
	if !usable2(output) {
		return
	}
	var (
		band      = 2 * c.Radius
		particles = particle.NewSystemData2(0)
		temp      = output.Clone()
	)
	if err = particles.AddParticles(points, nil, nil); err != nil {
		return
	}
	particles.BuildNeighborSearcher(band)
	ns := particles.NeighborSearcher()
	temp.FillFunc(func(x r2.Vec) float64 {
		minDist := band
		ns.ForEachNearbyPoint(x, band, func(_ int, p r2.Vec) {
			minDist = math.Min(minDist, r2.Norm(r2.Sub(x, p)))
		})
		return minDist - c.Radius
	})
	return finish2(temp, output, c.IsOutputSDF)
}

type SphericalPointsToImplicit3 struct {
	Radius      float64
	IsOutputSDF bool
}

func NewSphericalPointsToImplicit3(radius float64, isOutputSDF bool) *SphericalPointsToImplicit3 {
	return &SphericalPointsToImplicit3{Radius: radius, IsOutputSDF: isOutputSDF}
}

func (c *SphericalPointsToImplicit3) Convert(points []r3.Vec, output *grid.ScalarGrid3) (err error) {
	if !usable3(output) {
		return
	}
	var (
		band      = 2 * c.Radius
		particles = particle.NewSystemData3(0)
		temp      = output.Clone()
	)
	if err = particles.AddParticles(points, nil, nil); err != nil {
		return
	}
	particles.BuildNeighborSearcher(band)
	ns := particles.NeighborSearcher()
	temp.FillFunc(func(x r3.Vec) float64 {
		minDist := band
		ns.ForEachNearbyPoint(x, band, func(_ int, p r3.Vec) {
			minDist = math.Min(minDist, r3.Norm(r3.Sub(x, p)))
		})
		return minDist - c.Radius
	})
	return finish3(temp, output, c.IsOutputSDF)
}

var (
	_ PointsToImplicit2 = &SphericalPointsToImplicit2{}
	_ PointsToImplicit3 = &SphericalPointsToImplicit3{}
	_ PointsToImplicit2 = &AnisotropicPointsToImplicit2{}
	_ PointsToImplicit3 = &AnisotropicPointsToImplicit3{}
)
