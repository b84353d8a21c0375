package particle

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/utils"
)

const (
	DefaultTargetDensity        = 1000. // water, kg/m^3
	DefaultTargetSpacing        = 0.1
	DefaultRelativeKernelRadius = 1.8
)

// SPHSystemData2 adds density and pressure layers and the SPH resolution
// parameters. kernelRadius is always relativeKernelRadius * targetSpacing and
// the particle mass is recomputed whenever either changes, so that a
// perfectly packed lattice reaches targetDensity.
type SPHSystemData2 struct {
	*SystemData2
	targetDensity        float64
	targetSpacing        float64
	relativeKernelRadius float64
	kernelRadius         float64
	densityIdx           int
	pressureIdx          int
}

func NewSPHSystemData2(numberOfParticles int) (s *SPHSystemData2) {
	s = &SPHSystemData2{
		SystemData2:          NewSystemData2(numberOfParticles),
		targetDensity:        DefaultTargetDensity,
		targetSpacing:        DefaultTargetSpacing,
		relativeKernelRadius: DefaultRelativeKernelRadius,
	}
	s.densityIdx = s.AddScalarData(0)
	s.pressureIdx = s.AddScalarData(0)
	s.SetTargetSpacing(s.targetSpacing)
	return
}

func (s *SPHSystemData2) Densities() []float64 { return s.ScalarDataAt(s.densityIdx) }
func (s *SPHSystemData2) Pressures() []float64 { return s.ScalarDataAt(s.pressureIdx) }

func (s *SPHSystemData2) TargetDensity() float64        { return s.targetDensity }
func (s *SPHSystemData2) TargetSpacing() float64        { return s.targetSpacing }
func (s *SPHSystemData2) RelativeKernelRadius() float64 { return s.relativeKernelRadius }
func (s *SPHSystemData2) KernelRadius() float64         { return s.kernelRadius }

// SetRadius is the same as SetTargetSpacing.
func (s *SPHSystemData2) SetRadius(r float64) { s.SetTargetSpacing(r) }

// SetMass scales the target density by the same ratio as the mass.
func (s *SPHSystemData2) SetMass(m float64) {
	if s.Mass() > 0 {
		s.targetDensity *= m / s.Mass()
	}
	s.SystemData2.SetMass(m)
}

func (s *SPHSystemData2) SetTargetDensity(d float64) {
	s.targetDensity = d
	s.computeMass()
}

func (s *SPHSystemData2) SetTargetSpacing(spacing float64) {
	s.SystemData2.SetRadius(spacing)
	s.targetSpacing = spacing
	s.kernelRadius = s.relativeKernelRadius * spacing
	s.computeMass()
}

func (s *SPHSystemData2) SetRelativeKernelRadius(rel float64) {
	s.relativeKernelRadius = rel
	s.kernelRadius = rel * s.targetSpacing
	s.computeMass()
}

func (s *SPHSystemData2) SetKernelRadius(h float64) {
	s.kernelRadius = h
	s.targetSpacing = h / s.relativeKernelRadius
	s.computeMass()
}

// computeMass sets the mass so that the densest point of a triangle lattice
// at targetSpacing has targetDensity.
func (s *SPHSystemData2) computeMass() {
	var (
		h      = s.kernelRadius
		bb     = geometry.NewBoundingBox2(r2.Vec{X: -1.5 * h, Y: -1.5 * h}, r2.Vec{X: 1.5 * h, Y: 1.5 * h})
		points = GeneratePoints2(TrianglePointGenerator{}, bb, s.targetSpacing)
		kernel = NewStdKernel2(h)
		maxND  float64
	)
	for _, p := range points {
		var sum float64
		for _, q := range points {
			sum += kernel.Value(r2.Norm(r2.Sub(p, q)))
		}
		maxND = max(maxND, sum)
	}
	if maxND > 0 {
		s.SystemData2.SetMass(s.targetDensity / maxND)
	}
}

// BuildNeighborSearcher and BuildNeighborLists use the kernel radius.
func (s *SPHSystemData2) BuildNeighborSearcher() { s.SystemData2.BuildNeighborSearcher(s.kernelRadius) }
func (s *SPHSystemData2) BuildNeighborLists()    { s.SystemData2.BuildNeighborLists(s.kernelRadius) }

func (s *SPHSystemData2) UpdateDensities() {
	var (
		p = s.Positions()
		d = s.Densities()
		m = s.Mass()
	)
	utils.ParallelFor(0, len(p), func(i int) {
		d[i] = m * s.SumOfKernelNearby(p[i])
	})
}

func (s *SPHSystemData2) SumOfKernelNearby(origin r2.Vec) (sum float64) {
	kernel := NewStdKernel2(s.kernelRadius)
	s.NeighborSearcher().ForEachNearbyPoint(origin, s.kernelRadius, func(_ int, p r2.Vec) {
		sum += kernel.Value(r2.Norm(r2.Sub(origin, p)))
	})
	return
}

// Interpolate is the SPH estimate sum_j m/rho_j W(|x-x_j|) values_j.
func (s *SPHSystemData2) Interpolate(origin r2.Vec, values []float64) (sum float64) {
	var (
		kernel = NewStdKernel2(s.kernelRadius)
		d      = s.Densities()
		m      = s.Mass()
	)
	s.NeighborSearcher().ForEachNearbyPoint(origin, s.kernelRadius, func(j int, p r2.Vec) {
		sum += m / d[j] * kernel.Value(r2.Norm(r2.Sub(origin, p))) * values[j]
	})
	return
}

func (s *SPHSystemData2) InterpolateVector(origin r2.Vec, values []r2.Vec) (sum r2.Vec) {
	var (
		kernel = NewStdKernel2(s.kernelRadius)
		d      = s.Densities()
		m      = s.Mass()
	)
	s.NeighborSearcher().ForEachNearbyPoint(origin, s.kernelRadius, func(j int, p r2.Vec) {
		w := m / d[j] * kernel.Value(r2.Norm(r2.Sub(origin, p)))
		sum = r2.Add(sum, r2.Scale(w, values[j]))
	})
	return
}

// GradientAt uses the symmetric pressure style estimator over the neighbor
// lists, which must be current.
func (s *SPHSystemData2) GradientAt(i int, values []float64) (sum r2.Vec) {
	var (
		p      = s.Positions()
		d      = s.Densities()
		m      = s.Mass()
		kernel = NewSpikyKernel2(s.kernelRadius)
	)
	for _, j := range s.NeighborLists()[i] {
		dist := r2.Norm(r2.Sub(p[j], p[i]))
		if dist > 0 {
			dir := r2.Scale(1/dist, r2.Sub(p[j], p[i]))
			c := d[i] * m * (values[i]/(d[i]*d[i]) + values[j]/(d[j]*d[j]))
			sum = r2.Add(sum, r2.Scale(c, kernel.Gradient(dist, dir)))
		}
	}
	return
}

func (s *SPHSystemData2) LaplacianAt(i int, values []float64) (sum float64) {
	var (
		p      = s.Positions()
		d      = s.Densities()
		m      = s.Mass()
		kernel = NewSpikyKernel2(s.kernelRadius)
	)
	for _, j := range s.NeighborLists()[i] {
		dist := r2.Norm(r2.Sub(p[j], p[i]))
		sum += m * (values[j] - values[i]) / d[j] * kernel.SecondDerivative(dist)
	}
	return
}

func (s *SPHSystemData2) VectorLaplacianAt(i int, values []r2.Vec) (sum r2.Vec) {
	var (
		p      = s.Positions()
		d      = s.Densities()
		m      = s.Mass()
		kernel = NewSpikyKernel2(s.kernelRadius)
	)
	for _, j := range s.NeighborLists()[i] {
		dist := r2.Norm(r2.Sub(p[j], p[i]))
		c := m / d[j] * kernel.SecondDerivative(dist)
		sum = r2.Add(sum, r2.Scale(c, r2.Sub(values[j], values[i])))
	}
	return
}

var tagSPH2 = [4]byte{'S', 'P', '2', 0}

type sphHeader struct {
	TargetDensity        float64
	TargetSpacing        float64
	RelativeKernelRadius float64
	KernelRadius         float64
	DensityIdx           int64
	PressureIdx          int64
}

func (s *SPHSystemData2) Serialize(w io.Writer) (err error) {
	hdr := sphHeader{
		TargetDensity:        s.targetDensity,
		TargetSpacing:        s.targetSpacing,
		RelativeKernelRadius: s.relativeKernelRadius,
		KernelRadius:         s.kernelRadius,
		DensityIdx:           int64(s.densityIdx),
		PressureIdx:          int64(s.pressureIdx),
	}
	if err = utils.WriteValue(w, tagSPH2); err == nil {
		if err = utils.WriteValue(w, hdr); err == nil {
			err = s.SystemData2.serialize(w, tagSystem2)
		}
	}
	if err != nil {
		return fmt.Errorf("serializing SPH system: %w", err)
	}
	return
}

// Deserialize restores the SPH parameters as stored; the mass is not
// recomputed.
func (s *SPHSystemData2) Deserialize(r io.Reader) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("deserializing SPH system: %w", err)
		}
	}()
	var (
		hdr sphHeader
		sys = &SystemData2{}
	)
	if err = expectTag(r, tagSPH2); err != nil {
		return
	}
	if err = utils.ReadValue(r, &hdr); err != nil {
		return
	}
	if err = sys.deserialize(r, tagSystem2); err != nil {
		return
	}
	ns := int64(sys.NumberOfScalarData())
	if hdr.DensityIdx < 0 || hdr.DensityIdx >= ns || hdr.PressureIdx < 0 || hdr.PressureIdx >= ns {
		return fmt.Errorf("density/pressure layer %d/%d of %d: %w", hdr.DensityIdx, hdr.PressureIdx, ns, ErrCorrupt)
	}
	*s = SPHSystemData2{
		SystemData2:          sys,
		targetDensity:        hdr.TargetDensity,
		targetSpacing:        hdr.TargetSpacing,
		relativeKernelRadius: hdr.RelativeKernelRadius,
		kernelRadius:         hdr.KernelRadius,
		densityIdx:           int(hdr.DensityIdx),
		pressureIdx:          int(hdr.PressureIdx),
	}
	return
}

func (s *SPHSystemData2) Clone() *SPHSystemData2 {
	out := *s
	out.SystemData2 = s.SystemData2.Clone()
	return &out
}
