package particle

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/utils"
)

// SPHSystemData3 computes its mass from a BCC lattice.
type SPHSystemData3 struct {
	*SystemData3
	targetDensity        float64
	targetSpacing        float64
	relativeKernelRadius float64
	kernelRadius         float64
	densityIdx           int
	pressureIdx          int
}

func NewSPHSystemData3(numberOfParticles int) (s *SPHSystemData3) {
	s = &SPHSystemData3{
		SystemData3:          NewSystemData3(numberOfParticles),
		targetDensity:        DefaultTargetDensity,
		targetSpacing:        DefaultTargetSpacing,
		relativeKernelRadius: DefaultRelativeKernelRadius,
	}
	s.densityIdx = s.AddScalarData(0)
	s.pressureIdx = s.AddScalarData(0)
	s.SetTargetSpacing(s.targetSpacing)
	return
}

func (s *SPHSystemData3) Densities() []float64 { return s.ScalarDataAt(s.densityIdx) }
func (s *SPHSystemData3) Pressures() []float64 { return s.ScalarDataAt(s.pressureIdx) }

func (s *SPHSystemData3) TargetDensity() float64        { return s.targetDensity }
func (s *SPHSystemData3) TargetSpacing() float64        { return s.targetSpacing }
func (s *SPHSystemData3) RelativeKernelRadius() float64 { return s.relativeKernelRadius }
func (s *SPHSystemData3) KernelRadius() float64         { return s.kernelRadius }

// SetRadius is the same as SetTargetSpacing.
func (s *SPHSystemData3) SetRadius(r float64) { s.SetTargetSpacing(r) }

func (s *SPHSystemData3) SetMass(m float64) {
	if s.Mass() > 0 {
		s.targetDensity *= m / s.Mass()
	}
	s.SystemData3.SetMass(m)
}

func (s *SPHSystemData3) SetTargetDensity(d float64) {
	s.targetDensity = d
	s.computeMass()
}

func (s *SPHSystemData3) SetTargetSpacing(spacing float64) {
	s.SystemData3.SetRadius(spacing)
	s.targetSpacing = spacing
	s.kernelRadius = s.relativeKernelRadius * spacing
	s.computeMass()
}

func (s *SPHSystemData3) SetRelativeKernelRadius(rel float64) {
	s.relativeKernelRadius = rel
	s.kernelRadius = rel * s.targetSpacing
	s.computeMass()
}

func (s *SPHSystemData3) SetKernelRadius(h float64) {
	s.kernelRadius = h
	s.targetSpacing = h / s.relativeKernelRadius
	s.computeMass()
}

func (s *SPHSystemData3) computeMass() {
	var (
		h      = s.kernelRadius
		bb     = geometry.NewBoundingBox3(r3.Vec{X: -1.5 * h, Y: -1.5 * h, Z: -1.5 * h}, r3.Vec{X: 1.5 * h, Y: 1.5 * h, Z: 1.5 * h})
		points = GeneratePoints3(BccLatticePointGenerator{}, bb, s.targetSpacing)
		kernel = NewStdKernel3(h)
		maxND  float64
	)
	for _, p := range points {
		var sum float64
		for _, q := range points {
			sum += kernel.Value(r3.Norm(r3.Sub(p, q)))
		}
		maxND = max(maxND, sum)
	}
	if maxND > 0 {
		s.SystemData3.SetMass(s.targetDensity / maxND)
	}
}

// BuildNeighborSearcher and BuildNeighborLists use the kernel radius.
func (s *SPHSystemData3) BuildNeighborSearcher() { s.SystemData3.BuildNeighborSearcher(s.kernelRadius) }
func (s *SPHSystemData3) BuildNeighborLists()    { s.SystemData3.BuildNeighborLists(s.kernelRadius) }

func (s *SPHSystemData3) UpdateDensities() {
	var (
		p = s.Positions()
		d = s.Densities()
		m = s.Mass()
	)
	utils.ParallelFor(0, len(p), func(i int) {
		d[i] = m * s.SumOfKernelNearby(p[i])
	})
}

func (s *SPHSystemData3) SumOfKernelNearby(origin r3.Vec) (sum float64) {
	kernel := NewStdKernel3(s.kernelRadius)
	s.NeighborSearcher().ForEachNearbyPoint(origin, s.kernelRadius, func(_ int, p r3.Vec) {
		sum += kernel.Value(r3.Norm(r3.Sub(origin, p)))
	})
	return
}

func (s *SPHSystemData3) Interpolate(origin r3.Vec, values []float64) (sum float64) {
	var (
		kernel = NewStdKernel3(s.kernelRadius)
		d      = s.Densities()
		m      = s.Mass()
	)
	s.NeighborSearcher().ForEachNearbyPoint(origin, s.kernelRadius, func(j int, p r3.Vec) {
		sum += m / d[j] * kernel.Value(r3.Norm(r3.Sub(origin, p))) * values[j]
	})
	return
}

func (s *SPHSystemData3) InterpolateVector(origin r3.Vec, values []r3.Vec) (sum r3.Vec) {
	var (
		kernel = NewStdKernel3(s.kernelRadius)
		d      = s.Densities()
		m      = s.Mass()
	)
	s.NeighborSearcher().ForEachNearbyPoint(origin, s.kernelRadius, func(j int, p r3.Vec) {
		w := m / d[j] * kernel.Value(r3.Norm(r3.Sub(origin, p)))
		sum = r3.Add(sum, r3.Scale(w, values[j]))
	})
	return
}

func (s *SPHSystemData3) GradientAt(i int, values []float64) (sum r3.Vec) {
	var (
		p      = s.Positions()
		d      = s.Densities()
		m      = s.Mass()
		kernel = NewSpikyKernel3(s.kernelRadius)
	)
	for _, j := range s.NeighborLists()[i] {
		dist := r3.Norm(r3.Sub(p[j], p[i]))
		if dist > 0 {
			dir := r3.Scale(1/dist, r3.Sub(p[j], p[i]))
			c := d[i] * m * (values[i]/(d[i]*d[i]) + values[j]/(d[j]*d[j]))
			sum = r3.Add(sum, r3.Scale(c, kernel.Gradient(dist, dir)))
		}
	}
	return
}

func (s *SPHSystemData3) LaplacianAt(i int, values []float64) (sum float64) {
	var (
		p      = s.Positions()
		d      = s.Densities()
		m      = s.Mass()
		kernel = NewSpikyKernel3(s.kernelRadius)
	)
	for _, j := range s.NeighborLists()[i] {
		dist := r3.Norm(r3.Sub(p[j], p[i]))
		sum += m * (values[j] - values[i]) / d[j] * kernel.SecondDerivative(dist)
	}
	return
}

func (s *SPHSystemData3) VectorLaplacianAt(i int, values []r3.Vec) (sum r3.Vec) {
	var (
		p      = s.Positions()
		d      = s.Densities()
		m      = s.Mass()
		kernel = NewSpikyKernel3(s.kernelRadius)
	)
	for _, j := range s.NeighborLists()[i] {
		dist := r3.Norm(r3.Sub(p[j], p[i]))
		c := m / d[j] * kernel.SecondDerivative(dist)
		sum = r3.Add(sum, r3.Scale(c, r3.Sub(values[j], values[i])))
	}
	return
}

var tagSPH3 = [4]byte{'S', 'P', '3', 0}

func (s *SPHSystemData3) Serialize(w io.Writer) (err error) {
	hdr := sphHeader{
		TargetDensity:        s.targetDensity,
		TargetSpacing:        s.targetSpacing,
		RelativeKernelRadius: s.relativeKernelRadius,
		KernelRadius:         s.kernelRadius,
		DensityIdx:           int64(s.densityIdx),
		PressureIdx:          int64(s.pressureIdx),
	}
	if err = utils.WriteValue(w, tagSPH3); err == nil {
		if err = utils.WriteValue(w, hdr); err == nil {
			err = s.SystemData3.serialize(w, tagSystem3)
		}
	}
	if err != nil {
		return fmt.Errorf("serializing SPH system: %w", err)
	}
	return
}

func (s *SPHSystemData3) Deserialize(r io.Reader) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("deserializing SPH system: %w", err)
		}
	}()
	var (
		hdr sphHeader
		sys = &SystemData3{}
	)
	if err = expectTag(r, tagSPH3); err != nil {
		return
	}
	if err = utils.ReadValue(r, &hdr); err != nil {
		return
	}
	if err = sys.deserialize(r, tagSystem3); err != nil {
		return
	}
	ns := int64(sys.NumberOfScalarData())
	if hdr.DensityIdx < 0 || hdr.DensityIdx >= ns || hdr.PressureIdx < 0 || hdr.PressureIdx >= ns {
		return fmt.Errorf("density/pressure layer %d/%d of %d: %w", hdr.DensityIdx, hdr.PressureIdx, ns, ErrCorrupt)
	}
	*s = SPHSystemData3{
		SystemData3:          sys,
		targetDensity:        hdr.TargetDensity,
		targetSpacing:        hdr.TargetSpacing,
		relativeKernelRadius: hdr.RelativeKernelRadius,
		kernelRadius:         hdr.KernelRadius,
		densityIdx:           int(hdr.DensityIdx),
		pressureIdx:          int(hdr.PressureIdx),
	}
	return
}

func (s *SPHSystemData3) Clone() *SPHSystemData3 {
	out := *s
	out.SystemData3 = s.SystemData3.Clone()
	return &out
}
