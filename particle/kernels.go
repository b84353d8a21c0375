package particle

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// StdKernel2 is the poly6 smoothing kernel (Müller et al. 2003) with
// compact support h.
type StdKernel2 struct {
	h, h2, h3, h4 float64
}

func NewStdKernel2(kernelRadius float64) StdKernel2 {
	h := kernelRadius
	return StdKernel2{h: h, h2: h * h, h3: h * h * h, h4: h * h * h * h}
}

func (k StdKernel2) Radius() float64 { return k.h }

func (k StdKernel2) Value(distance float64) float64 {
	d2 := distance * distance
	if d2 >= k.h2 {
		return 0
	}
	x := 1 - d2/k.h2
	return 4 / (math.Pi * k.h2) * x * x * x
}

func (k StdKernel2) FirstDerivative(distance float64) float64 {
	if distance >= k.h {
		return 0
	}
	x := 1 - distance*distance/k.h2
	return -24 * distance / (math.Pi * k.h4) * x * x
}

func (k StdKernel2) SecondDerivative(distance float64) float64 {
	d2 := distance * distance
	if d2 >= k.h2 {
		return 0
	}
	x := d2 / k.h2
	return 24 / (math.Pi * k.h4) * (1 - x) * (5*x - 1)
}

// Gradient points away from the kernel centre for a unit direction toward it.
func (k StdKernel2) Gradient(distance float64, directionToCenter r2.Vec) r2.Vec {
	return r2.Scale(-k.FirstDerivative(distance), directionToCenter)
}

func (k StdKernel2) GradientAt(p r2.Vec) r2.Vec {
	d := r2.Norm(p)
	if d > 0 {
		return k.Gradient(d, r2.Scale(1/d, p))
	}
	return r2.Vec{}
}

type StdKernel3 struct {
	h, h2, h3, h5 float64
}

func NewStdKernel3(kernelRadius float64) StdKernel3 {
	h := kernelRadius
	return StdKernel3{h: h, h2: h * h, h3: h * h * h, h5: h * h * h * h * h}
}

func (k StdKernel3) Radius() float64 { return k.h }

func (k StdKernel3) Value(distance float64) float64 {
	d2 := distance * distance
	if d2 >= k.h2 {
		return 0
	}
	x := 1 - d2/k.h2
	return 315 / (64 * math.Pi * k.h3) * x * x * x
}

func (k StdKernel3) FirstDerivative(distance float64) float64 {
	if distance >= k.h {
		return 0
	}
	x := 1 - distance*distance/k.h2
	return -945 / (32 * math.Pi * k.h5) * distance * x * x
}

func (k StdKernel3) SecondDerivative(distance float64) float64 {
	d2 := distance * distance
	if d2 >= k.h2 {
		return 0
	}
	x := d2 / k.h2
	return 945 / (32 * math.Pi * k.h5) * (1 - x) * (5*x - 1)
}

func (k StdKernel3) Gradient(distance float64, directionToCenter r3.Vec) r3.Vec {
	return r3.Scale(-k.FirstDerivative(distance), directionToCenter)
}

func (k StdKernel3) GradientAt(p r3.Vec) r3.Vec {
	d := r3.Norm(p)
	if d > 0 {
		return k.Gradient(d, r3.Scale(1/d, p))
	}
	return r3.Vec{}
}

// SpikyKernel2 keeps a non vanishing gradient near the centre, which the
// pressure and viscosity terms need.
type SpikyKernel2 struct {
	h, h2, h3, h4 float64
}

func NewSpikyKernel2(kernelRadius float64) SpikyKernel2 {
	h := kernelRadius
	return SpikyKernel2{h: h, h2: h * h, h3: h * h * h, h4: h * h * h * h}
}

func (k SpikyKernel2) Radius() float64 { return k.h }

func (k SpikyKernel2) Value(distance float64) float64 {
	if distance >= k.h {
		return 0
	}
	x := 1 - distance/k.h
	return 10 / (math.Pi * k.h2) * x * x * x
}

func (k SpikyKernel2) FirstDerivative(distance float64) float64 {
	if distance >= k.h {
		return 0
	}
	x := 1 - distance/k.h
	return -30 / (math.Pi * k.h3) * x * x
}

func (k SpikyKernel2) SecondDerivative(distance float64) float64 {
	if distance >= k.h {
		return 0
	}
	x := 1 - distance/k.h
	return 60 / (math.Pi * k.h4) * x
}

func (k SpikyKernel2) Gradient(distance float64, directionToCenter r2.Vec) r2.Vec {
	return r2.Scale(-k.FirstDerivative(distance), directionToCenter)
}

func (k SpikyKernel2) GradientAt(p r2.Vec) r2.Vec {
	d := r2.Norm(p)
	if d > 0 {
		return k.Gradient(d, r2.Scale(1/d, p))
	}
	return r2.Vec{}
}

type SpikyKernel3 struct {
	h, h2, h3, h4, h5 float64
}

func NewSpikyKernel3(kernelRadius float64) SpikyKernel3 {
	h := kernelRadius
	return SpikyKernel3{h: h, h2: h * h, h3: h * h * h, h4: h * h * h * h, h5: h * h * h * h * h}
}

func (k SpikyKernel3) Radius() float64 { return k.h }

func (k SpikyKernel3) Value(distance float64) float64 {
	if distance >= k.h {
		return 0
	}
	x := 1 - distance/k.h
	return 15 / (math.Pi * k.h3) * x * x * x
}

func (k SpikyKernel3) FirstDerivative(distance float64) float64 {
	if distance >= k.h {
		return 0
	}
	x := 1 - distance/k.h
	return -45 / (math.Pi * k.h4) * x * x
}

func (k SpikyKernel3) SecondDerivative(distance float64) float64 {
	if distance >= k.h {
		return 0
	}
	x := 1 - distance/k.h
	return 90 / (math.Pi * k.h5) * x
}

func (k SpikyKernel3) Gradient(distance float64, directionToCenter r3.Vec) r3.Vec {
	return r3.Scale(-k.FirstDerivative(distance), directionToCenter)
}

func (k SpikyKernel3) GradientAt(p r3.Vec) r3.Vec {
	d := r3.Norm(p)
	if d > 0 {
		return k.Gradient(d, r3.Scale(1/d, p))
	}
	return r3.Vec{}
}
