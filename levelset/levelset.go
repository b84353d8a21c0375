// Package levelset holds signed distance helpers and the fast marching
// solver used to redistance level sets and extend fields off an interface.
// Every function here treats a negative value as inside.
package levelset

import (
	"math"
)

func IsInsideSDF(phi float64) bool { return phi < 0 }

// SmearedHeavisideSDF ramps from 0 to 1 across |phi| < 1.5.
func SmearedHeavisideSDF(phi float64) float64 {
	switch {
	case phi > 1.5:
		return 1
	case phi < -1.5:
		return 0
	}
	return 0.5 + phi/3 + 0.5/math.Pi*math.Sin(math.Pi*phi/1.5)
}

// SmearedDeltaSDF is the derivative of SmearedHeavisideSDF.
func SmearedDeltaSDF(phi float64) float64 {
	if math.Abs(phi) > 1.5 {
		return 0
	}
	return 1./3 + 1./3*math.Cos(math.Pi*phi/1.5)
}

// FractionInsideSDF is the fraction of the segment between two samples that
// lies inside, assuming phi varies linearly along it.
func FractionInsideSDF(phi0, phi1 float64) float64 {
	switch in0, in1 := IsInsideSDF(phi0), IsInsideSDF(phi1); {
	case in0 && in1:
		return 1
	case in0:
		return phi0 / (phi0 - phi1)
	case in1:
		return phi1 / (phi1 - phi0)
	}
	return 0
}

// DistanceToZeroLevelSet is the fraction of the way from phi0 to phi1 at
// which the linear interpolant crosses zero.
func DistanceToZeroLevelSet(phi0, phi1 float64) float64 {
	if d := math.Abs(phi0) + math.Abs(phi1); d > 1e-15 {
		return math.Abs(phi0) / d
	}
	return 0.5
}

// FractionInside is the area fraction of a unit square that is inside, given
// phi at its four corners.
func FractionInside(phiBottomLeft, phiBottomRight, phiTopLeft, phiTopRight float64) float64 {
	var (
		count int
		// counter clockwise from the bottom left
		c = [4]float64{phiBottomLeft, phiBottomRight, phiTopRight, phiTopLeft}
	)
	for _, phi := range c {
		if IsInsideSDF(phi) {
			count++
		}
	}
	rotate := func() { c = [4]float64{c[1], c[2], c[3], c[0]} }
	switch count {
	case 4:
		return 1
	case 3:
		for IsInsideSDF(c[0]) {
			rotate()
		}
		side0 := 1 - FractionInsideSDF(c[0], c[3])
		side1 := 1 - FractionInsideSDF(c[0], c[1])
		return 1 - 0.5*side0*side1
	case 2:
		for !IsInsideSDF(c[0]) || !(IsInsideSDF(c[1]) || IsInsideSDF(c[2])) {
			rotate()
		}
		if IsInsideSDF(c[1]) {
			return 0.5 * (FractionInsideSDF(c[0], c[3]) + FractionInsideSDF(c[1], c[2]))
		}
		// diagonal corners agree; the centre decides which pair is connected
		if 0.25*(c[0]+c[1]+c[2]+c[3]) < 0 {
			area := 0.5 * (1 - FractionInsideSDF(c[0], c[3])) * (1 - FractionInsideSDF(c[2], c[3]))
			area += 0.5 * (1 - FractionInsideSDF(c[2], c[1])) * (1 - FractionInsideSDF(c[0], c[1]))
			return 1 - area
		}
		area := 0.5 * FractionInsideSDF(c[0], c[1]) * FractionInsideSDF(c[0], c[3])
		area += 0.5 * FractionInsideSDF(c[2], c[1]) * FractionInsideSDF(c[2], c[3])
		return area
	case 1:
		for !IsInsideSDF(c[0]) {
			rotate()
		}
		return 0.5 * FractionInsideSDF(c[0], c[3]) * FractionInsideSDF(c[0], c[1])
	}
	return 0
}
