package particle

import (
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/searcher"
	"github.com/notargets/gofluid/utils"
)

type Emitter3 interface {
	Update(particles *SystemData3, currentTime, dt float64)
}

// VolumeEmitter3 is the 3D VolumeEmitter2, filling the surface with a BCC
// lattice by default.
type VolumeEmitter3 struct {
	Surface              geometry.Surface3
	MaxRegion            geometry.BoundingBox3
	Spacing              float64
	InitialVelocity      r3.Vec
	LinearVelocity       r3.Vec
	AngularVelocity      r3.Vec
	MaxNumberOfParticles int
	Jitter               float64
	IsOneShot            bool
	AllowOverlapping     bool
	Enabled              bool
	PointGenerator       PointGenerator3

	rng                      *rand.Rand
	numberOfEmittedParticles int
}

func NewVolumeEmitter3(surface geometry.Surface3, maxRegion geometry.BoundingBox3, spacing float64, seed int64) *VolumeEmitter3 {
	return &VolumeEmitter3{
		Surface:              surface,
		MaxRegion:            maxRegion,
		Spacing:              spacing,
		MaxNumberOfParticles: math.MaxInt,
		IsOneShot:            true,
		Enabled:              true,
		PointGenerator:       BccLatticePointGenerator{},
		rng:                  rand.New(rand.NewSource(seed)),
	}
}

func (e *VolumeEmitter3) NumberOfEmittedParticles() int { return e.numberOfEmittedParticles }

func (e *VolumeEmitter3) Update(particles *SystemData3, _, _ float64) {
	if particles == nil || !e.Enabled {
		return
	}
	positions, velocities := e.emit(particles)
	_ = particles.AddParticles(positions, velocities, nil)
	if e.IsOneShot {
		e.Enabled = false
	}
}

func (e *VolumeEmitter3) region() (bb geometry.BoundingBox3) {
	bb = e.MaxRegion
	sb := e.Surface.BoundingBox()
	if !sb.IsEmpty() {
		bb.Lower = r3.Vec{X: max(bb.Lower.X, sb.Lower.X), Y: max(bb.Lower.Y, sb.Lower.Y), Z: max(bb.Lower.Z, sb.Lower.Z)}
		bb.Upper = r3.Vec{X: min(bb.Upper.X, sb.Upper.X), Y: min(bb.Upper.Y, sb.Upper.Y), Z: min(bb.Upper.Z, sb.Upper.Z)}
	}
	return
}

// uniformSampleSphere maps two uniform numbers onto the unit sphere.
func uniformSampleSphere(u1, u2 float64) r3.Vec {
	var (
		y   = 1 - 2*u1
		r   = math.Sqrt(max(0, 1-y*y))
		phi = 2 * math.Pi * u2
	)
	return r3.Vec{X: r * math.Cos(phi), Y: y, Z: r * math.Sin(phi)}
}

// uniformSampleCone maps two uniform numbers onto the spherical cap of the
// given full opening angle around axis.
func uniformSampleCone(u1, u2 float64, axis r3.Vec, angle float64) r3.Vec {
	var (
		y      = 1 - (1-math.Cos(angle/2))*u1
		r      = math.Sqrt(max(0, 1-y*y))
		phi    = 2 * math.Pi * u2
		t0, t1 = tangentials(axis)
	)
	return r3.Add(r3.Add(r3.Scale(r*math.Cos(phi), t0), r3.Scale(y, axis)), r3.Scale(r*math.Sin(phi), t1))
}

// tangentials returns two unit vectors orthogonal to the unit vector a and
// to each other.
func tangentials(a r3.Vec) (t0, t1 r3.Vec) {
	ref := r3.Vec{X: 1}
	if math.Abs(a.X) > 0.9 {
		ref = r3.Vec{Y: 1}
	}
	t0 = geometry.Normalize3(r3.Cross(ref, a))
	t1 = r3.Cross(a, t0)
	return
}

func (e *VolumeEmitter3) emit(particles *SystemData3) (positions, velocities []r3.Vec) {
	if e.Surface == nil {
		return
	}
	e.Surface.UpdateQueryEngine()
	var (
		gen           = e.PointGenerator
		numNew        int
		neighbors     *searcher.HashGrid3
		checkSpace    = !e.AllowOverlapping && !e.IsOneShot
		maxJitterDist = 0.5 * array.Clamp(e.Jitter, 0, 1) * e.Spacing
	)
	if gen == nil {
		gen = BccLatticePointGenerator{}
	}
	if checkSpace {
		neighbors = searcher.NewHashGrid3(searcher.DefaultHashGridResolution3, 2*e.Spacing)
		neighbors.Build(particles.Positions(), 0)
	}
	gen.ForEachPoint(e.region(), e.Spacing, func(p r3.Vec) bool {
		dir := uniformSampleSphere(e.rng.Float64(), e.rng.Float64())
		candidate := r3.Add(p, r3.Scale(maxJitterDist, dir))
		if e.Surface.SignedDistance(candidate) > 0 {
			return true
		}
		if checkSpace && neighbors.HasNearbyPoint(candidate, 0.5*e.Spacing) {
			return true
		}
		if e.numberOfEmittedParticles >= e.MaxNumberOfParticles {
			return false
		}
		positions = append(positions, candidate)
		if checkSpace {
			neighbors.Add(candidate)
		}
		e.numberOfEmittedParticles++
		numNew++
		return true
	})
	slog.Debug("volume emitter", "new", numNew, "total", e.numberOfEmittedParticles)
	velocities = make([]r3.Vec, len(positions))
	center := e.Surface.BoundingBox().MidPoint()
	utils.ParallelFor(0, len(positions), func(i int) {
		velocities[i] = e.velocityAt(positions[i], center)
	})
	return
}

func (e *VolumeEmitter3) velocityAt(p, center r3.Vec) (v r3.Vec) {
	v = r3.Add(e.LinearVelocity, e.InitialVelocity)
	if e.AngularVelocity != (r3.Vec{}) {
		v = r3.Add(v, r3.Cross(e.AngularVelocity, r3.Sub(p, center)))
	}
	return
}

type PointEmitter3 struct {
	Origin                           r3.Vec
	Direction                        r3.Vec
	Speed                            float64
	SpreadAngleInDegrees             float64
	MaxNumberOfNewParticlesPerSecond int
	MaxNumberOfParticles             int

	rng                      *rand.Rand
	firstFrameTime           float64
	numberOfEmittedParticles int
}

func NewPointEmitter3(origin, direction r3.Vec, speed, spreadAngleInDegrees float64, seed int64) *PointEmitter3 {
	return &PointEmitter3{
		Origin:                           origin,
		Direction:                        geometry.Normalize3(direction),
		Speed:                            speed,
		SpreadAngleInDegrees:             spreadAngleInDegrees,
		MaxNumberOfNewParticlesPerSecond: 1,
		MaxNumberOfParticles:             math.MaxInt,
		rng:                              rand.New(rand.NewSource(seed)),
	}
}

func (e *PointEmitter3) NumberOfEmittedParticles() int { return e.numberOfEmittedParticles }

func (e *PointEmitter3) Update(particles *SystemData3, currentTime, dt float64) {
	if particles == nil {
		return
	}
	if e.numberOfEmittedParticles == 0 {
		e.firstFrameTime = currentTime
	}
	elapsed := currentTime - e.firstFrameTime
	maxTotal := min(int(math.Ceil((elapsed+dt)*float64(e.MaxNumberOfNewParticlesPerSecond))), e.MaxNumberOfParticles)
	n := maxTotal - e.numberOfEmittedParticles
	if n <= 0 {
		return
	}
	var (
		positions  = make([]r3.Vec, n)
		velocities = make([]r3.Vec, n)
		spread     = e.SpreadAngleInDegrees * math.Pi / 180
	)
	for i := range positions {
		dir := uniformSampleCone(e.rng.Float64(), e.rng.Float64(), e.Direction, spread)
		positions[i] = e.Origin
		velocities[i] = r3.Scale(e.Speed, dir)
	}
	_ = particles.AddParticles(positions, velocities, nil)
	e.numberOfEmittedParticles += n
}

var (
	_ Emitter3 = (*VolumeEmitter3)(nil)
	_ Emitter3 = (*PointEmitter3)(nil)
)
