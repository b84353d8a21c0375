package particle

import (
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/searcher"
	"github.com/notargets/gofluid/utils"
)

// Emitter2 injects particles into a system once per time step.
type Emitter2 interface {
	Update(particles *SystemData2, currentTime, dt float64)
}

// VolumeEmitter2 fills the inside of a surface with lattice points. A one
// shot emitter disables itself after its first update; a continuous one skips
// candidates within half of Spacing of an existing particle unless
// AllowOverlapping is set.
type VolumeEmitter2 struct {
	Surface              geometry.Surface2
	MaxRegion            geometry.BoundingBox2
	Spacing              float64
	InitialVelocity      r2.Vec
	LinearVelocity       r2.Vec
	AngularVelocity      float64
	MaxNumberOfParticles int
	Jitter               float64 // fraction of Spacing, 0..1
	IsOneShot            bool
	AllowOverlapping     bool
	Enabled              bool
	PointGenerator       PointGenerator2

	rng                      *rand.Rand
	numberOfEmittedParticles int
}

func NewVolumeEmitter2(surface geometry.Surface2, maxRegion geometry.BoundingBox2, spacing float64, seed int64) *VolumeEmitter2 {
	return &VolumeEmitter2{
		Surface:              surface,
		MaxRegion:            maxRegion,
		Spacing:              spacing,
		MaxNumberOfParticles: math.MaxInt,
		IsOneShot:            true,
		Enabled:              true,
		PointGenerator:       TrianglePointGenerator{},
		rng:                  rand.New(rand.NewSource(seed)),
	}
}

func (e *VolumeEmitter2) NumberOfEmittedParticles() int { return e.numberOfEmittedParticles }

func (e *VolumeEmitter2) Update(particles *SystemData2, _, _ float64) {
	if particles == nil || !e.Enabled {
		return
	}
	positions, velocities := e.emit(particles)
	_ = particles.AddParticles(positions, velocities, nil)
	if e.IsOneShot {
		e.Enabled = false
	}
}

func (e *VolumeEmitter2) region() (bb geometry.BoundingBox2) {
	bb = e.MaxRegion
	sb := e.Surface.BoundingBox()
	if !sb.IsEmpty() {
		bb.Lower = r2.Vec{X: max(bb.Lower.X, sb.Lower.X), Y: max(bb.Lower.Y, sb.Lower.Y)}
		bb.Upper = r2.Vec{X: min(bb.Upper.X, sb.Upper.X), Y: min(bb.Upper.Y, sb.Upper.Y)}
	}
	return
}

func (e *VolumeEmitter2) jittered(p r2.Vec) r2.Vec {
	var (
		maxJitterDist = 0.5 * array.Clamp(e.Jitter, 0, 1) * e.Spacing
		angle         = (e.rng.Float64() - 0.5) * 2 * math.Pi
	)
	return r2.Add(p, r2.Scale(maxJitterDist, r2.Vec{X: math.Cos(angle), Y: math.Sin(angle)}))
}

func (e *VolumeEmitter2) emit(particles *SystemData2) (positions, velocities []r2.Vec) {
	if e.Surface == nil {
		return
	}
	e.Surface.UpdateQueryEngine()
	var (
		gen        = e.PointGenerator
		numNew     int
		neighbors  *searcher.HashGrid2
		checkSpace = !e.AllowOverlapping && !e.IsOneShot
	)
	if gen == nil {
		gen = TrianglePointGenerator{}
	}
	if checkSpace {
		neighbors = searcher.NewHashGrid2(searcher.DefaultHashGridResolution2, 2*e.Spacing)
		neighbors.Build(particles.Positions(), 0)
	}
	gen.ForEachPoint(e.region(), e.Spacing, func(p r2.Vec) bool {
		candidate := e.jittered(p)
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
	velocities = make([]r2.Vec, len(positions))
	center := e.Surface.BoundingBox().MidPoint()
	utils.ParallelFor(0, len(positions), func(i int) {
		velocities[i] = e.velocityAt(positions[i], center)
	})
	return
}

// velocityAt is the initial plus rigid body velocity, rotating about the
// centre of the surface bounds.
func (e *VolumeEmitter2) velocityAt(p, center r2.Vec) (v r2.Vec) {
	v = r2.Add(e.LinearVelocity, e.InitialVelocity)
	if e.AngularVelocity != 0 {
		r := r2.Sub(p, center)
		v = r2.Add(v, r2.Scale(e.AngularVelocity, r2.Vec{X: -r.Y, Y: r.X}))
	}
	return
}

// PointEmitter2 sprays particles from one point at a bounded rate, with
// directions spread uniformly over SpreadAngleInDegrees around Direction.
type PointEmitter2 struct {
	Origin                           r2.Vec
	Direction                        r2.Vec
	Speed                            float64
	SpreadAngleInDegrees             float64
	MaxNumberOfNewParticlesPerSecond int
	MaxNumberOfParticles             int

	rng                      *rand.Rand
	firstFrameTime           float64
	numberOfEmittedParticles int
}

func NewPointEmitter2(origin, direction r2.Vec, speed, spreadAngleInDegrees float64, seed int64) *PointEmitter2 {
	return &PointEmitter2{
		Origin:                           origin,
		Direction:                        geometry.Normalize2(direction),
		Speed:                            speed,
		SpreadAngleInDegrees:             spreadAngleInDegrees,
		MaxNumberOfNewParticlesPerSecond: 1,
		MaxNumberOfParticles:             math.MaxInt,
		rng:                              rand.New(rand.NewSource(seed)),
	}
}

func (e *PointEmitter2) NumberOfEmittedParticles() int { return e.numberOfEmittedParticles }

func (e *PointEmitter2) Update(particles *SystemData2, currentTime, dt float64) {
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
		positions  = make([]r2.Vec, n)
		velocities = make([]r2.Vec, n)
		spread     = e.SpreadAngleInDegrees * math.Pi / 180
	)
	for i := range positions {
		angle := (e.rng.Float64() - 0.5) * spread
		s, c := math.Sincos(angle)
		d := e.Direction
		positions[i] = e.Origin
		velocities[i] = r2.Scale(e.Speed, r2.Vec{X: c*d.X - s*d.Y, Y: s*d.X + c*d.Y})
	}
	_ = particles.AddParticles(positions, velocities, nil)
	e.numberOfEmittedParticles += n
}

var (
	_ Emitter2 = (*VolumeEmitter2)(nil)
	_ Emitter2 = (*PointEmitter2)(nil)
)
