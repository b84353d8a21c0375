package gridsolver

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/field"
	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/grid"
	"github.com/notargets/gofluid/levelset"
)

// Direction flags name the faces of the simulation box that are closed
// walls.
type Direction uint8

const (
	DirectionLeft Direction = 1 << iota
	DirectionRight
	DirectionDown
	DirectionUp
	DirectionBack
	DirectionFront

	DirectionNone Direction = 0
	DirectionAll            = DirectionLeft | DirectionRight | DirectionDown | DirectionUp | DirectionBack | DirectionFront
)

// BoundaryConditionSolver2 keeps a face centered velocity consistent with a
// collider and the closed walls of the domain.
type BoundaryConditionSolver2 interface {
	// UpdateCollider resamples the collider onto a grid of the given shape.
	UpdateCollider(collider *geometry.Collider2, gridSize array.Size2, gridSpacing, gridOrigin r2.Vec)
	// ConstrainVelocity overwrites velocity inside the collider and on closed
	// walls, extending the fluid velocity extrapolationDepth cells into the
	// collider first.
	ConstrainVelocity(velocity *grid.FaceCenteredGrid2, extrapolationDepth int)
	ColliderSDF() field.ScalarField2
	ColliderVelocityField() field.VectorField2
	ClosedDomainBoundaryFlag() Direction
	SetClosedDomainBoundaryFlag(flag Direction)
}

// FractionalBoundaryConditionSolver2 treats a face as open when any part of
// it lies outside the collider, and projects the velocity sampled inside
// the collider onto the collider's tangent plane with friction.
type FractionalBoundaryConditionSolver2 struct {
	collider     *geometry.Collider2
	closedDomain Direction
	colliderSDF  *grid.ScalarGrid2
	colliderVel  field.VectorField2
}

func NewFractionalBoundaryConditionSolver2() *FractionalBoundaryConditionSolver2 {
	return &FractionalBoundaryConditionSolver2{closedDomain: DirectionAll}
}

func (s *FractionalBoundaryConditionSolver2) ClosedDomainBoundaryFlag() Direction { return s.closedDomain }

func (s *FractionalBoundaryConditionSolver2) SetClosedDomainBoundaryFlag(flag Direction) {
	s.closedDomain = flag
}

func (s *FractionalBoundaryConditionSolver2) Collider() *geometry.Collider2 { return s.collider }

func (s *FractionalBoundaryConditionSolver2) ColliderSDF() field.ScalarField2 {
	if s.colliderSDF == nil {
		return field.NewCustomScalarField2(field.NoBoundary2)
	}
	return s.colliderSDF
}

func (s *FractionalBoundaryConditionSolver2) ColliderVelocityField() field.VectorField2 {
	if s.colliderVel == nil {
		return field.ConstantVectorField2{}
	}
	return s.colliderVel
}

// colliderVelocityAt is zero without a collider.
func (s *FractionalBoundaryConditionSolver2) colliderVelocityAt(x r2.Vec) r2.Vec {
	if s.collider == nil || s.collider.Surface == nil {
		return r2.Vec{}
	}
	return s.collider.VelocityAt(x)
}

func (s *FractionalBoundaryConditionSolver2) friction() float64 {
	if s.collider == nil {
		return 0
	}
	return s.collider.FrictionCoefficient
}

func (s *FractionalBoundaryConditionSolver2) UpdateCollider(collider *geometry.Collider2, gridSize array.Size2,
	gridSpacing, gridOrigin r2.Vec) {
	s.collider = collider
	if s.colliderSDF == nil {
		s.colliderSDF = grid.NewCellCenteredScalarGrid2(gridSize, gridSpacing, gridOrigin)
	} else {
		s.colliderSDF.Resize(gridSize, gridSpacing, gridOrigin, 0)
	}
	if collider == nil || collider.Surface == nil {
		s.colliderSDF.Fill(math.MaxFloat64)
		s.colliderVel = field.ConstantVectorField2{}
		return
	}
	s.colliderSDF.FillFunc(collider.Surface.SignedDistance)
	vel := field.NewCustomVectorField2(collider.VelocityAt)
	vel.Resolution = gridSpacing.X
	s.colliderVel = vel
}

func (s *FractionalBoundaryConditionSolver2) ensureCollider(velocity *grid.FaceCenteredGrid2) {
	if s.colliderSDF == nil || !s.colliderSDF.HasSameShape(&velocity.Grid2) {
		s.UpdateCollider(s.collider, velocity.Resolution(), velocity.GridSpacing(), velocity.Origin())
	}
}

func (s *FractionalBoundaryConditionSolver2) ConstrainVelocity(velocity *grid.FaceCenteredGrid2,
	extrapolationDepth int) {
	s.ensureCollider(velocity)
	var (
		h         = velocity.GridSpacing()
		positions = [2]func(i, j int) r2.Vec{velocity.UPosition(), velocity.VPosition()}
		halfStep  = [2]r2.Vec{{X: 0.5 * h.X}, {Y: 0.5 * h.Y}}
		temps     [2]*array.Array2[float64]
	)
	// faces fully inside the collider take the collider velocity; the rest
	// seed the extrapolation
	for axis := 0; axis < 2; axis++ {
		var (
			data, _, _ = velocity.Component(axis)
			pos        = positions[axis]
			size       = data.Size()
			valid      = array.NewArray2[bool](size.X, size.Y)
		)
		data.ParallelForEachIndex(func(i, j int) {
			var (
				pt   = pos(i, j)
				phi0 = s.colliderSDF.Sample(r2.Sub(pt, halfStep[axis]))
				phi1 = s.colliderSDF.Sample(r2.Add(pt, halfStep[axis]))
				open = 1 - array.Clamp(levelset.FractionInsideSDF(phi0, phi1), 0, 1)
			)
			if open > 0 {
				valid.Set(i, j, true)
				return
			}
			data.Set(i, j, geometry.Component2(s.colliderVelocityAt(pt), axis))
		})
		array.ExtrapolateToRegion2(array.Float64Ops, data, valid, extrapolationDepth, data)
	}
	// free slip with friction relative to the collider
	for axis := 0; axis < 2; axis++ {
		var (
			data, _, _ = velocity.Component(axis)
			pos        = positions[axis]
			size       = data.Size()
			temp       = array.NewArray2[float64](size.X, size.Y)
		)
		temp.ParallelForEachIndex(func(i, j int) {
			pt := pos(i, j)
			if !levelset.IsInsideSDF(s.colliderSDF.Sample(pt)) {
				temp.Set(i, j, data.At(i, j))
				return
			}
			var (
				colliderVel = s.colliderVelocityAt(pt)
				g           = s.colliderSDF.Gradient(pt)
			)
			if r2.Norm2(g) > 0 {
				var (
					n    = r2.Unit(g)
					velr = r2.Sub(velocity.Sample(pt), colliderVel)
					velt = geometry.ProjectAndApplyFriction2(velr, n, s.friction())
				)
				temp.Set(i, j, geometry.Component2(r2.Add(velt, colliderVel), axis))
			} else {
				temp.Set(i, j, geometry.Component2(colliderVel, axis))
			}
		})
		temps[axis] = temp
	}
	velocity.U().CopyFrom(temps[0])
	velocity.V().CopyFrom(temps[1])
	s.closeDomain(velocity)
}

func (s *FractionalBoundaryConditionSolver2) closeDomain(velocity *grid.FaceCenteredGrid2) {
	var (
		u, v   = velocity.U(), velocity.V()
		us, vs = u.Size(), v.Size()
	)
	for j := 0; j < us.Y; j++ {
		if s.closedDomain&DirectionLeft != 0 {
			u.Set(0, j, 0)
		}
		if s.closedDomain&DirectionRight != 0 {
			u.Set(us.X-1, j, 0)
		}
	}
	for i := 0; i < vs.X; i++ {
		if s.closedDomain&DirectionDown != 0 {
			v.Set(i, 0, 0)
		}
		if s.closedDomain&DirectionUp != 0 {
			v.Set(i, vs.Y-1, 0)
		}
	}
}

// BlockedBoundaryConditionSolver2 additionally treats every cell whose
// center is inside the collider as solid, pinning the faces it shares with
// fluid cells to the collider velocity.
type BlockedBoundaryConditionSolver2 struct {
	FractionalBoundaryConditionSolver2
	markers *array.Array2[Marker]
}

func NewBlockedBoundaryConditionSolver2() *BlockedBoundaryConditionSolver2 {
	return &BlockedBoundaryConditionSolver2{
		FractionalBoundaryConditionSolver2: FractionalBoundaryConditionSolver2{closedDomain: DirectionAll},
	}
}

func (s *BlockedBoundaryConditionSolver2) UpdateCollider(collider *geometry.Collider2, gridSize array.Size2,
	gridSpacing, gridOrigin r2.Vec) {
	s.FractionalBoundaryConditionSolver2.UpdateCollider(collider, gridSize, gridSpacing, gridOrigin)
	s.markers = array.NewArray2[Marker](gridSize.X, gridSize.Y)
	s.markers.ParallelForEachIndex(func(i, j int) {
		if levelset.IsInsideSDF(s.colliderSDF.At(i, j)) {
			s.markers.Set(i, j, Boundary)
		} else {
			s.markers.Set(i, j, Fluid)
		}
	})
}

func (s *BlockedBoundaryConditionSolver2) ConstrainVelocity(velocity *grid.FaceCenteredGrid2,
	extrapolationDepth int) {
	if s.colliderSDF == nil || !s.colliderSDF.HasSameShape(&velocity.Grid2) {
		s.UpdateCollider(s.collider, velocity.Resolution(), velocity.GridSpacing(), velocity.Origin())
	}
	s.FractionalBoundaryConditionSolver2.ConstrainVelocity(velocity, extrapolationDepth)
	var (
		size       = velocity.Resolution()
		u, v       = velocity.U(), velocity.V()
		uPos, vPos = velocity.UPosition(), velocity.VPosition()
	)
	s.markers.ForEachIndex(func(i, j int) {
		if s.markers.At(i, j) != Boundary {
			return
		}
		if i > 0 && s.markers.At(i-1, j) == Fluid {
			u.Set(i, j, s.colliderVelocityAt(uPos(i, j)).X)
		}
		if i+1 < size.X && s.markers.At(i+1, j) == Fluid {
			u.Set(i+1, j, s.colliderVelocityAt(uPos(i+1, j)).X)
		}
		if j > 0 && s.markers.At(i, j-1) == Fluid {
			v.Set(i, j, s.colliderVelocityAt(vPos(i, j)).Y)
		}
		if j+1 < size.Y && s.markers.At(i, j+1) == Fluid {
			v.Set(i, j+1, s.colliderVelocityAt(vPos(i, j+1)).Y)
		}
	})
}

var (
	_ BoundaryConditionSolver2 = &FractionalBoundaryConditionSolver2{}
	_ BoundaryConditionSolver2 = &BlockedBoundaryConditionSolver2{}
)
