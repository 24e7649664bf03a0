// Package gjk implements the Gilbert–Johnson–Keerthi distance algorithm
// and the Voronoi-simplex state machine backing it.
//
// GJK answers whether the Minkowski difference (CSO) of two convex shapes
// contains the origin, and when it does not, finds the exact or
// approximate separation and witness points. Unlike a boolean-only GJK
// overlap test, this driver exposes the full distance/TOI API the
// proximity core needs: closest_points, project_origin, cast_local_ray
// and directional_distance.
package gjk

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/kestrelphys/proximity/shape"
)

// CSOPoint is the triple (p, p1, p2): p lies in the Configuration Space
// Obstacle, p1/p2 are the witnesses on each shape's local frame that
// produced it.
type CSOPoint struct {
	Point mgl64.Vec3
	Orig1 mgl64.Vec3
	Orig2 mgl64.Vec3
}

// FromShapes queries g1 and g2's support mappings along dir (g1 directly,
// g2 along the direction lifted into its own frame and negated) and
// packages the resulting CSO point, guaranteeing Point =
// argmax_{x in CSO} x·dir.
func FromShapes(pos12 shape.Isometry, g1, g2 shape.SupportMap, dir mgl64.Vec3) CSOPoint {
	p1 := g1.LocalSupportPoint(dir)
	localDirOnG2 := pos12.InverseApplyVector(dir.Mul(-1))
	p2 := g2.LocalSupportPoint(localDirOnG2)
	p2InG1 := pos12.Apply(p2)
	return CSOPoint{Point: p1.Sub(p2InG1), Orig1: p1, Orig2: p2}
}

// SinglePoint builds a CSOPoint carrying only a CSO coordinate, used when
// the ray-cast's "last chance" fallback treats a projection as a valid
// support point without a fresh support query.
func SinglePoint(p mgl64.Vec3) CSOPoint {
	return CSOPoint{Point: p}
}

// Sub returns the CSO-space vector from other to c.
func (c CSOPoint) Sub(other CSOPoint) mgl64.Vec3 {
	return c.Point.Sub(other.Point)
}

// Translate shifts a CSOPoint's CSO coordinate, leaving the per-shape
// witnesses untouched (used by the ray-cast when the ray origin moves).
func (c CSOPoint) Translate(shift mgl64.Vec3) CSOPoint {
	c.Point = c.Point.Add(shift)
	return c
}

// ConstantOrigin is a zero-extent SupportMap always returning the origin,
// used to turn ClosestPoints into ProjectOrigin by standing in as the
// second shape.
type ConstantOrigin struct{}

func (ConstantOrigin) LocalSupportPoint(mgl64.Vec3) mgl64.Vec3 { return mgl64.Vec3{} }
