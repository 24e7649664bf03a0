// Package shape carries the collaborators the proximity core consumes but
// does not own: the support-map contract, isometries relating two shapes,
// axis-aligned bounding boxes, and a handful of concrete convex primitives
// used to exercise GJK, EPA and the BVH visitor in tests.
package shape

import "github.com/go-gl/mathgl/mgl64"

// Isometry is a rigid transform (rotation + translation). As the pos12 of
// a two-shape query it maps a point expressed in the second shape's local
// frame into the first shape's local frame.
type Isometry struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// Identity returns the identity isometry.
func Identity() Isometry {
	return Isometry{Rotation: mgl64.QuatIdent()}
}

// Apply transforms a point from this isometry's local frame to world space.
func (iso Isometry) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return iso.Rotation.Rotate(p).Add(iso.Position)
}

// ApplyVector rotates a free vector, ignoring translation.
func (iso Isometry) ApplyVector(v mgl64.Vec3) mgl64.Vec3 {
	return iso.Rotation.Rotate(v)
}

// Inverse returns the isometry that undoes iso.
func (iso Isometry) Inverse() Isometry {
	qi := iso.Rotation.Inverse()
	return Isometry{
		Rotation: qi,
		Position: qi.Rotate(iso.Position.Mul(-1)),
	}
}

// Mul composes two isometries so that iso.Mul(other).Apply(p) ==
// iso.Apply(other.Apply(p)).
func (iso Isometry) Mul(other Isometry) Isometry {
	return Isometry{
		Rotation: iso.Rotation.Mul(other.Rotation),
		Position: iso.Rotation.Rotate(other.Position).Add(iso.Position),
	}
}

// InverseApplyVector rotates v by the inverse of iso's rotation; a shorthand
// used when lifting a world-space search direction into a shape's local
// frame without materializing iso.Inverse().
func (iso Isometry) InverseApplyVector(v mgl64.Vec3) mgl64.Vec3 {
	return iso.Rotation.Inverse().Rotate(v)
}
