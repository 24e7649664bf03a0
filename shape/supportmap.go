package shape

import "github.com/go-gl/mathgl/mgl64"

// SupportMap is the contract every convex shape implements:
// LocalSupportPoint returns the vertex maximizing x·dir in the shape's own
// local frame. GJK and EPA only ever touch shapes through this interface.
type SupportMap interface {
	LocalSupportPoint(dir mgl64.Vec3) mgl64.Vec3
}

// SupportPoint lifts g's local support mapping with pos12, the isometry
// from g's frame into the frame the query direction dir is expressed in.
func SupportPoint(pos12 Isometry, g SupportMap, dir mgl64.Vec3) mgl64.Vec3 {
	localDir := pos12.InverseApplyVector(dir)
	return pos12.Apply(g.LocalSupportPoint(localDir))
}
