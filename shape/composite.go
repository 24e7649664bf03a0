package shape

import "github.com/go-gl/mathgl/mgl64"

// Part is one leaf of a composite shape: its local pose within the
// composite and the convex shape occupying that pose.
type Part struct {
	Pose  Isometry
	Shape SupportMap
}

// CompositeShape groups named convex parts under one BVH: TypedTree and
// MapUntypedPartAt give the BVH visitor everything it needs to traverse
// the composite and dispatch at its leaves.
type CompositeShape struct {
	parts []Part
	aabbs []AABB
	tree  *Tree
}

// NewCompositeShape builds a composite from its parts and indexes them
// into a best-first BVH (a Tree built by BuildTree) for traversal.
func NewCompositeShape(parts []Part) *CompositeShape {
	cs := &CompositeShape{parts: parts, aabbs: make([]AABB, len(parts))}
	for i, p := range parts {
		cs.aabbs[i] = computeAABB(p.Shape, p.Pose)
	}
	cs.tree = BuildTree(cs.aabbs)
	return cs
}

func computeAABB(s SupportMap, pos Isometry) AABB {
	type aabber interface{ ComputeAABB(Isometry) AABB }
	if a, ok := s.(aabber); ok {
		return a.ComputeAABB(pos)
	}
	// Fallback for shapes with no cheap exact AABB: sample the support
	// mapping along the axes. Adequate for the primitives in this package.
	axes := [6]mgl64.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	p0 := pos.Apply(s.LocalSupportPoint(pos.InverseApplyVector(axes[0])))
	lo, hi := p0, p0
	for _, a := range axes[1:] {
		p := pos.Apply(s.LocalSupportPoint(pos.InverseApplyVector(a)))
		lo = mgl64.Vec3{min(lo.X(), p.X()), min(lo.Y(), p.Y()), min(lo.Z(), p.Z())}
		hi = mgl64.Vec3{max(hi.X(), p.X()), max(hi.Y(), p.Y()), max(hi.Z(), p.Z())}
	}
	return AABB{Min: lo, Max: hi}
}

// NumParts returns the number of leaves in the composite.
func (cs *CompositeShape) NumParts() int { return len(cs.parts) }

// PartAABB returns the world-space AABB of the i-th part.
func (cs *CompositeShape) PartAABB(i int) AABB { return cs.aabbs[i] }

// TypedTree exposes the composite's BVH for traversal.
func (cs *CompositeShape) TypedTree() *Tree { return cs.tree }

// MapUntypedPartAt invokes fn with the pose and shape of leaf id.
func (cs *CompositeShape) MapUntypedPartAt(id int, fn func(pos Isometry, s SupportMap)) {
	p := cs.parts[id]
	fn(p.Pose, p.Shape)
}
