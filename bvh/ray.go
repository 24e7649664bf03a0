package bvh

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/kestrelphys/proximity/shape"
)

// RayIntersections walks tree depth-first and invokes callback for every
// leaf part whose AABB the ray origin + t*dir hits with t in [0, maxToi].
// Pruning is purely on the bounding volumes; callers wanting exact hits
// run a shape-level ray cast (gjk.CastLocalRay) on each candidate part.
//
// callback returning false stops the traversal; RayIntersections reports
// whether the walk ran to completion.
func RayIntersections(tree *shape.Tree, origin, dir mgl64.Vec3, maxToi float64, callback func(partID int) bool) bool {
	if len(tree.Nodes) == 0 {
		return true
	}

	stack := []int{tree.Root}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &tree.Nodes[idx]
		for lane := 0; lane < shape.SimdWidth; lane++ {
			if !node.Valid[lane] {
				continue
			}
			if _, hit := node.Bounds[lane].CastLocalRay(origin, dir, maxToi); !hit {
				continue
			}
			if node.Children[lane] >= 0 {
				stack = append(stack, node.Children[lane])
			} else if !callback(node.PartIDs[lane]) {
				return false
			}
		}
	}
	return true
}
