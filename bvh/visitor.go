// Package bvh provides best-first traversal over a shape.Tree, the
// scheduler consuming composite shapes for proximity queries against a
// single convex shape: at each visited node bundle the visitor computes
// a Minkowski-sum-of-AABBs lower bound and only descends into (or
// reports) lanes that could still beat the best distance found so far,
// pruning the rest of the tree outright.
package bvh

import (
	"container/heap"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/kestrelphys/proximity/shape"
)

// DistanceFunc computes the exact distance between a composite part (in
// its own local frame) and the query shape, given the query shape's pose
// relative to the part. This is the dispatch package's Dispatcher.Distance
// lifted to a plain function so this package never needs to import
// dispatch.
type DistanceFunc func(pos12 shape.Isometry, g1, g2 shape.SupportMap) float64

// PartValue pairs a leaf part id with the scalar a visitor computed for
// it.
type PartValue struct {
	PartID int
	Value  float64
}

// VisitOutcome is what a BestFirstVisitor returns for one node bundle:
// either an early exit carrying the final answer, or per-lane weights
// (the best-first key, lower is more promising), a mask of lanes still
// worth pursuing, and optional leaf payloads.
type VisitOutcome struct {
	ExitEarly bool
	Early     PartValue

	Weights [shape.SimdWidth]float64
	Mask    [shape.SimdWidth]bool
	Results [shape.SimdWidth]*PartValue
}

// BestFirstVisitor is the contract TraverseBestFirst drives: Visit
// receives the best value found so far and one node bundle (its AABBs
// plus, on leaf lanes, part ids) and decides which lanes survive.
type BestFirstVisitor interface {
	Visit(best float64, node *shape.Node) VisitOutcome
}

// TraverseBestFirst walks tree in best-first order, always expanding the
// pending node with the smallest weight, and returns the smallest-valued
// leaf payload produced by visitor across the whole traversal. The bool
// result is false when the traversal produced no payload at all.
func TraverseBestFirst(tree *shape.Tree, visitor BestFirstVisitor) (PartValue, bool) {
	if len(tree.Nodes) == 0 {
		return PartValue{}, false
	}

	best := maxFloat
	bestResult := PartValue{}
	found := false

	pq := &boundHeap{{idx: tree.Root, bound: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		top := heap.Pop(pq).(boundItem)
		if top.bound >= best {
			break
		}

		node := &tree.Nodes[top.idx]
		out := visitor.Visit(best, node)
		if out.ExitEarly {
			return out.Early, true
		}

		for lane := 0; lane < shape.SimdWidth; lane++ {
			if !out.Mask[lane] {
				continue
			}
			if node.Children[lane] >= 0 {
				heap.Push(pq, boundItem{idx: node.Children[lane], bound: out.Weights[lane]})
			} else if r := out.Results[lane]; r != nil && out.Weights[lane] < best {
				best = out.Weights[lane]
				bestResult = *r
				found = true
			}
		}
	}

	return bestResult, found
}

// CompositeDistanceResult pairs which leaf achieved the reported
// distance with its value.
type CompositeDistanceResult struct {
	PartID   int
	Distance float64
}

// CompositeDistanceVisitor is the best-first visitor measuring the
// distance between a composite shape and a single convex shape: node
// lower bounds come from the Minkowski sum of each lane's AABB with the
// query shape's AABB, and leaf lanes dispatch the exact distance.
type CompositeDistanceVisitor struct {
	msumShift  mgl64.Vec3
	msumMargin mgl64.Vec3

	pos12     shape.Isometry
	composite *shape.CompositeShape
	g2        shape.SupportMap
	distance  DistanceFunc
}

// NewCompositeDistanceVisitor builds a visitor for composite against g2
// posed at pos12 (mapping g2's local frame into composite's local frame).
func NewCompositeDistanceVisitor(pos12 shape.Isometry, composite *shape.CompositeShape, g2 shape.SupportMap, distance DistanceFunc) *CompositeDistanceVisitor {
	ls2 := computeQueryAABB(pos12, g2)
	return &CompositeDistanceVisitor{
		msumShift:  ls2.Center().Mul(-1),
		msumMargin: ls2.HalfExtents(),
		pos12:      pos12,
		composite:  composite,
		g2:         g2,
		distance:   distance,
	}
}

// Visit implements BestFirstVisitor. Lanes whose Minkowski-sum lower
// bound cannot beat best are masked off; leaf lanes compute the exact
// distance, with a zero distance short-circuiting the whole traversal.
func (v *CompositeDistanceVisitor) Visit(best float64, node *shape.Node) VisitOutcome {
	var out VisitOutcome

	for lane := 0; lane < shape.SimdWidth; lane++ {
		if !node.Valid[lane] {
			continue
		}
		msum := shape.AABB{
			Min: node.Bounds[lane].Min.Add(v.msumShift).Sub(v.msumMargin),
			Max: node.Bounds[lane].Max.Add(v.msumShift).Add(v.msumMargin),
		}
		dist := msum.DistanceToOrigin()
		if dist >= best {
			continue
		}

		if node.Children[lane] >= 0 {
			out.Weights[lane] = dist
			out.Mask[lane] = true
			continue
		}

		partID := node.PartIDs[lane]
		var exact float64
		v.composite.MapUntypedPartAt(partID, func(partPos shape.Isometry, g1 shape.SupportMap) {
			exact = v.distance(partPos.Inverse().Mul(v.pos12), g1, v.g2)
		})
		if exact == 0 {
			out.ExitEarly = true
			out.Early = PartValue{PartID: partID, Value: 0}
			return out
		}
		out.Weights[lane] = exact
		out.Mask[lane] = exact < best
		out.Results[lane] = &PartValue{PartID: partID, Value: exact}
	}

	return out
}

// CompositeDistance finds the minimum distance between any part of
// composite and g2 (posed at pos12 relative to composite's frame). pos12
// follows the same convention as gjk.ClosestPoints: it maps g2's local
// frame into composite's local frame.
//
// Panics if composite has no parts.
func CompositeDistance(pos12 shape.Isometry, composite *shape.CompositeShape, g2 shape.SupportMap, distance DistanceFunc) CompositeDistanceResult {
	if composite.NumParts() == 0 {
		panic("bvh: composite shape must not be empty")
	}

	visitor := NewCompositeDistanceVisitor(pos12, composite, g2, distance)
	res, ok := TraverseBestFirst(composite.TypedTree(), visitor)
	if !ok {
		panic("bvh: composite shape must not be empty")
	}
	return CompositeDistanceResult{PartID: res.PartID, Distance: res.Value}
}

// computeQueryAABB finds g2's local-space AABB, mirroring the fallback in
// shape.NewCompositeShape's computeAABB since g2 is an arbitrary
// SupportMap here, not necessarily one with a cheap exact AABB.
func computeQueryAABB(pos12 shape.Isometry, g2 shape.SupportMap) shape.AABB {
	type aabber interface{ ComputeAABB(shape.Isometry) shape.AABB }
	if a, ok := g2.(aabber); ok {
		return a.ComputeAABB(pos12)
	}
	axes := [6]mgl64.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	p0 := shape.SupportPoint(pos12, g2, axes[0])
	lo, hi := p0, p0
	for _, a := range axes[1:] {
		p := shape.SupportPoint(pos12, g2, a)
		for k := 0; k < 3; k++ {
			if p[k] < lo[k] {
				lo[k] = p[k]
			}
			if p[k] > hi[k] {
				hi[k] = p[k]
			}
		}
	}
	return shape.AABB{Min: lo, Max: hi}
}

const maxFloat = 1.7976931348623157e+308

type boundItem struct {
	idx   int
	bound float64
}

type boundHeap []boundItem

func (h boundHeap) Len() int            { return len(h) }
func (h boundHeap) Less(i, j int) bool  { return h[i].bound < h[j].bound }
func (h boundHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *boundHeap) Push(x interface{}) { *h = append(*h, x.(boundItem)) }
func (h *boundHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
