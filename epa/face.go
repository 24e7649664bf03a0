// Package epa implements the Expanding Polytope Algorithm for computing
// penetration depth and contact normal once GJK has reported
// Intersection.
//
// Two entry points handle the 2D and 3D cases separately: Epa2D (segment
// faces) and Epa3D (triangle faces on a tetrahedral polytope, expanded by
// fanning each popped face out to its new support point under the same
// heap-driven convergence criteria as Epa2D).
package epa

import (
	"container/heap"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/kestrelphys/proximity/gjk"
)

// Debug gates the single diagnostic log line this package emits, on the
// degenerate branch where a seed simplex's projection lands outside all
// of its own faces. Off by default; the core has no logger injected into
// it.
var Debug bool

// Tunable constants.
const (
	// MaxIterations caps the polytope expansion loop: if the loop hasn't
	// converged by then, the best face found so far is returned rather
	// than failing outright, since it is almost always close enough.
	MaxIterations = 100
	// VertexVertexMaxIterations caps the tangent-cone normal search used
	// for the lower-dimensional (vertex-vertex) seed case.
	VertexVertexMaxIterations = 100
)

// Face is the EPA polytope's k-simplex boundary element: a segment in
// 2D, a triangle in 3D, carrying vertex indices into the
// polytope's vertex list, an outward unit normal, the origin's
// projection onto the face's affine hull, that projection's barycentric
// coordinates, and a deleted flag for faces superseded during expansion.
type Face struct {
	Pts     []int
	Normal  mgl64.Vec3
	Proj    mgl64.Vec3
	BCoords []float64
	Deleted bool
}

// ClosestPoints reconstructs the witness pair on Face f via the
// barycentric combination of the CSOPoint witnesses at f's vertices.
func (f *Face) ClosestPoints(vertices []gjk.CSOPoint) (mgl64.Vec3, mgl64.Vec3) {
	var p1, p2 mgl64.Vec3
	for i, idx := range f.Pts {
		p1 = p1.Add(vertices[idx].Orig1.Mul(f.BCoords[i]))
		p2 = p2.Add(vertices[idx].Orig2.Mul(f.BCoords[i]))
	}
	return p1, p2
}

// faceID is the (face_index, neg_signed_distance) priority-queue key:
// ordered so that the face closest to the origin (smallest positive
// distance, i.e. greatest neg_dist) pops first.
type faceID struct {
	id      int
	negDist float64
}

// newFaceID refuses construction when the face lies on the wrong side of
// the origin by more than EpsTol, signalled by ok == false.
func newFaceID(id int, negDist float64) (faceID, bool) {
	if negDist > gjk.EpsTol() {
		return faceID{}, false
	}
	return faceID{id: id, negDist: negDist}, true
}

// faceHeap is a container/heap.Interface max-heap on negDist, giving
// O(log n) insert and pop over the live faces of the polytope: since
// negDist is the negated distance, the greatest key is the face closest
// to the origin.
type faceHeap []faceID

func (h faceHeap) Len() int            { return len(h) }
func (h faceHeap) Less(i, j int) bool  { return h[i].negDist > h[j].negDist }
func (h faceHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *faceHeap) Push(x interface{}) { *h = append(*h, x.(faceID)) }
func (h *faceHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

var _ = heap.Interface(&faceHeap{})

// Epa2D and Epa3D reset their vertex/face/heap slices at the top of every
// ClosestPoints call, so instances can be reused across queries; these
// pools amortize the struct allocation itself across independent queries,
// mirroring gjk.AcquireSimplex.
var (
	epa2DPool = sync.Pool{New: func() any { return NewEpa2D() }}
	epa3DPool = sync.Pool{New: func() any { return NewEpa3D() }}
)

// AcquireEpa2D takes an Epa2D from the pool (allocating one if empty).
// Callers must pass it to ReleaseEpa2D when done.
func AcquireEpa2D() *Epa2D { return epa2DPool.Get().(*Epa2D) }

// ReleaseEpa2D returns e to the pool for reuse; its scratch slices are
// truncated (not discarded) so their backing arrays are recycled too.
func ReleaseEpa2D(e *Epa2D) {
	e.reset()
	epa2DPool.Put(e)
}

// AcquireEpa3D takes an Epa3D from the pool (allocating one if empty).
// Callers must pass it to ReleaseEpa3D when done.
func AcquireEpa3D() *Epa3D { return epa3DPool.Get().(*Epa3D) }

// ReleaseEpa3D returns e to the pool for reuse; its scratch slices are
// truncated (not discarded) so their backing arrays are recycled too.
func ReleaseEpa3D(e *Epa3D) {
	e.reset()
	epa3DPool.Put(e)
}
