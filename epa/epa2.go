package epa

import (
	"container/heap"
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/kestrelphys/proximity/gjk"
	"github.com/kestrelphys/proximity/shape"
)

// Epa2D is the Expanding Polytope Algorithm restricted to the XY plane
// (Z()==0 throughout): the polytope's faces are segments, and the
// vertex-vertex seed case searches for a normal via perpendicular
// rotation in the plane rather than Epa3D's rotation about an axis
// perpendicular to both the normal and the offending tangent.
type Epa2D struct {
	vertices []gjk.CSOPoint
	faces    []Face
	heap     faceHeap
}

// NewEpa2D returns a ready-to-use, empty Epa2D.
func NewEpa2D() *Epa2D {
	return &Epa2D{}
}

func (e *Epa2D) reset() {
	e.vertices = e.vertices[:0]
	e.faces = e.faces[:0]
	e.heap = e.heap[:0]
}

// ProjectOrigin projects the origin onto g's boundary, assuming the
// origin lies inside g.
func (e *Epa2D) ProjectOrigin(m shape.Isometry, g shape.SupportMap, simplex *gjk.VoronoiSimplex) (mgl64.Vec3, bool) {
	p1, _, n, ok := e.ClosestPoints(m.Inverse(), g, gjk.ConstantOrigin{}, simplex)
	return p1, ok && n != mgl64.Vec3{}
}

// ClosestPoints runs EPA-2D to completion, given a simplex seeded from a
// GJK Intersection. Returns the witness pair, the contact
// normal, and false if the origin turns out not to be strictly inside
// the seed simplex.
func (e *Epa2D) ClosestPoints(pos12 shape.Isometry, g1, g2 shape.SupportMap, simplex *gjk.VoronoiSimplex) (mgl64.Vec3, mgl64.Vec3, mgl64.Vec3, bool) {
	// EPA converges on a looser tolerance than GJK: the polytope boundary
	// is refined by whole faces at a time, so chasing GJK's tolerance just
	// burns iterations on faces that cannot improve the answer.
	epsTol := gjk.DefaultEpsilon * 100

	e.reset()
	for i := 0; i <= simplex.Dimension(); i++ {
		e.vertices = append(e.vertices, simplex.Point(i))
	}

	switch simplex.Dimension() {
	case 0:
		n := e.vertexVertexNormal(pos12, g1, g2)
		return mgl64.Vec3{}, mgl64.Vec3{}, n, true
	case 2:
		a, b, c := e.vertices[0].Point, e.vertices[1].Point, e.vertices[2].Point
		dp1 := b.Sub(a)
		dp2 := c.Sub(a)
		if perp2D(dp1, dp2) < 0 {
			e.vertices[1], e.vertices[2] = e.vertices[2], e.vertices[1]
		}

		pts := [3][2]int{{0, 1}, {1, 2}, {2, 0}}
		anyInside := false
		for _, p := range pts {
			f, inside := e.newFace(p[0], p[1])
			e.faces = append(e.faces, f)
			if inside {
				anyInside = true
				dist := f.Normal.Dot(e.vertices[p[0]].Point)
				if id, ok := newFaceID(len(e.faces)-1, -dist); ok {
					heap.Push(&e.heap, id)
				}
			}
		}
		if !anyInside {
			// Documented unreachable-state branch: the seed triangle's
			// projection lands outside all three of its own edges, which
			// should not happen for a simplex GJK just reported as
			// containing the origin.
			if Debug {
				log.Printf("epa: hit unexpected state in EPA-2D: failed to project the origin onto the initial simplex")
			}
			return mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, false
		}
	default: // dim == 1
		f1, _ := e.newFaceWithProj(mgl64.Vec3{}, []float64{1, 0}, 0, 1)
		f2, _ := e.newFaceWithProj(mgl64.Vec3{}, []float64{1, 0}, 1, 0)
		e.faces = append(e.faces, f1, f2)
		dist1 := e.faces[0].Normal.Dot(e.vertices[0].Point)
		dist2 := e.faces[1].Normal.Dot(e.vertices[1].Point)
		id1, ok1 := newFaceID(0, dist1)
		id2, ok2 := newFaceID(1, dist2)
		if !ok1 || !ok2 {
			return mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, false
		}
		heap.Push(&e.heap, id1)
		heap.Push(&e.heap, id2)
	}

	maxDist := math.MaxFloat64
	bestFaceID := e.heap[0]
	oldDist := 0.0
	niter := 0

	for e.heap.Len() > 0 {
		fid := heap.Pop(&e.heap).(faceID)
		face := e.faces[fid.id]
		if face.Deleted {
			continue
		}

		csoPoint := gjk.FromShapes(pos12, g1, g2, face.Normal)
		supportID := len(e.vertices)
		e.vertices = append(e.vertices, csoPoint)

		candidateMaxDist := csoPoint.Point.Dot(face.Normal)
		if candidateMaxDist < maxDist {
			bestFaceID = fid
			maxDist = candidateMaxDist
		}

		currDist := -fid.negDist
		if maxDist-currDist < epsTol || (math.Abs(currDist-oldDist) < gjk.DefaultEpsilon && candidateMaxDist < maxDist) {
			best := e.faces[bestFaceID.id]
			p1, p2 := best.ClosestPoints(e.vertices)
			return p1, p2, best.Normal, true
		}
		oldDist = currDist

		newFaces := [2][2]int{{face.Pts[0], supportID}, {supportID, face.Pts[1]}}
		for _, np := range newFaces {
			f, inside := e.newFace(np[0], np[1])
			if inside {
				dist := f.Normal.Dot(f.Proj)
				if dist < currDist {
					p1, p2 := f.ClosestPoints(e.vertices)
					return p1, p2, f.Normal, true
				}
				if !f.Deleted {
					if id, ok := newFaceID(len(e.faces), -dist); ok {
						heap.Push(&e.heap, id)
					}
				}
			}
			e.faces = append(e.faces, f)
		}

		niter++
		if niter > MaxIterations {
			break
		}
	}

	best := e.faces[bestFaceID.id]
	p1, p2 := best.ClosestPoints(e.vertices)
	return p1, p2, best.Normal, true
}

// vertexVertexNormal handles EPA's lower-dim (dim==0) seed: the contact
// is vertex-vertex, so only a normal in the intersection of both shapes'
// tangent cones is sought, via perpendicular-rotation search.
func (e *Epa2D) vertexVertexNormal(pos12 shape.Isometry, g1, g2 shape.SupportMap) mgl64.Vec3 {
	epsTol := gjk.DefaultEpsilon * 100
	n := mgl64.Vec3{0, 1, 0}

	orig1 := e.vertices[0].Orig1
	for i := 0; i < VertexVertexMaxIterations; i++ {
		supp1 := g1.LocalSupportPoint(n)
		tangent := supp1.Sub(orig1)
		if tangent.LenSqr() < epsTol*epsTol {
			break
		}
		tangent = tangent.Normalize()
		if n.Dot(tangent) < epsTol {
			break
		}
		n = mgl64.Vec3{-tangent.Y(), tangent.X(), 0}
	}

	// Orig2 lives in g2's local frame; the support samples below are
	// lifted into g1's frame, so the witness must be lifted too.
	orig2 := pos12.Apply(e.vertices[0].Orig2)
	for i := 0; i < VertexVertexMaxIterations; i++ {
		supp2 := shape.SupportPoint(pos12, g2, n.Mul(-1))
		tangent := supp2.Sub(orig2)
		if tangent.LenSqr() < epsTol*epsTol {
			break
		}
		tangent = tangent.Normalize()
		if n.Mul(-1).Dot(tangent) < epsTol {
			break
		}
		n = mgl64.Vec3{-tangent.Y(), tangent.X(), 0}
	}

	return n
}

func perp2D(a, b mgl64.Vec3) float64 {
	return a.X()*b.Y() - a.Y()*b.X()
}

// newFace builds a segment face between polytope vertices a and b,
// projecting the origin onto it.
func (e *Epa2D) newFace(a, b int) (Face, bool) {
	proj, bcoords, inside := projectOriginOnSegment(e.vertices[a].Point, e.vertices[b].Point)
	if !inside {
		f, _ := e.newFaceWithProj(mgl64.Vec3{}, []float64{0, 0}, a, b)
		return f, false
	}
	return e.newFaceWithProj(proj, bcoords, a, b)
}

func (e *Epa2D) newFaceWithProj(proj mgl64.Vec3, bcoords []float64, a, b int) (Face, bool) {
	ab := e.vertices[b].Point.Sub(e.vertices[a].Point)
	if ab.LenSqr() < gjk.EpsTol() {
		return Face{Pts: []int{a, b}, Proj: proj, BCoords: bcoords, Deleted: true}, false
	}
	normal := mgl64.Vec3{ab.Y(), -ab.X(), 0}.Normalize()
	return Face{Pts: []int{a, b}, Normal: normal, Proj: proj, BCoords: bcoords, Deleted: false}, true
}

// projectOriginOnSegment projects the origin onto segment ab, returning
// false when the projection falls in the Voronoi region of a vertex
// rather than the segment's interior.
func projectOriginOnSegment(a, b mgl64.Vec3) (mgl64.Vec3, []float64, bool) {
	ab := b.Sub(a)
	ap := a.Mul(-1)
	abAp := ab.Dot(ap)
	sqnab := ab.LenSqr()
	if sqnab == 0 {
		return mgl64.Vec3{}, nil, false
	}

	eps := gjk.EpsTol()
	if abAp < -eps || abAp > sqnab+eps {
		return mgl64.Vec3{}, nil, false
	}

	t := abAp / sqnab
	return a.Add(ab.Mul(t)), []float64{1 - t, t}, true
}
