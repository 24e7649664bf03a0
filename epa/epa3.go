package epa

import (
	"container/heap"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/kestrelphys/proximity/gjk"
	"github.com/kestrelphys/proximity/shape"
)

// Epa3D is the 3D analogue of Epa2D: the polytope's faces are triangles
// on a tetrahedral seed, oriented outward against an interior reference
// point and driven by the same faceHeap best-first expansion loop as
// Epa2D. Lower-dimensional seeds are blown up into a valid starting
// polytope first: a segment becomes a triangular bipyramid around it, a
// flat triangle becomes its own two-sided hull.
type Epa3D struct {
	vertices []gjk.CSOPoint
	faces    []Face
	heap     faceHeap
}

// NewEpa3D returns a ready-to-use, empty Epa3D.
func NewEpa3D() *Epa3D {
	return &Epa3D{}
}

func (e *Epa3D) reset() {
	e.vertices = e.vertices[:0]
	e.faces = e.faces[:0]
	e.heap = e.heap[:0]
}

// ProjectOrigin projects the origin onto g's boundary, assuming the origin
// lies inside g.
func (e *Epa3D) ProjectOrigin(m shape.Isometry, g shape.SupportMap, simplex *gjk.VoronoiSimplex) (mgl64.Vec3, bool) {
	p1, _, n, ok := e.ClosestPoints(m.Inverse(), g, gjk.ConstantOrigin{}, simplex)
	return p1, ok && n != mgl64.Vec3{}
}

// ClosestPoints runs EPA-3D to completion, given a simplex seeded from a
// GJK Intersection. Returns the witness pair, the contact normal, and
// false if the seed is degenerate enough that no starting polytope could
// be built.
func (e *Epa3D) ClosestPoints(pos12 shape.Isometry, g1, g2 shape.SupportMap, simplex *gjk.VoronoiSimplex) (mgl64.Vec3, mgl64.Vec3, mgl64.Vec3, bool) {
	// Same looser convergence tolerance as Epa2D.
	epsTol := gjk.DefaultEpsilon * 100

	e.reset()
	for i := 0; i <= simplex.Dimension(); i++ {
		e.vertices = append(e.vertices, simplex.Point(i))
	}

	switch simplex.Dimension() {
	case 0:
		// The contact is vertex-vertex: the penetration is zero and only
		// a normal in both shapes' tangent cones is needed.
		n := e.vertexVertexNormal(pos12, g1, g2)
		return mgl64.Vec3{}, mgl64.Vec3{}, n, true
	case 1:
		if !e.seedFromSegment(pos12, g1, g2) {
			return mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, false
		}
	case 2:
		if !e.seedFromTriangle() {
			return mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, false
		}
	default: // dim == 3, the tetrahedral seed
		faces := [4][4]int{
			{0, 1, 2, 3},
			{0, 2, 3, 1},
			{0, 3, 1, 2},
			{1, 3, 2, 0},
		}
		for _, fv := range faces {
			f, ok := e.newFace(fv[0], fv[1], fv[2], e.vertices[fv[3]].Point)
			e.faces = append(e.faces, f)
			if ok {
				dist := f.Normal.Dot(e.vertices[fv[0]].Point)
				if id, idOk := newFaceID(len(e.faces)-1, -dist); idOk {
					heap.Push(&e.heap, id)
				}
			}
		}
	}

	if e.heap.Len() == 0 {
		return mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, false
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

		// Fan the popped face out to the new support point. The popped
		// face itself is never revisited (it left the heap); the origin
		// stays interior to the polytope throughout the expansion, so it
		// serves as the orientation reference for every new face.
		triples := [3][3]int{
			{face.Pts[0], face.Pts[1], supportID},
			{face.Pts[1], face.Pts[2], supportID},
			{face.Pts[2], face.Pts[0], supportID},
		}
		for _, t := range triples {
			f, ok := e.newFace(t[0], t[1], t[2], mgl64.Vec3{})
			if ok {
				dist := f.Normal.Dot(f.Proj)
				if dist < currDist {
					p1, p2 := f.ClosestPoints(e.vertices)
					return p1, p2, f.Normal, true
				}
				if !f.Deleted {
					if id, idOk := newFaceID(len(e.faces), -dist); idOk {
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

// seedFromSegment blows a 1-simplex seed up into a triangular bipyramid:
// the origin lies on the segment, so three support queries at 120-degree
// steps around the segment axis produce an equatorial ring whose six
// faces enclose it. Returns false when the segment or every resulting
// face is degenerate.
func (e *Epa3D) seedFromSegment(pos12 shape.Isometry, g1, g2 shape.SupportMap) bool {
	axis := e.vertices[1].Point.Sub(e.vertices[0].Point)
	if axis.LenSqr() < gjk.DefaultEpsilon {
		return false
	}
	axis = axis.Normalize()

	u := orthonormalTo(axis)
	for k := 0; k < 3; k++ {
		d := rotateAboutAxis(u, axis, 2*math.Pi*float64(k)/3)
		e.vertices = append(e.vertices, gjk.FromShapes(pos12, g1, g2, d))
	}

	var interior mgl64.Vec3
	for _, v := range e.vertices {
		interior = interior.Add(v.Point)
	}
	interior = interior.Mul(1.0 / float64(len(e.vertices)))

	tris := [6][3]int{
		{0, 2, 3}, {0, 3, 4}, {0, 4, 2},
		{1, 3, 2}, {1, 4, 3}, {1, 2, 4},
	}
	pushed := false
	for _, tv := range tris {
		f, ok := e.newFace(tv[0], tv[1], tv[2], interior)
		e.faces = append(e.faces, f)
		if ok {
			dist := f.Normal.Dot(f.Proj)
			if id, idOk := newFaceID(len(e.faces)-1, -dist); idOk {
				heap.Push(&e.heap, id)
				pushed = true
			}
		}
	}
	return pushed
}

// seedFromTriangle turns a flat 2-simplex seed into a two-sided hull: the
// origin lies on the triangle, so both windings are valid starting faces
// and the expansion grows an apex out of whichever side the shapes
// actually extend to.
func (e *Epa3D) seedFromTriangle() bool {
	a, b, c := e.vertices[0].Point, e.vertices[1].Point, e.vertices[2].Point
	n := b.Sub(a).Cross(c.Sub(a))
	if n.LenSqr() < gjk.DefaultEpsilon*gjk.DefaultEpsilon {
		return false
	}
	n = n.Normalize()

	pushed := false
	for _, side := range [2]struct {
		pts    [3]int
		normal mgl64.Vec3
	}{
		{[3]int{0, 1, 2}, n},
		{[3]int{0, 2, 1}, n.Mul(-1)},
	} {
		f, ok := e.buildFace(side.pts[0], side.pts[1], side.pts[2], side.normal)
		e.faces = append(e.faces, f)
		if ok {
			dist := f.Normal.Dot(f.Proj)
			if id, idOk := newFaceID(len(e.faces)-1, -dist); idOk {
				heap.Push(&e.heap, id)
				pushed = true
			}
		}
	}
	return pushed
}

// newFace builds a triangular face on vertices a, b, c, oriented outward
// away from the given interior reference point.
func (e *Epa3D) newFace(a, b, c int, interior mgl64.Vec3) (Face, bool) {
	pa, pb, pc := e.vertices[a].Point, e.vertices[b].Point, e.vertices[c].Point
	ab := pb.Sub(pa)
	ac := pc.Sub(pa)
	normal := ab.Cross(ac)
	lenSq := normal.LenSqr()
	if lenSq < gjk.EpsTol()*gjk.EpsTol() {
		return Face{Pts: []int{a, b, c}, Deleted: true}, false
	}
	normal = normal.Mul(1 / math.Sqrt(lenSq))

	if normal.Dot(interior.Sub(pa)) > 0 {
		normal = normal.Mul(-1)
	}
	return e.buildFace(a, b, c, normal)
}

// buildFace projects the origin onto the plane of triangle (a, b, c)
// with the given unit normal and packages the face, marking it deleted
// when the projection falls outside the triangle.
func (e *Epa3D) buildFace(a, b, c int, normal mgl64.Vec3) (Face, bool) {
	pa, pb, pc := e.vertices[a].Point, e.vertices[b].Point, e.vertices[c].Point
	proj, bcoords, inside := projectOriginOnTriangle(pa, pb, pc, normal)
	if !inside {
		return Face{Pts: []int{a, b, c}, Normal: normal, Deleted: true}, false
	}
	return Face{Pts: []int{a, b, c}, Normal: normal, Proj: proj, BCoords: bcoords}, true
}

// projectOriginOnTriangle projects the origin onto triangle abc's plane
// (known to have unit normal n) and reports whether that projection falls
// within the triangle rather than outside one of its edges.
func projectOriginOnTriangle(a, b, c, n mgl64.Vec3) (mgl64.Vec3, []float64, bool) {
	dist := a.Dot(n)
	proj := n.Mul(dist)

	areaABC := b.Sub(a).Cross(c.Sub(a)).Dot(n)
	if math.Abs(areaABC) < gjk.EpsTol() {
		return proj, nil, false
	}

	u := b.Sub(proj).Cross(c.Sub(proj)).Dot(n) / areaABC
	v := c.Sub(proj).Cross(a.Sub(proj)).Dot(n) / areaABC
	w := 1 - u - v

	eps := -1e-9
	if u < eps || v < eps || w < eps {
		return proj, nil, false
	}
	return proj, []float64{u, v, w}, true
}

// vertexVertexNormal handles the dim==0 seed: iteratively narrows a
// candidate normal into the intersection of both shapes' tangent cones at
// the witness pair, the same perpendicular-rotation search Epa2D performs
// in the plane, generalized to 3D by rotating the candidate normal toward
// the offending tangent about the axis perpendicular to both.
func (e *Epa3D) vertexVertexNormal(pos12 shape.Isometry, g1, g2 shape.SupportMap) mgl64.Vec3 {
	epsTol := gjk.DefaultEpsilon * 100
	n := mgl64.Vec3{0, 1, 0}

	narrow := func(orig mgl64.Vec3, sample func(dir mgl64.Vec3) mgl64.Vec3, flip float64) {
		for i := 0; i < VertexVertexMaxIterations; i++ {
			supp := sample(n.Mul(flip))
			tangent := supp.Sub(orig)
			if tangent.LenSqr() < epsTol*epsTol {
				return
			}
			tangent = tangent.Normalize()
			if n.Mul(flip).Dot(tangent) < epsTol {
				return
			}
			rotAxis := n.Cross(tangent)
			if rotAxis.LenSqr() < epsTol*epsTol {
				return
			}
			n = rotateAboutAxis(n, rotAxis.Normalize(), math.Pi/2)
		}
	}

	narrow(e.vertices[0].Orig1, g1.LocalSupportPoint, 1)
	narrow(pos12.Apply(e.vertices[0].Orig2), func(dir mgl64.Vec3) mgl64.Vec3 {
		return shape.SupportPoint(pos12, g2, dir)
	}, -1)

	return n
}

// orthonormalTo returns an arbitrary unit vector perpendicular to unit
// vector v.
func orthonormalTo(v mgl64.Vec3) mgl64.Vec3 {
	u := mgl64.Vec3{1, 0, 0}
	if math.Abs(v.X()) > 0.9 {
		u = mgl64.Vec3{0, 1, 0}
	}
	return v.Cross(u).Normalize()
}

// rotateAboutAxis rotates vector v by angle radians about unit axis, via
// Rodrigues' rotation formula.
func rotateAboutAxis(v, axis mgl64.Vec3, angle float64) mgl64.Vec3 {
	cosT, sinT := math.Cos(angle), math.Sin(angle)
	term1 := v.Mul(cosT)
	term2 := axis.Cross(v).Mul(sinT)
	term3 := axis.Mul(axis.Dot(v) * (1 - cosT))
	return term1.Add(term2).Add(term3)
}
