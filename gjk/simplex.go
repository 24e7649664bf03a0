package gjk

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultEpsilon is the machine epsilon for Real (float64 here).
const DefaultEpsilon = 2.220446049250313e-16

// EpsTol is the absolute tolerance used throughout GJK/EPA:
// eps_tol = DEFAULT_EPSILON * 10.
func EpsTol() float64 { return DefaultEpsilon * 10.0 }

// VoronoiSimplex is the geometric state machine backing GJK: it holds
// 1-4 CSOPoints, projects the origin onto the simplex's closest feature,
// and permutes+truncates itself to exactly that feature while mirroring
// its pre-reduction state for GJK's numerical-stall fallback.
//
// Reductions permute by index swaps, never by copying vertices, so the
// prev mirror stays cheap. Region classification uses the standard
// closest-point-on-triangle and closest-point-on-tetrahedron
// constructions (Ericson, Real-Time Collision Detection §5.1).
type VoronoiSimplex struct {
	prevVertices [4]int
	prevProj     [4]float64
	prevDim      int

	vertices [4]CSOPoint
	proj     [4]float64
	dim      int
}

// New returns an empty simplex (dim 0, a single unset vertex slot).
func New() *VoronoiSimplex {
	return &VoronoiSimplex{prevVertices: [4]int{0, 1, 2, 3}}
}

// simplexPool recycles VoronoiSimplex instances across queries: each one
// is a small fixed-size struct whose Reset already clears it to an empty
// state, so acquiring from the pool instead of allocating avoids GC
// pressure on hot dispatch paths that run one query after another.
var simplexPool = sync.Pool{New: func() any { return New() }}

// AcquireSimplex takes a simplex from the pool (allocating one if the
// pool is empty). Callers must pass it to ReleaseSimplex when done.
func AcquireSimplex() *VoronoiSimplex {
	return simplexPool.Get().(*VoronoiSimplex)
}

// ReleaseSimplex resets s and returns it to the pool for reuse.
func ReleaseSimplex(s *VoronoiSimplex) {
	*s = VoronoiSimplex{prevVertices: [4]int{0, 1, 2, 3}}
	simplexPool.Put(s)
}

// Swap exchanges two vertices (and their prev-state mirror) in place.
func (s *VoronoiSimplex) Swap(i, j int) {
	s.vertices[i], s.vertices[j] = s.vertices[j], s.vertices[i]
	s.prevVertices[i], s.prevVertices[j] = s.prevVertices[j], s.prevVertices[i]
}

// Reset collapses the simplex to the single point pt.
func (s *VoronoiSimplex) Reset(pt CSOPoint) {
	s.dim = 0
	s.prevDim = 0
	s.vertices[0] = pt
}

// Dimension is the current simplex's affine dimension (0 = point, 1 =
// segment, 2 = triangle, 3 = tetrahedron).
func (s *VoronoiSimplex) Dimension() int { return s.dim }

// PrevDimension is the dimension before the most recent reduction.
func (s *VoronoiSimplex) PrevDimension() int { return s.prevDim }

// Point returns the i-th current vertex.
func (s *VoronoiSimplex) Point(i int) CSOPoint { return s.vertices[i] }

// ProjCoord returns the i-th barycentric weight from the most recent
// reduction.
func (s *VoronoiSimplex) ProjCoord(i int) float64 { return s.proj[i] }

// PrevPoint returns the i-th vertex as it stood before the most recent
// reduction (via the prevVertices index mirror).
func (s *VoronoiSimplex) PrevPoint(i int) CSOPoint { return s.vertices[s.prevVertices[i]] }

// PrevProjCoord returns the i-th barycentric weight before the most
// recent reduction.
func (s *VoronoiSimplex) PrevProjCoord(i int) float64 { return s.prevProj[i] }

// AddPoint appends pt to the simplex, rejecting it (and leaving the
// simplex unchanged besides the prev_* mirror) if it is within EpsTol of
// an affine feature already spanned by the existing vertices — duplicate
// point, colinear edge, or coplanar face.
func (s *VoronoiSimplex) AddPoint(pt CSOPoint) bool {
	s.prevDim = s.dim
	s.prevProj = s.proj
	s.prevVertices = [4]int{0, 1, 2, 3}

	switch s.dim {
	case 0:
		if s.vertices[0].Point.Sub(pt.Point).Len() < EpsTol() {
			return false
		}
	case 1:
		ab := s.vertices[1].Point.Sub(s.vertices[0].Point)
		ac := pt.Point.Sub(s.vertices[0].Point)
		if ab.Cross(ac).Len() < EpsTol()*ab.Len() {
			return false
		}
	case 2:
		ab := s.vertices[1].Point.Sub(s.vertices[0].Point)
		ac := s.vertices[2].Point.Sub(s.vertices[0].Point)
		ap := pt.Point.Sub(s.vertices[0].Point)
		n := ab.Cross(ac).Normalize()
		if math.Abs(n.Dot(ap)) < EpsTol() {
			return false
		}
	default:
		panic("gjk: simplex already at full dimension, caller must project-and-reduce first")
	}

	s.dim++
	s.vertices[s.dim] = pt
	return true
}

// ProjectOriginAndReduce projects the origin onto the simplex's boundary
// and reduces the simplex in place to the smallest sub-simplex (vertex,
// edge, or face) containing that projection, returning the projected
// point. The pre-reduction state remains available via Prev*.
func (s *VoronoiSimplex) ProjectOriginAndReduce() mgl64.Vec3 {
	switch s.dim {
	case 0:
		s.proj[0] = 1.0
		return s.vertices[0].Point
	case 1:
		a, b := s.vertices[0].Point, s.vertices[1].Point
		proj, order, weights := projectSegment(a, b)
		s.reduceTo(order, weights)
		return proj
	case 2:
		a, b, c := s.vertices[0].Point, s.vertices[1].Point, s.vertices[2].Point
		proj, order, weights := projectTriangle(a, b, c)
		s.reduceTo(order, weights)
		return proj
	default:
		a, b, c, d := s.vertices[0].Point, s.vertices[1].Point, s.vertices[2].Point, s.vertices[3].Point
		proj, order, weights := projectTetrahedron(a, b, c, d)
		s.reduceTo(order, weights)
		return proj
	}
}

// reduceTo permutes the simplex (via Swap) so that vertices[0..len(order)]
// holds exactly the vertices named by order (in that order) and records
// weights as the new proj, then truncates dim.
func (s *VoronoiSimplex) reduceTo(order []int, weights []float64) {
	cur := [4]int{0, 1, 2, 3}
	for slot, want := range order {
		actual := slot
		for i, label := range cur {
			if label == want {
				actual = i
				break
			}
		}
		if actual != slot {
			s.Swap(slot, actual)
			cur[slot], cur[actual] = cur[actual], cur[slot]
		}
	}
	for i, w := range weights {
		s.proj[i] = w
	}
	s.dim = len(order) - 1
}

// ProjectOrigin computes the origin's projection without reducing the
// simplex, for callers that only need the point.
func (s *VoronoiSimplex) ProjectOrigin() mgl64.Vec3 {
	switch s.dim {
	case 0:
		return s.vertices[0].Point
	case 1:
		proj, _, _ := projectSegment(s.vertices[0].Point, s.vertices[1].Point)
		return proj
	case 2:
		proj, _, _ := projectTriangle(s.vertices[0].Point, s.vertices[1].Point, s.vertices[2].Point)
		return proj
	default:
		proj, _, _ := projectTetrahedron(s.vertices[0].Point, s.vertices[1].Point, s.vertices[2].Point, s.vertices[3].Point)
		return proj
	}
}

// ContainsPoint reports whether pt is already one of the simplex's
// current vertices.
func (s *VoronoiSimplex) ContainsPoint(pt mgl64.Vec3) bool {
	for i := 0; i <= s.dim; i++ {
		if s.vertices[i].Point == pt {
			return true
		}
	}
	return false
}

// MaxSqLen returns the largest squared length among the simplex's
// current vertices.
func (s *VoronoiSimplex) MaxSqLen() float64 {
	maxSq := 0.0
	for i := 0; i <= s.dim; i++ {
		if n := s.vertices[i].Point.LenSqr(); n > maxSq {
			maxSq = n
		}
	}
	return maxSq
}

// ModifyPoints applies f to every current vertex in place (used by the
// ray-cast when it shifts the moving ray origin).
func (s *VoronoiSimplex) ModifyPoints(f func(*CSOPoint)) {
	for i := 0; i <= s.dim; i++ {
		f(&s.vertices[i])
	}
}

// --- Closest-point primitives -------------------------------------------
//
// Point-to-segment/triangle/tetrahedron projection, implemented directly
// rather than imported: the algorithms are the textbook closest-point
// constructions.

func projectSegment(a, b mgl64.Vec3) (proj mgl64.Vec3, order []int, weights []float64) {
	ab := b.Sub(a)
	denom := ab.LenSqr()
	if denom < EpsTol() {
		return a, []int{0}, []float64{1.0}
	}
	t := a.Mul(-1).Dot(ab) / denom
	switch {
	case t <= 0:
		return a, []int{0}, []float64{1.0}
	case t >= 1:
		return b, []int{1}, []float64{1.0}
	default:
		return a.Add(ab.Mul(t)), []int{0, 1}, []float64{1 - t, t}
	}
}

// projectTriangle is the standard closest-point-on-triangle construction
// (Ericson §5.1.5), returning a result labeled against {0,1,2} = {a,b,c}.
func projectTriangle(a, b, c mgl64.Vec3) (proj mgl64.Vec3, order []int, weights []float64) {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := a.Mul(-1) // origin - a

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a, []int{0}, []float64{1.0}
	}

	bp := b.Mul(-1)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b, []int{1}, []float64{1.0}
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Mul(v)), []int{0, 1}, []float64{1 - v, v}
	}

	cp := c.Mul(-1)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c, []int{2}, []float64{1.0}
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Mul(w)), []int{0, 2}, []float64{1 - w, w}
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Mul(w)), []int{1, 2}, []float64{1 - w, w}
	}

	denom := 1.0 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	proj = a.Add(ab.Mul(v)).Add(ac.Mul(w))
	return proj, []int{0, 1, 2}, []float64{1 - v - w, v, w}
}

// projectTetrahedron is the standard closest-point-on-tetrahedron
// construction (Ericson §5.1.6): if the origin is inside all four face
// half-spaces it lies inside the tetrahedron (returned as a degenerate
// all-four-vertex face); otherwise it recurses into whichever outward
// face(s) the origin lies beyond and keeps the closest.
func projectTetrahedron(a, b, c, d mgl64.Vec3) (proj mgl64.Vec3, order []int, weights []float64) {
	origin := mgl64.Vec3{}

	type face struct {
		p0, p1, p2 mgl64.Vec3
		idx        [3]int
	}
	faces := [4]face{
		{a, b, c, [3]int{0, 1, 2}}, // opposite d
		{a, c, d, [3]int{0, 2, 3}}, // opposite b
		{a, d, b, [3]int{0, 3, 1}}, // opposite c
		{b, d, c, [3]int{1, 3, 2}}, // opposite a
	}
	opposite := [4]mgl64.Vec3{d, b, c, a}

	outside := [4]bool{}
	anyOutside := false
	for i, f := range faces {
		n := f.p1.Sub(f.p0).Cross(f.p2.Sub(f.p0))
		signOrigin := origin.Sub(f.p0).Dot(n)
		signOpp := opposite[i].Sub(f.p0).Dot(n)
		if signOrigin*signOpp < 0 {
			outside[i] = true
			anyOutside = true
		}
	}

	if !anyOutside {
		// Origin is inside; barycentric weights via volume ratios.
		vol := func(p0, p1, p2, p3 mgl64.Vec3) float64 {
			return p1.Sub(p0).Cross(p2.Sub(p0)).Dot(p3.Sub(p0))
		}
		vTotal := vol(a, b, c, d)
		if math.Abs(vTotal) < EpsTol() {
			return a, []int{0}, []float64{1.0}
		}
		wa := vol(origin, b, c, d) / vTotal
		wb := vol(a, origin, c, d) / vTotal
		wc := vol(a, b, origin, d) / vTotal
		wd := 1 - wa - wb - wc
		return origin, []int{0, 1, 2, 3}, []float64{wa, wb, wc, wd}
	}

	bestSq := math.MaxFloat64
	for i, f := range faces {
		if !outside[i] {
			continue
		}
		p, localOrder, w := projectTriangle(f.p0, f.p1, f.p2)
		sq := p.LenSqr()
		if sq < bestSq {
			bestSq = sq
			proj = p
			order = make([]int, len(localOrder))
			for k, l := range localOrder {
				order[k] = f.idx[l]
			}
			weights = w
		}
	}
	return proj, order, weights
}
