package gjk

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/kestrelphys/proximity/shape"
)

// Dim is the ambient dimension of the simplex's full rank: a tetrahedron
// (4 points) both in 2D (where it degenerates before reaching full rank
// in practice) and 3D.
const Dim = 3

const maxIterations = 100

// ResultKind tags which variant of GJKResult is populated.
type ResultKind int

const (
	// KindIntersection: the origin is on or inside the CSO.
	KindIntersection ResultKind = iota
	// KindClosestPoints: converged with witness points P1, P2 and normal N.
	KindClosestPoints
	// KindProximity: coarse mode found separation without the exact distance.
	KindProximity
	// KindNoIntersection: certified farther than max_dist (or iteration cap).
	KindNoIntersection
)

// Result is the GJKResult sum type: exactly one of the four ResultKind
// cases, with P1/P2/N populated only as each case requires.
type Result struct {
	Kind ResultKind
	P1   mgl64.Vec3
	P2   mgl64.Vec3
	N    mgl64.Vec3 // unit normal, valid for every kind except KindIntersection
}

// ClosestPoints runs the main GJK iteration. simplex must already hold
// at least one CSOPoint. maxDist bounds the search: once the
// origin is certified farther than maxDist, KindNoIntersection is
// returned. When exactDist is false, GJK exits as soon as separation
// (rather than exact distance) is certified, returning KindProximity.
func ClosestPoints(pos12 shape.Isometry, g1, g2 shape.SupportMap, maxDist float64, exactDist bool, simplex *VoronoiSimplex) Result {
	epsTol := EpsTol()
	epsRel := math.Sqrt(epsTol)

	proj := simplex.ProjectOriginAndReduce()

	var oldDir mgl64.Vec3
	if proj.LenSqr() < 1e-300 {
		return Result{Kind: KindIntersection}
	}
	oldDir = proj.Mul(-1 / proj.Len())

	maxBound := math.MaxFloat64
	niter := 0

	for {
		oldMaxBound := maxBound

		plen := proj.Len()
		if plen < epsTol {
			return Result{Kind: KindIntersection}
		}
		dir := proj.Mul(-1 / plen)
		maxBound = plen

		if maxBound >= oldMaxBound {
			if exactDist {
				p1, p2 := witness(simplex, true)
				return Result{Kind: KindClosestPoints, P1: p1, P2: p2, N: oldDir}
			}
			return Result{Kind: KindProximity, N: oldDir}
		}

		csoPoint := FromShapes(pos12, g1, g2, dir)
		minBound := -dir.Dot(csoPoint.Point)

		if minBound > maxDist {
			return Result{Kind: KindNoIntersection, N: dir}
		} else if !exactDist && minBound > 0 && maxBound <= maxDist {
			return Result{Kind: KindProximity, N: oldDir}
		} else if maxBound-minBound <= epsRel*maxBound {
			if exactDist {
				p1, p2 := witness(simplex, false)
				return Result{Kind: KindClosestPoints, P1: p1, P2: p2, N: dir}
			}
			return Result{Kind: KindProximity, N: dir}
		}

		if !simplex.AddPoint(csoPoint) {
			if exactDist {
				p1, p2 := witness(simplex, false)
				return Result{Kind: KindClosestPoints, P1: p1, P2: p2, N: dir}
			}
			return Result{Kind: KindProximity, N: dir}
		}

		oldDir = dir
		proj = simplex.ProjectOriginAndReduce()

		if simplex.Dimension() == Dim {
			if minBound >= epsTol {
				if exactDist {
					p1, p2 := witness(simplex, true)
					return Result{Kind: KindClosestPoints, P1: p1, P2: p2, N: oldDir}
				}
				return Result{Kind: KindProximity, N: oldDir}
			}
			return Result{Kind: KindIntersection}
		}

		niter++
		if niter == maxIterations {
			return Result{Kind: KindNoIntersection, N: mgl64.Vec3{1, 0, 0}}
		}
	}
}

// ProjectOrigin projects the origin onto shape g (via an identity second
// shape fixed at the origin), returning false if the origin is strictly
// inside g (use EPA instead).
func ProjectOrigin(m shape.Isometry, g shape.SupportMap, simplex *VoronoiSimplex) (mgl64.Vec3, bool) {
	res := ClosestPoints(m.Inverse(), g, ConstantOrigin{}, math.MaxFloat64, true, simplex)
	if res.Kind == KindClosestPoints {
		return res.P1, true
	}
	return mgl64.Vec3{}, false
}

func witness(simplex *VoronoiSimplex, prev bool) (mgl64.Vec3, mgl64.Vec3) {
	var p1, p2 mgl64.Vec3
	if prev {
		for i := 0; i <= simplex.PrevDimension(); i++ {
			coord := simplex.PrevProjCoord(i)
			pt := simplex.PrevPoint(i)
			p1 = p1.Add(pt.Orig1.Mul(coord))
			p2 = p2.Add(pt.Orig2.Mul(coord))
		}
		return p1, p2
	}
	for i := 0; i <= simplex.Dimension(); i++ {
		coord := simplex.ProjCoord(i)
		pt := simplex.Point(i)
		p1 = p1.Add(pt.Orig1.Mul(coord))
		p2 = p2.Add(pt.Orig2.Mul(coord))
	}
	return p1, p2
}

// Ray is a half-line origin + t*dir, t >= 0.
type Ray struct {
	Origin mgl64.Vec3
	Dir    mgl64.Vec3
}

// CastLocalRay casts ray against shape via the separating-axis Minkowski
// ray-cast, returning the time of impact and the hit normal.
func CastLocalRay(g shape.SupportMap, simplex *VoronoiSimplex, ray Ray, maxToi float64) (float64, mgl64.Vec3, bool) {
	return minkowskiRayCast(shape.Identity(), g, ConstantOrigin{}, ray, maxToi, simplex)
}

// DirectionalDistance computes how far g2 can travel along dir (expressed
// in g1's local frame) before it touches g1, which is also how far g1 can
// travel along -dir before it touches g2, returning (t, normal, witness1,
// witness2).
func DirectionalDistance(pos12 shape.Isometry, g1, g2 shape.SupportMap, dir mgl64.Vec3, simplex *VoronoiSimplex) (float64, mgl64.Vec3, mgl64.Vec3, mgl64.Vec3, bool) {
	ray := Ray{Dir: dir}
	toi, normal, ok := minkowskiRayCast(pos12, g1, g2, ray, math.MaxFloat64, simplex)
	if !ok {
		return 0, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, false
	}
	if toi == 0 {
		return toi, normal, mgl64.Vec3{}, mgl64.Vec3{}, true
	}
	p1, p2 := witness(simplex, simplex.Dimension() == Dim)
	return toi, normal, p1, p2, true
}

// minkowskiRayCast ray-casts on the Minkowski difference g1 - pos12*g2:
// a moving ray origin with a monotonically increasing lower bound ltoi,
// clipped against each support halfspace in turn.
func minkowskiRayCast(pos12 shape.Isometry, g1, g2 shape.SupportMap, ray Ray, maxToi float64, simplex *VoronoiSimplex) (float64, mgl64.Vec3, bool) {
	epsTol := EpsTol()
	epsRel := math.Sqrt(epsTol)

	rayLength := ray.Dir.Len()
	if rayLength < 1e-12 {
		return 0, mgl64.Vec3{}, false
	}

	ltoi := 0.0
	currOrigin := ray.Origin
	unitDir := ray.Dir.Mul(1 / rayLength)
	dir0 := unitDir.Mul(-1)
	ldir := dir0

	support := FromShapes(pos12, g1, g2, dir0)
	simplex.Reset(support.Translate(currOrigin.Mul(-1)))

	proj := simplex.ProjectOriginAndReduce()
	maxBound := math.MaxFloat64
	niter := 0
	lastChance := false

	for {
		oldMaxBound := maxBound

		plen := proj.Len()
		if plen < epsTol {
			return ltoi / rayLength, ldir, true
		}
		dir := proj.Mul(-1 / plen)
		maxBound = plen

		var supportPoint CSOPoint
		if maxBound >= oldMaxBound {
			lastChance = true
			supportPoint = SinglePoint(proj.Add(currOrigin))
		} else {
			supportPoint = FromShapes(pos12, g1, g2, dir)
		}

		if lastChance && ltoi > 0 {
			return ltoi / rayLength, ldir, true
		}

		if t, ok := rayTOIWithHalfspace(supportPoint.Point, dir, Ray{Origin: currOrigin, Dir: unitDir}); ok {
			if dir.Dot(unitDir) < 0 && t > 0 {
				ldir = dir
				ltoi += t
				if ltoi/rayLength > maxToi {
					return 0, mgl64.Vec3{}, false
				}
				shift := unitDir.Mul(t)
				currOrigin = currOrigin.Add(shift)
				maxBound = math.MaxFloat64
				simplex.ModifyPoints(func(pt *CSOPoint) { *pt = pt.Translate(shift.Mul(-1)) })
				lastChance = false
			}
		} else if dir.Dot(unitDir) > epsTol {
			return 0, mgl64.Vec3{}, false
		}

		if lastChance {
			return 0, mgl64.Vec3{}, false
		}

		minBound := -dir.Dot(supportPoint.Point.Sub(currOrigin))

		if maxBound-minBound <= epsRel*maxBound {
			return 0, mgl64.Vec3{}, false
		}

		simplex.AddPoint(supportPoint.Translate(currOrigin.Mul(-1)))
		proj = simplex.ProjectOriginAndReduce()

		if simplex.Dimension() == Dim {
			if minBound >= epsTol {
				return 0, mgl64.Vec3{}, false
			}
			return ltoi / rayLength, ldir, true
		}

		niter++
		if niter == maxIterations {
			return 0, mgl64.Vec3{}, false
		}
	}
}

// rayTOIWithHalfspace returns the parameter t >= 0 at which ray crosses
// the plane through point with normal n, or false if the ray is parallel
// to that plane or the crossing lies behind the ray's origin.
func rayTOIWithHalfspace(point, n mgl64.Vec3, ray Ray) (float64, bool) {
	denom := n.Dot(ray.Dir)
	if math.Abs(denom) < 1e-12 {
		return 0, false
	}
	t := n.Dot(point.Sub(ray.Origin)) / denom
	if t < 0 {
		return 0, false
	}
	return t, true
}
