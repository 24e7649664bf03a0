package shape

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// The concrete shapes below are a minimal set of convex primitives: GJK,
// EPA, and the BVH visitor only ever touch shapes through SupportMap, but
// they need something concrete to query in order to be exercised and
// tested.

// Sphere is a ball of the given radius centered on its local origin.
// Shapes whose support points all have Z()==0 behave as their 2D
// analogue (Circle) embedded in the XY plane; EPA's 2D path (epa.Epa2D)
// relies on this to reuse the same CSOPoint/SupportMap machinery for
// both dimensions.
type Sphere struct {
	Radius float64
}

func (s Sphere) LocalSupportPoint(dir mgl64.Vec3) mgl64.Vec3 {
	n := dir.Len()
	if n < 1e-12 {
		return mgl64.Vec3{s.Radius, 0, 0}
	}
	return dir.Mul(s.Radius / n)
}

func (s Sphere) ComputeAABB(pos Isometry) AABB {
	r := mgl64.Vec3{s.Radius, s.Radius, s.Radius}
	return AABB{Min: pos.Position.Sub(r), Max: pos.Position.Add(r)}
}

// ShapeTag identifies Sphere for the dispatch package's tagged-union
// dispatch table.
func (Sphere) ShapeTag() string { return "sphere" }

// Circle is Sphere restricted to the XY plane (Radius==0 in Z), used by
// the 2D test scenarios (unit discs) so that their support points are
// exact CSOPoint/Vec3 triples with Z() == 0.
type Circle struct {
	Radius float64
}

func (c Circle) LocalSupportPoint(dir mgl64.Vec3) mgl64.Vec3 {
	n := math.Hypot(dir.X(), dir.Y())
	if n < 1e-12 {
		return mgl64.Vec3{c.Radius, 0, 0}
	}
	return mgl64.Vec3{dir.X() * c.Radius / n, dir.Y() * c.Radius / n, 0}
}

func (c Circle) ComputeAABB(pos Isometry) AABB {
	r := mgl64.Vec3{c.Radius, c.Radius, 0}
	return AABB{Min: pos.Position.Sub(r), Max: pos.Position.Add(r)}
}

// ShapeTag identifies Circle for the dispatch package's tagged-union
// dispatch table.
func (Circle) ShapeTag() string { return "circle" }

// Box is an axis-aligned-in-local-space rectangular prism; its support
// point is the corner whose signs follow the query direction.
type Box struct {
	HalfExtents mgl64.Vec3
}

func (b Box) LocalSupportPoint(dir mgl64.Vec3) mgl64.Vec3 {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()
	if dir.X() < 0 {
		hx = -hx
	}
	if dir.Y() < 0 {
		hy = -hy
	}
	if dir.Z() < 0 {
		hz = -hz
	}
	return mgl64.Vec3{hx, hy, hz}
}

func (b Box) ComputeAABB(pos Isometry) AABB {
	corners := [8]mgl64.Vec3{
		{-b.HalfExtents.X(), -b.HalfExtents.Y(), -b.HalfExtents.Z()},
		{+b.HalfExtents.X(), -b.HalfExtents.Y(), -b.HalfExtents.Z()},
		{-b.HalfExtents.X(), +b.HalfExtents.Y(), -b.HalfExtents.Z()},
		{+b.HalfExtents.X(), +b.HalfExtents.Y(), -b.HalfExtents.Z()},
		{-b.HalfExtents.X(), -b.HalfExtents.Y(), +b.HalfExtents.Z()},
		{+b.HalfExtents.X(), -b.HalfExtents.Y(), +b.HalfExtents.Z()},
		{-b.HalfExtents.X(), +b.HalfExtents.Y(), +b.HalfExtents.Z()},
		{+b.HalfExtents.X(), +b.HalfExtents.Y(), +b.HalfExtents.Z()},
	}
	world := pos.Apply(corners[0])
	lo, hi := world, world
	for i := 1; i < 8; i++ {
		world = pos.Apply(corners[i])
		lo = mgl64.Vec3{math.Min(lo.X(), world.X()), math.Min(lo.Y(), world.Y()), math.Min(lo.Z(), world.Z())}
		hi = mgl64.Vec3{math.Max(hi.X(), world.X()), math.Max(hi.Y(), world.Y()), math.Max(hi.Z(), world.Z())}
	}
	return AABB{Min: lo, Max: hi}
}

// ShapeTag identifies Box for the dispatch package's tagged-union
// dispatch table.
func (Box) ShapeTag() string { return "box" }

// Point is a degenerate zero-extent shape: its own support point in every
// direction. Useful as the query shape in a composite-vs-point BVH query.
// gjk.ProjectOrigin uses its own gjk.ConstantOrigin for the same role.
type Point struct{}

func (Point) LocalSupportPoint(mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{}
}

func (Point) ComputeAABB(pos Isometry) AABB {
	return AABB{Min: pos.Position, Max: pos.Position}
}

// ShapeTag identifies Point for the dispatch package's tagged-union
// dispatch table.
func (Point) ShapeTag() string { return "point" }

// Segment is a line segment between A and B in local space.
type Segment struct {
	A, B mgl64.Vec3
}

func (s Segment) LocalSupportPoint(dir mgl64.Vec3) mgl64.Vec3 {
	if s.A.Dot(dir) >= s.B.Dot(dir) {
		return s.A
	}
	return s.B
}

func (s Segment) ComputeAABB(pos Isometry) AABB {
	a, b := pos.Apply(s.A), pos.Apply(s.B)
	return AABB{
		Min: mgl64.Vec3{math.Min(a.X(), b.X()), math.Min(a.Y(), b.Y()), math.Min(a.Z(), b.Z())},
		Max: mgl64.Vec3{math.Max(a.X(), b.X()), math.Max(a.Y(), b.Y()), math.Max(a.Z(), b.Z())},
	}
}

// ShapeTag identifies Segment for the dispatch package's tagged-union
// dispatch table.
func (Segment) ShapeTag() string { return "segment" }

// Triangle is a flat 2D triangle (Z()==0 vertices), used by the
// vertex-vertex EPA scenario.
type Triangle struct {
	A, B, C mgl64.Vec3
}

func (t Triangle) LocalSupportPoint(dir mgl64.Vec3) mgl64.Vec3 {
	best := t.A
	bestDot := t.A.Dot(dir)
	for _, v := range [2]mgl64.Vec3{t.B, t.C} {
		if d := v.Dot(dir); d > bestDot {
			best, bestDot = v, d
		}
	}
	return best
}

func (t Triangle) ComputeAABB(pos Isometry) AABB {
	a, b, c := pos.Apply(t.A), pos.Apply(t.B), pos.Apply(t.C)
	lo := mgl64.Vec3{math.Min(a.X(), math.Min(b.X(), c.X())), math.Min(a.Y(), math.Min(b.Y(), c.Y())), math.Min(a.Z(), math.Min(b.Z(), c.Z()))}
	hi := mgl64.Vec3{math.Max(a.X(), math.Max(b.X(), c.X())), math.Max(a.Y(), math.Max(b.Y(), c.Y())), math.Max(a.Z(), math.Max(b.Z(), c.Z()))}
	return AABB{Min: lo, Max: hi}
}

// ShapeTag identifies Triangle for the dispatch package's tagged-union
// dispatch table.
func (Triangle) ShapeTag() string { return "triangle" }
