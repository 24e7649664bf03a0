// Package dispatch provides the polymorphic entry point the BVH visitor
// calls at each composite leaf, plus a goroutine worker-pool helper for
// running independent queries concurrently.
package dispatch

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/kestrelphys/proximity/epa"
	"github.com/kestrelphys/proximity/gjk"
	"github.com/kestrelphys/proximity/shape"
)

// Dispatcher is the consumed contract: distance(pos12, g1, g2) -> Real.
type Dispatcher interface {
	Distance(pos12 shape.Isometry, g1, g2 shape.SupportMap) float64
}

// tagPair keys the default dispatcher's table: a closed tagged union of
// shape kinds dispatched by their (tag1, tag2) pair.
type tagPair struct{ a, b string }

// DistanceFunc is a per-pair entry in the dispatch table.
type DistanceFunc func(pos12 shape.Isometry, g1, g2 shape.SupportMap) float64

// DefaultDispatcher routes shape pairs through a dispatch table keyed on
// their ShapeTag() pair, falling back to the generic GJK/EPA path for any
// pair without a special-cased entry (exactly the relationship between a
// physics dispatcher's analytic fast paths and its generic convex-convex
// fallback).
type DefaultDispatcher struct {
	table map[tagPair]DistanceFunc
}

// NewDefaultDispatcher builds a dispatcher with the sphere-sphere and
// circle-circle analytic fast paths registered, falling back to
// genericConvexDistance for every other pair.
func NewDefaultDispatcher() *DefaultDispatcher {
	d := &DefaultDispatcher{table: make(map[tagPair]DistanceFunc)}
	d.Register("sphere", "sphere", sphereSphereDistance)
	d.Register("circle", "circle", circleCircleDistance)
	return d
}

// Register installs (or replaces) the distance function used for shapes
// tagged tag1 against tag2. Tag pairs are symmetric: registering (a, b)
// also serves queries dispatched as (b, a), transposing pos12.
func (d *DefaultDispatcher) Register(tag1, tag2 string, fn DistanceFunc) {
	d.table[tagPair{tag1, tag2}] = fn
	if tag1 != tag2 {
		d.table[tagPair{tag2, tag1}] = func(pos12 shape.Isometry, g1, g2 shape.SupportMap) float64 {
			return fn(pos12.Inverse(), g2, g1)
		}
	}
}

type tagged interface{ ShapeTag() string }

// Distance implements Dispatcher, routing through the tag-pair table when
// both shapes carry a ShapeTag and a matching entry exists, otherwise
// falling back to the generic convex-convex path.
func (d *DefaultDispatcher) Distance(pos12 shape.Isometry, g1, g2 shape.SupportMap) float64 {
	t1, ok1 := g1.(tagged)
	t2, ok2 := g2.(tagged)
	if ok1 && ok2 {
		if fn, ok := d.table[tagPair{t1.ShapeTag(), t2.ShapeTag()}]; ok {
			return fn(pos12, g1, g2)
		}
	}
	return genericConvexDistance(pos12, g1, g2)
}

// genericConvexDistance is the fallback path for any shape pair: it
// drives GJK alone to answer the separated case. On Intersection,
// Distance itself still reports 0 (there is no positive separation);
// callers that need the overlap depth use PenetrationDepth, which runs
// its own GJK pass and hands the resulting simplex to EPA.
func genericConvexDistance(pos12 shape.Isometry, g1, g2 shape.SupportMap) float64 {
	simplex := gjk.AcquireSimplex()
	defer gjk.ReleaseSimplex(simplex)
	initDir := pos12.Position
	if initDir.LenSqr() < 1e-12 {
		initDir = mgl64.Vec3{1, 0, 0}
	}
	simplex.Reset(gjk.FromShapes(pos12, g1, g2, initDir))

	res := gjk.ClosestPoints(pos12, g1, g2, math.MaxFloat64, true, simplex)
	switch res.Kind {
	case gjk.KindClosestPoints:
		return res.P1.Sub(pos12.Apply(res.P2)).Len()
	case gjk.KindProximity, gjk.KindNoIntersection:
		return math.MaxFloat64
	default: // KindIntersection: overlapping, distance is 0 by definition
		return 0
	}
}

// PenetrationDepth runs GJK to detect overlap and, when the shapes
// overlap, hands the resulting simplex to EPA for the penetration depth
// and contact normal, which Distance's Real-only contract cannot
// surface. is2D selects Epa2D (segment faces) over Epa3D (triangle
// faces on a tetrahedral seed).
func PenetrationDepth(pos12 shape.Isometry, g1, g2 shape.SupportMap, is2D bool) (depth float64, normal mgl64.Vec3, ok bool) {
	simplex := gjk.AcquireSimplex()
	defer gjk.ReleaseSimplex(simplex)
	simplex.Reset(gjk.FromShapes(pos12, g1, g2, mgl64.Vec3{1, 0, 0}))

	res := gjk.ClosestPoints(pos12, g1, g2, math.MaxFloat64, true, simplex)
	if res.Kind != gjk.KindIntersection {
		return 0, mgl64.Vec3{}, false
	}

	var p1, p2, n mgl64.Vec3
	var epaOK bool
	if is2D {
		e := epa.AcquireEpa2D()
		defer epa.ReleaseEpa2D(e)
		p1, p2, n, epaOK = e.ClosestPoints(pos12, g1, g2, simplex)
	} else {
		e := epa.AcquireEpa3D()
		defer epa.ReleaseEpa3D(e)
		p1, p2, n, epaOK = e.ClosestPoints(pos12, g1, g2, simplex)
	}
	if !epaOK {
		return 0, mgl64.Vec3{}, false
	}
	return p1.Sub(pos12.Apply(p2)).Len(), n, true
}

func sphereSphereDistance(pos12 shape.Isometry, g1, g2 shape.SupportMap) float64 {
	s1, s2 := g1.(shape.Sphere), g2.(shape.Sphere)
	centerDist := pos12.Position.Len()
	d := centerDist - s1.Radius - s2.Radius
	if d < 0 {
		return 0
	}
	return d
}

func circleCircleDistance(pos12 shape.Isometry, g1, g2 shape.SupportMap) float64 {
	c1, c2 := g1.(shape.Circle), g2.(shape.Circle)
	centerDist := math.Hypot(pos12.Position.X(), pos12.Position.Y())
	d := centerDist - c1.Radius - c2.Radius
	if d < 0 {
		return 0
	}
	return d
}
