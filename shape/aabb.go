package shape

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis-aligned bounding box, carrying the Minkowski-sum
// bookkeeping the BVH visitor needs (Center, HalfExtents,
// DistanceToOrigin) alongside the usual overlap tests.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// ContainsPoint reports whether point lies within the box.
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Overlaps reports whether two AABBs intersect.
func (a AABB) Overlaps(other AABB) bool {
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

// Center returns the midpoint of the box.
func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// HalfExtents returns half the box's full width/height/depth.
func (a AABB) HalfExtents() mgl64.Vec3 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

// Merge returns the smallest AABB enclosing both a and other.
func (a AABB) Merge(other AABB) AABB {
	return AABB{
		Min: mgl64.Vec3{min(a.Min.X(), other.Min.X()), min(a.Min.Y(), other.Min.Y()), min(a.Min.Z(), other.Min.Z())},
		Max: mgl64.Vec3{max(a.Max.X(), other.Max.X()), max(a.Max.Y(), other.Max.Y()), max(a.Max.Z(), other.Max.Z())},
	}
}

// Shift translates the box by v.
func (a AABB) Shift(v mgl64.Vec3) AABB {
	return AABB{Min: a.Min.Add(v), Max: a.Max.Add(v)}
}

// DistanceToOrigin returns the Euclidean distance from the origin to the
// closest point of the box, 0 when the origin is inside. This is the
// scalar the BVH best-first visitor keys its traversal on, applied to
// the Minkowski sum of the query shape's bound and a node's bound.
func (a AABB) DistanceToOrigin() float64 {
	clamp := func(lo, hi float64) float64 {
		if lo > 0 {
			return lo
		}
		if hi < 0 {
			return hi
		}
		return 0
	}
	dx := clamp(a.Min.X(), a.Max.X())
	dy := clamp(a.Min.Y(), a.Max.Y())
	dz := clamp(a.Min.Z(), a.Max.Z())
	return mgl64.Vec3{dx, dy, dz}.Len()
}

// CastLocalRay clips the ray origin + t*dir against the box via slab
// intersection, returning the entry parameter t in [0, maxToi] and
// whether the ray hits at all within that range.
func (a AABB) CastLocalRay(origin, dir mgl64.Vec3, maxToi float64) (float64, bool) {
	tmin, tmax := 0.0, maxToi
	for k := 0; k < 3; k++ {
		if math.Abs(dir[k]) < 1e-12 {
			if origin[k] < a.Min[k] || origin[k] > a.Max[k] {
				return 0, false
			}
			continue
		}
		inv := 1 / dir[k]
		t1 := (a.Min[k] - origin[k]) * inv
		t2 := (a.Max[k] - origin[k]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}
