package gjk_test

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/kestrelphys/proximity/gjk"
	"github.com/kestrelphys/proximity/shape"
	"github.com/stretchr/testify/require"
)

func seededSimplex(pos12 shape.Isometry, g1, g2 shape.SupportMap) *gjk.VoronoiSimplex {
	s := gjk.New()
	s.Reset(gjk.FromShapes(pos12, g1, g2, mgl64.Vec3{1, 0, 0}))
	return s
}

func TestClosestPoints(t *testing.T) {
	t.Run("separated unit circles report the gap between surfaces", func(t *testing.T) {
		g1 := shape.Circle{Radius: 1}
		g2 := shape.Circle{Radius: 1}
		pos12 := shape.Isometry{Position: mgl64.Vec3{3, 0, 0}, Rotation: mgl64.QuatIdent()}

		simplex := seededSimplex(pos12, g1, g2)
		res := gjk.ClosestPoints(pos12, g1, g2, math.MaxFloat64, true, simplex)

		require.Equal(t, gjk.KindClosestPoints, res.Kind)
		dist := res.P1.Sub(pos12.Apply(res.P2)).Len()
		require.InDelta(t, 1.0, dist, 1e-6)
	})

	t.Run("witness points land on the facing surfaces of separated circles", func(t *testing.T) {
		g1 := shape.Circle{Radius: 1}
		g2 := shape.Circle{Radius: 1}
		pos12 := shape.Isometry{Position: mgl64.Vec3{3, 0, 0}, Rotation: mgl64.QuatIdent()}

		simplex := seededSimplex(pos12, g1, g2)
		res := gjk.ClosestPoints(pos12, g1, g2, math.MaxFloat64, true, simplex)

		require.Equal(t, gjk.KindClosestPoints, res.Kind)
		require.InDelta(t, 0, res.P1.Sub(mgl64.Vec3{1, 0, 0}).Len(), 1e-6)
		require.InDelta(t, 0, pos12.Apply(res.P2).Sub(mgl64.Vec3{2, 0, 0}).Len(), 1e-6)
	})

	t.Run("offset unit cubes separate along the x axis only", func(t *testing.T) {
		g1 := shape.Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}
		g2 := shape.Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}
		pos12 := shape.Isometry{Position: mgl64.Vec3{1.5, 0.5, 0.5}, Rotation: mgl64.QuatIdent()}

		simplex := seededSimplex(pos12, g1, g2)
		res := gjk.ClosestPoints(pos12, g1, g2, math.MaxFloat64, true, simplex)

		require.Equal(t, gjk.KindClosestPoints, res.Kind)
		dist := res.P1.Sub(pos12.Apply(res.P2)).Len()
		require.InDelta(t, 0.5, dist, 1e-6)
		require.InDelta(t, 1.0, math.Abs(res.N.X()), 1e-6)
	})

	t.Run("coarse mode certifies separation without the exact distance", func(t *testing.T) {
		g1 := shape.Circle{Radius: 1}
		g2 := shape.Circle{Radius: 1}
		pos12 := shape.Isometry{Position: mgl64.Vec3{3, 0, 0}, Rotation: mgl64.QuatIdent()}

		simplex := seededSimplex(pos12, g1, g2)
		res := gjk.ClosestPoints(pos12, g1, g2, 100.0, false, simplex)

		require.Equal(t, gjk.KindProximity, res.Kind)
		require.InDelta(t, 1.0, res.N.Len(), 1e-9)
	})

	t.Run("separated unit cubes report 1.0 along the probe axis", func(t *testing.T) {
		g1 := shape.Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}
		g2 := shape.Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}
		pos12 := shape.Isometry{Position: mgl64.Vec3{2, 0, 0}, Rotation: mgl64.QuatIdent()}

		simplex := seededSimplex(pos12, g1, g2)
		res := gjk.ClosestPoints(pos12, g1, g2, math.MaxFloat64, true, simplex)

		require.Equal(t, gjk.KindClosestPoints, res.Kind)
		dist := res.P1.Sub(pos12.Apply(res.P2)).Len()
		require.InDelta(t, 1.0, dist, 1e-6)
	})

	t.Run("overlapping circles report Intersection", func(t *testing.T) {
		g1 := shape.Circle{Radius: 1}
		g2 := shape.Circle{Radius: 1}
		pos12 := shape.Isometry{Position: mgl64.Vec3{0.5, 0, 0}, Rotation: mgl64.QuatIdent()}

		simplex := gjk.New()
		simplex.Reset(gjk.FromShapes(pos12, g1, g2, mgl64.Vec3{1, 0, 0}))
		res := gjk.ClosestPoints(pos12, g1, g2, math.MaxFloat64, true, simplex)

		require.Equal(t, gjk.KindIntersection, res.Kind)
	})

	t.Run("separation beyond maxDist reports NoIntersection", func(t *testing.T) {
		g1 := shape.Circle{Radius: 1}
		g2 := shape.Circle{Radius: 1}
		pos12 := shape.Isometry{Position: mgl64.Vec3{10, 0, 0}, Rotation: mgl64.QuatIdent()}

		simplex := seededSimplex(pos12, g1, g2)
		res := gjk.ClosestPoints(pos12, g1, g2, 1.0, true, simplex)

		require.Equal(t, gjk.KindNoIntersection, res.Kind)
	})

	t.Run("distance is symmetric in its two shape arguments", func(t *testing.T) {
		g1 := shape.Box{HalfExtents: mgl64.Vec3{1, 1, 1}}
		g2 := shape.Sphere{Radius: 0.5}
		pos12 := shape.Isometry{Position: mgl64.Vec3{4, 1, 0}, Rotation: mgl64.QuatIdent()}

		s1 := seededSimplex(pos12, g1, g2)
		r1 := gjk.ClosestPoints(pos12, g1, g2, math.MaxFloat64, true, s1)

		inv := pos12.Inverse()
		s2 := seededSimplex(inv, g2, g1)
		r2 := gjk.ClosestPoints(inv, g2, g1, math.MaxFloat64, true, s2)

		require.Equal(t, gjk.KindClosestPoints, r1.Kind)
		require.Equal(t, gjk.KindClosestPoints, r2.Kind)
		d1 := r1.P1.Sub(pos12.Apply(r1.P2)).Len()
		d2 := r2.P1.Sub(inv.Apply(r2.P2)).Len()
		require.InDelta(t, d1, d2, 1e-6)
	})
}

func TestProjectOrigin(t *testing.T) {
	t.Run("projects onto a circle's boundary when the origin is outside", func(t *testing.T) {
		g := shape.Circle{Radius: 1}
		pos := shape.Isometry{Position: mgl64.Vec3{3, 0, 0}, Rotation: mgl64.QuatIdent()}

		simplex := gjk.New()
		simplex.Reset(gjk.FromShapes(pos.Inverse(), g, gjk.ConstantOrigin{}, mgl64.Vec3{1, 0, 0}))
		p, ok := gjk.ProjectOrigin(pos, g, simplex)

		require.True(t, ok)
		require.InDelta(t, 1.0, p.Len(), 1e-6)
	})
}

func TestCastLocalRay(t *testing.T) {
	t.Run("ray toward a unit circle from 5 units away hits at distance 4", func(t *testing.T) {
		g := shape.Circle{Radius: 1}
		simplex := gjk.New()
		ray := gjk.Ray{Origin: mgl64.Vec3{5, 0, 0}, Dir: mgl64.Vec3{-1, 0, 0}}

		toi, normal, ok := gjk.CastLocalRay(g, simplex, ray, math.MaxFloat64)

		require.True(t, ok)
		require.InDelta(t, 4.0, toi, 1e-4)
		require.Greater(t, normal.Dot(mgl64.Vec3{1, 0, 0}), 0.9)
	})

	t.Run("ray pointing away from the shape misses", func(t *testing.T) {
		g := shape.Circle{Radius: 1}
		simplex := gjk.New()
		ray := gjk.Ray{Origin: mgl64.Vec3{5, 0, 0}, Dir: mgl64.Vec3{1, 0, 0}}

		_, _, ok := gjk.CastLocalRay(g, simplex, ray, math.MaxFloat64)

		require.False(t, ok)
	})
}

func TestDirectionalDistance(t *testing.T) {
	t.Run("closing circles touch after covering the surface gap", func(t *testing.T) {
		g1 := shape.Circle{Radius: 1}
		g2 := shape.Circle{Radius: 1}
		pos12 := shape.Isometry{Position: mgl64.Vec3{5, 0, 0}, Rotation: mgl64.QuatIdent()}

		simplex := gjk.New()
		toi, normal, p1, _, ok := gjk.DirectionalDistance(pos12, g1, g2, mgl64.Vec3{-1, 0, 0}, simplex)

		require.True(t, ok)
		require.InDelta(t, 3.0, toi, 1e-4)
		require.Greater(t, normal.Dot(mgl64.Vec3{1, 0, 0}), 0.9)
		require.InDelta(t, 0, p1.Sub(mgl64.Vec3{1, 0, 0}).Len(), 1e-3)
	})

	t.Run("receding circles never touch", func(t *testing.T) {
		g1 := shape.Circle{Radius: 1}
		g2 := shape.Circle{Radius: 1}
		pos12 := shape.Isometry{Position: mgl64.Vec3{5, 0, 0}, Rotation: mgl64.QuatIdent()}

		simplex := gjk.New()
		_, _, _, _, ok := gjk.DirectionalDistance(pos12, g1, g2, mgl64.Vec3{1, 0, 0}, simplex)

		require.False(t, ok)
	})
}

func TestSeparationBridging(t *testing.T) {
	// Translating the second shape by the reported distance along the
	// reported normal must bring the pair into contact.
	cases := []struct {
		name   string
		g1, g2 shape.SupportMap
		pos    mgl64.Vec3
	}{
		{"circle-circle", shape.Circle{Radius: 1}, shape.Circle{Radius: 1}, mgl64.Vec3{3, 0, 0}},
		{"box-sphere", shape.Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}, shape.Sphere{Radius: 0.5}, mgl64.Vec3{2, 1, 0.5}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			pos12 := shape.Isometry{Position: c.pos, Rotation: mgl64.QuatIdent()}
			simplex := seededSimplex(pos12, c.g1, c.g2)
			res := gjk.ClosestPoints(pos12, c.g1, c.g2, math.MaxFloat64, true, simplex)
			require.Equal(t, gjk.KindClosestPoints, res.Kind)

			dist := res.P1.Sub(pos12.Apply(res.P2)).Len()
			moved := shape.Isometry{Position: pos12.Position.Add(res.N.Mul(-dist)), Rotation: pos12.Rotation}

			simplex2 := seededSimplex(moved, c.g1, c.g2)
			res2 := gjk.ClosestPoints(moved, c.g1, c.g2, math.MaxFloat64, true, simplex2)
			if res2.Kind == gjk.KindClosestPoints {
				require.InDelta(t, 0, res2.P1.Sub(moved.Apply(res2.P2)).Len(), 1e-6)
			} else {
				require.Equal(t, gjk.KindIntersection, res2.Kind)
			}
		})
	}
}

func TestSeparationMonotonicity(t *testing.T) {
	t.Run("reported distance increases monotonically as shapes separate", func(t *testing.T) {
		g1 := shape.Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}
		g2 := shape.Sphere{Radius: 0.5}
		offsets := []float64{1.5, 2.0, 2.5, 3.0, 4.0, 6.0}

		prev := -1.0
		for _, off := range offsets {
			pos12 := shape.Isometry{Position: mgl64.Vec3{off, 0, 0}, Rotation: mgl64.QuatIdent()}
			simplex := seededSimplex(pos12, g1, g2)
			res := gjk.ClosestPoints(pos12, g1, g2, math.MaxFloat64, true, simplex)
			require.Equal(t, gjk.KindClosestPoints, res.Kind)

			dist := res.P1.Sub(pos12.Apply(res.P2)).Len()
			require.GreaterOrEqual(t, dist, prev-1e-9, "distance must not decrease as separation %v grows", off)
			prev = dist
		}
	})
}

func TestVoronoiSimplexReductionIdempotence(t *testing.T) {
	cases := []struct {
		name string
		g1   shape.SupportMap
		g2   shape.SupportMap
		pos  mgl64.Vec3
	}{
		{"vertex seed", shape.Circle{Radius: 1}, shape.Circle{Radius: 1}, mgl64.Vec3{3, 0, 0}},
		{"box pair reducing to a vertex", shape.Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, shape.Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, mgl64.Vec3{3, 0, 0}},
		{"box and sphere reducing to an edge", shape.Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, shape.Sphere{Radius: 0.5}, mgl64.Vec3{2.5, 1, 0.5}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			pos12 := shape.Isometry{Position: c.pos, Rotation: mgl64.QuatIdent()}
			simplex := seededSimplex(pos12, c.g1, c.g2)
			res := gjk.ClosestPoints(pos12, c.g1, c.g2, math.MaxFloat64, true, simplex)
			require.Equal(t, gjk.KindClosestPoints, res.Kind)

			firstDim := simplex.Dimension()
			firstProj := simplex.ProjectOriginAndReduce()

			secondDim := simplex.Dimension()
			secondProj := simplex.ProjectOriginAndReduce()

			require.Equal(t, firstDim, secondDim, "reducing an already-reduced simplex must not change its dimension")
			require.InDelta(t, 0, firstProj.Sub(secondProj).Len(), 1e-9, "re-projecting an already-reduced simplex must return the same point")
		})
	}
}

func TestBarycentricPartition(t *testing.T) {
	cases := []struct {
		name string
		g1   shape.SupportMap
		g2   shape.SupportMap
		pos  mgl64.Vec3
	}{
		{"vertex seed", shape.Circle{Radius: 1}, shape.Circle{Radius: 1}, mgl64.Vec3{3, 0, 0}},
		{"box pair reducing to a vertex", shape.Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, shape.Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, mgl64.Vec3{3, 0, 0}},
		{"box and sphere reducing to an edge", shape.Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, shape.Sphere{Radius: 0.5}, mgl64.Vec3{2.5, 1, 0.5}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			pos12 := shape.Isometry{Position: c.pos, Rotation: mgl64.QuatIdent()}
			simplex := seededSimplex(pos12, c.g1, c.g2)
			res := gjk.ClosestPoints(pos12, c.g1, c.g2, math.MaxFloat64, true, simplex)
			require.Equal(t, gjk.KindClosestPoints, res.Kind)

			simplex.ProjectOriginAndReduce()
			sum := 0.0
			for i := 0; i <= simplex.Dimension(); i++ {
				w := simplex.ProjCoord(i)
				require.GreaterOrEqual(t, w, -1e-9, "barycentric weight %d must be non-negative", i)
				sum += w
			}
			require.InDelta(t, 1.0, sum, 1e-6, "barycentric weights must sum to 1")
		})
	}
}

func TestSupportSoundness(t *testing.T) {
	directions := []mgl64.Vec3{
		{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1},
		{1, 1, 1}, {1, -1, 0.5}, {-0.3, 0.7, -0.2},
	}
	candidates := []mgl64.Vec3{
		{0, 0, 0}, {0.5, 0.5, 0.5}, {-0.5, -0.5, -0.5}, {0.5, -0.5, 0.3},
	}

	shapes := []shape.SupportMap{
		shape.Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}},
		shape.Sphere{Radius: 0.5},
	}

	for si, g := range shapes {
		for _, dir := range directions {
			t.Run("support point maximizes projection onto the query direction", func(t *testing.T) {
				supp := g.LocalSupportPoint(dir)
				suppProj := supp.Dot(dir)
				for _, c := range candidates {
					if c.Len() > 0.5 && si == 1 {
						continue // outside the sphere's radius, not a valid candidate
					}
					require.GreaterOrEqual(t, suppProj, c.Dot(dir)-1e-6)
				}
			})
		}
	}
}

func TestCSOPointFromShapes(t *testing.T) {
	t.Run("CSO point equals p1 minus pos12-transformed p2", func(t *testing.T) {
		g1 := shape.Box{HalfExtents: mgl64.Vec3{1, 1, 1}}
		g2 := shape.Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}
		pos12 := shape.Isometry{Position: mgl64.Vec3{2, 0, 0}, Rotation: mgl64.QuatIdent()}

		pt := gjk.FromShapes(pos12, g1, g2, mgl64.Vec3{1, 0, 0})
		expected := pt.Orig1.Sub(pos12.Apply(pt.Orig2))
		require.InDelta(t, 0, pt.Point.Sub(expected).Len(), 1e-9)
	})
}
