package bvh_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/kestrelphys/proximity/bvh"
	"github.com/kestrelphys/proximity/dispatch"
	"github.com/kestrelphys/proximity/shape"
	"github.com/stretchr/testify/require"
)

func TestCompositeDistance(t *testing.T) {
	t.Run("finds the nearest of three parts and its id", func(t *testing.T) {
		parts := []shape.Part{
			{Pose: shape.Isometry{Rotation: mgl64.QuatIdent()}, Shape: shape.Sphere{Radius: 1}},
			{Pose: shape.Isometry{Position: mgl64.Vec3{5, 0, 0}, Rotation: mgl64.QuatIdent()}, Shape: shape.Sphere{Radius: 1}},
			{Pose: shape.Isometry{Position: mgl64.Vec3{10, 0, 0}, Rotation: mgl64.QuatIdent()}, Shape: shape.Sphere{Radius: 1}},
		}
		composite := shape.NewCompositeShape(parts)
		query := shape.Point{}
		pos12 := shape.Isometry{Position: mgl64.Vec3{12, 0, 0}, Rotation: mgl64.QuatIdent()}

		dispatcher := dispatch.NewDefaultDispatcher()
		result := bvh.CompositeDistance(pos12, composite, query, dispatcher.Distance)

		require.Equal(t, 2, result.PartID)
		require.InDelta(t, 1.0, result.Distance, 1e-6)
	})

	t.Run("exits early with distance zero when a part is touched", func(t *testing.T) {
		parts := []shape.Part{
			{Pose: shape.Isometry{Rotation: mgl64.QuatIdent()}, Shape: shape.Sphere{Radius: 1}},
			{Pose: shape.Isometry{Position: mgl64.Vec3{5, 0, 0}, Rotation: mgl64.QuatIdent()}, Shape: shape.Sphere{Radius: 1}},
		}
		composite := shape.NewCompositeShape(parts)
		query := shape.Point{}
		pos12 := shape.Isometry{Position: mgl64.Vec3{0.5, 0, 0}, Rotation: mgl64.QuatIdent()}

		dispatcher := dispatch.NewDefaultDispatcher()
		result := bvh.CompositeDistance(pos12, composite, query, dispatcher.Distance)

		require.Equal(t, 0, result.PartID)
		require.Equal(t, 0.0, result.Distance)
	})

	t.Run("traversal prunes subtrees that cannot beat the best distance", func(t *testing.T) {
		parts := make([]shape.Part, 0, 16)
		for i := 0; i < 16; i++ {
			parts = append(parts, shape.Part{
				Pose:  shape.Isometry{Position: mgl64.Vec3{float64(i * 4), 0, 0}, Rotation: mgl64.QuatIdent()},
				Shape: shape.Sphere{Radius: 1},
			})
		}
		composite := shape.NewCompositeShape(parts)
		pos12 := shape.Isometry{Position: mgl64.Vec3{33, 0, 0}, Rotation: mgl64.QuatIdent()}

		calls := 0
		counting := func(p shape.Isometry, g1, g2 shape.SupportMap) float64 {
			calls++
			return dispatch.NewDefaultDispatcher().Distance(p, g1, g2)
		}
		result := bvh.CompositeDistance(pos12, composite, shape.Point{}, counting)

		require.Equal(t, 8, result.PartID)
		require.InDelta(t, 0.0, result.Distance, 1e-6)
		require.Less(t, calls, len(parts), "the lower bound must prune most leaves")
	})

	t.Run("panics on an empty composite", func(t *testing.T) {
		composite := shape.NewCompositeShape(nil)
		dispatcher := dispatch.NewDefaultDispatcher()
		require.Panics(t, func() {
			bvh.CompositeDistance(shape.Identity(), composite, shape.Point{}, dispatcher.Distance)
		})
	})
}

func TestRayIntersections(t *testing.T) {
	parts := []shape.Part{
		{Pose: shape.Isometry{Rotation: mgl64.QuatIdent()}, Shape: shape.Sphere{Radius: 1}},
		{Pose: shape.Isometry{Position: mgl64.Vec3{10, 0, 0}, Rotation: mgl64.QuatIdent()}, Shape: shape.Sphere{Radius: 1}},
		{Pose: shape.Isometry{Position: mgl64.Vec3{0, 10, 0}, Rotation: mgl64.QuatIdent()}, Shape: shape.Sphere{Radius: 1}},
	}
	composite := shape.NewCompositeShape(parts)

	t.Run("collects every leaf whose box the ray crosses", func(t *testing.T) {
		hit := map[int]bool{}
		completed := bvh.RayIntersections(composite.TypedTree(), mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{1, 0, 0}, 100, func(partID int) bool {
			hit[partID] = true
			return true
		})

		require.True(t, completed)
		require.True(t, hit[0])
		require.True(t, hit[1])
		require.False(t, hit[2])
	})

	t.Run("stops when the callback declines further hits", func(t *testing.T) {
		calls := 0
		completed := bvh.RayIntersections(composite.TypedTree(), mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{1, 0, 0}, 100, func(int) bool {
			calls++
			return false
		})

		require.False(t, completed)
		require.Equal(t, 1, calls)
	})

	t.Run("a capped ray stops short of distant leaves", func(t *testing.T) {
		hit := map[int]bool{}
		bvh.RayIntersections(composite.TypedTree(), mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{1, 0, 0}, 5, func(partID int) bool {
			hit[partID] = true
			return true
		})

		require.True(t, hit[0])
		require.False(t, hit[1])
	})
}
