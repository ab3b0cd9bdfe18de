package draw

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

func pushAt(r *Registry, mesh *metadata.Mesh, z float32) {
	g := r.PushGroup(math.NewMat4Translation(math.NewVec3(0, 0, z)), mesh.AABB, nil, nil)
	r.PushDrawCall(g, mesh, metadata.NewMaterial(), false)
}

func bucketDepths(b *Bucket) []float32 {
	out := make([]float32, 0, len(b.Plain))
	for _, c := range b.Plain {
		out = append(out, c.Group.Transform.Translation().Z)
	}
	return out
}

func TestSortBucketFrontToBack(t *testing.T) {
	r := NewRegistry()
	mesh := testMesh()
	pushAt(r, mesh, -30)
	pushAt(r, mesh, -5)
	pushAt(r, mesh, -15)

	b := r.Bucket(TechniqueDeferred)
	SortBucket(b, math.NewVec3(0, 0, 0), SortFrontToBack)
	assert.Equal(t, []float32{-5, -15, -30}, bucketDepths(b))
}

func TestSortBucketBackToFront(t *testing.T) {
	r := NewRegistry()
	mesh := testMesh()
	pushAt(r, mesh, -30)
	pushAt(r, mesh, -5)
	pushAt(r, mesh, -15)

	b := r.Bucket(TechniqueDeferred)
	SortBucket(b, math.NewVec3(0, 0, 0), SortBackToFront)
	assert.Equal(t, []float32{-30, -15, -5}, bucketDepths(b))
}

func TestSortBucketStableOnTies(t *testing.T) {
	r := NewRegistry()
	mesh := testMesh()

	// Equal distance from origin, different submission order.
	pushAt(r, mesh, -10)
	pushAt(r, mesh, 10)

	b := r.Bucket(TechniqueDeferred)
	SortBucket(b, math.NewVec3(0, 0, 0), SortFrontToBack)
	assert.Equal(t, []float32{-10, 10}, bucketDepths(b))

	// Re-sorting is idempotent.
	SortBucket(b, math.NewVec3(0, 0, 0), SortFrontToBack)
	assert.Equal(t, []float32{-10, 10}, bucketDepths(b))
}

func TestSortBucketInstancedUsesCentroid(t *testing.T) {
	r := NewRegistry()
	mesh := testMesh()

	near := &InstanceDescriptor{
		Transforms: []math.Mat4{math.NewMat4Identity()},
		Count:      1,
		AABB:       math.AABB{Min: math.NewVec3(-1, -1, -3), Max: math.NewVec3(1, 1, -1)},
	}
	far := &InstanceDescriptor{
		Transforms: []math.Mat4{math.NewMat4Identity()},
		Count:      1,
		AABB:       math.AABB{Min: math.NewVec3(-1, -1, -30), Max: math.NewVec3(1, 1, -20)},
	}
	gFar := r.PushGroup(math.NewMat4Identity(), math.AABB{}, nil, far)
	gNear := r.PushGroup(math.NewMat4Identity(), math.AABB{}, nil, near)
	r.PushDrawCall(gFar, mesh, metadata.NewMaterial(), false)
	r.PushDrawCall(gNear, mesh, metadata.NewMaterial(), false)

	b := r.Bucket(TechniqueDeferred)
	SortBucket(b, math.NewVec3(0, 0, 0), SortFrontToBack)
	assert.Same(t, r.Groups()[gNear], b.Instanced[0].Group)
	assert.Same(t, r.Groups()[gFar], b.Instanced[1].Group)
}
