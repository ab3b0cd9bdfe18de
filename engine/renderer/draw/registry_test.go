package draw

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

func testMesh() *metadata.Mesh {
	return &metadata.Mesh{
		Name:         "cube",
		VertexBuffer: 1,
		IndexBuffer:  2,
		IndexCount:   36,
		AABB: math.AABB{
			Min: math.NewVec3(-0.5, -0.5, -0.5),
			Max: math.NewVec3(0.5, 0.5, 0.5),
		},
	}
}

func TestRegistryClassification(t *testing.T) {
	r := NewRegistry()
	mesh := testMesh()
	g := r.PushGroup(math.NewMat4Identity(), mesh.AABB, nil, nil)

	opaque := metadata.NewMaterial()
	r.PushDrawCall(g, mesh, opaque, false)
	assert.Len(t, r.Bucket(TechniqueDeferred).Plain, 1)
	assert.Empty(t, r.Bucket(TechniqueForward).Plain)

	alpha := metadata.NewMaterial()
	alpha.Transparency = metadata.TransparencyAlpha
	r.PushDrawCall(g, mesh, alpha, false)
	assert.Len(t, r.Bucket(TechniqueForward).Plain, 1)

	additive := metadata.NewMaterial()
	additive.Blend = metadata.BlendAdditive
	r.PushDrawCall(g, mesh, additive, false)
	assert.Len(t, r.Bucket(TechniqueForward).Plain, 2)
	assert.Len(t, r.Bucket(TechniqueDeferred).Plain, 1)
}

func TestRegistryPrepassMirroredIntoForward(t *testing.T) {
	r := NewRegistry()
	mesh := testMesh()
	g := r.PushGroup(math.NewMat4Identity(), mesh.AABB, nil, nil)

	mat := metadata.NewMaterial()
	mat.Transparency = metadata.TransparencyPrepass
	r.PushDrawCall(g, mesh, mat, false)

	assert.Len(t, r.Bucket(TechniquePrepass).Plain, 1)
	assert.Len(t, r.Bucket(TechniqueForward).Plain, 1)
	assert.Empty(t, r.Bucket(TechniqueDeferred).Plain)
	assert.Same(t, r.Bucket(TechniquePrepass).Plain[0], r.Bucket(TechniqueForward).Plain[0])
}

func TestRegistryDecalRouteWinsOverTransparency(t *testing.T) {
	r := NewRegistry()
	mesh := testMesh()
	g := r.PushGroup(math.NewMat4Identity(), mesh.AABB, nil, nil)

	mat := metadata.NewMaterial()
	mat.Transparency = metadata.TransparencyAlpha
	r.PushDrawCall(g, mesh, mat, true)

	assert.Len(t, r.Bucket(TechniqueDecal).Plain, 1)
	assert.Empty(t, r.Bucket(TechniqueForward).Plain)
}

func TestRegistryInstancedSubList(t *testing.T) {
	r := NewRegistry()
	mesh := testMesh()

	inst := &InstanceDescriptor{
		Transforms: []math.Mat4{math.NewMat4Identity(), math.NewMat4Translation(math.NewVec3(2, 0, 0))},
		Count:      2,
	}
	g := r.PushGroup(math.NewMat4Identity(), mesh.AABB, nil, inst)
	r.PushDrawCall(g, mesh, metadata.NewMaterial(), false)

	assert.Empty(t, r.Bucket(TechniqueDeferred).Plain)
	assert.Len(t, r.Bucket(TechniqueDeferred).Instanced, 1)
}

func TestRegistrySilentDrops(t *testing.T) {
	r := NewRegistry()
	mesh := testMesh()

	g := r.PushGroup(math.NewMat4Identity(), mesh.AABB, nil, &InstanceDescriptor{Count: 0})
	assert.Equal(t, InvalidGroup, g)
	r.PushDrawCall(g, mesh, metadata.NewMaterial(), false)

	g2 := r.PushGroup(math.NewMat4Identity(), mesh.AABB, nil, &InstanceDescriptor{Count: 4})
	assert.Equal(t, InvalidGroup, g2)

	ok := r.PushGroup(math.NewMat4Identity(), mesh.AABB, nil, nil)
	r.PushDrawCall(ok, nil, metadata.NewMaterial(), false)
	r.PushDrawCall(ok, &metadata.Mesh{VertexBuffer: 1}, metadata.NewMaterial(), false)

	for i := Technique(0); i < TechniqueCount; i++ {
		assert.True(t, r.Bucket(i).Empty())
	}
}

func TestRegistryReset(t *testing.T) {
	r := NewRegistry()
	mesh := testMesh()
	g := r.PushGroup(math.NewMat4Identity(), mesh.AABB, nil, nil)
	r.PushDrawCall(g, mesh, metadata.NewMaterial(), false)

	r.Reset()
	assert.Empty(t, r.Groups())
	assert.True(t, r.Bucket(TechniqueDeferred).Empty())
}
