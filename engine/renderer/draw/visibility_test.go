package draw

import (
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

func lookDownNegZ() math.Frustum {
	view := math.NewMat4LookAt(math.NewVec3(0, 0, 0), math.NewVec3(0, 0, -1), math.NewVec3(0, 1, 0))
	proj := math.NewMat4Perspective(float32(gomath.Pi/4), 16.0/9.0, 0.1, 100)
	return math.NewFrustumFromMatrix(proj.Mul(view))
}

func TestComputeVisibleCubesAroundCamera(t *testing.T) {
	r := NewRegistry()
	mesh := testMesh()

	front := r.PushGroup(math.NewMat4Translation(math.NewVec3(0, 0, -5)), mesh.AABB, nil, nil)
	behind := r.PushGroup(math.NewMat4Translation(math.NewVec3(0, 0, 5)), mesh.AABB, nil, nil)
	r.PushDrawCall(front, mesh, metadata.NewMaterial(), false)
	r.PushDrawCall(behind, mesh, metadata.NewMaterial(), false)

	r.ComputeVisible(lookDownNegZ())

	assert.True(t, r.Groups()[front].Visible())
	assert.False(t, r.Groups()[behind].Visible())
}

func TestComputeVisibleIsReplayable(t *testing.T) {
	r := NewRegistry()
	mesh := testMesh()
	g := r.PushGroup(math.NewMat4Translation(math.NewVec3(0, 0, -5)), mesh.AABB, nil, nil)
	r.PushDrawCall(g, mesh, metadata.NewMaterial(), false)

	frustumA := lookDownNegZ()
	viewB := math.NewMat4LookAt(math.NewVec3(0, 0, 0), math.NewVec3(0, 0, 1), math.NewVec3(0, 1, 0))
	projB := math.NewMat4Perspective(float32(gomath.Pi/4), 16.0/9.0, 0.1, 100)
	frustumB := math.NewFrustumFromMatrix(projB.Mul(viewB))

	r.ComputeVisible(frustumA)
	first := r.Groups()[g].Visible()
	assert.True(t, first)

	r.ComputeVisible(frustumB)
	assert.False(t, r.Groups()[g].Visible())

	// Bucket contents never change, only the overlay.
	assert.Len(t, r.Bucket(TechniqueDeferred).Plain, 1)

	r.ComputeVisible(frustumA)
	assert.Equal(t, first, r.Groups()[g].Visible())
}

func TestComputeVisibleNoBoundsAlwaysVisible(t *testing.T) {
	r := NewRegistry()
	mesh := testMesh()
	g := r.PushGroup(math.NewMat4Translation(math.NewVec3(0, 0, 500)), math.AABB{}, nil, nil)
	r.PushDrawCall(g, mesh, metadata.NewMaterial(), false)

	r.ComputeVisible(lookDownNegZ())
	assert.True(t, r.Groups()[g].Visible())
}

func TestComputeVisibleUsesInstancedCombinedBounds(t *testing.T) {
	r := NewRegistry()
	mesh := testMesh()

	// Per-mesh box is behind the camera, combined instanced box in front.
	inst := &InstanceDescriptor{
		Transforms: []math.Mat4{math.NewMat4Identity()},
		Count:      1,
		AABB: math.AABB{
			Min: math.NewVec3(-1, -1, -6),
			Max: math.NewVec3(1, 1, -4),
		},
	}
	g := r.PushGroup(math.NewMat4Identity(), math.AABB{Min: math.NewVec3(-1, -1, 4), Max: math.NewVec3(1, 1, 6)}, nil, inst)
	r.PushDrawCall(g, mesh, metadata.NewMaterial(), false)

	r.ComputeVisible(lookDownNegZ())
	assert.True(t, r.Groups()[g].Visible())
}

func TestSetAllVisible(t *testing.T) {
	r := NewRegistry()
	mesh := testMesh()
	g := r.PushGroup(math.NewMat4Translation(math.NewVec3(0, 0, 5)), mesh.AABB, nil, nil)
	r.PushDrawCall(g, mesh, metadata.NewMaterial(), false)

	r.ComputeVisible(lookDownNegZ())
	assert.False(t, r.Groups()[g].Visible())

	r.SetAllVisible()
	assert.True(t, r.Groups()[g].Visible())
}
