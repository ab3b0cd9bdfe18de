package math

import (
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// testViewProj looks down -Z from the origin with a 90 degree vertical fov,
// so the frustum half-extent at depth d is d.
func testViewProj() Mat4 {
	proj := NewMat4Perspective(float32(gomath.Pi/2), 1, 0.1, 100)
	view := NewMat4LookAt(NewVec3(0, 0, 0), NewVec3(0, 0, -1), NewVec3(0, 1, 0))
	return proj.Mul(view)
}

func TestFrustumContainsPoint(t *testing.T) {
	f := NewFrustumFromMatrix(testViewProj())

	cases := []struct {
		name  string
		point Vec3
		want  bool
	}{
		{"center of the view volume", NewVec3(0, 0, -5), true},
		{"near the left plane, inside", NewVec3(-4, 0, -5), true},
		{"past the left plane", NewVec3(-6, 0, -5), false},
		{"past the top plane", NewVec3(0, 6, -5), false},
		{"behind the camera", NewVec3(0, 0, 5), false},
		{"closer than the near plane", NewVec3(0, 0, -0.05), false},
		{"beyond the far plane", NewVec3(0, 0, -150), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, f.ContainsPoint(tc.point))
		})
	}
}

func TestFrustumContainsAABB(t *testing.T) {
	f := NewFrustumFromMatrix(testViewProj())

	cases := []struct {
		name string
		box  AABB
		want bool
	}{
		{"fully inside", NewAABB(NewVec3(-1, -1, -6), NewVec3(1, 1, -4)), true},
		{"straddling the left plane", NewAABB(NewVec3(-8, -1, -6), NewVec3(-4, 1, -4)), true},
		{"fully past the right plane", NewAABB(NewVec3(50, -1, -6), NewVec3(60, 1, -4)), false},
		{"fully behind the camera", NewAABB(NewVec3(-1, -1, 4), NewVec3(1, 1, 6)), false},
		{"enclosing the whole frustum", NewAABB(NewVec3(-200, -200, -300), NewVec3(200, 200, 300)), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, f.ContainsAABB(tc.box))
		})
	}
}

func TestFrustumContainsSphere(t *testing.T) {
	f := NewFrustumFromMatrix(testViewProj())

	// Center outside the left plane, radius reaching back in.
	assert.True(t, f.ContainsSphere(NewVec3(-6, 0, -5), 2))
	assert.False(t, f.ContainsSphere(NewVec3(-6, 0, -5), 0.5))
}

func TestScreenRect(t *testing.T) {
	vp := testViewProj()

	// A centered box maps to a centered rectangle.
	rect := ScreenRect(NewAABB(NewVec3(-1, -1, -11), NewVec3(1, 1, -9)), vp, 200, 100)
	assert.Greater(t, rect.W, int32(0))
	assert.Greater(t, rect.H, int32(0))
	assert.Less(t, rect.X, int32(100))
	assert.Greater(t, rect.X+rect.W, int32(100))
	assert.Less(t, rect.Y, int32(50))
	assert.Greater(t, rect.Y+rect.H, int32(50))

	// Boxes crossing the near plane degrade to the full viewport.
	full := ScreenRect(NewAABB(NewVec3(-1, -1, -1), NewVec3(1, 1, 1)), vp, 200, 100)
	assert.Equal(t, Rect{X: 0, Y: 0, W: 200, H: 100}, full)
}
