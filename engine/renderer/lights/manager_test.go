package lights

import (
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
	"github.com/spaghettifunk/prisma/engine/renderer/rendertest"
)

func testView() *metadata.ViewState {
	cam := metadata.Camera{
		Position: math.NewVec3(0, 0, 0),
		Target:   math.NewVec3(0, 0, -1),
		Up:       math.NewVec3(0, 1, 0),
		FovY:     float32(gomath.Pi / 4),
		Near:     0.1,
		Far:      100,
	}
	v := metadata.NewViewState(cam, 1280, 720)
	return &v
}

func TestUpdateAndCullOmniInAndOutOfView(t *testing.T) {
	m := NewManager(rendertest.New(), 1024)

	inside := m.CreateLight(LightOmni)
	inside.SetPosition(math.NewVec3(0, 0, -20))
	inside.SetRange(5)

	behind := m.CreateLight(LightOmni)
	behind.SetPosition(math.NewVec3(0, 0, 50))
	behind.SetRange(5)

	m.UpdateAndCull(testView(), 1280, 720)

	require.Len(t, m.Visible(), 1)
	assert.True(t, inside.Visible())
	assert.False(t, behind.Visible())
}

func TestDirectionalAlwaysVisibleFullRect(t *testing.T) {
	m := NewManager(rendertest.New(), 1024)
	sun := m.CreateLight(LightDirectional)
	sun.SetDirection(math.NewVec3(0, -1, 0))

	m.UpdateAndCull(testView(), 1280, 720)

	require.Len(t, m.Visible(), 1)
	rect := sun.ScreenRect()
	assert.Equal(t, int32(0), rect.X)
	assert.Equal(t, int32(0), rect.Y)
	assert.Equal(t, int32(1280), rect.W)
	assert.Equal(t, int32(720), rect.H)
}

func TestOmniBuildsSixFaces(t *testing.T) {
	m := NewManager(rendertest.New(), 1024)
	l := m.CreateLight(LightOmni)
	l.SetPosition(math.NewVec3(0, 0, -10))
	l.SetRange(8)

	m.UpdateAndCull(testView(), 1280, 720)

	assert.Equal(t, OmniFaceCount, l.FaceCount())
	// A point on +X inside the range must be inside the +X face frustum.
	assert.True(t, l.Frustum(0).ContainsPoint(math.NewVec3(4, 0, -10)))
	// And outside the -X face frustum.
	assert.False(t, l.Frustum(1).ContainsPoint(math.NewVec3(4, 0, -10)))
}

func TestSpotBuildsSingleFace(t *testing.T) {
	m := NewManager(rendertest.New(), 1024)
	l := m.CreateLight(LightSpot)
	l.SetPosition(math.NewVec3(0, 5, -10))
	l.SetDirection(math.NewVec3(0, -1, 0))
	l.SetRange(10)

	m.UpdateAndCull(testView(), 1280, 720)

	assert.Equal(t, 1, l.FaceCount())
	assert.True(t, l.Frustum(0).ContainsPoint(math.NewVec3(0, 0, -10)))
}

func TestShadowDirtyLifecycle(t *testing.T) {
	backend := rendertest.New()
	m := NewManager(backend, 2048)
	l := m.CreateLight(LightSpot)
	l.SetPosition(math.NewVec3(0, 5, 0))

	// No shadow map yet, never updates.
	assert.False(t, m.ShadowShouldUpdate(l))

	require.NoError(t, m.EnableShadow(l))
	assert.True(t, m.ShadowShouldUpdate(l))
	assert.NotEqual(t, gpu.TextureHandle(0), l.ShadowMap())
	assert.InDelta(t, 1.0/2048.0, l.ShadowTexelSize(), 1e-9)

	m.MarkShadowRendered(l)
	assert.False(t, m.ShadowShouldUpdate(l))

	// Moving the light makes it stale again.
	l.SetPosition(math.NewVec3(1, 5, 0))
	assert.True(t, m.ShadowShouldUpdate(l))

	m.MarkShadowRendered(l)
	l.MarkShadowDirty()
	assert.True(t, m.ShadowShouldUpdate(l))
}

func TestOmniShadowUsesCubemap(t *testing.T) {
	backend := rendertest.New()
	m := NewManager(backend, 1024)
	l := m.CreateLight(LightOmni)
	require.NoError(t, m.EnableShadow(l))

	info, ok := backend.Textures[l.ShadowMap()]
	require.True(t, ok)
	assert.Equal(t, gpu.TextureKindCube, info.Spec.Kind)
	assert.Equal(t, gpu.FormatDepth32F, info.Spec.Format)
}

func TestNearbyLightsCapAndOverlap(t *testing.T) {
	m := NewManager(rendertest.New(), 1024)

	for i := 0; i < 4; i++ {
		l := m.CreateLight(LightOmni)
		l.SetPosition(math.NewVec3(float32(i), 0, -10))
		l.SetRange(3)
	}
	farAway := m.CreateLight(LightOmni)
	farAway.SetPosition(math.NewVec3(20, 0, -40))
	farAway.SetRange(3)

	m.UpdateAndCull(testView(), 1280, 720)
	require.Len(t, m.Visible(), 5)

	box := math.AABB{Min: math.NewVec3(-1, -1, -11), Max: math.NewVec3(1, 1, -9)}

	out := m.NearbyLights(make([]*Light, 0, 8), box, true)
	assert.Len(t, out, 4)
	assert.NotContains(t, out, farAway)

	// Budget of 2: excess lights silently skipped.
	capped := m.NearbyLights(make([]*Light, 0, 2), box, true)
	assert.Len(t, capped, 2)
}

func TestDestroyLightReleasesShadowResources(t *testing.T) {
	backend := rendertest.New()
	m := NewManager(backend, 1024)
	l := m.CreateLight(LightSpot)
	require.NoError(t, m.EnableShadow(l))

	m.DestroyLight(l)
	assert.Empty(t, backend.Textures)
	assert.Empty(t, backend.Framebuffers)

	m.UpdateAndCull(testView(), 1280, 720)
	assert.Empty(t, m.Visible())
}
