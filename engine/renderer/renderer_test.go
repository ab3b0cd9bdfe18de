package renderer

import (
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
	"github.com/spaghettifunk/prisma/engine/renderer/rendertest"
)

func testCamera() metadata.Camera {
	return metadata.Camera{
		Position: math.NewVec3(0, 0, 0),
		Target:   math.NewVec3(0, 0, -1),
		Up:       math.NewVec3(0, 1, 0),
		FovY:     float32(gomath.Pi / 4),
		Near:     0.1,
		Far:      100,
	}
}

func newTestRenderer(t *testing.T) (*Renderer, *rendertest.Backend) {
	t.Helper()
	backend := rendertest.New()
	cfg := DefaultConfig()
	cfg.FXAA = false
	r, err := New(backend, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Shutdown() })
	return r, backend
}

func testMesh(t *testing.T, r *Renderer) *metadata.Mesh {
	t.Helper()
	aabb := math.NewAABB(math.NewVec3(-0.5, -0.5, -0.5), math.NewVec3(0.5, 0.5, 0.5))
	mesh, err := r.CreateMesh("cube", make([]byte, 96*24), make([]uint32, 36), aabb)
	require.NoError(t, err)
	return mesh
}

func TestFrameCycleDrawsAndPresents(t *testing.T) {
	r, backend := newTestRenderer(t)
	mesh := testMesh(t, r)

	require.NoError(t, r.BeginFrame(testCamera()))
	r.DrawMesh(mesh, metadata.NewMaterial(), math.NewMat4Translation(math.NewVec3(0, 0, -5)))
	require.NoError(t, r.EndFrame())

	assert.Equal(t, 1, backend.OpCount("BeginFrame"))
	assert.Equal(t, 1, backend.OpCount("BlitToSurface"))
	assert.Equal(t, 1, backend.OpCount("EndFrame"))
	// The opaque cube went through the deferred geometry pass.
	assert.Equal(t, 1, backend.OpCount("UseProgram(geometry)"))
}

func TestSubmissionsOutsideFrameAreDropped(t *testing.T) {
	r, backend := newTestRenderer(t)
	mesh := testMesh(t, r)

	before := len(backend.Ops)
	r.DrawMesh(mesh, metadata.NewMaterial(), math.NewMat4Identity())
	assert.Equal(t, before, len(backend.Ops))

	require.NoError(t, r.BeginFrame(testCamera()))
	require.NoError(t, r.EndFrame())
	assert.Error(t, r.EndFrame())
}

func TestLayerMaskSkipsSubmissions(t *testing.T) {
	backend := rendertest.New()
	cfg := DefaultConfig()
	cfg.ActiveLayers = 0b01
	r, err := New(backend, cfg)
	require.NoError(t, err)
	defer func() { _ = r.Shutdown() }()

	mesh := testMesh(t, r)
	mesh.LayerMask = 0b10

	require.NoError(t, r.BeginFrame(testCamera()))
	r.DrawMesh(mesh, metadata.NewMaterial(), math.NewMat4Translation(math.NewVec3(0, 0, -5)))
	require.NoError(t, r.EndFrame())

	assert.Equal(t, 0, backend.OpCount("DrawIndexed"))

	// A zero mesh mask means "all layers" and must pass.
	mesh.LayerMask = 0
	require.NoError(t, r.BeginFrame(testCamera()))
	r.DrawMesh(mesh, metadata.NewMaterial(), math.NewMat4Translation(math.NewVec3(0, 0, -5)))
	require.NoError(t, r.EndFrame())
	assert.Equal(t, 1, backend.OpCount("DrawIndexed"))
}

func TestDecalsRasterizeTheBuiltinCube(t *testing.T) {
	r, backend := newTestRenderer(t)

	require.NoError(t, r.BeginFrame(testCamera()))
	r.DrawDecal(metadata.NewMaterial(), math.NewMat4Translation(math.NewVec3(0, 0, -5)))
	require.NoError(t, r.EndFrame())

	assert.Equal(t, 1, backend.OpCount("UseProgram(decal)"))
	assert.GreaterOrEqual(t, backend.OpCount("DrawUnitCube"), 1)
	// Decal volumes never draw their placeholder mesh buffers.
	assert.Equal(t, 0, backend.OpCount("DrawIndexed(vb"))
}

func TestParticleSystemSubmitsOneInstancedDraw(t *testing.T) {
	r, backend := newTestRenderer(t)
	mesh := testMesh(t, r)

	ps := &metadata.ParticleSystem{
		Mesh:     mesh,
		Material: metadata.NewMaterial(),
		Particles: []metadata.Particle{
			{Transform: math.NewMat4Translation(math.NewVec3(0, 0, -4)), Color: metadata.White},
			{Transform: math.NewMat4Translation(math.NewVec3(1, 0, -5)), Color: metadata.White},
			{Transform: math.NewMat4Translation(math.NewVec3(-1, 0, -6)), Color: metadata.White},
		},
		AABB: math.NewAABB(math.NewVec3(-2, -1, -7), math.NewVec3(2, 1, -3)),
	}

	require.NoError(t, r.BeginFrame(testCamera()))
	r.DrawParticleSystem(ps, math.NewMat4Identity())
	require.NoError(t, r.EndFrame())

	assert.Equal(t, 1, backend.OpCount("DrawIndexedInstanced"))
}

func TestModelUsesPerMeshMaterials(t *testing.T) {
	r, backend := newTestRenderer(t)

	opaque := metadata.NewMaterial()
	transparent := metadata.NewMaterial()
	transparent.Transparency = metadata.TransparencyAlpha

	model := &metadata.Model{
		Name:          "props",
		Meshes:        []*metadata.Mesh{testMesh(t, r), testMesh(t, r)},
		Materials:     []metadata.Material{opaque, transparent},
		MaterialIndex: []int{0, 1},
		AABB:          math.NewAABB(math.NewVec3(-1, -1, -1), math.NewVec3(1, 1, 1)),
	}

	require.NoError(t, r.BeginFrame(testCamera()))
	r.DrawModel(model, math.NewMat4Translation(math.NewVec3(0, 0, -5)))
	require.NoError(t, r.EndFrame())

	// One mesh goes deferred, the other through the forward program.
	assert.Equal(t, 1, backend.OpCount("UseProgram(geometry)"))
	assert.Equal(t, 1, backend.OpCount("UseProgram(forward)"))
}

func TestResizeReallocatesTargets(t *testing.T) {
	r, backend := newTestRenderer(t)

	require.NoError(t, r.Resize(1920, 1080))
	assert.Equal(t, 1, backend.OpCount("Resized(1920x1080)"))

	assert.Error(t, r.Resize(0, 720))
}

func TestCustomShaderRoundTrip(t *testing.T) {
	r, _ := newTestRenderer(t)

	s, err := r.CreateCustomShader("dissolve", `
uniform float uDissolve;
uniform sampler2D uTexNoise;
if (texture(uTexNoise, vTexCoord).r < uDissolve) discard;
`)
	require.NoError(t, err)
	require.True(t, s.IsValid())
	assert.Len(t, s.Uniforms, 2)
	r.DestroyCustomShader(s)
}
