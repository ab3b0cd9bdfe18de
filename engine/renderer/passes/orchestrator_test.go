package passes

import (
	gomath "math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/draw"
	"github.com/spaghettifunk/prisma/engine/renderer/lights"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
	"github.com/spaghettifunk/prisma/engine/renderer/rendertest"
	"github.com/spaghettifunk/prisma/engine/renderer/shader"
	"github.com/spaghettifunk/prisma/engine/renderer/targets"
)

func newTestContext(t *testing.T, backend *rendertest.Backend) *Context {
	t.Helper()

	tm, err := targets.New(backend, 1280, 720)
	require.NoError(t, err)
	programs, err := NewPrograms(backend)
	require.NoError(t, err)

	cam := metadata.Camera{
		Position: math.NewVec3(0, 0, 0),
		Target:   math.NewVec3(0, 0, -1),
		Up:       math.NewVec3(0, 1, 0),
		FovY:     float32(gomath.Pi / 4),
		Near:     0.1,
		Far:      100,
	}
	view := metadata.NewViewState(cam, 1280, 720)
	env := metadata.NewEnvironment()

	return &Context{
		Backend:   backend,
		Targets:   tm,
		Lights:    lights.NewManager(backend, 1024),
		Registry:  draw.NewRegistry(),
		Programs:  programs,
		Fallbacks: shader.Fallbacks{White: 1001, Black: 1002, FlatNormal: 1003},
		View:      &view,
		Env:       &env,
		Flags: Flags{
			FrustumCulling:  true,
			SortOpaque:      true,
			SortTransparent: true,
			AspectKeepBlit:  true,
			LinearBlit:      true,
		},
		Width:  1280,
		Height: 720,
	}
}

func cubeMesh() *metadata.Mesh {
	return &metadata.Mesh{
		Name:         "cube",
		VertexBuffer: 900,
		IndexBuffer:  901,
		IndexCount:   36,
		AABB: math.AABB{
			Min: math.NewVec3(-0.5, -0.5, -0.5),
			Max: math.NewVec3(0.5, 0.5, 0.5),
		},
	}
}

func submitCube(ctx *Context, z float32, mat metadata.Material) {
	g := ctx.Registry.PushGroup(math.NewMat4Translation(math.NewVec3(0, 0, z)), cubeMesh().AABB, nil, nil)
	ctx.Registry.PushDrawCall(g, cubeMesh(), mat, false)
}

func TestExecuteCullsGeometryBehindCamera(t *testing.T) {
	backend := rendertest.New()
	ctx := newTestContext(t, backend)

	submitCube(ctx, -5, metadata.NewMaterial())
	submitCube(ctx, 5, metadata.NewMaterial())

	require.NoError(t, Execute(ctx))

	// Only the cube in front of the camera reaches the geometry pass.
	assert.Equal(t, 1, backend.OpCount("DrawIndexed(vb=900"))
	// The frame ends with a blit and a state reset.
	assert.Equal(t, 1, backend.OpCount("BlitToSurface"))
	assert.Equal(t, "ResetState", backend.Ops[len(backend.Ops)-1])
}

func TestExecuteZeroSizeIsFatal(t *testing.T) {
	backend := rendertest.New()
	ctx := newTestContext(t, backend)
	ctx.Width = 0
	assert.Error(t, Execute(ctx))
}

func TestShadowPassSkippedWhenFresh(t *testing.T) {
	backend := rendertest.New()
	ctx := newTestContext(t, backend)

	sun := ctx.Lights.CreateLight(lights.LightDirectional)
	sun.SetDirection(math.NewVec3(0, -1, 0))
	require.NoError(t, ctx.Lights.EnableShadow(sun))

	submitCube(ctx, -5, metadata.NewMaterial())

	require.NoError(t, Execute(ctx))
	firstFrameShadowBinds := backend.OpCount("BindFramebuffer(shadow_fb_1)")
	assert.Equal(t, 1, firstFrameShadowBinds)

	// Second frame, nothing moved: the shadow pass must not re-render.
	backend.Ops = nil
	ctx.Registry.Reset()
	submitCube(ctx, -5, metadata.NewMaterial())
	require.NoError(t, Execute(ctx))
	assert.Equal(t, 0, backend.OpCount("BindFramebuffer(shadow_fb_1)"))

	// Lighting still ran both frames.
	assert.Equal(t, 1, backend.OpCount("SetScissor"))

	// Moving the light forces a refresh.
	backend.Ops = nil
	ctx.Registry.Reset()
	submitCube(ctx, -5, metadata.NewMaterial())
	sun.SetPosition(math.NewVec3(0, 10, 0))
	require.NoError(t, Execute(ctx))
	assert.Equal(t, 1, backend.OpCount("BindFramebuffer(shadow_fb_1)"))
}

func TestOmniShadowRendersSixFaces(t *testing.T) {
	backend := rendertest.New()
	ctx := newTestContext(t, backend)

	lamp := ctx.Lights.CreateLight(lights.LightOmni)
	lamp.SetPosition(math.NewVec3(0, 0, -5))
	lamp.SetRange(10)
	require.NoError(t, ctx.Lights.EnableShadow(lamp))

	submitCube(ctx, -5, metadata.NewMaterial())

	require.NoError(t, Execute(ctx))
	assert.Equal(t, 6, backend.OpCount("BindFramebuffer(shadow_fb_1)"))
	assert.Equal(t, 6, backend.OpCount("SetFramebufferLayer(fb="))
}

func TestPrepassMaterialDrawsTwiceAfterGBuffer(t *testing.T) {
	backend := rendertest.New()
	ctx := newTestContext(t, backend)

	mat := metadata.NewMaterial()
	mat.Transparency = metadata.TransparencyPrepass
	submitCube(ctx, -5, mat)

	require.NoError(t, Execute(ctx))

	// No deferred draw; one prepass draw plus one forward draw.
	assert.Equal(t, 2, backend.OpCount("DrawIndexed(vb=900"))
	assert.Equal(t, 1, backend.OpCount("UseProgram(depth)"))
	assert.Equal(t, 1, backend.OpCount("UseProgram(forward)"))
}

func TestBloomChainIterations(t *testing.T) {
	backend := rendertest.New()
	ctx := newTestContext(t, backend)
	ctx.Env.Bloom.Mode = metadata.BloomAdditive

	submitCube(ctx, -5, metadata.NewMaterial())
	require.NoError(t, Execute(ctx))

	levels := int(ctx.Targets.BloomMipCount())

	// Downsample: mip0 prefilter + (levels-1) chain iterations, upsample:
	// (levels-1) additive draws, one composite.
	downDraws := drawsAfterProgram(backend, "UseProgram(bloom_down)")
	upDraws := drawsAfterProgram(backend, "UseProgram(bloom_up)")
	assert.Equal(t, levels, downDraws)
	assert.Equal(t, levels-1, upDraws)
	assert.Equal(t, 1, backend.OpCount("UseProgram(bloom_composite)"))

	// Upsample destinations descend strictly and end at level 0.
	var upMips []string
	inUp := false
	for _, op := range backend.Ops {
		if strings.HasPrefix(op, "UseProgram(") {
			inUp = op == "UseProgram(bloom_up)"
		}
		if inUp && strings.HasPrefix(op, "SetFramebufferLayer(") {
			upMips = append(upMips, op)
		}
	}
	require.NotEmpty(t, upMips)
	assert.Contains(t, upMips[len(upMips)-1], "mip=0")
}

func drawsAfterProgram(backend *rendertest.Backend, program string) int {
	count := 0
	active := false
	for _, op := range backend.Ops {
		if strings.HasPrefix(op, "UseProgram(") {
			active = op == program
		}
		if active && op == "DrawScreen" {
			count++
		}
	}
	return count
}

func TestCustomShaderParamBoundAtDrawTime(t *testing.T) {
	backend := rendertest.New()
	ctx := newTestContext(t, backend)

	s, err := shader.Compile(backend, "blend_shader", "uniform float uBlend;\nalbedo.rgb *= uBlend;\n")
	require.NoError(t, err)

	mat := metadata.NewMaterial()
	mat.Shader = s
	mat.SetFloat("uBlend", 0.75)
	submitCube(ctx, -5, mat)

	plain := metadata.NewMaterial()
	submitCube(ctx, -5, plain)

	require.NoError(t, Execute(ctx))

	assert.Contains(t, backend.Ops, "SetUniformFloat(uBlend,0.75)")
	// The default program is restored after the custom call.
	assert.GreaterOrEqual(t, backend.OpCount("UseProgram(geometry)"), 2)
	// Exactly one draw saw the custom value.
	assert.Equal(t, 1, backend.OpCount("SetUniformFloat(uBlend,"))
}

func TestDisabledEffectsSkipTheirPasses(t *testing.T) {
	backend := rendertest.New()
	ctx := newTestContext(t, backend)
	submitCube(ctx, -5, metadata.NewMaterial())

	require.NoError(t, Execute(ctx))

	assert.Equal(t, 0, backend.OpCount("UseProgram(ssao)"))
	assert.Equal(t, 0, backend.OpCount("UseProgram(ssr)"))
	assert.Equal(t, 0, backend.OpCount("UseProgram(fog)"))
	assert.Equal(t, 0, backend.OpCount("UseProgram(fxaa)"))
	// Output tonemap always runs.
	assert.Equal(t, 1, backend.OpCount("UseProgram(output)"))
}

func TestEnabledScreenSpacePassesRun(t *testing.T) {
	backend := rendertest.New()
	ctx := newTestContext(t, backend)
	ctx.Env.SSAO.Enabled = true
	ctx.Env.SSAO.BlurPasses = 2
	ctx.Env.SSR.Enabled = true
	ctx.Flags.FXAA = true

	submitCube(ctx, -5, metadata.NewMaterial())
	require.NoError(t, Execute(ctx))

	assert.Equal(t, 1, backend.OpCount("UseProgram(ssao)"))
	// Two blur iterations, horizontal and vertical each.
	assert.Equal(t, 4, drawsAfterProgram(backend, "UseProgram(blur)"))
	assert.Equal(t, 1, backend.OpCount("UseProgram(ssr)"))
	assert.Equal(t, 1, backend.OpCount("GenerateMipmaps"))
	assert.Equal(t, 1, backend.OpCount("UseProgram(fxaa)"))
}

func TestDecalPassSamplesDepthAndDrawsVolumes(t *testing.T) {
	backend := rendertest.New()
	ctx := newTestContext(t, backend)

	mat := metadata.NewMaterial()
	g := ctx.Registry.PushGroup(math.NewMat4Translation(math.NewVec3(0, 0, -5)), cubeMesh().AABB, nil, nil)
	ctx.Registry.PushDrawCall(g, cubeMesh(), mat, true)

	require.NoError(t, Execute(ctx))

	assert.Equal(t, 1, backend.OpCount("UseProgram(decal)"))
	assert.Equal(t, 1, backend.OpCount("DrawUnitCube"))
}
