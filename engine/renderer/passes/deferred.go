package passes

import (
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
	"github.com/spaghettifunk/prisma/engine/renderer/lights"
	"github.com/spaghettifunk/prisma/engine/renderer/targets"
)

// Lighting pass texture slots.
const (
	slotLightAlbedo     int32 = 0
	slotLightNormal     int32 = 1
	slotLightORM        int32 = 2
	slotLightDepth      int32 = 3
	slotLightSSAO       int32 = 4
	slotLightSSIL       int32 = 5
	slotLightSSR        int32 = 6
	slotLightShadow     int32 = 7
	slotLightShadowCube int32 = 8
	slotLightIrradiance int32 = 9
	slotLightPrefilter  int32 = 10
	slotLightEmission   int32 = 11
)

// AmbientPass seeds the lighting accumulation buffers with the ambient or
// sky-derived contribution, modulated by the screen-space results.
func (ctx *Context) AmbientPass() {
	ctx.Targets.Bind(targets.FBLighting)
	ctx.Backend.Clear(gpu.ClearColorBuffer, 0, 0, 0, 0)
	ctx.screenPipeline()
	ctx.Backend.UseProgram(ctx.Programs.Ambient)

	ctx.Backend.SetUniformInt("uTexAlbedo", slotLightAlbedo)
	ctx.Backend.SetUniformInt("uTexNormal", slotLightNormal)
	ctx.Backend.SetUniformInt("uTexORM", slotLightORM)
	ctx.Backend.SetUniformInt("uTexSSAO", slotLightSSAO)
	ctx.Backend.SetUniformInt("uTexSSIL", slotLightSSIL)
	ctx.Backend.SetUniformInt("uTexSSR", slotLightSSR)
	ctx.Backend.BindTexture(slotLightAlbedo, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetAlbedo))
	ctx.Backend.BindTexture(slotLightNormal, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetNormal))
	ctx.Backend.BindTexture(slotLightORM, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetORM))
	ctx.Backend.BindTexture(slotLightSSAO, gpu.TextureKind2D, pickTexture(ctx.ssaoResult, ctx.Fallbacks.White))
	ctx.Backend.BindTexture(slotLightSSIL, gpu.TextureKind2D, pickTexture(ctx.ssilResult, ctx.Fallbacks.Black))
	ctx.Backend.BindTexture(slotLightSSR, gpu.TextureKind2D, pickTexture(ctx.ssrResult, ctx.Fallbacks.Black))

	hasSky := int32(0)
	if ctx.Env.HasSky() {
		hasSky = 1
		ctx.Backend.SetUniformInt("uTexIrradiance", slotLightIrradiance)
		ctx.Backend.SetUniformInt("uTexPrefilter", slotLightPrefilter)
		ctx.Backend.BindTexture(slotLightIrradiance, gpu.TextureKindCube, ctx.Env.Sky.Irradiance)
		ctx.Backend.BindTexture(slotLightPrefilter, gpu.TextureKindCube, ctx.Env.Sky.Prefilter)
		ctx.Backend.SetUniformVec4("uSkyRotation", ctx.Env.Sky.Rotation)
	}
	ctx.Backend.SetUniformInt("uHasSky", hasSky)

	ctx.Backend.SetUniformMat4("uMatInvView", ctx.View.InvView)
	ctx.Backend.SetUniformVec3("uAmbientColor", ctx.Env.Ambient.Color.ToVec3())
	ctx.Backend.SetUniformFloat("uAmbientEnergy", ctx.Env.Ambient.Energy)
	ctx.Backend.SetUniformFloat("uLightAffect", ctx.Env.SSAO.LightAffect)

	ctx.Backend.DrawScreen()
}

// LightPass additively accumulates every visible light, scissored to its
// screen-space volume so off-volume pixels cost nothing.
func (ctx *Context) LightPass() {
	visible := ctx.Lights.Visible()
	if len(visible) == 0 {
		return
	}

	ctx.Targets.Bind(targets.FBLighting)
	ctx.Backend.SetPipeline(gpu.PipelineState{ColorWrite: true, Blend: gpu.BlendAdditive})
	ctx.Backend.UseProgram(ctx.Programs.Light)

	ctx.Backend.SetUniformInt("uTexAlbedo", slotLightAlbedo)
	ctx.Backend.SetUniformInt("uTexNormal", slotLightNormal)
	ctx.Backend.SetUniformInt("uTexORM", slotLightORM)
	ctx.Backend.SetUniformInt("uTexDepth", slotLightDepth)
	ctx.Backend.BindTexture(slotLightAlbedo, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetAlbedo))
	ctx.Backend.BindTexture(slotLightNormal, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetNormal))
	ctx.Backend.BindTexture(slotLightORM, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetORM))
	ctx.Backend.BindTexture(slotLightDepth, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetDepth))

	ctx.Backend.SetUniformMat4("uMatInvProj", ctx.View.InvProj)
	ctx.Backend.SetUniformMat4("uMatInvView", ctx.View.InvView)
	ctx.Backend.SetUniformVec3("uViewPosition", ctx.View.Position)

	for _, l := range visible {
		rect := l.ScreenRect()
		if rect.W <= 0 || rect.H <= 0 {
			continue
		}
		ctx.Backend.SetScissor(rect)
		ctx.bindDeferredLight(l)
		ctx.Backend.DrawScreen()
	}
	ctx.Backend.DisableScissor()
}

func (ctx *Context) bindDeferredLight(l *lights.Light) {
	ctx.Backend.SetUniformInt("uLightType", int32(l.Type))
	ctx.Backend.SetUniformVec3("uLightPosition", l.Position())
	ctx.Backend.SetUniformVec3("uLightDirection", l.Direction())
	ctx.Backend.SetUniformVec3("uLightColor", l.Color.ToVec3())
	ctx.Backend.SetUniformFloat("uLightEnergy", l.Energy)
	ctx.Backend.SetUniformFloat("uLightSpecular", l.Specular)
	ctx.Backend.SetUniformFloat("uLightRange", l.Range())
	ctx.Backend.SetUniformFloat("uLightAttenuation", l.Attenuation())
	ctx.Backend.SetUniformFloat("uInnerCutoff", l.InnerCutoff())
	ctx.Backend.SetUniformFloat("uOuterCutoff", l.OuterCutoff())

	if !l.HasShadow() {
		ctx.Backend.SetUniformInt("uShadow", 0)
		return
	}
	ctx.Backend.SetUniformInt("uShadow", 1)
	ctx.Backend.SetUniformFloat("uShadowBias", l.ShadowBias)
	ctx.Backend.SetUniformFloat("uShadowSoftness", l.ShadowSoftness)
	ctx.Backend.SetUniformFloat("uShadowTexel", l.ShadowTexelSize())
	if l.Type == lights.LightOmni {
		ctx.Backend.SetUniformInt("uTexShadowCube", slotLightShadowCube)
		ctx.Backend.BindTexture(slotLightShadowCube, gpu.TextureKindCube, l.ShadowMap())
	} else {
		ctx.Backend.SetUniformInt("uTexShadow", slotLightShadow)
		ctx.Backend.BindTexture(slotLightShadow, gpu.TextureKind2D, l.ShadowMap())
		ctx.Backend.SetUniformMat4("uMatShadowVP", l.ViewProj(0))
	}
}

// ComposePass merges the accumulation buffers into the scene color buffer.
// The GREATER depth test against the shared depth buffer restricts writes
// to pixels the geometry pass actually touched.
func (ctx *Context) ComposePass() {
	ctx.Targets.Bind(targets.FBScene)
	ctx.Backend.Clear(gpu.ClearColorBuffer, 0, 0, 0, 0)
	ctx.Backend.SetPipeline(gpu.PipelineState{
		DepthTest: true, DepthFunc: gpu.CompareGreater, DepthWrite: false, ColorWrite: true,
	})
	ctx.Backend.UseProgram(ctx.Programs.Compose)

	ctx.Backend.SetUniformInt("uTexDiffuse", 0)
	ctx.Backend.SetUniformInt("uTexSpecular", 1)
	ctx.Backend.SetUniformInt("uTexEmission", 2)
	ctx.Backend.BindTexture(0, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetDiffuse))
	ctx.Backend.BindTexture(1, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetSpecular))
	ctx.Backend.BindTexture(2, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetEmission))
	ctx.Backend.DrawScreen()
}

// BackgroundPass fills the pixels the geometry pass left untouched with the
// sky or the flat background color. The LEQUAL test against far depth keeps
// geometry intact.
func (ctx *Context) BackgroundPass() {
	ctx.Targets.Bind(targets.FBScene)

	if ctx.Env.HasSky() {
		ctx.Backend.SetPipeline(gpu.PipelineState{
			DepthTest: true, DepthFunc: gpu.CompareLEqual, DepthWrite: false, ColorWrite: true,
			Cull: gpu.CullDisabled,
		})
		ctx.Backend.UseProgram(ctx.Programs.Skybox)
		ctx.Backend.SetUniformInt("uTexSky", 0)
		ctx.Backend.BindTexture(0, gpu.TextureKindCube, ctx.Env.Sky.Cubemap)
		ctx.Backend.SetUniformVec4("uSkyRotation", ctx.Env.Sky.Rotation)
		ctx.Backend.SetUniformFloat("uEnergy", ctx.Env.Sky.Intensity*ctx.Env.Background.Energy)
		// A camera-centered cube pushed toward the far plane.
		model := math.NewMat4Translation(ctx.View.Position).Mul(
			math.NewMat4Scale(math.NewVec3(ctx.View.Far, ctx.View.Far, ctx.View.Far)))
		ctx.Backend.SetUniformMat4("uMatModel", model)
		ctx.Backend.SetUniformMat4("uMatVP", ctx.View.ViewProj)
		ctx.Backend.DrawUnitCube()
		return
	}

	ctx.Backend.SetPipeline(gpu.PipelineState{
		DepthTest: true, DepthFunc: gpu.CompareLEqual, DepthWrite: false, ColorWrite: true,
	})
	ctx.Backend.UseProgram(ctx.Programs.Background)
	ctx.Backend.SetUniformVec3("uColor", ctx.Env.Background.Color.ToVec3())
	ctx.Backend.SetUniformFloat("uEnergy", ctx.Env.Background.Energy)
	ctx.Backend.DrawScreen()
}
