package passes

import (
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
	"github.com/spaghettifunk/prisma/engine/renderer/targets"
)

// Screen-space passes. Each leaves its result handle on the context, zero
// when the effect is off; the deferred ambient pass substitutes fallbacks.

func (ctx *Context) screenPipeline() {
	ctx.Backend.SetPipeline(gpu.PipelineState{ColorWrite: true})
}

// SSAOPass samples ambient occlusion at half resolution and runs the
// configured number of separable blur iterations over the ping-pong pair.
func (ctx *Context) SSAOPass() {
	if !ctx.Env.SSAO.Enabled {
		ctx.ssaoResult = 0
		return
	}

	ctx.Targets.BindAndSwap(targets.FBSSAO)
	ctx.screenPipeline()
	ctx.Backend.UseProgram(ctx.Programs.SSAO)

	ctx.Backend.SetUniformInt("uTexDepth", 0)
	ctx.Backend.SetUniformInt("uTexNormal", 1)
	ctx.Backend.BindTexture(0, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetDepth))
	ctx.Backend.BindTexture(1, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetNormal))
	ctx.Backend.SetUniformMat4("uMatProj", ctx.View.Proj)
	ctx.Backend.SetUniformMat4("uMatInvProj", ctx.View.InvProj)
	ctx.Backend.SetUniformFloat("uRadius", ctx.Env.SSAO.Radius)
	ctx.Backend.SetUniformFloat("uBias", ctx.Env.SSAO.Bias)
	ctx.Backend.SetUniformFloat("uIntensity", ctx.Env.SSAO.Intensity)
	ctx.Backend.SetUniformFloat("uPower", ctx.Env.SSAO.Power)
	ctx.Backend.DrawScreen()

	ctx.blurPingPong(targets.FBSSAO, ctx.Env.SSAO.BlurPasses)
	ctx.ssaoResult = ctx.Targets.Get(targets.TargetSSAO)
}

// SSILPass gathers one-bounce indirect light from the previous frame's
// diffuse accumulation.
func (ctx *Context) SSILPass() {
	if !ctx.Env.SSIL.Enabled {
		ctx.ssilResult = 0
		return
	}

	ctx.Targets.BindAndSwap(targets.FBSSIL)
	ctx.screenPipeline()
	ctx.Backend.UseProgram(ctx.Programs.SSIL)

	ctx.Backend.SetUniformInt("uTexDepth", 0)
	ctx.Backend.SetUniformInt("uTexNormal", 1)
	ctx.Backend.SetUniformInt("uTexDiffuse", 2)
	ctx.Backend.BindTexture(0, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetDepth))
	ctx.Backend.BindTexture(1, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetNormal))
	ctx.Backend.BindTexture(2, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetDiffuse))
	ctx.Backend.SetUniformMat4("uMatProj", ctx.View.Proj)
	ctx.Backend.SetUniformMat4("uMatInvProj", ctx.View.InvProj)
	ctx.Backend.SetUniformInt("uSampleCount", int32(ctx.Env.SSIL.SampleCount))
	ctx.Backend.SetUniformFloat("uSampleRadius", ctx.Env.SSIL.SampleRadius)
	ctx.Backend.SetUniformFloat("uHitThickness", ctx.Env.SSIL.HitThickness)
	ctx.Backend.SetUniformFloat("uEnergy", ctx.Env.SSIL.Energy)
	ctx.Backend.DrawScreen()

	ctx.blurPingPong(targets.FBSSIL, ctx.Env.SSIL.BlurPasses)
	ctx.ssilResult = ctx.Targets.Get(targets.TargetSSIL)
}

// SSRPass ray-marches reflections against the depth buffer, sampling the
// previous frame's scene color, then mips the result for roughness-aware
// lookups.
func (ctx *Context) SSRPass() {
	if !ctx.Env.SSR.Enabled {
		ctx.ssrResult = 0
		return
	}

	ctx.Targets.Bind(targets.FBSSR)
	ctx.screenPipeline()
	ctx.Backend.UseProgram(ctx.Programs.SSR)

	ctx.Backend.SetUniformInt("uTexDepth", 0)
	ctx.Backend.SetUniformInt("uTexNormal", 1)
	ctx.Backend.SetUniformInt("uTexScene", 2)
	ctx.Backend.BindTexture(0, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetDepth))
	ctx.Backend.BindTexture(1, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetNormal))
	ctx.Backend.BindTexture(2, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetScene))
	ctx.Backend.SetUniformMat4("uMatProj", ctx.View.Proj)
	ctx.Backend.SetUniformMat4("uMatInvProj", ctx.View.InvProj)
	ctx.Backend.SetUniformInt("uMaxRaySteps", int32(ctx.Env.SSR.MaxRaySteps))
	ctx.Backend.SetUniformInt("uBinarySearchSteps", int32(ctx.Env.SSR.BinarySearchSteps))
	ctx.Backend.SetUniformFloat("uRayMarchLength", ctx.Env.SSR.RayMarchLength)
	ctx.Backend.SetUniformFloat("uDepthThickness", ctx.Env.SSR.DepthThickness)
	ctx.Backend.SetUniformFloat("uEdgeFadeStart", ctx.Env.SSR.EdgeFadeStart)
	ctx.Backend.SetUniformFloat("uEdgeFadeEnd", ctx.Env.SSR.EdgeFadeEnd)
	ctx.Backend.DrawScreen()

	ctx.Targets.GenMipmap(targets.TargetSSR)
	ctx.ssrResult = ctx.Targets.Get(targets.TargetSSR)
}

// blurPingPong runs iterations of a separable blur over a ping-pong target,
// one horizontal plus one vertical swap per iteration.
func (ctx *Context) blurPingPong(fb targets.FramebufferID, iterations int) {
	if iterations <= 0 {
		return
	}
	ctx.Backend.UseProgram(ctx.Programs.Blur)
	ctx.Backend.SetUniformInt("uTexSource", 0)
	for i := 0; i < iterations; i++ {
		src := ctx.Targets.BindAndSwap(fb)
		ctx.Backend.BindTexture(0, gpu.TextureKind2D, src)
		ctx.Backend.SetUniformVec2("uDirection", math.NewVec2(1, 0))
		ctx.Backend.DrawScreen()

		src = ctx.Targets.BindAndSwap(fb)
		ctx.Backend.BindTexture(0, gpu.TextureKind2D, src)
		ctx.Backend.SetUniformVec2("uDirection", math.NewVec2(0, 1))
		ctx.Backend.DrawScreen()
	}
}
