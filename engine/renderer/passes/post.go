package passes

import (
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
	"github.com/spaghettifunk/prisma/engine/renderer/targets"
)

// postStage swaps the scene ping-pong, binds the just-written buffer as the
// stage input at slot 0 and selects the program. The caller sets the stage
// uniforms and issues DrawScreen.
func (ctx *Context) postStage(prog gpu.ProgramHandle) {
	src := ctx.Targets.BindAndSwap(targets.FBScene)
	ctx.screenPipeline()
	ctx.Backend.UseProgram(prog)
	ctx.Backend.SetUniformInt("uTexScene", 0)
	ctx.Backend.BindTexture(0, gpu.TextureKind2D, src)
}

// FogPass blends the scene toward the fog color by linearized depth.
func (ctx *Context) FogPass() {
	if ctx.Env.Fog.Mode == metadata.FogDisabled {
		return
	}
	ctx.postStage(ctx.Programs.Fog)
	ctx.Backend.SetUniformInt("uTexDepth", 1)
	ctx.Backend.BindTexture(1, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetDepth))
	ctx.Backend.SetUniformInt("uFogMode", int32(ctx.Env.Fog.Mode))
	ctx.Backend.SetUniformVec3("uFogColor", ctx.Env.Fog.Color.ToVec3())
	ctx.Backend.SetUniformFloat("uFogStart", ctx.Env.Fog.Start)
	ctx.Backend.SetUniformFloat("uFogEnd", ctx.Env.Fog.End)
	ctx.Backend.SetUniformFloat("uFogDensity", ctx.Env.Fog.Density)
	ctx.Backend.SetUniformFloat("uFogSkyAffect", ctx.Env.Fog.SkyAffect)
	ctx.Backend.SetUniformFloat("uNear", ctx.View.Near)
	ctx.Backend.SetUniformFloat("uFar", ctx.View.Far)
	ctx.Backend.DrawScreen()
}

// DofPass blurs by distance from the focus plane.
func (ctx *Context) DofPass() {
	if ctx.Env.Dof.Mode == metadata.DofDisabled {
		return
	}
	ctx.postStage(ctx.Programs.Dof)
	ctx.Backend.SetUniformInt("uTexDepth", 1)
	ctx.Backend.BindTexture(1, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetDepth))
	ctx.Backend.SetUniformFloat("uFocusPoint", ctx.Env.Dof.FocusPoint)
	ctx.Backend.SetUniformFloat("uFocusScale", ctx.Env.Dof.FocusScale)
	ctx.Backend.SetUniformFloat("uMaxBlurSize", ctx.Env.Dof.MaxBlurSize)
	ctx.Backend.SetUniformFloat("uNear", ctx.View.Near)
	ctx.Backend.SetUniformFloat("uFar", ctx.View.Far)
	debug := int32(0)
	if ctx.Env.Dof.Debug {
		debug = 1
	}
	ctx.Backend.SetUniformInt("uDebug", debug)
	ctx.Backend.DrawScreen()
}

// BloomPass runs the Karis-averaged downsample chain, the additive
// upsample chain in strictly descending level order, then composites onto
// the scene.
func (ctx *Context) BloomPass() {
	if ctx.Env.Bloom.Mode == metadata.BloomDisabled {
		return
	}

	levels := ctx.Targets.BloomMipCount()
	if ctx.Env.Bloom.Levels > 0 && uint32(ctx.Env.Bloom.Levels) < levels {
		levels = uint32(ctx.Env.Bloom.Levels)
	}
	if levels < 2 {
		return
	}

	// Prefilter: scene color into mip 0 with thresholding and Karis
	// averaging against fireflies.
	ctx.screenPipeline()
	ctx.Backend.UseProgram(ctx.Programs.BloomDown)
	ctx.Backend.SetUniformInt("uTexSource", 0)
	ctx.Backend.BindTexture(0, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetScene))
	ctx.Backend.SetUniformInt("uSourceMip", 0)
	ctx.Backend.SetUniformInt("uKarisAverage", 1)
	ctx.Backend.SetUniformFloat("uThreshold", ctx.Env.Bloom.Threshold)
	ctx.Backend.SetUniformFloat("uSoftThreshold", ctx.Env.Bloom.SoftThreshold)
	if err := ctx.Targets.BindBloomMip(0); err != nil {
		return
	}
	ctx.Backend.DrawScreen()

	// Downsample chain: levels-1 iterations.
	bloomTex := ctx.Targets.Get(targets.TargetBloom)
	ctx.Backend.BindTexture(0, gpu.TextureKind2D, bloomTex)
	ctx.Backend.SetUniformInt("uKarisAverage", 0)
	for mip := uint32(1); mip < levels; mip++ {
		if err := ctx.Targets.BindBloomMip(mip); err != nil {
			return
		}
		ctx.Backend.SetUniformInt("uSourceMip", int32(mip-1))
		ctx.Backend.DrawScreen()
	}

	// Upsample chain, descending and ending at level 0.
	ctx.Backend.SetPipeline(gpu.PipelineState{ColorWrite: true, Blend: gpu.BlendAdditive})
	ctx.Backend.UseProgram(ctx.Programs.BloomUp)
	ctx.Backend.SetUniformInt("uTexSource", 0)
	ctx.Backend.BindTexture(0, gpu.TextureKind2D, bloomTex)
	ctx.Backend.SetUniformFloat("uFilterRadius", ctx.Env.Bloom.FilterRadius)
	for mip := levels - 1; mip >= 1; mip-- {
		if err := ctx.Targets.BindBloomMip(mip - 1); err != nil {
			return
		}
		ctx.Backend.SetUniformInt("uSourceMip", int32(mip))
		ctx.Backend.DrawScreen()
	}

	// Composite onto the scene.
	ctx.postStage(ctx.Programs.BloomComposite)
	ctx.Backend.SetUniformInt("uTexBloom", 1)
	ctx.Backend.BindTexture(1, gpu.TextureKind2D, bloomTex)
	ctx.Backend.SetUniformInt("uBloomMode", int32(ctx.Env.Bloom.Mode))
	ctx.Backend.SetUniformFloat("uIntensity", ctx.Env.Bloom.Intensity)
	ctx.Backend.DrawScreen()
}

// OutputPass applies tone mapping, exposure and the color adjustments. It
// always runs.
func (ctx *Context) OutputPass() {
	ctx.postStage(ctx.Programs.Output)
	ctx.Backend.SetUniformInt("uTonemapMode", int32(ctx.Env.Tonemap.Mode))
	ctx.Backend.SetUniformFloat("uExposure", ctx.Env.Tonemap.Exposure)
	ctx.Backend.SetUniformFloat("uWhite", ctx.Env.Tonemap.White)
	ctx.Backend.SetUniformFloat("uBrightness", ctx.Env.Adjustment.Brightness)
	ctx.Backend.SetUniformFloat("uContrast", ctx.Env.Adjustment.Contrast)
	ctx.Backend.SetUniformFloat("uSaturation", ctx.Env.Adjustment.Saturation)
	ctx.Backend.DrawScreen()
}

// FXAAPass is the last image-space stage before the blit.
func (ctx *Context) FXAAPass() {
	if !ctx.Flags.FXAA {
		return
	}
	ctx.postStage(ctx.Programs.FXAA)
	ctx.Backend.DrawScreen()
}

// FinalBlit presents the finished scene buffer to the output surface.
func (ctx *Context) FinalBlit() {
	ctx.Targets.Blit(targets.TargetScene, gpu.BlitMode{
		AspectKeep: ctx.Flags.AspectKeepBlit,
		Linear:     ctx.Flags.LinearBlit,
	})
}
