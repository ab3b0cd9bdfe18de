package passes

import (
	"github.com/spaghettifunk/prisma/engine/renderer/draw"
	"github.com/spaghettifunk/prisma/engine/renderer/targets"
)

// PrepassForwardPass runs the depth-only prepass for alpha-tested materials
// and then the forward color pass over the transparency bucket, back to
// front when sorting is on.
func (ctx *Context) PrepassForwardPass() {
	prepass := ctx.Registry.Bucket(draw.TechniquePrepass)
	forward := ctx.Registry.Bucket(draw.TechniqueForward)
	if prepass.Empty() && forward.Empty() {
		return
	}

	ctx.Targets.Bind(targets.FBScene)

	if !prepass.Empty() {
		ctx.Backend.UseProgram(ctx.Programs.Depth)
		ctx.Backend.SetUniformMat4("uMatVP", ctx.View.ViewProj)
		for _, call := range prepass.Plain {
			if call.Group.Visible() {
				ctx.rasterize(rasterPrepass, call)
			}
		}
		for _, call := range prepass.Instanced {
			if call.Group.Visible() {
				ctx.rasterize(rasterPrepass, call)
			}
		}
	}

	if forward.Empty() {
		return
	}

	ctx.Backend.UseProgram(ctx.Programs.Forward)
	ctx.Backend.SetUniformMat4("uMatVP", ctx.View.ViewProj)
	ctx.Backend.SetUniformVec3("uViewPosition", ctx.View.Position)
	ctx.Backend.SetUniformVec3("uAmbientColor", ctx.Env.Ambient.Color.ToVec3())
	ctx.Backend.SetUniformFloat("uAmbientEnergy", ctx.Env.Ambient.Energy)

	for _, call := range forward.Plain {
		if call.Group.Visible() {
			ctx.rasterize(rasterForward, call)
		}
	}
	for _, call := range forward.Instanced {
		if call.Group.Visible() {
			ctx.rasterize(rasterForward, call)
		}
	}
}
