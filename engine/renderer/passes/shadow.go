package passes

import (
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/draw"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
	"github.com/spaghettifunk/prisma/engine/renderer/lights"
)

// ShadowPass re-renders the shadow map of every visible light whose map is
// stale. Omni lights render all six cube faces. Returns true when per-face
// culling overwrote the view-frustum visibility, so the caller knows to
// recompute it.
func (ctx *Context) ShadowPass() bool {
	recomputed := false

	for _, l := range ctx.Lights.Visible() {
		if !ctx.Lights.ShadowShouldUpdate(l) {
			continue
		}

		size := int32(l.ShadowMapSize())
		ctx.Backend.UseProgram(ctx.Programs.Depth)

		for face := 0; face < l.FaceCount(); face++ {
			if l.Type == lights.LightOmni {
				if err := ctx.Backend.SetFramebufferLayer(l.ShadowFramebuffer(), -1, l.ShadowMap(), int32(face), 0); err != nil {
					continue
				}
			}
			ctx.Backend.BindFramebuffer(l.ShadowFramebuffer())
			ctx.Backend.SetViewport(math.Rect{W: size, H: size})
			ctx.Backend.Clear(gpu.ClearDepthBuffer, 0, 0, 0, 0)
			ctx.Backend.SetUniformMat4("uMatVP", l.ViewProj(face))

			if ctx.Flags.FrustumCulling && ctx.Flags.ShadowFaceCulling {
				ctx.Registry.ComputeVisible(l.Frustum(face))
				recomputed = true
			}

			ctx.rasterShadowBucket(ctx.Registry.Bucket(draw.TechniqueDeferred))
			ctx.rasterShadowBucket(ctx.Registry.Bucket(draw.TechniqueForward))
		}

		ctx.Lights.MarkShadowRendered(l)
	}
	return recomputed
}

// rasterShadowBucket rasterizes every visible shadow-casting call of a
// bucket depth-only. The forward bucket already contains the prepass calls,
// so iterating deferred plus forward covers every caster exactly once.
func (ctx *Context) rasterShadowBucket(b *draw.Bucket) {
	for _, call := range b.Plain {
		if call.Group.Visible() && call.Mesh.ShadowCast.Casts() {
			ctx.rasterize(rasterShadow, call)
		}
	}
	for _, call := range b.Instanced {
		if call.Group.Visible() && call.Mesh.ShadowCast.Casts() {
			ctx.rasterize(rasterShadow, call)
		}
	}
}
