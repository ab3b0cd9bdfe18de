package passes

import (
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/draw"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
	"github.com/spaghettifunk/prisma/engine/renderer/shader"
	"github.com/spaghettifunk/prisma/engine/renderer/targets"
)

// GeometryPass rasterizes the visible deferred bucket into the G-buffer.
// The buffer is cleared even when the bucket is empty so later passes read
// defined data.
func (ctx *Context) GeometryPass() {
	ctx.Targets.Bind(targets.FBGeometry)
	ctx.Backend.Clear(gpu.ClearColorBuffer|gpu.ClearDepthBuffer, 0, 0, 0, 0)

	bucket := ctx.Registry.Bucket(draw.TechniqueDeferred)
	if bucket.Empty() {
		return
	}

	ctx.Backend.UseProgram(ctx.Programs.Geometry)
	ctx.Backend.SetUniformMat4("uMatVP", ctx.View.ViewProj)

	for _, call := range bucket.Plain {
		if call.Group.Visible() {
			ctx.rasterize(rasterGeometry, call)
		}
	}
	for _, call := range bucket.Instanced {
		if call.Group.Visible() {
			ctx.rasterize(rasterGeometry, call)
		}
	}
}

// Decal pass texture slots beyond the material layout.
const slotDecalDepth int32 = 6

// DecalPass blends decal volumes into the G-buffer's albedo and emission
// channels, reconstructing the surface position from the depth buffer.
// Depth writes stay off so decals never displace geometry.
func (ctx *Context) DecalPass() {
	bucket := ctx.Registry.Bucket(draw.TechniqueDecal)
	if bucket.Empty() {
		return
	}

	ctx.Targets.Bind(targets.FBGeometry)
	ctx.Backend.UseProgram(ctx.Programs.Decal)
	ctx.Backend.SetPipeline(gpu.PipelineState{
		ColorWrite: true,
		Blend:      gpu.BlendAlpha,
		// Render back faces so the volume survives the camera entering it.
		Cull: gpu.CullFront,
	})

	ctx.Backend.SetUniformInt("uTexDepth", slotDecalDepth)
	ctx.Backend.BindTexture(slotDecalDepth, gpu.TextureKind2D, ctx.Targets.Get(targets.TargetDepth))
	ctx.Backend.SetUniformMat4("uMatVP", ctx.View.ViewProj)
	ctx.Backend.SetUniformMat4("uMatInvViewProj", ctx.View.ViewProj.Inverse())
	ctx.Backend.SetUniformVec2("uScreenSize", math.NewVec2(float32(ctx.Width), float32(ctx.Height)))

	for _, call := range bucket.Plain {
		if call.Group.Visible() {
			ctx.rasterDecal(call, call.Group.Transform)
		}
	}
	for _, call := range bucket.Instanced {
		if !call.Group.Visible() {
			continue
		}
		// Decal volumes are backend-builtin cubes, so instanced decals are
		// expanded into one volume draw per instance.
		desc := call.Group.Instances
		for i := 0; i < desc.Count; i++ {
			ctx.rasterDecal(call, call.Group.Transform.Mul(desc.Transforms[i]))
		}
	}

	ctx.Backend.UnbindTexture(slotDecalDepth, gpu.TextureKind2D)
}

func (ctx *Context) rasterDecal(call *draw.Call, transform math.Mat4) {
	mat := &call.Material
	ctx.Backend.BindTexture(shader.SlotAlbedo, gpu.TextureKind2D, pickTexture(mat.Albedo.Texture.Handle, ctx.Fallbacks.White))
	ctx.Backend.BindTexture(shader.SlotEmission, gpu.TextureKind2D, pickTexture(mat.Emission.Texture.Handle, ctx.Fallbacks.Black))
	ctx.Backend.SetUniformVec4("uAlbedoColor", mat.Albedo.Color.ToVec4())
	ctx.Backend.SetUniformVec3("uEmissionColor", mat.Emission.Color.ToVec3())
	ctx.Backend.SetUniformFloat("uEmissionEnergy", mat.Emission.Energy)

	ctx.Backend.SetUniformMat4("uMatModel", transform)
	ctx.Backend.SetUniformMat4("uMatInvModel", transform.Inverse())
	ctx.Backend.DrawUnitCube()
}

func pickTexture(tex, fallback gpu.TextureHandle) gpu.TextureHandle {
	if tex != 0 {
		return tex
	}
	return fallback
}
