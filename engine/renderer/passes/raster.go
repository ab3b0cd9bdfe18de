package passes

import (
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/draw"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
	"github.com/spaghettifunk/prisma/engine/renderer/lights"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
	"github.com/spaghettifunk/prisma/engine/renderer/shader"
)

// Raster dispatch. Each draw call is described by a variant tag (which pass
// consumes it) plus its instancing tag, and dispatched through a fixed
// strategy table instead of per-call conditionals.

type rasterVariant uint8

const (
	rasterShadow rasterVariant = iota
	rasterPrepass
	rasterGeometry
	rasterForward

	rasterVariantCount
)

type rasterFunc func(ctx *Context, call *draw.Call)

// rasterTable is indexed by [variant][instanced].
var rasterTable = [rasterVariantCount][2]rasterFunc{
	rasterShadow:   {(*Context).rasterShadowPlain, (*Context).rasterShadowInstanced},
	rasterPrepass:  {(*Context).rasterPrepassPlain, (*Context).rasterPrepassInstanced},
	rasterGeometry: {(*Context).rasterGeometryPlain, (*Context).rasterGeometryInstanced},
	rasterForward:  {(*Context).rasterForwardPlain, (*Context).rasterForwardInstanced},
}

func (ctx *Context) rasterize(variant rasterVariant, call *draw.Call) {
	idx := 0
	if call.Group.Instanced() {
		idx = 1
	}
	rasterTable[variant][idx](ctx, call)
}

// Shadow-route alpha testing keeps almost everything; the scene prepass is
// far stricter so that only near-opaque fragments write depth.
const (
	shadowAlphaCutoff  = 0.1
	prepassAlphaCutoff = 0.99
)

// bindTransforms uploads the group's matrices and the billboard/skinning
// switches onto the current program.
func (ctx *Context) bindTransforms(call *draw.Call) {
	g := call.Group
	ctx.Backend.SetUniformMat4("uMatModel", g.Transform)
	ctx.Backend.SetUniformMat4("uMatNormal", math.NewMat4Transposed(g.Transform.Inverse()))

	switch call.Material.Billboard {
	case metadata.BillboardFront:
		ctx.Backend.SetUniformInt("uBillboard", 1)
		ctx.Backend.SetUniformMat4("uBillboardView", billboardMatrix(ctx.View.InvView, false))
	case metadata.BillboardYAxis:
		ctx.Backend.SetUniformInt("uBillboard", 1)
		ctx.Backend.SetUniformMat4("uBillboardView", billboardMatrix(ctx.View.InvView, true))
	default:
		ctx.Backend.SetUniformInt("uBillboard", 0)
	}

	shader.BindSkeleton(ctx.Backend, g.Skeleton)

	instanced := int32(0)
	if g.Instanced() {
		instanced = 1
	}
	ctx.Backend.SetUniformInt("uInstancing", instanced)
}

// billboardMatrix extracts the camera's rotation for billboarding; yAxisOnly
// keeps the world up vector.
func billboardMatrix(invView math.Mat4, yAxisOnly bool) math.Mat4 {
	m := invView
	// Drop the translation, keep orientation only.
	m.Data[12], m.Data[13], m.Data[14] = 0, 0, 0
	if yAxisOnly {
		// Flatten the camera right/forward onto the XZ plane.
		right := math.NewVec3(m.Data[0], 0, m.Data[2]).Normalized()
		forward := math.NewVec3(m.Data[8], 0, m.Data[10]).Normalized()
		m.Data[0], m.Data[1], m.Data[2] = right.X, 0, right.Z
		m.Data[4], m.Data[5], m.Data[6] = 0, 1, 0
		m.Data[8], m.Data[9], m.Data[10] = forward.X, 0, forward.Z
	}
	return m
}

func instanceData(g *draw.Group) gpu.InstanceData {
	desc := g.Instances
	data := gpu.InstanceData{
		Transforms: desc.Transforms,
		Count:      int32(desc.Count),
	}
	if len(desc.Colors) > 0 {
		data.Colors = make([]math.Vec4, len(desc.Colors))
		for i, c := range desc.Colors {
			data.Colors[i] = c.ToVec4()
		}
	}
	return data
}

func (ctx *Context) issuePlain(call *draw.Call) {
	ctx.Backend.DrawIndexed(call.Mesh.VertexBuffer, call.Mesh.IndexBuffer, call.Mesh.IndexCount, call.Mesh.Topology)
}

func (ctx *Context) issueInstanced(call *draw.Call) {
	ctx.Backend.DrawIndexedInstanced(call.Mesh.VertexBuffer, call.Mesh.IndexBuffer, call.Mesh.IndexCount, call.Mesh.Topology, instanceData(call.Group))
}

// shadowCull maps the mesh's shadow-cast mode onto a cull face, defaulting
// to the material's own mode.
func shadowCull(call *draw.Call) gpu.CullFace {
	switch call.Mesh.ShadowCast {
	case metadata.ShadowCastFrontFaces:
		// Culling back faces rasterizes front faces.
		return gpu.CullBack
	case metadata.ShadowCastBackFaces:
		return gpu.CullFront
	case metadata.ShadowCastAllFaces:
		return gpu.CullDisabled
	default:
		return call.Material.Cull.ToGPU()
	}
}

// depthOnlySetup binds the albedo map and cutoff used by the depth-only
// routes.
func (ctx *Context) depthOnlySetup(call *draw.Call, cutoff float32) {
	tex := call.Material.Albedo.Texture.Handle
	if tex == 0 {
		tex = ctx.Fallbacks.White
	}
	ctx.Backend.BindTexture(shader.SlotAlbedo, gpu.TextureKind2D, tex)
	ctx.Backend.SetUniformVec4("uAlbedoColor", call.Material.Albedo.Color.ToVec4())
	if call.Material.Transparency == metadata.TransparencyPrepass {
		ctx.Backend.SetUniformFloat("uAlphaCutoff", cutoff)
	} else {
		ctx.Backend.SetUniformFloat("uAlphaCutoff", 0)
	}
	ctx.Backend.SetUniformVec2("uTexCoordOffset", call.Material.UVOffset)
	ctx.Backend.SetUniformVec2("uTexCoordScale", call.Material.UVScale)
}

func (ctx *Context) rasterShadowPlain(call *draw.Call) {
	ctx.Backend.SetPipeline(gpu.PipelineState{
		DepthTest: true, DepthFunc: gpu.CompareLEqual, DepthWrite: true,
		Cull: shadowCull(call),
	})
	ctx.depthOnlySetup(call, shadowAlphaCutoff)
	ctx.bindTransforms(call)
	ctx.issuePlain(call)
}

func (ctx *Context) rasterShadowInstanced(call *draw.Call) {
	ctx.Backend.SetPipeline(gpu.PipelineState{
		DepthTest: true, DepthFunc: gpu.CompareLEqual, DepthWrite: true,
		Cull: shadowCull(call),
	})
	ctx.depthOnlySetup(call, shadowAlphaCutoff)
	ctx.bindTransforms(call)
	ctx.issueInstanced(call)
}

func (ctx *Context) rasterPrepassPlain(call *draw.Call) {
	ctx.Backend.SetPipeline(gpu.PipelineState{
		DepthTest: true, DepthFunc: gpu.CompareLEqual, DepthWrite: true,
		Cull: call.Material.Cull.ToGPU(),
	})
	ctx.depthOnlySetup(call, prepassAlphaCutoff)
	ctx.bindTransforms(call)
	ctx.issuePlain(call)
}

func (ctx *Context) rasterPrepassInstanced(call *draw.Call) {
	ctx.Backend.SetPipeline(gpu.PipelineState{
		DepthTest: true, DepthFunc: gpu.CompareLEqual, DepthWrite: true,
		Cull: call.Material.Cull.ToGPU(),
	})
	ctx.depthOnlySetup(call, prepassAlphaCutoff)
	ctx.bindTransforms(call)
	ctx.issueInstanced(call)
}

// geometrySetup switches to the call's custom program when present and
// binds the full material. Returns true when the default program must be
// restored afterwards.
func (ctx *Context) geometrySetup(call *draw.Call) bool {
	custom := call.Material.Shader.IsValid()
	if custom {
		ctx.Backend.UseProgram(call.Material.Shader.Program)
		ctx.Backend.SetUniformMat4("uMatVP", ctx.View.ViewProj)
	}
	ctx.Backend.SetPipeline(gpu.PipelineState{
		DepthTest: true, DepthFunc: gpu.CompareLEqual, DepthWrite: true, ColorWrite: true,
		Cull: call.Material.Cull.ToGPU(),
	})
	shader.BindMaterial(ctx.Backend, &call.Material, ctx.Fallbacks)
	ctx.Backend.SetUniformFloat("uAlphaCutoff", call.Material.AlphaCutoff)
	if custom {
		shader.BindCustomParams(ctx.Backend, call.Material.Shader, call.Material.Params)
	}
	ctx.bindTransforms(call)
	return custom
}

func (ctx *Context) restoreGeometryProgram() {
	ctx.Backend.UseProgram(ctx.Programs.Geometry)
	ctx.Backend.SetUniformMat4("uMatVP", ctx.View.ViewProj)
}

func (ctx *Context) rasterGeometryPlain(call *draw.Call) {
	custom := ctx.geometrySetup(call)
	ctx.issuePlain(call)
	if custom {
		ctx.restoreGeometryProgram()
	}
}

func (ctx *Context) rasterGeometryInstanced(call *draw.Call) {
	custom := ctx.geometrySetup(call)
	ctx.issueInstanced(call)
	if custom {
		ctx.restoreGeometryProgram()
	}
}

// forwardSetup binds the material, blend state and the call's nearby light
// array.
func (ctx *Context) forwardSetup(call *draw.Call) {
	depthWrite := call.Material.Transparency != metadata.TransparencyAlpha
	ctx.Backend.SetPipeline(gpu.PipelineState{
		DepthTest: true, DepthFunc: gpu.CompareLEqual, DepthWrite: depthWrite, ColorWrite: true,
		Blend: call.Material.Blend.ToGPU(),
		Cull:  call.Material.Cull.ToGPU(),
	})
	shader.BindMaterial(ctx.Backend, &call.Material, ctx.Fallbacks)
	ctx.Backend.SetUniformFloat("uAlphaCutoff", call.Material.AlphaCutoff)
	ctx.bindTransforms(call)

	box, boxValid := call.Group.WorldAABB()
	nearby := ctx.Lights.NearbyLights(make([]*lights.Light, 0, MaxForwardLights), box, boxValid)
	ctx.bindForwardLights(nearby)
}

func (ctx *Context) bindForwardLights(nearby []*lights.Light) {
	for i := 0; i < MaxForwardLights; i++ {
		prefix := forwardLightPrefix(i)
		if i >= len(nearby) {
			ctx.Backend.SetUniformInt(prefix+".enabled", 0)
			continue
		}
		l := nearby[i]
		ctx.Backend.SetUniformInt(prefix+".enabled", 1)
		ctx.Backend.SetUniformInt(prefix+".type", int32(l.Type))
		ctx.Backend.SetUniformVec3(prefix+".position", l.Position())
		ctx.Backend.SetUniformVec3(prefix+".direction", l.Direction())
		ctx.Backend.SetUniformVec3(prefix+".color", l.Color.ToVec3())
		ctx.Backend.SetUniformFloat(prefix+".energy", l.Energy)
		ctx.Backend.SetUniformFloat(prefix+".range", l.Range())
		ctx.Backend.SetUniformFloat(prefix+".attenuation", l.Attenuation())
		ctx.Backend.SetUniformFloat(prefix+".innerCutoff", l.InnerCutoff())
		ctx.Backend.SetUniformFloat(prefix+".outerCutoff", l.OuterCutoff())
	}
}

var forwardLightPrefixes = [MaxForwardLights]string{
	"uLights[0]", "uLights[1]", "uLights[2]", "uLights[3]",
}

func forwardLightPrefix(i int) string {
	return forwardLightPrefixes[i]
}

func (ctx *Context) rasterForwardPlain(call *draw.Call) {
	ctx.forwardSetup(call)
	ctx.issuePlain(call)
}

func (ctx *Context) rasterForwardInstanced(call *draw.Call) {
	ctx.forwardSetup(call)
	ctx.issueInstanced(call)
}
