package gpu

import "github.com/spaghettifunk/prisma/engine/math"

// Backend is the one fixed GPU command model the pipeline targets. A single
// implementation exists over Vulkan; tests substitute a recording fake. All
// methods must be called from the frame thread only.
//
// The interface is deliberately immediate-mode: the pass orchestrator binds
// a framebuffer and a program, sets uniforms by name, and issues draws. The
// Vulkan implementation maps this onto pipeline/descriptor caches
// internally.
type Backend interface {
	Initialize(appName string, width, height uint32) error
	Shutdown() error
	Resized(width, height uint32) error

	BeginFrame() error
	EndFrame() error

	// Textures and buffers.
	CreateTexture(spec TextureSpec, pixels []byte) (TextureHandle, error)
	DestroyTexture(tex TextureHandle)
	CreateVertexBuffer(data []byte) (BufferHandle, error)
	CreateIndexBuffer(indices []uint32) (BufferHandle, error)
	DestroyBuffer(buf BufferHandle)

	// Framebuffers. Attachments are fixed at creation; SetFramebufferLayer
	// retargets one attachment to a cube face and/or mip level, which the
	// shadow and bloom passes use. Attachment -1 addresses the depth
	// attachment, face -1 keeps a 2D view.
	CreateFramebuffer(name string, colors []TextureHandle, depth TextureHandle) (FramebufferHandle, error)
	DestroyFramebuffer(fb FramebufferHandle)
	SetFramebufferLayer(fb FramebufferHandle, attachment int32, tex TextureHandle, face int32, mip int32) error

	// Programs. ProgramUniforms introspects the active uniform list of a
	// compiled program (name, type, arity); sampler slots are assigned by
	// the caller.
	CompileProgram(name, vertexSrc, fragmentSrc string) (ProgramHandle, error)
	DestroyProgram(prog ProgramHandle)
	ProgramUniforms(prog ProgramHandle) ([]UniformInfo, error)

	// Frame commands.
	BindFramebuffer(fb FramebufferHandle)
	SetViewport(rect math.Rect)
	SetScissor(rect math.Rect)
	DisableScissor()
	SetPipeline(state PipelineState)
	Clear(flags ClearFlags, r, g, b, a float32)

	UseProgram(prog ProgramHandle)
	SetUniformInt(name string, v int32)
	SetUniformFloat(name string, v float32)
	SetUniformVec2(name string, v math.Vec2)
	SetUniformVec3(name string, v math.Vec3)
	SetUniformVec4(name string, v math.Vec4)
	SetUniformMat4(name string, v math.Mat4)
	BindTexture(slot int32, kind TextureKind, tex TextureHandle)
	UnbindTexture(slot int32, kind TextureKind)

	DrawIndexed(vb BufferHandle, ib BufferHandle, indexCount uint32, topology PrimitiveTopology)
	DrawIndexedInstanced(vb BufferHandle, ib BufferHandle, indexCount uint32, topology PrimitiveTopology, instances InstanceData)
	// DrawScreen rasterizes a full-screen triangle with the bound program.
	DrawScreen()
	// DrawUnitCube rasterizes the builtin [-0.5,0.5] cube (decal volumes,
	// sky background).
	DrawUnitCube()

	GenerateMipmaps(tex TextureHandle)

	// BlitToSurface copies a texture to the output surface and presents it.
	BlitToSurface(tex TextureHandle, srcW, srcH uint32, mode BlitMode)

	// ResetState returns the command stream to the canonical state expected
	// by code outside the pipeline (no framebuffer, no program, alpha
	// blending, LEqual depth).
	ResetState()
}
