package gpu

import "github.com/spaghettifunk/prisma/engine/math"

// Handles are opaque indices into backend-owned tables. The zero value is
// always "none"/"invalid".
type (
	TextureHandle     uint32
	BufferHandle      uint32
	ProgramHandle     uint32
	FramebufferHandle uint32
)

type TextureKind uint8

const (
	TextureKind2D TextureKind = iota
	TextureKindCube
	// TextureKindBones is a 1D-style storage texture holding skinning
	// matrices, bound to the reserved bone-matrix unit.
	TextureKindBones
)

type TextureFormat uint8

const (
	FormatRGBA8 TextureFormat = iota
	FormatRGBA16F
	FormatRG16F
	FormatR8
	FormatDepth32F
)

// TextureSpec describes a texture or render-target backing image.
type TextureSpec struct {
	Name      string
	Width     uint32
	Height    uint32
	Format    TextureFormat
	MipLevels uint32
	Kind      TextureKind
}

type CompareFunc uint8

const (
	CompareNever CompareFunc = iota
	CompareLess
	CompareLEqual
	CompareGreater
	CompareGEqual
	CompareAlways
)

type BlendFunc uint8

const (
	BlendDisabled BlendFunc = iota
	BlendAlpha
	BlendAdditive
	BlendMultiply
	BlendPremultiplied
)

type CullFace uint8

const (
	CullBack CullFace = iota
	CullFront
	CullDisabled
)

// PipelineState is the fixed-function raster state a pass configures before
// issuing draws. Mirrors the depth/blend/cull toggles of the command model.
type PipelineState struct {
	DepthTest  bool
	DepthFunc  CompareFunc
	DepthWrite bool
	ColorWrite bool
	Blend      BlendFunc
	Cull       CullFace
}

type ClearFlags uint8

const (
	ClearColorBuffer ClearFlags = 1 << iota
	ClearDepthBuffer
)

type PrimitiveTopology uint8

const (
	TopologyTriangles PrimitiveTopology = iota
	TopologyTriangleStrip
)

type UniformType uint8

const (
	UniformFloat UniformType = iota
	UniformInt
	UniformVec2
	UniformVec3
	UniformVec4
	UniformMat4
	UniformSampler2D
)

// UniformInfo is one active uniform discovered on a compiled program.
// TexSlot is -1 for non-sampler uniforms.
type UniformInfo struct {
	Name    string
	Type    UniformType
	Arity   int32
	TexSlot int32
}

// InstanceData is the normalized per-draw instancing payload streamed to the
// backend. Transforms is always populated; Colors may be nil.
type InstanceData struct {
	Transforms []math.Mat4
	Colors     []math.Vec4
	Count      int32
}

// BlitMode controls the final copy to the output surface.
type BlitMode struct {
	AspectKeep bool
	Linear     bool
}
