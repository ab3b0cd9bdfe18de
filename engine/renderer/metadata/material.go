package metadata

import (
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
)

// TransparencyMode decides which rendering route a draw call takes.
type TransparencyMode uint8

const (
	// TransparencyDisabled renders fully opaque through the deferred path.
	TransparencyDisabled TransparencyMode = iota
	// TransparencyPrepass renders through the forward path with a depth
	// prepass; fragments below the alpha cutoff are discarded.
	TransparencyPrepass
	// TransparencyAlpha renders through the forward path with blending and
	// no depth prepass.
	TransparencyAlpha
)

// BlendMode selects the blend equation used by the forward path. Deferred
// draws ignore it; any value other than BlendMix forces the forward route.
type BlendMode uint8

const (
	BlendMix BlendMode = iota
	BlendAdditive
	BlendMultiply
	BlendPremultipliedAlpha
)

func (m BlendMode) ToGPU() gpu.BlendFunc {
	switch m {
	case BlendAdditive:
		return gpu.BlendAdditive
	case BlendMultiply:
		return gpu.BlendMultiply
	case BlendPremultipliedAlpha:
		return gpu.BlendPremultiplied
	default:
		return gpu.BlendAlpha
	}
}

type CullMode uint8

const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

func (m CullMode) ToGPU() gpu.CullFace {
	switch m {
	case CullBack:
		return gpu.CullBack
	case CullFront:
		return gpu.CullFront
	default:
		return gpu.CullDisabled
	}
}

// BillboardMode orients geometry toward the camera at draw time.
type BillboardMode uint8

const (
	BillboardDisabled BillboardMode = iota
	// BillboardFront makes the geometry face the camera on all axes.
	BillboardFront
	// BillboardYAxis rotates around Y only, keeping the up vector.
	BillboardYAxis
)

// MapAlbedo is the base color slot: texture modulated by color.
type MapAlbedo struct {
	Texture Texture
	Color   Color
}

// MapEmission adds self illumination; Energy scales the color into HDR.
type MapEmission struct {
	Texture Texture
	Color   Color
	Energy  float32
}

// MapNormal perturbs the surface normal; Scale weighs the tangent-space
// offset.
type MapNormal struct {
	Texture Texture
	Scale   float32
}

// MapORM packs occlusion (R), roughness (G) and metalness (B); the factors
// multiply the sampled channels.
type MapORM struct {
	Texture   Texture
	Occlusion float32
	Roughness float32
	Metalness float32
}

// Material describes how a surface is shaded and which pipeline route its
// draws take. Materials are plain values; a draw call snapshots the material
// at submission time.
type Material struct {
	Albedo   MapAlbedo
	Emission MapEmission
	Normal   MapNormal
	ORM      MapORM

	UVOffset math.Vec2
	UVScale  math.Vec2

	// AlphaCutoff is the discard threshold used by the prepass and shadow
	// routes for TransparencyPrepass materials.
	AlphaCutoff float32

	Transparency TransparencyMode
	Blend        BlendMode
	Cull         CullMode
	Billboard    BillboardMode

	// Shader, when set, replaces the builtin surface program; Params feed
	// its user-declared uniforms.
	Shader *Shader
	Params []ShaderParam
}

// NewMaterial returns the default opaque material: white albedo, full
// roughness, no metalness, back-face culling.
func NewMaterial() Material {
	return Material{
		Albedo:   MapAlbedo{Color: White},
		Emission: MapEmission{Color: Black, Energy: 0},
		Normal:   MapNormal{Scale: 1},
		ORM:      MapORM{Occlusion: 1, Roughness: 1, Metalness: 0},
		UVOffset: math.NewVec2(0, 0),
		UVScale:  math.NewVec2(1, 1),

		AlphaCutoff:  0.5,
		Transparency: TransparencyDisabled,
		Blend:        BlendMix,
		Cull:         CullBack,
		Billboard:    BillboardDisabled,
	}
}

func (m *Material) param(name string, kind ShaderParamType) *ShaderParam {
	for i := range m.Params {
		if m.Params[i].Name == name {
			m.Params[i].Type = kind
			return &m.Params[i]
		}
	}
	m.Params = append(m.Params, ShaderParam{Name: name, Type: kind})
	return &m.Params[len(m.Params)-1]
}

// SetFloat stores a float param for the custom shader. Names that match no
// discovered uniform are kept but silently skipped at bind time.
func (m *Material) SetFloat(name string, v float32) {
	m.param(name, ShaderParamFloat).Float = v
}

func (m *Material) SetVec2(name string, v math.Vec2) {
	p := m.param(name, ShaderParamVec2)
	p.Vector = [4]float32{v.X, v.Y, 0, 0}
}

func (m *Material) SetVec3(name string, v math.Vec3) {
	p := m.param(name, ShaderParamVec3)
	p.Vector = [4]float32{v.X, v.Y, v.Z, 0}
}

func (m *Material) SetVec4(name string, v math.Vec4) {
	p := m.param(name, ShaderParamVec4)
	p.Vector = [4]float32{v.X, v.Y, v.Z, v.W}
}

func (m *Material) SetTexture(name string, tex gpu.TextureHandle) {
	m.param(name, ShaderParamTexture).Texture = tex
}
