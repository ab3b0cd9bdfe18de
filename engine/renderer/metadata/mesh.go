package metadata

import (
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
)

// ShadowCastMode decides whether and with which face culling a mesh is
// rasterized into shadow maps.
type ShadowCastMode uint8

const (
	// ShadowCastAuto casts shadows with the material's own cull mode.
	ShadowCastAuto ShadowCastMode = iota
	ShadowCastDisabled
	ShadowCastFrontFaces
	ShadowCastBackFaces
	ShadowCastAllFaces
)

func (m ShadowCastMode) Casts() bool {
	return m != ShadowCastDisabled
}

// Mesh is uploaded geometry plus the local-space bounds used for culling.
// A zero AABB means "no bounds supplied" and disables culling for the mesh.
type Mesh struct {
	Name string

	VertexBuffer gpu.BufferHandle
	IndexBuffer  gpu.BufferHandle
	IndexCount   uint32
	Topology     gpu.PrimitiveTopology

	AABB       math.AABB
	ShadowCast ShadowCastMode

	// LayerMask selects which render layers the mesh belongs to. Zero is
	// treated as "all layers".
	LayerMask uint32
}

// Skeleton holds the GPU side of a skinned pose: a bone-matrix texture
// refreshed by the animation system each frame.
type Skeleton struct {
	BoneCount   uint32
	BoneTexture gpu.TextureHandle
}

// Model groups meshes with their materials. MaterialIndex[i] selects the
// material for Meshes[i].
type Model struct {
	Name          string
	Meshes        []*Mesh
	Materials     []Material
	MaterialIndex []int
	Skeleton      *Skeleton
	AABB          math.AABB
}

// Particle is one live instance of a particle system at submission time.
type Particle struct {
	Transform math.Mat4
	Color     Color
}

// ParticleSystem is submitted as a single instanced draw over its live
// particles. AABB bounds the whole system in local space.
type ParticleSystem struct {
	Mesh      *Mesh
	Material  Material
	Particles []Particle
	AABB      math.AABB
}
