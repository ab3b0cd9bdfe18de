package shader

import (
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// Texture unit layout shared by every builtin surface program.
const (
	SlotBones    int32 = 0
	SlotAlbedo   int32 = 1
	SlotNormal   int32 = 2
	SlotEmission int32 = 3
	SlotORM      int32 = 4
)

// Fallbacks are the 1x1 textures substituted for unset material maps.
type Fallbacks struct {
	White      gpu.TextureHandle
	Black      gpu.TextureHandle
	FlatNormal gpu.TextureHandle
}

func pick(tex metadata.Texture, fallback gpu.TextureHandle) gpu.TextureHandle {
	if tex.Handle != 0 {
		return tex.Handle
	}
	return fallback
}

// BindMaterial binds the material's maps into the fixed unit layout and
// uploads its factor uniforms onto the current program.
func BindMaterial(backend gpu.Backend, mat *metadata.Material, fb Fallbacks) {
	backend.BindTexture(SlotAlbedo, gpu.TextureKind2D, pick(mat.Albedo.Texture, fb.White))
	backend.BindTexture(SlotNormal, gpu.TextureKind2D, pick(mat.Normal.Texture, fb.FlatNormal))
	backend.BindTexture(SlotEmission, gpu.TextureKind2D, pick(mat.Emission.Texture, fb.Black))
	backend.BindTexture(SlotORM, gpu.TextureKind2D, pick(mat.ORM.Texture, fb.White))

	backend.SetUniformVec4("uAlbedoColor", mat.Albedo.Color.ToVec4())
	backend.SetUniformVec3("uEmissionColor", mat.Emission.Color.ToVec3())
	backend.SetUniformFloat("uEmissionEnergy", mat.Emission.Energy)
	backend.SetUniformFloat("uNormalScale", mat.Normal.Scale)
	backend.SetUniformFloat("uOcclusion", mat.ORM.Occlusion)
	backend.SetUniformFloat("uRoughness", mat.ORM.Roughness)
	backend.SetUniformFloat("uMetalness", mat.ORM.Metalness)
	backend.SetUniformVec2("uTexCoordOffset", mat.UVOffset)
	backend.SetUniformVec2("uTexCoordScale", mat.UVScale)
}

// BindSkeleton binds the bone matrix texture and flips the skinning switch.
func BindSkeleton(backend gpu.Backend, skeleton *metadata.Skeleton) {
	if skeleton != nil && skeleton.BoneTexture != 0 {
		backend.BindTexture(SlotBones, gpu.TextureKindBones, skeleton.BoneTexture)
		backend.SetUniformInt("uSkinning", 1)
	} else {
		backend.SetUniformInt("uSkinning", 0)
	}
}

// BindCustomParams uploads material param values onto the shader's
// discovered uniforms. Params that match no uniform, or whose stored type
// disagrees with the declaration, are skipped.
func BindCustomParams(backend gpu.Backend, s *metadata.Shader, params []metadata.ShaderParam) {
	for i := range params {
		p := &params[i]
		u := s.Uniform(p.Name)
		if u == nil {
			continue
		}
		switch {
		case u.Type == gpu.UniformFloat && p.Type == metadata.ShaderParamFloat:
			backend.SetUniformFloat(p.Name, p.Float)
		case u.Type == gpu.UniformVec2 && p.Type == metadata.ShaderParamVec2:
			backend.SetUniformVec2(p.Name, math.NewVec2(p.Vector[0], p.Vector[1]))
		case u.Type == gpu.UniformVec3 && p.Type == metadata.ShaderParamVec3:
			backend.SetUniformVec3(p.Name, math.NewVec3(p.Vector[0], p.Vector[1], p.Vector[2]))
		case u.Type == gpu.UniformVec4 && p.Type == metadata.ShaderParamVec4:
			backend.SetUniformVec4(p.Name, math.NewVec4(p.Vector[0], p.Vector[1], p.Vector[2], p.Vector[3]))
		case u.Type == gpu.UniformSampler2D && p.Type == metadata.ShaderParamTexture:
			backend.BindTexture(u.TexSlot, gpu.TextureKind2D, p.Texture)
		}
	}
}
