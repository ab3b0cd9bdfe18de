package metadata

import "github.com/spaghettifunk/prisma/engine/renderer/gpu"

// Shader is a compiled custom material program together with the uniform
// layout discovered at compile time. Uniforms lists only the user-declared
// uniforms; the pipeline-owned uniforms (matrices, material maps, factors)
// are bound by the technique and never appear here.
type Shader struct {
	Name     string
	Program  gpu.ProgramHandle
	Uniforms []gpu.UniformInfo
}

func (s *Shader) IsValid() bool {
	return s != nil && s.Program != 0
}

// Uniform returns the discovered uniform with the given name, or nil.
func (s *Shader) Uniform(name string) *gpu.UniformInfo {
	if s == nil {
		return nil
	}
	for i := range s.Uniforms {
		if s.Uniforms[i].Name == name {
			return &s.Uniforms[i]
		}
	}
	return nil
}

type ShaderParamType uint8

const (
	ShaderParamFloat ShaderParamType = iota
	ShaderParamVec2
	ShaderParamVec3
	ShaderParamVec4
	ShaderParamTexture
)

// ShaderParam is one material-level value for a custom shader uniform.
// Params whose name matches no discovered uniform are kept but never bound.
type ShaderParam struct {
	Name    string
	Type    ShaderParamType
	Float   float32
	Vector  [4]float32
	Texture gpu.TextureHandle
}
