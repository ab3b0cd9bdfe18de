package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
	"github.com/spaghettifunk/prisma/engine/renderer/rendertest"
)

const userSnippet = `
uniform float uBlend;
uniform sampler2D uTexDetail;

vec3 detail = texture(uTexDetail, vTexCoord).rgb;
albedo.rgb = mix(albedo.rgb, detail, uBlend);
`

func TestSplitUserCode(t *testing.T) {
	uniforms, body := SplitUserCode(userSnippet)

	assert.Contains(t, uniforms, "uniform float uBlend;")
	assert.Contains(t, uniforms, "uniform sampler2D uTexDetail;")
	assert.NotContains(t, body, "uniform")
	assert.Contains(t, body, "mix(albedo.rgb, detail, uBlend)")
}

func TestComposeFragmentPlacement(t *testing.T) {
	uniforms, body := SplitUserCode(userSnippet)
	frag, err := ComposeFragment(SurfaceFragmentTemplate, uniforms, body)
	require.NoError(t, err)

	// Uniforms directly after the #version line.
	lines := strings.Split(frag, "\n")
	assert.True(t, strings.HasPrefix(lines[0], "#version"))
	assert.Equal(t, "uniform float uBlend;", lines[1])

	// The marker is gone, the body is in.
	assert.NotContains(t, frag, "USER_FRAGMENT_MARKER")
	assert.Contains(t, frag, "mix(albedo.rgb, detail, uBlend)")
}

func TestComposeFragmentRejectsBrokenTemplates(t *testing.T) {
	_, err := ComposeFragment("void main() {}", "", "")
	assert.Error(t, err)

	_, err = ComposeFragment("#version 450\nvoid main() {}", "", "")
	assert.Error(t, err)
}

func TestCompileDiscoversCustomUniforms(t *testing.T) {
	backend := rendertest.New()
	s, err := Compile(backend, "detail_blend", userSnippet)
	require.NoError(t, err)
	require.True(t, s.IsValid())

	blend := s.Uniform("uBlend")
	require.NotNil(t, blend)
	assert.Equal(t, gpu.UniformFloat, blend.Type)
	assert.Equal(t, int32(-1), blend.TexSlot)

	detail := s.Uniform("uTexDetail")
	require.NotNil(t, detail)
	assert.Equal(t, int32(FirstCustomTexSlot), detail.TexSlot)

	// Builtin uniforms never leak into the custom list.
	assert.Nil(t, s.Uniform("uAlbedoColor"))
	assert.Nil(t, s.Uniform("uTexAlbedo"))

	// The sampler was pre-bound to its slot.
	assert.Contains(t, backend.Ops, "SetUniformInt(uTexDetail,5)")
}

func TestCompileRepinsReservedSamplerSlots(t *testing.T) {
	backend := rendertest.New()
	s, err := Compile(backend, "detail_blend", userSnippet)
	require.NoError(t, err)

	// A user-declared sampler sits above the builtin declarations in the
	// composed fragment, so declaration-order slot defaults would shift the
	// whole reserved layout. Compile must pin every reserved unit back.
	assert.Contains(t, backend.Ops, "SetUniformInt(uTexBoneMatrices,0)")
	assert.Contains(t, backend.Ops, "SetUniformInt(uTexAlbedo,1)")
	assert.Contains(t, backend.Ops, "SetUniformInt(uTexNormal,2)")
	assert.Contains(t, backend.Ops, "SetUniformInt(uTexEmission,3)")
	assert.Contains(t, backend.Ops, "SetUniformInt(uTexORM,4)")

	// The custom sampler still starts above the reserved range.
	assert.Contains(t, backend.Ops, "SetUniformInt(uTexDetail,5)")
	assert.Equal(t, int32(FirstCustomTexSlot), s.Uniform("uTexDetail").TexSlot)
}

func TestCompileFailurePropagates(t *testing.T) {
	backend := rendertest.New()
	backend.FailCompile = true
	_, err := Compile(backend, "broken", userSnippet)
	assert.Error(t, err)
}

func TestBindCustomParams(t *testing.T) {
	backend := rendertest.New()
	s, err := Compile(backend, "detail_blend", userSnippet)
	require.NoError(t, err)

	mat := metadata.NewMaterial()
	mat.Shader = s
	mat.SetFloat("uBlend", 0.25)
	mat.SetTexture("uTexDetail", 42)
	mat.SetVec3("uNoSuchUniform", math.NewVec3(1, 2, 3))

	backend.Ops = nil
	BindCustomParams(backend, s, mat.Params)

	assert.Contains(t, backend.Ops, "SetUniformFloat(uBlend,0.25)")
	assert.Contains(t, backend.Ops, "BindTexture(slot=5,tex=42)")
	assert.NotContains(t, backend.Ops, "SetUniformVec3(uNoSuchUniform)")
}

func TestBindMaterialFallbacksAndFactors(t *testing.T) {
	backend := rendertest.New()
	fb := Fallbacks{White: 1, Black: 2, FlatNormal: 3}

	mat := metadata.NewMaterial()
	mat.Albedo.Texture.Handle = 7
	BindMaterial(backend, &mat, fb)

	assert.Contains(t, backend.Ops, "BindTexture(slot=1,tex=7)")
	assert.Contains(t, backend.Ops, "BindTexture(slot=2,tex=3)")
	assert.Contains(t, backend.Ops, "BindTexture(slot=3,tex=2)")
	assert.Contains(t, backend.Ops, "BindTexture(slot=4,tex=1)")
	assert.Contains(t, backend.Ops, "SetUniformFloat(uRoughness,1)")
}
