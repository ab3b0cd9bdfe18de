// Package shader implements the custom shading-logic contract: user code is
// split into uniform declarations and a body, spliced into the builtin
// surface template, compiled, and its extra uniforms discovered with
// auto-assigned texture slots.
package shader

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// userFragmentMarker is the line in the surface template replaced by the
// user's fragment body.
const userFragmentMarker = "#define USER_FRAGMENT_MARKER 0"

// FirstCustomTexSlot is the first texture unit available to user samplers;
// units below it are reserved for the builtin material layout.
const FirstCustomTexSlot = 5

// builtinUniforms are the surface-template uniforms the pipeline binds
// itself; discovery skips them.
var builtinUniforms = map[string]struct{}{
	"uTexAlbedo": {}, "uTexNormal": {}, "uTexEmission": {}, "uTexORM": {},
	"uTexBoneMatrices": {},
	"uAlphaCutoff":     {}, "uNormalScale": {},
	"uOcclusion": {}, "uRoughness": {}, "uMetalness": {},
	"uAlbedoColor": {}, "uEmissionEnergy": {}, "uEmissionColor": {},
	"uTexCoordOffset": {}, "uTexCoordScale": {},
	"uInstancing": {}, "uSkinning": {}, "uBillboard": {},
	"uMatModel": {}, "uMatNormal": {}, "uMatVP": {},
	"uBillboardView": {},
}

// SplitUserCode separates `uniform` declaration lines from the rest of the
// user's code. Declarations are hoisted after the template's #version line;
// everything else becomes the fragment body.
func SplitUserCode(src string) (uniforms string, body string) {
	var u, b strings.Builder
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "uniform "):
			u.WriteString(line)
			u.WriteByte('\n')
		case trimmed != "":
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return u.String(), b.String()
}

// ComposeFragment splices user uniforms after the template's #version line
// and substitutes the user body for the fragment marker.
func ComposeFragment(template, userUniforms, userBody string) (string, error) {
	versionStart := strings.Index(template, "#version")
	if versionStart < 0 {
		return "", fmt.Errorf("surface template missing #version")
	}
	versionEnd := strings.IndexByte(template[versionStart:], '\n')
	if versionEnd < 0 {
		return "", fmt.Errorf("surface template truncated after #version")
	}
	versionEnd += versionStart + 1

	markerAt := strings.Index(template, userFragmentMarker)
	if markerAt < 0 {
		return "", fmt.Errorf("surface template missing user fragment marker")
	}

	var out strings.Builder
	out.WriteString(template[:versionEnd])
	out.WriteString(userUniforms)
	out.WriteString(template[versionEnd:markerAt])
	out.WriteString(userBody)
	out.WriteString(template[markerAt+len(userFragmentMarker):])
	return out.String(), nil
}

// Compile builds a custom surface shader from a user fragment snippet. The
// returned shader carries only the user-declared uniforms, with texture
// slots assigned upward from FirstCustomTexSlot and sampler uniforms
// pre-bound to their slots.
func Compile(backend gpu.Backend, name, userCode string) (*metadata.Shader, error) {
	userUniforms, userBody := SplitUserCode(userCode)
	frag, err := ComposeFragment(SurfaceFragmentTemplate, userUniforms, userBody)
	if err != nil {
		return nil, err
	}

	prog, err := backend.CompileProgram(name, SurfaceVertexTemplate, frag)
	if err != nil {
		return nil, fmt.Errorf("custom shader %s: %w", name, err)
	}

	all, err := backend.ProgramUniforms(prog)
	if err != nil {
		backend.DestroyProgram(prog)
		return nil, fmt.Errorf("custom shader %s: %w", name, err)
	}

	custom := discoverCustom(all)

	backend.UseProgram(prog)
	// User samplers are hoisted above the builtin declarations, which shifts
	// any declaration-order default assignment. The reserved units must be
	// pinned explicitly before the custom ones.
	backend.SetUniformInt("uTexBoneMatrices", SlotBones)
	backend.SetUniformInt("uTexAlbedo", SlotAlbedo)
	backend.SetUniformInt("uTexNormal", SlotNormal)
	backend.SetUniformInt("uTexEmission", SlotEmission)
	backend.SetUniformInt("uTexORM", SlotORM)
	for _, u := range custom {
		if u.TexSlot >= 0 {
			backend.SetUniformInt(u.Name, u.TexSlot)
		}
	}

	core.LogDebug("custom shader %s: discovered %d uniform(s)", name, len(custom))

	return &metadata.Shader{
		Name:     name,
		Program:  prog,
		Uniforms: custom,
	}, nil
}

// discoverCustom filters the program's active uniforms down to the
// user-declared ones and assigns sampler slots.
func discoverCustom(all []gpu.UniformInfo) []gpu.UniformInfo {
	var custom []gpu.UniformInfo
	nextSlot := int32(FirstCustomTexSlot)
	for _, u := range all {
		if _, builtin := builtinUniforms[u.Name]; builtin {
			continue
		}
		if strings.HasPrefix(u.Name, "gl_") || strings.Contains(u.Name, "[") {
			continue
		}
		switch u.Type {
		case gpu.UniformFloat, gpu.UniformVec2, gpu.UniformVec3, gpu.UniformVec4:
			u.TexSlot = -1
		case gpu.UniformSampler2D:
			u.TexSlot = nextSlot
			nextSlot++
		default:
			continue
		}
		custom = append(custom, u)
	}
	return custom
}

// Destroy releases the shader's program.
func Destroy(backend gpu.Backend, s *metadata.Shader) {
	if s.IsValid() {
		backend.DestroyProgram(s.Program)
		s.Program = 0
	}
}
