package passes

import (
	"fmt"

	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
	"github.com/spaghettifunk/prisma/engine/renderer/shader"
)

// Programs holds every builtin pipeline program, compiled once at renderer
// initialization.
type Programs struct {
	Geometry gpu.ProgramHandle
	// Depth serves both the shadow pass and the scene depth prepass; the
	// alpha cutoff uniform differs between the two.
	Depth gpu.ProgramHandle
	Decal gpu.ProgramHandle

	SSAO gpu.ProgramHandle
	SSIL gpu.ProgramHandle
	SSR  gpu.ProgramHandle
	Blur gpu.ProgramHandle

	Ambient gpu.ProgramHandle
	Light   gpu.ProgramHandle
	Compose gpu.ProgramHandle

	Background gpu.ProgramHandle
	Skybox     gpu.ProgramHandle

	Forward gpu.ProgramHandle

	Fog            gpu.ProgramHandle
	Dof            gpu.ProgramHandle
	BloomDown      gpu.ProgramHandle
	BloomUp        gpu.ProgramHandle
	BloomComposite gpu.ProgramHandle
	Output         gpu.ProgramHandle
	FXAA           gpu.ProgramHandle
}

// NewPrograms compiles the builtin program set. Any failure aborts renderer
// initialization.
func NewPrograms(backend gpu.Backend) (*Programs, error) {
	// The default surface program is the custom-shader template with an
	// empty user fragment.
	geomFrag, err := shader.ComposeFragment(shader.SurfaceFragmentTemplate, "", "")
	if err != nil {
		return nil, err
	}

	p := &Programs{}
	specs := []struct {
		name   string
		vert   string
		frag   string
		handle *gpu.ProgramHandle
	}{
		{"geometry", shader.SurfaceVertexTemplate, geomFrag, &p.Geometry},
		{"depth", shader.SurfaceVertexTemplate, depthFragSrc, &p.Depth},
		{"decal", cubeVertexSrc, decalFragSrc, &p.Decal},
		{"ssao", fullscreenVertexSrc, ssaoFragSrc, &p.SSAO},
		{"ssil", fullscreenVertexSrc, ssilFragSrc, &p.SSIL},
		{"ssr", fullscreenVertexSrc, ssrFragSrc, &p.SSR},
		{"blur", fullscreenVertexSrc, blurFragSrc, &p.Blur},
		{"ambient", fullscreenVertexSrc, ambientFragSrc, &p.Ambient},
		{"light", fullscreenVertexSrc, lightFragSrc, &p.Light},
		{"compose", fullscreenVertexSrc, composeFragSrc, &p.Compose},
		{"background", fullscreenVertexSrc, backgroundFragSrc, &p.Background},
		{"skybox", cubeVertexSrc, skyboxFragSrc, &p.Skybox},
		{"forward", shader.SurfaceVertexTemplate, forwardFragSrc, &p.Forward},
		{"fog", fullscreenVertexSrc, fogFragSrc, &p.Fog},
		{"dof", fullscreenVertexSrc, dofFragSrc, &p.Dof},
		{"bloom_down", fullscreenVertexSrc, bloomDownFragSrc, &p.BloomDown},
		{"bloom_up", fullscreenVertexSrc, bloomUpFragSrc, &p.BloomUp},
		{"bloom_composite", fullscreenVertexSrc, bloomCompositeFragSrc, &p.BloomComposite},
		{"output", fullscreenVertexSrc, outputFragSrc, &p.Output},
		{"fxaa", fullscreenVertexSrc, fxaaFragSrc, &p.FXAA},
	}

	for _, s := range specs {
		handle, err := backend.CompileProgram(s.name, s.vert, s.frag)
		if err != nil {
			p.Destroy(backend)
			return nil, fmt.Errorf("builtin program %s: %w", s.name, err)
		}
		*s.handle = handle
	}
	return p, nil
}

// Destroy releases every compiled program.
func (p *Programs) Destroy(backend gpu.Backend) {
	for _, h := range []gpu.ProgramHandle{
		p.Geometry, p.Depth, p.Decal,
		p.SSAO, p.SSIL, p.SSR, p.Blur,
		p.Ambient, p.Light, p.Compose,
		p.Background, p.Skybox, p.Forward,
		p.Fog, p.Dof, p.BloomDown, p.BloomUp, p.BloomComposite,
		p.Output, p.FXAA,
	} {
		if h != 0 {
			backend.DestroyProgram(h)
		}
	}
}
