package targets

import (
	"fmt"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
)

// TargetID names one logical texture in the fixed pool.
type TargetID uint8

const (
	TargetAlbedo TargetID = iota
	TargetEmission
	TargetNormal
	TargetORM
	TargetDepth

	TargetDiffuse
	TargetSpecular

	// Ping-pong targets carry two physical textures; Get returns the one
	// last written, BindAndSwap flips them.
	TargetScene
	TargetSSAO
	TargetSSIL

	// Mip-chain targets.
	TargetSSR
	TargetBloom

	targetCount
)

// FramebufferID names one render destination.
type FramebufferID uint8

const (
	FBGeometry FramebufferID = iota
	FBLighting
	FBScene
	FBSSAO
	FBSSIL
	FBSSR
	FBBloom

	framebufferCount
)

type pingPong struct {
	tex [2]gpu.TextureHandle
	fb  [2]gpu.FramebufferHandle
	// active is the physical buffer currently bound for writing.
	active int
}

// Manager owns the fixed pool of render targets sized to the output
// resolution. Resize reallocates the whole pool; a zero dimension is fatal
// to the frame per core.ErrTargetInvalid.
type Manager struct {
	backend gpu.Backend

	width  uint32
	height uint32

	albedo   gpu.TextureHandle
	emission gpu.TextureHandle
	normal   gpu.TextureHandle
	orm      gpu.TextureHandle
	depth    gpu.TextureHandle

	diffuse  gpu.TextureHandle
	specular gpu.TextureHandle

	scene pingPong
	ssao  pingPong
	ssil  pingPong

	ssr          gpu.TextureHandle
	ssrMips      uint32
	bloom        gpu.TextureHandle
	bloomMips    uint32
	bloomBaseW   uint32
	bloomBaseH   uint32
	currBloomMip int32

	geometryFB gpu.FramebufferHandle
	lightingFB gpu.FramebufferHandle
	ssrFB      gpu.FramebufferHandle
	bloomFB    gpu.FramebufferHandle
}

// mipCountFor returns the number of mips down to a 8px floor.
func mipCountFor(w, h uint32) uint32 {
	n := uint32(1)
	for w > 8 && h > 8 {
		w /= 2
		h /= 2
		n++
	}
	return n
}

func New(backend gpu.Backend, width, height uint32) (*Manager, error) {
	m := &Manager{backend: backend}
	if err := m.allocate(width, height); err != nil {
		return nil, err
	}
	return m, nil
}

// Resize drops every target and reallocates at the new resolution.
func (m *Manager) Resize(width, height uint32) error {
	m.release()
	return m.allocate(width, height)
}

func (m *Manager) Width() uint32  { return m.width }
func (m *Manager) Height() uint32 { return m.height }

func (m *Manager) allocate(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("render targets %dx%d: %w", width, height, core.ErrTargetInvalid)
	}
	m.width, m.height = width, height
	halfW, halfH := math.Max(width/2, 1), math.Max(height/2, 1)

	var err error
	tex := func(name string, w, h uint32, format gpu.TextureFormat, mips uint32) gpu.TextureHandle {
		if err != nil {
			return 0
		}
		var t gpu.TextureHandle
		t, err = m.backend.CreateTexture(gpu.TextureSpec{
			Name: name, Width: w, Height: h, Format: format,
			MipLevels: mips, Kind: gpu.TextureKind2D,
		}, nil)
		return t
	}

	m.albedo = tex("gbuffer_albedo", width, height, gpu.FormatRGBA8, 1)
	m.emission = tex("gbuffer_emission", width, height, gpu.FormatRGBA16F, 1)
	m.normal = tex("gbuffer_normal", width, height, gpu.FormatRG16F, 1)
	m.orm = tex("gbuffer_orm", width, height, gpu.FormatRGBA8, 1)
	m.depth = tex("gbuffer_depth", width, height, gpu.FormatDepth32F, 1)

	m.diffuse = tex("light_diffuse", width, height, gpu.FormatRGBA16F, 1)
	m.specular = tex("light_specular", width, height, gpu.FormatRGBA16F, 1)

	m.scene.tex[0] = tex("scene_0", width, height, gpu.FormatRGBA16F, 1)
	m.scene.tex[1] = tex("scene_1", width, height, gpu.FormatRGBA16F, 1)
	m.ssao.tex[0] = tex("ssao_0", halfW, halfH, gpu.FormatR8, 1)
	m.ssao.tex[1] = tex("ssao_1", halfW, halfH, gpu.FormatR8, 1)
	m.ssil.tex[0] = tex("ssil_0", halfW, halfH, gpu.FormatRGBA16F, 1)
	m.ssil.tex[1] = tex("ssil_1", halfW, halfH, gpu.FormatRGBA16F, 1)

	m.ssrMips = mipCountFor(width, height)
	m.ssr = tex("ssr", width, height, gpu.FormatRGBA16F, m.ssrMips)

	m.bloomBaseW, m.bloomBaseH = halfW, halfH
	m.bloomMips = mipCountFor(halfW, halfH)
	m.bloom = tex("bloom", halfW, halfH, gpu.FormatRGBA16F, m.bloomMips)
	if err != nil {
		return err
	}

	fb := func(name string, colors []gpu.TextureHandle, depth gpu.TextureHandle) gpu.FramebufferHandle {
		if err != nil {
			return 0
		}
		var f gpu.FramebufferHandle
		f, err = m.backend.CreateFramebuffer(name, colors, depth)
		return f
	}

	m.geometryFB = fb("fb_geometry", []gpu.TextureHandle{m.albedo, m.emission, m.normal, m.orm}, m.depth)
	m.lightingFB = fb("fb_lighting", []gpu.TextureHandle{m.diffuse, m.specular}, 0)
	for i := 0; i < 2; i++ {
		m.scene.fb[i] = fb(fmt.Sprintf("fb_scene_%d", i), []gpu.TextureHandle{m.scene.tex[i]}, m.depth)
		m.ssao.fb[i] = fb(fmt.Sprintf("fb_ssao_%d", i), []gpu.TextureHandle{m.ssao.tex[i]}, 0)
		m.ssil.fb[i] = fb(fmt.Sprintf("fb_ssil_%d", i), []gpu.TextureHandle{m.ssil.tex[i]}, 0)
	}
	m.ssrFB = fb("fb_ssr", []gpu.TextureHandle{m.ssr}, 0)
	m.bloomFB = fb("fb_bloom", []gpu.TextureHandle{m.bloom}, 0)
	return err
}

func (m *Manager) release() {
	for _, f := range []gpu.FramebufferHandle{
		m.geometryFB, m.lightingFB,
		m.scene.fb[0], m.scene.fb[1],
		m.ssao.fb[0], m.ssao.fb[1],
		m.ssil.fb[0], m.ssil.fb[1],
		m.ssrFB, m.bloomFB,
	} {
		if f != 0 {
			m.backend.DestroyFramebuffer(f)
		}
	}
	for _, t := range []gpu.TextureHandle{
		m.albedo, m.emission, m.normal, m.orm, m.depth,
		m.diffuse, m.specular,
		m.scene.tex[0], m.scene.tex[1],
		m.ssao.tex[0], m.ssao.tex[1],
		m.ssil.tex[0], m.ssil.tex[1],
		m.ssr, m.bloom,
	} {
		if t != 0 {
			m.backend.DestroyTexture(t)
		}
	}
	m.scene.active, m.ssao.active, m.ssil.active = 0, 0, 0
}

// Shutdown frees the whole pool.
func (m *Manager) Shutdown() {
	m.release()
}

func (m *Manager) pong(fb FramebufferID) *pingPong {
	switch fb {
	case FBScene:
		return &m.scene
	case FBSSAO:
		return &m.ssao
	case FBSSIL:
		return &m.ssil
	}
	return nil
}

func (m *Manager) size(fb FramebufferID) (uint32, uint32) {
	switch fb {
	case FBSSAO, FBSSIL:
		return math.Max(m.width/2, 1), math.Max(m.height/2, 1)
	default:
		return m.width, m.height
	}
}

// Bind makes the framebuffer the render destination and sets the full
// viewport. Ping-pong framebuffers bind their active buffer without
// swapping.
func (m *Manager) Bind(fb FramebufferID) {
	var handle gpu.FramebufferHandle
	switch fb {
	case FBGeometry:
		handle = m.geometryFB
	case FBLighting:
		handle = m.lightingFB
	case FBSSR:
		handle = m.ssrFB
	case FBBloom:
		handle = m.bloomFB
	default:
		p := m.pong(fb)
		handle = p.fb[p.active]
	}
	m.backend.BindFramebuffer(handle)
	w, h := m.size(fb)
	m.backend.SetViewport(math.Rect{W: int32(w), H: int32(h)})
}

// BindAndSwap flips a ping-pong framebuffer, binds the previously inactive
// buffer for writing and returns the just-written texture for sampling.
// Must only be called at pass boundaries.
func (m *Manager) BindAndSwap(fb FramebufferID) gpu.TextureHandle {
	p := m.pong(fb)
	prev := p.tex[p.active]
	p.active = 1 - p.active
	m.backend.BindFramebuffer(p.fb[p.active])
	w, h := m.size(fb)
	m.backend.SetViewport(math.Rect{W: int32(w), H: int32(h)})
	return prev
}

// Get returns the sampleable texture of a target; for ping-pong targets
// that is the last-written buffer.
func (m *Manager) Get(id TargetID) gpu.TextureHandle {
	switch id {
	case TargetAlbedo:
		return m.albedo
	case TargetEmission:
		return m.emission
	case TargetNormal:
		return m.normal
	case TargetORM:
		return m.orm
	case TargetDepth:
		return m.depth
	case TargetDiffuse:
		return m.diffuse
	case TargetSpecular:
		return m.specular
	case TargetScene:
		return m.scene.tex[m.scene.active]
	case TargetSSAO:
		return m.ssao.tex[m.ssao.active]
	case TargetSSIL:
		return m.ssil.tex[m.ssil.active]
	case TargetSSR:
		return m.ssr
	case TargetBloom:
		return m.bloom
	}
	return 0
}

// GenMipmap regenerates the mip chain of a target.
func (m *Manager) GenMipmap(id TargetID) {
	m.backend.GenerateMipmaps(m.Get(id))
}

// BloomMipCount is the depth of the bloom chain at the current resolution.
func (m *Manager) BloomMipCount() uint32 { return m.bloomMips }

// SSRMipCount is the depth of the reflection chain.
func (m *Manager) SSRMipCount() uint32 { return m.ssrMips }

// BloomMipSize returns the pixel size of one bloom mip.
func (m *Manager) BloomMipSize(mip uint32) (uint32, uint32) {
	w := math.Max(m.bloomBaseW>>mip, 1)
	h := math.Max(m.bloomBaseH>>mip, 1)
	return w, h
}

// BindBloomMip retargets the bloom framebuffer to one mip level and sets
// the viewport to the mip's size.
func (m *Manager) BindBloomMip(mip uint32) error {
	if err := m.backend.SetFramebufferLayer(m.bloomFB, 0, m.bloom, -1, int32(mip)); err != nil {
		return err
	}
	m.backend.BindFramebuffer(m.bloomFB)
	w, h := m.BloomMipSize(mip)
	m.backend.SetViewport(math.Rect{W: int32(w), H: int32(h)})
	return nil
}

// Blit presents a target to the output surface.
func (m *Manager) Blit(id TargetID, mode gpu.BlitMode) {
	m.backend.BlitToSurface(m.Get(id), m.width, m.height, mode)
}
