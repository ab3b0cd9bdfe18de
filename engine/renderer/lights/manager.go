package lights

import (
	"fmt"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// Manager owns the scene's lights and their shadow resources, and builds
// the per-frame visible set consumed by the lighting passes.
type Manager struct {
	backend       gpu.Backend
	shadowMapSize uint32

	lights  []*Light
	visible []*Light
	nextID  uint32
}

func NewManager(backend gpu.Backend, shadowMapSize uint32) *Manager {
	return &Manager{
		backend:       backend,
		shadowMapSize: shadowMapSize,
	}
}

// CreateLight adds a light with sane defaults and no shadow map.
func (m *Manager) CreateLight(kind LightType) *Light {
	m.nextID++
	l := &Light{
		ID:       m.nextID,
		Type:     kind,
		Enabled:  true,
		Color:    metadata.White,
		Energy:   1,
		Specular: 1,

		ShadowBias:     0.005,
		ShadowSoftness: 1,

		direction:   math.NewVec3(0, -1, 0),
		lightRange:  16,
		attenuation: 1,
		innerCutoff: 0.5,
		outerCutoff: 0.7,
		shadowNear:  0.05,
	}
	m.lights = append(m.lights, l)
	return l
}

// EnableShadow allocates the light's depth target (a cubemap for omni
// lights) and its framebuffer. Idempotent.
func (m *Manager) EnableShadow(l *Light) error {
	if l.shadow {
		return nil
	}
	kind := gpu.TextureKind2D
	if l.Type == LightOmni {
		kind = gpu.TextureKindCube
	}
	tex, err := m.backend.CreateTexture(gpu.TextureSpec{
		Name:      fmt.Sprintf("shadow_map_%d", l.ID),
		Width:     m.shadowMapSize,
		Height:    m.shadowMapSize,
		Format:    gpu.FormatDepth32F,
		MipLevels: 1,
		Kind:      kind,
	}, nil)
	if err != nil {
		return fmt.Errorf("shadow map for light %d: %w", l.ID, err)
	}
	fb, err := m.backend.CreateFramebuffer(fmt.Sprintf("shadow_fb_%d", l.ID), nil, tex)
	if err != nil {
		m.backend.DestroyTexture(tex)
		return fmt.Errorf("shadow framebuffer for light %d: %w", l.ID, err)
	}
	l.shadow = true
	l.shadowMapSize = m.shadowMapSize
	l.shadowMap = tex
	l.shadowFB = fb
	l.shadowDirty = true
	return nil
}

// DisableShadow releases the light's shadow resources.
func (m *Manager) DisableShadow(l *Light) {
	if !l.shadow {
		return
	}
	m.backend.DestroyFramebuffer(l.shadowFB)
	m.backend.DestroyTexture(l.shadowMap)
	l.shadow = false
	l.shadowMap = 0
	l.shadowFB = 0
}

// DestroyLight removes the light and frees its shadow map.
func (m *Manager) DestroyLight(l *Light) {
	m.DisableShadow(l)
	for i, cur := range m.lights {
		if cur == l {
			m.lights = append(m.lights[:i], m.lights[i+1:]...)
			break
		}
	}
}

// UpdateAndCull refreshes every enabled light's shadow matrices, culls each
// against the view frustum and computes its screen-space volume rectangle.
// The visible set it builds is valid until the next call.
func (m *Manager) UpdateAndCull(view *metadata.ViewState, width, height uint32) {
	m.visible = m.visible[:0]
	fullRect := math.Rect{W: int32(width), H: int32(height)}

	for _, l := range m.lights {
		l.visible = false
		if !l.Enabled {
			continue
		}
		l.updateMatrices()

		box, bounded := l.bounds()
		if !bounded {
			l.visible = true
			l.screenRect = fullRect
			m.visible = append(m.visible, l)
			continue
		}
		if !view.Frustum.ContainsSphere(l.position, l.lightRange) {
			continue
		}
		l.visible = true
		l.screenRect = math.ScreenRect(box, view.ViewProj, int32(width), int32(height))
		m.visible = append(m.visible, l)
	}

	if len(m.visible) == 0 {
		core.LogDebug("light manager: no visible lights this frame")
	}
}

// Visible returns the lights that survived the last UpdateAndCull.
func (m *Manager) Visible() []*Light {
	return m.visible
}

// NearbyLights fills out with up to cap(out) visible lights whose volume
// overlaps the given world-space box, for the forward path's per-call light
// array. Excess lights are skipped, not an error.
func (m *Manager) NearbyLights(out []*Light, box math.AABB, boxValid bool) []*Light {
	for _, l := range m.visible {
		if len(out) == cap(out) {
			break
		}
		lb, bounded := l.bounds()
		if !bounded || !boxValid || lb.Overlaps(box) {
			out = append(out, l)
		}
	}
	return out
}

// ShadowShouldUpdate reports whether the light's shadow map must be
// re-rendered this frame. True until the first render and after any
// transform, range or cone change, or an explicit MarkShadowDirty.
func (m *Manager) ShadowShouldUpdate(l *Light) bool {
	return l.shadow && l.shadowDirty
}

// MarkShadowRendered records that the light's shadow map is fresh.
func (m *Manager) MarkShadowRendered(l *Light) {
	l.shadowDirty = false
}

// Shutdown releases every light's GPU resources.
func (m *Manager) Shutdown() {
	for _, l := range m.lights {
		m.DisableShadow(l)
	}
	m.lights = nil
	m.visible = nil
}
