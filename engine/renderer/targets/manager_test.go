package targets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
	"github.com/spaghettifunk/prisma/engine/renderer/rendertest"
)

func TestNewAllocatesPool(t *testing.T) {
	backend := rendertest.New()
	m, err := New(backend, 1280, 720)
	require.NoError(t, err)

	// 15 textures: 5 G-buffer, 2 lighting, 2 scene, 2 SSAO, 2 SSIL, SSR,
	// bloom.
	assert.Len(t, backend.Textures, 15)
	// 10 framebuffers: geometry, lighting, 2 scene, 2 SSAO, 2 SSIL, SSR,
	// bloom.
	assert.Len(t, backend.Framebuffers, 10)

	// SSAO is half resolution.
	info := backend.Textures[m.Get(TargetSSAO)]
	assert.Equal(t, uint32(640), info.Spec.Width)
	assert.Equal(t, uint32(360), info.Spec.Height)
}

func TestZeroSizeIsFatal(t *testing.T) {
	_, err := New(rendertest.New(), 0, 720)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTargetInvalid)

	m, err := New(rendertest.New(), 1280, 720)
	require.NoError(t, err)
	assert.ErrorIs(t, m.Resize(1280, 0), core.ErrTargetInvalid)
}

func TestBindAndSwapAlternates(t *testing.T) {
	m, err := New(rendertest.New(), 1280, 720)
	require.NoError(t, err)

	first := m.Get(TargetScene)
	prev := m.BindAndSwap(FBScene)
	assert.Equal(t, first, prev)

	second := m.Get(TargetScene)
	assert.NotEqual(t, first, second)

	// Swapping again hands back the other buffer.
	prev = m.BindAndSwap(FBScene)
	assert.Equal(t, second, prev)
	assert.Equal(t, first, m.Get(TargetScene))
}

func TestBindSetsViewportToTargetSize(t *testing.T) {
	backend := rendertest.New()
	m, err := New(backend, 1280, 720)
	require.NoError(t, err)

	m.Bind(FBSSAO)
	assert.Equal(t, "SetViewport(0,0,640,360)", backend.Ops[len(backend.Ops)-1])

	m.Bind(FBGeometry)
	assert.Equal(t, "SetViewport(0,0,1280,720)", backend.Ops[len(backend.Ops)-1])
}

func TestBloomMipChain(t *testing.T) {
	backend := rendertest.New()
	m, err := New(backend, 1280, 720)
	require.NoError(t, err)

	// Base 640x360 halves down to the 8px floor.
	assert.Equal(t, uint32(7), m.BloomMipCount())

	w, h := m.BloomMipSize(0)
	assert.Equal(t, uint32(640), w)
	assert.Equal(t, uint32(360), h)
	w, h = m.BloomMipSize(3)
	assert.Equal(t, uint32(80), w)
	assert.Equal(t, uint32(45), h)

	require.NoError(t, m.BindBloomMip(3))
	assert.Equal(t, "SetViewport(0,0,80,45)", backend.Ops[len(backend.Ops)-1])
	assert.Equal(t, 1, backend.OpCount("SetFramebufferLayer"))
}

func TestResizeReallocates(t *testing.T) {
	backend := rendertest.New()
	m, err := New(backend, 1280, 720)
	require.NoError(t, err)

	old := m.Get(TargetAlbedo)
	require.NoError(t, m.Resize(1920, 1080))

	assert.NotEqual(t, old, m.Get(TargetAlbedo))
	assert.Len(t, backend.Textures, 15)
	assert.Len(t, backend.Framebuffers, 10)
	assert.Equal(t, uint32(1920), m.Width())
}

func TestBlitUsesCurrentScene(t *testing.T) {
	backend := rendertest.New()
	m, err := New(backend, 1280, 720)
	require.NoError(t, err)

	m.Blit(TargetScene, gpu.BlitMode{AspectKeep: true, Linear: true})
	assert.Equal(t, 1, backend.OpCount("BlitToSurface"))
}
