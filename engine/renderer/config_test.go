package renderer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

func TestLoadConfigOverridesDefaultsPartially(t *testing.T) {
	path := filepath.Join(t.TempDir(), "renderer.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
width = 1920
height = 1080
fxaa = true
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, uint32(1920), cfg.Width)
	assert.Equal(t, uint32(1080), cfg.Height)
	assert.True(t, cfg.FXAA)
	// Unmentioned fields keep their defaults.
	assert.Equal(t, uint32(2048), cfg.ShadowMapSize)
	assert.True(t, cfg.FrustumCulling)
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[bloom]
mode = 1
intensity = 0.2

[tonemap]
mode = 3
exposure = 1.5
`), 0o644))

	env, err := LoadEnvironment(path)
	require.NoError(t, err)

	assert.Equal(t, metadata.BloomMix, env.Bloom.Mode)
	assert.InDelta(t, 0.2, float64(env.Bloom.Intensity), 1e-6)
	assert.Equal(t, metadata.TonemapACES, env.Tonemap.Mode)
	// Defaults survive for untouched sections.
	assert.Equal(t, metadata.FogDisabled, env.Fog.Mode)
}
