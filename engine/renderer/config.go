package renderer

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
	"github.com/spaghettifunk/prisma/engine/renderer/passes"
)

// Config is the explicit per-renderer configuration. Two renderers in one
// process never share state through it.
type Config struct {
	AppName string `toml:"app_name"`
	Width   uint32 `toml:"width"`
	Height  uint32 `toml:"height"`

	ShadowMapSize uint32 `toml:"shadow_map_size"`

	// ActiveLayers masks submissions; a mesh whose layer mask does not
	// intersect it is skipped. Zero means all layers.
	ActiveLayers uint32 `toml:"active_layers"`

	FrustumCulling  bool `toml:"frustum_culling"`
	SortOpaque      bool `toml:"sort_opaque"`
	SortTransparent bool `toml:"sort_transparent"`
	FXAA            bool `toml:"fxaa"`
	AspectKeepBlit  bool `toml:"aspect_keep_blit"`
	LinearBlit      bool `toml:"linear_blit"`
	// ShadowFaceCulling recomputes visibility per shadow face instead of
	// reusing the camera frustum result.
	ShadowFaceCulling bool `toml:"shadow_face_culling"`
}

// DefaultConfig enables culling and both sorts; FXAA stays opt-in.
func DefaultConfig() Config {
	return Config{
		AppName:         "Prisma",
		Width:           1280,
		Height:          720,
		ShadowMapSize:   2048,
		FrustumCulling:  true,
		SortOpaque:      true,
		SortTransparent: true,
		AspectKeepBlit:  true,
		LinearBlit:      true,
	}
}

// LoadConfig reads a TOML config file over the defaults, so partial files
// only override what they mention.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("renderer config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("renderer config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnvironment reads scene-wide shading settings from TOML over the
// defaults.
func LoadEnvironment(path string) (metadata.Environment, error) {
	env := metadata.NewEnvironment()
	data, err := os.ReadFile(path)
	if err != nil {
		return env, fmt.Errorf("environment %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("environment %s: %w", path, err)
	}
	return env, nil
}

func (c Config) flags() passes.Flags {
	return passes.Flags{
		FrustumCulling:    c.FrustumCulling,
		SortOpaque:        c.SortOpaque,
		SortTransparent:   c.SortTransparent,
		FXAA:              c.FXAA,
		AspectKeepBlit:    c.AspectKeepBlit,
		LinearBlit:        c.LinearBlit,
		ShadowFaceCulling: c.ShadowFaceCulling,
	}
}
