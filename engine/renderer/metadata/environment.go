package metadata

import (
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
)

type FogMode uint8

const (
	FogDisabled FogMode = iota
	FogLinear
	FogExp2
	FogExp
)

type BloomMode uint8

const (
	BloomDisabled BloomMode = iota
	BloomMix
	BloomAdditive
	BloomScreen
)

type TonemapMode uint8

const (
	TonemapLinear TonemapMode = iota
	TonemapReinhard
	TonemapFilmic
	TonemapACES
	TonemapAGX
)

type DofMode uint8

const (
	DofDisabled DofMode = iota
	DofEnabled
)

// Sky references the cubemaps of an image-based lighting probe. A zero
// Cubemap means "no sky"; the background pass falls back to the flat color
// and ambient lighting to the ambient color.
type Sky struct {
	Cubemap    gpu.TextureHandle
	Irradiance gpu.TextureHandle
	Prefilter  gpu.TextureHandle
	// Rotation is a quaternion applied to lookups (x, y, z, w).
	Rotation math.Vec4
	// Intensity scales the background; specular and diffuse scale the
	// probe's contribution to lighting.
	Intensity        float32
	SpecularEnergy   float32
	IrradianceEnergy float32
}

type AmbientSettings struct {
	Color  Color   `toml:"color"`
	Energy float32 `toml:"energy"`
}

type FogSettings struct {
	Mode      FogMode `toml:"mode"`
	Color     Color   `toml:"color"`
	Start     float32 `toml:"start"`
	End       float32 `toml:"end"`
	Density   float32 `toml:"density"`
	SkyAffect float32 `toml:"sky_affect"`
}

type SSAOSettings struct {
	Enabled     bool    `toml:"enabled"`
	Radius      float32 `toml:"radius"`
	Bias        float32 `toml:"bias"`
	Intensity   float32 `toml:"intensity"`
	Power       float32 `toml:"power"`
	BlurPasses  int     `toml:"blur_passes"`
	LightAffect float32 `toml:"light_affect"`
}

type SSILSettings struct {
	Enabled      bool    `toml:"enabled"`
	SampleCount  int     `toml:"sample_count"`
	SampleRadius float32 `toml:"sample_radius"`
	HitThickness float32 `toml:"hit_thickness"`
	Energy       float32 `toml:"energy"`
	BlurPasses   int     `toml:"blur_passes"`
}

type SSRSettings struct {
	Enabled           bool    `toml:"enabled"`
	MaxRaySteps       int     `toml:"max_ray_steps"`
	BinarySearchSteps int     `toml:"binary_search_steps"`
	RayMarchLength    float32 `toml:"ray_march_length"`
	DepthThickness    float32 `toml:"depth_thickness"`
	EdgeFadeStart     float32 `toml:"edge_fade_start"`
	EdgeFadeEnd       float32 `toml:"edge_fade_end"`
}

type BloomSettings struct {
	Mode BloomMode `toml:"mode"`
	// Levels caps the mip chain depth actually walked; zero means the full
	// chain.
	Levels        int     `toml:"levels"`
	Intensity     float32 `toml:"intensity"`
	Threshold     float32 `toml:"threshold"`
	SoftThreshold float32 `toml:"soft_threshold"`
	FilterRadius  float32 `toml:"filter_radius"`
}

type DofSettings struct {
	Mode        DofMode `toml:"mode"`
	FocusPoint  float32 `toml:"focus_point"`
	FocusScale  float32 `toml:"focus_scale"`
	MaxBlurSize float32 `toml:"max_blur_size"`
	Debug       bool    `toml:"debug"`
}

type TonemapSettings struct {
	Mode     TonemapMode `toml:"mode"`
	Exposure float32     `toml:"exposure"`
	White    float32     `toml:"white"`
}

type AdjustmentSettings struct {
	Brightness float32 `toml:"brightness"`
	Contrast   float32 `toml:"contrast"`
	Saturation float32 `toml:"saturation"`
}

type BackgroundSettings struct {
	Color  Color   `toml:"color"`
	Energy float32 `toml:"energy"`
}

// Environment is the scene-wide shading state sampled once per frame in
// EndFrame. It can be loaded from TOML and tweaked at runtime between
// frames.
type Environment struct {
	Ambient    AmbientSettings    `toml:"ambient"`
	Background BackgroundSettings `toml:"background"`
	Fog        FogSettings        `toml:"fog"`
	SSAO       SSAOSettings       `toml:"ssao"`
	SSIL       SSILSettings       `toml:"ssil"`
	SSR        SSRSettings        `toml:"ssr"`
	Bloom      BloomSettings      `toml:"bloom"`
	Dof        DofSettings        `toml:"dof"`
	Tonemap    TonemapSettings    `toml:"tonemap"`
	Adjustment AdjustmentSettings `toml:"adjustment"`

	Sky Sky `toml:"-"`
}

// NewEnvironment returns the defaults: dark gray flat background, mild
// ambient, every optional effect off, linear tonemap.
func NewEnvironment() Environment {
	return Environment{
		Ambient:    AmbientSettings{Color: Color{20, 20, 20, 255}, Energy: 1},
		Background: BackgroundSettings{Color: Color{10, 10, 10, 255}, Energy: 1},
		Fog: FogSettings{
			Mode: FogDisabled, Color: Color{128, 128, 128, 255},
			Start: 10, End: 50, Density: 0.05, SkyAffect: 0.5,
		},
		SSAO: SSAOSettings{
			Radius: 0.5, Bias: 0.025, Intensity: 1, Power: 1,
			BlurPasses: 1, LightAffect: 0,
		},
		SSIL: SSILSettings{
			SampleCount: 8, SampleRadius: 1, HitThickness: 0.5,
			Energy: 1, BlurPasses: 1,
		},
		SSR: SSRSettings{
			MaxRaySteps: 64, BinarySearchSteps: 8, RayMarchLength: 8,
			DepthThickness: 0.5, EdgeFadeStart: 0.8, EdgeFadeEnd: 1.0,
		},
		Bloom: BloomSettings{
			Mode: BloomDisabled, Intensity: 0.05,
			Threshold: 1, SoftThreshold: 0.5, FilterRadius: 1,
		},
		Dof: DofSettings{
			Mode: DofDisabled, FocusPoint: 10, FocusScale: 1, MaxBlurSize: 8,
		},
		Tonemap:    TonemapSettings{Mode: TonemapLinear, Exposure: 1, White: 1},
		Adjustment: AdjustmentSettings{Brightness: 1, Contrast: 1, Saturation: 1},
		Sky: Sky{
			Rotation:         math.NewVec4(0, 0, 0, 1),
			Intensity:        1,
			SpecularEnergy:   1,
			IrradianceEnergy: 1,
		},
	}
}

func (e *Environment) HasSky() bool {
	return e.Sky.Cubemap != 0
}
