/*
Demo application: a spinning cube over a floor plane, one shadow-casting
spot light, and live reload of an optional custom shader.
*/
package main

import (
	"encoding/binary"
	"errors"
	gomath "math"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/prisma/engine/assets"
	"github.com/spaghettifunk/prisma/engine/assets/loaders"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/platform"
	"github.com/spaghettifunk/prisma/engine/renderer"
	"github.com/spaghettifunk/prisma/engine/renderer/lights"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
	"github.com/spaghettifunk/prisma/engine/renderer/vulkan"
)

const customShaderPath = "shaders/dissolve.frag"

func main() {
	cfg, err := renderer.LoadConfig("renderer.toml")
	if err != nil {
		core.LogWarn("%s, using defaults", err)
	}

	p, err := platform.New()
	if err != nil {
		core.LogFatal("platform: %s", err)
		os.Exit(1)
	}
	if err := p.Startup(cfg.AppName, 100, 100, cfg.Width, cfg.Height); err != nil {
		core.LogFatal("platform startup: %s", err)
		os.Exit(1)
	}
	defer p.Shutdown()

	r, err := renderer.New(vulkan.New(p), cfg)
	if err != nil {
		core.LogFatal("renderer: %s", err)
		os.Exit(1)
	}
	defer func() { _ = r.Shutdown() }()

	env := r.Environment()
	env.Tonemap.Mode = metadata.TonemapACES
	env.Bloom.Mode = metadata.BloomMix

	cube, err := r.CreateMesh("cube", cubeVertices(), cubeIndices(),
		math.NewAABB(math.NewVec3(-0.5, -0.5, -0.5), math.NewVec3(0.5, 0.5, 0.5)))
	if err != nil {
		core.LogFatal("cube mesh: %s", err)
		os.Exit(1)
	}

	spot := r.CreateLight(lights.LightSpot)
	spot.SetPosition(math.NewVec3(3, 5, 3))
	spot.SetDirection(math.NewVec3(-3, -5, -3))
	spot.SetRange(25)
	spot.SetConeAngles(0.3, 0.5)
	if err := r.EnableLightShadow(spot); err != nil {
		core.LogWarn("spot shadow: %s", err)
	}

	shaderMat, reload := setupCustomShader(r)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	floor := metadata.NewMaterial()
	floor.ORM.Roughness = 0.9
	body := metadata.NewMaterial()
	body.Albedo.Color = metadata.Color{R: 200, G: 60, B: 40, A: 255}
	body.ORM.Metalness = 0.3

	if err := core.MetricsInitialize(); err != nil {
		core.LogWarn("metrics: %s", err)
	}
	clock := core.NewClock()
	clock.Start()
	var lastElapsed float64
	for !p.ShouldClose() {
		select {
		case <-sigCh:
			return
		default:
		}
		p.PumpMessages()

		// Shader recompiles happen here so GPU calls stay on the frame thread.
		select {
		case path := <-reload:
			reloadCustomShader(r, shaderMat, path)
		default:
		}

		clock.Update()
		elapsed := clock.ElapsedSeconds()
		core.MetricsUpdate(elapsed - lastElapsed)
		lastElapsed = elapsed

		t := float32(elapsed)
		cam := metadata.NewCamera(math.NewVec3(4, 3, 6), math.NewVec3(0, 0.5, 0))

		if err := r.BeginFrame(cam); err != nil {
			if errors.Is(err, core.ErrSwapchainBooting) {
				continue
			}
			core.LogError("begin frame: %s", err)
			return
		}

		// The cube spins, so its shadow is stale every frame.
		spot.MarkShadowDirty()

		spin := math.NewMat4Translation(math.NewVec3(0, 0.5, 0)).Mul(math.NewMat4EulerY(t))
		if shaderMat != nil {
			r.DrawMesh(cube, *shaderMat, spin)
		} else {
			r.DrawMesh(cube, body, spin)
		}
		slab := math.NewMat4Translation(math.NewVec3(0, -0.55, 0)).Mul(math.NewMat4Scale(math.NewVec3(12, 0.1, 12)))
		r.DrawMesh(cube, floor, slab)

		if err := r.EndFrame(); err != nil {
			core.LogError("end frame: %s", err)
		}
	}
}

// setupCustomShader compiles the optional dissolve shader and watches its
// source directory for edits. Returns nil material when the file does not
// exist; changed paths arrive on the returned channel.
func setupCustomShader(r *renderer.Renderer) (*metadata.Material, chan string) {
	reload := make(chan string, 4)
	src, err := loaders.LoadShaderSource(customShaderPath)
	if err != nil {
		return nil, reload
	}
	s, err := r.CreateCustomShader("dissolve", src)
	if err != nil {
		core.LogWarn("custom shader: %s", err)
		return nil, reload
	}
	mat := metadata.NewMaterial()
	mat.Shader = s

	if w, err := assets.NewWatcher(); err == nil {
		_ = w.Watch("shaders")
		core.EventRegister(core.EVENT_CODE_SHADER_FILE_CHANGED, reload,
			func(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
				select {
				case reload <- context.Data.Str:
				default:
				}
				return false
			})
	}
	return &mat, reload
}

func reloadCustomShader(r *renderer.Renderer, mat *metadata.Material, path string) {
	if mat == nil {
		return
	}
	src, err := loaders.LoadShaderSource(path)
	if err != nil {
		core.LogError("%s", err)
		return
	}
	fresh, err := r.CreateCustomShader("dissolve", src)
	if err != nil {
		core.LogError("shader reload: %s", err)
		return
	}
	old := mat.Shader
	mat.Shader = fresh
	r.DestroyCustomShader(old)
	core.LogInfo("reloaded %s", path)
}

// cubeVertices lays out 24 vertices in the 96-byte surface format: position,
// uv, normal, tangent, color, bone indices and weights.
func cubeVertices() []byte {
	type face struct {
		normal  math.Vec3
		corners [4]math.Vec3
	}
	faces := []face{
		{math.NewVec3(0, 0, 1), [4]math.Vec3{{X: -0.5, Y: -0.5, Z: 0.5}, {X: 0.5, Y: -0.5, Z: 0.5}, {X: 0.5, Y: 0.5, Z: 0.5}, {X: -0.5, Y: 0.5, Z: 0.5}}},
		{math.NewVec3(0, 0, -1), [4]math.Vec3{{X: 0.5, Y: -0.5, Z: -0.5}, {X: -0.5, Y: -0.5, Z: -0.5}, {X: -0.5, Y: 0.5, Z: -0.5}, {X: 0.5, Y: 0.5, Z: -0.5}}},
		{math.NewVec3(1, 0, 0), [4]math.Vec3{{X: 0.5, Y: -0.5, Z: 0.5}, {X: 0.5, Y: -0.5, Z: -0.5}, {X: 0.5, Y: 0.5, Z: -0.5}, {X: 0.5, Y: 0.5, Z: 0.5}}},
		{math.NewVec3(-1, 0, 0), [4]math.Vec3{{X: -0.5, Y: -0.5, Z: -0.5}, {X: -0.5, Y: -0.5, Z: 0.5}, {X: -0.5, Y: 0.5, Z: 0.5}, {X: -0.5, Y: 0.5, Z: -0.5}}},
		{math.NewVec3(0, 1, 0), [4]math.Vec3{{X: -0.5, Y: 0.5, Z: 0.5}, {X: 0.5, Y: 0.5, Z: 0.5}, {X: 0.5, Y: 0.5, Z: -0.5}, {X: -0.5, Y: 0.5, Z: -0.5}}},
		{math.NewVec3(0, -1, 0), [4]math.Vec3{{X: -0.5, Y: -0.5, Z: -0.5}, {X: 0.5, Y: -0.5, Z: -0.5}, {X: 0.5, Y: -0.5, Z: 0.5}, {X: -0.5, Y: -0.5, Z: 0.5}}},
	}
	uvs := [4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	out := make([]byte, 0, 24*96)
	var scratch [96]byte
	for _, f := range faces {
		for i, c := range f.corners {
			floats := []float32{
				c.X, c.Y, c.Z,
				uvs[i][0], uvs[i][1],
				f.normal.X, f.normal.Y, f.normal.Z,
				1, 0, 0, 1, // tangent
				1, 1, 1, 1, // color
				0, 0, 0, 0, // bone indices
				0, 0, 0, 0, // bone weights
			}
			for j, v := range floats {
				binary.LittleEndian.PutUint32(scratch[j*4:], gomath.Float32bits(v))
			}
			out = append(out, scratch[:]...)
		}
	}
	return out
}

func cubeIndices() []uint32 {
	out := make([]uint32, 0, 36)
	for f := uint32(0); f < 6; f++ {
		base := f * 4
		out = append(out, base, base+1, base+2, base, base+2, base+3)
	}
	return out
}
