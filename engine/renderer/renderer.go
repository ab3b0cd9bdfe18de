// Package renderer is the application-facing frontend of the frame pipeline:
// BeginFrame snapshots a camera, Draw* calls submit geometry for the frame,
// EndFrame runs the fixed pass sequence and presents.
package renderer

import (
	"fmt"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/draw"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
	"github.com/spaghettifunk/prisma/engine/renderer/lights"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
	"github.com/spaghettifunk/prisma/engine/renderer/passes"
	"github.com/spaghettifunk/prisma/engine/renderer/shader"
	"github.com/spaghettifunk/prisma/engine/renderer/targets"
)

// Renderer owns one pipeline instance: its targets, lights, programs and
// per-frame draw registry. All methods must be called from the frame thread.
type Renderer struct {
	backend gpu.Backend
	config  Config

	targets   *targets.Manager
	lightMgr  *lights.Manager
	registry  *draw.Registry
	programs  *passes.Programs
	fallbacks shader.Fallbacks

	env  metadata.Environment
	view metadata.ViewState

	// decalVolume satisfies the registry's mesh validity check; decal draws
	// rasterize the backend's builtin cube, never these buffers.
	decalVolume *metadata.Mesh

	width  uint32
	height uint32

	pendingWidth  uint32
	pendingHeight uint32

	inFrame bool
}

// New initializes the backend and allocates the pipeline's fixed resources.
func New(backend gpu.Backend, cfg Config) (*Renderer, error) {
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, core.ErrTargetInvalid
	}
	if err := backend.Initialize(cfg.AppName, cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	r := &Renderer{
		backend:  backend,
		config:   cfg,
		registry: draw.NewRegistry(),
		env:      metadata.NewEnvironment(),
		width:    cfg.Width,
		height:   cfg.Height,
	}

	var err error
	if r.targets, err = targets.New(backend, cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	r.lightMgr = lights.NewManager(backend, cfg.ShadowMapSize)

	if r.programs, err = passes.NewPrograms(backend); err != nil {
		return nil, err
	}

	if err = r.createFallbacks(); err != nil {
		return nil, err
	}
	if err = r.createDecalVolume(); err != nil {
		return nil, err
	}

	core.EventRegister(core.EVENT_CODE_RESIZED, r, r.onResized)

	core.LogInfo("renderer ready (%dx%d, shadow maps %dpx)", cfg.Width, cfg.Height, cfg.ShadowMapSize)
	return r, nil
}

func (r *Renderer) createFallbacks() error {
	create := func(name string, pixel []byte) (gpu.TextureHandle, error) {
		return r.backend.CreateTexture(gpu.TextureSpec{
			Name:   core.DebugName(name),
			Width:  1,
			Height: 1,
			Format: gpu.FormatRGBA8,
		}, pixel)
	}

	var err error
	if r.fallbacks.White, err = create("fallback-white", []byte{255, 255, 255, 255}); err != nil {
		return err
	}
	if r.fallbacks.Black, err = create("fallback-black", []byte{0, 0, 0, 255}); err != nil {
		return err
	}
	// Flat tangent-space normal (0, 0, 1).
	if r.fallbacks.FlatNormal, err = create("fallback-normal", []byte{128, 128, 255, 255}); err != nil {
		return err
	}
	return nil
}

func (r *Renderer) createDecalVolume() error {
	// The buffers are placeholders; only the handles and the bounds matter.
	vb, err := r.backend.CreateVertexBuffer(make([]byte, 96))
	if err != nil {
		return err
	}
	ib, err := r.backend.CreateIndexBuffer(make([]uint32, 36))
	if err != nil {
		r.backend.DestroyBuffer(vb)
		return err
	}
	half := float32(0.5)
	r.decalVolume = &metadata.Mesh{
		Name:         "decal_volume",
		VertexBuffer: vb,
		IndexBuffer:  ib,
		IndexCount:   36,
		AABB:         math.NewAABB(math.NewVec3(-half, -half, -half), math.NewVec3(half, half, half)),
		ShadowCast:   metadata.ShadowCastDisabled,
	}
	return nil
}

func (r *Renderer) onResized(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	r.pendingWidth = context.Data.U32[0]
	r.pendingHeight = context.Data.U32[1]
	return false
}

// Resize reallocates the target pool for a new output resolution. A zero
// dimension is rejected; the window system reports zero while minimized.
func (r *Renderer) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return core.ErrTargetInvalid
	}
	if err := r.backend.Resized(width, height); err != nil {
		return err
	}
	if err := r.targets.Resize(width, height); err != nil {
		return err
	}
	r.width = width
	r.height = height
	return nil
}

// BeginFrame applies any pending resize, opens the backend frame and
// snapshots the camera. A core.ErrSwapchainBooting return means "skip this
// frame and try again"; it is not a failure.
func (r *Renderer) BeginFrame(cam metadata.Camera) error {
	if r.pendingWidth != 0 && r.pendingHeight != 0 &&
		(r.pendingWidth != r.width || r.pendingHeight != r.height) {
		if err := r.Resize(r.pendingWidth, r.pendingHeight); err != nil {
			return err
		}
	}

	if err := r.backend.BeginFrame(); err != nil {
		return err
	}

	r.registry.Reset()
	r.view = metadata.NewViewState(cam, r.width, r.height)
	r.inFrame = true
	return nil
}

// layerVisible applies the renderer's active-layer mask. Zero on either side
// means "all layers".
func (r *Renderer) layerVisible(mesh *metadata.Mesh) bool {
	if mesh == nil || mesh.LayerMask == 0 || r.config.ActiveLayers == 0 {
		return true
	}
	return mesh.LayerMask&r.config.ActiveLayers != 0
}

// DrawMesh submits one mesh with a material. Outside a frame, or on a layer
// mismatch, the submission is silently dropped.
func (r *Renderer) DrawMesh(mesh *metadata.Mesh, material metadata.Material, transform math.Mat4) {
	if !r.inFrame || !r.layerVisible(mesh) {
		return
	}
	aabb := math.AABB{}
	if mesh != nil {
		aabb = mesh.AABB
	}
	handle := r.registry.PushGroup(transform, aabb, nil, nil)
	r.registry.PushDrawCall(handle, mesh, material, false)
}

// DrawMeshInstanced submits one mesh drawn Count times with per-instance
// transforms and optional colors.
func (r *Renderer) DrawMeshInstanced(mesh *metadata.Mesh, material metadata.Material, transform math.Mat4, instances *draw.InstanceDescriptor) {
	if !r.inFrame || !r.layerVisible(mesh) {
		return
	}
	aabb := math.AABB{}
	if mesh != nil {
		aabb = mesh.AABB
	}
	handle := r.registry.PushGroup(transform, aabb, nil, instances)
	r.registry.PushDrawCall(handle, mesh, material, false)
}

// DrawModel submits every mesh of a model with its assigned material. The
// whole model shares one transform and skeleton.
func (r *Renderer) DrawModel(model *metadata.Model, transform math.Mat4) {
	r.drawModel(model, transform, nil)
}

// DrawModelInstanced submits a model drawn Count times.
func (r *Renderer) DrawModelInstanced(model *metadata.Model, transform math.Mat4, instances *draw.InstanceDescriptor) {
	r.drawModel(model, transform, instances)
}

func (r *Renderer) drawModel(model *metadata.Model, transform math.Mat4, instances *draw.InstanceDescriptor) {
	if !r.inFrame || model == nil || len(model.Meshes) == 0 {
		return
	}
	handle := r.registry.PushGroup(transform, model.AABB, model.Skeleton, instances)
	for i, mesh := range model.Meshes {
		if !r.layerVisible(mesh) {
			continue
		}
		material := metadata.NewMaterial()
		if i < len(model.MaterialIndex) {
			if idx := model.MaterialIndex[i]; idx >= 0 && idx < len(model.Materials) {
				material = model.Materials[idx]
			}
		}
		r.registry.PushDrawCall(handle, mesh, material, false)
	}
}

// DrawDecal submits one decal volume; the transform maps the unit cube onto
// the surface to be stamped.
func (r *Renderer) DrawDecal(material metadata.Material, transform math.Mat4) {
	if !r.inFrame {
		return
	}
	handle := r.registry.PushGroup(transform, r.decalVolume.AABB, nil, nil)
	r.registry.PushDrawCall(handle, r.decalVolume, material, true)
}

// DrawDecalInstanced submits many decal volumes sharing one material.
func (r *Renderer) DrawDecalInstanced(material metadata.Material, transform math.Mat4, instances *draw.InstanceDescriptor) {
	if !r.inFrame {
		return
	}
	handle := r.registry.PushGroup(transform, r.decalVolume.AABB, nil, instances)
	r.registry.PushDrawCall(handle, r.decalVolume, material, true)
}

// DrawParticleSystem submits the system's live particles as one instanced
// draw of its mesh.
func (r *Renderer) DrawParticleSystem(ps *metadata.ParticleSystem, transform math.Mat4) {
	if !r.inFrame || ps == nil || len(ps.Particles) == 0 || !r.layerVisible(ps.Mesh) {
		return
	}
	desc := &draw.InstanceDescriptor{
		Transforms: make([]math.Mat4, len(ps.Particles)),
		Colors:     make([]metadata.Color, len(ps.Particles)),
		Count:      len(ps.Particles),
		AABB:       ps.AABB,
	}
	for i := range ps.Particles {
		desc.Transforms[i] = ps.Particles[i].Transform
		desc.Colors[i] = ps.Particles[i].Color
	}
	handle := r.registry.PushGroup(transform, ps.AABB, nil, desc)
	r.registry.PushDrawCall(handle, ps.Mesh, ps.Material, false)
}

// EndFrame runs the pass sequence over this frame's submissions and presents.
func (r *Renderer) EndFrame() error {
	if !r.inFrame {
		return fmt.Errorf("EndFrame without BeginFrame")
	}
	r.inFrame = false

	ctx := &passes.Context{
		Backend:   r.backend,
		Targets:   r.targets,
		Lights:    r.lightMgr,
		Registry:  r.registry,
		Programs:  r.programs,
		Fallbacks: r.fallbacks,
		View:      &r.view,
		Env:       &r.env,
		Flags:     r.config.flags(),
		Width:     r.width,
		Height:    r.height,
	}
	execErr := passes.Execute(ctx)
	if execErr != nil {
		core.LogError("frame aborted: %s", execErr)
	}

	if err := r.backend.EndFrame(); err != nil {
		return err
	}
	return execErr
}

// Environment exposes the scene-wide shading settings for mutation between
// frames.
func (r *Renderer) Environment() *metadata.Environment {
	return &r.env
}

// CreateLight adds a light to the scene.
func (r *Renderer) CreateLight(kind lights.LightType) *lights.Light {
	return r.lightMgr.CreateLight(kind)
}

// EnableLightShadow allocates the light's shadow map.
func (r *Renderer) EnableLightShadow(l *lights.Light) error {
	return r.lightMgr.EnableShadow(l)
}

// DisableLightShadow releases the light's shadow map.
func (r *Renderer) DisableLightShadow(l *lights.Light) {
	r.lightMgr.DisableShadow(l)
}

// DestroyLight removes the light and its shadow resources.
func (r *Renderer) DestroyLight(l *lights.Light) {
	r.lightMgr.DestroyLight(l)
}

// CreateCustomShader compiles a user fragment snippet into a surface shader
// usable via Material.Shader.
func (r *Renderer) CreateCustomShader(name, userCode string) (*metadata.Shader, error) {
	return shader.Compile(r.backend, name, userCode)
}

// DestroyCustomShader releases a custom shader's program.
func (r *Renderer) DestroyCustomShader(s *metadata.Shader) {
	shader.Destroy(r.backend, s)
}

// CreateMesh uploads vertex and index data and wraps them with culling
// bounds. Vertices follow the surface layout the builtin programs consume.
func (r *Renderer) CreateMesh(name string, vertices []byte, indices []uint32, aabb math.AABB) (*metadata.Mesh, error) {
	vb, err := r.backend.CreateVertexBuffer(vertices)
	if err != nil {
		return nil, fmt.Errorf("mesh %s: %w", name, err)
	}
	ib, err := r.backend.CreateIndexBuffer(indices)
	if err != nil {
		r.backend.DestroyBuffer(vb)
		return nil, fmt.Errorf("mesh %s: %w", name, err)
	}
	return &metadata.Mesh{
		Name:         name,
		VertexBuffer: vb,
		IndexBuffer:  ib,
		IndexCount:   uint32(len(indices)),
		AABB:         aabb,
	}, nil
}

// DestroyMesh releases the mesh's buffers.
func (r *Renderer) DestroyMesh(mesh *metadata.Mesh) {
	if mesh == nil {
		return
	}
	r.backend.DestroyBuffer(mesh.VertexBuffer)
	r.backend.DestroyBuffer(mesh.IndexBuffer)
	mesh.VertexBuffer = 0
	mesh.IndexBuffer = 0
}

// CreateTexture uploads pixel data as a sampled texture.
func (r *Renderer) CreateTexture(spec gpu.TextureSpec, pixels []byte) (gpu.TextureHandle, error) {
	return r.backend.CreateTexture(spec, pixels)
}

// DestroyTexture releases a texture.
func (r *Renderer) DestroyTexture(tex gpu.TextureHandle) {
	r.backend.DestroyTexture(tex)
}

// Shutdown releases everything in reverse initialization order.
func (r *Renderer) Shutdown() error {
	core.EventUnregister(core.EVENT_CODE_RESIZED, r)

	if r.decalVolume != nil {
		r.DestroyMesh(r.decalVolume)
		r.decalVolume = nil
	}
	r.backend.DestroyTexture(r.fallbacks.White)
	r.backend.DestroyTexture(r.fallbacks.Black)
	r.backend.DestroyTexture(r.fallbacks.FlatNormal)

	if r.programs != nil {
		r.programs.Destroy(r.backend)
	}
	if r.targets != nil {
		r.targets.Shutdown()
	}
	return r.backend.Shutdown()
}
