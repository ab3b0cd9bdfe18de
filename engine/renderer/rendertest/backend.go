// Package rendertest provides a recording implementation of gpu.Backend for
// pipeline tests. Every command is appended to an op log that tests assert
// against; resources are plain counters.
package rendertest

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
)

type TextureInfo struct {
	Spec gpu.TextureSpec
}

type FramebufferInfo struct {
	Name   string
	Colors []gpu.TextureHandle
	Depth  gpu.TextureHandle
}

type ProgramInfo struct {
	Name        string
	VertexSrc   string
	FragmentSrc string
	Uniforms    []gpu.UniformInfo
}

// Backend records every gpu.Backend call. Not safe for concurrent use.
type Backend struct {
	Ops []string

	Textures     map[gpu.TextureHandle]TextureInfo
	Framebuffers map[gpu.FramebufferHandle]FramebufferInfo
	Programs     map[gpu.ProgramHandle]ProgramInfo
	Buffers      map[gpu.BufferHandle]int

	// FailCompile makes CompileProgram return an error, for the shader
	// hot-reload and custom-shader failure paths.
	FailCompile bool

	nextHandle uint32

	currentFB      gpu.FramebufferHandle
	currentProgram gpu.ProgramHandle
}

var _ gpu.Backend = (*Backend)(nil)

func New() *Backend {
	return &Backend{
		Textures:     map[gpu.TextureHandle]TextureInfo{},
		Framebuffers: map[gpu.FramebufferHandle]FramebufferInfo{},
		Programs:     map[gpu.ProgramHandle]ProgramInfo{},
		Buffers:      map[gpu.BufferHandle]int{},
	}
}

func (b *Backend) record(format string, args ...interface{}) {
	b.Ops = append(b.Ops, fmt.Sprintf(format, args...))
}

// OpCount returns how many recorded ops start with the given prefix.
func (b *Backend) OpCount(prefix string) int {
	n := 0
	for _, op := range b.Ops {
		if strings.HasPrefix(op, prefix) {
			n++
		}
	}
	return n
}

// OpsWithPrefix returns the recorded ops starting with the given prefix, in
// order.
func (b *Backend) OpsWithPrefix(prefix string) []string {
	var out []string
	for _, op := range b.Ops {
		if strings.HasPrefix(op, prefix) {
			out = append(out, op)
		}
	}
	return out
}

func (b *Backend) handle() uint32 {
	b.nextHandle++
	return b.nextHandle
}

func (b *Backend) Initialize(appName string, width, height uint32) error {
	b.record("Initialize(%s,%dx%d)", appName, width, height)
	return nil
}

func (b *Backend) Shutdown() error {
	b.record("Shutdown")
	return nil
}

func (b *Backend) Resized(width, height uint32) error {
	b.record("Resized(%dx%d)", width, height)
	return nil
}

func (b *Backend) BeginFrame() error {
	b.record("BeginFrame")
	return nil
}

func (b *Backend) EndFrame() error {
	b.record("EndFrame")
	return nil
}

func (b *Backend) CreateTexture(spec gpu.TextureSpec, pixels []byte) (gpu.TextureHandle, error) {
	h := gpu.TextureHandle(b.handle())
	b.Textures[h] = TextureInfo{Spec: spec}
	b.record("CreateTexture(%s,%dx%d)", spec.Name, spec.Width, spec.Height)
	return h, nil
}

func (b *Backend) DestroyTexture(tex gpu.TextureHandle) {
	delete(b.Textures, tex)
	b.record("DestroyTexture(%d)", tex)
}

func (b *Backend) CreateVertexBuffer(data []byte) (gpu.BufferHandle, error) {
	h := gpu.BufferHandle(b.handle())
	b.Buffers[h] = len(data)
	b.record("CreateVertexBuffer(%d)", len(data))
	return h, nil
}

func (b *Backend) CreateIndexBuffer(indices []uint32) (gpu.BufferHandle, error) {
	h := gpu.BufferHandle(b.handle())
	b.Buffers[h] = len(indices)
	b.record("CreateIndexBuffer(%d)", len(indices))
	return h, nil
}

func (b *Backend) DestroyBuffer(buf gpu.BufferHandle) {
	delete(b.Buffers, buf)
	b.record("DestroyBuffer(%d)", buf)
}

func (b *Backend) CreateFramebuffer(name string, colors []gpu.TextureHandle, depth gpu.TextureHandle) (gpu.FramebufferHandle, error) {
	h := gpu.FramebufferHandle(b.handle())
	b.Framebuffers[h] = FramebufferInfo{Name: name, Colors: colors, Depth: depth}
	b.record("CreateFramebuffer(%s)", name)
	return h, nil
}

func (b *Backend) DestroyFramebuffer(fb gpu.FramebufferHandle) {
	delete(b.Framebuffers, fb)
	b.record("DestroyFramebuffer(%d)", fb)
}

func (b *Backend) SetFramebufferLayer(fb gpu.FramebufferHandle, attachment int32, tex gpu.TextureHandle, face int32, mip int32) error {
	b.record("SetFramebufferLayer(fb=%d,att=%d,tex=%d,face=%d,mip=%d)", fb, attachment, tex, face, mip)
	return nil
}

func (b *Backend) CompileProgram(name, vertexSrc, fragmentSrc string) (gpu.ProgramHandle, error) {
	if b.FailCompile {
		return 0, fmt.Errorf("compile %s: forced failure", name)
	}
	h := gpu.ProgramHandle(b.handle())
	b.Programs[h] = ProgramInfo{
		Name:        name,
		VertexSrc:   vertexSrc,
		FragmentSrc: fragmentSrc,
		Uniforms:    scanUniforms(vertexSrc + "\n" + fragmentSrc),
	}
	b.record("CompileProgram(%s)", name)
	return h, nil
}

func (b *Backend) DestroyProgram(prog gpu.ProgramHandle) {
	delete(b.Programs, prog)
	b.record("DestroyProgram(%d)", prog)
}

func (b *Backend) ProgramUniforms(prog gpu.ProgramHandle) ([]gpu.UniformInfo, error) {
	info, ok := b.Programs[prog]
	if !ok {
		return nil, fmt.Errorf("program %d not found", prog)
	}
	return info.Uniforms, nil
}

// scanUniforms extracts `uniform <type> <name>;` declarations the way a
// driver's active-uniform query would report them.
func scanUniforms(src string) []gpu.UniformInfo {
	var out []gpu.UniformInfo
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ";"))
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != "uniform" {
			continue
		}
		var kind gpu.UniformType
		switch fields[1] {
		case "float":
			kind = gpu.UniformFloat
		case "int":
			kind = gpu.UniformInt
		case "vec2":
			kind = gpu.UniformVec2
		case "vec3":
			kind = gpu.UniformVec3
		case "vec4":
			kind = gpu.UniformVec4
		case "mat4":
			kind = gpu.UniformMat4
		case "sampler2D", "samplerCube":
			kind = gpu.UniformSampler2D
		default:
			continue
		}
		name := fields[2]
		arity := int32(1)
		if i := strings.Index(name, "["); i >= 0 {
			fmt.Sscanf(name[i:], "[%d]", &arity)
			name = name[:i]
		}
		out = append(out, gpu.UniformInfo{Name: name, Type: kind, Arity: arity, TexSlot: -1})
	}
	return out
}

func (b *Backend) BindFramebuffer(fb gpu.FramebufferHandle) {
	b.currentFB = fb
	name := "surface"
	if info, ok := b.Framebuffers[fb]; ok {
		name = info.Name
	}
	b.record("BindFramebuffer(%s)", name)
}

func (b *Backend) SetViewport(rect math.Rect) {
	b.record("SetViewport(%d,%d,%d,%d)", rect.X, rect.Y, rect.W, rect.H)
}

func (b *Backend) SetScissor(rect math.Rect) {
	b.record("SetScissor(%d,%d,%d,%d)", rect.X, rect.Y, rect.W, rect.H)
}

func (b *Backend) DisableScissor() {
	b.record("DisableScissor")
}

func (b *Backend) SetPipeline(state gpu.PipelineState) {
	b.record("SetPipeline(depth=%v,func=%d,write=%v,color=%v,blend=%d,cull=%d)",
		state.DepthTest, state.DepthFunc, state.DepthWrite, state.ColorWrite, state.Blend, state.Cull)
}

func (b *Backend) Clear(flags gpu.ClearFlags, r, g, bl, a float32) {
	b.record("Clear(flags=%d)", flags)
}

func (b *Backend) UseProgram(prog gpu.ProgramHandle) {
	b.currentProgram = prog
	name := fmt.Sprintf("%d", prog)
	if info, ok := b.Programs[prog]; ok {
		name = info.Name
	}
	b.record("UseProgram(%s)", name)
}

func (b *Backend) SetUniformInt(name string, v int32) {
	b.record("SetUniformInt(%s,%d)", name, v)
}

func (b *Backend) SetUniformFloat(name string, v float32) {
	b.record("SetUniformFloat(%s,%g)", name, v)
}

func (b *Backend) SetUniformVec2(name string, v math.Vec2) {
	b.record("SetUniformVec2(%s)", name)
}

func (b *Backend) SetUniformVec3(name string, v math.Vec3) {
	b.record("SetUniformVec3(%s)", name)
}

func (b *Backend) SetUniformVec4(name string, v math.Vec4) {
	b.record("SetUniformVec4(%s)", name)
}

func (b *Backend) SetUniformMat4(name string, v math.Mat4) {
	b.record("SetUniformMat4(%s)", name)
}

func (b *Backend) BindTexture(slot int32, kind gpu.TextureKind, tex gpu.TextureHandle) {
	b.record("BindTexture(slot=%d,tex=%d)", slot, tex)
}

func (b *Backend) UnbindTexture(slot int32, kind gpu.TextureKind) {
	b.record("UnbindTexture(slot=%d)", slot)
}

func (b *Backend) DrawIndexed(vb gpu.BufferHandle, ib gpu.BufferHandle, indexCount uint32, topology gpu.PrimitiveTopology) {
	b.record("DrawIndexed(vb=%d,indices=%d)", vb, indexCount)
}

func (b *Backend) DrawIndexedInstanced(vb gpu.BufferHandle, ib gpu.BufferHandle, indexCount uint32, topology gpu.PrimitiveTopology, instances gpu.InstanceData) {
	b.record("DrawIndexedInstanced(vb=%d,indices=%d,instances=%d)", vb, indexCount, instances.Count)
}

func (b *Backend) DrawScreen() {
	b.record("DrawScreen")
}

func (b *Backend) DrawUnitCube() {
	b.record("DrawUnitCube")
}

func (b *Backend) GenerateMipmaps(tex gpu.TextureHandle) {
	b.record("GenerateMipmaps(%d)", tex)
}

func (b *Backend) BlitToSurface(tex gpu.TextureHandle, srcW, srcH uint32, mode gpu.BlitMode) {
	b.record("BlitToSurface(tex=%d,%dx%d,aspect=%v,linear=%v)", tex, srcW, srcH, mode.AspectKeep, mode.Linear)
}

func (b *Backend) ResetState() {
	b.currentFB = 0
	b.currentProgram = 0
	b.record("ResetState")
}
