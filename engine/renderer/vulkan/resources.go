package vulkan

import (
	"encoding/binary"
	"fmt"
	gomath "math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
)

func (b *Backend) newHandle() uint32 {
	b.nextHandle++
	return b.nextHandle
}

// CreateTexture builds either a sampled texture (pixels given, ends in
// shader-read layout) or a render target (no pixels, per-layer attachment
// views, lives in the GENERAL layout).
func (b *Backend) CreateTexture(spec gpu.TextureSpec, pixels []byte) (gpu.TextureHandle, error) {
	renderTarget := pixels == nil
	img, err := imageCreate(b.context, spec, renderTarget)
	if err != nil {
		core.LogError("texture '%s': %s", spec.Name, err)
		return 0, err
	}

	if renderTarget {
		err = withSingleUseCommandBuffer(b.context, func(cb vk.CommandBuffer) {
			img.transitionLayout(cb, vk.ImageLayoutUndefined, vk.ImageLayoutGeneral)
		})
	} else {
		err = imageUpload(b.context, img, pixels, spec.Format)
	}
	if err != nil {
		img.Destroy(b.context)
		core.LogError("texture '%s': %s", spec.Name, err)
		return 0, err
	}

	handle := gpu.TextureHandle(b.newHandle())
	b.textures[handle] = img
	return handle, nil
}

func (b *Backend) DestroyTexture(tex gpu.TextureHandle) {
	if img, ok := b.textures[tex]; ok {
		vk.DeviceWaitIdle(b.context.Device.LogicalDevice)
		img.Destroy(b.context)
		delete(b.textures, tex)
	}
}

func (b *Backend) CreateVertexBuffer(data []byte) (gpu.BufferHandle, error) {
	buf, err := bufferCreateDeviceLocal(b.context, data, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		core.LogError("vertex buffer: %s", err)
		return 0, err
	}
	handle := gpu.BufferHandle(b.newHandle())
	b.buffers[handle] = buf
	return handle, nil
}

func (b *Backend) CreateIndexBuffer(indices []uint32) (gpu.BufferHandle, error) {
	data := make([]byte, len(indices)*4)
	for i, v := range indices {
		binary.LittleEndian.PutUint32(data[i*4:], v)
	}
	buf, err := bufferCreateDeviceLocal(b.context, data, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		core.LogError("index buffer: %s", err)
		return 0, err
	}
	handle := gpu.BufferHandle(b.newHandle())
	b.buffers[handle] = buf
	return handle, nil
}

func (b *Backend) DestroyBuffer(buf gpu.BufferHandle) {
	if vb, ok := b.buffers[buf]; ok {
		vk.DeviceWaitIdle(b.context.Device.LogicalDevice)
		vb.Destroy(b.context)
		delete(b.buffers, buf)
	}
}

func (b *Backend) CreateFramebuffer(name string, colors []gpu.TextureHandle, depth gpu.TextureHandle) (gpu.FramebufferHandle, error) {
	images := make([]*VulkanImage, 0, len(colors))
	for _, handle := range colors {
		img, ok := b.textures[handle]
		if !ok {
			return 0, fmt.Errorf("framebuffer '%s': unknown color texture %d", name, handle)
		}
		images = append(images, img)
	}
	var depthImage *VulkanImage
	if depth != 0 {
		img, ok := b.textures[depth]
		if !ok {
			return 0, fmt.Errorf("framebuffer '%s': unknown depth texture %d", name, depth)
		}
		depthImage = img
	}

	fb, err := framebufferCreate(b.context, name, images, colors, depthImage, depth)
	if err != nil {
		core.LogError(err.Error())
		return 0, err
	}
	handle := gpu.FramebufferHandle(b.newHandle())
	b.framebuffers[handle] = fb
	return handle, nil
}

func (b *Backend) DestroyFramebuffer(fb gpu.FramebufferHandle) {
	if vfb, ok := b.framebuffers[fb]; ok {
		vk.DeviceWaitIdle(b.context.Device.LogicalDevice)
		vfb.destroy(b.context)
		delete(b.framebuffers, fb)
	}
}

// SetFramebufferLayer retargets one attachment to a cube face and/or mip.
// Attachment -1 addresses the depth attachment; face -1 keeps layer 0.
func (b *Backend) SetFramebufferLayer(fb gpu.FramebufferHandle, attachment int32, tex gpu.TextureHandle, face int32, mip int32) error {
	vfb, ok := b.framebuffers[fb]
	if !ok {
		return fmt.Errorf("unknown framebuffer %d", fb)
	}
	img, ok := b.textures[tex]
	if !ok {
		return fmt.Errorf("unknown texture %d", tex)
	}

	var slot *attachmentSlot
	if attachment < 0 {
		if vfb.Depth == nil {
			return fmt.Errorf("framebuffer '%s' has no depth attachment", vfb.Name)
		}
		slot = vfb.Depth
	} else {
		if int(attachment) >= len(vfb.Colors) {
			return fmt.Errorf("framebuffer '%s' has no color attachment %d", vfb.Name, attachment)
		}
		slot = &vfb.Colors[attachment]
	}

	slot.Texture = tex
	slot.Image = img
	slot.Face = face
	slot.Mip = mip

	// The attached views changed, so the vk framebuffer must be rebuilt.
	// Rebinding happens on the next BindFramebuffer.
	wasBound := b.cur.framebuffer == vfb
	if wasBound {
		b.endRenderPass()
		b.cur.framebuffer = nil
	}
	vk.DeviceWaitIdle(b.context.Device.LogicalDevice)
	if err := vfb.rebuild(b.context); err != nil {
		return err
	}
	if wasBound {
		b.BindFramebuffer(fb)
	}
	return nil
}

func (b *Backend) CompileProgram(name, vertexSrc, fragmentSrc string) (gpu.ProgramHandle, error) {
	prog, err := newVulkanProgram(b.context, name, vertexSrc, fragmentSrc)
	if err != nil {
		core.LogError("program '%s': %s", name, err)
		return 0, err
	}
	handle := gpu.ProgramHandle(b.newHandle())
	b.programs[handle] = prog
	return handle, nil
}

func (b *Backend) DestroyProgram(prog gpu.ProgramHandle) {
	if p, ok := b.programs[prog]; ok {
		vk.DeviceWaitIdle(b.context.Device.LogicalDevice)
		p.destroy(b.context)
		delete(b.programs, prog)
	}
}

func (b *Backend) ProgramUniforms(prog gpu.ProgramHandle) ([]gpu.UniformInfo, error) {
	p, ok := b.programs[prog]
	if !ok {
		return nil, fmt.Errorf("unknown program %d", prog)
	}
	return p.uniformInfos(), nil
}

// unitCubeGeometry emits the [-0.5,0.5] cube in the surface vertex layout:
// 24 vertices with outward normals, 36 indices.
func unitCubeGeometry() ([]byte, []byte) {
	type face struct {
		normal  [3]float32
		corners [4][3]float32
	}
	faces := []face{
		{normal: [3]float32{0, 0, 1}, corners: [4][3]float32{{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5}}},
		{normal: [3]float32{0, 0, -1}, corners: [4][3]float32{{0.5, -0.5, -0.5}, {-0.5, -0.5, -0.5}, {-0.5, 0.5, -0.5}, {0.5, 0.5, -0.5}}},
		{normal: [3]float32{1, 0, 0}, corners: [4][3]float32{{0.5, -0.5, 0.5}, {0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {0.5, 0.5, 0.5}}},
		{normal: [3]float32{-1, 0, 0}, corners: [4][3]float32{{-0.5, -0.5, -0.5}, {-0.5, -0.5, 0.5}, {-0.5, 0.5, 0.5}, {-0.5, 0.5, -0.5}}},
		{normal: [3]float32{0, 1, 0}, corners: [4][3]float32{{-0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5}}},
		{normal: [3]float32{0, -1, 0}, corners: [4][3]float32{{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, -0.5, 0.5}, {-0.5, -0.5, 0.5}}},
	}
	uvs := [4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	vertices := make([]byte, 0, 24*surfaceVertexStride)
	putF32 := func(v float32) {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], gomath.Float32bits(v))
		vertices = append(vertices, buf[:]...)
	}
	putU32 := func(v uint32) {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], v)
		vertices = append(vertices, buf[:]...)
	}

	for _, f := range faces {
		for c := 0; c < 4; c++ {
			putF32(f.corners[c][0])
			putF32(f.corners[c][1])
			putF32(f.corners[c][2])
			putF32(uvs[c][0])
			putF32(uvs[c][1])
			putF32(f.normal[0])
			putF32(f.normal[1])
			putF32(f.normal[2])
			// Tangent, color, bone ids and weights are unused by the cube
			// shaders but the layout requires them.
			putF32(1)
			putF32(0)
			putF32(0)
			putF32(1)
			putF32(1)
			putF32(1)
			putF32(1)
			putF32(1)
			putU32(0)
			putU32(0)
			putU32(0)
			putU32(0)
			putF32(0)
			putF32(0)
			putF32(0)
			putF32(0)
		}
	}

	indices := make([]byte, 0, 36*4)
	for f := uint32(0); f < 6; f++ {
		base := f * 4
		for _, i := range []uint32{0, 1, 2, 0, 2, 3} {
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], base+i)
			indices = append(indices, buf[:]...)
		}
	}
	return vertices, indices
}
