package vulkan

import (
	"encoding/binary"
	"fmt"
	gomath "math"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
)

// Frame commands. Everything here records into the single per-frame primary
// command buffer between BeginFrame and EndFrame. Viewport, scissor and the
// descriptor set are resolved lazily at draw time.

func (b *Backend) endRenderPass() {
	if b.cur.inPass {
		vk.CmdEndRenderPass(b.cur.cmd)
		b.cur.inPass = false
	}
}

func (b *Backend) BindFramebuffer(fb gpu.FramebufferHandle) {
	vfb, ok := b.framebuffers[fb]
	if !ok {
		core.LogError("bind of unknown framebuffer %d", fb)
		return
	}
	if b.cur.framebuffer == vfb {
		return
	}
	b.endRenderPass()
	b.cur.framebuffer = vfb
	b.cur.fbHandle = fb

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vfb.RenderPass,
		Framebuffer: vfb.Handle,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: vfb.Width, Height: vfb.Height},
		},
	}
	vk.CmdBeginRenderPass(b.cur.cmd, &beginInfo, vk.SubpassContentsInline)
	b.cur.inPass = true

	b.SetViewport(math.Rect{X: 0, Y: 0, W: int32(vfb.Width), H: int32(vfb.Height)})
	b.cur.scissored = false
}

func (b *Backend) targetHeight() int32 {
	if b.cur.framebuffer != nil {
		return int32(b.cur.framebuffer.Height)
	}
	return int32(b.context.FramebufferHeight)
}

// SetViewport takes a bottom-left-origin rect and records a negative-height
// Vulkan viewport, so clip space keeps the Y-up convention the pass and
// shader code assume.
func (b *Backend) SetViewport(rect math.Rect) {
	b.cur.viewport = vk.Viewport{
		X:        float32(rect.X),
		Y:        float32(b.targetHeight() - rect.Y),
		Width:    float32(rect.W),
		Height:   -float32(rect.H),
		MinDepth: 0,
		MaxDepth: 1,
	}
}

func (b *Backend) SetScissor(rect math.Rect) {
	y := b.targetHeight() - rect.Y - rect.H
	if y < 0 {
		y = 0
	}
	x := rect.X
	if x < 0 {
		x = 0
	}
	b.cur.scissor = vk.Rect2D{
		Offset: vk.Offset2D{X: x, Y: y},
		Extent: vk.Extent2D{Width: uint32(rect.W), Height: uint32(rect.H)},
	}
	b.cur.scissored = true
}

func (b *Backend) DisableScissor() {
	b.cur.scissored = false
}

func (b *Backend) SetPipeline(state gpu.PipelineState) {
	b.cur.state = state
}

func (b *Backend) effectiveScissor() vk.Rect2D {
	if b.cur.scissored {
		return b.cur.scissor
	}
	if b.cur.framebuffer != nil {
		return vk.Rect2D{Extent: vk.Extent2D{Width: b.cur.framebuffer.Width, Height: b.cur.framebuffer.Height}}
	}
	return vk.Rect2D{Extent: vk.Extent2D{Width: b.context.FramebufferWidth, Height: b.context.FramebufferHeight}}
}

// Clear clears the bound attachments inside the running render pass. The
// scissor rect limits the clear, matching the accumulation passes that clear
// per-light regions.
func (b *Backend) Clear(flags gpu.ClearFlags, r, g, bl, a float32) {
	if b.cur.framebuffer == nil || !b.cur.inPass {
		return
	}

	var attachments []vk.ClearAttachment
	if flags&gpu.ClearColorBuffer != 0 {
		for i := range b.cur.framebuffer.Colors {
			var value vk.ClearValue
			value.SetColor([]float32{r, g, bl, a})
			attachments = append(attachments, vk.ClearAttachment{
				AspectMask:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
				ColorAttachment: uint32(i),
				ClearValue:      value,
			})
		}
	}
	if flags&gpu.ClearDepthBuffer != 0 && b.cur.framebuffer.Depth != nil {
		var value vk.ClearValue
		value.SetDepthStencil(1.0, 0)
		attachments = append(attachments, vk.ClearAttachment{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectDepthBit),
			ClearValue: value,
		})
	}
	if len(attachments) == 0 {
		return
	}

	rect := vk.ClearRect{
		Rect:           b.effectiveScissor(),
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
	vk.CmdClearAttachments(b.cur.cmd, uint32(len(attachments)), attachments, 1, []vk.ClearRect{rect})
}

func (b *Backend) UseProgram(prog gpu.ProgramHandle) {
	p, ok := b.programs[prog]
	if !ok {
		core.LogError("use of unknown program %d", prog)
		return
	}
	b.cur.program = p
}

func (b *Backend) SetUniformInt(name string, v int32) {
	if b.cur.program != nil {
		b.cur.program.writeInt(name, v)
	}
}

func (b *Backend) SetUniformFloat(name string, v float32) {
	if b.cur.program != nil {
		b.cur.program.writeFloats(name, v)
	}
}

func (b *Backend) SetUniformVec2(name string, v math.Vec2) {
	if b.cur.program != nil {
		b.cur.program.writeFloats(name, v.X, v.Y)
	}
}

func (b *Backend) SetUniformVec3(name string, v math.Vec3) {
	if b.cur.program != nil {
		b.cur.program.writeFloats(name, v.X, v.Y, v.Z)
	}
}

func (b *Backend) SetUniformVec4(name string, v math.Vec4) {
	if b.cur.program != nil {
		b.cur.program.writeFloats(name, v.X, v.Y, v.Z, v.W)
	}
}

func (b *Backend) SetUniformMat4(name string, v math.Mat4) {
	if b.cur.program != nil {
		b.cur.program.writeFloats(name, v.Data[:]...)
	}
}

func (b *Backend) BindTexture(slot int32, kind gpu.TextureKind, tex gpu.TextureHandle) {
	if slot < 0 || slot >= maxSamplerBindings {
		return
	}
	img, ok := b.textures[tex]
	if !ok {
		core.LogError("bind of unknown texture %d", tex)
		return
	}
	b.cur.textures[slot] = boundTexture{Image: img, Kind: kind}
}

func (b *Backend) UnbindTexture(slot int32, kind gpu.TextureKind) {
	if slot < 0 || slot >= maxSamplerBindings {
		return
	}
	b.cur.textures[slot] = boundTexture{}
}

// samplingLayout is the layout an image holds when sampled. Render targets
// stay GENERAL for their whole life; uploaded textures end shader-read.
func (img *VulkanImage) samplingLayout() vk.ImageLayout {
	if img.LayerViews != nil {
		return vk.ImageLayoutGeneral
	}
	return vk.ImageLayoutShaderReadOnlyOptimal
}

// flushDrawState binds the pipeline for the current raster state, sets the
// dynamic viewport and scissor, pushes the uniform shadow block into the
// per-frame ring and binds a freshly allocated descriptor set.
func (b *Backend) flushDrawState(topology gpu.PrimitiveTopology, instanced bool) error {
	if !b.cur.recording {
		return fmt.Errorf("draw outside of a frame")
	}
	if b.cur.framebuffer == nil || !b.cur.inPass {
		return fmt.Errorf("draw without a bound framebuffer")
	}
	p := b.cur.program
	if p == nil {
		return fmt.Errorf("draw without a bound program")
	}
	cmd := b.cur.cmd

	key := pipelineKey{
		Framebuffer: b.cur.fbHandle,
		State:       b.cur.state,
		Topology:    topology,
		Instanced:   instanced,
	}
	pipeline, err := p.pipelineFor(b.context, key, b.cur.framebuffer)
	if err != nil {
		return err
	}
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, pipeline)

	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{b.cur.viewport})
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{b.effectiveScissor()})

	frame := b.frames[b.context.CurrentFrame]

	offset := alignUp(frame.UniformOffset, uniformAlignment)
	if vk.DeviceSize(offset)+vk.DeviceSize(p.BlockSize) > uniformRingSize {
		return fmt.Errorf("uniform ring exhausted for program '%s'", p.Name)
	}
	dst := unsafe.Pointer(uintptr(frame.UniformRing.Mapped) + uintptr(offset))
	vk.Memcopy(dst, p.Shadow)
	frame.UniformOffset = offset + p.BlockSize

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     frame.DescriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{p.DescriptorSetLayout},
	}
	var set vk.DescriptorSet
	if res := vk.AllocateDescriptorSets(b.context.Device.LogicalDevice, &allocInfo, &set); res != vk.Success {
		return fmt.Errorf("failed to allocate descriptor set for '%s': %s", p.Name, VulkanResultString(res, true))
	}

	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      uniformBlockBinding,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			PBufferInfo: []vk.DescriptorBufferInfo{
				{
					Buffer: frame.UniformRing.Handle,
					Offset: vk.DeviceSize(offset),
					Range:  vk.DeviceSize(p.BlockSize),
				},
			},
		},
	}

	for _, s := range p.Samplers {
		img := b.whiteTexture
		if s.TexSlot >= 0 && s.TexSlot < maxSamplerBindings {
			if bound := b.cur.textures[s.TexSlot]; bound.Image != nil {
				img = bound.Image
			}
		}
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      s.Binding,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			PImageInfo: []vk.DescriptorImageInfo{
				{
					Sampler:     b.sampler,
					ImageView:   img.View,
					ImageLayout: img.samplingLayout(),
				},
			},
		})
	}

	vk.UpdateDescriptorSets(b.context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, p.PipelineLayout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
	return nil
}

func (b *Backend) DrawIndexed(vbh gpu.BufferHandle, ibh gpu.BufferHandle, indexCount uint32, topology gpu.PrimitiveTopology) {
	vb, ok := b.buffers[vbh]
	if !ok {
		core.LogError("draw with unknown vertex buffer %d", vbh)
		return
	}
	ib, ok := b.buffers[ibh]
	if !ok {
		core.LogError("draw with unknown index buffer %d", ibh)
		return
	}
	if err := b.flushDrawState(topology, false); err != nil {
		core.LogError(err.Error())
		return
	}

	cmd := b.cur.cmd
	vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{vb.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(cmd, ib.Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(cmd, indexCount, 1, 0, 0, 0)
}

func (b *Backend) DrawIndexedInstanced(vbh gpu.BufferHandle, ibh gpu.BufferHandle, indexCount uint32, topology gpu.PrimitiveTopology, instances gpu.InstanceData) {
	if instances.Count <= 0 {
		return
	}
	vb, ok := b.buffers[vbh]
	if !ok {
		core.LogError("draw with unknown vertex buffer %d", vbh)
		return
	}
	ib, ok := b.buffers[ibh]
	if !ok {
		core.LogError("draw with unknown index buffer %d", ibh)
		return
	}

	frame := b.frames[b.context.CurrentFrame]
	byteCount := uint32(instances.Count) * instanceStride
	offset := alignUp(frame.InstanceOffset, 16)
	if vk.DeviceSize(offset)+vk.DeviceSize(byteCount) > instanceRingSize {
		core.LogError("instance ring exhausted (%d instances)", instances.Count)
		return
	}

	// Stream transforms and colors interleaved: 16 matrix floats then a color.
	data := make([]byte, 0, byteCount)
	var scratch [4]byte
	putF32 := func(v float32) {
		binary.LittleEndian.PutUint32(scratch[:], gomath.Float32bits(v))
		data = append(data, scratch[:]...)
	}
	for i := int32(0); i < instances.Count; i++ {
		for _, v := range instances.Transforms[i].Data {
			putF32(v)
		}
		color := math.Vec4{X: 1, Y: 1, Z: 1, W: 1}
		if instances.Colors != nil {
			color = instances.Colors[i]
		}
		putF32(color.X)
		putF32(color.Y)
		putF32(color.Z)
		putF32(color.W)
	}
	dst := unsafe.Pointer(uintptr(frame.InstanceRing.Mapped) + uintptr(offset))
	vk.Memcopy(dst, data)
	frame.InstanceOffset = offset + byteCount

	if err := b.flushDrawState(topology, true); err != nil {
		core.LogError(err.Error())
		return
	}

	cmd := b.cur.cmd
	vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{vb.Handle}, []vk.DeviceSize{0})
	vk.CmdBindVertexBuffers(cmd, 1, 1, []vk.Buffer{frame.InstanceRing.Handle}, []vk.DeviceSize{vk.DeviceSize(offset)})
	vk.CmdBindIndexBuffer(cmd, ib.Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(cmd, indexCount, uint32(instances.Count), 0, 0, 0)
}

func (b *Backend) DrawScreen() {
	if err := b.flushDrawState(gpu.TopologyTriangles, false); err != nil {
		core.LogError(err.Error())
		return
	}
	vk.CmdDraw(b.cur.cmd, 3, 1, 0, 0)
}

func (b *Backend) DrawUnitCube() {
	if err := b.flushDrawState(gpu.TopologyTriangles, false); err != nil {
		core.LogError(err.Error())
		return
	}
	cmd := b.cur.cmd
	vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{b.cubeVertexBuffer.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(cmd, b.cubeIndexBuffer.Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(cmd, 36, 1, 0, 0, 0)
}

func memoryBarrier(cmd vk.CommandBuffer) {
	barrier := vk.MemoryBarrier{
		SType:         vk.StructureTypeMemoryBarrier,
		SrcAccessMask: vk.AccessFlags(vk.AccessMemoryWriteBit),
		DstAccessMask: vk.AccessFlags(vk.AccessMemoryReadBit) | vk.AccessFlags(vk.AccessMemoryWriteBit),
	}
	vk.CmdPipelineBarrier(cmd,
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		0,
		1, []vk.MemoryBarrier{barrier},
		0, nil,
		0, nil)
}

// GenerateMipmaps blits each mip level from the one above it. Render targets
// stay in the GENERAL layout, so only execution barriers separate the levels.
func (b *Backend) GenerateMipmaps(tex gpu.TextureHandle) {
	img, ok := b.textures[tex]
	if !ok {
		core.LogError("mipmap generation for unknown texture %d", tex)
		return
	}
	if img.MipLevels <= 1 {
		return
	}

	record := func(cmd vk.CommandBuffer) {
		srcW, srcH := int32(img.Width), int32(img.Height)
		for mip := uint32(1); mip < img.MipLevels; mip++ {
			memoryBarrier(cmd)
			dstW, dstH := srcW/2, srcH/2
			if dstW < 1 {
				dstW = 1
			}
			if dstH < 1 {
				dstH = 1
			}
			region := vk.ImageBlit{
				SrcSubresource: vk.ImageSubresourceLayers{
					AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
					MipLevel:   mip - 1,
					LayerCount: img.Layers,
				},
				SrcOffsets: [2]vk.Offset3D{{}, {X: srcW, Y: srcH, Z: 1}},
				DstSubresource: vk.ImageSubresourceLayers{
					AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
					MipLevel:   mip,
					LayerCount: img.Layers,
				},
				DstOffsets: [2]vk.Offset3D{{}, {X: dstW, Y: dstH, Z: 1}},
			}
			vk.CmdBlitImage(cmd,
				img.Handle, vk.ImageLayoutGeneral,
				img.Handle, vk.ImageLayoutGeneral,
				1, []vk.ImageBlit{region},
				vk.FilterLinear)
			srcW, srcH = dstW, dstH
		}
		memoryBarrier(cmd)
	}

	if b.cur.recording {
		b.endRenderPass()
		b.cur.framebuffer = nil
		b.cur.fbHandle = 0
		record(b.cur.cmd)
		return
	}
	if err := withSingleUseCommandBuffer(b.context, record); err != nil {
		core.LogError("mipmap generation failed: %s", err)
	}
}

func swapchainImageBarrier(cmd vk.CommandBuffer, image vk.Image, oldLayout, newLayout vk.ImageLayout) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
		SrcAccessMask: vk.AccessFlags(vk.AccessMemoryWriteBit),
		DstAccessMask: vk.AccessFlags(vk.AccessMemoryReadBit) | vk.AccessFlags(vk.AccessMemoryWriteBit),
	}
	vk.CmdPipelineBarrier(cmd,
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier})
}

// BlitToSurface copies the final texture onto the acquired swapchain image.
// AspectKeep letterboxes on black; otherwise the copy stretches to fill.
func (b *Backend) BlitToSurface(tex gpu.TextureHandle, srcW, srcH uint32, mode gpu.BlitMode) {
	img, ok := b.textures[tex]
	if !ok {
		core.LogError("blit of unknown texture %d", tex)
		return
	}
	if !b.cur.recording {
		core.LogError("blit outside of a frame")
		return
	}

	b.endRenderPass()
	b.cur.framebuffer = nil
	b.cur.fbHandle = 0

	cmd := b.cur.cmd
	target := b.context.Swapchain.Images[b.context.ImageIndex]
	extent := b.context.Swapchain.Extent

	swapchainImageBarrier(cmd, target, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)

	var black vk.ClearColorValue
	black.SetFloat32([]float32{0, 0, 0, 1})
	clearRange := vk.ImageSubresourceRange{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: 1,
		LayerCount: 1,
	}
	vk.CmdClearColorImage(cmd, target, vk.ImageLayoutTransferDstOptimal, &black, 1, []vk.ImageSubresourceRange{clearRange})

	dstX, dstY := int32(0), int32(0)
	dstW, dstH := int32(extent.Width), int32(extent.Height)
	if mode.AspectKeep && srcW > 0 && srcH > 0 {
		scaleX := float32(extent.Width) / float32(srcW)
		scaleY := float32(extent.Height) / float32(srcH)
		scale := scaleX
		if scaleY < scale {
			scale = scaleY
		}
		dstW = int32(float32(srcW) * scale)
		dstH = int32(float32(srcH) * scale)
		dstX = (int32(extent.Width) - dstW) / 2
		dstY = (int32(extent.Height) - dstH) / 2
	}

	filter := vk.FilterNearest
	if mode.Linear {
		filter = vk.FilterLinear
	}
	region := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		SrcOffsets: [2]vk.Offset3D{{}, {X: int32(srcW), Y: int32(srcH), Z: 1}},
		DstSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		DstOffsets: [2]vk.Offset3D{
			{X: dstX, Y: dstY},
			{X: dstX + dstW, Y: dstY + dstH, Z: 1},
		},
	}
	// Render targets live in GENERAL, which is a valid blit source. Uploaded
	// textures sit in shader-read and need a round trip.
	srcLayout := vk.ImageLayoutGeneral
	uploaded := img.LayerViews == nil
	if uploaded {
		img.transitionLayout(cmd, vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutTransferSrcOptimal)
		srcLayout = vk.ImageLayoutTransferSrcOptimal
	}
	vk.CmdBlitImage(cmd,
		img.Handle, srcLayout,
		target, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{region},
		filter)
	if uploaded {
		img.transitionLayout(cmd, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	}

	swapchainImageBarrier(cmd, target, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutPresentSrc)
}

// ResetState returns the command stream to the canonical idle state: no
// framebuffer, no program, alpha blending with LEqual depth testing.
func (b *Backend) ResetState() {
	b.endRenderPass()
	b.cur.framebuffer = nil
	b.cur.fbHandle = 0
	b.cur.program = nil
	b.cur.scissored = false
	b.cur.textures = [maxSamplerBindings]boundTexture{}
	b.cur.state = gpu.PipelineState{
		ColorWrite: true,
		Blend:      gpu.BlendAlpha,
		DepthTest:  true,
		DepthFunc:  gpu.CompareLEqual,
		DepthWrite: true,
	}
}
