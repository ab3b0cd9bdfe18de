package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
)

// VulkanImage is one GPU image plus its memory and the views the renderer
// needs: a full view for sampling and one view per layer/mip so framebuffers
// can target single cube faces and bloom mips.
type VulkanImage struct {
	Handle     vk.Image
	Memory     vk.DeviceMemory
	View       vk.ImageView
	LayerViews [][]vk.ImageView // [layer][mip], only for render targets
	Width      uint32
	Height     uint32
	Format     vk.Format
	MipLevels  uint32
	Layers     uint32
	IsDepth    bool
	IsCube     bool
}

func vulkanFormat(format gpu.TextureFormat) vk.Format {
	switch format {
	case gpu.FormatRGBA16F:
		return vk.FormatR16g16b16a16Sfloat
	case gpu.FormatRG16F:
		return vk.FormatR16g16Sfloat
	case gpu.FormatR8:
		return vk.FormatR8Unorm
	case gpu.FormatDepth32F:
		return vk.FormatD32Sfloat
	default:
		return vk.FormatR8g8b8a8Unorm
	}
}

func formatPixelSize(format gpu.TextureFormat) uint32 {
	switch format {
	case gpu.FormatRGBA16F:
		return 8
	case gpu.FormatRG16F, gpu.FormatDepth32F:
		return 4
	case gpu.FormatR8:
		return 1
	default:
		return 4
	}
}

func imageCreate(context *VulkanContext, spec gpu.TextureSpec, renderTarget bool) (*VulkanImage, error) {
	img := &VulkanImage{
		Width:     spec.Width,
		Height:    spec.Height,
		Format:    vulkanFormat(spec.Format),
		MipLevels: spec.MipLevels,
		Layers:    1,
		IsDepth:   spec.Format == gpu.FormatDepth32F,
		IsCube:    spec.Kind == gpu.TextureKindCube,
	}
	if img.MipLevels == 0 {
		img.MipLevels = 1
	}
	if img.IsCube {
		img.Layers = 6
	}

	usage := vk.ImageUsageFlags(vk.ImageUsageSampledBit) |
		vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit) |
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)
	if renderTarget {
		if img.IsDepth {
			usage |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
		} else {
			usage |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
		}
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    img.Format,
		Extent: vk.Extent3D{
			Width:  spec.Width,
			Height: spec.Height,
			Depth:  1,
		},
		MipLevels:     img.MipLevels,
		ArrayLayers:   img.Layers,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if img.IsCube {
		imageCreateInfo.Flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}

	var handle vk.Image
	if res := vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, fmt.Errorf("failed to create image '%s': %s", spec.Name, VulkanResultString(res, true))
	}
	img.Handle = handle

	var memRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, img.Handle, &memRequirements)
	memRequirements.Deref()

	memoryIndex := context.FindMemoryIndex(memRequirements.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if memoryIndex == -1 {
		return nil, fmt.Errorf("no device-local memory type for image '%s'", spec.Name)
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocInfo, context.Allocator, &memory); res != vk.Success {
		return nil, fmt.Errorf("failed to allocate image memory for '%s': %s", spec.Name, VulkanResultString(res, true))
	}
	img.Memory = memory
	if res := vk.BindImageMemory(context.Device.LogicalDevice, img.Handle, img.Memory, 0); res != vk.Success {
		return nil, fmt.Errorf("failed to bind image memory for '%s': %s", spec.Name, VulkanResultString(res, true))
	}

	fullView, err := imageViewCreate(context, img, -1, -1)
	if err != nil {
		return nil, err
	}
	img.View = fullView

	if renderTarget {
		img.LayerViews = make([][]vk.ImageView, img.Layers)
		for layer := uint32(0); layer < img.Layers; layer++ {
			img.LayerViews[layer] = make([]vk.ImageView, img.MipLevels)
			for mip := uint32(0); mip < img.MipLevels; mip++ {
				view, err := imageViewCreate(context, img, int32(layer), int32(mip))
				if err != nil {
					return nil, err
				}
				img.LayerViews[layer][mip] = view
			}
		}
	}

	return img, nil
}

// imageViewCreate builds either the full sampling view (layer and mip -1) or
// a single-layer single-mip 2D attachment view.
func imageViewCreate(context *VulkanContext, img *VulkanImage, layer, mip int32) (vk.ImageView, error) {
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if img.IsDepth {
		aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   img.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: img.MipLevels,
			LayerCount: img.Layers,
		},
	}
	if layer < 0 && img.IsCube {
		viewInfo.ViewType = vk.ImageViewTypeCube
	}
	if layer >= 0 {
		viewInfo.SubresourceRange.BaseArrayLayer = uint32(layer)
		viewInfo.SubresourceRange.LayerCount = 1
		viewInfo.SubresourceRange.BaseMipLevel = uint32(mip)
		viewInfo.SubresourceRange.LevelCount = 1
	}

	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view); res != vk.Success {
		return nil, fmt.Errorf("failed to create image view: %s", VulkanResultString(res, true))
	}
	return view, nil
}

func (img *VulkanImage) Destroy(context *VulkanContext) {
	for _, layer := range img.LayerViews {
		for _, view := range layer {
			vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
		}
	}
	img.LayerViews = nil
	if img.View != nil {
		vk.DestroyImageView(context.Device.LogicalDevice, img.View, context.Allocator)
		img.View = nil
	}
	if img.Handle != nil {
		vk.DestroyImage(context.Device.LogicalDevice, img.Handle, context.Allocator)
		img.Handle = nil
	}
	if img.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, img.Memory, context.Allocator)
		img.Memory = nil
	}
}

// transitionLayout records a full-subresource layout transition with a
// conservative all-commands barrier. The renderer favors simplicity over
// fine-grained stage masks here.
func (img *VulkanImage) transitionLayout(commandBuffer vk.CommandBuffer, oldLayout, newLayout vk.ImageLayout) {
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if img.IsDepth {
		aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: img.MipLevels,
			LayerCount: img.Layers,
		},
		SrcAccessMask: vk.AccessFlags(vk.AccessMemoryWriteBit),
		DstAccessMask: vk.AccessFlags(vk.AccessMemoryReadBit) | vk.AccessFlags(vk.AccessMemoryWriteBit),
	}

	vk.CmdPipelineBarrier(commandBuffer,
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier})
}

// VulkanBuffer is a device buffer with its backing memory. Host-visible
// buffers stay persistently mapped.
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	Mapped unsafe.Pointer
}

func bufferCreate(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags, hostVisible bool) (*VulkanBuffer, error) {
	buf := &VulkanBuffer{Size: size}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &handle); res != vk.Success {
		return nil, fmt.Errorf("failed to create buffer: %s", VulkanResultString(res, true))
	}
	buf.Handle = handle

	var memRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buf.Handle, &memRequirements)
	memRequirements.Deref()

	properties := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if hostVisible {
		properties = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) |
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	}
	memoryIndex := context.FindMemoryIndex(memRequirements.MemoryTypeBits, properties)
	if memoryIndex == -1 {
		return nil, fmt.Errorf("no suitable memory type for buffer")
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocInfo, context.Allocator, &memory); res != vk.Success {
		return nil, fmt.Errorf("failed to allocate buffer memory: %s", VulkanResultString(res, true))
	}
	buf.Memory = memory
	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buf.Handle, buf.Memory, 0); res != vk.Success {
		return nil, fmt.Errorf("failed to bind buffer memory: %s", VulkanResultString(res, true))
	}

	if hostVisible {
		var mapped unsafe.Pointer
		if res := vk.MapMemory(context.Device.LogicalDevice, buf.Memory, 0, size, 0, &mapped); res != vk.Success {
			return nil, fmt.Errorf("failed to map buffer memory: %s", VulkanResultString(res, true))
		}
		buf.Mapped = mapped
	}

	return buf, nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	if b.Mapped != nil {
		vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
		b.Mapped = nil
	}
	if b.Handle != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, b.Handle, context.Allocator)
		b.Handle = nil
	}
	if b.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, b.Memory, context.Allocator)
		b.Memory = nil
	}
}

// bufferCreateDeviceLocal stages data through a host-visible scratch buffer
// and copies it on the graphics queue.
func bufferCreateDeviceLocal(context *VulkanContext, data []byte, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	size := vk.DeviceSize(len(data))

	staging, err := bufferCreate(context, size, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), true)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)
	vk.Memcopy(staging.Mapped, data)

	buf, err := bufferCreate(context, size, usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), false)
	if err != nil {
		return nil, err
	}

	err = withSingleUseCommandBuffer(context, func(cb vk.CommandBuffer) {
		vk.CmdCopyBuffer(cb, staging.Handle, buf.Handle, 1, []vk.BufferCopy{{Size: size}})
	})
	if err != nil {
		buf.Destroy(context)
		return nil, err
	}
	return buf, nil
}

// withSingleUseCommandBuffer records fn into a one-shot command buffer,
// submits it on the graphics queue and waits for completion.
func withSingleUseCommandBuffer(context *VulkanContext, fn func(cb vk.CommandBuffer)) error {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        context.Device.GraphicsCommandPool,
		CommandBufferCount: 1,
		Level:              vk.CommandBufferLevelPrimary,
	}
	commandBuffers := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, commandBuffers); res != vk.Success {
		err := fmt.Errorf("failed to allocate single-use command buffer")
		core.LogError(err.Error())
		return err
	}
	cb := commandBuffers[0]
	defer vk.FreeCommandBuffers(context.Device.LogicalDevice, context.Device.GraphicsCommandPool, 1, []vk.CommandBuffer{cb})

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(cb, &beginInfo); res != vk.Success {
		return fmt.Errorf("failed to begin single-use command buffer")
	}

	fn(cb)

	if res := vk.EndCommandBuffer(cb); res != vk.Success {
		return fmt.Errorf("failed to end single-use command buffer")
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb},
	}
	if res := vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, nil); res != vk.Success {
		return fmt.Errorf("failed to submit single-use command buffer: %s", VulkanResultString(res, true))
	}
	if res := vk.QueueWaitIdle(context.Device.GraphicsQueue); res != vk.Success {
		return fmt.Errorf("queue wait failed: %s", VulkanResultString(res, true))
	}
	return nil
}

// imageUpload copies pixel data into mip 0 of every layer and leaves the
// image in shader-read layout.
func imageUpload(context *VulkanContext, img *VulkanImage, pixels []byte, format gpu.TextureFormat) error {
	staging, err := bufferCreate(context, vk.DeviceSize(len(pixels)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), true)
	if err != nil {
		return err
	}
	defer staging.Destroy(context)
	vk.Memcopy(staging.Mapped, pixels)

	layerSize := img.Width * img.Height * formatPixelSize(format)

	return withSingleUseCommandBuffer(context, func(cb vk.CommandBuffer) {
		img.transitionLayout(cb, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)

		regions := make([]vk.BufferImageCopy, img.Layers)
		for layer := uint32(0); layer < img.Layers; layer++ {
			regions[layer] = vk.BufferImageCopy{
				BufferOffset: vk.DeviceSize(layer * layerSize),
				ImageSubresource: vk.ImageSubresourceLayers{
					AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
					MipLevel:       0,
					BaseArrayLayer: layer,
					LayerCount:     1,
				},
				ImageExtent: vk.Extent3D{Width: img.Width, Height: img.Height, Depth: 1},
			}
		}
		vk.CmdCopyBufferToImage(cb, staging.Handle, img.Handle, vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions)

		img.transitionLayout(cb, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	})
}
