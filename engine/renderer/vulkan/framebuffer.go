package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
)

// attachmentSlot tracks which texture, layer and mip an attachment currently
// targets. The shadow and bloom passes retarget slots between draws.
type attachmentSlot struct {
	Texture gpu.TextureHandle
	Image   *VulkanImage
	Face    int32
	Mip     int32
}

// VulkanFramebuffer pairs a render pass with a framebuffer whose attachment
// views can be swapped. All target images live in the GENERAL layout, so the
// render pass neither transitions nor clears; clears are explicit commands.
type VulkanFramebuffer struct {
	Name       string
	RenderPass vk.RenderPass
	Handle     vk.Framebuffer
	Colors     []attachmentSlot
	Depth      *attachmentSlot
	Width      uint32
	Height     uint32
}

func framebufferCreate(context *VulkanContext, name string, colors []*VulkanImage, colorHandles []gpu.TextureHandle, depth *VulkanImage, depthHandle gpu.TextureHandle) (*VulkanFramebuffer, error) {
	fb := &VulkanFramebuffer{Name: name}

	for i, img := range colors {
		fb.Colors = append(fb.Colors, attachmentSlot{Texture: colorHandles[i], Image: img})
	}
	if depth != nil {
		fb.Depth = &attachmentSlot{Texture: depthHandle, Image: depth}
	}

	if err := fb.createRenderPass(context); err != nil {
		return nil, err
	}
	if err := fb.rebuild(context); err != nil {
		return nil, err
	}
	return fb, nil
}

func (fb *VulkanFramebuffer) createRenderPass(context *VulkanContext) error {
	var descriptions []vk.AttachmentDescription
	var colorRefs []vk.AttachmentReference

	for i, slot := range fb.Colors {
		descriptions = append(descriptions, vk.AttachmentDescription{
			Format:         slot.Image.Format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpLoad,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutGeneral,
			FinalLayout:    vk.ImageLayoutGeneral,
		})
		colorRefs = append(colorRefs, vk.AttachmentReference{
			Attachment: uint32(i),
			Layout:     vk.ImageLayoutGeneral,
		})
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
	}

	if fb.Depth != nil {
		descriptions = append(descriptions, vk.AttachmentDescription{
			Format:         fb.Depth.Image.Format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpLoad,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutGeneral,
			FinalLayout:    vk.ImageLayoutGeneral,
		})
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: uint32(len(descriptions) - 1),
			Layout:     vk.ImageLayoutGeneral,
		}
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:   vk.SubpassExternal,
		DstSubpass:   0,
		SrcStageMask: vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		DstStageMask: vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		SrcAccessMask: vk.AccessFlags(vk.AccessMemoryWriteBit),
		DstAccessMask: vk.AccessFlags(vk.AccessMemoryReadBit) | vk.AccessFlags(vk.AccessMemoryWriteBit),
	}

	renderPassInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(descriptions)),
		PAttachments:    descriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var renderPass vk.RenderPass
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &renderPassInfo, context.Allocator, &renderPass); res != vk.Success {
		return fmt.Errorf("failed to create render pass for '%s': %s", fb.Name, VulkanResultString(res, true))
	}
	fb.RenderPass = renderPass
	return nil
}

func (slot *attachmentSlot) view() (vk.ImageView, error) {
	layer := slot.Face
	if layer < 0 {
		layer = 0
	}
	mip := slot.Mip
	if mip < 0 {
		mip = 0
	}
	if slot.Image.LayerViews == nil ||
		int(layer) >= len(slot.Image.LayerViews) ||
		int(mip) >= len(slot.Image.LayerViews[layer]) {
		return nil, fmt.Errorf("attachment has no view for layer %d mip %d", layer, mip)
	}
	return slot.Image.LayerViews[layer][mip], nil
}

// rebuild recreates the vk framebuffer from the current attachment slots.
// The extent follows the first attachment's mip-adjusted size.
func (fb *VulkanFramebuffer) rebuild(context *VulkanContext) error {
	if fb.Handle != nil {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, fb.Handle, context.Allocator)
		fb.Handle = nil
	}

	var views []vk.ImageView
	for i := range fb.Colors {
		view, err := fb.Colors[i].view()
		if err != nil {
			return err
		}
		views = append(views, view)
	}
	if fb.Depth != nil {
		view, err := fb.Depth.view()
		if err != nil {
			return err
		}
		views = append(views, view)
	}

	first := fb.Depth
	if len(fb.Colors) > 0 {
		first = &fb.Colors[0]
	}
	mip := first.Mip
	if mip < 0 {
		mip = 0
	}
	fb.Width = mipSize(first.Image.Width, uint32(mip))
	fb.Height = mipSize(first.Image.Height, uint32(mip))

	framebufferInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      fb.RenderPass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           fb.Width,
		Height:          fb.Height,
		Layers:          1,
	}
	var handle vk.Framebuffer
	if res := vk.CreateFramebuffer(context.Device.LogicalDevice, &framebufferInfo, context.Allocator, &handle); res != vk.Success {
		return fmt.Errorf("failed to create framebuffer '%s': %s", fb.Name, VulkanResultString(res, true))
	}
	fb.Handle = handle
	return nil
}

func (fb *VulkanFramebuffer) destroy(context *VulkanContext) {
	if fb.Handle != nil {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, fb.Handle, context.Allocator)
		fb.Handle = nil
	}
	if fb.RenderPass != nil {
		vk.DestroyRenderPass(context.Device.LogicalDevice, fb.RenderPass, context.Allocator)
		fb.RenderPass = nil
	}
}

func mipSize(base, mip uint32) uint32 {
	size := base >> mip
	if size == 0 {
		return 1
	}
	return size
}
