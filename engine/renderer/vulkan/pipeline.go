package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
)

// The surface vertex layout: position, texcoord, normal, tangent, color,
// bone ids and bone weights, tightly packed.
const surfaceVertexStride uint32 = 96

// Per-instance stream on binding 1: a mat4 as four vec4 columns plus a color.
const instanceStride uint32 = 80

type pipelineKey struct {
	Framebuffer gpu.FramebufferHandle
	State       gpu.PipelineState
	Topology    gpu.PrimitiveTopology
	Instanced   bool
}

// pipelineFor returns the cached pipeline for the key or builds it. Raster
// state that changes per pass (depth, blend, cull, color mask) is baked into
// the pipeline; viewport and scissor stay dynamic.
func (p *vulkanProgram) pipelineFor(context *VulkanContext, key pipelineKey, fb *VulkanFramebuffer) (vk.Pipeline, error) {
	if pipeline, ok := p.Pipelines[key]; ok {
		return pipeline, nil
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		LineWidth:   1.0,
		FrontFace:   vk.FrontFaceCounterClockwise,
	}
	switch key.State.Cull {
	case gpu.CullFront:
		rasterizer.CullMode = vk.CullModeFlags(vk.CullModeFrontBit)
	case gpu.CullDisabled:
		rasterizer.CullMode = vk.CullModeFlags(vk.CullModeNone)
	default:
		rasterizer.CullMode = vk.CullModeFlags(vk.CullModeBackBit)
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType: vk.StructureTypePipelineDepthStencilStateCreateInfo,
	}
	if key.State.DepthTest {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthCompareOp = compareOp(key.State.DepthFunc)
	}
	if key.State.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	blendAttachment := vk.PipelineColorBlendAttachmentState{}
	if key.State.ColorWrite {
		blendAttachment.ColorWriteMask = vk.ColorComponentFlags(vk.ColorComponentRBit) |
			vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) |
			vk.ColorComponentFlags(vk.ColorComponentABit)
	}
	switch key.State.Blend {
	case gpu.BlendAlpha:
		blendAttachment.BlendEnable = vk.True
		blendAttachment.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		blendAttachment.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
	case gpu.BlendAdditive:
		blendAttachment.BlendEnable = vk.True
		blendAttachment.SrcColorBlendFactor = vk.BlendFactorOne
		blendAttachment.DstColorBlendFactor = vk.BlendFactorOne
	case gpu.BlendMultiply:
		blendAttachment.BlendEnable = vk.True
		blendAttachment.SrcColorBlendFactor = vk.BlendFactorDstColor
		blendAttachment.DstColorBlendFactor = vk.BlendFactorZero
	case gpu.BlendPremultiplied:
		blendAttachment.BlendEnable = vk.True
		blendAttachment.SrcColorBlendFactor = vk.BlendFactorOne
		blendAttachment.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
	}
	if blendAttachment.BlendEnable == vk.True {
		blendAttachment.ColorBlendOp = vk.BlendOpAdd
		blendAttachment.SrcAlphaBlendFactor = vk.BlendFactorOne
		blendAttachment.DstAlphaBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		blendAttachment.AlphaBlendOp = vk.BlendOpAdd
	}

	// One blend state per color attachment of the target framebuffer.
	attachments := make([]vk.PipelineColorBlendAttachmentState, len(fb.Colors))
	for i := range attachments {
		attachments[i] = blendAttachment
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if p.VertexLayout == vertexLayoutSurface {
		bindings := []vk.VertexInputBindingDescription{
			{Binding: 0, Stride: surfaceVertexStride, InputRate: vk.VertexInputRateVertex},
		}
		attrs := []vk.VertexInputAttributeDescription{
			{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
			{Location: 1, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 12},
			{Location: 2, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 20},
			{Location: 3, Binding: 0, Format: vk.FormatR32g32b32a32Sfloat, Offset: 32},
			{Location: 4, Binding: 0, Format: vk.FormatR32g32b32a32Sfloat, Offset: 48},
			{Location: 5, Binding: 0, Format: vk.FormatR32g32b32a32Uint, Offset: 64},
			{Location: 6, Binding: 0, Format: vk.FormatR32g32b32a32Sfloat, Offset: 80},
		}
		if key.Instanced {
			bindings = append(bindings, vk.VertexInputBindingDescription{
				Binding: 1, Stride: instanceStride, InputRate: vk.VertexInputRateInstance,
			})
			attrs = append(attrs,
				vk.VertexInputAttributeDescription{Location: 7, Binding: 1, Format: vk.FormatR32g32b32a32Sfloat, Offset: 0},
				vk.VertexInputAttributeDescription{Location: 8, Binding: 1, Format: vk.FormatR32g32b32a32Sfloat, Offset: 16},
				vk.VertexInputAttributeDescription{Location: 9, Binding: 1, Format: vk.FormatR32g32b32a32Sfloat, Offset: 32},
				vk.VertexInputAttributeDescription{Location: 10, Binding: 1, Format: vk.FormatR32g32b32a32Sfloat, Offset: 48},
				vk.VertexInputAttributeDescription{Location: 11, Binding: 1, Format: vk.FormatR32g32b32a32Sfloat, Offset: 64},
			)
		}
		vertexInput.VertexBindingDescriptionCount = uint32(len(bindings))
		vertexInput.PVertexBindingDescriptions = bindings
		vertexInput.VertexAttributeDescriptionCount = uint32(len(attrs))
		vertexInput.PVertexAttributeDescriptions = attrs
	}

	topology := vk.PrimitiveTopologyTriangleList
	if key.Topology == gpu.TopologyTriangleStrip {
		topology = vk.PrimitiveTopologyTriangleStrip
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: topology,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(p.StageInfos)),
		PStages:             p.StageInfos,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              p.PipelineLayout,
		RenderPass:          fb.RenderPass,
		Subpass:             0,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	result := vk.CreateGraphicsPipelines(
		context.Device.LogicalDevice,
		vk.NullPipelineCache,
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
		context.Allocator,
		pipelines)
	if !VulkanResultIsSuccess(result) {
		return nil, fmt.Errorf("failed to create pipeline for '%s': %s", p.Name, VulkanResultString(result, true))
	}

	p.Pipelines[key] = pipelines[0]
	return pipelines[0], nil
}

func compareOp(f gpu.CompareFunc) vk.CompareOp {
	switch f {
	case gpu.CompareNever:
		return vk.CompareOpNever
	case gpu.CompareLess:
		return vk.CompareOpLess
	case gpu.CompareGreater:
		return vk.CompareOpGreater
	case gpu.CompareGEqual:
		return vk.CompareOpGreaterOrEqual
	case gpu.CompareAlways:
		return vk.CompareOpAlways
	default:
		return vk.CompareOpLessOrEqual
	}
}
