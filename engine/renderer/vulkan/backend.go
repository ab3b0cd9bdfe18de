package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/platform"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
)

const (
	uniformRingSize  vk.DeviceSize = 4 * 1024 * 1024
	instanceRingSize vk.DeviceSize = 8 * 1024 * 1024
	uniformAlignment uint32        = 256
)

// Backend is the Vulkan implementation of gpu.Backend. It keeps the
// immediate-mode contract by recording into one primary command buffer per
// frame and resolving named uniforms and texture slots into descriptor sets
// at draw time.
type Backend struct {
	platform    *platform.Platform
	context     *VulkanContext
	FrameNumber uint64
	debug       bool

	nextHandle   uint32
	textures     map[gpu.TextureHandle]*VulkanImage
	buffers      map[gpu.BufferHandle]*VulkanBuffer
	programs     map[gpu.ProgramHandle]*vulkanProgram
	framebuffers map[gpu.FramebufferHandle]*VulkanFramebuffer

	frames []*frameResources

	cubeVertexBuffer *VulkanBuffer
	cubeIndexBuffer  *VulkanBuffer
	whiteTexture     *VulkanImage
	sampler          vk.Sampler

	cur frameCursor
}

// frameResources is everything that cycles with the frames in flight.
type frameResources struct {
	DescriptorPool vk.DescriptorPool
	UniformRing    *VulkanBuffer
	UniformOffset  uint32
	InstanceRing   *VulkanBuffer
	InstanceOffset uint32
}

type boundTexture struct {
	Image *VulkanImage
	Kind  gpu.TextureKind
}

// frameCursor is the mutable state between BeginFrame and EndFrame.
type frameCursor struct {
	cmd         vk.CommandBuffer
	framebuffer *VulkanFramebuffer
	fbHandle    gpu.FramebufferHandle
	program     *vulkanProgram
	state       gpu.PipelineState
	viewport    vk.Viewport
	scissor     vk.Rect2D
	scissored   bool
	textures    [maxSamplerBindings]boundTexture
	inPass      bool
	recording   bool
}

func New(p *platform.Platform) *Backend {
	return &Backend{
		platform: p,
		context: &VulkanContext{
			Allocator: nil,
		},
		textures:     make(map[gpu.TextureHandle]*VulkanImage),
		buffers:      make(map[gpu.BufferHandle]*VulkanBuffer),
		programs:     make(map[gpu.ProgramHandle]*vulkanProgram),
		framebuffers: make(map[gpu.FramebufferHandle]*VulkanFramebuffer),
		debug:        true,
	}
}

var _ gpu.Backend = (*Backend)(nil)

func (b *Backend) Initialize(appName string, width, height uint32) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		core.LogFatal("GetInstanceProcAddress is nil")
		return fmt.Errorf("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogFatal("failed to initialize vk: %s", err)
		return err
	}

	b.context.FramebufferWidth = width
	b.context.FramebufferHeight = height

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Prisma Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, b.platform.GetRequiredExtensionNames()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}
	if b.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	validationLayers := []string{}
	if b.debug && validationLayerAvailable() {
		validationLayers = append(validationLayers, "VK_LAYER_KHRONOS_validation")
	}
	createInfo.EnabledLayerCount = uint32(len(validationLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(validationLayers)

	if res := vk.CreateInstance(&createInfo, b.context.Allocator, &b.context.Instance); res != vk.Success {
		err := fmt.Errorf("failed to create Vulkan instance: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(b.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan instance created.")

	if b.debug {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(b.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogWarn("debug callback unavailable: %s", err)
		} else {
			b.context.debugMessenger = dbg
		}
	}

	surface, err := b.platform.Window.CreateWindowSurface(b.context.Instance, nil)
	if err != nil {
		core.LogError("failed to create window surface: %s", err)
		return err
	}
	b.context.Surface = vk.SurfaceFromPointer(surface)

	b.context.Device = &VulkanDevice{}
	if err := DeviceCreate(b.context); err != nil {
		return err
	}

	sc, err := SwapchainCreate(b.context, width, height)
	if err != nil {
		return err
	}
	b.context.Swapchain = sc

	if err := b.createCommandBuffers(); err != nil {
		return err
	}
	if err := b.createSyncObjects(); err != nil {
		return err
	}
	if err := b.createFrameResources(); err != nil {
		return err
	}
	if err := b.createBuiltins(); err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (b *Backend) createCommandBuffers() error {
	count := b.context.Swapchain.ImageCount
	b.context.GraphicsCommandBuffers = make([]vk.CommandBuffer, count)
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        b.context.Device.GraphicsCommandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	}
	if res := vk.AllocateCommandBuffers(b.context.Device.LogicalDevice, &allocateInfo, b.context.GraphicsCommandBuffers); res != vk.Success {
		err := fmt.Errorf("failed to allocate graphics command buffers")
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (b *Backend) createSyncObjects() error {
	inFlight := int(b.context.Swapchain.MaxFramesInFlight)
	b.context.ImageAvailableSemaphores = make([]vk.Semaphore, inFlight)
	b.context.QueueCompleteSemaphores = make([]vk.Semaphore, inFlight)
	b.context.InFlightFences = make([]*VulkanFence, inFlight)

	for i := 0; i < inFlight; i++ {
		semaphoreCreateInfo := vk.SemaphoreCreateInfo{
			SType: vk.StructureTypeSemaphoreCreateInfo,
		}
		if res := vk.CreateSemaphore(b.context.Device.LogicalDevice, &semaphoreCreateInfo, b.context.Allocator, &b.context.ImageAvailableSemaphores[i]); res != vk.Success {
			return fmt.Errorf("failed to create image-available semaphore")
		}
		if res := vk.CreateSemaphore(b.context.Device.LogicalDevice, &semaphoreCreateInfo, b.context.Allocator, &b.context.QueueCompleteSemaphores[i]); res != vk.Success {
			return fmt.Errorf("failed to create queue-complete semaphore")
		}
		// Signaled so the first frame does not wait forever.
		f, err := NewFence(b.context, true)
		if err != nil {
			return err
		}
		b.context.InFlightFences[i] = f
	}

	b.context.ImagesInFlight = make([]*VulkanFence, b.context.Swapchain.ImageCount)
	return nil
}

func (b *Backend) createFrameResources() error {
	inFlight := int(b.context.Swapchain.MaxFramesInFlight)
	b.frames = make([]*frameResources, inFlight)
	for i := 0; i < inFlight; i++ {
		poolSizes := []vk.DescriptorPoolSize{
			{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 8192},
			{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 32768},
		}
		poolInfo := vk.DescriptorPoolCreateInfo{
			SType:         vk.StructureTypeDescriptorPoolCreateInfo,
			MaxSets:       8192,
			PoolSizeCount: uint32(len(poolSizes)),
			PPoolSizes:    poolSizes,
		}
		var pool vk.DescriptorPool
		if res := vk.CreateDescriptorPool(b.context.Device.LogicalDevice, &poolInfo, b.context.Allocator, &pool); res != vk.Success {
			return fmt.Errorf("failed to create descriptor pool: %s", VulkanResultString(res, true))
		}

		uniformRing, err := bufferCreate(b.context, uniformRingSize, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), true)
		if err != nil {
			return err
		}
		instanceRing, err := bufferCreate(b.context, instanceRingSize, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), true)
		if err != nil {
			return err
		}

		b.frames[i] = &frameResources{
			DescriptorPool: pool,
			UniformRing:    uniformRing,
			InstanceRing:   instanceRing,
		}
	}
	return nil
}

// createBuiltins builds the unit cube geometry, the fallback white texture
// bound to unused sampler slots, and the shared linear sampler.
func (b *Backend) createBuiltins() error {
	samplerInfo := vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        vk.FilterLinear,
		MinFilter:        vk.FilterLinear,
		MipmapMode:       vk.SamplerMipmapModeLinear,
		AddressModeU:     vk.SamplerAddressModeRepeat,
		AddressModeV:     vk.SamplerAddressModeRepeat,
		AddressModeW:     vk.SamplerAddressModeRepeat,
		AnisotropyEnable: vk.True,
		MaxAnisotropy:    8,
		MaxLod:           16,
	}
	if res := vk.CreateSampler(b.context.Device.LogicalDevice, &samplerInfo, b.context.Allocator, &b.sampler); res != vk.Success {
		return fmt.Errorf("failed to create sampler: %s", VulkanResultString(res, true))
	}

	white, err := imageCreate(b.context, gpu.TextureSpec{
		Name: "builtin_white", Width: 1, Height: 1, Format: gpu.FormatRGBA8,
	}, false)
	if err != nil {
		return err
	}
	if err := imageUpload(b.context, white, []byte{255, 255, 255, 255}, gpu.FormatRGBA8); err != nil {
		return err
	}
	b.whiteTexture = white

	vertices, indices := unitCubeGeometry()
	b.cubeVertexBuffer, err = bufferCreateDeviceLocal(b.context, vertices, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return err
	}
	b.cubeIndexBuffer, err = bufferCreateDeviceLocal(b.context, indices, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		return err
	}
	return nil
}

func (b *Backend) Shutdown() error {
	vk.DeviceWaitIdle(b.context.Device.LogicalDevice)

	for handle, prog := range b.programs {
		prog.destroy(b.context)
		delete(b.programs, handle)
	}
	for handle, fb := range b.framebuffers {
		fb.destroy(b.context)
		delete(b.framebuffers, handle)
	}
	for handle, img := range b.textures {
		img.Destroy(b.context)
		delete(b.textures, handle)
	}
	for handle, buf := range b.buffers {
		buf.Destroy(b.context)
		delete(b.buffers, handle)
	}

	if b.cubeVertexBuffer != nil {
		b.cubeVertexBuffer.Destroy(b.context)
	}
	if b.cubeIndexBuffer != nil {
		b.cubeIndexBuffer.Destroy(b.context)
	}
	if b.whiteTexture != nil {
		b.whiteTexture.Destroy(b.context)
	}
	if b.sampler != nil {
		vk.DestroySampler(b.context.Device.LogicalDevice, b.sampler, b.context.Allocator)
		b.sampler = nil
	}

	for _, frame := range b.frames {
		vk.DestroyDescriptorPool(b.context.Device.LogicalDevice, frame.DescriptorPool, b.context.Allocator)
		frame.UniformRing.Destroy(b.context)
		frame.InstanceRing.Destroy(b.context)
	}
	b.frames = nil

	for i := range b.context.InFlightFences {
		b.context.InFlightFences[i].FenceDestroy(b.context)
	}
	for _, s := range b.context.ImageAvailableSemaphores {
		vk.DestroySemaphore(b.context.Device.LogicalDevice, s, b.context.Allocator)
	}
	for _, s := range b.context.QueueCompleteSemaphores {
		vk.DestroySemaphore(b.context.Device.LogicalDevice, s, b.context.Allocator)
	}

	if len(b.context.GraphicsCommandBuffers) > 0 {
		vk.FreeCommandBuffers(
			b.context.Device.LogicalDevice,
			b.context.Device.GraphicsCommandPool,
			uint32(len(b.context.GraphicsCommandBuffers)),
			b.context.GraphicsCommandBuffers)
		b.context.GraphicsCommandBuffers = nil
	}

	b.context.Swapchain.SwapchainDestroy(b.context)
	DeviceDestroy(b.context)

	if b.context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(b.context.Instance, b.context.debugMessenger, b.context.Allocator)
	}
	vk.DestroySurface(b.context.Instance, b.context.Surface, b.context.Allocator)
	vk.DestroyInstance(b.context.Instance, b.context.Allocator)
	return nil
}

func (b *Backend) Resized(width, height uint32) error {
	b.context.FramebufferWidth = width
	b.context.FramebufferHeight = height
	b.context.RecreatingSwapchain = true
	return nil
}

func (b *Backend) BeginFrame() error {
	if b.context.RecreatingSwapchain {
		vk.DeviceWaitIdle(b.context.Device.LogicalDevice)
		sc, err := b.context.Swapchain.SwapchainRecreate(b.context, b.context.FramebufferWidth, b.context.FramebufferHeight)
		if err != nil {
			return err
		}
		b.context.Swapchain = sc
		b.context.RecreatingSwapchain = false
		return core.ErrSwapchainBooting
	}

	frame := b.context.CurrentFrame
	if !b.context.InFlightFences[frame].FenceWait(b.context, ^uint64(0)) {
		return core.ErrSwapchainBooting
	}

	imageIndex, ok := b.context.Swapchain.SwapchainAcquireNextImageIndex(
		b.context, ^uint64(0), b.context.ImageAvailableSemaphores[frame], nil)
	if !ok {
		return core.ErrSwapchainBooting
	}
	b.context.ImageIndex = imageIndex

	res := b.frames[frame]
	res.UniformOffset = 0
	res.InstanceOffset = 0
	if result := vk.ResetDescriptorPool(b.context.Device.LogicalDevice, res.DescriptorPool, 0); result != vk.Success {
		return fmt.Errorf("failed to reset descriptor pool: %s", VulkanResultString(result, true))
	}

	cmd := b.context.GraphicsCommandBuffers[imageIndex]
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if result := vk.BeginCommandBuffer(cmd, &beginInfo); result != vk.Success {
		return fmt.Errorf("failed to begin command buffer: %s", VulkanResultString(result, true))
	}

	b.cur = frameCursor{cmd: cmd, recording: true}
	b.cur.state = gpu.PipelineState{ColorWrite: true, Blend: gpu.BlendAlpha, DepthTest: true, DepthFunc: gpu.CompareLEqual, DepthWrite: true}
	return nil
}

func (b *Backend) EndFrame() error {
	if !b.cur.recording {
		return nil
	}
	b.endRenderPass()

	cmd := b.cur.cmd
	if res := vk.EndCommandBuffer(cmd); res != vk.Success {
		return fmt.Errorf("failed to end command buffer: %s", VulkanResultString(res, true))
	}
	b.cur.recording = false

	frame := b.context.CurrentFrame

	// Wait until any previous frame using this swapchain image is done.
	if b.context.ImagesInFlight[b.context.ImageIndex] != nil {
		b.context.ImagesInFlight[b.context.ImageIndex].FenceWait(b.context, ^uint64(0))
	}
	b.context.ImagesInFlight[b.context.ImageIndex] = b.context.InFlightFences[frame]

	if err := b.context.InFlightFences[frame].FenceReset(b.context); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd},
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{b.context.ImageAvailableSemaphores[frame]},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{b.context.QueueCompleteSemaphores[frame]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
	}
	if res := vk.QueueSubmit(b.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, b.context.InFlightFences[frame].Handle); res != vk.Success {
		err := fmt.Errorf("failed to submit frame: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}

	b.context.Swapchain.SwapchainPresent(
		b.context,
		b.context.Device.PresentQueue,
		b.context.QueueCompleteSemaphores[frame],
		b.context.ImageIndex)

	b.FrameNumber++
	return nil
}

func validationLayerAvailable() bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success || count == 0 {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return false
	}
	for i := range layers {
		layers[i].Deref()
		end := FindFirstZeroInByteArray(layers[i].LayerName[:])
		if string(layers[i].LayerName[:end]) == "VK_LAYER_KHRONOS_validation" {
			return true
		}
	}
	return false
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint64, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] %s", pLayerPrefix, pMessage)
	default:
		core.LogWarn("[%s] %s", pLayerPrefix, pMessage)
	}
	return vk.False
}
