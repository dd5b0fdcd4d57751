package vulkan

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/designerMichael/angle/engine/core"
)

// DeviceContext carries the device state the adapter types need to issue
// Vulkan calls.
type DeviceContext struct {
	LogicalDevice    vk.Device
	Allocator        *vk.AllocationCallbacks
	QueueFamilyIndex uint32
}

// VulkanFence implements Fence over a device fence.
type VulkanFence struct {
	context    *DeviceContext
	Handle     vk.Fence
	IsSignaled bool
}

func NewVulkanFence(context *DeviceContext, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		context: context,
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if res := vk.CreateFence(context.LogicalDevice, &fenceCreateInfo, context.Allocator, &pFence); res != vk.Success {
		err := fmt.Errorf("failed to create fence")
		core.LogError(err.Error())
		return nil, err
	}
	fence.Handle = pFence
	return fence, nil
}

func (vf *VulkanFence) Status() vk.Result {
	if vf.IsSignaled {
		return vk.Success
	}
	result := vk.GetFenceStatus(vf.context.LogicalDevice, vf.Handle)
	if result == vk.Success {
		vf.IsSignaled = true
	}
	return result
}

func (vf *VulkanFence) Wait(timeoutNs uint64) vk.Result {
	if vf.IsSignaled {
		// If already signaled, do not wait.
		return vk.Success
	}

	result := vk.WaitForFences(vf.context.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
	case vk.ErrorDeviceLost:
		core.LogError("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
	case vk.ErrorOutOfHostMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_HOST_MEMORY.")
	case vk.ErrorOutOfDeviceMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_DEVICE_MEMORY.")
	default:
		core.LogError("vk_fence_wait - An unknown error has occurred.")
	}
	return result
}

func (vf *VulkanFence) Reset() error {
	if vf.IsSignaled {
		if res := vk.ResetFences(vf.context.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
			err := fmt.Errorf("failed to reset fence")
			core.LogError(err.Error())
			return err
		}
		vf.IsSignaled = false
	}
	return nil
}

func (vf *VulkanFence) Destroy() {
	if vf.Handle != nil {
		vk.DestroyFence(vf.context.LogicalDevice, vf.Handle, vf.context.Allocator)
		vf.Handle = nil
	}
	vf.IsSignaled = false
}

// VulkanCommandPool implements CommandPool over a device command pool.
type VulkanCommandPool struct {
	context *DeviceContext
	Handle  vk.CommandPool
}

func NewVulkanCommandPool(context *DeviceContext, transient bool) (*VulkanCommandPool, error) {
	flags := vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit)
	if transient {
		flags |= vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit)
	}

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            flags,
		QueueFamilyIndex: context.QueueFamilyIndex,
	}

	var pool vk.CommandPool
	if res := vk.CreateCommandPool(context.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		err := fmt.Errorf("failed to create command pool with error `%s`", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanCommandPool{context: context, Handle: pool}, nil
}

func (vp *VulkanCommandPool) AllocateBuffer(primary bool) (CommandBuffer, error) {
	level := vk.CommandBufferLevelSecondary
	if primary {
		level = vk.CommandBufferLevelPrimary
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        vp.Handle,
		CommandBufferCount: 1,
		Level:              level,
	}

	handles := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(vp.context.LogicalDevice, &allocateInfo, handles); res != vk.Success {
		err := fmt.Errorf("failed to allocate command buffer")
		core.LogError(err.Error())
		return nil, err
	}

	return &VulkanCommandBuffer{
		context: vp.context,
		pool:    vp.Handle,
		Handle:  handles[0],
	}, nil
}

func (vp *VulkanCommandPool) FreeBuffer(buffer CommandBuffer) {
	vcb, ok := buffer.(*VulkanCommandBuffer)
	if !ok || vcb.Handle == nil {
		return
	}
	vk.FreeCommandBuffers(vp.context.LogicalDevice, vp.Handle, 1, []vk.CommandBuffer{vcb.Handle})
	vcb.Handle = nil
}

func (vp *VulkanCommandPool) Destroy() {
	if vp.Handle != nil {
		vk.DestroyCommandPool(vp.context.LogicalDevice, vp.Handle, vp.context.Allocator)
		vp.Handle = nil
	}
}

// VulkanCommandBuffer implements CommandBuffer over a device command buffer.
type VulkanCommandBuffer struct {
	context *DeviceContext
	pool    vk.CommandPool
	Handle  vk.CommandBuffer
}

func (v *VulkanCommandBuffer) Begin() error {
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}

	if res := vk.BeginCommandBuffer(v.Handle, beginInfo); res != vk.Success {
		err := fmt.Errorf("failed to begin command buffer")
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		err := fmt.Errorf("failed to end command buffer")
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (v *VulkanCommandBuffer) ExecuteCommands(secondary CommandBuffer) error {
	vcb, ok := secondary.(*VulkanCommandBuffer)
	if !ok {
		err := fmt.Errorf("cannot execute a non-device secondary command buffer")
		core.LogError(err.Error())
		return err
	}
	vk.CmdExecuteCommands(v.Handle, 1, []vk.CommandBuffer{vcb.Handle})
	return nil
}

func (v *VulkanCommandBuffer) Reset() error {
	if res := vk.ResetCommandBuffer(v.Handle, 0); res != vk.Success {
		err := fmt.Errorf("failed to reset command buffer")
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (v *VulkanCommandBuffer) Destroy() {
	if v.Handle == nil {
		return
	}
	vk.FreeCommandBuffers(v.context.LogicalDevice, v.pool, 1, []vk.CommandBuffer{v.Handle})
	v.Handle = nil
}

// VulkanQueue implements Queue over a device queue. The surface layer
// registers each swapchain it creates so present descriptors can reference
// them by handle.
type VulkanQueue struct {
	context *DeviceContext
	Handle  vk.Queue

	mutex      sync.Mutex
	swapchains map[SwapchainHandle]vk.Swapchain
}

func NewVulkanQueue(context *DeviceContext, queue vk.Queue) *VulkanQueue {
	return &VulkanQueue{
		context:    context,
		Handle:     queue,
		swapchains: make(map[SwapchainHandle]vk.Swapchain),
	}
}

func (vq *VulkanQueue) RegisterSwapchain(handle SwapchainHandle, swapchain vk.Swapchain) {
	vq.mutex.Lock()
	defer vq.mutex.Unlock()
	vq.swapchains[handle] = swapchain
}

func (vq *VulkanQueue) UnregisterSwapchain(handle SwapchainHandle) {
	vq.mutex.Lock()
	defer vq.mutex.Unlock()
	delete(vq.swapchains, handle)
}

func (vq *VulkanQueue) Submit(info *SubmitInfo, fence Fence) vk.Result {
	submitInfo := vk.SubmitInfo{
		SType: vk.StructureTypeSubmitInfo,
	}

	commandBuffers := make([]vk.CommandBuffer, 0, len(info.CommandBuffers))
	for _, buffer := range info.CommandBuffers {
		vcb, ok := buffer.(*VulkanCommandBuffer)
		if !ok {
			core.LogError("cannot submit a non-device command buffer")
			return vk.ErrorUnknown
		}
		commandBuffers = append(commandBuffers, vcb.Handle)
	}
	submitInfo.CommandBufferCount = uint32(len(commandBuffers))
	submitInfo.PCommandBuffers = commandBuffers

	submitInfo.WaitSemaphoreCount = uint32(len(info.WaitSemaphores))
	submitInfo.PWaitSemaphores = info.WaitSemaphores
	submitInfo.PWaitDstStageMask = info.WaitStageMasks

	submitInfo.SignalSemaphoreCount = uint32(len(info.SignalSemaphores))
	submitInfo.PSignalSemaphores = info.SignalSemaphores

	var fenceHandle vk.Fence
	if vf, ok := fence.(*VulkanFence); ok {
		fenceHandle = vf.Handle
	}

	return vk.QueueSubmit(vq.Handle, 1, []vk.SubmitInfo{submitInfo}, fenceHandle)
}

func (vq *VulkanQueue) Present(info *PresentInfo) vk.Result {
	vq.mutex.Lock()
	swapchain, ok := vq.swapchains[info.Swapchain]
	vq.mutex.Unlock()
	if !ok {
		core.LogError("present references an unregistered swapchain %d", info.Swapchain)
		return vk.ErrorOutOfDate
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(info.WaitSemaphores)),
		PWaitSemaphores:    info.WaitSemaphores,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain},
		PImageIndices:      []uint32{info.ImageIndex},
	}

	return vk.QueuePresent(vq.Handle, &presentInfo)
}
