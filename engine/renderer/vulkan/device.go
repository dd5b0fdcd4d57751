package vulkan

import (
	vk "github.com/goki/vulkan"
)

// ContextPriority selects which GPU queue a submission lands on. A single
// queue per priority class is assumed.
type ContextPriority int

const (
	CONTEXT_PRIORITY_LOW ContextPriority = iota
	CONTEXT_PRIORITY_MEDIUM
	CONTEXT_PRIORITY_HIGH
)

// SwapchainHandle identifies a presentation target. The surface layer that
// owns the real swapchain maps handles to device objects.
type SwapchainHandle uint64

// Fence is a host-visible completion signal for one queue submission.
type Fence interface {
	// Status returns vk.Success, vk.NotReady, or an error code. It never
	// blocks.
	Status() vk.Result
	// Wait blocks until the fence signals or the timeout elapses.
	Wait(timeoutNs uint64) vk.Result
	Reset() error
	Destroy()
}

// CommandBuffer is a recorded or recordable device command buffer.
type CommandBuffer interface {
	Begin() error
	End() error
	// ExecuteCommands records the given secondary-level buffer into this
	// primary-level buffer.
	ExecuteCommands(secondary CommandBuffer) error
	Reset() error
	Destroy()
}

// CommandPool allocates command buffers and owns their device memory.
type CommandPool interface {
	AllocateBuffer(primary bool) (CommandBuffer, error)
	FreeBuffer(buffer CommandBuffer)
	Destroy()
}

// Queue is a single GPU queue. All calls are serialized through the worker;
// a second user requires its own locking.
type Queue interface {
	Submit(info *SubmitInfo, fence Fence) vk.Result
	Present(info *PresentInfo) vk.Result
}

// Renderer is the device owner the processor is constructed against. Fence
// pooling, serial bookkeeping, and garbage collection beyond the processor's
// own queue live behind it.
type Renderer interface {
	Queue(priority ContextPriority) Queue
	CreateCommandPool(transient bool) (CommandPool, error)
	// NextSubmitFence returns a fresh, unsignaled shared fence. The caller
	// owns one reference.
	NextSubmitFence() (SharedFence, error)
	// OnCompletedSerial tells the renderer a submission has finished on the
	// GPU.
	OnCompletedSerial(serial Serial)
	LastCompletedSerial() Serial
	// CleanupGarbage runs the renderer's non-blocking garbage sweep.
	CleanupGarbage()
	MaxFenceWaitTimeoutNs() uint64
}

// SubmitInfo describes one queue submission.
type SubmitInfo struct {
	CommandBuffers   []CommandBuffer
	WaitSemaphores   []vk.Semaphore
	WaitStageMasks   []vk.PipelineStageFlags
	SignalSemaphores []vk.Semaphore
}

// initializeSubmitInfo fills info for submitting the primary buffer. Missing
// stage masks are padded with ALL_COMMANDS, one per wait semaphore.
func initializeSubmitInfo(info *SubmitInfo, primary *PrimaryCommandBuffer, waitSemaphores []vk.Semaphore, waitStageMasks []vk.PipelineStageFlags, signalSemaphore *vk.Semaphore) {
	if primary.Valid() {
		info.CommandBuffers = []CommandBuffer{primary.Buffer}
	}

	for len(waitStageMasks) < len(waitSemaphores) {
		waitStageMasks = append(waitStageMasks, vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit))
	}

	info.WaitSemaphores = waitSemaphores
	info.WaitStageMasks = waitStageMasks

	if signalSemaphore != nil {
		info.SignalSemaphores = []vk.Semaphore{*signalSemaphore}
	}
}

// PresentRect is one dirty rectangle of an incremental present.
type PresentRect struct {
	X      int32
	Y      int32
	Width  uint32
	Height uint32
	Layer  uint32
}

// PresentRegions is the recognized present-info chain entry carrying the
// dirty rectangles for an incremental present.
type PresentRegions struct {
	Rectangles []PresentRect
}

// PresentInfo describes handing one swapchain image back to the window
// system. Exactly one swapchain per present.
type PresentInfo struct {
	Swapchain      SwapchainHandle
	ImageIndex     uint32
	WaitSemaphores []vk.Semaphore
	Regions        *PresentRegions
	// Chain holds extension entries supplied by the caller. Recognized
	// entries are deep-copied into the task; unknown entries are fatal.
	Chain []interface{}
}
