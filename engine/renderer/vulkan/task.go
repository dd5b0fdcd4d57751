package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/designerMichael/angle/engine/core"
)

// Task is one unit of work consumed by the worker. Each variant carries
// exactly the payload its handler needs. Tasks are owned by the queue while
// enqueued and by the worker while executing.
type Task interface {
	isTask()
}

// ProcessCommandsTask flushes a producer-recorded secondary buffer into the
// current primary.
type ProcessCommandsTask struct {
	Commands *SecondaryCommandBuffer
}

// FlushAndQueueSubmitTask ends the current primary and submits it. Serial is
// assigned when the task is enqueued.
type FlushAndQueueSubmitTask struct {
	WaitSemaphores  []vk.Semaphore
	WaitStageMasks  []vk.PipelineStageFlags
	SignalSemaphore *vk.Semaphore
	Priority        ContextPriority
	Garbage         GarbageList
	ResourceUses    *ResourceUseList
	Serial          Serial
}

// OneOffQueueSubmitTask submits a caller-supplied command buffer with a
// caller-supplied fence, with no batch bookkeeping.
type OneOffQueueSubmitTask struct {
	Commands CommandBuffer
	Fence    Fence
	Priority ContextPriority
	Serial   Serial
}

type PresentTask struct {
	Priority ContextPriority
	Info     PresentInfo
}

type FinishToSerialTask struct {
	// Note: sometimes the serial is not valid and that's okay, the finish
	// will early exit when there is nothing in flight.
	Serial Serial
}

type CheckCompletedCommandsTask struct{}

type ExitTask struct{}

func (*ProcessCommandsTask) isTask()        {}
func (*FlushAndQueueSubmitTask) isTask()    {}
func (*OneOffQueueSubmitTask) isTask()      {}
func (*PresentTask) isTask()                {}
func (*FinishToSerialTask) isTask()         {}
func (*CheckCompletedCommandsTask) isTask() {}
func (*ExitTask) isTask()                   {}

func NewProcessCommandsTask(commands *SecondaryCommandBuffer) *ProcessCommandsTask {
	return &ProcessCommandsTask{Commands: commands}
}

func NewFlushAndQueueSubmitTask(waitSemaphores []vk.Semaphore, waitStageMasks []vk.PipelineStageFlags, signalSemaphore *vk.Semaphore, priority ContextPriority, garbage GarbageList, resourceUses *ResourceUseList) *FlushAndQueueSubmitTask {
	return &FlushAndQueueSubmitTask{
		WaitSemaphores:  waitSemaphores,
		WaitStageMasks:  waitStageMasks,
		SignalSemaphore: signalSemaphore,
		Priority:        priority,
		Garbage:         garbage,
		ResourceUses:    resourceUses,
	}
}

func NewOneOffQueueSubmitTask(commands CommandBuffer, priority ContextPriority, fence Fence) *OneOffQueueSubmitTask {
	return &OneOffQueueSubmitTask{
		Commands: commands,
		Fence:    fence,
		Priority: priority,
	}
}

func NewFinishToSerialTask(serial Serial) *FinishToSerialTask {
	return &FinishToSerialTask{Serial: serial}
}

func NewCheckCompletedCommandsTask() *CheckCompletedCommandsTask {
	return &CheckCompletedCommandsTask{}
}

func NewExitTask() *ExitTask {
	return &ExitTask{}
}

// NewPresentTask deep-copies the present descriptor; the caller's storage is
// not guaranteed to outlive the enqueue.
func NewPresentTask(priority ContextPriority, info *PresentInfo) *PresentTask {
	task := &PresentTask{
		Priority: priority,
	}
	task.copyPresentInfo(info)
	return task
}

func (t *PresentTask) copyPresentInfo(info *PresentInfo) {
	t.Info.Swapchain = info.Swapchain
	t.Info.ImageIndex = info.ImageIndex

	if len(info.WaitSemaphores) > 0 {
		t.Info.WaitSemaphores = make([]vk.Semaphore, len(info.WaitSemaphores))
		copy(t.Info.WaitSemaphores, info.WaitSemaphores)
	}

	if info.Regions != nil {
		t.Info.Regions = copyPresentRegions(info.Regions)
	}

	for _, entry := range info.Chain {
		switch chained := entry.(type) {
		case *PresentRegions:
			t.Info.Regions = copyPresentRegions(chained)
		default:
			core.LogFatal("unknown entry type %T in present info chain", entry)
		}
	}
}

func copyPresentRegions(regions *PresentRegions) *PresentRegions {
	out := &PresentRegions{}
	if len(regions.Rectangles) > 0 {
		out.Rectangles = make([]PresentRect, len(regions.Rectangles))
		copy(out.Rectangles, regions.Rectangles)
	}
	return out
}
