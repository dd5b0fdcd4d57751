package vulkan

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/designerMichael/angle/engine/core"
	"github.com/designerMichael/angle/engine/math"
)

// TaskProcessor owns the in-flight list, the garbage queue, and the primary
// command pool, and performs every GPU-queue interaction. All of its methods
// run on the worker (or, in synchronous mode, on the caller thread standing
// in for the worker).
type TaskProcessor struct {
	renderer Renderer

	primaryCommandPool *PrimaryCommandPool

	// inFlightMutex protects the in-flight list and garbage queue. It is
	// held across fence status queries only, never across blocking waits.
	inFlightMutex    sync.Mutex
	inFlightCommands []*CommandBatch
	garbageQueue     GarbageQueue

	swapchainStatus *swapchainStatus

	inFlightLimit      int
	fenceWaitTimeoutNs uint64
}

func newTaskProcessor(renderer Renderer, inFlightLimit int, fenceWaitTimeoutNs uint64) *TaskProcessor {
	return &TaskProcessor{
		renderer:           renderer,
		swapchainStatus:    newSwapchainStatus(),
		inFlightLimit:      inFlightLimit,
		fenceWaitTimeoutNs: fenceWaitTimeoutNs,
	}
}

// maxFenceWaitNs bounds a blocking fence wait by both the configured timeout
// and the renderer's hard limit.
func (tp *TaskProcessor) maxFenceWaitNs() uint64 {
	rendererMax := tp.renderer.MaxFenceWaitTimeoutNs()
	if tp.fenceWaitTimeoutNs == 0 {
		return rendererMax
	}
	return math.Min(tp.fenceWaitTimeoutNs, rendererMax)
}

func (tp *TaskProcessor) init() error {
	pool, err := NewPrimaryCommandPool(tp.renderer)
	if err != nil {
		return err
	}
	tp.primaryCommandPool = pool
	return nil
}

func (tp *TaskProcessor) destroy() {
	tp.inFlightMutex.Lock()
	defer tp.inFlightMutex.Unlock()

	if len(tp.inFlightCommands) != 0 {
		core.LogWarn("destroying task processor with %d submissions still in flight", len(tp.inFlightCommands))
	}
	if !tp.garbageQueue.Empty() {
		// Device loss can leave entries whose serials never complete.
		core.LogWarn("destroying task processor with %d garbage entries pending, reclaiming now", tp.garbageQueue.Len())
		tp.garbageQueue.DestroyCompleted(SerialInfinite)
	}
	if tp.primaryCommandPool != nil {
		tp.primaryCommandPool.Destroy()
		tp.primaryCommandPool = nil
	}
}

func (tp *TaskProcessor) allocatePrimaryCommandBuffer() (*PrimaryCommandBuffer, error) {
	return tp.primaryCommandPool.Allocate()
}

func (tp *TaskProcessor) lockAndCheckCompletedCommands() error {
	tp.inFlightMutex.Lock()
	defer tp.inFlightMutex.Unlock()
	return tp.checkCompletedCommandsLocked()
}

// checkCompletedCommandsLocked walks the in-flight list from the head,
// reclaiming every batch whose fence has signaled and every garbage entry
// whose serial has completed. Requires inFlightMutex.
func (tp *TaskProcessor) checkCompletedCommandsLocked() error {
	finishedCount := 0
	var sweepErr error

	for _, batch := range tp.inFlightCommands {
		result := batch.Fence.Get().Status()
		if result == vk.NotReady {
			break
		}
		if result != vk.Success {
			sweepErr = NewResultError("fence status query", result)
			break
		}

		tp.renderer.OnCompletedSerial(batch.Serial)

		batch.Fence.Release()
		batch.CommandPool.Destroy()
		if err := tp.primaryCommandPool.Collect(batch.PrimaryCommands); err != nil {
			sweepErr = err
			break
		}
		finishedCount++
	}

	if finishedCount > 0 {
		tp.inFlightCommands = tp.inFlightCommands[finishedCount:]
	}
	if sweepErr != nil {
		return sweepErr
	}

	lastCompleted := tp.renderer.LastCompletedSerial()
	tp.garbageQueue.DestroyCompleted(lastCompleted)

	return nil
}

// finishToSerial blocks until the first batch with serial >= serial has
// signaled, then reclaims everything that completed. Waits happen with the
// in-flight mutex released.
func (tp *TaskProcessor) finishToSerial(serial Serial) error {
	timeout := tp.maxFenceWaitNs()

	tp.inFlightMutex.Lock()
	if len(tp.inFlightCommands) == 0 {
		// No outstanding work, nothing to wait for.
		tp.inFlightMutex.Unlock()
		return nil
	}

	// Find the first batch with serial equal to or bigger than the given
	// serial (batch serials are unique and sorted).
	batchIndex := len(tp.inFlightCommands) - 1
	for i, batch := range tp.inFlightCommands {
		if batch.Serial >= serial {
			batchIndex = i
			break
		}
	}
	fence := tp.inFlightCommands[batchIndex].Fence
	tp.inFlightMutex.Unlock()

	clock := core.NewClock()
	clock.Start()
	result := fence.Get().Wait(timeout)
	clock.Update()

	switch result {
	case vk.Success:
		core.LogDebug("finish to serial waited %.2fms", clock.ElapsedMs())
	case vk.Timeout:
		// A wait this long is not recoverable; treat it like a lost device.
		core.LogError("fence wait timed out after %.2fms", clock.ElapsedMs())
		return NewResultError("fence wait", vk.ErrorDeviceLost)
	default:
		return NewResultError("fence wait", result)
	}

	// Clean up finished batches.
	return tp.lockAndCheckCompletedCommands()
}

// submitFrame submits the primary buffer and appends the resulting batch to
// the in-flight list. The worker's command pool moves into the batch; a
// fresh transient pool is created in its place.
func (tp *TaskProcessor) submitFrame(queue Queue, submitInfo *SubmitInfo, sharedFence SharedFence, garbage GarbageList, commandPool *CommandPool, primary *PrimaryCommandBuffer, serial Serial) error {
	batch := &CommandBatch{
		Fence:  sharedFence.Copy(),
		Serial: serial,
	}

	if err := tp.queueSubmit(queue, submitInfo, batch.Fence.Get()); err != nil {
		batch.Fence.Release()
		return err
	}
	primary.UpdateSubmitted()

	if len(garbage) > 0 {
		tp.inFlightMutex.Lock()
		tp.garbageQueue.Add(garbage, serial)
		tp.inFlightMutex.Unlock()
	}

	// Store the primary and the command pool used for this frame's
	// secondaries in the batch, then recreate the worker's pool.
	batch.PrimaryCommands = primary
	batch.CommandPool = *commandPool
	freshPool, err := tp.renderer.CreateCommandPool(true)
	if err != nil {
		return err
	}
	*commandPool = freshPool

	tp.inFlightMutex.Lock()
	tp.inFlightCommands = append(tp.inFlightCommands, batch)

	if err := tp.checkCompletedCommandsLocked(); err != nil {
		tp.inFlightMutex.Unlock()
		return err
	}

	// Throttle the producer so the in-flight list stays bounded. Important
	// for off-screen scenarios that never block in present.
	if len(tp.inFlightCommands) > tp.inFlightLimit {
		finishIndex := math.Clamp(len(tp.inFlightCommands)-tp.inFlightLimit, 0, len(tp.inFlightCommands)-1)
		finishSerial := tp.inFlightCommands[finishIndex].Serial
		tp.inFlightMutex.Unlock()
		return tp.finishToSerial(finishSerial)
	}
	tp.inFlightMutex.Unlock()

	return nil
}

// queueSubmit performs the device submit. All queue accesses are serialized
// because they happen only on the worker.
func (tp *TaskProcessor) queueSubmit(queue Queue, submitInfo *SubmitInfo, fence Fence) error {
	if result := queue.Submit(submitInfo, fence); result != vk.Success {
		err := NewResultError("queue submit", result)
		core.LogError(err.Error())
		return err
	}

	// Now that work has been submitted, clean up the renderer's garbage.
	tp.renderer.CleanupGarbage()
	return nil
}

// present hands the image to the window system and records the result for
// getLastAndClearPresentResult readers.
func (tp *TaskProcessor) present(queue Queue, info *PresentInfo) vk.Result {
	tp.swapchainStatus.mutex.Lock()
	defer tp.swapchainStatus.mutex.Unlock()

	result := queue.Present(info)
	tp.swapchainStatus.set(info.Swapchain, result)
	return result
}

func (tp *TaskProcessor) getLastAndClearPresentResult(swapchain SwapchainHandle) vk.Result {
	return tp.swapchainStatus.getLastAndClear(swapchain)
}

// lastSubmittedFence returns a new reference to the fence of the newest
// in-flight batch, or an invalid handle when nothing is in flight.
func (tp *TaskProcessor) lastSubmittedFence() SharedFence {
	tp.inFlightMutex.Lock()
	defer tp.inFlightMutex.Unlock()

	if len(tp.inFlightCommands) == 0 {
		return SharedFence{}
	}
	return tp.inFlightCommands[len(tp.inFlightCommands)-1].Fence.Copy()
}

func (tp *TaskProcessor) inFlightLen() int {
	tp.inFlightMutex.Lock()
	defer tp.inFlightMutex.Unlock()
	return len(tp.inFlightCommands)
}

// handleDeviceLost waits for every in-flight fence and destroys the pinned
// resources without recycling them.
func (tp *TaskProcessor) handleDeviceLost() {
	timeout := tp.maxFenceWaitNs()

	tp.inFlightMutex.Lock()
	defer tp.inFlightMutex.Unlock()

	for _, batch := range tp.inFlightCommands {
		// The fence must be signaled before its resources can be destroyed.
		status := batch.Fence.Get().Wait(timeout)
		if status != vk.Success && status != vk.ErrorDeviceLost {
			// If the wait times out it is probably not possible to recover.
			err := fmt.Errorf("unexpected fence state %s while handling a lost device", VulkanResultString(status, false))
			core.LogError(err.Error())
		}

		batch.Destroy()
	}
	tp.inFlightCommands = nil
}
