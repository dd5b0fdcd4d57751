package vulkan

import (
	"errors"
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/designerMichael/angle/engine/config"
	"github.com/designerMichael/angle/engine/core"
)

// ErrorHandler receives worker-side errors drained by WaitForWorkComplete.
type ErrorHandler interface {
	HandleError(err Error)
}

// CommandProcessor serializes command buffer recording, queue submission,
// presentation, and fence-based reclamation onto a single worker. Producers
// enqueue typed tasks; the worker dispatches them strictly in enqueue order.
type CommandProcessor struct {
	id       uuid.UUID
	renderer Renderer
	async    bool

	taskProcessor *TaskProcessor

	// workerMutex protects the task FIFO and the idle flag. It is never
	// held across GPU calls by the worker.
	workerMutex      sync.Mutex
	workAvailable    *sync.Cond
	workerIdle       *sync.Cond
	tasks            []Task
	workerThreadIdle bool
	workerJoin       sync.WaitGroup

	// serialMutex guards the two serial variables. Serial assignment and
	// task insertion happen under workerMutex so that the task order and
	// the serial order can never diverge.
	serialMutex         sync.Mutex
	serialFactory       SerialFactory
	lastSubmittedSerial Serial
	currentQueueSerial  Serial

	errors errorQueue

	// Worker-owned recording state.
	primaryCommandBuffer *PrimaryCommandBuffer
	commandPool          CommandPool
}

// NewCommandProcessor binds a processor to a renderer. With asynchronous
// command processing enabled the worker starts immediately; otherwise tasks
// run inline on the caller.
func NewCommandProcessor(renderer Renderer, cfg *config.ProcessorConfig) (*CommandProcessor, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	cp := &CommandProcessor{
		id:       uuid.New(),
		renderer: renderer,
		async:    cfg.AsynchronousCommandProcessing,
	}
	cp.workAvailable = sync.NewCond(&cp.workerMutex)
	cp.workerIdle = sync.NewCond(&cp.workerMutex)
	cp.taskProcessor = newTaskProcessor(renderer, cfg.InFlightCommandsLimit, cfg.FenceWaitTimeoutNs)

	cp.lastSubmittedSerial = cp.serialFactory.Generate()
	cp.currentQueueSerial = cp.serialFactory.Generate()
	cp.errors.clear()

	if cp.async {
		cp.workerJoin.Add(1)
		go cp.processTasks()
	} else {
		if err := cp.initTaskProcessor(); err != nil {
			return nil, err
		}
	}

	core.LogDebug("command processor %s created (async=%t)", cp.id.String(), cp.async)
	return cp, nil
}

// initTaskProcessor opens the primary pool and begins the first primary
// buffer. Runs once before any task is handled.
func (cp *CommandProcessor) initTaskProcessor() error {
	if err := cp.taskProcessor.init(); err != nil {
		return err
	}

	primary, err := cp.taskProcessor.allocatePrimaryCommandBuffer()
	if err != nil {
		return err
	}
	if err := primary.Begin(); err != nil {
		return err
	}
	cp.primaryCommandBuffer = primary

	pool, err := cp.renderer.CreateCommandPool(true)
	if err != nil {
		return err
	}
	cp.commandPool = pool
	return nil
}

// QueueCommand hands a task to the worker. Submission tasks are stamped with
// the current queue serial here, under the worker mutex, so that the serial
// order matches the queue order even with concurrent producers.
func (cp *CommandProcessor) QueueCommand(task Task) {
	cp.workerMutex.Lock()
	defer cp.workerMutex.Unlock()

	switch submit := task.(type) {
	case *FlushAndQueueSubmitTask:
		cp.serialMutex.Lock()
		queueSerial := cp.currentQueueSerial
		submit.Serial = queueSerial
		cp.lastSubmittedSerial = cp.currentQueueSerial
		cp.currentQueueSerial = cp.serialFactory.Generate()

		// Everything the GPU will touch is now pinned to this serial.
		submit.ResourceUses.ReleaseAndUpdateSerials(queueSerial)
		cp.serialMutex.Unlock()
	case *OneOffQueueSubmitTask:
		cp.serialMutex.Lock()
		submit.Serial = cp.currentQueueSerial
		cp.lastSubmittedSerial = cp.currentQueueSerial
		cp.currentQueueSerial = cp.serialFactory.Generate()
		cp.serialMutex.Unlock()
	}

	if cp.async {
		cp.tasks = append(cp.tasks, task)
		cp.workAvailable.Signal()
		return
	}

	if err := cp.processTask(task); err != nil {
		cp.handleWorkerError(err)
	}
}

// processTasks is the worker loop. It owns all GPU-queue interaction and
// executes tasks strictly in enqueue order.
func (cp *CommandProcessor) processTasks() {
	defer cp.workerJoin.Done()

	if err := cp.initTaskProcessor(); err != nil {
		core.LogFatal("command processor worker initialization failed: %s", err.Error())
		return
	}

	for {
		cp.workerMutex.Lock()
		for len(cp.tasks) == 0 {
			cp.workerThreadIdle = true
			cp.workerIdle.Broadcast()
			// Only wake when notified and the task queue is not empty.
			cp.workAvailable.Wait()
		}
		cp.workerThreadIdle = false
		task := cp.tasks[0]
		cp.tasks = cp.tasks[1:]
		cp.workerMutex.Unlock()

		if err := cp.processTask(task); err != nil {
			cp.handleWorkerError(err)
		}

		if _, exit := task.(*ExitTask); exit {
			cp.workerMutex.Lock()
			cp.workerThreadIdle = true
			cp.workerIdle.Broadcast()
			cp.workerMutex.Unlock()
			return
		}
	}
}

func (cp *CommandProcessor) processTask(task Task) error {
	switch t := task.(type) {
	case *ExitTask:
		if err := cp.taskProcessor.finishToSerial(SerialInfinite); err != nil {
			return err
		}
		// Shutting down, so clean up.
		cp.taskProcessor.destroy()
		if cp.commandPool != nil {
			cp.commandPool.Destroy()
			cp.commandPool = nil
		}
		cp.primaryCommandBuffer.Destroy()
		cp.primaryCommandBuffer = nil

	case *FlushAndQueueSubmitTask:
		if err := cp.primaryCommandBuffer.End(); err != nil {
			return err
		}

		submitInfo := &SubmitInfo{}
		initializeSubmitInfo(submitInfo, cp.primaryCommandBuffer, t.WaitSemaphores, t.WaitStageMasks, t.SignalSemaphore)

		// Other holders of this fence must see the work submitted before
		// they wait on it, so a fresh one is acquired for every submit.
		fence, err := cp.renderer.NextSubmitFence()
		if err != nil {
			return err
		}

		err = cp.taskProcessor.submitFrame(
			cp.renderer.Queue(t.Priority), submitInfo, fence,
			t.Garbage, &cp.commandPool, cp.primaryCommandBuffer, t.Serial)

		// The local reference is no longer needed; the batch holds its own.
		fence.Release()
		if err != nil {
			return err
		}
		t.Garbage = nil

		primary, err := cp.taskProcessor.allocatePrimaryCommandBuffer()
		if err != nil {
			return err
		}
		if err := primary.Begin(); err != nil {
			return err
		}
		cp.primaryCommandBuffer = primary

	case *OneOffQueueSubmitTask:
		submitInfo := &SubmitInfo{}
		if t.Commands != nil {
			submitInfo.CommandBuffers = []CommandBuffer{t.Commands}
		}
		if err := cp.taskProcessor.queueSubmit(cp.renderer.Queue(t.Priority), submitInfo, t.Fence); err != nil {
			return err
		}
		return cp.taskProcessor.lockAndCheckCompletedCommands()

	case *FinishToSerialTask:
		return cp.taskProcessor.finishToSerial(t.Serial)

	case *PresentTask:
		result := cp.taskProcessor.present(cp.renderer.Queue(t.Priority), &t.Info)
		if result == vk.ErrorOutOfDate || result == vk.Suboptimal {
			// Not fatal; the surface layer recreates the swapchain.
		} else if result != vk.Success {
			// Keep the worker draining; present failures are recorded, not
			// rethrown.
			return NewResultError("queue present", result)
		}

	case *ProcessCommandsTask:
		if t.Commands.Empty() {
			core.LogFatal("process commands task carries an empty secondary command buffer")
			return nil
		}
		if err := t.Commands.FlushToPrimary(cp.primaryCommandBuffer); err != nil {
			return err
		}
		t.Commands.ReleaseToOwner()

	case *CheckCompletedCommandsTask:
		return cp.taskProcessor.lockAndCheckCompletedCommands()

	default:
		core.LogFatal("unknown task type %T", task)
	}

	return nil
}

// handleWorkerError records a task failure for producers and, on device
// loss, drains the in-flight list so the worker can keep consuming tasks.
func (cp *CommandProcessor) handleWorkerError(err error) {
	record := Error{Code: vk.ErrorUnknown}
	var re *ResultError
	if errors.As(err, &re) {
		record = Error{Code: re.Code, File: re.File, Function: re.Function, Line: re.Line}
	}

	core.LogWarn("command processor error: %s (%s)", err.Error(), VulkanResultString(record.Code, false))

	if record.Code == vk.ErrorDeviceLost {
		cp.taskProcessor.handleDeviceLost()
	}

	cp.errors.push(record)
}

// WaitForWorkComplete blocks until the queue is drained and the worker is
// idle, then forwards any pending errors to handler (oldest first).
func (cp *CommandProcessor) WaitForWorkComplete(handler ErrorHandler) {
	if cp.async {
		cp.workerMutex.Lock()
		for !(len(cp.tasks) == 0 && cp.workerThreadIdle) {
			cp.workerIdle.Wait()
		}
		cp.workerMutex.Unlock()
	}

	if handler == nil {
		return
	}

	for cp.HasPendingError() {
		if workerError := cp.GetAndClearPendingError(); workerError.Valid() {
			handler.HandleError(workerError)
		}
	}
}

// FinishToSerial blocks until all commands up to and including serial have
// been processed.
func (cp *CommandProcessor) FinishToSerial(serial Serial) {
	cp.QueueCommand(NewFinishToSerialTask(serial))

	// Once the worker is idle the finish has completed, including any
	// associated cleanup.
	if cp.async {
		cp.WaitForWorkComplete(nil)
	}
}

// FinishAllWork is the full barrier: it waits for every queued submission.
func (cp *CommandProcessor) FinishAllWork() {
	cp.FinishToSerial(SerialInfinite)
}

// CheckCompletedCommands enqueues a non-blocking completion sweep.
func (cp *CommandProcessor) CheckCompletedCommands() {
	cp.QueueCommand(NewCheckCompletedCommandsTask())
}

// Shutdown drains all preceding tasks, tears down worker-owned resources,
// and joins the worker.
func (cp *CommandProcessor) Shutdown() {
	cp.QueueCommand(NewExitTask())
	if cp.async {
		cp.WaitForWorkComplete(nil)
		cp.workerJoin.Wait()
	}
	core.LogDebug("command processor %s shut down", cp.id.String())
}

// GetLastSubmittedFence returns a reference to the fence of the newest
// in-flight submission, waiting for the queue to drain first in async mode.
// The caller owns the returned reference.
func (cp *CommandProcessor) GetLastSubmittedFence() SharedFence {
	cp.workerMutex.Lock()
	defer cp.workerMutex.Unlock()
	if cp.async {
		for !(len(cp.tasks) == 0 && cp.workerThreadIdle) {
			cp.workerIdle.Wait()
		}
	}

	return cp.taskProcessor.lastSubmittedFence()
}

func (cp *CommandProcessor) GetLastSubmittedSerial() Serial {
	cp.serialMutex.Lock()
	defer cp.serialMutex.Unlock()
	return cp.lastSubmittedSerial
}

func (cp *CommandProcessor) GetCurrentQueueSerial() Serial {
	cp.serialMutex.Lock()
	defer cp.serialMutex.Unlock()
	return cp.currentQueueSerial
}

func (cp *CommandProcessor) HasPendingError() bool {
	return cp.errors.hasPending()
}

// GetAndClearPendingError pops the oldest recorded worker error. An invalid
// (vk.Success) error means the queue was empty.
func (cp *CommandProcessor) GetAndClearPendingError() Error {
	return cp.errors.pop()
}

// GetLastAndClearPresentResult consumes the last present result for the
// given swapchain, blocking until one is available.
func (cp *CommandProcessor) GetLastAndClearPresentResult(swapchain SwapchainHandle) vk.Result {
	return cp.taskProcessor.getLastAndClearPresentResult(swapchain)
}

// HandleDeviceLost waits for the worker to go idle, then drains the
// in-flight list, destroying pinned resources without recycling.
func (cp *CommandProcessor) HandleDeviceLost() {
	cp.workerMutex.Lock()
	if cp.async {
		for !(len(cp.tasks) == 0 && cp.workerThreadIdle) {
			cp.workerIdle.Wait()
		}
	}
	cp.workerMutex.Unlock()

	cp.taskProcessor.handleDeviceLost()
}
