package vulkan

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"
)

// fakeRenderer implements Renderer without a device. Fences either signal at
// creation (trivially completing work) or when something waits on them, in
// which case every earlier fence signals too, matching GPU completion order.
type fakeRenderer struct {
	mutex      sync.Mutex
	autoSignal bool

	fences        []*fakeFence
	recycledCount int

	lastCompleted  Serial
	completedOrder []Serial

	queue        *fakeQueue
	events       []string
	cleanupCalls int
}

func newFakeRenderer(autoSignal bool) *fakeRenderer {
	r := &fakeRenderer{autoSignal: autoSignal}
	r.queue = &fakeQueue{
		renderer:       r,
		presentResults: make(map[SwapchainHandle][]vk.Result),
	}
	return r
}

func (r *fakeRenderer) Queue(priority ContextPriority) Queue {
	return r.queue
}

func (r *fakeRenderer) CreateCommandPool(transient bool) (CommandPool, error) {
	return &fakeCommandPool{}, nil
}

func (r *fakeRenderer) NextSubmitFence() (SharedFence, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	fence := &fakeFence{renderer: r, signaled: r.autoSignal}
	r.fences = append(r.fences, fence)
	return NewSharedFence(fence, func(f Fence) {
		r.mutex.Lock()
		defer r.mutex.Unlock()
		r.recycledCount++
	}), nil
}

func (r *fakeRenderer) OnCompletedSerial(serial Serial) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.completedOrder = append(r.completedOrder, serial)
	if serial > r.lastCompleted {
		r.lastCompleted = serial
	}
	r.events = append(r.events, fmt.Sprintf("completed:%d", serial))
}

func (r *fakeRenderer) LastCompletedSerial() Serial {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.lastCompleted
}

func (r *fakeRenderer) CleanupGarbage() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.cleanupCalls++
}

func (r *fakeRenderer) MaxFenceWaitTimeoutNs() uint64 {
	return 1_000_000_000
}

func (r *fakeRenderer) eventLog() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

func (r *fakeRenderer) completed() []Serial {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]Serial, len(r.completedOrder))
	copy(out, r.completedOrder)
	return out
}

// signalThrough marks target and every fence issued before it as signaled.
func (r *fakeRenderer) signalThrough(target *fakeFence) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, fence := range r.fences {
		fence.signaled = true
		if fence == target {
			break
		}
	}
}

type fakeFence struct {
	renderer   *fakeRenderer
	signaled   bool
	waitResult vk.Result
	resetCount int
	destroyed  bool
}

func (f *fakeFence) Status() vk.Result {
	f.renderer.mutex.Lock()
	defer f.renderer.mutex.Unlock()
	if f.signaled {
		return vk.Success
	}
	return vk.NotReady
}

func (f *fakeFence) Wait(timeoutNs uint64) vk.Result {
	if f.waitResult != vk.Success {
		return f.waitResult
	}
	// Waiting stands in for the GPU catching up: this fence and every
	// earlier one signal.
	f.renderer.signalThrough(f)
	return vk.Success
}

func (f *fakeFence) Reset() error {
	f.renderer.mutex.Lock()
	defer f.renderer.mutex.Unlock()
	f.signaled = false
	f.resetCount++
	return nil
}

func (f *fakeFence) Destroy() {
	f.renderer.mutex.Lock()
	defer f.renderer.mutex.Unlock()
	f.destroyed = true
}

type fakeQueue struct {
	renderer *fakeRenderer

	submits        []*SubmitInfo
	submitFences   []Fence
	submitContents [][]CommandBuffer
	submitResults  []vk.Result
	presentResults map[SwapchainHandle][]vk.Result
	presents       []SwapchainHandle
	onSubmit       func()
}

func (q *fakeQueue) Submit(info *SubmitInfo, fence Fence) vk.Result {
	if q.onSubmit != nil {
		q.onSubmit()
	}

	q.renderer.mutex.Lock()
	defer q.renderer.mutex.Unlock()

	result := vk.Success
	if len(q.submitResults) > 0 {
		result = q.submitResults[0]
		q.submitResults = q.submitResults[1:]
	}
	if result != vk.Success {
		return result
	}

	q.submits = append(q.submits, info)
	q.submitFences = append(q.submitFences, fence)

	// Snapshot what the primary carried; the buffer is recycled and reset
	// once the batch completes.
	var contents []CommandBuffer
	if len(info.CommandBuffers) > 0 {
		if primary, ok := info.CommandBuffers[0].(*fakeCommandBuffer); ok {
			contents = append(contents, primary.executed...)
		}
	}
	q.submitContents = append(q.submitContents, contents)

	q.renderer.events = append(q.renderer.events, "submit")
	return vk.Success
}

func (q *fakeQueue) Present(info *PresentInfo) vk.Result {
	q.renderer.mutex.Lock()
	defer q.renderer.mutex.Unlock()

	result := vk.Success
	if queued := q.presentResults[info.Swapchain]; len(queued) > 0 {
		result = queued[0]
		q.presentResults[info.Swapchain] = queued[1:]
	}

	q.presents = append(q.presents, info.Swapchain)
	q.renderer.events = append(q.renderer.events, fmt.Sprintf("present:%d", info.Swapchain))
	return result
}

func (q *fakeQueue) submitCount() int {
	q.renderer.mutex.Lock()
	defer q.renderer.mutex.Unlock()
	return len(q.submits)
}

type fakeCommandPool struct {
	mutex     sync.Mutex
	allocated int
	freed     int
	destroyed bool
}

func (p *fakeCommandPool) AllocateBuffer(primary bool) (CommandBuffer, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.allocated++
	return &fakeCommandBuffer{primary: primary}, nil
}

func (p *fakeCommandPool) FreeBuffer(buffer CommandBuffer) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.freed++
}

func (p *fakeCommandPool) Destroy() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.destroyed = true
}

type fakeCommandBuffer struct {
	primary   bool
	began     int
	ended     int
	resets    int
	destroyed bool
	executed  []CommandBuffer
}

func (b *fakeCommandBuffer) Begin() error {
	b.began++
	return nil
}

func (b *fakeCommandBuffer) End() error {
	b.ended++
	return nil
}

func (b *fakeCommandBuffer) ExecuteCommands(secondary CommandBuffer) error {
	b.executed = append(b.executed, secondary)
	return nil
}

func (b *fakeCommandBuffer) Reset() error {
	b.resets++
	b.executed = nil
	return nil
}

func (b *fakeCommandBuffer) Destroy() {
	b.destroyed = true
}

type fakeSecondaryOwner struct {
	mutex    sync.Mutex
	released []*SecondaryCommandBuffer
}

func (o *fakeSecondaryOwner) ReleaseSecondary(buffer *SecondaryCommandBuffer) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.released = append(o.released, buffer)
}

type fakeGarbage struct {
	renderer *fakeRenderer
	serial   Serial

	mutex              sync.Mutex
	destroyed          bool
	completedAtDestroy Serial
}

func (g *fakeGarbage) Destroy() {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.destroyed = true
	g.completedAtDestroy = g.renderer.LastCompletedSerial()
}

type errorCollector struct {
	errors []Error
}

func (c *errorCollector) HandleError(err Error) {
	c.errors = append(c.errors, err)
}
