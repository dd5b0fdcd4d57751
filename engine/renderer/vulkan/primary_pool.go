package vulkan

import (
	"github.com/designerMichael/angle/engine/containers"
	"github.com/designerMichael/angle/engine/core"
)

// PrimaryCommandPool owns the device pool primaries are allocated from and a
// small free list of recycled buffers.
type PrimaryCommandPool struct {
	pool CommandPool
	free *containers.RingQueue[*PrimaryCommandBuffer]
}

func NewPrimaryCommandPool(renderer Renderer) (*PrimaryCommandPool, error) {
	pool, err := renderer.CreateCommandPool(false)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return &PrimaryCommandPool{
		pool: pool,
		free: containers.NewRingQueue[*PrimaryCommandBuffer](PRIMARY_POOL_FREE_LIMIT),
	}, nil
}

// Allocate returns a recycled primary when one is available, otherwise a
// fresh one from the device pool.
func (p *PrimaryCommandPool) Allocate() (*PrimaryCommandBuffer, error) {
	if !p.free.IsEmpty() {
		primary, _ := p.free.Dequeue()
		if err := primary.Reset(); err != nil {
			return nil, err
		}
		return primary, nil
	}

	buffer, err := p.pool.AllocateBuffer(true)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return NewPrimaryCommandBuffer(buffer), nil
}

// Collect takes back a submitted primary for recycling. When the free list
// is full the buffer is returned to the device pool instead.
func (p *PrimaryCommandPool) Collect(primary *PrimaryCommandBuffer) error {
	if !primary.Valid() {
		return nil
	}
	if p.free.IsFull() {
		p.pool.FreeBuffer(primary.Buffer)
		primary.Buffer = nil
		primary.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
		return nil
	}
	return p.free.Enqueue(primary)
}

func (p *PrimaryCommandPool) Destroy() {
	for !p.free.IsEmpty() {
		primary, _ := p.free.Dequeue()
		primary.Buffer = nil
		primary.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
	}
	if p.pool != nil {
		p.pool.Destroy()
		p.pool = nil
	}
}
