package vulkan

import (
	"fmt"

	"github.com/designerMichael/angle/engine/core"
)

type CommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY CommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

// PrimaryCommandBuffer is the worker-owned buffer that secondary buffers are
// flushed into. Only primaries are submitted to the queue.
type PrimaryCommandBuffer struct {
	Buffer CommandBuffer
	// Command buffer state.
	State CommandBufferState
}

func NewPrimaryCommandBuffer(buffer CommandBuffer) *PrimaryCommandBuffer {
	return &PrimaryCommandBuffer{
		Buffer: buffer,
		State:  COMMAND_BUFFER_STATE_READY,
	}
}

func (p *PrimaryCommandBuffer) Valid() bool {
	return p != nil && p.Buffer != nil
}

func (p *PrimaryCommandBuffer) Begin() error {
	if err := p.Buffer.Begin(); err != nil {
		core.LogError(err.Error())
		return err
	}
	p.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (p *PrimaryCommandBuffer) End() error {
	if p.State != COMMAND_BUFFER_STATE_RECORDING {
		err := fmt.Errorf("cannot end primary command buffer that is not recording")
		core.LogError(err.Error())
		return err
	}
	if err := p.Buffer.End(); err != nil {
		core.LogError(err.Error())
		return err
	}
	p.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (p *PrimaryCommandBuffer) UpdateSubmitted() {
	p.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (p *PrimaryCommandBuffer) Reset() error {
	if err := p.Buffer.Reset(); err != nil {
		core.LogError(err.Error())
		return err
	}
	p.State = COMMAND_BUFFER_STATE_READY
	return nil
}

func (p *PrimaryCommandBuffer) Destroy() {
	if p == nil || p.Buffer == nil {
		return
	}
	p.Buffer.Destroy()
	p.Buffer = nil
	p.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

// SecondaryOwner recycles a secondary command buffer back into the pool it
// was recorded from.
type SecondaryOwner interface {
	ReleaseSecondary(buffer *SecondaryCommandBuffer)
}

// SecondaryCommandBuffer is a producer-recorded buffer waiting to be flushed
// into the current primary.
type SecondaryCommandBuffer struct {
	Buffer CommandBuffer
	// Whether the buffer was recorded for execution inside a render pass
	// scope.
	InsideRenderPass bool

	owner SecondaryOwner
	empty bool
}

func NewSecondaryCommandBuffer(buffer CommandBuffer, insideRenderPass bool, owner SecondaryOwner) *SecondaryCommandBuffer {
	return &SecondaryCommandBuffer{
		Buffer:           buffer,
		InsideRenderPass: insideRenderPass,
		owner:            owner,
	}
}

func (s *SecondaryCommandBuffer) Empty() bool {
	return s.empty || s.Buffer == nil
}

// FlushToPrimary records this buffer's contents into primary and marks it
// empty.
func (s *SecondaryCommandBuffer) FlushToPrimary(primary *PrimaryCommandBuffer) error {
	if s.Empty() {
		err := fmt.Errorf("cannot flush an empty secondary command buffer")
		core.LogError(err.Error())
		return err
	}
	if err := primary.Buffer.ExecuteCommands(s.Buffer); err != nil {
		core.LogError(err.Error())
		return err
	}
	s.empty = true
	return nil
}

// ReleaseToOwner returns the buffer to its originating pool for recycling.
func (s *SecondaryCommandBuffer) ReleaseToOwner() {
	if s.owner != nil {
		s.owner.ReleaseSecondary(s)
	}
}
