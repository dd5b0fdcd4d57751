package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresentTaskDeepCopiesTheDescriptor(t *testing.T) {
	regions := &PresentRegions{
		Rectangles: []PresentRect{{X: 1, Y: 2, Width: 10, Height: 20}},
	}
	semaphores := make([]vk.Semaphore, 1)
	info := &PresentInfo{
		Swapchain:      SwapchainHandle(5),
		ImageIndex:     3,
		WaitSemaphores: semaphores,
		Chain:          []interface{}{regions},
	}

	task := NewPresentTask(CONTEXT_PRIORITY_HIGH, info)

	// Mutating the caller's storage after enqueue must not affect the task.
	regions.Rectangles[0].Width = 999
	info.ImageIndex = 7

	assert.Equal(t, SwapchainHandle(5), task.Info.Swapchain)
	assert.Equal(t, uint32(3), task.Info.ImageIndex)
	require.NotNil(t, task.Info.Regions)
	require.Len(t, task.Info.Regions.Rectangles, 1)
	assert.Equal(t, uint32(10), task.Info.Regions.Rectangles[0].Width)
	assert.Len(t, task.Info.WaitSemaphores, 1)
	assert.Empty(t, task.Info.Chain)
}

func TestSubmitInfoPadsMissingStageMasks(t *testing.T) {
	primary := NewPrimaryCommandBuffer(&fakeCommandBuffer{})

	waits := make([]vk.Semaphore, 3)
	masks := []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}

	info := &SubmitInfo{}
	initializeSubmitInfo(info, primary, waits, masks, nil)

	require.Len(t, info.CommandBuffers, 1)
	require.Len(t, info.WaitStageMasks, 3)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), info.WaitStageMasks[0])
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit), info.WaitStageMasks[1])
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit), info.WaitStageMasks[2])
	assert.Empty(t, info.SignalSemaphores)

	var signal vk.Semaphore
	info = &SubmitInfo{}
	initializeSubmitInfo(info, primary, nil, nil, &signal)
	assert.Len(t, info.SignalSemaphores, 1)
}

func TestSecondaryBufferLifecycle(t *testing.T) {
	owner := &fakeSecondaryOwner{}
	recorded := &fakeCommandBuffer{}
	secondary := NewSecondaryCommandBuffer(recorded, true, owner)
	require.False(t, secondary.Empty())
	assert.True(t, secondary.InsideRenderPass)

	primary := NewPrimaryCommandBuffer(&fakeCommandBuffer{})
	require.NoError(t, primary.Begin())

	require.NoError(t, secondary.FlushToPrimary(primary))
	assert.True(t, secondary.Empty())

	// A second flush of the same buffer is an error.
	assert.Error(t, secondary.FlushToPrimary(primary))

	secondary.ReleaseToOwner()
	require.Len(t, owner.released, 1)
}

func TestPrimaryBufferStateMachine(t *testing.T) {
	primary := NewPrimaryCommandBuffer(&fakeCommandBuffer{})
	assert.Equal(t, COMMAND_BUFFER_STATE_READY, primary.State)

	// Ending before beginning is rejected.
	assert.Error(t, primary.End())

	require.NoError(t, primary.Begin())
	assert.Equal(t, COMMAND_BUFFER_STATE_RECORDING, primary.State)

	require.NoError(t, primary.End())
	assert.Equal(t, COMMAND_BUFFER_STATE_RECORDING_ENDED, primary.State)

	primary.UpdateSubmitted()
	assert.Equal(t, COMMAND_BUFFER_STATE_SUBMITTED, primary.State)

	require.NoError(t, primary.Reset())
	assert.Equal(t, COMMAND_BUFFER_STATE_READY, primary.State)

	primary.Destroy()
	assert.False(t, primary.Valid())
	assert.Equal(t, COMMAND_BUFFER_STATE_NOT_ALLOCATED, primary.State)
}
