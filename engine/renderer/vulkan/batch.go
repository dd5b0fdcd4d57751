package vulkan

// CommandBatch is one in-flight submission and the resources it pins: the
// submitted primary buffer, the command pool its secondaries came from, the
// submit fence, and the submission serial. Once in the in-flight list a
// batch is immutable until its fence signals.
type CommandBatch struct {
	PrimaryCommands *PrimaryCommandBuffer
	CommandPool     CommandPool
	Fence           SharedFence
	Serial          Serial
}

// Destroy tears the batch down without recycling anything. Used on device
// loss; the normal path recycles through the completion sweep instead.
func (b *CommandBatch) Destroy() {
	if b.PrimaryCommands != nil {
		b.PrimaryCommands.Destroy()
		b.PrimaryCommands = nil
	}
	if b.CommandPool != nil {
		b.CommandPool.Destroy()
		b.CommandPool = nil
	}
	b.Fence.DestroyAndRelease()
}
