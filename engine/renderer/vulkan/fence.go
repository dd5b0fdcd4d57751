package vulkan

import (
	"sync/atomic"
)

// SharedFence is a reference-counted handle to a Fence. The submit path
// creates one reference for the in-flight batch and one for each observer;
// the underlying fence is recycled or destroyed when the last holder lets
// go.
type SharedFence struct {
	state *sharedFenceState
}

type sharedFenceState struct {
	fence   Fence
	refs    atomic.Int32
	recycle func(Fence)
}

// NewSharedFence wraps fence with an initial reference count of one. recycle
// is called with the fence when the last reference is released; a nil
// recycle destroys the fence instead.
func NewSharedFence(fence Fence, recycle func(Fence)) SharedFence {
	state := &sharedFenceState{
		fence:   fence,
		recycle: recycle,
	}
	state.refs.Store(1)
	return SharedFence{state: state}
}

func (sf SharedFence) Valid() bool {
	return sf.state != nil
}

func (sf SharedFence) Get() Fence {
	return sf.state.fence
}

// Copy returns a new handle to the same fence, adding a reference.
func (sf SharedFence) Copy() SharedFence {
	sf.state.refs.Add(1)
	return sf
}

// Release drops this handle's reference. The last release recycles the
// fence. The handle is invalid afterwards.
func (sf *SharedFence) Release() {
	if sf.state == nil {
		return
	}
	if sf.state.refs.Add(-1) == 0 {
		if sf.state.recycle != nil {
			sf.state.recycle(sf.state.fence)
		} else {
			sf.state.fence.Destroy()
		}
	}
	sf.state = nil
}

// DestroyAndRelease drops this handle's reference and, on the last release,
// destroys the fence outright instead of recycling it. Used on device loss,
// where pooled fences must not be reused.
func (sf *SharedFence) DestroyAndRelease() {
	if sf.state == nil {
		return
	}
	if sf.state.refs.Add(-1) == 0 {
		sf.state.fence.Destroy()
	}
	sf.state = nil
}
