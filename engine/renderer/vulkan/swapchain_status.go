package vulkan

import (
	"sync"

	vk "github.com/goki/vulkan"
)

// swapchainStatus maps a swapchain to the result of its last present.
// Entries are consumed on read; a reader with no entry blocks until the next
// present of that swapchain lands.
type swapchainStatus struct {
	mutex  sync.Mutex
	cond   *sync.Cond
	status map[SwapchainHandle]vk.Result
}

func newSwapchainStatus() *swapchainStatus {
	s := &swapchainStatus{
		status: make(map[SwapchainHandle]vk.Result),
	}
	s.cond = sync.NewCond(&s.mutex)
	return s
}

func (s *swapchainStatus) set(swapchain SwapchainHandle, result vk.Result) {
	s.status[swapchain] = result
	s.cond.Broadcast()
}

func (s *swapchainStatus) getLastAndClear(swapchain SwapchainHandle) vk.Result {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for {
		if result, ok := s.status[swapchain]; ok {
			delete(s.status, swapchain)
			return result
		}
		// Wake when the required swapchain status becomes available.
		s.cond.Wait()
	}
}
