package vulkan

import (
	"sync"

	vk "github.com/goki/vulkan"
)

// Error is one worker-side failure, reported to producers in the order the
// worker observed it.
type Error struct {
	Code     vk.Result
	File     string
	Function string
	Line     int
}

func (e Error) Valid() bool {
	return e.Code != vk.Success
}

type errorQueue struct {
	mutex  sync.Mutex
	errors []Error
}

func (q *errorQueue) push(err Error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.errors = append(q.errors, err)
}

func (q *errorQueue) pop() Error {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if len(q.errors) == 0 {
		return Error{Code: vk.Success}
	}
	err := q.errors[0]
	q.errors = q.errors[1:]
	return err
}

func (q *errorQueue) hasPending() bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.errors) > 0
}

func (q *errorQueue) clear() {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.errors = nil
}
