package vulkan

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	vk "github.com/goki/vulkan"
)

// ResultError carries a failed vk.Result together with the call site that
// observed it, so the worker can forward both to the error queue.
type ResultError struct {
	Code     vk.Result
	File     string
	Function string
	Line     int
	op       string
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("%s failed with %s", e.op, VulkanResultString(e.Code, false))
}

// NewResultError records the immediate caller as the error origin.
func NewResultError(op string, result vk.Result) error {
	e := &ResultError{
		Code: result,
		op:   op,
	}
	if pc, file, line, ok := runtime.Caller(1); ok {
		e.File = filepath.Base(file)
		e.Line = line
		if fn := runtime.FuncForPC(pc); fn != nil {
			e.Function = fn.Name()
		}
	}
	return e
}

// ResultFromError extracts the vk.Result from an error produced by the
// processor. Errors without one map to vk.ErrorUnknown.
func ResultFromError(err error) vk.Result {
	var re *ResultError
	if errors.As(err, &re) {
		return re.Code
	}
	return vk.ErrorUnknown
}
