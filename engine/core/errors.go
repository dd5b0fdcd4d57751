package core

import (
	"errors"
)

var (
	ErrCommandProcessorShutdown = errors.New("command processor has been shut down")
	ErrUnknown                  = errors.New("unknown")
)
