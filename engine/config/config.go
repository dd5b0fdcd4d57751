package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/designerMichael/angle/engine/core"
)

// ProcessorConfig controls how the command processor dispatches and throttles
// GPU work. It is normally loaded from a TOML file at engine boot.
type ProcessorConfig struct {
	// When true, tasks run on a dedicated worker goroutine. When false, the
	// calling goroutine executes tasks inline.
	AsynchronousCommandProcessing bool `toml:"asynchronous_command_processing"`
	// Hard cap on in-flight submissions before the producer is throttled.
	InFlightCommandsLimit int `toml:"in_flight_commands_limit"`
	// Upper bound for a single fence wait, in nanoseconds.
	FenceWaitTimeoutNs uint64 `toml:"fence_wait_timeout_ns"`
	LogLevel           string `toml:"log_level"`
}

const (
	DefaultInFlightCommandsLimit = 100
	DefaultFenceWaitTimeoutNs    = uint64(10_000_000_000) // 10s
)

func Default() *ProcessorConfig {
	return &ProcessorConfig{
		AsynchronousCommandProcessing: true,
		InFlightCommandsLimit:         DefaultInFlightCommandsLimit,
		FenceWaitTimeoutNs:            DefaultFenceWaitTimeoutNs,
		LogLevel:                      "debug",
	}
}

// Load reads a ProcessorConfig from a TOML file. Fields absent from the file
// keep their defaults.
func Load(path string) (*ProcessorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		err = fmt.Errorf("failed to parse processor config %s: %w", path, err)
		core.LogError(err.Error())
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ProcessorConfig) Validate() error {
	if c.InFlightCommandsLimit <= 0 {
		err := fmt.Errorf("in_flight_commands_limit must be positive, got %d", c.InFlightCommandsLimit)
		core.LogError(err.Error())
		return err
	}
	if c.FenceWaitTimeoutNs == 0 {
		err := fmt.Errorf("fence_wait_timeout_ns must be positive")
		core.LogError(err.Error())
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level translates the configured log level string.
func (c *ProcessorConfig) Level() (core.LogLevel, error) {
	switch c.LogLevel {
	case "", "debug":
		return core.DebugLevel, nil
	case "info":
		return core.InfoLevel, nil
	case "warn":
		return core.WarnLevel, nil
	case "error":
		return core.ErrorLevel, nil
	default:
		err := fmt.Errorf("unknown log level %q", c.LogLevel)
		core.LogError(err.Error())
		return core.DebugLevel, err
	}
}

// Apply pushes the configured log level to the process-wide logger.
func (c *ProcessorConfig) Apply() error {
	level, err := c.Level()
	if err != nil {
		return err
	}
	core.SetLogLevel(level)
	return nil
}
