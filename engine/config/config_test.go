package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designerMichael/angle/engine/core"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "processor.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaultsForMissingFields(t *testing.T) {
	path := writeConfig(t, `asynchronous_command_processing = false`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.AsynchronousCommandProcessing)
	assert.Equal(t, DefaultInFlightCommandsLimit, cfg.InFlightCommandsLimit)
	assert.Equal(t, DefaultFenceWaitTimeoutNs, cfg.FenceWaitTimeoutNs)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
asynchronous_command_processing = true
in_flight_commands_limit = 25
fence_wait_timeout_ns = 5000000
log_level = "warn"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.AsynchronousCommandProcessing)
	assert.Equal(t, 25, cfg.InFlightCommandsLimit)
	assert.Equal(t, uint64(5000000), cfg.FenceWaitTimeoutNs)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, core.WarnLevel, level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `in_flight_commands_limit = 0`)
	_, err := Load(path)
	assert.Error(t, err)

	path = writeConfig(t, `log_level = "shout"`)
	_, err = Load(path)
	assert.Error(t, err)

	path = writeConfig(t, `this is not toml`)
	_, err = Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidateDefaults(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
