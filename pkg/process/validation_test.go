package process

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/core-tools/hsu-testnet/pkg/errors"
)

func TestValidateExecutionConfig(t *testing.T) {
	tests := []struct {
		name      string
		config    ExecutionConfig
		shouldErr bool
	}{
		{"valid_bare_name", ExecutionConfig{ExecutablePath: "anvil"}, false},
		{"valid_with_args", ExecutionConfig{ExecutablePath: "/usr/local/bin/antnode", Args: []string{"--port", "9000"}}, false},
		{"valid_env", ExecutionConfig{ExecutablePath: "antnode", Environment: []string{"SECRET_KEY=0xCCC"}}, false},
		{"missing_path", ExecutionConfig{}, true},
		{"relative_workdir", ExecutionConfig{ExecutablePath: "antnode", WorkingDirectory: "relative/dir"}, true},
		{"bad_env_entry", ExecutionConfig{ExecutablePath: "antnode", Environment: []string{"NO_EQUALS_SIGN"}}, true},
		{"negative_wait_delay", ExecutionConfig{ExecutablePath: "antnode", WaitDelay: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExecutionConfig(tt.config)

			if tt.shouldErr {
				assert.Error(t, err)
				assert.True(t, errors.IsConfigError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsProcessRunning(t *testing.T) {
	t.Run("own_process", func(t *testing.T) {
		running, err := IsProcessRunning(os.Getpid())
		assert.NoError(t, err)
		assert.True(t, running)
	})

	t.Run("invalid_pid", func(t *testing.T) {
		_, err := IsProcessRunning(0)
		assert.Error(t, err)

		_, err = IsProcessRunning(-5)
		assert.Error(t, err)
	})
}
