package process

import (
	"path/filepath"
	"strings"

	"github.com/core-tools/hsu-testnet/pkg/errors"
)

// ValidateExecutionConfig checks an execution configuration before launch.
// Binary existence is deferred to resolveExecutable so PATH lookups work.
func ValidateExecutionConfig(config ExecutionConfig) error {
	if config.ExecutablePath == "" {
		return errors.NewConfigError("executable path is required", nil)
	}

	if config.WorkingDirectory != "" && !filepath.IsAbs(config.WorkingDirectory) {
		return errors.NewConfigError("working directory must be an absolute path: "+config.WorkingDirectory, nil)
	}

	for _, env := range config.Environment {
		if !strings.Contains(env, "=") {
			return errors.NewConfigError("invalid environment variable format: "+env, nil)
		}
	}

	if config.WaitDelay < 0 {
		return errors.NewConfigError("wait delay cannot be negative", nil)
	}

	return nil
}
