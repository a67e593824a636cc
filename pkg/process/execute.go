package process

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/core-tools/hsu-testnet/pkg/errors"
	"github.com/core-tools/hsu-testnet/pkg/logging"
)

// Wait after the graceful termination signal before the kill signal.
const defaultWaitDelay = 10 * time.Second

// ExecutionConfig describes how to start a child process. The launcher
// treats every child as opaque: binary, arguments and environment come
// from configuration, output goes to a per-process log file.
type ExecutionConfig struct {
	ExecutablePath   string        `yaml:"executable_path"`
	Args             []string      `yaml:"args,omitempty"`
	Environment      []string      `yaml:"environment,omitempty"`
	WorkingDirectory string        `yaml:"working_directory,omitempty"`
	WaitDelay        time.Duration `yaml:"wait_delay,omitempty"`
}

// ExecuteCmd starts a child process and returns its handle. Implementations
// are injectable so tests can substitute stubs for real binaries.
type ExecuteCmd func(ctx context.Context) (*os.Process, error)

// NewStdExecuteCmd builds the standard ExecuteCmd for a child: resolve the
// binary, redirect combined output to logPath, start it in its own process
// group, and reap it in the background once it exits.
func NewStdExecuteCmd(execution ExecutionConfig, name string, logPath string, logger logging.Logger) ExecuteCmd {
	return func(ctx context.Context) (*os.Process, error) {
		if ctx == nil {
			return nil, errors.NewInternalError("context cannot be nil", nil).WithContext("name", name)
		}

		if err := ValidateExecutionConfig(execution); err != nil {
			return nil, errors.NewConfigError("invalid execution configuration", err).WithContext("name", name)
		}

		executablePath, err := resolveExecutable(execution.ExecutablePath)
		if err != nil {
			return nil, err
		}

		workDir := execution.WorkingDirectory
		if workDir == "" {
			workDir = filepath.Dir(executablePath)
		}

		logger.Debugf("Executing process, name: %s, executable: '%s', args: %v, working directory: '%s'",
			name, executablePath, execution.Args, workDir)

		env := os.Environ()
		env = append(env, execution.Environment...)

		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, errors.NewIOError("failed to open process log file", err).WithContext("name", name).WithContext("log_path", logPath)
		}

		cmd := exec.CommandContext(ctx, executablePath, execution.Args...)
		cmd.Dir = workDir
		cmd.Env = env
		cmd.Stdout = logFile
		cmd.Stderr = logFile

		// Platform-specific setup, see execute_unix.go / execute_windows.go
		setupProcessAttributes(cmd)

		// Context cancellation must not SIGKILL the child outright: send
		// the graceful group termination signal instead, and let the kill
		// signal follow only after the wait delay.
		cmd.Cancel = func() error {
			return SendTerminationSignal(cmd.Process.Pid)
		}
		cmd.WaitDelay = execution.WaitDelay
		if cmd.WaitDelay == 0 {
			cmd.WaitDelay = defaultWaitDelay
		}

		if err := cmd.Start(); err != nil {
			logFile.Close()
			return nil, errors.NewProcessError("failed to start the process", err).WithContext("name", name).WithContext("executable_path", executablePath)
		}

		logger.Infof("Process started, name: %s, PID: %d, log: %s", name, cmd.Process.Pid, logPath)

		// Reap the child when it exits so a crashed process does not linger
		// as a zombie and defeat the liveness probe.
		go func() {
			err := cmd.Wait()
			logFile.Close()
			if err != nil {
				logger.Debugf("Process exited, name: %s, PID: %d, error: %v", name, cmd.Process.Pid, err)
			} else {
				logger.Debugf("Process exited cleanly, name: %s, PID: %d", name, cmd.Process.Pid)
			}
		}()

		return cmd.Process, nil
	}
}

// resolveExecutable turns a configured binary reference into a runnable
// path. Bare names are looked up on PATH; explicit paths must exist and
// get the execute bit if missing.
func resolveExecutable(path string) (string, error) {
	if filepath.Base(path) == path {
		resolved, err := exec.LookPath(path)
		if err != nil {
			return "", errors.NewConfigError("executable not found on PATH: "+path, err)
		}
		return resolved, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", errors.NewConfigError("executable not found: "+path, err)
	}

	mode := info.Mode()
	if mode&0111 == 0 {
		if err := os.Chmod(path, mode|0111); err != nil {
			return "", errors.NewIOError("failed to make file executable", err).WithContext("path", path)
		}
	}

	return path, nil
}
