//go:build windows

package process

import (
	"os/exec"
	"syscall"
)

// setupProcessAttributes detaches the child into its own process group on
// Windows so console Ctrl events for the launcher do not fan out to it.
func setupProcessAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
