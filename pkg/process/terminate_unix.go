//go:build !windows

package process

import (
	"syscall"
)

// SendTerminationSignal sends SIGTERM to the child's process group so the
// whole tree under it shuts down. Falls back to the single PID when the
// group is already gone.
func SendTerminationSignal(pid int) error {
	err := syscall.Kill(-pid, syscall.SIGTERM)
	if err == syscall.ESRCH {
		return syscall.Kill(pid, syscall.SIGTERM)
	}
	return err
}
