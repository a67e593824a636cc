//go:build !windows

package process

import (
	"fmt"
	"os"
	"syscall"
)

// IsProcessRunning probes a PID with signal 0. On Unix FindProcess always
// succeeds, so the signal probe is the only reliable existence check.
func IsProcessRunning(pid int) (bool, error) {
	if pid <= 0 {
		return false, fmt.Errorf("invalid PID: %d", pid)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, err
	}

	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true, nil
	}
	if err.Error() == "os: process already finished" {
		return false, nil
	}
	errno, ok := err.(syscall.Errno)
	if !ok {
		return false, err
	}
	switch errno {
	case syscall.ESRCH:
		return false, nil
	case syscall.EPERM:
		// Exists but owned by someone else; still alive.
		return true, nil
	}
	return false, err
}
