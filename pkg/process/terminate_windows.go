//go:build windows

package process

import (
	"fmt"
	"os"
)

// SendTerminationSignal terminates a child on Windows. There is no process
// group signal equivalent, so the process handle is killed directly.
func SendTerminationSignal(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid PID: %d", pid)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Kill()
}
