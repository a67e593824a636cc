package testnet

import (
	"sync"
	"time"

	"github.com/core-tools/hsu-testnet/pkg/logging"
	"github.com/core-tools/hsu-testnet/pkg/process"
)

// ProcessState tracks a managed child through its life. There is no
// restart state: a crash is fatal for the whole bring-up.
type ProcessState string

const (
	ProcessStateStarting ProcessState = "starting"
	ProcessStateRunning  ProcessState = "running"
	ProcessStateExited   ProcessState = "exited"
)

// ManagedProcess is the supervisor's record of one launched child.
type ManagedProcess struct {
	Name      string
	PID       int
	StartedAt time.Time
	State     ProcessState
}

// ProcessRegistry is the supervisor-owned collection of ManagedProcess
// records. Launchers register children here; the liveness monitor and the
// cleanup path consume it. Probe and terminate functions are injectable
// for tests.
type ProcessRegistry struct {
	mutex       sync.Mutex
	procs       []*ManagedProcess
	logger      logging.Logger
	aliveFn     func(pid int) (bool, error)
	terminateFn func(pid int) error
}

func NewProcessRegistry(logger logging.Logger) *ProcessRegistry {
	return &ProcessRegistry{
		procs:       make([]*ManagedProcess, 0),
		logger:      logger,
		aliveFn:     process.IsProcessRunning,
		terminateFn: process.SendTerminationSignal,
	}
}

// Track registers a freshly launched child in Starting state.
func (r *ProcessRegistry) Track(name string, pid int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.procs = append(r.procs, &ManagedProcess{
		Name:      name,
		PID:       pid,
		StartedAt: time.Now(),
		State:     ProcessStateStarting,
	})
	r.logger.Infof("Tracking process, name: %s, PID: %d", name, pid)
}

// MarkRunning transitions a child out of its startup grace period.
func (r *ProcessRegistry) MarkRunning(name string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, proc := range r.procs {
		if proc.Name == name && proc.State == ProcessStateStarting {
			proc.State = ProcessStateRunning
			return
		}
	}
}

// Count returns the number of tracked processes in any state.
func (r *ProcessRegistry) Count() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.procs)
}

// Snapshot returns copies of all records, newest last.
func (r *ProcessRegistry) Snapshot() []ManagedProcess {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	snapshot := make([]ManagedProcess, 0, len(r.procs))
	for _, proc := range r.procs {
		snapshot = append(snapshot, *proc)
	}
	return snapshot
}

// CheckAlive probes every non-exited process and returns the first one
// found dead, marking it Exited. Probe errors are reported to the caller;
// a dead child can never become alive again, so callers abort on the
// first hit.
func (r *ProcessRegistry) CheckAlive() (ManagedProcess, bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, proc := range r.procs {
		if proc.State == ProcessStateExited {
			continue
		}
		alive, err := r.aliveFn(proc.PID)
		if err != nil {
			return *proc, false, err
		}
		if !alive {
			proc.State = ProcessStateExited
			r.logger.Warnf("Process found dead, name: %s, PID: %d", proc.Name, proc.PID)
			return *proc, true, nil
		}
	}
	return ManagedProcess{}, false, nil
}

// IsAlive probes a single tracked process by name.
func (r *ProcessRegistry) IsAlive(name string) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, proc := range r.procs {
		if proc.Name != name {
			continue
		}
		if proc.State == ProcessStateExited {
			return false, nil
		}
		alive, err := r.aliveFn(proc.PID)
		if err != nil {
			return false, err
		}
		if !alive {
			proc.State = ProcessStateExited
		}
		return alive, nil
	}
	return false, nil
}

// TerminateAll sends a termination signal to every tracked process that
// has not already exited, logging the outcome per process. It is
// idempotent: a second call finds everything marked Exited and does
// nothing.
func (r *ProcessRegistry) TerminateAll() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, proc := range r.procs {
		if proc.State == ProcessStateExited {
			r.logger.Debugf("Skipping already-exited process, name: %s, PID: %d", proc.Name, proc.PID)
			continue
		}

		// Even when the direct child is already gone its process group
		// may have surviving descendants, so the group is signalled
		// regardless of the probe outcome.
		gone := false
		if alive, err := r.aliveFn(proc.PID); err == nil && !alive {
			gone = true
		}

		if err := r.terminateFn(proc.PID); err != nil {
			if gone {
				r.logger.Debugf("Process group already empty, name: %s, PID: %d", proc.Name, proc.PID)
			} else {
				r.logger.Errorf("Failed to terminate process, name: %s, PID: %d, error: %v", proc.Name, proc.PID, err)
			}
		} else if gone {
			r.logger.Infof("Process already gone, swept its process group, name: %s, PID: %d", proc.Name, proc.PID)
		} else {
			r.logger.Infof("Terminated process, name: %s, PID: %d", proc.Name, proc.PID)
		}
		proc.State = ProcessStateExited
	}
}
