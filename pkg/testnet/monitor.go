package testnet

import (
	"context"
	"sync"
	"time"

	"github.com/core-tools/hsu-testnet/pkg/errors"
	"github.com/core-tools/hsu-testnet/pkg/logging"
)

// MonitorState tracks the liveness monitor's lifecycle.
type MonitorState string

const (
	MonitorStateIdle       MonitorState = "idle"
	MonitorStateMonitoring MonitorState = "monitoring"
	MonitorStateAborting   MonitorState = "aborting"
	MonitorStateTerminal   MonitorState = "terminal"
)

// LivenessMonitor periodically verifies every tracked process is still
// alive. The first death aborts the whole system: individual children
// have no recovery semantics, so there is no restart policy.
type LivenessMonitor struct {
	registry *ProcessRegistry
	interval time.Duration
	logger   logging.Logger

	mutex sync.Mutex
	state MonitorState
}

func NewLivenessMonitor(registry *ProcessRegistry, interval time.Duration, logger logging.Logger) *LivenessMonitor {
	return &LivenessMonitor{
		registry: registry,
		interval: interval,
		logger:   logger,
		state:    MonitorStateIdle,
	}
}

func (m *LivenessMonitor) State() MonitorState {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.state
}

func (m *LivenessMonitor) setState(state MonitorState) {
	m.mutex.Lock()
	m.state = state
	m.mutex.Unlock()
}

// Run blocks in the steady-state monitoring loop. It returns nil when ctx
// is cancelled (external shutdown) and a process error the moment any
// tracked process is found dead.
func (m *LivenessMonitor) Run(ctx context.Context) error {
	m.setState(MonitorStateMonitoring)
	m.logger.Infof("Liveness monitor started, processes: %d, interval: %v", m.registry.Count(), m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.setState(MonitorStateTerminal)
			m.logger.Infof("Liveness monitor stopped")
			return nil

		case <-ticker.C:
			dead, found, err := m.registry.CheckAlive()
			if err != nil {
				m.logger.Warnf("Liveness probe failed, error: %v", err)
				continue
			}
			if found {
				m.setState(MonitorStateAborting)
				m.logger.Errorf("Process death detected, name: %s, PID: %d, aborting", dead.Name, dead.PID)
				m.setState(MonitorStateTerminal)
				return errors.NewProcessError("tracked process died", nil).
					WithContext("name", dead.Name).WithContext("pid", dead.PID)
			}
		}
	}
}
