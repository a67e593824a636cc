package testnet

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debugf(format string, args ...interface{}) {}
func (nopLogger) Infof(format string, args ...interface{})  {}
func (nopLogger) Warnf(format string, args ...interface{})  {}
func (nopLogger) Errorf(format string, args ...interface{}) {}

// fakeProc builds an *os.Process carrying just a PID, enough for the
// registry and launchers which only ever read Pid.
func fakeProc(pid int) *os.Process {
	return &os.Process{Pid: pid}
}

// probeRecorder is a controllable stand-in for the OS liveness probe and
// termination signal.
type probeRecorder struct {
	mutex      sync.Mutex
	dead       map[int]bool
	terminated []int
}

func newProbeRecorder() *probeRecorder {
	return &probeRecorder{dead: make(map[int]bool)}
}

func (p *probeRecorder) markDead(pid int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.dead[pid] = true
}

func (p *probeRecorder) alive(pid int) (bool, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return !p.dead[pid], nil
}

func (p *probeRecorder) terminate(pid int) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.terminated = append(p.terminated, pid)
	return nil
}

func (p *probeRecorder) terminatedCount() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.terminated)
}

func newTestRegistry(probes *probeRecorder) *ProcessRegistry {
	registry := NewProcessRegistry(nopLogger{})
	registry.aliveFn = probes.alive
	registry.terminateFn = probes.terminate
	return registry
}

func TestRegistryTrackAndSnapshot(t *testing.T) {
	registry := newTestRegistry(newProbeRecorder())

	registry.Track("ledger", 100)
	registry.Track("node-15000", 101)

	assert.Equal(t, 2, registry.Count())

	snapshot := registry.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "ledger", snapshot[0].Name)
	assert.Equal(t, 100, snapshot[0].PID)
	assert.Equal(t, ProcessStateStarting, snapshot[0].State)
	assert.Equal(t, "node-15000", snapshot[1].Name)
}

func TestRegistryMarkRunning(t *testing.T) {
	registry := newTestRegistry(newProbeRecorder())

	registry.Track("ledger", 100)
	registry.MarkRunning("ledger")

	snapshot := registry.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, ProcessStateRunning, snapshot[0].State)
}

func TestRegistryCheckAliveReportsFirstDead(t *testing.T) {
	probes := newProbeRecorder()
	registry := newTestRegistry(probes)

	registry.Track("ledger", 100)
	registry.Track("node-15000", 101)
	registry.Track("node-15001", 102)

	_, found, err := registry.CheckAlive()
	require.NoError(t, err)
	assert.False(t, found)

	probes.markDead(101)

	dead, found, err := registry.CheckAlive()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "node-15000", dead.Name)
	assert.Equal(t, 101, dead.PID)

	// Dead process is marked Exited and skipped on the next pass.
	_, found, err = registry.CheckAlive()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRegistryIsAlive(t *testing.T) {
	probes := newProbeRecorder()
	registry := newTestRegistry(probes)

	registry.Track("ledger", 100)

	alive, err := registry.IsAlive("ledger")
	require.NoError(t, err)
	assert.True(t, alive)

	probes.markDead(100)

	alive, err = registry.IsAlive("ledger")
	require.NoError(t, err)
	assert.False(t, alive)

	alive, err = registry.IsAlive("unknown")
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestRegistryTerminateAllIsIdempotent(t *testing.T) {
	probes := newProbeRecorder()
	registry := newTestRegistry(probes)

	registry.Track("ledger", 100)
	registry.Track("node-15000", 101)

	registry.TerminateAll()
	assert.Equal(t, 2, probes.terminatedCount())

	registry.TerminateAll()
	assert.Equal(t, 2, probes.terminatedCount(), "second pass must not signal anything")
}

func TestRegistryTerminateAllSweepsGroupOfGoneProcess(t *testing.T) {
	probes := newProbeRecorder()
	registry := newTestRegistry(probes)

	registry.Track("ledger", 100)
	registry.Track("node-15000", 101)
	probes.markDead(100)

	registry.TerminateAll()

	// The dead child's process group may hold surviving descendants, so
	// it gets the group signal too.
	assert.Equal(t, 2, probes.terminatedCount())
	assert.Equal(t, []int{100, 101}, probes.terminated)
}
