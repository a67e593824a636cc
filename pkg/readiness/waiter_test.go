package readiness

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-tools/hsu-testnet/pkg/errors"
)

type nopLogger struct{}

func (nopLogger) Debugf(format string, args ...interface{}) {}
func (nopLogger) Infof(format string, args ...interface{})  {}
func (nopLogger) Warnf(format string, args ...interface{})  {}
func (nopLogger) Errorf(format string, args ...interface{}) {}

func TestWaitForPathAlreadyExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ready")
	require.NoError(t, os.WriteFile(path, []byte("ok"), 0644))

	w := NewWaiter(nopLogger{})

	// Idempotent: an already-satisfied wait succeeds repeatedly without
	// side effects.
	for i := 0; i < 2; i++ {
		err := w.WaitForPath(context.Background(), path, time.Second, MinPollInterval)
		assert.NoError(t, err)
	}

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(content))
}

func TestWaitForPathAppearsLater(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ready")

	go func() {
		time.Sleep(150 * time.Millisecond)
		_ = os.WriteFile(path, []byte("ok"), 0644)
	}()

	w := NewWaiter(nopLogger{})
	err := w.WaitForPath(context.Background(), path, 5*time.Second, MinPollInterval)
	assert.NoError(t, err)
}

func TestWaitForPathTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never")

	w := NewWaiter(nopLogger{})
	start := time.Now()
	err := w.WaitForPath(context.Background(), path, 200*time.Millisecond, MinPollInterval)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.IsTimeoutError(err))
	assert.Contains(t, err.Error(), path)
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestWaitForConditionProbeError(t *testing.T) {
	probeErr := errors.NewIOError("probe exploded", nil)

	w := NewWaiter(nopLogger{})
	err := w.WaitForCondition(context.Background(), "broken probe", time.Second, MinPollInterval, func() (bool, error) {
		return false, probeErr
	})

	assert.ErrorIs(t, err, probeErr)
}

func TestWaitForConditionCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	w := NewWaiter(nopLogger{})
	start := time.Now()
	err := w.WaitForCondition(ctx, "never-true condition", time.Minute, MinPollInterval, func() (bool, error) {
		return false, nil
	})

	require.Error(t, err)
	assert.True(t, errors.IsCancelledError(err))
	// Cancellation interrupts the current sleep, it does not wait out the
	// remaining timeout.
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWaitForConditionIntervalFloor(t *testing.T) {
	calls := 0

	w := NewWaiter(nopLogger{})
	err := w.WaitForCondition(context.Background(), "counted probes", 300*time.Millisecond, time.Nanosecond, func() (bool, error) {
		calls++
		return false, nil
	})

	require.Error(t, err)
	// With the 50ms floor enforced, ~300ms allows at most a handful of
	// probes; an unclamped nanosecond interval would mean millions.
	assert.LessOrEqual(t, calls, 10)
}

func TestPathExists(t *testing.T) {
	dir := t.TempDir()

	exists, err := PathExists(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.False(t, exists)

	path := filepath.Join(dir, "present")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	exists, err = PathExists(path)
	require.NoError(t, err)
	assert.True(t, exists)
}
