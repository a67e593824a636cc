package readiness

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/core-tools/hsu-testnet/pkg/errors"
	"github.com/core-tools/hsu-testnet/pkg/logging"
)

// MinPollInterval is the floor for poll intervals. Bring-up waits are
// measured in seconds; anything tighter just burns CPU.
const MinPollInterval = 50 * time.Millisecond

// Probe reports whether the awaited condition holds. A probe error aborts
// the wait immediately; probes must be side-effect free so re-checking an
// already-satisfied condition stays idempotent.
type Probe func() (bool, error)

// Waiter is the single bounded-polling primitive behind every wait in the
// bring-up pipeline: readiness files, registration convergence.
type Waiter struct {
	logger logging.Logger
}

func NewWaiter(logger logging.Logger) *Waiter {
	return &Waiter{
		logger: logger,
	}
}

// WaitForCondition polls probe at the given interval until it holds, the
// timeout elapses, or ctx is cancelled. The first check happens
// immediately, so an already-satisfied condition never sleeps.
func (w *Waiter) WaitForCondition(ctx context.Context, desc string, timeout, interval time.Duration, probe Probe) error {
	if interval < MinPollInterval {
		interval = MinPollInterval
	}

	w.logger.Debugf("Waiting for %s, timeout: %v, interval: %v", desc, timeout, interval)

	start := time.Now()
	for {
		done, err := probe()
		if err != nil {
			return err
		}
		if done {
			w.logger.Debugf("Condition satisfied: %s, elapsed: %v", desc, time.Since(start))
			return nil
		}

		elapsed := time.Since(start)
		if elapsed >= timeout {
			return errors.NewTimeoutError(
				fmt.Sprintf("timed out waiting for %s after %v", desc, elapsed.Round(time.Millisecond)), nil,
			).WithContext("timeout", timeout)
		}

		select {
		case <-ctx.Done():
			return errors.NewCancelledError("wait for "+desc+" was cancelled", ctx.Err())
		case <-time.After(interval):
		}
	}
}

// WaitForPath waits for a filesystem path to exist. The producing process
// owns the path; mere existence is the readiness signal.
func (w *Waiter) WaitForPath(ctx context.Context, path string, timeout, interval time.Duration) error {
	return w.WaitForCondition(ctx, "path "+path, timeout, interval, func() (bool, error) {
		return PathExists(path)
	})
}

// PathExists is the probe behind WaitForPath, exported because launch code
// also uses it for one-shot checks.
func PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.NewIOError("failed to stat path", err).WithContext("path", path)
}
