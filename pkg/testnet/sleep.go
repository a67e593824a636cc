package testnet

import (
	"context"
	"time"

	"github.com/core-tools/hsu-testnet/pkg/errors"
)

// sleepCtx sleeps for d unless ctx is cancelled first, so signal-driven
// shutdown interrupts grace periods and stagger delays promptly.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return errors.NewCancelledError("sleep interrupted", ctx.Err())
	}
}
