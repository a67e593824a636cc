package testnet

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/core-tools/hsu-testnet/pkg/config"
	"github.com/core-tools/hsu-testnet/pkg/logging"
)

// RunOptions carries the command-line level knobs for one run.
type RunOptions struct {
	ConfigFile  string
	DataRoot    string
	RunDuration time.Duration // 0 means run until a signal arrives
}

// Run loads settings from the environment and the launcher config from
// file, then drives a Supervisor until shutdown. SIGINT/SIGTERM cancel
// the run context; during steady-state monitoring that is a clean exit.
func Run(options RunOptions, logger logging.Logger) error {
	raw := config.LoadFromEnvironment()
	settings, err := raw.Validate()
	if err != nil {
		logger.Errorf("Environment validation failed: %v", err)
		return err
	}

	launcher, err := config.LoadLauncherConfig(options.ConfigFile)
	if err != nil {
		logger.Errorf("Launcher configuration failed: %v", err)
		return err
	}
	if options.DataRoot != "" {
		launcher.DataRoot = options.DataRoot
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if options.RunDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.RunDuration)
		defer cancel()
		logger.Infof("Run duration limited to %v", options.RunDuration)
	}

	supervisor := NewSupervisor(settings, launcher, logger)
	return supervisor.Run(ctx)
}
