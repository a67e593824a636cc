package testnet

import (
	"context"
	"fmt"
	"strconv"

	"github.com/core-tools/hsu-testnet/pkg/config"
	"github.com/core-tools/hsu-testnet/pkg/errors"
	"github.com/core-tools/hsu-testnet/pkg/logging"
	"github.com/core-tools/hsu-testnet/pkg/process"
	"github.com/core-tools/hsu-testnet/pkg/readiness"
	"github.com/core-tools/hsu-testnet/pkg/runfiles"
)

func nodeProcessName(port int) string {
	return fmt.Sprintf("node-%d", port)
}

// NodeFleetLauncher starts the storage-node fleet across the configured
// port range. The first node is the leader/seed: it gets the seed flag and
// its local discovery cache must appear before any follower launches,
// because followers register against it.
type NodeFleetLauncher struct {
	settings      config.Settings
	nodeExecution process.ExecutionConfig
	timing        config.TimingConfig
	runFiles      *runfiles.Manager
	registry      *ProcessRegistry
	waiter        *readiness.Waiter
	logger        logging.Logger

	// executeFactory builds the ExecuteCmd for one node; injectable so
	// tests can record launches instead of running binaries.
	executeFactory func(port int, leader bool, nodeDir string, connection LedgerConnection) process.ExecuteCmd
}

func NewNodeFleetLauncher(
	settings config.Settings,
	nodeExecution process.ExecutionConfig,
	timing config.TimingConfig,
	runFiles *runfiles.Manager,
	registry *ProcessRegistry,
	waiter *readiness.Waiter,
	logger logging.Logger,
) *NodeFleetLauncher {
	launcher := &NodeFleetLauncher{
		settings:      settings,
		nodeExecution: nodeExecution,
		timing:        timing,
		runFiles:      runFiles,
		registry:      registry,
		waiter:        waiter,
		logger:        logger,
	}
	launcher.executeFactory = launcher.stdExecuteFactory
	return launcher
}

func (f *NodeFleetLauncher) stdExecuteFactory(port int, leader bool, nodeDir string, connection LedgerConnection) process.ExecuteCmd {
	execution := f.buildNodeExecution(port, leader, nodeDir, connection)
	name := nodeProcessName(port)
	return process.NewStdExecuteCmd(execution, name, f.runFiles.ProcessLogPath(name), f.logger)
}

// buildNodeExecution composes the node command line: rewards address,
// external IP, port and ledger parameters as flags, the secret key via
// the environment so it stays out of process listings.
func (f *NodeFleetLauncher) buildNodeExecution(port int, leader bool, nodeDir string, connection LedgerConnection) process.ExecutionConfig {
	args := append([]string{}, f.nodeExecution.Args...)
	if leader {
		args = append(args, "--first")
	}
	args = append(args,
		"--rewards-address", f.settings.RewardsAddress,
		"--ip", f.settings.ExternalIP,
		"--port", strconv.Itoa(port),
		"--root-dir", nodeDir,
		"--rpc-url", connection.RPCURL,
		"--payment-token-address", connection.PaymentTokenAddress,
		"--data-payments-address", connection.DataPaymentsAddress,
	)

	env := append([]string{}, f.nodeExecution.Environment...)
	env = append(env, "SECRET_KEY="+connection.SecretKey)

	return process.ExecutionConfig{
		ExecutablePath:   f.nodeExecution.ExecutablePath,
		Args:             args,
		Environment:      env,
		WorkingDirectory: nodeDir,
	}
}

// Launch starts every node in ascending port order. A single launch
// failure aborts the whole fleet; no node is ever left "launching".
func (f *NodeFleetLauncher) Launch(ctx context.Context, connection LedgerConnection) error {
	ports := f.settings.Ports()
	f.logger.Infof("Launching node fleet, count: %d, ports: %d-%d",
		len(ports), f.settings.PortRangeStart, f.settings.PortRangeEnd)

	for i, port := range ports {
		leader := i == 0

		nodeDir, err := f.runFiles.EnsureNodeDir(port)
		if err != nil {
			return err
		}

		if !leader {
			// Stagger follower launches to avoid a thundering herd of
			// registrations against the leader.
			if err := sleepCtx(ctx, f.timing.LaunchStagger); err != nil {
				return err
			}
		}

		execute := f.executeFactory(port, leader, nodeDir, connection)
		proc, err := execute(ctx)
		if err != nil {
			return errors.NewProcessError(
				fmt.Sprintf("failed to launch node %d of %d", i+1, len(ports)), err,
			).WithContext("index", i).WithContext("port", port)
		}
		f.registry.Track(nodeProcessName(port), proc.Pid)
		f.registry.MarkRunning(nodeProcessName(port))

		if leader {
			// Followers need a seed to register against; block until the
			// leader's discovery cache exists before launching any of them.
			cachePath := f.runFiles.PeerCachePath(port)
			err := f.waiter.WaitForPath(ctx, cachePath, f.timing.LeaderReadyTimeout, f.timing.PollInterval)
			if err != nil {
				return err
			}
			f.logger.Infof("Leader node ready, port: %d", port)
		}
	}

	f.logger.Infof("Node fleet launched, count: %d", len(ports))
	return nil
}

// LeaderPort is the port of the designated leader node.
func (f *NodeFleetLauncher) LeaderPort() int {
	return f.settings.PortRangeStart
}
