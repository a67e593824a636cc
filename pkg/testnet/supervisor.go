package testnet

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/core-tools/hsu-testnet/pkg/config"
	"github.com/core-tools/hsu-testnet/pkg/logging"
	"github.com/core-tools/hsu-testnet/pkg/readiness"
	"github.com/core-tools/hsu-testnet/pkg/runfiles"
)

// BringUpReport is what a successful bring-up hands to the operator:
// everything an external client needs to join the network.
type BringUpReport struct {
	Ledger        LedgerConnection
	BootstrapList []string
	BootstrapURL  string
}

// Supervisor is the composition root. It owns the process registry and
// sequences the bring-up pipeline: purge stale state, launch the ledger,
// launch the fleet behind the leader gate, await registration
// convergence, start the publisher, report, then monitor until shutdown.
// Every fatal path funnels through the same idempotent cleanup.
type Supervisor struct {
	settings config.Settings
	runID    string
	logger   logging.Logger
	runFiles *runfiles.Manager
	registry *ProcessRegistry

	ledger    *LedgerLauncher
	fleet     *NodeFleetLauncher
	converger *RegistrationConverger
	publisher *PublisherService
	monitor   *LivenessMonitor

	cleanupOnce sync.Once

	mutex  sync.Mutex
	report *BringUpReport
}

func NewSupervisor(settings config.Settings, launcher *config.LauncherConfig, logger logging.Logger) *Supervisor {
	runID := uuid.NewString()
	runFiles := runfiles.NewManager(launcher.DataRoot, logger)
	registry := NewProcessRegistry(logger)
	waiter := readiness.NewWaiter(logger)
	timing := launcher.Timing

	fleet := NewNodeFleetLauncher(settings, launcher.Node, timing, runFiles, registry, waiter, logger)

	return &Supervisor{
		settings:  settings,
		runID:     runID,
		logger:    logger,
		runFiles:  runFiles,
		registry:  registry,
		ledger:    NewLedgerLauncher(launcher.Ledger, timing, runFiles, registry, waiter, logger),
		fleet:     fleet,
		converger: NewRegistrationConverger(timing, runFiles, registry, waiter, fleet.LeaderPort(), runID, logger),
		publisher: NewPublisherService(settings, launcher.Publisher, timing, runFiles, registry, logger),
		monitor:   NewLivenessMonitor(registry, timing.LivenessInterval, logger),
	}
}

// RunID identifies this bring-up attempt in logs and diagnostics files.
func (s *Supervisor) RunID() string {
	return s.runID
}

// Report returns the bring-up report, nil until bring-up succeeded.
func (s *Supervisor) Report() *BringUpReport {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.report
}

func (s *Supervisor) setReport(report *BringUpReport) {
	s.mutex.Lock()
	s.report = report
	s.mutex.Unlock()
}

// Run drives the whole lifecycle. It returns nil only when the system
// reached steady-state monitoring and was then shut down externally;
// every other outcome is an error, and in both cases all children are
// terminated before returning.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Infof("Bring-up starting, run: %s, nodes: %d, data root: %s",
		s.runID, s.settings.NodeCount(), s.runFiles.DataRoot())

	if err := s.bringUp(ctx); err != nil {
		s.logger.Errorf("Bring-up failed: %v", err)
		s.Cleanup()
		return err
	}

	err := s.monitor.Run(ctx)
	if err != nil {
		s.logger.Errorf("Steady-state monitoring aborted: %v", err)
	}
	s.Cleanup()
	return err
}

func (s *Supervisor) bringUp(ctx context.Context) error {
	if err := s.runFiles.PurgeRunState(); err != nil {
		return err
	}

	connection, err := s.ledger.Launch(ctx)
	if err != nil {
		return err
	}

	if err := s.fleet.Launch(ctx, connection); err != nil {
		return err
	}

	bootstrapList, err := s.converger.AwaitConvergence(ctx, s.settings.NodeCount())
	if err != nil {
		return err
	}

	url, err := s.publisher.Start(ctx, bootstrapList)
	if err != nil {
		return err
	}

	report := &BringUpReport{
		Ledger:        connection,
		BootstrapList: bootstrapList,
		BootstrapURL:  url,
	}
	s.logReport(report)
	s.setReport(report)
	return nil
}

func (s *Supervisor) logReport(report *BringUpReport) {
	s.logger.Infof("Test network is up")
	s.logger.Infof("Ledger RPC: %s", report.Ledger.RPCURL)
	s.logger.Infof("Payment token address: %s", report.Ledger.PaymentTokenAddress)
	s.logger.Infof("Data payments address: %s", report.Ledger.DataPaymentsAddress)
	s.logger.Infof("Discovery list:\n%s", strings.Join(report.BootstrapList, "\n"))
	s.logger.Infof("Bootstrap URL: %s", report.BootstrapURL)
}

// Cleanup terminates every tracked child. Safe to call from any failure
// path and more than once; already-exited processes are skipped.
func (s *Supervisor) Cleanup() {
	s.cleanupOnce.Do(func() {
		s.logger.Infof("Cleaning up, terminating %d tracked processes...", s.registry.Count())
		s.registry.TerminateAll()
		s.logger.Infof("Cleanup complete")
	})
}
