package testnet

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/core-tools/hsu-testnet/pkg/config"
	"github.com/core-tools/hsu-testnet/pkg/errors"
	"github.com/core-tools/hsu-testnet/pkg/logging"
	"github.com/core-tools/hsu-testnet/pkg/process"
	"github.com/core-tools/hsu-testnet/pkg/readiness"
	"github.com/core-tools/hsu-testnet/pkg/runfiles"
)

const ledgerProcessName = "ledger"

// LedgerConnection carries the chain connection parameters the storage
// nodes need. Populated exactly once per bring-up from the record the
// ledger process writes; immutable afterwards.
type LedgerConnection struct {
	RPCURL              string
	PaymentTokenAddress string
	DataPaymentsAddress string
	SecretKey           string
}

// LedgerLauncher starts the ledger test-chain and resolves its connection
// parameters before any storage node launches.
type LedgerLauncher struct {
	timing    config.TimingConfig
	runFiles  *runfiles.Manager
	registry  *ProcessRegistry
	waiter    *readiness.Waiter
	logger    logging.Logger
	executeFn process.ExecuteCmd
}

func NewLedgerLauncher(
	execution process.ExecutionConfig,
	timing config.TimingConfig,
	runFiles *runfiles.Manager,
	registry *ProcessRegistry,
	waiter *readiness.Waiter,
	logger logging.Logger,
) *LedgerLauncher {
	return &LedgerLauncher{
		timing:    timing,
		runFiles:  runFiles,
		registry:  registry,
		waiter:    waiter,
		logger:    logger,
		executeFn: process.NewStdExecuteCmd(execution, ledgerProcessName, runFiles.ProcessLogPath(ledgerProcessName), logger),
	}
}

// Launch starts the ledger child, confirms it survives the startup grace
// period, waits for its connection record and parses it.
func (l *LedgerLauncher) Launch(ctx context.Context) (LedgerConnection, error) {
	l.logger.Infof("Launching ledger process...")

	proc, err := l.executeFn(ctx)
	if err != nil {
		return LedgerConnection{}, err
	}
	l.registry.Track(ledgerProcessName, proc.Pid)

	if err := sleepCtx(ctx, l.timing.StartupGracePeriod); err != nil {
		return LedgerConnection{}, err
	}

	alive, err := l.registry.IsAlive(ledgerProcessName)
	if err != nil {
		return LedgerConnection{}, errors.NewInternalError("failed to probe ledger process", err)
	}
	if !alive {
		return LedgerConnection{}, errors.NewProcessError("ledger process exited during startup", nil).
			WithContext("pid", proc.Pid)
	}
	l.registry.MarkRunning(ledgerProcessName)

	connectionPath := l.runFiles.LedgerConnectionPath()
	err = l.waiter.WaitForPath(ctx, connectionPath, l.timing.LedgerReadyTimeout, l.timing.PollInterval)
	if err != nil {
		return LedgerConnection{}, err
	}

	data, err := os.ReadFile(connectionPath)
	if err != nil {
		return LedgerConnection{}, errors.NewIOError("failed to read ledger connection record", err).
			WithContext("path", connectionPath)
	}

	connection, err := ParseLedgerConnection(string(data))
	if err != nil {
		return LedgerConnection{}, err
	}

	l.logger.Infof("Ledger ready, rpc: %s", connection.RPCURL)
	return connection, nil
}

// ParseLedgerConnection parses the single-line record the ledger writes:
// four comma-separated fields in fixed order (rpcUrl, paymentTokenAddress,
// dataPaymentsAddress, secretKey). The file is written atomically by its
// producer, so any malformed shape is fatal rather than retried.
func ParseLedgerConnection(data string) (LedgerConnection, error) {
	lines := strings.Split(strings.TrimSpace(data), "\n")
	if len(lines) != 1 {
		return LedgerConnection{}, errors.NewParseError(
			fmt.Sprintf("malformed ledger connection record: expected 1 line, got %d", len(lines)), nil)
	}

	fields := strings.Split(lines[0], ",")
	if len(fields) != 4 {
		return LedgerConnection{}, errors.NewParseError(
			fmt.Sprintf("malformed ledger connection record: expected 4 fields, got %d", len(fields)), nil)
	}

	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
		if fields[i] == "" {
			return LedgerConnection{}, errors.NewParseError(
				fmt.Sprintf("malformed ledger connection record: field %d is empty", i+1), nil)
		}
	}

	return LedgerConnection{
		RPCURL:              fields[0],
		PaymentTokenAddress: fields[1],
		DataPaymentsAddress: fields[2],
		SecretKey:           fields[3],
	}, nil
}
