package testnet

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/core-tools/hsu-testnet/pkg/config"
	"github.com/core-tools/hsu-testnet/pkg/errors"
	"github.com/core-tools/hsu-testnet/pkg/logging"
	"github.com/core-tools/hsu-testnet/pkg/process"
	"github.com/core-tools/hsu-testnet/pkg/runfiles"
)

const publisherProcessName = "publisher"

// PublisherService writes the bootstrap list and serves it to external
// clients through a static file-server child process.
type PublisherService struct {
	settings  config.Settings
	execution process.ExecutionConfig
	timing    config.TimingConfig
	runFiles  *runfiles.Manager
	registry  *ProcessRegistry
	logger    logging.Logger

	// executeFactory builds the file-server ExecuteCmd; injectable for
	// tests.
	executeFactory func(publicDir string) process.ExecuteCmd
}

func NewPublisherService(
	settings config.Settings,
	execution process.ExecutionConfig,
	timing config.TimingConfig,
	runFiles *runfiles.Manager,
	registry *ProcessRegistry,
	logger logging.Logger,
) *PublisherService {
	service := &PublisherService{
		settings:  settings,
		execution: execution,
		timing:    timing,
		runFiles:  runFiles,
		registry:  registry,
		logger:    logger,
	}
	service.executeFactory = service.stdExecuteFactory
	return service
}

func (p *PublisherService) stdExecuteFactory(publicDir string) process.ExecuteCmd {
	args := append([]string{}, p.execution.Args...)
	args = append(args,
		"--root", publicDir,
		"--port", strconv.Itoa(p.settings.BootstrapPort),
		"--directory-listing=false",
	)

	execution := process.ExecutionConfig{
		ExecutablePath:   p.execution.ExecutablePath,
		Args:             args,
		Environment:      p.execution.Environment,
		WorkingDirectory: publicDir,
	}
	return process.NewStdExecuteCmd(execution, publisherProcessName, p.runFiles.ProcessLogPath(publisherProcessName), p.logger)
}

// Start publishes the bootstrap list and returns the externally reachable
// URL clients fetch it from.
func (p *PublisherService) Start(ctx context.Context, bootstrapList []string) (string, error) {
	listPath := p.runFiles.BootstrapListPath()

	content := strings.Join(bootstrapList, "\n") + "\n"
	if err := os.WriteFile(listPath, []byte(content), 0644); err != nil {
		return "", errors.NewIOError("failed to write bootstrap list", err).WithContext("path", listPath)
	}
	p.logger.Infof("Bootstrap list written, path: %s, entries: %d", listPath, len(bootstrapList))

	execute := p.executeFactory(p.runFiles.PublicDirPath())
	proc, err := execute(ctx)
	if err != nil {
		return "", errors.NewProcessError("failed to start publisher process", err)
	}
	p.registry.Track(publisherProcessName, proc.Pid)

	if err := sleepCtx(ctx, p.timing.StartupGracePeriod); err != nil {
		return "", err
	}

	alive, err := p.registry.IsAlive(publisherProcessName)
	if err != nil {
		return "", errors.NewInternalError("failed to probe publisher process", err)
	}
	if !alive {
		return "", errors.NewProcessError("publisher process exited during startup", nil).
			WithContext("pid", proc.Pid).WithContext("port", p.settings.BootstrapPort)
	}
	p.registry.MarkRunning(publisherProcessName)

	url := fmt.Sprintf("http://%s:%d/bootstrap.txt", p.settings.ExternalIP, p.settings.BootstrapPort)
	p.logger.Infof("Publisher ready, url: %s", url)
	return url, nil
}
