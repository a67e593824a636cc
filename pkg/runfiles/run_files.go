package runfiles

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/core-tools/hsu-testnet/pkg/errors"
	"github.com/core-tools/hsu-testnet/pkg/logging"
)

// Default application name, used for the data-root directory under the
// system temp directory when no explicit data root is configured.
const DefaultAppName = "hsu-testnet"

// Manager owns the on-disk layout of a test-network run. Everything under
// the data root is ephemeral: a new bring-up purges the previous run's
// state before launching anything.
//
// Layout:
//
//	<root>/ledger/connection.csv             ledger connection record
//	<root>/nodes/node-<port>/                per-node working directory
//	<root>/nodes/node-<port>/peer_cache/peers.json
//	<root>/public/bootstrap.txt              published discovery list
//	<root>/diagnostics/                      partial lists from failed runs
//	<root>/logs/<name>.log                   child process output
type Manager struct {
	dataRoot string
	logger   logging.Logger
}

func NewManager(dataRoot string, logger logging.Logger) *Manager {
	if dataRoot == "" {
		dataRoot = filepath.Join(os.TempDir(), DefaultAppName)
	}
	return &Manager{
		dataRoot: dataRoot,
		logger:   logger,
	}
}

func (m *Manager) DataRoot() string {
	return m.dataRoot
}

func (m *Manager) LedgerConnectionPath() string {
	return filepath.Join(m.dataRoot, "ledger", "connection.csv")
}

func (m *Manager) NodeDirPath(port int) string {
	return filepath.Join(m.dataRoot, "nodes", fmt.Sprintf("node-%d", port))
}

// PeerCachePath is the discovery cache a node writes under its working
// directory. Only the leader's copy is read by the launcher.
func (m *Manager) PeerCachePath(port int) string {
	return filepath.Join(m.NodeDirPath(port), "peer_cache", "peers.json")
}

func (m *Manager) PublicDirPath() string {
	return filepath.Join(m.dataRoot, "public")
}

func (m *Manager) BootstrapListPath() string {
	return filepath.Join(m.PublicDirPath(), "bootstrap.txt")
}

func (m *Manager) PartialListPath(runID string) string {
	return filepath.Join(m.dataRoot, "diagnostics", "bootstrap-partial-"+runID+".txt")
}

func (m *Manager) ProcessLogPath(name string) string {
	return filepath.Join(m.dataRoot, "logs", name+".log")
}

// PurgeRunState removes every artifact of a previous run and recreates the
// directory skeleton. Restarts intentionally begin from empty state.
func (m *Manager) PurgeRunState() error {
	entries := []string{"ledger", "nodes", "public", "diagnostics", "logs"}

	for _, entry := range entries {
		path := filepath.Join(m.dataRoot, entry)
		if err := os.RemoveAll(path); err != nil {
			return errors.NewIOError("failed to purge stale run state", err).WithContext("path", path)
		}
	}

	m.logger.Infof("Purged stale run state, data root: %s", m.dataRoot)

	return m.EnsureLayout()
}

// EnsureLayout creates the directory skeleton and verifies it is writable.
func (m *Manager) EnsureLayout() error {
	dirs := []string{
		filepath.Dir(m.LedgerConnectionPath()),
		filepath.Join(m.dataRoot, "nodes"),
		m.PublicDirPath(),
		filepath.Join(m.dataRoot, "diagnostics"),
		filepath.Join(m.dataRoot, "logs"),
	}

	for _, dir := range dirs {
		if err := ValidateDirectory(dir); err != nil {
			return err
		}
	}

	return nil
}

// EnsureNodeDir creates a node's working directory before its process
// launches so the node never races directory creation.
func (m *Manager) EnsureNodeDir(port int) (string, error) {
	dir := m.NodeDirPath(port)
	if err := ValidateDirectory(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// ValidateDirectory makes sure a directory exists and is writable,
// creating it if necessary.
func ValidateDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return errors.NewIOError("failed to create directory", err).WithContext("directory", dir)
			}
		} else {
			return errors.NewIOError("failed to access directory", err).WithContext("directory", dir)
		}
	} else if !info.IsDir() {
		return errors.NewIOError("path is not a directory", nil).WithContext("path", dir)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		return errors.NewIOError("directory is not writable", err).WithContext("directory", dir)
	}
	file.Close()
	os.Remove(testFile)

	return nil
}
