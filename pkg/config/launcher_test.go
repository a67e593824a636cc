package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLauncherConfigDefaults(t *testing.T) {
	config, err := LoadLauncherConfig("")
	require.NoError(t, err)

	assert.Equal(t, "anvil", config.Ledger.ExecutablePath)
	assert.Equal(t, "antnode", config.Node.ExecutablePath)
	assert.Equal(t, "static-web-server", config.Publisher.ExecutablePath)

	assert.Equal(t, 10*time.Second, config.Ledger.WaitDelay)
	assert.Equal(t, 10*time.Second, config.Node.WaitDelay)
	assert.Equal(t, 10*time.Second, config.Publisher.WaitDelay)

	assert.Equal(t, 30*time.Second, config.Timing.LedgerReadyTimeout)
	assert.Equal(t, 20*time.Second, config.Timing.LeaderReadyTimeout)
	assert.Equal(t, 60*time.Second, config.Timing.FleetRegistrationTimeout)
	assert.Equal(t, 500*time.Millisecond, config.Timing.PollInterval)
	assert.Equal(t, 2*time.Second, config.Timing.LaunchStagger)
	assert.Equal(t, 1*time.Second, config.Timing.StartupGracePeriod)
	assert.Equal(t, 5*time.Second, config.Timing.LivenessInterval)
}

func TestLoadLauncherConfigFromFile(t *testing.T) {
	content := `
data_root: /tmp/my-testnet
ledger:
  executable_path: /opt/ledger/bin/testchain
  args: ["--silent"]
node:
  executable_path: /opt/node/bin/storenode
timing:
  ledger_ready_timeout: 10s
  poll_interval: 100ms
  launch_stagger: 500ms
`
	path := filepath.Join(t.TempDir(), "launcher.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadLauncherConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/my-testnet", config.DataRoot)
	assert.Equal(t, "/opt/ledger/bin/testchain", config.Ledger.ExecutablePath)
	assert.Equal(t, []string{"--silent"}, config.Ledger.Args)
	assert.Equal(t, "/opt/node/bin/storenode", config.Node.ExecutablePath)
	assert.Equal(t, 10*time.Second, config.Timing.LedgerReadyTimeout)
	assert.Equal(t, 100*time.Millisecond, config.Timing.PollInterval)
	assert.Equal(t, 500*time.Millisecond, config.Timing.LaunchStagger)

	// Unspecified values still defaulted.
	assert.Equal(t, "static-web-server", config.Publisher.ExecutablePath)
	assert.Equal(t, 60*time.Second, config.Timing.FleetRegistrationTimeout)
}

func TestLoadLauncherConfigMissingFile(t *testing.T) {
	_, err := LoadLauncherConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadLauncherConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timing: [not a map"), 0644))

	_, err := LoadLauncherConfig(path)
	assert.Error(t, err)
}

func TestValidateLauncherConfigRejectsBadTiming(t *testing.T) {
	config, err := LoadLauncherConfig("")
	require.NoError(t, err)

	config.Timing.PollInterval = -1 * time.Second
	assert.Error(t, ValidateLauncherConfig(config))

	config.Timing.PollInterval = 500 * time.Millisecond
	config.Timing.LaunchStagger = -1 * time.Second
	assert.Error(t, ValidateLauncherConfig(config))
}
