package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/core-tools/hsu-testnet/pkg/errors"
	"github.com/core-tools/hsu-testnet/pkg/process"
)

// LauncherConfig is the optional YAML tuning file: which binaries to run,
// where run state lives, and how patient the bring-up waits are. Every
// field has a usable default; a missing file means defaults throughout.
type LauncherConfig struct {
	DataRoot  string                  `yaml:"data_root,omitempty"`
	Ledger    process.ExecutionConfig `yaml:"ledger,omitempty"`
	Node      process.ExecutionConfig `yaml:"node,omitempty"`
	Publisher process.ExecutionConfig `yaml:"publisher,omitempty"`
	Timing    TimingConfig            `yaml:"timing,omitempty"`
}

// TimingConfig bounds every wait in the bring-up pipeline.
type TimingConfig struct {
	LedgerReadyTimeout       time.Duration `yaml:"ledger_ready_timeout,omitempty"`
	LeaderReadyTimeout       time.Duration `yaml:"leader_ready_timeout,omitempty"`
	FleetRegistrationTimeout time.Duration `yaml:"fleet_registration_timeout,omitempty"`
	PollInterval             time.Duration `yaml:"poll_interval,omitempty"`
	LaunchStagger            time.Duration `yaml:"launch_stagger,omitempty"`
	StartupGracePeriod       time.Duration `yaml:"startup_grace_period,omitempty"`
	LivenessInterval         time.Duration `yaml:"liveness_interval,omitempty"`
}

// LoadLauncherConfig reads the tuning file, applying defaults afterwards.
// An empty filename yields the pure-defaults configuration.
func LoadLauncherConfig(filename string) (*LauncherConfig, error) {
	var config LauncherConfig

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, errors.NewIOError("failed to read launcher configuration file", err).WithContext("filename", filename)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, errors.NewConfigError("failed to parse YAML launcher configuration", err).WithContext("filename", filename)
		}
	}

	setLauncherDefaults(&config)

	if err := ValidateLauncherConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setLauncherDefaults(config *LauncherConfig) {
	if config.Ledger.ExecutablePath == "" {
		config.Ledger.ExecutablePath = "anvil"
	}
	if config.Node.ExecutablePath == "" {
		config.Node.ExecutablePath = "antnode"
	}
	if config.Publisher.ExecutablePath == "" {
		config.Publisher.ExecutablePath = "static-web-server"
	}
	for _, execution := range []*process.ExecutionConfig{
		&config.Ledger, &config.Node, &config.Publisher,
	} {
		if execution.WaitDelay == 0 {
			execution.WaitDelay = 10 * time.Second
		}
	}

	timing := &config.Timing
	if timing.LedgerReadyTimeout == 0 {
		timing.LedgerReadyTimeout = 30 * time.Second
	}
	if timing.LeaderReadyTimeout == 0 {
		timing.LeaderReadyTimeout = 20 * time.Second
	}
	if timing.FleetRegistrationTimeout == 0 {
		timing.FleetRegistrationTimeout = 60 * time.Second
	}
	if timing.PollInterval == 0 {
		timing.PollInterval = 500 * time.Millisecond
	}
	if timing.LaunchStagger == 0 {
		timing.LaunchStagger = 2 * time.Second
	}
	if timing.StartupGracePeriod == 0 {
		timing.StartupGracePeriod = 1 * time.Second
	}
	if timing.LivenessInterval == 0 {
		timing.LivenessInterval = 5 * time.Second
	}
}

// ValidateLauncherConfig rejects tuning values that would make a wait
// unbounded or degenerate.
func ValidateLauncherConfig(config *LauncherConfig) error {
	if config == nil {
		return errors.NewConfigError("launcher configuration cannot be nil", nil)
	}

	for name, execution := range map[string]process.ExecutionConfig{
		"ledger":    config.Ledger,
		"node":      config.Node,
		"publisher": config.Publisher,
	} {
		if err := process.ValidateExecutionConfig(execution); err != nil {
			return errors.NewConfigError("invalid "+name+" execution configuration", err)
		}
	}

	timing := config.Timing
	for name, timeout := range map[string]time.Duration{
		"ledger_ready_timeout":       timing.LedgerReadyTimeout,
		"leader_ready_timeout":       timing.LeaderReadyTimeout,
		"fleet_registration_timeout": timing.FleetRegistrationTimeout,
		"poll_interval":              timing.PollInterval,
		"startup_grace_period":       timing.StartupGracePeriod,
		"liveness_interval":          timing.LivenessInterval,
	} {
		if timeout <= 0 {
			return errors.NewConfigError("timing value must be positive: "+name, nil)
		}
	}
	if timing.LaunchStagger < 0 {
		return errors.NewConfigError("timing value cannot be negative: launch_stagger", nil)
	}

	return nil
}
