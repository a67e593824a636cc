package config

import (
	"os"
)

// Environment variables holding the required launch settings. These are
// the external contract of the launcher; operational tuning lives in the
// optional YAML file (launcher.go).
const (
	EnvRewardsAddress = "REWARDS_ADDRESS"
	EnvExternalIP     = "EXTERNAL_IP_ADDRESS"
	EnvNodePort       = "NODE_PORT"
	EnvBootstrapPort  = "BOOTSTRAP_PORT"
)

// RawSettings is the unvalidated environment bundle, exactly as read.
type RawSettings struct {
	RewardsAddress string
	ExternalIP     string
	NodePortSpec   string
	BootstrapPort  string
}

// LoadFromEnvironment reads the raw settings. Validation is separate so
// every problem can be reported at once.
func LoadFromEnvironment() RawSettings {
	return RawSettings{
		RewardsAddress: os.Getenv(EnvRewardsAddress),
		ExternalIP:     os.Getenv(EnvExternalIP),
		NodePortSpec:   os.Getenv(EnvNodePort),
		BootstrapPort:  os.Getenv(EnvBootstrapPort),
	}
}

// Settings is the validated, immutable launch configuration.
type Settings struct {
	RewardsAddress string
	ExternalIP     string
	PortRangeStart int
	PortRangeEnd   int
	BootstrapPort  int
}

// NodeCount is the fleet size implied by the port range. Always >= 1 for
// validated settings.
func (s Settings) NodeCount() int {
	return s.PortRangeEnd - s.PortRangeStart + 1
}

// Ports lists the fleet ports in ascending launch order.
func (s Settings) Ports() []int {
	ports := make([]int, 0, s.NodeCount())
	for port := s.PortRangeStart; port <= s.PortRangeEnd; port++ {
		ports = append(ports, port)
	}
	return ports
}
